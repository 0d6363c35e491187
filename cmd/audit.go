package cmd

import (
	"github.com/spf13/cobra"
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the security audit trail",
	Long:  `View security events recorded by the server and inspect active sessions. Requires an admin session (vantage login).`,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
