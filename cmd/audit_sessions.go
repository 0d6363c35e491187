package cmd

import (
	"github.com/spf13/cobra"
)

// auditSessionsCmd represents the audit sessions command
var auditSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Show how many sessions are active on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		count, correlation, err := cli.SessionsCount(cmd.Context())
		if err != nil {
			return logError(err, correlation, "failed to count sessions")
		}

		logSuccess("%d active session(s)", count)
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditSessionsCmd)
}
