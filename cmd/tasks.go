package cmd

import (
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage background maintenance tasks",
	Long:  `List, trigger and inspect the server's background tasks. Requires an admin session (vantage login).`,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
