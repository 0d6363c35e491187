package cmd

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the server configuration",
	Long:  `Check the configuration file the server boots from.`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
