package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tasksLogsCmd = &cobra.Command{
	Use:   "logs NAME",
	Short: "Show the log tail of a task's latest run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cli, err := getClient()
		if err != nil {
			return err
		}

		entries, err := cli.GetTaskLogs(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("retrieving task logs: %w", err)
		}
		if len(entries) == 0 {
			fmt.Printf("no runs recorded for %s yet\n", bold(name))
			return nil
		}

		fmt.Printf("latest run of %s:\n", bold(name))
		fmt.Println(strings.Repeat("-", 40))
		for _, entry := range entries {
			fmt.Printf("%s | %s | %s\n",
				entry.Time.Format("15:04:05"), levelBadge(entry.Level), entry.Message)
		}
		return nil
	},
}

func levelBadge(level string) string {
	switch level {
	case "info":
		return color.GreenString("inf")
	case "warn":
		return color.YellowString("wrn")
	case "error":
		return color.RedString("err")
	case "debug":
		return faint("dbg")
	}
	return level
}

func init() {
	tasksCmd.AddCommand(tasksLogsCmd)
}
