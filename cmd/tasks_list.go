package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/vantagehq/vantage/internal/tasks"
)

var tasksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the server's maintenance tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		list, err := cli.ListTasks(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}

		w := table.NewWriter()
		w.SetOutputMirror(os.Stdout)
		w.AppendHeader(table.Row{"Name", "State", "Last Run", "Next Run", "Last Result"})
		for _, task := range list {
			w.AppendRow(taskRow(task))
		}
		applyTableFormat(w)
		w.Render()
		return nil
	},
}

func taskRow(task tasks.TaskStatus) table.Row {
	state := faint("idle")
	if task.Running {
		state = color.BlueString("running")
	}

	lastRun := "never"
	if !task.LastRun.IsZero() {
		lastRun = time.Since(task.LastRun).Round(time.Second).String() + " ago"
	}

	// zero NextRun means the task only runs on manual trigger
	nextRun := "on trigger"
	if !task.NextRun.IsZero() {
		nextRun = "in " + time.Until(task.NextRun).Round(time.Second).String()
	}

	result := task.LastResult
	switch {
	case result == "success":
		result = greenCheck + " " + result
	case result != "":
		result = redCross + " " + truncate(result, 48)
	}

	return table.Row{bold(task.Name), state, lastRun, nextRun, result}
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
}
