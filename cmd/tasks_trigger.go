package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var tasksTriggerCmd = &cobra.Command{
	Use:   "trigger NAME",
	Short: "Run a maintenance task outside its schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cli, err := getClient()
		if err != nil {
			return err
		}

		if err := cli.TriggerTask(cmd.Context(), name); err != nil {
			return fmt.Errorf("triggering task: %w", err)
		}

		logSuccess("task %s triggered", bold(name))
		log.Info().Msgf("follow it with %s", color.CyanString("vantage tasks logs "+name))
		return nil
	},
}

func init() {
	tasksCmd.AddCommand(tasksTriggerCmd)
}
