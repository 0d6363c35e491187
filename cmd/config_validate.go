package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vantagehq/vantage/internal/config"
)

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return logError(err, "", "configuration is invalid")
		}
		logSuccess("configuration is valid (%d seeded user(s), audit sink '%s')",
			len(cfg.Users), cfg.Audit.Type)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}
