package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vantagehq/vantage/internal/cliconfig"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the saved session",
	Long: `Revokes the saved session on the server and removes the cached
credentials for it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := serverAddress()
		if err != nil {
			return err
		}
		cli, err := getClient()
		if err != nil {
			return err
		}

		// server-side revocation is best effort; the local credentials go
		// away either way
		if correlation, err := cli.Logout(cmd.Context()); err != nil {
			log.Warn().Msgf("server-side logout failed (correlation ID: %s): %v", correlation, err)
		}

		cfg, err := cliconfig.Load()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logSuccess("no saved session for %s", bold(server))
				return nil
			}
			return fmt.Errorf("loading credentials: %w", err)
		}
		if err := cfg.RemoveCredential(server); err != nil {
			return err
		}
		if err := cliconfig.Save(cfg); err != nil {
			return fmt.Errorf("saving credentials: %w", err)
		}

		logSuccess("logged out from %s", bold(server))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
