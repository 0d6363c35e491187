package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vantagehq/vantage/pkg/client"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the user behind the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := serverAddress()
		if err != nil {
			return err
		}
		cli, err := getClient()
		if err != nil {
			return err
		}

		user, correlation, err := cli.Me(cmd.Context())
		if err != nil {
			// the access token is short-lived; try one refresh before
			// declaring the session dead
			var apiErr client.APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
				return logError(err, correlation, "failed to resolve session")
			}
			log.Debug().Msg("Access token rejected, refreshing session...")
			if _, err := cli.Refresh(cmd.Context()); err != nil {
				return logError(err, correlation, "session expired, log in again with 'vantage login'")
			}
			if user, correlation, err = cli.Me(cmd.Context()); err != nil {
				return logError(err, correlation, "failed to resolve session")
			}
		}

		// the refresh may have rotated the pair; persist whatever is current
		if err := saveSessionTokens(server, cli); err != nil {
			log.Warn().Err(err).Msg("could not save session tokens")
		}

		fmt.Printf("%s (%s)\n", bold(user.Email), user.Role)
		fmt.Printf("  %s: %s\n", faint("ID"), user.ID)
		fmt.Printf("  %s: %s\n", faint("Name"), user.FullName)
		fmt.Printf("  %s: %s\n", faint("Provider"), user.Provider)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
