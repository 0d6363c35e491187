package cmd

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vantagehq/vantage/pkg/client"
)

var loginPassword string

var loginCmd = &cobra.Command{
	Use:   "login EMAIL",
	Short: "Authenticate with a Vantage server",
	Long: `Logs in with email and password and saves the session tokens locally,
so later commands (whoami, tasks, audit events) can reuse the session.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]
		if email == "" {
			return fmt.Errorf("email cannot be empty")
		}

		server, err := serverAddress()
		if err != nil {
			return err
		}
		u, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("parsing server URL: %w", err)
		}

		password := loginPassword
		if password == "" {
			fmt.Fprintf(os.Stderr, "Password for %s: ", email)
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			password = strings.TrimSpace(line)
		}
		if password == "" {
			return fmt.Errorf("password cannot be empty")
		}

		cli := client.New(server)

		log.Info().Msgf("Logging in at %q...", u.Host)
		user, correlation, err := cli.Login(cmd.Context(), email, password)
		if err != nil {
			return logError(err, correlation, "login failed")
		}

		if err := saveSessionTokens(server, cli); err != nil {
			return logError(err, "", "login succeeded but could not save credentials")
		}

		logSuccess("logged in as %s (%s) at %s", bold(user.Email), user.Role, bold(u.Host))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (prompted on stdin when omitted)")
}
