package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/vantagehq/vantage/internal/cliconfig"
	"github.com/vantagehq/vantage/pkg/client"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()

	greenCheck = color.GreenString("✔")
	redCross   = color.RedString("✖")
)

// BeQuietError signals that a command already reported its failure, so
// Execute should exit non-zero without logging it again.
type BeQuietError struct{}

func (BeQuietError) Error() string {
	return "be quiet"
}

// logError reports a failed remote call together with its correlation ID,
// then returns a BeQuietError.
func logError(err error, correlation, msg string) error {
	if correlation != "" {
		log.Error().Msgf("%s %s (correlation ID: %s)", redCross, msg, correlation)
	} else {
		log.Error().Msgf("%s %s", redCross, msg)
	}
	log.Error().Msgf("error: %v", err)
	return BeQuietError{}
}

func logSuccess(format string, args ...any) {
	log.Info().Msgf(greenCheck+" "+format, args...)
}

// serverAddress resolves the target server for remote commands.
func serverAddress() (string, error) {
	server := viper.GetString(ServerAddrKey)
	if server == "" {
		return "", fmt.Errorf("server address not configured (use --server or set VANTAGE_ADDR)")
	}
	return server, nil
}

// getClient returns an API client for the configured server, preloaded
// with the saved session when one exists.
func getClient() (*client.Client, error) {
	server, err := serverAddress()
	if err != nil {
		return nil, err
	}

	var opts []client.Option
	if cfg, err := cliconfig.Load(); err == nil {
		if cred, err := cfg.GetCredential(server); err == nil {
			opts = append(opts, client.WithSessionTokens(cred.AccessToken, cred.RefreshToken))
		}
	}

	return client.New(server, opts...), nil
}

// saveSessionTokens persists the client's current token pair for the
// server so later invocations reuse the session.
func saveSessionTokens(server string, cli *client.Client) error {
	access, refresh := cli.SessionTokens()

	cfg, err := cliconfig.Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading credentials: %w", err)
		}
		cfg = &cliconfig.CLIConfig{}
	}
	if err := cfg.SetCredential(server, &cliconfig.Credential{
		AccessToken:  access,
		RefreshToken: refresh,
	}); err != nil {
		return err
	}
	return cliconfig.Save(cfg)
}

func applyTableFormat(t table.Writer) {
	t.SetStyle(table.StyleLight)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
