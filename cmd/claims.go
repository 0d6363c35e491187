package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var claimsDebug bool

var claimsCmd = &cobra.Command{
	Use:   "claims TOKEN",
	Short: "Print the claims of a Vantage JWT",
	Long: `Decodes a token and shows its claims without verifying the signature.
Useful for inspecting what a session carries; pass '-' to read the token from stdin.`,
	Example: `  vantage claims eyJhbGciOi...

  # inspect the saved access token
  jq -r '.credentials[].access_token' ~/.vantage/credentials.json | vantage claims -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := args[0]
		if raw == "-" {
			log.Debug().Msg("Reading token from stdin")
			data, err := os.ReadFile("/dev/stdin")
			if err != nil {
				return fmt.Errorf("reading token from stdin: %w", err)
			}
			raw = strings.TrimSpace(string(data))
		}
		if raw == "" {
			return fmt.Errorf("token cannot be empty")
		}

		parser := jwt.NewParser()
		token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
		if err != nil {
			return fmt.Errorf("parsing token: %w", err)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return fmt.Errorf("invalid token claims")
		}

		if claimsDebug {
			log.Info().Msg("Raw claims:")
			log.Info().Msg(spew.Sdump(claims))
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Claim", "Value"})

		keys := make([]string, 0, len(claims))
		for k := range claims {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.AppendRow(table.Row{k, fmt.Sprintf("%v", claims[k])})
		}
		applyTableFormat(t)
		t.Render()

		if expRaw, ok := claims["exp"]; ok {
			if expFloat, ok := expRaw.(float64); ok {
				expTime := time.Unix(int64(expFloat), 0)
				remaining := time.Until(expTime).Round(time.Second)
				if remaining > 0 {
					log.Info().Msgf("Expires %v (in %v)", expTime, remaining)
				} else {
					log.Warn().Msgf("Expired %v (%v ago)", expTime, -remaining)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(claimsCmd)

	claimsCmd.Flags().BoolVar(&claimsDebug, "debug", false, "Additionally dump the raw decoded claims")
}
