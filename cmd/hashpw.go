package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/vantagehq/vantage/internal/users"
)

var hashpwCost int

var hashpwCmd = &cobra.Command{
	Use:   "hashpw [password]",
	Short: "Generate a bcrypt hash for a seeded user",
	Long: `Hashes a password for use as password_hash in the users section of the
server configuration. Pass '-' (or no argument) to read the password from stdin
so it stays out of the shell history.`,
	Example: `  vantage hashpw 'hunter22'

  # read from stdin
  echo -n 'hunter22' | vantage hashpw -`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 && args[0] != "-" {
			password = args[0]
		} else {
			log.Debug().Msg("Reading password from stdin")
			data, err := os.ReadFile("/dev/stdin")
			if err != nil {
				return fmt.Errorf("reading password from stdin: %w", err)
			}
			password = strings.TrimSpace(string(data))
		}
		if len(password) < users.MinPasswordLength {
			return fmt.Errorf("password must be at least %d characters", users.MinPasswordLength)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), hashpwCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		fmt.Println(string(hash))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashpwCmd)

	hashpwCmd.Flags().IntVar(&hashpwCost, "cost", bcrypt.DefaultCost, "bcrypt cost factor")
}
