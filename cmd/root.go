package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vantagehq/vantage/internal/buildinfo"
	"github.com/vantagehq/vantage/internal/logging"
)

// global flags
var (
	cfgFile    string
	userConfig string
	serverAddr string
)

const (
	LogLevelKey   = "log.level"
	LogFormatKey  = "log.format"
	LogNoColorKey = "log.no_color"

	ServerAddrKey = "addr"
)

var rootCmd = &cobra.Command{
	Use:   "vantage",
	Short: fmt.Sprintf("Vantage dashboard backend (version: %s, commit: %s)", buildinfo.Version, buildinfo.CommitHash),
	Long: `Vantage is the backend of the contracts-analytics dashboard.
	It authenticates users with JWT cookie sessions, enforces role-based
	access on the API resources and rate-limits every endpoint.`,
	Version: buildinfo.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, configErr := initUserConfig()
		logging.Init(nil)
		if configErr != nil { // handle error after logging is initialized
			return configErr
		}
		if configPath != "" {
			log.Debug().Msgf("using user config file: %s", configPath)
		}
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		if errors.As(err, &BeQuietError{}) {
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("execution failed")
		os.Exit(1)
	}
}

func init() {
	// setup pre-flag logger
	logging.InitDefault()

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "vantage.yaml",
		"Server configuration file (used by serve and config commands)")

	rootCmd.PersistentFlags().StringVar(&userConfig, "user-config", "",
		"User configuration file for default values (default is $HOME/.vantage.yaml)")

	bindLogFlags(rootCmd.PersistentFlags())

	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "Address of the remote Vantage server")
	_ = viper.BindPFlag(ServerAddrKey, rootCmd.PersistentFlags().Lookup("server"))

	viper.SetEnvPrefix("VANTAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))

	viper.AutomaticEnv()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

// bindLogFlags registers the logging flags on the given flag set and binds
// them to their viper keys, so env vars and the user config can override.
func bindLogFlags(flags *pflag.FlagSet) {
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag(LogLevelKey, flags.Lookup("log-level"))

	flags.String("log-format", "console", "Log format (console, json)")
	_ = viper.BindPFlag(LogFormatKey, flags.Lookup("log-format"))

	flags.Bool("no-color", false, "Disable color output")
	_ = viper.BindPFlag(LogNoColorKey, flags.Lookup("no-color"))
}

func initUserConfig() (string, error) {
	// reads in config file and ENV variables if set.
	if userConfig != "" {
		viper.SetConfigFile(userConfig)
	} else {
		// search order: current dir, $HOME, XDG config
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}

		config, err := os.UserConfigDir()
		if err == nil {
			viper.AddConfigPath(config + "/vantage")
		}

		viper.SetConfigType("yaml")
		viper.SetConfigName(".vantage")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundError) {
			return "", err
		}
	} else {
		return viper.ConfigFileUsed(), nil
	}

	return "", nil
}
