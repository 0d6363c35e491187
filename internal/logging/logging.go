package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	levelKey   = "log.level"
	formatKey  = "log.format"
	noColorKey = "log.no_color"
)

// Options overrides the viper-backed logging settings.
// Passing nil to Init reads log.level, log.format and log.no_color
// from viper instead.
type Options struct {
	Level   string
	Format  string
	NoColor bool
}

// InitDefault sets up a console logger with sane defaults so that
// problems during flag and config parsing are still visible.
func InitDefault() {
	Init(&Options{Level: "info", Format: "console"})
}

// Init configures the global zerolog logger.
func Init(opts *Options) {
	if opts == nil {
		opts = &Options{
			Level:   viper.GetString(levelKey),
			Format:  viper.GetString(formatKey),
			NoColor: viper.GetBool(noColorKey),
		}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	switch strings.ToLower(opts.Format) {
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	default:
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    opts.NoColor,
		}).With().Timestamp().Logger()
	}

	if err != nil {
		log.Warn().Msgf("unknown log level %q, falling back to %q", opts.Level, level)
	}
}
