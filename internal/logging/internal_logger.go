package logging

import "github.com/rs/zerolog"

// InternalLogger is the small logging interface handed to background
// tasks so their output can be captured per run in addition to the
// normal log stream.
type InternalLogger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

var _ InternalLogger = ZLogger{}

// ZLogger adapts a zerolog.Logger to the InternalLogger interface.
type ZLogger struct {
	zlog zerolog.Logger
}

func NewZLogger(zlog zerolog.Logger) ZLogger {
	return ZLogger{zlog: zlog}
}

func (l ZLogger) Info(format string, args ...any)  { l.zlog.Info().Msgf(format, args...) }
func (l ZLogger) Warn(format string, args ...any)  { l.zlog.Warn().Msgf(format, args...) }
func (l ZLogger) Error(format string, args ...any) { l.zlog.Error().Msgf(format, args...) }

var _ InternalLogger = MultiLogger(nil)

// MultiLogger fans every line out to all wrapped loggers.
type MultiLogger []InternalLogger

func NewMultiLogger(loggers ...InternalLogger) MultiLogger {
	return MultiLogger(loggers)
}

func (l MultiLogger) Info(format string, args ...any) {
	for _, logger := range l {
		logger.Info(format, args...)
	}
}

func (l MultiLogger) Warn(format string, args ...any) {
	for _, logger := range l {
		logger.Warn(format, args...)
	}
}

func (l MultiLogger) Error(format string, args ...any) {
	for _, logger := range l {
		logger.Error(format, args...)
	}
}
