package tasks

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vantagehq/vantage/internal/logging"
)

var _ logging.InternalLogger = (*tailLogger)(nil)

// tailLogger appends every line to the task's own log tail.
type tailLogger struct {
	task *runnable
}

func (l *tailLogger) Info(format string, args ...any) {
	l.task.appendLog("info", fmt.Sprintf(format, args...))
}

func (l *tailLogger) Warn(format string, args ...any) {
	l.task.appendLog("warn", fmt.Sprintf(format, args...))
}

func (l *tailLogger) Error(format string, args ...any) {
	l.task.appendLog("error", fmt.Sprintf(format, args...))
}

// newRunLogger fans task output to the normal zerolog stream and the task's
// stored log tail.
func newRunLogger(task *runnable, zlog zerolog.Logger) logging.MultiLogger {
	return logging.NewMultiLogger(
		logging.NewZLogger(zlog),
		&tailLogger{task: task},
	)
}
