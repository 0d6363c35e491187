package tasks

import (
	"context"
	"time"

	"github.com/vantagehq/vantage/internal/logging"
)

// maxLogTail caps how many lines a run may keep; older lines fall off the
// front.
const maxLogTail = 1000

// TaskFunc is the unit of work. The passed logger stores the output per run
// in addition to the normal log stream.
type TaskFunc func(ctx context.Context, logger logging.InternalLogger) error

// TaskStatus is the serialized task state served by the admin API and shown
// by the tasks CLI.
type TaskStatus struct {
	Name       string    `json:"name,omitempty"`
	Running    bool      `json:"running,omitempty"`
	LastRun    time.Time `json:"last_run"`
	LastResult string    `json:"last_result,omitempty"`
	NextRun    time.Time `json:"next_run"`
}

// LogEntry is one captured line of a task run.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level,omitempty"`
	Message string    `json:"message,omitempty"`
}
