package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// runTimeout bounds a single task run. Sweeps over in-memory stores finish in
// milliseconds; the bound exists for future store backends that may stall.
const runTimeout = 5 * time.Minute

// runnable is one registered task plus the state of its runs. All mutable
// state sits behind the mutex; Run, Status and Logs may be called from the
// scheduler, the admin API and the CLI at the same time.
type runnable struct {
	name     string
	interval time.Duration
	handler  TaskFunc

	registeredAt time.Time

	mu         sync.RWMutex
	running    bool
	lastRun    time.Time
	lastResult string
	tail       []LogEntry
}

func newRunnable(name string, interval time.Duration, fn TaskFunc) *runnable {
	return &runnable{
		name:         name,
		interval:     interval,
		handler:      fn,
		registeredAt: time.Now(),
		tail:         make([]LogEntry, 0),
	}
}

// Run executes the task once. Overlapping runs are skipped, not queued: a
// sweep that is already in progress makes a second concurrent sweep pointless.
// The log tail is reset per run, so it always describes the latest execution.
func (t *runnable) Run() {
	zlog := log.With().Str("task", t.name).Logger()

	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		zlog.Warn().Msg("run already in progress, skipping")
		return
	}
	t.running = true
	t.tail = t.tail[:0]
	t.mu.Unlock()

	logger := newRunLogger(t, zlog)
	logger.Info("starting task execution")

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	err := t.handler(ctx, logger)
	elapsed := time.Since(start)

	result := "success"
	if err != nil {
		result = fmt.Sprintf("failed: %v", err)
	}

	t.mu.Lock()
	t.running = false
	t.lastRun = time.Now()
	t.lastResult = result
	t.mu.Unlock()

	if err != nil {
		logger.Error("task failed after %s: %v", elapsed, err)
	} else {
		logger.Info("task completed successfully in %s", elapsed)
	}
}

// Status derives the externally visible state. NextRun stays zero for
// trigger-only tasks (interval 0).
func (t *runnable) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var next time.Time
	if t.interval > 0 {
		anchor := t.registeredAt
		if !t.lastRun.IsZero() {
			anchor = t.lastRun
		}
		next = anchor.Add(t.interval)
	}

	return TaskStatus{
		Name:       t.name,
		Running:    t.running,
		LastRun:    t.lastRun,
		LastResult: t.lastResult,
		NextRun:    next,
	}
}

// Logs returns a copy of the tail so callers never observe a reset mid-run.
func (t *runnable) Logs() []LogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]LogEntry, len(t.tail))
	copy(out, t.tail)
	return out
}

func (t *runnable) appendLog(level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tail = append(t.tail, LogEntry{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
	})
	if len(t.tail) > maxLogTail {
		t.tail = t.tail[1:]
	}
}
