// Package tasks schedules the background maintenance work: periodic sweeps of
// the refresh-token registry and the rate-limit buckets. Tasks can also be
// triggered manually through the admin API, and every run keeps its own log
// tail for inspection.
package tasks

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// TaskNotFoundError reports a trigger or log query for a name that was never
// registered.
type TaskNotFoundError struct {
	Name string
}

func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task '%s' not found", e.Name)
}

// Manager holds the registered tasks. Registration happens once during
// startup; afterwards the map is only read, so a plain RWMutex suffices.
type Manager struct {
	mu    sync.RWMutex
	tasks map[string]*runnable
}

func NewManager() *Manager {
	return &Manager{tasks: make(map[string]*runnable)}
}

// Register adds a task and, for a positive interval, starts its schedule.
// Names must be unique; a duplicate replaces the earlier entry.
func (m *Manager) Register(name string, interval time.Duration, fn TaskFunc) {
	task := newRunnable(name, interval, fn)

	m.mu.Lock()
	m.tasks[name] = task
	m.mu.Unlock()

	if interval > 0 {
		go runOnTicker(task)
	}
}

// Trigger starts a run of the named task outside its schedule. The run is
// asynchronous; callers watch its outcome via GetLogs or ListStatus.
func (m *Manager) Trigger(name string) error {
	task, err := m.lookup(name)
	if err != nil {
		return err
	}
	go task.Run()
	return nil
}

// ListStatus reports every task's current state, sorted by name for stable
// API output.
func (m *Manager) ListStatus() []TaskStatus {
	m.mu.RLock()
	list := make([]TaskStatus, 0, len(m.tasks))
	for _, task := range m.tasks {
		list = append(list, task.Status())
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// GetLogs returns the log tail of the named task's latest run.
func (m *Manager) GetLogs(name string) ([]LogEntry, error) {
	task, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return task.Logs(), nil
}

func (m *Manager) lookup(name string) (*runnable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, ok := m.tasks[name]
	if !ok {
		return nil, TaskNotFoundError{Name: name}
	}
	return task, nil
}

func runOnTicker(task *runnable) {
	ticker := time.NewTicker(task.interval)
	defer ticker.Stop()
	for range ticker.C {
		task.Run()
	}
}
