package audit

import "sync"

// memoryCapacity bounds the in-memory auditor; the oldest events fall off.
const memoryCapacity = 8192

var _ Auditor = (*InMemoryAuditor)(nil)

// InMemoryAuditor keeps recent events in memory for the admin API and tests.
type InMemoryAuditor struct {
	mu     sync.Mutex
	events []Event
}

func NewInMemoryAuditor() *InMemoryAuditor {
	return &InMemoryAuditor{
		events: make([]Event, 0),
	}
}

func (i *InMemoryAuditor) Log(event Event) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.events = append(i.events, event)
	if len(i.events) > memoryCapacity {
		i.events = i.events[len(i.events)-memoryCapacity:]
	}
	return nil
}

// GetRecent returns up to limit of the newest events, oldest first.
func (i *InMemoryAuditor) GetRecent(limit int) ([]Event, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if limit > len(i.events) {
		limit = len(i.events)
	}
	start := len(i.events) - limit
	events := make([]Event, limit)
	copy(events, i.events[start:])

	return events, nil
}

// Find returns up to limit of the newest events matching filter, oldest first.
func (i *InMemoryAuditor) Find(filter func(event Event) bool, limit int) ([]Event, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var matches []Event
	for _, event := range i.events {
		if filter(event) {
			matches = append(matches, event)
		}
	}

	if len(matches) > limit {
		matches = matches[len(matches)-limit:]
	}

	return matches, nil
}

func (i *InMemoryAuditor) Close() error {
	return nil // nothing to close :)
}
