package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store holds the per-key fixed-window counters. Implementations must make
// Increment an atomic bump-and-read: two concurrent requests may never both
// observe headroom and push a bucket more than one past its max.
type Store interface {
	// Increment charges one request against the bucket, creating it (or
	// resetting it, when its window has lapsed) with a fresh reset time of
	// now+window. Returns the count after the charge and the reset time.
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (count int, resetAt time.Time, err error)

	// Rollback withdraws one previously taken charge. The resetAt returned
	// by the matching Increment identifies the window generation; if the
	// bucket has since reset or vanished the rollback is a no-op.
	Rollback(ctx context.Context, key string, resetAt time.Time) error

	// Sweep drops every bucket whose window lapsed at or before now and
	// returns how many were dropped.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore is the process-local Store: one mutex, one map. Bounded by
// sweep; lazily reset buckets do not grow the map.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucket)}
}

func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return 0, time.Time{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok || !b.resetAt.After(now) {
		b = &bucket{resetAt: now.Add(window)}
		s.buckets[key] = b
	}
	b.count++
	return b.count, b.resetAt, nil
}

func (s *MemoryStore) Rollback(ctx context.Context, key string, resetAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok || !b.resetAt.Equal(resetAt) || b.count == 0 {
		return nil
	}
	b.count--
	return nil
}

func (s *MemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, b := range s.buckets {
		if !b.resetAt.After(now) {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed, nil
}
