package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// RefreshTokenStore is the registry of currently valid refresh tokens, the
// only mutable shared state of the token lifecycle and the sole source of
// revocation. Keys are opaque fingerprints computed by the token service;
// raw token strings never reach a store.
//
// Implementations must be safe for concurrent use and must observe context
// cancellation before mutating: a cancelled call leaves the registry
// untouched.
type RefreshTokenStore interface {
	// Insert registers a fingerprint until expiresAt.
	Insert(ctx context.Context, fingerprint string, expiresAt time.Time) error

	// Delete removes a fingerprint. Deleting an absent fingerprint is not
	// an error; logout must stay idempotent.
	Delete(ctx context.Context, fingerprint string) error

	// Rotate atomically replaces old with new. When old is absent the
	// registry is left unchanged and ErrRevoked is returned; under
	// concurrent rotation of the same old fingerprint at most one call
	// succeeds.
	Rotate(ctx context.Context, old, new string, newExpiresAt time.Time) error

	// Contains reports membership.
	Contains(ctx context.Context, fingerprint string) (bool, error)

	// Count returns the number of registered fingerprints.
	Count(ctx context.Context) (int, error)

	// Sweep drops every fingerprint whose expiry is at or before now and
	// returns how many were dropped.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Fingerprint derives the registry key for a token string. The registry
// never holds raw tokens, so a leaked registry dump cannot be replayed.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MemoryRefreshStore keeps the registry in a mutex-guarded map. It is the
// process-lifetime default; deployments needing revocation to survive
// restarts substitute a shared store behind the same interface.
type MemoryRefreshStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

var _ RefreshTokenStore = (*MemoryRefreshStore)(nil)

func NewMemoryRefreshStore() *MemoryRefreshStore {
	return &MemoryRefreshStore{tokens: make(map[string]time.Time)}
}

func (s *MemoryRefreshStore) Insert(ctx context.Context, fingerprint string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[fingerprint] = expiresAt
	return nil
}

func (s *MemoryRefreshStore) Delete(ctx context.Context, fingerprint string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, fingerprint)
	return nil
}

func (s *MemoryRefreshStore) Rotate(ctx context.Context, old, new string, newExpiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[old]; !ok {
		return ErrRevoked
	}
	delete(s.tokens, old)
	s.tokens[new] = newExpiresAt
	return nil
}

func (s *MemoryRefreshStore) Contains(ctx context.Context, fingerprint string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[fingerprint]
	return ok, nil
}

func (s *MemoryRefreshStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens), nil
}

func (s *MemoryRefreshStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for fingerprint, expiresAt := range s.tokens {
		if !expiresAt.After(now) {
			delete(s.tokens, fingerprint)
			removed++
		}
	}
	return removed, nil
}
