package users

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	// ErrNotFound indicates no user matches the given id or email.
	ErrNotFound = errors.New("users: not found")

	// ErrDuplicateEmail indicates a create would reuse a taken email.
	ErrDuplicateEmail = errors.New("users: email already registered")
)

// Store is the user lookup/creation port used by the auth service.
type Store interface {
	Create(ctx context.Context, user User) error
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	Update(ctx context.Context, user User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]User, error)
}

// MemoryStore keeps users in mutex-guarded maps with an email index.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email := NormalizeEmail(user.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return ErrDuplicateEmail
	}
	user.Email = email
	s.byID[user.ID] = user
	s.byEmail[email] = user.ID
	return nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) Update(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[user.ID]
	if !ok {
		return ErrNotFound
	}
	email := NormalizeEmail(user.Email)
	if email != existing.Email {
		if _, taken := s.byEmail[email]; taken {
			return ErrDuplicateEmail
		}
		delete(s.byEmail, existing.Email)
		s.byEmail[email] = user.ID
	}
	user.Email = email
	s.byID[user.ID] = user
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byEmail, user.Email)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]User, 0, len(s.byID))
	for _, user := range s.byID {
		list = append(list, user)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Email < list[j].Email })
	return list, nil
}
