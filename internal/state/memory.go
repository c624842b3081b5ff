package state

import (
	"context"
	"sync"
)

type entry struct {
	mu    sync.Mutex
	state *UserState
}

// InMemoryStore is an in-memory implementation of Store with one lock per user.
// State lives for the process lifetime. Production should use the PostgreSQL implementation.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewInMemoryStore creates a new in-memory state store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]*entry),
	}
}

func (s *InMemoryStore) entry(userID string, create bool) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok && create {
		e = &entry{}
		s.entries[userID] = e
	}
	return e
}

// Get returns a copy of the user's state.
func (s *InMemoryStore) Get(_ context.Context, userID string) (*UserState, error) {
	e := s.entry(userID, false)
	if e == nil {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil {
		return nil, ErrNotFound
	}
	return e.state.Clone(), nil
}

// Update applies fn to a copy of the user's state and commits it when fn succeeds.
func (s *InMemoryStore) Update(ctx context.Context, userID string, fn func(*UserState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := s.entry(userID, true)

	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.state.Clone()
	if working == nil {
		working = &UserState{}
	}
	if err := fn(working); err != nil {
		return err
	}

	e.state = working
	return nil
}
