package keys

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// InMemoryStore is an in-memory implementation of Store.
// This is intended for development and testing. Production should use the PostgreSQL implementation.
type InMemoryStore struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

// NewInMemoryStore creates an empty in-memory key store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		keys: make(map[string][]byte),
	}
}

// ParseStatic builds a store from "userID=key" entries.
func ParseStatic(entries []string) (*InMemoryStore, error) {
	store := NewInMemoryStore()
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		userID, key, ok := strings.Cut(entry, "=")
		userID = strings.TrimSpace(userID)
		if !ok || userID == "" || key == "" {
			return nil, fmt.Errorf("invalid signing key entry %q: want userID=key", entry)
		}
		store.Set(userID, []byte(key))
	}
	return store, nil
}

// Set stores the signing key for a user, replacing any previous key.
func (s *InMemoryStore) Set(userID string, key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[userID] = append([]byte(nil), key...)
}

// SigningKey returns the signing key for a user.
func (s *InMemoryStore) SigningKey(_ context.Context, userID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[userID]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), key...), nil
}

// Len returns the number of stored keys.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
