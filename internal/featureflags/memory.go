package featureflags

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository keeps overrides in process memory; they do not survive a
// restart.
type InMemoryRepository struct {
	mu        sync.RWMutex
	overrides map[string]Flag
}

// NewInMemoryRepository creates a repository holding the given overrides.
func NewInMemoryRepository(seed ...*Flag) *InMemoryRepository {
	r := &InMemoryRepository{overrides: make(map[string]Flag, len(seed))}
	for _, flag := range seed {
		r.overrides[flag.Key] = *flag
	}
	return r
}

func (r *InMemoryRepository) Get(_ context.Context, key string) (*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	flag, ok := r.overrides[key]
	if !ok {
		return nil, ErrFlagNotFound
	}
	return &flag, nil
}

func (r *InMemoryRepository) List(_ context.Context) ([]*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Flag, 0, len(r.overrides))
	for _, flag := range r.overrides {
		out = append(out, &flag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *InMemoryRepository) Put(_ context.Context, flags ...*Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, flag := range flags {
		r.overrides[flag.Key] = *flag
	}
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.overrides[key]; !ok {
		return ErrFlagNotFound
	}
	delete(r.overrides, key)
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
