package audit

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Recorder.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records []Record
	seen    map[string]struct{}
}

// NewInMemoryRepository creates a new in-memory audit repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		seen: make(map[string]struct{}),
	}
}

// Record stores a record. Records with an already stored ID are ignored.
func (r *InMemoryRepository) Record(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[rec.ID]; ok {
		return nil
	}
	r.seen[rec.ID] = struct{}{}
	r.records = append(r.records, copyRecord(rec))
	return nil
}

// ListByUser returns the records of a user, most recent first.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Record
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].UserID != userID {
			continue
		}
		out = append(out, copyRecord(r.records[i]))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns every stored record in insertion order.
func (r *InMemoryRepository) All() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, len(r.records))
	for i, rec := range r.records {
		out[i] = copyRecord(rec)
	}
	return out
}

func copyRecord(rec Record) Record {
	rec.Warnings = append([]string(nil), rec.Warnings...)
	rec.Errors = append([]string(nil), rec.Errors...)
	return rec
}
