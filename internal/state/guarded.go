package state

import (
	"context"
	"errors"

	"github.com/fantasylifeleague/healthapi/internal/resilience"
)

// GuardedStore wraps a Store with a circuit breaker and retries.
// A missing user and an error returned by an update callback are answers about
// the request, so neither is retried or counted against the breaker.
type GuardedStore struct {
	next  Store
	guard *resilience.Guard[*UserState]
}

// callbackError carries an error returned by an Update callback through the guard.
type callbackError struct {
	err error
}

func (e *callbackError) Error() string { return e.err.Error() }
func (e *callbackError) Unwrap() error { return e.err }

// NewGuardedStore wraps next using cfg. IsPermanent is always replaced.
func NewGuardedStore(next Store, cfg resilience.GuardConfig) *GuardedStore {
	cfg.IsPermanent = func(err error) bool {
		var cbErr *callbackError
		return errors.As(err, &cbErr) ||
			errors.Is(err, ErrNotFound) ||
			errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded)
	}
	return &GuardedStore{
		next:  next,
		guard: resilience.NewGuard[*UserState](cfg),
	}
}

// Get returns a snapshot of the user's state through the guard.
func (s *GuardedStore) Get(ctx context.Context, userID string) (*UserState, error) {
	return s.guard.Do(ctx, func(ctx context.Context) (*UserState, error) {
		return s.next.Get(ctx, userID)
	})
}

// Update runs fn through the guard. A retried attempt calls fn again on a fresh
// read, since the failed attempt committed nothing.
func (s *GuardedStore) Update(ctx context.Context, userID string, fn func(*UserState) error) error {
	_, err := s.guard.Do(ctx, func(ctx context.Context) (*UserState, error) {
		return nil, s.next.Update(ctx, userID, func(st *UserState) error {
			if err := fn(st); err != nil {
				return &callbackError{err: err}
			}
			return nil
		})
	})

	var cbErr *callbackError
	if errors.As(err, &cbErr) {
		return cbErr.err
	}
	return err
}

// Guard exposes the underlying guard for health reporting.
func (s *GuardedStore) Guard() *resilience.Guard[*UserState] {
	return s.guard
}

var _ Store = (*GuardedStore)(nil)
