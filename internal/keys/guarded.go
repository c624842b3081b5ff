package keys

import (
	"context"
	"errors"

	"github.com/fantasylifeleague/healthapi/internal/resilience"
)

// GuardedStore wraps a Store with a circuit breaker and retries.
// A missing key is an answer, not a failure, so it never trips the breaker.
type GuardedStore struct {
	next  Store
	guard *resilience.Guard[[]byte]
}

// NewGuardedStore wraps next using cfg. IsPermanent is always set to match ErrKeyNotFound.
func NewGuardedStore(next Store, cfg resilience.GuardConfig) *GuardedStore {
	cfg.IsPermanent = func(err error) bool {
		return errors.Is(err, ErrKeyNotFound) || errors.Is(err, context.Canceled)
	}
	return &GuardedStore{
		next:  next,
		guard: resilience.NewGuard[[]byte](cfg),
	}
}

// SigningKey returns the signing key for a user through the guard.
func (s *GuardedStore) SigningKey(ctx context.Context, userID string) ([]byte, error) {
	return s.guard.Do(ctx, func(ctx context.Context) ([]byte, error) {
		return s.next.SigningKey(ctx, userID)
	})
}

// Guard exposes the underlying guard for health reporting.
func (s *GuardedStore) Guard() *resilience.Guard[[]byte] {
	return s.guard
}
