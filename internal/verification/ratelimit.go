package verification

import (
	"context"
	"errors"
	"time"

	"github.com/fantasylifeleague/healthapi/internal/state"
)

// RateLimiter enforces a minimum interval between a user's submissions, measured
// on the payload timestamps.
type RateLimiter struct {
	store    state.Store
	interval time.Duration
}

// NewRateLimiter creates a rate limiter over the given state store.
func NewRateLimiter(store state.Store, interval time.Duration) *RateLimiter {
	return &RateLimiter{store: store, interval: interval}
}

// Allow reports whether a submission at ts is allowed and records it if so.
func (l *RateLimiter) Allow(ctx context.Context, userID string, ts time.Time) (bool, error) {
	err := l.Reserve(ctx, userID, ts)
	if err == nil {
		return true, nil
	}
	var limited *RateLimitError
	if errors.As(err, &limited) {
		return false, nil
	}
	return false, err
}

// Reserve records a submission at ts, or returns a *RateLimitError when the
// previous recorded submission is too recent. A ts earlier than the previous
// submission is denied so that the history stays ordered.
func (l *RateLimiter) Reserve(ctx context.Context, userID string, ts time.Time) error {
	return l.store.Update(ctx, userID, func(s *state.UserState) error {
		if last, ok := s.LastSubmission(); ok && ts.Sub(last) < l.interval {
			return &RateLimitError{RetryAfter: RetryAfter(last, ts, l.interval)}
		}
		s.RecordSubmission(ts)
		return nil
	})
}

// RetryAfter returns the wait until a submission following last would be allowed,
// rounded up to whole seconds and never less than one second.
func RetryAfter(last, ts time.Time, interval time.Duration) time.Duration {
	wait := last.Add(interval).Sub(ts)
	if wait < time.Second {
		return time.Second
	}
	if rem := wait % time.Second; rem != 0 {
		wait += time.Second - rem
	}
	return wait
}
