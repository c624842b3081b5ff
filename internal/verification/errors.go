package verification

import (
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited is returned when a user submits again before the minimum interval.
var ErrRateLimited = errors.New("submissions too frequent")

// RateLimitError carries how long the client should wait before retrying.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter)
}

// Unwrap allows errors.Is(err, ErrRateLimited).
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
