// Package keys stores the per-user secrets used to sign health payloads.
package keys

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when no signing key exists for a user.
var ErrKeyNotFound = errors.New("signing key not found")

// Store resolves the HMAC signing key of a user.
type Store interface {
	// SigningKey returns the key shared with the user's device.
	SigningKey(ctx context.Context, userID string) ([]byte, error)
}
