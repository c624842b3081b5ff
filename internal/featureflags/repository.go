package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned when no override is stored for a flag.
var ErrFlagNotFound = errors.New("feature flag override not found")

// Repository stores operator overrides. A flag without an override resolves to
// its service default.
type Repository interface {
	Get(ctx context.Context, key string) (*Flag, error)

	// List returns every stored override ordered by key.
	List(ctx context.Context) ([]*Flag, error)

	// Put stores all overrides or none of them.
	Put(ctx context.Context, flags ...*Flag) error

	// Delete removes an override, returning ErrFlagNotFound when none exists.
	Delete(ctx context.Context, key string) error
}
