package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// GuardConfig holds configuration for a Guard.
type GuardConfig struct {
	// Name identifies the guarded dependency.
	Name string

	// MaxRetries is the maximum number of retry attempts after the first call.
	// Default: 2
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval.
	// Default: 50ms
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval.
	// Default: 1 second
	MaxInterval time.Duration

	// IsPermanent reports errors that must not be retried and must not count
	// against the circuit breaker.
	IsPermanent func(err error) bool

	// CircuitBreaker is the circuit breaker configuration.
	// If nil, uses DefaultCircuitBreakerConfig.
	CircuitBreaker *CircuitBreakerConfig
}

// DefaultGuardConfig returns the default configuration for a guarded dependency.
func DefaultGuardConfig(name string) GuardConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return GuardConfig{
		Name:            name,
		MaxRetries:      2,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		CircuitBreaker:  &cb,
	}
}

// Guard runs operations against a dependency through a circuit breaker, retrying
// transient failures with exponential backoff.
type Guard[T any] struct {
	cb     *gobreaker.CircuitBreaker[T]
	config GuardConfig
}

// NewGuard creates a new Guard.
func NewGuard[T any](cfg GuardConfig) *Guard[T] {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 50 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = time.Second
	}
	if cfg.IsPermanent == nil {
		cfg.IsPermanent = func(error) bool { return false }
	}

	cbConfig := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
	}
	isPermanent := cfg.IsPermanent
	cbConfig.IsSuccessful = func(err error) bool {
		return err == nil || isPermanent(err)
	}

	return &Guard[T]{
		cb:     NewCircuitBreaker[T](cbConfig),
		config: cfg,
	}
}

// Do executes op with circuit breaker protection and retries.
// Returns ErrCircuitOpen without calling op if the circuit is open.
func (g *Guard[T]) Do(ctx context.Context, op func(ctx context.Context) (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.config.InitialInterval
	bo.MaxInterval = g.config.MaxInterval
	bo.MaxElapsedTime = 0 // bounded by MaxRetries

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, g.config.MaxRetries), ctx)

	var result T
	operation := func() error {
		value, err := g.cb.Execute(func() (T, error) {
			return op(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if g.config.IsPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = value
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Name returns the name of the guarded dependency.
func (g *Guard[T]) Name() string {
	return g.config.Name
}

// State returns the current circuit breaker state.
func (g *Guard[T]) State() gobreaker.State {
	return g.cb.State()
}

// Counts returns the current circuit breaker counts.
func (g *Guard[T]) Counts() gobreaker.Counts {
	return g.cb.Counts()
}
