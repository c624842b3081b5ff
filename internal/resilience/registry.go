package resilience

import (
	"sort"
	"sync"

	"github.com/sony/gobreaker/v2"
)

// Breaker is the read-only view of a guarded dependency.
type Breaker interface {
	Name() string
	State() gobreaker.State
	Counts() gobreaker.Counts
}

// DependencyHealth represents the health of a guarded dependency.
type DependencyHealth struct {
	Name         string
	CircuitState gobreaker.State
	Counts       gobreaker.Counts
}

// IsHealthy returns true if the circuit is closed.
func (h DependencyHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded returns true if the circuit is half-open.
func (h DependencyHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// Registry tracks guarded dependencies for the ops status endpoint.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]Breaker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		breakers: make(map[string]Breaker),
	}
}

// Register adds a guarded dependency to the registry.
func (r *Registry) Register(b Breaker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers[b.Name()] = b
}

// Health returns the health of all registered dependencies, sorted by name.
func (r *Registry) Health() []DependencyHealth {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]DependencyHealth, 0, len(r.breakers))
	for name, b := range r.breakers {
		health = append(health, DependencyHealth{
			Name:         name,
			CircuitState: b.State(),
			Counts:       b.Counts(),
		})
	}
	sort.Slice(health, func(i, j int) bool { return health[i].Name < health[j].Name })

	return health
}
