package featureflags

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository   Repository
	Logger       zerolog.Logger
	CacheTTL     time.Duration // how long repository reads are cached
	DefaultFlags map[string]*Flag
}

// Service resolves flags as stored overrides on top of defaults. Overrides are
// loaded as one snapshot and reused until the TTL passes; a failing repository
// leaves the defaults in force.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	ttl      time.Duration
	defaults map[string]*Flag

	mu       sync.RWMutex
	snapshot map[string]*Flag
	loadedAt time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = time.Minute
	}
	defaults := cfg.DefaultFlags
	if defaults == nil {
		defaults = DefaultFlags(true)
	}
	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		ttl:      ttl,
		defaults: defaults,
	}
}

// GetFlag returns the effective value of key, or nil for an unknown flag.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if flag, ok := s.overrides(ctx)[key]; ok {
		return flag
	}
	return s.defaults[key]
}

// GetAllFlags returns the defaults overlaid with stored overrides.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	result := make(map[string]*Flag, len(s.defaults))
	for key, flag := range s.defaults {
		result[key] = flag
	}
	for key, flag := range s.overrides(ctx) {
		result[key] = flag
	}
	return result
}

// SetFlags validates every update before storing any of them.
func (s *Service) SetFlags(ctx context.Context, updates []FlagUpdate) ([]*Flag, error) {
	now := time.Now()
	flags := make([]*Flag, 0, len(updates))
	for _, u := range updates {
		if err := ValidateUpdate(u); err != nil {
			return nil, err
		}
		flags = append(flags, &Flag{Key: u.Key, Value: u.Value, UpdatedAt: now})
	}

	if err := s.repo.Put(ctx, flags...); err != nil {
		return nil, err
	}
	s.InvalidateCache()
	return flags, nil
}

// ResetFlag removes the stored override so the default applies again.
func (s *Service) ResetFlag(ctx context.Context, key string) error {
	if _, ok := s.defaults[key]; !ok {
		return ErrUnknownFlag
	}
	if err := s.repo.Delete(ctx, key); err != nil && !errors.Is(err, ErrFlagNotFound) {
		return err
	}
	s.InvalidateCache()
	return nil
}

// InvalidateCache drops the snapshot so the next read goes to the repository.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	s.snapshot = nil
	s.loadedAt = time.Time{}
	s.mu.Unlock()
}

// IsEnabled reports whether the boolean flag key is on. Unknown or malformed
// values resolve to the flag's default.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	def := s.defaults[key].BoolValue(false)
	return s.GetFlag(ctx, key).BoolValue(def)
}

func (s *Service) overrides(ctx context.Context) map[string]*Flag {
	s.mu.RLock()
	snapshot, fresh := s.snapshot, time.Since(s.loadedAt) < s.ttl
	s.mu.RUnlock()
	if snapshot != nil && fresh {
		return snapshot
	}

	stored, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("loading feature flag overrides failed, using defaults")
		return snapshot
	}

	snapshot = make(map[string]*Flag, len(stored))
	for _, flag := range stored {
		snapshot[flag.Key] = flag
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.loadedAt = time.Now()
	s.mu.Unlock()
	return snapshot
}

// IsStatisticalAnalysisEnabled reports whether anomaly detection runs.
func (s *Service) IsStatisticalAnalysisEnabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagEnableStatisticalAnalysis)
}

// IsSourceCheckEnabled reports whether workout sources are checked.
func (s *Service) IsSourceCheckEnabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagEnableSourceCheck)
}
