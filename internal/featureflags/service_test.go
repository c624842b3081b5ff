package featureflags_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fantasylifeleague/healthapi/internal/featureflags"
)

func newService(repo featureflags.Repository, statisticalAnalysis bool) *featureflags.Service {
	return featureflags.NewService(featureflags.ServiceConfig{
		Repository:   repo,
		Logger:       zerolog.Nop(),
		CacheTTL:     time.Minute,
		DefaultFlags: featureflags.DefaultFlags(statisticalAnalysis),
	})
}

func TestService_Defaults(t *testing.T) {
	ctx := context.Background()

	service := newService(featureflags.NewInMemoryRepository(), true)
	if !service.IsStatisticalAnalysisEnabled(ctx) {
		t.Error("expected statistical analysis to be enabled by default")
	}
	if !service.IsSourceCheckEnabled(ctx) {
		t.Error("expected source check to be enabled by default")
	}

	service = newService(featureflags.NewInMemoryRepository(), false)
	if service.IsStatisticalAnalysisEnabled(ctx) {
		t.Error("expected configured default to disable statistical analysis")
	}
}

func TestService_SetFlags(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository(), true)
	ctx := context.Background()

	flags, err := service.SetFlags(ctx, []featureflags.FlagUpdate{
		{Key: featureflags.FlagEnableStatisticalAnalysis, Value: false},
		{Key: featureflags.FlagEnableSourceCheck, Value: false},
	})
	if err != nil {
		t.Fatalf("failed to set flags: %v", err)
	}
	if len(flags) != 2 {
		t.Fatalf("expected 2 updated flags, got %d", len(flags))
	}

	if service.IsStatisticalAnalysisEnabled(ctx) {
		t.Error("expected statistical analysis to be disabled")
	}
	if service.IsSourceCheckEnabled(ctx) {
		t.Error("expected source check to be disabled")
	}
}

func TestService_SetFlags_Validation(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository(), true)
	ctx := context.Background()

	_, err := service.SetFlags(ctx, []featureflags.FlagUpdate{{Key: "routing_bike_only", Value: true}})
	if !errors.Is(err, featureflags.ErrUnknownFlag) {
		t.Errorf("expected ErrUnknownFlag, got %v", err)
	}

	_, err = service.SetFlags(ctx, []featureflags.FlagUpdate{{Key: featureflags.FlagEnableSourceCheck, Value: "no"}})
	if !errors.Is(err, featureflags.ErrInvalidFlagValue) {
		t.Errorf("expected ErrInvalidFlagValue, got %v", err)
	}

	if !service.IsSourceCheckEnabled(ctx) {
		t.Error("rejected update must not change the flag")
	}
}

func TestService_GetAllFlags(t *testing.T) {
	repo := featureflags.NewInMemoryRepository(
		&featureflags.Flag{Key: featureflags.FlagEnableSourceCheck, Value: false},
	)
	service := newService(repo, true)

	flags := service.GetAllFlags(context.Background())

	if len(flags) != 2 {
		t.Fatalf("expected 2 flags, got %d", len(flags))
	}
	if flags[featureflags.FlagEnableSourceCheck].BoolValue(true) {
		t.Error("expected stored override to win over the default")
	}
	if !flags[featureflags.FlagEnableStatisticalAnalysis].BoolValue(false) {
		t.Error("expected default for flag without override")
	}
}

func TestService_InvalidateCache(t *testing.T) {
	repo := featureflags.NewInMemoryRepository(
		&featureflags.Flag{Key: featureflags.FlagEnableSourceCheck, Value: true},
	)
	service := featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Hour,
	})
	ctx := context.Background()

	if !service.IsSourceCheckEnabled(ctx) {
		t.Fatal("expected source check to be enabled")
	}

	// Update the repository behind the service's back.
	_ = repo.Put(ctx, &featureflags.Flag{Key: featureflags.FlagEnableSourceCheck, Value: false})

	if !service.IsSourceCheckEnabled(ctx) {
		t.Error("expected cached value before invalidation")
	}

	service.InvalidateCache()

	if service.IsSourceCheckEnabled(ctx) {
		t.Error("expected updated value after cache invalidation")
	}
}

func TestService_ResetFlag(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository(), true)
	ctx := context.Background()

	if _, err := service.SetFlags(ctx, []featureflags.FlagUpdate{
		{Key: featureflags.FlagEnableStatisticalAnalysis, Value: false},
	}); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}

	if err := service.ResetFlag(ctx, featureflags.FlagEnableStatisticalAnalysis); err != nil {
		t.Fatalf("failed to reset flag: %v", err)
	}
	if !service.IsStatisticalAnalysisEnabled(ctx) {
		t.Error("expected default after reset")
	}

	if err := service.ResetFlag(ctx, "nonexistent"); !errors.Is(err, featureflags.ErrUnknownFlag) {
		t.Errorf("expected ErrUnknownFlag, got %v", err)
	}
}

type failingRepository struct {
	featureflags.Repository
}

func (failingRepository) List(context.Context) ([]*featureflags.Flag, error) {
	return nil, errors.New("connection refused")
}

func TestService_FallbackOnRepositoryError(t *testing.T) {
	service := newService(failingRepository{}, true)
	ctx := context.Background()

	if !service.IsStatisticalAnalysisEnabled(ctx) {
		t.Error("expected default when repository fails")
	}
	if got := len(service.GetAllFlags(ctx)); got != 2 {
		t.Errorf("expected defaults from GetAllFlags, got %d flags", got)
	}
}

func TestService_MalformedValueUsesDefault(t *testing.T) {
	repo := featureflags.NewInMemoryRepository(
		&featureflags.Flag{Key: featureflags.FlagEnableSourceCheck, Value: "yes"},
	)
	service := newService(repo, true)

	if !service.IsSourceCheckEnabled(context.Background()) {
		t.Error("expected default for non-boolean stored value")
	}
}

func TestFlag_BoolValue(t *testing.T) {
	tests := []struct {
		name         string
		value        any
		defaultValue bool
		want         bool
	}{
		{name: "true", value: true, defaultValue: false, want: true},
		{name: "false", value: false, defaultValue: true, want: false},
		{name: "non-zero number", value: 1.0, defaultValue: false, want: true},
		{name: "zero number", value: 0.0, defaultValue: true, want: false},
		{name: "string", value: "true", defaultValue: false, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := &featureflags.Flag{Key: "test", Value: tt.value}
			if got := flag.BoolValue(tt.defaultValue); got != tt.want {
				t.Errorf("BoolValue() = %v, want %v", got, tt.want)
			}
		})
	}

	var nilFlag *featureflags.Flag
	if !nilFlag.BoolValue(true) {
		t.Error("expected default value for nil flag")
	}
}

func TestInMemoryRepository(t *testing.T) {
	repo := featureflags.NewInMemoryRepository(
		&featureflags.Flag{Key: "b", Value: true},
		&featureflags.Flag{Key: "a", Value: false},
	)
	ctx := context.Background()

	flags, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("failed to list flags: %v", err)
	}
	if len(flags) != 2 || flags[0].Key != "a" || flags[1].Key != "b" {
		t.Errorf("expected overrides ordered by key, got %v", flags)
	}

	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("failed to delete flag: %v", err)
	}
	if _, err := repo.Get(ctx, "a"); !errors.Is(err, featureflags.ErrFlagNotFound) {
		t.Errorf("expected ErrFlagNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "nonexistent"); !errors.Is(err, featureflags.ErrFlagNotFound) {
		t.Errorf("expected ErrFlagNotFound for non-existent flag, got %v", err)
	}
}
