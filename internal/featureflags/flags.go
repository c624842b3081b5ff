// Package featureflags provides runtime toggles for the verification pipeline,
// stored in a repository and cached in memory.
package featureflags

import (
	"errors"
	"fmt"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagEnableStatisticalAnalysis turns per-user anomaly detection on or off.
	FlagEnableStatisticalAnalysis = "enable_statistical_analysis"

	// FlagEnableSourceCheck turns the workout source allow-list check on or off.
	FlagEnableSourceCheck = "enable_source_check"
)

// Flag update errors.
var (
	ErrUnknownFlag      = errors.New("unknown feature flag")
	ErrInvalidFlagValue = errors.New("invalid feature flag value")
)

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate represents a single flag update request.
type FlagUpdate struct {
	Key   string `json:"key" validate:"required"`
	Value any    `json:"value"`
}

// FlagUpdateRequest represents a request to update feature flags.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates" validate:"required,min=1,dive"`
	Reason  string       `json:"reason" validate:"required,max=500"`
}

// BoolValue returns the flag value as a boolean.
// Returns the default value if the flag is nil or not a boolean.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		// JSON unmarshals numbers as float64
		return v != 0
	default:
		return defaultValue
	}
}

// DefaultFlags returns the default feature flags. statisticalAnalysis is the
// configured default of FlagEnableStatisticalAnalysis.
func DefaultFlags(statisticalAnalysis bool) map[string]*Flag {
	now := time.Now()
	return map[string]*Flag{
		FlagEnableStatisticalAnalysis: {
			Key:       FlagEnableStatisticalAnalysis,
			Value:     statisticalAnalysis,
			UpdatedAt: now,
		},
		FlagEnableSourceCheck: {
			Key:       FlagEnableSourceCheck,
			Value:     true,
			UpdatedAt: now,
		},
	}
}

// ValidateUpdate checks that an update targets a known flag with a boolean value.
func ValidateUpdate(u FlagUpdate) error {
	switch u.Key {
	case FlagEnableStatisticalAnalysis, FlagEnableSourceCheck:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFlag, u.Key)
	}
	if _, ok := u.Value.(bool); !ok {
		return fmt.Errorf("%w: %s must be a boolean", ErrInvalidFlagValue, u.Key)
	}
	return nil
}
