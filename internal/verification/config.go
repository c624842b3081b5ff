// Package verification decides whether a signed daily health record is accepted,
// how far it can be trusted and how many points it earns.
package verification

import "time"

// Score increments awarded by the consistency checks. They sum to 100.
const (
	ScoreStepDistance     = 20
	ScoreCaloriesActivity = 15
	ScoreWorkouts         = 25
	ScoreHeartRate        = 15
	ScoreFreshness        = 10
	ScoreDeviceIdentity   = 15

	// MaxScore is the upper bound of a validation score.
	MaxScore = 100
)

// DefaultTrustedSources are the workout source identifiers accepted without a warning.
var DefaultTrustedSources = []string{
	"com.apple.health",
	"com.apple.Health",
	"com.nike.nikeplus-gps",
	"com.strava.Strava",
	"com.fitbit.FitbitMobile",
}

// Thresholds holds every tunable cutoff of the pipeline.
type Thresholds struct {
	// MinSubmissionInterval is the minimum spacing between two submissions of a user.
	MinSubmissionInterval time.Duration `mapstructure:"min_submission_interval"`

	// StepDistanceMinSteps is the step count above which the steps/distance
	// correlation is checked.
	StepDistanceMinSteps float64 `mapstructure:"step_distance_min_steps"`

	// StepToDistanceRatio is the expected stride length in meters.
	StepToDistanceRatio float64 `mapstructure:"step_to_distance_ratio"`

	// StepDistanceVarianceThreshold is the tolerated relative distance error.
	StepDistanceVarianceThreshold float64 `mapstructure:"step_distance_variance_threshold"`

	// InactiveStepsThreshold is the step count below which calories need a workout.
	InactiveStepsThreshold float64 `mapstructure:"inactive_steps_threshold"`

	// MaxWorkoutDuration is the longest plausible single workout.
	MaxWorkoutDuration time.Duration `mapstructure:"max_workout_duration"`

	// MaxCaloriesPerMinute is the burn rate above which a workout is flagged.
	MaxCaloriesPerMinute float64 `mapstructure:"max_calories_per_minute"`

	// MinHeartRate and MaxHeartRate bound a physiologically plausible reading.
	MinHeartRate float64 `mapstructure:"min_heart_rate"`
	MaxHeartRate float64 `mapstructure:"max_heart_rate"`

	// MaxSubmissionAge is the payload age after which freshness is not awarded.
	MaxSubmissionAge time.Duration `mapstructure:"max_submission_age"`

	// MinValidScore is the score floor for a valid submission.
	MinValidScore int `mapstructure:"min_valid_score"`

	// ZScoreThreshold is the z-score above which a sample is anomalous.
	ZScoreThreshold float64 `mapstructure:"z_score_threshold"`

	// MinAnomalySamples is the history length required before anomaly detection runs.
	MinAnomalySamples int `mapstructure:"min_anomaly_samples"`

	// EnableStatisticalAnalysis is the default of the statistical analysis flag.
	EnableStatisticalAnalysis bool `mapstructure:"enable_statistical_analysis"`

	// TrustedSources is the workout source allow-list.
	TrustedSources []string `mapstructure:"trusted_sources"`
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSubmissionInterval:         5 * time.Minute,
		StepDistanceMinSteps:          1000,
		StepToDistanceRatio:           0.75,
		StepDistanceVarianceThreshold: 0.5,
		InactiveStepsThreshold:        100,
		MaxWorkoutDuration:            24 * time.Hour,
		MaxCaloriesPerMinute:          30,
		MinHeartRate:                  30,
		MaxHeartRate:                  250,
		MaxSubmissionAge:              2 * time.Hour,
		MinValidScore:                 50,
		ZScoreThreshold:               3.0,
		MinAnomalySamples:             7,
		EnableStatisticalAnalysis:     true,
		TrustedSources:                append([]string(nil), DefaultTrustedSources...),
	}
}
