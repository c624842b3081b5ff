package verification

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/fantasylifeleague/healthapi/internal/health"
	"github.com/fantasylifeleague/healthapi/internal/state"
)

// StatisticalAnalysisFlag reports whether statistical analysis is enabled at runtime.
type StatisticalAnalysisFlag interface {
	IsStatisticalAnalysisEnabled(ctx context.Context) bool
}

// trackedMetric describes one tracked daily series.
type trackedMetric struct {
	label  string
	unit   string
	value  func(health.RawHealthData) float64
	series func(*state.UserState) []float64
}

var trackedMetrics = []trackedMetric{
	{
		label:  "Step count",
		value:  func(d health.RawHealthData) float64 { return d.Steps },
		series: func(s *state.UserState) []float64 { return s.Steps },
	},
	{
		label:  "Calorie burn",
		value:  func(d health.RawHealthData) float64 { return d.Calories },
		series: func(s *state.UserState) []float64 { return s.Calories },
	},
	{
		label:  "Distance",
		unit:   "m",
		value:  func(d health.RawHealthData) float64 { return d.Distance },
		series: func(s *state.UserState) []float64 { return s.Distance },
	},
}

// AnomalyDetector flags samples that lie far from a user's rolling mean and
// extends the user's history with every evaluated sample.
type AnomalyDetector struct {
	store      state.Store
	thresholds Thresholds
	flag       StatisticalAnalysisFlag
	logger     zerolog.Logger
}

// NewAnomalyDetector creates an anomaly detector. flag may be nil, in which case
// thresholds.EnableStatisticalAnalysis decides.
func NewAnomalyDetector(store state.Store, thresholds Thresholds, flag StatisticalAnalysisFlag, logger zerolog.Logger) *AnomalyDetector {
	return &AnomalyDetector{
		store:      store,
		thresholds: thresholds,
		flag:       flag,
		logger:     logger,
	}
}

// Enabled reports whether the detector currently runs.
func (d *AnomalyDetector) Enabled(ctx context.Context) bool {
	if d.flag == nil {
		return d.thresholds.EnableStatisticalAnalysis
	}
	return d.flag.IsStatisticalAnalysisEnabled(ctx)
}

// Detect returns anomaly warnings for raw and records it in the user's history.
// Failures are logged and produce no warnings.
func (d *AnomalyDetector) Detect(ctx context.Context, userID string, raw health.RawHealthData) (warnings []string) {
	if !d.Enabled(ctx) {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn().
				Interface("panic", r).
				Str("user_id", userID).
				Msg("anomaly detection panicked, skipping")
			warnings = nil
		}
	}()

	var found []string
	err := d.store.Update(ctx, userID, func(s *state.UserState) error {
		found = d.evaluate(s, raw)
		s.RecordSample(raw.Steps, raw.Calories, raw.Distance)
		return nil
	})
	if err != nil {
		d.logger.Warn().Err(err).Str("user_id", userID).Msg("anomaly detection failed, skipping")
		return nil
	}
	return found
}

func (d *AnomalyDetector) evaluate(s *state.UserState, raw health.RawHealthData) []string {
	var warnings []string
	for _, m := range trackedMetrics {
		history := m.series(s)
		if len(history) < d.thresholds.MinAnomalySamples {
			continue
		}

		mean := Mean(history)
		sd := StdDev(history)
		if sd <= 0 {
			continue
		}

		value := m.value(raw)
		z := math.Abs(value-mean) / sd
		if z > d.thresholds.ZScoreThreshold {
			warnings = append(warnings, fmt.Sprintf(
				"%s (%.0f%s) is %.1f standard deviations from your average (%.0f%s)",
				m.label, value, m.unit, z, mean, m.unit,
			))
		}
	}
	return warnings
}

// Mean returns the arithmetic mean of values, or 0 when empty.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation of values, or 0 when empty.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}
