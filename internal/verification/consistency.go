package verification

import (
	"fmt"
	"math"
	"time"

	"github.com/fantasylifeleague/healthapi/internal/health"
)

// ErrMsgCaloriesWithoutActivity is reported when calories are burned with no workout and almost no steps.
const ErrMsgCaloriesWithoutActivity = "Calories burned without any recorded activity"

// Validator runs the consistency checks on a single payload.
type Validator struct {
	thresholds Thresholds
}

// NewValidator creates a validator with the given thresholds.
func NewValidator(thresholds Thresholds) *Validator {
	return &Validator{thresholds: thresholds}
}

// Validate runs every check against raw and accumulates the result.
// No check short-circuits the others. now is the server time used for the
// future-workout and freshness checks.
func (v *Validator) Validate(raw health.RawHealthData, now time.Time) health.ValidationResult {
	result := health.NewValidationResult()

	score := v.checkStepsDistance(raw, &result) +
		v.checkCaloriesActivity(raw, &result) +
		v.checkWorkouts(raw, now, &result) +
		v.checkHeartRate(raw, &result) +
		v.checkFreshness(raw, now, &result) +
		v.checkDevice(raw, &result)

	result.Score = clampScore(score)
	result.IsValid = len(result.Errors) == 0 && result.Score >= v.thresholds.MinValidScore
	return result
}

func (v *Validator) checkStepsDistance(raw health.RawHealthData, r *health.ValidationResult) int {
	if raw.Steps <= v.thresholds.StepDistanceMinSteps {
		return 0
	}

	expected := raw.Steps * v.thresholds.StepToDistanceRatio
	variance := math.Abs(raw.Distance-expected) / expected
	if variance > v.thresholds.StepDistanceVarianceThreshold {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"Steps (%.0f) and distance (%.0fm) correlation is off. Expected ~%.0fm",
			raw.Steps, raw.Distance, expected,
		))
		return 0
	}
	return ScoreStepDistance
}

func (v *Validator) checkCaloriesActivity(raw health.RawHealthData, r *health.ValidationResult) int {
	if raw.Calories <= 0 {
		return 0
	}
	if raw.TotalWorkoutCalories() == 0 && raw.Steps < v.thresholds.InactiveStepsThreshold {
		r.Errors = append(r.Errors, ErrMsgCaloriesWithoutActivity)
		return 0
	}
	return ScoreCaloriesActivity
}

// checkWorkouts awards its increment only when no workout produced an error;
// errors from other checks do not affect it.
func (v *Validator) checkWorkouts(raw health.RawHealthData, now time.Time, r *health.ValidationResult) int {
	failed := false
	maxSeconds := v.thresholds.MaxWorkoutDuration.Seconds()

	for i, w := range raw.Workouts {
		if w.Duration > maxSeconds {
			r.Errors = append(r.Errors, fmt.Sprintf(
				"Workout %d duration (%.1fh) exceeds %.0f hours", i, w.Duration/3600, maxSeconds/3600,
			))
			failed = true
		}
		if w.StartDate.After(now) {
			r.Errors = append(r.Errors, fmt.Sprintf("Workout %d is scheduled in the future", i))
			failed = true
		}
		if w.EndDate.Before(w.StartDate) {
			r.Errors = append(r.Errors, fmt.Sprintf("Workout %d end time is before start time", i))
			failed = true
		}
		if w.Duration > 0 {
			rate := w.Calories / (w.Duration / 60)
			if rate > v.thresholds.MaxCaloriesPerMinute {
				r.Warnings = append(r.Warnings, fmt.Sprintf(
					"Workout %d has unusually high calorie burn rate (%.1f cal/min)", i, rate,
				))
			}
		}
	}

	if failed || len(raw.Workouts) == 0 {
		return 0
	}
	return ScoreWorkouts
}

func (v *Validator) checkHeartRate(raw health.RawHealthData, r *health.ValidationResult) int {
	suspicious := 0
	for _, reading := range raw.HeartRateReadings {
		if reading.BPM < v.thresholds.MinHeartRate || reading.BPM > v.thresholds.MaxHeartRate {
			suspicious++
		}
	}

	if suspicious > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d heart rate readings outside normal range", suspicious))
		return 0
	}
	if len(raw.HeartRateReadings) == 0 {
		return 0
	}
	return ScoreHeartRate
}

func (v *Validator) checkFreshness(raw health.RawHealthData, now time.Time, r *health.ValidationResult) int {
	age := now.Sub(raw.Timestamp)
	if age > v.thresholds.MaxSubmissionAge {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"Data is %.1f hours old. Recent data is more trustworthy.", age.Hours(),
		))
		return 0
	}
	return ScoreFreshness
}

func (v *Validator) checkDevice(raw health.RawHealthData, r *health.ValidationResult) int {
	if raw.DeviceInfo.IdentifierForVendor == health.UnknownDeviceIdentifier {
		r.Warnings = append(r.Warnings, "Unable to verify device identity")
		return 0
	}
	return ScoreDeviceIdentity
}

func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > MaxScore:
		return MaxScore
	default:
		return score
	}
}
