// Package health defines the health-data payloads submitted by the mobile app
// and the validation results returned for them.
package health

import "time"

// Parse-time bounds enforced on incoming payloads. The validate tags below
// repeat these values.
const (
	MaxStepsPerDay    = 100000
	MaxCaloriesPerDay = 10000
	MaxDistanceMeters = 100000
)

// TimestampPrecision is the resolution of timestamps covered by the payload
// signature. Finer detail is dropped before a payload is evaluated.
const TimestampPrecision = time.Millisecond

// UnknownDeviceIdentifier is reported by the device when it refuses to identify itself.
const UnknownDeviceIdentifier = "unknown"

// DeviceInfo identifies the device that produced a payload.
type DeviceInfo struct {
	Model               string `json:"model" validate:"required"`
	SystemVersion       string `json:"systemVersion" validate:"required"`
	IdentifierForVendor string `json:"identifierForVendor" validate:"required"`
}

// HeartRateReading is a single heart rate sample.
type HeartRateReading struct {
	BPM       float64   `json:"bpm" validate:"gte=0"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

// Workout is a workout session recorded by the device or a third-party app.
type Workout struct {
	Type      int       `json:"type"`
	Duration  float64   `json:"duration" validate:"gte=0"` // seconds
	Calories  float64   `json:"calories" validate:"gte=0"`
	Distance  float64   `json:"distance" validate:"gte=0"` // meters
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required"`
	Source    string    `json:"source" validate:"required"` // reverse-DNS bundle identifier
}

// RawHealthData is one reported wellness day.
type RawHealthData struct {
	Date              time.Time          `json:"date" validate:"required"`
	Steps             float64            `json:"steps" validate:"gte=0,lte=100000"`
	Calories          float64            `json:"calories" validate:"gte=0,lte=10000"`
	Distance          float64            `json:"distance" validate:"gte=0,lte=100000"`
	Workouts          []Workout          `json:"workouts" validate:"required,dive"` // [] is allowed, null is not
	HeartRateReadings []HeartRateReading `json:"heartRateReadings" validate:"required,dive"`
	DeviceInfo        DeviceInfo         `json:"deviceInfo"`
	Timestamp         time.Time          `json:"timestamp" validate:"required"`
}

// Truncated returns a copy of d with every timestamp cut to TimestampPrecision.
func (d RawHealthData) Truncated() RawHealthData {
	out := d
	out.Date = d.Date.Truncate(TimestampPrecision)
	out.Timestamp = d.Timestamp.Truncate(TimestampPrecision)

	if d.Workouts != nil {
		out.Workouts = make([]Workout, len(d.Workouts))
		for i, w := range d.Workouts {
			w.StartDate = w.StartDate.Truncate(TimestampPrecision)
			w.EndDate = w.EndDate.Truncate(TimestampPrecision)
			out.Workouts[i] = w
		}
	}
	if d.HeartRateReadings != nil {
		out.HeartRateReadings = make([]HeartRateReading, len(d.HeartRateReadings))
		for i, r := range d.HeartRateReadings {
			r.Timestamp = r.Timestamp.Truncate(TimestampPrecision)
			out.HeartRateReadings[i] = r
		}
	}
	return out
}

// TotalWorkoutCalories returns the sum of calories over all workouts.
func (d *RawHealthData) TotalWorkoutCalories() float64 {
	var total float64
	for _, w := range d.Workouts {
		total += w.Calories
	}
	return total
}

// TotalWorkoutDuration returns the summed workout duration in seconds.
func (d *RawHealthData) TotalWorkoutDuration() float64 {
	var total float64
	for _, w := range d.Workouts {
		total += w.Duration
	}
	return total
}

// VerifiedHealthData wraps a payload with its HMAC signature.
type VerifiedHealthData struct {
	RawData   RawHealthData `json:"rawData"`
	Signature string        `json:"signature" validate:"required,hexadecimal"`
	Version   string        `json:"version"`
}

// Submission is the body of a health-data submission request.
type Submission struct {
	UserID string             `json:"userId" validate:"required"`
	Data   VerifiedHealthData `json:"data"`
}

// ValidationResult is the outcome of the consistency checks on one payload.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Score    int      `json:"score"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

// NewValidationResult returns an empty result with non-nil warning and error lists
// so that both always serialize as JSON arrays.
func NewValidationResult() ValidationResult {
	return ValidationResult{
		Warnings: []string{},
		Errors:   []string{},
	}
}

// AddWarnings appends warnings to the result.
func (r *ValidationResult) AddWarnings(warnings ...string) {
	r.Warnings = append(r.Warnings, warnings...)
}

// Statistics summarizes a user's retained daily samples.
type Statistics struct {
	AverageSteps    float64 `json:"averageSteps"`
	AverageCalories float64 `json:"averageCalories"`
	AverageDistance float64 `json:"averageDistance"`
	DaysTracked     int     `json:"daysTracked"`
}
