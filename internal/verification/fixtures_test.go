package verification_test

import (
	"time"

	"github.com/fantasylifeleague/healthapi/internal/health"
)

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

// trustedDay returns the happy-path payload: it passes every consistency
// check with a score of 100 and is worth 88 points.
func trustedDay(now time.Time) health.RawHealthData {
	start := now.Add(-2 * time.Hour)

	readings := make([]health.HeartRateReading, 20)
	for i := range readings {
		readings[i] = health.HeartRateReading{
			BPM:       60 + float64(i*5),
			Timestamp: start.Add(time.Duration(i) * time.Minute),
		}
	}

	return health.RawHealthData{
		Date:     now.Truncate(24 * time.Hour),
		Steps:    10000,
		Calories: 500,
		Distance: 7500,
		Workouts: []health.Workout{{
			Type:      37,
			Duration:  1800,
			Calories:  300,
			Distance:  4000,
			StartDate: start,
			EndDate:   start.Add(30 * time.Minute),
			Source:    "com.apple.health",
		}},
		HeartRateReadings: readings,
		DeviceInfo: health.DeviceInfo{
			Model:               "iPhone15,2",
			SystemVersion:       "17.4",
			IdentifierForVendor: "abc",
		},
		Timestamp: now,
	}
}
