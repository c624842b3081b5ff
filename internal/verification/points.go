package verification

import (
	"math"

	"github.com/fantasylifeleague/healthapi/internal/health"
)

// Point award parameters.
const (
	PointsPerWorkout       = 10
	ConsistencyBonus       = 50
	ConsistencyBonusSteps  = 8000
	workoutMinutesPerPoint = 5
	stepsPerPoint          = 1000
	caloriesPerPoint       = 100
	distanceMetersPerPoint = 1000
)

// MaxPoints caps a single award; workout fields carry no upper bound.
const MaxPoints = math.MaxInt32

// BasePoints computes the untrusted point value of a payload.
func BasePoints(raw health.RawHealthData) int {
	points := floorDiv(raw.Steps, stepsPerPoint)
	points += PointsPerWorkout * float64(len(raw.Workouts))
	points += floorDiv(raw.TotalWorkoutDuration()/60, workoutMinutesPerPoint)
	points += floorDiv(raw.Calories, caloriesPerPoint)
	points += floorDiv(raw.Distance, distanceMetersPerPoint)

	if raw.Steps > ConsistencyBonusSteps && len(raw.Workouts) > 0 {
		points += ConsistencyBonus
	}
	if !(points < MaxPoints) {
		return MaxPoints
	}
	return int(points)
}

// FinalPoints weights base by the trust score: floor(base * min(score/100, 1)).
func FinalPoints(base, score int) int {
	if score <= 0 || base <= 0 {
		return 0
	}
	if score > MaxScore {
		score = MaxScore
	}
	// Split base so the product stays in range for any base.
	return base/MaxScore*score + base%MaxScore*score/MaxScore
}

func floorDiv(v, d float64) float64 {
	if !(v > 0) {
		return 0
	}
	return math.Floor(v / d)
}
