// Package state keeps the per-user derived data the verification pipeline
// reads and updates: recent submission timestamps and rolling daily samples.
package state

import (
	"context"
	"errors"
	"time"
)

const (
	// SubmissionHistorySize is the number of submission timestamps retained per user.
	SubmissionHistorySize = 100

	// StatisticsWindow is the number of daily samples retained per metric.
	StatisticsWindow = 30
)

// ErrNotFound is returned when a user has no derived state yet.
var ErrNotFound = errors.New("user state not found")

// UserState is the derived state of one user.
// Steps, Calories and Distance are index-aligned daily samples.
type UserState struct {
	Submissions []time.Time
	Steps       []float64
	Calories    []float64
	Distance    []float64
}

// LastSubmission returns the most recent recorded submission timestamp.
func (s *UserState) LastSubmission() (time.Time, bool) {
	if len(s.Submissions) == 0 {
		return time.Time{}, false
	}
	return s.Submissions[len(s.Submissions)-1], true
}

// RecordSubmission appends ts to the submission history, keeping the most recent entries.
func (s *UserState) RecordSubmission(ts time.Time) {
	s.Submissions = appendBounded(s.Submissions, ts, SubmissionHistorySize)
}

// RecordSample appends one daily sample to all three series together.
func (s *UserState) RecordSample(steps, calories, distance float64) {
	s.Steps = appendBounded(s.Steps, steps, StatisticsWindow)
	s.Calories = appendBounded(s.Calories, calories, StatisticsWindow)
	s.Distance = appendBounded(s.Distance, distance, StatisticsWindow)
}

// DaysTracked returns the number of retained daily samples.
func (s *UserState) DaysTracked() int {
	return len(s.Steps)
}

// Clone returns a deep copy of the state.
func (s *UserState) Clone() *UserState {
	if s == nil {
		return nil
	}
	return &UserState{
		Submissions: append([]time.Time(nil), s.Submissions...),
		Steps:       append([]float64(nil), s.Steps...),
		Calories:    append([]float64(nil), s.Calories...),
		Distance:    append([]float64(nil), s.Distance...),
	}
}

func appendBounded[T any](series []T, v T, limit int) []T {
	series = append(series, v)
	if len(series) > limit {
		series = append(series[:0:0], series[len(series)-limit:]...)
	}
	return series
}

// Store persists per-user state.
type Store interface {
	// Get returns a snapshot of the user's state, or ErrNotFound.
	Get(ctx context.Context, userID string) (*UserState, error)

	// Update runs fn against the user's state as one atomic read-modify-write.
	// Calls for the same user are serialized; calls for different users are not.
	// A new empty state is passed when the user has none. Changes are committed
	// only when fn returns nil.
	Update(ctx context.Context, userID string, fn func(*UserState) error) error
}
