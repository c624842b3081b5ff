// Package audit records the outcome of every health-data submission that
// reached a decision, and moves those records between services.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is the audit entry of one decided submission.
type Record struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Accepted    bool      `json:"accepted"`
	Score       int       `json:"score"`
	Points      int       `json:"points"`
	Warnings    []string  `json:"warnings"`
	Errors      []string  `json:"errors"`
	DataDate    time.Time `json:"dataDate"`
	SubmittedAt time.Time `json:"submittedAt"`
	ProcessedAt time.Time `json:"processedAt"`
	Version     string    `json:"version,omitempty"`
}

// NewID returns a new record identifier.
func NewID() string {
	return uuid.NewString()
}

// Recorder stores or forwards audit records.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, rec Record) error

// Record calls f(ctx, rec).
func (f RecorderFunc) Record(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}
