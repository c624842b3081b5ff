package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// LogRecorder writes audit records as structured log lines.
type LogRecorder struct {
	logger zerolog.Logger
}

// NewLogRecorder creates a recorder that logs to logger.
func NewLogRecorder(logger zerolog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Record logs the record at info level.
func (l *LogRecorder) Record(_ context.Context, rec Record) error {
	l.logger.Info().
		Str("audit_id", rec.ID).
		Str("user_id", rec.UserID).
		Bool("accepted", rec.Accepted).
		Int("score", rec.Score).
		Int("points", rec.Points).
		Int("warnings", len(rec.Warnings)).
		Strs("errors", rec.Errors).
		Time("data_date", rec.DataDate).
		Msg("health submission audited")
	return nil
}
