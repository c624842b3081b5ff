package verification

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fantasylifeleague/healthapi/internal/verification"

// Submission outcomes recorded on health.submissions.total.
const (
	OutcomeAccepted         = "accepted"
	OutcomeRejected         = "rejected"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeRateLimited      = "rate_limited"
	OutcomeError            = "error"
)

// Metrics holds the pipeline's OpenTelemetry instruments. A nil *Metrics records nothing.
type Metrics struct {
	submissions metric.Int64Counter
	score       metric.Int64Histogram
	points      metric.Int64Histogram
}

// NewMetrics creates the pipeline instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	submissions, err := meter.Int64Counter(
		"health.submissions.total",
		metric.WithDescription("Health data submissions by outcome"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}

	score, err := meter.Int64Histogram(
		"health.validation.score",
		metric.WithDescription("Consistency score of decided submissions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	points, err := meter.Int64Histogram(
		"health.points.awarded",
		metric.WithDescription("Points awarded per accepted submission"),
		metric.WithUnit("{point}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		submissions: submissions,
		score:       score,
		points:      points,
	}, nil
}

func (m *Metrics) recordOutcome(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) recordDecision(ctx context.Context, accepted bool, score, points int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("accepted", accepted))
	m.score.Record(ctx, int64(score), attrs)
	if accepted {
		m.points.Record(ctx, int64(points))
	}
}
