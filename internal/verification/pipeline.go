package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fantasylifeleague/healthapi/internal/audit"
	"github.com/fantasylifeleague/healthapi/internal/health"
	"github.com/fantasylifeleague/healthapi/internal/state"
)

// Response messages.
const (
	MessageAccepted = "Health data accepted successfully!"
	MessageRejected = "Data validation failed. Please ensure your data is accurate."
	MessageNoData   = "No health data available yet"
)

// SignatureVerifier checks the signature of a submission for a user.
type SignatureVerifier interface {
	Verify(ctx context.Context, userID string, data health.VerifiedHealthData) error
}

// Flags resolves the runtime toggles used by the pipeline.
type Flags interface {
	StatisticalAnalysisFlag
	IsSourceCheckEnabled(ctx context.Context) bool
}

// Outcome is the decision for a submission that passed signature and rate checks.
type Outcome struct {
	Accepted   bool
	Points     int
	BasePoints int
	Validation health.ValidationResult
	Message    string
}

// PipelineConfig holds the collaborators of a Pipeline.
type PipelineConfig struct {
	Verifier   SignatureVerifier
	Store      state.Store
	Thresholds Thresholds
	Flags      Flags          // optional; thresholds decide when nil
	Recorder   audit.Recorder // optional
	Metrics    *Metrics       // optional
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Pipeline runs submissions through the verification stages in order.
type Pipeline struct {
	verifier  SignatureVerifier
	store     state.Store
	limiter   *RateLimiter
	validator *Validator
	detector  *AnomalyDetector
	sources   *SourceAuthenticator
	flags     Flags
	recorder  audit.Recorder
	metrics   *Metrics
	tracer    trace.Tracer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPipeline creates a pipeline from cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	trusted := cfg.Thresholds.TrustedSources
	if trusted == nil {
		trusted = DefaultTrustedSources
	}

	var statsFlag StatisticalAnalysisFlag
	if cfg.Flags != nil {
		statsFlag = cfg.Flags
	}

	return &Pipeline{
		verifier:  cfg.Verifier,
		store:     cfg.Store,
		limiter:   NewRateLimiter(cfg.Store, cfg.Thresholds.MinSubmissionInterval),
		validator: NewValidator(cfg.Thresholds),
		detector:  NewAnomalyDetector(cfg.Store, cfg.Thresholds, statsFlag, cfg.Logger),
		sources:   NewSourceAuthenticator(trusted),
		flags:     cfg.Flags,
		recorder:  cfg.Recorder,
		metrics:   cfg.Metrics,
		tracer:    otel.Tracer(instrumentationName),
		logger:    cfg.Logger,
		now:       now,
	}
}

// Submit runs one submission through the pipeline.
//
// A signature failure returns an error wrapping signature.ErrInvalidSignature and
// leaves all per-user state untouched. A rate-limited submission returns a
// *RateLimitError. Otherwise the decision is returned as an Outcome; a rejected
// outcome never extends the user's statistics and awards no points.
func (p *Pipeline) Submit(ctx context.Context, sub health.Submission) (*Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "verification.Submit",
		trace.WithAttributes(attribute.String("health.user_id", sub.UserID)),
	)
	defer span.End()

	logger := p.logger.With().Str("user_id", sub.UserID).Logger()

	if err := p.verifySignature(ctx, sub); err != nil {
		p.fail(ctx, span, OutcomeInvalidSignature, err)
		logger.Warn().Err(err).Msg("health submission refused")
		return nil, err
	}

	// Only what the signature covers is evaluated.
	raw := sub.Data.RawData.Truncated()
	sub.Data.RawData = raw

	if err := p.reserve(ctx, sub.UserID, raw.Timestamp); err != nil {
		var limited *RateLimitError
		if errors.As(err, &limited) {
			p.fail(ctx, span, OutcomeRateLimited, err)
			logger.Info().Dur("retry_after", limited.RetryAfter).Msg("health submission rate limited")
			return nil, err
		}
		p.fail(ctx, span, OutcomeError, err)
		return nil, fmt.Errorf("rate limiting submission: %w", err)
	}

	now := p.now()
	result := p.validate(ctx, raw, now)

	if !result.IsValid {
		outcome := &Outcome{
			Accepted:   false,
			Validation: result,
			Message:    MessageRejected,
		}
		p.finish(ctx, span, sub, outcome, now)
		logger.Info().
			Int("score", result.Score).
			Strs("errors", result.Errors).
			Msg("health submission rejected")
		return outcome, nil
	}

	result.AddWarnings(p.detectAnomalies(ctx, sub.UserID, raw)...)
	if p.sourceCheckEnabled(ctx) {
		result.AddWarnings(p.sources.Check(raw)...)
	}

	base := BasePoints(raw)
	outcome := &Outcome{
		Accepted:   true,
		Points:     FinalPoints(base, result.Score),
		BasePoints: base,
		Validation: result,
		Message:    MessageAccepted,
	}
	p.finish(ctx, span, sub, outcome, now)

	logger.Info().
		Int("score", result.Score).
		Int("base_points", base).
		Int("points", outcome.Points).
		Int("warnings", len(result.Warnings)).
		Msg("health submission accepted")

	return outcome, nil
}

// Status returns the user's averaged statistics. The second return value is
// false when the user has no retained samples.
func (p *Pipeline) Status(ctx context.Context, userID string) (*health.Statistics, bool, error) {
	st, err := p.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("loading user state: %w", err)
	}
	if st.DaysTracked() == 0 {
		return nil, false, nil
	}

	return &health.Statistics{
		AverageSteps:    Mean(st.Steps),
		AverageCalories: Mean(st.Calories),
		AverageDistance: Mean(st.Distance),
		DaysTracked:     st.DaysTracked(),
	}, true, nil
}

func (p *Pipeline) verifySignature(ctx context.Context, sub health.Submission) error {
	ctx, span := p.tracer.Start(ctx, "verification.signature")
	defer span.End()
	return p.verifier.Verify(ctx, sub.UserID, sub.Data)
}

func (p *Pipeline) reserve(ctx context.Context, userID string, ts time.Time) error {
	ctx, span := p.tracer.Start(ctx, "verification.rate_limit")
	defer span.End()
	return p.limiter.Reserve(ctx, userID, ts)
}

func (p *Pipeline) validate(ctx context.Context, raw health.RawHealthData, now time.Time) health.ValidationResult {
	_, span := p.tracer.Start(ctx, "verification.consistency")
	defer span.End()

	result := p.validator.Validate(raw, now)
	span.SetAttributes(
		attribute.Int("health.score", result.Score),
		attribute.Int("health.errors", len(result.Errors)),
	)
	return result
}

func (p *Pipeline) detectAnomalies(ctx context.Context, userID string, raw health.RawHealthData) []string {
	ctx, span := p.tracer.Start(ctx, "verification.anomaly")
	defer span.End()

	warnings := p.detector.Detect(ctx, userID, raw)
	span.SetAttributes(attribute.Int("health.anomalies", len(warnings)))
	return warnings
}

func (p *Pipeline) sourceCheckEnabled(ctx context.Context) bool {
	if p.flags == nil {
		return true
	}
	return p.flags.IsSourceCheckEnabled(ctx)
}

func (p *Pipeline) fail(ctx context.Context, span trace.Span, outcome string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	p.metrics.recordOutcome(ctx, outcome)
}

func (p *Pipeline) finish(ctx context.Context, span trace.Span, sub health.Submission, outcome *Outcome, now time.Time) {
	label := OutcomeRejected
	if outcome.Accepted {
		label = OutcomeAccepted
	}
	span.SetAttributes(
		attribute.String("health.outcome", label),
		attribute.Int("health.points", outcome.Points),
	)
	p.metrics.recordOutcome(ctx, label)
	p.metrics.recordDecision(ctx, outcome.Accepted, outcome.Validation.Score, outcome.Points)

	if p.recorder == nil {
		return
	}

	raw := sub.Data.RawData
	rec := audit.Record{
		ID:          audit.NewID(),
		UserID:      sub.UserID,
		Accepted:    outcome.Accepted,
		Score:       outcome.Validation.Score,
		Points:      outcome.Points,
		Warnings:    outcome.Validation.Warnings,
		Errors:      outcome.Validation.Errors,
		DataDate:    raw.Date,
		SubmittedAt: raw.Timestamp,
		ProcessedAt: now,
		Version:     sub.Data.Version,
	}
	if err := p.recorder.Record(ctx, rec); err != nil {
		p.logger.Error().
			Err(err).
			Str("user_id", sub.UserID).
			Str("audit_id", rec.ID).
			Msg("failed to record submission audit")
	}
}
