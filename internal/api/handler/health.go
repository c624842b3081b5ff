// Package handler provides HTTP handlers for the health API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/fantasylifeleague/healthapi/internal/api/middleware"
	"github.com/fantasylifeleague/healthapi/internal/api/models"
	"github.com/fantasylifeleague/healthapi/internal/api/response"
	"github.com/fantasylifeleague/healthapi/internal/health"
	"github.com/fantasylifeleague/healthapi/internal/resilience"
	"github.com/fantasylifeleague/healthapi/internal/signature"
	"github.com/fantasylifeleague/healthapi/internal/verification"
)

// HealthService runs submissions through verification and reports statistics.
type HealthService interface {
	Submit(ctx context.Context, sub health.Submission) (*verification.Outcome, error)
	Status(ctx context.Context, userID string) (*health.Statistics, bool, error)
}

// HealthHandler handles health-data submission and status endpoints.
type HealthHandler struct {
	service  HealthService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(service HealthService, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		service:  service,
		validate: newValidator(),
		logger:   logger,
	}
}

// Submit handles POST /api/health/submit.
//
// Consistency rejections are a 200 with accepted=false. Transport-level refusals
// are problems: 400 malformed body, 422 out-of-bounds fields, 403 signature or
// user mismatch, 429 too frequent.
func (h *HealthHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub health.Submission
	if err := decodeJSON(w, r, &sub); err != nil {
		response.BadRequest(w, r, "invalid JSON body")
		return
	}

	if err := h.validate.Struct(&sub); err != nil {
		response.UnprocessableEntity(w, r, "validation failed", fieldErrors(err))
		return
	}

	if !h.authorized(r, sub.UserID) {
		response.Forbidden(w, r, "token does not belong to this user")
		return
	}

	outcome, err := h.service.Submit(r.Context(), sub)
	if err != nil {
		h.writeSubmitError(w, r, sub.UserID, err)
		return
	}

	resp := models.SubmitResponse{
		Accepted:   outcome.Accepted,
		Validation: outcome.Validation,
		Message:    outcome.Message,
	}
	if outcome.Accepted {
		points := outcome.Points
		resp.Points = &points
	}

	response.JSON(w, r, http.StatusOK, resp)
}

func (h *HealthHandler) writeSubmitError(w http.ResponseWriter, r *http.Request, userID string, err error) {
	var limited *verification.RateLimitError

	switch {
	case errors.Is(err, signature.ErrInvalidSignature):
		response.InvalidSignature(w, r)
	case errors.As(err, &limited):
		response.TooManyRequests(w, r, "Please wait before submitting again", limited.RetryAfter)
	case errors.Is(err, resilience.ErrCircuitOpen):
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("health submission refused, dependency unavailable")
		response.ServiceUnavailable(w, r, "verification temporarily unavailable")
	default:
		h.logger.Error().Err(err).Str("user_id", userID).Msg("health submission failed")
		response.InternalError(w, r, "internal server error")
	}
}

// Status handles GET /api/health/status/{userId}.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		response.UnprocessableEntity(w, r, "validation failed", []models.FieldError{
			{Field: "userId", Message: "is required", Code: "required"},
		})
		return
	}

	if !h.authorized(r, userID) {
		response.Forbidden(w, r, "token does not belong to this user")
		return
	}

	stats, ok, err := h.service.Status(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("health status failed")
		response.InternalError(w, r, "internal server error")
		return
	}

	if !ok {
		response.JSON(w, r, http.StatusOK, models.StatusResponse{
			HasData: false,
			Message: verification.MessageNoData,
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.StatusResponse{
		HasData:    true,
		Statistics: stats,
	})
}

// authorized reports whether the authenticated user may act for userID.
// Requests without an authenticated user pass; the router decides whether
// authentication is required.
func (h *HealthHandler) authorized(r *http.Request, userID string) bool {
	tokenUser := middleware.GetUserID(r.Context())
	return tokenUser == "" || tokenUser == userID
}
