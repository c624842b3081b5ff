package handler

import (
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/fantasylifeleague/healthapi/internal/api/response"
	"github.com/fantasylifeleague/healthapi/internal/featureflags"
)

// FeatureFlagsHandler handles feature flag admin endpoints.
type FeatureFlagsHandler struct {
	service  *featureflags.Service
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{
		service:  service,
		validate: newValidator(),
		logger:   logger,
	}
}

// ListFeatureFlags handles GET /api/admin/feature-flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	flags := h.service.GetAllFlags(r.Context())

	list := make([]*featureflags.Flag, 0, len(flags))
	for _, flag := range flags {
		list = append(list, flag)
	}
	response.JSON(w, r, http.StatusOK, sortedFlagList(list))
}

// UpsertFeatureFlags handles PUT /api/admin/feature-flags.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.FlagUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		response.UnprocessableEntity(w, r, "validation failed", fieldErrors(err))
		return
	}

	updated, err := h.service.SetFlags(r.Context(), req.Updates)
	if err != nil {
		if errors.Is(err, featureflags.ErrUnknownFlag) || errors.Is(err, featureflags.ErrInvalidFlagValue) {
			response.UnprocessableEntity(w, r, err.Error(), nil)
			return
		}
		h.logger.Error().Err(err).Msg("failed to update feature flags")
		response.InternalError(w, r, "internal server error")
		return
	}

	keys := make([]string, 0, len(updated))
	for _, flag := range updated {
		keys = append(keys, flag.Key)
	}
	h.logger.Info().
		Strs("flags", keys).
		Str("reason", req.Reason).
		Msg("feature flags updated")

	response.JSON(w, r, http.StatusOK, sortedFlagList(updated))
}

// ResetFeatureFlag handles DELETE /api/admin/feature-flags/{key}, restoring the default.
func (h *FeatureFlagsHandler) ResetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := h.service.ResetFlag(r.Context(), key); err != nil {
		if errors.Is(err, featureflags.ErrUnknownFlag) {
			response.NotFound(w, r, "feature flag "+key)
			return
		}
		h.logger.Error().Err(err).Str("flag", key).Msg("failed to reset feature flag")
		response.InternalError(w, r, "internal server error")
		return
	}

	h.logger.Info().Str("flag", key).Msg("feature flag reset to default")
	response.NoContent(w, r)
}

// InvalidateCache handles POST /api/admin/feature-flags/invalidate.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}

func sortedFlagList(flags []*featureflags.Flag) featureflags.FlagList {
	sort.Slice(flags, func(i, j int) bool { return flags[i].Key < flags[j].Key })

	list := featureflags.FlagList{Items: make([]featureflags.Flag, 0, len(flags))}
	for _, flag := range flags {
		list.Items = append(list.Items, *flag)
	}
	return list
}
