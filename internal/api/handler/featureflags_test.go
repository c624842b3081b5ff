package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantasylifeleague/healthapi/internal/api/handler"
	"github.com/fantasylifeleague/healthapi/internal/featureflags"
)

func newFlagsRouter(t *testing.T) (http.Handler, *featureflags.Service) {
	t.Helper()

	svc := featureflags.NewService(featureflags.ServiceConfig{
		Repository:   featureflags.NewInMemoryRepository(),
		Logger:       zerolog.New(io.Discard),
		DefaultFlags: featureflags.DefaultFlags(true),
	})
	h := handler.NewFeatureFlagsHandler(svc, zerolog.New(io.Discard))

	r := chi.NewRouter()
	r.Get("/flags", h.ListFeatureFlags)
	r.Put("/flags", h.UpsertFeatureFlags)
	r.Post("/flags/invalidate", h.InvalidateCache)
	r.Delete("/flags/{key}", h.ResetFeatureFlag)
	return r, svc
}

func serveFlags(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestFeatureFlagsHandler_List(t *testing.T) {
	router, _ := newFlagsRouter(t)

	rec := serveFlags(router, http.MethodGet, "/flags", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var list featureflags.FlagList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, featureflags.FlagEnableSourceCheck, list.Items[0].Key)
	assert.Equal(t, featureflags.FlagEnableStatisticalAnalysis, list.Items[1].Key)
}

func TestFeatureFlagsHandler_Upsert(t *testing.T) {
	router, svc := newFlagsRouter(t)

	rec := serveFlags(router, http.MethodPut, "/flags",
		`{"updates":[{"key":"enable_statistical_analysis","value":false}],"reason":"incident 42"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var list featureflags.FlagList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, false, list.Items[0].Value)

	assert.False(t, svc.IsStatisticalAnalysisEnabled(t.Context()))
}

func TestFeatureFlagsHandler_Upsert_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "malformed", body: `{"updates":`, want: http.StatusBadRequest},
		{name: "missing reason", body: `{"updates":[{"key":"enable_source_check","value":true}]}`, want: http.StatusUnprocessableEntity},
		{name: "no updates", body: `{"updates":[],"reason":"noop"}`, want: http.StatusUnprocessableEntity},
		{name: "unknown flag", body: `{"updates":[{"key":"enable_magic","value":true}],"reason":"x"}`, want: http.StatusUnprocessableEntity},
		{name: "non-boolean value", body: `{"updates":[{"key":"enable_source_check","value":"yes"}],"reason":"x"}`, want: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newFlagsRouter(t)

			rec := serveFlags(router, http.MethodPut, "/flags", tt.body)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestFeatureFlagsHandler_Reset(t *testing.T) {
	router, svc := newFlagsRouter(t)

	rec := serveFlags(router, http.MethodPut, "/flags",
		`{"updates":[{"key":"enable_source_check","value":false}],"reason":"test"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, svc.IsSourceCheckEnabled(t.Context()))

	rec = serveFlags(router, http.MethodDelete, "/flags/enable_source_check", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, svc.IsSourceCheckEnabled(t.Context()))

	rec = serveFlags(router, http.MethodDelete, "/flags/enable_magic", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeatureFlagsHandler_InvalidateCache(t *testing.T) {
	router, _ := newFlagsRouter(t)

	rec := serveFlags(router, http.MethodPost, "/flags/invalidate", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
