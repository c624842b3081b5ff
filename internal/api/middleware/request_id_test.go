package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fantasylifeleague/healthapi/internal/api/middleware"
)

func TestRequestID_GeneratesNewID(t *testing.T) {
	var ctxID string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = middleware.GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.True(t, strings.HasPrefix(ctxID, "req_"))
	assert.Equal(t, ctxID, rec.Header().Get(middleware.RequestIDHeader))
}

func TestRequestID_PreservesExistingID(t *testing.T) {
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "client-abc", middleware.GetRequestID(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(middleware.RequestIDHeader, "client-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "client-abc", rec.Header().Get(middleware.RequestIDHeader))
}

func TestRequestID_ReplacesUnusableID(t *testing.T) {
	tests := map[string]string{
		"oversized":  strings.Repeat("x", 500),
		"whitespace": "abc def",
		"control":    "abc\x01",
	}

	for name, id := range tests {
		t.Run(name, func(t *testing.T) {
			handler := middleware.RequestID(http.HandlerFunc(okHandler))

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set(middleware.RequestIDHeader, id)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.True(t, strings.HasPrefix(rec.Header().Get(middleware.RequestIDHeader), "req_"))
		})
	}
}

func TestGetRequestID_ReturnsEmptyStringForMissingContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Empty(t, middleware.GetRequestID(req.Context()))
}

func TestRequestID_UniqueIDs(t *testing.T) {
	handler := middleware.RequestID(http.HandlerFunc(okHandler))

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

		id := rec.Header().Get(middleware.RequestIDHeader)
		assert.False(t, seen[id], "duplicate request ID %s", id)
		seen[id] = true
	}
}
