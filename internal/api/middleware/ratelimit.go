package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/fantasylifeleague/healthapi/internal/api/models"
)

// RateLimitConfig holds configuration for request throttling.
type RateLimitConfig struct {
	// RequestLimit is the number of requests allowed per window.
	RequestLimit int
	// WindowLength is the throttling window.
	WindowLength time.Duration
}

// Default throttling configurations.
var (
	// StandardRateLimit applies to player endpoints (120 req/min).
	StandardRateLimit = RateLimitConfig{
		RequestLimit: 120,
		WindowLength: time.Minute,
	}

	// AdminRateLimit applies to operator endpoints (30 req/min).
	AdminRateLimit = RateLimitConfig{
		RequestLimit: 30,
		WindowLength: time.Minute,
	}
)

// PerMinute returns a one-minute window allowing n requests, or
// StandardRateLimit when n is not positive.
func PerMinute(n int) RateLimitConfig {
	if n <= 0 {
		return StandardRateLimit
	}
	return RateLimitConfig{RequestLimit: n, WindowLength: time.Minute}
}

// RateLimitByIP throttles by client IP. Run chi's RealIP middleware first when
// behind a proxy.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(limitExceededHandler(cfg.WindowLength)),
	)
}

// RateLimitByUser throttles by authenticated user, falling back to the client IP.
func RateLimitByUser(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyByUserOrIP),
		httprate.WithLimitHandler(limitExceededHandler(cfg.WindowLength)),
	)
}

func keyByUserOrIP(r *http.Request) (string, error) {
	if userID := GetUserID(r.Context()); userID != "" {
		return "user:" + userID, nil
	}
	return httprate.KeyByRealIP(r)
}

// limitExceededHandler writes a 429 problem. httprate does not expose the exact
// reset time, so Retry-After is the full window.
func limitExceededHandler(window time.Duration) http.HandlerFunc {
	seconds := int(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		problem := models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.", seconds)
		problem.Instance = r.URL.Path
		problem.Write(w)
	}
}
