package models

import (
	"encoding/json"
	"net/http"
)

// Problem represents an RFC7807 error response.
// All API errors are written with Content-Type: application/problem+json.
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// Instance is the request path of this occurrence.
	Instance string `json:"instance,omitempty"`

	// TraceID is the request identifier for correlation with logs.
	TraceID string `json:"traceId"`

	// RetryAfter is the number of seconds to wait before retrying, set on 429s.
	RetryAfter int `json:"retryAfter,omitempty"`

	// Errors contains structured field validation errors.
	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Problem type URIs.
const (
	ProblemTypeMalformed        = "https://api.fantasylifeleague.com/problems/malformed-request"
	ProblemTypeValidation       = "https://api.fantasylifeleague.com/problems/validation-error"
	ProblemTypeUnauthorized     = "https://api.fantasylifeleague.com/problems/unauthorized"
	ProblemTypeForbidden        = "https://api.fantasylifeleague.com/problems/forbidden"
	ProblemTypeInvalidSignature = "https://api.fantasylifeleague.com/problems/invalid-signature"
	ProblemTypeNotFound         = "https://api.fantasylifeleague.com/problems/not-found"
	ProblemTypeUnsupportedMedia = "https://api.fantasylifeleague.com/problems/unsupported-media-type"
	ProblemTypeTooManyRequests  = "https://api.fantasylifeleague.com/problems/too-many-requests"
	ProblemTypeInternal         = "https://api.fantasylifeleague.com/problems/internal-error"
	ProblemTypeUnavailable      = "https://api.fantasylifeleague.com/problems/service-unavailable"
)

// NewProblem creates a new Problem with the given parameters.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// Write writes the Problem as JSON to the ResponseWriter.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 problem for a body that could not be parsed.
func NewBadRequest(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeMalformed, "Malformed request", http.StatusBadRequest, traceID)
	p.Detail = detail
	return p
}

// NewUnprocessableEntity creates a 422 problem for a well-formed body that
// violates field bounds.
func NewUnprocessableEntity(traceID, detail string, errors []FieldError) *Problem {
	p := NewProblem(ProblemTypeValidation, "Validation error", http.StatusUnprocessableEntity, traceID)
	p.Detail = detail
	p.Errors = errors
	return p
}

// NewUnauthorized creates a 401 Unauthorized problem.
func NewUnauthorized(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized, traceID)
	p.Detail = detail
	return p
}

// NewForbidden creates a 403 Forbidden problem.
func NewForbidden(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeForbidden, "Forbidden", http.StatusForbidden, traceID)
	p.Detail = detail
	return p
}

// NewInvalidSignature creates the 403 problem for a payload whose signature
// does not verify. The detail never names the field that differed.
func NewInvalidSignature(traceID string) *Problem {
	p := NewProblem(ProblemTypeInvalidSignature, "Invalid signature", http.StatusForbidden, traceID)
	p.Detail = "Invalid data signature"
	return p
}

// NewNotFound creates a 404 Not Found problem.
func NewNotFound(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeNotFound, "Not found", http.StatusNotFound, traceID)
	p.Detail = detail
	return p
}

// NewUnsupportedMediaType creates a 415 problem.
func NewUnsupportedMediaType(traceID string) *Problem {
	p := NewProblem(ProblemTypeUnsupportedMedia, "Unsupported media type", http.StatusUnsupportedMediaType, traceID)
	p.Detail = "Content-Type must be application/json"
	return p
}

// NewTooManyRequests creates a 429 Too Many Requests problem.
func NewTooManyRequests(traceID, detail string, retryAfter int) *Problem {
	p := NewProblem(ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, traceID)
	p.Detail = detail
	p.RetryAfter = retryAfter
	return p
}

// NewInternalError creates a 500 Internal Server Error problem.
func NewInternalError(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, traceID)
	p.Detail = detail
	return p
}

// NewServiceUnavailable creates a 503 Service Unavailable problem.
func NewServiceUnavailable(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable, traceID)
	p.Detail = detail
	return p
}
