package models

import "github.com/fantasylifeleague/healthapi/internal/health"

// SubmitResponse is the body of a decided submission. Points is omitted when
// the submission was not accepted.
type SubmitResponse struct {
	Accepted   bool                    `json:"accepted"`
	Points     *int                    `json:"points,omitempty"`
	Validation health.ValidationResult `json:"validation"`
	Message    string                  `json:"message"`
}

// StatusResponse is the body of the status endpoint.
type StatusResponse struct {
	HasData    bool               `json:"hasData"`
	Statistics *health.Statistics `json:"statistics,omitempty"`
	Message    string             `json:"message,omitempty"`
}
