package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/fantasylifeleague/healthapi/internal/api/models"
	"github.com/fantasylifeleague/healthapi/internal/api/response"
	"github.com/fantasylifeleague/healthapi/internal/resilience"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	serviceName string
	version     string
	buildTime   string
	registry    *resilience.Registry
	checks      map[string]ReadinessCheck
}

// NewOpsHandler creates a new OpsHandler. registry and checks may be nil.
func NewOpsHandler(serviceName, version, buildTime string, registry *resilience.Registry, checks map[string]ReadinessCheck) *OpsHandler {
	return &OpsHandler{
		serviceName: serviceName,
		version:     version,
		buildTime:   buildTime,
		registry:    registry,
		checks:      checks,
	}
}

// Root handles GET / - service information.
func (h *OpsHandler) Root(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.ServiceInfo{
		Service: h.serviceName,
		Version: h.version,
		Status:  "running",
	})
}

// HealthCheck handles GET /api/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /api/ops/ready. Every registered check must pass
// within two seconds.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	details := make(map[string]any, len(h.checks))
	status := models.HealthStatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			details[name] = err.Error()
			status = models.HealthStatusFail
			continue
		}
		details[name] = "ok"
	}

	code := http.StatusOK
	if status != models.HealthStatusOK {
		code = http.StatusServiceUnavailable
	}

	health := models.Health{
		Status: status,
		Time:   models.Timestamp(time.Now()),
	}
	if len(details) > 0 {
		health.Details = details
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /api/ops/status - circuit breaker state of every
// guarded dependency.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	deps := h.registry.Health()

	status := models.SystemStatus{
		Status:       models.HealthStatusOK,
		Time:         models.Timestamp(time.Now()),
		Dependencies: make([]models.DependencyStatus, 0, len(deps)),
	}

	for _, dep := range deps {
		depStatus := models.HealthStatusOK
		switch {
		case dep.IsDegraded():
			depStatus = models.HealthStatusDegraded
		case !dep.IsHealthy():
			depStatus = models.HealthStatusFail
		}

		switch {
		case depStatus == models.HealthStatusFail:
			status.Status = models.HealthStatusFail
		case depStatus == models.HealthStatusDegraded && status.Status == models.HealthStatusOK:
			status.Status = models.HealthStatusDegraded
		}

		status.Dependencies = append(status.Dependencies, models.DependencyStatus{
			Name:                dep.Name,
			Status:              depStatus,
			CircuitState:        dep.CircuitState.String(),
			Requests:            dep.Counts.Requests,
			ConsecutiveFailures: dep.Counts.ConsecutiveFailures,
		})
	}

	response.JSON(w, r, http.StatusOK, status)
}
