package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/daap14/tenantauth/internal/api/middleware"
	"github.com/daap14/tenantauth/internal/api/response"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	checks  map[string]Pinger
	version string
}

// NewHealthHandler creates a new HealthHandler. Each entry in checks is
// pinged on every request; a failure marks the service degraded.
func NewHealthHandler(checks map[string]Pinger, version string) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		version: version,
	}
}

type dependencyStatus struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

type healthData struct {
	Status       string             `json:"status"`
	Version      string             `json:"version"`
	Dependencies []dependencyStatus `json:"dependencies"`
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "healthy"
	deps := make([]dependencyStatus, 0, len(names))
	for _, name := range names {
		connected := h.checks[name].Ping(ctx) == nil
		if !connected {
			status = "degraded"
		}
		deps = append(deps, dependencyStatus{Name: name, Connected: connected})
	}

	response.Success(w, http.StatusOK, healthData{
		Status:       status,
		Version:      h.version,
		Dependencies: deps,
	}, requestID)
}
