package handler

import (
	"context"
	"net/http"
	"sort"
)

// HealthCheck probes one dependency; nil means healthy.
type HealthCheck func(ctx context.Context) error

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Health returns an HTTP handler that runs every named check. Any failure
// turns the status to "degraded" and the response code to 503.
func Health(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Services: make(map[string]string, len(checks)),
		}
		for _, name := range names {
			if err := checks[name](r.Context()); err != nil {
				resp.Status = "degraded"
				resp.Services[name] = "unhealthy: " + err.Error()
			} else {
				resp.Services[name] = "healthy"
			}
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
