package handler

import (
	"context"
	"net/http"
)

// Pinger checks a backing service's health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	pingers []Pinger
}

// NewHealthHandler creates a new HealthHandler. With no pingers (memory
// mode) readiness is always ok.
func NewHealthHandler(pingers ...Pinger) *HealthHandler {
	return &HealthHandler{pingers: pingers}
}

// Liveness reports that the process is up.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness reports whether backing services are reachable.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	for _, p := range h.pingers {
		if err := p.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})

			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
