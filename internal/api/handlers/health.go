package handlers

import (
	"net/http"

	"github.com/lumabook/automation/internal/health"
)

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := h.health.Health(r.Context())
	h.respondJSON(w, healthStatusCode(resp.Status), resp)
}

// Liveness handles GET /health/live.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.health.Liveness(r.Context()))
}

// Readiness handles GET /health/ready.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	resp := h.health.Readiness(r.Context())
	h.respondJSON(w, healthStatusCode(resp.Status), resp)
}

func healthStatusCode(s health.Status) int {
	if s == health.StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
