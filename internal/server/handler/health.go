package handler

import (
	"net/http"
	"time"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	startedAt time.Time
	mode      string
}

// NewHealthHandler creates a health handler reporting the given run mode.
func NewHealthHandler(mode string) *HealthHandler {
	return &HealthHandler{startedAt: time.Now().UTC(), mode: mode}
}

// HealthCheck reports liveness and uptime.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"mode":          h.mode,
		"uptimeSeconds": int64(time.Since(h.startedAt).Seconds()),
	})
}
