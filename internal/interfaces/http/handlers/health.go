package handlers

import (
	"net/http"

	"github.com/vertixec/THEARCHIVE/internal/views"
	"github.com/vertixec/THEARCHIVE/pkg/api"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	sessions SessionReader
	store    views.Health
}

// NewHealthHandler creates a HealthHandler. store may be nil when no breaker
// guards the remote store.
func NewHealthHandler(sessions SessionReader, store views.Health) *HealthHandler {
	return &HealthHandler{sessions: sessions, store: store}
}

// Check handles GET /health. It always answers 200; a tripped breaker is
// reported as degraded.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.status("ok"))
}

// Ready handles GET /ready; it is 503 until the session resolved.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.sessions.Snapshot().Loading {
		api.Error(w, http.StatusServiceUnavailable, "Session not resolved")
		return
	}
	api.Success(w, http.StatusOK, h.status("ready"))
}

func (h *HealthHandler) status(healthy string) api.HealthResponse {
	resp := api.HealthResponse{
		Status:        healthy,
		Store:         "closed",
		SessionLoaded: !h.sessions.Snapshot().Loading,
	}
	if h.store != nil && h.store.Open() {
		resp.Status = "degraded"
		resp.Store = "open"
	}
	return resp
}
