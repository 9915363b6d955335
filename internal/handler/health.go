package handler

import (
	"net/http"

	natsclient "github.com/pocketsage-ai/finance-copilot/internal/nats"
	"github.com/pocketsage-ai/finance-copilot/internal/service"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	turns      *service.TurnService
	natsClient *natsclient.Client
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(turns *service.TurnService, natsClient *natsclient.Client) *HealthHandler {
	return &HealthHandler{
		turns:      turns,
		natsClient: natsClient,
	}
}

// Health handles GET /health. It runs a canned message through the whole
// pipeline on a scratch thread and reports the outcome.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.turns.Health(r.Context())

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	// NATS is optional; readiness only requires the turn pipeline.
	ready := map[string]string{"status": "ready"}
	if h.natsClient != nil && !h.natsClient.IsConnected() {
		ready["audit"] = "disconnected"
	}
	writeJSON(w, http.StatusOK, ready)
}
