package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks reading source connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	source Pinger
	name   string
}

// NewHealthHandler creates a new HealthHandler. name identifies the reading
// source in the response body.
func NewHealthHandler(source Pinger, name string) *HealthHandler {
	return &HealthHandler{source: source, name: name}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.source.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			h.name:   "disconnected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		h.name:   "connected",
	})
}
