// internal/handlers/health.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"seo-insights-backend/internal/models"
	"seo-insights-backend/pkg/utils"
)

// Pinger is satisfied by the database clients the service depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store     string
	aiEnabled bool
	pingers   map[string]Pinger
}

func NewHealthHandler(store string, aiEnabled bool, pingers map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		store:     store,
		aiEnabled: aiEnabled,
		pingers:   pingers,
	}
}

func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			utils.SendJSONResponse(w, r, http.StatusServiceUnavailable, models.HealthResponse{
				Status:    "unhealthy",
				Message:   name + " is unreachable",
				Store:     h.store,
				AIEnabled: h.aiEnabled,
			})
			return
		}
	}

	utils.SendJSONResponse(w, r, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Message:   "Server is running",
		Store:     h.store,
		AIEnabled: h.aiEnabled,
	})
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}
