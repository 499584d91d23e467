// internal/handlers/rate_limit.go
package handlers

import (
	"context"
	"net/http"
	"strings"

	"seo-insights-backend/internal/models"
	"seo-insights-backend/internal/services"
	apperrors "seo-insights-backend/pkg/errors"
	"seo-insights-backend/pkg/utils"
)

// CleanupRunner runs one expired row sweep on demand.
type CleanupRunner interface {
	RunOnce(ctx context.Context) (int64, error)
}

// RateLimitHandler serves the admin diagnostics of the limiter.
type RateLimitHandler struct {
	rateLimits services.RateLimitService
	cleanup    CleanupRunner
}

func NewRateLimitHandler(rateLimits services.RateLimitService, cleanup CleanupRunner) *RateLimitHandler {
	return &RateLimitHandler{
		rateLimits: rateLimits,
		cleanup:    cleanup,
	}
}

func (h *RateLimitHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.rateLimits.GetUsageStats(r.Context())
	if err != nil {
		utils.SendErrorResponse(w, r, err)
		return
	}
	utils.SendJSONResponse(w, r, http.StatusOK, stats)
}

func (h *RateLimitHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	identity := models.Identity{
		UserID:    strings.TrimSpace(r.URL.Query().Get("userId")),
		IPAddress: strings.TrimSpace(r.URL.Query().Get("ip")),
	}
	if identity.UserID == "" && identity.IPAddress == "" {
		utils.SendErrorResponse(w, r, apperrors.NewValidationError("userId or ip query parameter is required"))
		return
	}

	status, err := h.rateLimits.GetRateLimitStatus(r.Context(), identity)
	if err != nil {
		utils.SendErrorResponse(w, r, err)
		return
	}
	utils.SendJSONResponse(w, r, http.StatusOK, status)
}

// ResetRateLimits deletes today's rows for the identity given in the query;
// without one it clears the whole day.
func (h *RateLimitHandler) ResetRateLimits(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	ip := strings.TrimSpace(r.URL.Query().Get("ip"))

	deleted, err := h.rateLimits.ResetRateLimits(r.Context(), userID, ip)
	if err != nil {
		utils.SendErrorResponse(w, r, err)
		return
	}

	utils.SendJSONResponse(w, r, http.StatusOK, models.ResetResponse{
		Message:      "rate limits reset",
		DeletedCount: deleted,
	})
}

func (h *RateLimitHandler) RunCleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.cleanup.RunOnce(r.Context())
	if err != nil {
		utils.SendErrorResponse(w, r, err)
		return
	}

	utils.SendJSONResponse(w, r, http.StatusOK, models.CleanupResponse{
		Message:      "cleanup completed",
		DeletedCount: deleted,
	})
}
