// internal/handlers/insights.go
package handlers

import (
	"net/http"
	"strconv"

	"seo-insights-backend/internal/clock"
	"seo-insights-backend/internal/middleware"
	"seo-insights-backend/internal/models"
	"seo-insights-backend/internal/services"
	apperrors "seo-insights-backend/pkg/errors"
	"seo-insights-backend/pkg/utils"

	"go.uber.org/zap"
)

type InsightHandler struct {
	rateLimits services.RateLimitService
	insights   services.InsightService
	clock      clock.Clock
	logger     *zap.Logger
}

func NewInsightHandler(rateLimits services.RateLimitService, insights services.InsightService, clk clock.Clock, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{
		rateLimits: rateLimits,
		insights:   insights,
		clock:      clk,
		logger:     logger.Named("insights_handler"),
	}
}

func identityFromRequest(r *http.Request) models.Identity {
	return models.Identity{
		UserID:    middleware.GetUserIDFromContext(r.Context()),
		IPAddress: middleware.ClientIP(r),
	}
}

// GetAvailability reports the caller's remaining quota. Being blocked is a
// normal answer here, so the status is always 200.
func (h *InsightHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	avail, err := h.rateLimits.CheckAvailability(r.Context(), identityFromRequest(r))
	if err != nil {
		h.logger.Warn("availability check degraded", zap.Error(err))
	}

	utils.SetRateLimitHeaders(w, avail, h.clock.Now())
	utils.SendJSONResponse(w, r, http.StatusOK, avail)
}

func (h *InsightHandler) GenerateInsight(w http.ResponseWriter, r *http.Request) {
	var req models.InsightRequest
	if !utils.DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.insights.GenerateInsight(r.Context(), identityFromRequest(r), &req)
	if err != nil {
		utils.SendErrorResponse(w, r, err)
		return
	}

	utils.SetRateLimitHeaders(w, result.Availability, h.clock.Now())

	if result.Insight == nil {
		utils.SendJSONResponse(w, r, blockedStatus(result.Availability), result)
		return
	}
	utils.SendJSONResponse(w, r, http.StatusOK, result)
}

// blockedStatus maps a refusal to 429 for quota exhaustion and to 503 when
// the feature or its store cannot serve the request at all.
func blockedStatus(avail *models.Availability) int {
	switch avail.ReasonCode {
	case models.ReasonServiceDisabled, models.ReasonStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusTooManyRequests
	}
}

func (h *InsightHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == "" {
		utils.SendErrorResponse(w, r, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	limit, skip := parsePaging(r)

	history, err := h.insights.GetHistory(r.Context(), userID, limit, skip)
	if err != nil {
		utils.SendErrorResponse(w, r, err)
		return
	}

	utils.SendJSONResponse(w, r, http.StatusOK, history)
}

func parsePaging(r *http.Request) (limit, skip int) {
	limit = services.DefaultHistoryLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("skip")); err == nil && v >= 0 {
		skip = v
	}
	return limit, skip
}
