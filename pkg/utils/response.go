// pkg/utils/response.go
package utils

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"seo-insights-backend/internal/models"
	apperrors "seo-insights-backend/pkg/errors"

	"github.com/go-chi/render"
	"go.uber.org/zap"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// SendJSONResponse renders data as JSON with the given status code.
func SendJSONResponse(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	render.Status(r, statusCode)
	render.JSON(w, r, data)
}

// SendErrorResponse maps err to its status code. Errors that are not an
// AppError are reported as a generic 500 without leaking their text.
func SendErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := apperrors.GetStatusCode(err)

	response := models.ErrorResponse{
		Error: "internal server error",
		Type:  apperrors.ErrInternalServer,
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		response.Error = appErr.Message
		response.Type = appErr.Type
		if statusCode < http.StatusInternalServerError {
			response.Details = appErr.Details
		}
	}

	if statusCode >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", statusCode),
			zap.Error(err),
		)
	}

	SendJSONResponse(w, r, statusCode, response)
}

// DecodeJSON decodes the request body into v, answering 400 on failure.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		SendErrorResponse(w, r, apperrors.NewValidationError("invalid request body", err.Error()))
		return false
	}
	return true
}

// SetRateLimitHeaders writes the conventional rate limit headers for avail.
// Retry-After is only set when the caller is blocked.
func SetRateLimitHeaders(w http.ResponseWriter, avail *models.Availability, now time.Time) {
	if avail == nil {
		return
	}

	h := w.Header()
	h.Set(HeaderRateLimitLimit, strconv.Itoa(avail.Limit))
	h.Set(HeaderRateLimitRemaining, strconv.Itoa(avail.RemainingRequests))
	h.Set(HeaderRateLimitReset, avail.ResetTime)

	if avail.Available {
		return
	}

	reset, err := time.Parse(time.RFC3339, avail.ResetTime)
	if err != nil {
		return
	}
	seconds := int64(math.Ceil(reset.Sub(now).Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	h.Set(HeaderRetryAfter, strconv.FormatInt(seconds, 10))
}
