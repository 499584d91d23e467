// internal/routes/routes.go
package routes

import (
	"net/http"
	"time"

	"seo-insights-backend/internal/handlers"
	"seo-insights-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handlers struct {
	Health    *handlers.HealthHandler
	Insight   *handlers.InsightHandler
	RateLimit *handlers.RateLimitHandler
	Metrics   http.Handler
}

func SetupRoutes(h *Handlers, jwtSecret string, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer())
	r.Use(middleware.Timeout(90 * time.Second))
	r.Use(middleware.CORS())

	// Health check routes
	r.Get("/", h.Health.HealthCheck)
	r.Get("/health", h.Health.HealthCheck)
	r.Method(http.MethodGet, "/metrics", h.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		// Anonymous callers are limited by IP only
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(jwtSecret))

			r.Route("/ai-insights", func(r chi.Router) {
				r.Get("/availability", h.Insight.GetAvailability)
				r.Post("/", h.Insight.GenerateInsight)
				r.Get("/history", h.Insight.GetHistory)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(jwtSecret))
			r.Use(middleware.AdminOnly())

			r.Route("/rate-limits", func(r chi.Router) {
				r.Get("/stats", h.RateLimit.GetStats)
				r.Get("/status", h.RateLimit.GetStatus)
				r.Delete("/", h.RateLimit.ResetRateLimits)
				r.Post("/cleanup", h.RateLimit.RunCleanup)
			})
		})
	})

	return r
}
