// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"seo-insights-backend/internal/clock"
	"seo-insights-backend/internal/config"
	"seo-insights-backend/internal/database"
	"seo-insights-backend/internal/handlers"
	"seo-insights-backend/internal/metrics"
	"seo-insights-backend/internal/repository"
	"seo-insights-backend/internal/routes"
	"seo-insights-backend/internal/scheduler"
	"seo-insights-backend/internal/services"
)

func initLogger(env string) *zap.Logger {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// Customize time format
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}

func main() {
	// Initialize logger first
	logger := initLogger(os.Getenv("ENV"))
	defer logger.Sync() // Flush any buffered log entries

	// Replace global logger
	zap.ReplaceGlobals(logger)

	logger.Info("Starting seo-insights-backend server")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded successfully",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.RateLimit.Store),
		zap.Int("daily_limit", cfg.RateLimit.DailyLimit),
		zap.Int("global_daily_limit", cfg.RateLimit.GlobalDailyLimit),
		zap.Bool("fail_open", cfg.RateLimit.FailOpen))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pingers := map[string]handlers.Pinger{}

	// MongoDB backs insight history and, by default, the usage rows
	var db *database.MongoDB
	if cfg.Database.URI != "" {
		db, err = database.NewMongoDB(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize database", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.Close(ctx); err != nil {
				logger.Error("Error closing database connection", zap.Error(err))
			}
		}()
		pingers["mongodb"] = db
		logger.Info("Successfully connected to MongoDB")
	}

	var rdb *redis.Client
	if cfg.RateLimit.Store == config.StoreRedis {
		rdb, err = database.NewRedis(cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to initialize redis", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error("Error closing redis connection", zap.Error(err))
			}
		}()
		pingers["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	// Initialize repositories
	logger.Debug("Initializing repositories")
	var rateLimitRepo repository.RateLimitRepository
	switch cfg.RateLimit.Store {
	case config.StoreRedis:
		rateLimitRepo = repository.NewRedisRateLimitRepository(rdb)
	default:
		rateLimitRepo = repository.NewRateLimitRepository(db.GetCollection(database.RateLimitsCollection))
	}

	var insightRepo repository.InsightRepository
	if db != nil {
		insightRepo = repository.NewInsightRepository(db.GetCollection(database.InsightsCollection))
	} else {
		logger.Warn("MONGODB_URI not set, insight history is disabled")
	}

	// Initialize services
	logger.Debug("Initializing services")
	clk := clock.New()
	m := metrics.New(prometheus.DefaultRegisterer)

	generator, err := services.NewInsightGenerator(ctx, cfg.AI, logger)
	if err != nil {
		logger.Fatal("Failed to initialize insight generator", zap.Error(err))
	}
	if !generator.Enabled() {
		logger.Warn("GEMINI_API_KEY not set, AI insights are disabled")
	}

	rateLimitService := services.NewRateLimitService(cfg.RateLimit, rateLimitRepo, generator.Enabled, clk, m, logger)
	insightService := services.NewInsightService(rateLimitService, generator, insightRepo, clk, m, logger)

	cleanup := scheduler.NewCleanupScheduler(rateLimitService, cfg.RateLimit.CleanupSchedule, logger)
	if err := cleanup.Start(ctx); err != nil {
		logger.Fatal("Failed to start cleanup scheduler", zap.Error(err))
	}

	logger.Info("All services initialized successfully")

	// Initialize handlers
	logger.Debug("Initializing handlers")
	h := &routes.Handlers{
		Health:    handlers.NewHealthHandler(cfg.RateLimit.Store, generator.Enabled(), pingers),
		Insight:   handlers.NewInsightHandler(rateLimitService, insightService, clk, logger),
		RateLimit: handlers.NewRateLimitHandler(rateLimitService, cleanup),
		Metrics:   promhttp.Handler(),
	}

	// Setup routes
	logger.Debug("Setting up routes")
	router := routes.SetupRoutes(h, cfg.Auth.JWTSecret, logger)

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("address", serverAddr),
			zap.Duration("read_timeout", server.ReadTimeout),
			zap.Duration("write_timeout", server.WriteTimeout),
			zap.Duration("idle_timeout", server.IdleTimeout))

		// Log available endpoints
		endpoints := []struct {
			method      string
			path        string
			description string
			auth        string
		}{
			{"GET", "/", "Health check", "None"},
			{"GET", "/health", "Health check", "None"},
			{"GET", "/metrics", "Prometheus metrics", "None"},
			{"GET", "/api/v1/ai-insights/availability", "Remaining daily quota", "Optional bearer token"},
			{"POST", "/api/v1/ai-insights", "Generate an SEO insight", "Optional bearer token"},
			{"GET", "/api/v1/ai-insights/history", "Caller's insight history", "Bearer token"},
			{"GET", "/api/v1/admin/rate-limits/stats", "Today's usage statistics", "Admin only"},
			{"GET", "/api/v1/admin/rate-limits/status", "Usage rows for one identity", "Admin only"},
			{"DELETE", "/api/v1/admin/rate-limits", "Reset today's usage", "Admin only"},
			{"POST", "/api/v1/admin/rate-limits/cleanup", "Delete expired usage rows", "Admin only"},
		}

		logger.Info("Available endpoints", zap.Int("count", len(endpoints)))
		for _, endpoint := range endpoints {
			logger.Debug("Endpoint registered",
				zap.String("method", endpoint.method),
				zap.String("path", endpoint.path),
				zap.String("description", endpoint.description),
				zap.String("auth", endpoint.auth))
		}

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Received shutdown signal, shutting down server gracefully")
	cleanup.Stop()
	stop()

	// Gracefully shutdown the server with a timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}
