// internal/repository/interfaces.go
package repository

import (
	"context"
	"time"

	"seo-insights-backend/internal/models"
)

// RateLimitRepository persists daily usage rows. Every method is a small
// number of single-document or single-pipeline round trips; implementations
// keep no in-process state so any number of service instances can share them.
type RateLimitRepository interface {
	// FindRecord returns nil, nil when no row exists for the window.
	FindRecord(ctx context.Context, scope models.ScopeType, key, service string, windowStart time.Time) (*models.UsageRecord, error)
	// IncrementRecord atomically upserts the row and adds one to its count.
	IncrementRecord(ctx context.Context, scope models.ScopeType, key, service string, windowStart, now time.Time, ttl time.Duration) error
	GlobalUsage(ctx context.Context, service string, windowStart time.Time) (int64, error)
	DailySummary(ctx context.Context, service string, windowStart time.Time) (*models.DailySummary, error)
	// DeleteRecords removes the matching rows of one window. Empty userID and
	// ipAddress select every row of the window.
	DeleteRecords(ctx context.Context, service string, windowStart time.Time, userID, ipAddress string) (int64, error)
	DeleteExpired(ctx context.Context, service string, cutoff time.Time) (int64, error)
}

type InsightRepository interface {
	Create(ctx context.Context, insight *models.Insight) error
	GetByUserID(ctx context.Context, userID string, limit, skip int) ([]models.Insight, error)
}
