// internal/services/rate_limit_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"seo-insights-backend/internal/clock"
	"seo-insights-backend/internal/config"
	"seo-insights-backend/internal/metrics"
	"seo-insights-backend/internal/models"
	"seo-insights-backend/internal/repository"
	apperrors "seo-insights-backend/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	reasonServiceDisabled  = "AI insights service is not configured"
	reasonStoreUnavailable = "unable to verify availability"
)

type RateLimitService interface {
	CheckAvailability(ctx context.Context, identity models.Identity) (*models.Availability, error)
	IncrementUsage(ctx context.Context, identity models.Identity) error
	GetNextResetTime() time.Time
	GetGlobalUsage(ctx context.Context) (int64, error)
	GetUsageStats(ctx context.Context) (*models.UsageStats, error)
	ResetRateLimits(ctx context.Context, userID, ipAddress string) (int64, error)
	GetRateLimitStatus(ctx context.Context, identity models.Identity) (*models.RateLimitStatus, error)
	Cleanup(ctx context.Context) (int64, error)
}

type rateLimitService struct {
	cfg     config.RateLimitConfig
	repo    repository.RateLimitRepository
	enabled func() bool
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRateLimitService builds the limiter. enabled reports whether the AI
// collaborator is configured; when it returns false no store call is made.
func NewRateLimitService(
	cfg config.RateLimitConfig,
	repo repository.RateLimitRepository,
	enabled func() bool,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) RateLimitService {
	return &rateLimitService{
		cfg:     cfg,
		repo:    repo,
		enabled: enabled,
		clock:   clk,
		metrics: m,
		logger:  logger.Named("ratelimit"),
	}
}

func (s *rateLimitService) CheckAvailability(ctx context.Context, identity models.Identity) (result *models.Availability, err error) {
	started := time.Now()
	defer func() {
		s.metrics.RecordCheck(result.Available, string(result.ReasonCode), time.Since(started))
	}()

	now := s.clock.Now()
	windowStart := StartOfDayUTC(now)
	resetTime := NextResetTime(now).Format(time.RFC3339)

	result = &models.Availability{
		Limit:     s.cfg.DailyLimit,
		ResetTime: resetTime,
	}

	if !s.enabled() {
		result.Reason = reasonServiceDisabled
		result.ReasonCode = models.ReasonServiceDisabled
		return result, nil
	}

	globalUsage, err := s.repo.GlobalUsage(ctx, s.cfg.Service, windowStart)
	if err != nil {
		return s.storeFailure(result, "global_usage", err)
	}
	s.metrics.SetGlobalUsage(s.cfg.Service, globalUsage)

	if globalUsage >= int64(s.cfg.GlobalDailyLimit) {
		result.Reason = fmt.Sprintf("global daily limit reached, resets at %s", resetTime)
		result.ReasonCode = models.ReasonGlobalLimit
		return result, nil
	}

	userRow, ipRow, err := s.findRows(ctx, identity, windowStart)
	if err != nil {
		return s.storeFailure(result, "find_record", err)
	}

	usage := MergeUsage(userRow, ipRow)
	result.RequestCount = usage.RequestCount
	result.RemainingRequests = RemainingQuota(s.cfg.DailyLimit, usage.RequestCount)

	if result.RemainingRequests <= 0 {
		result.Reason = fmt.Sprintf("daily limit reached, resets at %s", resetTime)
		result.ReasonCode = models.ReasonDailyLimit
		return result, nil
	}

	result.Available = true
	return result, nil
}

// storeFailure applies the configured policy to a store error. The result is
// usable either way; the error is returned so callers can log it.
func (s *rateLimitService) storeFailure(result *models.Availability, operation string, err error) (*models.Availability, error) {
	s.metrics.RecordStoreError(operation)
	s.logger.Error("rate limit store error",
		zap.String("operation", operation),
		zap.Bool("fail_open", s.cfg.FailOpen),
		zap.Error(err),
	)

	if s.cfg.FailOpen {
		result.Available = true
		result.RemainingRequests = s.cfg.DailyLimit
		result.RequestCount = 0
		result.Reason = ""
		result.ReasonCode = ""
	} else {
		result.Available = false
		result.RemainingRequests = 0
		result.Reason = reasonStoreUnavailable
		result.ReasonCode = models.ReasonStoreUnavailable
	}
	return result, apperrors.NewStoreUnavailableError(err)
}

// findRows loads today's user and IP rows concurrently. A missing scope key
// yields a nil row without a store call.
func (s *rateLimitService) findRows(ctx context.Context, identity models.Identity, windowStart time.Time) (userRow, ipRow *models.UsageRecord, err error) {
	g, gctx := errgroup.WithContext(ctx)

	if identity.UserID != "" {
		g.Go(func() error {
			var err error
			userRow, err = s.repo.FindRecord(gctx, models.ScopeUser, identity.UserID, s.cfg.Service, windowStart)
			return err
		})
	}
	if identity.IPAddress != "" {
		g.Go(func() error {
			var err error
			ipRow, err = s.repo.FindRecord(gctx, models.ScopeIP, identity.IPAddress, s.cfg.Service, windowStart)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return userRow, ipRow, nil
}

// IncrementUsage charges one attempt to both scopes. The two upserts are
// independent: a failure of one never undoes the other, so a partial failure
// under-counts a single scope until the next increment.
func (s *rateLimitService) IncrementUsage(ctx context.Context, identity models.Identity) error {
	if identity.UserID == "" && identity.IPAddress == "" {
		return apperrors.NewValidationError("identity requires a user id or an ip address")
	}

	now := s.clock.Now()
	windowStart := StartOfDayUTC(now)

	var g errgroup.Group
	if identity.UserID != "" {
		g.Go(func() error {
			return s.increment(ctx, models.ScopeUser, identity.UserID, windowStart, now)
		})
	}
	if identity.IPAddress != "" {
		g.Go(func() error {
			return s.increment(ctx, models.ScopeIP, identity.IPAddress, windowStart, now)
		})
	}

	if err := g.Wait(); err != nil {
		return apperrors.NewStoreUnavailableError(err)
	}
	return nil
}

func (s *rateLimitService) increment(ctx context.Context, scope models.ScopeType, key string, windowStart, now time.Time) error {
	if err := s.repo.IncrementRecord(ctx, scope, key, s.cfg.Service, windowStart, now, s.cfg.RecordTTL); err != nil {
		s.metrics.RecordStoreError("increment_" + string(scope))
		s.logger.Error("failed to increment usage",
			zap.String("scope", string(scope)),
			zap.Time("window_start", windowStart),
			zap.Error(err),
		)
		return fmt.Errorf("increment %s usage: %w", scope, err)
	}
	s.metrics.RecordIncrement(string(scope))
	return nil
}

func (s *rateLimitService) GetNextResetTime() time.Time {
	return NextResetTime(s.clock.Now())
}

func (s *rateLimitService) GetGlobalUsage(ctx context.Context) (int64, error) {
	total, err := s.repo.GlobalUsage(ctx, s.cfg.Service, StartOfDayUTC(s.clock.Now()))
	if err != nil {
		s.metrics.RecordStoreError("global_usage")
		return 0, apperrors.NewStoreUnavailableError(err)
	}
	s.metrics.SetGlobalUsage(s.cfg.Service, total)
	return total, nil
}

func (s *rateLimitService) GetUsageStats(ctx context.Context) (*models.UsageStats, error) {
	windowStart := StartOfDayUTC(s.clock.Now())

	summary, err := s.repo.DailySummary(ctx, s.cfg.Service, windowStart)
	if err != nil {
		s.metrics.RecordStoreError("daily_summary")
		return nil, apperrors.NewStoreUnavailableError(err)
	}
	s.metrics.SetGlobalUsage(s.cfg.Service, summary.TotalRequests)

	return &models.UsageStats{
		Daily: models.DailyUsage{
			Date:          windowStart.Format("2006-01-02"),
			TotalRequests: summary.TotalRequests,
			UniqueUsers:   summary.UniqueUsers,
			UniqueIPs:     summary.UniqueIPs,
		},
		Limits: s.limits(summary.TotalRequests),
	}, nil
}

func (s *rateLimitService) limits(globalUsage int64) models.UsageLimits {
	remaining := int64(s.cfg.GlobalDailyLimit) - globalUsage
	if remaining < 0 {
		remaining = 0
	}
	return models.UsageLimits{
		DailyLimit:       s.cfg.DailyLimit,
		GlobalDailyLimit: s.cfg.GlobalDailyLimit,
		GlobalRemaining:  remaining,
	}
}

// ResetRateLimits deletes today's rows for the given identity, or every row of
// today when both are empty. Repeating the call deletes nothing and succeeds.
func (s *rateLimitService) ResetRateLimits(ctx context.Context, userID, ipAddress string) (int64, error) {
	windowStart := StartOfDayUTC(s.clock.Now())

	deleted, err := s.repo.DeleteRecords(ctx, s.cfg.Service, windowStart, userID, ipAddress)
	if err != nil {
		s.metrics.RecordStoreError("delete_records")
		return 0, apperrors.NewStoreUnavailableError(err)
	}

	s.logger.Info("rate limits reset",
		zap.String("user_id", userID),
		zap.String("ip_address", ipAddress),
		zap.Time("window_start", windowStart),
		zap.Int64("deleted", deleted),
	)
	return deleted, nil
}

func (s *rateLimitService) GetRateLimitStatus(ctx context.Context, identity models.Identity) (*models.RateLimitStatus, error) {
	now := s.clock.Now()
	windowStart := StartOfDayUTC(now)

	var (
		userRow, ipRow *models.UsageRecord
		globalUsage    int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		userRow, ipRow, err = s.findRows(gctx, identity, windowStart)
		return err
	})
	g.Go(func() error {
		var err error
		globalUsage, err = s.repo.GlobalUsage(gctx, s.cfg.Service, windowStart)
		return err
	})
	if err := g.Wait(); err != nil {
		s.metrics.RecordStoreError("status")
		return nil, apperrors.NewStoreUnavailableError(err)
	}

	effective := MergeUsage(userRow, ipRow)

	return &models.RateLimitStatus{
		Service:     s.cfg.Service,
		Identity:    identity,
		UserRecord:  userRow,
		IPRecord:    ipRow,
		Effective:   effective,
		Remaining:   RemainingQuota(s.cfg.DailyLimit, effective.RequestCount),
		GlobalUsage: globalUsage,
		Limits:      s.limits(globalUsage),
		Now:         now,
		WindowStart: windowStart,
		NextReset:   NextResetTime(now),
	}, nil
}

// Cleanup removes rows whose window ended more than RecordTTL ago. It backs up
// the store's own expiry.
func (s *rateLimitService) Cleanup(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.cfg.RecordTTL)

	deleted, err := s.repo.DeleteExpired(ctx, s.cfg.Service, cutoff)
	if err != nil {
		s.metrics.RecordStoreError("delete_expired")
		return 0, apperrors.NewStoreUnavailableError(err)
	}

	s.metrics.RecordCleanup(deleted)
	if deleted > 0 {
		s.logger.Info("removed expired usage rows",
			zap.Time("cutoff", cutoff),
			zap.Int64("deleted", deleted),
		)
	}
	return deleted, nil
}
