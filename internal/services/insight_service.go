// internal/services/insight_service.go
package services

import (
	"context"
	"net/http"

	"seo-insights-backend/internal/clock"
	"seo-insights-backend/internal/metrics"
	"seo-insights-backend/internal/models"
	"seo-insights-backend/internal/repository"
	apperrors "seo-insights-backend/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

type InsightService interface {
	// GenerateInsight returns a result without an insight when the caller is
	// blocked; blocking is not an error.
	GenerateInsight(ctx context.Context, identity models.Identity, req *models.InsightRequest) (*models.InsightResult, error)
	GetHistory(ctx context.Context, userID string, limit, skip int) (*models.InsightHistoryResponse, error)
}

type insightService struct {
	rateLimits  RateLimitService
	generator   InsightGenerator
	insightRepo repository.InsightRepository
	clock       clock.Clock
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewInsightService wires the orchestration. insightRepo may be nil, in which
// case insights are not persisted and history is unavailable.
func NewInsightService(
	rateLimits RateLimitService,
	generator InsightGenerator,
	insightRepo repository.InsightRepository,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) InsightService {
	return &insightService{
		rateLimits:  rateLimits,
		generator:   generator,
		insightRepo: insightRepo,
		clock:       clk,
		metrics:     m,
		logger:      logger.Named("insights"),
	}
}

func (s *insightService) GenerateInsight(ctx context.Context, identity models.Identity, req *models.InsightRequest) (*models.InsightResult, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.NewValidationError("invalid insight request", err.Error())
	}

	avail, err := s.rateLimits.CheckAvailability(ctx, identity)
	if err != nil {
		s.logger.Warn("availability check degraded", zap.Error(err))
	}
	if !avail.Available {
		return &models.InsightResult{Availability: avail}, nil
	}

	insight := &models.Insight{
		RequestID: uuid.NewString(),
		UserID:    identity.UserID,
		IPAddress: identity.IPAddress,
		URL:       req.URL,
		Score:     req.Score,
		Source:    models.InsightSourceAI,
		Model:     s.generator.Model(),
	}

	text, err := s.generator.Generate(ctx, req)
	if err != nil {
		s.logger.Warn("insight generation failed, using fallback",
			zap.String("request_id", insight.RequestID),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		text = FallbackInsight(req)
		insight.Source = models.InsightSourceFallback
		insight.Model = ""
	}
	insight.Text = text
	s.metrics.RecordInsight(string(insight.Source))

	// The attempt is charged whether or not the model answered.
	if err := s.rateLimits.IncrementUsage(ctx, identity); err != nil {
		s.logger.Error("failed to record usage",
			zap.String("request_id", insight.RequestID),
			zap.Error(err),
		)
	}

	if s.insightRepo != nil {
		insight.CreatedAt = s.clock.Now()
		if err := s.insightRepo.Create(ctx, insight); err != nil {
			s.logger.Error("failed to persist insight",
				zap.String("request_id", insight.RequestID),
				zap.Error(err),
			)
		}
	}

	after, err := s.rateLimits.CheckAvailability(ctx, identity)
	if err != nil {
		s.logger.Warn("availability recheck degraded", zap.Error(err))
	}

	return &models.InsightResult{
		Insight:      insight,
		Availability: after,
	}, nil
}

func (s *insightService) GetHistory(ctx context.Context, userID string, limit, skip int) (*models.InsightHistoryResponse, error) {
	if s.insightRepo == nil {
		return nil, apperrors.NewAppError(apperrors.ErrServiceUnavailable, http.StatusServiceUnavailable, "insight history is not available")
	}
	if userID == "" {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if skip < 0 {
		skip = 0
	}

	insights, err := s.insightRepo.GetByUserID(ctx, userID, limit, skip)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer, http.StatusInternalServerError, "failed to load insight history")
	}

	return &models.InsightHistoryResponse{
		UserID:   userID,
		Insights: insights,
		Total:    len(insights),
		Pagination: models.Paging{
			Limit: limit,
			Skip:  skip,
		},
	}, nil
}
