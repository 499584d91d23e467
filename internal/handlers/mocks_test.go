package handlers

import (
	"context"
	"time"

	"seo-insights-backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockRateLimitService struct {
	mock.Mock
}

func (m *mockRateLimitService) CheckAvailability(ctx context.Context, identity models.Identity) (*models.Availability, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(*models.Availability), args.Error(1)
}

func (m *mockRateLimitService) IncrementUsage(ctx context.Context, identity models.Identity) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *mockRateLimitService) GetNextResetTime() time.Time {
	return m.Called().Get(0).(time.Time)
}

func (m *mockRateLimitService) GetGlobalUsage(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRateLimitService) GetUsageStats(ctx context.Context) (*models.UsageStats, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*models.UsageStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRateLimitService) ResetRateLimits(ctx context.Context, userID, ipAddress string) (int64, error) {
	args := m.Called(ctx, userID, ipAddress)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRateLimitService) GetRateLimitStatus(ctx context.Context, identity models.Identity) (*models.RateLimitStatus, error) {
	args := m.Called(ctx, identity)
	if v := args.Get(0); v != nil {
		return v.(*models.RateLimitStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRateLimitService) Cleanup(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockInsightService struct {
	mock.Mock
}

func (m *mockInsightService) GenerateInsight(ctx context.Context, identity models.Identity, req *models.InsightRequest) (*models.InsightResult, error) {
	args := m.Called(ctx, identity, req)
	if v := args.Get(0); v != nil {
		return v.(*models.InsightResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInsightService) GetHistory(ctx context.Context, userID string, limit, skip int) (*models.InsightHistoryResponse, error) {
	args := m.Called(ctx, userID, limit, skip)
	if v := args.Get(0); v != nil {
		return v.(*models.InsightHistoryResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type stubCleanupRunner struct {
	deleted int64
	err     error
}

func (s stubCleanupRunner) RunOnce(ctx context.Context) (int64, error) {
	return s.deleted, s.err
}
