package services

import (
	"testing"
	"time"

	"seo-insights-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestNextResetTime(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	newYork := time.FixedZone("EST", -5*3600)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "mid day",
			now:  time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC),
			want: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly midnight moves to the next day",
			now:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "last nanosecond of the day",
			now:  time.Date(2025, 3, 10, 23, 59, 59, 999999999, time.UTC),
			want: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "end of month",
			now:  time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "end of year",
			now:  time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC),
			want: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "ahead of utc",
			now:  time.Date(2025, 3, 11, 7, 0, 0, 0, tokyo), // 2025-03-10 22:00 UTC
			want: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "behind utc",
			now:  time.Date(2025, 3, 10, 21, 0, 0, 0, newYork), // 2025-03-11 02:00 UTC
			want: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextResetTime(tt.now)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.After(tt.now))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestStartOfDayUTC(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	got := StartOfDayUTC(time.Date(2025, 3, 11, 7, 0, 0, 0, tokyo))
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestRemainingQuota(t *testing.T) {
	assert.Equal(t, 10, RemainingQuota(10, 0))
	assert.Equal(t, 2, RemainingQuota(10, 8))
	assert.Equal(t, 0, RemainingQuota(10, 10))
	assert.Equal(t, 0, RemainingQuota(10, 14))
}

func TestMergeUsage(t *testing.T) {
	row := func(scope models.ScopeType, n int) *models.UsageRecord {
		return &models.UsageRecord{ScopeType: scope, RequestCount: n}
	}

	tests := []struct {
		name string
		user *models.UsageRecord
		ip   *models.UsageRecord
		want models.EffectiveUsage
	}{
		{
			name: "no rows",
			want: models.EffectiveUsage{},
		},
		{
			name: "user row wins when higher",
			user: row(models.ScopeUser, 8),
			ip:   row(models.ScopeIP, 3),
			want: models.EffectiveUsage{RequestCount: 8, Scope: models.ScopeUser, UserCount: 8, IPCount: 3},
		},
		{
			name: "ip row wins when higher",
			user: row(models.ScopeUser, 4),
			ip:   row(models.ScopeIP, 6),
			want: models.EffectiveUsage{RequestCount: 6, Scope: models.ScopeIP, UserCount: 4, IPCount: 6},
		},
		{
			name: "ip only",
			ip:   row(models.ScopeIP, 2),
			want: models.EffectiveUsage{RequestCount: 2, Scope: models.ScopeIP, IPCount: 2},
		},
		{
			name: "user only",
			user: row(models.ScopeUser, 5),
			want: models.EffectiveUsage{RequestCount: 5, Scope: models.ScopeUser, UserCount: 5},
		},
		{
			name: "tie reports user",
			user: row(models.ScopeUser, 3),
			ip:   row(models.ScopeIP, 3),
			want: models.EffectiveUsage{RequestCount: 3, Scope: models.ScopeUser, UserCount: 3, IPCount: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeUsage(tt.user, tt.ip))
		})
	}
}
