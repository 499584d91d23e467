package services

import (
	"time"

	"seo-insights-backend/internal/models"
)

// StartOfDayUTC returns 00:00:00 UTC of the day t falls on in UTC.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// NextResetTime returns the next UTC midnight. It is always strictly after t.
func NextResetTime(t time.Time) time.Time {
	return StartOfDayUTC(t).AddDate(0, 0, 1)
}

func RemainingQuota(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}

// MergeUsage picks the most restrictive of the two rows. Missing rows count
// as zero; on a tie the user scope is reported.
func MergeUsage(userRow, ipRow *models.UsageRecord) models.EffectiveUsage {
	var usage models.EffectiveUsage
	if userRow != nil {
		usage.UserCount = userRow.RequestCount
	}
	if ipRow != nil {
		usage.IPCount = ipRow.RequestCount
	}

	switch {
	case userRow != nil && usage.UserCount >= usage.IPCount:
		usage.RequestCount = usage.UserCount
		usage.Scope = models.ScopeUser
	case ipRow != nil:
		usage.RequestCount = usage.IPCount
		usage.Scope = models.ScopeIP
	}
	return usage
}
