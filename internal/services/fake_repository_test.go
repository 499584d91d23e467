package services

import (
	"context"
	"sync"
	"time"

	"seo-insights-backend/internal/models"
)

type rowKey struct {
	scope       models.ScopeType
	key         string
	service     string
	windowStart time.Time
}

// memoryRateLimitRepository is an in-memory RateLimitRepository for service tests.
type memoryRateLimitRepository struct {
	mu    sync.Mutex
	rows  map[rowKey]*models.UsageRecord
	calls int

	findErr      error
	incrementErr map[models.ScopeType]error
	globalErr    error
	deleteErr    error
}

func newMemoryRepo() *memoryRateLimitRepository {
	return &memoryRateLimitRepository{
		rows:         make(map[rowKey]*models.UsageRecord),
		incrementErr: make(map[models.ScopeType]error),
	}
}

func (r *memoryRateLimitRepository) seed(scope models.ScopeType, key, service string, windowStart time.Time, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[rowKey{scope, key, service, windowStart}] = &models.UsageRecord{
		ScopeType:    scope,
		ScopeKey:     key,
		Service:      service,
		RequestCount: count,
		WindowStart:  windowStart,
	}
}

func (r *memoryRateLimitRepository) count(scope models.ScopeType, key, service string, windowStart time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[rowKey{scope, key, service, windowStart}]; ok {
		return row.RequestCount
	}
	return 0
}

func (r *memoryRateLimitRepository) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *memoryRateLimitRepository) FindRecord(ctx context.Context, scope models.ScopeType, key, service string, windowStart time.Time) (*models.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.findErr != nil {
		return nil, r.findErr
	}
	row, ok := r.rows[rowKey{scope, key, service, windowStart}]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *memoryRateLimitRepository) IncrementRecord(ctx context.Context, scope models.ScopeType, key, service string, windowStart, now time.Time, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if err := r.incrementErr[scope]; err != nil {
		return err
	}
	k := rowKey{scope, key, service, windowStart}
	row, ok := r.rows[k]
	if !ok {
		row = &models.UsageRecord{
			ScopeType:   scope,
			ScopeKey:    key,
			Service:     service,
			WindowStart: windowStart,
			CreatedAt:   now,
			ExpiresAt:   windowStart.Add(ttl),
		}
		r.rows[k] = row
	}
	row.RequestCount++
	row.LastRequestAt = now
	return nil
}

func (r *memoryRateLimitRepository) GlobalUsage(ctx context.Context, service string, windowStart time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.globalErr != nil {
		return 0, r.globalErr
	}
	var total int64
	for k, row := range r.rows {
		if k.service == service && k.windowStart.Equal(windowStart) {
			total += int64(row.RequestCount)
		}
	}
	return total, nil
}

func (r *memoryRateLimitRepository) DailySummary(ctx context.Context, service string, windowStart time.Time) (*models.DailySummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.globalErr != nil {
		return nil, r.globalErr
	}
	summary := &models.DailySummary{}
	for k, row := range r.rows {
		if k.service != service || !k.windowStart.Equal(windowStart) {
			continue
		}
		summary.TotalRequests += int64(row.RequestCount)
		switch k.scope {
		case models.ScopeUser:
			summary.UniqueUsers++
		case models.ScopeIP:
			summary.UniqueIPs++
		}
	}
	return summary, nil
}

func (r *memoryRateLimitRepository) DeleteRecords(ctx context.Context, service string, windowStart time.Time, userID, ipAddress string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	var deleted int64
	for k := range r.rows {
		if k.service != service || !k.windowStart.Equal(windowStart) {
			continue
		}
		all := userID == "" && ipAddress == ""
		matchUser := userID != "" && k.scope == models.ScopeUser && k.key == userID
		matchIP := ipAddress != "" && k.scope == models.ScopeIP && k.key == ipAddress
		if all || matchUser || matchIP {
			delete(r.rows, k)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memoryRateLimitRepository) DeleteExpired(ctx context.Context, service string, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	var deleted int64
	for k := range r.rows {
		if k.service == service && k.windowStart.Before(cutoff) {
			delete(r.rows, k)
			deleted++
		}
	}
	return deleted, nil
}
