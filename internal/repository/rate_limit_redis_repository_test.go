package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"seo-insights-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (RateLimitRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	mr.SetTime(testNow)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisRateLimitRepository(client), mr
}

func TestRedisRateLimitRepositoryIncrementAndFind(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	record, err := repo.FindRecord(ctx, models.ScopeUser, "u1", "ai_analysis", testWindow)
	require.NoError(t, err)
	assert.Nil(t, record)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.IncrementRecord(ctx, models.ScopeUser, "u1", "ai_analysis", testWindow, testNow, 25*time.Hour))
	}

	record, err = repo.FindRecord(ctx, models.ScopeUser, "u1", "ai_analysis", testWindow)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 3, record.RequestCount)
	assert.True(t, record.LastRequestAt.Equal(testNow))
	assert.True(t, record.ExpiresAt.Equal(testWindow.Add(25*time.Hour)))

	key := "ratelimit:{ai_analysis:2025-03-10}:user:u1"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, testWindow.Add(25*time.Hour).Sub(testNow), mr.TTL(key))
}

func TestRedisRateLimitRepositoryServicesAreIsolated(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.IncrementRecord(ctx, models.ScopeIP, "10.0.0.1", "ai_analysis", testWindow, testNow, 25*time.Hour))
	require.NoError(t, repo.IncrementRecord(ctx, models.ScopeIP, "10.0.0.1", "other", testWindow, testNow, 25*time.Hour))

	total, err := repo.GlobalUsage(ctx, "ai_analysis", testWindow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestRedisRateLimitRepositoryGlobalUsageAndSummary(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	total, err := repo.GlobalUsage(ctx, "ai_analysis", testWindow)
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, repo.IncrementRecord(ctx, models.ScopeUser, "u1", "ai_analysis", testWindow, testNow, 25*time.Hour))
	require.NoError(t, repo.IncrementRecord(ctx, models.ScopeIP, "10.0.0.1", "ai_analysis", testWindow, testNow, 25*time.Hour))
	require.NoError(t, repo.IncrementRecord(ctx, models.ScopeIP, "10.0.0.1", "ai_analysis", testWindow, testNow, 25*time.Hour))
	require.NoError(t, repo.IncrementRecord(ctx, models.ScopeIP, "10.0.0.2", "ai_analysis", testWindow, testNow, 25*time.Hour))

	total, err = repo.GlobalUsage(ctx, "ai_analysis", testWindow)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	summary, err := repo.DailySummary(ctx, "ai_analysis", testWindow)
	require.NoError(t, err)
	assert.Equal(t, &models.DailySummary{TotalRequests: 4, UniqueUsers: 1, UniqueIPs: 2}, summary)
}

func TestRedisRateLimitRepositoryDeleteRecords(t *testing.T) {
	t.Run("one identity", func(t *testing.T) {
		repo, _ := newRedisRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.IncrementRecord(ctx, models.ScopeUser, "u1", "ai_analysis", testWindow, testNow, 25*time.Hour))
		require.NoError(t, repo.IncrementRecord(ctx, models.ScopeIP, "10.0.0.1", "ai_analysis", testWindow, testNow, 25*time.Hour))
		require.NoError(t, repo.IncrementRecord(ctx, models.ScopeIP, "10.0.0.2", "ai_analysis", testWindow, testNow, 25*time.Hour))

		deleted, err := repo.DeleteRecords(ctx, "ai_analysis", testWindow, "u1", "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		total, err := repo.GlobalUsage(ctx, "ai_analysis", testWindow)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		summary, err := repo.DailySummary(ctx, "ai_analysis", testWindow)
		require.NoError(t, err)
		assert.Equal(t, int64(0), summary.UniqueUsers)
		assert.Equal(t, int64(1), summary.UniqueIPs)
	})

	t.Run("missing identity", func(t *testing.T) {
		repo, _ := newRedisRepo(t)

		deleted, err := repo.DeleteRecords(context.Background(), "ai_analysis", testWindow, "", "10.9.9.9")
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})

	t.Run("whole day", func(t *testing.T) {
		repo, mr := newRedisRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.IncrementRecord(ctx, models.ScopeUser, "u1", "ai_analysis", testWindow, testNow, 25*time.Hour))
		require.NoError(t, repo.IncrementRecord(ctx, models.ScopeIP, "10.0.0.1", "ai_analysis", testWindow, testNow, 25*time.Hour))
		require.NoError(t, repo.IncrementRecord(ctx, models.ScopeIP, "10.0.0.1", "other", testWindow, testNow, 25*time.Hour))

		deleted, err := repo.DeleteRecords(ctx, "ai_analysis", testWindow, "", "")
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		total, err := repo.GlobalUsage(ctx, "ai_analysis", testWindow)
		require.NoError(t, err)
		assert.Zero(t, total)

		assert.True(t, mr.Exists("ratelimit:{other:2025-03-10}:ip:10.0.0.1"))
	})
}

func TestRedisRateLimitRepositoryRowsExpire(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.IncrementRecord(ctx, models.ScopeUser, "u1", "ai_analysis", testWindow, testNow, 25*time.Hour))

	mr.FastForward(testWindow.Add(25 * time.Hour).Sub(testNow))

	record, err := repo.FindRecord(ctx, models.ScopeUser, "u1", "ai_analysis", testWindow)
	require.NoError(t, err)
	assert.Nil(t, record)

	deleted, err := repo.DeleteExpired(ctx, "ai_analysis", testNow)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestRedisRateLimitRepositoryFindRecordCorruptRow(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.IncrementRecord(ctx, models.ScopeUser, "u1", "ai_analysis", testWindow, testNow, 25*time.Hour))
	mr.HSet("ratelimit:{ai_analysis:2025-03-10}:user:u1", "lastRequestAt", "yesterday")

	record, err := repo.FindRecord(ctx, models.ScopeUser, "u1", "ai_analysis", testWindow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode lastRequestAt")
	assert.Nil(t, record)
}

func TestRedisRateLimitRepositoryConcurrentIncrements(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- repo.IncrementRecord(ctx, models.ScopeUser, "u1", "ai_analysis", testWindow, testNow, 25*time.Hour)
		}()
		go func() {
			defer wg.Done()
			errs <- repo.IncrementRecord(ctx, models.ScopeIP, "10.0.0.1", "ai_analysis", testWindow, testNow, 25*time.Hour)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for _, row := range []struct {
		scope models.ScopeType
		key   string
	}{{models.ScopeUser, "u1"}, {models.ScopeIP, "10.0.0.1"}} {
		record, err := repo.FindRecord(ctx, row.scope, row.key, "ai_analysis", testWindow)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, n, record.RequestCount, string(row.scope))
	}

	total, err := repo.GlobalUsage(ctx, "ai_analysis", testWindow)
	require.NoError(t, err)
	assert.Equal(t, int64(2*n), total)
}

func TestRedisRateLimitRepositoryResetUnderTrafficKeepsTotal(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.IncrementRecord(ctx, models.ScopeUser, "u1", "ai_analysis", testWindow, testNow, 25*time.Hour))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.IncrementRecord(ctx, models.ScopeIP, "10.0.0.1", "ai_analysis", testWindow, testNow, 25*time.Hour))
		}()
		go func() {
			defer wg.Done()
			_, err := repo.DeleteRecords(ctx, "ai_analysis", testWindow, "", "10.0.0.1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var rows int64
	for _, row := range []struct {
		scope models.ScopeType
		key   string
	}{{models.ScopeUser, "u1"}, {models.ScopeIP, "10.0.0.1"}} {
		record, err := repo.FindRecord(ctx, row.scope, row.key, "ai_analysis", testWindow)
		require.NoError(t, err)
		if record != nil {
			rows += int64(record.RequestCount)
		}
	}

	total, err := repo.GlobalUsage(ctx, "ai_analysis", testWindow)
	require.NoError(t, err)
	assert.Equal(t, rows, total)

	user, err := repo.FindRecord(ctx, models.ScopeUser, "u1", "ai_analysis", testWindow)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, n, user.RequestCount)
}
