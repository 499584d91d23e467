// internal/repository/rate_limit_redis_repository.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"seo-insights-backend/internal/models"

	redis "github.com/redis/go-redis/v9"
)

// Every key of one service day shares the {service:day} hash tag, so the
// multi-key transactions and scripts below stay in one cluster slot.
const (
	keyRateLimitPrefix = "ratelimit:{%s:%s}:%s:" // service, day, scope
	keyRateLimitTotal  = "ratelimit:{%s:%s}:total"
	keyRateLimitScopes = "ratelimit:{%s:%s}:scopes:%s"

	dayLayout = "2006-01-02"
)

// deleteRecordScript removes one row and takes its count out of the day
// total in a single step.
// KEYS: record, total, scopes. ARGV: scope key.
var deleteRecordScript = redis.NewScript(`
local count = redis.call('HGET', KEYS[1], 'requestCount')
if not count then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('DECRBY', KEYS[2], count)
redis.call('SREM', KEYS[3], ARGV[1])
return 1
`)

// deleteDayScript removes every row of a day, found through the scope sets,
// together with the day total and the sets themselves.
// KEYS: user scopes, ip scopes, total. ARGV: user row prefix, ip row prefix.
var deleteDayScript = redis.NewScript(`
local deleted = 0
for i = 1, 2 do
	local members = redis.call('SMEMBERS', KEYS[i])
	for _, member in ipairs(members) do
		deleted = deleted + redis.call('DEL', ARGV[i] .. member)
	end
end
redis.call('DEL', KEYS[1], KEYS[2], KEYS[3])
return deleted
`)

// redisRateLimitRepository keeps one hash per usage row plus a per-day total
// counter and one set per scope type. Every key carries the row expiry, so
// Redis removes a day on its own.
type redisRateLimitRepository struct {
	client redis.UniversalClient
}

func NewRedisRateLimitRepository(client redis.UniversalClient) RateLimitRepository {
	return &redisRateLimitRepository{
		client: client,
	}
}

func recordPrefix(scope models.ScopeType, service string, windowStart time.Time) string {
	return fmt.Sprintf(keyRateLimitPrefix, service, windowStart.UTC().Format(dayLayout), scope)
}

func recordKey(scope models.ScopeType, key, service string, windowStart time.Time) string {
	return recordPrefix(scope, service, windowStart) + key
}

func totalKey(service string, windowStart time.Time) string {
	return fmt.Sprintf(keyRateLimitTotal, service, windowStart.UTC().Format(dayLayout))
}

func scopesKey(scope models.ScopeType, service string, windowStart time.Time) string {
	return fmt.Sprintf(keyRateLimitScopes, service, windowStart.UTC().Format(dayLayout), scope)
}

func (r *redisRateLimitRepository) FindRecord(ctx context.Context, scope models.ScopeType, key, service string, windowStart time.Time) (*models.UsageRecord, error) {
	fields, err := r.client.HGetAll(ctx, recordKey(scope, key, service, windowStart)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	count, err := strconv.Atoi(fields["requestCount"])
	if err != nil {
		return nil, fmt.Errorf("decode requestCount: %w", err)
	}

	record := &models.UsageRecord{
		ScopeType:    scope,
		ScopeKey:     key,
		Service:      service,
		RequestCount: count,
		WindowStart:  windowStart,
	}
	if record.LastRequestAt, err = parseStamp(fields, "lastRequestAt"); err != nil {
		return nil, err
	}
	if record.CreatedAt, err = parseStamp(fields, "createdAt"); err != nil {
		return nil, err
	}
	if record.ExpiresAt, err = parseStamp(fields, "expiresAt"); err != nil {
		return nil, err
	}

	return record, nil
}

func parseStamp(fields map[string]string, name string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, fields[name])
	if err != nil {
		return time.Time{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return t, nil
}

func (r *redisRateLimitRepository) IncrementRecord(ctx context.Context, scope models.ScopeType, key, service string, windowStart, now time.Time, ttl time.Duration) error {
	rk := recordKey(scope, key, service, windowStart)
	tk := totalKey(service, windowStart)
	sk := scopesKey(scope, service, windowStart)
	expiresAt := windowStart.Add(ttl)
	stamp := now.UTC().Format(time.RFC3339Nano)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, rk, "requestCount", 1)
		pipe.HSet(ctx, rk, "lastRequestAt", stamp)
		pipe.HSetNX(ctx, rk, "createdAt", stamp)
		pipe.HSetNX(ctx, rk, "expiresAt", expiresAt.UTC().Format(time.RFC3339Nano))
		pipe.ExpireAt(ctx, rk, expiresAt)
		pipe.Incr(ctx, tk)
		pipe.ExpireAt(ctx, tk, expiresAt)
		pipe.SAdd(ctx, sk, key)
		pipe.ExpireAt(ctx, sk, expiresAt)
		return nil
	})
	return err
}

func (r *redisRateLimitRepository) GlobalUsage(ctx context.Context, service string, windowStart time.Time) (int64, error) {
	total, err := r.client.Get(ctx, totalKey(service, windowStart)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return total, err
}

func (r *redisRateLimitRepository) DailySummary(ctx context.Context, service string, windowStart time.Time) (*models.DailySummary, error) {
	total, err := r.GlobalUsage(ctx, service, windowStart)
	if err != nil {
		return nil, err
	}
	users, err := r.client.SCard(ctx, scopesKey(models.ScopeUser, service, windowStart)).Result()
	if err != nil {
		return nil, err
	}
	ips, err := r.client.SCard(ctx, scopesKey(models.ScopeIP, service, windowStart)).Result()
	if err != nil {
		return nil, err
	}

	return &models.DailySummary{
		TotalRequests: total,
		UniqueUsers:   users,
		UniqueIPs:     ips,
	}, nil
}

func (r *redisRateLimitRepository) DeleteRecords(ctx context.Context, service string, windowStart time.Time, userID, ipAddress string) (int64, error) {
	if userID == "" && ipAddress == "" {
		return r.deleteDay(ctx, service, windowStart)
	}

	var deleted int64
	if userID != "" {
		n, err := r.deleteRecord(ctx, models.ScopeUser, userID, service, windowStart)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	if ipAddress != "" {
		n, err := r.deleteRecord(ctx, models.ScopeIP, ipAddress, service, windowStart)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, nil
}

func (r *redisRateLimitRepository) deleteRecord(ctx context.Context, scope models.ScopeType, key, service string, windowStart time.Time) (int64, error) {
	keys := []string{
		recordKey(scope, key, service, windowStart),
		totalKey(service, windowStart),
		scopesKey(scope, service, windowStart),
	}
	return deleteRecordScript.Run(ctx, r.client, keys, key).Int64()
}

func (r *redisRateLimitRepository) deleteDay(ctx context.Context, service string, windowStart time.Time) (int64, error) {
	keys := []string{
		scopesKey(models.ScopeUser, service, windowStart),
		scopesKey(models.ScopeIP, service, windowStart),
		totalKey(service, windowStart),
	}
	return deleteDayScript.Run(ctx, r.client, keys,
		recordPrefix(models.ScopeUser, service, windowStart),
		recordPrefix(models.ScopeIP, service, windowStart),
	).Int64()
}

// DeleteExpired is a no-op: every key is written with EXPIREAT.
func (r *redisRateLimitRepository) DeleteExpired(ctx context.Context, service string, cutoff time.Time) (int64, error) {
	return 0, nil
}
