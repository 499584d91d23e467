package database

import (
	"context"
	"fmt"
	"time"

	"seo-insights-backend/internal/config"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedis connects the alternative rate limit store and verifies it answers.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Named("redis").Info("connected to Redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return client, nil
}
