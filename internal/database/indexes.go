// internal/database/indexes.go
package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// CreateIndexes creates the insight indexes and, when the limiter keeps its
// rows in Mongo, the rate limit indexes.
func (m *MongoDB) CreateIndexes(ctx context.Context, rateLimits bool) error {
	m.logger.Info("creating database indexes")

	if rateLimits {
		if err := m.createIndexes(ctx, RateLimitsCollection, RateLimitIndexes()); err != nil {
			return err
		}
	}

	if err := m.createIndexes(ctx, InsightsCollection, InsightIndexes()); err != nil {
		return err
	}

	m.logger.Info("database indexes created")
	return nil
}

func (m *MongoDB) createIndexes(ctx context.Context, name string, indexes []mongo.IndexModel) error {
	if _, err := m.GetCollection(name).Indexes().CreateMany(ctx, indexes); err != nil {
		return err
	}
	m.logger.Debug("collection indexes created", zap.String("collection", name))
	return nil
}

// RateLimitIndexes returns the usage row indexes: one row per scope and day,
// the global aggregation path, and TTL expiry on expiresAt.
func RateLimitIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "scopeKey", Value: 1},
				{Key: "scopeType", Value: 1},
				{Key: "service", Value: 1},
				{Key: "windowStart", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("scope_window_unique"),
		},
		{
			Keys: bson.D{
				{Key: "service", Value: 1},
				{Key: "windowStart", Value: 1},
			},
			Options: options.Index().SetName("service_window"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
		},
	}
}

func InsightIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("user_created"),
		},
		{
			Keys:    bson.D{{Key: "requestId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("request_id_unique"),
		},
	}
}
