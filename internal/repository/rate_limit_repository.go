// internal/repository/rate_limit_repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"seo-insights-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type rateLimitRepository struct {
	collection *mongo.Collection
}

func NewRateLimitRepository(collection *mongo.Collection) RateLimitRepository {
	return &rateLimitRepository{
		collection: collection,
	}
}

func recordFilter(scope models.ScopeType, key, service string, windowStart time.Time) bson.M {
	return bson.M{
		"scopeKey":    key,
		"scopeType":   scope,
		"service":     service,
		"windowStart": windowStart,
	}
}

func (r *rateLimitRepository) FindRecord(ctx context.Context, scope models.ScopeType, key, service string, windowStart time.Time) (*models.UsageRecord, error) {
	var record models.UsageRecord
	err := r.collection.FindOne(ctx, recordFilter(scope, key, service, windowStart)).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *rateLimitRepository) IncrementRecord(ctx context.Context, scope models.ScopeType, key, service string, windowStart, now time.Time, ttl time.Duration) error {
	filter := recordFilter(scope, key, service, windowStart)
	update := bson.M{
		"$inc": bson.M{"requestCount": 1},
		"$set": bson.M{"lastRequestAt": now},
		"$setOnInsert": bson.M{
			"createdAt": now,
			"expiresAt": windowStart.Add(ttl),
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		// Two first-of-the-day upserts raced on the unique index; the row
		// exists now, so the retry takes the update path.
		_, err = r.collection.UpdateOne(ctx, filter, update, opts)
	}
	return err
}

func (r *rateLimitRepository) GlobalUsage(ctx context.Context, service string, windowStart time.Time) (int64, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"service":     service,
				"windowStart": windowStart,
			},
		},
		{
			"$group": bson.M{
				"_id":   nil,
				"total": bson.M{"$sum": "$requestCount"},
			},
		},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var result struct {
		Total int64 `bson:"total"`
	}

	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return 0, err
		}
		return result.Total, nil
	}

	return 0, cursor.Err()
}

func (r *rateLimitRepository) DailySummary(ctx context.Context, service string, windowStart time.Time) (*models.DailySummary, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"service":     service,
				"windowStart": windowStart,
			},
		},
		{
			"$group": bson.M{
				"_id":      "$scopeType",
				"requests": bson.M{"$sum": "$requestCount"},
				"keys":     bson.M{"$addToSet": "$scopeKey"},
			},
		},
		{
			"$project": bson.M{
				"requests": 1,
				"distinct": bson.M{"$size": "$keys"},
			},
		},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Scope    models.ScopeType `bson:"_id"`
		Requests int64            `bson:"requests"`
		Distinct int64            `bson:"distinct"`
	}
	if err = cursor.All(ctx, &groups); err != nil {
		return nil, err
	}

	summary := &models.DailySummary{}
	for _, g := range groups {
		summary.TotalRequests += g.Requests
		switch g.Scope {
		case models.ScopeUser:
			summary.UniqueUsers = g.Distinct
		case models.ScopeIP:
			summary.UniqueIPs = g.Distinct
		}
	}

	return summary, nil
}

func (r *rateLimitRepository) DeleteRecords(ctx context.Context, service string, windowStart time.Time, userID, ipAddress string) (int64, error) {
	filter := bson.M{
		"service":     service,
		"windowStart": windowStart,
	}

	var scopes []bson.M
	if userID != "" {
		scopes = append(scopes, bson.M{"scopeType": models.ScopeUser, "scopeKey": userID})
	}
	if ipAddress != "" {
		scopes = append(scopes, bson.M{"scopeType": models.ScopeIP, "scopeKey": ipAddress})
	}
	if len(scopes) > 0 {
		filter["$or"] = scopes
	}

	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *rateLimitRepository) DeleteExpired(ctx context.Context, service string, cutoff time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"service":     service,
		"windowStart": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
