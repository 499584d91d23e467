// internal/repository/insight_repository.go
package repository

import (
	"context"
	"time"

	"seo-insights-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type insightRepository struct {
	collection *mongo.Collection
}

func NewInsightRepository(collection *mongo.Collection) InsightRepository {
	return &insightRepository{
		collection: collection,
	}
}

func (r *insightRepository) Create(ctx context.Context, insight *models.Insight) error {
	if insight.ID.IsZero() {
		insight.ID = primitive.NewObjectID()
	}
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, insight)
	return err
}

func (r *insightRepository) GetByUserID(ctx context.Context, userID string, limit, skip int) ([]models.Insight, error) {
	// Most recent first
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip))

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	insights := []models.Insight{}
	if err = cursor.All(ctx, &insights); err != nil {
		return nil, err
	}

	return insights, nil
}
