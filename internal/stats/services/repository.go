package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cronobserver/internal/stats/models"
	"cronobserver/pkg/database"
)

// Repository handles database operations for execution stats
type Repository struct {
	mongodb    *database.MongoDB
	collection *mongo.Collection
}

// NewRepository creates a new stats repository
func NewRepository(mongodb *database.MongoDB) *Repository {
	return &Repository{
		mongodb:    mongodb,
		collection: mongodb.Database.Collection(models.StatsCollection),
	}
}

// Increment bumps one day's counters atomically, creating the row on first
// use. The upsert filter carries both key fields, so concurrent increments
// for the same day land on the same row.
func (r *Repository) Increment(ctx context.Context, projectUUID, date string, success bool) error {
	counter := "failures"
	if success {
		counter = "success"
	}

	filter := bson.M{"project_uuid": projectUUID, "date": date}
	update := bson.M{
		"$inc": bson.M{counter: 1, "total": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to increment stats for %s/%s: %w", projectUUID, date, err)
	}
	return nil
}

// ListStats returns the project's rows for the most recent days, newest
// first. onlyFailures drops days without failures.
func (r *Repository) ListStats(ctx context.Context, projectUUID string, days int, onlyFailures bool) ([]models.ExecutionStats, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	filter := bson.M{
		"project_uuid": projectUUID,
		"date":         bson.M{"$gte": cutoff},
	}
	if onlyFailures {
		filter["failures"] = bson.M{"$gt": 0}
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.M{"date": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list stats: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []models.ExecutionStats
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}
	return rows, nil
}
