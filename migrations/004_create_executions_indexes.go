package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "004_create_executions_indexes",
		Description: "Create indexes for the executions collection, including the scheduled-slot dedup index",
		Up:          up004,
		Down:        down004,
	})
}

func up004(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("executions")
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uuid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// One SCHEDULED execution per (task, firing instant). Manual
			// triggers are exempt, so the index is partial.
			Keys: bson.D{{Key: "task_uuid", Value: 1}, {Key: "scheduled_at", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"trigger_type": "SCHEDULED"}),
		},
		{
			// Claim scans: pending executions of one task, oldest first.
			Keys: bson.D{{Key: "task_uuid", Value: 1}, {Key: "status", Value: 1}, {Key: "scheduled_at", Value: 1}},
		},
		{
			// History listings, newest first.
			Keys: bson.D{{Key: "project_uuid", Value: 1}, {Key: "task_uuid", Value: 1}, {Key: "scheduled_at", Value: -1}},
		},
		{
			// Watchdog sweep over RUNNING executions with a timeout.
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "timeout_seconds", Value: 1}},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil && !isIndexExistsError(err) {
		return err
	}
	return nil
}

func down004(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection("executions").Indexes().DropAll(ctx); err != nil {
		return err
	}
	return nil
}
