package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "003_create_tasks_indexes",
		Description: "Create indexes for the tasks collection",
		Up:          up003,
		Down:        down003,
	})
}

func up003(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("tasks")
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uuid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "project_uuid", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			// Group deletion detaches member tasks by this key.
			Keys: bson.D{{Key: "task_group_uuid", Value: 1}},
		},
		{
			// Engine startup loads all ACTIVE tasks.
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil && !isIndexExistsError(err) {
		return err
	}
	return nil
}

func down003(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection("tasks").Indexes().DropAll(ctx); err != nil {
		return err
	}
	return nil
}
