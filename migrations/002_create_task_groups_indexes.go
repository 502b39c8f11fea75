package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "002_create_task_groups_indexes",
		Description: "Create indexes for the task_groups collection",
		Up:          up002,
		Down:        down002,
	})
}

func up002(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("task_groups")
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uuid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "project_uuid", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil && !isIndexExistsError(err) {
		return err
	}
	return nil
}

func down002(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection("task_groups").Indexes().DropAll(ctx); err != nil {
		return err
	}
	return nil
}
