package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "005_create_execution_stats_indexes",
		Description: "Create indexes for the execution_stats collection",
		Up:          up005,
		Down:        down005,
	})
}

func up005(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("execution_stats")
	indexes := []mongo.IndexModel{
		{
			// One counter row per project per UTC day; the upsert path
			// depends on this being unique.
			Keys:    bson.D{{Key: "project_uuid", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil && !isIndexExistsError(err) {
		return err
	}
	return nil
}

func down005(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection("execution_stats").Indexes().DropAll(ctx); err != nil {
		return err
	}
	return nil
}
