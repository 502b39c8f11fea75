package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "001_create_projects_indexes",
		Description: "Create indexes for the projects collection",
		Up:          up001,
		Down:        down001,
	})
}

func up001(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("projects")
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uuid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "api_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Membership lookups scope project lists to the caller's email.
			Keys: bson.D{{Key: "project_users.email", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil && !isIndexExistsError(err) {
		return err
	}
	return nil
}

func down001(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection("projects").Indexes().DropAll(ctx); err != nil {
		return err
	}
	return nil
}
