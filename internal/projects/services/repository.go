package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cronobserver/internal/projects/models"
	"cronobserver/pkg/database"
)

// Repository handles database operations for projects
type Repository struct {
	mongodb    *database.MongoDB
	collection *mongo.Collection
}

// NewRepository creates a new projects repository
func NewRepository(mongodb *database.MongoDB) *Repository {
	return &Repository{
		mongodb:    mongodb,
		collection: mongodb.Database.Collection(models.ProjectsCollection),
	}
}

// CreateProject inserts a new project
func (r *Repository) CreateProject(ctx context.Context, project *models.Project) error {
	_, err := r.collection.InsertOne(ctx, project)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("project with duplicate api_key: %w", err)
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetProjectByUUID fetches a project by its external UUID
func (r *Repository) GetProjectByUUID(ctx context.Context, uuid string) (*models.Project, error) {
	var project models.Project
	err := r.collection.FindOne(ctx, bson.M{"uuid": uuid}).Decode(&project)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get project %s: %w", uuid, err)
	}
	return &project, nil
}

// GetProjectUUIDByAPIKey resolves an API key to its project UUID. Satisfies
// the middleware ProjectResolver interface; missing keys surface as
// mongo.ErrNoDocuments.
func (r *Repository) GetProjectUUIDByAPIKey(ctx context.Context, apiKey string) (string, error) {
	var project struct {
		UUID string `bson:"uuid"`
	}
	opts := options.FindOne().SetProjection(bson.M{"uuid": 1})
	err := r.collection.FindOne(ctx, bson.M{"api_key": apiKey}, opts).Decode(&project)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", err
		}
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}
	return project.UUID, nil
}

// ListProjects returns a page of projects. With includeAll false the result
// is scoped to projects the email is a member of.
func (r *Repository) ListProjects(ctx context.Context, memberEmail string, includeAll bool, page, pageSize int) ([]models.Project, int64, error) {
	filter := bson.M{}
	if !includeAll {
		filter["project_users.email"] = memberEmail
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	opts := options.Find().
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize)).
		SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	defer cursor.Close(ctx)

	var projects []models.Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, 0, fmt.Errorf("failed to decode projects: %w", err)
	}
	return projects, total, nil
}

// UpdateProject applies a $set update and returns the updated document
func (r *Repository) UpdateProject(ctx context.Context, uuid string, set bson.M) (*models.Project, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var project models.Project
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"uuid": uuid}, bson.M{"$set": set}, opts).Decode(&project)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update project %s: %w", uuid, err)
	}
	return &project, nil
}
