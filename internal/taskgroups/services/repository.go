package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cronobserver/internal/taskgroups/models"
	"cronobserver/pkg/database"
)

// Repository handles database operations for task groups
type Repository struct {
	mongodb    *database.MongoDB
	collection *mongo.Collection
}

// NewRepository creates a new task groups repository
func NewRepository(mongodb *database.MongoDB) *Repository {
	return &Repository{
		mongodb:    mongodb,
		collection: mongodb.Database.Collection(models.TaskGroupsCollection),
	}
}

// CreateTaskGroup inserts a new task group
func (r *Repository) CreateTaskGroup(ctx context.Context, group *models.TaskGroup) error {
	if _, err := r.collection.InsertOne(ctx, group); err != nil {
		return fmt.Errorf("failed to create task group: %w", err)
	}
	return nil
}

// GetTaskGroup fetches a group scoped to its project
func (r *Repository) GetTaskGroup(ctx context.Context, projectUUID, groupUUID string) (*models.TaskGroup, error) {
	var group models.TaskGroup
	err := r.collection.FindOne(ctx, bson.M{"uuid": groupUUID, "project_uuid": projectUUID}).Decode(&group)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get task group %s: %w", groupUUID, err)
	}
	return &group, nil
}

// GetTaskGroupByUUID fetches a group by UUID alone. Used by the schedule
// engine when gating firings.
func (r *Repository) GetTaskGroupByUUID(ctx context.Context, groupUUID string) (*models.TaskGroup, error) {
	var group models.TaskGroup
	err := r.collection.FindOne(ctx, bson.M{"uuid": groupUUID}).Decode(&group)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get task group %s: %w", groupUUID, err)
	}
	return &group, nil
}

// ListTaskGroups returns a page of the project's task groups
func (r *Repository) ListTaskGroups(ctx context.Context, projectUUID string, page, pageSize int) ([]models.TaskGroup, int64, error) {
	filter := bson.M{"project_uuid": projectUUID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count task groups: %w", err)
	}

	opts := options.Find().
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize)).
		SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list task groups: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []models.TaskGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, 0, fmt.Errorf("failed to decode task groups: %w", err)
	}
	return groups, total, nil
}

// UpdateTaskGroup applies set/unset updates and returns the updated document
func (r *Repository) UpdateTaskGroup(ctx context.Context, projectUUID, groupUUID string, set, unset bson.M) (*models.TaskGroup, error) {
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var group models.TaskGroup
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"uuid": groupUUID, "project_uuid": projectUUID}, update, opts).Decode(&group)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update task group %s: %w", groupUUID, err)
	}
	return &group, nil
}

// DeleteTaskGroup removes a group scoped to its project
func (r *Repository) DeleteTaskGroup(ctx context.Context, projectUUID, groupUUID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"uuid": groupUUID, "project_uuid": projectUUID})
	if err != nil {
		return fmt.Errorf("failed to delete task group %s: %w", groupUUID, err)
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
