package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cronobserver/internal/tasks/models"
	"cronobserver/pkg/database"
)

// Repository handles database operations for tasks
type Repository struct {
	mongodb    *database.MongoDB
	collection *mongo.Collection
}

// NewRepository creates a new tasks repository
func NewRepository(mongodb *database.MongoDB) *Repository {
	return &Repository{
		mongodb:    mongodb,
		collection: mongodb.Database.Collection(models.TasksCollection),
	}
}

// CreateTask inserts a new task
func (r *Repository) CreateTask(ctx context.Context, task *models.Task) error {
	if _, err := r.collection.InsertOne(ctx, task); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("task with duplicate uuid: %w", err)
		}
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTask fetches a task scoped to its project
func (r *Repository) GetTask(ctx context.Context, projectUUID, taskUUID string) (*models.Task, error) {
	var task models.Task
	err := r.collection.FindOne(ctx, bson.M{"uuid": taskUUID, "project_uuid": projectUUID}).Decode(&task)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get task %s: %w", taskUUID, err)
	}
	return &task, nil
}

// GetTaskByUUID fetches a task by UUID alone. Used by the delete worker.
func (r *Repository) GetTaskByUUID(ctx context.Context, taskUUID string) (*models.Task, error) {
	var task models.Task
	err := r.collection.FindOne(ctx, bson.M{"uuid": taskUUID}).Decode(&task)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get task %s: %w", taskUUID, err)
	}
	return &task, nil
}

// ListTasks returns a page of the project's tasks
func (r *Repository) ListTasks(ctx context.Context, projectUUID string, page, pageSize int) ([]models.Task, int64, error) {
	filter := bson.M{"project_uuid": projectUUID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	opts := options.Find().
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize)).
		SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, 0, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, total, nil
}

// UpdateTask applies set/unset updates and returns the updated document
func (r *Repository) UpdateTask(ctx context.Context, projectUUID, taskUUID string, set, unset bson.M) (*models.Task, error) {
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var task models.Task
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"uuid": taskUUID, "project_uuid": projectUUID}, update, opts).Decode(&task)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update task %s: %w", taskUUID, err)
	}
	return &task, nil
}

// UpdateTaskStatus flips the status with an optional compare-and-set guard.
// A non-empty from list only matches tasks currently in one of those
// statuses; mongo.ErrNoDocuments means the task is missing or the guard
// failed.
func (r *Repository) UpdateTaskStatus(ctx context.Context, taskUUID string, from []string, to string) (*models.Task, error) {
	filter := bson.M{"uuid": taskUUID}
	if len(from) > 0 {
		filter["status"] = bson.M{"$in": from}
	}

	update := bson.M{"$set": bson.M{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var task models.Task
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&task)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update task %s status: %w", taskUUID, err)
	}
	return &task, nil
}

// ClearGroupRefs detaches every task referencing a deleted group
func (r *Repository) ClearGroupRefs(ctx context.Context, groupUUID string) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"task_group_uuid": groupUUID},
		bson.M{
			"$unset": bson.M{"task_group_uuid": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return 0, fmt.Errorf("failed to clear group refs for %s: %w", groupUUID, err)
	}
	return result.ModifiedCount, nil
}

// HardDeleteTask removes the task row. Deleting an already-missing task is
// not an error; the delete worker relies on that for idempotent retries.
func (r *Repository) HardDeleteTask(ctx context.Context, taskUUID string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"uuid": taskUUID}); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", taskUUID, err)
	}
	return nil
}
