package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cronobserver/internal/executions/models"
	"cronobserver/pkg/database"
)

// Repository handles database operations for executions
type Repository struct {
	mongodb    *database.MongoDB
	collection *mongo.Collection
}

// NewRepository creates a new executions repository
func NewRepository(mongodb *database.MongoDB) *Repository {
	return &Repository{
		mongodb:    mongodb,
		collection: mongodb.Database.Collection(models.ExecutionsCollection),
	}
}

// executionRow carries the aggregation-computed log count next to the
// execution document.
type executionRow struct {
	models.Execution `bson:",inline"`
	LogCount         int `bson:"log_count"`
}

// GetExecution fetches an execution scoped to its project, logs included
func (r *Repository) GetExecution(ctx context.Context, projectUUID, executionUUID string) (*models.Execution, error) {
	var execution models.Execution
	err := r.collection.FindOne(ctx, bson.M{"uuid": executionUUID, "project_uuid": projectUUID}).Decode(&execution)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get execution %s: %w", executionUUID, err)
	}
	return &execution, nil
}

// ListPending returns claim candidates for a task, oldest scheduled first
func (r *Repository) ListPending(ctx context.Context, projectUUID, taskUUID string, limit int) ([]models.Execution, error) {
	filter := bson.M{
		"project_uuid": projectUUID,
		"task_uuid":    taskUUID,
		"status":       models.StatusPending,
	}

	opts := options.Find().
		SetSort(bson.M{"scheduled_at": 1}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"logs": 0})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending executions: %w", err)
	}
	defer cursor.Close(ctx)

	var executions []models.Execution
	if err := cursor.All(ctx, &executions); err != nil {
		return nil, fmt.Errorf("failed to decode pending executions: %w", err)
	}
	return executions, nil
}

// ListTaskExecutions returns a page of a task's executions, newest scheduled
// first, with per-row log counts but without log bodies. A non-nil date
// restricts to firings scheduled on that UTC day.
func (r *Repository) ListTaskExecutions(ctx context.Context, projectUUID, taskUUID string, date *time.Time, page, pageSize int) ([]executionRow, int64, error) {
	filter := bson.M{
		"project_uuid": projectUUID,
		"task_uuid":    taskUUID,
	}
	if date != nil {
		dayStart := date.UTC().Truncate(24 * time.Hour)
		filter["scheduled_at"] = bson.M{
			"$gte": dayStart,
			"$lt":  dayStart.Add(24 * time.Hour),
		}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count executions: %w", err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$sort", Value: bson.M{"scheduled_at": -1}}},
		{{Key: "$skip", Value: int64((page - 1) * pageSize)}},
		{{Key: "$limit", Value: int64(pageSize)}},
		{{Key: "$addFields", Value: bson.M{
			"log_count": bson.M{"$size": bson.M{"$ifNull": bson.A{"$logs", bson.A{}}}},
		}}},
		{{Key: "$project", Value: bson.M{"logs": 0}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list executions: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []executionRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, 0, fmt.Errorf("failed to decode executions: %w", err)
	}
	return rows, total, nil
}

// UpdateExecutionStatus applies a status change guarded by the expected
// current status. mongo.ErrNoDocuments means the execution is missing or the
// status moved underneath the caller.
func (r *Repository) UpdateExecutionStatus(ctx context.Context, executionUUID, fromStatus string, set bson.M) (*models.Execution, error) {
	filter := bson.M{"uuid": executionUUID, "status": fromStatus}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var execution models.Execution
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&execution)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update execution %s status: %w", executionUUID, err)
	}
	return &execution, nil
}

// AppendLogs pushes entries atomically. The filter rejects terminal
// executions and batches that would push the log total past the cap, so a
// false return needs a re-read to tell the cases apart.
func (r *Repository) AppendLogs(ctx context.Context, projectUUID, executionUUID string, entries []models.LogEntry) (bool, error) {
	filter := bson.M{
		"uuid":         executionUUID,
		"project_uuid": projectUUID,
		"status":       bson.M{"$in": []string{models.StatusPending, models.StatusRunning}},
		"$expr": bson.M{"$lte": bson.A{
			bson.M{"$add": bson.A{
				bson.M{"$size": bson.M{"$ifNull": bson.A{"$logs", bson.A{}}}},
				len(entries),
			}},
			models.MaxLogsTotal,
		}},
	}

	update := bson.M{
		"$push": bson.M{"logs": bson.M{"$each": entries}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to append logs to execution %s: %w", executionUUID, err)
	}
	return result.ModifiedCount > 0, nil
}

// ListRunningWithTimeout returns RUNNING executions that carry a watchdog
// timeout. Expiry is evaluated by the caller.
func (r *Repository) ListRunningWithTimeout(ctx context.Context) ([]models.Execution, error) {
	filter := bson.M{
		"status":          models.StatusRunning,
		"timeout_seconds": bson.M{"$gt": 0},
		"started_at":      bson.M{"$ne": nil},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"logs": 0}))
	if err != nil {
		return nil, fmt.Errorf("failed to list running executions: %w", err)
	}
	defer cursor.Close(ctx)

	var executions []models.Execution
	if err := cursor.All(ctx, &executions); err != nil {
		return nil, fmt.Errorf("failed to decode running executions: %w", err)
	}
	return executions, nil
}

// DeleteByTask removes every execution of a task. Used by the delete worker.
func (r *Repository) DeleteByTask(ctx context.Context, taskUUID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"task_uuid": taskUUID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete executions of task %s: %w", taskUUID, err)
	}
	return result.DeletedCount, nil
}
