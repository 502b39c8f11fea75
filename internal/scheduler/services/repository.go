package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"cronobserver/internal/executions/models"
	taskgroupsModels "cronobserver/internal/taskgroups/models"
	tasksModels "cronobserver/internal/tasks/models"
	"cronobserver/pkg/database"
)

// Repository handles database operations for the scheduling engine
type Repository struct {
	mongodb    *database.MongoDB
	tasks      *mongo.Collection
	groups     *mongo.Collection
	executions *mongo.Collection
}

// NewRepository creates a new repository instance
func NewRepository(mongodb *database.MongoDB) *Repository {
	return &Repository{
		mongodb:    mongodb,
		tasks:      mongodb.Database.Collection(tasksModels.TasksCollection),
		groups:     mongodb.Database.Collection(taskgroupsModels.TaskGroupsCollection),
		executions: mongodb.Database.Collection(models.ExecutionsCollection),
	}
}

// ListActiveTasks returns every task eligible for scheduling
func (r *Repository) ListActiveTasks(ctx context.Context) ([]tasksModels.Task, error) {
	cursor, err := r.tasks.Find(ctx, bson.M{"status": tasksModels.StatusActive})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []tasksModels.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTaskByUUID retrieves a task regardless of project scope
func (r *Repository) GetTaskByUUID(ctx context.Context, taskUUID string) (*tasksModels.Task, error) {
	var task tasksModels.Task
	err := r.tasks.FindOne(ctx, bson.M{"uuid": taskUUID}).Decode(&task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTaskGroupByUUID retrieves a task group by its UUID
func (r *Repository) GetTaskGroupByUUID(ctx context.Context, groupUUID string) (*taskgroupsModels.TaskGroup, error) {
	var group taskgroupsModels.TaskGroup
	err := r.groups.FindOne(ctx, bson.M{"uuid": groupUUID}).Decode(&group)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// CreateExecution inserts a new execution record. Returns false without an
// error when the (task_uuid, scheduled_at) slot already holds a scheduled
// execution, so a crashed-and-restarted engine never double-fires a slot.
func (r *Repository) CreateExecution(ctx context.Context, execution *models.Execution) (bool, error) {
	_, err := r.executions.InsertOne(ctx, execution)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
