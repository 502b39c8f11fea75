package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"cronobserver/internal/events"
	tasksModels "cronobserver/internal/tasks/models"
	"cronobserver/pkg/eventbus"
	"cronobserver/pkg/queue"
)

// Engine is the slice of the scheduling engine the worker needs.
type Engine interface {
	Unregister(taskUUID string)
}

// TaskStore is the slice of the tasks repository the worker needs.
// *tasksServices.Repository satisfies it.
type TaskStore interface {
	GetTaskByUUID(ctx context.Context, taskUUID string) (*tasksModels.Task, error)
	UpdateTaskStatus(ctx context.Context, taskUUID string, from []string, to string) (*tasksModels.Task, error)
	HardDeleteTask(ctx context.Context, taskUUID string) error
}

// ExecutionStore is the slice of the executions repository the worker needs.
// *executionsServices.Repository satisfies it.
type ExecutionStore interface {
	DeleteByTask(ctx context.Context, taskUUID string) (int64, error)
}

// Worker drains the task-delete queue. Every step is individually
// repeatable so a redelivered message converges on the same end state.
type Worker struct {
	tasks      TaskStore
	executions ExecutionStore
	engine     Engine
	rabbit     *queue.RabbitMQ
	bus        *eventbus.Bus
}

// NewWorker creates a delete worker.
func NewWorker(tasks TaskStore, executions ExecutionStore, engine Engine, rabbit *queue.RabbitMQ, bus *eventbus.Bus) *Worker {
	return &Worker{
		tasks:      tasks,
		executions: executions,
		engine:     engine,
		rabbit:     rabbit,
		bus:        bus,
	}
}

// Run consumes the delete queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	err := w.rabbit.ConsumeTaskDelete(ctx, w.HandleDelete)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Delete worker stopped", slog.Any("error", err))
	}
}

// HandleDelete processes one delete message: unregister the task's pending
// firing, remove its executions, remove the task row, then announce the
// deletion on the bus. Returning an error nacks the delivery into the retry
// queue.
func (w *Worker) HandleDelete(ctx context.Context, msg queue.DeleteTaskMessage) error {
	task, err := w.tasks.GetTaskByUUID(ctx, msg.TaskUUID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Already gone; redeliveries are acked without work.
			slog.Info("Task already deleted, acking",
				slog.String("task_uuid", msg.TaskUUID))
			return nil
		}
		return fmt.Errorf("failed to load task %s: %w", msg.TaskUUID, err)
	}

	// A dying context must not start the destructive half; nack and let the
	// retry queue redeliver to a live worker.
	if err := ctx.Err(); err != nil {
		return err
	}

	if w.engine != nil {
		w.engine.Unregister(task.UUID)
	}

	removed, err := w.executions.DeleteByTask(ctx, task.UUID)
	if err != nil {
		w.markFailed(ctx, task.UUID)
		return err
	}

	if err := w.tasks.HardDeleteTask(ctx, task.UUID); err != nil {
		w.markFailed(ctx, task.UUID)
		return err
	}

	w.bus.Publish(eventbus.Event{
		Type: events.TaskDeleted,
		Payload: events.TaskDeletedPayload{
			TaskUUID:    task.UUID,
			ProjectUUID: task.ProjectUUID,
		},
	})

	slog.Info("Task deleted",
		slog.String("task_uuid", task.UUID),
		slog.String("project_uuid", task.ProjectUUID),
		slog.Int64("executions_removed", removed),
		slog.Duration("queued_for", time.Since(msg.RequestedAt)))
	return nil
}

// markFailed parks the task in DELETE_FAILED so the stuck delete is visible
// and can be re-issued. Best effort; the nacked message retries regardless.
func (w *Worker) markFailed(ctx context.Context, taskUUID string) {
	if _, err := w.tasks.UpdateTaskStatus(ctx, taskUUID, nil, tasksModels.StatusDeleteFailed); err != nil {
		slog.Error("Failed to mark task DELETE_FAILED",
			slog.String("task_uuid", taskUUID),
			slog.Any("error", err))
	}
}
