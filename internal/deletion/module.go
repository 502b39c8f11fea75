// Package deletion runs the background half of the two-phase task delete:
// a queue consumer that unregisters the task, removes its executions and
// row, and announces task.deleted.
package deletion

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"cronobserver/internal/deletion/services"
	executionsServices "cronobserver/internal/executions/services"
	tasksServices "cronobserver/internal/tasks/services"
	"cronobserver/pkg/config"
	"cronobserver/pkg/database"
	"cronobserver/pkg/eventbus"
	"cronobserver/pkg/handlers"
	"cronobserver/pkg/module"
	"cronobserver/pkg/queue"
)

// Module represents the deletion module
type Module struct {
	*module.BaseModule
	worker  *services.Worker
	rabbit  *queue.RabbitMQ
	workers int
}

// NewModule creates a new deletion module instance
func NewModule(mongodb *database.MongoDB, redis *database.Redis, tasks *tasksServices.Repository, executions *executionsServices.Repository, engine services.Engine, rabbit *queue.RabbitMQ, bus *eventbus.Bus) *Module {
	m := &Module{
		BaseModule: module.NewBaseModule("deletion", mongodb, redis),
		worker:     services.NewWorker(tasks, executions, engine, rabbit, bus),
		rabbit:     rabbit,
		workers:    config.GetIntEnv("DELETE_WORKERS", 1),
	}

	slog.Info("Deletion module initialized", slog.Int("workers", m.workers))
	return m
}

// RegisterUnifiedRoutes is a no-op; the module has no HTTP surface.
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {}

// Routes registers chi-level routes (module health only)
func (m *Module) Routes(r chi.Router) {
	r.Get("/health", handlers.HealthHandler(m.Name()))
}

// StartBackgroundTasks launches the queue consumers
func (m *Module) StartBackgroundTasks(ctx context.Context) {
	for i := 0; i < m.workers; i++ {
		go m.worker.Run(ctx)
	}
}

// Worker exposes the delete worker, mainly for tests.
func (m *Module) Worker() *services.Worker {
	return m.worker
}
