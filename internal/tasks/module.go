// Package tasks owns task definitions: schedule and trigger validation, the
// user-controlled status, the async delete enqueue, and manual triggers.
package tasks

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"cronobserver/internal/events"
	projectsServices "cronobserver/internal/projects/services"
	taskgroupsServices "cronobserver/internal/taskgroups/services"
	"cronobserver/internal/tasks/routes"
	"cronobserver/internal/tasks/services"
	"cronobserver/pkg/database"
	"cronobserver/pkg/eventbus"
	"cronobserver/pkg/handlers"
	"cronobserver/pkg/middleware"
	"cronobserver/pkg/module"
	"cronobserver/pkg/queue"
)

// Module represents the tasks module
type Module struct {
	*module.BaseModule
	service     *services.Service
	repository  *services.Repository
	auth        *middleware.AuthMiddleware
	authorizer  *middleware.Authorizer
	bus         *eventbus.Bus
	unsubscribe func()
}

// NewModule creates a new tasks module instance
func NewModule(mongodb *database.MongoDB, redis *database.Redis, auth *middleware.AuthMiddleware, authorizer *middleware.Authorizer, projects *projectsServices.Service, groups *taskgroupsServices.Service, engine services.Engine, rabbit *queue.RabbitMQ, bus *eventbus.Bus) *Module {
	repository := services.NewRepository(mongodb)
	service := services.NewService(repository, projects, groups, engine, rabbit, bus)

	m := &Module{
		BaseModule: module.NewBaseModule("tasks", mongodb, redis),
		service:    service,
		repository: repository,
		auth:       auth,
		authorizer: authorizer,
		bus:        bus,
	}

	slog.Info("Tasks module initialized", slog.String("name", m.Name()))
	return m
}

// RegisterUnifiedRoutes registers all task routes with the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterTasksRoutes(api, basePath, m.service, m.auth, m.authorizer)
}

// Routes registers chi-level routes (module health only)
func (m *Module) Routes(r chi.Router) {
	r.Get("/health", handlers.HealthHandler(m.Name()))
}

// StartBackgroundTasks subscribes to group deletions so member tasks can be
// detached.
func (m *Module) StartBackgroundTasks(ctx context.Context) {
	ch, unsubscribe := m.bus.Subscribe(events.TaskGroupDeleted)
	m.unsubscribe = unsubscribe

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.StopChannel():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				payload, ok := evt.Payload.(events.TaskGroupPayload)
				if !ok {
					continue
				}
				m.service.HandleGroupDeleted(ctx, payload.GroupUUID)
			}
		}
	}()
}

// Stop unsubscribes from the event bus and stops background goroutines
func (m *Module) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.BaseModule.Stop()
}

// GetService returns the tasks service for other modules
func (m *Module) GetService() *services.Service {
	return m.service
}

// GetRepository returns the repository instance for this module
func (m *Module) GetRepository() *services.Repository {
	return m.repository
}
