// Package taskgroups owns task group management: daily run windows evaluated
// in the group's timezone, the ACTIVE/DISABLED status, and the manual
// start/stop overrides the engine honors when gating executions.
package taskgroups

import (
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	projectsServices "cronobserver/internal/projects/services"
	"cronobserver/internal/taskgroups/routes"
	"cronobserver/internal/taskgroups/services"
	"cronobserver/pkg/database"
	"cronobserver/pkg/eventbus"
	"cronobserver/pkg/handlers"
	"cronobserver/pkg/middleware"
	"cronobserver/pkg/module"
)

// Module represents the task groups module
type Module struct {
	*module.BaseModule
	service    *services.Service
	auth       *middleware.AuthMiddleware
	authorizer *middleware.Authorizer
}

// NewModule creates a new task groups module instance
func NewModule(mongodb *database.MongoDB, redis *database.Redis, auth *middleware.AuthMiddleware, authorizer *middleware.Authorizer, projects *projectsServices.Service, bus *eventbus.Bus) *Module {
	repository := services.NewRepository(mongodb)
	service := services.NewService(repository, projects, bus)

	m := &Module{
		BaseModule: module.NewBaseModule("taskgroups", mongodb, redis),
		service:    service,
		auth:       auth,
		authorizer: authorizer,
	}

	slog.Info("Task groups module initialized", slog.String("name", m.Name()))
	return m
}

// RegisterUnifiedRoutes registers all task group routes with the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterTaskGroupsRoutes(api, basePath, m.service, m.auth, m.authorizer)
}

// Routes registers chi-level routes (module health only)
func (m *Module) Routes(r chi.Router) {
	r.Get("/health", handlers.HealthHandler(m.Name()))
}

// GetService returns the task groups service for other modules
func (m *Module) GetService() *services.Service {
	return m.service
}
