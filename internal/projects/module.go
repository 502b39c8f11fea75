// Package projects owns the project container: creation with API key
// issuance, membership management, and the API-key resolution used by the
// SDK surface.
package projects

import (
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"cronobserver/internal/projects/routes"
	"cronobserver/internal/projects/services"
	"cronobserver/pkg/database"
	"cronobserver/pkg/handlers"
	"cronobserver/pkg/middleware"
	"cronobserver/pkg/module"
)

// Module represents the projects module
type Module struct {
	*module.BaseModule
	service    *services.Service
	auth       *middleware.AuthMiddleware
	authorizer *middleware.Authorizer
}

// NewModule creates a new projects module instance
func NewModule(mongodb *database.MongoDB, redis *database.Redis, auth *middleware.AuthMiddleware, authorizer *middleware.Authorizer) *Module {
	repository := services.NewRepository(mongodb)
	service := services.NewService(repository, authorizer)

	m := &Module{
		BaseModule: module.NewBaseModule("projects", mongodb, redis),
		service:    service,
		auth:       auth,
		authorizer: authorizer,
	}

	slog.Info("Projects module initialized", slog.String("name", m.Name()))
	return m
}

// RegisterUnifiedRoutes registers all project routes with the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterProjectsRoutes(api, basePath, m.service, m.auth, m.authorizer)
}

// Routes registers chi-level routes (module health only)
func (m *Module) Routes(r chi.Router) {
	r.Get("/health", handlers.HealthHandler(m.Name()))
}

// GetService returns the projects service for other modules
func (m *Module) GetService() *services.Service {
	return m.service
}
