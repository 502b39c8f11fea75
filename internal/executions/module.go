// Package executions owns the execution lifecycle: the status state machine
// executors drive through the SDK, log ingestion, the history endpoints for
// the UI, and the watchdog that fails timed-out executions.
package executions

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"cronobserver/internal/executions/routes"
	"cronobserver/internal/executions/services"
	"cronobserver/pkg/config"
	"cronobserver/pkg/database"
	"cronobserver/pkg/eventbus"
	"cronobserver/pkg/handlers"
	"cronobserver/pkg/middleware"
	"cronobserver/pkg/module"
)

// Module represents the executions module
type Module struct {
	*module.BaseModule
	service    *services.Service
	repository *services.Repository
	auth       *middleware.AuthMiddleware
	authorizer *middleware.Authorizer
	apiKey     *middleware.APIKeyMiddleware
}

// NewModule creates a new executions module instance
func NewModule(mongodb *database.MongoDB, redis *database.Redis, auth *middleware.AuthMiddleware, authorizer *middleware.Authorizer, apiKey *middleware.APIKeyMiddleware, bus *eventbus.Bus) *Module {
	repository := services.NewRepository(mongodb)
	service := services.NewService(repository, bus)

	m := &Module{
		BaseModule: module.NewBaseModule("executions", mongodb, redis),
		service:    service,
		repository: repository,
		auth:       auth,
		authorizer: authorizer,
		apiKey:     apiKey,
	}

	slog.Info("Executions module initialized", slog.String("name", m.Name()))
	return m
}

// RegisterUnifiedRoutes registers the UI and SDK routes with the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterExecutionsRoutes(api, basePath, m.service, m.auth, m.authorizer)
	routes.RegisterSDKRoutes(api, basePath, m.service, m.apiKey)
}

// Routes registers chi-level routes (module health only)
func (m *Module) Routes(r chi.Router) {
	r.Get("/health", handlers.HealthHandler(m.Name()))
}

// StartBackgroundTasks runs the timeout watchdog
func (m *Module) StartBackgroundTasks(ctx context.Context) {
	interval := time.Duration(config.GetIntEnv("WATCHDOG_INTERVAL_SECONDS", 30)) * time.Second

	go func() {
		slog.Info("Execution watchdog started", slog.Duration("interval", interval))
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.StopChannel():
				return
			case <-ticker.C:
				m.service.SweepTimeouts(ctx, time.Now().UTC())
			}
		}
	}()
}

// GetService returns the executions service for other modules
func (m *Module) GetService() *services.Service {
	return m.service
}

// GetRepository returns the repository instance for this module
func (m *Module) GetRepository() *services.Repository {
	return m.repository
}
