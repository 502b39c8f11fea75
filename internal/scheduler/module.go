// Package scheduler owns the firing engine: a single timer-driven loop that
// turns ACTIVE task schedules into PENDING execution records, honoring group
// windows, weekday gates and exclusion dates. Other modules reach it through
// its Engine.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"cronobserver/internal/scheduler/routes"
	"cronobserver/internal/scheduler/services"
	"cronobserver/pkg/database"
	"cronobserver/pkg/eventbus"
	"cronobserver/pkg/handlers"
	"cronobserver/pkg/middleware"
	"cronobserver/pkg/module"
)

// Module represents the scheduler module
type Module struct {
	*module.BaseModule
	engine *services.Engine
	auth   *middleware.AuthMiddleware
}

// NewModule creates a new scheduler module instance
func NewModule(mongodb *database.MongoDB, redis *database.Redis, auth *middleware.AuthMiddleware, bus *eventbus.Bus) *Module {
	repository := services.NewRepository(mongodb)
	engine := services.NewEngine(repository, bus)

	m := &Module{
		BaseModule: module.NewBaseModule("scheduler", mongodb, redis),
		engine:     engine,
		auth:       auth,
	}

	slog.Info("Scheduler module initialized", slog.String("name", m.Name()))
	return m
}

// RegisterUnifiedRoutes registers the status route with the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterSchedulerRoutes(api, basePath, m.engine, m.auth)
}

// Routes registers chi-level routes (module health only)
func (m *Module) Routes(r chi.Router) {
	r.Get("/health", handlers.HealthHandler(m.Name()))
}

// StartBackgroundTasks launches the engine loop
func (m *Module) StartBackgroundTasks(ctx context.Context) {
	if err := m.engine.Start(ctx); err != nil {
		slog.Error("Failed to start scheduler engine", slog.Any("error", err))
	}
}

// Stop halts the engine loop before the base module shuts down
func (m *Module) Stop() {
	m.engine.Stop()
	m.BaseModule.Stop()
}

// Engine exposes the firing engine to other modules
func (m *Module) Engine() *services.Engine {
	return m.engine
}
