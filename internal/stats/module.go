// Package stats aggregates terminal execution events into per-project daily
// counters and serves the cached stats endpoints.
package stats

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"cronobserver/internal/events"
	"cronobserver/internal/stats/routes"
	"cronobserver/internal/stats/services"
	"cronobserver/pkg/database"
	"cronobserver/pkg/eventbus"
	"cronobserver/pkg/handlers"
	"cronobserver/pkg/middleware"
	"cronobserver/pkg/module"
)

// Module represents the stats module
type Module struct {
	*module.BaseModule
	service     *services.Service
	auth        *middleware.AuthMiddleware
	authorizer  *middleware.Authorizer
	bus         *eventbus.Bus
	unsubscribe func()
}

// NewModule creates a new stats module instance
func NewModule(mongodb *database.MongoDB, redis *database.Redis, auth *middleware.AuthMiddleware, authorizer *middleware.Authorizer, bus *eventbus.Bus) *Module {
	repository := services.NewRepository(mongodb)
	service := services.NewService(repository, redis)

	m := &Module{
		BaseModule: module.NewBaseModule("stats", mongodb, redis),
		service:    service,
		auth:       auth,
		authorizer: authorizer,
		bus:        bus,
	}

	slog.Info("Stats module initialized", slog.String("name", m.Name()))
	return m
}

// RegisterUnifiedRoutes registers the stats routes with the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterStatsRoutes(api, basePath, m.service, m.auth, m.authorizer)
}

// Routes registers chi-level routes (module health only)
func (m *Module) Routes(r chi.Router) {
	r.Get("/health", handlers.HealthHandler(m.Name()))
}

// StartBackgroundTasks subscribes the aggregator to terminal execution events
func (m *Module) StartBackgroundTasks(ctx context.Context) {
	ch, unsubscribe := m.bus.Subscribe(
		events.ExecutionSucceeded,
		events.ExecutionFailed,
		events.ExecutionTimedOut,
	)
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
				m.service.HandleEvent(ctx, evt)
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

// GetService returns the stats service for other modules
func (m *Module) GetService() *services.Service {
	return m.service
}
