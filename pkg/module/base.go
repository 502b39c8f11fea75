// Package module provides the base module abstraction shared by every
// feature module. A module owns its HTTP routes and any background
// goroutines it starts, and is stopped exactly once on shutdown.
package module

import (
	"context"
	"sync"

	"cronobserver/pkg/database"

	"github.com/go-chi/chi/v5"
)

// Module is implemented by every feature module wired into the server.
type Module interface {
	// Routes mounts the module's HTTP routes on the given router.
	Routes(r chi.Router)
	// StartBackgroundTasks starts any background goroutines. The
	// context is cancelled on shutdown.
	StartBackgroundTasks(ctx context.Context)
	// Stop signals background goroutines to stop. Safe to call more
	// than once.
	Stop()
	// Name returns the module's name for logging.
	Name() string
}

// BaseModule provides common functionality shared by all modules.
type BaseModule struct {
	name     string
	mongodb  *database.MongoDB
	redis    *database.Redis
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewBaseModule creates a new base module with shared dependencies.
func NewBaseModule(name string, mongodb *database.MongoDB, redis *database.Redis) *BaseModule {
	return &BaseModule{
		name:    name,
		mongodb: mongodb,
		redis:   redis,
		stopCh:  make(chan struct{}),
	}
}

func (m *BaseModule) Name() string {
	return m.name
}

func (m *BaseModule) MongoDB() *database.MongoDB {
	return m.mongodb
}

func (m *BaseModule) Redis() *database.Redis {
	return m.redis
}

// StopChannel returns the channel closed when Stop is called.
func (m *BaseModule) StopChannel() <-chan struct{} {
	return m.stopCh
}

func (m *BaseModule) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// StartBackgroundTasks is a no-op default. Modules with background
// goroutines override it.
func (m *BaseModule) StartBackgroundTasks(ctx context.Context) {}

// Routes is a no-op default for modules without HTTP routes.
func (m *BaseModule) Routes(r chi.Router) {}
