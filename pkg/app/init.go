// Package app bootstraps shared process dependencies: env loading,
// telemetry, and connections to MongoDB, Redis, and RabbitMQ.
package app

import (
	"context"
	"log"
	"log/slog"

	"github.com/joho/godotenv"

	"cronobserver/pkg/config"
	"cronobserver/pkg/database"
	"cronobserver/pkg/logging"
	"cronobserver/pkg/queue"
)

// AppContext carries the shared dependencies handed to every module. Any of
// the connection fields may be nil; binaries that need one fail fast on it.
type AppContext struct {
	MongoDB          *database.MongoDB
	Redis            *database.Redis
	RabbitMQ         *queue.RabbitMQ
	TelemetryManager *logging.TelemetryManager
	ServiceName      string
	shutdownFuncs    []func(context.Context) error
}

// InitializeApp loads .env, configures logging and telemetry, and opens the
// backend connections. Connection failures are logged, not fatal: auxiliary
// binaries like cmd/openapi run without any backend at all.
func InitializeApp(serviceName string) (*AppContext, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it: %v", err)
	}

	ctx := context.Background()
	appCtx := &AppContext{ServiceName: serviceName}

	appCtx.TelemetryManager = logging.NewTelemetryManager()
	if err := appCtx.TelemetryManager.Initialize(ctx); err != nil {
		log.Printf("Warning: Failed to initialize telemetry: %v", err)
	}

	if mongodb, err := database.NewMongoDB(ctx, "cronobserver"); err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
	} else {
		appCtx.MongoDB = mongodb
		appCtx.onShutdown(mongodb.Close)
	}

	if redis, err := database.NewRedis(ctx); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
	} else {
		appCtx.Redis = redis
		appCtx.onShutdown(func(context.Context) error { return redis.Close() })
	}

	if rabbitmq, err := queue.NewRabbitMQ(ctx); err != nil {
		slog.Error("Failed to connect to RabbitMQ", "error", err)
	} else {
		appCtx.RabbitMQ = rabbitmq
		appCtx.onShutdown(func(context.Context) error { return rabbitmq.Close() })
	}

	// Telemetry flushes last so close errors from the backends still export.
	appCtx.onShutdown(appCtx.TelemetryManager.Shutdown)

	return appCtx, nil
}

func (a *AppContext) onShutdown(fn func(context.Context) error) {
	a.shutdownFuncs = append(a.shutdownFuncs, fn)
}

// Shutdown closes every opened dependency in the order they were opened.
func (a *AppContext) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down application", "service", a.ServiceName)

	for _, shutdown := range a.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}

	slog.Info("Application shutdown completed", "service", a.ServiceName)
	return nil
}

// GetPort returns PORT or the given default.
func GetPort(defaultPort string) string {
	return config.GetEnv("PORT", defaultPort)
}
