package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cronobserver/pkg/config"
)

// Redis wraps the go-redis client. The service uses it purely as a JSON
// cache: API key lookups and stats snapshots.
type Redis struct {
	Client *redis.Client
	tracer trace.Tracer
}

// NewRedis connects using REDIS_URL and verifies the connection with a ping.
func NewRedis(ctx context.Context) (*Redis, error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", slog.String("addr", opt.Addr))

	r := &Redis{Client: client}
	if config.GetBoolEnv("ENABLE_TELEMETRY", false) {
		r.tracer = otel.Tracer("redis-client")
	}
	return r, nil
}

func (r *Redis) Close() error {
	return r.Client.Close()
}

// HealthCheck pings the server with a short deadline.
func (r *Redis) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.Client.Ping(ctx).Err()
}

// span opens a client span when telemetry is enabled. The returned finish
// func records the operation error and ends the span.
func (r *Redis) span(ctx context.Context, op, key string) (context.Context, func(error)) {
	if r.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, sp := r.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("redis.key", key)))
	return ctx, func(err error) {
		if err != nil {
			sp.RecordError(err)
		}
		sp.End()
	}
}

// SetJSON marshals value and stores it under key with the given TTL.
func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	ctx, finish := r.span(ctx, "redis.set_json", key)
	err = r.Client.Set(ctx, key, payload, ttl).Err()
	finish(err)
	return err
}

// GetJSON loads key and unmarshals it into dest. A missing key surfaces as
// redis.Nil.
func (r *Redis) GetJSON(ctx context.Context, key string, dest any) error {
	ctx, finish := r.span(ctx, "redis.get_json", key)
	payload, err := r.Client.Get(ctx, key).Bytes()
	finish(err)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}
