package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"cronobserver/pkg/database"
)

const (
	apiKeyCachePrefix = "apikey:"
	apiKeyCacheTTL    = 60 * time.Second
)

// ProjectResolver looks a project up by its API key. Implemented by the
// projects repository; missing keys surface as mongo.ErrNoDocuments.
type ProjectResolver interface {
	GetProjectUUIDByAPIKey(ctx context.Context, apiKey string) (string, error)
}

// ProjectPrincipal is the identity attached to SDK requests: the project the
// presented API key belongs to.
type ProjectPrincipal struct {
	ProjectUUID string    `json:"project_uuid"`
	CachedAt    time.Time `json:"cached_at"`
}

// APIKeyMiddleware resolves X-API-Key headers to their project. Lookups are
// cached in Redis under a hash of the key so hot SDK paths skip the projects
// collection and raw keys never reach the cache.
type APIKeyMiddleware struct {
	resolver ProjectResolver
	redis    *database.Redis
}

// NewAPIKeyMiddleware creates the SDK authenticator. redis may be nil, in
// which case every request hits the resolver.
func NewAPIKeyMiddleware(resolver ProjectResolver, redis *database.Redis) *APIKeyMiddleware {
	return &APIKeyMiddleware{resolver: resolver, redis: redis}
}

// RequireAPIKey validates the X-API-Key header and returns the project it
// authenticates. Returned errors are huma errors ready to surface from a
// handler.
func (m *APIKeyMiddleware) RequireAPIKey(ctx context.Context, apiKey string) (*ProjectPrincipal, error) {
	if m.resolver == nil {
		return nil, huma.Error500InternalServerError("API key authentication not available")
	}
	if apiKey == "" {
		return nil, huma.Error401Unauthorized("API key required")
	}

	cacheKey := apiKeyCachePrefix + HashToken(apiKey)
	if m.redis != nil {
		var cached ProjectPrincipal
		if err := m.redis.GetJSON(ctx, cacheKey, &cached); err == nil && cached.ProjectUUID != "" {
			return &cached, nil
		}
	}

	projectUUID, err := m.resolver.GetProjectUUIDByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, huma.Error401Unauthorized("Invalid API key")
		}
		return nil, huma.Error500InternalServerError("Failed to validate API key", err)
	}

	principal := &ProjectPrincipal{ProjectUUID: projectUUID, CachedAt: time.Now().UTC()}
	if m.redis != nil {
		if err := m.redis.SetJSON(ctx, cacheKey, principal, apiKeyCacheTTL); err != nil {
			slog.Warn("Failed to cache API key lookup", slog.String("error", err.Error()))
		}
	}
	return principal, nil
}

// HashToken returns the SHA-256 hex digest of a credential, used as the
// cache key component.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
