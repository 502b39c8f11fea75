// Package middleware provides the authentication and authorization layer
// shared by all modules: bearer-token validation for UI routes, API-key
// resolution for SDK routes, and the Casbin-backed project role checks.
package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AuthenticatedUser is the identity extracted from a validated session token.
type AuthenticatedUser struct {
	Email string
}

// AuthMiddleware validates UI session tokens: HS256 JWTs whose subject claim
// carries the user's email. Tokens are issued elsewhere; this service only
// verifies them.
type AuthMiddleware struct {
	secret []byte
}

// NewAuthMiddleware creates the bearer-token validator.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// RequireAuth validates the Authorization header and returns the caller
// identity. Returned errors are huma errors ready to surface from a handler.
func (m *AuthMiddleware) RequireAuth(ctx context.Context, authHeader string) (*AuthenticatedUser, error) {
	if len(m.secret) == 0 {
		return nil, huma.Error500InternalServerError("Authentication system not configured")
	}

	token := extractBearerToken(authHeader)
	if token == "" {
		return nil, huma.Error401Unauthorized("Authentication required")
	}

	user, err := m.validateToken(token)
	if err != nil {
		return nil, huma.Error401Unauthorized("Invalid authentication token", err)
	}
	return user, nil
}

func (m *AuthMiddleware) validateToken(tokenString string) (*AuthenticatedUser, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	email, _ := claims["sub"].(string)
	if email == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return &AuthenticatedUser{Email: strings.ToLower(email)}, nil
}

func extractBearerToken(authHeader string) string {
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
