package config

import (
	"os"
	"strconv"
	"strings"
)

// GetEnv returns the value of an environment variable or a default value if not set
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value if not set
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value if not set
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetAPIPrefix returns the path prefix all API routes are mounted under
func GetAPIPrefix() string {
	prefix := GetEnv("API_PREFIX", "/api/v1")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return strings.TrimSuffix(prefix, "/")
}

// GetHost returns the listen host for the HTTP server
func GetHost() string {
	return GetEnv("HOST", "0.0.0.0")
}

// GetSuperAdminEmails returns the comma-separated list of emails that bypass
// project membership checks
func GetSuperAdminEmails() []string {
	raw := GetEnv("SUPER_ADMIN_EMAILS", "")
	if raw == "" {
		return nil
	}
	var emails []string
	for _, e := range strings.Split(raw, ",") {
		if e = strings.TrimSpace(e); e != "" {
			emails = append(emails, strings.ToLower(e))
		}
	}
	return emails
}
