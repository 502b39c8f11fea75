// Package handlers holds the plain chi-level handlers and middleware shared
// by every module: health probes and request tracing.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// HealthStatus is the body returned by module health endpoints.
type HealthStatus struct {
	Status string `json:"status"`
	Module string `json:"module,omitempty"`
}

// HealthHandler returns the liveness handler for one module. Probes arrive
// every few seconds, so they log at debug.
func HealthHandler(module string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("Health check", slog.String("module", module), slog.String("remote_addr", r.RemoteAddr))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(HealthStatus{Status: "healthy", Module: module}); err != nil {
			slog.Error("Failed to encode health response",
				slog.String("module", module),
				slog.String("error", err.Error()))
		}
	}
}
