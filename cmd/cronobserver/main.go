package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "go.uber.org/automaxprocs"

	"cronobserver/internal/deletion"
	"cronobserver/internal/executions"
	"cronobserver/internal/projects"
	"cronobserver/internal/scheduler"
	"cronobserver/internal/stats"
	"cronobserver/internal/taskgroups"
	"cronobserver/internal/tasks"
	"cronobserver/pkg/app"
	"cronobserver/pkg/config"
	"cronobserver/pkg/eventbus"
	"cronobserver/pkg/handlers"
	"cronobserver/pkg/middleware"
	"cronobserver/pkg/module"
	"cronobserver/pkg/version"
)

// customLoggerMiddleware logs requests but excludes health check endpoints
func customLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip logging for health check endpoints
		if strings.HasSuffix(r.URL.Path, "/health") {
			next.ServeHTTP(w, r)
			return
		}

		// Use the default chi logger for all other requests
		chimiddleware.Logger(next).ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers for the configured origins
func corsMiddleware(next http.Handler) http.Handler {
	allowed := strings.Split(config.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ",")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		for _, candidate := range allowed {
			candidate = strings.TrimSpace(candidate)
			if candidate == "*" || candidate == origin {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				break
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-API-Key")
		w.Header().Set("Access-Control-Max-Age", "86400")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	// Display startup banner
	displayBanner()

	// Display version information
	versionInfo := version.Get()
	log.Printf("🏷️  Version: %s | Build: %s", version.GetVersionString(), versionInfo.BuildDate)
	log.Printf("🖥️  CPUs: %d | GOMAXPROCS: %d", runtime.NumCPU(), runtime.GOMAXPROCS(0))

	// Cancelled on shutdown; background consumers hang off this context.
	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Initialize application with shared components
	appCtx, err := app.InitializeApp("cronobserver")
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer appCtx.Shutdown(context.Background())

	// The server cannot run degraded; fail fast when a backend is missing.
	if appCtx.MongoDB == nil {
		log.Fatal("MongoDB connection is required")
	}
	if appCtx.Redis == nil {
		log.Fatal("Redis connection is required")
	}
	if appCtx.RabbitMQ == nil {
		log.Fatal("RabbitMQ connection is required")
	}

	// Print memory stats (compact)
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	log.Printf("💾 Memory: %s heap | %s total", formatBytes(m.HeapAlloc), formatBytes(m.Sys))
	printMemoryLimits()

	// Initialize Chi router
	r := chi.NewRouter()

	// Global middleware
	r.Use(customLoggerMiddleware) // Custom logger that excludes health checks
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)
	r.Use(handlers.TracingMiddleware("cronobserver"))

	// Health check endpoint with version info and backend probes
	r.Get("/health", healthHandler(appCtx))

	// Shared authentication and authorization layer
	auth := middleware.NewAuthMiddleware(config.GetEnv("AUTH_JWT_SECRET", ""))
	authorizer, err := middleware.NewAuthorizer(appCtx.MongoDB.Client, appCtx.MongoDB.Database.Name(), config.GetSuperAdminEmails())
	if err != nil {
		log.Fatalf("Failed to initialize authorizer: %v", err)
	}

	// In-process event bus shared by all modules
	bus := eventbus.New()

	// Initialize modules. The scheduler comes first so its engine can be
	// handed to the modules that trigger and unregister tasks.
	schedulerModule := scheduler.NewModule(appCtx.MongoDB, appCtx.Redis, auth, bus)
	projectsModule := projects.NewModule(appCtx.MongoDB, appCtx.Redis, auth, authorizer)

	apiKey := middleware.NewAPIKeyMiddleware(projectsModule.GetService().Repository(), appCtx.Redis)

	taskgroupsModule := taskgroups.NewModule(appCtx.MongoDB, appCtx.Redis, auth, authorizer, projectsModule.GetService(), bus)
	tasksModule := tasks.NewModule(appCtx.MongoDB, appCtx.Redis, auth, authorizer, projectsModule.GetService(), taskgroupsModule.GetService(), schedulerModule.Engine(), appCtx.RabbitMQ, bus)
	executionsModule := executions.NewModule(appCtx.MongoDB, appCtx.Redis, auth, authorizer, apiKey, bus)
	statsModule := stats.NewModule(appCtx.MongoDB, appCtx.Redis, auth, authorizer, bus)
	deletionModule := deletion.NewModule(appCtx.MongoDB, appCtx.Redis, tasksModule.GetRepository(), executionsModule.GetRepository(), schedulerModule.Engine(), appCtx.RabbitMQ, bus)

	modules := []module.Module{
		schedulerModule,
		projectsModule,
		taskgroupsModule,
		tasksModule,
		executionsModule,
		statsModule,
		deletionModule,
	}

	// Mount module routes with configurable API prefix
	apiPrefix := config.GetAPIPrefix()

	// Create unified Huma API configuration
	humaConfig := huma.DefaultConfig("Cron Observer API", version.Get().Version)
	humaConfig.Info.Description = "Scheduling and observability service for recurring HTTP-triggered jobs"
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "UI session token",
		},
		"apiKeyAuth": {
			Type:        "apiKey",
			In:          "header",
			Name:        "X-API-Key",
			Description: "Project API key used by SDK executors",
		},
	}

	frontendURL := config.GetEnv("FRONTEND_URL", "http://localhost:3000")
	humaConfig.Servers = []*huma.Server{
		{URL: frontendURL + apiPrefix, Description: "Production server"},
		{URL: "http://localhost:8080" + apiPrefix, Description: "Local development"},
	}

	// Create the unified API on main router
	var unifiedAPI huma.API
	if apiPrefix == "" {
		unifiedAPI = humachi.New(r, humaConfig)
	} else {
		// Mount the API under the prefix
		r.Route(apiPrefix, func(prefixRouter chi.Router) {
			unifiedAPI = humachi.New(prefixRouter, humaConfig)
		})
	}

	// Register all module routes on the unified API
	schedulerModule.RegisterUnifiedRoutes(unifiedAPI, "")
	projectsModule.RegisterUnifiedRoutes(unifiedAPI, "")
	taskgroupsModule.RegisterUnifiedRoutes(unifiedAPI, "")
	tasksModule.RegisterUnifiedRoutes(unifiedAPI, "")
	executionsModule.RegisterUnifiedRoutes(unifiedAPI, "")
	statsModule.RegisterUnifiedRoutes(unifiedAPI, "")

	// Per-module chi routes (health probes)
	for _, mod := range modules {
		mod := mod
		r.Route("/"+mod.Name(), func(moduleRouter chi.Router) {
			mod.Routes(moduleRouter)
		})
	}

	// Start background services for all modules
	for _, mod := range modules {
		go mod.StartBackgroundTasks(ctx)
	}

	// HTTP server setup
	port := app.GetPort("8080")
	host := config.GetHost()

	srv := &http.Server{
		Addr:         host + ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Display server configuration
	serverAddr := host + ":" + port
	if host == "0.0.0.0" {
		log.Printf("🚀 Server: http://localhost:%s%s | OpenAPI: %s/openapi.json", port, apiPrefix, apiPrefix)
	} else {
		log.Printf("🚀 Server: http://%s%s | OpenAPI: %s/openapi.json", serverAddr, apiPrefix, apiPrefix)
	}

	// Start main server
	go func() {
		slog.Info("Starting API server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Received shutdown signal, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server first so no new work arrives
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// Unwind background consumers, then stop modules
	stopBackground()
	for _, mod := range modules {
		mod.Stop()
	}

	// Application context will handle database and telemetry shutdown
	appCtx.Shutdown(shutdownCtx)

	slog.Info("Shutdown completed successfully")
}

// healthHandler reports build info plus the reachability of each backing
// service. A failed probe flips the status to degraded and the code to 503.
func healthHandler(appCtx *app.AppContext) http.HandlerFunc {
	type health struct {
		Status   string            `json:"status"`
		Service  string            `json:"service"`
		Version  string            `json:"version"`
		Commit   string            `json:"git_commit"`
		Built    string            `json:"build_date"`
		Go       string            `json:"go_version"`
		Platform string            `json:"platform"`
		Backends map[string]string `json:"backends"`
	}

	probes := map[string]func(context.Context) error{
		"mongodb":  appCtx.MongoDB.HealthCheck,
		"redis":    appCtx.Redis.HealthCheck,
		"rabbitmq": appCtx.RabbitMQ.HealthCheck,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		backends := make(map[string]string, len(probes))
		status, code := "healthy", http.StatusOK
		for name, probe := range probes {
			if err := probe(ctx); err != nil {
				backends[name] = "down"
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			backends[name] = "up"
		}

		info := version.Get()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(health{
			Status:   status,
			Service:  "cronobserver",
			Version:  info.Version,
			Commit:   info.GitCommit,
			Built:    info.BuildDate,
			Go:       info.GoVersion,
			Platform: info.Platform,
			Backends: backends,
		}); err != nil {
			slog.Error("Failed to encode health response", slog.String("error", err.Error()))
		}
	}
}

func displayBanner() {
	file, err := os.Open("banner.txt")
	if err != nil {
		// Fallback to inline banner if file not found
		fmt.Print("\033[38;5;33m")
		fmt.Print("CRON-OBSERVER API Server\n")
		fmt.Print("\033[0m")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		fmt.Print("\033[38;5;33m")
		fmt.Print("CRON-OBSERVER API Server\n")
		fmt.Print("\033[0m")
		return
	}

	lines := strings.Split(string(content), "\n")
	colors := []string{
		"\033[38;5;33m", // Bright blue
		"\033[38;5;39m", // Cyan
		"\033[38;5;75m", // Light blue
		"\033[38;5;51m", // Bright cyan
		"\033[38;5;33m", // Bright blue
		"\033[38;5;39m", // Cyan
	}

	fmt.Print("\n")
	for i, line := range lines {
		if line != "" && i < len(colors) {
			fmt.Print(colors[i])
			fmt.Println(line)
		}
	}
	fmt.Print("\033[0m") // Reset colors
	fmt.Print("\n")
}

// formatBytes converts bytes to human readable format
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// printMemoryLimits reads and displays container memory limits
func printMemoryLimits() {
	// Try cgroups v2 first (newer systems)
	if limit := readCgroupV2MemoryLimit(); limit > 0 {
		log.Printf("📦 Container limit: %s", formatBytes(uint64(limit)))
		return
	}

	// Try cgroups v1 (older systems)
	if limit := readCgroupV1MemoryLimit(); limit > 0 {
		log.Printf("📦 Container limit: %s", formatBytes(uint64(limit)))
		return
	}
}

// readCgroupV2MemoryLimit reads memory limit from cgroups v2
func readCgroupV2MemoryLimit() int64 {
	data, err := os.ReadFile("/sys/fs/cgroup/memory.max")
	if err != nil {
		return 0
	}

	limitStr := strings.TrimSpace(string(data))
	if limitStr == "max" {
		return 0 // No limit set
	}

	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil {
		return 0
	}

	return limit
}

// readCgroupV1MemoryLimit reads memory limit from cgroups v1
func readCgroupV1MemoryLimit() int64 {
	data, err := os.ReadFile("/sys/fs/cgroup/memory/memory.limit_in_bytes")
	if err != nil {
		return 0
	}

	limitStr := strings.TrimSpace(string(data))
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil {
		return 0
	}

	// cgroups v1 sometimes returns very large values when no limit is set
	// Anything larger than 1TB is probably "unlimited"
	if limit > 1024*1024*1024*1024 {
		return 0
	}

	return limit
}
