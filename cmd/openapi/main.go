// Command openapi exports the OpenAPI 3.1 document for the full API without
// needing live backends: modules are constructed against a lazy MongoDB
// client, routes registered, and the huma-derived spec written to disk.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cronobserver/internal/executions"
	"cronobserver/internal/projects"
	"cronobserver/internal/scheduler"
	"cronobserver/internal/stats"
	"cronobserver/internal/taskgroups"
	"cronobserver/internal/tasks"
	"cronobserver/pkg/database"
	"cronobserver/pkg/eventbus"
	"cronobserver/pkg/middleware"
	"cronobserver/pkg/version"
)

func main() {
	output := flag.String("output", "cronobserver-openapi.json", "Output file for the OpenAPI document")
	flag.Parse()

	fmt.Println("🚀 Cron Observer OpenAPI 3.1 Exporter")

	versionInfo := version.Get()
	fmt.Printf("📦 Version: %s\n", version.GetVersionString())
	fmt.Printf("🔧 Build: %s (%s)\n", versionInfo.BuildDate, versionInfo.Platform)

	api, err := buildAPI()
	if err != nil {
		log.Fatalf("❌ Failed to build API: %v", err)
	}

	doc, err := json.MarshalIndent(api.OpenAPI(), "", "  ")
	if err != nil {
		log.Fatalf("❌ Failed to marshal specification: %v", err)
	}

	if err := os.WriteFile(*output, doc, 0644); err != nil {
		log.Fatalf("❌ Failed to write specification: %v", err)
	}

	fmt.Printf("✅ OpenAPI 3.1 specification exported to: %s\n", *output)
	fmt.Printf("📊 Specification contains %d paths\n", len(api.OpenAPI().Paths))
}

// buildAPI constructs the unified huma API exactly as the server does.
// The mongo client is created without a ping so no database is needed;
// handlers are registered but never invoked.
func buildAPI() (huma.API, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://localhost:27017"))
	if err != nil {
		return nil, err
	}
	mongodb := &database.MongoDB{
		Client:   client,
		Database: client.Database("cronobserver"),
	}

	bus := eventbus.New()
	auth := middleware.NewAuthMiddleware("")
	apiKey := middleware.NewAPIKeyMiddleware(nil, nil)

	// Route registration only stores the authorizer pointer; a nil value is
	// safe because no handler runs during export.
	var authorizer *middleware.Authorizer

	schedulerModule := scheduler.NewModule(mongodb, nil, auth, bus)
	projectsModule := projects.NewModule(mongodb, nil, auth, authorizer)
	taskgroupsModule := taskgroups.NewModule(mongodb, nil, auth, authorizer, projectsModule.GetService(), bus)
	tasksModule := tasks.NewModule(mongodb, nil, auth, authorizer, projectsModule.GetService(), taskgroupsModule.GetService(), schedulerModule.Engine(), nil, bus)
	executionsModule := executions.NewModule(mongodb, nil, auth, authorizer, apiKey, bus)
	statsModule := stats.NewModule(mongodb, nil, auth, authorizer, bus)

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

	api := humachi.New(chi.NewRouter(), humaConfig)
	schedulerModule.RegisterUnifiedRoutes(api, "")
	projectsModule.RegisterUnifiedRoutes(api, "")
	taskgroupsModule.RegisterUnifiedRoutes(api, "")
	tasksModule.RegisterUnifiedRoutes(api, "")
	executionsModule.RegisterUnifiedRoutes(api, "")
	statsModule.RegisterUnifiedRoutes(api, "")

	return api, nil
}
