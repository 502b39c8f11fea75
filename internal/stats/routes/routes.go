package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"cronobserver/internal/stats/dto"
	"cronobserver/internal/stats/services"
	"cronobserver/pkg/middleware"
)

// RegisterStatsRoutes registers the daily stats routes on a shared Huma API
func RegisterStatsRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.AuthMiddleware, authorizer *middleware.Authorizer) {
	huma.Register(api, huma.Operation{
		OperationID: "executions-stats",
		Method:      http.MethodGet,
		Path:        basePath + "/projects/{project_uuid}/executions/stats",
		Summary:     "Daily execution stats",
		Description: "Success, failure, and total counters per UTC day, newest first. Responses are cached for 60 seconds.",
		Tags:        []string{"Stats"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.GetStatsInput) (*dto.StatsListOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectRead(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		stats, err := service.GetStats(ctx, input.ProjectUUID, input.Days)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to get execution stats", err)
		}
		return &dto.StatsListOutput{Body: *stats}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "executions-failed-stats",
		Method:      http.MethodGet,
		Path:        basePath + "/projects/{project_uuid}/executions/failed-stats",
		Summary:     "Daily failure stats",
		Description: "Days that saw failed executions with their counts, newest first. Responses are cached for 60 seconds.",
		Tags:        []string{"Stats"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.GetStatsInput) (*dto.FailedStatsOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectRead(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		stats, err := service.GetFailedStats(ctx, input.ProjectUUID, input.Days)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to get failure stats", err)
		}
		return &dto.FailedStatsOutput{Body: *stats}, nil
	})
}
