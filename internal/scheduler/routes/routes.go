package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"cronobserver/internal/scheduler/dto"
	"cronobserver/internal/scheduler/services"
	"cronobserver/pkg/middleware"
)

// RegisterSchedulerRoutes registers the engine status route on a shared Huma API
func RegisterSchedulerRoutes(api huma.API, basePath string, engine *services.Engine, auth *middleware.AuthMiddleware) {
	huma.Register(api, huma.Operation{
		OperationID: "scheduler-status",
		Method:      http.MethodGet,
		Path:        basePath + "/scheduler/status",
		Summary:     "Scheduler engine status",
		Description: "Registration queue depth, the next pending firing, and whether the engine loop is running.",
		Tags:        []string{"Scheduler"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.GetSchedulerStatusInput) (*dto.SchedulerStatusOutput, error) {
		if _, err := auth.RequireAuth(ctx, input.Authorization); err != nil {
			return nil, err
		}

		size, next, running := engine.Status()
		return &dto.SchedulerStatusOutput{
			Body: dto.SchedulerStatusResponse{
				HeapSize:   size,
				NextFiring: next,
				Running:    running,
			},
		}, nil
	})
}
