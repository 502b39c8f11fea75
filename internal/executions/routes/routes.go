package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"cronobserver/internal/executions/dto"
	"cronobserver/internal/executions/services"
	"cronobserver/pkg/middleware"
)

// RegisterExecutionsRoutes registers the execution history routes on a
// shared Huma API
func RegisterExecutionsRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.AuthMiddleware, authorizer *middleware.Authorizer) {
	huma.Register(api, huma.Operation{
		OperationID: "executions-list",
		Method:      http.MethodGet,
		Path:        basePath + "/projects/{project_uuid}/tasks/{task_uuid}/executions",
		Summary:     "List task executions",
		Description: "List a task's executions newest first, optionally restricted to one UTC date. Log bodies are omitted; fetch a single execution for them.",
		Tags:        []string{"Executions"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.ListTaskExecutionsInput) (*dto.ExecutionListOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectRead(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		page := input.Page
		if page == 0 {
			page = 1
		}
		pageSize := input.PageSize
		if pageSize == 0 {
			pageSize = 100
		}

		list, err := service.ListTaskExecutions(ctx, input.ProjectUUID, input.TaskUUID, input.Date, page, pageSize)
		if err != nil {
			return nil, executionError(err, "Failed to list executions")
		}
		return &dto.ExecutionListOutput{Body: *list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "executions-get",
		Method:      http.MethodGet,
		Path:        basePath + "/projects/{project_uuid}/executions/{execution_uuid}",
		Summary:     "Get execution",
		Description: "Fetch a single execution with its full log history",
		Tags:        []string{"Executions"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.GetExecutionInput) (*dto.ExecutionOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectRead(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		execution, err := service.GetExecution(ctx, input.ProjectUUID, input.ExecutionUUID)
		if err != nil {
			return nil, executionError(err, "Failed to get execution")
		}
		return &dto.ExecutionOutput{Body: *execution}, nil
	})
}

func executionError(err error, fallback string) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return huma.Error404NotFound("Execution not found")
	case errors.Is(err, services.ErrInvalidDate):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, services.ErrExecutionTerminal):
		return huma.Error409Conflict("Execution is terminal")
	case errors.Is(err, services.ErrStatusConflict):
		return huma.Error409Conflict("Execution status changed concurrently, retry")
	case errors.Is(err, services.ErrLogCapExceeded):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError(fallback, err)
	}
}
