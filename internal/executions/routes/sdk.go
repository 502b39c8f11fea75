package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"cronobserver/internal/executions/dto"
	"cronobserver/internal/executions/services"
	"cronobserver/pkg/middleware"
)

// RegisterSDKRoutes registers the executor-facing endpoints. Every route
// authenticates with X-API-Key and is scoped to the key's project.
func RegisterSDKRoutes(api huma.API, basePath string, service *services.Service, apiKey *middleware.APIKeyMiddleware) {
	huma.Register(api, huma.Operation{
		OperationID: "sdk-claim-pending",
		Method:      http.MethodGet,
		Path:        basePath + "/sdk/tasks/{task_uuid}/executions/pending",
		Summary:     "List pending executions",
		Description: "List PENDING executions of the task, oldest scheduled first. Claiming is read-only; report RUNNING through the status endpoint to take one.",
		Tags:        []string{"SDK"},
		Security:    []map[string][]string{{"apiKeyAuth": {}}},
	}, func(ctx context.Context, input *dto.ClaimPendingInput) (*dto.PendingExecutionsOutput, error) {
		principal, err := apiKey.RequireAPIKey(ctx, input.APIKey)
		if err != nil {
			return nil, err
		}

		pending, err := service.ClaimPending(ctx, principal.ProjectUUID, input.TaskUUID, input.Limit)
		if err != nil {
			return nil, executionError(err, "Failed to list pending executions")
		}
		return &dto.PendingExecutionsOutput{Body: *pending}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sdk-update-execution-status",
		Method:      http.MethodPut,
		Path:        basePath + "/sdk/executions/{execution_uuid}/status",
		Summary:     "Report execution status",
		Description: "Move the execution through its state machine: PENDING to RUNNING or CANCELLED, RUNNING to SUCCESS, FAILED, or CANCELLED. FAILED records the error and optional response status.",
		Tags:        []string{"SDK"},
		Security:    []map[string][]string{{"apiKeyAuth": {}}},
	}, func(ctx context.Context, input *dto.UpdateExecutionStatusInput) (*dto.ExecutionOutput, error) {
		principal, err := apiKey.RequireAPIKey(ctx, input.APIKey)
		if err != nil {
			return nil, err
		}

		execution, err := service.UpdateStatus(ctx, principal.ProjectUUID, input.ExecutionUUID, &input.Body)
		if err != nil {
			return nil, executionError(err, "Failed to update execution status")
		}
		return &dto.ExecutionOutput{Body: *execution}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sdk-append-execution-logs",
		Method:      http.MethodPost,
		Path:        basePath + "/sdk/executions/{execution_uuid}/logs",
		Summary:     "Append execution logs",
		Description: "Append up to 1,000 log entries in order. Entries without timestamps are stamped on arrival; terminal executions reject the batch.",
		Tags:        []string{"SDK"},
		Security:    []map[string][]string{{"apiKeyAuth": {}}},
	}, func(ctx context.Context, input *dto.AppendLogsInput) (*dto.AppendLogsOutput, error) {
		principal, err := apiKey.RequireAPIKey(ctx, input.APIKey)
		if err != nil {
			return nil, err
		}

		ack, err := service.AppendLogs(ctx, principal.ProjectUUID, input.ExecutionUUID, &input.Body)
		if err != nil {
			return nil, executionError(err, "Failed to append execution logs")
		}
		return &dto.AppendLogsOutput{Body: *ack}, nil
	})
}
