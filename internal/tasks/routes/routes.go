package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"cronobserver/internal/tasks/dto"
	"cronobserver/internal/tasks/services"
	"cronobserver/pkg/middleware"
)

// RegisterTasksRoutes registers the task routes on a shared Huma API
func RegisterTasksRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.AuthMiddleware, authorizer *middleware.Authorizer) {
	tasksPath := basePath + "/projects/{project_uuid}/tasks"

	huma.Register(api, huma.Operation{
		OperationID: "tasks-list",
		Method:      http.MethodGet,
		Path:        tasksPath,
		Summary:     "List tasks",
		Description: "List the project's tasks with their derived states",
		Tags:        []string{"Tasks"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.ListTasksInput) (*dto.TaskListOutput, error) {
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

		list, err := service.ListTasks(ctx, input.ProjectUUID, page, pageSize)
		if err != nil {
			return nil, taskError(err, "Failed to list tasks")
		}
		return &dto.TaskListOutput{Body: *list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tasks-create",
		Method:      http.MethodPost,
		Path:        tasksPath,
		Summary:     "Create task",
		Description: "Create a task with a cron or time-range schedule. Requires the admin role.",
		Tags:        []string{"Tasks"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.CreateTaskInput) (*dto.TaskOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectAdmin(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		task, err := service.CreateTask(ctx, input.ProjectUUID, &input.Body)
		if err != nil {
			return nil, taskError(err, "Failed to create task")
		}
		return &dto.TaskOutput{Body: *task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tasks-get",
		Method:      http.MethodGet,
		Path:        tasksPath + "/{task_uuid}",
		Summary:     "Get task",
		Description: "Fetch a single task by UUID",
		Tags:        []string{"Tasks"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.GetTaskInput) (*dto.TaskOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectRead(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		task, err := service.GetTask(ctx, input.ProjectUUID, input.TaskUUID)
		if err != nil {
			return nil, taskError(err, "Failed to get task")
		}
		return &dto.TaskOutput{Body: *task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tasks-update",
		Method:      http.MethodPut,
		Path:        tasksPath + "/{task_uuid}",
		Summary:     "Update task",
		Description: "Update task fields. Tasks queued for deletion reject mutations. Requires the admin role.",
		Tags:        []string{"Tasks"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.UpdateTaskInput) (*dto.TaskOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectAdmin(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		task, err := service.UpdateTask(ctx, input.ProjectUUID, input.TaskUUID, &input.Body)
		if err != nil {
			return nil, taskError(err, "Failed to update task")
		}
		return &dto.TaskOutput{Body: *task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tasks-update-status",
		Method:      http.MethodPatch,
		Path:        tasksPath + "/{task_uuid}/status",
		Summary:     "Set task status",
		Description: "Set the user-controlled status to ACTIVE or DISABLED. Requires the admin role.",
		Tags:        []string{"Tasks"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.UpdateTaskStatusInput) (*dto.TaskOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectAdmin(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		task, err := service.UpdateTaskStatus(ctx, input.ProjectUUID, input.TaskUUID, input.Body.Status)
		if err != nil {
			return nil, taskError(err, "Failed to update task status")
		}
		return &dto.TaskOutput{Body: *task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "tasks-delete",
		Method:        http.MethodDelete,
		Path:          tasksPath + "/{task_uuid}",
		Summary:       "Delete task",
		Description:   "Queue the task for asynchronous deletion. The task and its executions are removed by a background worker; deleting a missing task acknowledges idempotently. Requires the admin role.",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusAccepted,
		Security:      []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.DeleteTaskInput) (*dto.DeleteTaskOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectAdmin(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		ack, err := service.DeleteTask(ctx, input.ProjectUUID, input.TaskUUID)
		if err != nil {
			return nil, taskError(err, "Failed to queue task delete")
		}
		return &dto.DeleteTaskOutput{Body: *ack}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tasks-trigger",
		Method:      http.MethodPost,
		Path:        tasksPath + "/{task_uuid}/trigger",
		Summary:     "Trigger task",
		Description: "Create a MANUAL PENDING execution immediately. The task must be ACTIVE and have a trigger_config or a project execution_endpoint. Requires the admin role.",
		Tags:        []string{"Tasks"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.TriggerTaskInput) (*dto.TriggerTaskOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectAdmin(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		result, err := service.TriggerTask(ctx, input.ProjectUUID, input.TaskUUID)
		if err != nil {
			return nil, taskError(err, "Failed to trigger task")
		}
		return &dto.TriggerTaskOutput{Body: *result}, nil
	})
}

func taskError(err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrProjectNotFound):
		return huma.Error404NotFound("Project not found")
	case errors.Is(err, mongo.ErrNoDocuments):
		return huma.Error404NotFound("Task not found")
	case errors.Is(err, services.ErrGroupNotFound):
		return huma.Error400BadRequest("Task group not found in project")
	case errors.Is(err, services.ErrInvalidSchedule),
		errors.Is(err, services.ErrInvalidTrigger):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, services.ErrTaskNotActive):
		return huma.Error400BadRequest("Task is not active")
	case errors.Is(err, services.ErrNoTriggerTarget):
		return huma.Error400BadRequest("Task has no trigger_config and the project has no execution_endpoint")
	case errors.Is(err, services.ErrTaskLocked):
		return huma.Error409Conflict("Task is pending deletion")
	default:
		return huma.Error500InternalServerError(fallback, err)
	}
}
