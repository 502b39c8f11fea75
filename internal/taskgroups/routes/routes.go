package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"cronobserver/internal/taskgroups/dto"
	"cronobserver/internal/taskgroups/services"
	"cronobserver/pkg/middleware"
)

// RegisterTaskGroupsRoutes registers the task group routes on a shared Huma API
func RegisterTaskGroupsRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.AuthMiddleware, authorizer *middleware.Authorizer) {
	groupsPath := basePath + "/projects/{project_uuid}/task-groups"

	huma.Register(api, huma.Operation{
		OperationID: "taskgroups-list",
		Method:      http.MethodGet,
		Path:        groupsPath,
		Summary:     "List task groups",
		Description: "List the project's task groups with their effective states",
		Tags:        []string{"Task Groups"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.ListTaskGroupsInput) (*dto.TaskGroupListOutput, error) {
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

		list, err := service.ListTaskGroups(ctx, input.ProjectUUID, page, pageSize)
		if err != nil {
			return nil, groupError(err, "Failed to list task groups")
		}
		return &dto.TaskGroupListOutput{Body: *list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "taskgroups-create",
		Method:      http.MethodPost,
		Path:        groupsPath,
		Summary:     "Create task group",
		Description: "Create a task group, optionally with a daily run window. Requires the admin role.",
		Tags:        []string{"Task Groups"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.CreateTaskGroupInput) (*dto.TaskGroupOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectAdmin(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		group, err := service.CreateTaskGroup(ctx, input.ProjectUUID, &input.Body)
		if err != nil {
			return nil, groupError(err, "Failed to create task group")
		}
		return &dto.TaskGroupOutput{Body: *group}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "taskgroups-get",
		Method:      http.MethodGet,
		Path:        groupsPath + "/{group_uuid}",
		Summary:     "Get task group",
		Description: "Fetch a single task group by UUID",
		Tags:        []string{"Task Groups"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.GetTaskGroupInput) (*dto.TaskGroupOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectRead(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		group, err := service.GetTaskGroup(ctx, input.ProjectUUID, input.GroupUUID)
		if err != nil {
			return nil, groupError(err, "Failed to get task group")
		}
		return &dto.TaskGroupOutput{Body: *group}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "taskgroups-update",
		Method:      http.MethodPut,
		Path:        groupsPath + "/{group_uuid}",
		Summary:     "Update task group",
		Description: "Update task group fields. Window or status changes clear any manual override. Requires the admin role.",
		Tags:        []string{"Task Groups"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.UpdateTaskGroupInput) (*dto.TaskGroupOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectAdmin(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		group, err := service.UpdateTaskGroup(ctx, input.ProjectUUID, input.GroupUUID, &input.Body)
		if err != nil {
			return nil, groupError(err, "Failed to update task group")
		}
		return &dto.TaskGroupOutput{Body: *group}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "taskgroups-delete",
		Method:      http.MethodDelete,
		Path:        groupsPath + "/{group_uuid}",
		Summary:     "Delete task group",
		Description: "Delete a task group. Member tasks are detached and keep their own schedules. Requires the admin role.",
		Tags:        []string{"Task Groups"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.DeleteTaskGroupInput) (*dto.DeleteTaskGroupOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectAdmin(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		if err := service.DeleteTaskGroup(ctx, input.ProjectUUID, input.GroupUUID); err != nil {
			return nil, groupError(err, "Failed to delete task group")
		}
		return &dto.DeleteTaskGroupOutput{Body: dto.DeleteTaskGroupResponse{
			UUID:    input.GroupUUID,
			Deleted: true,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "taskgroups-start",
		Method:      http.MethodPost,
		Path:        groupsPath + "/{group_uuid}/start",
		Summary:     "Start task group",
		Description: "Force the group's state to RUNNING until the next window edge, or until stopped for windowless groups. The group must be ACTIVE. Requires the admin role.",
		Tags:        []string{"Task Groups"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.OverrideTaskGroupInput) (*dto.TaskGroupOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectAdmin(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		group, err := service.StartGroup(ctx, input.ProjectUUID, input.GroupUUID)
		if err != nil {
			return nil, groupError(err, "Failed to start task group")
		}
		return &dto.TaskGroupOutput{Body: *group}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "taskgroups-stop",
		Method:      http.MethodPost,
		Path:        groupsPath + "/{group_uuid}/stop",
		Summary:     "Stop task group",
		Description: "Force the group's state to NOT_RUNNING until the next window edge, or until started for windowless groups. Requires the admin role.",
		Tags:        []string{"Task Groups"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.OverrideTaskGroupInput) (*dto.TaskGroupOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectAdmin(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		group, err := service.StopGroup(ctx, input.ProjectUUID, input.GroupUUID)
		if err != nil {
			return nil, groupError(err, "Failed to stop task group")
		}
		return &dto.TaskGroupOutput{Body: *group}, nil
	})
}

func groupError(err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrProjectNotFound):
		return huma.Error404NotFound("Project not found")
	case errors.Is(err, mongo.ErrNoDocuments):
		return huma.Error404NotFound("Task group not found")
	case errors.Is(err, services.ErrInvalidWindow):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, services.ErrGroupNotActive):
		return huma.Error400BadRequest("Task group must be ACTIVE to start")
	default:
		return huma.Error500InternalServerError(fallback, err)
	}
}
