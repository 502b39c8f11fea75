package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"cronobserver/internal/projects/dto"
	"cronobserver/internal/projects/services"
	"cronobserver/pkg/middleware"
)

// RegisterProjectsRoutes registers the project routes on a shared Huma API
func RegisterProjectsRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.AuthMiddleware, authorizer *middleware.Authorizer) {
	huma.Register(api, huma.Operation{
		OperationID: "projects-list",
		Method:      http.MethodGet,
		Path:        basePath + "/projects",
		Summary:     "List projects",
		Description: "List projects the caller is a member of. Super admins see every project.",
		Tags:        []string{"Projects"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.ListProjectsInput) (*dto.ProjectListOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
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

		list, err := service.ListProjects(ctx, user.Email, page, pageSize)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to list projects", err)
		}
		return &dto.ProjectListOutput{Body: *list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "projects-create",
		Method:      http.MethodPost,
		Path:        basePath + "/projects",
		Summary:     "Create project",
		Description: "Create a project with a generated API key. The creator becomes the first admin member.",
		Tags:        []string{"Projects"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.CreateProjectInput) (*dto.ProjectOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}

		project, err := service.CreateProject(ctx, user.Email, &input.Body)
		if err != nil {
			if errors.Is(err, services.ErrInvalidRequest) {
				return nil, huma.Error400BadRequest(err.Error())
			}
			return nil, huma.Error500InternalServerError("Failed to create project", err)
		}
		return &dto.ProjectOutput{Body: *project}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "projects-get",
		Method:      http.MethodGet,
		Path:        basePath + "/projects/{project_uuid}",
		Summary:     "Get project",
		Description: "Fetch a single project by UUID",
		Tags:        []string{"Projects"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.GetProjectInput) (*dto.ProjectOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectRead(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		project, err := service.GetProject(ctx, input.ProjectUUID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, huma.Error404NotFound("Project not found")
			}
			return nil, huma.Error500InternalServerError("Failed to get project", err)
		}
		return &dto.ProjectOutput{Body: *project}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "projects-update",
		Method:      http.MethodPut,
		Path:        basePath + "/projects/{project_uuid}",
		Summary:     "Update project",
		Description: "Update project fields, including the membership list. Requires the admin role.",
		Tags:        []string{"Projects"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *dto.UpdateProjectInput) (*dto.ProjectOutput, error) {
		user, err := auth.RequireAuth(ctx, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := authorizer.RequireProjectAdmin(user, input.ProjectUUID); err != nil {
			return nil, err
		}

		project, err := service.UpdateProject(ctx, input.ProjectUUID, &input.Body)
		if err != nil {
			if errors.Is(err, services.ErrInvalidRequest) {
				return nil, huma.Error400BadRequest(err.Error())
			}
			if errors.Is(err, services.ErrNoAdminUser) {
				return nil, huma.Error400BadRequest("Project must keep at least one admin user")
			}
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, huma.Error404NotFound("Project not found")
			}
			return nil, huma.Error500InternalServerError("Failed to update project", err)
		}
		return &dto.ProjectOutput{Body: *project}, nil
	})
}
