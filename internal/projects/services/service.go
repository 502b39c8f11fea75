package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"cronobserver/internal/projects/dto"
	"cronobserver/internal/projects/models"
	"cronobserver/pkg/middleware"
)

// ErrNoAdminUser is returned when a membership update would leave the
// project without an admin.
var ErrNoAdminUser = errors.New("project must have at least one admin user")

// ErrInvalidRequest wraps field validation failures on project payloads.
var ErrInvalidRequest = errors.New("invalid request")

// Service implements project business logic
type Service struct {
	repository *Repository
	authorizer *middleware.Authorizer
}

// NewService creates a new projects service
func NewService(repository *Repository, authorizer *middleware.Authorizer) *Service {
	return &Service{
		repository: repository,
		authorizer: authorizer,
	}
}

// Repository exposes the repository for wiring (API key resolution).
func (s *Service) Repository() *Repository {
	return s.repository
}

// CreateProject creates a project with a fresh API key. The creator becomes
// the first admin member.
func (s *Service) CreateProject(ctx context.Context, creatorEmail string, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	if err := dto.ValidateCreateProjectRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	project := &models.Project{
		UUID:              uuid.New().String(),
		Name:              req.Name,
		APIKey:            apiKey,
		ExecutionEndpoint: req.ExecutionEndpoint,
		AlertEmails:       req.AlertEmails,
		ProjectUsers: []models.ProjectUser{
			{Email: strings.ToLower(creatorEmail), Role: middleware.RoleAdmin},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repository.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	s.syncRoles(project)

	slog.Info("Project created",
		slog.String("project_uuid", project.UUID),
		slog.String("name", project.Name),
		slog.String("creator", creatorEmail))

	resp := projectToResponse(project)
	return &resp, nil
}

// GetProject fetches a single project by UUID
func (s *Service) GetProject(ctx context.Context, projectUUID string) (*dto.ProjectResponse, error) {
	project, err := s.repository.GetProjectByUUID(ctx, projectUUID)
	if err != nil {
		return nil, err
	}
	resp := projectToResponse(project)
	return &resp, nil
}

// ListProjects returns the page of projects visible to the caller. Super
// admins see every project.
func (s *Service) ListProjects(ctx context.Context, callerEmail string, page, pageSize int) (*dto.ProjectListResponse, error) {
	includeAll := s.authorizer != nil && s.authorizer.IsSuperAdmin(callerEmail)

	projects, total, err := s.repository.ListProjects(ctx, strings.ToLower(callerEmail), includeAll, page, pageSize)
	if err != nil {
		return nil, err
	}

	data := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		data = append(data, projectToResponse(&projects[i]))
	}

	return &dto.ProjectListResponse{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// UpdateProject applies a partial update. A replacement membership list must
// keep at least one admin; role policies are re-synced after the write.
func (s *Service) UpdateProject(ctx context.Context, projectUUID string, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error) {
	if err := dto.ValidateUpdateProjectRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	set := bson.M{"updated_at": time.Now().UTC()}

	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.ExecutionEndpoint != nil {
		set["execution_endpoint"] = *req.ExecutionEndpoint
	}
	if req.AlertEmails != nil {
		set["alert_emails"] = *req.AlertEmails
	}
	if req.ProjectUsers != nil {
		users, err := normalizeUsers(*req.ProjectUsers)
		if err != nil {
			return nil, err
		}
		set["project_users"] = users
	}

	project, err := s.repository.UpdateProject(ctx, projectUUID, set)
	if err != nil {
		return nil, err
	}

	if req.ProjectUsers != nil {
		s.syncRoles(project)
	}

	slog.Info("Project updated", slog.String("project_uuid", projectUUID))

	resp := projectToResponse(project)
	return &resp, nil
}

func (s *Service) syncRoles(project *models.Project) {
	if s.authorizer == nil {
		return
	}
	if err := s.authorizer.SyncProjectRoles(project.UUID, project.AdminEmails(), project.ReadonlyEmails()); err != nil {
		slog.Error("Failed to sync project role policies",
			slog.String("project_uuid", project.UUID),
			slog.String("error", err.Error()))
	}
}

func normalizeUsers(users []dto.ProjectUserBody) ([]models.ProjectUser, error) {
	result := make([]models.ProjectUser, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	hasAdmin := false
	for _, u := range users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		if u.Role == middleware.RoleAdmin {
			hasAdmin = true
		}
		result = append(result, models.ProjectUser{Email: email, Role: u.Role})
	}
	if !hasAdmin {
		return nil, ErrNoAdminUser
	}
	return result, nil
}

func projectToResponse(p *models.Project) dto.ProjectResponse {
	users := make([]dto.ProjectUserBody, 0, len(p.ProjectUsers))
	for _, u := range p.ProjectUsers {
		users = append(users, dto.ProjectUserBody{Email: u.Email, Role: u.Role})
	}
	return dto.ProjectResponse{
		UUID:              p.UUID,
		Name:              p.Name,
		APIKey:            p.APIKey,
		ExecutionEndpoint: p.ExecutionEndpoint,
		AlertEmails:       p.AlertEmails,
		ProjectUsers:      users,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
