package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"cronobserver/internal/events"
	projectsDto "cronobserver/internal/projects/dto"
	"cronobserver/internal/taskgroups/dto"
	"cronobserver/internal/taskgroups/models"
	"cronobserver/pkg/eventbus"
	"cronobserver/pkg/schedule"
)

// Sentinel errors surfaced as 400/404 at the HTTP boundary.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrGroupNotActive  = errors.New("task group is not active")
	ErrInvalidWindow   = errors.New("invalid window")
)

// Store is the persistence surface the service depends on. *Repository
// satisfies it; tests substitute an in-memory implementation.
type Store interface {
	CreateTaskGroup(ctx context.Context, group *models.TaskGroup) error
	GetTaskGroup(ctx context.Context, projectUUID, groupUUID string) (*models.TaskGroup, error)
	GetTaskGroupByUUID(ctx context.Context, groupUUID string) (*models.TaskGroup, error)
	ListTaskGroups(ctx context.Context, projectUUID string, page, pageSize int) ([]models.TaskGroup, int64, error)
	UpdateTaskGroup(ctx context.Context, projectUUID, groupUUID string, set, unset bson.M) (*models.TaskGroup, error)
	DeleteTaskGroup(ctx context.Context, projectUUID, groupUUID string) error
}

// Projects is the slice of the projects service used for existence checks.
type Projects interface {
	GetProject(ctx context.Context, projectUUID string) (*projectsDto.ProjectResponse, error)
}

// Service implements task group business logic
type Service struct {
	repository Store
	projects   Projects
	bus        *eventbus.Bus
}

// NewService creates a new task groups service
func NewService(repository Store, projects Projects, bus *eventbus.Bus) *Service {
	return &Service{
		repository: repository,
		projects:   projects,
		bus:        bus,
	}
}

// CreateTaskGroup creates a group under the project
func (s *Service) CreateTaskGroup(ctx context.Context, projectUUID string, req *dto.CreateTaskGroupRequest) (*dto.TaskGroupResponse, error) {
	if err := s.checkProject(ctx, projectUUID); err != nil {
		return nil, err
	}
	if err := validateWindow(req.StartTime, req.EndTime, req.Timezone); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.StatusActive
	}

	now := time.Now().UTC()
	group := &models.TaskGroup{
		UUID:        uuid.New().String(),
		ProjectUUID: projectUUID,
		Name:        req.Name,
		Description: req.Description,
		Status:      status,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Timezone:    req.Timezone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	group.State = group.EffectiveState(now)

	if err := s.repository.CreateTaskGroup(ctx, group); err != nil {
		return nil, err
	}

	s.publish(events.TaskGroupCreated, group)
	slog.Info("Task group created",
		slog.String("group_uuid", group.UUID),
		slog.String("project_uuid", projectUUID))

	resp := groupToResponse(group, now)
	return &resp, nil
}

// GetTaskGroup fetches a single group
func (s *Service) GetTaskGroup(ctx context.Context, projectUUID, groupUUID string) (*dto.TaskGroupResponse, error) {
	group, err := s.repository.GetTaskGroup(ctx, projectUUID, groupUUID)
	if err != nil {
		return nil, err
	}
	resp := groupToResponse(group, time.Now().UTC())
	return &resp, nil
}

// GetTaskGroupByUUID fetches a group without project scoping. The tasks
// module uses it to derive member task states.
func (s *Service) GetTaskGroupByUUID(ctx context.Context, groupUUID string) (*models.TaskGroup, error) {
	return s.repository.GetTaskGroupByUUID(ctx, groupUUID)
}

// ListTaskGroups returns a page of the project's groups
func (s *Service) ListTaskGroups(ctx context.Context, projectUUID string, page, pageSize int) (*dto.TaskGroupListResponse, error) {
	if err := s.checkProject(ctx, projectUUID); err != nil {
		return nil, err
	}

	groups, total, err := s.repository.ListTaskGroups(ctx, projectUUID, page, pageSize)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	data := make([]dto.TaskGroupResponse, 0, len(groups))
	for i := range groups {
		data = append(data, groupToResponse(&groups[i], now))
	}

	return &dto.TaskGroupListResponse{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// UpdateTaskGroup applies a partial update. Window changes are validated
// against the merged configuration and clear any manual override.
func (s *Service) UpdateTaskGroup(ctx context.Context, projectUUID, groupUUID string, req *dto.UpdateTaskGroupRequest) (*dto.TaskGroupResponse, error) {
	current, err := s.repository.GetTaskGroup(ctx, projectUUID, groupUUID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	set := bson.M{"updated_at": now}
	unset := bson.M{}

	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Status != nil {
		set["status"] = *req.Status
	}

	windowTouched := req.StartTime != nil || req.EndTime != nil || req.Timezone != nil
	if windowTouched {
		start, end, zone := current.StartTime, current.EndTime, current.Timezone
		if req.StartTime != nil {
			start = *req.StartTime
		}
		if req.EndTime != nil {
			end = *req.EndTime
		}
		if req.Timezone != nil {
			zone = *req.Timezone
		}
		if err := validateWindow(start, end, zone); err != nil {
			return nil, err
		}
		set["start_time"] = start
		set["end_time"] = end
		set["timezone"] = zone
	}

	// Status or window changes invalidate a standing manual override.
	if req.Status != nil || windowTouched {
		unset["window_override"] = ""
		unset["window_overridden_at"] = ""
	}

	group, err := s.repository.UpdateTaskGroup(ctx, projectUUID, groupUUID, set, unset)
	if err != nil {
		return nil, err
	}

	s.publish(events.TaskGroupUpdated, group)
	slog.Info("Task group updated", slog.String("group_uuid", groupUUID))

	resp := groupToResponse(group, now)
	return &resp, nil
}

// DeleteTaskGroup removes the group. Member tasks keep running ungrouped;
// the tasks module clears their references on the published event.
func (s *Service) DeleteTaskGroup(ctx context.Context, projectUUID, groupUUID string) error {
	if err := s.repository.DeleteTaskGroup(ctx, projectUUID, groupUUID); err != nil {
		return err
	}

	s.bus.Publish(eventbus.Event{
		Type:    events.TaskGroupDeleted,
		Payload: events.TaskGroupPayload{GroupUUID: groupUUID, ProjectUUID: projectUUID},
	})
	slog.Info("Task group deleted", slog.String("group_uuid", groupUUID))
	return nil
}

// StartGroup forces the group's state to RUNNING until the next window edge
// (or until reversed, for windowless groups). Requires status ACTIVE.
func (s *Service) StartGroup(ctx context.Context, projectUUID, groupUUID string) (*dto.TaskGroupResponse, error) {
	return s.override(ctx, projectUUID, groupUUID, models.StateRunning)
}

// StopGroup forces the group's state to NOT_RUNNING until the next window
// edge (or until reversed, for windowless groups).
func (s *Service) StopGroup(ctx context.Context, projectUUID, groupUUID string) (*dto.TaskGroupResponse, error) {
	return s.override(ctx, projectUUID, groupUUID, models.StateNotRunning)
}

func (s *Service) override(ctx context.Context, projectUUID, groupUUID, state string) (*dto.TaskGroupResponse, error) {
	current, err := s.repository.GetTaskGroup(ctx, projectUUID, groupUUID)
	if err != nil {
		return nil, err
	}
	if state == models.StateRunning && current.Status != models.StatusActive {
		return nil, ErrGroupNotActive
	}

	now := time.Now().UTC()
	set := bson.M{
		"window_override":      state,
		"window_overridden_at": now,
		"state":                state,
		"updated_at":           now,
	}

	group, err := s.repository.UpdateTaskGroup(ctx, projectUUID, groupUUID, set, nil)
	if err != nil {
		return nil, err
	}

	s.publish(events.TaskGroupUpdated, group)
	slog.Info("Task group window override set",
		slog.String("group_uuid", groupUUID),
		slog.String("state", state))

	resp := groupToResponse(group, now)
	return &resp, nil
}

func (s *Service) checkProject(ctx context.Context, projectUUID string) error {
	_, err := s.projects.GetProject(ctx, projectUUID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrProjectNotFound
		}
		return err
	}
	return nil
}

func (s *Service) publish(eventType string, group *models.TaskGroup) {
	s.bus.Publish(eventbus.Event{
		Type:    eventType,
		Payload: events.TaskGroupPayload{GroupUUID: group.UUID, ProjectUUID: group.ProjectUUID},
	})
}

func validateWindow(start, end, zone string) error {
	if (start == "") != (end == "") {
		return fmt.Errorf("%w: start and end times must be set together", ErrInvalidWindow)
	}
	if start == "" {
		return nil
	}
	startMin, err := schedule.ParseHHMM(start)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, err)
	}
	endMin, err := schedule.ParseHHMM(end)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, err)
	}
	if startMin == endMin {
		return fmt.Errorf("%w: start and end times must differ", ErrInvalidWindow)
	}
	if zone == "" {
		return fmt.Errorf("%w: timezone is required when a window is set", ErrInvalidWindow)
	}
	if err := schedule.ValidateTimezone(zone); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, err)
	}
	return nil
}

func groupToResponse(g *models.TaskGroup, at time.Time) dto.TaskGroupResponse {
	return dto.TaskGroupResponse{
		UUID:        g.UUID,
		ProjectUUID: g.ProjectUUID,
		Name:        g.Name,
		Description: g.Description,
		Status:      g.Status,
		State:       g.EffectiveState(at),
		StartTime:   g.StartTime,
		EndTime:     g.EndTime,
		Timezone:    g.Timezone,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}
