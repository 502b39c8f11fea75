package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"cronobserver/internal/events"
	executionsModels "cronobserver/internal/executions/models"
	projectsDto "cronobserver/internal/projects/dto"
	taskgroupsDto "cronobserver/internal/taskgroups/dto"
	taskgroupsModels "cronobserver/internal/taskgroups/models"
	"cronobserver/internal/tasks/dto"
	"cronobserver/internal/tasks/models"
	"cronobserver/pkg/eventbus"
	"cronobserver/pkg/queue"
	"cronobserver/pkg/schedule"
)

// Sentinel errors surfaced as 400/404/409 at the HTTP boundary.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrGroupNotFound   = errors.New("task group not found in project")
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrInvalidTrigger  = errors.New("invalid trigger")
	ErrTaskLocked      = errors.New("task is pending deletion")
	ErrTaskNotActive   = errors.New("task is not active")
	ErrNoTriggerTarget = errors.New("task has no trigger_config and the project has no execution_endpoint")
)

// Engine is the slice of the schedule engine the tasks service drives.
type Engine interface {
	Trigger(ctx context.Context, taskUUID string) (executionUUID string, scheduledAt time.Time, err error)
}

// Store is the persistence surface the service depends on. *Repository
// satisfies it; tests substitute an in-memory implementation.
type Store interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, projectUUID, taskUUID string) (*models.Task, error)
	GetTaskByUUID(ctx context.Context, taskUUID string) (*models.Task, error)
	ListTasks(ctx context.Context, projectUUID string, page, pageSize int) ([]models.Task, int64, error)
	UpdateTask(ctx context.Context, projectUUID, taskUUID string, set, unset bson.M) (*models.Task, error)
	UpdateTaskStatus(ctx context.Context, taskUUID string, from []string, to string) (*models.Task, error)
	ClearGroupRefs(ctx context.Context, groupUUID string) (int64, error)
}

// Projects is the slice of the projects service used for existence checks
// and the execution endpoint fallback.
type Projects interface {
	GetProject(ctx context.Context, projectUUID string) (*projectsDto.ProjectResponse, error)
}

// Groups is the slice of the task groups service used for membership checks
// and state derivation.
type Groups interface {
	GetTaskGroup(ctx context.Context, projectUUID, groupUUID string) (*taskgroupsDto.TaskGroupResponse, error)
	GetTaskGroupByUUID(ctx context.Context, groupUUID string) (*taskgroupsModels.TaskGroup, error)
}

// Queue publishes delete jobs for the background worker.
type Queue interface {
	PublishTaskDelete(ctx context.Context, msg queue.DeleteTaskMessage) error
}

// Service implements task business logic
type Service struct {
	repository Store
	projects   Projects
	groups     Groups
	engine     Engine
	queue      Queue
	bus        *eventbus.Bus
}

// NewService creates a new tasks service
func NewService(repository Store, projects Projects, groups Groups, engine Engine, rabbit Queue, bus *eventbus.Bus) *Service {
	return &Service{
		repository: repository,
		projects:   projects,
		groups:     groups,
		engine:     engine,
		queue:      rabbit,
		bus:        bus,
	}
}

// CreateTask creates a task under the project
func (s *Service) CreateTask(ctx context.Context, projectUUID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	if err := s.checkProject(ctx, projectUUID); err != nil {
		return nil, err
	}
	if req.TaskGroupUUID != "" {
		if err := s.checkGroup(ctx, projectUUID, req.TaskGroupUUID); err != nil {
			return nil, err
		}
	}

	cfg := scheduleConfigFromBody(&req.ScheduleConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSchedule, err)
	}

	trigger, err := triggerConfigFromBody(req.TriggerConfig)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.StatusActive
	}
	scheduleType := req.ScheduleType
	if scheduleType == "" {
		scheduleType = models.ScheduleRecurring
	}

	now := time.Now().UTC()
	task := &models.Task{
		UUID:           uuid.New().String(),
		ProjectUUID:    projectUUID,
		TaskGroupUUID:  req.TaskGroupUUID,
		Name:           req.Name,
		Description:    req.Description,
		ScheduleType:   scheduleType,
		ScheduleConfig: *cfg,
		TriggerConfig:  trigger,
		Status:         status,
		TimeoutSeconds: req.TimeoutSeconds,
		Metadata:       req.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	task.State = s.taskState(ctx, task, map[string]string{}, now)

	if err := s.repository.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	s.publish(events.TaskCreated, task.UUID, projectUUID)
	slog.Info("Task created",
		slog.String("task_uuid", task.UUID),
		slog.String("project_uuid", projectUUID),
		slog.String("status", task.Status))

	resp := s.taskToResponse(ctx, task, map[string]string{}, now)
	return &resp, nil
}

// GetTask fetches a single task
func (s *Service) GetTask(ctx context.Context, projectUUID, taskUUID string) (*dto.TaskResponse, error) {
	task, err := s.repository.GetTask(ctx, projectUUID, taskUUID)
	if err != nil {
		return nil, err
	}
	resp := s.taskToResponse(ctx, task, map[string]string{}, time.Now().UTC())
	return &resp, nil
}

// ListTasks returns a page of the project's tasks
func (s *Service) ListTasks(ctx context.Context, projectUUID string, page, pageSize int) (*dto.TaskListResponse, error) {
	if err := s.checkProject(ctx, projectUUID); err != nil {
		return nil, err
	}

	tasks, total, err := s.repository.ListTasks(ctx, projectUUID, page, pageSize)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	groupStates := map[string]string{}
	data := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		data = append(data, s.taskToResponse(ctx, &tasks[i], groupStates, now))
	}

	return &dto.TaskListResponse{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// UpdateTask applies a partial update. Tasks queued for deletion reject
// every mutation.
func (s *Service) UpdateTask(ctx context.Context, projectUUID, taskUUID string, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error) {
	current, err := s.repository.GetTask(ctx, projectUUID, taskUUID)
	if err != nil {
		return nil, err
	}
	if current.Status == models.StatusPendingDelete {
		return nil, ErrTaskLocked
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
	if req.ScheduleType != nil {
		set["schedule_type"] = *req.ScheduleType
	}
	if req.TaskGroupUUID != nil {
		if *req.TaskGroupUUID == "" {
			unset["task_group_uuid"] = ""
		} else {
			if err := s.checkGroup(ctx, projectUUID, *req.TaskGroupUUID); err != nil {
				return nil, err
			}
			set["task_group_uuid"] = *req.TaskGroupUUID
		}
	}
	if req.ScheduleConfig != nil {
		cfg := scheduleConfigFromBody(req.ScheduleConfig)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSchedule, err)
		}
		set["schedule_config"] = cfg
	}
	if req.TriggerConfig != nil {
		trigger, err := triggerConfigFromBody(req.TriggerConfig)
		if err != nil {
			return nil, err
		}
		set["trigger_config"] = trigger
	}
	if req.TimeoutSeconds != nil {
		if *req.TimeoutSeconds == 0 {
			unset["timeout_seconds"] = ""
		} else {
			set["timeout_seconds"] = *req.TimeoutSeconds
		}
	}
	if req.Metadata != nil {
		set["metadata"] = *req.Metadata
	}

	task, err := s.repository.UpdateTask(ctx, projectUUID, taskUUID, set, unset)
	if err != nil {
		return nil, err
	}

	s.publish(events.TaskUpdated, taskUUID, projectUUID)
	slog.Info("Task updated", slog.String("task_uuid", taskUUID))

	resp := s.taskToResponse(ctx, task, map[string]string{}, now)
	return &resp, nil
}

// UpdateTaskStatus flips the user-controlled status. Only ACTIVE and
// DISABLED can be set here; the guard loses to a concurrent delete.
func (s *Service) UpdateTaskStatus(ctx context.Context, projectUUID, taskUUID, status string) (*dto.TaskResponse, error) {
	current, err := s.repository.GetTask(ctx, projectUUID, taskUUID)
	if err != nil {
		return nil, err
	}
	if current.Status == models.StatusPendingDelete {
		return nil, ErrTaskLocked
	}

	task, err := s.repository.UpdateTaskStatus(ctx, taskUUID,
		[]string{models.StatusActive, models.StatusDisabled, models.StatusDeleteFailed}, status)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskLocked
		}
		return nil, err
	}

	s.publish(events.TaskUpdated, taskUUID, projectUUID)
	slog.Info("Task status changed",
		slog.String("task_uuid", taskUUID),
		slog.String("status", status))

	resp := s.taskToResponse(ctx, task, map[string]string{}, time.Now().UTC())
	return &resp, nil
}

// DeleteTask queues the task for asynchronous deletion. The response is an
// acknowledgement; the delete worker performs the actual removal. Deleting
// an already-missing task acknowledges idempotently.
func (s *Service) DeleteTask(ctx context.Context, projectUUID, taskUUID string) (*dto.DeleteTaskResponse, error) {
	task, err := s.repository.GetTask(ctx, projectUUID, taskUUID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &dto.DeleteTaskResponse{
				UUID:    taskUUID,
				Status:  dto.DeleteAlreadyDeleted,
				Message: "Task does not exist",
			}, nil
		}
		return nil, err
	}

	prior := task.Status
	marked := false
	if prior != models.StatusPendingDelete {
		_, err := s.repository.UpdateTaskStatus(ctx, taskUUID,
			[]string{models.StatusActive, models.StatusDisabled, models.StatusDeleteFailed}, models.StatusPendingDelete)
		switch {
		case err == nil:
			marked = true
		case errors.Is(err, mongo.ErrNoDocuments):
			// Lost a race with another delete; re-enqueueing is harmless.
			if _, gerr := s.repository.GetTaskByUUID(ctx, taskUUID); errors.Is(gerr, mongo.ErrNoDocuments) {
				return &dto.DeleteTaskResponse{
					UUID:    taskUUID,
					Status:  dto.DeleteAlreadyDeleted,
					Message: "Task does not exist",
				}, nil
			} else if gerr != nil {
				return nil, gerr
			}
		default:
			return nil, err
		}
	}

	msg := queue.DeleteTaskMessage{
		TaskUUID:    taskUUID,
		ProjectUUID: projectUUID,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.queue.PublishTaskDelete(ctx, msg); err != nil {
		if marked {
			if _, rerr := s.repository.UpdateTaskStatus(ctx, taskUUID,
				[]string{models.StatusPendingDelete}, prior); rerr != nil {
				slog.Error("Failed to roll back task status after publish failure",
					slog.String("task_uuid", taskUUID),
					slog.String("error", rerr.Error()))
			}
		}
		return nil, fmt.Errorf("failed to enqueue task delete: %w", err)
	}

	// The engine drops its registration on this event.
	s.publish(events.TaskUpdated, taskUUID, projectUUID)
	slog.Info("Task delete queued",
		slog.String("task_uuid", taskUUID),
		slog.String("project_uuid", projectUUID))

	return &dto.DeleteTaskResponse{
		UUID:    taskUUID,
		Status:  dto.DeleteQueued,
		Message: "Task delete queued",
	}, nil
}

// TriggerTask synthesizes a MANUAL execution immediately. The task must be
// ACTIVE and have somewhere to send the executor: its own trigger_config or
// the project's execution_endpoint.
func (s *Service) TriggerTask(ctx context.Context, projectUUID, taskUUID string) (*dto.TriggerTaskResponse, error) {
	task, err := s.repository.GetTask(ctx, projectUUID, taskUUID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.StatusActive {
		return nil, ErrTaskNotActive
	}
	if task.TriggerConfig == nil {
		project, err := s.projects.GetProject(ctx, projectUUID)
		if err != nil {
			return nil, err
		}
		if project.ExecutionEndpoint == "" {
			return nil, ErrNoTriggerTarget
		}
	}

	executionUUID, scheduledAt, err := s.engine.Trigger(ctx, taskUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to trigger task: %w", err)
	}

	slog.Info("Task triggered manually",
		slog.String("task_uuid", taskUUID),
		slog.String("execution_uuid", executionUUID))

	return &dto.TriggerTaskResponse{
		ExecutionUUID: executionUUID,
		TaskUUID:      taskUUID,
		Status:        executionsModels.StatusPending,
		TriggerType:   executionsModels.TriggerManual,
		ScheduledAt:   scheduledAt,
	}, nil
}

// HandleGroupDeleted detaches every task that referenced the deleted group
func (s *Service) HandleGroupDeleted(ctx context.Context, groupUUID string) {
	count, err := s.repository.ClearGroupRefs(ctx, groupUUID)
	if err != nil {
		slog.Error("Failed to clear task group references",
			slog.String("group_uuid", groupUUID),
			slog.String("error", err.Error()))
		return
	}
	if count > 0 {
		slog.Info("Detached tasks from deleted group",
			slog.String("group_uuid", groupUUID),
			slog.Int64("tasks", count))
	}
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

func (s *Service) checkGroup(ctx context.Context, projectUUID, groupUUID string) error {
	_, err := s.groups.GetTaskGroup(ctx, projectUUID, groupUUID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrGroupNotFound
		}
		return err
	}
	return nil
}

func (s *Service) publish(eventType, taskUUID, projectUUID string) {
	s.bus.Publish(eventbus.Event{
		Type:    eventType,
		Payload: events.TaskPayload{TaskUUID: taskUUID, ProjectUUID: projectUUID},
	})
}

// taskState derives the RUNNING/NOT_RUNNING state, consulting the group's
// effective state through a per-call cache.
func (s *Service) taskState(ctx context.Context, task *models.Task, groupStates map[string]string, at time.Time) string {
	if task.Status != models.StatusActive {
		return models.StateNotRunning
	}
	if task.TaskGroupUUID == "" {
		return models.StateRunning
	}
	if state, ok := groupStates[task.TaskGroupUUID]; ok {
		return state
	}

	state := models.StateRunning
	group, err := s.groups.GetTaskGroupByUUID(ctx, task.TaskGroupUUID)
	if err == nil {
		state = group.EffectiveState(at)
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		slog.Warn("Failed to load task group for state derivation",
			slog.String("group_uuid", task.TaskGroupUUID),
			slog.String("error", err.Error()))
		state = taskgroupsModels.StateNotRunning
	}
	groupStates[task.TaskGroupUUID] = state
	return state
}

func (s *Service) taskToResponse(ctx context.Context, task *models.Task, groupStates map[string]string, at time.Time) dto.TaskResponse {
	return dto.TaskResponse{
		UUID:           task.UUID,
		ProjectUUID:    task.ProjectUUID,
		TaskGroupUUID:  task.TaskGroupUUID,
		Name:           task.Name,
		Description:    task.Description,
		ScheduleType:   task.ScheduleType,
		ScheduleConfig: scheduleConfigToBody(&task.ScheduleConfig),
		TriggerConfig:  triggerConfigToBody(task.TriggerConfig),
		Status:         task.Status,
		State:          s.taskState(ctx, task, groupStates, at),
		TimeoutSeconds: task.TimeoutSeconds,
		Metadata:       task.Metadata,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}
}

func scheduleConfigFromBody(body *dto.ScheduleConfigBody) *models.ScheduleConfig {
	cfg := &models.ScheduleConfig{
		Timezone:       body.Timezone,
		CronExpression: body.CronExpression,
		DaysOfWeek:     body.DaysOfWeek,
		Exclusions:     body.Exclusions,
	}
	if body.TimeRange != nil {
		cfg.TimeRange = &schedule.TimeRange{
			Start: body.TimeRange.Start,
			End:   body.TimeRange.End,
			Frequency: schedule.Frequency{
				Value: body.TimeRange.Frequency.Value,
				Unit:  body.TimeRange.Frequency.Unit,
			},
		}
	}
	return cfg
}

func scheduleConfigToBody(cfg *models.ScheduleConfig) dto.ScheduleConfigBody {
	body := dto.ScheduleConfigBody{
		Timezone:       cfg.Timezone,
		CronExpression: cfg.CronExpression,
		DaysOfWeek:     cfg.DaysOfWeek,
		Exclusions:     cfg.Exclusions,
	}
	if cfg.TimeRange != nil {
		body.TimeRange = &dto.TimeRangeBody{
			Start: cfg.TimeRange.Start,
			End:   cfg.TimeRange.End,
			Frequency: dto.FrequencyBody{
				Value: cfg.TimeRange.Frequency.Value,
				Unit:  cfg.TimeRange.Frequency.Unit,
			},
		}
	}
	return body
}

func triggerConfigFromBody(body *dto.TriggerConfigBody) (*models.TriggerConfig, error) {
	if body == nil {
		return nil, nil
	}
	trigger := &models.TriggerConfig{Type: body.Type}
	if trigger.Type == "" {
		trigger.Type = models.TriggerTypeHTTP
	}
	if body.HTTP != nil {
		method := body.HTTP.Method
		if method == "" {
			method = http.MethodPost
		}
		trigger.HTTP = &models.HTTPTrigger{
			URL:            body.HTTP.URL,
			Method:         method,
			Headers:        body.HTTP.Headers,
			Body:           body.HTTP.Body,
			TimeoutSeconds: body.HTTP.TimeoutSeconds,
		}
	}
	if err := trigger.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTrigger, err)
	}
	return trigger, nil
}

func triggerConfigToBody(trigger *models.TriggerConfig) *dto.TriggerConfigBody {
	if trigger == nil {
		return nil
	}
	body := &dto.TriggerConfigBody{Type: trigger.Type}
	if trigger.HTTP != nil {
		body.HTTP = &dto.HTTPTriggerBody{
			URL:            trigger.HTTP.URL,
			Method:         trigger.HTTP.Method,
			Headers:        trigger.HTTP.Headers,
			Body:           trigger.HTTP.Body,
			TimeoutSeconds: trigger.HTTP.TimeoutSeconds,
		}
	}
	return body
}
