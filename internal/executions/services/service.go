package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"cronobserver/internal/events"
	"cronobserver/internal/executions/dto"
	"cronobserver/internal/executions/models"
	"cronobserver/pkg/eventbus"
	"cronobserver/pkg/schedule"
)

// Claim limits.
const (
	defaultClaimLimit = 10
	maxClaimLimit     = 100
)

// Sentinel errors surfaced as 400/409 at the HTTP boundary.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStatusConflict    = errors.New("execution status changed concurrently")
	ErrExecutionTerminal = errors.New("execution is terminal")
	ErrLogCapExceeded    = errors.New("log capacity exceeded")
	ErrInvalidDate       = errors.New("invalid date")
)

// Store is the persistence surface the service depends on. *Repository
// satisfies it; tests substitute an in-memory implementation.
type Store interface {
	GetExecution(ctx context.Context, projectUUID, executionUUID string) (*models.Execution, error)
	ListPending(ctx context.Context, projectUUID, taskUUID string, limit int) ([]models.Execution, error)
	ListTaskExecutions(ctx context.Context, projectUUID, taskUUID string, date *time.Time, page, pageSize int) ([]executionRow, int64, error)
	UpdateExecutionStatus(ctx context.Context, executionUUID, fromStatus string, set bson.M) (*models.Execution, error)
	AppendLogs(ctx context.Context, projectUUID, executionUUID string, entries []models.LogEntry) (bool, error)
	ListRunningWithTimeout(ctx context.Context) ([]models.Execution, error)
}

// Service implements the execution lifecycle
type Service struct {
	repository Store
	bus        *eventbus.Bus
}

// NewService creates a new executions service
func NewService(repository Store, bus *eventbus.Bus) *Service {
	return &Service{
		repository: repository,
		bus:        bus,
	}
}

// ClaimPending returns up to limit PENDING executions of the task, oldest
// scheduled first. Claiming is read-only; the executor reports RUNNING
// explicitly.
func (s *Service) ClaimPending(ctx context.Context, projectUUID, taskUUID string, limit int) (*dto.PendingExecutionsResponse, error) {
	if limit <= 0 {
		limit = defaultClaimLimit
	}
	if limit > maxClaimLimit {
		limit = maxClaimLimit
	}

	executions, err := s.repository.ListPending(ctx, projectUUID, taskUUID, limit)
	if err != nil {
		return nil, err
	}

	data := make([]dto.ExecutionResponse, 0, len(executions))
	for i := range executions {
		data = append(data, executionToResponse(&executions[i], false))
	}
	return &dto.PendingExecutionsResponse{Data: data}, nil
}

// UpdateStatus moves the execution through its state machine. The write is
// an optimistic compare-and-set on the current status, re-read and retried
// once when another writer got there first.
func (s *Service) UpdateStatus(ctx context.Context, projectUUID, executionUUID string, req *dto.UpdateExecutionStatusRequest) (*dto.ExecutionResponse, error) {
	current, err := s.repository.GetExecution(ctx, projectUUID, executionUUID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		if !models.ValidTransition(current.Status, req.Status) {
			return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, req.Status)
		}

		now := time.Now().UTC()
		set := bson.M{
			"status":     req.Status,
			"updated_at": now,
		}
		if current.Status == models.StatusPending && req.Status == models.StatusRunning {
			set["started_at"] = now
		}
		if models.Terminal(req.Status) {
			set["ended_at"] = now
			if current.StartedAt != nil {
				set["duration_ms"] = now.Sub(*current.StartedAt).Milliseconds()
			}
		}
		if req.ResponseStatus != nil {
			set["response_status"] = *req.ResponseStatus
		}
		if req.Status == models.StatusFailed && req.Error != "" {
			set["error"] = req.Error
		}

		updated, err := s.repository.UpdateExecutionStatus(ctx, executionUUID, current.Status, set)
		if err == nil {
			s.publishTerminal(updated)
			slog.Info("Execution status updated",
				slog.String("execution_uuid", executionUUID),
				slog.String("from", current.Status),
				slog.String("to", req.Status))
			resp := executionToResponse(updated, false)
			return &resp, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		current, err = s.repository.GetExecution(ctx, projectUUID, executionUUID)
		if err != nil {
			return nil, err
		}
	}
	return nil, ErrStatusConflict
}

// AppendLogs appends a batch of executor log lines. Terminal executions and
// batches that would push the total past the cap are rejected.
func (s *Service) AppendLogs(ctx context.Context, projectUUID, executionUUID string, req *dto.AppendLogsRequest) (*dto.AppendLogsResponse, error) {
	current, err := s.repository.GetExecution(ctx, projectUUID, executionUUID)
	if err != nil {
		return nil, err
	}
	if models.Terminal(current.Status) {
		return nil, ErrExecutionTerminal
	}
	if len(current.Logs)+len(req.Logs) > models.MaxLogsTotal {
		return nil, fmt.Errorf("%w: %d stored, %d in batch, cap %d",
			ErrLogCapExceeded, len(current.Logs), len(req.Logs), models.MaxLogsTotal)
	}

	now := time.Now().UTC()
	entries := make([]models.LogEntry, 0, len(req.Logs))
	for _, l := range req.Logs {
		ts := now
		if l.Timestamp != nil {
			ts = l.Timestamp.UTC()
		}
		entries = append(entries, models.LogEntry{
			Timestamp: ts,
			Level:     l.Level,
			Message:   l.Message,
			Metadata:  l.Metadata,
		})
	}

	appended, err := s.repository.AppendLogs(ctx, projectUUID, executionUUID, entries)
	if err != nil {
		return nil, err
	}
	if !appended {
		// The atomic guard lost a race; re-read to name the reason.
		current, err = s.repository.GetExecution(ctx, projectUUID, executionUUID)
		if err != nil {
			return nil, err
		}
		if models.Terminal(current.Status) {
			return nil, ErrExecutionTerminal
		}
		return nil, fmt.Errorf("%w: cap %d", ErrLogCapExceeded, models.MaxLogsTotal)
	}

	return &dto.AppendLogsResponse{
		ExecutionUUID: executionUUID,
		Appended:      len(entries),
		TotalLogs:     len(current.Logs) + len(entries),
	}, nil
}

// GetExecution fetches a single execution with its logs
func (s *Service) GetExecution(ctx context.Context, projectUUID, executionUUID string) (*dto.ExecutionResponse, error) {
	execution, err := s.repository.GetExecution(ctx, projectUUID, executionUUID)
	if err != nil {
		return nil, err
	}
	resp := executionToResponse(execution, true)
	return &resp, nil
}

// ListTaskExecutions returns a page of the task's execution history
func (s *Service) ListTaskExecutions(ctx context.Context, projectUUID, taskUUID, dateStr string, page, pageSize int) (*dto.ExecutionListResponse, error) {
	var date *time.Time
	if dateStr != "" {
		parsed, err := time.ParseInLocation(schedule.DateLayout, dateStr, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, dateStr)
		}
		date = &parsed
	}

	rows, total, err := s.repository.ListTaskExecutions(ctx, projectUUID, taskUUID, date, page, pageSize)
	if err != nil {
		return nil, err
	}

	data := make([]dto.ExecutionResponse, 0, len(rows))
	for i := range rows {
		resp := executionToResponse(&rows[i].Execution, false)
		resp.LogCount = rows[i].LogCount
		data = append(data, resp)
	}

	return &dto.ExecutionListResponse{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// SweepTimeouts forces RUNNING executions past their deadline into FAILED
// with error "timeout", publishing execution.timed_out for each. Returns the
// number forced. A CAS miss means the executor finished first and is not an
// error.
func (s *Service) SweepTimeouts(ctx context.Context, now time.Time) int {
	executions, err := s.repository.ListRunningWithTimeout(ctx)
	if err != nil {
		slog.Error("Watchdog failed to list running executions", slog.String("error", err.Error()))
		return 0
	}

	forced := 0
	for i := range executions {
		e := &executions[i]
		if e.StartedAt == nil {
			continue
		}
		deadline := e.StartedAt.Add(time.Duration(e.TimeoutSeconds) * time.Second)
		if now.Before(deadline) {
			continue
		}

		set := bson.M{
			"status":      models.StatusFailed,
			"error":       "timeout",
			"ended_at":    now,
			"duration_ms": now.Sub(*e.StartedAt).Milliseconds(),
			"updated_at":  now,
		}
		if _, err := s.repository.UpdateExecutionStatus(ctx, e.UUID, models.StatusRunning, set); err != nil {
			if !errors.Is(err, mongo.ErrNoDocuments) {
				slog.Error("Watchdog failed to fail execution",
					slog.String("execution_uuid", e.UUID),
					slog.String("error", err.Error()))
			}
			continue
		}

		forced++
		s.bus.Publish(eventbus.Event{
			Type: events.ExecutionTimedOut,
			Payload: events.ExecutionTimedOutPayload{
				ExecutionUUID:  e.UUID,
				TaskUUID:       e.TaskUUID,
				ProjectUUID:    e.ProjectUUID,
				ScheduledAt:    e.ScheduledAt,
				TimeoutSeconds: e.TimeoutSeconds,
			},
		})
		slog.Warn("Execution timed out",
			slog.String("execution_uuid", e.UUID),
			slog.String("task_uuid", e.TaskUUID),
			slog.Int("timeout_seconds", e.TimeoutSeconds))
	}
	return forced
}

func (s *Service) publishTerminal(execution *models.Execution) {
	var eventType string
	switch execution.Status {
	case models.StatusSuccess:
		eventType = events.ExecutionSucceeded
	case models.StatusFailed:
		eventType = events.ExecutionFailed
	default:
		return
	}
	s.bus.Publish(eventbus.Event{
		Type: eventType,
		Payload: events.ExecutionPayload{
			ExecutionUUID: execution.UUID,
			TaskUUID:      execution.TaskUUID,
			ProjectUUID:   execution.ProjectUUID,
			ScheduledAt:   execution.ScheduledAt,
		},
	})
}

func executionToResponse(e *models.Execution, withLogs bool) dto.ExecutionResponse {
	resp := dto.ExecutionResponse{
		UUID:           e.UUID,
		TaskUUID:       e.TaskUUID,
		ProjectUUID:    e.ProjectUUID,
		Status:         e.Status,
		TriggerType:    e.TriggerType,
		ScheduledAt:    e.ScheduledAt,
		StartedAt:      e.StartedAt,
		EndedAt:        e.EndedAt,
		DurationMs:     e.DurationMs,
		ResponseStatus: e.ResponseStatus,
		Error:          e.Error,
		TimeoutSeconds: e.TimeoutSeconds,
		LogCount:       len(e.Logs),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
	if withLogs {
		logs := make([]dto.LogEntryResponse, 0, len(e.Logs))
		for _, l := range e.Logs {
			logs = append(logs, dto.LogEntryResponse{
				Timestamp: l.Timestamp,
				Level:     l.Level,
				Message:   l.Message,
				Metadata:  l.Metadata,
			})
		}
		resp.Logs = logs
	}
	return resp
}
