package services

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"cronobserver/internal/events"
	"cronobserver/internal/stats/dto"
	"cronobserver/internal/stats/models"
	"cronobserver/pkg/database"
	"cronobserver/pkg/eventbus"
	"cronobserver/pkg/schedule"
)

const (
	defaultStatsDays = 7
	maxStatsDays     = 90
	statsCacheTTL    = 60 * time.Second
)

// Store is the persistence surface the service depends on. *Repository
// satisfies it; tests substitute an in-memory implementation.
type Store interface {
	Increment(ctx context.Context, projectUUID, date string, success bool) error
	ListStats(ctx context.Context, projectUUID string, days int, onlyFailures bool) ([]models.ExecutionStats, error)
}

// Service aggregates terminal execution events into daily counters and
// serves the cached read endpoints. A nil redis disables caching.
type Service struct {
	repository Store
	redis      *database.Redis
}

// NewService creates a new stats service
func NewService(repository Store, redis *database.Redis) *Service {
	return &Service{
		repository: repository,
		redis:      redis,
	}
}

// HandleEvent rolls one terminal execution event into its day bucket. The
// bucket is the scheduled_at date in UTC; timed-out executions count as
// failures.
func (s *Service) HandleEvent(ctx context.Context, evt eventbus.Event) {
	var projectUUID string
	var scheduledAt time.Time

	switch payload := evt.Payload.(type) {
	case events.ExecutionPayload:
		projectUUID = payload.ProjectUUID
		scheduledAt = payload.ScheduledAt
	case events.ExecutionTimedOutPayload:
		projectUUID = payload.ProjectUUID
		scheduledAt = payload.ScheduledAt
	default:
		return
	}

	date := scheduledAt.UTC().Format(schedule.DateLayout)
	success := evt.Type == events.ExecutionSucceeded

	if err := s.repository.Increment(ctx, projectUUID, date, success); err != nil {
		slog.Error("Failed to aggregate execution event",
			slog.String("event_type", evt.Type),
			slog.String("project_uuid", projectUUID),
			slog.String("date", date),
			slog.String("error", err.Error()))
	}
}

// GetStats returns daily success/failure counters, newest first
func (s *Service) GetStats(ctx context.Context, projectUUID string, days int) (*dto.StatsListResponse, error) {
	days = clampDays(days)

	cacheKey := "stats:" + projectUUID + ":" + strconv.Itoa(days)
	if s.redis != nil {
		var cached dto.StatsListResponse
		if err := s.redis.GetJSON(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	rows, err := s.repository.ListStats(ctx, projectUUID, days, false)
	if err != nil {
		return nil, err
	}

	resp := &dto.StatsListResponse{Data: make([]dto.StatsRow, 0, len(rows)), Days: days}
	for _, row := range rows {
		resp.Data = append(resp.Data, dto.StatsRow{
			Date:     row.Date,
			Success:  row.Success,
			Failures: row.Failures,
			Total:    row.Total,
		})
	}

	if s.redis != nil {
		if err := s.redis.SetJSON(ctx, cacheKey, resp, statsCacheTTL); err != nil {
			slog.Warn("Failed to cache stats", slog.String("key", cacheKey), slog.String("error", err.Error()))
		}
	}
	return resp, nil
}

// GetFailedStats returns the days that saw failures, newest first
func (s *Service) GetFailedStats(ctx context.Context, projectUUID string, days int) (*dto.FailedStatsResponse, error) {
	days = clampDays(days)

	cacheKey := "failed-stats:" + projectUUID + ":" + strconv.Itoa(days)
	if s.redis != nil {
		var cached dto.FailedStatsResponse
		if err := s.redis.GetJSON(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	rows, err := s.repository.ListStats(ctx, projectUUID, days, true)
	if err != nil {
		return nil, err
	}

	resp := &dto.FailedStatsResponse{Data: make([]dto.FailedStatsRow, 0, len(rows)), Days: days}
	for _, row := range rows {
		resp.Data = append(resp.Data, dto.FailedStatsRow{
			Date:     row.Date,
			Failures: row.Failures,
		})
	}

	if s.redis != nil {
		if err := s.redis.SetJSON(ctx, cacheKey, resp, statsCacheTTL); err != nil {
			slog.Warn("Failed to cache failed stats", slog.String("key", cacheKey), slog.String("error", err.Error()))
		}
	}
	return resp, nil
}

func clampDays(days int) int {
	if days <= 0 {
		return defaultStatsDays
	}
	if days > maxStatsDays {
		return maxStatsDays
	}
	return days
}
