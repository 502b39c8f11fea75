package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"cronobserver/internal/events"
	"cronobserver/internal/stats/models"
	"cronobserver/pkg/eventbus"
)

// fakeStore records increments and serves canned rows.
type fakeStore struct {
	mu           sync.Mutex
	increments   []increment
	rows         []models.ExecutionStats
	listDays     int
	onlyFailures bool
}

type increment struct {
	projectUUID string
	date        string
	success     bool
}

func (s *fakeStore) Increment(ctx context.Context, projectUUID, date string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.increments = append(s.increments, increment{projectUUID, date, success})
	return nil
}

func (s *fakeStore) ListStats(ctx context.Context, projectUUID string, days int, onlyFailures bool) ([]models.ExecutionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listDays = days
	s.onlyFailures = onlyFailures
	return s.rows, nil
}

// TestHandleEvent tests that terminal execution events land in the right
// day bucket
func TestHandleEvent(t *testing.T) {
	tests := []struct {
		name        string
		evt         eventbus.Event
		wantDate    string
		wantSuccess bool
		wantSkip    bool
	}{
		{
			name: "success buckets by scheduled date in utc",
			evt: eventbus.Event{
				Type: events.ExecutionSucceeded,
				Payload: events.ExecutionPayload{
					ProjectUUID: "project-1",
					ScheduledAt: time.Date(2025, 6, 1, 23, 30, 0, 0, time.FixedZone("EST", -5*3600)),
				},
			},
			wantDate:    "2025-06-02",
			wantSuccess: true,
		},
		{
			name: "failure counts as failure",
			evt: eventbus.Event{
				Type: events.ExecutionFailed,
				Payload: events.ExecutionPayload{
					ProjectUUID: "project-1",
					ScheduledAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
				},
			},
			wantDate:    "2025-06-01",
			wantSuccess: false,
		},
		{
			name: "timeout counts as failure",
			evt: eventbus.Event{
				Type: events.ExecutionTimedOut,
				Payload: events.ExecutionTimedOutPayload{
					ProjectUUID: "project-1",
					ScheduledAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
				},
			},
			wantDate:    "2025-06-01",
			wantSuccess: false,
		},
		{
			name: "non-execution payload ignored",
			evt: eventbus.Event{
				Type:    events.TaskDeleted,
				Payload: events.TaskDeletedPayload{TaskUUID: "task-1", ProjectUUID: "project-1"},
			},
			wantSkip: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			service := NewService(store, nil)

			service.HandleEvent(context.Background(), tt.evt)

			if tt.wantSkip {
				if len(store.increments) != 0 {
					t.Errorf("increments = %v, want none", store.increments)
				}
				return
			}
			if len(store.increments) != 1 {
				t.Fatalf("increments = %d, want 1", len(store.increments))
			}
			got := store.increments[0]
			if got.projectUUID != "project-1" || got.date != tt.wantDate || got.success != tt.wantSuccess {
				t.Errorf("increment = %+v, want {project-1 %s %t}", got, tt.wantDate, tt.wantSuccess)
			}
		})
	}
}

// TestGetStats tests row mapping and the days echo
func TestGetStats(t *testing.T) {
	store := &fakeStore{rows: []models.ExecutionStats{
		{ProjectUUID: "project-1", Date: "2025-06-02", Success: 10, Failures: 2, Total: 12},
		{ProjectUUID: "project-1", Date: "2025-06-01", Success: 24, Failures: 0, Total: 24},
	}}
	service := NewService(store, nil)

	resp, err := service.GetStats(context.Background(), "project-1", 14)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if resp.Days != 14 || store.listDays != 14 {
		t.Errorf("days = %d/%d, want 14", resp.Days, store.listDays)
	}
	if store.onlyFailures {
		t.Error("stats query filtered to failures")
	}
	if len(resp.Data) != 2 {
		t.Fatalf("rows = %d, want 2", len(resp.Data))
	}
	first := resp.Data[0]
	if first.Date != "2025-06-02" || first.Success != 10 || first.Failures != 2 || first.Total != 12 {
		t.Errorf("rows[0] = %+v", first)
	}
}

// TestGetStatsClampsDays tests the days window normalization
func TestGetStatsClampsDays(t *testing.T) {
	tests := []struct {
		name string
		days int
		want int
	}{
		{"zero gets the default", 0, 7},
		{"negative gets the default", -3, 7},
		{"above the cap is clamped", 200, 90},
		{"in range passes through", 30, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			service := NewService(store, nil)

			resp, err := service.GetStats(context.Background(), "project-1", tt.days)
			if err != nil {
				t.Fatalf("GetStats() error = %v", err)
			}
			if store.listDays != tt.want || resp.Days != tt.want {
				t.Errorf("days = %d/%d, want %d", store.listDays, resp.Days, tt.want)
			}
		})
	}
}

// TestGetFailedStats tests the failure-only listing
func TestGetFailedStats(t *testing.T) {
	store := &fakeStore{rows: []models.ExecutionStats{
		{ProjectUUID: "project-1", Date: "2025-06-02", Success: 10, Failures: 2, Total: 12},
	}}
	service := NewService(store, nil)

	resp, err := service.GetFailedStats(context.Background(), "project-1", 0)
	if err != nil {
		t.Fatalf("GetFailedStats() error = %v", err)
	}
	if !store.onlyFailures {
		t.Error("failed stats query not filtered to failures")
	}
	if resp.Days != 7 {
		t.Errorf("days = %d, want the default 7", resp.Days)
	}
	if len(resp.Data) != 1 || resp.Data[0].Date != "2025-06-02" || resp.Data[0].Failures != 2 {
		t.Errorf("data = %+v", resp.Data)
	}
}
