package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"cronobserver/internal/events"
	projectsDto "cronobserver/internal/projects/dto"
	"cronobserver/internal/taskgroups/dto"
	"cronobserver/internal/taskgroups/models"
	"cronobserver/pkg/eventbus"
)

type fakeStore struct {
	groups    map[string]*models.TaskGroup
	lastSet   bson.M
	lastUnset bson.M
}

func newFakeStore(groups ...*models.TaskGroup) *fakeStore {
	s := &fakeStore{groups: make(map[string]*models.TaskGroup)}
	for _, group := range groups {
		s.groups[group.UUID] = group
	}
	return s
}

func (s *fakeStore) CreateTaskGroup(ctx context.Context, group *models.TaskGroup) error {
	s.groups[group.UUID] = group
	return nil
}

func (s *fakeStore) GetTaskGroup(ctx context.Context, projectUUID, groupUUID string) (*models.TaskGroup, error) {
	group, ok := s.groups[groupUUID]
	if !ok || group.ProjectUUID != projectUUID {
		return nil, mongo.ErrNoDocuments
	}
	copied := *group
	return &copied, nil
}

func (s *fakeStore) GetTaskGroupByUUID(ctx context.Context, groupUUID string) (*models.TaskGroup, error) {
	group, ok := s.groups[groupUUID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *group
	return &copied, nil
}

func (s *fakeStore) ListTaskGroups(ctx context.Context, projectUUID string, page, pageSize int) ([]models.TaskGroup, int64, error) {
	var out []models.TaskGroup
	for _, group := range s.groups {
		if group.ProjectUUID == projectUUID {
			out = append(out, *group)
		}
	}
	return out, int64(len(out)), nil
}

func (s *fakeStore) UpdateTaskGroup(ctx context.Context, projectUUID, groupUUID string, set, unset bson.M) (*models.TaskGroup, error) {
	s.lastSet = set
	s.lastUnset = unset
	group, ok := s.groups[groupUUID]
	if !ok || group.ProjectUUID != projectUUID {
		return nil, mongo.ErrNoDocuments
	}
	if v, ok := set["name"].(string); ok {
		group.Name = v
	}
	if v, ok := set["status"].(string); ok {
		group.Status = v
	}
	if v, ok := set["state"].(string); ok {
		group.State = v
	}
	if v, ok := set["start_time"].(string); ok {
		group.StartTime = v
	}
	if v, ok := set["end_time"].(string); ok {
		group.EndTime = v
	}
	if v, ok := set["timezone"].(string); ok {
		group.Timezone = v
	}
	if v, ok := set["window_override"].(string); ok {
		group.WindowOverride = v
	}
	if v, ok := set["window_overridden_at"].(time.Time); ok {
		group.WindowOverriddenAt = &v
	}
	if v, ok := set["updated_at"].(time.Time); ok {
		group.UpdatedAt = v
	}
	for key := range unset {
		switch key {
		case "window_override":
			group.WindowOverride = ""
		case "window_overridden_at":
			group.WindowOverriddenAt = nil
		}
	}
	copied := *group
	return &copied, nil
}

func (s *fakeStore) DeleteTaskGroup(ctx context.Context, projectUUID, groupUUID string) error {
	group, ok := s.groups[groupUUID]
	if !ok || group.ProjectUUID != projectUUID {
		return mongo.ErrNoDocuments
	}
	delete(s.groups, groupUUID)
	return nil
}

type fakeProjects struct {
	projects map[string]*projectsDto.ProjectResponse
}

func (f *fakeProjects) GetProject(ctx context.Context, projectUUID string) (*projectsDto.ProjectResponse, error) {
	project, ok := f.projects[projectUUID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return project, nil
}

func testService(groups ...*models.TaskGroup) (*Service, *fakeStore, *eventbus.Bus) {
	store := newFakeStore(groups...)
	projects := &fakeProjects{projects: map[string]*projectsDto.ProjectResponse{
		"project-1": {UUID: "project-1", Name: "billing"},
	}}
	bus := eventbus.New()
	return NewService(store, projects, bus), store, bus
}

// activeGroup builds a windowless ACTIVE group so state assertions do not
// depend on the wall clock.
func activeGroup(uuid string) *models.TaskGroup {
	now := time.Now().UTC().Add(-time.Hour)
	return &models.TaskGroup{
		UUID:        uuid,
		ProjectUUID: "project-1",
		Name:        "nightly-batch",
		Status:      models.StatusActive,
		State:       models.StateRunning,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func strPtr(s string) *string { return &s }

// TestValidateWindow tests the window configuration checks
func TestValidateWindow(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		zone    string
		wantErr bool
	}{
		{"no window", "", "", "", false},
		{"no window with zone", "", "", "Europe/Berlin", false},
		{"normal window", "09:00", "17:00", "Europe/Berlin", false},
		{"overnight window", "22:00", "04:00", "Asia/Dhaka", false},
		{"start without end", "09:00", "", "Europe/Berlin", true},
		{"end without start", "", "17:00", "Europe/Berlin", true},
		{"malformed start", "9am", "17:00", "Europe/Berlin", true},
		{"out of range end", "09:00", "24:30", "Europe/Berlin", true},
		{"zero-length window", "09:00", "09:00", "Europe/Berlin", true},
		{"window without zone", "09:00", "17:00", "", true},
		{"unknown zone", "09:00", "17:00", "Mars/Olympus", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateWindow(tt.start, tt.end, tt.zone)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidWindow) {
					t.Errorf("validateWindow() error = %v, want ErrInvalidWindow", err)
				}
			} else if err != nil {
				t.Errorf("validateWindow() error = %v", err)
			}
		})
	}
}

// TestCreateTaskGroup tests creation with defaults
func TestCreateTaskGroup(t *testing.T) {
	service, store, bus := testService()
	ch, unsubscribe := bus.Subscribe(events.TaskGroupCreated)
	defer unsubscribe()

	resp, err := service.CreateTaskGroup(context.Background(), "project-1", &dto.CreateTaskGroupRequest{
		Name: "nightly-batch",
	})
	if err != nil {
		t.Fatalf("CreateTaskGroup() error = %v", err)
	}
	if resp.Status != models.StatusActive {
		t.Errorf("status = %s, want the ACTIVE default", resp.Status)
	}
	if resp.State != models.StateRunning {
		t.Errorf("state = %s, want RUNNING for a windowless active group", resp.State)
	}
	if _, ok := store.groups[resp.UUID]; !ok {
		t.Error("group not persisted")
	}

	select {
	case evt := <-ch:
		payload, ok := evt.Payload.(events.TaskGroupPayload)
		if !ok {
			t.Fatalf("payload type = %T, want TaskGroupPayload", evt.Payload)
		}
		if payload.GroupUUID != resp.UUID || payload.ProjectUUID != "project-1" {
			t.Errorf("payload = %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no taskgroup.created event published")
	}
}

// TestCreateTaskGroupRejections tests the creation gates
func TestCreateTaskGroupRejections(t *testing.T) {
	t.Run("unknown project", func(t *testing.T) {
		service, _, _ := testService()

		_, err := service.CreateTaskGroup(context.Background(), "project-9", &dto.CreateTaskGroupRequest{Name: "g"})
		if !errors.Is(err, ErrProjectNotFound) {
			t.Errorf("CreateTaskGroup() error = %v, want ErrProjectNotFound", err)
		}
	})

	t.Run("bad window", func(t *testing.T) {
		service, store, _ := testService()

		_, err := service.CreateTaskGroup(context.Background(), "project-1", &dto.CreateTaskGroupRequest{
			Name:      "g",
			StartTime: "22:00",
		})
		if !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("CreateTaskGroup() error = %v, want ErrInvalidWindow", err)
		}
		if len(store.groups) != 0 {
			t.Error("group persisted despite rejection")
		}
	})
}

// TestUpdateTaskGroupMergesWindow tests that window edits validate against
// the merged configuration
func TestUpdateTaskGroupMergesWindow(t *testing.T) {
	group := activeGroup("group-1")
	group.StartTime = "22:00"
	group.EndTime = "04:00"
	group.Timezone = "Asia/Dhaka"
	service, store, _ := testService(group)

	_, err := service.UpdateTaskGroup(context.Background(), "project-1", "group-1", &dto.UpdateTaskGroupRequest{
		EndTime: strPtr("06:00"),
	})
	if err != nil {
		t.Fatalf("UpdateTaskGroup() error = %v", err)
	}
	if store.lastSet["start_time"] != "22:00" || store.lastSet["end_time"] != "06:00" || store.lastSet["timezone"] != "Asia/Dhaka" {
		t.Errorf("window write = %v, want the merged window", store.lastSet)
	}

	t.Run("merge breaks the window", func(t *testing.T) {
		bare := activeGroup("group-2")
		service, _, _ := testService(bare)

		_, err := service.UpdateTaskGroup(context.Background(), "project-1", "group-2", &dto.UpdateTaskGroupRequest{
			StartTime: strPtr("22:00"),
		})
		if !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("UpdateTaskGroup() error = %v, want ErrInvalidWindow", err)
		}
	})
}

// TestUpdateTaskGroupClearsOverride tests that status and window changes
// drop a standing manual override
func TestUpdateTaskGroupClearsOverride(t *testing.T) {
	overriddenAt := time.Now().UTC().Add(-time.Minute)

	tests := []struct {
		name      string
		req       *dto.UpdateTaskGroupRequest
		wantClear bool
	}{
		{"status change", &dto.UpdateTaskGroupRequest{Status: strPtr(models.StatusDisabled)}, true},
		{"window change", &dto.UpdateTaskGroupRequest{StartTime: strPtr("08:00"), EndTime: strPtr("18:00"), Timezone: strPtr("UTC")}, true},
		{"rename only", &dto.UpdateTaskGroupRequest{Name: strPtr("renamed")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group := activeGroup("group-1")
			group.WindowOverride = models.StateNotRunning
			group.WindowOverriddenAt = &overriddenAt
			service, store, _ := testService(group)

			if _, err := service.UpdateTaskGroup(context.Background(), "project-1", "group-1", tt.req); err != nil {
				t.Fatalf("UpdateTaskGroup() error = %v", err)
			}

			_, cleared := store.lastUnset["window_override"]
			if cleared != tt.wantClear {
				t.Errorf("override cleared = %v, want %v", cleared, tt.wantClear)
			}
			if tt.wantClear && store.groups["group-1"].WindowOverride != "" {
				t.Error("override survived the update")
			}
		})
	}
}

// TestStartGroup tests the manual start override
func TestStartGroup(t *testing.T) {
	t.Run("forces a stopped group to run", func(t *testing.T) {
		group := activeGroup("group-1")
		group.WindowOverride = models.StateNotRunning
		at := time.Now().UTC().Add(-time.Minute)
		group.WindowOverriddenAt = &at
		service, store, _ := testService(group)

		resp, err := service.StartGroup(context.Background(), "project-1", "group-1")
		if err != nil {
			t.Fatalf("StartGroup() error = %v", err)
		}
		if resp.State != models.StateRunning {
			t.Errorf("state = %s, want RUNNING", resp.State)
		}
		if store.lastSet["window_override"] != models.StateRunning {
			t.Errorf("override write = %v", store.lastSet)
		}
		if _, ok := store.lastSet["window_overridden_at"]; !ok {
			t.Error("override timestamp not written")
		}
	})

	t.Run("disabled group cannot start", func(t *testing.T) {
		group := activeGroup("group-1")
		group.Status = models.StatusDisabled
		service, store, _ := testService(group)

		_, err := service.StartGroup(context.Background(), "project-1", "group-1")
		if !errors.Is(err, ErrGroupNotActive) {
			t.Errorf("StartGroup() error = %v, want ErrGroupNotActive", err)
		}
		if store.lastSet != nil {
			t.Error("store written despite rejection")
		}
	})
}

// TestStopGroup tests the manual stop override
func TestStopGroup(t *testing.T) {
	t.Run("stops a running group", func(t *testing.T) {
		service, store, _ := testService(activeGroup("group-1"))

		resp, err := service.StopGroup(context.Background(), "project-1", "group-1")
		if err != nil {
			t.Fatalf("StopGroup() error = %v", err)
		}
		if resp.State != models.StateNotRunning {
			t.Errorf("state = %s, want NOT_RUNNING", resp.State)
		}
		if store.lastSet["window_override"] != models.StateNotRunning {
			t.Errorf("override write = %v", store.lastSet)
		}
	})

	t.Run("disabled group can still be stopped", func(t *testing.T) {
		group := activeGroup("group-1")
		group.Status = models.StatusDisabled
		service, _, _ := testService(group)

		resp, err := service.StopGroup(context.Background(), "project-1", "group-1")
		if err != nil {
			t.Fatalf("StopGroup() error = %v", err)
		}
		if resp.State != models.StateNotRunning {
			t.Errorf("state = %s, want NOT_RUNNING", resp.State)
		}
	})
}

// TestDeleteTaskGroup tests removal and the detach notification
func TestDeleteTaskGroup(t *testing.T) {
	service, store, bus := testService(activeGroup("group-1"))
	ch, unsubscribe := bus.Subscribe(events.TaskGroupDeleted)
	defer unsubscribe()

	if err := service.DeleteTaskGroup(context.Background(), "project-1", "group-1"); err != nil {
		t.Fatalf("DeleteTaskGroup() error = %v", err)
	}
	if len(store.groups) != 0 {
		t.Error("group still stored")
	}

	select {
	case evt := <-ch:
		payload, ok := evt.Payload.(events.TaskGroupPayload)
		if !ok {
			t.Fatalf("payload type = %T, want TaskGroupPayload", evt.Payload)
		}
		if payload.GroupUUID != "group-1" {
			t.Errorf("payload = %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no taskgroup.deleted event published")
	}

	t.Run("missing group", func(t *testing.T) {
		service, _, _ := testService()

		err := service.DeleteTaskGroup(context.Background(), "project-1", "group-9")
		if !errors.Is(err, mongo.ErrNoDocuments) {
			t.Errorf("DeleteTaskGroup() error = %v, want ErrNoDocuments", err)
		}
	})
}
