package services

import (
	"context"
	"errors"
	"testing"
	"time"

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
)

// fakeStore is an in-memory Store. afterGet runs once after the next
// project-scoped read, standing in for a concurrent writer.
type fakeStore struct {
	tasks        map[string]*models.Task
	lastSet      bson.M
	lastUnset    bson.M
	statusWrites []statusWrite
	clearedGroup string
	afterGet     func()
}

type statusWrite struct {
	taskUUID string
	from     []string
	to       string
}

func newFakeStore(tasks ...*models.Task) *fakeStore {
	s := &fakeStore{tasks: make(map[string]*models.Task)}
	for _, task := range tasks {
		s.tasks[task.UUID] = task
	}
	return s
}

func (s *fakeStore) CreateTask(ctx context.Context, task *models.Task) error {
	s.tasks[task.UUID] = task
	return nil
}

func (s *fakeStore) GetTask(ctx context.Context, projectUUID, taskUUID string) (*models.Task, error) {
	task, ok := s.tasks[taskUUID]
	if !ok || task.ProjectUUID != projectUUID {
		return nil, mongo.ErrNoDocuments
	}
	copied := *task
	if s.afterGet != nil {
		hook := s.afterGet
		s.afterGet = nil
		hook()
	}
	return &copied, nil
}

func (s *fakeStore) GetTaskByUUID(ctx context.Context, taskUUID string) (*models.Task, error) {
	task, ok := s.tasks[taskUUID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *task
	return &copied, nil
}

func (s *fakeStore) ListTasks(ctx context.Context, projectUUID string, page, pageSize int) ([]models.Task, int64, error) {
	var out []models.Task
	for _, task := range s.tasks {
		if task.ProjectUUID == projectUUID {
			out = append(out, *task)
		}
	}
	return out, int64(len(out)), nil
}

func (s *fakeStore) UpdateTask(ctx context.Context, projectUUID, taskUUID string, set, unset bson.M) (*models.Task, error) {
	s.lastSet = set
	s.lastUnset = unset
	task, ok := s.tasks[taskUUID]
	if !ok || task.ProjectUUID != projectUUID {
		return nil, mongo.ErrNoDocuments
	}
	if name, ok := set["name"].(string); ok {
		task.Name = name
	}
	if at, ok := set["updated_at"].(time.Time); ok {
		task.UpdatedAt = at
	}
	copied := *task
	return &copied, nil
}

func (s *fakeStore) UpdateTaskStatus(ctx context.Context, taskUUID string, from []string, to string) (*models.Task, error) {
	s.statusWrites = append(s.statusWrites, statusWrite{taskUUID: taskUUID, from: from, to: to})
	task, ok := s.tasks[taskUUID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	if len(from) > 0 {
		matched := false
		for _, status := range from {
			if status == task.Status {
				matched = true
				break
			}
		}
		if !matched {
			return nil, mongo.ErrNoDocuments
		}
	}
	task.Status = to
	task.UpdatedAt = time.Now().UTC()
	copied := *task
	return &copied, nil
}

func (s *fakeStore) ClearGroupRefs(ctx context.Context, groupUUID string) (int64, error) {
	s.clearedGroup = groupUUID
	var count int64
	for _, task := range s.tasks {
		if task.TaskGroupUUID == groupUUID {
			task.TaskGroupUUID = ""
			count++
		}
	}
	return count, nil
}

type fakeProjects struct {
	projects map[string]*projectsDto.ProjectResponse
	calls    int
}

func (f *fakeProjects) GetProject(ctx context.Context, projectUUID string) (*projectsDto.ProjectResponse, error) {
	f.calls++
	project, ok := f.projects[projectUUID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return project, nil
}

type fakeGroups struct {
	groups map[string]*taskgroupsModels.TaskGroup
	err    error
	calls  int
}

func (f *fakeGroups) GetTaskGroup(ctx context.Context, projectUUID, groupUUID string) (*taskgroupsDto.TaskGroupResponse, error) {
	group, ok := f.groups[groupUUID]
	if !ok || group.ProjectUUID != projectUUID {
		return nil, mongo.ErrNoDocuments
	}
	return &taskgroupsDto.TaskGroupResponse{UUID: group.UUID, ProjectUUID: group.ProjectUUID}, nil
}

func (f *fakeGroups) GetTaskGroupByUUID(ctx context.Context, groupUUID string) (*taskgroupsModels.TaskGroup, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	group, ok := f.groups[groupUUID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *group
	return &copied, nil
}

type fakeTriggerEngine struct {
	executionUUID string
	scheduledAt   time.Time
	err           error
	triggered     []string
}

func (f *fakeTriggerEngine) Trigger(ctx context.Context, taskUUID string) (string, time.Time, error) {
	f.triggered = append(f.triggered, taskUUID)
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return f.executionUUID, f.scheduledAt, nil
}

type fakeQueue struct {
	published []queue.DeleteTaskMessage
	err       error
}

func (f *fakeQueue) PublishTaskDelete(ctx context.Context, msg queue.DeleteTaskMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

// fixtures bundles the service's collaborators with project-1 pre-seeded.
type fixtures struct {
	store    *fakeStore
	projects *fakeProjects
	groups   *fakeGroups
	engine   *fakeTriggerEngine
	queue    *fakeQueue
	bus      *eventbus.Bus
}

func testService(tasks ...*models.Task) (*Service, *fixtures) {
	f := &fixtures{
		store:    newFakeStore(tasks...),
		projects: &fakeProjects{projects: map[string]*projectsDto.ProjectResponse{}},
		groups:   &fakeGroups{groups: map[string]*taskgroupsModels.TaskGroup{}},
		engine:   &fakeTriggerEngine{executionUUID: "exec-1", scheduledAt: time.Now().UTC()},
		queue:    &fakeQueue{},
		bus:      eventbus.New(),
	}
	f.projects.projects["project-1"] = &projectsDto.ProjectResponse{UUID: "project-1", Name: "billing"}
	return NewService(f.store, f.projects, f.groups, f.engine, f.queue, f.bus), f
}

func activeTask(uuid string) *models.Task {
	now := time.Now().UTC().Add(-time.Hour)
	return &models.Task{
		UUID:         uuid,
		ProjectUUID:  "project-1",
		Name:         "sync-invoices",
		ScheduleType: models.ScheduleRecurring,
		ScheduleConfig: models.ScheduleConfig{
			Timezone:       "UTC",
			CronExpression: "0 10 * * *",
		},
		TriggerConfig: &models.TriggerConfig{
			Type: models.TriggerTypeHTTP,
			HTTP: &models.HTTPTrigger{URL: "https://billing.internal/run", Method: "POST"},
		},
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// TestCreateTask tests the happy path with defaults applied
func TestCreateTask(t *testing.T) {
	service, f := testService()
	ch, unsubscribe := f.bus.Subscribe(events.TaskCreated)
	defer unsubscribe()

	resp, err := service.CreateTask(context.Background(), "project-1", &dto.CreateTaskRequest{
		Name:           "sync-invoices",
		ScheduleConfig: dto.ScheduleConfigBody{Timezone: "UTC", CronExpression: "0 10 * * *"},
		TriggerConfig:  &dto.TriggerConfigBody{HTTP: &dto.HTTPTriggerBody{URL: "https://billing.internal/run"}},
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if resp.UUID == "" {
		t.Error("no uuid assigned")
	}
	if resp.Status != models.StatusActive {
		t.Errorf("status = %s, want the ACTIVE default", resp.Status)
	}
	if resp.ScheduleType != models.ScheduleRecurring {
		t.Errorf("schedule_type = %s, want the RECURRING default", resp.ScheduleType)
	}
	if resp.State != models.StateRunning {
		t.Errorf("state = %s, want RUNNING for an ungrouped active task", resp.State)
	}
	if resp.TriggerConfig == nil || resp.TriggerConfig.Type != models.TriggerTypeHTTP {
		t.Errorf("trigger type default not applied: %+v", resp.TriggerConfig)
	}
	if resp.TriggerConfig.HTTP.Method != "POST" {
		t.Errorf("method = %s, want the POST default", resp.TriggerConfig.HTTP.Method)
	}

	stored, ok := f.store.tasks[resp.UUID]
	if !ok {
		t.Fatal("task not persisted")
	}
	if stored.ProjectUUID != "project-1" {
		t.Errorf("stored project = %s", stored.ProjectUUID)
	}

	select {
	case evt := <-ch:
		payload, ok := evt.Payload.(events.TaskPayload)
		if !ok {
			t.Fatalf("payload type = %T, want TaskPayload", evt.Payload)
		}
		if payload.TaskUUID != resp.UUID || payload.ProjectUUID != "project-1" {
			t.Errorf("payload = %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no task.created event published")
	}
}

// TestCreateTaskRejections tests the validation and existence gates
func TestCreateTaskRejections(t *testing.T) {
	valid := dto.ScheduleConfigBody{Timezone: "UTC", CronExpression: "0 10 * * *"}

	tests := []struct {
		name        string
		projectUUID string
		req         *dto.CreateTaskRequest
		wantErr     error
	}{
		{
			name:        "unknown project",
			projectUUID: "project-9",
			req:         &dto.CreateTaskRequest{Name: "t", ScheduleConfig: valid},
			wantErr:     ErrProjectNotFound,
		},
		{
			name:        "unknown group",
			projectUUID: "project-1",
			req:         &dto.CreateTaskRequest{Name: "t", TaskGroupUUID: "group-9", ScheduleConfig: valid},
			wantErr:     ErrGroupNotFound,
		},
		{
			name:        "invalid cron",
			projectUUID: "project-1",
			req: &dto.CreateTaskRequest{Name: "t",
				ScheduleConfig: dto.ScheduleConfigBody{Timezone: "UTC", CronExpression: "61 * * * *"}},
			wantErr: ErrInvalidSchedule,
		},
		{
			name:        "no schedule form",
			projectUUID: "project-1",
			req: &dto.CreateTaskRequest{Name: "t",
				ScheduleConfig: dto.ScheduleConfigBody{Timezone: "UTC"}},
			wantErr: ErrInvalidSchedule,
		},
		{
			name:        "trigger without url",
			projectUUID: "project-1",
			req: &dto.CreateTaskRequest{Name: "t", ScheduleConfig: valid,
				TriggerConfig: &dto.TriggerConfigBody{HTTP: &dto.HTTPTriggerBody{}}},
			wantErr: ErrInvalidTrigger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, f := testService()

			_, err := service.CreateTask(context.Background(), tt.projectUUID, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateTask() error = %v, want %v", err, tt.wantErr)
			}
			if len(f.store.tasks) != 0 {
				t.Error("task persisted despite rejection")
			}
		})
	}
}

// TestCreateTaskInGroup tests that the group gates the derived state
func TestCreateTaskInGroup(t *testing.T) {
	service, f := testService()
	f.groups.groups["group-1"] = &taskgroupsModels.TaskGroup{
		UUID:        "group-1",
		ProjectUUID: "project-1",
		Status:      taskgroupsModels.StatusDisabled,
	}

	resp, err := service.CreateTask(context.Background(), "project-1", &dto.CreateTaskRequest{
		Name:           "sync-invoices",
		TaskGroupUUID:  "group-1",
		ScheduleConfig: dto.ScheduleConfigBody{Timezone: "UTC", CronExpression: "0 10 * * *"},
		TriggerConfig:  &dto.TriggerConfigBody{HTTP: &dto.HTTPTriggerBody{URL: "https://billing.internal/run"}},
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if resp.State != models.StateNotRunning {
		t.Errorf("state = %s, want NOT_RUNNING under a disabled group", resp.State)
	}
}

// TestTaskState tests the derivation branches and the per-call cache
func TestTaskState(t *testing.T) {
	service, f := testService()
	f.groups.groups["group-closed"] = &taskgroupsModels.TaskGroup{
		UUID:        "group-closed",
		ProjectUUID: "project-1",
		Status:      taskgroupsModels.StatusDisabled,
	}
	f.groups.groups["group-open"] = &taskgroupsModels.TaskGroup{
		UUID:        "group-open",
		ProjectUUID: "project-1",
		Status:      taskgroupsModels.StatusActive,
	}

	now := time.Now().UTC()

	inGroup := func(group string) *models.Task {
		task := activeTask("task-1")
		task.TaskGroupUUID = group
		return task
	}
	disabled := activeTask("task-1")
	disabled.Status = models.StatusDisabled

	tests := []struct {
		name   string
		task   *models.Task
		states map[string]string
		want   string
	}{
		{"disabled task never runs", disabled, map[string]string{}, models.StateNotRunning},
		{"ungrouped active task runs", activeTask("task-1"), map[string]string{}, models.StateRunning},
		{"open group gates through", inGroup("group-open"), map[string]string{}, models.StateRunning},
		{"closed group stops members", inGroup("group-closed"), map[string]string{}, models.StateNotRunning},
		{"dangling group leaves the task ungated", inGroup("group-gone"), map[string]string{}, models.StateRunning},
		{"cached state wins", inGroup("group-open"), map[string]string{"group-open": models.StateNotRunning}, models.StateNotRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := service.taskState(context.Background(), tt.task, tt.states, now); got != tt.want {
				t.Errorf("taskState() = %s, want %s", got, tt.want)
			}
		})
	}

	t.Run("lookup failure stops the task", func(t *testing.T) {
		f.groups.err = errors.New("connection reset")
		defer func() { f.groups.err = nil }()

		got := service.taskState(context.Background(), inGroup("group-open"), map[string]string{}, now)
		if got != models.StateNotRunning {
			t.Errorf("taskState() = %s, want NOT_RUNNING on lookup failure", got)
		}
	})

	t.Run("state is cached per call", func(t *testing.T) {
		states := map[string]string{}
		before := f.groups.calls
		service.taskState(context.Background(), inGroup("group-open"), states, now)
		service.taskState(context.Background(), inGroup("group-open"), states, now)
		if f.groups.calls != before+1 {
			t.Errorf("group lookups = %d, want 1", f.groups.calls-before)
		}
	})
}

// TestUpdateTask tests the partial update write set
func TestUpdateTask(t *testing.T) {
	service, f := testService(activeTask("task-1"))

	resp, err := service.UpdateTask(context.Background(), "project-1", "task-1", &dto.UpdateTaskRequest{
		Name:        strPtr("sync-invoices-v2"),
		Description: strPtr("hourly invoice sync"),
	})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if resp.Name != "sync-invoices-v2" {
		t.Errorf("name = %s", resp.Name)
	}
	if f.store.lastSet["name"] != "sync-invoices-v2" || f.store.lastSet["description"] != "hourly invoice sync" {
		t.Errorf("set = %v", f.store.lastSet)
	}
	if _, ok := f.store.lastSet["schedule_config"]; ok {
		t.Error("untouched schedule written")
	}
	if len(f.store.lastUnset) != 0 {
		t.Errorf("unset = %v, want empty", f.store.lastUnset)
	}
}

// TestUpdateTaskClearsFields tests that empty group and zero timeout unset
// their fields
func TestUpdateTaskClearsFields(t *testing.T) {
	task := activeTask("task-1")
	task.TaskGroupUUID = "group-1"
	task.TimeoutSeconds = 120
	service, f := testService(task)

	_, err := service.UpdateTask(context.Background(), "project-1", "task-1", &dto.UpdateTaskRequest{
		TaskGroupUUID:  strPtr(""),
		TimeoutSeconds: intPtr(0),
	})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if _, ok := f.store.lastUnset["task_group_uuid"]; !ok {
		t.Error("task_group_uuid not unset")
	}
	if _, ok := f.store.lastUnset["timeout_seconds"]; !ok {
		t.Error("timeout_seconds not unset")
	}
}

// TestUpdateTaskRejections tests the mutation gates
func TestUpdateTaskRejections(t *testing.T) {
	t.Run("pending delete locks the task", func(t *testing.T) {
		task := activeTask("task-1")
		task.Status = models.StatusPendingDelete
		service, _ := testService(task)

		_, err := service.UpdateTask(context.Background(), "project-1", "task-1", &dto.UpdateTaskRequest{Name: strPtr("x")})
		if !errors.Is(err, ErrTaskLocked) {
			t.Errorf("UpdateTask() error = %v, want ErrTaskLocked", err)
		}
	})

	t.Run("invalid replacement schedule", func(t *testing.T) {
		service, f := testService(activeTask("task-1"))

		_, err := service.UpdateTask(context.Background(), "project-1", "task-1", &dto.UpdateTaskRequest{
			ScheduleConfig: &dto.ScheduleConfigBody{Timezone: "UTC"},
		})
		if !errors.Is(err, ErrInvalidSchedule) {
			t.Errorf("UpdateTask() error = %v, want ErrInvalidSchedule", err)
		}
		if f.store.lastSet != nil {
			t.Error("store written despite rejection")
		}
	})

	t.Run("unknown replacement group", func(t *testing.T) {
		service, _ := testService(activeTask("task-1"))

		_, err := service.UpdateTask(context.Background(), "project-1", "task-1", &dto.UpdateTaskRequest{
			TaskGroupUUID: strPtr("group-9"),
		})
		if !errors.Is(err, ErrGroupNotFound) {
			t.Errorf("UpdateTask() error = %v, want ErrGroupNotFound", err)
		}
	})
}

// TestUpdateTaskStatus tests the user status flip and its guards
func TestUpdateTaskStatus(t *testing.T) {
	t.Run("disable", func(t *testing.T) {
		service, f := testService(activeTask("task-1"))
		ch, unsubscribe := f.bus.Subscribe(events.TaskUpdated)
		defer unsubscribe()

		resp, err := service.UpdateTaskStatus(context.Background(), "project-1", "task-1", models.StatusDisabled)
		if err != nil {
			t.Fatalf("UpdateTaskStatus() error = %v", err)
		}
		if resp.Status != models.StatusDisabled {
			t.Errorf("status = %s, want DISABLED", resp.Status)
		}
		if resp.State != models.StateNotRunning {
			t.Errorf("state = %s, want NOT_RUNNING", resp.State)
		}

		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("no task.updated event published")
		}
	})

	t.Run("delete failed can be rescued", func(t *testing.T) {
		task := activeTask("task-1")
		task.Status = models.StatusDeleteFailed
		service, _ := testService(task)

		resp, err := service.UpdateTaskStatus(context.Background(), "project-1", "task-1", models.StatusActive)
		if err != nil {
			t.Fatalf("UpdateTaskStatus() error = %v", err)
		}
		if resp.Status != models.StatusActive {
			t.Errorf("status = %s, want ACTIVE", resp.Status)
		}
	})

	t.Run("pending delete locks the task", func(t *testing.T) {
		task := activeTask("task-1")
		task.Status = models.StatusPendingDelete
		service, _ := testService(task)

		_, err := service.UpdateTaskStatus(context.Background(), "project-1", "task-1", models.StatusDisabled)
		if !errors.Is(err, ErrTaskLocked) {
			t.Errorf("UpdateTaskStatus() error = %v, want ErrTaskLocked", err)
		}
	})

	t.Run("concurrent delete wins the race", func(t *testing.T) {
		service, f := testService(activeTask("task-1"))
		f.store.afterGet = func() {
			f.store.tasks["task-1"].Status = models.StatusPendingDelete
		}

		_, err := service.UpdateTaskStatus(context.Background(), "project-1", "task-1", models.StatusDisabled)
		if !errors.Is(err, ErrTaskLocked) {
			t.Errorf("UpdateTaskStatus() error = %v, want ErrTaskLocked", err)
		}
	})
}

// TestDeleteTask tests the async delete enqueue
func TestDeleteTask(t *testing.T) {
	service, f := testService(activeTask("task-1"))
	ch, unsubscribe := f.bus.Subscribe(events.TaskUpdated)
	defer unsubscribe()

	resp, err := service.DeleteTask(context.Background(), "project-1", "task-1")
	if err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if resp.Status != dto.DeleteQueued {
		t.Errorf("status = %s, want %s", resp.Status, dto.DeleteQueued)
	}
	if got := f.store.tasks["task-1"].Status; got != models.StatusPendingDelete {
		t.Errorf("task status = %s, want PENDING_DELETE", got)
	}
	if len(f.queue.published) != 1 {
		t.Fatalf("published = %d messages, want 1", len(f.queue.published))
	}
	msg := f.queue.published[0]
	if msg.TaskUUID != "task-1" || msg.ProjectUUID != "project-1" || msg.RequestedAt.IsZero() {
		t.Errorf("message = %+v", msg)
	}

	// The engine unregisters on this event.
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no task.updated event published")
	}
}

// TestDeleteTaskMissing tests that deleting an absent task acks idempotently
func TestDeleteTaskMissing(t *testing.T) {
	service, f := testService()

	resp, err := service.DeleteTask(context.Background(), "project-1", "task-9")
	if err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if resp.Status != dto.DeleteAlreadyDeleted {
		t.Errorf("status = %s, want %s", resp.Status, dto.DeleteAlreadyDeleted)
	}
	if len(f.queue.published) != 0 {
		t.Errorf("published = %v, want nothing", f.queue.published)
	}
}

// TestDeleteTaskPublishFailureRollsBack tests that a failed enqueue restores
// the prior status
func TestDeleteTaskPublishFailureRollsBack(t *testing.T) {
	task := activeTask("task-1")
	task.Status = models.StatusDisabled
	service, f := testService(task)
	f.queue.err = errors.New("broker unavailable")

	_, err := service.DeleteTask(context.Background(), "project-1", "task-1")
	if err == nil {
		t.Fatal("DeleteTask() error = nil, want enqueue failure")
	}
	if got := f.store.tasks["task-1"].Status; got != models.StatusDisabled {
		t.Errorf("task status = %s, want DISABLED restored", got)
	}
	if len(f.store.statusWrites) != 2 {
		t.Fatalf("status writes = %+v, want mark and rollback", f.store.statusWrites)
	}
	if f.store.statusWrites[1].to != models.StatusDisabled {
		t.Errorf("rollback wrote %s, want DISABLED", f.store.statusWrites[1].to)
	}
}

// TestDeleteTaskAlreadyQueued tests that re-deleting re-enqueues without
// re-marking
func TestDeleteTaskAlreadyQueued(t *testing.T) {
	task := activeTask("task-1")
	task.Status = models.StatusPendingDelete
	service, f := testService(task)

	resp, err := service.DeleteTask(context.Background(), "project-1", "task-1")
	if err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if resp.Status != dto.DeleteQueued {
		t.Errorf("status = %s, want %s", resp.Status, dto.DeleteQueued)
	}
	if len(f.store.statusWrites) != 0 {
		t.Errorf("status writes = %+v, want none", f.store.statusWrites)
	}
	if len(f.queue.published) != 1 {
		t.Errorf("published = %d messages, want 1", len(f.queue.published))
	}
}

// TestDeleteTaskVanishesMidFlight tests the race where the worker finishes
// a previous delete between our read and our mark
func TestDeleteTaskVanishesMidFlight(t *testing.T) {
	service, f := testService(activeTask("task-1"))
	f.store.afterGet = func() {
		delete(f.store.tasks, "task-1")
	}

	resp, err := service.DeleteTask(context.Background(), "project-1", "task-1")
	if err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if resp.Status != dto.DeleteAlreadyDeleted {
		t.Errorf("status = %s, want %s", resp.Status, dto.DeleteAlreadyDeleted)
	}
	if len(f.queue.published) != 0 {
		t.Errorf("published = %v, want nothing", f.queue.published)
	}
}

// TestTriggerTask tests the manual trigger paths
func TestTriggerTask(t *testing.T) {
	t.Run("task with its own trigger", func(t *testing.T) {
		service, f := testService(activeTask("task-1"))

		resp, err := service.TriggerTask(context.Background(), "project-1", "task-1")
		if err != nil {
			t.Fatalf("TriggerTask() error = %v", err)
		}
		if resp.ExecutionUUID != "exec-1" || resp.TaskUUID != "task-1" {
			t.Errorf("response = %+v", resp)
		}
		if resp.Status != executionsModels.StatusPending || resp.TriggerType != executionsModels.TriggerManual {
			t.Errorf("status/trigger = %s/%s, want PENDING/MANUAL", resp.Status, resp.TriggerType)
		}
		if f.projects.calls != 0 {
			t.Error("project consulted although the task has a trigger config")
		}
	})

	t.Run("falls back to the project endpoint", func(t *testing.T) {
		task := activeTask("task-1")
		task.TriggerConfig = nil
		service, f := testService(task)
		f.projects.projects["project-1"].ExecutionEndpoint = "https://runner.internal/execute"

		if _, err := service.TriggerTask(context.Background(), "project-1", "task-1"); err != nil {
			t.Fatalf("TriggerTask() error = %v", err)
		}
		if len(f.engine.triggered) != 1 {
			t.Errorf("triggered = %v, want [task-1]", f.engine.triggered)
		}
	})

	t.Run("nowhere to send the executor", func(t *testing.T) {
		task := activeTask("task-1")
		task.TriggerConfig = nil
		service, f := testService(task)

		_, err := service.TriggerTask(context.Background(), "project-1", "task-1")
		if !errors.Is(err, ErrNoTriggerTarget) {
			t.Errorf("TriggerTask() error = %v, want ErrNoTriggerTarget", err)
		}
		if len(f.engine.triggered) != 0 {
			t.Errorf("triggered = %v, want nothing", f.engine.triggered)
		}
	})

	t.Run("inactive task", func(t *testing.T) {
		task := activeTask("task-1")
		task.Status = models.StatusDisabled
		service, f := testService(task)

		_, err := service.TriggerTask(context.Background(), "project-1", "task-1")
		if !errors.Is(err, ErrTaskNotActive) {
			t.Errorf("TriggerTask() error = %v, want ErrTaskNotActive", err)
		}
		if len(f.engine.triggered) != 0 {
			t.Errorf("triggered = %v, want nothing", f.engine.triggered)
		}
	})

	t.Run("engine failure surfaces", func(t *testing.T) {
		service, f := testService(activeTask("task-1"))
		f.engine.err = errors.New("not registered")

		_, err := service.TriggerTask(context.Background(), "project-1", "task-1")
		if !errors.Is(err, f.engine.err) {
			t.Errorf("TriggerTask() error = %v, want the engine failure", err)
		}
	})
}

// TestHandleGroupDeleted tests that member tasks are detached
func TestHandleGroupDeleted(t *testing.T) {
	first := activeTask("task-1")
	first.TaskGroupUUID = "group-1"
	second := activeTask("task-2")
	second.TaskGroupUUID = "group-1"
	third := activeTask("task-3")
	third.TaskGroupUUID = "group-2"
	service, f := testService(first, second, third)

	service.HandleGroupDeleted(context.Background(), "group-1")

	if f.store.clearedGroup != "group-1" {
		t.Errorf("cleared group = %s, want group-1", f.store.clearedGroup)
	}
	if f.store.tasks["task-1"].TaskGroupUUID != "" || f.store.tasks["task-2"].TaskGroupUUID != "" {
		t.Error("member tasks still attached")
	}
	if f.store.tasks["task-3"].TaskGroupUUID != "group-2" {
		t.Error("unrelated task detached")
	}
}

// TestTriggerConfigFromBody tests defaulting and validation dispatch
func TestTriggerConfigFromBody(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		trigger, err := triggerConfigFromBody(nil)
		if trigger != nil || err != nil {
			t.Errorf("triggerConfigFromBody(nil) = %v, %v", trigger, err)
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		trigger, err := triggerConfigFromBody(&dto.TriggerConfigBody{
			HTTP: &dto.HTTPTriggerBody{URL: "https://billing.internal/run", TimeoutSeconds: 30},
		})
		if err != nil {
			t.Fatalf("triggerConfigFromBody() error = %v", err)
		}
		if trigger.Type != models.TriggerTypeHTTP {
			t.Errorf("type = %s, want HTTP", trigger.Type)
		}
		if trigger.HTTP.Method != "POST" {
			t.Errorf("method = %s, want POST", trigger.HTTP.Method)
		}
		if trigger.HTTP.TimeoutSeconds != 30 {
			t.Errorf("timeout = %d, want 30", trigger.HTTP.TimeoutSeconds)
		}
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := triggerConfigFromBody(&dto.TriggerConfigBody{
			Type: "WEBSOCKET",
			HTTP: &dto.HTTPTriggerBody{URL: "https://billing.internal/run"},
		})
		if !errors.Is(err, ErrInvalidTrigger) {
			t.Errorf("triggerConfigFromBody() error = %v, want ErrInvalidTrigger", err)
		}
	})

	t.Run("missing url", func(t *testing.T) {
		_, err := triggerConfigFromBody(&dto.TriggerConfigBody{HTTP: &dto.HTTPTriggerBody{}})
		if !errors.Is(err, ErrInvalidTrigger) {
			t.Errorf("triggerConfigFromBody() error = %v, want ErrInvalidTrigger", err)
		}
	})
}
