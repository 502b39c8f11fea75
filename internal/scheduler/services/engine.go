package services

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"cronobserver/internal/events"
	executionsModels "cronobserver/internal/executions/models"
	taskgroupsModels "cronobserver/internal/taskgroups/models"
	tasksModels "cronobserver/internal/tasks/models"
	"cronobserver/pkg/eventbus"
	"cronobserver/pkg/schedule"
)

const (
	// requeueDelay is how long a firing waits before retry after a
	// transient database failure.
	requeueDelay = time.Second

	insertRetries    = 3
	insertRetryDelay = 100 * time.Millisecond
)

// ErrTaskNotActive is returned by Trigger when the task exists but is not
// in ACTIVE status.
var ErrTaskNotActive = errors.New("task is not active")

// registration is one pending firing. firing is the schedule slot the
// execution will be stamped with; runAt is when the loop processes it. The
// two differ only while a transient failure is being retried.
type registration struct {
	taskUUID string
	firing   time.Time
	runAt    time.Time
	index    int
}

// jobHeap is a min-heap of registrations ordered by runAt, ties broken by
// task UUID so processing order is deterministic.
type jobHeap []*registration

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].runAt.Equal(h[j].runAt) {
		return h[i].taskUUID < h[j].taskUUID
	}
	return h[i].runAt.Before(h[j].runAt)
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	reg := x.(*registration)
	reg.index = len(*h)
	*h = append(*h, reg)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	reg := old[n-1]
	old[n-1] = nil
	reg.index = -1
	*h = old[:n-1]
	return reg
}

// Store is the persistence surface the engine depends on. *Repository
// satisfies it; tests substitute an in-memory implementation.
type Store interface {
	ListActiveTasks(ctx context.Context) ([]tasksModels.Task, error)
	GetTaskByUUID(ctx context.Context, taskUUID string) (*tasksModels.Task, error)
	GetTaskGroupByUUID(ctx context.Context, groupUUID string) (*taskgroupsModels.TaskGroup, error)
	CreateExecution(ctx context.Context, execution *executionsModels.Execution) (bool, error)
}

// Engine keeps one pending firing per ACTIVE task in a timer-driven min-heap.
// When a firing comes due it re-validates the task, applies group and
// calendar gates, persists a PENDING execution for workers to claim, and
// re-registers the next occurrence. Task lifecycle events on the bus keep
// the heap in sync with the database.
type Engine struct {
	repository Store
	bus        *eventbus.Bus

	// clock is swapped out in tests
	clock func() time.Time

	mu      sync.Mutex
	heap    jobHeap
	entries map[string]*registration

	wake    chan struct{}
	running atomic.Bool

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	unsubscribe func()
}

// NewEngine creates a scheduling engine. Start must be called before the
// engine fires anything.
func NewEngine(repository Store, bus *eventbus.Bus) *Engine {
	return &Engine{
		repository: repository,
		bus:        bus,
		clock:      func() time.Time { return time.Now().UTC() },
		entries:    make(map[string]*registration),
		wake:       make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start loads every ACTIVE task, registers its next firing and launches the
// run loop. It also subscribes to task lifecycle events so later changes
// reach the heap without a restart.
func (e *Engine) Start(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine is already running")
	}

	tasks, err := e.repository.ListActiveTasks(ctx)
	if err != nil {
		e.running.Store(false)
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	registered := 0
	now := e.clock()
	for i := range tasks {
		if e.Register(&tasks[i], now) {
			registered++
		}
	}

	ch, unsubscribe := e.bus.Subscribe(events.TaskCreated, events.TaskUpdated, events.TaskDeleted)
	e.unsubscribe = unsubscribe

	go e.consumeEvents(ctx, ch)
	go e.run(ctx)

	slog.Info("Scheduler engine started",
		slog.Int("loaded", len(tasks)),
		slog.Int("registered", registered))
	return nil
}

// Stop halts the run loop and waits for it to exit. Safe to call more than
// once and before Start.
func (e *Engine) Stop() {
	if !e.running.Load() {
		return
	}
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.stopOnce.Do(func() { close(e.stopCh) })
	<-e.done
	e.running.Store(false)
	slog.Info("Scheduler engine stopped")
}

// Register computes the task's next firing strictly after the given instant
// and places it on the heap, replacing any existing registration. A task
// that is not schedulable, or whose schedule yields no firing, is
// unregistered instead and Register returns false.
func (e *Engine) Register(task *tasksModels.Task, after time.Time) bool {
	if !task.Schedulable() {
		e.Unregister(task.UUID)
		return false
	}
	next, err := task.ScheduleConfig.NextAfter(after)
	if err != nil {
		slog.Warn("Task schedule yields no firing, unregistering",
			slog.String("task_uuid", task.UUID),
			slog.Any("error", err))
		e.Unregister(task.UUID)
		return false
	}
	e.schedule(task.UUID, next)
	return true
}

// Unregister removes a task's pending firing. Safe to call for tasks that
// were never registered.
func (e *Engine) Unregister(taskUUID string) {
	e.mu.Lock()
	reg, ok := e.entries[taskUUID]
	if ok {
		delete(e.entries, taskUUID)
		heap.Remove(&e.heap, reg.index)
	}
	e.mu.Unlock()
	if ok {
		e.signal()
	}
}

// Trigger persists a MANUAL execution for the task and returns its UUID and
// the scheduled instant. The task must exist and be ACTIVE.
func (e *Engine) Trigger(ctx context.Context, taskUUID string) (string, time.Time, error) {
	task, err := e.repository.GetTaskByUUID(ctx, taskUUID)
	if err != nil {
		return "", time.Time{}, err
	}
	if task.Status != tasksModels.StatusActive {
		return "", time.Time{}, ErrTaskNotActive
	}

	now := e.clock()
	execution := newExecution(task, executionsModels.TriggerManual, now, now)
	if _, err := e.repository.CreateExecution(ctx, execution); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to persist execution: %w", err)
	}

	slog.Info("Manual execution created",
		slog.String("task_uuid", task.UUID),
		slog.String("execution_uuid", execution.UUID))
	return execution.UUID, now, nil
}

// Status reports the number of registered tasks, the next processing
// instant (nil when the heap is empty) and whether the engine is running.
func (e *Engine) Status() (int, *time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	size := e.heap.Len()
	var next *time.Time
	if size > 0 {
		at := e.heap[0].runAt
		next = &at
	}
	return size, next, e.running.Load()
}

// run sleeps until the earliest registration comes due, then processes every
// due firing. Heap changes from other goroutines arrive via the wake channel.
func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	for {
		e.mu.Lock()
		hasNext := e.heap.Len() > 0
		var wait time.Duration
		if hasNext {
			wait = e.heap[0].runAt.Sub(e.clock())
		}
		e.mu.Unlock()

		if hasNext && wait <= 0 {
			e.processDue(ctx, e.clock())
			continue
		}

		var timer *time.Timer
		var timerC <-chan time.Time
		if hasNext {
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-e.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-e.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-timerC:
		}
	}
}

// processDue pops and fires every registration whose runAt is not after now.
func (e *Engine) processDue(ctx context.Context, now time.Time) {
	for {
		e.mu.Lock()
		if e.heap.Len() == 0 || e.heap[0].runAt.After(now) {
			e.mu.Unlock()
			return
		}
		reg := heap.Pop(&e.heap).(*registration)
		delete(e.entries, reg.taskUUID)
		e.mu.Unlock()

		e.fire(ctx, reg.taskUUID, reg.firing)
	}
}

// fire handles a single due firing: reload the task, apply the group window
// and per-task calendar gates at the firing instant, persist the execution
// and register the next occurrence. Transient failures requeue the same
// firing after requeueDelay so no slot is silently lost.
func (e *Engine) fire(ctx context.Context, taskUUID string, firing time.Time) {
	task, err := e.repository.GetTaskByUUID(ctx, taskUUID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			slog.Info("Task no longer exists, dropping firing",
				slog.String("task_uuid", taskUUID))
			return
		}
		slog.Error("Failed to reload task before firing, requeueing",
			slog.String("task_uuid", taskUUID),
			slog.Any("error", err))
		e.requeue(taskUUID, firing)
		return
	}

	if task.Status != tasksModels.StatusActive {
		slog.Info("Task no longer active, dropping firing",
			slog.String("task_uuid", taskUUID),
			slog.String("status", task.Status))
		return
	}

	allowed, retry := e.groupAllows(ctx, task, firing)
	if retry {
		e.requeue(taskUUID, firing)
		return
	}
	if allowed {
		allowed = e.calendarAllows(task, firing)
	}

	if allowed {
		if !e.persistFiring(ctx, task, firing) {
			e.requeue(taskUUID, firing)
			return
		}
	} else {
		slog.Debug("Firing suppressed by window or calendar gate",
			slog.String("task_uuid", task.UUID),
			slog.Time("firing", firing))
	}

	e.advance(task, firing)
}

// groupAllows reports whether the task's group window permits the firing.
// retry is true on a transient lookup failure; a dangling group reference
// leaves the task ungated.
func (e *Engine) groupAllows(ctx context.Context, task *tasksModels.Task, firing time.Time) (allowed, retry bool) {
	if task.TaskGroupUUID == "" {
		return true, false
	}
	group, err := e.repository.GetTaskGroupByUUID(ctx, task.TaskGroupUUID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return true, false
		}
		slog.Error("Failed to load task group, requeueing firing",
			slog.String("task_uuid", task.UUID),
			slog.String("group_uuid", task.TaskGroupUUID),
			slog.Any("error", err))
		return false, true
	}
	return group.EffectiveState(firing) == taskgroupsModels.StateRunning, false
}

// calendarAllows applies the task's days-of-week and exclusion-date gates in
// the schedule's timezone.
func (e *Engine) calendarAllows(task *tasksModels.Task, firing time.Time) bool {
	cfg := task.ScheduleConfig
	ok, err := schedule.WeekdayAllowed(cfg.DaysOfWeek, cfg.Timezone, firing)
	if err != nil || !ok {
		return false
	}
	excluded, err := schedule.DateExcluded(cfg.Exclusions, cfg.Timezone, firing)
	if err != nil {
		return false
	}
	return !excluded
}

// persistFiring inserts the PENDING execution for a scheduled firing,
// retrying transient failures. A duplicate slot is treated as already
// persisted so a restarted engine does not double-fire.
func (e *Engine) persistFiring(ctx context.Context, task *tasksModels.Task, firing time.Time) bool {
	execution := newExecution(task, executionsModels.TriggerScheduled, firing, e.clock())

	var lastErr error
	for attempt := 0; attempt < insertRetries; attempt++ {
		created, err := e.repository.CreateExecution(ctx, execution)
		if err == nil {
			if created {
				slog.Info("Execution scheduled",
					slog.String("task_uuid", task.UUID),
					slog.String("execution_uuid", execution.UUID),
					slog.Time("scheduled_at", firing))
			} else {
				slog.Info("Execution slot already persisted, skipping",
					slog.String("task_uuid", task.UUID),
					slog.Time("scheduled_at", firing))
			}
			return true
		}
		lastErr = err
		time.Sleep(insertRetryDelay)
	}

	slog.Error("Failed to persist execution",
		slog.String("task_uuid", task.UUID),
		slog.Time("scheduled_at", firing),
		slog.Any("error", lastErr))
	return false
}

// advance registers the next occurrence after the firing just handled.
// One-off tasks are done after a single firing. Using the firing instant as
// the reference keeps missed slots: after downtime each skipped occurrence
// is processed in order, deduplicated by the unique slot index.
func (e *Engine) advance(task *tasksModels.Task, firing time.Time) {
	if task.ScheduleType == tasksModels.ScheduleOneoff {
		slog.Info("One-off task fired, not rescheduling",
			slog.String("task_uuid", task.UUID))
		return
	}
	next, err := task.ScheduleConfig.NextAfter(firing)
	if err != nil {
		slog.Warn("Task schedule yields no further firings",
			slog.String("task_uuid", task.UUID),
			slog.Any("error", err))
		return
	}
	e.schedule(task.UUID, next)
}

// schedule places a firing on the heap, replacing the task's existing
// registration if any.
func (e *Engine) schedule(taskUUID string, at time.Time) {
	e.mu.Lock()
	if reg, ok := e.entries[taskUUID]; ok {
		reg.firing = at
		reg.runAt = at
		heap.Fix(&e.heap, reg.index)
	} else {
		reg := &registration{taskUUID: taskUUID, firing: at, runAt: at}
		e.entries[taskUUID] = reg
		heap.Push(&e.heap, reg)
	}
	e.mu.Unlock()
	e.signal()
}

// requeue puts a firing back on the heap for retry, keeping the original
// firing instant but deferring processing by requeueDelay.
func (e *Engine) requeue(taskUUID string, firing time.Time) {
	at := e.clock().Add(requeueDelay)
	e.mu.Lock()
	if reg, ok := e.entries[taskUUID]; ok {
		reg.firing = firing
		reg.runAt = at
		heap.Fix(&e.heap, reg.index)
	} else {
		reg := &registration{taskUUID: taskUUID, firing: firing, runAt: at}
		e.entries[taskUUID] = reg
		heap.Push(&e.heap, reg)
	}
	e.mu.Unlock()
	e.signal()
}

// signal nudges the run loop to recompute its wait. Never blocks.
func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// consumeEvents applies task lifecycle events to the heap.
func (e *Engine) consumeEvents(ctx context.Context, ch <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			e.handleTaskEvent(ctx, evt)
		}
	}
}

func (e *Engine) handleTaskEvent(ctx context.Context, evt eventbus.Event) {
	switch evt.Type {
	case events.TaskDeleted:
		payload, ok := evt.Payload.(events.TaskDeletedPayload)
		if !ok {
			return
		}
		e.Unregister(payload.TaskUUID)

	case events.TaskCreated, events.TaskUpdated:
		payload, ok := evt.Payload.(events.TaskPayload)
		if !ok {
			return
		}
		task, err := e.repository.GetTaskByUUID(ctx, payload.TaskUUID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				e.Unregister(payload.TaskUUID)
				return
			}
			slog.Error("Failed to reload task after event",
				slog.String("task_uuid", payload.TaskUUID),
				slog.String("event", evt.Type),
				slog.Any("error", err))
			return
		}
		e.Register(task, e.clock())
	}
}

// newExecution builds the PENDING execution record for a firing.
func newExecution(task *tasksModels.Task, triggerType string, scheduledAt, now time.Time) *executionsModels.Execution {
	return &executionsModels.Execution{
		UUID:           uuid.New().String(),
		TaskUUID:       task.UUID,
		ProjectUUID:    task.ProjectUUID,
		Status:         executionsModels.StatusPending,
		TriggerType:    triggerType,
		ScheduledAt:    scheduledAt.UTC(),
		TimeoutSeconds: task.TimeoutSeconds,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
