// Package events defines the event types and payloads exchanged over the
// in-process bus. Producers publish these; the schedule engine and the stats
// aggregator are the main subscribers.
package events

import "time"

// Task lifecycle events. The engine refreshes its registration on all three.
const (
	TaskCreated = "task.created"
	TaskUpdated = "task.updated"
	TaskDeleted = "task.deleted"
)

// Task group lifecycle events.
const (
	TaskGroupCreated = "taskgroup.created"
	TaskGroupUpdated = "taskgroup.updated"
	TaskGroupDeleted = "taskgroup.deleted"
)

// Execution terminal events consumed by the stats aggregator. A timed-out
// execution counts as a failure.
const (
	ExecutionSucceeded = "execution.succeeded"
	ExecutionFailed    = "execution.failed"
	ExecutionTimedOut  = "execution.timed_out"
)

// TaskPayload accompanies task.created and task.updated.
type TaskPayload struct {
	TaskUUID    string `json:"task_uuid"`
	ProjectUUID string `json:"project_uuid"`
}

// TaskDeletedPayload accompanies task.deleted. Published by the delete
// worker; may be delivered more than once for the same task.
type TaskDeletedPayload struct {
	TaskUUID    string `json:"task_uuid"`
	ProjectUUID string `json:"project_uuid"`
}

// TaskGroupPayload accompanies the taskgroup.* events.
type TaskGroupPayload struct {
	GroupUUID   string `json:"group_uuid"`
	ProjectUUID string `json:"project_uuid"`
}

// ExecutionPayload accompanies execution.succeeded and execution.failed.
// ScheduledAt drives the stats date bucket.
type ExecutionPayload struct {
	ExecutionUUID string    `json:"execution_uuid"`
	TaskUUID      string    `json:"task_uuid"`
	ProjectUUID   string    `json:"project_uuid"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

// ExecutionTimedOutPayload accompanies execution.timed_out, published by the
// watchdog when a RUNNING execution overran its timeout.
type ExecutionTimedOutPayload struct {
	ExecutionUUID  string    `json:"execution_uuid"`
	TaskUUID       string    `json:"task_uuid"`
	ProjectUUID    string    `json:"project_uuid"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	TimeoutSeconds int       `json:"timeout_seconds"`
}
