package dto

import "time"

// TaskResponse is the external representation of a task. State is derived
// from the status and the group's effective state at response time.
type TaskResponse struct {
	UUID           string             `json:"uuid"`
	ProjectUUID    string             `json:"project_uuid"`
	TaskGroupUUID  string             `json:"task_group_uuid,omitempty"`
	Name           string             `json:"name"`
	Description    string             `json:"description,omitempty"`
	ScheduleType   string             `json:"schedule_type"`
	ScheduleConfig ScheduleConfigBody `json:"schedule_config"`
	TriggerConfig  *TriggerConfigBody `json:"trigger_config,omitempty"`
	Status         string             `json:"status"`
	State          string             `json:"state"`
	TimeoutSeconds int                `json:"timeout_seconds,omitempty"`
	Metadata       map[string]any     `json:"metadata,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// TaskOutput wraps a single task response
type TaskOutput struct {
	Body TaskResponse
}

// TaskListResponse is the paginated task list
type TaskListResponse struct {
	Data       []TaskResponse `json:"data"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalCount int64          `json:"total_count"`
	TotalPages int            `json:"total_pages"`
}

// TaskListOutput wraps the paginated list response
type TaskListOutput struct {
	Body TaskListResponse
}

// Delete acknowledgement statuses.
const (
	DeleteQueued         = "PENDING_DELETE"
	DeleteAlreadyDeleted = "ALREADY_DELETED"
)

// DeleteTaskResponse acknowledges an async delete request
type DeleteTaskResponse struct {
	UUID    string `json:"uuid"`
	Status  string `json:"status" enum:"PENDING_DELETE,ALREADY_DELETED"`
	Message string `json:"message,omitempty"`
}

// DeleteTaskOutput wraps the 202 delete acknowledgement
type DeleteTaskOutput struct {
	Body DeleteTaskResponse
}

// TriggerTaskResponse describes the manual execution that was created
type TriggerTaskResponse struct {
	ExecutionUUID string    `json:"execution_uuid"`
	TaskUUID      string    `json:"task_uuid"`
	Status        string    `json:"status"`
	TriggerType   string    `json:"trigger_type"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

// TriggerTaskOutput wraps the manual trigger response
type TriggerTaskOutput struct {
	Body TriggerTaskResponse
}
