package dto

import "time"

// TaskGroupResponse is the external representation of a task group. State is
// the effective state at response time, override included.
type TaskGroupResponse struct {
	UUID        string    `json:"uuid"`
	ProjectUUID string    `json:"project_uuid"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	State       string    `json:"state"`
	StartTime   string    `json:"start_time,omitempty"`
	EndTime     string    `json:"end_time,omitempty"`
	Timezone    string    `json:"timezone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskGroupOutput wraps a single task group response
type TaskGroupOutput struct {
	Body TaskGroupResponse
}

// TaskGroupListResponse is the paginated task group list
type TaskGroupListResponse struct {
	Data       []TaskGroupResponse `json:"data"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalCount int64               `json:"total_count"`
	TotalPages int                 `json:"total_pages"`
}

// TaskGroupListOutput wraps the paginated list response
type TaskGroupListOutput struct {
	Body TaskGroupListResponse
}

// DeleteTaskGroupResponse acknowledges a group deletion
type DeleteTaskGroupResponse struct {
	UUID    string `json:"uuid"`
	Deleted bool   `json:"deleted"`
}

// DeleteTaskGroupOutput wraps the deletion acknowledgement
type DeleteTaskGroupOutput struct {
	Body DeleteTaskGroupResponse
}
