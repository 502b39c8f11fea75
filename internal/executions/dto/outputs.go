package dto

import "time"

// LogEntryResponse is one stored log line
type LogEntryResponse struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ExecutionResponse is the external representation of an execution. List
// responses omit logs; the single-execution endpoint includes them.
type ExecutionResponse struct {
	UUID           string             `json:"uuid"`
	TaskUUID       string             `json:"task_uuid"`
	ProjectUUID    string             `json:"project_uuid"`
	Status         string             `json:"status"`
	TriggerType    string             `json:"trigger_type"`
	ScheduledAt    time.Time          `json:"scheduled_at"`
	StartedAt      *time.Time         `json:"started_at,omitempty"`
	EndedAt        *time.Time         `json:"ended_at,omitempty"`
	DurationMs     *int64             `json:"duration_ms,omitempty"`
	ResponseStatus *int               `json:"response_status,omitempty"`
	Error          string             `json:"error,omitempty"`
	TimeoutSeconds int                `json:"timeout_seconds,omitempty"`
	LogCount       int                `json:"log_count"`
	Logs           []LogEntryResponse `json:"logs,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// ExecutionOutput wraps a single execution response
type ExecutionOutput struct {
	Body ExecutionResponse
}

// ExecutionListResponse is the paginated execution history
type ExecutionListResponse struct {
	Data       []ExecutionResponse `json:"data"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalCount int64               `json:"total_count"`
	TotalPages int                 `json:"total_pages"`
}

// ExecutionListOutput wraps the paginated list response
type ExecutionListOutput struct {
	Body ExecutionListResponse
}

// PendingExecutionsResponse lists claim candidates oldest first
type PendingExecutionsResponse struct {
	Data []ExecutionResponse `json:"data"`
}

// PendingExecutionsOutput wraps the claim candidate list
type PendingExecutionsOutput struct {
	Body PendingExecutionsResponse
}

// AppendLogsResponse acknowledges a log batch
type AppendLogsResponse struct {
	ExecutionUUID string `json:"execution_uuid"`
	Appended      int    `json:"appended"`
	TotalLogs     int    `json:"total_logs"`
}

// AppendLogsOutput wraps the log batch acknowledgement
type AppendLogsOutput struct {
	Body AppendLogsResponse
}
