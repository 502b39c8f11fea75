package dto

import "time"

// ListTaskExecutionsInput represents the input for the execution history list
type ListTaskExecutionsInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	TaskUUID      string `path:"task_uuid" format:"uuid" description:"Task UUID"`
	Date          string `query:"date" format:"date" description:"Restrict to executions scheduled on this UTC date (YYYY-MM-DD)"`
	Page          int    `query:"page" minimum:"1" default:"1" description:"Page number"`
	PageSize      int    `query:"page_size" minimum:"1" maximum:"100" default:"100" description:"Items per page"`
}

// GetExecutionInput represents the input for fetching one execution with logs
type GetExecutionInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	ExecutionUUID string `path:"execution_uuid" format:"uuid" description:"Execution UUID"`
}

// ClaimPendingInput represents the SDK input for listing claim candidates
type ClaimPendingInput struct {
	APIKey   string `header:"X-API-Key" doc:"Project API key"`
	TaskUUID string `path:"task_uuid" format:"uuid" description:"Task UUID"`
	Limit    int    `query:"limit" minimum:"1" maximum:"100" default:"10" description:"Maximum executions returned"`
}

// UpdateExecutionStatusInput represents the SDK status report
type UpdateExecutionStatusInput struct {
	APIKey        string `header:"X-API-Key" doc:"Project API key"`
	ExecutionUUID string `path:"execution_uuid" format:"uuid" description:"Execution UUID"`
	Body          UpdateExecutionStatusRequest
}

// UpdateExecutionStatusRequest moves the execution through its state machine.
// PENDING may only become RUNNING or CANCELLED; RUNNING may become SUCCESS,
// FAILED, or CANCELLED.
type UpdateExecutionStatusRequest struct {
	Status         string `json:"status" enum:"RUNNING,SUCCESS,FAILED,CANCELLED" description:"New status"`
	ResponseStatus *int   `json:"response_status,omitempty" description:"HTTP status returned by the triggered endpoint, passed through opaquely"`
	Error          string `json:"error,omitempty" maxLength:"4096" description:"Failure detail, recorded on FAILED"`
}

// LogEntryBody is one executor log line; a missing timestamp is stamped on
// arrival.
type LogEntryBody struct {
	Timestamp *time.Time     `json:"timestamp,omitempty" description:"Log instant; defaults to arrival time"`
	Level     string         `json:"level" enum:"DEBUG,INFO,WARN,ERROR" description:"Log level"`
	Message   string         `json:"message" minLength:"1" maxLength:"8192" description:"Log message"`
	Metadata  map[string]any `json:"metadata,omitempty" description:"Opaque structured context"`
}

// AppendLogsInput represents the SDK log batch
type AppendLogsInput struct {
	APIKey        string `header:"X-API-Key" doc:"Project API key"`
	ExecutionUUID string `path:"execution_uuid" format:"uuid" description:"Execution UUID"`
	Body          AppendLogsRequest
}

// AppendLogsRequest carries up to 1,000 log entries per call
type AppendLogsRequest struct {
	Logs []LogEntryBody `json:"logs" minItems:"1" maxItems:"1000" description:"Entries appended in order"`
}
