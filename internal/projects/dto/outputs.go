package dto

import "time"

// ProjectResponse is the external representation of a project
type ProjectResponse struct {
	UUID              string            `json:"uuid"`
	Name              string            `json:"name"`
	APIKey            string            `json:"api_key"`
	ExecutionEndpoint string            `json:"execution_endpoint,omitempty"`
	AlertEmails       []string          `json:"alert_emails,omitempty"`
	ProjectUsers      []ProjectUserBody `json:"project_users"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ProjectOutput wraps a single project response
type ProjectOutput struct {
	Body ProjectResponse
}

// ProjectListResponse is the paginated project list
type ProjectListResponse struct {
	Data       []ProjectResponse `json:"data"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int64             `json:"total_count"`
	TotalPages int               `json:"total_pages"`
}

// ProjectListOutput wraps the paginated list response
type ProjectListOutput struct {
	Body ProjectListResponse
}
