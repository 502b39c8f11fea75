package dto

// ListProjectsInput represents the input for listing projects visible to the caller
type ListProjectsInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	Page          int    `query:"page" minimum:"1" default:"1" description:"Page number"`
	PageSize      int    `query:"page_size" minimum:"1" maximum:"100" default:"100" description:"Items per page"`
}

// GetProjectInput represents the input for fetching a single project
type GetProjectInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID" example:"3e9c2f6a-5b1d-4e8f-9c7a-2d4b6e8f0a1c"`
}

// CreateProjectInput represents the input for creating a project
type CreateProjectInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	Body          CreateProjectRequest
}

// CreateProjectRequest is the create payload
type CreateProjectRequest struct {
	Name              string   `json:"name" minLength:"1" maxLength:"255" description:"Project name" example:"billing-jobs"`
	ExecutionEndpoint string   `json:"execution_endpoint,omitempty" format:"uri" description:"Default endpoint executors call when a task carries no trigger config"`
	AlertEmails       []string `json:"alert_emails,omitempty" description:"Emails notified about failures"`
}

// UpdateProjectInput represents the input for updating a project
type UpdateProjectInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	Body          UpdateProjectRequest
}

// UpdateProjectRequest is the update payload; nil fields are left unchanged
type UpdateProjectRequest struct {
	Name              *string            `json:"name,omitempty" minLength:"1" maxLength:"255" description:"Project name"`
	ExecutionEndpoint *string            `json:"execution_endpoint,omitempty" description:"Default executor endpoint; empty string clears it"`
	AlertEmails       *[]string          `json:"alert_emails,omitempty" description:"Emails notified about failures"`
	ProjectUsers      *[]ProjectUserBody `json:"project_users,omitempty" description:"Full replacement membership list"`
}

// ProjectUserBody is a membership entry in requests and responses
type ProjectUserBody struct {
	Email string `json:"email" format:"email" description:"Member email"`
	Role  string `json:"role" enum:"admin,readonly" description:"Project role"`
}
