package dto

// ListTaskGroupsInput represents the input for listing a project's task groups
type ListTaskGroupsInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	Page          int    `query:"page" minimum:"1" default:"1" description:"Page number"`
	PageSize      int    `query:"page_size" minimum:"1" maximum:"100" default:"100" description:"Items per page"`
}

// GetTaskGroupInput represents the input for fetching a single task group
type GetTaskGroupInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	GroupUUID     string `path:"group_uuid" format:"uuid" description:"Task group UUID"`
}

// CreateTaskGroupInput represents the input for creating a task group
type CreateTaskGroupInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	Body          CreateTaskGroupRequest
}

// CreateTaskGroupRequest is the create payload. Window times must be given
// together with a timezone, or not at all.
type CreateTaskGroupRequest struct {
	Name        string `json:"name" minLength:"1" maxLength:"255" description:"Group name" example:"nightly-batch"`
	Description string `json:"description,omitempty" maxLength:"1024" description:"Free-form description"`
	Status      string `json:"status,omitempty" enum:"ACTIVE,DISABLED" default:"ACTIVE" description:"User-controlled status"`
	StartTime   string `json:"start_time,omitempty" pattern:"^([01][0-9]|2[0-3]):[0-5][0-9]$" description:"Daily window start (HH:MM)" example:"22:00"`
	EndTime     string `json:"end_time,omitempty" pattern:"^([01][0-9]|2[0-3]):[0-5][0-9]$" description:"Daily window end (HH:MM); an end before the start wraps past midnight" example:"04:00"`
	Timezone    string `json:"timezone,omitempty" description:"IANA timezone the window is evaluated in" example:"Asia/Dhaka"`
}

// UpdateTaskGroupInput represents the input for updating a task group
type UpdateTaskGroupInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	GroupUUID     string `path:"group_uuid" format:"uuid" description:"Task group UUID"`
	Body          UpdateTaskGroupRequest
}

// UpdateTaskGroupRequest is the update payload; nil fields are left unchanged.
// Setting start_time, end_time, and timezone to empty strings removes the window.
type UpdateTaskGroupRequest struct {
	Name        *string `json:"name,omitempty" minLength:"1" maxLength:"255" description:"Group name"`
	Description *string `json:"description,omitempty" maxLength:"1024" description:"Free-form description"`
	Status      *string `json:"status,omitempty" enum:"ACTIVE,DISABLED" description:"User-controlled status"`
	StartTime   *string `json:"start_time,omitempty" description:"Daily window start (HH:MM)"`
	EndTime     *string `json:"end_time,omitempty" description:"Daily window end (HH:MM)"`
	Timezone    *string `json:"timezone,omitempty" description:"IANA timezone the window is evaluated in"`
}

// DeleteTaskGroupInput represents the input for deleting a task group
type DeleteTaskGroupInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	GroupUUID     string `path:"group_uuid" format:"uuid" description:"Task group UUID"`
}

// OverrideTaskGroupInput represents the input for the manual start/stop endpoints
type OverrideTaskGroupInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	GroupUUID     string `path:"group_uuid" format:"uuid" description:"Task group UUID"`
}
