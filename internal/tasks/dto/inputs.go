package dto

// ListTasksInput represents the input for listing a project's tasks
type ListTasksInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	Page          int    `query:"page" minimum:"1" default:"1" description:"Page number"`
	PageSize      int    `query:"page_size" minimum:"1" maximum:"100" default:"100" description:"Items per page"`
}

// GetTaskInput represents the input for fetching a single task
type GetTaskInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	TaskUUID      string `path:"task_uuid" format:"uuid" description:"Task UUID"`
}

// FrequencyBody is the firing interval of a time-range schedule
type FrequencyBody struct {
	Value int    `json:"value" minimum:"1" description:"Interval length"`
	Unit  string `json:"unit" enum:"minutes,hours" description:"Interval unit"`
}

// TimeRangeBody fires every frequency interval between start and end daily
type TimeRangeBody struct {
	Start     string        `json:"start" pattern:"^([01][0-9]|2[0-3]):[0-5][0-9]$" description:"First slot of the day (HH:MM)" example:"09:00"`
	End       string        `json:"end" pattern:"^([01][0-9]|2[0-3]):[0-5][0-9]$" description:"Last slot bound (HH:MM); an end before the start wraps past midnight" example:"17:00"`
	Frequency FrequencyBody `json:"frequency"`
}

// ScheduleConfigBody describes when the task fires. Exactly one of
// cron_expression or time_range must be set.
type ScheduleConfigBody struct {
	Timezone       string         `json:"timezone" minLength:"1" description:"IANA timezone the schedule is evaluated in" example:"Asia/Dhaka"`
	CronExpression string         `json:"cron_expression,omitempty" description:"5-field cron expression (minute hour dom month dow)" example:"*/15 9-17 * * 1-5"`
	TimeRange      *TimeRangeBody `json:"time_range,omitempty" description:"Frequency-based alternative to a cron expression"`
	DaysOfWeek     []int          `json:"days_of_week,omitempty" description:"Weekday filter, 0 (Sunday) through 6 (Saturday); empty permits all days"`
	Exclusions     []string       `json:"exclusions,omitempty" description:"Dates (YYYY-MM-DD) on which firings are dropped"`
}

// HTTPTriggerBody is the HTTP call an executor makes when the task fires
type HTTPTriggerBody struct {
	URL            string            `json:"url" format:"uri" description:"Endpoint to call"`
	Method         string            `json:"method,omitempty" enum:"GET,POST,PUT,PATCH,DELETE" default:"POST" description:"HTTP method"`
	Headers        map[string]string `json:"headers,omitempty" description:"Extra request headers"`
	Body           any               `json:"body,omitempty" description:"Opaque request body passed through to the executor"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty" minimum:"1" maximum:"3600" description:"Executor-side request timeout"`
}

// TriggerConfigBody selects how the task is triggered; only HTTP is supported
type TriggerConfigBody struct {
	Type string           `json:"type" enum:"HTTP" default:"HTTP" description:"Trigger type"`
	HTTP *HTTPTriggerBody `json:"http,omitempty" description:"HTTP trigger settings"`
}

// CreateTaskInput represents the input for creating a task
type CreateTaskInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	Body          CreateTaskRequest
}

// CreateTaskRequest is the create payload. trigger_config may be omitted when
// the project has an execution_endpoint to fall back on.
type CreateTaskRequest struct {
	Name           string             `json:"name" minLength:"1" maxLength:"255" description:"Task name" example:"sync-invoices"`
	Description    string             `json:"description,omitempty" maxLength:"1024" description:"Free-form description"`
	TaskGroupUUID  string             `json:"task_group_uuid,omitempty" format:"uuid" description:"Optional group in the same project"`
	ScheduleType   string             `json:"schedule_type,omitempty" enum:"RECURRING,ONEOFF" default:"RECURRING" description:"RECURRING re-registers after each firing; ONEOFF fires once"`
	ScheduleConfig ScheduleConfigBody `json:"schedule_config"`
	TriggerConfig  *TriggerConfigBody `json:"trigger_config,omitempty"`
	Status         string             `json:"status,omitempty" enum:"ACTIVE,DISABLED" default:"ACTIVE" description:"User-controlled status"`
	TimeoutSeconds int                `json:"timeout_seconds,omitempty" minimum:"1" maximum:"86400" description:"Seconds before a RUNNING execution is failed by the watchdog"`
	Metadata       map[string]any     `json:"metadata,omitempty" description:"Opaque user metadata"`
}

// UpdateTaskInput represents the input for updating a task
type UpdateTaskInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	TaskUUID      string `path:"task_uuid" format:"uuid" description:"Task UUID"`
	Body          UpdateTaskRequest
}

// UpdateTaskRequest is the update payload; nil fields are left unchanged.
// Status changes go through the status endpoint instead.
type UpdateTaskRequest struct {
	Name           *string             `json:"name,omitempty" minLength:"1" maxLength:"255" description:"Task name"`
	Description    *string             `json:"description,omitempty" maxLength:"1024" description:"Free-form description"`
	TaskGroupUUID  *string             `json:"task_group_uuid,omitempty" description:"Group in the same project; empty string detaches the task"`
	ScheduleType   *string             `json:"schedule_type,omitempty" enum:"RECURRING,ONEOFF" description:"Schedule type"`
	ScheduleConfig *ScheduleConfigBody `json:"schedule_config,omitempty" description:"Replacement schedule config"`
	TriggerConfig  *TriggerConfigBody  `json:"trigger_config,omitempty" description:"Replacement trigger config"`
	TimeoutSeconds *int                `json:"timeout_seconds,omitempty" minimum:"0" maximum:"86400" description:"Watchdog timeout; zero removes it"`
	Metadata       *map[string]any     `json:"metadata,omitempty" description:"Replacement metadata"`
}

// UpdateTaskStatusInput represents the input for the status endpoint
type UpdateTaskStatusInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	TaskUUID      string `path:"task_uuid" format:"uuid" description:"Task UUID"`
	Body          UpdateTaskStatusRequest
}

// UpdateTaskStatusRequest flips the user-controlled status only. The delete
// pipeline statuses cannot be set here.
type UpdateTaskStatusRequest struct {
	Status string `json:"status" enum:"ACTIVE,DISABLED" description:"New status"`
}

// DeleteTaskInput represents the input for the async task delete
type DeleteTaskInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	TaskUUID      string `path:"task_uuid" format:"uuid" description:"Task UUID"`
}

// TriggerTaskInput represents the input for the manual trigger endpoint
type TriggerTaskInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	TaskUUID      string `path:"task_uuid" format:"uuid" description:"Task UUID"`
}
