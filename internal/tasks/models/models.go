package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cronobserver/pkg/schedule"
)

// Task status values. ACTIVE and DISABLED are user-controlled;
// PENDING_DELETE and DELETE_FAILED are set by the delete pipeline only.
const (
	StatusActive        = "ACTIVE"
	StatusDisabled      = "DISABLED"
	StatusPendingDelete = "PENDING_DELETE"
	StatusDeleteFailed  = "DELETE_FAILED"
)

// Schedule types. ONEOFF tasks fire once and are not re-registered.
const (
	ScheduleRecurring = "RECURRING"
	ScheduleOneoff    = "ONEOFF"
)

// TriggerTypeHTTP is the only trigger type today.
const TriggerTypeHTTP = "HTTP"

// Derived task state values.
const (
	StateRunning    = "RUNNING"
	StateNotRunning = "NOT_RUNNING"
)

// ScheduleConfig describes when a task fires. Exactly one of CronExpression
// or TimeRange must be set; Timezone is always required.
type ScheduleConfig struct {
	Timezone       string              `bson:"timezone" json:"timezone"`
	CronExpression string              `bson:"cron_expression,omitempty" json:"cron_expression,omitempty"`
	TimeRange      *schedule.TimeRange `bson:"time_range,omitempty" json:"time_range,omitempty"`
	DaysOfWeek     []int               `bson:"days_of_week,omitempty" json:"days_of_week,omitempty"`
	Exclusions     []string            `bson:"exclusions,omitempty" json:"exclusions,omitempty"`
}

// Validate checks the schedule form, timezone, and filter lists.
func (c *ScheduleConfig) Validate() error {
	if err := schedule.ValidateTimezone(c.Timezone); err != nil {
		return err
	}
	hasCron := c.CronExpression != ""
	hasRange := c.TimeRange != nil
	if hasCron == hasRange {
		return fmt.Errorf("exactly one of cron_expression or time_range must be set")
	}
	if hasCron {
		if err := schedule.ValidateCron(c.CronExpression); err != nil {
			return err
		}
	}
	if hasRange {
		if err := c.TimeRange.Validate(); err != nil {
			return err
		}
	}
	for _, d := range c.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("days_of_week entries must be 0 (Sunday) through 6 (Saturday), got %d", d)
		}
	}
	for _, date := range c.Exclusions {
		if err := schedule.ValidateDate(date); err != nil {
			return err
		}
	}
	return nil
}

// NextAfter returns the next firing instant strictly after ref.
func (c *ScheduleConfig) NextAfter(ref time.Time) (time.Time, error) {
	if c.CronExpression != "" {
		return schedule.NextAfter(c.CronExpression, c.Timezone, ref)
	}
	if c.TimeRange != nil {
		return schedule.NextRangeAfter(*c.TimeRange, c.Timezone, ref)
	}
	return time.Time{}, fmt.Errorf("schedule config has neither cron_expression nor time_range")
}

// HTTPTrigger is the HTTP call an executor makes when the task fires. The
// body is carried opaquely; this service never performs the call itself.
type HTTPTrigger struct {
	URL            string            `bson:"url" json:"url"`
	Method         string            `bson:"method" json:"method"`
	Headers        map[string]string `bson:"headers,omitempty" json:"headers,omitempty"`
	Body           any               `bson:"body,omitempty" json:"body,omitempty"`
	TimeoutSeconds int               `bson:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
}

// TriggerConfig is the tagged trigger union; only HTTP exists today.
type TriggerConfig struct {
	Type string       `bson:"type" json:"type"`
	HTTP *HTTPTrigger `bson:"http,omitempty" json:"http,omitempty"`
}

// Validate checks the trigger shape.
func (t *TriggerConfig) Validate() error {
	if t.Type != TriggerTypeHTTP {
		return fmt.Errorf("unsupported trigger type %q", t.Type)
	}
	if t.HTTP == nil || t.HTTP.URL == "" {
		return fmt.Errorf("http trigger requires a url")
	}
	return nil
}

// Task represents a scheduled job definition
type Task struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UUID           string             `bson:"uuid" json:"uuid"`
	ProjectUUID    string             `bson:"project_uuid" json:"project_uuid"`
	TaskGroupUUID  string             `bson:"task_group_uuid,omitempty" json:"task_group_uuid,omitempty"`
	Name           string             `bson:"name" json:"name"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	ScheduleType   string             `bson:"schedule_type" json:"schedule_type"`
	ScheduleConfig ScheduleConfig     `bson:"schedule_config" json:"schedule_config"`
	TriggerConfig  *TriggerConfig     `bson:"trigger_config,omitempty" json:"trigger_config,omitempty"`
	Status         string             `bson:"status" json:"status"`
	State          string             `bson:"state,omitempty" json:"state,omitempty"`
	TimeoutSeconds int                `bson:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
	Metadata       map[string]any     `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// Schedulable reports whether the engine should hold a registration.
func (t *Task) Schedulable() bool {
	return t.Status == StatusActive
}

// TasksCollection is the MongoDB collection name for tasks
const TasksCollection = "tasks"
