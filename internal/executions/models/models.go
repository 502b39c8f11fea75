package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Execution status values. SUCCESS, FAILED, and CANCELLED are terminal.
const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusSuccess   = "SUCCESS"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// Trigger types. SCHEDULED executions are deduplicated per firing instant;
// MANUAL executions are not.
const (
	TriggerScheduled = "SCHEDULED"
	TriggerManual    = "MANUAL"
)

// Log levels accepted from executors.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Log append limits.
const (
	MaxLogBatch  = 1000
	MaxLogsTotal = 10000
)

// transitions is the legal status state machine.
var transitions = map[string][]string{
	StatusPending: {StatusRunning, StatusCancelled},
	StatusRunning: {StatusSuccess, StatusFailed, StatusCancelled},
}

// ValidTransition reports whether from → to is a legal status change.
func ValidTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status accepts no further changes.
func Terminal(status string) bool {
	switch status {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ValidLevel reports whether the log level is one of the accepted values.
func ValidLevel(level string) bool {
	switch level {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}

// LogEntry is a single executor-supplied log line
type LogEntry struct {
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Level     string         `bson:"level" json:"level"`
	Message   string         `bson:"message" json:"message"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// Execution represents one firing of a task
type Execution struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UUID           string             `bson:"uuid" json:"uuid"`
	TaskUUID       string             `bson:"task_uuid" json:"task_uuid"`
	ProjectUUID    string             `bson:"project_uuid" json:"project_uuid"`
	Status         string             `bson:"status" json:"status"`
	TriggerType    string             `bson:"trigger_type" json:"trigger_type"`
	ScheduledAt    time.Time          `bson:"scheduled_at" json:"scheduled_at"`
	StartedAt      *time.Time         `bson:"started_at,omitempty" json:"started_at,omitempty"`
	EndedAt        *time.Time         `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	DurationMs     *int64             `bson:"duration_ms,omitempty" json:"duration_ms,omitempty"`
	ResponseStatus *int               `bson:"response_status,omitempty" json:"response_status,omitempty"`
	Error          string             `bson:"error,omitempty" json:"error,omitempty"`
	TimeoutSeconds int                `bson:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
	Logs           []LogEntry         `bson:"logs,omitempty" json:"logs,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// ExecutionsCollection is the MongoDB collection name for executions
const ExecutionsCollection = "executions"
