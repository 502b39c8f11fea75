package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cronobserver/pkg/schedule"
)

// User-controlled status values.
const (
	StatusActive   = "ACTIVE"
	StatusDisabled = "DISABLED"
)

// System-derived state values. State also doubles as the window override
// value when a group is started or stopped manually.
const (
	StateRunning    = "RUNNING"
	StateNotRunning = "NOT_RUNNING"
)

// TaskGroup is an optional task container providing a daily time-of-day
// window. Tasks in a group only fire while the group's state is RUNNING.
type TaskGroup struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UUID        string             `bson:"uuid" json:"uuid"`
	ProjectUUID string             `bson:"project_uuid" json:"project_uuid"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Status      string             `bson:"status" json:"status"`
	State       string             `bson:"state" json:"state"`
	StartTime   string             `bson:"start_time,omitempty" json:"start_time,omitempty"`
	EndTime     string             `bson:"end_time,omitempty" json:"end_time,omitempty"`
	Timezone    string             `bson:"timezone,omitempty" json:"timezone,omitempty"`

	// Manual start/stop override. On a windowed group it expires at the next
	// window edge after WindowOverriddenAt; on a windowless group it holds
	// until reversed.
	WindowOverride     string     `bson:"window_override,omitempty" json:"window_override,omitempty"`
	WindowOverriddenAt *time.Time `bson:"window_overridden_at,omitempty" json:"window_overridden_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasWindow reports whether both window times are set.
func (g *TaskGroup) HasWindow() bool {
	return g.StartTime != "" && g.EndTime != ""
}

// EffectiveState computes the group's state at the given instant: RUNNING
// iff status is ACTIVE and the instant falls inside the window. An active
// manual override wins until the next window edge after it was set.
func (g *TaskGroup) EffectiveState(at time.Time) string {
	if g.Status != StatusActive {
		return StateNotRunning
	}

	if g.WindowOverride != "" && g.WindowOverriddenAt != nil {
		if !g.HasWindow() {
			return g.WindowOverride
		}
		edge, err := schedule.NextWindowEdge(g.StartTime, g.EndTime, g.Timezone, *g.WindowOverriddenAt)
		if err == nil && at.Before(edge) {
			return g.WindowOverride
		}
	}

	if !g.HasWindow() {
		return StateRunning
	}

	within, err := schedule.WithinWindow(g.StartTime, g.EndTime, g.Timezone, at)
	if err != nil || !within {
		return StateNotRunning
	}
	return StateRunning
}

// Constants for collection names
const (
	TaskGroupsCollection = "task_groups"
)
