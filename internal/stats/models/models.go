package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExecutionStats is the per-project per-day counter row. Date is the
// execution's scheduled_at date in UTC, formatted YYYY-MM-DD, so string
// comparison orders rows chronologically.
type ExecutionStats struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ProjectUUID string             `bson:"project_uuid" json:"project_uuid"`
	Date        string             `bson:"date" json:"date"`
	Success     int64              `bson:"success" json:"success"`
	Failures    int64              `bson:"failures" json:"failures"`
	Total       int64              `bson:"total" json:"total"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// StatsCollection is the MongoDB collection name for execution stats
const StatsCollection = "execution_stats"
