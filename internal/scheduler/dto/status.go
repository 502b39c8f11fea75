package dto

import "time"

// GetSchedulerStatusInput represents the input for the engine status endpoint
type GetSchedulerStatusInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
}

// SchedulerStatusResponse reports the engine's registration queue
type SchedulerStatusResponse struct {
	HeapSize   int        `json:"heap_size" description:"Number of registered firings"`
	NextFiring *time.Time `json:"next_firing,omitempty" description:"Earliest pending firing, absent when the queue is empty"`
	Running    bool       `json:"running" description:"Whether the engine loop is running"`
}

// SchedulerStatusOutput wraps the engine status response
type SchedulerStatusOutput struct {
	Body SchedulerStatusResponse
}
