package dto

// GetStatsInput represents the input for the daily stats endpoints
type GetStatsInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ProjectUUID   string `path:"project_uuid" format:"uuid" description:"Project UUID"`
	Days          int    `query:"days" minimum:"1" maximum:"90" default:"7" description:"Number of most recent days to include"`
}

// StatsRow is one day's success/failure counters
type StatsRow struct {
	Date     string `json:"date"`
	Success  int64  `json:"success"`
	Failures int64  `json:"failures"`
	Total    int64  `json:"total"`
}

// StatsListResponse lists daily counters newest first
type StatsListResponse struct {
	Data []StatsRow `json:"data"`
	Days int        `json:"days"`
}

// StatsListOutput wraps the daily counter list
type StatsListOutput struct {
	Body StatsListResponse
}

// FailedStatsRow is one day's failure count
type FailedStatsRow struct {
	Date     string `json:"date"`
	Failures int64  `json:"failures"`
}

// FailedStatsResponse lists days with failures, newest first
type FailedStatsResponse struct {
	Data []FailedStatsRow `json:"data"`
	Days int              `json:"days"`
}

// FailedStatsOutput wraps the failure count list
type FailedStatsOutput struct {
	Body FailedStatsResponse
}
