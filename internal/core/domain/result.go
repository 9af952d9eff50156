package domain

// BaseResult is the outcome envelope of command-style API calls.
type BaseResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

type Status struct {
	BaseResult
	Status string `json:"status"`
}

type DagStopResult struct {
	BaseResult
	Dag *Dag `json:"dag,omitempty"`
}

type ToggleReportResult struct {
	BaseResult
	ReportFull bool `json:"report_full"`
}

// Page is one page of rows plus the total count the paginator sizes itself by.
type Page[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}
