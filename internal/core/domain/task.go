package domain

import "time"

type Task struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Dag          DagRef     `json:"dag_rel"`
	Status       TaskStatus `json:"status,omitempty"`
	Type         string     `json:"type,omitempty"`
	Computer     string     `json:"computer_assigned,omitempty"`
	Started      *time.Time `json:"started,omitempty"`
	Finished     *time.Time `json:"finished,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	Duration     string     `json:"duration,omitempty"`
	ReportFull   *bool      `json:"report_full,omitempty"` // set only when filtering by report
}

// Step is a sub-phase of a task's execution.
type Step struct {
	ID       int64      `json:"id"`
	Task     int64      `json:"task"`
	Level    int        `json:"level"`
	Started  *time.Time `json:"started,omitempty"`
	Finished *time.Time `json:"finished,omitempty"`
	Status   TaskStatus `json:"status"`
	Name     string     `json:"name"`
}
