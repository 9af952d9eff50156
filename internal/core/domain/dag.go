package domain

import "time"

// StatusCount is one badge of a dag's task status summary.
type StatusCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Dag is a pipeline run. It is created when the run starts, mutated as its
// tasks progress and never changes once finished.
type Dag struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Created      *time.Time    `json:"created,omitempty"`
	Started      *time.Time    `json:"started,omitempty"`
	Finished     *time.Time    `json:"finished,omitempty"`
	LastActivity *time.Time    `json:"last_activity,omitempty"`
	Project      ProjectRef    `json:"project"`
	TaskCount    int           `json:"task_count"`
	TaskStatuses []StatusCount `json:"task_statuses"`
	ImgSize      int64         `json:"img_size"`
	FileSize     int64         `json:"file_size"`
}

// IsFinished reports whether the dag reached a terminal state.
func (d *Dag) IsFinished() bool {
	return d.Finished != nil
}

// DagRef is the short form of a dag embedded in tasks.
type DagRef struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name,omitempty"`
	Project ProjectRef `json:"project"`
}
