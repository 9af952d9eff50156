package domain

import "time"

// PaginatorFilter selects one page of a sorted listing. Every field is
// optional; an absent field means the server default (first page, default
// size, unsorted).
type PaginatorFilter struct {
	SortColumn     string `json:"sort_column,omitempty"`
	SortDescending *bool  `json:"sort_descending,omitempty"`
	PageNumber     *int   `json:"page_number,omitempty"`
	PageSize       *int   `json:"page_size,omitempty"`
}

// NewPaginatorFilter builds a filter with every field set.
func NewPaginatorFilter(sortColumn string, descending bool, page, size int) *PaginatorFilter {
	return &PaginatorFilter{
		SortColumn:     sortColumn,
		SortDescending: &descending,
		PageNumber:     &page,
		PageSize:       &size,
	}
}

// TimeWindow bounds a timestamp column. Nil ends are open.
type TimeWindow struct {
	Min *time.Time `json:"min,omitempty"`
	Max *time.Time `json:"max,omitempty"`
}

type ProjectFilter struct {
	Paginator *PaginatorFilter `json:"paginator,omitempty"`
	Name      string           `json:"name,omitempty"`
}

type DagFilter struct {
	Paginator    *PaginatorFilter `json:"paginator,omitempty"`
	Name         string           `json:"name,omitempty"`
	ID           *int64           `json:"id,omitempty"`
	Project      *int64           `json:"project,omitempty"`
	Status       map[string]bool  `json:"status,omitempty"`
	Created      *TimeWindow      `json:"created,omitempty"`
	LastActivity *TimeWindow      `json:"last_activity,omitempty"`
	Report       *int64           `json:"report,omitempty"`
	Type         string           `json:"type,omitempty"`
}

type TaskFilter struct {
	Paginator    *PaginatorFilter `json:"paginator,omitempty"`
	Name         string           `json:"name,omitempty"`
	ID           *int64           `json:"id,omitempty"`
	Dag          *int64           `json:"dag,omitempty"`
	Project      *int64           `json:"project,omitempty"`
	Parent       *int64           `json:"parent,omitempty"`
	Report       *int64           `json:"report,omitempty"`
	Status       map[string]bool  `json:"status,omitempty"`
	Type         []string         `json:"type,omitempty"`
	Created      *TimeWindow      `json:"created,omitempty"`
	LastActivity *TimeWindow      `json:"last_activity,omitempty"`
}

type LogFilter struct {
	Paginator  *PaginatorFilter `json:"paginator,omitempty"`
	Message    string           `json:"message,omitempty"`
	Task       *int64           `json:"task,omitempty"`
	Step       *int64           `json:"step,omitempty"`
	Dag        *int64           `json:"dag,omitempty"`
	Computer   string           `json:"computer,omitempty"`
	Components []string         `json:"components,omitempty"`
	Levels     []LogLevel       `json:"levels,omitempty"`
}

type ComputerFilter struct {
	Paginator *PaginatorFilter `json:"paginator,omitempty"`
	Name      string           `json:"name,omitempty"`
	UsageMin  *time.Time       `json:"usage_min_time,omitempty"`
}

type ReportsFilter struct {
	Paginator *PaginatorFilter `json:"paginator,omitempty"`
	Name      string           `json:"name,omitempty"`
	Task      *int64           `json:"task,omitempty"`
	Project   *int64           `json:"project,omitempty"`
}
