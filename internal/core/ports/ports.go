package ports

import (
	"context"

	"mlboard/internal/core/domain"
)

// DataService is the remote mlcomp API: one paged query per entity plus the
// command operations.
type DataService interface {
	Projects(ctx context.Context, filter domain.ProjectFilter) (*domain.Page[domain.Project], error)
	Dags(ctx context.Context, filter domain.DagFilter) (*domain.Page[domain.Dag], error)
	Tasks(ctx context.Context, filter domain.TaskFilter) (*domain.Page[domain.Task], error)
	Logs(ctx context.Context, filter domain.LogFilter) (*domain.Page[domain.Log], error)
	Computers(ctx context.Context, filter domain.ComputerFilter) (*domain.Page[domain.Computer], error)

	StopDag(ctx context.Context, id int64) (*domain.DagStopResult, error)
	ToggleReport(ctx context.Context, taskID, reportID int64, remove bool) (*domain.ToggleReportResult, error)
	Status(ctx context.Context) (*domain.Status, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// EventPubSub is an event bus shared by every gateway replica.
type EventPubSub interface {
	EventPublisher
	Subscribe(ctx context.Context) (<-chan domain.Event, error)
}
