package listview

import (
	"context"
	"errors"
	"fmt"

	"mlboard/internal/core/domain"
	"mlboard/internal/core/ports"
)

// NewDagView lists dags. The filter text matches dag names. Extra, when set,
// must be a *domain.DagFilter and supplies the remaining predicates.
func NewDagView(svc ports.DataService, opts Options) *View[domain.Dag] {
	return New(func(ctx context.Context, q Query) (*domain.Page[domain.Dag], error) {
		var f domain.DagFilter
		if extra, ok := q.Extra.(*domain.DagFilter); ok && extra != nil {
			f = *extra
		}
		f.Paginator = q.Paginator()
		if q.Filter != "" {
			f.Name = q.Filter
		}
		return svc.Dags(ctx, f)
	}, opts)
}

// NewProjectView lists projects. The filter text matches project names.
func NewProjectView(svc ports.DataService, opts Options) *View[domain.Project] {
	return New(func(ctx context.Context, q Query) (*domain.Page[domain.Project], error) {
		var f domain.ProjectFilter
		if extra, ok := q.Extra.(*domain.ProjectFilter); ok && extra != nil {
			f = *extra
		}
		f.Paginator = q.Paginator()
		if q.Filter != "" {
			f.Name = q.Filter
		}
		return svc.Projects(ctx, f)
	}, opts)
}

func NewTaskView(svc ports.DataService, opts Options) *View[domain.Task] {
	return New(func(ctx context.Context, q Query) (*domain.Page[domain.Task], error) {
		var f domain.TaskFilter
		if extra, ok := q.Extra.(*domain.TaskFilter); ok && extra != nil {
			f = *extra
		}
		f.Paginator = q.Paginator()
		if q.Filter != "" {
			f.Name = q.Filter
		}
		return svc.Tasks(ctx, f)
	}, opts)
}

// NewLogView lists logs. The filter text matches message contents.
func NewLogView(svc ports.DataService, opts Options) *View[domain.Log] {
	return New(func(ctx context.Context, q Query) (*domain.Page[domain.Log], error) {
		var f domain.LogFilter
		if extra, ok := q.Extra.(*domain.LogFilter); ok && extra != nil {
			f = *extra
		}
		f.Paginator = q.Paginator()
		if q.Filter != "" {
			f.Message = q.Filter
		}
		return svc.Logs(ctx, f)
	}, opts)
}

func NewComputerView(svc ports.DataService, opts Options) *View[domain.Computer] {
	return New(func(ctx context.Context, q Query) (*domain.Page[domain.Computer], error) {
		var f domain.ComputerFilter
		if extra, ok := q.Extra.(*domain.ComputerFilter); ok && extra != nil {
			f = *extra
		}
		f.Paginator = q.Paginator()
		if q.Filter != "" {
			f.Name = q.Filter
		}
		return svc.Computers(ctx, f)
	}, opts)
}

// Entity names accepted by NewForEntity.
const (
	EntityDags      = "dags"
	EntityProjects  = "projects"
	EntityTasks     = "tasks"
	EntityLogs      = "logs"
	EntityComputers = "computers"
)

var ErrUnknownEntity = errors.New("unknown entity")

// Controller is the row-type independent surface of a View.
type Controller interface {
	Start(ctx context.Context)
	Close()
	Done() <-chan struct{}
	Updates() <-chan struct{}
	SortChange(column string, direction Direction)
	PageChange(index, size int)
	ApplyFilter(text string)
	State() any
}

// State returns Snapshot() as an opaque value for type-independent callers.
func (v *View[T]) State() any {
	return v.Snapshot()
}

// NewForEntity builds the list view for the named entity.
func NewForEntity(entity string, svc ports.DataService, opts Options) (Controller, error) {
	switch entity {
	case EntityDags:
		return NewDagView(svc, opts), nil
	case EntityProjects:
		return NewProjectView(svc, opts), nil
	case EntityTasks:
		return NewTaskView(svc, opts), nil
	case EntityLogs:
		return NewLogView(svc, opts), nil
	case EntityComputers:
		return NewComputerView(svc, opts), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
}
