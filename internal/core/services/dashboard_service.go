package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"mlboard/internal/core/domain"
	"mlboard/internal/core/logger"
	"mlboard/internal/core/ports"
)

// ErrCommandFailed is returned when the mlcomp API answers a command with
// success=false.
var ErrCommandFailed = errors.New("command failed")

type DashboardService struct {
	data   ports.DataService
	pubsub ports.EventPublisher
}

// NewDashboardService creates the command service. pubsub may be nil, in which
// case no events are published.
func NewDashboardService(data ports.DataService, pubsub ports.EventPublisher) *DashboardService {
	return &DashboardService{
		data:   data,
		pubsub: pubsub,
	}
}

func (s *DashboardService) StopDag(ctx context.Context, id int64) (*domain.DagStopResult, error) {
	res, err := s.data.StopDag(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to stop dag %d: %w", id, err)
	}
	if !res.Success {
		return res, commandError("stop dag", res.BaseResult)
	}

	var payload any = map[string]int64{"id": id}
	if res.Dag != nil {
		payload = res.Dag
	}
	s.publish(ctx, domain.EventDagStopped, payload)
	return res, nil
}

func (s *DashboardService) ToggleReport(ctx context.Context, taskID, reportID int64, remove bool) (*domain.ToggleReportResult, error) {
	res, err := s.data.ToggleReport(ctx, taskID, reportID, remove)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle report for task %d: %w", taskID, err)
	}
	if !res.Success {
		return res, commandError("toggle report", res.BaseResult)
	}

	s.publish(ctx, domain.EventReportToggled, domain.ReportToggle{
		Task:       taskID,
		Report:     reportID,
		Remove:     remove,
		ReportFull: res.ReportFull,
	})
	return res, nil
}

func (s *DashboardService) Status(ctx context.Context) (*domain.Status, error) {
	res, err := s.data.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return res, nil
}

func (s *DashboardService) publish(ctx context.Context, typ domain.EventType, payload any) {
	if s.pubsub == nil {
		return
	}
	event := domain.Event{
		ID:      uuid.NewString(),
		Type:    typ,
		Payload: payload,
		Time:    time.Now().UTC(),
	}
	// Don't fail the command if pubsub fails
	if err := s.pubsub.Publish(ctx, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "type", typ, "error", err)
	}
}

func commandError(op string, res domain.BaseResult) error {
	if res.Reason != "" {
		return fmt.Errorf("%s: %w: %s", op, ErrCommandFailed, res.Reason)
	}
	return fmt.Errorf("%s: %w", op, ErrCommandFailed)
}
