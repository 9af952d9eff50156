package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"mlboard/internal/core/domain"
	"mlboard/internal/core/logger"
	"mlboard/internal/core/ports"
)

const (
	defaultStatusInterval = 30 * time.Second
	statusUnreachable     = "unreachable"
)

// StatusMonitor polls the mlcomp status endpoint and publishes an
// EventStatusChanged whenever the reported status changes.
type StatusMonitor struct {
	upstream StatusChecker
	pubsub   ports.EventPublisher
	interval time.Duration

	mu   sync.RWMutex
	last string
}

func NewStatusMonitor(upstream StatusChecker, pubsub ports.EventPublisher, interval time.Duration) *StatusMonitor {
	if interval <= 0 {
		interval = defaultStatusInterval
	}
	return &StatusMonitor{
		upstream: upstream,
		pubsub:   pubsub,
		interval: interval,
	}
}

// Start polls until ctx is cancelled.
func (m *StatusMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

// Last returns the most recently observed status, or "" before the first poll.
func (m *StatusMonitor) Last() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

func (m *StatusMonitor) check(ctx context.Context) {
	current := statusUnreachable
	status, err := m.upstream.Status(ctx)
	switch {
	case ctx.Err() != nil:
		return
	case err != nil:
		logger.Warn("mlcomp status check failed", "error", err)
	case status.Success:
		current = status.Status
	}

	m.mu.Lock()
	previous := m.last
	m.last = current
	m.mu.Unlock()

	if previous == current {
		return
	}
	logger.Info("mlcomp status changed", "from", previous, "to", current)

	if m.pubsub == nil {
		return
	}
	event := domain.Event{
		ID:      uuid.NewString(),
		Type:    domain.EventStatusChanged,
		Payload: domain.StatusChange{From: previous, To: current},
		Time:    time.Now().UTC(),
	}
	if err := m.pubsub.Publish(ctx, event); err != nil {
		logger.Error("Failed to publish status change", "error", err)
	}
}
