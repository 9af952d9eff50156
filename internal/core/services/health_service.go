package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"mlboard/internal/core/domain"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

const healthCheckTimeout = 5 * time.Second

// ComponentHealth represents the health of a specific component
type ComponentHealth struct {
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	Latency   string       `json:"latency,omitempty"`
	CheckedAt time.Time    `json:"checked_at"`
}

// HealthReport represents the overall health report
type HealthReport struct {
	Status     HealthStatus               `json:"status"`
	Version    string                     `json:"version"`
	CheckedAt  time.Time                  `json:"checked_at"`
	Components map[string]ComponentHealth `json:"components"`
}

// StatusChecker is the part of the data service health checks need.
type StatusChecker interface {
	Status(ctx context.Context) (*domain.Status, error)
}

type HealthService struct {
	upstream StatusChecker
	redis    *redis.Client
	version  string
}

// NewHealthService creates a health service. A nil redis client means the
// event bus is disabled and is left out of the report.
func NewHealthService(upstream StatusChecker, redisClient *redis.Client, version string) *HealthService {
	if version == "" {
		version = "0.0.1"
	}
	return &HealthService{
		upstream: upstream,
		redis:    redisClient,
		version:  version,
	}
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Status:     HealthStatusHealthy,
		Version:    s.version,
		CheckedAt:  time.Now(),
		Components: make(map[string]ComponentHealth, 2),
	}

	// Views cannot load anything without the mlcomp API.
	api := probe(ctx, s.pingUpstream)
	report.Components["mlcomp_api"] = api
	if api.Status != HealthStatusHealthy {
		report.Status = HealthStatusUnhealthy
	}

	if s.redis == nil {
		return report
	}
	bus := probe(ctx, func(ctx context.Context) (string, error) {
		return "", s.redis.Ping(ctx).Err()
	})
	report.Components["redis"] = bus
	if bus.Status != HealthStatusHealthy && report.Status == HealthStatusHealthy {
		report.Status = HealthStatusDegraded
	}
	return report
}

func (s *HealthService) pingUpstream(ctx context.Context) (string, error) {
	status, err := s.upstream.Status(ctx)
	if err != nil {
		return "", fmt.Errorf("mlcomp api status failed: %w", err)
	}
	if !status.Success {
		return "", fmt.Errorf("mlcomp api reported failure: %s", status.Reason)
	}
	return status.Status, nil
}

// probe times check under healthCheckTimeout.
func probe(ctx context.Context, check func(context.Context) (string, error)) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	msg, err := check(ctx)
	h := ComponentHealth{
		Status:    HealthStatusHealthy,
		Message:   msg,
		Latency:   time.Since(start).String(),
		CheckedAt: time.Now(),
	}
	if err != nil {
		h.Status = HealthStatusUnhealthy
		h.Message = err.Error()
	}
	return h
}

// SimpleHealthCheck maps the report to a probe body and HTTP code. Degraded
// still serves views, so it answers 200.
func (s *HealthService) SimpleHealthCheck(ctx context.Context) (string, int) {
	switch s.CheckHealth(ctx).Status {
	case HealthStatusHealthy:
		return "ok", http.StatusOK
	case HealthStatusDegraded:
		return "degraded", http.StatusOK
	default:
		return "unhealthy", http.StatusServiceUnavailable
	}
}
