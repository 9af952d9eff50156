package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"mlboard/internal/core/circuitbreaker"
)

var (
	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlboard_upstream_requests_total",
			Help: "Total number of requests to the mlcomp API",
		},
		[]string{"endpoint", "status"},
	)

	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mlboard_upstream_request_duration_seconds",
			Help:    "mlcomp API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

func observeRequest(endpoint string, err error, d time.Duration) {
	upstreamRequestsTotal.WithLabelValues(endpoint, statusLabel(err)).Inc()
	upstreamRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func statusLabel(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &apiErr):
		return strconv.Itoa(apiErr.StatusCode)
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return "circuit_open"
	default:
		return "error"
	}
}
