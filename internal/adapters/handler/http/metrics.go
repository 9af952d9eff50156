package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mlboard",
			Name:      "http_requests_total",
			Help:      "Gateway HTTP requests by route and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mlboard",
			Name:      "http_request_duration_seconds",
			Help:      "Gateway HTTP request latency",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	websocketSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mlboard_websocket_sessions",
			Help: "Number of connected websocket sessions",
		},
	)

	viewCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlboard_view_commands_total",
			Help: "Total number of list view commands by entity and type",
		},
		[]string{"entity", "type"},
	)

	eventsBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlboard_events_broadcast_total",
			Help: "Total number of dashboard events broadcast to sessions",
		},
		[]string{"type"},
	)
)

// MetricsMiddleware counts requests by route pattern. Websocket upgrades are
// tracked by the session gauge instead.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := routePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routePattern keeps label cardinality bounded by ids in paths.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
