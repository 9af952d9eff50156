package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"mlboard/internal/core/circuitbreaker"
	"mlboard/internal/core/domain"
	"mlboard/internal/core/listview"
	"mlboard/internal/core/logger"
	"mlboard/internal/core/ports"
	"mlboard/internal/core/services"
)

const defaultEventLimit = 20

// EventHistory returns the most recent dashboard events, newest first.
type EventHistory interface {
	Recent(ctx context.Context, limit int) ([]domain.Event, error)
}

type Server struct {
	router    *chi.Mux
	data      ports.DataService
	dashboard *services.DashboardService
	healthSvc *services.HealthService
	history   EventHistory
	hub       *Hub
	viewOpts  listview.Options
	metrics   bool
}

type ServerOption func(*Server)

// WithMetrics mounts /metrics and the request metrics middleware. On by default.
func WithMetrics(enabled bool) ServerOption {
	return func(s *Server) { s.metrics = enabled }
}

// NewServer builds the gateway router. history may be nil.
func NewServer(
	data ports.DataService,
	dashboard *services.DashboardService,
	healthSvc *services.HealthService,
	hub *Hub,
	history EventHistory,
	viewOpts listview.Options,
	opts ...ServerOption,
) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		data:      data,
		dashboard: dashboard,
		healthSvc: healthSvc,
		history:   history,
		hub:       hub,
		viewOpts:  viewOpts,
		metrics:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogContext)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	if s.metrics {
		s.router.Use(MetricsMiddleware)
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if s.metrics {
		s.router.Handle("/metrics", MetricsHandler())
	}

	// Kubernetes probes
	s.router.Get("/health/live", s.handleLiveness)
	s.router.Get("/health/ready", s.handleReadiness)

	s.router.Get("/api/health/detailed", s.handleDetailedHealth)
	s.router.Get("/api/ws", s.handleEventsWS)
	s.router.Get("/api/events", s.handleRecentEvents)
	s.router.Get("/api/status", s.handleStatus)
	s.router.Get("/api/status-color", s.handleStatusColor)
	s.router.Get("/api/views/{entity}/ws", s.handleViewWS)

	s.router.Post("/api/dags/{id}/stop", s.handleStopDag)
	s.router.Post("/api/tasks/{id}/report", s.handleToggleReport)
}

// Handler exposes the router for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogContext copies chi's request id to the key the logger reads.
func requestLogContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), logger.RequestIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, code, resp)
}

// commandStatus maps a command error to an HTTP status.
func commandStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrCommandFailed):
		return http.StatusConflict
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	// Liveness probe - just check if server is running
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	// Readiness probe - check if server can handle requests
	status, code := s.healthSvc.SimpleHealthCheck(r.Context())
	w.WriteHeader(code)
	w.Write([]byte(status))
}

func (s *Server) handleDetailedHealth(w http.ResponseWriter, r *http.Request) {
	report := s.healthSvc.CheckHealth(r.Context())

	// Set appropriate status code based on health status
	statusCode := http.StatusOK
	switch report.Status {
	case services.HealthStatusUnhealthy:
		statusCode = http.StatusServiceUnavailable
	case services.HealthStatusDegraded:
		statusCode = http.StatusOK // Still serving requests
	}

	writeJSON(w, statusCode, report)
}

func (s *Server) handleViewWS(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	view, err := listview.NewForEntity(entity, s.data, s.viewOpts)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown entity", err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		logger.WarnContext(r.Context(), "Websocket upgrade failed", "error", err)
		return
	}
	newSession(s.hub, conn, entity).serve(r.Context(), view)
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnContext(r.Context(), "Websocket upgrade failed", "error", err)
		return
	}
	newSession(s.hub, conn, "").serve(r.Context(), nil)
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			limit = val
		}
	}

	if s.history == nil {
		writeJSON(w, http.StatusOK, []domain.Event{})
		return
	}

	events, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to read events", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.dashboard.Status(r.Context())
	if err != nil {
		writeError(w, commandStatus(err), "Failed to get status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type statusColorResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Color  string `json:"color"`
}

func (s *Server) handleStatusColor(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	count := 0
	if c := r.URL.Query().Get("count"); c != "" {
		val, err := strconv.Atoi(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid count", err)
			return
		}
		count = val
	}

	color, ok := domain.ColorForTaskStatus(status, count)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Unknown status", Details: status})
		return
	}
	writeJSON(w, http.StatusOK, statusColorResponse{Status: status, Count: count, Color: color})
}

func (s *Server) handleStopDag(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid dag id", err)
		return
	}

	res, err := s.dashboard.StopDag(r.Context(), id)
	if err != nil {
		logger.WarnContext(r.Context(), "Stop dag failed", "dag_id", id, "error", err)
		writeError(w, commandStatus(err), "Failed to stop dag", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type ToggleReportRequest struct {
	Report int64 `json:"report"`
	Remove bool  `json:"remove"`
}

func (s *Server) handleToggleReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task id", err)
		return
	}

	var req ToggleReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	res, err := s.dashboard.ToggleReport(r.Context(), id, req.Report, req.Remove)
	if err != nil {
		logger.WarnContext(r.Context(), "Toggle report failed", "task_id", id, "error", err)
		writeError(w, commandStatus(err), "Failed to toggle report", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
