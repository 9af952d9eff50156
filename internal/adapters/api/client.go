package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"
	"mlboard/internal/core/circuitbreaker"
	"mlboard/internal/core/domain"
	"mlboard/internal/core/tracing"
)

const (
	endpointProjects     = "/api/projects"
	endpointDags         = "/api/dags"
	endpointTasks        = "/api/tasks"
	endpointLogs         = "/api/logs"
	endpointComputers    = "/api/computers"
	endpointDagStop      = "/api/dag/stop"
	endpointToggleReport = "/api/task/toogle_report"
	endpointStatus       = "/api/status"

	maxErrorBody = 4 << 10
)

// APIError is returned for non-2xx upstream responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mlcomp api returned status %d: %s", e.StatusCode, e.Body)
}

// isClientError reports 4xx responses; those do not count against the
// circuit breaker.
func isClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

// Client talks to the mlcomp server API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
}

type Option func(*Client)

// WithToken sends token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Inf, 0),
		breaker: circuitbreaker.New("mlcomp-api", isClientError),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Projects(ctx context.Context, filter domain.ProjectFilter) (*domain.Page[domain.Project], error) {
	return fetchPage[domain.Project](ctx, c, endpointProjects, filter)
}

func (c *Client) Dags(ctx context.Context, filter domain.DagFilter) (*domain.Page[domain.Dag], error) {
	return fetchPage[domain.Dag](ctx, c, endpointDags, filter)
}

func (c *Client) Tasks(ctx context.Context, filter domain.TaskFilter) (*domain.Page[domain.Task], error) {
	return fetchPage[domain.Task](ctx, c, endpointTasks, filter)
}

func (c *Client) Logs(ctx context.Context, filter domain.LogFilter) (*domain.Page[domain.Log], error) {
	return fetchPage[domain.Log](ctx, c, endpointLogs, filter)
}

func (c *Client) Computers(ctx context.Context, filter domain.ComputerFilter) (*domain.Page[domain.Computer], error) {
	return fetchPage[domain.Computer](ctx, c, endpointComputers, filter)
}

func (c *Client) StopDag(ctx context.Context, id int64) (*domain.DagStopResult, error) {
	var res domain.DagStopResult
	if err := c.do(ctx, http.MethodPost, endpointDagStop, map[string]int64{"id": id}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

type toggleReportRequest struct {
	ID     int64 `json:"id"`
	Report int64 `json:"report"`
	Remove bool  `json:"remove"`
}

func (c *Client) ToggleReport(ctx context.Context, taskID, reportID int64, remove bool) (*domain.ToggleReportResult, error) {
	var res domain.ToggleReportResult
	req := toggleReportRequest{ID: taskID, Report: reportID, Remove: remove}
	if err := c.do(ctx, http.MethodPost, endpointToggleReport, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Status(ctx context.Context) (*domain.Status, error) {
	var res domain.Status
	if err := c.do(ctx, http.MethodGet, endpointStatus, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// fetchPage posts filter to endpoint. Endpoints answer either with
// {"data": [...], "total": n} or with a bare array.
func fetchPage[T any](ctx context.Context, c *Client, endpoint string, filter any) (*domain.Page[T], error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, endpoint, filter, &raw); err != nil {
		return nil, err
	}
	return decodePage[T](raw)
}

func decodePage[T any](raw []byte) (*domain.Page[T], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var rows []T
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode rows: %w", err)
		}
		return &domain.Page[T]{Data: rows, Total: len(rows)}, nil
	}

	var page domain.Page[T]
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	return &page, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) (err error) {
	ctx, span := tracing.StartSpan(ctx, "mlcomp "+endpoint,
		attribute.String("http.method", method),
		attribute.String("mlcomp.endpoint", endpoint),
	)
	start := time.Now()
	defer func() {
		observeRequest(endpoint, err, time.Since(start))
		tracing.End(span, err)
	}()

	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return c.roundTrip(ctx, method, endpoint, body, out)
	})
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	tracing.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call mlcomp api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
