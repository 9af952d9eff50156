package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mlboard/internal/core/domain"
	"mlboard/internal/core/listview"
	"mlboard/internal/core/services"
)

const waitTimeout = 2 * time.Second

// fakeData serves a fixed dag table and records every dag filter.
type fakeData struct {
	mu      sync.Mutex
	filters []domain.DagFilter
	stop    *domain.DagStopResult
	stopErr error
	toggle  *domain.ToggleReportResult
}

func (f *fakeData) Projects(ctx context.Context, filter domain.ProjectFilter) (*domain.Page[domain.Project], error) {
	return &domain.Page[domain.Project]{Data: []domain.Project{{ID: 1, Name: "mnist"}}, Total: 1}, nil
}

func (f *fakeData) Dags(ctx context.Context, filter domain.DagFilter) (*domain.Page[domain.Dag], error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	return &domain.Page[domain.Dag]{Data: []domain.Dag{{ID: 7, Name: "train"}}, Total: 23}, nil
}

func (f *fakeData) Tasks(ctx context.Context, filter domain.TaskFilter) (*domain.Page[domain.Task], error) {
	return &domain.Page[domain.Task]{}, nil
}

func (f *fakeData) Logs(ctx context.Context, filter domain.LogFilter) (*domain.Page[domain.Log], error) {
	return &domain.Page[domain.Log]{}, nil
}

func (f *fakeData) Computers(ctx context.Context, filter domain.ComputerFilter) (*domain.Page[domain.Computer], error) {
	return nil, errors.New("unavailable")
}

func (f *fakeData) StopDag(ctx context.Context, id int64) (*domain.DagStopResult, error) {
	return f.stop, f.stopErr
}

func (f *fakeData) ToggleReport(ctx context.Context, taskID, reportID int64, remove bool) (*domain.ToggleReportResult, error) {
	return f.toggle, nil
}

func (f *fakeData) Status(ctx context.Context) (*domain.Status, error) {
	return &domain.Status{BaseResult: domain.BaseResult{Success: true}, Status: "ok"}, nil
}

func (f *fakeData) lastFilter() (domain.DagFilter, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.filters) == 0 {
		return domain.DagFilter{}, 0
	}
	return f.filters[len(f.filters)-1], len(f.filters)
}

type memoryHistory struct {
	events []domain.Event
}

func (h *memoryHistory) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit < len(h.events) {
		return h.events[:limit], nil
	}
	return h.events, nil
}

func newTestServer(t *testing.T, data *fakeData, history EventHistory, opts ...ServerOption) (*httptest.Server, *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub()
	go hub.Run(ctx)

	dashboard := services.NewDashboardService(data, hub)
	health := services.NewHealthService(data, nil, "test")
	srv := NewServer(data, dashboard, health, hub, history, listview.DefaultOptions(), opts...)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, hub
}

func dial(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wireMessage) bool) wireMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(waitTimeout))
	for {
		var msg wireMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

// settledSnapshot waits for a non-loading snapshot satisfying match.
func settledSnapshot(t *testing.T, conn *websocket.Conn, match func(listview.Snapshot[domain.Dag]) bool) listview.Snapshot[domain.Dag] {
	t.Helper()
	var snap listview.Snapshot[domain.Dag]
	readUntil(t, conn, func(msg wireMessage) bool {
		if msg.Type != MessageSnapshot {
			return false
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &snap))
		return !snap.Loading && match(snap)
	})
	return snap
}

func TestViewSession_SeedAndCommands(t *testing.T) {
	data := &fakeData{}
	ts, _ := newTestServer(t, data, nil)
	conn := dial(t, ts, "/api/views/dags/ws")

	snap := settledSnapshot(t, conn, func(s listview.Snapshot[domain.Dag]) bool { return s.Generation == 1 })
	assert.Equal(t, 23, snap.Total)
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, "train", snap.Rows[0].Name)
	assert.Equal(t, 10, snap.PageSize)

	require.NoError(t, conn.WriteJSON(ViewCommand{Type: CommandPage, Index: 2, Size: 5}))
	snap = settledSnapshot(t, conn, func(s listview.Snapshot[domain.Dag]) bool { return s.Generation == 2 })
	assert.Equal(t, 2, snap.PageIndex)
	assert.Equal(t, 5, snap.PageSize)

	require.NoError(t, conn.WriteJSON(ViewCommand{Type: CommandSort, Column: "name", Direction: "asc"}))
	snap = settledSnapshot(t, conn, func(s listview.Snapshot[domain.Dag]) bool { return s.Generation == 3 })
	assert.Equal(t, 0, snap.PageIndex)
	assert.Equal(t, listview.Sort{Active: "name", Direction: listview.DirectionAsc}, snap.Sort)

	filter, _ := data.lastFilter()
	require.NotNil(t, filter.Paginator)
	assert.Equal(t, "name", filter.Paginator.SortColumn)
	assert.False(t, *filter.Paginator.SortDescending)

	require.NoError(t, conn.WriteJSON(ViewCommand{Type: CommandFilter, Text: "tra"}))
	snap = settledSnapshot(t, conn, func(s listview.Snapshot[domain.Dag]) bool { return s.Generation == 4 })
	assert.Equal(t, "tra", snap.Filter)

	filter, _ = data.lastFilter()
	assert.Equal(t, "tra", filter.Name)
}

func TestViewSession_RejectsBadCommands(t *testing.T) {
	ts, _ := newTestServer(t, &fakeData{}, nil)
	conn := dial(t, ts, "/api/views/projects/ws")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	msg := readUntil(t, conn, func(m wireMessage) bool { return m.Type == MessageError })
	assert.Contains(t, string(msg.Payload), "invalid command")

	require.NoError(t, conn.WriteJSON(ViewCommand{Type: "zoom"}))
	msg = readUntil(t, conn, func(m wireMessage) bool { return m.Type == MessageError })
	assert.Contains(t, string(msg.Payload), "zoom")

	require.NoError(t, conn.WriteJSON(ViewCommand{Type: CommandSort, Column: "id", Direction: "sideways"}))
	msg = readUntil(t, conn, func(m wireMessage) bool { return m.Type == MessageError })
	assert.Contains(t, string(msg.Payload), "sideways")
}

func TestViewSession_FailureEmptiesTable(t *testing.T) {
	ts, _ := newTestServer(t, &fakeData{}, nil)
	conn := dial(t, ts, "/api/views/computers/ws")

	var snap listview.Snapshot[domain.Computer]
	readUntil(t, conn, func(msg wireMessage) bool {
		if msg.Type != MessageSnapshot {
			return false
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &snap))
		return !snap.Loading
	})
	assert.Empty(t, snap.Rows)
	assert.Zero(t, snap.Total)
}

func TestViewSession_UnknownEntity(t *testing.T) {
	ts, _ := newTestServer(t, &fakeData{}, nil)

	resp, err := http.Get(ts.URL + "/api/views/widgets/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStopDag_BroadcastsEvent(t *testing.T) {
	data := &fakeData{stop: &domain.DagStopResult{
		BaseResult: domain.BaseResult{Success: true},
		Dag:        &domain.Dag{ID: 5, Name: "infer"},
	}}
	ts, hub := newTestServer(t, data, nil)
	conn := dial(t, ts, "/api/ws")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, waitTimeout, 5*time.Millisecond)

	resp, err := http.Post(ts.URL+"/api/dags/5/stop", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	msg := readUntil(t, conn, func(m wireMessage) bool { return m.Type == string(domain.EventDagStopped) })
	var event domain.Event
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, domain.EventDagStopped, event.Type)
	assert.NotEmpty(t, event.ID)
}

func TestStopDag_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		data     *fakeData
		wantCode int
	}{
		{
			name:     "invalid id",
			path:     "/api/dags/abc/stop",
			data:     &fakeData{},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "command failed",
			path:     "/api/dags/1/stop",
			data:     &fakeData{stop: &domain.DagStopResult{BaseResult: domain.BaseResult{Reason: "finished"}}},
			wantCode: http.StatusConflict,
		},
		{
			name:     "upstream error",
			path:     "/api/dags/1/stop",
			data:     &fakeData{stopErr: errors.New("connection refused")},
			wantCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newTestServer(t, tt.data, nil)
			resp, err := http.Post(ts.URL+tt.path, "application/json", nil)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			var body errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestToggleReport(t *testing.T) {
	data := &fakeData{toggle: &domain.ToggleReportResult{BaseResult: domain.BaseResult{Success: true}, ReportFull: true}}
	ts, _ := newTestServer(t, data, nil)

	resp, err := http.Post(ts.URL+"/api/tasks/3/report", "application/json", strings.NewReader(`{"report": 9, "remove": false}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res domain.ToggleReportResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.ReportFull)

	bad, err := http.Post(ts.URL+"/api/tasks/3/report", "application/json", strings.NewReader(`nope`))
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestStatusColor(t *testing.T) {
	ts, _ := newTestServer(t, &fakeData{}, nil)

	tests := []struct {
		query     string
		wantCode  int
		wantColor string
	}{
		{query: "status=failed&count=2", wantCode: http.StatusOK, wantColor: "red"},
		{query: "status=success&count=1", wantCode: http.StatusOK, wantColor: "green"},
		{query: "status=failed&count=0", wantCode: http.StatusOK, wantColor: "gainsboro"},
		{query: "status=exploded&count=0", wantCode: http.StatusOK, wantColor: "gainsboro"},
		{query: "status=exploded&count=3", wantCode: http.StatusNotFound},
		{query: "status=failed&count=many", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/status-color?" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			if tt.wantCode != http.StatusOK {
				return
			}
			var body statusColorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantColor, body.Color)
		})
	}
}

func TestStatusAndHealth(t *testing.T) {
	ts, _ := newTestServer(t, &fakeData{}, nil)

	for path, want := range map[string]int{
		"/api/status":          http.StatusOK,
		"/health/live":         http.StatusOK,
		"/health/ready":        http.StatusOK,
		"/api/health/detailed": http.StatusOK,
		"/metrics":             http.StatusOK,
	} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}
}

func TestMetricsDisabled(t *testing.T) {
	ts, _ := newTestServer(t, &fakeData{}, nil, WithMetrics(false))

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	status, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	status.Body.Close()
	assert.Equal(t, http.StatusOK, status.StatusCode)
}

func TestRecentEvents(t *testing.T) {
	history := &memoryHistory{events: []domain.Event{
		{ID: "b", Type: domain.EventReportToggled},
		{ID: "a", Type: domain.EventDagStopped},
	}}
	ts, _ := newTestServer(t, &fakeData{}, history)

	resp, err := http.Get(ts.URL + "/api/events?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()

	var events []domain.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 1)
	assert.Equal(t, "b", events[0].ID)
}

func TestRecentEvents_NoHistory(t *testing.T) {
	ts, _ := newTestServer(t, &fakeData{}, nil)

	resp, err := http.Get(ts.URL + "/api/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	var events []domain.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	assert.Empty(t, events)
}
