package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/pulldown-go/api/handlers"
	"github.com/yourusername/pulldown-go/internal/app"
	"github.com/yourusername/pulldown-go/internal/domain"
	"github.com/yourusername/pulldown-go/pkg/logger"
)

type fakeStream struct {
	events chan domain.Event
	mu     sync.Mutex
	state  domain.ConnState
}

func (f *fakeStream) setState(state domain.ConnState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
}

func (f *fakeStream) Events() <-chan domain.Event  { return f.events }
func (f *fakeStream) Send(cmd domain.Command) bool { return true }
func (f *fakeStream) State() domain.ConnState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

type fakeCommander struct {
	mu       sync.Mutex
	calls    int
	startErr error
}

func (f *fakeCommander) call() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func (f *fakeCommander) failStarts(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErr = err
}

func (f *fakeCommander) StartDownload(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.startErr
}

func (f *fakeCommander) PauseDownload(ctx context.Context, url string) error  { return f.call() }
func (f *fakeCommander) ResumeDownload(ctx context.Context, url string) error { return f.call() }

type fakeNotifier struct{}

func (fakeNotifier) NotifyStartFailed(url string, err error) {}
func (fakeNotifier) NotifyStopDegraded(paused int)           {}

type apiFixture struct {
	stream    *fakeStream
	commander *fakeCommander
	session   *app.Session
	server    *httptest.Server
	logsDir   string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	f := &apiFixture{
		stream:    &fakeStream{events: make(chan domain.Event, 4), state: domain.ConnOpen},
		commander: &fakeCommander{},
		logsDir:   t.TempDir(),
	}
	f.session = app.NewSession(f.stream, f.commander, fakeNotifier{}, nil, app.SessionConfig{ClientID: "test-client"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.session.Run(ctx)
	}()

	router, closeFeed := SetupRouter(RouterConfig{Session: f.session, LogsDir: f.logsDir, RecentLimit: 10})
	f.server = httptest.NewServer(router)

	t.Cleanup(func() {
		f.server.Close()
		closeFeed()
		cancel()
		<-done
	})

	f.stream.events <- domain.SnapshotEvent{Tasks: []domain.Task{
		{ID: "http://cdn/movie.mp4", URL: "http://cdn/movie.mp4", FileName: "movie.mp4", Status: domain.StatusDownloading, TotalSize: 100, Downloaded: 40},
		{ID: "http://docs/report.pdf", URL: "http://docs/report.pdf", FileName: "report.pdf", Status: domain.StatusCompleted, TotalSize: 10, Downloaded: 10},
	}}
	require.Eventually(t, func() bool {
		return f.session.View().Stats().Total == 2
	}, time.Second, 5*time.Millisecond)

	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestHealthAndReady(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health handlers.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "test-client", health.SessionID)
	assert.Equal(t, domain.ConnOpen, health.Connection)

	resp, _ = f.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	f.stream.setState(domain.ConnClosed)
	resp, body = f.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "closed")
}

func TestListTasks(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/v1/tasks?filter=video", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list handlers.TaskListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "movie.mp4", list.Tasks[0].FileName)
	assert.Equal(t, 40.0, list.Tasks[0].Progress)

	resp, body = f.do(t, http.MethodGet, "/api/v1/tasks", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, domain.FilterAll, list.Filter)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "report.pdf", list.Tasks[0].FileName)

	resp, _ = f.do(t, http.MethodGet, "/api/v1/tasks?filter=nope", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatsAndLookup(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/v1/tasks/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats domain.TaskStats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats.ActiveDownloadCount)
	assert.Equal(t, 1, stats.CompletedCount)
	assert.Equal(t, int64(50), stats.TotalDownloadedBytes)

	resp, body = f.do(t, http.MethodGet, "/api/v1/tasks/lookup?id=http://docs/report.pdf", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "report.pdf")

	resp, _ = f.do(t, http.MethodGet, "/api/v1/tasks/lookup?id=missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, "/api/v1/tasks/lookup", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddTask(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/v1/tasks", map[string]string{"url": "http://x/new.zip"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var task domain.Task
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Equal(t, domain.PendingFileName, task.FileName)
	assert.Equal(t, domain.StatusDownloading, task.Status)
	assert.Equal(t, 3, f.session.View().Stats().Total)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/tasks", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/v1/tasks", map[string]string{"url": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddTask_TrimsURL(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/v1/tasks", map[string]string{"url": "  http://x/padded.zip \n"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var task domain.Task
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Equal(t, "http://x/padded.zip", task.ID)
	assert.Equal(t, "http://x/padded.zip", task.URL)
	assert.Equal(t, domain.StatusDownloading, task.Status)
}

func TestAddTask_StartFailureReachesClients(t *testing.T) {
	f := newAPIFixture(t)
	f.commander.failStarts(errors.New("connection refused"))

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var feed app.View
	require.NoError(t, conn.ReadJSON(&feed))
	assert.Empty(t, feed.Notices)

	resp, _ := f.do(t, http.MethodPost, "/api/v1/tasks", map[string]string{"url": "http://x/refused.zip"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var view app.View
	require.Eventually(t, func() bool {
		_, body := f.do(t, http.MethodGet, "/api/v1/view", nil)
		return json.Unmarshal(body, &view) == nil && len(view.Notices) == 1
	}, 2*time.Second, 10*time.Millisecond)

	notice := view.Notices[0]
	assert.Equal(t, domain.NoticeStartFailed, notice.Kind)
	assert.Equal(t, "http://x/refused.zip", notice.TaskID)
	assert.Contains(t, notice.Message, "connection refused")

	for len(feed.Notices) == 0 {
		require.NoError(t, conn.ReadJSON(&feed))
	}
	assert.Equal(t, notice.ID, feed.Notices[0].ID)

	resp, body := f.do(t, http.MethodGet, "/api/v1/notices", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list handlers.NoticeListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.Count)

	resp, _ = f.do(t, http.MethodDelete, "/api/v1/notices/"+notice.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, http.MethodDelete, "/api/v1/notices/"+notice.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, f.session.View().Notices())
}

func TestPauseResume(t *testing.T) {
	f := newAPIFixture(t)
	movie := map[string]string{"url": "http://cdn/movie.mp4"}

	resp, body := f.do(t, http.MethodPost, "/api/v1/tasks/pause", movie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"Paused"`)

	resp, body = f.do(t, http.MethodPost, "/api/v1/tasks/resume", movie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"Downloading"`)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/tasks/pause", map[string]string{"url": "http://docs/report.pdf"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/tasks/pause", map[string]string{"url": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBulkCommands(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/v1/tasks/pause-all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bulk handlers.BulkResponse
	require.NoError(t, json.Unmarshal(body, &bulk))
	assert.Equal(t, 1, bulk.Count)

	resp, body = f.do(t, http.MethodPost, "/api/v1/tasks/resume-all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &bulk))
	assert.Equal(t, 1, bulk.Count)

	resp, body = f.do(t, http.MethodPost, "/api/v1/tasks/stop-all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &bulk))
	assert.Equal(t, 1, bulk.Count)
	assert.Equal(t, handlers.StopDegradedMessage, bulk.Message)
	assert.Equal(t, 1, f.session.View().Stats().PausedCount)

	notices := f.session.View().Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeStopDegraded, notices[0].Kind)

	resp, body = f.do(t, http.MethodDelete, "/api/v1/notices", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &bulk))
	assert.Equal(t, 1, bulk.Count)
	assert.Empty(t, f.session.View().Notices())
}

func TestView(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodPut, "/api/v1/view", map[string]string{"filter": "Completed", "search": "REPORT"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view app.View
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, domain.Filter("Completed"), view.Filter)
	require.Len(t, view.Tasks, 1)
	assert.Equal(t, "report.pdf", view.Tasks[0].FileName)

	resp, _ = f.do(t, http.MethodPut, "/api/v1/view", map[string]string{"filter": "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodGet, "/api/v1/view", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, "REPORT", view.Search)
}

func TestViewFeed(t *testing.T) {
	f := newAPIFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var view app.View
	require.NoError(t, conn.ReadJSON(&view))
	assert.Len(t, view.Tasks, 2)

	f.stream.events <- domain.ProgressEvent{ID: "http://cdn/movie.mp4", Percent: 100}

	for {
		require.NoError(t, conn.ReadJSON(&view))
		if view.Stats.CompletedCount == 2 {
			break
		}
	}
	assert.Equal(t, 0, view.Stats.ActiveDownloadCount)
}

func TestDiagnostics(t *testing.T) {
	f := newAPIFixture(t)
	f.stream.events <- domain.ProgressEvent{ID: "ghost", Percent: 5}
	require.Eventually(t, func() bool {
		return f.session.Diagnostics().Stats().OrphanProgress == 1
	}, time.Second, 5*time.Millisecond)

	resp, body := f.do(t, http.MethodGet, "/api/v1/diagnostics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report app.DiagnosticsReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, int64(1), report.Session.OrphanProgress)
	require.Len(t, report.Recent, 1)
	assert.Equal(t, "ghost", report.Recent[0].TaskID)

	resp, _ = f.do(t, http.MethodGet, "/api/v1/diagnostics?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogs(t *testing.T) {
	f := newAPIFixture(t)
	now := time.Now()
	path := logger.CategoryLogPath(f.logsDir, logger.CategoryStream, now)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	lines := `{"level":"info","timestamp":"2026-01-01T00:00:00Z","logger":"stream","message":"Connected"}
{"level":"warn","timestamp":"2026-01-01T00:00:01Z","logger":"stream","message":"Connection lost"}
`
	require.NoError(t, os.WriteFile(path, []byte(lines), 0644))

	resp, body := f.do(t, http.MethodGet, "/api/v1/logs/categories", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "stream")

	resp, body = f.do(t, http.MethodGet, "/api/v1/logs/stream", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"count":2`)

	resp, body = f.do(t, http.MethodGet, "/api/v1/logs/stream/search?q=lost", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"count":1`)

	resp, body = f.do(t, http.MethodGet, "/api/v1/logs/stream/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, lines, string(body))

	resp, _ = f.do(t, http.MethodGet, "/api/v1/logs/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, "/api/v1/logs/stream?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
