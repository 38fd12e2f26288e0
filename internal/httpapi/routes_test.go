package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AnnouncementIngestor/internal/config"
	"AnnouncementIngestor/internal/logging"
	"AnnouncementIngestor/internal/usecase"
)

type stubRuns struct {
	status     usecase.RunStatus
	triggerErr error
	triggers   int
}

func (s *stubRuns) Trigger(context.Context) (usecase.RunStatus, error) {
	s.triggers++
	if s.triggerErr != nil {
		return s.status, s.triggerErr
	}
	return usecase.RunStatus{JobID: "job-1", Status: usecase.StatusRunning}, nil
}

func (s *stubRuns) Status() usecase.RunStatus {
	return s.status
}

func setupTestServer(t *testing.T, runs RunController) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	api := NewAPI(config.AppConfig{Name: "Announcements Ingestion Service", Version: "1.0.0"}, runs, logging.Discard())
	api.now = func() time.Time { return time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC) }
	registerRoutes(engine, api)
	return engine
}

func serve(engine http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestTriggerStartsRun(t *testing.T) {
	runs := &stubRuns{}
	rec := serve(setupTestServer(t, runs), http.MethodPost, PathTrigger)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "started", body["status"])
	assert.Equal(t, "job-1", body["job_id"])
	assert.NotEmpty(t, body["message"])
	assert.Equal(t, 1, runs.triggers)
}

func TestTriggerConflict(t *testing.T) {
	runs := &stubRuns{triggerErr: usecase.ErrRunInProgress}
	rec := serve(setupTestServer(t, runs), http.MethodPost, PathTrigger)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, usecase.ErrRunInProgress.Error(), decodeBody(t, rec)["error"])
}

func TestTriggerErrors(t *testing.T) {
	rec := serve(setupTestServer(t, &stubRuns{triggerErr: usecase.ErrRunnerClosed}), http.MethodPost, PathTrigger)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(setupTestServer(t, &stubRuns{triggerErr: errors.New("pq: secret detail")}), http.MethodPost, PathTrigger)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestStatusReturnsSnapshot(t *testing.T) {
	last := time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC)
	runs := &stubRuns{status: usecase.RunStatus{
		JobID:        "job-9",
		LastRun:      &last,
		Status:       usecase.StatusCompleted,
		NewDocuments: 2,
		Processed:    3,
		Failed:       1,
		Message:      "Processed 3 new documents, 1 failed",
	}}

	rec := serve(setupTestServer(t, runs), http.MethodGet, PathStatus)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "job-9", body["job_id"])
	assert.Equal(t, "2025-03-12T08:00:00Z", body["last_run"])
	assert.Equal(t, "completed", body["status"])
	assert.EqualValues(t, 2, body["new_documents"])
	assert.EqualValues(t, 3, body["processed"])
	assert.EqualValues(t, 1, body["failed"])
	assert.Equal(t, "Processed 3 new documents, 1 failed", body["message"])
}

func TestStatusBeforeFirstRun(t *testing.T) {
	runs := &stubRuns{status: usecase.NewStatusTracker().Snapshot()}
	body := decodeBody(t, serve(setupTestServer(t, runs), http.MethodGet, PathStatus))

	assert.Equal(t, "idle", body["status"])
	assert.Nil(t, body["last_run"])
	assert.Equal(t, "Not run yet", body["message"])
}

func TestHealthHandler(t *testing.T) {
	rec := serve(setupTestServer(t, &stubRuns{}), http.MethodGet, PathHealth)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "2025-03-12T08:00:00Z", body["timestamp"])
	assert.Equal(t, "Announcements Ingestion Service", body["service"])
}

func TestIndexListsEndpoints(t *testing.T) {
	body := decodeBody(t, serve(setupTestServer(t, &stubRuns{}), http.MethodGet, "/"))

	assert.Equal(t, "1.0.0", body["version"])
	endpoints, ok := body["endpoints"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, PathTrigger, endpoints["cron_trigger"])
}

func TestServerAppliesCORS(t *testing.T) {
	cfg := config.Config{
		App:    config.AppConfig{Name: "svc"},
		Server: config.ServerConfig{Addr: ":0", AllowOrigins: []string{"*"}},
	}
	srv := NewServer(cfg, &stubRuns{}, logging.Discard())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, PathHealth, nil)
	req.Header.Set("Origin", "https://dashboard.example.org")
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerRunStopsOnCancel(t *testing.T) {
	cfg := config.Config{Server: config.ServerConfig{Addr: "127.0.0.1:0"}}
	srv := NewServer(cfg, &stubRuns{}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
