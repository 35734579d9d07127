package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/grovetools/deckclock/internal/daemon/engine"
	"github.com/grovetools/deckclock/internal/daemon/registry"
	"github.com/grovetools/deckclock/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSource struct {
	views     []engine.View
	refreshes int
}

func (f *fakeSource) Views() []engine.View { return f.views }

func (f *fakeSource) Stats() engine.Stats {
	return engine.Stats{State: engine.StateRunning, Interval: 5 * time.Second, Ticks: 7}
}

func (f *fakeSource) Refresh(ctx context.Context) engine.TickResult {
	f.refreshes++
	return engine.TickResult{Groups: 1, Buttons: 2}
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestServer(t *testing.T) (*Server, *fakeSource, http.Handler) {
	t.Helper()
	reg := registry.New()
	reg.Attach("a", models.ButtonConfig{Token: "secret-token", UserID: "u1", WorkspaceID: "ws", Activity: "Coding", Label: "Code"})
	reg.Attach("b", models.ButtonConfig{Token: "secret-token", UserID: "u1", WorkspaceID: "ws", Activity: "Email"})

	src := &fakeSource{views: []engine.View{
		{Button: "a", State: models.Active, Title: "01:00\n\n\nCode", UpdatedAt: time.Now()},
	}}
	srv := New(reg, src, testLogger())
	return srv, src, srv.Handler()
}

func TestHealthEndpoint(t *testing.T) {
	_, _, h := newTestServer(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 2, body.Buttons)
	assert.NotEmpty(t, body.Version.GoVersion)
}

func TestButtonsEndpointMergesViewsAndHidesToken(t *testing.T) {
	_, _, h := newTestServer(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/buttons", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-token")

	var buttons []ButtonStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &buttons))
	require.Len(t, buttons, 2)
	assert.Equal(t, models.ButtonID("a"), buttons[0].ID)
	assert.Equal(t, models.Active, buttons[0].State)
	assert.Equal(t, "Code", buttons[0].Label)
	assert.Equal(t, models.Inactive, buttons[1].State)
	assert.Equal(t, "Email", buttons[1].Title)
}

func TestEngineEndpoint(t *testing.T) {
	_, _, h := newTestServer(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/engine", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var stats engine.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, engine.StateRunning, stats.State)
	assert.Equal(t, uint64(7), stats.Ticks)
}

func TestRefreshEndpoint(t *testing.T) {
	_, src, h := newTestServer(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, src.refreshes)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/refresh", nil))
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestClientOverUnixSocket(t *testing.T) {
	// Unix socket paths are length limited, so avoid deep temp dirs.
	dir, err := os.MkdirTemp("", "dc")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	socket := filepath.Join(dir, "s.sock")

	srv, src, _ := newTestServer(t)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(socket) }()

	client := NewClient(socket)
	ctx := context.Background()
	require.Eventually(t, func() bool { return client.IsRunning(ctx) }, 2*time.Second, 10*time.Millisecond)

	info, err := os.Stat(socket)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	buttons, err := client.Buttons(ctx)
	require.NoError(t, err)
	assert.Len(t, buttons, 2)

	stats, err := client.Engine(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.StateRunning, stats.State)

	refreshed, err := client.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed.Buttons)
	assert.Equal(t, 1, src.refreshes)

	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-errCh)
	assert.False(t, client.IsRunning(ctx))
}

func TestClientNotRunning(t *testing.T) {
	client := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	assert.False(t, client.IsRunning(context.Background()))
	_, err := client.Health(context.Background())
	assert.Error(t, err)
}
