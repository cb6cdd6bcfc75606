package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/config"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/loader"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig keeps every tier local so no test touches the network
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LocationsFile = filepath.Join(dir, "locations.json")
	cfg.Paths.BundledWorkbook = filepath.Join(dir, "absent.xlsx")
	cfg.Features = config.FeaturesConfig{}
	cfg.Telemetry.MetricExporter = "none"
	cfg.Telemetry.TraceExporter = "none"
	cfg.Security.RateLimit.Enabled = false
	return cfg
}

func writePrimary(t *testing.T, cfg *config.Config) {
	t.Helper()
	require.NoError(t, loader.WriteLocal(cfg.Paths.DataDir, domain.DatasetPrimary, []domain.Row{
		{"Year": domain.Number(2021), "Revenue": domain.Number(8e9), "Employees": domain.Number(20000)},
		{"Year": domain.Number(2022), "Revenue": domain.Number(1e10), "Employees": domain.Number(24000)},
	}))
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	a, err := New(cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.WebSocketHub.Stop() })
	return a
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNew(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	assert.NotNil(t, a.Router)
	assert.NotNil(t, a.Server)
	assert.NotNil(t, a.Loader)
	assert.NotNil(t, a.Dashboard)
	assert.NotNil(t, a.Health)
	assert.Nil(t, a.Metrics, "metrics need a meter")
	assert.Equal(t, "127.0.0.1:0", a.Server.Addr)
}

func TestNew_InvalidLocale(t *testing.T) {
	cfg := testConfig(t)
	cfg.Locale.SymbolPosition = "middle"

	_, err := New(cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid locale")
}

func TestNew_MissingRulesFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read column rules")
}

func TestRouter_ReadinessFollowsLoad(t *testing.T) {
	cfg := testConfig(t)
	writePrimary(t, cfg)
	a := newTestApp(t, cfg)

	rec := get(t, a.Router, "/api/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, err := a.Dashboard.Load(context.Background())
	require.NoError(t, err)

	rec = get(t, a.Router, "/api/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestRouter_APIRoutes(t *testing.T) {
	cfg := testConfig(t)
	writePrimary(t, cfg)
	a := newTestApp(t, cfg)
	_, err := a.Dashboard.Load(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"health", "/api/health", http.StatusOK},
		{"liveness", "/api/health/live", http.StatusOK},
		{"version", "/api/version", http.StatusOK},
		{"chart list", "/api/charts", http.StatusOK},
		{"trailing slash", "/api/charts/", http.StatusOK},
		{"chart", "/api/charts/revenue", http.StatusOK},
		{"unknown chart", "/api/charts/unicorns", http.StatusNotFound},
		{"bad palette", "/api/charts/revenue?palette=neon", http.StatusBadRequest},
		{"export", "/api/charts/revenue/export?format=csv", http.StatusOK},
		{"metrics", "/api/metrics", http.StatusOK},
		{"datasets", "/api/datasets", http.StatusOK},
		{"dataset rows", "/api/datasets/primary?limit=1", http.StatusOK},
		{"unknown dataset", "/api/datasets/weather", http.StatusNotFound},
		{"embed params", "/api/embed/revenue/params?theme=dark", http.StatusOK},
		{"bad embed theme", "/api/embed/revenue/params?theme=sepia", http.StatusBadRequest},
		{"unknown route", "/api/nothing-here", http.StatusNotFound},
		{"no prometheus", "/metrics", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, a.Router, tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestRouter_CompressesJSON(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/charts", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestRouter_UnknownChartListsValidIDs(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	rec := get(t, a.Router, "/api/charts/unicorns")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Details struct {
			ValidIDs []string `json:"valid_ids"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Details.ValidIDs, "revenue")
	assert.Len(t, body.Details.ValidIDs, len(a.Dashboard.Registry().List()))
}

func TestRouter_EmbedFraming(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.FrameAncestors = []string{"https://news.example"}
	a := newTestApp(t, cfg)

	rec := get(t, a.Router, "/api/embed/revenue/params")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors https://news.example")

	rec = get(t, a.Router, "/api/charts")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.RateLimit.Enabled = true
	cfg.Security.RateLimit.RPS = 1
	cfg.Security.RateLimit.Burst = 1
	a := newTestApp(t, cfg)

	assert.Equal(t, http.StatusOK, get(t, a.Router, "/api/health/live").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, a.Router, "/api/health/live").Code)
}

func TestRouter_PrometheusEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.MetricExporter = "prometheus"
	a := newTestApp(t, cfg)
	t.Cleanup(func() { _ = a.OTelProviders.Shutdown(context.Background()) })

	require.NotNil(t, a.Metrics)
	get(t, a.Router, "/api/charts")

	rec := get(t, a.Router, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRouter_EmbedBridge(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	a.WebSocketHub.Start()

	srv := httptest.NewServer(a.Router)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(base+"/ws/embed/unicorns?role=host", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	conn, resp, err := websocket.DefaultDialer.Dial(base+"/ws/embed/revenue?role=host", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.NoError(t, conn.Close())
}

func TestApplication_StartStop(t *testing.T) {
	cfg := testConfig(t)
	writePrimary(t, cfg)
	a := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, a.Start(ctx, cancel))
	assert.True(t, a.Health.Ready())

	require.NoError(t, a.Stop(ctx))
}

func TestApplication_StartWithoutData(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, a.Start(ctx, cancel), "a failed initial load keeps the service up")
	assert.False(t, a.Health.Ready())
	require.NoError(t, a.Stop(ctx))
}

func TestApplication_performStartupHealthCheck(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	require.NoError(t, a.performStartupHealthCheck(context.Background()))
	assert.DirExists(t, cfg.Paths.DataDir)

	cfg.Features.BundledFallback = true
	err := a.performStartupHealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bundled fallback")
}
