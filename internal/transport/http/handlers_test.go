package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/charts"
	apierrors "github.com/youssefzad/FinnishStartupDashboard-sub002/internal/errors"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/loader"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/middleware"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/registry"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/services"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// mockDashboard is a testify mock of DashboardService
type mockDashboard struct {
	mock.Mock
	reg  *registry.Registry
	snap *loader.Snapshot
}

func (m *mockDashboard) Registry() *registry.Registry { return m.reg }

func (m *mockDashboard) Snapshot() *loader.Snapshot { return m.snap }

func (m *mockDashboard) Chart(ctx context.Context, id string, p charts.Params) (services.ChartResult, error) {
	args := m.Called(ctx, id, p)
	return args.Get(0).(services.ChartResult), args.Error(1)
}

func (m *mockDashboard) Metrics(ctx context.Context) (domain.MetricsBundle, uint64) {
	args := m.Called(ctx)
	bundle, _ := args.Get(0).(domain.MetricsBundle)
	return bundle, args.Get(1).(uint64)
}

func (m *mockDashboard) Dataset(key domain.DatasetKey) (domain.Dataset, loader.Provenance, error) {
	args := m.Called(key)
	return args.Get(0).(domain.Dataset), args.Get(1).(loader.Provenance), args.Error(2)
}

func (m *mockDashboard) Reload(ctx context.Context) (*loader.Snapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*loader.Snapshot)
	return snap, args.Error(1)
}

// mockHealth is a testify mock of HealthService
type mockHealth struct {
	mock.Mock
}

func (m *mockHealth) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *mockHealth) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *mockHealth) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *mockHealth) Ready() bool { return m.Called().Bool(0) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func nilBuilder([]domain.Row, charts.Params) *domain.ChartConfig { return nil }

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(registry.Entry{ID: "revenue", Title: "Revenue", Dataset: domain.DatasetPrimary, Build: nilBuilder}))
	require.NoError(t, reg.Register(registry.Entry{ID: "employees", Title: "Employees", Dataset: domain.DatasetPrimary, Build: nilBuilder}))
	return reg
}

func revenueEntry(t *testing.T, reg *registry.Registry) registry.Entry {
	t.Helper()
	e, err := reg.Resolve("revenue")
	require.NoError(t, err)
	return e
}

func revenueConfig() *domain.ChartConfig {
	return &domain.ChartConfig{
		Kind: domain.ChartArea,
		Data: []domain.Point{
			{Label: "2021", Value: 8, OriginalValue: 8e9},
			{Label: "2022", Value: 10, OriginalValue: 1e10},
		},
		Series: []domain.Series{{Key: "value", Name: "Revenue", Visible: true}},
	}
}

func newMockDashboard(t *testing.T) *mockDashboard {
	t.Helper()
	m := &mockDashboard{
		reg: testRegistry(t),
		snap: &loader.Snapshot{
			Revision: 3,
			LoadedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			Datasets: map[domain.DatasetKey]domain.Dataset{
				domain.DatasetPrimary: {Key: domain.DatasetPrimary, Source: domain.TierRemote, Rows: primaryRows()},
			},
			Provenance: map[domain.DatasetKey]loader.Provenance{
				domain.DatasetPrimary: {Tier: domain.TierRemote, Tab: "0"},
			},
		},
	}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func primaryRows() []domain.Row {
	return []domain.Row{
		{"Year": domain.Number(2021), "Revenue": domain.Number(8e9)},
		{"Year": domain.Number(2022), "Revenue": domain.Number(1e10), "Employees": domain.Number(24000)},
		{"Year": domain.Number(2023), "Revenue": domain.Number(1.2e10)},
	}
}

// testRouter mounts the handlers the way the application does
func testRouter(svc DashboardService, health HealthService) http.Handler {
	logger := discardLogger()
	eh := apierrors.NewErrorHandler(logger, false)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Mount("/charts", NewChartHandler(svc, middleware.NewValidator(), eh, logger).Routes())
		r.Mount("/datasets", NewDatasetHandler(svc, middleware.NewQueryParamValidator(logger, eh), eh, logger).Routes())
		r.Mount("/embed", NewEmbedHandler(svc, eh, logger).Routes())
		r.Get("/metrics", NewMetricsHandler(svc).GetMetrics)
		if health != nil {
			h := NewHealthHandler(health, logger)
			r.Get("/health", h.HealthCheck)
			r.Get("/health/ready", h.ReadinessCheck)
			r.Get("/version", h.Version)
		}
	})
	return r
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestListCharts(t *testing.T) {
	h := testRouter(newMockDashboard(t), nil)

	rec := do(t, h, http.MethodGet, "/api/charts")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.EqualValues(t, 2, body["count"])
	list := body["charts"].([]interface{})
	assert.Equal(t, "revenue", list[0].(map[string]interface{})["id"])
}

func TestGetChart(t *testing.T) {
	svc := newMockDashboard(t)
	entry := revenueEntry(t, svc.reg)
	svc.On("Chart", mock.Anything, "revenue", mock.MatchedBy(func(p charts.Params) bool {
		return p.Palette == "colorblind" && p.Theme == "dark" && p.Width == 480 && p.Compact &&
			!p.IsVisible("women") && p.IsVisible("men")
	})).Return(services.ChartResult{Entry: entry, Revision: 3, Config: revenueConfig()}, nil)

	rec := do(t, testRouter(svc, nil), http.MethodGet,
		"/api/charts/revenue?palette=colorblind&theme=DARK&width=480&compact=true&hide=women")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "revenue", body["chart_id"])
	assert.EqualValues(t, 3, body["revision"])
	assert.NotNil(t, body["config"])
}

func TestGetChart_NullConfig(t *testing.T) {
	svc := newMockDashboard(t)
	svc.On("Chart", mock.Anything, "revenue", mock.Anything).
		Return(services.ChartResult{Entry: revenueEntry(t, svc.reg), Revision: 3}, nil)

	rec := do(t, testRouter(svc, nil), http.MethodGet, "/api/charts/revenue")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	config, present := body["config"]
	assert.True(t, present)
	assert.Nil(t, config)
}

func TestGetChart_UnknownID(t *testing.T) {
	svc := newMockDashboard(t)
	_, notFound := svc.reg.Resolve("unicorns")
	svc.On("Chart", mock.Anything, "unicorns", mock.Anything).Return(services.ChartResult{}, notFound)

	rec := do(t, testRouter(svc, nil), http.MethodGet, "/api/charts/unicorns")
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, apierrors.TypeChartNotFound, body["type"])
	details := body["details"].(map[string]interface{})
	assert.ElementsMatch(t, []interface{}{"revenue", "employees"}, details["valid_ids"])
}

func TestGetChart_InvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"palette", "palette=neon"},
		{"theme", "theme=sepia"},
		{"width not a number", "width=wide"},
		{"negative width", "width=-5"},
		{"compact", "compact=perhaps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, testRouter(newMockDashboard(t), nil), http.MethodGet, "/api/charts/revenue?"+tt.query)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestExportChart_CSV(t *testing.T) {
	svc := newMockDashboard(t)
	svc.On("Chart", mock.Anything, "revenue", mock.Anything).
		Return(services.ChartResult{Entry: revenueEntry(t, svc.reg), Revision: 3, Config: revenueConfig()}, nil)

	rec := do(t, testRouter(svc, nil), http.MethodGet, "/api/charts/revenue/export?format=csv")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="revenue.csv"`, rec.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2021", records[1][0])
}

func TestExportChart_XLSX(t *testing.T) {
	svc := newMockDashboard(t)
	svc.On("Chart", mock.Anything, "revenue", mock.Anything).
		Return(services.ChartResult{Entry: revenueEntry(t, svc.reg), Revision: 3, Config: revenueConfig()}, nil)

	rec := do(t, testRouter(svc, nil), http.MethodGet, "/api/charts/revenue/export?format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	// xlsx is a zip archive
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
}

func TestExportChart_UnsupportedFormat(t *testing.T) {
	rec := do(t, testRouter(newMockDashboard(t), nil), http.MethodGet, "/api/charts/revenue/export?format=pdf")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.ElementsMatch(t, []interface{}{"csv", "xlsx"}, body["supported"])
}

func TestListDatasets(t *testing.T) {
	rec := do(t, testRouter(newMockDashboard(t), nil), http.MethodGet, "/api/datasets")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.EqualValues(t, 3, body["revision"])
	list := body["datasets"].([]interface{})
	require.Len(t, list, len(domain.AllDatasets()))

	byKey := make(map[string]map[string]interface{})
	for _, item := range list {
		m := item.(map[string]interface{})
		byKey[m["key"].(string)] = m
	}
	assert.EqualValues(t, 3, byKey["primary"]["rows"])
	assert.Equal(t, "0", byKey["primary"]["tab"])
	assert.EqualValues(t, 0, byKey["rnd"]["rows"])
}

func TestGetDataset(t *testing.T) {
	svc := newMockDashboard(t)
	ds := svc.snap.Dataset(domain.DatasetPrimary)
	svc.On("Dataset", domain.DatasetPrimary).Return(ds, svc.snap.Provenance[domain.DatasetPrimary], nil)

	rec := do(t, testRouter(svc, nil), http.MethodGet, "/api/datasets/primary?offset=1&limit=5")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, []interface{}{"Employees", "Revenue", "Year"}, body["columns"])
	assert.EqualValues(t, 1, body["offset"])
	assert.Len(t, body["data"], 2)
}

func TestGetDataset_OffsetPastEnd(t *testing.T) {
	svc := newMockDashboard(t)
	svc.On("Dataset", domain.DatasetPrimary).Return(svc.snap.Dataset(domain.DatasetPrimary), loader.Provenance{}, nil)

	rec := do(t, testRouter(svc, nil), http.MethodGet, "/api/datasets/primary?offset=99")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, decode(t, rec)["data"])
}

func TestGetDataset_Errors(t *testing.T) {
	svc := newMockDashboard(t)
	svc.On("Dataset", domain.DatasetKey("weather")).Return(domain.Dataset{}, loader.Provenance{}, services.ErrUnknownDataset)
	svc.On("Dataset", domain.DatasetPrimary).Return(svc.snap.Dataset(domain.DatasetPrimary), loader.Provenance{}, nil)
	h := testRouter(svc, nil)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/datasets/weather").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/datasets/primary?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/datasets/primary?limit=lots").Code)
}

func TestReload(t *testing.T) {
	svc := newMockDashboard(t)
	next := &loader.Snapshot{Revision: 4, LoadedAt: time.Now()}
	svc.On("Reload", mock.Anything).Return(next, nil).Once()
	svc.On("Reload", mock.Anything).Return(nil, loader.ErrExhausted).Once()
	h := testRouter(svc, nil)

	rec := do(t, h, http.MethodPost, "/api/datasets/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, decode(t, rec)["revision"])

	rec = do(t, h, http.MethodPost, "/api/datasets/reload")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "LOAD_FAILED", decode(t, rec)["error_code"])
}

func TestGetMetrics(t *testing.T) {
	svc := newMockDashboard(t)
	svc.On("Metrics", mock.Anything).Return(domain.MetricsBundle{
		"revenue": {Value: 1.2e10, FormattedValue: "€12.00B", Column: "Revenue", Resolved: true},
	}, uint64(3)).Once()
	svc.On("Metrics", mock.Anything).Return(nil, uint64(3)).Once()
	h := testRouter(svc, nil)

	body := decode(t, do(t, h, http.MethodGet, "/api/metrics"))
	assert.Equal(t, "ok", body["status"])
	metrics := body["metrics"].(map[string]interface{})
	assert.Equal(t, "€12.00B", metrics["revenue"].(map[string]interface{})["formattedValue"])

	body = decode(t, do(t, h, http.MethodGet, "/api/metrics"))
	metricsValue, present := body["metrics"]
	assert.True(t, present)
	assert.Nil(t, metricsValue)
}

func TestEmbedParams(t *testing.T) {
	svc := newMockDashboard(t)
	svc.On("Chart", mock.Anything, "revenue", mock.MatchedBy(func(p charts.Params) bool {
		return p.Theme == "dark" && p.Compact
	})).Return(services.ChartResult{Entry: revenueEntry(t, svc.reg), Config: revenueConfig()}, nil)

	rec := do(t, testRouter(svc, nil), http.MethodGet, "/api/embed/revenue/params?theme=dark&compact=1&title=0")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "revenue", body["chart_id"])
	params := body["params"].(map[string]interface{})
	assert.Equal(t, "revenue", params["chart_id"])
	assert.Equal(t, false, params["show_title"])
	assert.Equal(t, true, params["show_source"])
	assert.NotNil(t, body["config"])
}

func TestEmbedParams_UnknownChartWinsOverBadParams(t *testing.T) {
	rec := do(t, testRouter(newMockDashboard(t), nil), http.MethodGet, "/api/embed/unicorns/params?theme=sepia")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmbedParams_BadTheme(t *testing.T) {
	rec := do(t, testRouter(newMockDashboard(t), nil), http.MethodGet, "/api/embed/revenue/params?theme=sepia")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, apierrors.TypeEmbedParams, body["type"])
	fields := body["errors"].([]interface{})
	require.Len(t, fields, 1)
	assert.Equal(t, "theme", fields[0].(map[string]interface{})["field"])
}

func TestHealthHandler(t *testing.T) {
	health := &mockHealth{}
	health.On("HealthCheck", mock.Anything).Return(services.HealthStatus{Status: "healthy"})
	health.On("ReadinessCheck", mock.Anything).Return(services.HealthStatus{Status: "not_ready"}).Once()
	health.On("ReadinessCheck", mock.Anything).Return(services.HealthStatus{Status: "ready"}).Once()
	h := testRouter(newMockDashboard(t), health)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/api/health/ready").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/health/ready").Code)

	rec := do(t, h, http.MethodGet, "/api/version")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contracts.Version, decode(t, rec)["version"])
	health.AssertExpectations(t)
}
