package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/charts"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/indicators"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/infrastructure"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/loader"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/registry"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// DatasetLoader is the part of the loader the dashboard drives
type DatasetLoader interface {
	Load(ctx context.Context) (*loader.Snapshot, error)
	Reload(ctx context.Context) (*loader.Snapshot, error)
	Store() *loader.Store
}

// ChartResult is a built chart with the snapshot revision it was built from.
// Config is shared with the memo and must not be modified.
type ChartResult struct {
	Entry    registry.Entry
	Revision uint64
	Config   *domain.ChartConfig
	Cached   bool
}

// DashboardService builds chart configs and headline metrics from the current
// dataset snapshot
type DashboardService struct {
	loader    DatasetLoader
	registry  *registry.Registry
	extractor *indicators.Extractor
	memo      *Memo
	logger    *slog.Logger
	metrics   *infrastructure.BusinessMetrics

	metricsGroup singleflight.Group
	bundleMu     sync.Mutex
	bundleRev    uint64
	bundle       domain.MetricsBundle
	bundleSet    bool
}

// NewDashboardService creates the dashboard service
func NewDashboardService(l DatasetLoader, reg *registry.Registry, ext *indicators.Extractor,
	memoSize int, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if ext == nil {
		ext = indicators.NewExtractor(nil, nil, nil, logger)
	}
	return &DashboardService{
		loader:    l,
		registry:  reg,
		extractor: ext,
		memo:      NewMemo(memoSize),
		logger:    infrastructure.WithComponent(logger, "dashboard_service"),
		metrics:   metrics,
	}
}

// Registry returns the chart registry
func (s *DashboardService) Registry() *registry.Registry { return s.registry }

// Snapshot returns the current dataset snapshot
func (s *DashboardService) Snapshot() *loader.Snapshot { return s.loader.Store().Current() }

// Load runs the initial load cycle
func (s *DashboardService) Load(ctx context.Context) (*loader.Snapshot, error) {
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial load: %w", err)
	}
	return snap, nil
}

// Reload refreshes every dataset. Memo entries of older revisions are dropped
// once the new snapshot is published.
func (s *DashboardService) Reload(ctx context.Context) (*loader.Snapshot, error) {
	snap, err := s.loader.Reload(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload: %w", err)
	}
	s.memo.Prune(snap.Revision)
	return snap, nil
}

// Chart builds chart id with p against the current snapshot. Unknown ids return
// a *registry.NotFoundError. A nil Config means the chart has nothing to show.
func (s *DashboardService) Chart(ctx context.Context, id string, p charts.Params) (ChartResult, error) {
	entry, err := s.registry.Resolve(id)
	if err != nil {
		infrastructure.RecordChartBuild(ctx, s.metrics, id, "unknown", 0)
		return ChartResult{}, err
	}

	snap := s.Snapshot()
	key := memoKey{revision: snap.Revision, chartID: id, params: p.Key()}
	cacheable := !hasHandlers(p.Handlers)

	if cacheable {
		if cfg, ok := s.memo.Get(key); ok {
			infrastructure.RecordChartCache(ctx, s.metrics, true)
			return ChartResult{Entry: entry, Revision: snap.Revision, Config: cfg, Cached: true}, nil
		}
		infrastructure.RecordChartCache(ctx, s.metrics, false)
	}

	start := time.Now()
	cfg := entry.Build(snap.Rows(entry.Dataset), p)
	elapsed := time.Since(start)

	outcome := "config"
	if cfg == nil {
		outcome = "null"
	}
	infrastructure.RecordChartBuild(ctx, s.metrics, id, outcome, elapsed)
	s.logger.DebugContext(ctx, "chart built",
		slog.String("chart_id", id),
		slog.Uint64("revision", snap.Revision),
		slog.String("outcome", outcome),
		slog.Duration("duration", elapsed))

	if cacheable {
		s.memo.Put(key, cfg)
	}
	return ChartResult{Entry: entry, Revision: snap.Revision, Config: cfg}, nil
}

// Metrics computes the headline bundle for the current snapshot. The bundle is
// nil only when no metric resolved.
func (s *DashboardService) Metrics(ctx context.Context) (domain.MetricsBundle, uint64) {
	snap := s.Snapshot()

	s.bundleMu.Lock()
	if s.bundleSet && s.bundleRev == snap.Revision {
		bundle := s.bundle
		s.bundleMu.Unlock()
		return bundle, snap.Revision
	}
	s.bundleMu.Unlock()

	v, _, _ := s.metricsGroup.Do(strconv.FormatUint(snap.Revision, 10), func() (interface{}, error) {
		return s.extractor.Bundle(snap.RowsByKey()), nil
	})
	bundle, _ := v.(domain.MetricsBundle)

	s.bundleMu.Lock()
	if !s.bundleSet || snap.Revision >= s.bundleRev {
		s.bundleRev, s.bundle, s.bundleSet = snap.Revision, bundle, true
	}
	s.bundleMu.Unlock()

	if bundle == nil {
		s.logger.DebugContext(ctx, "no headline metric resolved", slog.Uint64("revision", snap.Revision))
	}
	return bundle, snap.Revision
}

// Dataset returns one dataset of the current snapshot with its provenance
func (s *DashboardService) Dataset(key domain.DatasetKey) (domain.Dataset, loader.Provenance, error) {
	if !knownDataset(key) {
		return domain.Dataset{}, loader.Provenance{}, fmt.Errorf("%w: %q", ErrUnknownDataset, key)
	}
	snap := s.Snapshot()
	return snap.Dataset(key), snap.Provenance[key], nil
}

// HasChart reports whether id is registered
func (s *DashboardService) HasChart(id string) bool { return s.registry.Has(id) }

func knownDataset(key domain.DatasetKey) bool {
	for _, k := range domain.AllDatasets() {
		if k == key {
			return true
		}
	}
	return false
}

func hasHandlers(h domain.Handlers) bool {
	return h.OnFilterChange != nil || h.OnViewChange != nil || h.OnToggle != nil
}
