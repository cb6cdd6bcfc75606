package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/columns"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/config"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/infrastructure"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// Deps are the optional collaborators of a Loader
type Deps struct {
	Store      *Store
	Remote     Remote // overrides the remote built from config
	HTTPClient *http.Client
	Resolver   *columns.Resolver
	Logger     *slog.Logger
	Metrics    *infrastructure.BusinessMetrics
	Now        func() time.Time
}

// Loader runs load cycles over the dataset catalog and publishes each
// complete result to the store
type Loader struct {
	catalog    *Catalog
	store      *Store
	local      *LocalSource
	bundled    *BundledSource
	remote     Remote
	locations  *Locations
	discoverer *Discoverer
	features   config.FeaturesConfig
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *infrastructure.BusinessMetrics
	now        func() time.Time

	group singleflight.Group
}

// New wires a Loader from configuration
func New(ctx context.Context, cfg *config.Config, deps Deps) (*Loader, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "loader")

	store := deps.Store
	if store == nil {
		store = NewStore()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	remote := deps.Remote
	if remote == nil && cfg.Features.RemoteFetch {
		r, err := NewRemote(ctx, cfg.Sources, deps.HTTPClient)
		if err != nil {
			return nil, fmt.Errorf("failed to configure remote source: %w", err)
		}
		remote = r
	}

	locations, err := LoadLocations(cfg.Paths.LocationsFile)
	if err != nil {
		return nil, err
	}

	catalog := NewCatalog(cfg.Sources)
	l := &Loader{
		catalog:   catalog,
		store:     store,
		local:     NewLocalSource(cfg.Paths.DataDir),
		bundled:   NewBundledSource(cfg.Paths.BundledWorkbook, logger),
		remote:    remote,
		locations: locations,
		features:  cfg.Features,
		timeout:   cfg.Sources.FetchTimeout,
		logger:    logger,
		metrics:   deps.Metrics,
		now:       now,
	}
	l.discoverer = NewDiscoverer(remote, catalog.Candidates(), cfg.Sources.DiscoveryConcurrency,
		locations, deps.Resolver, logger, deps.Metrics)
	return l, nil
}

// Store returns the snapshot store the loader publishes to
func (l *Loader) Store() *Store { return l.store }

// Load runs one cycle with the tier order local, snapshot, remote, bundled.
// Concurrent calls share a single cycle.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	return l.run(ctx, "load", false)
}

// Reload runs a cycle that consults the previous snapshot only after every
// other tier failed, so fresh remote data replaces it
func (l *Loader) Reload(ctx context.Context) (*Snapshot, error) {
	return l.run(ctx, "reload", true)
}

func (l *Loader) run(ctx context.Context, key string, refresh bool) (*Snapshot, error) {
	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		return l.cycle(ctx, refresh)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (l *Loader) cycle(ctx context.Context, refresh bool) (*Snapshot, error) {
	start := l.now()
	prev := l.store.Current()

	taken := make(map[string]bool)
	for tab := range l.catalog.configuredTabs() {
		taken[tab] = true
	}
	for _, tab := range l.locations.All() {
		taken[tab] = true
	}

	datasets := make(map[domain.DatasetKey]domain.Dataset)
	provenance := make(map[domain.DatasetKey]Provenance)
	var failures []error

	for _, entry := range l.catalog.Entries() {
		ds, prov, err := l.loadOne(ctx, entry, prev, taken, refresh)
		provenance[entry.Key] = prov
		if err != nil {
			failures = append(failures, err)
			continue
		}
		datasets[entry.Key] = ds
		if prov.Tab != "" {
			taken[prov.Tab] = true
		}
	}

	if len(failures) > 0 {
		l.logger.ErrorContext(ctx, "load cycle failed, keeping previous snapshot",
			slog.Uint64("revision", prev.Revision),
			slog.String("error", errors.Join(failures...).Error()))
		return nil, errors.Join(failures...)
	}

	snap := l.store.Publish(datasets, provenance, l.now())
	l.logger.InfoContext(ctx, "datasets loaded",
		slog.Uint64("revision", snap.Revision),
		slog.Int("primary_rows", len(snap.Rows(domain.DatasetPrimary))),
		slog.Duration("duration", l.now().Sub(start)))
	return snap, nil
}

type tier struct {
	name  domain.SourceTier
	fetch func() ([]domain.Row, string, error)
}

// loadOne walks the fallback chain for one dataset. Optional datasets that
// exhaust every tier come back empty; required ones return an error.
func (l *Loader) loadOne(ctx context.Context, entry Entry, prev *Snapshot, taken map[string]bool, refresh bool) (domain.Dataset, Provenance, error) {
	snapshotTier := tier{domain.TierSnapshot, func() ([]domain.Row, string, error) {
		ds := prev.Dataset(entry.Key)
		if ds.Empty() {
			return nil, "", sourceError(entry.Key, domain.TierSnapshot, KindEmpty, fmt.Errorf("no earlier snapshot"))
		}
		return ds.Rows, prev.Provenance[entry.Key].Tab, nil
	}}

	tiers := []tier{
		{domain.TierLocal, func() ([]domain.Row, string, error) {
			rows, err := l.local.Fetch(entry)
			return rows, "", err
		}},
	}
	if !refresh {
		tiers = append(tiers, snapshotTier)
	}
	tiers = append(tiers, tier{domain.TierRemote, func() ([]domain.Row, string, error) {
		return l.fetchRemote(ctx, entry, taken)
	}})
	tiers = append(tiers, tier{domain.TierBundled, func() ([]domain.Row, string, error) {
		if !l.features.BundledFallback {
			return nil, "", sourceError(entry.Key, domain.TierBundled, KindNotConfigured, fmt.Errorf("bundled fallback disabled"))
		}
		rows, err := l.bundled.Fetch(entry)
		return rows, "", err
	}})
	if refresh {
		tiers = append(tiers, snapshotTier)
	}

	prov := Provenance{Tier: domain.TierNone}
	var lastErr error

	for _, t := range tiers {
		started := l.now()
		rows, tab, err := t.fetch()
		elapsed := l.now().Sub(started)

		if err != nil {
			se := withDataset(err, entry.Key, t.name)
			prov.Attempts = append(prov.Attempts, Attempt{Tier: t.name, Outcome: string(se.Kind), Detail: se.Error()})
			if se.Remediation != "" {
				prov.Remediation = se.Remediation
			}
			infrastructure.RecordDatasetLoad(ctx, l.metrics, string(entry.Key), string(t.name), string(se.Kind), 0, elapsed)

			level := slog.LevelDebug
			if se.Kind == KindNotPublic || se.Kind == KindNetwork {
				level = slog.LevelWarn
			}
			l.logger.Log(ctx, level, "dataset tier rejected",
				slog.String("dataset", string(entry.Key)),
				slog.String("tier", string(t.name)),
				slog.String("kind", string(se.Kind)),
				slog.String("error", se.Error()))
			lastErr = se
			continue
		}

		if t.name == domain.TierRemote && l.features.PersistRemote {
			if err := l.local.Save(entry, rows); err != nil {
				l.logger.WarnContext(ctx, "failed to persist remote dataset",
					slog.String("dataset", string(entry.Key)),
					slog.String("error", err.Error()))
			}
		}

		prov.Tier = t.name
		prov.Tab = tab
		prov.Attempts = append(prov.Attempts, Attempt{Tier: t.name, Outcome: "success"})
		infrastructure.RecordDatasetLoad(ctx, l.metrics, string(entry.Key), string(t.name), "success", len(rows), elapsed)

		return domain.Dataset{Key: entry.Key, Rows: rows, Source: t.name, LoadedAt: l.now()}, prov, nil
	}

	if entry.Required {
		infrastructure.RecordSystemError(ctx, l.metrics, "loader", "exhausted")
		return domain.Dataset{}, prov, fmt.Errorf("%s dataset: %w: %w", entry.Key, ErrExhausted, lastErr)
	}

	l.logger.InfoContext(ctx, "optional dataset unavailable, using empty dataset",
		slog.String("dataset", string(entry.Key)))
	return domain.Dataset{Key: entry.Key, Rows: []domain.Row{}, Source: domain.TierNone, LoadedAt: l.now()}, prov, nil
}

// fetchRemote fetches the configured or remembered tab, discovering one when
// neither exists
func (l *Loader) fetchRemote(ctx context.Context, entry Entry, taken map[string]bool) ([]domain.Row, string, error) {
	if !l.features.RemoteFetch {
		return nil, "", sourceError(entry.Key, domain.TierRemote, KindNotConfigured, fmt.Errorf("remote fetch disabled"))
	}
	if l.remote == nil {
		return nil, "", sourceError(entry.Key, domain.TierRemote, KindNotConfigured, fmt.Errorf("no document configured"))
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	tab := entry.TabID
	remembered := false
	if tab == "" {
		tab, remembered = l.locations.Get(entry.Key)
	}

	if tab != "" {
		rows, err := l.remote.FetchTab(ctx, tab)
		if err == nil {
			return rows, tab, nil
		}
		if !remembered {
			return nil, tab, err
		}
		// remembered tab went stale, rediscover
		l.logger.WarnContext(ctx, "remembered location no longer serves data",
			slog.String("dataset", string(entry.Key)),
			slog.String("tab", tab))
		_ = l.locations.Forget(entry.Key)
		delete(taken, tab)
	}

	if !l.features.Discovery {
		return nil, "", sourceError(entry.Key, domain.TierRemote, KindNotConfigured, fmt.Errorf("no tab configured and discovery disabled"))
	}
	found, err := l.discoverer.Discover(ctx, entry, taken)
	if err != nil {
		return nil, "", err
	}
	return found.Rows, found.Tab, nil
}

func (l *Loader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}
