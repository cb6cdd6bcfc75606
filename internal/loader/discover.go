package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/columns"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/infrastructure"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// Found is the outcome of a successful discovery
type Found struct {
	Tab  string
	Rows []domain.Row
}

// Discoverer locates unconfigured datasets among the candidate tabs. Reads
// run with bounded concurrency and stop at the first accepted tab.
type Discoverer struct {
	remote     Remote
	candidates []string
	limit      int
	locations  *Locations
	resolver   *columns.Resolver
	logger     *slog.Logger
	metrics    *infrastructure.BusinessMetrics

	group singleflight.Group
}

// NewDiscoverer creates a Discoverer. limit below one is treated as one.
func NewDiscoverer(remote Remote, candidates []string, limit int, locations *Locations,
	resolver *columns.Resolver, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Discoverer {
	if limit < 1 {
		limit = 1
	}
	if locations == nil {
		locations, _ = LoadLocations("")
	}
	if resolver == nil {
		resolver = columns.DefaultResolver()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{
		remote:     remote,
		candidates: candidates,
		limit:      limit,
		locations:  locations,
		resolver:   resolver,
		logger:     logger,
		metrics:    metrics,
	}
}

// Discover finds a tab holding entry's dataset, skipping tabs in taken.
// Concurrent callers for the same dataset share one scan.
func (d *Discoverer) Discover(ctx context.Context, entry Entry, taken map[string]bool) (Found, error) {
	v, err, shared := d.group.Do(string(entry.Key), func() (interface{}, error) {
		return d.scan(ctx, entry, taken)
	})
	if shared {
		d.logger.DebugContext(ctx, "discovery shared with in-flight scan", slog.String("dataset", string(entry.Key)))
	}
	if err != nil {
		return Found{}, err
	}
	return v.(Found), nil
}

func (d *Discoverer) scan(ctx context.Context, entry Entry, taken map[string]bool) (Found, error) {
	if d.remote == nil {
		return Found{}, sourceError(entry.Key, domain.TierRemote, KindNotConfigured, fmt.Errorf("no remote source"))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.limit)

	var (
		mu        sync.Mutex
		found     *Found
		scanned   int
		readable  int
		notPublic error
	)

	for _, tab := range d.candidates {
		if taken[tab] {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		scanned++
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			rows, err := d.remote.FetchTab(gctx, tab)
			if err != nil {
				d.logger.DebugContext(ctx, "candidate tab rejected",
					slog.String("dataset", string(entry.Key)),
					slog.String("tab", tab),
					slog.String("kind", string(KindOf(err))))
				infrastructure.RecordDiscoveryAttempt(ctx, d.metrics, string(entry.Key), "error")
				if KindOf(err) == KindNotPublic {
					mu.Lock()
					if notPublic == nil {
						notPublic = err
					}
					mu.Unlock()
				}
				return nil
			}
			mu.Lock()
			readable++
			mu.Unlock()
			if !d.matches(entry, rows) {
				infrastructure.RecordDiscoveryAttempt(ctx, d.metrics, string(entry.Key), "mismatch")
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if found == nil {
				found = &Found{Tab: tab, Rows: rows}
				infrastructure.RecordDiscoveryAttempt(ctx, d.metrics, string(entry.Key), "accepted")
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()

	if found == nil && readable == 0 && notPublic != nil {
		// nothing was readable and access was refused: the document is private
		return Found{}, sourceError(entry.Key, domain.TierRemote, KindNotPublic,
			fmt.Errorf("no candidate tab readable (%d scanned): %w", scanned, notPublic))
	}
	if found == nil {
		return Found{}, sourceError(entry.Key, domain.TierRemote, KindNotConfigured,
			fmt.Errorf("no candidate tab matched (%d scanned)", scanned))
	}

	if err := d.locations.Set(entry.Key, found.Tab); err != nil {
		d.logger.WarnContext(ctx, "failed to persist discovered location",
			slog.String("dataset", string(entry.Key)),
			slog.String("error", err.Error()))
	}
	d.logger.InfoContext(ctx, "dataset location discovered",
		slog.String("dataset", string(entry.Key)),
		slog.String("tab", found.Tab),
		slog.Int("scanned", scanned))
	return *found, nil
}

// matches reports whether rows carry the dataset's signature roles
func (d *Discoverer) matches(entry Entry, rows []domain.Row) bool {
	if len(entry.Signature) == 0 {
		return len(rows) > 0
	}
	schema := d.resolver.Bind(rows)
	for _, group := range entry.Signature {
		ok := false
		for _, role := range group {
			if _, found := schema.Column(role); found {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
