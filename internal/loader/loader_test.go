package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/config"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/shared/testutil"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LocationsFile = filepath.Join(dir, "locations.json")
	cfg.Paths.BundledWorkbook = filepath.Join(dir, "absent.xlsx")
	cfg.Sources.Tabs = map[string]string{"primary": "0"}
	cfg.Sources.CandidateTabs = nil
	return cfg
}

func newTestLoader(t *testing.T, cfg *config.Config, remote Remote) *Loader {
	t.Helper()
	l, err := New(context.Background(), cfg, Deps{
		Remote: remote,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return l
}

func TestLoad_LocalTierFirst(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, WriteLocal(cfg.Paths.DataDir, domain.DatasetPrimary, primaryRows()))

	remote := newFakeRemote()
	remote.tabs["0"] = primaryRows()

	snap, err := newTestLoader(t, cfg, remote).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), snap.Revision)
	assert.Equal(t, domain.TierLocal, snap.Dataset(domain.DatasetPrimary).Source)
	assert.Equal(t, 0, remote.callsFor("0"))
}

func TestLoad_RemoteWhenNoLocal(t *testing.T) {
	cfg := testConfig(t)
	remote := newFakeRemote()
	remote.tabs["0"] = primaryRows()

	snap, err := newTestLoader(t, cfg, remote).Load(context.Background())
	require.NoError(t, err)

	ds := snap.Dataset(domain.DatasetPrimary)
	assert.Equal(t, domain.TierRemote, ds.Source)
	assert.Len(t, ds.Rows, 2)

	prov := snap.Provenance[domain.DatasetPrimary]
	assert.Equal(t, "0", prov.Tab)
	require.Len(t, prov.Attempts, 3, "local, snapshot, remote")
	assert.Equal(t, "success", prov.Attempts[2].Outcome)
}

func TestLoad_OptionalDatasetsFallBackToEmpty(t *testing.T) {
	cfg := testConfig(t)
	remote := newFakeRemote()
	remote.tabs["0"] = primaryRows()

	snap, err := newTestLoader(t, cfg, remote).Load(context.Background())
	require.NoError(t, err)

	for _, key := range []domain.DatasetKey{domain.DatasetDemographics, domain.DatasetRnD, domain.DatasetBarometer, domain.DatasetValuations} {
		ds := snap.Dataset(key)
		assert.True(t, ds.Empty(), key)
		assert.Equal(t, domain.TierNone, ds.Source, key)
		assert.NotNil(t, ds.Rows, key)
	}
}

func TestLoad_NotPublicFallsBackToBundled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.BundledWorkbook = writeWorkbook(t, [][]interface{}{
		{"Year", "Revenue"},
		{2022, 10000000000},
	})
	remote := newFakeRemote()
	remote.errs["0"] = sourceError("", domain.TierRemote, KindNotPublic, errors.New("sign-in page"))

	snap, err := newTestLoader(t, cfg, remote).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.TierBundled, snap.Dataset(domain.DatasetPrimary).Source)
	prov := snap.Provenance[domain.DatasetPrimary]
	assert.Equal(t, NotPublicRemediation, prov.Remediation)
	assert.Equal(t, string(KindNotPublic), prov.Attempts[2].Outcome)
}

func TestLoad_RequiredExhausted(t *testing.T) {
	cfg := testConfig(t)
	remote := newFakeRemote()
	remote.errs["0"] = sourceError("", domain.TierRemote, KindNetwork, errors.New("timeout"))

	l := newTestLoader(t, cfg, remote)
	_, err := l.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.True(t, errors.Is(err, ErrNotConfigured), "last tier was the missing bundled workbook")
	assert.Equal(t, uint64(0), l.Store().Current().Revision, "nothing is published")
}

func TestLoad_SnapshotTierOnSecondCycle(t *testing.T) {
	cfg := testConfig(t)
	remote := newFakeRemote()
	remote.tabs["0"] = primaryRows()
	l := newTestLoader(t, cfg, remote)

	_, err := l.Load(context.Background())
	require.NoError(t, err)

	snap, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Revision)
	assert.Equal(t, domain.TierSnapshot, snap.Dataset(domain.DatasetPrimary).Source)
	assert.Equal(t, "0", snap.Provenance[domain.DatasetPrimary].Tab)
	assert.Equal(t, 1, remote.callsFor("0"))
}

func TestReload_PrefersFreshData(t *testing.T) {
	cfg := testConfig(t)
	remote := newFakeRemote()
	remote.tabs["0"] = primaryRows()
	l := newTestLoader(t, cfg, remote)

	_, err := l.Load(context.Background())
	require.NoError(t, err)

	snap, err := l.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.TierRemote, snap.Dataset(domain.DatasetPrimary).Source)
	assert.Equal(t, 2, remote.callsFor("0"))

	remote.mu.Lock()
	remote.errs["0"] = sourceError("", domain.TierRemote, KindNetwork, errors.New("down"))
	remote.mu.Unlock()

	snap, err = l.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.TierSnapshot, snap.Dataset(domain.DatasetPrimary).Source, "previous snapshot is the last resort")
}

func TestLoad_DiscoversAndRemembers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources.CandidateTabs = []string{"0", "5", "6", "7"}
	remote := newFakeRemote()
	remote.tabs["0"] = primaryRows()
	remote.tabs["5"] = barometerRows()
	remote.tabs["6"] = rndRows()

	snap, err := newTestLoader(t, cfg, remote).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.TierRemote, snap.Dataset(domain.DatasetRnD).Source)
	assert.Equal(t, "6", snap.Provenance[domain.DatasetRnD].Tab)
	assert.Equal(t, "5", snap.Provenance[domain.DatasetBarometer].Tab)
	assert.Equal(t, 1, remote.callsFor("0"), "the configured primary tab is never scanned")

	// a new loader reuses the persisted locations without probing
	fresh := newFakeRemote()
	fresh.tabs["0"] = primaryRows()
	fresh.tabs["5"] = barometerRows()
	fresh.tabs["6"] = rndRows()
	cfg.Sources.CandidateTabs = nil

	snap, err = newTestLoader(t, cfg, fresh).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "6", snap.Provenance[domain.DatasetRnD].Tab)
	assert.Equal(t, 0, fresh.callsFor("7"))
}

func TestLoad_FeatureToggles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Features.RemoteFetch = false
	cfg.Paths.BundledWorkbook = writeWorkbook(t, [][]interface{}{{"Year", "Revenue"}, {2022, 1}})

	remote := newFakeRemote()
	remote.tabs["0"] = primaryRows()

	snap, err := newTestLoader(t, cfg, remote).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.TierBundled, snap.Dataset(domain.DatasetPrimary).Source)
	assert.Equal(t, 0, remote.totalCalls())

	cfg.Features.BundledFallback = false
	_, err = newTestLoader(t, cfg, remote).Load(context.Background())
	assert.True(t, errors.Is(err, ErrExhausted))
}

func TestLoad_PersistRemoteSeedsLocalTier(t *testing.T) {
	cfg := testConfig(t)
	cfg.Features.PersistRemote = true
	remote := newFakeRemote()
	remote.tabs["0"] = primaryRows()

	snap, err := newTestLoader(t, cfg, remote).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.TierRemote, snap.Dataset(domain.DatasetPrimary).Source)
	assert.FileExists(t, filepath.Join(cfg.Paths.DataDir, "primary.json"))

	// a fresh process reads the persisted copy without touching the remote
	fresh := newFakeRemote()
	snap, err = newTestLoader(t, cfg, fresh).Load(context.Background())
	require.NoError(t, err)
	ds := snap.Dataset(domain.DatasetPrimary)
	assert.Equal(t, domain.TierLocal, ds.Source)
	assert.Len(t, ds.Rows, 2)
	assert.Zero(t, fresh.callsFor("0"))
}

func TestLoad_RemoteNotPersistedByDefault(t *testing.T) {
	cfg := testConfig(t)
	remote := newFakeRemote()
	remote.tabs["0"] = primaryRows()

	_, err := newTestLoader(t, cfg, remote).Load(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(cfg.Paths.DataDir, "primary.json"))
}

func TestLoad_ConcurrentCallsShareCycle(t *testing.T) {
	cfg := testConfig(t)
	remote := newFakeRemote()
	remote.tabs["0"] = primaryRows()
	l := newTestLoader(t, cfg, remote)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Load(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, l.Store().Current().Revision, uint64(5))
	assert.GreaterOrEqual(t, l.Store().Current().Revision, uint64(1))
}

func TestNew_DeterministicClock(t *testing.T) {
	cfg := testConfig(t)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	remote := newFakeRemote()
	remote.tabs["0"] = primaryRows()

	l, err := New(context.Background(), cfg, Deps{Remote: remote, Now: func() time.Time { return at }})
	require.NoError(t, err)

	snap, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at, snap.LoadedAt)
	assert.Equal(t, at, snap.Dataset(domain.DatasetPrimary).LoadedAt)
}

func TestLoad_LogsOptionalFallback(t *testing.T) {
	cfg := testConfig(t)
	remote := newFakeRemote()
	remote.tabs["0"] = primaryRows()

	logger, logs := testutil.NewTestLogger(nil)
	l, err := New(context.Background(), cfg, Deps{Remote: remote, Logger: logger})
	require.NoError(t, err)

	_, err = l.Load(context.Background())
	require.NoError(t, err)

	testutil.AssertLogContains(t, logs, slog.LevelInfo, "optional dataset unavailable")
	testutil.AssertLogAttr(t, logs, "component", "loader")
	testutil.AssertLogAttr(t, logs, "dataset", string(domain.DatasetRnD))
	testutil.AssertNoErrors(t, logs)
}
