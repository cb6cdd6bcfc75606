package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

func entryFor(t *testing.T, key domain.DatasetKey) Entry {
	t.Helper()
	e, ok := lookupEntry(key)
	require.True(t, ok)
	return e
}

func TestDiscover_FirstMatchWins(t *testing.T) {
	remote := newFakeRemote()
	remote.tabs["10"] = primaryRows()
	remote.tabs["11"] = rndRows()
	remote.tabs["12"] = barometerRows()

	locations, err := LoadLocations(filepath.Join(t.TempDir(), "locations.json"))
	require.NoError(t, err)
	d := NewDiscoverer(remote, []string{"10", "11", "12"}, 2, locations, nil, nil, nil)

	found, err := d.Discover(context.Background(), entryFor(t, domain.DatasetRnD), nil)
	require.NoError(t, err)
	assert.Equal(t, "11", found.Tab)
	assert.Equal(t, rndRows(), found.Rows)

	tab, ok := locations.Get(domain.DatasetRnD)
	assert.True(t, ok)
	assert.Equal(t, "11", tab)
}

func TestDiscover_BoundedConcurrency(t *testing.T) {
	remote := newFakeRemote()
	candidates := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
	remote.tabs["8"] = barometerRows()

	d := NewDiscoverer(remote, candidates, 3, nil, nil, nil, nil)
	found, err := d.Discover(context.Background(), entryFor(t, domain.DatasetBarometer), nil)
	require.NoError(t, err)

	assert.Equal(t, "8", found.Tab)
	assert.LessOrEqual(t, remote.maxInFlight.Load(), int32(3))
	assert.Equal(t, len(candidates), remote.totalCalls())
}

func TestDiscover_EarlyExitCancelsOutstanding(t *testing.T) {
	remote := newFakeRemote()
	candidates := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, tab := range candidates[1:] {
		remote.block[tab] = true
	}
	remote.tabs["a"] = primaryRows()

	d := NewDiscoverer(remote, candidates, 3, nil, nil, nil, nil)
	found, err := d.Discover(context.Background(), entryFor(t, domain.DatasetPrimary), nil)
	require.NoError(t, err)

	assert.Equal(t, "a", found.Tab)
	assert.LessOrEqual(t, remote.totalCalls(), 3, "no read starts after the first accepted tab")
}

func TestDiscover_SkipsTakenTabs(t *testing.T) {
	remote := newFakeRemote()
	remote.tabs["1"] = primaryRows()
	remote.tabs["2"] = primaryRows()

	d := NewDiscoverer(remote, []string{"1", "2"}, 1, nil, nil, nil, nil)
	found, err := d.Discover(context.Background(), entryFor(t, domain.DatasetPrimary), map[string]bool{"1": true})
	require.NoError(t, err)
	assert.Equal(t, "2", found.Tab)
	assert.Equal(t, 0, remote.callsFor("1"))
}

func TestDiscover_NoMatch(t *testing.T) {
	remote := newFakeRemote()
	remote.tabs["1"] = primaryRows()
	remote.errs["2"] = sourceError("", domain.TierRemote, KindNotPublic, errors.New("HTTP 403"))

	d := NewDiscoverer(remote, []string{"1", "2", "3"}, 2, nil, nil, nil, nil)
	_, err := d.Discover(context.Background(), entryFor(t, domain.DatasetValuations), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConfigured), "a readable tab means the document is public")
}

func TestDiscover_NoRemote(t *testing.T) {
	d := NewDiscoverer(nil, []string{"1"}, 2, nil, nil, nil, nil)
	_, err := d.Discover(context.Background(), entryFor(t, domain.DatasetRnD), nil)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestDiscover_ConcurrentCallersShareScan(t *testing.T) {
	remote := newFakeRemote()
	remote.tabs["1"] = rndRows()
	remote.started = make(chan string, 16)
	remote.gate = make(chan struct{})

	d := NewDiscoverer(remote, []string{"1"}, 1, nil, nil, nil, nil)
	entry := entryFor(t, domain.DatasetRnD)

	results := make([]Found, 4)
	var entered, done sync.WaitGroup
	for i := range results {
		entered.Add(1)
		done.Add(1)
		go func(i int) {
			defer done.Done()
			entered.Done()
			f, err := d.Discover(context.Background(), entry, nil)
			assert.NoError(t, err)
			results[i] = f
		}(i)
	}

	// hold the first read in flight until every caller is waiting on it
	select {
	case <-remote.started:
	case <-time.After(2 * time.Second):
		t.Fatal("no tab read started")
	}
	entered.Wait()
	time.Sleep(50 * time.Millisecond)
	close(remote.gate)
	done.Wait()

	for _, f := range results {
		assert.Equal(t, "1", f.Tab)
	}
	assert.Equal(t, 1, remote.callsFor("1"), "callers share one scan")
}

func TestDiscover_PrivateDocumentReportsNotPublic(t *testing.T) {
	remote := newFakeRemote()
	for _, tab := range []string{"1", "2", "3"} {
		remote.errs[tab] = sourceError("", domain.TierRemote, KindNotPublic, errors.New("HTTP 403"))
	}

	d := NewDiscoverer(remote, []string{"1", "2", "3"}, 2, nil, nil, nil, nil)
	_, err := d.Discover(context.Background(), entryFor(t, domain.DatasetPrimary), nil)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrNotPublic))
	assert.False(t, errors.Is(err, ErrNotConfigured))
	var se *SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindNotPublic, se.Kind)
	assert.Equal(t, domain.DatasetPrimary, se.Dataset)
	assert.Equal(t, NotPublicRemediation, se.Remediation)
}

func TestLocations_Persist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "locations.json")
	l, err := LoadLocations(path)
	require.NoError(t, err)
	assert.Empty(t, l.All())

	require.NoError(t, l.Set(domain.DatasetRnD, "42"))
	require.NoError(t, l.Set(domain.DatasetBarometer, "7"))

	reloaded, err := LoadLocations(path)
	require.NoError(t, err)
	assert.Equal(t, map[domain.DatasetKey]string{domain.DatasetRnD: "42", domain.DatasetBarometer: "7"}, reloaded.All())

	require.NoError(t, reloaded.Forget(domain.DatasetRnD))
	_, ok := reloaded.Get(domain.DatasetRnD)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = LoadLocations(path)
	assert.Error(t, err)
}
