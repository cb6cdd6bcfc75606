package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/config"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// fakeRemote serves canned tabs. Tabs listed in block wait for cancellation;
// when gate is set every fetch waits for it to close before answering.
type fakeRemote struct {
	mu    sync.Mutex
	tabs  map[string][]domain.Row
	errs  map[string]error
	block map[string]bool
	calls map[string]int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	started     chan string
	gate        chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		tabs:  map[string][]domain.Row{},
		errs:  map[string]error{},
		block: map[string]bool{},
		calls: map[string]int{},
	}
}

func (f *fakeRemote) Name() string { return "fake" }

func (f *fakeRemote) FetchTab(ctx context.Context, tab string) ([]domain.Row, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[tab]++
	rows, hasRows := f.tabs[tab]
	err := f.errs[tab]
	block := f.block[tab]
	f.mu.Unlock()

	if f.started != nil {
		f.started <- tab
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, sourceError("", domain.TierRemote, KindNetwork, ctx.Err())
		}
	}
	if block {
		<-ctx.Done()
		return nil, sourceError("", domain.TierRemote, KindNetwork, ctx.Err())
	}
	if err != nil {
		return nil, err
	}
	if !hasRows {
		return nil, sourceError("", domain.TierRemote, KindEmpty, fmt.Errorf("tab %s empty", tab))
	}
	return rows, nil
}

func (f *fakeRemote) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeRemote) callsFor(tab string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[tab]
}

// lookupEntry returns the default catalog entry for key
func lookupEntry(key domain.DatasetKey) (Entry, bool) {
	for _, e := range NewCatalog(config.SourcesConfig{}).Entries() {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

func primaryRows() []domain.Row {
	return []domain.Row{
		{"Year": domain.Number(2021), "Revenue": domain.Number(8e9), "Employees": domain.Number(20000)},
		{"Year": domain.Number(2022), "Revenue": domain.Number(1e10), "Employees": domain.Number(24000)},
	}
}

func rndRows() []domain.Row {
	return []domain.Row{
		{"Year": domain.Number(2022), "R&D investment": domain.Number(2.5e7)},
	}
}

func barometerRows() []domain.Row {
	return []domain.Row{
		{"Period": domain.Text("Q1/2023"), "Financial situation past 12 months": domain.Number(-12)},
	}
}

func writeJSON(t *testing.T, dir string, key domain.DatasetKey, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(key)+".json"), data, 0o644))
}

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, val := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, val))
		}
	}

	path := filepath.Join(t.TempDir(), "startup-data.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}
