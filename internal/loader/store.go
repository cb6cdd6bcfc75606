package loader

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// Attempt records one tier tried while loading a dataset
type Attempt struct {
	Tier    domain.SourceTier `json:"tier"`
	Outcome string            `json:"outcome"` // "success" or an ErrorKind
	Detail  string            `json:"detail,omitempty"`
}

// Provenance explains where a dataset in a snapshot came from
type Provenance struct {
	Tier        domain.SourceTier `json:"tier"`
	Tab         string            `json:"tab,omitempty"`
	Remediation string            `json:"remediation,omitempty"`
	Attempts    []Attempt         `json:"attempts"`
}

// Snapshot is one complete load cycle. It is never modified after Publish.
type Snapshot struct {
	Revision   uint64                               `json:"revision"`
	LoadedAt   time.Time                            `json:"loaded_at"`
	Datasets   map[domain.DatasetKey]domain.Dataset `json:"datasets"`
	Provenance map[domain.DatasetKey]Provenance     `json:"provenance"`
}

// Dataset returns the dataset for key, empty when absent
func (s *Snapshot) Dataset(key domain.DatasetKey) domain.Dataset {
	if s == nil {
		return domain.Dataset{Key: key, Source: domain.TierNone}
	}
	if ds, ok := s.Datasets[key]; ok {
		return ds
	}
	return domain.Dataset{Key: key, Source: domain.TierNone}
}

// Rows returns the rows of dataset key
func (s *Snapshot) Rows(key domain.DatasetKey) []domain.Row {
	return s.Dataset(key).Rows
}

// RowsByKey returns every dataset's rows keyed by dataset
func (s *Snapshot) RowsByKey() map[domain.DatasetKey][]domain.Row {
	out := make(map[domain.DatasetKey][]domain.Row)
	if s == nil {
		return out
	}
	for k, ds := range s.Datasets {
		out[k] = ds.Rows
	}
	return out
}

// Store holds the current snapshot. Readers see either the previous or the
// next complete snapshot.
type Store struct {
	current atomic.Pointer[Snapshot]
	writeMu sync.Mutex
}

// NewStore creates a store holding an empty revision 0 snapshot
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{
		Datasets:   map[domain.DatasetKey]domain.Dataset{},
		Provenance: map[domain.DatasetKey]Provenance{},
	})
	return s
}

// Current returns the latest snapshot
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Publish swaps in a snapshot built from datasets, assigning the next revision
func (s *Store) Publish(datasets map[domain.DatasetKey]domain.Dataset, provenance map[domain.DatasetKey]Provenance, at time.Time) *Snapshot {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := &Snapshot{
		Revision:   s.current.Load().Revision + 1,
		LoadedAt:   at,
		Datasets:   datasets,
		Provenance: provenance,
	}
	s.current.Store(next)
	return next
}
