package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/charts"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// ErrNotFound matches any NotFoundError through errors.Is
var ErrNotFound = errors.New("chart not found")

// Entry binds a stable chart identifier to its dataset and builder
type Entry struct {
	ID      string
	Title   string
	Dataset domain.DatasetKey
	Build   charts.Builder
}

// NotFoundError is returned for unregistered identifiers and enumerates the valid ones
type NotFoundError struct {
	ID       string
	ValidIDs []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("chart %q not found (valid: %s)", e.ID, strings.Join(e.ValidIDs, ", "))
}

// Is makes errors.Is(err, ErrNotFound) succeed
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Registry maps chart identifiers to entries. Identifiers cannot be replaced
// or removed once registered.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string // registration order
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
		order:   make([]string, 0),
	}
}

// Register adds an entry. Duplicate or empty identifiers are rejected.
func (r *Registry) Register(e Entry) error {
	if e.ID == "" {
		return fmt.Errorf("chart ID cannot be empty")
	}
	if e.Build == nil {
		return fmt.Errorf("chart %s has no builder", e.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[e.ID]; exists {
		return fmt.Errorf("chart with ID %s already registered", e.ID)
	}
	r.entries[e.ID] = e
	r.order = append(r.order, e.ID)
	return nil
}

// MustRegister is Register for static tables
func (r *Registry) MustRegister(entries ...Entry) *Registry {
	for _, e := range entries {
		if err := r.Register(e); err != nil {
			panic(err)
		}
	}
	return r
}

// Resolve returns the entry for id, or a *NotFoundError listing every valid id
func (r *Registry) Resolve(id string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	return Entry{}, &NotFoundError{ID: id, ValidIDs: r.sortedIDs()}
}

// Has checks if an id is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.entries[id]
	return exists
}

// List returns all entries in registration order
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

func (r *Registry) sortedIDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	sort.Strings(ids)
	return ids
}
