package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// Locations persists discovered dataset tab ids as a {dataset: tab} JSON
// object. An empty path keeps them in memory only.
type Locations struct {
	path string

	mu   sync.RWMutex
	tabs map[domain.DatasetKey]string
}

// LoadLocations reads the locations file at path. A missing file yields an
// empty set.
func LoadLocations(path string) (*Locations, error) {
	l := &Locations{path: path, tabs: make(map[domain.DatasetKey]string)}
	if path == "" {
		return l, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read locations file: %w", err)
	}
	if err := json.Unmarshal(data, &l.tabs); err != nil {
		return nil, fmt.Errorf("failed to parse locations file %s: %w", path, err)
	}
	return l, nil
}

// Get returns the stored tab for key
func (l *Locations) Get(key domain.DatasetKey) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tab, ok := l.tabs[key]
	return tab, ok && tab != ""
}

// All returns a copy of every stored location
func (l *Locations) All() map[domain.DatasetKey]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[domain.DatasetKey]string, len(l.tabs))
	for k, v := range l.tabs {
		out[k] = v
	}
	return out
}

// Set records tab for key and rewrites the file atomically
func (l *Locations) Set(key domain.DatasetKey, tab string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tabs[key] == tab {
		return nil
	}
	l.tabs[key] = tab
	return l.save()
}

// Forget drops a stale location, for example after the tab stopped serving data
func (l *Locations) Forget(key domain.DatasetKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tabs[key]; !ok {
		return nil
	}
	delete(l.tabs, key)
	return l.save()
}

func (l *Locations) save() error {
	if l.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create locations directory: %w", err)
	}

	data, err := json.MarshalIndent(l.tabs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode locations: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write locations file: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("failed to replace locations file: %w", err)
	}
	return nil
}
