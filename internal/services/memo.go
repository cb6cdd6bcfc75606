package services

import (
	"container/list"
	"sync"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// memoKey identifies one build: the snapshot it read, the chart and the
// canonical parameter bag
type memoKey struct {
	revision uint64
	chartID  string
	params   string
}

type memoEntry struct {
	key    memoKey
	config *domain.ChartConfig
}

// Memo caches built chart configs. A nil config is cached too since "nothing
// to show" is a valid result. When full the least recently used entry goes.
type Memo struct {
	mu       sync.Mutex
	capacity int
	items    map[memoKey]*list.Element
	order    *list.List // front is most recent
}

// NewMemo creates a memo holding up to capacity entries. Capacity below one
// disables caching.
func NewMemo(capacity int) *Memo {
	return &Memo{
		capacity: capacity,
		items:    make(map[memoKey]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached config and whether it was present
func (m *Memo) Get(k memoKey) (*domain.ChartConfig, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[k]
	if !ok {
		return nil, false
	}
	m.order.MoveToFront(el)
	return el.Value.(*memoEntry).config, true
}

// Put stores cfg under k
func (m *Memo) Put(k memoKey, cfg *domain.ChartConfig) {
	if m.capacity < 1 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[k]; ok {
		el.Value.(*memoEntry).config = cfg
		m.order.MoveToFront(el)
		return
	}
	m.items[k] = m.order.PushFront(&memoEntry{key: k, config: cfg})
	for m.order.Len() > m.capacity {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*memoEntry).key)
	}
}

// Len returns the number of cached entries
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Prune drops entries built from revisions older than rev
func (m *Memo) Prune(rev uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		if e := el.Value.(*memoEntry); e.key.revision < rev {
			m.order.Remove(el)
			delete(m.items, e.key)
		}
		el = next
	}
}
