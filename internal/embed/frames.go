package embed

import (
	"sync"
	"time"
)

// DefaultFrameInterval approximates one display frame at 60Hz
const DefaultFrameInterval = 16 * time.Millisecond

// FrameScheduler runs callbacks on the next frame
type FrameScheduler interface {
	// Request schedules fn for the next frame. The returned func cancels it.
	Request(fn func()) (cancel func())
	// Stop cancels every pending callback
	Stop()
}

// TimerFrames schedules frames with timers at a fixed interval
type TimerFrames struct {
	interval time.Duration

	mu      sync.Mutex
	pending map[*time.Timer]struct{}
	stopped bool
}

// NewTimerFrames creates a TimerFrames. A non-positive interval uses DefaultFrameInterval.
func NewTimerFrames(interval time.Duration) *TimerFrames {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &TimerFrames{interval: interval, pending: make(map[*time.Timer]struct{})}
}

// Request implements FrameScheduler
func (f *TimerFrames) Request(fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return func() {}
	}

	var t *time.Timer
	t = time.AfterFunc(f.interval, func() {
		f.mu.Lock()
		_, live := f.pending[t]
		delete(f.pending, t)
		f.mu.Unlock()
		if live {
			fn()
		}
	})
	f.pending[t] = struct{}{}

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.pending[t]; ok {
			t.Stop()
			delete(f.pending, t)
		}
	}
}

// Stop implements FrameScheduler
func (f *TimerFrames) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	for t := range f.pending {
		t.Stop()
		delete(f.pending, t)
	}
}

// ManualFrames runs callbacks only when Tick is called
type ManualFrames struct {
	mu      sync.Mutex
	next    int
	pending map[int]func()
	stopped bool
}

// NewManualFrames creates a ManualFrames
func NewManualFrames() *ManualFrames {
	return &ManualFrames{pending: make(map[int]func())}
}

// Request implements FrameScheduler
func (f *ManualFrames) Request(fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return func() {}
	}
	id := f.next
	f.next++
	f.pending[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.pending, id)
		f.mu.Unlock()
	}
}

// Tick runs every callback requested before the call, in request order
func (f *ManualFrames) Tick() {
	f.mu.Lock()
	fns := make([]func(), 0, len(f.pending))
	for i := 0; i < f.next; i++ {
		if fn, ok := f.pending[i]; ok {
			fns = append(fns, fn)
			delete(f.pending, i)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Pending returns the number of scheduled callbacks
func (f *ManualFrames) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Stop implements FrameScheduler
func (f *ManualFrames) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.pending = make(map[int]func())
}
