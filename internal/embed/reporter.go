package embed

import (
	"math"
	"sync"
)

// State is the height-sync state
type State int

const (
	StateIdle State = iota
	StateMeasuring
	StateReporting
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMeasuring:
		return "measuring"
	case StateReporting:
		return "reporting"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Trigger is an event that requires a new measurement
type Trigger string

const (
	TriggerFirstPaint   Trigger = "first-paint"
	TriggerFontsLoaded  Trigger = "fonts-loaded"
	TriggerResize       Trigger = "resize"
	TriggerWindowResize Trigger = "window-resize"
)

// Suppression reasons passed to the OnSuppress hook
const (
	SuppressNotEmbedded = "not-embedded"
	SuppressUnchanged   = "unchanged"
	SuppressOverlay     = "overlay"
)

// Measurer reports the surface's current height and whether it is hosted
// inside another document's frame
type Measurer interface {
	Measure() (height float64, embedded bool)
}

// MeasurerFunc adapts a function to Measurer
type MeasurerFunc func() (float64, bool)

// Measure calls f
func (f MeasurerFunc) Measure() (float64, bool) { return f() }

// Reporter runs the height-sync state machine for one embedded chart. At most
// one measure and report cycle runs per frame however many triggers arrive.
type Reporter struct {
	chartID  string
	measurer Measurer
	frames   FrameScheduler
	outbox   Outbox

	// OnReport and OnSuppress observe every cycle outcome
	OnReport   func(HeightMessage)
	OnSuppress func(reason string)

	mu          sync.Mutex
	state       State
	lastHeight  int
	reported    bool
	overlay     bool
	cancelFrame func()
	closed      bool
}

// NewReporter creates an idle Reporter for chartID
func NewReporter(chartID string, m Measurer, frames FrameScheduler, out Outbox) *Reporter {
	if frames == nil {
		frames = NewTimerFrames(DefaultFrameInterval)
	}
	return &Reporter{
		chartID:  chartID,
		measurer: m,
		frames:   frames,
		outbox:   out,
	}
}

// ChartID returns the identifier stamped on every message
func (r *Reporter) ChartID() string { return r.chartID }

// State returns the current state
func (r *Reporter) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Trigger moves to measuring and schedules a cycle on the next frame unless
// one is already pending. Triggers while paused are ignored; closing the
// overlay measures anyway.
func (r *Reporter) Trigger(Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.state == StatePaused {
		return
	}
	r.state = StateMeasuring
	if r.cancelFrame != nil {
		return
	}
	r.cancelFrame = r.frames.Request(func() { r.runFrame() })
}

// OpenOverlay pauses reporting while a local modal or overlay is open
func (r *Reporter) OpenOverlay() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.overlay = true
	r.state = StatePaused
	if r.cancelFrame != nil {
		r.cancelFrame()
		r.cancelFrame = nil
	}
}

// CloseOverlay resumes and immediately reports the current height once, even
// when it equals the last reported height
func (r *Reporter) CloseOverlay() {
	r.mu.Lock()
	if r.closed || !r.overlay {
		r.mu.Unlock()
		return
	}
	r.overlay = false
	r.state = StateMeasuring
	r.mu.Unlock()

	r.cycle(true)
}

// Close releases the pending frame. The reporter ignores every later call.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.state = StateIdle
	if r.cancelFrame != nil {
		r.cancelFrame()
		r.cancelFrame = nil
	}
	r.frames.Stop()
}

func (r *Reporter) runFrame() {
	r.mu.Lock()
	r.cancelFrame = nil
	r.mu.Unlock()
	r.cycle(false)
}

// cycle measures and posts. force skips the unchanged-height check.
func (r *Reporter) cycle(force bool) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.overlay {
		r.state = StatePaused
		r.mu.Unlock()
		r.suppressed(SuppressOverlay)
		return
	}

	r.state = StateReporting
	raw, embedded := r.measurer.Measure()
	height := int(math.Round(raw))

	if !embedded {
		r.mu.Unlock()
		r.suppressed(SuppressNotEmbedded)
		return
	}
	if !force && r.reported && height == r.lastHeight {
		r.mu.Unlock()
		r.suppressed(SuppressUnchanged)
		return
	}

	r.lastHeight = height
	r.reported = true
	msg := HeightMessage{Kind: KindChartHeight, ChartID: r.chartID, Height: height}
	r.mu.Unlock()

	if r.outbox != nil {
		r.outbox.Post(msg)
	}
	if r.OnReport != nil {
		r.OnReport(msg)
	}
}

func (r *Reporter) suppressed(reason string) {
	if r.OnSuppress != nil {
		r.OnSuppress(reason)
	}
}
