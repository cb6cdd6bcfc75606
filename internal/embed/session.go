package embed

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownEvent is returned for observations the session does not understand
var ErrUnknownEvent = errors.New("unknown embed event")

// Lifecycle events reported by a surface besides the measurement triggers
const (
	EventOverlayOpen  = "overlay-open"
	EventOverlayClose = "overlay-close"
	EventTeardown     = "teardown"
)

// Observation is what an embedded surface reports about itself
type Observation struct {
	Event    string  `json:"event"`
	Height   float64 `json:"height"`
	Embedded bool    `json:"embedded"`
}

// surfaceState is the last observed measurement of a remote surface
type surfaceState struct {
	mu       sync.Mutex
	height   float64
	embedded bool
}

func (s *surfaceState) update(height float64, embedded bool) {
	s.mu.Lock()
	s.height = height
	s.embedded = embedded
	s.mu.Unlock()
}

func (s *surfaceState) Measure() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height, s.embedded
}

// Session drives a Reporter from observations sent by a remote surface
type Session struct {
	surface  *surfaceState
	reporter *Reporter
}

// NewSession creates a session posting chartID's heights to out
func NewSession(chartID string, frames FrameScheduler, out Outbox) *Session {
	surface := &surfaceState{}
	return &Session{
		surface:  surface,
		reporter: NewReporter(chartID, surface, frames, out),
	}
}

// Reporter exposes the underlying state machine
func (s *Session) Reporter() *Reporter { return s.reporter }

// Handle applies one observation. Teardown closes the session.
func (s *Session) Handle(obs Observation) error {
	if obs.Height < 0 {
		return fmt.Errorf("negative height %v", obs.Height)
	}

	switch obs.Event {
	case string(TriggerFirstPaint), string(TriggerFontsLoaded), string(TriggerResize), string(TriggerWindowResize):
		s.surface.update(obs.Height, obs.Embedded)
		s.reporter.Trigger(Trigger(obs.Event))
	case EventOverlayOpen:
		s.reporter.OpenOverlay()
	case EventOverlayClose:
		if obs.Height > 0 {
			s.surface.update(obs.Height, obs.Embedded)
		}
		s.reporter.CloseOverlay()
	case EventTeardown:
		s.reporter.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, obs.Event)
	}
	return nil
}

// Close tears the session down
func (s *Session) Close() { s.reporter.Close() }
