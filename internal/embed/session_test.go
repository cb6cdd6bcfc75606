package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Handle(t *testing.T) {
	frames := NewManualFrames()
	out := &recorder{}
	s := NewSession("primary", frames, out)

	require.NoError(t, s.Handle(Observation{Event: "first-paint", Height: 480, Embedded: true}))
	frames.Tick()
	require.Len(t, out.messages(), 1)
	assert.Equal(t, 480, out.messages()[0].Height)

	require.NoError(t, s.Handle(Observation{Event: EventOverlayOpen}))
	assert.Equal(t, StatePaused, s.Reporter().State())

	require.NoError(t, s.Handle(Observation{Event: EventOverlayClose, Height: 480, Embedded: true}))
	assert.Len(t, out.messages(), 2)

	require.NoError(t, s.Handle(Observation{Event: "resize", Height: 600, Embedded: true}))
	frames.Tick()
	msgs := out.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, 600, msgs[2].Height)

	require.NoError(t, s.Handle(Observation{Event: EventTeardown}))
	require.NoError(t, s.Handle(Observation{Event: "resize", Height: 700, Embedded: true}))
	frames.Tick()
	assert.Len(t, out.messages(), 3)
}

func TestSession_Rejects(t *testing.T) {
	s := NewSession("primary", NewManualFrames(), &recorder{})
	defer s.Close()

	err := s.Handle(Observation{Event: "scroll"})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	err = s.Handle(Observation{Event: "resize", Height: -1})
	assert.Error(t, err)
}
