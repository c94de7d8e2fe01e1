package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/platform"
)

type recordingSink struct {
	events []core.InputEvent
}

func (s *recordingSink) Input(event core.InputEvent) bool {
	s.events = append(s.events, event)
	return true
}

func TestDrainInputForwardsEverythingInOrder(t *testing.T) {
	p := platform.New()
	p.PushInput(core.InputEvent{Type: core.InputEventKey, Key: core.KEY_W, Pressed: true})
	p.PushInput(core.InputEvent{Type: core.InputEventButton, Button: core.BUTTON_LEFT, Pressed: true})
	p.PushInput(core.InputEvent{Type: core.InputEventKey, Key: core.KEY_W, Pressed: false})
	p.PushInput(core.InputEvent{Type: core.InputEventButton, Button: core.BUTTON_LEFT, Pressed: false})

	sink := &recordingSink{}
	drainInput(p, sink)

	require.Len(t, sink.events, 4)
	assert.False(t, sink.events[2].Pressed)
	assert.Equal(t, core.KEY_W, sink.events[2].Key)
	assert.False(t, sink.events[3].Pressed)
	assert.Equal(t, core.BUTTON_LEFT, sink.events[3].Button)

	// drained
	drainInput(p, sink)
	assert.Len(t, sink.events, 4)
}
