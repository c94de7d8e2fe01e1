package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateKey(t *testing.T) {
	cases := map[glfw.Key]core.KeyCode{
		glfw.KeyA:      core.KEY_A,
		glfw.KeyW:      core.KEY_W,
		glfw.KeyZ:      core.KEY_Z,
		glfw.KeyF1:     core.KEY_F1,
		glfw.KeyF12:    core.KEY_F12,
		glfw.KeyKP3:    core.KEY_NUMPAD3,
		glfw.KeyEscape: core.KEY_ESCAPE,
		glfw.KeySpace:  core.KEY_SPACE,
		glfw.KeyUp:     core.KEY_UP,
		glfw.KeyLeft:   core.KEY_LEFT,
	}
	for key, want := range cases {
		got, ok := translateKey(key)
		require.True(t, ok, "key %d", key)
		assert.Equal(t, want, got, "key %d", key)
	}

	_, ok := translateKey(glfw.KeyWorld1)
	assert.False(t, ok)
}

func TestCursorMotionIsQueuedAsDeltas(t *testing.T) {
	p := New()
	p.cursorPosCallback(nil, 10, 20)
	p.cursorPosCallback(nil, 15, 18)
	p.cursorPosCallback(nil, 15, 18)

	var events []core.InputEvent
	p.DrainInput(func(e core.InputEvent) { events = append(events, e) })

	require.Len(t, events, 1)
	assert.Equal(t, core.InputEventMouseMove, events[0].Type)
	assert.Equal(t, int32(5), events[0].DeltaX)
	assert.Equal(t, int32(-2), events[0].DeltaY)
	assert.Equal(t, int32(15), events[0].X)
}

func TestInputQueueDropsWhenFull(t *testing.T) {
	p := New()
	for i := 0; i < INPUT_QUEUE_SIZE+10; i++ {
		p.scrollCallback(nil, 0, 1)
	}
	count := 0
	p.DrainInput(func(core.InputEvent) { count++ })
	assert.Equal(t, INPUT_QUEUE_SIZE, count)
	assert.False(t, p.inputDropped)
}

func TestCursorMotionIsMerged(t *testing.T) {
	p := New()
	p.cursorPosCallback(nil, 10, 10)
	p.cursorPosCallback(nil, 13, 11)
	p.cursorPosCallback(nil, 20, 5)
	p.mouseButtonCallback(nil, glfw.MouseButtonLeft, glfw.Press, 0)
	p.cursorPosCallback(nil, 21, 5)

	var events []core.InputEvent
	p.DrainInput(func(e core.InputEvent) { events = append(events, e) })

	require.Len(t, events, 3)
	assert.Equal(t, core.InputEventMouseMove, events[0].Type)
	assert.Equal(t, int32(10), events[0].DeltaX)
	assert.Equal(t, int32(-5), events[0].DeltaY)
	assert.Equal(t, int32(20), events[0].X)
	assert.Equal(t, core.InputEventButton, events[1].Type)
	assert.Equal(t, int32(1), events[2].DeltaX)
}

func TestFullInputQueueKeepsReleases(t *testing.T) {
	p := New()
	p.keyCallback(nil, glfw.KeyW, 0, glfw.Press, 0)
	for i := 0; i < INPUT_QUEUE_SIZE; i++ {
		p.scrollCallback(nil, 0, 1)
	}
	p.keyCallback(nil, glfw.KeyW, 0, glfw.Release, 0)

	var keys []core.InputEvent
	count := 0
	p.DrainInput(func(e core.InputEvent) {
		count++
		if e.Type == core.InputEventKey {
			keys = append(keys, e)
		}
	})

	require.Len(t, keys, 2)
	assert.True(t, keys[0].Pressed)
	assert.False(t, keys[1].Pressed)
	assert.Equal(t, core.KEY_W, keys[1].Key)
	assert.Equal(t, 2, count)
}
