package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFireReachesListenersInOrder(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer EventSystemShutdown()

	var got []string
	EventRegister(EVENT_CODE_RESIZED, func(ctx EventContext) {
		se := ctx.Data.(*SystemEvent)
		assert.Equal(t, uint32(800), se.WindowWidth)
		got = append(got, "first")
	})
	EventRegister(EVENT_CODE_RESIZED, func(ctx EventContext) {
		got = append(got, "second")
	})

	handled := EventFire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 800, WindowHeight: 600}})
	assert.True(t, handled)
	assert.Equal(t, []string{"first", "second"}, got)

	assert.False(t, EventFire(EventContext{Type: EVENT_CODE_MOUSE_WHEEL}))
}

func TestEventUnregisterAll(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer EventSystemShutdown()

	calls := 0
	EventRegister(EVENT_CODE_APPLICATION_QUIT, func(EventContext) { calls++ })
	assert.True(t, EventUnregisterAll(EVENT_CODE_APPLICATION_QUIT))
	assert.False(t, EventUnregisterAll(EVENT_CODE_APPLICATION_QUIT))

	EventFire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT})
	assert.Zero(t, calls)
}

func TestInputProcessKeyFiresOnChangeOnly(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer EventSystemShutdown()
	require.NoError(t, InputInitialize())
	defer InputShutdown()

	pressed := 0
	EventRegister(EVENT_CODE_KEY_PRESSED, func(ctx EventContext) {
		assert.Equal(t, KEY_W, ctx.Data.(*KeyEvent).KeyCode)
		pressed++
	})

	require.NoError(t, InputProcessKey(KEY_W, true))
	require.NoError(t, InputProcessKey(KEY_W, true))
	assert.Equal(t, 1, pressed)
	assert.True(t, InputIsKeyDown(KEY_W))
	assert.False(t, InputWasKeyDown(KEY_W))

	require.NoError(t, InputUpdate(0))
	assert.True(t, InputWasKeyDown(KEY_W))
}
