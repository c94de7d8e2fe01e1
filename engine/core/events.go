package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01

	// Keyboard key pressed.
	/* Context usage:
	 * ke := context.Data.(*KeyEvent)
	 */
	EVENT_CODE_KEY_PRESSED EventCode = 0x02

	// Keyboard key released.
	/* Context usage:
	 * ke := context.Data.(*KeyEvent)
	 */
	EVENT_CODE_KEY_RELEASED EventCode = 0x03

	// Mouse button pressed.
	/* Context usage:
	 * me := context.Data.(*MouseEvent); me.Button
	 */
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04

	// Mouse button released.
	/* Context usage:
	 * me := context.Data.(*MouseEvent); me.Button
	 */
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05

	// Mouse moved.
	/* Context usage:
	 * me := context.Data.(*MouseEvent); me.PosX, me.PosY
	 */
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06

	// Mouse wheel.
	/* Context usage:
	 * me := context.Data.(*MouseEvent); me.Scroll
	 */
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07

	// Resized/resolution changed from the OS.
	/* Context usage:
	 * se := context.Data.(*SystemEvent); se.WindowWidth, se.WindowHeight
	 */
	EVENT_CODE_RESIZED EventCode = 0x08

	MAX_EVENT_CODE EventCode = 0xFF
)

// This should be more than enough codes...
const MAX_MESSAGE_CODES = 16384

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   int32
	PosY   int32
	Scroll int8
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type EventContext struct {
	Type EventCode
	Data interface{}
}

type OnEvent func(context EventContext)

type eventSystemState struct {
	mu sync.RWMutex
	// Lookup table for event codes.
	registered map[EventCode][]OnEvent
}

var eventState *eventSystemState = nil

// EventSystemInitialize sets up a fresh event table. Calling it again drops
// every registered listener.
func EventSystemInitialize() bool {
	eventState = &eventSystemState{
		registered: make(map[EventCode][]OnEvent),
	}
	return true
}

func EventSystemShutdown() error {
	if eventState == nil {
		return nil
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	// Free the events arrays. And objects pointed to should be destroyed on their own.
	eventState.registered = make(map[EventCode][]OnEvent)
	return nil
}

/**
 * @brief Register to listen for when events are sent with the provided code.
 * @param code The event code to listen for.
 * @param onEvent The callback function to be invoked when the event code is fired.
 * @returns True if the event is successfully registered; otherwise false.
 */
func EventRegister(code EventCode, onEvent OnEvent) bool {
	if eventState == nil || onEvent == nil || int(code) >= MAX_MESSAGE_CODES {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	eventState.registered[code] = append(eventState.registered[code], onEvent)
	return true
}

/**
 * @brief Drops every listener registered for the provided code.
 * @returns True if anything was unregistered.
 */
func EventUnregisterAll(code EventCode) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	if len(eventState.registered[code]) == 0 {
		return false
	}
	delete(eventState.registered, code)
	return true
}

/**
 * @brief Fires an event to listeners of the given code. Listeners run
 * synchronously on the caller goroutine, in registration order.
 * @param context The event data.
 * @returns True if at least one listener received it.
 */
func EventFire(context EventContext) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.RLock()
	listeners := append([]OnEvent(nil), eventState.registered[context.Type]...)
	eventState.mu.RUnlock()

	// If nothing is registered for the code, boot out.
	if len(listeners) == 0 {
		return false
	}
	for _, l := range listeners {
		l(context)
	}
	return true
}
