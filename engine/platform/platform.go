package platform

import (
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/orrery/engine/containers"
	"github.com/spaghettifunk/orrery/engine/core"
)

// Input events buffered between two frames.
const INPUT_QUEUE_SIZE = 256

var startTime float64 = 0

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window

	input *containers.RingQueue[core.InputEvent]
	// Last cursor position, for motion deltas.
	cursorX      int32
	cursorY      int32
	cursorValid  bool
	inputDropped bool
}

func New() *Platform {
	return &Platform{
		Window: nil,
		input:  containers.NewRingQueue[core.InputEvent](INPUT_QUEUE_SIZE),
	}
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogFatal("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogFatal("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetMouseButtonCallback(p.mouseButtonCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetScrollCallback(p.scrollCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	startTime = glfw.GetTime()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. It returns false once the window should close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// FramebufferSize is the drawable size in pixels, which differs from the window size on HiDPI screens.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(max(w, 0)), uint32(max(h, 0))
}

func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// DrainInput hands the input received since the last call to fn, oldest first.
func (p *Platform) DrainInput(fn func(core.InputEvent)) {
	p.input.Drain(fn)
	p.inputDropped = false
}

/**
 * @brief Queues an event for the next frame, as the window callbacks do. Consecutive pointer motion is
 * merged. When the queue is full, motion and wheel events make room for key
 * and button events, so a release is never lost.
 */
func (p *Platform) PushInput(event core.InputEvent) {
	if event.Type == core.InputEventMouseMove {
		if last, ok := p.input.Back(); ok && last.Type == core.InputEventMouseMove {
			last.X, last.Y = event.X, event.Y
			last.DeltaX += event.DeltaX
			last.DeltaY += event.DeltaY
			return
		}
	}
	if p.input.IsFull() && isStateChange(event) {
		p.input.Retain(isStateChange)
	}
	if err := p.input.Enqueue(event); err != nil && !p.inputDropped {
		core.LogWarn("input queue full, dropping events until the next frame")
		p.inputDropped = true
	}
}

// isStateChange is true for key and button events.
func isStateChange(event core.InputEvent) bool {
	return event.Type == core.InputEventKey || event.Type == core.InputEventButton
}

// Seconds since the platform started.
func GetAbsoluteTime() float64 {
	return glfw.GetTime() - startTime
}

func (p *Platform) Sleep(ms float64) {
	time.Sleep(time.Duration(ms * float64(time.Millisecond)))
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	code, ok := translateKey(key)
	if !ok {
		return
	}
	pressed := action == glfw.Press
	core.InputProcessKey(code, pressed)
	p.PushInput(core.InputEvent{
		Type:    core.InputEventKey,
		Key:     code,
		Pressed: pressed,
	})
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	var b core.Button
	switch button {
	case glfw.MouseButtonLeft:
		b = core.BUTTON_LEFT
	case glfw.MouseButtonRight:
		b = core.BUTTON_RIGHT
	case glfw.MouseButtonMiddle:
		b = core.BUTTON_MIDDLE
	default:
		return
	}
	pressed := action == glfw.Press
	core.InputProcessButton(b, pressed)
	p.PushInput(core.InputEvent{
		Type:    core.InputEventButton,
		Button:  b,
		Pressed: pressed,
		X:       p.cursorX,
		Y:       p.cursorY,
	})
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	x, y := int32(xpos), int32(ypos)
	var dx, dy int32
	if p.cursorValid {
		dx, dy = x-p.cursorX, y-p.cursorY
	}
	p.cursorX, p.cursorY, p.cursorValid = x, y, true
	if dx == 0 && dy == 0 {
		return
	}
	core.InputProcessMouseMove(x, y)
	p.PushInput(core.InputEvent{
		Type:   core.InputEventMouseMove,
		X:      x,
		Y:      y,
		DeltaX: dx,
		DeltaY: dy,
	})
}

func (p *Platform) scrollCallback(w *glfw.Window, xoff, yoff float64) {
	var z int8
	switch {
	case yoff > 0:
		z = 1
	case yoff < 0:
		z = -1
	default:
		return
	}
	core.InputProcessMouseWheel(z)
	p.PushInput(core.InputEvent{
		Type:   core.InputEventMouseWheel,
		Scroll: z,
	})
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	core.EventFire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{
			WindowWidth:  uint32(max(width, 0)),
			WindowHeight: uint32(max(height, 0)),
		},
	})
}

func (p *Platform) closeCallback(w *glfw.Window) {
	core.EventFire(core.EventContext{
		Type: core.EVENT_CODE_APPLICATION_QUIT,
	})
}

// translateKey maps a glfw key to the engine key code.
func translateKey(key glfw.Key) (core.KeyCode, bool) {
	switch {
	case key >= glfw.KeyA && key <= glfw.KeyZ:
		return core.KEY_A + core.KeyCode(key-glfw.KeyA), true
	case key >= glfw.Key0 && key <= glfw.Key9:
		// Digits share their ASCII codes.
		return core.KeyCode(key), true
	case key >= glfw.KeyF1 && key <= glfw.KeyF24:
		return core.KEY_F1 + core.KeyCode(key-glfw.KeyF1), true
	case key >= glfw.KeyKP0 && key <= glfw.KeyKP9:
		return core.KEY_NUMPAD0 + core.KeyCode(key-glfw.KeyKP0), true
	}
	switch key {
	case glfw.KeySpace:
		return core.KEY_SPACE, true
	case glfw.KeyEscape:
		return core.KEY_ESCAPE, true
	case glfw.KeyEnter, glfw.KeyKPEnter:
		return core.KEY_ENTER, true
	case glfw.KeyTab:
		return core.KEY_TAB, true
	case glfw.KeyBackspace:
		return core.KEY_BACKSPACE, true
	case glfw.KeyInsert:
		return core.KEY_INSERT, true
	case glfw.KeyDelete:
		return core.KEY_DELETE, true
	case glfw.KeyHome:
		return core.KEY_HOME, true
	case glfw.KeyEnd:
		return core.KEY_END, true
	case glfw.KeyUp:
		return core.KEY_UP, true
	case glfw.KeyDown:
		return core.KEY_DOWN, true
	case glfw.KeyLeft:
		return core.KEY_LEFT, true
	case glfw.KeyRight:
		return core.KEY_RIGHT, true
	case glfw.KeyLeftShift:
		return core.KEY_LSHIFT, true
	case glfw.KeyRightShift:
		return core.KEY_RSHIFT, true
	case glfw.KeyLeftControl:
		return core.KEY_LCONTROL, true
	case glfw.KeyRightControl:
		return core.KEY_RCONTROL, true
	case glfw.KeyLeftAlt:
		return core.KEY_LMENU, true
	case glfw.KeyRightAlt:
		return core.KEY_RMENU, true
	case glfw.KeyComma:
		return core.KEY_COMMA, true
	case glfw.KeyPeriod:
		return core.KEY_PERIOD, true
	case glfw.KeyMinus:
		return core.KEY_MINUS, true
	case glfw.KeySlash:
		return core.KEY_SLASH, true
	case glfw.KeySemicolon:
		return core.KEY_SEMICOLON, true
	case glfw.KeyGraveAccent:
		return core.KEY_GRAVE, true
	}
	return 0, false
}
