package renderer

import (
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/math"
)

func newTestCamera() *Camera {
	return &Camera{
		Eye:    math.NewVec3(0, 1, 2),
		Target: math.NewVec3Zero(),
		Up:     math.NewVec3Up(),
		Aspect: 800.0 / 600.0,
		Fovy:   45,
		Znear:  0.1,
		Zfar:   100,
	}
}

func TestViewProjectionCentersTarget(t *testing.T) {
	camera := newTestCamera()
	clip := camera.BuildViewProjectionMatrix().MulVec4(camera.Target.ToVec4(1))

	assert.InDelta(t, 0, clip.X/clip.W, 1e-5)
	assert.InDelta(t, 0, clip.Y/clip.W, 1e-5)
	depth := clip.Z / clip.W
	assert.Greater(t, depth, float32(0))
	assert.Less(t, depth, float32(1))

	// points above the target end up in the upper half
	above := camera.BuildViewProjectionMatrix().MulVec4(math.NewVec4(0, 0.5, 0, 1))
	assert.Greater(t, above.Y/above.W, float32(0))
}

func TestCameraUniformStartsAsIdentity(t *testing.T) {
	u := NewCameraUniform()
	assert.Equal(t, math.NewMat4Identity(), u.ViewProj)
	assert.Len(t, u.Bytes(), CAMERA_UNIFORM_SIZE)

	camera := newTestCamera()
	u.UpdateViewProj(camera)
	assert.Equal(t, camera.BuildViewProjectionMatrix(), u.ViewProj)
}

func key(k core.KeyCode, pressed bool) core.InputEvent {
	return core.InputEvent{Type: core.InputEventKey, Key: k, Pressed: pressed}
}

func TestControllerMovesForward(t *testing.T) {
	camera := newTestCamera()
	start := camera.Eye.Distance(camera.Target)
	cc := NewCameraController(0.2)

	assert.True(t, cc.ProcessEvent(key(core.KEY_W, true)))
	cc.UpdateCamera(camera)
	assert.InDelta(t, start-0.2, camera.Eye.Distance(camera.Target), 1e-5)

	// holding the key keeps moving
	cc.UpdateCamera(camera)
	assert.InDelta(t, start-0.4, camera.Eye.Distance(camera.Target), 1e-5)

	assert.True(t, cc.ProcessEvent(key(core.KEY_W, false)))
	cc.UpdateCamera(camera)
	assert.InDelta(t, start-0.4, camera.Eye.Distance(camera.Target), 1e-5)

	assert.True(t, cc.ProcessEvent(key(core.KEY_DOWN, true)))
	cc.UpdateCamera(camera)
	assert.InDelta(t, start-0.2, camera.Eye.Distance(camera.Target), 1e-5)
}

func TestControllerStopsBeforeTarget(t *testing.T) {
	camera := newTestCamera()
	camera.Eye = math.NewVec3(0, 0, 0.1)
	cc := NewCameraController(0.2)
	cc.ProcessEvent(key(core.KEY_UP, true))
	cc.UpdateCamera(camera)
	assert.True(t, camera.Eye.Compare(math.NewVec3(0, 0, 0.1), 1e-6))
}

func TestControllerStrafeKeepsDistance(t *testing.T) {
	camera := newTestCamera()
	start := camera.Eye.Distance(camera.Target)
	cc := NewCameraController(0.2)

	cc.ProcessEvent(key(core.KEY_D, true))
	cc.UpdateCamera(camera)
	assert.InDelta(t, start, camera.Eye.Distance(camera.Target), 1e-5)
	// the eye swings left so the view turns right
	assert.Less(t, camera.Eye.X, float32(0))

	cc.ProcessEvent(key(core.KEY_D, false))
	cc.ProcessEvent(key(core.KEY_LEFT, true))
	cc.UpdateCamera(camera)
	cc.UpdateCamera(camera)
	assert.InDelta(t, start, camera.Eye.Distance(camera.Target), 1e-5)
	assert.Greater(t, camera.Eye.X, float32(0))
}

func TestControllerDragOrbits(t *testing.T) {
	camera := newTestCamera()
	start := camera.Eye.Distance(camera.Target)
	cc := NewCameraController(0.5)

	move := core.InputEvent{Type: core.InputEventMouseMove, DeltaX: 20}
	// moving without the button held does nothing
	assert.False(t, cc.ProcessEvent(move))
	cc.UpdateCamera(camera)
	assert.True(t, camera.Eye.Compare(math.NewVec3(0, 1, 2), 1e-6))

	assert.True(t, cc.ProcessEvent(core.InputEvent{Type: core.InputEventButton, Button: core.BUTTON_LEFT, Pressed: true}))
	assert.True(t, cc.ProcessEvent(move))
	cc.UpdateCamera(camera)

	assert.InDelta(t, start, camera.Eye.Distance(camera.Target), 1e-4)
	assert.InDelta(t, 1, camera.Eye.Y, 1e-4)
	// 10 degrees of yaw around the target
	yaw := stdmath.Atan2(float64(camera.Eye.X), float64(camera.Eye.Z))
	assert.InDelta(t, 10*stdmath.Pi/180, yaw, 1e-4)

	// the pending orbit is consumed
	before := camera.Eye
	cc.UpdateCamera(camera)
	assert.True(t, camera.Eye.Compare(before, 1e-6))
}

func TestControllerClampsPitch(t *testing.T) {
	camera := newTestCamera()
	radius := camera.Eye.Distance(camera.Target)
	cc := NewCameraController(1)

	cc.ProcessEvent(core.InputEvent{Type: core.InputEventButton, Button: core.BUTTON_LEFT, Pressed: true})
	cc.ProcessEvent(core.InputEvent{Type: core.InputEventMouseMove, DeltaY: 500})
	cc.UpdateCamera(camera)

	assert.InDelta(t, radius, camera.Eye.Distance(camera.Target), 1e-4)
	assert.InDelta(t, stdmath.Sin(MAX_CAMERA_PITCH*stdmath.Pi/180), camera.Eye.Y/radius, 1e-4)

	cc.ProcessEvent(core.InputEvent{Type: core.InputEventMouseMove, DeltaY: -1000})
	cc.UpdateCamera(camera)
	assert.InDelta(t, -stdmath.Sin(MAX_CAMERA_PITCH*stdmath.Pi/180), camera.Eye.Y/radius, 1e-4)
}

func TestControllerIgnoresOtherInput(t *testing.T) {
	cc := NewCameraController(0.2)
	assert.False(t, cc.ProcessEvent(key(core.KEY_Q, true)))
	assert.False(t, cc.ProcessEvent(core.InputEvent{Type: core.InputEventButton, Button: core.BUTTON_RIGHT, Pressed: true}))
	assert.False(t, cc.ProcessEvent(core.InputEvent{Type: core.InputEventMouseWheel, Scroll: 1}))
}
