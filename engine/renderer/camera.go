package renderer

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/math"
)

// Size in bytes of the camera uniform: one column-major 4x4 matrix.
const CAMERA_UNIFORM_SIZE = 64

// The pointer orbit never goes over the poles.
const MAX_CAMERA_PITCH = 89.0

/**
 * @brief A perspective camera looking from Eye at Target.
 */
type Camera struct {
	Eye    math.Vec3
	Target math.Vec3
	Up     math.Vec3
	Aspect float32
	// Vertical field of view in degrees.
	Fovy  float32
	Znear float32
	Zfar  float32
}

func (c *Camera) BuildViewProjectionMatrix() math.Mat4 {
	view := math.NewMat4LookAt(c.Eye, c.Target, c.Up)
	proj := math.NewMat4Perspective(math.DegToRad(c.Fovy), c.Aspect, c.Znear, c.Zfar)
	// proj * view
	return view.Mul(proj)
}

type CameraUniform struct {
	ViewProj math.Mat4
}

func NewCameraUniform() CameraUniform {
	return CameraUniform{ViewProj: math.NewMat4Identity()}
}

func (u *CameraUniform) UpdateViewProj(camera *Camera) {
	u.ViewProj = camera.BuildViewProjectionMatrix()
}

func (u *CameraUniform) Bytes() []byte {
	return putFloat32s(make([]byte, 0, CAMERA_UNIFORM_SIZE), u.ViewProj.Data[:]...)
}

/**
 * @brief Turns input events into camera motion. Keys move the eye
 * towards the target (W/Up, S/Down) or around it (A/Left, D/Right).
 * Dragging with the left button held orbits the eye around the target.
 */
type CameraController struct {
	Sensitivity float32

	isForwardPressed  bool
	isBackwardPressed bool
	isLeftPressed     bool
	isRightPressed    bool
	isDragging        bool

	// Pending orbit, in degrees, consumed by UpdateCamera.
	yaw   float32
	pitch float32
}

func NewCameraController(sensitivity float32) *CameraController {
	return &CameraController{Sensitivity: sensitivity}
}

/**
 * @brief Records the input. Nothing moves until UpdateCamera.
 * @return True if the controller used the event.
 */
func (cc *CameraController) ProcessEvent(event core.InputEvent) bool {
	switch event.Type {
	case core.InputEventKey:
		switch event.Key {
		case core.KEY_W, core.KEY_UP:
			cc.isForwardPressed = event.Pressed
		case core.KEY_S, core.KEY_DOWN:
			cc.isBackwardPressed = event.Pressed
		case core.KEY_A, core.KEY_LEFT:
			cc.isLeftPressed = event.Pressed
		case core.KEY_D, core.KEY_RIGHT:
			cc.isRightPressed = event.Pressed
		default:
			return false
		}
		return true
	case core.InputEventButton:
		if event.Button != core.BUTTON_LEFT {
			return false
		}
		cc.isDragging = event.Pressed
		return true
	case core.InputEventMouseMove:
		if !cc.isDragging {
			return false
		}
		cc.yaw += float32(event.DeltaX) * cc.Sensitivity
		cc.pitch += float32(event.DeltaY) * cc.Sensitivity
		return true
	}
	return false
}

func (cc *CameraController) UpdateCamera(camera *Camera) {
	speed := cc.Sensitivity

	forward := camera.Target.Sub(camera.Eye)
	forwardNorm := forward.Normalize()
	forwardMag := forward.Length()

	// Stop before reaching the target.
	if cc.isForwardPressed && forwardMag > speed {
		camera.Eye = camera.Eye.Add(forwardNorm.MulScalar(speed))
	}
	if cc.isBackwardPressed {
		camera.Eye = camera.Eye.Sub(forwardNorm.MulScalar(speed))
	}

	right := forwardNorm.Cross(camera.Up)

	// Moving forward or backward may have changed the distance.
	forward = camera.Target.Sub(camera.Eye)
	forwardMag = forward.Length()

	if cc.isRightPressed {
		camera.Eye = camera.Target.Sub(forward.Add(right.MulScalar(speed)).Normalize().MulScalar(forwardMag))
	}
	if cc.isLeftPressed {
		camera.Eye = camera.Target.Sub(forward.Sub(right.MulScalar(speed)).Normalize().MulScalar(forwardMag))
	}

	if cc.yaw != 0 || cc.pitch != 0 {
		cc.orbit(camera)
		cc.yaw = 0
		cc.pitch = 0
	}
}

func (cc *CameraController) orbit(camera *Camera) {
	offset := camera.Eye.Sub(camera.Target)
	radius := offset.Length()
	if radius == 0 {
		return
	}

	yaw := math32.Atan2(offset.X, offset.Z) + math.DegToRad(cc.yaw)
	pitch := math.RadToDeg(math32.Asin(math.Clamp(offset.Y/radius, -1, 1))) + cc.pitch
	pitch = math.DegToRad(math.Clamp[float32](pitch, -MAX_CAMERA_PITCH, MAX_CAMERA_PITCH))

	camera.Eye = camera.Target.Add(math.NewVec3(
		radius*math32.Cos(pitch)*math32.Sin(yaw),
		radius*math32.Sin(pitch),
		radius*math32.Cos(pitch)*math32.Cos(yaw),
	))
}
