package renderer

import (
	"github.com/spaghettifunk/orrery/engine/math"
)

// Size in bytes of the light uniform: position, pad, color, pad.
const LIGHT_UNIFORM_SIZE = 32

type LightUniform struct {
	Position [3]float32
	Color    [3]float32
}

func NewLightUniform(position Area3D, color Color) LightUniform {
	return LightUniform{
		Position: position.Position(),
		Color:    color.Array(),
	}
}

func (u *LightUniform) Bytes() []byte {
	out := make([]byte, 0, LIGHT_UNIFORM_SIZE)
	out = putFloat32s(out, u.Position[:]...)
	out = putUint32s(out, 0)
	out = putFloat32s(out, u.Color[:]...)
	return putUint32s(out, 0)
}

/**
 * @brief A point light orbiting the vertical axis. The position is always
 * derived from the initial one and the current angle, so a full turn brings
 * it back exactly where it started.
 */
type Light struct {
	Uniform LightUniform
	// Degrees added to the orbit angle on every Step.
	DegreesPerFrame float32

	origin math.Vec3
	angle  float32
}

func NewLight(position Area3D, color Color, degreesPerFrame float32) *Light {
	return &Light{
		Uniform:         NewLightUniform(position, color),
		DegreesPerFrame: degreesPerFrame,
		origin:          position.Vec3(),
	}
}

// Angle returns the orbit angle in degrees, in [0, 360).
func (l *Light) Angle() float32 {
	return l.angle
}

func (l *Light) Position() math.Vec3 {
	return math.NewVec3(l.Uniform.Position[0], l.Uniform.Position[1], l.Uniform.Position[2])
}

// Step advances the orbit by one frame.
func (l *Light) Step() {
	l.angle = math.WrapDegrees(l.angle + l.DegreesPerFrame)
	rotation := math.NewQuatFromAxisAngle(math.NewVec3Up(), math.DegToRad(l.angle), false)
	p := rotation.RotateVec3(l.origin)
	l.Uniform.Position = [3]float32{p.X, p.Y, p.Z}
}
