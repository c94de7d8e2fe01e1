package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-4

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(8192), Clamp(uint32(10000), 1, 8192))
	assert.Equal(t, float32(-1), Clamp(float32(-3), -1, 1))
	assert.Equal(t, 5, Clamp(5, 0, 10))
}

func TestWrapDegrees(t *testing.T) {
	assert.InDelta(t, 0, WrapDegrees(360), tolerance)
	assert.InDelta(t, 1, WrapDegrees(361), tolerance)
	assert.InDelta(t, 359, WrapDegrees(-1), tolerance)
	assert.InDelta(t, 45, WrapDegrees(45), tolerance)
}

func TestMat4MulAppliesLeftOperandFirst(t *testing.T) {
	translate := NewMat4Translation(NewVec3(1, 2, 3))
	rotate := NewQuatFromAxisAngle(NewVec3Up(), DegToRad(90), true).ToMat4()

	// rotate first, then translate
	m := rotate.Mul(translate)
	got := NewVec3(1, 0, 0).Transform(m)
	assert.True(t, got.Compare(NewVec3(1, 2, 2), tolerance), "got %v", got)
}

func TestQuaternionRotateMatchesMatrix(t *testing.T) {
	axes := []Vec3{
		NewVec3(10, 0, 10),
		NewVec3(0, 1, 0),
		NewVec3(1, -2, 3),
	}
	v := NewVec3(0.3, -1.2, 2.5)
	for _, axis := range axes {
		q := NewQuatFromAxisAngle(axis.Normalize(), DegToRad(45), true)
		byQuat := q.RotateVec3(v)
		byMatrix := v.Transform(q.ToMat4())
		assert.True(t, byQuat.Compare(byMatrix, tolerance), "axis %v: %v != %v", axis, byQuat, byMatrix)
		// rotation keeps the length and leaves the axis alone
		assert.InDelta(t, v.Length(), byQuat.Length(), tolerance)
		assert.True(t, q.RotateVec3(axis).Compare(axis, tolerance))
	}
}

func TestQuaternionAboutYRotatesXTowardsMinusZ(t *testing.T) {
	q := NewQuatFromAxisAngle(NewVec3Up(), DegToRad(90), true)
	got := q.RotateVec3(NewVec3(1, 0, 0))
	assert.True(t, got.Compare(NewVec3(0, 0, -1), tolerance), "got %v", got)

	// composing two 45 degree steps equals one 90 degree step
	half := NewQuatFromAxisAngle(NewVec3Up(), DegToRad(45), true)
	assert.True(t, half.Mul(half).Compare(q, tolerance))
}

func TestZeroAngleIsIdentity(t *testing.T) {
	q := NewQuatFromAxisAngle(NewVec3UnitZ(), 0, true)
	assert.True(t, q.Compare(NewQuatIdentity(), tolerance))
	assert.Equal(t, NewMat4Identity(), q.ToMat4())
}

func TestLookAtMovesTargetOntoMinusZ(t *testing.T) {
	eye := NewVec3(0, 5, -10)
	target := NewVec3Zero()
	view := NewMat4LookAt(eye, target, NewVec3Up())

	got := target.Transform(view)
	assert.True(t, got.Compare(NewVec3(0, 0, -eye.Length()), tolerance), "got %v", got)

	origin := eye.Transform(view)
	assert.True(t, origin.Compare(NewVec3Zero(), tolerance), "got %v", origin)
}

func TestDotAndCross(t *testing.T) {
	x, y := NewVec3(1, 0, 0), NewVec3Up()
	assert.Equal(t, float32(0), x.Dot(y))
	assert.Equal(t, float32(14), NewVec3(1, 2, 3).Dot(NewVec3(1, 2, 3)))
	assert.True(t, x.Cross(y).Compare(NewVec3UnitZ(), tolerance))
	assert.Equal(t, float32(0), x.Cross(x.MulScalar(3)).Length())
}

func TestPerspectiveDepthRange(t *testing.T) {
	near, far := float32(0.1), float32(100)
	proj := NewMat4Perspective(DegToRad(45), 16.0/9.0, near, far)

	n := proj.MulVec4(NewVec4(0, 0, -near, 1))
	assert.InDelta(t, 0, n.Z/n.W, tolerance)

	f := proj.MulVec4(NewVec4(0, 0, -far, 1))
	assert.InDelta(t, 1, f.Z/f.W, tolerance)

	// top of the frustum at distance 1 lands on y = 1
	top := proj.MulVec4(NewVec4(0, ktan(DegToRad(22.5)), -1, 1))
	assert.InDelta(t, 1, top.Y/top.W, tolerance)
}

func TestTransposedAndToMat3(t *testing.T) {
	m := NewMat4Translation(NewVec3(4, 5, 6))
	tr := m.Transposed()
	assert.Equal(t, float32(4), tr.Data[3])
	assert.Equal(t, m, tr.Transposed())

	r := NewQuatFromAxisAngle(NewVec3Up(), DegToRad(30), true).ToMat4()
	m3 := r.ToMat3()
	assert.Equal(t, r.Data[0], m3.Data[0])
	assert.Equal(t, r.Data[4], m3.Data[3])
	assert.Equal(t, r.Data[10], m3.Data[8])
}
