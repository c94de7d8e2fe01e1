package renderer

import (
	"encoding/binary"
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/orrery/engine/math"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

func TestInstanceAtOriginIsNotRotated(t *testing.T) {
	instance := NewInstance(Area3D{})
	assert.True(t, instance.Rotation.Compare(math.NewQuatIdentity(), 1e-6))
	assert.True(t, instance.Position.Compare(math.NewVec3Zero(), 1e-6))
}

func TestInstanceTiltsAroundPlacement(t *testing.T) {
	placements := []Area3D{
		{X: 10, Y: 0, Z: 10},
		{X: 0, Y: 3, Z: 0},
		{X: -2, Y: 5, Z: 1},
	}
	for _, p := range placements {
		instance := NewInstance(p)
		axis := p.Vec3().Normalize()

		want := math.NewQuatFromAxisAngle(axis, math.DegToRad(45), false)
		assert.True(t, instance.Rotation.Compare(want, 1e-5), "%v", p)

		// the axis is left alone, the rotation angle is 45 degrees
		assert.True(t, instance.Rotation.RotateVec3(axis).Compare(axis, 1e-5), "%v", p)
		assert.InDelta(t, stdmath.Cos(stdmath.Pi/8), instance.Rotation.W, 1e-5)
	}
}

func TestInstanceRawLayout(t *testing.T) {
	instance := NewInstance(Area3D{X: 1, Y: 2, Z: 3})
	raw := instance.ToRaw()

	// translation lives in the last column
	assert.InDelta(t, 1, raw.Model.Data[12], 1e-6)
	assert.InDelta(t, 2, raw.Model.Data[13], 1e-6)
	assert.InDelta(t, 3, raw.Model.Data[14], 1e-6)

	// the model matrix rotates first, then translates
	p := math.NewVec3(1, 0, 0)
	want := instance.Rotation.RotateVec3(p).Add(instance.Position)
	assert.True(t, p.Transform(raw.Model).Compare(want, 1e-5))

	data := raw.Bytes()
	require.Len(t, data, INSTANCE_RAW_SIZE)
	assert.Equal(t, raw.Model.Data[12], stdmath.Float32frombits(binary.LittleEndian.Uint32(data[48:])))
	assert.Equal(t, raw.Normal.Data[0], stdmath.Float32frombits(binary.LittleEndian.Uint32(data[64:])))

	layout := InstanceRawLayout()
	assert.Equal(t, uint64(INSTANCE_RAW_SIZE), layout.ArrayStride)
	assert.Equal(t, metadata.VertexStepModeInstance, layout.StepMode)
	require.Len(t, layout.Attributes, 7)
	for i, attr := range layout.Attributes {
		assert.Equal(t, uint32(5+i), attr.ShaderLocation)
	}
	last := layout.Attributes[6]
	assert.Equal(t, uint64(INSTANCE_RAW_SIZE), last.Offset+last.Format.Size())
}

func TestModelVertexLayout(t *testing.T) {
	layout := ModelVertexLayout()
	assert.Equal(t, uint64(MODEL_VERTEX_SIZE), layout.ArrayStride)
	require.Len(t, layout.Attributes, 3)
	assert.Equal(t, uint64(0), layout.Attributes[0].Offset)
	assert.Equal(t, uint64(12), layout.Attributes[1].Offset)
	assert.Equal(t, uint64(20), layout.Attributes[2].Offset)

	data := vertexBytes([]ModelVertex{{
		Position:  [3]float32{1, 2, 3},
		TexCoords: [2]float32{0.5, 0.25},
		Normal:    [3]float32{0, 1, 0},
	}})
	require.Len(t, data, MODEL_VERTEX_SIZE)
	assert.Equal(t, float32(0.5), stdmath.Float32frombits(binary.LittleEndian.Uint32(data[12:])))
	assert.Equal(t, float32(1), stdmath.Float32frombits(binary.LittleEndian.Uint32(data[24:])))
}

func TestBuildInstancesFollowsModelOrder(t *testing.T) {
	models := []*Model{
		{Placement: Area3D{X: 1}},
		{Placement: Area3D{}},
		{Placement: Area3D{Z: -4}},
	}
	instances := BuildInstances(models)
	require.Len(t, instances, 3)
	for i, m := range models {
		assert.True(t, instances[i].Position.Compare(m.Placement.Vec3(), 1e-6))
	}
	assert.Len(t, instanceBytes(instances), 3*INSTANCE_RAW_SIZE)
}
