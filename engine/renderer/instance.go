package renderer

import (
	"github.com/spaghettifunk/orrery/engine/math"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

// Size in bytes of an InstanceRaw on the GPU: a 4x4 model matrix followed by a 3x3 normal matrix.
const INSTANCE_RAW_SIZE = 100

// Rotation applied to every model that is not placed at the origin.
const INSTANCE_TILT_DEGREES = 45.0

/** @brief The world transform of one model. */
type Instance struct {
	Position math.Vec3
	Rotation math.Quaternion
}

/**
 * @brief Derives the transform of a model from its placement. Models at
 * the origin are not rotated, every other model is tilted by 45 degrees
 * around the axis pointing at its placement.
 */
func NewInstance(placement Area3D) Instance {
	position := placement.Vec3()

	var rotation math.Quaternion
	if position.LengthSquared() == 0 {
		rotation = math.NewQuatFromAxisAngle(math.NewVec3UnitZ(), 0, false)
	} else {
		rotation = math.NewQuatFromAxisAngle(position.Normalize(), math.DegToRad(INSTANCE_TILT_DEGREES), false)
	}
	return Instance{Position: position, Rotation: rotation}
}

// BuildInstances derives one instance per model, in loading order.
func BuildInstances(models []*Model) []Instance {
	instances := make([]Instance, 0, len(models))
	for _, m := range models {
		instances = append(instances, NewInstance(m.Placement))
	}
	return instances
}

type InstanceRaw struct {
	Model  math.Mat4
	Normal math.Mat3
}

func (i Instance) ToRaw() InstanceRaw {
	// translation * rotation
	model := i.Rotation.ToMat4().Mul(math.NewMat4Translation(i.Position))
	return InstanceRaw{
		Model:  model,
		Normal: i.Rotation.ToMat3(),
	}
}

func (r InstanceRaw) Bytes() []byte {
	out := make([]byte, 0, INSTANCE_RAW_SIZE)
	out = putFloat32s(out, r.Model.Data[:]...)
	return putFloat32s(out, r.Normal.Data[:]...)
}

func instanceBytes(instances []Instance) []byte {
	out := make([]byte, 0, len(instances)*INSTANCE_RAW_SIZE)
	for _, i := range instances {
		out = append(out, i.ToRaw().Bytes()...)
	}
	return out
}

/**
 * @brief Describes InstanceRaw to the pipeline. A mat4 takes four vertex
 * slots (5 to 8) and the normal mat3 three more (9 to 11).
 */
func InstanceRawLayout() metadata.VertexBufferLayout {
	attributes := make([]metadata.VertexAttribute, 0, 7)
	for i := 0; i < 4; i++ {
		attributes = append(attributes, metadata.VertexAttribute{
			Format:         metadata.VertexFormatFloat32x4,
			Offset:         uint64(i * 16),
			ShaderLocation: uint32(5 + i),
		})
	}
	for i := 0; i < 3; i++ {
		attributes = append(attributes, metadata.VertexAttribute{
			Format:         metadata.VertexFormatFloat32x3,
			Offset:         uint64(64 + i*12),
			ShaderLocation: uint32(9 + i),
		})
	}
	return metadata.VertexBufferLayout{
		ArrayStride: INSTANCE_RAW_SIZE,
		StepMode:    metadata.VertexStepModeInstance,
		Attributes:  attributes,
	}
}
