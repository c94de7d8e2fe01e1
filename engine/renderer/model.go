package renderer

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/orrery/engine/math"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

// Size in bytes of a ModelVertex on the GPU.
const MODEL_VERTEX_SIZE = 32

// Area3D is the world placement of a model.
type Area3D struct {
	X, Y, Z float32
}

func (a Area3D) Vec3() math.Vec3 {
	return math.NewVec3(a.X, a.Y, a.Z)
}

func (a Area3D) Position() [3]float32 {
	return [3]float32{a.X, a.Y, a.Z}
}

type ModelVertex struct {
	Position  [3]float32
	TexCoords [2]float32
	Normal    [3]float32
}

/**
 * @brief Describes ModelVertex to the pipeline: position at location 0,
 * texture coordinates at 1 and normal at 2.
 */
func ModelVertexLayout() metadata.VertexBufferLayout {
	return metadata.VertexBufferLayout{
		ArrayStride: MODEL_VERTEX_SIZE,
		StepMode:    metadata.VertexStepModeVertex,
		Attributes: []metadata.VertexAttribute{
			{Format: metadata.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: metadata.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
			{Format: metadata.VertexFormatFloat32x3, Offset: 20, ShaderLocation: 2},
		},
	}
}

func vertexBytes(vertices []ModelVertex) []byte {
	out := make([]byte, 0, len(vertices)*MODEL_VERTEX_SIZE)
	for _, v := range vertices {
		out = putFloat32s(out, v.Position[:]...)
		out = putFloat32s(out, v.TexCoords[:]...)
		out = putFloat32s(out, v.Normal[:]...)
	}
	return out
}

/** @brief One drawable part of a model. Immutable once uploaded. */
type Mesh struct {
	Name         string
	VertexBuffer metadata.Buffer
	IndexBuffer  metadata.Buffer
	NumElements  uint32
	// Material indexes the owning model's Materials.
	Material int
}

type Material struct {
	Name           string
	DiffuseTexture *Texture
	BindGroup      metadata.BindGroup
}

type Model struct {
	ID        uuid.UUID
	Name      string
	Placement Area3D
	Meshes    []*Mesh
	Materials []*Material
	// Sources lists every asset the model was built from: the model file,
	// its material libraries and the textures.
	Sources []string
}

// Uses reports whether the asset is one of the model's sources.
func (m *Model) Uses(asset string) bool {
	for _, s := range m.Sources {
		if s == asset {
			return true
		}
	}
	return false
}

func (m *Model) Destroy() {
	for _, mesh := range m.Meshes {
		if mesh.VertexBuffer != nil {
			mesh.VertexBuffer.Destroy()
		}
		if mesh.IndexBuffer != nil {
			mesh.IndexBuffer.Destroy()
		}
	}
	for _, mat := range m.Materials {
		if mat.BindGroup != nil {
			mat.BindGroup.Destroy()
		}
		if mat.DiffuseTexture != nil {
			mat.DiffuseTexture.Destroy()
		}
	}
	m.Meshes = nil
	m.Materials = nil
}
