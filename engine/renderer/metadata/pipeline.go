package metadata

type VertexFormat uint8

const (
	VertexFormatFloat32x2 VertexFormat = iota
	VertexFormatFloat32x3
	VertexFormatFloat32x4
)

func (f VertexFormat) Size() uint64 {
	switch f {
	case VertexFormatFloat32x2:
		return 8
	case VertexFormatFloat32x3:
		return 12
	case VertexFormatFloat32x4:
		return 16
	}
	return 0
}

type VertexStepMode uint8

const (
	VertexStepModeVertex VertexStepMode = iota
	VertexStepModeInstance
)

type VertexAttribute struct {
	Format         VertexFormat
	Offset         uint64
	ShaderLocation uint32
}

type VertexBufferLayout struct {
	ArrayStride uint64
	StepMode    VertexStepMode
	Attributes  []VertexAttribute
}

type ShaderModuleDescriptor struct {
	Label string
	// SPIR-V words.
	Code []uint32
}

type PrimitiveTopology uint8

const (
	PrimitiveTopologyTriangleList PrimitiveTopology = iota
	PrimitiveTopologyLineList
)

type FrontFace uint8

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

type CullMode uint8

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

type PolygonMode uint8

const (
	PolygonModeFill PolygonMode = iota
	PolygonModeLine
)

type PrimitiveState struct {
	Topology    PrimitiveTopology
	FrontFace   FrontFace
	CullMode    CullMode
	PolygonMode PolygonMode
}

type BlendMode uint8

const (
	// The fragment replaces the target color.
	BlendModeReplace BlendMode = iota
	BlendModeAlpha
)

type ColorTargetState struct {
	Format TextureFormat
	Blend  BlendMode
}

type DepthStencilState struct {
	Format            TextureFormat
	DepthWriteEnabled bool
	DepthCompare      CompareFunction
}

type RenderPipelineDescriptor struct {
	Label            string
	BindGroupLayouts []BindGroupLayout
	VertexModule     ShaderModule
	VertexEntry      string
	FragmentModule   ShaderModule
	FragmentEntry    string
	Buffers          []VertexBufferLayout
	Primitive        PrimitiveState
	// nil disables depth testing.
	DepthStencil *DepthStencilState
	Targets      []ColorTargetState
}
