package metadata

type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
)

type BindingType uint8

const (
	BindingTypeUniformBuffer BindingType = iota
	BindingTypeSampledTexture
	BindingTypeFilteringSampler
	BindingTypeComparisonSampler
)

type BindGroupLayoutEntry struct {
	Binding    uint32
	Visibility ShaderStage
	Type       BindingType
}

type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []BindGroupLayoutEntry
}

/**
 * @brief A single resource bound at Binding. Exactly one of Buffer,
 * TextureView or Sampler is set.
 */
type BindGroupEntry struct {
	Binding     uint32
	Buffer      Buffer
	Offset      uint64
	Size        uint64
	TextureView TextureView
	Sampler     Sampler
}

type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayout
	Entries []BindGroupEntry
}
