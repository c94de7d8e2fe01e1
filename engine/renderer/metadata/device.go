package metadata

/**
 * @brief The graphics device. Every GPU object is created through it and
 * the device is handed explicitly to whoever needs to create resources.
 */
type Device interface {
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)
	CreateTexture(desc *TextureDescriptor) (Texture, error)
	CreateSampler(desc *SamplerDescriptor) (Sampler, error)
	CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (BindGroupLayout, error)
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error)
	CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error)
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error)
	CreateCommandEncoder(label string) (CommandEncoder, error)
	Queue() Queue
	// WaitIdle blocks until the GPU finished every submitted batch.
	WaitIdle() error
}

/**
 * @brief The command submission channel of the device. Writes are applied
 * before any batch submitted afterwards reads the written resource.
 */
type Queue interface {
	WriteBuffer(buffer Buffer, offset uint64, data []byte) error
	WriteTexture(texture Texture, data []byte, layout TextureDataLayout) error
	Submit(commands ...CommandBuffer) error
}

type Buffer interface {
	Label() string
	Size() uint64
	Usage() BufferUsage
	Destroy()
}

type Texture interface {
	Label() string
	Size() Extent3D
	Format() TextureFormat
	CreateView() (TextureView, error)
	Destroy()
}

type TextureView interface {
	Destroy()
}

type Sampler interface {
	Destroy()
}

type BindGroupLayout interface {
	Destroy()
}

type BindGroup interface {
	Destroy()
}

type ShaderModule interface {
	Destroy()
}

type RenderPipeline interface {
	Destroy()
}

// CommandBuffer is a finished, submittable recording.
type CommandBuffer interface{}
