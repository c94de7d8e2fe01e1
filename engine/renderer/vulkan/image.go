package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

/**
 * @brief A device local 2D image. Implements metadata.Texture.
 */
type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	Width  uint32
	Height uint32

	context *VulkanContext
	label   string
	format  metadata.TextureFormat
}

/**
 * @brief A view over an image, or over a swapchain image owned by the
 * swapchain. Implements metadata.TextureView.
 */
type VulkanImageView struct {
	Handle vk.ImageView
	Format vk.Format
	Width  uint32
	Height uint32

	context *VulkanContext
	// views of swapchain images are destroyed with the swapchain
	owned bool
}

// Implements metadata.Sampler.
type VulkanSampler struct {
	Handle vk.Sampler

	context *VulkanContext
}

func imageUsageFlags(usage metadata.TextureUsage, format metadata.TextureFormat) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlags
	if usage.Has(metadata.TextureUsageCopySrc) {
		flags |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	}
	if usage.Has(metadata.TextureUsageCopyDst) {
		flags |= vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	}
	if usage.Has(metadata.TextureUsageTextureBinding) {
		flags |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	if usage.Has(metadata.TextureUsageRenderAttachment) {
		if format.IsDepth() {
			flags |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
		} else {
			flags |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
		}
	}
	return flags
}

func aspectFlags(format metadata.TextureFormat) vk.ImageAspectFlags {
	if format.IsDepth() {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

func (vd *VulkanDevice) CreateTexture(desc *metadata.TextureDescriptor) (metadata.Texture, error) {
	format := vulkanFormat(desc.Format)
	if format == vk.FormatUndefined {
		return nil, fmt.Errorf("texture `%s`: unsupported format %s", desc.Label, desc.Format)
	}
	if desc.Size.Width == 0 || desc.Size.Height == 0 {
		return nil, fmt.Errorf("texture `%s`: cannot create a %dx%d image", desc.Label, desc.Size.Width, desc.Size.Height)
	}
	mipLevels := desc.MipLevelCount
	if mipLevels == 0 {
		mipLevels = 1
	}
	layers := desc.Size.DepthOrArrayLayers
	if layers == 0 {
		layers = 1
	}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  desc.Size.Width,
			Height: desc.Size.Height,
			Depth:  1,
		},
		MipLevels:     mipLevels,
		ArrayLayers:   layers,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         imageUsageFlags(desc.Usage, desc.Format),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	image := &VulkanImage{
		Width:   desc.Size.Width,
		Height:  desc.Size.Height,
		context: vd.context,
		label:   desc.Label,
		format:  desc.Format,
	}
	err := vd.context.locks.SafeCall(ImageManagement, func() error {
		var handle vk.Image
		if res := vk.CreateImage(vd.LogicalDevice, &imageInfo, vd.context.Allocator, &handle); res != vk.Success {
			return resultError("vkCreateImage", res)
		}
		image.Handle = handle

		var requirements vk.MemoryRequirements
		vk.GetImageMemoryRequirements(vd.LogicalDevice, handle, &requirements)
		memory, err := vd.context.allocateMemory(requirements, vk.MemoryPropertyDeviceLocalBit)
		if err != nil {
			vk.DestroyImage(vd.LogicalDevice, handle, vd.context.Allocator)
			return err
		}
		image.Memory = memory

		if res := vk.BindImageMemory(vd.LogicalDevice, handle, memory, 0); res != vk.Success {
			vk.FreeMemory(vd.LogicalDevice, memory, vd.context.Allocator)
			vk.DestroyImage(vd.LogicalDevice, handle, vd.context.Allocator)
			return resultError("vkBindImageMemory", res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("texture `%s`: %w", desc.Label, err)
	}
	core.LogDebug("created texture `%s` %dx%d (%s)", desc.Label, desc.Size.Width, desc.Size.Height, desc.Format)
	return image, nil
}

func (vi *VulkanImage) Label() string {
	return vi.label
}

func (vi *VulkanImage) Size() metadata.Extent3D {
	return metadata.Extent3D{Width: vi.Width, Height: vi.Height, DepthOrArrayLayers: 1}
}

func (vi *VulkanImage) Format() metadata.TextureFormat {
	return vi.format
}

func (vi *VulkanImage) CreateView() (metadata.TextureView, error) {
	return newImageView(vi.context, vi.Handle, vulkanFormat(vi.format), aspectFlags(vi.format), vi.Width, vi.Height)
}

func (vi *VulkanImage) Destroy() {
	if vi.Handle == nil {
		return
	}
	device := vi.context.Device.LogicalDevice
	vk.DestroyImage(device, vi.Handle, vi.context.Allocator)
	vk.FreeMemory(device, vi.Memory, vi.context.Allocator)
	vi.Handle = nil
	vi.Memory = nil
}

func newImageView(context *VulkanContext, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags, width, height uint32) (*VulkanImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var handle vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &handle); res != vk.Success {
		return nil, resultError("vkCreateImageView", res)
	}
	return &VulkanImageView{
		Handle:  handle,
		Format:  format,
		Width:   width,
		Height:  height,
		context: context,
		owned:   true,
	}, nil
}

func (v *VulkanImageView) Destroy() {
	if !v.owned || v.Handle == nil {
		return
	}
	vk.DestroyImageView(v.context.Device.LogicalDevice, v.Handle, v.context.Allocator)
	v.Handle = nil
}

func samplerAddressMode(mode metadata.AddressMode) vk.SamplerAddressMode {
	switch mode {
	case metadata.AddressModeRepeat:
		return vk.SamplerAddressModeRepeat
	case metadata.AddressModeMirrorRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	}
	return vk.SamplerAddressModeClampToEdge
}

func samplerFilter(mode metadata.FilterMode) vk.Filter {
	if mode == metadata.FilterModeLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

func (vd *VulkanDevice) CreateSampler(desc *metadata.SamplerDescriptor) (metadata.Sampler, error) {
	mipmapMode := vk.SamplerMipmapModeNearest
	if desc.MipmapFilter == metadata.FilterModeLinear {
		mipmapMode = vk.SamplerMipmapModeLinear
	}
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               samplerFilter(desc.MagFilter),
		MinFilter:               samplerFilter(desc.MinFilter),
		MipmapMode:              mipmapMode,
		AddressModeU:            samplerAddressMode(desc.AddressModeU),
		AddressModeV:            samplerAddressMode(desc.AddressModeV),
		AddressModeW:            samplerAddressMode(desc.AddressModeW),
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  desc.LodMinClamp,
		MaxLod:                  desc.LodMaxClamp,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	if desc.Compare != metadata.CompareFunctionUndefined {
		samplerInfo.CompareEnable = vk.True
		samplerInfo.CompareOp = compareOp(desc.Compare)
	}

	sampler := &VulkanSampler{context: vd.context}
	err := vd.context.locks.SafeCall(ImageManagement, func() error {
		var handle vk.Sampler
		if res := vk.CreateSampler(vd.LogicalDevice, &samplerInfo, vd.context.Allocator, &handle); res != vk.Success {
			return resultError("vkCreateSampler", res)
		}
		sampler.Handle = handle
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sampler `%s`: %w", desc.Label, err)
	}
	return sampler, nil
}

func (vs *VulkanSampler) Destroy() {
	if vs.Handle == nil {
		return
	}
	vk.DestroySampler(vs.context.Device.LogicalDevice, vs.Handle, vs.context.Allocator)
	vs.Handle = nil
}

/**
 * @brief Records a layout transition of every mip level of the image.
 * Only the transitions the renderer needs are supported.
 */
func transitionImageLayout(cmd vk.CommandBuffer, image vk.Image, aspect vk.ImageAspectFlags, oldLayout, newLayout vk.ImageLayout) error {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var srcStage, dstStage vk.PipelineStageFlags
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		// Don't care what stage the pipeline is in at the start.
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		// Transitioning from a transfer destination layout to a shader-readonly layout.
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		return fmt.Errorf("unsupported layout transition %d -> %d", oldLayout, newLayout)
	}

	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}
