package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/orrery/engine/core"
)

// Render passes are shared by every pass with the same attachments.
type renderpassKey struct {
	ColorFormat  vk.Format
	DepthFormat  vk.Format
	ColorLoadOp  vk.AttachmentLoadOp
	ColorStoreOp vk.AttachmentStoreOp
	DepthLoadOp  vk.AttachmentLoadOp
	DepthStoreOp vk.AttachmentStoreOp
}

type VulkanRenderpass struct {
	Handle vk.RenderPass
	Key    renderpassKey
}

// HasDepth is true when the pass carries a depth attachment.
func (key renderpassKey) HasDepth() bool {
	return key.DepthFormat != vk.FormatUndefined
}

/**
 * @brief Returns the render pass for key, creating it on first use.
 * Pipelines use any pass with matching formats.
 */
func (vd *VulkanDevice) renderpass(key renderpassKey) (*VulkanRenderpass, error) {
	var out *VulkanRenderpass
	err := vd.context.locks.SafeCall(RenderpassManagement, func() error {
		if rp, ok := vd.renderpasses[key]; ok {
			out = rp
			return nil
		}
		rp, err := RenderpassCreate(vd.context, key)
		if err != nil {
			return err
		}
		vd.renderpasses[key] = rp
		out = rp
		return nil
	})
	return out, err
}

func RenderpassCreate(context *VulkanContext, key renderpassKey) (*VulkanRenderpass, error) {
	// Main subpass
	subpass := vk.SubpassDescription{
		PipelineBindPoint: vk.PipelineBindPointGraphics,
	}

	initialLayout := vk.ImageLayoutUndefined
	if key.ColorLoadOp == vk.AttachmentLoadOpLoad {
		initialLayout = vk.ImageLayoutPresentSrc
	}
	attachmentDescriptions := []vk.AttachmentDescription{{
		Format:         key.ColorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         key.ColorLoadOp,
		StoreOp:        key.ColorStoreOp,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  initialLayout,
		FinalLayout:    vk.ImageLayoutPresentSrc, // Transitioned to after the render pass
	}}

	subpass.ColorAttachmentCount = 1
	subpass.PColorAttachments = []vk.AttachmentReference{{
		Attachment: 0, // Attachment description array index
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	stageMask := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	accessMask := vk.AccessFlags(vk.AccessColorAttachmentWriteBit)

	// Depth attachment, if there is one
	if key.HasDepth() {
		depthInitialLayout := vk.ImageLayoutUndefined
		if key.DepthLoadOp == vk.AttachmentLoadOpLoad {
			depthInitialLayout = vk.ImageLayoutDepthStencilAttachmentOptimal
		}
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         key.DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         key.DepthLoadOp,
			StoreOp:        key.DepthStoreOp,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  depthInitialLayout,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		stageMask |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
		accessMask |= vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	}

	// Wait for the presentation engine to release the image before writing it.
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  stageMask,
		SrcAccessMask: 0,
		DstStageMask:  stageMask,
		DstAccessMask: accessMask,
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, resultError("vkCreateRenderPass", res)
	}
	core.LogDebug("render pass created (color %d, depth %d)", key.ColorFormat, key.DepthFormat)
	return &VulkanRenderpass{Handle: handle, Key: key}, nil
}

func (rp *VulkanRenderpass) Destroy(context *VulkanContext) {
	if rp.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, rp.Handle, context.Allocator)
		rp.Handle = nil
	}
}
