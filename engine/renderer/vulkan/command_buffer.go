package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

// Bind group slots a render pass tracks.
const VULKAN_MAX_BIND_GROUPS = 4

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	vCommandBuffer := &VulkanCommandBuffer{
		State: COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}

	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if err := context.locks.SafeCall(CommandPoolManagement, func() error {
		return resultError("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles))
	}); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	vCommandBuffer.Handle = handles[0]
	vCommandBuffer.State = COMMAND_BUFFER_STATE_READY

	return vCommandBuffer, nil
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	if v.Handle == nil {
		return
	}
	_ = context.locks.SafeCall(CommandPoolManagement, func() error {
		vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
		return nil
	})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	vBeginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}

	if isSingleUse {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := vk.BeginCommandBuffer(v.Handle, vBeginInfo); res != vk.Success {
		err := resultError("vkBeginCommandBuffer", res)
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING

	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		err := resultError("vkEndCommandBuffer", res)
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset() {
	v.State = COMMAND_BUFFER_STATE_READY
}

/**
 * Allocates and begins recording to out_command_buffer.
 */
func AllocateAndBeginSingleUse(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(context, pool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Free(context, pool)
		return nil, err
	}
	return cb, nil
}

/**
 * Ends recording, submits to and waits for queue operation and frees the provided command buffer.
 */
func (v *VulkanCommandBuffer) EndSingleUse(context *VulkanContext, pool vk.CommandPool, queue vk.Queue) error {
	defer v.Free(context, pool)

	// End the command buffer.
	if err := v.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}

	return context.locks.SafeQueueCall(uint32(context.Device.GraphicsQueueIndex), func() error {
		if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
			return resultError("vkQueueSubmit", res)
		}
		// Wait for it to finish
		if res := vk.QueueWaitIdle(queue); res != vk.Success {
			return resultError("vkQueueWaitIdle", res)
		}
		return nil
	})
}

/**
 * @brief Records into one primary command buffer. Implements
 * metadata.CommandEncoder.
 */
type VulkanCommandEncoder struct {
	device *VulkanDevice
	buffer *VulkanCommandBuffer
	label  string
}

func (vd *VulkanDevice) CreateCommandEncoder(label string) (metadata.CommandEncoder, error) {
	cb, err := AllocateAndBeginSingleUse(vd.context, vd.GraphicsCommandPool)
	if err != nil {
		return nil, fmt.Errorf("command encoder `%s`: %w", label, err)
	}
	return &VulkanCommandEncoder{
		device: vd,
		buffer: cb,
		label:  label,
	}, nil
}

func (e *VulkanCommandEncoder) BeginRenderPass(desc *metadata.RenderPassDescriptor) (metadata.RenderPass, error) {
	if e.buffer.State != COMMAND_BUFFER_STATE_RECORDING {
		return nil, fmt.Errorf("render pass `%s`: encoder `%s` is not recording", desc.Label, e.label)
	}
	if len(desc.ColorAttachments) != 1 {
		return nil, fmt.Errorf("render pass `%s`: exactly one color attachment is supported", desc.Label)
	}
	color := desc.ColorAttachments[0]
	colorView, ok := color.View.(*VulkanImageView)
	if !ok || colorView.Handle == nil {
		return nil, fmt.Errorf("render pass `%s`: invalid color attachment", desc.Label)
	}

	key := renderpassKey{
		ColorFormat:  colorView.Format,
		DepthFormat:  vk.FormatUndefined,
		ColorLoadOp:  attachmentLoadOp(color.LoadOp),
		ColorStoreOp: attachmentStoreOp(color.StoreOp),
		DepthLoadOp:  vk.AttachmentLoadOpClear,
		DepthStoreOp: vk.AttachmentStoreOpStore,
	}
	attachments := []vk.ImageView{colorView.Handle}
	clearValues := []vk.ClearValue{
		vk.NewClearValue([]float32{float32(color.ClearValue.R), float32(color.ClearValue.G), float32(color.ClearValue.B), float32(color.ClearValue.A)}),
	}
	if depth := desc.DepthStencilAttachment; depth != nil {
		depthView, ok := depth.View.(*VulkanImageView)
		if !ok || depthView.Handle == nil {
			return nil, fmt.Errorf("render pass `%s`: invalid depth attachment", desc.Label)
		}
		if depthView.Width != colorView.Width || depthView.Height != colorView.Height {
			return nil, fmt.Errorf("render pass `%s`: depth attachment is %dx%d, color is %dx%d",
				desc.Label, depthView.Width, depthView.Height, colorView.Width, colorView.Height)
		}
		key.DepthFormat = depthView.Format
		key.DepthLoadOp = attachmentLoadOp(depth.DepthLoadOp)
		key.DepthStoreOp = attachmentStoreOp(depth.DepthStoreOp)
		attachments = append(attachments, depthView.Handle)
		clearValues = append(clearValues, vk.NewClearDepthStencil(depth.DepthClearValue, 0))
	}

	renderpass, err := e.device.renderpass(key)
	if err != nil {
		return nil, fmt.Errorf("render pass `%s`: %w", desc.Label, err)
	}
	framebuffer, err := FramebufferCreate(e.device.context, renderpass, colorView.Width, colorView.Height, attachments)
	if err != nil {
		return nil, fmt.Errorf("render pass `%s`: %w", desc.Label, err)
	}
	// The framebuffer lives until the GPU is done with this frame.
	context := e.device.context
	e.device.deferDestroy(func() { framebuffer.Destroy(context) })

	renderArea := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: colorView.Width, Height: colorView.Height},
	}
	renderPassInfo := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      renderpass.Handle,
		Framebuffer:     framebuffer.Handle,
		RenderArea:      renderArea,
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	cmd := e.buffer.Handle
	vk.CmdBeginRenderPass(cmd, &renderPassInfo, vk.SubpassContentsInline)

	// Flipped viewport: +Y points up in clip space.
	viewport := []vk.Viewport{{
		X:        0,
		Y:        float32(colorView.Height),
		Width:    float32(colorView.Width),
		Height:   -float32(colorView.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}}
	vk.CmdSetViewport(cmd, 0, 1, viewport)
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{renderArea})

	e.buffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	return &VulkanRenderPassEncoder{
		encoder: e,
		cmd:     cmd,
		label:   desc.Label,
	}, nil
}

// Finish ends the recording. The result is handed to Queue.Submit.
func (e *VulkanCommandEncoder) Finish() (metadata.CommandBuffer, error) {
	switch e.buffer.State {
	case COMMAND_BUFFER_STATE_IN_RENDER_PASS:
		return nil, fmt.Errorf("encoder `%s`: render pass still open", e.label)
	case COMMAND_BUFFER_STATE_RECORDING:
	default:
		return nil, fmt.Errorf("encoder `%s` already finished", e.label)
	}
	if err := e.buffer.End(); err != nil {
		return nil, err
	}
	return e.buffer, nil
}

/**
 * @brief Commands inside one render pass. Bind groups are bound lazily on
 * the next draw so they may be set before the pipeline.
 */
type VulkanRenderPassEncoder struct {
	encoder *VulkanCommandEncoder
	cmd     vk.CommandBuffer
	label   string

	layout vk.PipelineLayout
	groups [VULKAN_MAX_BIND_GROUPS]vk.DescriptorSet
	dirty  [VULKAN_MAX_BIND_GROUPS]bool
	ended  bool
}

func (p *VulkanRenderPassEncoder) SetPipeline(pipeline metadata.RenderPipeline) {
	vp, ok := pipeline.(*VulkanPipeline)
	if !ok || vp.Handle == nil {
		core.LogError("render pass `%s`: invalid pipeline", p.label)
		return
	}
	vk.CmdBindPipeline(p.cmd, vk.PipelineBindPointGraphics, vp.Handle)
	if p.layout != vp.PipelineLayout {
		p.layout = vp.PipelineLayout
		for i := range p.groups {
			p.dirty[i] = p.groups[i] != nil
		}
	}
}

func (p *VulkanRenderPassEncoder) SetBindGroup(index uint32, group metadata.BindGroup) {
	bg, ok := group.(*VulkanBindGroup)
	if !ok || index >= VULKAN_MAX_BIND_GROUPS {
		core.LogError("render pass `%s`: invalid bind group at %d", p.label, index)
		return
	}
	p.groups[index] = bg.Handle
	p.dirty[index] = true
}

func (p *VulkanRenderPassEncoder) SetVertexBuffer(slot uint32, buffer metadata.Buffer) {
	vb, ok := buffer.(*VulkanBuffer)
	if !ok {
		core.LogError("render pass `%s`: invalid vertex buffer at slot %d", p.label, slot)
		return
	}
	vk.CmdBindVertexBuffers(p.cmd, slot, 1, []vk.Buffer{vb.Handle}, []vk.DeviceSize{0})
}

func (p *VulkanRenderPassEncoder) SetIndexBuffer(buffer metadata.Buffer, format metadata.IndexFormat) {
	ib, ok := buffer.(*VulkanBuffer)
	if !ok {
		core.LogError("render pass `%s`: invalid index buffer", p.label)
		return
	}
	indexType := vk.IndexTypeUint32
	if format == metadata.IndexFormatUint16 {
		indexType = vk.IndexTypeUint16
	}
	vk.CmdBindIndexBuffer(p.cmd, ib.Handle, 0, indexType)
}

func (p *VulkanRenderPassEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	if p.layout == nil {
		core.LogError("render pass `%s`: draw without a pipeline", p.label)
		return
	}
	for i := range p.groups {
		if !p.dirty[i] {
			continue
		}
		vk.CmdBindDescriptorSets(p.cmd, vk.PipelineBindPointGraphics, p.layout, uint32(i), 1, []vk.DescriptorSet{p.groups[i]}, 0, nil)
		p.dirty[i] = false
	}
	vk.CmdDrawIndexed(p.cmd, indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *VulkanRenderPassEncoder) End() error {
	if p.ended {
		return fmt.Errorf("render pass `%s` already ended", p.label)
	}
	vk.CmdEndRenderPass(p.cmd)
	p.ended = true
	p.encoder.buffer.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}
