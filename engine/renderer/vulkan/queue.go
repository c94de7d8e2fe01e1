package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

/**
 * @brief The graphics queue plus the objects pacing frames on it. One frame
 * is in flight at a time: the fence guards the last submission, the
 * semaphores chain acquire, submit and present.
 */
type VulkanQueue struct {
	device *VulkanDevice

	inFlightFence *VulkanFence
	// Signaled when the acquired image may be written.
	imageAvailableSemaphore vk.Semaphore
	// Signaled when rendering to the acquired image completed.
	queueCompleteSemaphore vk.Semaphore

	// An image was acquired and the next submit must wait for it.
	imageAcquired bool
	// The last submit rendered to the acquired image, present must wait for it.
	renderPending bool
}

func newVulkanQueue(device *VulkanDevice) (*VulkanQueue, error) {
	context := device.context
	q := &VulkanQueue{device: device}

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var imageAvailable, queueComplete vk.Semaphore
	if res := vk.CreateSemaphore(device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &imageAvailable); res != vk.Success {
		return nil, resultError("vkCreateSemaphore", res)
	}
	q.imageAvailableSemaphore = imageAvailable
	if res := vk.CreateSemaphore(device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &queueComplete); res != vk.Success {
		q.destroy()
		return nil, resultError("vkCreateSemaphore", res)
	}
	q.queueCompleteSemaphore = queueComplete

	// Create the fence in a signaled state, indicating that the first frame has already been "rendered".
	fence, err := NewFence(context, true)
	if err != nil {
		q.destroy()
		return nil, err
	}
	q.inFlightFence = fence
	return q, nil
}

func (q *VulkanQueue) destroy() {
	context := q.device.context
	if q.inFlightFence != nil {
		q.inFlightFence.FenceDestroy(context)
		q.inFlightFence = nil
	}
	if q.imageAvailableSemaphore != vk.NullSemaphore {
		vk.DestroySemaphore(q.device.LogicalDevice, q.imageAvailableSemaphore, context.Allocator)
		q.imageAvailableSemaphore = vk.NullSemaphore
	}
	if q.queueCompleteSemaphore != vk.NullSemaphore {
		vk.DestroySemaphore(q.device.LogicalDevice, q.queueCompleteSemaphore, context.Allocator)
		q.queueCompleteSemaphore = vk.NullSemaphore
	}
}

/**
 * @brief Waits for the last submitted frame and releases what it used.
 */
func (q *VulkanQueue) waitFrame() error {
	if err := q.inFlightFence.FenceWait(q.device.context, math.MaxUint64); err != nil {
		return err
	}
	q.device.collectGarbage()
	return nil
}

/**
 * @brief Consumes semaphore signals left behind by a frame that was
 * acquired but not submitted, or rendered but not presented.
 */
func (q *VulkanQueue) drain() error {
	var waits []vk.Semaphore
	if q.imageAcquired {
		waits = append(waits, q.imageAvailableSemaphore)
	}
	if q.renderPending {
		waits = append(waits, q.queueCompleteSemaphore)
	}
	if len(waits) == 0 {
		return nil
	}
	stages := make([]vk.PipelineStageFlags, len(waits))
	for i := range stages {
		stages[i] = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: uint32(len(waits)),
		PWaitSemaphores:    waits,
		PWaitDstStageMask:  stages,
	}
	err := q.device.context.locks.SafeQueueCall(uint32(q.device.GraphicsQueueIndex), func() error {
		if res := vk.QueueSubmit(q.device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
			return resultError("vkQueueSubmit", res)
		}
		return resultError("vkQueueWaitIdle", vk.QueueWaitIdle(q.device.GraphicsQueue))
	})
	if err != nil {
		return err
	}
	q.imageAcquired = false
	q.renderPending = false
	return nil
}

/**
 * @brief Writes data into a buffer once the GPU no longer reads it.
 */
func (q *VulkanQueue) WriteBuffer(buffer metadata.Buffer, offset uint64, data []byte) error {
	vb, ok := buffer.(*VulkanBuffer)
	if !ok {
		return fmt.Errorf("buffer was not created by this device")
	}
	if err := q.waitFrame(); err != nil {
		return err
	}
	return vb.load(offset, data)
}

/**
 * @brief Uploads pixels through a staging buffer and leaves the texture
 * ready for sampling.
 */
func (q *VulkanQueue) WriteTexture(texture metadata.Texture, data []byte, layout metadata.TextureDataLayout) error {
	image, ok := texture.(*VulkanImage)
	if !ok {
		return fmt.Errorf("texture was not created by this device")
	}
	bpp := image.format.BytesPerPixel()
	if layout.BytesPerRow%bpp != 0 {
		return fmt.Errorf("texture `%s`: %d bytes per row is not a multiple of %d", image.label, layout.BytesPerRow, bpp)
	}
	rows := layout.RowsPerImage
	if rows == 0 {
		rows = image.Height
	}
	needed := layout.Offset + uint64(layout.BytesPerRow)*uint64(rows-1) + uint64(image.Width*bpp)
	if uint64(len(data)) < needed {
		return fmt.Errorf("texture `%s`: %d bytes given, %d needed", image.label, len(data), needed)
	}

	context := q.device.context
	staging, err := newVulkanBuffer(context, image.label+" staging", uint64(len(data)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		return err
	}
	defer staging.Destroy()
	if err := staging.load(0, data); err != nil {
		return err
	}

	pool := q.device.GraphicsCommandPool
	cb, err := AllocateAndBeginSingleUse(context, pool)
	if err != nil {
		return err
	}

	aspect := aspectFlags(image.format)
	if err := transitionImageLayout(cb.Handle, image.Handle, aspect, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		cb.Free(context, pool)
		return err
	}
	region := vk.BufferImageCopy{
		BufferOffset:      vk.DeviceSize(layout.Offset),
		BufferRowLength:   layout.BytesPerRow / bpp,
		BufferImageHeight: rows,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     aspect,
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: image.Width, Height: image.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cb.Handle, staging.Handle, image.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
	if err := transitionImageLayout(cb.Handle, image.Handle, aspect, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		cb.Free(context, pool)
		return err
	}
	return cb.EndSingleUse(context, pool, q.device.GraphicsQueue)
}

/**
 * @brief Submits the recordings as one batch. When a swapchain image was
 * acquired the batch waits for it and signals present.
 */
func (q *VulkanQueue) Submit(commands ...metadata.CommandBuffer) error {
	context := q.device.context
	handles := make([]vk.CommandBuffer, 0, len(commands))
	buffers := make([]*VulkanCommandBuffer, 0, len(commands))
	for _, c := range commands {
		cb, ok := c.(*VulkanCommandBuffer)
		if !ok || cb.State != COMMAND_BUFFER_STATE_RECORDING_ENDED {
			return fmt.Errorf("command buffer is not finished or was not created by this device")
		}
		handles = append(handles, cb.Handle)
		buffers = append(buffers, cb)
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(handles)),
		PCommandBuffers:    handles,
	}
	if q.imageAcquired {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{q.imageAvailableSemaphore}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{q.queueCompleteSemaphore}
	}

	// The previous frame must be done before the fence is reused.
	if err := q.waitFrame(); err != nil {
		return err
	}
	if err := q.inFlightFence.FenceReset(context); err != nil {
		return err
	}

	err := context.locks.SafeQueueCall(uint32(q.device.GraphicsQueueIndex), func() error {
		res := vk.QueueSubmit(q.device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, q.inFlightFence.Handle)
		if res == vk.ErrorDeviceLost {
			return core.ErrDeviceLost
		}
		return resultError("vkQueueSubmit", res)
	})
	if err != nil {
		// Nothing will signal the fence, do not wait for it.
		q.inFlightFence.IsSignaled = true
		return err
	}

	if q.imageAcquired {
		q.imageAcquired = false
		q.renderPending = true
	}
	pool := q.device.GraphicsCommandPool
	for _, cb := range buffers {
		cb.UpdateSubmitted()
		q.device.deferDestroy(func() { cb.Free(context, pool) })
	}
	q.device.commitGarbage()
	return nil
}
