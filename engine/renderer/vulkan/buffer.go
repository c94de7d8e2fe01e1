package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

/**
 * @brief A buffer backed by host visible, coherent memory. Writes go
 * through a mapping, so no staging copy is needed.
 */
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory

	context *VulkanContext
	label   string
	size    uint64
	usage   metadata.BufferUsage
}

func bufferUsageFlags(usage metadata.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlags
	if usage.Has(metadata.BufferUsageCopySrc) {
		flags |= vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	}
	if usage.Has(metadata.BufferUsageCopyDst) {
		flags |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}
	if usage.Has(metadata.BufferUsageIndex) {
		flags |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	if usage.Has(metadata.BufferUsageVertex) {
		flags |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if usage.Has(metadata.BufferUsageUniform) {
		flags |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	return flags
}

func newVulkanBuffer(context *VulkanContext, label string, size uint64, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	// zero sized buffers are invalid, the reported size stays what was asked for
	allocSize := size
	if allocSize == 0 {
		allocSize = 4
	}
	device := context.Device.LogicalDevice

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(allocSize),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	buffer := &VulkanBuffer{
		context: context,
		label:   label,
		size:    size,
	}
	err := context.locks.SafeCall(BufferManagement, func() error {
		var handle vk.Buffer
		if res := vk.CreateBuffer(device, &bufferInfo, context.Allocator, &handle); res != vk.Success {
			return resultError("vkCreateBuffer", res)
		}
		buffer.Handle = handle

		var requirements vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(device, handle, &requirements)
		memory, err := context.allocateMemory(requirements, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		if err != nil {
			vk.DestroyBuffer(device, handle, context.Allocator)
			return err
		}
		buffer.Memory = memory

		if res := vk.BindBufferMemory(device, handle, memory, 0); res != vk.Success {
			vk.FreeMemory(device, memory, context.Allocator)
			vk.DestroyBuffer(device, handle, context.Allocator)
			return resultError("vkBindBufferMemory", res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("buffer `%s`: %w", label, err)
	}
	return buffer, nil
}

// CreateBuffer creates a buffer and uploads desc.Contents when given.
func (vd *VulkanDevice) CreateBuffer(desc *metadata.BufferDescriptor) (metadata.Buffer, error) {
	size := desc.Size
	if desc.Contents != nil {
		size = uint64(len(desc.Contents))
	}
	buffer, err := newVulkanBuffer(vd.context, desc.Label, size, bufferUsageFlags(desc.Usage))
	if err != nil {
		return nil, err
	}
	buffer.usage = desc.Usage
	if len(desc.Contents) > 0 {
		if err := buffer.load(0, desc.Contents); err != nil {
			buffer.Destroy()
			return nil, err
		}
	}
	core.LogDebug("created buffer `%s` (%d bytes)", desc.Label, size)
	return buffer, nil
}

// load copies data into the buffer memory at offset.
func (vb *VulkanBuffer) load(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > vb.size {
		return fmt.Errorf("write of %d bytes at %d overflows buffer `%s` of %d bytes", len(data), offset, vb.label, vb.size)
	}
	device := vb.context.Device.LogicalDevice
	var pData unsafe.Pointer
	if res := vk.MapMemory(device, vb.Memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &pData); res != vk.Success {
		return resultError("vkMapMemory", res)
	}
	vk.Memcopy(pData, data)
	vk.UnmapMemory(device, vb.Memory)
	return nil
}

func (vb *VulkanBuffer) Label() string {
	return vb.label
}

func (vb *VulkanBuffer) Size() uint64 {
	return vb.size
}

func (vb *VulkanBuffer) Usage() metadata.BufferUsage {
	return vb.usage
}

func (vb *VulkanBuffer) Destroy() {
	if vb.Handle == nil {
		return
	}
	device := vb.context.Device.LogicalDevice
	vk.DestroyBuffer(device, vb.Handle, vb.context.Allocator)
	vk.FreeMemory(device, vb.Memory, vb.context.Allocator)
	vb.Handle = nil
	vb.Memory = nil
}
