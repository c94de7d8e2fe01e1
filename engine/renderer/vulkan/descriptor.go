package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

/**
 * @brief A descriptor set layout plus the binding types it was built from,
 * needed later to write bind groups against it.
 */
type VulkanBindGroupLayout struct {
	Handle  vk.DescriptorSetLayout
	Entries []metadata.BindGroupLayoutEntry

	context *VulkanContext
}

/**
 * @brief A descriptor set allocated from the device pool.
 */
type VulkanBindGroup struct {
	Handle vk.DescriptorSet

	context *VulkanContext
}

func descriptorType(t metadata.BindingType) vk.DescriptorType {
	switch t {
	case metadata.BindingTypeSampledTexture:
		return vk.DescriptorTypeSampledImage
	case metadata.BindingTypeFilteringSampler, metadata.BindingTypeComparisonSampler:
		return vk.DescriptorTypeSampler
	}
	return vk.DescriptorTypeUniformBuffer
}

func (vd *VulkanDevice) CreateBindGroupLayout(desc *metadata.BindGroupLayoutDescriptor) (metadata.BindGroupLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, len(desc.Entries))
	for i, entry := range desc.Entries {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         entry.Binding,
			DescriptorType:  descriptorType(entry.Type),
			DescriptorCount: 1,
			StageFlags:      shaderStageFlags(entry.Visibility),
		}
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var handle vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(vd.LogicalDevice, &layoutInfo, vd.context.Allocator, &handle); res != vk.Success {
		return nil, fmt.Errorf("bind group layout `%s`: %w", desc.Label, resultError("vkCreateDescriptorSetLayout", res))
	}
	return &VulkanBindGroupLayout{
		Handle:  handle,
		Entries: append([]metadata.BindGroupLayoutEntry(nil), desc.Entries...),
		context: vd.context,
	}, nil
}

func (l *VulkanBindGroupLayout) entry(binding uint32) (metadata.BindGroupLayoutEntry, bool) {
	for _, e := range l.Entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return metadata.BindGroupLayoutEntry{}, false
}

func (l *VulkanBindGroupLayout) Destroy() {
	if l.Handle == nil {
		return
	}
	vk.DestroyDescriptorSetLayout(l.context.Device.LogicalDevice, l.Handle, l.context.Allocator)
	l.Handle = nil
}

/**
 * @brief Allocates a descriptor set and writes every entry into it.
 * Each entry must match the type its binding has in the layout.
 */
func (vd *VulkanDevice) CreateBindGroup(desc *metadata.BindGroupDescriptor) (metadata.BindGroup, error) {
	layout, ok := desc.Layout.(*VulkanBindGroupLayout)
	if !ok {
		return nil, fmt.Errorf("bind group `%s`: layout was not created by this device", desc.Label)
	}

	writes := make([]vk.WriteDescriptorSet, 0, len(desc.Entries))
	for _, entry := range desc.Entries {
		layoutEntry, ok := layout.entry(entry.Binding)
		if !ok {
			return nil, fmt.Errorf("bind group `%s`: binding %d is not in the layout", desc.Label, entry.Binding)
		}
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstBinding:      entry.Binding,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  descriptorType(layoutEntry.Type),
		}
		switch layoutEntry.Type {
		case metadata.BindingTypeUniformBuffer:
			buffer, ok := entry.Buffer.(*VulkanBuffer)
			if !ok {
				return nil, fmt.Errorf("bind group `%s`: binding %d needs a buffer", desc.Label, entry.Binding)
			}
			size := vk.DeviceSize(vk.WholeSize)
			if entry.Size != 0 {
				size = vk.DeviceSize(entry.Size)
			}
			write.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: buffer.Handle,
				Offset: vk.DeviceSize(entry.Offset),
				Range:  size,
			}}
		case metadata.BindingTypeSampledTexture:
			view, ok := entry.TextureView.(*VulkanImageView)
			if !ok {
				return nil, fmt.Errorf("bind group `%s`: binding %d needs a texture view", desc.Label, entry.Binding)
			}
			write.PImageInfo = []vk.DescriptorImageInfo{{
				ImageView:   view.Handle,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}}
		default:
			sampler, ok := entry.Sampler.(*VulkanSampler)
			if !ok {
				return nil, fmt.Errorf("bind group `%s`: binding %d needs a sampler", desc.Label, entry.Binding)
			}
			write.PImageInfo = []vk.DescriptorImageInfo{{
				Sampler: sampler.Handle,
			}}
		}
		writes = append(writes, write)
	}

	group := &VulkanBindGroup{context: vd.context}
	err := vd.context.locks.SafeCall(DescriptorManagement, func() error {
		allocInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     vd.DescriptorPool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout.Handle},
		}
		var set vk.DescriptorSet
		if res := vk.AllocateDescriptorSets(vd.LogicalDevice, &allocInfo, &set); res != vk.Success {
			return resultError("vkAllocateDescriptorSets", res)
		}
		group.Handle = set
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bind group `%s`: %w", desc.Label, err)
	}

	for i := range writes {
		writes[i].DstSet = group.Handle
	}
	vk.UpdateDescriptorSets(vd.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return group, nil
}

func (g *VulkanBindGroup) Destroy() {
	if g.Handle == nil {
		return
	}
	device := g.context.Device
	_ = g.context.locks.SafeCall(DescriptorManagement, func() error {
		vk.FreeDescriptorSets(device.LogicalDevice, device.DescriptorPool, 1, &g.Handle)
		return nil
	})
	g.Handle = nil
}
