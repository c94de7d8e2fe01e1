package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

/**
 * @brief A compiled SPIR-V module. Implements metadata.ShaderModule.
 */
type VulkanShaderModule struct {
	Handle vk.ShaderModule

	context *VulkanContext
	label   string
}

func (vd *VulkanDevice) CreateShaderModule(desc *metadata.ShaderModuleDescriptor) (metadata.ShaderModule, error) {
	if len(desc.Code) == 0 {
		return nil, fmt.Errorf("shader module `%s` is empty", desc.Label)
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType: vk.StructureTypeShaderModuleCreateInfo,
		// Size in bytes, the code itself in words.
		CodeSize: uint64(len(desc.Code) * 4),
		PCode:    desc.Code,
	}
	var handle vk.ShaderModule
	if res := vk.CreateShaderModule(vd.LogicalDevice, &createInfo, vd.context.Allocator, &handle); res != vk.Success {
		return nil, fmt.Errorf("shader module `%s`: %w", desc.Label, resultError("vkCreateShaderModule", res))
	}
	return &VulkanShaderModule{
		Handle:  handle,
		context: vd.context,
		label:   desc.Label,
	}, nil
}

func (sm *VulkanShaderModule) stage(stage vk.ShaderStageFlagBits, entry string) vk.PipelineShaderStageCreateInfo {
	if entry == "" {
		entry = "main"
	}
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: sm.Handle,
		PName:  VulkanSafeString(entry),
	}
}

func (sm *VulkanShaderModule) Destroy() {
	if sm.Handle == nil {
		return
	}
	vk.DestroyShaderModule(sm.context.Device.LogicalDevice, sm.Handle, sm.context.Allocator)
	sm.Handle = nil
}
