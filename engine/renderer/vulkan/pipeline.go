package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

/**
 * @brief Holds a Vulkan pipeline and its layout. Implements metadata.RenderPipeline.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout

	context *VulkanContext
	label   string
}

func cullMode(mode metadata.CullMode) vk.CullModeFlags {
	switch mode {
	case metadata.CullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.CullModeBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
	return vk.CullModeFlags(vk.CullModeNone)
}

func (vd *VulkanDevice) CreateRenderPipeline(desc *metadata.RenderPipelineDescriptor) (metadata.RenderPipeline, error) {
	if len(desc.Targets) != 1 {
		return nil, fmt.Errorf("pipeline `%s`: exactly one color target is supported, got %d", desc.Label, len(desc.Targets))
	}
	vertexModule, ok := desc.VertexModule.(*VulkanShaderModule)
	if !ok {
		return nil, fmt.Errorf("pipeline `%s`: missing vertex module", desc.Label)
	}
	fragmentModule, ok := desc.FragmentModule.(*VulkanShaderModule)
	if !ok {
		return nil, fmt.Errorf("pipeline `%s`: missing fragment module", desc.Label)
	}

	key := renderpassKey{
		ColorFormat:  vulkanFormat(desc.Targets[0].Format),
		DepthFormat:  vk.FormatUndefined,
		ColorLoadOp:  vk.AttachmentLoadOpClear,
		ColorStoreOp: vk.AttachmentStoreOpStore,
		DepthLoadOp:  vk.AttachmentLoadOpClear,
		DepthStoreOp: vk.AttachmentStoreOpStore,
	}
	if desc.DepthStencil != nil {
		key.DepthFormat = vulkanFormat(desc.DepthStencil.Format)
	}
	renderpass, err := vd.renderpass(key)
	if err != nil {
		return nil, fmt.Errorf("pipeline `%s`: %w", desc.Label, err)
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		vertexModule.stage(vk.ShaderStageVertexBit, desc.VertexEntry),
		fragmentModule.stage(vk.ShaderStageFragmentBit, desc.FragmentEntry),
	}

	// Viewport and scissor are dynamic, set for every render pass.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                cullMode(desc.Primitive.CullMode),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	if desc.Primitive.PolygonMode == metadata.PolygonModeLine {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}
	if desc.Primitive.FrontFace == metadata.FrontFaceCW {
		rasterizerCreateInfo.FrontFace = vk.FrontFaceClockwise
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}
	if desc.DepthStencil != nil {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = compareOp(desc.DepthStencil.DepthCompare)
		if desc.DepthStencil.DepthWriteEnabled {
			depthStencil.DepthWriteEnable = vk.True
		}
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	if desc.Targets[0].Blend == metadata.BlendModeAlpha {
		colorBlendAttachmentState.BlendEnable = vk.True
		colorBlendAttachmentState.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		colorBlendAttachmentState.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		colorBlendAttachmentState.ColorBlendOp = vk.BlendOpAdd
		colorBlendAttachmentState.SrcAlphaBlendFactor = vk.BlendFactorOne
		colorBlendAttachmentState.DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		colorBlendAttachmentState.AlphaBlendOp = vk.BlendOpAdd
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Vertex input, one binding per buffer layout.
	bindings := make([]vk.VertexInputBindingDescription, len(desc.Buffers))
	var attributes []vk.VertexInputAttributeDescription
	for i, layout := range desc.Buffers {
		inputRate := vk.VertexInputRateVertex
		if layout.StepMode == metadata.VertexStepModeInstance {
			inputRate = vk.VertexInputRateInstance
		}
		bindings[i] = vk.VertexInputBindingDescription{
			Binding:   uint32(i),
			Stride:    uint32(layout.ArrayStride),
			InputRate: inputRate,
		}
		for _, attribute := range layout.Attributes {
			attributes = append(attributes, vk.VertexInputAttributeDescription{
				Location: attribute.ShaderLocation,
				Binding:  uint32(i),
				Format:   vertexFormat(attribute.Format),
				Offset:   uint32(attribute.Offset),
			})
		}
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}
	if desc.Primitive.Topology == metadata.PrimitiveTopologyLineList {
		inputAssembly.Topology = vk.PrimitiveTopologyLineList
	}

	// Pipeline layout
	setLayouts := make([]vk.DescriptorSetLayout, len(desc.BindGroupLayouts))
	for i, l := range desc.BindGroupLayouts {
		layout, ok := l.(*VulkanBindGroupLayout)
		if !ok {
			return nil, fmt.Errorf("pipeline `%s`: bind group layout %d was not created by this device", desc.Label, i)
		}
		setLayouts[i] = layout.Handle
	}
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}

	outPipeline := &VulkanPipeline{
		context: vd.context,
		label:   desc.Label,
	}

	if err := vd.context.locks.SafeCall(PipelineManagement, func() error {
		var pPipelineLayout vk.PipelineLayout
		result := vk.CreatePipelineLayout(vd.LogicalDevice, &pipelineLayoutCreateInfo, vd.context.Allocator, &pPipelineLayout)
		if !VulkanResultIsSuccess(result) {
			return fmt.Errorf("vkCreatePipelineLayout failed with %s", VulkanResultString(result, true))
		}
		outPipeline.PipelineLayout = pPipelineLayout
		return nil
	}); err != nil {
		return nil, fmt.Errorf("pipeline `%s`: %w", desc.Label, err)
	}

	// Pipeline create
	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		PTessellationState:  nil,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pPipelines := make([]vk.Pipeline, 1)
	if err := vd.context.locks.SafeCall(PipelineManagement, func() error {
		result := vk.CreateGraphicsPipelines(
			vd.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
			vd.context.Allocator,
			pPipelines)
		if !VulkanResultIsSuccess(result) {
			return fmt.Errorf("vkCreateGraphicsPipelines failed with %s", VulkanResultString(result, true))
		}
		return nil
	}); err != nil {
		outPipeline.Destroy()
		return nil, fmt.Errorf("pipeline `%s`: %w", desc.Label, err)
	}
	outPipeline.Handle = pPipelines[0]

	core.LogDebug("Graphics pipeline `%s` created!", desc.Label)
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Destroy() {
	context := pipeline.context
	_ = context.locks.SafeCall(PipelineManagement, func() error {
		if pipeline.Handle != nil {
			vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
			pipeline.Handle = nil
		}
		if pipeline.PipelineLayout != nil {
			vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipeline.PipelineLayout, context.Allocator)
			pipeline.PipelineLayout = nil
		}
		return nil
	})
}
