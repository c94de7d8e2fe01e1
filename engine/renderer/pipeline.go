package renderer

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/orrery/engine/assets/loaders"
	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

// Entry point of every compiled shader stage.
const SHADER_ENTRY_POINT = "main"

// ShaderProgram holds the SPIR-V of a vertex and a fragment stage.
type ShaderProgram struct {
	Name     string
	Vertex   []uint32
	Fragment []uint32
}

// Shaders are the two programs the world draws with.
type Shaders struct {
	Main  ShaderProgram
	Light ShaderProgram
}

/**
 * @brief Reads `<dir>/<name>.vert.spv` and `<dir>/<name>.frag.spv` for the
 * main program (`shader`) and the light program (`light`).
 */
func LoadShaders(ctx context.Context, assets AssetSource, dir string) (*Shaders, error) {
	shader, err := loadShaderProgram(ctx, assets, dir, "shader")
	if err != nil {
		return nil, err
	}
	light, err := loadShaderProgram(ctx, assets, dir, "light")
	if err != nil {
		return nil, err
	}
	return &Shaders{Main: *shader, Light: *light}, nil
}

func loadShaderProgram(ctx context.Context, assets AssetSource, dir, name string) (*ShaderProgram, error) {
	program := &ShaderProgram{Name: name}
	stages := []struct {
		ext  string
		code *[]uint32
	}{
		{"vert", &program.Vertex},
		{"frag", &program.Fragment},
	}
	for _, stage := range stages {
		file := fmt.Sprintf("%s/%s.%s.spv", dir, name, stage.ext)
		data, err := assets.LoadBinary(ctx, file)
		if err != nil {
			return nil, err
		}
		code, err := loaders.SPIRVFromBytes(data)
		if err != nil {
			return nil, resourceError(file, core.ResourceStageParse, err)
		}
		*stage.code = code
	}
	return program, nil
}

type pipelineConfig struct {
	label       string
	layouts     []metadata.BindGroupLayout
	colorFormat metadata.TextureFormat
	depthFormat metadata.TextureFormat
	buffers     []metadata.VertexBufferLayout
	program     ShaderProgram
}

/**
 * @brief Builds a triangle list pipeline with back face culling, color
 * replace and a depth test (less, writes enabled) when a depth format is set.
 */
func createRenderPipeline(device metadata.Device, cfg pipelineConfig) (metadata.RenderPipeline, error) {
	vertex, err := device.CreateShaderModule(&metadata.ShaderModuleDescriptor{
		Label: cfg.program.Name + ".vert",
		Code:  cfg.program.Vertex,
	})
	if err != nil {
		return nil, err
	}
	defer vertex.Destroy()

	fragment, err := device.CreateShaderModule(&metadata.ShaderModuleDescriptor{
		Label: cfg.program.Name + ".frag",
		Code:  cfg.program.Fragment,
	})
	if err != nil {
		return nil, err
	}
	defer fragment.Destroy()

	desc := &metadata.RenderPipelineDescriptor{
		Label:            cfg.label,
		BindGroupLayouts: cfg.layouts,
		VertexModule:     vertex,
		VertexEntry:      SHADER_ENTRY_POINT,
		FragmentModule:   fragment,
		FragmentEntry:    SHADER_ENTRY_POINT,
		Buffers:          cfg.buffers,
		Primitive: metadata.PrimitiveState{
			Topology:    metadata.PrimitiveTopologyTriangleList,
			FrontFace:   metadata.FrontFaceCCW,
			CullMode:    metadata.CullModeBack,
			PolygonMode: metadata.PolygonModeFill,
		},
		Targets: []metadata.ColorTargetState{
			{Format: cfg.colorFormat, Blend: metadata.BlendModeReplace},
		},
	}
	if cfg.depthFormat != metadata.TextureFormatUndefined {
		desc.DepthStencil = &metadata.DepthStencilState{
			Format:            cfg.depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      metadata.CompareFunctionLess,
		}
	}
	return device.CreateRenderPipeline(desc)
}
