package renderer

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/math"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

func (tw *testWorld) liveBuffers(label string) []*fakeBuffer {
	var out []*fakeBuffer
	for _, b := range tw.device.buffers {
		if b.label == label && !b.destroyed {
			out = append(out, b)
		}
	}
	return out
}

func TestNewWorldCreatesPipelines(t *testing.T) {
	tw := newTestWorld(t)

	require.Len(t, tw.surface.configs, 1)
	config := tw.surface.configs[0]
	assert.Equal(t, uint32(800), config.Width)
	assert.Equal(t, uint32(600), config.Height)
	assert.Equal(t, metadata.TextureFormatBGRA8UnormSrgb, config.Format)

	render := tw.device.pipeline("Render Pipeline")
	require.NotNil(t, render)
	assert.Len(t, render.desc.BindGroupLayouts, 3)
	require.Len(t, render.desc.Buffers, 2)
	assert.Equal(t, uint64(MODEL_VERTEX_SIZE), render.desc.Buffers[0].ArrayStride)
	assert.Equal(t, uint64(INSTANCE_RAW_SIZE), render.desc.Buffers[1].ArrayStride)
	assert.Equal(t, metadata.VertexStepModeInstance, render.desc.Buffers[1].StepMode)
	require.NotNil(t, render.desc.DepthStencil)
	assert.Equal(t, metadata.CompareFunctionLess, render.desc.DepthStencil.DepthCompare)
	assert.True(t, render.desc.DepthStencil.DepthWriteEnabled)
	assert.Equal(t, metadata.CullModeBack, render.desc.Primitive.CullMode)

	light := tw.device.pipeline("Light Pipeline")
	require.NotNil(t, light)
	assert.Len(t, light.desc.BindGroupLayouts, 2)
	assert.Len(t, light.desc.Buffers, 1)
	require.NotNil(t, light.desc.DepthStencil)
	assert.Equal(t, render.desc.DepthStencil, light.desc.DepthStencil)

	depth := tw.DepthTexture().Texture.(*fakeTexture)
	assert.Equal(t, metadata.Extent3D{Width: 800, Height: 600, DepthOrArrayLayers: 1}, depth.desc.Size)
	assert.Equal(t, metadata.TextureFormatDepth32Float, depth.desc.Format)
}

func TestInstancesTrackLoadedModels(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()

	placements := []Area3D{{X: 10, Y: 0, Z: 10}, {}, {X: -3, Y: 4, Z: 5}}
	names := []string{"cube.obj", "bare.obj", "cube.obj"}
	for i, p := range placements {
		require.NoError(t, tw.AddModel(ctx, names[i], p))

		instances := tw.Instances()
		require.Len(t, instances, i+1)
		for j := 0; j <= i; j++ {
			assert.True(t, instances[j].Position.Compare(placements[j].Vec3(), 1e-6))
		}

		live := tw.liveBuffers("Instance Buffer")
		require.Len(t, live, 1, "the previous instance buffer is released")
		assert.Equal(t, uint64((i+1)*INSTANCE_RAW_SIZE), live[0].Size())
		assert.True(t, live[0].usage.Has(metadata.BufferUsageVertex))
	}
}

func TestResizeToZeroKeepsConfiguration(t *testing.T) {
	tw := newTestWorld(t)
	before := tw.SurfaceConfig()
	depth := tw.DepthTexture()
	configures := len(tw.surface.configs)

	require.NoError(t, tw.Resize(0, 600))
	require.NoError(t, tw.Resize(800, 0))
	require.NoError(t, tw.Resize(0, 0))

	assert.Equal(t, before, tw.SurfaceConfig())
	assert.Same(t, depth, tw.DepthTexture())
	assert.Len(t, tw.surface.configs, configures)
	assert.False(t, depth.Texture.(*fakeTexture).destroyed)
}

func TestResizeClampsAndRecreatesDepth(t *testing.T) {
	tw := newTestWorld(t)
	old := tw.DepthTexture()

	require.NoError(t, tw.Resize(9000, 700))

	config := tw.SurfaceConfig()
	assert.Equal(t, uint32(8192), config.Width)
	assert.Equal(t, uint32(700), config.Height)
	assert.Equal(t, config, tw.surface.configs[len(tw.surface.configs)-1])

	depth := tw.DepthTexture()
	assert.NotSame(t, old, depth)
	assert.True(t, old.Texture.(*fakeTexture).destroyed)
	assert.Equal(t, metadata.Extent3D{Width: 8192, Height: 700, DepthOrArrayLayers: 1}, depth.Texture.(*fakeTexture).desc.Size)
	assert.InDelta(t, float32(8192)/700, tw.Camera().Aspect, 1e-4)

	w, h := tw.Size()
	assert.Equal(t, uint32(8192), w)
	assert.Equal(t, uint32(700), h)
}

func TestRenderLoadedModel(t *testing.T) {
	tw := newTestWorld(t)
	require.NoError(t, tw.AddModel(context.Background(), "cube.obj", Area3D{X: 10, Y: 0, Z: 10}))

	instances := tw.Instances()
	require.Len(t, instances, 1)
	assert.True(t, instances[0].Position.Compare(math.NewVec3(10, 0, 10), 1e-6))
	want := math.NewQuatFromAxisAngle(math.NewVec3(10, 0, 10).Normalize(), math.DegToRad(45), false)
	assert.True(t, instances[0].Rotation.Compare(want, 1e-5))

	require.NoError(t, tw.Update())
	require.NoError(t, tw.Render())

	assert.Equal(t, 1, tw.device.submits)
	assert.Equal(t, 1, tw.surface.presented)

	require.Len(t, tw.device.passes, 1)
	pass := tw.device.passes[0]
	require.Len(t, pass.ColorAttachments, 1)
	assert.Equal(t, metadata.Color{R: 0.1, G: 0.2, B: 0.3, A: 1.0}, pass.ColorAttachments[0].ClearValue)
	assert.Equal(t, metadata.LoadOpClear, pass.ColorAttachments[0].LoadOp)
	require.NotNil(t, pass.DepthStencilAttachment)
	assert.Equal(t, float32(1.0), pass.DepthStencilAttachment.DepthClearValue)
	assert.Same(t, tw.DepthTexture().View, pass.DepthStencilAttachment.View)

	model := tw.Models()[0]
	require.Len(t, model.Meshes, 2)
	lightPipeline := tw.device.pipeline("Light Pipeline")
	mainPipeline := tw.device.pipeline("Render Pipeline")

	cmds := tw.device.commands
	require.Equal(t, "BeginRenderPass", cmds[0].op)
	assert.Equal(t, "SetVertexBuffer", cmds[1].op)
	assert.Equal(t, uint32(1), cmds[1].slot)
	assert.Same(t, tw.liveBuffers("Instance Buffer")[0], cmds[1].buffer)

	// light pass first, then the main pass
	var pipelines []metadata.RenderPipeline
	for _, c := range cmds {
		if c.op == "SetPipeline" {
			pipelines = append(pipelines, c.pipeline)
		}
	}
	require.Len(t, pipelines, 2)
	assert.Same(t, lightPipeline, pipelines[0])
	assert.Same(t, mainPipeline, pipelines[1])

	draws := tw.device.draws()
	require.Len(t, draws, 4)
	for i, d := range draws {
		assert.Equal(t, model.Meshes[i%2].NumElements, d.indexCount)
		assert.Equal(t, uint32(1), d.instanceCount)
		assert.Equal(t, uint32(0), d.firstInstance)
	}
	assert.Equal(t, uint32(6), draws[0].indexCount)
	assert.Equal(t, uint32(3), draws[1].indexCount)
	assert.Equal(t, "End", cmds[len(cmds)-1].op)
}

func TestRenderBindGroupSlots(t *testing.T) {
	tw := newTestWorld(t)
	require.NoError(t, tw.AddModel(context.Background(), "bare.obj", Area3D{}))
	require.NoError(t, tw.Render())

	material := tw.Models()[0].Materials[0].BindGroup
	camera := tw.camera.bindGroup
	light := tw.light.bindGroup

	type binding struct {
		slot  uint32
		group metadata.BindGroup
	}
	var lightPass, mainPass []binding
	pass := 0
	for _, c := range tw.device.commands {
		switch c.op {
		case "SetPipeline":
			pass++
		case "SetBindGroup":
			if pass == 1 {
				lightPass = append(lightPass, binding{c.slot, c.bindGroup})
			} else {
				mainPass = append(mainPass, binding{c.slot, c.bindGroup})
			}
		}
	}
	assert.Equal(t, []binding{{0, camera}, {1, light}}, lightPass)
	assert.Equal(t, []binding{{0, material}, {1, camera}, {2, light}}, mainPass)
}

func TestRenderWithoutModelsOnlyClears(t *testing.T) {
	tw := newTestWorld(t)
	require.NoError(t, tw.Render())

	assert.Empty(t, tw.device.draws())
	ops := make([]string, 0, len(tw.device.commands))
	for _, c := range tw.device.commands {
		ops = append(ops, c.op)
	}
	assert.Equal(t, []string{"BeginRenderPass", "End"}, ops)
	assert.Equal(t, 1, tw.device.submits)
	assert.Equal(t, 1, tw.surface.presented)
}

func TestEachModelDrawsWithItsOwnInstance(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	require.NoError(t, tw.AddModel(ctx, "cube.obj", Area3D{X: 1}))
	require.NoError(t, tw.AddModel(ctx, "bare.obj", Area3D{Y: 1}))
	require.NoError(t, tw.Render())

	var firstInstances []uint32
	for _, d := range tw.device.draws() {
		firstInstances = append(firstInstances, d.firstInstance)
	}
	// light pass then main pass: cube (2 meshes), bare (1 mesh)
	assert.Equal(t, []uint32{0, 0, 1, 0, 0, 1}, firstInstances)
}

func TestUpdateWritesUniforms(t *testing.T) {
	tw := newTestWorld(t)
	require.NoError(t, tw.Update())

	require.Len(t, tw.device.writes, 2)
	cameraWrite := tw.device.writes[0]
	assert.Same(t, tw.camera.buffer, cameraWrite.buffer)
	assert.Len(t, cameraWrite.data, CAMERA_UNIFORM_SIZE)
	assert.Equal(t, tw.camera.uniform.Bytes(), cameraWrite.data)

	lightWrite := tw.device.writes[1]
	assert.Same(t, tw.light.buffer, lightWrite.buffer)
	assert.Len(t, lightWrite.data, LIGHT_UNIFORM_SIZE)
	assert.InDelta(t, 1.0, tw.Light().Angle(), 1e-6)
}

func TestSurfaceErrorPolicy(t *testing.T) {
	tw := newTestWorld(t)

	for _, kind := range []core.SurfaceErrorKind{core.SurfaceErrorLost, core.SurfaceErrorOutdated} {
		tw.surface.acquire = []error{core.NewSurfaceError(kind, nil)}
		configures := len(tw.surface.configs)
		depth := tw.DepthTexture()

		err := tw.Render()
		require.Error(t, err)
		assert.Equal(t, 0, tw.device.submits, "nothing is submitted without a frame")

		require.NoError(t, tw.HandleSurfaceError(err))
		assert.Len(t, tw.surface.configs, configures+1)
		assert.Equal(t, tw.SurfaceConfig(), tw.surface.configs[configures])
		assert.NotSame(t, depth, tw.DepthTexture())
	}

	tw.surface.acquire = []error{core.NewSurfaceError(core.SurfaceErrorTimeout, nil)}
	configures := len(tw.surface.configs)
	assert.NoError(t, tw.HandleSurfaceError(tw.Render()))
	assert.Len(t, tw.surface.configs, configures)

	tw.surface.acquire = []error{core.NewSurfaceError(core.SurfaceErrorOutOfMemory, nil)}
	err := tw.HandleSurfaceError(tw.Render())
	require.Error(t, err)
	assert.ErrorIs(t, err, &core.SurfaceError{Kind: core.SurfaceErrorOutOfMemory})

	other := errors.New("boom")
	assert.Equal(t, other, tw.HandleSurfaceError(other))
	assert.NoError(t, tw.HandleSurfaceError(nil))

	// the next frame goes through
	require.NoError(t, tw.Render())
	assert.Equal(t, 1, tw.device.submits)
}

func TestReloadAssetRebuildsUsers(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	require.NoError(t, tw.AddModel(ctx, "cube.obj", Area3D{X: 2}))
	require.NoError(t, tw.AddModel(ctx, "bare.obj", Area3D{Z: 2}))
	old := tw.Models()[0]
	bare := tw.Models()[1]
	assert.ElementsMatch(t, []string{"cube.obj", "cube.mtl", "skin.png"}, old.Sources)

	tw.assets.files["skin.png"] = pngBytes(t, 2, 2, color.NRGBA{B: 255, A: 255})
	n, err := tw.ReloadAsset(ctx, "skin.png")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reloaded := tw.Models()[0]
	assert.NotEqual(t, old.ID, reloaded.ID)
	assert.Equal(t, old.Placement, reloaded.Placement)
	assert.Same(t, bare, tw.Models()[1])
	assert.Len(t, tw.Instances(), 2)
	assert.Nil(t, old.Meshes, "the previous version is released")

	n, err = tw.ReloadAsset(ctx, "unrelated.png")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReloadAssetKeepsModelOnFailure(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	require.NoError(t, tw.AddModel(ctx, "cube.obj", Area3D{X: 2}))
	old := tw.Models()[0]

	tw.assets.files["cube.mtl"] = []byte("Kd 1 1 1\n")
	n, err := tw.ReloadAsset(ctx, "cube.mtl")
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Same(t, old, tw.Models()[0])
}

func TestShutdownReleasesResources(t *testing.T) {
	tw := newTestWorld(t)
	require.NoError(t, tw.AddModel(context.Background(), "cube.obj", Area3D{}))
	tw.Shutdown()

	for _, b := range tw.device.buffers {
		assert.True(t, b.destroyed, b.label)
	}
	for _, tex := range tw.device.textures {
		assert.True(t, tex.destroyed, tex.label)
	}
	for _, p := range tw.device.pipelines {
		assert.True(t, p.destroyed, p.label)
	}
}
