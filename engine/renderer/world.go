package renderer

import (
	"context"
	"errors"
	"fmt"

	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/math"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

var CLEAR_COLOR = metadata.Color{R: 0.1, G: 0.2, B: 0.3, A: 1.0}

type CameraConfig struct {
	Eye         math.Vec3
	Target      math.Vec3
	Up          math.Vec3
	Fovy        float32
	Znear       float32
	Zfar        float32
	Sensitivity float32
}

type LightConfig struct {
	Position        Area3D
	Color           Color
	DegreesPerFrame float32
}

type WorldConfig struct {
	Width       uint32
	Height      uint32
	PresentMode metadata.PresentMode
	Camera      CameraConfig
	Light       LightConfig
}

func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Width:       1280,
		Height:      720,
		PresentMode: metadata.PresentModeFifo,
		Camera: CameraConfig{
			Eye:         math.NewVec3(0, 5, -10),
			Target:      math.NewVec3Zero(),
			Up:          math.NewVec3Up(),
			Fovy:        45,
			Znear:       0.1,
			Zfar:        100,
			Sensitivity: 0.2,
		},
		Light: LightConfig{
			Position:        Area3D{X: 2, Y: 2, Z: 2},
			Color:           NewColor(1, 1, 1),
			DegreesPerFrame: 1,
		},
	}
}

type cameraState struct {
	camera     Camera
	controller *CameraController
	uniform    CameraUniform
	layout     metadata.BindGroupLayout
	buffer     metadata.Buffer
	bindGroup  metadata.BindGroup
}

type lightState struct {
	light     *Light
	layout    metadata.BindGroupLayout
	buffer    metadata.Buffer
	bindGroup metadata.BindGroup
	pipeline  metadata.RenderPipeline
}

/**
 * @brief The renderer. Owns the surface, the loaded models, the camera,
 * the light and the instance buffer, and draws them every frame.
 * A World is not safe for concurrent use; drive it from the render loop.
 */
type World struct {
	device  metadata.Device
	surface *SurfaceManager
	ctx     *Context

	renderPipeline metadata.RenderPipeline
	depthTexture   *Texture

	camera cameraState
	light  lightState

	instances      []Instance
	instanceBuffer metadata.Buffer
}

/**
 * @brief Configures the surface and creates every fixed GPU object: bind
 * group layouts, uniform buffers, the depth buffer and both pipelines.
 * @param device The device every resource is created on.
 * @param surface The window surface.
 * @param assets Where models and textures are read from.
 * @param shaders Compiled programs for the main and the light pass.
 * @param cfg Initial size, camera and light.
 */
func NewWorld(device metadata.Device, surface metadata.Surface, assets AssetSource, shaders *Shaders, cfg WorldConfig) (*World, error) {
	sm, err := NewSurfaceManager(device, surface, cfg.Width, cfg.Height, cfg.PresentMode)
	if err != nil {
		return nil, err
	}
	ctx, err := NewContext(device, assets)
	if err != nil {
		return nil, err
	}

	w := &World{
		device:  device,
		surface: sm,
		ctx:     ctx,
	}
	if err := w.createCamera(cfg.Camera); err != nil {
		w.Shutdown()
		return nil, err
	}
	if err := w.createLight(cfg.Light); err != nil {
		w.Shutdown()
		return nil, err
	}

	w.depthTexture, err = NewDepthTexture(device, sm.Config(), "depth_texture")
	if err != nil {
		w.Shutdown()
		return nil, err
	}

	w.renderPipeline, err = createRenderPipeline(device, pipelineConfig{
		label:       "Render Pipeline",
		layouts:     []metadata.BindGroupLayout{ctx.Layout(), w.camera.layout, w.light.layout},
		colorFormat: sm.Format(),
		depthFormat: DEPTH_FORMAT,
		buffers:     []metadata.VertexBufferLayout{ModelVertexLayout(), InstanceRawLayout()},
		program:     shaders.Main,
	})
	if err != nil {
		w.Shutdown()
		return nil, fmt.Errorf("render pipeline: %w", err)
	}

	w.light.pipeline, err = createRenderPipeline(device, pipelineConfig{
		label:       "Light Pipeline",
		layouts:     []metadata.BindGroupLayout{w.camera.layout, w.light.layout},
		colorFormat: sm.Format(),
		depthFormat: DEPTH_FORMAT,
		buffers:     []metadata.VertexBufferLayout{ModelVertexLayout()},
		program:     shaders.Light,
	})
	if err != nil {
		w.Shutdown()
		return nil, fmt.Errorf("light pipeline: %w", err)
	}

	return w, nil
}

func (w *World) createCamera(cfg CameraConfig) error {
	config := w.surface.Config()
	w.camera.camera = Camera{
		Eye:    cfg.Eye,
		Target: cfg.Target,
		Up:     cfg.Up,
		Aspect: float32(config.Width) / float32(config.Height),
		Fovy:   cfg.Fovy,
		Znear:  cfg.Znear,
		Zfar:   cfg.Zfar,
	}
	w.camera.controller = NewCameraController(cfg.Sensitivity)
	w.camera.uniform = NewCameraUniform()
	w.camera.uniform.UpdateViewProj(&w.camera.camera)

	var err error
	w.camera.layout, w.camera.buffer, w.camera.bindGroup, err = w.createUniform("camera", w.camera.uniform.Bytes())
	return err
}

func (w *World) createLight(cfg LightConfig) error {
	w.light.light = NewLight(cfg.Position, cfg.Color, cfg.DegreesPerFrame)

	var err error
	w.light.layout, w.light.buffer, w.light.bindGroup, err = w.createUniform("light", w.light.light.Uniform.Bytes())
	return err
}

// createUniform creates a uniform buffer holding contents, visible to both stages at binding 0.
func (w *World) createUniform(name string, contents []byte) (metadata.BindGroupLayout, metadata.Buffer, metadata.BindGroup, error) {
	layout, err := w.device.CreateBindGroupLayout(&metadata.BindGroupLayoutDescriptor{
		Label: name + "_bind_group_layout",
		Entries: []metadata.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: metadata.ShaderStageVertex | metadata.ShaderStageFragment,
				Type:       metadata.BindingTypeUniformBuffer,
			},
		},
	})
	if err != nil {
		return nil, nil, nil, err
	}
	buffer, err := w.device.CreateBuffer(&metadata.BufferDescriptor{
		Label:    name + " buffer",
		Usage:    metadata.BufferUsageUniform | metadata.BufferUsageCopyDst,
		Contents: contents,
	})
	if err != nil {
		layout.Destroy()
		return nil, nil, nil, err
	}
	bindGroup, err := w.device.CreateBindGroup(&metadata.BindGroupDescriptor{
		Label:  name + "_bind_group",
		Layout: layout,
		Entries: []metadata.BindGroupEntry{
			{Binding: 0, Buffer: buffer, Size: uint64(len(contents))},
		},
	})
	if err != nil {
		buffer.Destroy()
		layout.Destroy()
		return nil, nil, nil, err
	}
	return layout, buffer, bindGroup, nil
}

// Size returns the current renderable size.
func (w *World) Size() (uint32, uint32) {
	config := w.surface.Config()
	return config.Width, config.Height
}

func (w *World) SurfaceConfig() metadata.SurfaceConfiguration {
	return w.surface.Config()
}

func (w *World) DepthTexture() *Texture {
	return w.depthTexture
}

func (w *World) Camera() *Camera {
	return &w.camera.camera
}

func (w *World) Light() *Light {
	return w.light.light
}

func (w *World) Models() []*Model {
	return w.ctx.Models()
}

func (w *World) Instances() []Instance {
	return w.instances
}

func (w *World) Context() *Context {
	return w.ctx
}

/**
 * @brief Loads a model and rebuilds the instances so every model,
 * including the new one, has a transform.
 */
func (w *World) AddModel(ctx context.Context, name string, placement Area3D) error {
	if _, err := w.ctx.LoadModel(ctx, name, placement); err != nil {
		return err
	}
	return w.UpdateInstances()
}

/**
 * @brief Rebuilds the models using the changed asset. Models that fail to
 * rebuild keep their previous version.
 * @return How many models were rebuilt.
 */
func (w *World) ReloadAsset(ctx context.Context, asset string) (int, error) {
	var errs []error
	reloaded := 0
	for i, m := range w.ctx.Models() {
		if !m.Uses(asset) {
			continue
		}
		// The GPU may still read the buffers being replaced.
		if err := w.device.WaitIdle(); err != nil {
			return reloaded, err
		}
		if _, err := w.ctx.ReloadModel(ctx, i); err != nil {
			errs = append(errs, err)
			continue
		}
		reloaded++
	}
	if reloaded > 0 {
		if err := w.UpdateInstances(); err != nil {
			errs = append(errs, err)
		}
	}
	return reloaded, errors.Join(errs...)
}

/**
 * @brief Derives one instance per model and uploads them into a new
 * instance buffer that replaces the previous one.
 */
func (w *World) UpdateInstances() error {
	models := w.ctx.Models()
	instances := BuildInstances(models)
	if len(instances) == 0 {
		return nil
	}

	buffer, err := w.device.CreateBuffer(&metadata.BufferDescriptor{
		Label:    "Instance Buffer",
		Usage:    metadata.BufferUsageVertex,
		Contents: instanceBytes(instances),
	})
	if err != nil {
		return err
	}
	if w.instanceBuffer != nil {
		if err := w.device.WaitIdle(); err != nil {
			buffer.Destroy()
			return err
		}
		w.instanceBuffer.Destroy()
	}
	w.instances = instances
	w.instanceBuffer = buffer
	return nil
}

/**
 * @brief Reconfigures the surface and recreates the depth buffer. A zero
 * width or height leaves everything as it is.
 */
func (w *World) Resize(width, height uint32) error {
	changed, err := w.surface.Configure(width, height)
	if err != nil || !changed {
		return err
	}
	return w.recreateDepthTexture()
}

func (w *World) recreateDepthTexture() error {
	config := w.surface.Config()
	depth, err := NewDepthTexture(w.device, config, "depth_texture")
	if err != nil {
		return err
	}
	if w.depthTexture != nil {
		if err := w.device.WaitIdle(); err != nil {
			depth.Destroy()
			return err
		}
		w.depthTexture.Destroy()
	}
	w.depthTexture = depth
	w.camera.camera.Aspect = float32(config.Width) / float32(config.Height)
	return nil
}

// Input hands the event to the camera controller. It returns true if the event was used.
func (w *World) Input(event core.InputEvent) bool {
	return w.camera.controller.ProcessEvent(event)
}

/**
 * @brief Moves the camera and the light and writes both uniforms. Must run
 * before Render on every tick.
 */
func (w *World) Update() error {
	w.camera.controller.UpdateCamera(&w.camera.camera)
	w.camera.uniform.UpdateViewProj(&w.camera.camera)
	queue := w.device.Queue()
	if err := queue.WriteBuffer(w.camera.buffer, 0, w.camera.uniform.Bytes()); err != nil {
		return err
	}

	w.light.light.Step()
	return queue.WriteBuffer(w.light.buffer, 0, w.light.light.Uniform.Bytes())
}

/**
 * @brief Draws one frame: the light pass then the main pass over every
 * model, in loading order. Without models the frame is only cleared.
 * @return A *core.SurfaceError when no frame could be acquired.
 */
func (w *World) Render() error {
	frame, err := w.surface.AcquireFrame()
	if err != nil {
		return err
	}

	encoder, err := w.device.CreateCommandEncoder("Render Encoder")
	if err != nil {
		return err
	}
	pass, err := encoder.BeginRenderPass(&metadata.RenderPassDescriptor{
		Label: "Render Pass",
		ColorAttachments: []metadata.RenderPassColorAttachment{
			{
				View:       frame.View(),
				LoadOp:     metadata.LoadOpClear,
				StoreOp:    metadata.StoreOpStore,
				ClearValue: CLEAR_COLOR,
			},
		},
		DepthStencilAttachment: &metadata.RenderPassDepthStencilAttachment{
			View:            w.depthTexture.View,
			DepthLoadOp:     metadata.LoadOpClear,
			DepthStoreOp:    metadata.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	if err != nil {
		return err
	}

	if w.instanceBuffer != nil {
		models := w.ctx.Models()
		pass.SetVertexBuffer(1, w.instanceBuffer)

		pass.SetPipeline(w.light.pipeline)
		for i, m := range models {
			DrawLightModel(pass, m, w.camera.bindGroup, w.light.bindGroup, uint32(i))
		}

		pass.SetPipeline(w.renderPipeline)
		for i, m := range models {
			DrawModel(pass, m, w.camera.bindGroup, w.light.bindGroup, uint32(i))
		}
	}

	if err := pass.End(); err != nil {
		return err
	}
	commands, err := encoder.Finish()
	if err != nil {
		return err
	}
	if err := w.device.Queue().Submit(commands); err != nil {
		return err
	}
	return frame.Present()
}

/**
 * @brief Applies the surface error policy. Lost or outdated surfaces are
 * configured again at the current size, timeouts are logged and skipped.
 * @return The error when it is fatal (out of memory or not a surface error), otherwise nil.
 */
func (w *World) HandleSurfaceError(err error) error {
	if err == nil {
		return nil
	}
	var surfaceErr *core.SurfaceError
	if !errors.As(err, &surfaceErr) {
		return err
	}
	switch surfaceErr.Kind {
	case core.SurfaceErrorLost, core.SurfaceErrorOutdated:
		core.LogDebug("surface %s, reconfiguring", surfaceErr.Kind)
		if err := w.surface.Reconfigure(); err != nil {
			var again *core.SurfaceError
			if errors.As(err, &again) && again.Recoverable() {
				// e.g. minimized, retried on the next frame
				core.LogDebug("surface reconfigure deferred: %s", err)
				return nil
			}
			return err
		}
		return w.recreateDepthTexture()
	case core.SurfaceErrorTimeout:
		core.LogWarn("surface timeout, skipping frame")
		return nil
	default:
		return err
	}
}

func (w *World) Shutdown() {
	if w.device != nil {
		if err := w.device.WaitIdle(); err != nil {
			core.LogError("failed to wait for the device: %s", err)
		}
	}
	if w.instanceBuffer != nil {
		w.instanceBuffer.Destroy()
		w.instanceBuffer = nil
	}
	if w.ctx != nil {
		w.ctx.Destroy()
	}
	if w.renderPipeline != nil {
		w.renderPipeline.Destroy()
		w.renderPipeline = nil
	}
	if w.depthTexture != nil {
		w.depthTexture.Destroy()
		w.depthTexture = nil
	}
	for _, obj := range []interface{ Destroy() }{
		w.light.pipeline, w.light.bindGroup, w.light.buffer, w.light.layout,
		w.camera.bindGroup, w.camera.buffer, w.camera.layout,
	} {
		if obj != nil {
			obj.Destroy()
		}
	}
	w.light = lightState{light: w.light.light}
	w.camera = cameraState{camera: w.camera.camera, controller: w.camera.controller}
}
