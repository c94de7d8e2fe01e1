package renderer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/orrery/engine/assets/loaders"
	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

// fakeDevice records every object it creates and every command it receives.

type fakeObject struct {
	label     string
	destroyed bool
}

func (o *fakeObject) Destroy() { o.destroyed = true }

type fakeBuffer struct {
	fakeObject
	usage    metadata.BufferUsage
	contents []byte
}

func (b *fakeBuffer) Label() string               { return b.label }
func (b *fakeBuffer) Size() uint64                { return uint64(len(b.contents)) }
func (b *fakeBuffer) Usage() metadata.BufferUsage { return b.usage }

type fakeTexture struct {
	fakeObject
	desc   metadata.TextureDescriptor
	pixels []byte
}

func (t *fakeTexture) Label() string                  { return t.label }
func (t *fakeTexture) Size() metadata.Extent3D        { return t.desc.Size }
func (t *fakeTexture) Format() metadata.TextureFormat { return t.desc.Format }
func (t *fakeTexture) CreateView() (metadata.TextureView, error) {
	return &fakeView{fakeObject: fakeObject{label: t.label}, texture: t}, nil
}

type fakeView struct {
	fakeObject
	texture *fakeTexture
}

type fakeSampler struct {
	fakeObject
	desc metadata.SamplerDescriptor
}

type fakeLayout struct {
	fakeObject
	desc metadata.BindGroupLayoutDescriptor
}

type fakeBindGroup struct {
	fakeObject
	desc metadata.BindGroupDescriptor
}

type fakeShaderModule struct {
	fakeObject
}

type fakePipeline struct {
	fakeObject
	desc metadata.RenderPipelineDescriptor
}

type bufferWrite struct {
	buffer metadata.Buffer
	offset uint64
	data   []byte
}

type command struct {
	op        string
	slot      uint32
	pipeline  metadata.RenderPipeline
	bindGroup metadata.BindGroup
	buffer    metadata.Buffer
	// DrawIndexed arguments
	indexCount    uint32
	instanceCount uint32
	firstInstance uint32
}

type fakeDevice struct {
	buffers    []*fakeBuffer
	textures   []*fakeTexture
	samplers   []*fakeSampler
	bindGroups []*fakeBindGroup
	pipelines  []*fakePipeline
	writes     []bufferWrite
	passes     []*metadata.RenderPassDescriptor
	commands   []command
	submits    int
	waitIdle   int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{}
}

func (d *fakeDevice) CreateBuffer(desc *metadata.BufferDescriptor) (metadata.Buffer, error) {
	contents := desc.Contents
	if contents == nil {
		contents = make([]byte, desc.Size)
	}
	b := &fakeBuffer{
		fakeObject: fakeObject{label: desc.Label},
		usage:      desc.Usage,
		contents:   append([]byte(nil), contents...),
	}
	d.buffers = append(d.buffers, b)
	return b, nil
}

func (d *fakeDevice) CreateTexture(desc *metadata.TextureDescriptor) (metadata.Texture, error) {
	t := &fakeTexture{fakeObject: fakeObject{label: desc.Label}, desc: *desc}
	d.textures = append(d.textures, t)
	return t, nil
}

func (d *fakeDevice) CreateSampler(desc *metadata.SamplerDescriptor) (metadata.Sampler, error) {
	s := &fakeSampler{fakeObject: fakeObject{label: desc.Label}, desc: *desc}
	d.samplers = append(d.samplers, s)
	return s, nil
}

func (d *fakeDevice) CreateBindGroupLayout(desc *metadata.BindGroupLayoutDescriptor) (metadata.BindGroupLayout, error) {
	return &fakeLayout{fakeObject: fakeObject{label: desc.Label}, desc: *desc}, nil
}

func (d *fakeDevice) CreateBindGroup(desc *metadata.BindGroupDescriptor) (metadata.BindGroup, error) {
	g := &fakeBindGroup{fakeObject: fakeObject{label: desc.Label}, desc: *desc}
	d.bindGroups = append(d.bindGroups, g)
	return g, nil
}

func (d *fakeDevice) CreateShaderModule(desc *metadata.ShaderModuleDescriptor) (metadata.ShaderModule, error) {
	if len(desc.Code) == 0 || desc.Code[0] != loaders.SPIRV_MAGIC {
		return nil, fmt.Errorf("shader `%s` is not spir-v", desc.Label)
	}
	return &fakeShaderModule{fakeObject: fakeObject{label: desc.Label}}, nil
}

func (d *fakeDevice) CreateRenderPipeline(desc *metadata.RenderPipelineDescriptor) (metadata.RenderPipeline, error) {
	p := &fakePipeline{fakeObject: fakeObject{label: desc.Label}, desc: *desc}
	d.pipelines = append(d.pipelines, p)
	return p, nil
}

func (d *fakeDevice) CreateCommandEncoder(label string) (metadata.CommandEncoder, error) {
	return &fakeEncoder{device: d}, nil
}

func (d *fakeDevice) Queue() metadata.Queue {
	return &fakeQueue{device: d}
}

func (d *fakeDevice) WaitIdle() error {
	d.waitIdle++
	return nil
}

func (d *fakeDevice) pipeline(label string) *fakePipeline {
	for _, p := range d.pipelines {
		if p.label == label {
			return p
		}
	}
	return nil
}

func (d *fakeDevice) draws() []command {
	var out []command
	for _, c := range d.commands {
		if c.op == "DrawIndexed" {
			out = append(out, c)
		}
	}
	return out
}

type fakeQueue struct {
	device *fakeDevice
}

func (q *fakeQueue) WriteBuffer(buffer metadata.Buffer, offset uint64, data []byte) error {
	q.device.writes = append(q.device.writes, bufferWrite{buffer: buffer, offset: offset, data: append([]byte(nil), data...)})
	fb := buffer.(*fakeBuffer)
	copy(fb.contents[offset:], data)
	return nil
}

func (q *fakeQueue) WriteTexture(texture metadata.Texture, data []byte, layout metadata.TextureDataLayout) error {
	texture.(*fakeTexture).pixels = append([]byte(nil), data...)
	return nil
}

func (q *fakeQueue) Submit(commands ...metadata.CommandBuffer) error {
	q.device.submits++
	return nil
}

type fakeEncoder struct {
	device *fakeDevice
}

func (e *fakeEncoder) BeginRenderPass(desc *metadata.RenderPassDescriptor) (metadata.RenderPass, error) {
	e.device.passes = append(e.device.passes, desc)
	e.device.commands = append(e.device.commands, command{op: "BeginRenderPass"})
	return &fakeRenderPass{device: e.device}, nil
}

func (e *fakeEncoder) Finish() (metadata.CommandBuffer, error) {
	return struct{}{}, nil
}

type fakeRenderPass struct {
	device *fakeDevice
}

func (p *fakeRenderPass) record(c command) {
	p.device.commands = append(p.device.commands, c)
}

func (p *fakeRenderPass) SetPipeline(pipeline metadata.RenderPipeline) {
	p.record(command{op: "SetPipeline", pipeline: pipeline})
}

func (p *fakeRenderPass) SetBindGroup(index uint32, group metadata.BindGroup) {
	p.record(command{op: "SetBindGroup", slot: index, bindGroup: group})
}

func (p *fakeRenderPass) SetVertexBuffer(slot uint32, buffer metadata.Buffer) {
	p.record(command{op: "SetVertexBuffer", slot: slot, buffer: buffer})
}

func (p *fakeRenderPass) SetIndexBuffer(buffer metadata.Buffer, format metadata.IndexFormat) {
	p.record(command{op: "SetIndexBuffer", buffer: buffer})
}

func (p *fakeRenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.record(command{op: "DrawIndexed", indexCount: indexCount, instanceCount: instanceCount, firstInstance: firstInstance})
}

func (p *fakeRenderPass) End() error {
	p.record(command{op: "End"})
	return nil
}

type fakeFrame struct {
	surface *fakeSurface
	view    *fakeView
}

func (f *fakeFrame) View() metadata.TextureView { return f.view }
func (f *fakeFrame) Present() error {
	f.surface.presented++
	return nil
}

type fakeSurface struct {
	configs   []metadata.SurfaceConfiguration
	acquire   []error
	presented int
}

func (s *fakeSurface) PreferredFormat() metadata.TextureFormat {
	return metadata.TextureFormatBGRA8UnormSrgb
}

func (s *fakeSurface) Configure(config *metadata.SurfaceConfiguration) error {
	s.configs = append(s.configs, *config)
	return nil
}

// AcquireFrame fails with the scripted errors first, then succeeds.
func (s *fakeSurface) AcquireFrame() (metadata.Frame, error) {
	if len(s.acquire) > 0 {
		err := s.acquire[0]
		s.acquire = s.acquire[1:]
		return nil, err
	}
	return &fakeFrame{surface: s, view: &fakeView{fakeObject: fakeObject{label: "swapchain"}}}, nil
}

// fakeAssets serves files from memory.
type fakeAssets struct {
	files map[string][]byte
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{files: make(map[string][]byte)}
}

func (a *fakeAssets) LoadBinary(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := a.files[name]
	if !ok {
		return nil, core.NewResourceError(name, core.ResourceStageRead, core.ErrAssetNotFound)
	}
	return data, nil
}

func (a *fakeAssets) LoadString(ctx context.Context, name string) (string, error) {
	data, err := a.LoadBinary(ctx, name)
	return string(data), err
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

const cubeOBJ = `mtllib cube.mtl
o Cube
v -1 -1 1
v 1 -1 1
v 1 1 1
v -1 1 1
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
usemtl Skin
f 1/1/1 2/2/1 3/3/1 4/4/1
o Stem
f 1/1/1 3/3/1 4/4/1
`

const cubeMTL = `newmtl Skin
Kd 1 1 0
map_Kd skin.png
`

// sceneAssets holds a textured two mesh model and one without any material.
func sceneAssets(t *testing.T) *fakeAssets {
	t.Helper()
	a := newFakeAssets()
	a.files["cube.obj"] = []byte(cubeOBJ)
	a.files["cube.mtl"] = []byte(cubeMTL)
	a.files["skin.png"] = pngBytes(t, 4, 2, color.NRGBA{R: 255, G: 200, A: 255})
	a.files["bare.obj"] = []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n")
	return a
}

func testShaders() *Shaders {
	code := []uint32{loaders.SPIRV_MAGIC, 0x00010000}
	return &Shaders{
		Main:  ShaderProgram{Name: "shader", Vertex: code, Fragment: code},
		Light: ShaderProgram{Name: "light", Vertex: code, Fragment: code},
	}
}

type testWorld struct {
	*World
	device  *fakeDevice
	surface *fakeSurface
	assets  *fakeAssets
}

func newTestWorld(t *testing.T) *testWorld {
	t.Helper()
	device := newFakeDevice()
	surface := &fakeSurface{}
	assets := sceneAssets(t)
	cfg := DefaultWorldConfig()
	cfg.Width, cfg.Height = 800, 600
	w, err := NewWorld(device, surface, assets, testShaders(), cfg)
	require.NoError(t, err)
	return &testWorld{World: w, device: device, surface: surface, assets: assets}
}
