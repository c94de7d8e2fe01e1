package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/orrery/engine/assets/loaders"
	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

// Name of the material given to models whose files define none.
const DEFAULT_MATERIAL_NAME = "default"

/**
 * @brief Where the renderer reads its files from. Names are relative to
 * the assets directory.
 */
type AssetSource interface {
	LoadBinary(ctx context.Context, name string) ([]byte, error)
	LoadString(ctx context.Context, name string) (string, error)
}

/**
 * @brief Turns asset files into GPU resident models and owns every model
 * loaded so far. Uploads happen on the calling goroutine.
 */
type Context struct {
	device metadata.Device
	assets AssetSource
	// layout of every material bind group: {0: texture, 1: sampler}
	layout metadata.BindGroupLayout
	models []*Model
}

func NewContext(device metadata.Device, assets AssetSource) (*Context, error) {
	layout, err := device.CreateBindGroupLayout(&metadata.BindGroupLayoutDescriptor{
		Label: "texture_bind_group_layout",
		Entries: []metadata.BindGroupLayoutEntry{
			{Binding: 0, Visibility: metadata.ShaderStageFragment, Type: metadata.BindingTypeSampledTexture},
			{Binding: 1, Visibility: metadata.ShaderStageFragment, Type: metadata.BindingTypeFilteringSampler},
		},
	})
	if err != nil {
		return nil, err
	}
	return &Context{
		device: device,
		assets: assets,
		layout: layout,
	}, nil
}

func (c *Context) Layout() metadata.BindGroupLayout {
	return c.layout
}

// Models returns the loaded models in loading order.
func (c *Context) Models() []*Model {
	return c.models
}

func (c *Context) Destroy() {
	for _, m := range c.models {
		m.Destroy()
	}
	c.models = nil
	if c.layout != nil {
		c.layout.Destroy()
		c.layout = nil
	}
}

// LoadTexture reads, decodes and uploads the named image.
func (c *Context) LoadTexture(ctx context.Context, name string) (*Texture, error) {
	data, err := c.assets.LoadBinary(ctx, name)
	if err != nil {
		return nil, resourceError(name, core.ResourceStageRead, err)
	}
	img, err := loaders.DecodeImage(data)
	if err != nil {
		return nil, resourceError(name, core.ResourceStageDecode, err)
	}
	tex, err := NewTextureFromImage(c.device, img, name)
	if err != nil {
		return nil, resourceError(name, core.ResourceStageUpload, err)
	}
	return tex, nil
}

// CreateBindGroup binds the texture view at slot 0 and its sampler at slot 1.
func (c *Context) CreateBindGroup(texture *Texture) (metadata.BindGroup, error) {
	return c.device.CreateBindGroup(&metadata.BindGroupDescriptor{
		Layout: c.layout,
		Entries: []metadata.BindGroupEntry{
			{Binding: 0, TextureView: texture.View},
			{Binding: 1, Sampler: texture.Sampler},
		},
	})
}

/**
 * @brief Loads a model and appends it to the collection.
 * @param ctx Cancels reading and decoding.
 * @param name The model file, relative to the assets directory.
 * @param placement Where the model sits in the world.
 * @return The new model, or a *core.ResourceError.
 */
func (c *Context) LoadModel(ctx context.Context, name string, placement Area3D) (*Model, error) {
	model, err := c.buildModel(ctx, name, placement)
	if err != nil {
		return nil, err
	}
	c.models = append(c.models, model)
	return model, nil
}

/**
 * @brief Builds the model at index again from its files and swaps it in.
 * The placement is kept. On failure the old model stays in place.
 */
func (c *Context) ReloadModel(ctx context.Context, index int) (*Model, error) {
	if index < 0 || index >= len(c.models) {
		return nil, fmt.Errorf("no model at index %d", index)
	}
	old := c.models[index]
	model, err := c.buildModel(ctx, old.Name, old.Placement)
	if err != nil {
		return nil, err
	}
	c.models[index] = model
	old.Destroy()
	return model, nil
}

func (c *Context) buildModel(ctx context.Context, name string, placement Area3D) (*Model, error) {
	start := time.Now()

	text, err := c.assets.LoadString(ctx, name)
	if err != nil {
		return nil, resourceError(name, core.ResourceStageRead, err)
	}

	dir := path.Dir(name)
	sources := []string{name}
	obj, err := loaders.DecodeOBJ(ctx, text, func(ctx context.Context, lib string) (string, error) {
		libName := path.Join(dir, lib)
		sources = append(sources, libName)
		return c.assets.LoadString(ctx, libName)
	})
	if err != nil {
		return nil, resourceError(name, core.ResourceStageParse, err)
	}

	materialCount := len(obj.Materials)
	if materialCount == 0 {
		materialCount = 1
	}
	// Validate before uploading anything.
	materialIDs := make([]int, len(obj.Meshes))
	for i := range obj.Meshes {
		id, err := resolveMaterialIndex(obj.Meshes[i].MaterialID, materialCount)
		if err != nil {
			return nil, resourceError(name, core.ResourceStageParse, fmt.Errorf("mesh `%s`: %w", obj.Meshes[i].Name, err))
		}
		materialIDs[i] = id
	}

	images, err := c.decodeDiffuseImages(ctx, dir, obj.Materials)
	if err != nil {
		return nil, err
	}

	model := &Model{
		ID:        core.NewIdentifier(),
		Name:      name,
		Placement: placement,
	}

	if len(obj.Materials) == 0 {
		mat, err := c.newMaterial(DEFAULT_MATERIAL_NAME, nil)
		if err != nil {
			return nil, resourceError(name, core.ResourceStageBind, err)
		}
		model.Materials = append(model.Materials, mat)
	}
	for i, m := range obj.Materials {
		var img *image.NRGBA
		if images[i] != nil {
			img = images[i].img
			sources = append(sources, images[i].name)
		}
		mat, err := c.newMaterial(m.Name, img)
		if err != nil {
			model.Destroy()
			return nil, resourceError(name, core.ResourceStageBind, err)
		}
		model.Materials = append(model.Materials, mat)
	}

	for i := range obj.Meshes {
		mesh, err := c.newMesh(model, &obj.Meshes[i], materialIDs[i])
		if err != nil {
			model.Destroy()
			return nil, resourceError(name, core.ResourceStageUpload, err)
		}
		model.Meshes = append(model.Meshes, mesh)
	}
	model.Sources = sources

	core.LogInfo("loaded model `%s`: %d meshes, %d materials in %s", name, len(model.Meshes), len(model.Materials), time.Since(start))
	return model, nil
}

type decodedImage struct {
	name string
	img  *image.NRGBA
}

// decodeDiffuseImages reads and decodes every diffuse map concurrently.
// The result is indexed like materials; entries without a map are nil.
func (c *Context) decodeDiffuseImages(ctx context.Context, dir string, materials []loaders.Material) ([]*decodedImage, error) {
	images := make([]*decodedImage, len(materials))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range materials {
		if m.DiffuseTexture == "" {
			continue
		}
		textureName := path.Join(dir, m.DiffuseTexture)
		g.Go(func() error {
			data, err := c.assets.LoadBinary(gctx, textureName)
			if err != nil {
				return resourceError(textureName, core.ResourceStageRead, err)
			}
			img, err := loaders.DecodeImage(data)
			if err != nil {
				return resourceError(textureName, core.ResourceStageDecode, err)
			}
			images[i] = &decodedImage{name: textureName, img: img}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func (c *Context) newMaterial(name string, img *image.NRGBA) (*Material, error) {
	var (
		tex *Texture
		err error
	)
	if img != nil {
		tex, err = NewTextureFromImage(c.device, img, name)
	} else {
		tex, err = NewSolidTexture(c.device, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, name)
	}
	if err != nil {
		return nil, err
	}
	bindGroup, err := c.CreateBindGroup(tex)
	if err != nil {
		tex.Destroy()
		return nil, err
	}
	return &Material{
		Name:           name,
		DiffuseTexture: tex,
		BindGroup:      bindGroup,
	}, nil
}

func (c *Context) newMesh(model *Model, m *loaders.OBJMesh, material int) (*Mesh, error) {
	count := m.VertexCount()
	vertices := make([]ModelVertex, count)
	for i := 0; i < count; i++ {
		v := &vertices[i]
		copy(v.Position[:], m.Positions[i*3:i*3+3])
		if len(m.Texcoords) >= (i+1)*2 {
			copy(v.TexCoords[:], m.Texcoords[i*2:i*2+2])
		}
		if len(m.Normals) >= (i+1)*3 {
			copy(v.Normal[:], m.Normals[i*3:i*3+3])
		}
	}

	vertexBuffer, err := c.device.CreateBuffer(&metadata.BufferDescriptor{
		Label:    core.Label(model.Name, m.Name+" vertex", model.ID),
		Usage:    metadata.BufferUsageVertex,
		Contents: vertexBytes(vertices),
	})
	if err != nil {
		return nil, err
	}
	indexBuffer, err := c.device.CreateBuffer(&metadata.BufferDescriptor{
		Label:    core.Label(model.Name, m.Name+" index", model.ID),
		Usage:    metadata.BufferUsageIndex,
		Contents: putUint32s(make([]byte, 0, len(m.Indices)*4), m.Indices...),
	})
	if err != nil {
		vertexBuffer.Destroy()
		return nil, err
	}
	return &Mesh{
		Name:         m.Name,
		VertexBuffer: vertexBuffer,
		IndexBuffer:  indexBuffer,
		NumElements:  uint32(len(m.Indices)),
		Material:     material,
	}, nil
}

// resolveMaterialIndex maps a parsed material id to an index into a list of
// count materials. Meshes without a material use the first one.
func resolveMaterialIndex(id int, count int) (int, error) {
	if id < 0 {
		id = 0
	}
	if id >= count {
		return 0, fmt.Errorf("%w: %d of %d", core.ErrInvalidMaterialIndex, id, count)
	}
	return id, nil
}

// resourceError wraps err unless it already names the failing asset.
func resourceError(name string, stage core.ResourceStage, err error) error {
	var resErr *core.ResourceError
	if errors.As(err, &resErr) {
		return err
	}
	return core.NewResourceError(name, stage, err)
}
