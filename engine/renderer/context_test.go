package renderer

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

func newTestContext(t *testing.T) (*Context, *fakeDevice, *fakeAssets) {
	t.Helper()
	device := newFakeDevice()
	assets := sceneAssets(t)
	c, err := NewContext(device, assets)
	require.NoError(t, err)
	return c, device, assets
}

func TestLoadTexture(t *testing.T) {
	c, device, _ := newTestContext(t)

	tex, err := c.LoadTexture(context.Background(), "skin.png")
	require.NoError(t, err)

	require.Len(t, device.textures, 1)
	ft := device.textures[0]
	assert.Equal(t, metadata.TextureFormatRGBA8UnormSrgb, ft.desc.Format)
	assert.Equal(t, metadata.Extent3D{Width: 4, Height: 2, DepthOrArrayLayers: 1}, ft.desc.Size)
	require.Len(t, ft.pixels, 4*2*4)
	assert.Equal(t, []byte{255, 200, 0, 255}, ft.pixels[:4])

	sampler := tex.Sampler.(*fakeSampler)
	assert.Equal(t, metadata.FilterModeLinear, sampler.desc.MagFilter)
	assert.Equal(t, metadata.FilterModeNearest, sampler.desc.MinFilter)
	assert.Equal(t, metadata.AddressModeClampToEdge, sampler.desc.AddressModeU)
}

func TestLoadTextureErrorsByStage(t *testing.T) {
	c, _, assets := newTestContext(t)
	assets.files["broken.png"] = []byte("not an image")

	cases := []struct {
		name  string
		stage core.ResourceStage
		err   error
	}{
		{"missing.png", core.ResourceStageRead, core.ErrAssetNotFound},
		{"broken.png", core.ResourceStageDecode, core.ErrUnsupportedFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.LoadTexture(context.Background(), tc.name)
			var resErr *core.ResourceError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, tc.name, resErr.Name)
			assert.Equal(t, tc.stage, resErr.Stage)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestCreateBindGroupUsesTextureAndSampler(t *testing.T) {
	c, device, _ := newTestContext(t)
	tex, err := NewSolidTexture(device, color.NRGBA{A: 255}, "black")
	require.NoError(t, err)

	bg, err := c.CreateBindGroup(tex)
	require.NoError(t, err)
	desc := bg.(*fakeBindGroup).desc
	assert.Equal(t, c.Layout(), desc.Layout)
	require.Len(t, desc.Entries, 2)
	assert.Equal(t, tex.View, desc.Entries[0].TextureView)
	assert.Equal(t, tex.Sampler, desc.Entries[1].Sampler)
}

func TestLoadModelBuildsMeshesAndMaterials(t *testing.T) {
	c, device, _ := newTestContext(t)

	model, err := c.LoadModel(context.Background(), "cube.obj", Area3D{X: 1})
	require.NoError(t, err)

	assert.Equal(t, "cube.obj", model.Name)
	assert.Equal(t, Area3D{X: 1}, model.Placement)
	assert.ElementsMatch(t, []string{"cube.obj", "cube.mtl", "skin.png"}, model.Sources)
	assert.True(t, model.Uses("skin.png"))
	assert.False(t, model.Uses("bare.obj"))

	require.Len(t, model.Materials, 1)
	assert.Equal(t, "Skin", model.Materials[0].Name)
	assert.NotNil(t, model.Materials[0].BindGroup)

	require.Len(t, model.Meshes, 2)
	assert.Equal(t, "Cube", model.Meshes[0].Name)
	assert.Equal(t, uint32(6), model.Meshes[0].NumElements)
	assert.Equal(t, uint32(3), model.Meshes[1].NumElements)
	for _, mesh := range model.Meshes {
		assert.Equal(t, 0, mesh.Material)
		assert.Equal(t, uint64(mesh.NumElements*4), mesh.IndexBuffer.Size())
		assert.Zero(t, mesh.VertexBuffer.Size()%MODEL_VERTEX_SIZE)
	}

	assert.Equal(t, []*Model{model}, c.Models())
	assert.NotEmpty(t, device.bindGroups)
}

func TestMeshWithoutMaterialUsesDefault(t *testing.T) {
	c, device, _ := newTestContext(t)

	model, err := c.LoadModel(context.Background(), "bare.obj", Area3D{})
	require.NoError(t, err)

	require.Len(t, model.Materials, 1)
	assert.Equal(t, DEFAULT_MATERIAL_NAME, model.Materials[0].Name)
	require.Len(t, model.Meshes, 1)
	assert.Equal(t, 0, model.Meshes[0].Material)
	assert.Equal(t, uint32(3), model.Meshes[0].NumElements)

	// the default material samples a single white texel
	white := device.textures[len(device.textures)-1]
	assert.Equal(t, []byte{255, 255, 255, 255}, white.pixels)
}

func TestLoadModelErrors(t *testing.T) {
	c, _, assets := newTestContext(t)
	assets.files["nomtl.obj"] = []byte("mtllib gone.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n")
	assets.files["badtex.obj"] = []byte("mtllib badtex.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl Bad\nf 1 2 3\n")
	assets.files["badtex.mtl"] = []byte("newmtl Bad\nmap_Kd bad.png\n")
	assets.files["bad.png"] = []byte("garbage")

	cases := []struct {
		model string
		name  string
		stage core.ResourceStage
	}{
		{"missing.obj", "missing.obj", core.ResourceStageRead},
		{"nomtl.obj", "gone.mtl", core.ResourceStageRead},
		{"badtex.obj", "bad.png", core.ResourceStageDecode},
	}
	for _, tc := range cases {
		t.Run(tc.model, func(t *testing.T) {
			_, err := c.LoadModel(context.Background(), tc.model, Area3D{})
			var resErr *core.ResourceError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, tc.name, resErr.Name)
			assert.Equal(t, tc.stage, resErr.Stage)
		})
	}
	assert.Empty(t, c.Models())
}

func TestLoadModelHonorsCancelledContext(t *testing.T) {
	c, _, _ := newTestContext(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.LoadModel(ctx, "cube.obj", Area3D{})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, c.Models())
}

func TestResolveMaterialIndex(t *testing.T) {
	id, err := resolveMaterialIndex(-1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	id, err = resolveMaterialIndex(2, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	_, err = resolveMaterialIndex(3, 3)
	assert.ErrorIs(t, err, core.ErrInvalidMaterialIndex)
}

func TestReloadModelSwapsInPlace(t *testing.T) {
	c, _, assets := newTestContext(t)
	ctx := context.Background()

	first, err := c.LoadModel(ctx, "bare.obj", Area3D{Y: 2})
	require.NoError(t, err)
	_, err = c.ReloadModel(ctx, 1)
	assert.Error(t, err)

	assets.files["bare.obj"] = []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nv 1 1 0\nf 1 2 3\nf 2 4 3\n")
	second, err := c.ReloadModel(ctx, 0)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, Area3D{Y: 2}, second.Placement)
	assert.Equal(t, uint32(6), second.Meshes[0].NumElements)
	assert.Equal(t, []*Model{second}, c.Models())
	assert.Nil(t, first.Meshes)
}
