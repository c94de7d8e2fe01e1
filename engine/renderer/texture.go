package renderer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/spaghettifunk/orrery/engine/assets/loaders"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

const DEPTH_FORMAT = metadata.TextureFormatDepth32Float

/**
 * @brief A GPU texture together with the view and sampler used to read it.
 */
type Texture struct {
	Texture metadata.Texture
	View    metadata.TextureView
	Sampler metadata.Sampler
}

func (t *Texture) Destroy() {
	if t.Sampler != nil {
		t.Sampler.Destroy()
	}
	if t.View != nil {
		t.View.Destroy()
	}
	if t.Texture != nil {
		t.Texture.Destroy()
	}
}

/**
 * @brief Creates the depth attachment matching the surface size.
 * @param device The device.
 * @param config The current surface configuration.
 * @param label Debug name.
 */
func NewDepthTexture(device metadata.Device, config metadata.SurfaceConfiguration, label string) (*Texture, error) {
	if config.Width == 0 || config.Height == 0 {
		return nil, fmt.Errorf("depth texture `%s` cannot be %dx%d", label, config.Width, config.Height)
	}
	texture, err := device.CreateTexture(&metadata.TextureDescriptor{
		Label: label,
		Size: metadata.Extent3D{
			Width:              config.Width,
			Height:             config.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Format:        DEPTH_FORMAT,
		Usage:         metadata.TextureUsageRenderAttachment | metadata.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, err
	}
	sampler, err := device.CreateSampler(&metadata.SamplerDescriptor{
		Label:        label,
		AddressModeU: metadata.AddressModeClampToEdge,
		AddressModeV: metadata.AddressModeClampToEdge,
		AddressModeW: metadata.AddressModeClampToEdge,
		MagFilter:    metadata.FilterModeLinear,
		MinFilter:    metadata.FilterModeLinear,
		MipmapFilter: metadata.FilterModeNearest,
		Compare:      metadata.CompareFunctionLessEqual,
		LodMinClamp:  -100.0,
		LodMaxClamp:  100.0,
	})
	if err != nil {
		texture.Destroy()
		return nil, err
	}
	return finishTexture(texture, sampler)
}

// NewTextureFromBytes decodes an encoded image and uploads it.
func NewTextureFromBytes(device metadata.Device, data []byte, label string) (*Texture, error) {
	img, err := loaders.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return NewTextureFromImage(device, img, label)
}

/**
 * @brief Uploads the image as a sampled sRGB texture. Magnification is
 * linear, minification and mip selection are nearest.
 */
func NewTextureFromImage(device metadata.Device, img *image.NRGBA, label string) (*Texture, error) {
	bounds := img.Bounds()
	size := metadata.Extent3D{
		Width:              uint32(bounds.Dx()),
		Height:             uint32(bounds.Dy()),
		DepthOrArrayLayers: 1,
	}
	if size.Width == 0 || size.Height == 0 {
		return nil, fmt.Errorf("texture `%s` has no pixels", label)
	}

	texture, err := device.CreateTexture(&metadata.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Format:        metadata.TextureFormatRGBA8UnormSrgb,
		Usage:         metadata.TextureUsageTextureBinding | metadata.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	if err := device.Queue().WriteTexture(texture, img.Pix, metadata.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(img.Stride),
		RowsPerImage: size.Height,
	}); err != nil {
		texture.Destroy()
		return nil, err
	}

	sampler, err := device.CreateSampler(&metadata.SamplerDescriptor{
		Label:        label,
		AddressModeU: metadata.AddressModeClampToEdge,
		AddressModeV: metadata.AddressModeClampToEdge,
		AddressModeW: metadata.AddressModeClampToEdge,
		MagFilter:    metadata.FilterModeLinear,
		MinFilter:    metadata.FilterModeNearest,
		MipmapFilter: metadata.FilterModeNearest,
		LodMaxClamp:  32.0,
	})
	if err != nil {
		texture.Destroy()
		return nil, err
	}
	return finishTexture(texture, sampler)
}

// NewSolidTexture creates a 1x1 texture, used by materials without a diffuse map.
func NewSolidTexture(device metadata.Device, c color.NRGBA, label string) (*Texture, error) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, c)
	return NewTextureFromImage(device, img, label)
}

func finishTexture(texture metadata.Texture, sampler metadata.Sampler) (*Texture, error) {
	view, err := texture.CreateView()
	if err != nil {
		sampler.Destroy()
		texture.Destroy()
		return nil, err
	}
	return &Texture{
		Texture: texture,
		View:    view,
		Sampler: sampler,
	}, nil
}
