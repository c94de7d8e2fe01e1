package loaders

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/orrery/engine/core"
)

/**
 * @brief Decodes encoded image bytes (png, jpeg, gif, bmp, tiff, webp)
 * into a tightly packed 8 bit RGBA pixel grid with straight alpha.
 */
func DecodeImage(data []byte) (*image.NRGBA, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnsupportedFormat, err)
	}

	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty %s image", core.ErrUnsupportedFormat, format)
	}

	if nrgba, ok := src.(*image.NRGBA); ok && nrgba.Stride == 4*bounds.Dx() && bounds.Min == (image.Point{}) {
		return nrgba, nil
	}

	// Drawing into NRGBA undoes the premultiplication of other sources.
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return dst, nil
}
