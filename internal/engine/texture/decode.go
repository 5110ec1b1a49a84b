// Package texture decodes tile and sprite images into RGBA bitmaps.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// ErrUnsupportedFormat is returned for files whose extension is not a known image type.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Decode decodes an image file based on its extension.
// BMP files have no alpha channel, so the magenta transparency key is applied to them.
func Decode(name string, data []byte) (*image.RGBA, error) {
	var (
		img image.Image
		err error
	)

	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		img, err = png.Decode(bytes.NewReader(data))
	case ".bmp":
		img, err = bmp.Decode(bytes.NewReader(data))
		if err == nil {
			rgba := ImageToRGBA(img)
			ApplyMagentaKey(rgba)
			return rgba, nil
		}
	case ".tga":
		return DecodeTGA(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return ImageToRGBA(img), nil
}

// IsMagentaKey checks if an RGB color matches the magenta transparency key.
// Uses tolerance (R >= 250, G <= 10, B >= 250) to handle palette rounding.
func IsMagentaKey(r, g, b uint8) bool {
	return r >= 250 && g <= 10 && b >= 250
}

// ApplyMagentaKey modifies an RGBA image in-place, making magenta pixels transparent.
func ApplyMagentaKey(img *image.RGBA) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := img.PixOffset(x, y)
			if IsMagentaKey(img.Pix[i], img.Pix[i+1], img.Pix[i+2]) {
				img.Pix[i] = 0
				img.Pix[i+1] = 0
				img.Pix[i+2] = 0
				img.Pix[i+3] = 0
			}
		}
	}
}

// ImageToRGBA converts any image to a zero-origin *image.RGBA.
func ImageToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// Solid returns a w x h image filled with c. Useful as a placeholder sprite.
func Solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}
