// Package sprite provides sprite compositing utilities for RGBA bitmaps.
package sprite

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// DrawAt composites src over dst with its top-left corner at (x, y).
// Parts falling outside dst are clipped.
func DrawAt(dst *image.RGBA, src image.Image, x, y int) {
	b := src.Bounds()
	r := image.Rect(x, y, x+b.Dx(), y+b.Dy())
	draw.Draw(dst, r, src, b.Min, draw.Over)
}

// DrawCentered composites src over dst centred on cell. Sprites larger than
// the cell spill evenly over its edges.
func DrawCentered(dst *image.RGBA, src image.Image, cell image.Rectangle) {
	b := src.Bounds()
	x := cell.Min.X + (cell.Dx()-b.Dx())/2
	y := cell.Min.Y + (cell.Dy()-b.Dy())/2
	DrawAt(dst, src, x, y)
}

// CenterOffset returns where the top-left of a w x h sprite lands when centred on cell.
func CenterOffset(w, h int, cell image.Rectangle) image.Point {
	return image.Pt(cell.Min.X+(cell.Dx()-w)/2, cell.Min.Y+(cell.Dy()-h)/2)
}

// Fill composites a flat colour over r.
func Fill(dst *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// Tint multiplies every pixel of src by c, keeping src's alpha.
// Greyscale art authored in white becomes c; darker shades stay proportionally darker.
func Tint(src *image.RGBA, c color.RGBA) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			si := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := out.PixOffset(x, y)

			a := src.Pix[si+3]
			if a == 0 {
				continue
			}
			out.Pix[di] = mul(src.Pix[si], c.R)
			out.Pix[di+1] = mul(src.Pix[si+1], c.G)
			out.Pix[di+2] = mul(src.Pix[si+2], c.B)
			out.Pix[di+3] = a
		}
	}

	return out
}

func mul(a, b uint8) uint8 {
	return uint8((uint16(a)*uint16(b) + 127) / 255)
}
