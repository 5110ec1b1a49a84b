package debug

import (
	"image"
	"image/color"

	"github.com/Faultbox/arcanus/internal/engine/sprite"
)

// GridColor is the default colour of tile grid lines, a translucent white.
var GridColor = color.RGBA{96, 96, 96, 96}

// DrawTileGrid overlays cell boundaries every tileWidth x tileHeight pixels,
// blending c over what is already drawn. Each pixel is blended once, so
// line crossings are no darker than the lines.
func DrawTileGrid(img *image.RGBA, tileWidth, tileHeight int, c color.RGBA) {
	if tileWidth <= 0 || tileHeight <= 0 {
		return
	}
	b := img.Bounds()

	for y := b.Min.Y; y < b.Max.Y; y += tileHeight {
		sprite.Fill(img, image.Rect(b.Min.X, y, b.Max.X, y+1), c)

		// Vertical segments stop short of the horizontal lines.
		bottom := min(y+tileHeight, b.Max.Y)
		for x := b.Min.X; x < b.Max.X; x += tileWidth {
			sprite.Fill(img, image.Rect(x, y+1, x+1, bottom), c)
		}
	}
}
