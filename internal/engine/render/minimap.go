package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/Faultbox/arcanus/internal/assets"
)

// MiniMapRenderer draws one pixel per map cell.
type MiniMapRenderer struct {
	ctx *Context
}

// NewMiniMapRenderer creates a minimap renderer over ctx.
func NewMiniMapRenderer(ctx *Context) *MiniMapRenderer {
	return &MiniMapRenderer{ctx: ctx}
}

// RenderMiniMap returns a map-sized bitmap for plane. Cities show their
// owner's flag colour, scouted terrain its minimap colour, and unscouted
// cells stay transparent. Nothing is cached.
func (r *MiniMapRenderer) RenderMiniMap(plane int) (*image.RGBA, error) {
	topo := r.ctx.Map.Topology()
	if plane < 0 || plane >= topo.Depth {
		return nil, fmt.Errorf("%w: plane %d", ErrInvalidViewport, plane)
	}

	out := image.NewRGBA(image.Rect(0, 0, topo.Width, topo.Height))
	for y := 0; y < topo.Height; y++ {
		for x := 0; x < topo.Width; x++ {
			cell, ok := r.ctx.Map.Cell(plane, x, y)
			if !ok {
				continue
			}

			var c color.RGBA
			switch {
			case cell.City != nil:
				flag, err := r.ctx.Players.FlagColor(cell.City.Owner)
				if err != nil {
					return nil, fmt.Errorf("minimap city at %d,%d: %w", x, y, err)
				}
				c = flag
			case cell.Scouted():
				tt, err := r.ctx.Catalog.TileType(cell.TerrainType)
				if err != nil {
					return nil, fmt.Errorf("minimap: %w", err)
				}
				mc, ok := tt.MiniMapColor(plane)
				if !ok {
					return nil, fmt.Errorf("%w: tile type %s has no minimap colour on plane %d", assets.ErrAssetNotFound, tt.ID, plane)
				}
				c = mc
			default:
				continue
			}
			out.SetRGBA(x, y, c)
		}
	}
	return out, nil
}
