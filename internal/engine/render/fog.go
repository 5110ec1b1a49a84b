package render

import (
	"fmt"
	"image"
	"image/color"

	"go.uber.org/zap"

	"github.com/Faultbox/arcanus/internal/assets/catalog"
	"github.com/Faultbox/arcanus/internal/engine/sprite"
	"github.com/Faultbox/arcanus/internal/engine/terrain"
	"github.com/Faultbox/arcanus/internal/logger"
	"github.com/Faultbox/arcanus/internal/world"
	"github.com/Faultbox/arcanus/pkg/grid"
)

// PartialFogColor covers remembered cells that need no boundary art.
var PartialFogColor = color.RGBA{A: 128}

// Fog bitmask digits: a neighbour on the same side of the boundary, or off
// the map, is fogInside. A mask of only fogInside needs no art.
const (
	fogEdge   byte = '0'
	fogInside byte = '1'
)

// FogRenderer draws the fog of war overlay.
type FogRenderer struct {
	ctx *Context
	log *zap.Logger
}

// NewFogRenderer creates a fog renderer over ctx.
func NewFogRenderer(ctx *Context) *FogRenderer {
	return &FogRenderer{ctx: ctx, log: logger.Named("fog")}
}

// RenderFog returns a single overlay bitmap for the viewport, the same size
// as one frame of Compositor.RenderViewport.
//
// Cells never seen draw nothing here; their terrain is already blank.
// Seen cells bordering never-seen ones get full fog edge art. Remembered
// cells bordering visible ones get partial fog edge art, and remembered
// cells with no such border are dimmed with PartialFogColor.
func (r *FogRenderer) RenderFog(plane, originX, originY, width, height int) (*image.RGBA, error) {
	if err := r.ctx.checkViewport(plane, width, height); err != nil {
		return nil, err
	}

	tw, th := r.ctx.TileSize()
	out := image.NewRGBA(image.Rect(0, 0, width*tw, height*th))
	flags := r.ctx.Flags
	edges := 0

	err := r.ctx.eachCell(plane, originX, originY, width, height, func(vc viewCell) error {
		vis := vc.cell.Visibility
		if vis == world.NeverSeen {
			return nil
		}

		if flags.SmoothFogOfWar {
			mask := r.mask(plane, vc, func(n world.Visibility) bool { return n != world.NeverSeen })
			if r.isBoundary(mask) {
				if err := r.drawEdge(out, catalog.TileTypeFogOfWar, plane, mask, vc.rect); err != nil {
					return err
				}
				edges++
			}
		}

		if vis != world.PreviouslySeen || !flags.ShowPartialFogOfWar {
			return nil
		}

		if flags.SmoothFogOfWar {
			mask := r.mask(plane, vc, func(n world.Visibility) bool { return n != world.Visible })
			if r.isBoundary(mask) {
				edges++
				return r.drawEdge(out, catalog.TileTypeFogOfWarPartial, plane, mask, vc.rect)
			}
		}
		sprite.Fill(out, vc.rect, PartialFogColor)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fog of war: %w", err)
	}

	r.log.Debug("rendered fog", zap.Int("plane", plane), zap.Int("edges", edges))
	return out, nil
}

// mask compares each neighbour's visibility with the cell's side of the boundary.
func (r *FogRenderer) mask(plane int, vc viewCell, sameSide func(world.Visibility) bool) terrain.Bitmask {
	return terrain.Walk(r.ctx.Map.Topology(), vc.x, vc.y, func(_ grid.Direction, nx, ny int, onMap bool) byte {
		if !onMap {
			return fogInside
		}
		n, ok := r.ctx.Map.Cell(plane, nx, ny)
		if !ok || sameSide(n.Visibility) {
			return fogInside
		}
		return fogEdge
	})
}

func (r *FogRenderer) isBoundary(mask terrain.Bitmask) bool {
	return mask != terrain.Uniform(len(mask), fogInside)
}

func (r *FogRenderer) drawEdge(out *image.RGBA, tileType string, plane int, mask terrain.Bitmask, rect image.Rectangle) error {
	st, err := r.ctx.Tiles.TileSet().FindSmoothedTileType(tileType, plane)
	if err != nil {
		return err
	}
	tile, err := terrain.ResolveFirst(st, mask)
	if err != nil {
		return err
	}
	// Fog art is static; animated entries show their first frame.
	name, err := r.ctx.artFrame(tile.Image, tile.Animation, 0)
	if err != nil {
		return err
	}
	img, err := r.ctx.Images.Image(name)
	if err != nil {
		return err
	}
	sprite.DrawCentered(out, img, rect)
	return nil
}
