package render

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/Faultbox/arcanus/internal/assets"
	"github.com/Faultbox/arcanus/internal/engine/sprite"
	"github.com/Faultbox/arcanus/internal/engine/terrain"
	"github.com/Faultbox/arcanus/internal/logger"
	"github.com/Faultbox/arcanus/pkg/grid"
)

// Compositor draws the overland map layers into one bitmap per animation frame.
type Compositor struct {
	ctx *Context
	log *zap.Logger
}

// NewCompositor creates a layer compositor over ctx.
func NewCompositor(ctx *Context) *Compositor {
	return &Compositor{ctx: ctx, log: logger.Named("compositor")}
}

// RenderViewport renders width x height cells starting at (originX, originY)
// on plane. It returns one bitmap per frame of the overland tile set, each
// width*tileWidth by height*tileHeight pixels.
//
// Layers are drawn in three passes so that city sprites, which are larger
// than a cell, are never covered by a neighbour's terrain and node auras
// cover cities:
//  1. terrain, map feature, roads and corruption
//  2. cities and their flags
//  3. node auras
func (r *Compositor) RenderViewport(plane, originX, originY, width, height int) ([]*image.RGBA, error) {
	if err := r.ctx.checkViewport(plane, width, height); err != nil {
		return nil, err
	}

	ts := r.ctx.Tiles.TileSet()
	out := newFrames(ts.AnimationFrameCount, width*ts.TileWidth, height*ts.TileHeight)

	passes := []struct {
		name string
		draw func(out []*image.RGBA, plane int, vc viewCell) error
	}{
		{"terrain", r.drawTerrain},
		{"cities", r.drawCity},
		{"node auras", r.drawNodeAura},
	}
	for _, pass := range passes {
		err := r.ctx.eachCell(plane, originX, originY, width, height, func(vc viewCell) error {
			if !vc.cell.Scouted() {
				return nil
			}
			return pass.draw(out, plane, vc)
		})
		if err != nil {
			return nil, fmt.Errorf("%s pass: %w", pass.name, err)
		}
	}

	r.log.Debug("rendered viewport",
		zap.Int("plane", plane),
		zap.Int("x", originX),
		zap.Int("y", originY),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("frames", len(out)))
	return out, nil
}

func (r *Compositor) drawTerrain(out []*image.RGBA, plane int, vc viewCell) error {
	tile := r.ctx.Tiles.Get(plane, vc.x, vc.y)
	switch tile.Kind {
	case terrain.TileImage:
		if err := r.ctx.drawArt(out, tile.Image, "", vc.rect, nil); err != nil {
			return err
		}
	case terrain.TileAnimation:
		if err := r.ctx.drawArt(out, "", tile.Animation, vc.rect, nil); err != nil {
			return err
		}
	}

	if vc.cell.MapFeature != "" {
		feature, err := r.ctx.Catalog.MapFeature(vc.cell.MapFeature)
		if err != nil {
			return err
		}
		if err := r.ctx.drawArt(out, feature.Image, feature.Animation, vc.rect, nil); err != nil {
			return fmt.Errorf("map feature %s: %w", feature.ID, err)
		}
	}

	if vc.cell.HasRoad() {
		if err := r.drawRoad(out, plane, vc); err != nil {
			return err
		}
	}

	if vc.cell.Corrupted {
		if err := r.ctx.drawArt(out, r.ctx.Catalog.CorruptionImage, "", vc.rect, nil); err != nil {
			return fmt.Errorf("corruption: %w", err)
		}
	}
	return nil
}

// drawRoad draws one connector per neighbouring road, or the isolated
// road image when no neighbour has one.
func (r *Compositor) drawRoad(out []*image.RGBA, plane int, vc viewCell) error {
	road, err := r.ctx.Catalog.RoadType(vc.cell.Road)
	if err != nil {
		return err
	}

	topo := r.ctx.Map.Topology()
	connected := false
	for _, d := range topo.AllDirections() {
		nx, ny, ok := topo.Move(vc.x, vc.y, d)
		if !ok {
			continue
		}
		if n, ok := r.ctx.Map.Cell(plane, nx, ny); !ok || !n.HasRoad() {
			continue
		}
		connected = true
		if err := r.drawRoadImage(out, road.ID, road.Images, d, vc.rect); err != nil {
			return err
		}
	}
	if !connected {
		return r.drawRoadImage(out, road.ID, road.Images, 0, vc.rect)
	}
	return nil
}

func (r *Compositor) drawRoadImage(out []*image.RGBA, id string, images map[int]string, d grid.Direction, rect image.Rectangle) error {
	name, ok := images[int(d)]
	if !ok {
		return fmt.Errorf("%w: road type %s has no image for direction %d", assets.ErrAssetNotFound, id, d)
	}
	return r.ctx.drawArt(out, name, "", rect, nil)
}

func (r *Compositor) drawCity(out []*image.RGBA, _ int, vc viewCell) error {
	city := vc.cell.City
	if city == nil {
		return nil
	}

	art, err := r.ctx.Catalog.BestCityImage(city.SizeID, city.Buildings)
	if err != nil {
		return err
	}
	img, err := r.ctx.Images.Image(art.Image)
	if err != nil {
		return err
	}
	flagColor, err := r.ctx.Players.FlagColor(city.Owner)
	if err != nil {
		return fmt.Errorf("city at %d,%d: %w", vc.x, vc.y, err)
	}
	flag, err := r.ctx.Images.Tinted(r.ctx.Catalog.CityFlagImage, flagColor)
	if err != nil {
		return fmt.Errorf("city flag: %w", err)
	}

	at := sprite.CenterOffset(img.Bounds().Dx(), img.Bounds().Dy(), vc.rect)
	for _, dst := range out {
		sprite.DrawAt(dst, img, at.X, at.Y)
		sprite.DrawAt(dst, flag, at.X+art.FlagOffsetX, at.Y+art.FlagOffsetY)
	}
	return nil
}

func (r *Compositor) drawNodeAura(out []*image.RGBA, _ int, vc viewCell) error {
	if vc.cell.NodeOwner == nil {
		return nil
	}
	auraColor, err := r.ctx.Players.FlagColor(*vc.cell.NodeOwner)
	if err != nil {
		return fmt.Errorf("node at %d,%d: %w", vc.x, vc.y, err)
	}
	if err := r.ctx.drawArt(out, "", r.ctx.Catalog.NodeAuraAnimation, vc.rect, &auraColor); err != nil {
		return fmt.Errorf("node aura: %w", err)
	}
	return nil
}
