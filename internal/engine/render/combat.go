package render

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/Faultbox/arcanus/internal/engine/terrain"
	"github.com/Faultbox/arcanus/internal/logger"
	"github.com/Faultbox/arcanus/internal/world"
)

// Combat maps carry no plane, so combat tile set entries are looked up as
// plane 0 and should be plane-agnostic.
const combatPlane = 0

var combatLayers = []world.CombatLayer{
	world.CombatLayerTerrain,
	world.CombatLayerRoad,
	world.CombatLayerBuilding,
}

// CombatRenderer draws a whole combat map with the combat tile set.
type CombatRenderer struct {
	ctx *Context
	log *zap.Logger
}

// NewCombatRenderer creates a combat map renderer over ctx.
func NewCombatRenderer(ctx *Context) *CombatRenderer {
	return &CombatRenderer{ctx: ctx, log: logger.Named("combat")}
}

// RenderCombat returns one bitmap per frame of the combat tile set with the
// terrain, road and building layers drawn bottom to top. Combat maps are
// small and short-lived, so tiles are resolved on every call and ties take
// the first candidate.
func (r *CombatRenderer) RenderCombat(cm world.CombatReader) ([]*image.RGBA, error) {
	ts, err := r.ctx.Catalog.TileSet(r.ctx.CombatTileSet)
	if err != nil {
		return nil, fmt.Errorf("combat tile set: %w", err)
	}

	topo := cm.Topology()
	out := newFrames(ts.AnimationFrameCount, topo.Width*ts.TileWidth, topo.Height*ts.TileHeight)
	gen := terrain.NewCombatGenerator(cm, r.ctx.Flags.SmoothCombatTerrain)
	drawn := 0

	for _, layer := range combatLayers {
		for y := 0; y < topo.Height; y++ {
			for x := 0; x < topo.Width; x++ {
				tileType, ok := cm.TileTypeForLayer(x, y, layer)
				if !ok {
					continue
				}

				st, err := ts.FindSmoothedTileType(tileType, combatPlane)
				if err != nil {
					return nil, err
				}
				sys, err := r.ctx.Catalog.SmoothingSystem(st.SmoothingSystemID)
				if err != nil {
					return nil, fmt.Errorf("combat tile type %s: %w", tileType, err)
				}
				tile, err := terrain.ResolveFirst(st, gen.Bitmask(st, sys, x, y, layer))
				if err != nil {
					return nil, fmt.Errorf("combat %d,%d layer %d: %w", x, y, layer, err)
				}

				rect := image.Rect(x*ts.TileWidth, y*ts.TileHeight, (x+1)*ts.TileWidth, (y+1)*ts.TileHeight)
				if err := r.ctx.drawArt(out, tile.Image, tile.Animation, rect, nil); err != nil {
					return nil, err
				}
				drawn++
			}
		}
	}

	r.log.Debug("rendered combat map",
		zap.Int("width", topo.Width),
		zap.Int("height", topo.Height),
		zap.Int("tiles", drawn))
	return out, nil
}
