// Package render composites resolved terrain tiles, overlays, fog of war and
// the minimap into CPU bitmaps for the display layer.
//
// Every renderer is built from a Context, which a session creates on join
// and drops on leave. Renderers keep no state between calls beyond the
// Context's tile cache and image loader.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"

	"github.com/Faultbox/arcanus/internal/assets"
	"github.com/Faultbox/arcanus/internal/assets/catalog"
	"github.com/Faultbox/arcanus/internal/engine/sprite"
	"github.com/Faultbox/arcanus/internal/engine/terrain"
	"github.com/Faultbox/arcanus/internal/engine/texture"
	"github.com/Faultbox/arcanus/internal/world"
)

var (
	// ErrInvalidViewport is returned for non-positive viewport sizes or unknown planes.
	ErrInvalidViewport = errors.New("invalid viewport")
	// ErrUnknownPlayer is returned when a player has no flag colour.
	ErrUnknownPlayer = errors.New("unknown player")
)

// Flags are the display switches read by the renderers.
type Flags struct {
	SmoothOverlandTerrain bool
	SmoothCombatTerrain   bool
	ShowPartialFogOfWar   bool
	SmoothFogOfWar        bool
}

// DefaultFlags turns every smoothing and fog option on.
func DefaultFlags() Flags {
	return Flags{
		SmoothOverlandTerrain: true,
		SmoothCombatTerrain:   true,
		ShowPartialFogOfWar:   true,
		SmoothFogOfWar:        true,
	}
}

// PlayerColors resolves a player's flag colour.
type PlayerColors interface {
	FlagColor(player int) (color.RGBA, error)
}

// PlayerColorMap is a fixed player to colour table.
type PlayerColorMap map[int]color.RGBA

// FlagColor implements PlayerColors.
func (m PlayerColorMap) FlagColor(player int) (color.RGBA, error) {
	c, ok := m[player]
	if !ok {
		return color.RGBA{}, fmt.Errorf("%w: %d", ErrUnknownPlayer, player)
	}
	return c, nil
}

// Options configures a new Context.
type Options struct {
	Flags           Flags
	OverlandTileSet string
	CombatTileSet   string
	// Rand drives tie-breaks between tiles sharing a bitmask. Nil seeds randomly.
	Rand *rand.Rand
}

// Context bundles everything the renderers read: map memory, the asset
// catalog, the decoded image cache and the resolved tile cache.
type Context struct {
	Map           world.Reader
	Catalog       *catalog.Catalog
	Images        *texture.Loader
	Tiles         *terrain.TileCache
	Players       PlayerColors
	Flags         Flags
	CombatTileSet string
}

// NewContext builds a render context and an empty tile cache sized to m.
// The cache is not filled; call Tiles.InvalidateAll before the first render.
func NewContext(m world.Reader, cat *catalog.Catalog, images *texture.Loader, players PlayerColors, opts Options) (*Context, error) {
	gen := terrain.NewGenerator(m, opts.Flags.SmoothOverlandTerrain)
	tiles, err := terrain.NewTileCache(m, cat, opts.OverlandTileSet, gen, opts.Rand)
	if err != nil {
		return nil, err
	}
	return &Context{
		Map:           m,
		Catalog:       cat,
		Images:        images,
		Tiles:         tiles,
		Players:       players,
		Flags:         opts.Flags,
		CombatTileSet: opts.CombatTileSet,
	}, nil
}

// TileSize returns the pixel size of one overland cell.
func (c *Context) TileSize() (int, int) {
	ts := c.Tiles.TileSet()
	return ts.TileWidth, ts.TileHeight
}

// viewCell is one on-map cell of a viewport.
type viewCell struct {
	cell *world.Cell
	x, y int             // Map coordinates after wrapping
	rect image.Rectangle // Pixel rectangle in the output bitmap
}

// eachCell visits the viewport row by row. Cells past a non-wrapping edge
// are skipped; wrapping edges show the other side of the map.
func (c *Context) eachCell(plane, originX, originY, width, height int, fn func(vc viewCell) error) error {
	topo := c.Map.Topology()
	tw, th := c.TileSize()

	for vy := 0; vy < height; vy++ {
		for vx := 0; vx < width; vx++ {
			mx, my, ok := topo.Normalize(originX+vx, originY+vy)
			if !ok {
				continue
			}
			cell, ok := c.Map.Cell(plane, mx, my)
			if !ok {
				continue
			}
			rect := image.Rect(vx*tw, vy*th, (vx+1)*tw, (vy+1)*th)
			if err := fn(viewCell{cell: cell, x: mx, y: my, rect: rect}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Context) checkViewport(plane, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d cells", ErrInvalidViewport, width, height)
	}
	if plane < 0 || plane >= c.Map.Topology().Depth {
		return fmt.Errorf("%w: plane %d", ErrInvalidViewport, plane)
	}
	return nil
}

// artFrame returns the image drawn on output frame n for a static image or animation.
func (c *Context) artFrame(img, animation string, n int) (string, error) {
	if animation == "" {
		if img == "" {
			return "", fmt.Errorf("%w: empty image name", assets.ErrAssetNotFound)
		}
		return img, nil
	}
	anim, err := c.Catalog.Animation(animation)
	if err != nil {
		return "", err
	}
	return anim.Frame(n), nil
}

// drawArt draws a static image or animation centred on rect, one animation
// frame per output frame. A non-nil tint multiplies the art by the colour.
func (c *Context) drawArt(out []*image.RGBA, img, animation string, rect image.Rectangle, tint *color.RGBA) error {
	for n, dst := range out {
		name, err := c.artFrame(img, animation, n)
		if err != nil {
			return err
		}
		src, err := c.image(name, tint)
		if err != nil {
			return err
		}
		sprite.DrawCentered(dst, src, rect)
	}
	return nil
}

func (c *Context) image(name string, tint *color.RGBA) (*image.RGBA, error) {
	if tint != nil {
		return c.Images.Tinted(name, *tint)
	}
	return c.Images.Image(name)
}

func newFrames(n, w, h int) []*image.RGBA {
	out := make([]*image.RGBA, n)
	for i := range out {
		out[i] = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return out
}
