package terrain

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/zyedidia/generic/mapset"
	"go.uber.org/zap"

	"github.com/Faultbox/arcanus/internal/assets"
	"github.com/Faultbox/arcanus/internal/assets/catalog"
	"github.com/Faultbox/arcanus/internal/logger"
	"github.com/Faultbox/arcanus/internal/world"
	"github.com/Faultbox/arcanus/pkg/grid"
)

// TileKind says what a resolved tile draws.
type TileKind uint8

// Resolved tile kinds.
const (
	TileEmpty     TileKind = iota // Unscouted, draws nothing
	TileImage                     // One static image on every frame
	TileAnimation                 // One animation frame per output frame
)

// ResolvedTile is the frozen choice of art for one cell.
type ResolvedTile struct {
	Kind      TileKind
	Image     string
	Animation string
}

// Empty reports whether the cell draws nothing.
func (r ResolvedTile) Empty() bool {
	return r.Kind == TileEmpty
}

func resolvedFrom(t catalog.SmoothedTile) ResolvedTile {
	if t.Animation != "" {
		return ResolvedTile{Kind: TileAnimation, Animation: t.Animation}
	}
	return ResolvedTile{Kind: TileImage, Image: t.Image}
}

// TileCache holds the resolved tile of every overland cell, indexed [plane][y][x].
// It is only recomputed for cells passed to Invalidate.
type TileCache struct {
	cells   world.Reader
	catalog *catalog.Catalog
	tileSet *catalog.TileSet
	gen     *Generator
	rng     *rand.Rand
	tiles   [][][]ResolvedTile
	log     *zap.Logger
}

// NewTileCache allocates an empty cache sized to the map. rng drives the
// choice between tiles sharing a bitmask; nil seeds one randomly.
func NewTileCache(cells world.Reader, cat *catalog.Catalog, tileSetID string, gen *Generator, rng *rand.Rand) (*TileCache, error) {
	ts, err := cat.TileSet(tileSetID)
	if err != nil {
		return nil, fmt.Errorf("overland tile set: %w", err)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	topo := cells.Topology()
	tiles := make([][][]ResolvedTile, topo.Depth)
	for p := range tiles {
		tiles[p] = make([][]ResolvedTile, topo.Height)
		for y := range tiles[p] {
			tiles[p][y] = make([]ResolvedTile, topo.Width)
		}
	}

	return &TileCache{
		cells:   cells,
		catalog: cat,
		tileSet: ts,
		gen:     gen,
		rng:     rng,
		tiles:   tiles,
		log:     logger.Named("terrain"),
	}, nil
}

// TileSet returns the overland tile set the cache resolves against.
func (c *TileCache) TileSet() *catalog.TileSet {
	return c.tileSet
}

// Get returns the cached tile; off-map or never resolved cells are empty.
func (c *TileCache) Get(plane, x, y int) ResolvedTile {
	if plane < 0 || plane >= len(c.tiles) || !c.cells.Topology().Contains(x, y) {
		return ResolvedTile{}
	}
	return c.tiles[plane][y][x]
}

// InvalidateAll recomputes every cell of every plane.
func (c *TileCache) InvalidateAll() error {
	topo := c.cells.Topology()
	for p := 0; p < topo.Depth; p++ {
		for y := 0; y < topo.Height; y++ {
			for x := 0; x < topo.Width; x++ {
				if err := c.recompute(p, x, y); err != nil {
					return err
				}
			}
		}
	}
	c.log.Debug("recomputed all tiles", zap.Int("cells", topo.Depth*topo.Height*topo.Width))
	return nil
}

// Invalidate recomputes the changed cells and their neighbours, whose
// bitmasks depend on them. Every other cell keeps its cached tile.
func (c *TileCache) Invalidate(changed mapset.Set[grid.Coord]) error {
	topo := c.cells.Topology()
	dirty := mapset.New[grid.Coord]()
	changed.Each(func(cc grid.Coord) {
		if cc.Plane < 0 || cc.Plane >= topo.Depth || !topo.Contains(cc.X, cc.Y) {
			return
		}
		dirty.Put(cc)
		for _, n := range topo.Neighbours(cc.X, cc.Y) {
			dirty.Put(grid.Coord{Plane: cc.Plane, X: n[0], Y: n[1]})
		}
	})

	// Fixed order keeps a seeded tie-break reproducible.
	coords := make([]grid.Coord, 0, dirty.Size())
	dirty.Each(func(cc grid.Coord) { coords = append(coords, cc) })
	slices.SortFunc(coords, func(a, b grid.Coord) int {
		return cmp.Or(cmp.Compare(a.Plane, b.Plane), cmp.Compare(a.Y, b.Y), cmp.Compare(a.X, b.X))
	})

	for _, cc := range coords {
		if err := c.recompute(cc.Plane, cc.X, cc.Y); err != nil {
			return err
		}
	}
	c.log.Debug("recomputed changed tiles",
		zap.Int("changed", changed.Size()),
		zap.Int("recomputed", len(coords)))
	return nil
}

// Bitmask returns the bitmask the cell would resolve with, or "" when unscouted.
func (c *TileCache) Bitmask(plane, x, y int) (Bitmask, error) {
	cell, ok := c.cells.Cell(plane, x, y)
	if !ok || !cell.Scouted() {
		return "", nil
	}
	st, sys, err := c.smoothedTileType(cell, plane)
	if err != nil {
		return "", err
	}
	return c.gen.Overland(st, sys, plane, x, y, cell.Rivers), nil
}

func (c *TileCache) smoothedTileType(cell *world.Cell, plane int) (*catalog.SmoothedTileType, *catalog.SmoothingSystem, error) {
	st, err := c.tileSet.FindSmoothedTileType(cell.TerrainType, plane)
	if err != nil {
		return nil, nil, err
	}
	sys, err := c.catalog.SmoothingSystem(st.SmoothingSystemID)
	if err != nil {
		return nil, nil, fmt.Errorf("tile type %s: %w", cell.TerrainType, err)
	}
	return st, sys, nil
}

// recompute replaces the whole cache entry for one cell.
func (c *TileCache) recompute(plane, x, y int) error {
	cell, ok := c.cells.Cell(plane, x, y)
	if !ok || !cell.Scouted() {
		c.tiles[plane][y][x] = ResolvedTile{}
		return nil
	}

	st, sys, err := c.smoothedTileType(cell, plane)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", grid.Coord{Plane: plane, X: x, Y: y}, err)
	}
	mask := c.gen.Overland(st, sys, plane, x, y, cell.Rivers)

	candidates, err := Candidates(st, mask)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", grid.Coord{Plane: plane, X: x, Y: y}, err)
	}
	if len(st.Bitmasks[string(mask)]) == 0 {
		c.log.Warn("bitmask missing from tile set, using unsmoothed tile",
			zap.String("tile_type", cell.TerrainType),
			zap.String("bitmask", string(mask)))
	}

	c.tiles[plane][y][x] = c.choose(c.tiles[plane][y][x], candidates)
	return nil
}

// Candidates returns the tiles listed for mask, falling back to the
// unsmoothed entry when the tile set has no art for that bitmask.
func Candidates(st *catalog.SmoothedTileType, mask Bitmask) ([]catalog.SmoothedTile, error) {
	if tiles := st.Bitmasks[string(mask)]; len(tiles) > 0 {
		return tiles, nil
	}
	if tiles := st.Bitmasks[string(NoSmoothing)]; len(tiles) > 0 {
		return tiles, nil
	}
	return nil, fmt.Errorf("%w: tile type %s has no image for bitmask %s", assets.ErrAssetNotFound, st.TileTypeID, mask)
}

// ResolveFirst picks the first candidate for mask. Used where no per-cell
// choice is cached.
func ResolveFirst(st *catalog.SmoothedTileType, mask Bitmask) (ResolvedTile, error) {
	tiles, err := Candidates(st, mask)
	if err != nil {
		return ResolvedTile{}, err
	}
	return resolvedFrom(tiles[0]), nil
}

// choose keeps the previous tile while it is still a candidate so that
// recomputing an unchanged cell never changes its picture.
func (c *TileCache) choose(prev ResolvedTile, candidates []catalog.SmoothedTile) ResolvedTile {
	if !prev.Empty() {
		for _, cand := range candidates {
			if resolvedFrom(cand) == prev {
				return prev
			}
		}
	}
	if len(candidates) == 1 {
		return resolvedFrom(candidates[0])
	}
	return resolvedFrom(candidates[c.rng.IntN(len(candidates))])
}
