// Package terrain implements overland autotiling: neighbour bitmasks and the
// per-cell cache of chosen tile images.
package terrain

import (
	"github.com/Faultbox/arcanus/internal/assets/catalog"
	"github.com/Faultbox/arcanus/internal/world"
	"github.com/Faultbox/arcanus/pkg/grid"
)

// Bitmask is one digit per direction in canonical order, each '0', '1' or '2',
// or the NoSmoothing sentinel.
type Bitmask string

// NoSmoothing is the bitmask used for every cell when smoothing is switched off.
const NoSmoothing Bitmask = catalog.NoSmoothingBitmask

// Bitmask digits.
const (
	DigitSame  byte = '0'
	DigitDiff  byte = '1'
	DigitRiver byte = '2'
)

// DigitFunc decides the digit for direction d. (nx, ny) is the neighbour
// reached by stepping in d; onMap is false when the step left a non-wrapping edge.
type DigitFunc func(d grid.Direction, nx, ny int, onMap bool) byte

// Walk builds a bitmask around (x, y) by asking digit about every direction.
func Walk(topo grid.Topology, x, y int, digit DigitFunc) Bitmask {
	buf := make([]byte, topo.Directions)
	for i, d := range topo.AllDirections() {
		nx, ny, ok := topo.Move(x, y, d)
		buf[i] = digit(d, nx, ny, ok)
	}
	return Bitmask(buf)
}

// Uniform returns a bitmask with every digit set to b.
func Uniform(directions int, b byte) Bitmask {
	buf := make([]byte, directions)
	for i := range buf {
		buf[i] = b
	}
	return Bitmask(buf)
}

// Generator computes overland terrain bitmasks from map memory.
type Generator struct {
	cells  world.Reader
	smooth bool
}

// NewGenerator creates an overland bitmask generator. With smooth false every
// bitmask is NoSmoothing.
func NewGenerator(cells world.Reader, smooth bool) *Generator {
	return &Generator{cells: cells, smooth: smooth}
}

// Overland computes the bitmask for the cell at (plane, x, y) drawn as target.
// rivers are the cell's own river exits.
func (g *Generator) Overland(target *catalog.SmoothedTileType, system *catalog.SmoothingSystem, plane, x, y int, rivers []grid.Direction) Bitmask {
	if !g.smooth {
		return NoSmoothing
	}

	topo := g.cells.Topology()
	switch {
	case system.MaxValueEachDirection == 0:
		return Uniform(topo.Directions, DigitSame)

	case system.MaxValueEachDirection == 1 && len(rivers) > 0:
		return RiverGeometry(topo.Directions, rivers)
	}

	own := &world.Cell{Rivers: rivers}
	return Walk(topo, x, y, func(d grid.Direction, nx, ny int, onMap bool) byte {
		if system.MaxValueEachDirection == 2 && own.HasRiver(d) {
			return DigitRiver
		}
		if !onMap {
			return DigitSame
		}
		n, ok := g.cells.Cell(plane, nx, ny)
		if !ok || !n.Scouted() {
			return DigitSame
		}
		if target.Equivalent(n.TerrainType) {
			return DigitSame
		}
		return DigitDiff
	})
}

// RiverGeometry encodes a cell's own river exits: '0' where a river leaves
// the cell, '1' elsewhere. Neighbours are not consulted.
func RiverGeometry(directions int, rivers []grid.Direction) Bitmask {
	buf := []byte(Uniform(directions, DigitDiff))
	for _, d := range rivers {
		if d >= 1 && int(d) <= directions {
			buf[d-1] = DigitSame
		}
	}
	return Bitmask(buf)
}

// CombatGenerator computes bitmasks on a bounded combat map.
type CombatGenerator struct {
	cells  world.CombatReader
	smooth bool
}

// NewCombatGenerator creates a combat map bitmask generator.
func NewCombatGenerator(cells world.CombatReader, smooth bool) *CombatGenerator {
	return &CombatGenerator{cells: cells, smooth: smooth}
}

// Bitmask computes the bitmask for (x, y) on layer drawn as target.
// Off-map neighbours count as matching.
func (g *CombatGenerator) Bitmask(target *catalog.SmoothedTileType, system *catalog.SmoothingSystem, x, y int, layer world.CombatLayer) Bitmask {
	if !g.smooth {
		return NoSmoothing
	}

	topo := g.cells.Topology()
	if system.MaxValueEachDirection == 0 {
		return Uniform(topo.Directions, DigitSame)
	}

	return Walk(topo, x, y, func(_ grid.Direction, nx, ny int, onMap bool) byte {
		if !onMap {
			return DigitSame
		}
		tt, _ := g.cells.TileTypeForLayer(nx, ny, layer)
		if target.Equivalent(tt) {
			return DigitSame
		}
		return DigitDiff
	})
}
