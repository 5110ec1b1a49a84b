package world

import (
	"errors"
	"fmt"

	"github.com/Faultbox/arcanus/pkg/grid"
)

// ErrOutOfBounds is returned when writing a cell outside the map.
var ErrOutOfBounds = errors.New("cell out of bounds")

// Map is a dense in-memory map snapshot indexed [plane][y][x].
type Map struct {
	Name     string
	topology grid.Topology
	cells    [][][]Cell
}

// NewMap allocates an unscouted map of the given topology.
func NewMap(name string, topo grid.Topology) (*Map, error) {
	if err := topo.Validate(); err != nil {
		return nil, fmt.Errorf("map %s: %w", name, err)
	}

	cells := make([][][]Cell, topo.Depth)
	for p := range cells {
		cells[p] = make([][]Cell, topo.Height)
		for y := range cells[p] {
			cells[p][y] = make([]Cell, topo.Width)
		}
	}

	return &Map{
		Name:     name,
		topology: topo,
		cells:    cells,
	}, nil
}

// Topology returns the map's coordinate system.
func (m *Map) Topology() grid.Topology {
	return m.topology
}

// Cell returns the cell at (plane, x, y) without wrapping.
func (m *Map) Cell(plane, x, y int) (*Cell, bool) {
	if plane < 0 || plane >= m.topology.Depth || !m.topology.Contains(x, y) {
		return nil, false
	}
	return &m.cells[plane][y][x], true
}

// SetCell replaces the cell at (plane, x, y).
func (m *Map) SetCell(plane, x, y int, cell Cell) error {
	if plane < 0 || plane >= m.topology.Depth || !m.topology.Contains(x, y) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, grid.Coord{Plane: plane, X: x, Y: y})
	}
	m.cells[plane][y][x] = cell
	return nil
}

// Update applies fn to the cell at (plane, x, y) and records it in changes.
// changes may be nil.
func (m *Map) Update(plane, x, y int, changes *Changes, fn func(c *Cell)) error {
	c, ok := m.Cell(plane, x, y)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, grid.Coord{Plane: plane, X: x, Y: y})
	}
	fn(c)
	if changes != nil {
		changes.Add(grid.Coord{Plane: plane, X: x, Y: y})
	}
	return nil
}

// Fill sets every cell on every plane to a copy of cell.
func (m *Map) Fill(cell Cell) {
	for p := range m.cells {
		for y := range m.cells[p] {
			for x := range m.cells[p][y] {
				m.cells[p][y][x] = cell.Clone()
			}
		}
	}
}
