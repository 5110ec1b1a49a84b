// Package grid provides map coordinate topologies: wrapping or bounded
// square grids with 4 or 8 neighbour directions.
package grid

import (
	"errors"
	"fmt"
)

// Direction is a neighbour direction numbered clockwise from north, starting at 1.
type Direction int

// Directions on an 8-neighbour grid.
const (
	North     Direction = 1
	NorthEast Direction = 2
	East      Direction = 3
	SouthEast Direction = 4
	South     Direction = 5
	SouthWest Direction = 6
	West      Direction = 7
	NorthWest Direction = 8
)

// Topology errors.
var (
	ErrInvalidDimensions = errors.New("grid dimensions must be positive")
	ErrInvalidDirections = errors.New("grid direction count must be 4 or 8")
)

// Coord identifies one cell of a multi-plane map.
type Coord struct {
	Plane int
	X     int
	Y     int
}

// String returns "plane:x,y".
func (c Coord) String() string {
	return fmt.Sprintf("%d:%d,%d", c.Plane, c.X, c.Y)
}

// offsets8 and offsets4 hold the (dx, dy) step for each direction, index 0 unused.
// Y grows downwards (south).
var (
	offsets8 = [9][2]int{{0, 0}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}}
	offsets4 = [5][2]int{{0, 0}, {0, -1}, {1, 0}, {0, 1}, {-1, 0}}
)

// Topology describes the extent of a map and how moving off an edge behaves.
type Topology struct {
	Width            int
	Height           int
	Depth            int // Number of planes
	WrapsLeftToRight bool
	WrapsTopToBottom bool
	Directions       int // 4 or 8
}

// Overland returns the usual overland topology: wraps east-west, 8 directions.
func Overland(width, height, planes int) Topology {
	return Topology{
		Width:            width,
		Height:           height,
		Depth:            planes,
		WrapsLeftToRight: true,
		Directions:       8,
	}
}

// Bounded returns a single-plane, non-wrapping topology.
func Bounded(width, height, directions int) Topology {
	return Topology{
		Width:      width,
		Height:     height,
		Depth:      1,
		Directions: directions,
	}
}

// Validate checks the topology is usable.
func (t Topology) Validate() error {
	if t.Width <= 0 || t.Height <= 0 || t.Depth <= 0 {
		return fmt.Errorf("%w: %dx%dx%d", ErrInvalidDimensions, t.Width, t.Height, t.Depth)
	}
	if t.Directions != 4 && t.Directions != 8 {
		return fmt.Errorf("%w: got %d", ErrInvalidDirections, t.Directions)
	}
	return nil
}

// Contains reports whether (x, y) lies inside the map without wrapping.
func (t Topology) Contains(x, y int) bool {
	return x >= 0 && x < t.Width && y >= 0 && y < t.Height
}

// Normalize maps (x, y) into the map extent, wrapping along wrapping axes.
// ok is false when the position is beyond a non-wrapping edge.
func (t Topology) Normalize(x, y int) (int, int, bool) {
	if x < 0 || x >= t.Width {
		if !t.WrapsLeftToRight {
			return x, y, false
		}
		x = wrap(x, t.Width)
	}
	if y < 0 || y >= t.Height {
		if !t.WrapsTopToBottom {
			return x, y, false
		}
		y = wrap(y, t.Height)
	}
	return x, y, true
}

// Move steps one cell from (x, y) in direction d.
// ok is false when the step falls off a non-wrapping edge or d is not a valid direction.
func (t Topology) Move(x, y int, d Direction) (int, int, bool) {
	var off [2]int
	switch t.Directions {
	case 4:
		if d < 1 || d > 4 {
			return x, y, false
		}
		off = offsets4[d]
	default:
		if d < 1 || d > 8 {
			return x, y, false
		}
		off = offsets8[d]
	}
	return t.Normalize(x+off[0], y+off[1])
}

// AllDirections returns directions 1..Directions in canonical order.
func (t Topology) AllDirections() []Direction {
	dirs := make([]Direction, t.Directions)
	for i := range dirs {
		dirs[i] = Direction(i + 1)
	}
	return dirs
}

// Neighbours returns the on-map neighbours of (x, y) in direction order.
// With wrapping on a tiny map the same cell may appear more than once.
func (t Topology) Neighbours(x, y int) [][2]int {
	result := make([][2]int, 0, t.Directions)
	for _, d := range t.AllDirections() {
		if nx, ny, ok := t.Move(x, y, d); ok {
			result = append(result, [2]int{nx, ny})
		}
	}
	return result
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
