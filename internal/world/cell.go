// Package world holds the read-only map memory the renderer draws from:
// overland cells, combat map layers and change notifications.
package world

import (
	"slices"

	"github.com/Faultbox/arcanus/pkg/grid"
)

// Visibility is how much of a cell the player can currently see.
type Visibility uint8

// Visibility states.
const (
	NeverSeen      Visibility = iota // Never scouted, drawn black
	PreviouslySeen                   // Remembered, shown under partial fog
	Visible                          // In sight right now
)

// String returns a human-readable visibility name.
func (v Visibility) String() string {
	switch v {
	case NeverSeen:
		return "never_seen"
	case PreviouslySeen:
		return "previously_seen"
	case Visible:
		return "visible"
	default:
		return "unknown"
	}
}

// ParseVisibility converts a visibility name back to its value.
func ParseVisibility(s string) (Visibility, bool) {
	switch s {
	case "never_seen", "":
		return NeverSeen, true
	case "previously_seen", "seen":
		return PreviouslySeen, true
	case "visible":
		return Visible, true
	default:
		return NeverSeen, false
	}
}

// City is the part of a city the map renderer needs.
type City struct {
	SizeID    string   `yaml:"size"`
	Owner     int      `yaml:"owner"`
	Buildings []string `yaml:"buildings"` // Constructed buildings, only wall-granting ones matter for art
}

// Cell is one remembered map cell. Empty identifiers mean "none".
type Cell struct {
	TerrainType string           // "" when unscouted
	Rivers      []grid.Direction // Directions the river exits this cell
	MapFeature  string
	Road        string
	Corrupted   bool
	City        *City
	NodeOwner   *int // Player owning the magic node aura on this cell
	Visibility  Visibility
}

// Clone returns a deep copy of the cell. The copy shares no slices or
// pointers with c.
func (c Cell) Clone() Cell {
	c.Rivers = slices.Clone(c.Rivers)
	if c.City != nil {
		city := *c.City
		city.Buildings = slices.Clone(city.Buildings)
		c.City = &city
	}
	if c.NodeOwner != nil {
		owner := *c.NodeOwner
		c.NodeOwner = &owner
	}
	return c
}

// Scouted reports whether the terrain of the cell is known.
func (c *Cell) Scouted() bool {
	return c != nil && c.TerrainType != ""
}

// HasRiver reports whether a river exits the cell in direction d.
func (c *Cell) HasRiver(d grid.Direction) bool {
	return slices.Contains(c.Rivers, d)
}

// HasRoad reports whether the cell carries a road.
func (c *Cell) HasRoad() bool {
	return c != nil && c.Road != ""
}

// Reader is read access to a snapshot of map memory.
type Reader interface {
	Topology() grid.Topology
	// Cell returns the cell at (plane, x, y); ok is false outside the map.
	Cell(plane, x, y int) (*Cell, bool)
}
