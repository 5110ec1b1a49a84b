package world

import (
	"github.com/zyedidia/generic/mapset"

	"github.com/Faultbox/arcanus/pkg/grid"
)

// Changes is a map update notification: either a full refresh or the set of
// cells that changed since the last one.
type Changes struct {
	Full  bool
	Cells mapset.Set[grid.Coord]
}

// NewChanges returns an empty incremental notification.
func NewChanges() *Changes {
	return &Changes{Cells: mapset.New[grid.Coord]()}
}

// FullChanges returns a notification asking for everything to be recomputed.
func FullChanges() *Changes {
	return &Changes{Full: true, Cells: mapset.New[grid.Coord]()}
}

// Add marks one cell as changed.
func (c *Changes) Add(coord grid.Coord) {
	c.Cells.Put(coord)
}

// Empty reports whether there is nothing to recompute.
func (c *Changes) Empty() bool {
	return c == nil || (!c.Full && c.Cells.Size() == 0)
}
