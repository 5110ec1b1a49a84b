package world

import (
	"fmt"

	"github.com/Faultbox/arcanus/pkg/grid"
)

// CombatLayer is one visual layer of a combat map.
type CombatLayer uint8

// Combat map layers, drawn bottom to top.
const (
	CombatLayerTerrain CombatLayer = iota
	CombatLayerRoad
	CombatLayerBuilding
	combatLayerCount
)

// CombatReader is read access to combat map tiles.
type CombatReader interface {
	Topology() grid.Topology
	// TileTypeForLayer returns the combat tile type drawn on layer at (x, y).
	TileTypeForLayer(x, y int, layer CombatLayer) (string, bool)
}

// CombatMap is a bounded single-plane grid of per-layer combat tile types.
type CombatMap struct {
	topology grid.Topology
	layers   [combatLayerCount][]string
}

// NewCombatMap allocates an empty combat map. Combat maps never wrap.
func NewCombatMap(width, height, directions int) (*CombatMap, error) {
	topo := grid.Bounded(width, height, directions)
	if err := topo.Validate(); err != nil {
		return nil, fmt.Errorf("combat map: %w", err)
	}

	cm := &CombatMap{topology: topo}
	for i := range cm.layers {
		cm.layers[i] = make([]string, width*height)
	}
	return cm, nil
}

// Topology returns the combat map extent.
func (m *CombatMap) Topology() grid.Topology {
	return m.topology
}

// TileTypeForLayer returns the tile type on layer at (x, y). ok is false
// outside the map or when the layer is empty there.
func (m *CombatMap) TileTypeForLayer(x, y int, layer CombatLayer) (string, bool) {
	if layer >= combatLayerCount || !m.topology.Contains(x, y) {
		return "", false
	}
	tt := m.layers[layer][y*m.topology.Width+x]
	return tt, tt != ""
}

// SetTileType sets the tile type on layer at (x, y).
func (m *CombatMap) SetTileType(x, y int, layer CombatLayer, tileType string) error {
	if layer >= combatLayerCount || !m.topology.Contains(x, y) {
		return fmt.Errorf("%w: combat %d,%d layer %d", ErrOutOfBounds, x, y, layer)
	}
	m.layers[layer][y*m.topology.Width+x] = tileType
	return nil
}
