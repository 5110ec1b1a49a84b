package world

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/arcanus/pkg/grid"
)

// ErrInvalidSnapshot is returned when a map snapshot file is malformed.
var ErrInvalidSnapshot = errors.New("invalid map snapshot")

// unscoutedMarker stands for an unscouted cell in terrain rows.
const unscoutedMarker = "."

// snapshotFile is the YAML layout of a saved map memory.
type snapshotFile struct {
	Name             string           `yaml:"name"`
	Width            int              `yaml:"width"`
	Height           int              `yaml:"height"`
	Planes           int              `yaml:"planes"`
	WrapsLeftToRight bool             `yaml:"wraps_left_to_right"`
	WrapsTopToBottom bool             `yaml:"wraps_top_to_bottom"`
	Directions       int              `yaml:"directions"`
	Fill             snapshotCell     `yaml:"fill"`
	TerrainRows      map[int][]string `yaml:"terrain_rows"` // plane -> rows of space separated tile types
	Cells            []snapshotCell   `yaml:"cells"`
}

type snapshotCell struct {
	Plane      int              `yaml:"plane"`
	X          int              `yaml:"x"`
	Y          int              `yaml:"y"`
	Terrain    string           `yaml:"terrain"`
	Rivers     []grid.Direction `yaml:"rivers"`
	Feature    string           `yaml:"feature"`
	Road       string           `yaml:"road"`
	Corrupted  bool             `yaml:"corrupted"`
	City       *City            `yaml:"city"`
	NodeOwner  *int             `yaml:"node_owner"`
	Visibility string           `yaml:"visibility"`
}

func (s snapshotCell) toCell() (Cell, error) {
	vis, ok := ParseVisibility(s.Visibility)
	if !ok {
		return Cell{}, fmt.Errorf("%w: unknown visibility %q", ErrInvalidSnapshot, s.Visibility)
	}
	return Cell{
		TerrainType: s.Terrain,
		Rivers:      s.Rivers,
		MapFeature:  s.Feature,
		Road:        s.Road,
		Corrupted:   s.Corrupted,
		City:        s.City,
		NodeOwner:   s.NodeOwner,
		Visibility:  vis,
	}, nil
}

// mergeInto overwrites only the fields the entry sets.
func (s snapshotCell) mergeInto(c *Cell) error {
	switch s.Terrain {
	case "":
	case unscoutedMarker:
		c.TerrainType = ""
	default:
		c.TerrainType = s.Terrain
	}
	if s.Rivers != nil {
		c.Rivers = s.Rivers
	}
	if s.Feature != "" {
		c.MapFeature = s.Feature
	}
	if s.Road != "" {
		c.Road = s.Road
	}
	if s.Corrupted {
		c.Corrupted = true
	}
	if s.City != nil {
		c.City = s.City
	}
	if s.NodeOwner != nil {
		c.NodeOwner = s.NodeOwner
	}
	if s.Visibility != "" {
		vis, ok := ParseVisibility(s.Visibility)
		if !ok {
			return fmt.Errorf("%w: unknown visibility %q", ErrInvalidSnapshot, s.Visibility)
		}
		c.Visibility = vis
	}
	return nil
}

// LoadMap reads a YAML map snapshot from disk.
func LoadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading map %s: %w", path, err)
	}
	m, err := ParseMap(data)
	if err != nil {
		return nil, fmt.Errorf("parsing map %s: %w", path, err)
	}
	return m, nil
}

// ParseMap builds a map from YAML snapshot data. The fill cell is applied
// first, then terrain rows, then individual cell entries, which override
// only the fields they set.
func ParseMap(data []byte) (*Map, error) {
	var f snapshotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if f.Planes == 0 {
		f.Planes = 1
	}
	if f.Directions == 0 {
		f.Directions = 8
	}

	m, err := NewMap(f.Name, grid.Topology{
		Width:            f.Width,
		Height:           f.Height,
		Depth:            f.Planes,
		WrapsLeftToRight: f.WrapsLeftToRight,
		WrapsTopToBottom: f.WrapsTopToBottom,
		Directions:       f.Directions,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	fill, err := f.Fill.toCell()
	if err != nil {
		return nil, err
	}
	m.Fill(fill)

	for plane, rows := range f.TerrainRows {
		if len(rows) > f.Height {
			return nil, fmt.Errorf("%w: plane %d has %d rows, map height is %d", ErrInvalidSnapshot, plane, len(rows), f.Height)
		}
		for y, row := range rows {
			fields := strings.Fields(row)
			if len(fields) > f.Width {
				return nil, fmt.Errorf("%w: plane %d row %d has %d cells, map width is %d", ErrInvalidSnapshot, plane, y, len(fields), f.Width)
			}
			for x, tt := range fields {
				c, ok := m.Cell(plane, x, y)
				if !ok {
					return nil, fmt.Errorf("%w: plane %d out of range", ErrInvalidSnapshot, plane)
				}
				if tt == unscoutedMarker {
					tt = ""
				}
				c.TerrainType = tt
			}
		}
	}

	for _, sc := range f.Cells {
		c, ok := m.Cell(sc.Plane, sc.X, sc.Y)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSnapshot, grid.Coord{Plane: sc.Plane, X: sc.X, Y: sc.Y})
		}
		if err := sc.mergeInto(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}
