// Package catalog holds the static graphics database: tile sets with their
// smoothed tile types, smoothing systems, animations and overlay sprites.
// A catalog is loaded once from YAML and only read afterwards.
package catalog

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/arcanus/internal/assets"
)

// NoSmoothingBitmask is the bitmask key used when smoothing is switched off.
const NoSmoothingBitmask = "NoSmooth"

// Special tile types used for the fog of war overlay.
const (
	TileTypeFogOfWar        = "FOW"
	TileTypeFogOfWarPartial = "FOWPARTIAL"
)

// ErrInvalidCatalog is returned for structurally broken catalog data.
var ErrInvalidCatalog = errors.New("invalid catalog")

// SmoothingSystem describes how many adjacency states a smoothed tile type encodes.
type SmoothingSystem struct {
	ID string `yaml:"id"`
	// MaxValueEachDirection is 0 (constant bitmask), 1 (same/different)
	// or 2 (same/different plus river mouths).
	MaxValueEachDirection int `yaml:"max_value_each_direction"`
}

// SmoothedTile is one candidate image for a bitmask: a static image or an animation.
type SmoothedTile struct {
	Image     string `yaml:"image,omitempty"`
	Animation string `yaml:"animation,omitempty"`
}

// SmoothedTileType maps bitmasks to candidate tiles for one terrain type.
type SmoothedTileType struct {
	TileTypeID          string                    `yaml:"tile_type"`
	SecondaryTileTypeID string                    `yaml:"secondary_tile_type,omitempty"`
	TertiaryTileTypeID  string                    `yaml:"tertiary_tile_type,omitempty"`
	Plane               *int                      `yaml:"plane,omitempty"` // nil = every plane
	SmoothingSystemID   string                    `yaml:"smoothing_system"`
	Bitmasks            map[string][]SmoothedTile `yaml:"bitmasks"`
}

// Equivalent reports whether tileType blends with this smoothed tile type.
func (s *SmoothedTileType) Equivalent(tileType string) bool {
	if tileType == "" {
		return false
	}
	return tileType == s.TileTypeID || tileType == s.SecondaryTileTypeID || tileType == s.TertiaryTileTypeID
}

// TileSet is a family of same-sized tiles, e.g. the overland or combat set.
type TileSet struct {
	ID                  string             `yaml:"id"`
	TileWidth           int                `yaml:"tile_width"`
	TileHeight          int                `yaml:"tile_height"`
	AnimationFrameCount int                `yaml:"animation_frame_count"`
	SmoothedTileTypes   []SmoothedTileType `yaml:"smoothed_tile_types"`
}

// FindSmoothedTileType returns the entry for tileTypeID on plane.
// A plane-specific entry wins over a plane-agnostic one.
func (ts *TileSet) FindSmoothedTileType(tileTypeID string, plane int) (*SmoothedTileType, error) {
	var generic *SmoothedTileType
	for i := range ts.SmoothedTileTypes {
		st := &ts.SmoothedTileTypes[i]
		if st.TileTypeID != tileTypeID {
			continue
		}
		if st.Plane == nil {
			if generic == nil {
				generic = st
			}
			continue
		}
		if *st.Plane == plane {
			return st, nil
		}
	}
	if generic != nil {
		return generic, nil
	}
	return nil, fmt.Errorf("%w: smoothed tile type %s on plane %d in tile set %s", assets.ErrAssetNotFound, tileTypeID, plane, ts.ID)
}

// Animation is a looping sequence of image files.
type Animation struct {
	ID     string   `yaml:"id"`
	Frames []string `yaml:"frames"`
}

// Frame returns the image for output frame n, looping short animations.
func (a *Animation) Frame(n int) string {
	if len(a.Frames) == 0 {
		return ""
	}
	return a.Frames[n%len(a.Frames)]
}

// TileType carries per-terrain data outside the tile set, e.g. minimap colours.
type TileType struct {
	ID            string         `yaml:"id"`
	MiniMapColors map[int]string `yaml:"minimap_colors"` // plane -> hex colour
}

// MiniMapColor returns the minimap colour of the tile type on plane.
func (t *TileType) MiniMapColor(plane int) (color.RGBA, bool) {
	hex, ok := t.MiniMapColors[plane]
	if !ok {
		return color.RGBA{}, false
	}
	c, err := ParseColor(hex)
	if err != nil {
		return color.RGBA{}, false
	}
	return c, true
}

// MapFeature is an overlay drawn centred on the terrain, e.g. a mine or tower.
type MapFeature struct {
	ID        string `yaml:"id"`
	Image     string `yaml:"image,omitempty"`
	Animation string `yaml:"animation,omitempty"`
}

// RoadType holds one connector image per direction; direction 0 is the
// image for a road with no neighbouring road.
type RoadType struct {
	ID     string         `yaml:"id"`
	Images map[int]string `yaml:"images"`
}

// CityImage is a city sprite for a size tier, optionally requiring buildings.
type CityImage struct {
	CitySizeID        string   `yaml:"city_size"`
	Image             string   `yaml:"image"`
	RequiredBuildings []string `yaml:"required_buildings,omitempty"`
	FlagOffsetX       int      `yaml:"flag_offset_x"`
	FlagOffsetY       int      `yaml:"flag_offset_y"`
}

// Catalog is the complete graphics database.
type Catalog struct {
	TileSets          []TileSet         `yaml:"tile_sets"`
	SmoothingSystems  []SmoothingSystem `yaml:"smoothing_systems"`
	Animations        []Animation       `yaml:"animations"`
	TileTypes         []TileType        `yaml:"tile_types"`
	MapFeatures       []MapFeature      `yaml:"map_features"`
	RoadTypes         []RoadType        `yaml:"road_types"`
	CityImages        []CityImage       `yaml:"city_images"`
	CityFlagImage     string            `yaml:"city_flag_image"`
	CorruptionImage   string            `yaml:"corruption_image"`
	NodeAuraAnimation string            `yaml:"node_aura_animation"`

	tileSets         map[string]*TileSet
	smoothingSystems map[string]*SmoothingSystem
	animations       map[string]*Animation
	tileTypes        map[string]*TileType
	mapFeatures      map[string]*MapFeature
	roadTypes        map[string]*RoadType
}

// Load reads a YAML catalog from disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML catalog data and builds the lookup indexes.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.Index(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Index builds the id lookups. Call it after building a Catalog in code.
func (c *Catalog) Index() error {
	c.tileSets = make(map[string]*TileSet, len(c.TileSets))
	for i := range c.TileSets {
		ts := &c.TileSets[i]
		if ts.TileWidth <= 0 || ts.TileHeight <= 0 {
			return fmt.Errorf("%w: tile set %s has tile size %dx%d", ErrInvalidCatalog, ts.ID, ts.TileWidth, ts.TileHeight)
		}
		if ts.AnimationFrameCount <= 0 {
			ts.AnimationFrameCount = 1
		}
		if err := put(c.tileSets, ts.ID, ts, "tile set"); err != nil {
			return err
		}
	}

	c.smoothingSystems = make(map[string]*SmoothingSystem, len(c.SmoothingSystems))
	for i := range c.SmoothingSystems {
		ss := &c.SmoothingSystems[i]
		if ss.MaxValueEachDirection < 0 || ss.MaxValueEachDirection > 2 {
			return fmt.Errorf("%w: smoothing system %s has max value %d", ErrInvalidCatalog, ss.ID, ss.MaxValueEachDirection)
		}
		if err := put(c.smoothingSystems, ss.ID, ss, "smoothing system"); err != nil {
			return err
		}
	}

	c.animations = make(map[string]*Animation, len(c.Animations))
	for i := range c.Animations {
		a := &c.Animations[i]
		if len(a.Frames) == 0 {
			return fmt.Errorf("%w: animation %s has no frames", ErrInvalidCatalog, a.ID)
		}
		if err := put(c.animations, a.ID, a, "animation"); err != nil {
			return err
		}
	}

	c.tileTypes = make(map[string]*TileType, len(c.TileTypes))
	for i := range c.TileTypes {
		if err := put(c.tileTypes, c.TileTypes[i].ID, &c.TileTypes[i], "tile type"); err != nil {
			return err
		}
	}

	c.mapFeatures = make(map[string]*MapFeature, len(c.MapFeatures))
	for i := range c.MapFeatures {
		if err := put(c.mapFeatures, c.MapFeatures[i].ID, &c.MapFeatures[i], "map feature"); err != nil {
			return err
		}
	}

	c.roadTypes = make(map[string]*RoadType, len(c.RoadTypes))
	for i := range c.RoadTypes {
		if err := put(c.roadTypes, c.RoadTypes[i].ID, &c.RoadTypes[i], "road type"); err != nil {
			return err
		}
	}

	return nil
}

func put[T any](m map[string]*T, id string, v *T, kind string) error {
	if id == "" {
		return fmt.Errorf("%w: %s without id", ErrInvalidCatalog, kind)
	}
	if _, dup := m[id]; dup {
		return fmt.Errorf("%w: duplicate %s %s", ErrInvalidCatalog, kind, id)
	}
	m[id] = v
	return nil
}

func lookup[T any](m map[string]*T, id, kind string) (*T, error) {
	if v, ok := m[id]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s %q", assets.ErrAssetNotFound, kind, id)
}

// TileSet returns the tile set with the given id.
func (c *Catalog) TileSet(id string) (*TileSet, error) {
	return lookup(c.tileSets, id, "tile set")
}

// SmoothingSystem returns the smoothing system with the given id.
func (c *Catalog) SmoothingSystem(id string) (*SmoothingSystem, error) {
	return lookup(c.smoothingSystems, id, "smoothing system")
}

// Animation returns the animation with the given id.
func (c *Catalog) Animation(id string) (*Animation, error) {
	return lookup(c.animations, id, "animation")
}

// TileType returns the tile type with the given id.
func (c *Catalog) TileType(id string) (*TileType, error) {
	return lookup(c.tileTypes, id, "tile type")
}

// MapFeature returns the map feature with the given id.
func (c *Catalog) MapFeature(id string) (*MapFeature, error) {
	return lookup(c.mapFeatures, id, "map feature")
}

// RoadType returns the road type with the given id.
func (c *Catalog) RoadType(id string) (*RoadType, error) {
	return lookup(c.roadTypes, id, "road type")
}

// BestCityImage picks the city image for sizeID whose required buildings are
// all present in buildings, preferring the one with the most requirements.
// Ties keep catalog order.
func (c *Catalog) BestCityImage(sizeID string, buildings []string) (*CityImage, error) {
	var best *CityImage
	for i := range c.CityImages {
		ci := &c.CityImages[i]
		if ci.CitySizeID != sizeID {
			continue
		}
		satisfied := true
		for _, req := range ci.RequiredBuildings {
			if !slices.Contains(buildings, req) {
				satisfied = false
				break
			}
		}
		if !satisfied {
			continue
		}
		if best == nil || len(ci.RequiredBuildings) > len(best.RequiredBuildings) {
			best = ci
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: city image for size %s", assets.ErrAssetNotFound, sizeID)
	}
	return best, nil
}

// Validate checks every cross reference in the catalog.
func (c *Catalog) Validate() error {
	var errs []error
	for i := range c.TileSets {
		ts := &c.TileSets[i]
		for j := range ts.SmoothedTileTypes {
			st := &ts.SmoothedTileTypes[j]
			if _, err := c.SmoothingSystem(st.SmoothingSystemID); err != nil {
				errs = append(errs, fmt.Errorf("tile set %s, tile type %s: %w", ts.ID, st.TileTypeID, err))
			}
			for mask, tiles := range st.Bitmasks {
				for _, tile := range tiles {
					if err := c.checkImageOrAnimation(tile.Image, tile.Animation); err != nil {
						errs = append(errs, fmt.Errorf("tile set %s, tile type %s, bitmask %s: %w", ts.ID, st.TileTypeID, mask, err))
					}
				}
			}
		}
	}
	for _, mf := range c.MapFeatures {
		if err := c.checkImageOrAnimation(mf.Image, mf.Animation); err != nil {
			errs = append(errs, fmt.Errorf("map feature %s: %w", mf.ID, err))
		}
	}
	if c.NodeAuraAnimation != "" {
		if _, err := c.Animation(c.NodeAuraAnimation); err != nil {
			errs = append(errs, fmt.Errorf("node aura: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Catalog) checkImageOrAnimation(image, animation string) error {
	if animation != "" {
		_, err := c.Animation(animation)
		return err
	}
	if image == "" {
		return fmt.Errorf("%w: neither image nor animation given", ErrInvalidCatalog)
	}
	return nil
}

// ParseColor parses "RRGGBB" or "#RRGGBB" into an opaque colour.
func ParseColor(hex string) (color.RGBA, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", hex)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
