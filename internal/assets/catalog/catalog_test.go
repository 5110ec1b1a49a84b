package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/arcanus/internal/assets"
)

const testYAML = `
tile_sets:
  - id: overland
    tile_width: 20
    tile_height: 18
    animation_frame_count: 4
    smoothed_tile_types:
      - tile_type: TT01
        secondary_tile_type: TT07
        smoothing_system: SS1
        bitmasks:
          "00000000":
            - image: grass1.png
            - image: grass2.png
          NoSmooth:
            - image: grass1.png
      - tile_type: TT01
        plane: 1
        smoothing_system: SS1
        bitmasks:
          "00000000":
            - image: myrror_grass.png
      - tile_type: TT02
        smoothing_system: SS0
        bitmasks:
          "00000000":
            - animation: ocean
smoothing_systems:
  - id: SS0
    max_value_each_direction: 0
  - id: SS1
    max_value_each_direction: 1
animations:
  - id: ocean
    frames: [ocean1.png, ocean2.png]
tile_types:
  - id: TT01
    minimap_colors:
      0: "#58A028"
      1: "406020"
map_features:
  - id: MF01
    image: tower.png
road_types:
  - id: RT01
    images:
      0: road0.png
      3: road3.png
city_images:
  - city_size: CS01
    image: hamlet.png
  - city_size: CS03
    image: town.png
    flag_offset_x: 4
  - city_size: CS03
    image: town_walls.png
    required_buildings: [BL_WALL]
    flag_offset_x: 6
city_flag_image: flag.png
corruption_image: corrupt.png
node_aura_animation: ocean
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	ts, err := c.TileSet("overland")
	if err != nil {
		t.Fatalf("TileSet failed: %v", err)
	}
	if ts.TileWidth != 20 || ts.TileHeight != 18 || ts.AnimationFrameCount != 4 {
		t.Errorf("unexpected tile set %+v", ts)
	}

	ss, err := c.SmoothingSystem("SS1")
	if err != nil || ss.MaxValueEachDirection != 1 {
		t.Errorf("SmoothingSystem(SS1) = %+v, %v", ss, err)
	}

	if err := c.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLookups_NotFound(t *testing.T) {
	c, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	checks := map[string]error{
		"tile set":         func() error { _, err := c.TileSet("combat"); return err }(),
		"smoothing system": func() error { _, err := c.SmoothingSystem("SS9"); return err }(),
		"animation":        func() error { _, err := c.Animation("lava"); return err }(),
		"tile type":        func() error { _, err := c.TileType("TT99"); return err }(),
		"map feature":      func() error { _, err := c.MapFeature("MF99"); return err }(),
		"road type":        func() error { _, err := c.RoadType("RT99"); return err }(),
		"city image":       func() error { _, err := c.BestCityImage("CS09", nil); return err }(),
	}
	for kind, err := range checks {
		if !errors.Is(err, assets.ErrAssetNotFound) {
			t.Errorf("%s: expected ErrAssetNotFound, got %v", kind, err)
		}
	}
}

func TestFindSmoothedTileType_PlanePreference(t *testing.T) {
	c, _ := Parse([]byte(testYAML))
	ts, _ := c.TileSet("overland")

	st, err := ts.FindSmoothedTileType("TT01", 1)
	if err != nil {
		t.Fatalf("FindSmoothedTileType failed: %v", err)
	}
	if st.Bitmasks["00000000"][0].Image != "myrror_grass.png" {
		t.Error("plane-specific entry should win on plane 1")
	}

	st, _ = ts.FindSmoothedTileType("TT01", 0)
	if st.Plane != nil {
		t.Error("plane 0 should fall back to the plane-agnostic entry")
	}

	if _, err := ts.FindSmoothedTileType("TT42", 0); !errors.Is(err, assets.ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestSmoothedTileType_Equivalent(t *testing.T) {
	st := SmoothedTileType{TileTypeID: "TT01", SecondaryTileTypeID: "TT07"}
	if !st.Equivalent("TT01") || !st.Equivalent("TT07") {
		t.Error("primary and secondary ids should be equivalent")
	}
	if st.Equivalent("TT02") {
		t.Error("TT02 is not equivalent")
	}
	if st.Equivalent("") {
		t.Error("empty tile type must never match an unset tertiary id")
	}
}

func TestAnimation_FrameLoops(t *testing.T) {
	a := Animation{ID: "x", Frames: []string{"a.png", "b.png"}}
	if a.Frame(0) != "a.png" || a.Frame(3) != "b.png" {
		t.Errorf("unexpected frames %s %s", a.Frame(0), a.Frame(3))
	}
}

func TestBestCityImage(t *testing.T) {
	c, _ := Parse([]byte(testYAML))

	ci, err := c.BestCityImage("CS03", []string{"BL_GRANARY", "BL_WALL"})
	if err != nil {
		t.Fatalf("BestCityImage failed: %v", err)
	}
	if ci.Image != "town_walls.png" || ci.FlagOffsetX != 6 {
		t.Errorf("expected walled town, got %+v", ci)
	}

	ci, _ = c.BestCityImage("CS03", []string{"BL_GRANARY"})
	if ci.Image != "town.png" {
		t.Errorf("expected plain town without walls, got %s", ci.Image)
	}
}

func TestMiniMapColor(t *testing.T) {
	c, _ := Parse([]byte(testYAML))
	tt, _ := c.TileType("TT01")

	col, ok := tt.MiniMapColor(0)
	if !ok || col.R != 0x58 || col.G != 0xA0 || col.B != 0x28 || col.A != 255 {
		t.Errorf("plane 0 colour = %v, %v", col, ok)
	}
	if col, ok = tt.MiniMapColor(1); !ok || col.R != 0x40 {
		t.Errorf("plane 1 colour = %v, %v", col, ok)
	}
	if _, ok := tt.MiniMapColor(2); ok {
		t.Error("no colour defined for plane 2")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero tile size", "tile_sets:\n  - id: a\n    tile_width: 0\n    tile_height: 4\n"},
		{"duplicate tile set", "tile_sets:\n  - {id: a, tile_width: 1, tile_height: 1}\n  - {id: a, tile_width: 1, tile_height: 1}\n"},
		{"bad max value", "smoothing_systems:\n  - {id: s, max_value_each_direction: 3}\n"},
		{"empty animation", "animations:\n  - {id: a, frames: []}\n"},
		{"missing id", "road_types:\n  - images: {0: r.png}\n"},
		{"broken yaml", "tile_sets: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("expected ErrInvalidCatalog, got %v", err)
			}
		})
	}
}

func TestValidate_DanglingReferences(t *testing.T) {
	data := `
tile_sets:
  - id: overland
    tile_width: 4
    tile_height: 4
    smoothed_tile_types:
      - tile_type: TT01
        smoothing_system: SS_MISSING
        bitmasks:
          "0000": [{animation: missing}]
`
	c, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	err = c.Validate()
	if !errors.Is(err, assets.ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound from Validate, got %v", err)
	}
}

func TestParseColor(t *testing.T) {
	if _, err := ParseColor("12345"); err == nil {
		t.Error("expected error for short colour")
	}
	if _, err := ParseColor("GGGGGG"); err == nil {
		t.Error("expected error for non-hex colour")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(testYAML), 0644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.CityFlagImage != "flag.png" || c.CorruptionImage != "corrupt.png" {
		t.Errorf("unexpected overlay images %q %q", c.CityFlagImage, c.CorruptionImage)
	}
}
