package session

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Faultbox/arcanus/internal/config"
	"github.com/Faultbox/arcanus/internal/engine/texture"
	"github.com/Faultbox/arcanus/internal/world"
	"github.com/Faultbox/arcanus/pkg/grid"
)

const testCatalogYAML = `
smoothing_systems:
  - id: SS0
    max_value_each_direction: 0
tile_sets:
  - id: overland
    tile_width: 2
    tile_height: 2
    smoothed_tile_types:
      - tile_type: TT01
        smoothing_system: SS0
        bitmasks:
          "00000000": [{image: grass.png}]
      - tile_type: TT02
        smoothing_system: SS0
        bitmasks:
          "00000000": [{image: ocean.png}]
tile_types:
  - id: TT01
    minimap_colors: {0: "00C800"}
  - id: TT02
    minimap_colors: {0: "0000C8"}
`

var (
	green = color.RGBA{0, 200, 0, 255}
	blue  = color.RGBA{0, 0, 200, 255}
)

func writePNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, texture.Solid(2, 2, c)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

// openTestSession lays out a small asset directory and opens a session on it.
func openTestSession(t *testing.T) *Session {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "grass.png"), green)
	writePNG(t, filepath.Join(dir, "ocean.png"), blue)
	catalogPath := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(catalogPath, []byte(testCatalogYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Assets.Paths = []string{dir}
	cfg.Assets.Catalog = catalogPath
	cfg.Render.RandomSeed = 7

	s, mgr, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(mgr.Close)
	return s
}

func newTestMap(t *testing.T) *world.Map {
	t.Helper()
	m, err := world.NewMap("test", grid.Bounded(4, 4, 8))
	if err != nil {
		t.Fatal(err)
	}
	m.Fill(world.Cell{TerrainType: "TT01", Visibility: world.Visible})
	return m
}

func TestSession_NotJoined(t *testing.T) {
	s := openTestSession(t)

	if _, err := s.RenderViewport(0, 0, 0, 1, 1); !errors.Is(err, ErrNotJoined) {
		t.Errorf("RenderViewport: expected ErrNotJoined, got %v", err)
	}
	if _, err := s.RenderFog(0, 0, 0, 1, 1); !errors.Is(err, ErrNotJoined) {
		t.Errorf("RenderFog: expected ErrNotJoined, got %v", err)
	}
	if _, err := s.RenderMiniMap(0); !errors.Is(err, ErrNotJoined) {
		t.Errorf("RenderMiniMap: expected ErrNotJoined, got %v", err)
	}
	if err := s.Apply(world.FullChanges()); !errors.Is(err, ErrNotJoined) {
		t.Errorf("Apply: expected ErrNotJoined, got %v", err)
	}
	if s.Context() != nil {
		t.Error("context should be nil before Join")
	}
}

func TestSession_Lifecycle(t *testing.T) {
	s := openTestSession(t)
	m := newTestMap(t)

	if err := s.Join(m); err != nil {
		t.Fatalf("Join: %v", err)
	}
	frames, err := s.RenderViewport(0, 0, 0, 4, 4)
	if err != nil {
		t.Fatalf("RenderViewport: %v", err)
	}
	if got := frames[0].RGBAAt(3, 3); got != green {
		t.Errorf("after join (1,1) = %v, want %v", got, green)
	}

	// Incremental update
	changes := world.NewChanges()
	if err := m.Update(0, 1, 1, changes, func(c *world.Cell) { c.TerrainType = "TT02" }); err != nil {
		t.Fatal(err)
	}
	if err := s.Apply(changes); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	frames, _ = s.RenderViewport(0, 0, 0, 4, 4)
	if got := frames[0].RGBAAt(3, 3); got != blue {
		t.Errorf("after incremental apply (1,1) = %v, want %v", got, blue)
	}

	// Full update
	m.Fill(world.Cell{TerrainType: "TT02", Visibility: world.Visible})
	if err := s.Apply(world.FullChanges()); err != nil {
		t.Fatalf("Apply full: %v", err)
	}
	frames, _ = s.RenderViewport(0, 0, 0, 4, 4)
	if got := frames[0].RGBAAt(7, 7); got != blue {
		t.Errorf("after full apply (3,3) = %v, want %v", got, blue)
	}

	mm, err := s.RenderMiniMap(0)
	if err != nil {
		t.Fatalf("RenderMiniMap: %v", err)
	}
	if got := mm.RGBAAt(0, 0); got != blue {
		t.Errorf("minimap (0,0) = %v, want %v", got, blue)
	}

	ctx := s.Context()
	if ctx.Images.Len() == 0 {
		t.Error("rendering should have decoded images")
	}
	s.Leave()
	if ctx.Images.Len() != 0 {
		t.Error("Leave should clear the image cache")
	}
	if _, err := s.RenderViewport(0, 0, 0, 1, 1); !errors.Is(err, ErrNotJoined) {
		t.Errorf("after Leave: expected ErrNotJoined, got %v", err)
	}
}

func TestSession_EmptyChangesAreNoop(t *testing.T) {
	s := openTestSession(t)
	m := newTestMap(t)
	if err := s.Join(m); err != nil {
		t.Fatal(err)
	}
	// Changed without recording it: an empty notification must not pick it up.
	if err := m.Update(0, 1, 1, nil, func(c *world.Cell) { c.TerrainType = "TT02" }); err != nil {
		t.Fatal(err)
	}
	if err := s.Apply(world.NewChanges()); err != nil {
		t.Fatalf("empty changes: %v", err)
	}
	frames, _ := s.RenderViewport(0, 0, 0, 4, 4)
	if got := frames[0].RGBAAt(3, 3); got != green {
		t.Errorf("after empty apply (1,1) = %v, want cached %v", got, green)
	}
}

func TestSession_NilChangesRecomputeAll(t *testing.T) {
	s := openTestSession(t)
	m := newTestMap(t)
	if err := s.Join(m); err != nil {
		t.Fatal(err)
	}
	if err := m.Update(0, 1, 1, nil, func(c *world.Cell) { c.TerrainType = "TT02" }); err != nil {
		t.Fatal(err)
	}
	if err := s.Apply(nil); err != nil {
		t.Fatalf("nil changes: %v", err)
	}
	frames, _ := s.RenderViewport(0, 0, 0, 4, 4)
	if got := frames[0].RGBAAt(3, 3); got != blue {
		t.Errorf("after nil apply (1,1) = %v, want %v", got, blue)
	}
}

func TestSession_JoinFailsOnUnknownTerrain(t *testing.T) {
	s := openTestSession(t)
	m := newTestMap(t)
	if err := m.SetCell(0, 2, 2, world.Cell{TerrainType: "TT50"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Join(m); err == nil {
		t.Error("expected Join to fail for a tile type missing from the tile set")
	}
	if s.Context() != nil {
		t.Error("a failed Join must not leave a context behind")
	}
}

func TestSession_ConcurrentApplyAndRender(t *testing.T) {
	s := openTestSession(t)
	m := newTestMap(t)
	if err := s.Join(m); err != nil {
		t.Fatal(err)
	}

	// Map writes are serialised by the caller; the session serialises
	// invalidation against rendering.
	var mapMu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			changes := world.NewChanges()
			terrain := "TT01"
			if i%2 == 0 {
				terrain = "TT02"
			}
			mapMu.Lock()
			_ = m.Update(0, i%4, (i/4)%4, changes, func(c *world.Cell) { c.TerrainType = terrain })
			err := s.Apply(changes)
			mapMu.Unlock()
			if err != nil {
				t.Errorf("Apply: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			mapMu.Lock()
			_, err := s.RenderViewport(0, 0, 0, 4, 4)
			mapMu.Unlock()
			if err != nil {
				t.Errorf("RenderViewport: %v", err)
				return
			}
		}
	}()
	wg.Wait()
}
