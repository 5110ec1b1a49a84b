package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"testing"
	"testing/fstest"

	"github.com/Faultbox/arcanus/internal/assets"
	"github.com/Faultbox/arcanus/internal/assets/catalog"
	"github.com/Faultbox/arcanus/internal/engine/texture"
	"github.com/Faultbox/arcanus/internal/world"
	"github.com/Faultbox/arcanus/pkg/grid"
)

var (
	green     = color.RGBA{0, 200, 0, 255}
	blue      = color.RGBA{0, 0, 200, 255}
	darkBlue  = color.RGBA{0, 0, 100, 255}
	white     = color.RGBA{255, 255, 255, 255}
	black     = color.RGBA{0, 0, 0, 255}
	grey      = color.RGBA{90, 90, 90, 255}
	purple    = color.RGBA{128, 0, 128, 255}
	red       = color.RGBA{255, 0, 0, 255}
	yellow    = color.RGBA{255, 255, 0, 255}
	brown     = color.RGBA{120, 80, 40, 255}
	roadColor = func(d int) color.RGBA { return color.RGBA{uint8(200 + d), 100, uint8(d * 10), 255} }
)

func encodePNG(t *testing.T, w, h int, c color.Color) *fstest.MapFile {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, texture.Solid(w, h, c)); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return &fstest.MapFile{Data: buf.Bytes()}
}

func testAssets(t *testing.T) fstest.MapFS {
	t.Helper()
	fsys := fstest.MapFS{
		"grass.png":      encodePNG(t, 4, 4, green),
		"ocean1.png":     encodePNG(t, 4, 4, blue),
		"ocean2.png":     encodePNG(t, 4, 4, darkBlue),
		"fow.png":        encodePNG(t, 4, 4, black),
		"fowpartial.png": encodePNG(t, 4, 4, grey),
		"tower.png":      encodePNG(t, 2, 2, white),
		"corrupt.png":    encodePNG(t, 1, 1, purple),
		"city.png":       encodePNG(t, 8, 8, white),
		"walled.png":     encodePNG(t, 8, 8, yellow),
		"flag.png":       encodePNG(t, 1, 1, white),
		"aura1.png":      encodePNG(t, 1, 1, white),
		"aura2.png":      encodePNG(t, 1, 1, white),
		"floor.png":      encodePNG(t, 2, 2, brown),
		"wall.png":       encodePNG(t, 2, 2, grey),
	}
	for d := 0; d <= 8; d++ {
		fsys[roadImage(d)] = encodePNG(t, 2, 2, roadColor(d))
	}
	return fsys
}

func roadImage(d int) string {
	return "road" + string(rune('0'+d)) + ".png"
}

func flat(img string) map[string][]catalog.SmoothedTile {
	return map[string][]catalog.SmoothedTile{"00000000": {{Image: img}}}
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	roads := map[int]string{}
	for d := 0; d <= 8; d++ {
		roads[d] = roadImage(d)
	}
	myrror := 1
	c := &catalog.Catalog{
		SmoothingSystems: []catalog.SmoothingSystem{
			{ID: "SS0", MaxValueEachDirection: 0},
			{ID: "SS1", MaxValueEachDirection: 1},
		},
		Animations: []catalog.Animation{
			{ID: "ocean", Frames: []string{"ocean1.png", "ocean2.png"}},
			{ID: "aura", Frames: []string{"aura1.png", "aura2.png"}},
		},
		TileSets: []catalog.TileSet{
			{
				ID: "overland", TileWidth: 4, TileHeight: 4, AnimationFrameCount: 2,
				SmoothedTileTypes: []catalog.SmoothedTileType{
					{TileTypeID: "TT01", SmoothingSystemID: "SS0", Bitmasks: flat("grass.png")},
					{TileTypeID: "TT02", SmoothingSystemID: "SS0", Bitmasks: map[string][]catalog.SmoothedTile{
						"00000000": {{Animation: "ocean"}},
					}},
					{TileTypeID: catalog.TileTypeFogOfWar, SmoothingSystemID: "SS1", Bitmasks: map[string][]catalog.SmoothedTile{
						catalog.NoSmoothingBitmask: {{Image: "fow.png"}},
					}},
					{TileTypeID: catalog.TileTypeFogOfWarPartial, SmoothingSystemID: "SS1", Bitmasks: map[string][]catalog.SmoothedTile{
						catalog.NoSmoothingBitmask: {{Image: "fowpartial.png"}},
					}},
				},
			},
			{
				ID: "combat", TileWidth: 2, TileHeight: 2,
				SmoothedTileTypes: []catalog.SmoothedTileType{
					{TileTypeID: "CTL01", Plane: &myrror, SmoothingSystemID: "SS0", Bitmasks: flat("wall.png")},
					{TileTypeID: "CTL01", SmoothingSystemID: "SS0", Bitmasks: flat("floor.png")},
					{TileTypeID: "CBL01", SmoothingSystemID: "SS1", Bitmasks: map[string][]catalog.SmoothedTile{
						catalog.NoSmoothingBitmask: {{Image: "wall.png"}},
					}},
				},
			},
		},
		TileTypes: []catalog.TileType{
			{ID: "TT01", MiniMapColors: map[int]string{0: "00C800"}},
			{ID: "TT02", MiniMapColors: map[int]string{0: "#0000C8"}},
		},
		MapFeatures: []catalog.MapFeature{{ID: "tower", Image: "tower.png"}},
		RoadTypes:   []catalog.RoadType{{ID: "dirt", Images: roads}},
		CityImages: []catalog.CityImage{
			{CitySizeID: "hamlet", Image: "city.png"},
			{CitySizeID: "hamlet", Image: "walled.png", RequiredBuildings: []string{"city_walls"}, FlagOffsetX: 1, FlagOffsetY: 1},
		},
		CityFlagImage:     "flag.png",
		CorruptionImage:   "corrupt.png",
		NodeAuraAnimation: "aura",
	}
	if err := c.Index(); err != nil {
		t.Fatalf("catalog index: %v", err)
	}
	return c
}

type fixture struct {
	m   *world.Map
	ctx *Context
}

func newFixture(t *testing.T, topo grid.Topology, flags Flags) *fixture {
	t.Helper()
	m, err := world.NewMap("test", topo)
	if err != nil {
		t.Fatal(err)
	}
	m.Fill(world.Cell{TerrainType: "TT01", Visibility: world.Visible})

	mgr := assets.NewManager()
	mgr.AddFS("mem", testAssets(t))
	ctx, err := NewContext(m, testCatalog(t), texture.NewLoader(mgr), PlayerColorMap{1: red, 2: blue}, Options{
		Flags:           flags,
		OverlandTileSet: "overland",
		CombatTileSet:   "combat",
		Rand:            rand.New(rand.NewPCG(1, 1)),
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return &fixture{m: m, ctx: ctx}
}

func (f *fixture) update(t *testing.T, x, y int, fn func(c *world.Cell)) {
	t.Helper()
	if err := f.m.Update(0, x, y, nil, fn); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) render(t *testing.T, originX, originY, w, h int) []*image.RGBA {
	t.Helper()
	if err := f.ctx.Tiles.InvalidateAll(); err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}
	frames, err := NewCompositor(f.ctx).RenderViewport(0, originX, originY, w, h)
	if err != nil {
		t.Fatalf("RenderViewport: %v", err)
	}
	return frames
}

func TestRenderViewport_FrameCountAndSize(t *testing.T) {
	f := newFixture(t, grid.Bounded(5, 5, 8), DefaultFlags())
	frames := f.render(t, 0, 0, 3, 2)

	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	for i, fr := range frames {
		if b := fr.Bounds(); b.Dx() != 12 || b.Dy() != 8 {
			t.Errorf("frame %d is %dx%d, want 12x8", i, b.Dx(), b.Dy())
		}
		if got := fr.RGBAAt(5, 5); got != green {
			t.Errorf("frame %d static terrain = %v, want %v", i, got, green)
		}
	}
}

func TestRenderViewport_AnimatedTerrain(t *testing.T) {
	f := newFixture(t, grid.Bounded(3, 3, 8), DefaultFlags())
	f.update(t, 1, 1, func(c *world.Cell) { c.TerrainType = "TT02" })
	frames := f.render(t, 0, 0, 3, 3)

	if got := frames[0].RGBAAt(5, 5); got != blue {
		t.Errorf("frame 0 ocean = %v, want %v", got, blue)
	}
	if got := frames[1].RGBAAt(5, 5); got != darkBlue {
		t.Errorf("frame 1 ocean = %v, want %v", got, darkBlue)
	}
}

func TestRenderViewport_Idempotent(t *testing.T) {
	f := newFixture(t, grid.Bounded(4, 4, 8), DefaultFlags())
	f.update(t, 1, 1, func(c *world.Cell) { c.Road = "dirt"; c.MapFeature = "tower" })
	f.update(t, 2, 2, func(c *world.Cell) { c.City = &world.City{SizeID: "hamlet", Owner: 1} })

	first := f.render(t, 0, 0, 4, 4)
	second, err := NewCompositor(f.ctx).RenderViewport(0, 0, 0, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		if !bytes.Equal(first[i].Pix, second[i].Pix) {
			t.Errorf("frame %d differs between renders", i)
		}
	}
}

func TestRenderViewport_EdgesAndUnscouted(t *testing.T) {
	f := newFixture(t, grid.Bounded(3, 3, 8), DefaultFlags())
	f.update(t, 1, 1, func(c *world.Cell) { c.TerrainType = "" })
	frames := f.render(t, -1, 0, 3, 2)

	if got := frames[0].RGBAAt(1, 1); got.A != 0 {
		t.Errorf("cell past the west edge should be transparent, got %v", got)
	}
	if got := frames[0].RGBAAt(5, 1); got != green {
		t.Errorf("map cell (0,0) = %v, want %v", got, green)
	}
	if got := frames[0].RGBAAt(9, 5); got.A != 0 {
		t.Errorf("unscouted cell should be transparent, got %v", got)
	}
}

func TestRenderViewport_WrapsLeftToRight(t *testing.T) {
	f := newFixture(t, grid.Overland(4, 2, 1), DefaultFlags())
	f.update(t, 3, 0, func(c *world.Cell) { c.TerrainType = "TT02" })
	frames := f.render(t, -1, 0, 2, 1)

	if got := frames[0].RGBAAt(1, 1); got != blue {
		t.Errorf("viewport x=-1 should show map x=3, got %v", got)
	}
}

func TestRenderViewport_Roads(t *testing.T) {
	f := newFixture(t, grid.Bounded(5, 3, 8), DefaultFlags())
	f.update(t, 0, 0, func(c *world.Cell) { c.Road = "dirt" })
	f.update(t, 2, 1, func(c *world.Cell) { c.Road = "dirt" })
	f.update(t, 3, 1, func(c *world.Cell) { c.Road = "dirt" })
	frames := f.render(t, 0, 0, 5, 3)

	// A 2x2 road sprite centred on a 4x4 cell covers pixels 1..2
	if got := frames[0].RGBAAt(1, 1); got != roadColor(0) {
		t.Errorf("isolated road = %v, want %v", got, roadColor(0))
	}
	if got := frames[0].RGBAAt(9, 5); got != roadColor(int(grid.East)) {
		t.Errorf("road with an eastern neighbour = %v, want %v", got, roadColor(int(grid.East)))
	}
	if got := frames[0].RGBAAt(13, 5); got != roadColor(int(grid.West)) {
		t.Errorf("road with a western neighbour = %v, want %v", got, roadColor(int(grid.West)))
	}
}

func TestRenderViewport_FeatureAndCorruption(t *testing.T) {
	f := newFixture(t, grid.Bounded(2, 1, 8), DefaultFlags())
	f.update(t, 0, 0, func(c *world.Cell) { c.MapFeature = "tower" })
	f.update(t, 1, 0, func(c *world.Cell) { c.Corrupted = true })
	frames := f.render(t, 0, 0, 2, 1)

	for i, fr := range frames {
		if got := fr.RGBAAt(2, 2); got != white {
			t.Errorf("frame %d feature = %v, want %v", i, got, white)
		}
		if got := fr.RGBAAt(0, 0); got != green {
			t.Errorf("frame %d feature should be centred, corner = %v", i, got)
		}
		if got := fr.RGBAAt(5, 1); got != purple {
			t.Errorf("frame %d corruption = %v, want %v", i, got, purple)
		}
	}
}

func TestRenderViewport_CitiesAndAuras(t *testing.T) {
	f := newFixture(t, grid.Bounded(4, 4, 8), DefaultFlags())
	f.update(t, 1, 1, func(c *world.Cell) { c.City = &world.City{SizeID: "hamlet", Owner: 1} })
	f.update(t, 2, 2, func(c *world.Cell) {
		c.City = &world.City{SizeID: "hamlet", Owner: 2, Buildings: []string{"city_walls"}}
	})
	owner := 2
	f.update(t, 0, 3, func(c *world.Cell) { c.NodeOwner = &owner })
	frames := f.render(t, 0, 0, 4, 4)
	fr := frames[0]

	// 8x8 city centred on cell (1,1) starts at pixel (2,2); the flag sits at the
	// sprite origin tinted red.
	if got := fr.RGBAAt(2, 2); got != red {
		t.Errorf("flag = %v, want %v", got, red)
	}
	if got := fr.RGBAAt(3, 3); got != white {
		t.Errorf("city = %v, want %v", got, white)
	}

	// The walled city at (2,2) is drawn after terrain, spilling over its neighbours
	if got := fr.RGBAAt(6, 6); got != yellow {
		t.Errorf("walled city should overlap the neighbouring tile, got %v", got)
	}
	if got := fr.RGBAAt(7, 7); got != blue {
		t.Errorf("walled city flag at offset (1,1) = %v, want %v", got, blue)
	}

	// Node aura tinted with the owner's colour on every frame
	for i, fr := range frames {
		if got := fr.RGBAAt(1, 13); got != blue {
			t.Errorf("frame %d aura = %v, want %v", i, got, blue)
		}
	}
}

func TestRenderViewport_Errors(t *testing.T) {
	f := newFixture(t, grid.Bounded(3, 3, 8), DefaultFlags())
	if err := f.ctx.Tiles.InvalidateAll(); err != nil {
		t.Fatal(err)
	}
	comp := NewCompositor(f.ctx)

	if _, err := comp.RenderViewport(0, 0, 0, 0, 3); !errors.Is(err, ErrInvalidViewport) {
		t.Errorf("zero width: expected ErrInvalidViewport, got %v", err)
	}
	if _, err := comp.RenderViewport(1, 0, 0, 3, 3); !errors.Is(err, ErrInvalidViewport) {
		t.Errorf("unknown plane: expected ErrInvalidViewport, got %v", err)
	}

	f.update(t, 1, 1, func(c *world.Cell) { c.MapFeature = "volcano" })
	if _, err := comp.RenderViewport(0, 0, 0, 3, 3); !errors.Is(err, assets.ErrAssetNotFound) {
		t.Errorf("unknown feature: expected ErrAssetNotFound, got %v", err)
	}

	f.update(t, 1, 1, func(c *world.Cell) {
		c.MapFeature = ""
		c.City = &world.City{SizeID: "hamlet", Owner: 9}
	})
	if _, err := comp.RenderViewport(0, 0, 0, 3, 3); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("unknown owner: expected ErrUnknownPlayer, got %v", err)
	}

	f.update(t, 1, 1, func(c *world.Cell) { c.City = &world.City{SizeID: "metropolis", Owner: 1} })
	if _, err := comp.RenderViewport(0, 0, 0, 3, 3); !errors.Is(err, assets.ErrAssetNotFound) {
		t.Errorf("unknown city size: expected ErrAssetNotFound, got %v", err)
	}
}

func TestRenderViewport_MissingImageFile(t *testing.T) {
	f := newFixture(t, grid.Bounded(2, 2, 8), DefaultFlags())
	f.ctx.Catalog.CorruptionImage = "missing.png"
	f.update(t, 0, 0, func(c *world.Cell) { c.Corrupted = true })
	if err := f.ctx.Tiles.InvalidateAll(); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCompositor(f.ctx).RenderViewport(0, 0, 0, 2, 2); !errors.Is(err, assets.ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}
}

func setVisibility(t *testing.T, f *fixture, v world.Visibility) {
	t.Helper()
	topo := f.m.Topology()
	for y := 0; y < topo.Height; y++ {
		for x := 0; x < topo.Width; x++ {
			f.update(t, x, y, func(c *world.Cell) { c.Visibility = v })
		}
	}
}

func renderFog(t *testing.T, f *fixture) *image.RGBA {
	t.Helper()
	topo := f.m.Topology()
	img, err := NewFogRenderer(f.ctx).RenderFog(0, 0, 0, topo.Width, topo.Height)
	if err != nil {
		t.Fatalf("RenderFog: %v", err)
	}
	return img
}

// cellPixel samples the centre of cell (x, y) on a 4x4 tile grid.
func cellPixel(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x*4+1, y*4+1)
}

func TestRenderFog_UniformNeedsNoArt(t *testing.T) {
	f := newFixture(t, grid.Bounded(3, 3, 8), DefaultFlags())
	img := renderFog(t, f)

	if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 12 {
		t.Fatalf("fog overlay is %dx%d, want 12x12", b.Dx(), b.Dy())
	}
	for _, px := range img.Pix {
		if px != 0 {
			t.Fatal("a fully visible map should produce an empty overlay")
		}
	}
}

func TestRenderFog_FullFogBoundary(t *testing.T) {
	f := newFixture(t, grid.Bounded(4, 3, 8), DefaultFlags())
	for y := 0; y < 3; y++ {
		f.update(t, 3, y, func(c *world.Cell) { c.Visibility = world.NeverSeen })
	}
	img := renderFog(t, f)

	if got := cellPixel(img, 2, 1); got != black {
		t.Errorf("visible cell next to unexplored land = %v, want fog edge", got)
	}
	if got := cellPixel(img, 0, 1); got.A != 0 {
		t.Errorf("interior visible cell = %v, want nothing", got)
	}
	if got := cellPixel(img, 3, 1); got.A != 0 {
		t.Errorf("never seen cell = %v, want nothing", got)
	}
}

func TestRenderFog_PartialFog(t *testing.T) {
	f := newFixture(t, grid.Bounded(4, 1, 8), DefaultFlags())
	setVisibility(t, f, world.PreviouslySeen)
	f.update(t, 0, 0, func(c *world.Cell) { c.Visibility = world.Visible })
	img := renderFog(t, f)

	if got := cellPixel(img, 0, 0); got.A != 0 {
		t.Errorf("visible cell = %v, want nothing", got)
	}
	if got := cellPixel(img, 1, 0); got != grey {
		t.Errorf("remembered cell next to visible = %v, want partial edge", got)
	}
	if got := cellPixel(img, 3, 0); got != PartialFogColor {
		t.Errorf("remembered interior cell = %v, want %v", got, PartialFogColor)
	}
}

func TestRenderFog_Flags(t *testing.T) {
	flags := DefaultFlags()
	flags.ShowPartialFogOfWar = false
	f := newFixture(t, grid.Bounded(3, 1, 8), flags)
	setVisibility(t, f, world.PreviouslySeen)
	for _, px := range renderFog(t, f).Pix {
		if px != 0 {
			t.Fatal("partial fog disabled should draw nothing over remembered cells")
		}
	}

	flags = DefaultFlags()
	flags.SmoothFogOfWar = false
	f = newFixture(t, grid.Bounded(3, 1, 8), flags)
	f.update(t, 0, 0, func(c *world.Cell) { c.Visibility = world.PreviouslySeen })
	f.update(t, 2, 0, func(c *world.Cell) { c.Visibility = world.NeverSeen })
	img := renderFog(t, f)
	if got := cellPixel(img, 0, 0); got != PartialFogColor {
		t.Errorf("unsmoothed remembered cell = %v, want %v", got, PartialFogColor)
	}
	if got := cellPixel(img, 1, 0); got.A != 0 {
		t.Errorf("unsmoothed visible cell = %v, want no edge art", got)
	}
}

func TestRenderMiniMap(t *testing.T) {
	f := newFixture(t, grid.Bounded(3, 2, 8), DefaultFlags())
	f.update(t, 1, 0, func(c *world.Cell) { c.TerrainType = "TT02" })
	f.update(t, 2, 0, func(c *world.Cell) { c.TerrainType = "" })
	f.update(t, 0, 1, func(c *world.Cell) { c.City = &world.City{SizeID: "hamlet", Owner: 2} })

	mm := NewMiniMapRenderer(f.ctx)
	img, err := mm.RenderMiniMap(0)
	if err != nil {
		t.Fatalf("RenderMiniMap: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("minimap is %dx%d, want 3x2", b.Dx(), b.Dy())
	}

	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{0, 0, color.RGBA{0, 200, 0, 255}},
		{1, 0, color.RGBA{0, 0, 200, 255}},
		{2, 0, color.RGBA{}},
		{0, 1, blue},
	}
	for _, tt := range tests {
		if got := img.RGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}

	if _, err := mm.RenderMiniMap(4); !errors.Is(err, ErrInvalidViewport) {
		t.Errorf("expected ErrInvalidViewport for a missing plane, got %v", err)
	}
	f.update(t, 1, 1, func(c *world.Cell) { c.TerrainType = "TT77" })
	if _, err := mm.RenderMiniMap(0); !errors.Is(err, assets.ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound for an unknown tile type, got %v", err)
	}
}

func TestRenderCombat(t *testing.T) {
	f := newFixture(t, grid.Bounded(2, 2, 8), DefaultFlags())
	cm, err := world.NewCombatMap(3, 2, 8)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			_ = cm.SetTileType(x, y, world.CombatLayerTerrain, "CTL01")
		}
	}
	_ = cm.SetTileType(2, 1, world.CombatLayerBuilding, "CBL01")

	frames, err := NewCombatRenderer(f.ctx).RenderCombat(cm)
	if err != nil {
		t.Fatalf("RenderCombat: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if b := frames[0].Bounds(); b.Dx() != 6 || b.Dy() != 4 {
		t.Errorf("combat bitmap is %dx%d, want 6x4", b.Dx(), b.Dy())
	}
	// Combat maps have no plane: the plane-specific CTL01 entry is ignored.
	if got := frames[0].RGBAAt(0, 0); got != brown {
		t.Errorf("floor = %v, want %v", got, brown)
	}
	if got := frames[0].RGBAAt(5, 3); got != grey {
		t.Errorf("wall over floor = %v, want %v", got, grey)
	}

	_ = cm.SetTileType(0, 0, world.CombatLayerRoad, "CRL99")
	if _, err := NewCombatRenderer(f.ctx).RenderCombat(cm); !errors.Is(err, assets.ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound for an unknown combat tile, got %v", err)
	}
}
