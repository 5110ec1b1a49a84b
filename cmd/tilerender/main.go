// tilerender is a CLI utility for rendering map snapshots with the terrain
// autotiling engine and inspecting the graphics catalog.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/arcanus/internal/assets"
	"github.com/Faultbox/arcanus/internal/config"
	"github.com/Faultbox/arcanus/internal/engine/debug"
	"github.com/Faultbox/arcanus/internal/game/session"
	"github.com/Faultbox/arcanus/internal/logger"
	"github.com/Faultbox/arcanus/internal/world"
)

func main() {
	// Global flags come before the command
	flag.Usage = printUsage
	config.ParseFlags()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "render":
		cmdRender(cfg, args)
	case "fog":
		cmdFog(cfg, args)
	case "minimap":
		cmdMiniMap(cfg, args)
	case "bitmask":
		cmdBitmask(cfg, args)
	case "catalog":
		cmdCatalog(cfg, args)
	case "config":
		cmdConfig(cfg, args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tilerender - terrain autotiling renderer

Usage:
  tilerender [global options] <command> [options]

Global options:
  -config <file>     Config file (default ./config.yaml or user config dir)
  -assets <dirs>     Comma-separated asset directories
  -catalog <file>    Graphics catalog YAML
  -seed <n>          Tile tie-break seed
  -no-smooth         Disable terrain and fog smoothing
  -no-partial-fog    Hide partial fog of war
  -debug             Debug logging

Commands:
  render  -map <file> [-plane p] [-x x -y y -w w -h h] [-out dir] [-gif] [-grid]
  fog     -map <file> [-plane p] [-x x -y y -w w -h h] [-out dir]
  minimap -map <file> [-plane p] [-out dir]
  bitmask -map <file> [-plane p] <x> <y>
  catalog                            Show and validate the graphics catalog
  config  [-out file]                Write the effective config (default: user config dir)

Examples:
  tilerender -assets graphics render -map arcanus.yaml -w 20 -h 15 -gif
  tilerender -seed 1 bitmask -map arcanus.yaml 10 4`)
}

// viewFlags are the viewport options shared by render and fog.
type viewFlags struct {
	mapPath *string
	plane   *int
	x, y    *int
	w, h    *int
	out     *string
}

func addViewFlags(fs *flag.FlagSet) viewFlags {
	return viewFlags{
		mapPath: fs.String("map", "", "Map snapshot YAML"),
		plane:   fs.Int("plane", 0, "Plane to render"),
		x:       fs.Int("x", 0, "Viewport left cell"),
		y:       fs.Int("y", 0, "Viewport top cell"),
		w:       fs.Int("w", 0, "Viewport width in cells (0 = whole map)"),
		h:       fs.Int("h", 0, "Viewport height in cells (0 = whole map)"),
		out:     fs.String("out", ".", "Output directory"),
	}
}

// join opens the assets, loads the map and joins a session on it.
func join(cfg *config.Config, mapPath string) (*session.Session, *world.Map, *assets.Manager) {
	if mapPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -map is required")
		os.Exit(1)
	}

	m, err := world.LoadMap(mapPath)
	if err != nil {
		fail(err)
	}
	s, mgr, err := session.Open(cfg)
	if err != nil {
		fail(err)
	}
	if err := s.Join(m); err != nil {
		mgr.Close()
		fail(err)
	}
	return s, m, mgr
}

func fail(err error) {
	logger.Error("tilerender failed", zap.Error(err))
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func (v viewFlags) size(m *world.Map) (int, int) {
	w, h := *v.w, *v.h
	topo := m.Topology()
	if w <= 0 {
		w = topo.Width
	}
	if h <= 0 {
		h = topo.Height
	}
	return w, h
}

func cmdRender(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	view := addViewFlags(fs)
	asGIF := fs.Bool("gif", false, "Also write an animated GIF")
	grid := fs.Bool("grid", false, "Overlay cell boundaries")
	fs.Parse(args)

	s, m, mgr := join(cfg, *view.mapPath)
	defer mgr.Close()
	defer s.Leave()

	w, h := view.size(m)
	frames, err := s.RenderViewport(*view.plane, *view.x, *view.y, w, h)
	if err != nil {
		fail(err)
	}

	if *grid {
		tw, th := s.Context().TileSize()
		for _, fr := range frames {
			debug.DrawTileGrid(fr, tw, th, debug.GridColor)
		}
	}

	capture := debug.NewCapture(*view.out, m.Name)
	paths, err := capture.SaveFrames(frames)
	if err != nil {
		fail(err)
	}
	for _, p := range paths {
		fmt.Printf("Wrote: %s\n", p)
	}

	if *asGIF {
		p, err := capture.SaveGIF(frames, 20)
		if err != nil {
			fail(err)
		}
		fmt.Printf("Wrote: %s\n", p)
	}
}

func cmdFog(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("fog", flag.ExitOnError)
	view := addViewFlags(fs)
	fs.Parse(args)

	s, m, mgr := join(cfg, *view.mapPath)
	defer mgr.Close()
	defer s.Leave()

	w, h := view.size(m)
	img, err := s.RenderFog(*view.plane, *view.x, *view.y, w, h)
	if err != nil {
		fail(err)
	}

	p, err := debug.NewCapture(*view.out, m.Name).SaveImage("fog", img)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Wrote: %s\n", p)
}

func cmdMiniMap(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("minimap", flag.ExitOnError)
	mapPath := fs.String("map", "", "Map snapshot YAML")
	plane := fs.Int("plane", 0, "Plane to render")
	out := fs.String("out", ".", "Output directory")
	fs.Parse(args)

	s, m, mgr := join(cfg, *mapPath)
	defer mgr.Close()
	defer s.Leave()

	img, err := s.RenderMiniMap(*plane)
	if err != nil {
		fail(err)
	}

	p, err := debug.NewCapture(*out, m.Name).SaveImage(fmt.Sprintf("minimap_plane%d", *plane), img)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Wrote: %s\n", p)
}

func cmdBitmask(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("bitmask", flag.ExitOnError)
	mapPath := fs.String("map", "", "Map snapshot YAML")
	plane := fs.Int("plane", 0, "Plane")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: tilerender bitmask -map <file> [-plane p] <x> <y>")
		os.Exit(1)
	}
	var x, y int
	if _, err := fmt.Sscan(fs.Arg(0), &x); err != nil {
		fail(fmt.Errorf("x: %w", err))
	}
	if _, err := fmt.Sscan(fs.Arg(1), &y); err != nil {
		fail(fmt.Errorf("y: %w", err))
	}

	s, m, mgr := join(cfg, *mapPath)
	defer mgr.Close()
	defer s.Leave()

	cell, ok := m.Cell(*plane, x, y)
	if !ok {
		fail(fmt.Errorf("%w: %d:%d,%d", world.ErrOutOfBounds, *plane, x, y))
	}

	tiles := s.Context().Tiles
	mask, err := tiles.Bitmask(*plane, x, y)
	if err != nil {
		fail(err)
	}
	tile := tiles.Get(*plane, x, y)

	fmt.Printf("Cell:      %d:%d,%d\n", *plane, x, y)
	fmt.Printf("Terrain:   %s\n", orNone(cell.TerrainType))
	fmt.Printf("Rivers:    %v\n", cell.Rivers)
	fmt.Printf("Bitmask:   %s\n", orNone(string(mask)))
	switch {
	case tile.Empty():
		fmt.Println("Tile:      (empty)")
	case tile.Animation != "":
		fmt.Printf("Tile:      animation %s\n", tile.Animation)
	default:
		fmt.Printf("Tile:      %s\n", tile.Image)
	}
}

func cmdCatalog(cfg *config.Config, _ []string) {
	s, mgr, err := session.Open(cfg)
	if err != nil {
		fail(err)
	}
	defer mgr.Close()
	cat := s.Catalog()

	fmt.Printf("Catalog: %s\n", cfg.Assets.Catalog)
	fmt.Printf("Smoothing systems: %d\n", len(cat.SmoothingSystems))
	fmt.Printf("Animations:        %d\n", len(cat.Animations))
	fmt.Printf("Tile types:        %d\n", len(cat.TileTypes))
	fmt.Printf("Map features:      %d\n", len(cat.MapFeatures))
	fmt.Printf("Road types:        %d\n", len(cat.RoadTypes))
	fmt.Printf("City images:       %d\n", len(cat.CityImages))
	fmt.Println()
	fmt.Println("Tile sets:")

	for _, ts := range cat.TileSets {
		bitmasks := 0
		for _, st := range ts.SmoothedTileTypes {
			bitmasks += len(st.Bitmasks)
		}
		fmt.Printf("  %-12s %dx%d, %d frames, %d tile types, %d bitmasks\n",
			ts.ID, ts.TileWidth, ts.TileHeight, ts.AnimationFrameCount, len(ts.SmoothedTileTypes), bitmasks)

		var ids []string
		for _, st := range ts.SmoothedTileTypes {
			ids = append(ids, st.TileTypeID)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("    %s\n", id)
		}
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func cmdConfig(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	out := fs.String("out", "", "Config file to write")
	_ = fs.Parse(args)

	var err error
	path := *out
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.yaml")
		err = cfg.Save()
	} else {
		err = cfg.SaveTo(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("wrote config", zap.String("path", path))
	fmt.Println(path)
}
