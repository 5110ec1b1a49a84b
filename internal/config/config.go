// Package config handles renderer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/Faultbox/arcanus/internal/assets/catalog"
	"github.com/Faultbox/arcanus/internal/engine/render"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all renderer settings.
type Config struct {
	Render  RenderConfig  `yaml:"render"`
	Assets  AssetsConfig  `yaml:"assets"`
	Logging LoggingConfig `yaml:"logging"`
}

// RenderConfig holds smoothing, fog and tile set settings.
type RenderConfig struct {
	SmoothOverlandTerrain bool           `yaml:"smooth_overland_terrain"`
	SmoothCombatTerrain   bool           `yaml:"smooth_combat_terrain"`
	ShowPartialFogOfWar   bool           `yaml:"show_partial_fog_of_war"`
	SmoothFogOfWar        bool           `yaml:"smooth_fog_of_war"`
	OverlandTileSet       string         `yaml:"overland_tile_set"`
	CombatTileSet         string         `yaml:"combat_tile_set"`
	RandomSeed            uint64         `yaml:"random_seed"`   // 0 = seed from the clock
	PlayerColors          map[int]string `yaml:"player_colors"` // Player id -> flag colour hex
}

// AssetsConfig holds asset locations.
type AssetsConfig struct {
	Paths   []string `yaml:"paths"`   // Asset directories, later ones win
	Catalog string   `yaml:"catalog"` // Path to the graphics catalog YAML
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			SmoothOverlandTerrain: true,
			SmoothCombatTerrain:   true,
			ShowPartialFogOfWar:   true,
			SmoothFogOfWar:        true,
			OverlandTileSet:       "overland",
			CombatTileSet:         "combat",
			RandomSeed:            0,
			PlayerColors: map[int]string{
				0: "#E01010",
				1: "#1060E0",
				2: "#10B020",
				3: "#E0C010",
				4: "#A020C0",
			},
		},
		Assets: AssetsConfig{
			Paths:   []string{"graphics"},
			Catalog: "graphics/catalog.yaml",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Flags converts the render section to the engine's display switches.
func (r RenderConfig) Flags() render.Flags {
	return render.Flags{
		SmoothOverlandTerrain: r.SmoothOverlandTerrain,
		SmoothCombatTerrain:   r.SmoothCombatTerrain,
		ShowPartialFogOfWar:   r.ShowPartialFogOfWar,
		SmoothFogOfWar:        r.SmoothFogOfWar,
	}
}

// Players parses the player colour table.
func (r RenderConfig) Players() (render.PlayerColorMap, error) {
	players := make(render.PlayerColorMap, len(r.PlayerColors))
	for id, hex := range r.PlayerColors {
		c, err := catalog.ParseColor(hex)
		if err != nil {
			return nil, fmt.Errorf("player %d: %w", id, err)
		}
		players[id] = c
	}
	return players, nil
}

// Validate checks the settings the renderer cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Render.OverlandTileSet == "" {
		errs = append(errs, fmt.Errorf("%w: render.overland_tile_set is empty", ErrInvalidConfig))
	}
	if c.Assets.Catalog == "" {
		errs = append(errs, fmt.Errorf("%w: assets.catalog is empty", ErrInvalidConfig))
	}
	if len(c.Assets.Paths) == 0 {
		errs = append(errs, fmt.Errorf("%w: assets.paths is empty", ErrInvalidConfig))
	}
	for _, id := range slices.Sorted(maps.Keys(c.Render.PlayerColors)) {
		if _, err := catalog.ParseColor(c.Render.PlayerColors[id]); err != nil {
			errs = append(errs, fmt.Errorf("%w: render.player_colors[%d]: %v", ErrInvalidConfig, id, err))
		}
	}
	return errors.Join(errs...)
}
