package config

import (
	"flag"
	"strings"
)

var (
	flagConfig       = flag.String("config", "", "Path to config file")
	flagDebug        = flag.Bool("debug", false, "Enable debug logging")
	flagAssets       = flag.String("assets", "", "Comma-separated asset directories (replaces config)")
	flagCatalog      = flag.String("catalog", "", "Path to graphics catalog")
	flagSeed         = flag.Uint64("seed", 0, "Tile tie-break random seed")
	flagNoSmooth     = flag.Bool("no-smooth", false, "Disable terrain and fog smoothing")
	flagNoPartialFog = flag.Bool("no-partial-fog", false, "Hide partial fog of war")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagAssets != "" {
		cfg.Assets.Paths = strings.Split(*flagAssets, ",")
	}
	if *flagCatalog != "" {
		cfg.Assets.Catalog = *flagCatalog
	}
	if *flagSeed != 0 {
		cfg.Render.RandomSeed = *flagSeed
	}
	if *flagNoSmooth {
		cfg.Render.SmoothOverlandTerrain = false
		cfg.Render.SmoothCombatTerrain = false
		cfg.Render.SmoothFogOfWar = false
	}
	if *flagNoPartialFog {
		cfg.Render.ShowPartialFogOfWar = false
	}
}
