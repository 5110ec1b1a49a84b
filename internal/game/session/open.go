package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/arcanus/internal/assets"
	"github.com/Faultbox/arcanus/internal/assets/catalog"
	"github.com/Faultbox/arcanus/internal/config"
	"github.com/Faultbox/arcanus/internal/engine/texture"
	"github.com/Faultbox/arcanus/internal/logger"
)

// Open loads the catalog and asset directories named by cfg and returns an
// unjoined session plus the asset manager, which the caller closes.
func Open(cfg *config.Config) (*Session, *assets.Manager, error) {
	cat, err := catalog.Load(cfg.Assets.Catalog)
	if err != nil {
		return nil, nil, err
	}
	if err := cat.Validate(); err != nil {
		return nil, nil, fmt.Errorf("catalog %s: %w", cfg.Assets.Catalog, err)
	}

	mgr := assets.NewManager()
	for _, dir := range cfg.Assets.Paths {
		if err := mgr.AddDir(dir); err != nil {
			mgr.Close()
			return nil, nil, err
		}
	}

	players, err := cfg.Render.Players()
	if err != nil {
		mgr.Close()
		return nil, nil, err
	}

	logger.Named("session").Debug("opened assets",
		zap.Strings("paths", cfg.Assets.Paths),
		zap.String("catalog", cfg.Assets.Catalog),
		zap.Int("tile_sets", len(cat.TileSets)))

	s := New(cat, texture.NewLoader(mgr), players, Config{
		Flags:           cfg.Render.Flags(),
		OverlandTileSet: cfg.Render.OverlandTileSet,
		CombatTileSet:   cfg.Render.CombatTileSet,
		Seed:            cfg.Render.RandomSeed,
	})
	return s, mgr, nil
}
