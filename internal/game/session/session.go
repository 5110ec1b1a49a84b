// Package session owns the renderer state for one joined game: the render
// context is built on Join, kept current by Apply and dropped on Leave.
package session

import (
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/arcanus/internal/assets/catalog"
	"github.com/Faultbox/arcanus/internal/engine/render"
	"github.com/Faultbox/arcanus/internal/engine/texture"
	"github.com/Faultbox/arcanus/internal/logger"
	"github.com/Faultbox/arcanus/internal/world"
)

// ErrNotJoined is returned by calls that need a joined session.
var ErrNotJoined = errors.New("session not joined")

// Config holds session render settings.
type Config struct {
	Flags           render.Flags
	OverlandTileSet string
	CombatTileSet   string
	Seed            uint64 // 0 seeds tie-breaks randomly
}

// Session serialises map updates and renders. Apply and the Render methods
// are mutually exclusive, so a host may call them from different goroutines.
type Session struct {
	cfg     Config
	catalog *catalog.Catalog
	images  *texture.Loader
	players render.PlayerColors

	mu         sync.Mutex
	ctx        *render.Context
	compositor *render.Compositor
	fog        *render.FogRenderer
	minimap    *render.MiniMapRenderer
	combat     *render.CombatRenderer

	log *zap.Logger
}

// New creates a session that has not joined a game yet.
func New(cat *catalog.Catalog, images *texture.Loader, players render.PlayerColors, cfg Config) *Session {
	return &Session{
		cfg:     cfg,
		catalog: cat,
		images:  images,
		players: players,
		log:     logger.Named("session"),
	}
}

// Join builds a fresh render context over m and resolves every tile.
// Joining again replaces the previous game.
func (s *Session) Join(m world.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		s.leave()
	}

	var rng *rand.Rand
	if s.cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed))
	}

	ctx, err := render.NewContext(m, s.catalog, s.images, s.players, render.Options{
		Flags:           s.cfg.Flags,
		OverlandTileSet: s.cfg.OverlandTileSet,
		CombatTileSet:   s.cfg.CombatTileSet,
		Rand:            rng,
	})
	if err != nil {
		return fmt.Errorf("joining session: %w", err)
	}
	if err := ctx.Tiles.InvalidateAll(); err != nil {
		return fmt.Errorf("joining session: %w", err)
	}

	s.ctx = ctx
	s.compositor = render.NewCompositor(ctx)
	s.fog = render.NewFogRenderer(ctx)
	s.minimap = render.NewMiniMapRenderer(ctx)
	s.combat = render.NewCombatRenderer(ctx)

	topo := m.Topology()
	s.log.Info("joined session",
		zap.Int("width", topo.Width),
		zap.Int("height", topo.Height),
		zap.Int("planes", topo.Depth),
		zap.Uint64("seed", s.cfg.Seed))
	return nil
}

// Apply recomputes the tiles a map update touched. A nil or full
// notification recomputes the whole map.
func (s *Session) Apply(changes *world.Changes) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return ErrNotJoined
	}
	if changes == nil || changes.Full {
		return s.ctx.Tiles.InvalidateAll()
	}
	if changes.Empty() {
		return nil
	}
	return s.ctx.Tiles.Invalidate(changes.Cells)
}

// RenderViewport renders one bitmap per animation frame for the viewport.
func (s *Session) RenderViewport(plane, originX, originY, width, height int) ([]*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return nil, ErrNotJoined
	}
	return s.compositor.RenderViewport(plane, originX, originY, width, height)
}

// RenderFog renders the fog of war overlay for the viewport.
func (s *Session) RenderFog(plane, originX, originY, width, height int) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return nil, ErrNotJoined
	}
	return s.fog.RenderFog(plane, originX, originY, width, height)
}

// RenderMiniMap renders the minimap of plane.
func (s *Session) RenderMiniMap(plane int) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return nil, ErrNotJoined
	}
	return s.minimap.RenderMiniMap(plane)
}

// RenderCombat renders a combat map with the session's combat tile set.
func (s *Session) RenderCombat(cm world.CombatReader) ([]*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return nil, ErrNotJoined
	}
	return s.combat.RenderCombat(cm)
}

// Catalog returns the graphics catalog the session renders with.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// Context returns the current render context, or nil before Join.
func (s *Session) Context() *render.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Leave drops the render context and every decoded image.
func (s *Session) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leave()
}

func (s *Session) leave() {
	if s.ctx == nil {
		return
	}
	s.ctx = nil
	s.compositor = nil
	s.fog = nil
	s.minimap = nil
	s.combat = nil
	s.images.Clear()
	s.log.Info("left session")
}
