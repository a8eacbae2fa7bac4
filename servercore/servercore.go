// Package servercore is the authoritative server-side action core: it owns
// every open table, applies the same mutation surface actions exposes on
// the client, and batches persistence with a debounced save sweep. The
// sweep loop follows niceyeti-tabular's server.go publish loop, which
// drives its ping/pong keepalive off a channerics.NewTicker instead of a
// raw time.Ticker; here the same ticker shape drives a dirty-table sweep
// instead of a ping.
package servercore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	channerics "github.com/niceyeti/channerics/channels"

	"github.com/prtfnx-vtt/vttcore/actions"
	"github.com/prtfnx-vtt/vttcore/geom"
	"github.com/prtfnx-vtt/vttcore/scene"
)

// DefaultDebounce matches spec §6's persistence debounce constant: a
// table's state is written no sooner than 2.0s after its last mutation,
// and every further mutation within that window pushes the deadline back.
const DefaultDebounce = 2 * time.Second

// sweepInterval is how often the debounce sweep checks for tables whose
// deadline has passed. It is independent of DefaultDebounce.
const sweepInterval = 100 * time.Millisecond

// Persister is the storage boundary servercore writes through; store.YAMLStore
// implements it.
type Persister interface {
	SaveTable(scene.TableDict) error
}

// Broadcaster is the boundary servercore uses to fan a mutation out to
// connected sessions; protocol.Hub implements it. servercore never imports
// the websocket/session plumbing directly, keeping the dependency
// one-directional (protocol may depend on servercore's result types, not
// the reverse).
type Broadcaster interface {
	Broadcast(tableID string, messageType string, data any)
}

// Core is the authoritative, single-writer owner of every open table. All
// public methods lock internally; callers (the protocol dispatch loop)
// never need their own synchronization.
type Core struct {
	mu     sync.Mutex
	tables map[string]*scene.Table
	dirty  map[string]time.Time
	seen   map[string]string // table_id -> last create_sprite dedupe key, for idempotent create

	debounce time.Duration
	store    Persister
	bus      Broadcaster
	logger   *slog.Logger
}

// NewCore constructs a Core with the given persistence backend, debounce
// window, and broadcaster. logger may be nil, defaulting to slog.Default().
func NewCore(store Persister, bus Broadcaster, debounce time.Duration, logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	return &Core{
		tables:   make(map[string]*scene.Table),
		dirty:    make(map[string]time.Time),
		seen:     make(map[string]string),
		debounce: debounce,
		store:    store,
		bus:      bus,
		logger:   logger,
	}
}

// Run drives the debounce sweep until ctx is cancelled. It must be started
// exactly once per Core, typically from cmd/vttserver's main goroutine.
func (c *Core) Run(ctx context.Context) {
	ticks := channerics.NewTicker(ctx.Done(), sweepInterval)
	for range ticks {
		c.sweep()
	}
}

func (c *Core) sweep() {
	c.mu.Lock()
	now := time.Now()
	var due []string
	for id, deadline := range c.dirty {
		if !now.Before(deadline) {
			due = append(due, id)
		}
	}
	for _, id := range due {
		delete(c.dirty, id)
	}
	tables := make(map[string]scene.TableDict, len(due))
	for _, id := range due {
		if t, ok := c.tables[id]; ok {
			tables[id] = t.Serialize()
		}
	}
	c.mu.Unlock()

	for id, dict := range tables {
		if err := c.store.SaveTable(dict); err != nil {
			c.logger.Error("debounced save failed", "table_id", id, "err", err)
		}
	}
}

// Flush synchronously saves every dirty table immediately, bypassing the
// debounce window. Used on graceful shutdown.
func (c *Core) Flush() {
	c.mu.Lock()
	tables := make(map[string]scene.TableDict, len(c.dirty))
	for id := range c.dirty {
		if t, ok := c.tables[id]; ok {
			tables[id] = t.Serialize()
		}
	}
	c.dirty = make(map[string]time.Time)
	c.mu.Unlock()

	for id, dict := range tables {
		if err := c.store.SaveTable(dict); err != nil {
			c.logger.Error("flush save failed", "table_id", id, "err", err)
		}
	}
}

// markDirty schedules table_id for a debounced save, rescheduling (not
// accumulating) the deadline on every call — the defining debounce
// behavior per spec §6.
func (c *Core) markDirty(tableID string) {
	c.dirty[tableID] = time.Now().Add(c.debounce)
}

// saveNow bypasses the debounce window for operations the spec marks as
// immediate: fog updates and table creation.
func (c *Core) saveNow(t *scene.Table) {
	delete(c.dirty, t.TableID)
	if err := c.store.SaveTable(t.Serialize()); err != nil {
		c.logger.Error("immediate save failed", "table_id", t.TableID, "err", err)
	}
}

// CreateTable registers a new authoritative table. Idempotent: calling it
// again with the same table_id and identical dimensions returns success
// with the existing table rather than an error, per spec §7's idempotent-
// create contract.
func (c *Core) CreateTable(id, name string, width, height float64) actions.ActionResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.tables[id]; ok {
		if existing.Name == name && existing.Width == width && existing.Height == height {
			return actions.ActionResult{Success: true, Message: "table already exists (idempotent)", Data: id}
		}
		return actions.ActionResult{Success: false, Message: "table id exists with different parameters",
			Err: &actions.ActionError{Kind: actions.KindDuplicate, Message: id}}
	}

	t, err := scene.NewTable(id, name, width, height)
	if err != nil {
		return actions.ActionResult{Success: false, Message: err.Error(),
			Err: &actions.ActionError{Kind: actions.KindInvalidArgument, Message: err.Error()}}
	}
	c.tables[id] = t
	c.saveNow(t)
	c.bus.Broadcast(id, "TABLE_RESPONSE", t.Serialize())
	return actions.ActionResult{Success: true, Message: "table created", Data: id}
}

// DeleteTable removes a table from memory, drops any pending debounced
// save for it, and broadcasts TABLE_DELETE. It does not remove the table's
// stored record.
func (c *Core) DeleteTable(id string) actions.ActionResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tables[id]; !ok {
		return actions.ActionResult{Success: false, Message: "table not found",
			Err: &actions.ActionError{Kind: actions.KindNotFound, Message: id}}
	}
	delete(c.tables, id)
	delete(c.dirty, id)
	c.bus.Broadcast(id, "TABLE_DELETE", map[string]any{"table_id": id})
	return actions.ActionResult{Success: true, Message: "table deleted", Data: id}
}

// Table returns the live authoritative table for id, if open.
func (c *Core) Table(id string) (*scene.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[id]
	return t, ok
}

// LoadTable installs a table rehydrated from storage (e.g. at server
// startup), without touching the dirty/save path.
func (c *Core) LoadTable(t *scene.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[t.TableID] = t
}

// ApplyMoveSprite is the server-authoritative counterpart of
// actions.Bus.MoveSprite: it applies the move regardless of whether the
// client's expected prior position matches (permissive desync handling per
// spec §9), logs a warning on mismatch, schedules a debounced save, and
// broadcasts the accepted position to every session on the table,
// including the sender's.
func (c *Core) ApplyMoveSprite(tableID, spriteID string, newPos geom.Vec2, expected *geom.Vec2) actions.ActionResult {
	c.mu.Lock()
	t, ok := c.tables[tableID]
	if !ok {
		c.mu.Unlock()
		return actions.ActionResult{Success: false, Message: "table not found",
			Err: &actions.ActionError{Kind: actions.KindNotFound, Message: tableID}}
	}
	s, ok := t.Sprite(spriteID)
	if !ok {
		c.mu.Unlock()
		return actions.ActionResult{Success: false, Message: "sprite not found",
			Err: &actions.ActionError{Kind: actions.KindNotFound, Message: spriteID}}
	}
	before := s.Position
	s.Position = newPos
	c.markDirty(tableID)
	c.mu.Unlock()

	if expected != nil && *expected != before {
		c.logger.Warn("move_sprite desync from client", "table_id", tableID, "sprite_id", spriteID,
			"client_expected", *expected, "server_actual", before)
	}
	c.bus.Broadcast(tableID, "SPRITE_MOVE", map[string]any{"sprite_id": spriteID, "x": newPos.X, "y": newPos.Y})
	return actions.ActionResult{Success: true, Message: "sprite moved", Data: spriteID}
}

// ApplyCreateSprite is the server-authoritative sprite creation path.
// Idempotent: a repeated call with the same table_id/sprite_id and an
// unchanged position/layer is treated as success against the existing
// sprite rather than a duplicate error, per spec §7.
func (c *Core) ApplyCreateSprite(tableID string, s *scene.Sprite) actions.ActionResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tables[tableID]
	if !ok {
		return actions.ActionResult{Success: false, Message: "table not found",
			Err: &actions.ActionError{Kind: actions.KindNotFound, Message: tableID}}
	}
	if existing, ok := t.Sprite(s.SpriteID); ok {
		if existing.Layer == s.Layer && existing.Position == s.Position {
			return actions.ActionResult{Success: true, Message: "sprite already exists (idempotent)", Data: s.SpriteID}
		}
		return actions.ActionResult{Success: false, Message: "sprite id exists with different state",
			Err: &actions.ActionError{Kind: actions.KindDuplicate, Message: s.SpriteID}}
	}
	if err := t.AddSprite(s); err != nil {
		return actions.ActionResult{Success: false, Message: err.Error(),
			Err: &actions.ActionError{Kind: actions.KindInvalidArgument, Message: err.Error()}}
	}
	c.markDirty(tableID)
	c.bus.Broadcast(tableID, "SPRITE_CREATE", map[string]any{"sprite_id": s.SpriteID})
	return actions.ActionResult{Success: true, Message: "sprite created", Data: s.SpriteID}
}

// ApplyUpdateFog replaces a table's fog rectangles and saves immediately
// (fog changes bypass the debounce window per spec §6, since the GM
// expects hide/reveal strokes to persist promptly).
func (c *Core) ApplyUpdateFog(tableID string, hide, reveal []geom.Rect) actions.ActionResult {
	c.mu.Lock()
	t, ok := c.tables[tableID]
	if !ok {
		c.mu.Unlock()
		return actions.ActionResult{Success: false, Message: "table not found",
			Err: &actions.ActionError{Kind: actions.KindNotFound, Message: tableID}}
	}
	t.Fog = scene.FogRectangles{Hide: hide, Reveal: reveal}
	c.saveNow(t)
	c.mu.Unlock()

	c.bus.Broadcast(tableID, "FOG_UPDATE", map[string]any{"hide_count": len(hide), "reveal_count": len(reveal)})
	return actions.ActionResult{Success: true, Message: "fog updated", Data: nil}
}
