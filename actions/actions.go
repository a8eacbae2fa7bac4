// Package actions implements the client-side action bus: every table
// mutation a GUI panel or bridge call wants to make goes through one of
// these methods, which apply it optimistically to the local scene.Table,
// append a reversible entry to the undo history, and (if to_server is set)
// hand an intent off to the replication layer. This mirrors willow's own
// discipline of routing all node/camera mutation through narrow methods
// instead of letting callers poke struct fields directly, generalized from
// a single Scene to the table-plus-history pair a VTT session needs.
package actions

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prtfnx-vtt/vttcore/geom"
	"github.com/prtfnx-vtt/vttcore/scene"
)

// ErrorKind classifies the failure modes an action can produce, per
// spec §7's error-kind table.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindInvalidArgument  ErrorKind = "invalid_argument"
	KindDuplicate        ErrorKind = "duplicate"
	KindDesync           ErrorKind = "desync"
	KindVersionConflict  ErrorKind = "version_conflict"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindTransport        ErrorKind = "transport"
	KindStorage          ErrorKind = "storage"
	KindAsset            ErrorKind = "asset"
)

// ActionError is the typed error every action surface returns on failure,
// carrying a machine-readable Kind alongside the human message.
type ActionError struct {
	Kind    ErrorKind
	Message string
}

func (e *ActionError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func errResult(kind ErrorKind, format string, args ...any) ActionResult {
	msg := fmt.Sprintf(format, args...)
	return ActionResult{Success: false, Message: msg, Err: &ActionError{Kind: kind, Message: msg}}
}

func okResult(msg string, data any) ActionResult {
	return ActionResult{Success: true, Message: msg, Data: data}
}

// ActionResult is the uniform return value of every bus operation, per
// spec §4.5.
type ActionResult struct {
	Success bool
	Message string
	Data    any
	Err     *ActionError
}

// Intent is the outbound record the bus hands to a replication layer when
// to_server is requested. The protocol package turns these into wire
// envelopes; actions itself never touches the network.
type Intent struct {
	Type    string
	TableID string
	Fields  map[string]any
}

// historyEntry is one undo-capable record: the operation name plus the
// field values it overwrote (Undo) and the values it applied (Redo).
type historyEntry struct {
	label string
	undo  func(*scene.Table)
	redo  func(*scene.Table)
}

const maxHistory = 100

// Bus owns one active table plus its undo/redo history and emits Intents
// for server-bound operations. One Bus per open session, matching the
// single active Scene willow's demos hold at a time.
type Bus struct {
	Table  *scene.Table
	Emit   func(Intent)
	Logger *slog.Logger

	history []historyEntry
	redo    []historyEntry
}

// NewBus constructs a bus bound to table. emit may be nil (no server
// transport configured, e.g. single-player mode). The bus logs through
// slog.Default(); callers may replace the exported Logger field afterwards.
func NewBus(table *scene.Table, emit func(Intent)) *Bus {
	logger := slog.Default()
	return &Bus{Table: table, Emit: emit, Logger: logger}
}

func (b *Bus) emit(intent Intent, toServer bool) {
	if toServer && b.Emit != nil {
		b.Emit(intent)
	}
}

// pushHistory appends entry and clears the redo stack, per the standard
// undo/redo law: any new mutation invalidates previously-undone redos.
// History is capped at maxHistory entries, oldest dropped first.
func (b *Bus) pushHistory(e historyEntry) {
	b.history = append(b.history, e)
	if len(b.history) > maxHistory {
		b.history = b.history[len(b.history)-maxHistory:]
	}
	b.redo = nil
}

// Undo reverts the most recent history entry. Returns KindNotFound if the
// history is empty.
func (b *Bus) Undo() ActionResult {
	if len(b.history) == 0 {
		return errResult(KindNotFound, "nothing to undo")
	}
	e := b.history[len(b.history)-1]
	b.history = b.history[:len(b.history)-1]
	e.undo(b.Table)
	b.redo = append(b.redo, e)
	return okResult("undid "+e.label, nil)
}

// Redo reapplies the most recently undone entry. Returns KindNotFound if
// the redo stack is empty.
func (b *Bus) Redo() ActionResult {
	if len(b.redo) == 0 {
		return errResult(KindNotFound, "nothing to redo")
	}
	e := b.redo[len(b.redo)-1]
	b.redo = b.redo[:len(b.redo)-1]
	e.redo(b.Table)
	b.history = append(b.history, e)
	return okResult("redid "+e.label, nil)
}

// CreateSprite adds a new sprite to the table. Duplicate sprite_id yields
// KindDuplicate; an invalid layer yields KindInvalidArgument.
func (b *Bus) CreateSprite(s *scene.Sprite, toServer bool) ActionResult {
	if err := b.Table.AddSprite(s); err != nil {
		if errors.Is(err, scene.ErrDuplicateSprite) {
			return errResult(KindDuplicate, "%v", err)
		}
		return errResult(KindInvalidArgument, "%v", err)
	}
	id := s.SpriteID
	b.pushHistory(historyEntry{
		label: "create_sprite",
		undo:  func(t *scene.Table) { _, _ = t.RemoveSprite(id) },
		redo:  func(t *scene.Table) { _ = t.AddSprite(s) },
	})
	b.emit(Intent{Type: "create_sprite", TableID: b.Table.TableID, Fields: map[string]any{"sprite_id": id}}, toServer)
	return okResult("sprite created", id)
}

// DeleteSprite removes a sprite by id. Missing sprite yields KindNotFound.
func (b *Bus) DeleteSprite(id string, toServer bool) ActionResult {
	s, err := b.Table.RemoveSprite(id)
	if err != nil {
		return errResult(KindNotFound, "%v", err)
	}
	b.pushHistory(historyEntry{
		label: "delete_sprite",
		undo:  func(t *scene.Table) { _ = t.AddSprite(s) },
		redo:  func(t *scene.Table) { _, _ = t.RemoveSprite(id) },
	})
	b.emit(Intent{Type: "delete_sprite", TableID: b.Table.TableID, Fields: map[string]any{"sprite_id": id}}, toServer)
	return okResult("sprite deleted", id)
}

// MoveSprite relocates a sprite to a new table-space position. If
// expectedPosition is non-nil and does not match the sprite's current
// position, the move is still applied (per spec §9's permissive desync
// resolution) but the result carries KindDesync so the caller can log a
// warning without rejecting the mutation.
func (b *Bus) MoveSprite(id string, newPos geom.Vec2, expectedPosition *geom.Vec2, toServer bool) ActionResult {
	s, ok := b.Table.Sprite(id)
	if !ok {
		return errResult(KindNotFound, "sprite %s not found", id)
	}
	old := s.Position
	desynced := expectedPosition != nil && (*expectedPosition != old)
	s.Position = newPos
	b.pushHistory(historyEntry{
		label: "move_sprite",
		undo:  func(*scene.Table) { s.Position = old },
		redo:  func(*scene.Table) { s.Position = newPos },
	})
	b.emit(Intent{Type: "move_sprite", TableID: b.Table.TableID, Fields: map[string]any{
		"sprite_id": id, "x": newPos.X, "y": newPos.Y,
	}}, toServer)
	if desynced {
		b.Logger.Warn("move_sprite desync", "sprite_id", id, "expected", *expectedPosition, "actual_before_move", old)
		r := okResult("sprite moved (desync detected, applied anyway)", id)
		r.Err = &ActionError{Kind: KindDesync, Message: "client position diverged from server expectation"}
		return r
	}
	return okResult("sprite moved", id)
}

// ScaleSprite sets a sprite's non-uniform scale. Non-positive components
// yield KindInvalidArgument.
func (b *Bus) ScaleSprite(id string, sx, sy float64, toServer bool) ActionResult {
	s, ok := b.Table.Sprite(id)
	if !ok {
		return errResult(KindNotFound, "sprite %s not found", id)
	}
	if sx <= 0 || sy <= 0 {
		return errResult(KindInvalidArgument, "scale must be positive, got (%f,%f)", sx, sy)
	}
	oldX, oldY := s.ScaleX, s.ScaleY
	s.ScaleX, s.ScaleY = sx, sy
	b.pushHistory(historyEntry{
		label: "scale_sprite",
		undo:  func(*scene.Table) { s.ScaleX, s.ScaleY = oldX, oldY },
		redo:  func(*scene.Table) { s.ScaleX, s.ScaleY = sx, sy },
	})
	b.emit(Intent{Type: "scale_sprite", TableID: b.Table.TableID, Fields: map[string]any{
		"sprite_id": id, "scale_x": sx, "scale_y": sy,
	}}, toServer)
	return okResult("sprite scaled", id)
}

// RotateSprite sets a sprite's rotation in degrees.
func (b *Bus) RotateSprite(id string, degrees float64, toServer bool) ActionResult {
	s, ok := b.Table.Sprite(id)
	if !ok {
		return errResult(KindNotFound, "sprite %s not found", id)
	}
	old := s.Rotation
	s.Rotation = degrees
	b.pushHistory(historyEntry{
		label: "rotate_sprite",
		undo:  func(*scene.Table) { s.Rotation = old },
		redo:  func(*scene.Table) { s.Rotation = degrees },
	})
	b.emit(Intent{Type: "rotate_sprite", TableID: b.Table.TableID, Fields: map[string]any{
		"sprite_id": id, "rotation": degrees,
	}}, toServer)
	return okResult("sprite rotated", id)
}

// UpdateSprite applies a generic field patch (texture path, visibility,
// collidable) to a sprite in one history-recorded step.
func (b *Bus) UpdateSprite(id string, visible, collidable *bool, texturePath *string, toServer bool) ActionResult {
	s, ok := b.Table.Sprite(id)
	if !ok {
		return errResult(KindNotFound, "sprite %s not found", id)
	}
	oldVisible, oldCollidable, oldTexture := s.Visible, s.Collidable, s.TexturePath
	apply := func(t *scene.Table) {
		if visible != nil {
			s.Visible = *visible
		}
		if collidable != nil {
			s.Collidable = *collidable
		}
		if texturePath != nil {
			s.TexturePath = *texturePath
		}
	}
	apply(b.Table)
	b.pushHistory(historyEntry{
		label: "update_sprite",
		undo:  func(*scene.Table) { s.Visible, s.Collidable, s.TexturePath = oldVisible, oldCollidable, oldTexture },
		redo:  apply,
	})
	b.emit(Intent{Type: "update_sprite", TableID: b.Table.TableID, Fields: map[string]any{"sprite_id": id}}, toServer)
	return okResult("sprite updated", id)
}

// MoveSpriteToLayer reassigns a sprite's layer.
func (b *Bus) MoveSpriteToLayer(id string, dest scene.Layer, toServer bool) ActionResult {
	s, ok := b.Table.Sprite(id)
	if !ok {
		return errResult(KindNotFound, "sprite %s not found", id)
	}
	old := s.Layer
	if err := b.Table.MoveSpriteToLayer(id, dest); err != nil {
		return errResult(KindInvalidArgument, "%v", err)
	}
	b.pushHistory(historyEntry{
		label: "move_sprite_to_layer",
		undo:  func(t *scene.Table) { _ = t.MoveSpriteToLayer(id, old) },
		redo:  func(t *scene.Table) { _ = t.MoveSpriteToLayer(id, dest) },
	})
	b.emit(Intent{Type: "move_sprite_to_layer", TableID: b.Table.TableID, Fields: map[string]any{
		"sprite_id": id, "layer": dest.String(),
	}}, toServer)
	return okResult("sprite moved to layer", id)
}

// SetLayerVisibility is a render-settings toggle, not a scene.Table field;
// callers pass the render.LayerSettings map they maintain alongside the
// table. actions only validates the layer and records history via the
// caller-supplied apply/revert closures so it stays decoupled from the
// render package (avoiding an actions->render import cycle, since render
// never needs to call back into actions).
func (b *Bus) SetLayerVisibility(layer scene.Layer, visible bool, apply func(scene.Layer, bool), current bool, toServer bool) ActionResult {
	if !layer.Valid() {
		return errResult(KindInvalidArgument, "invalid layer %d", layer)
	}
	apply(layer, visible)
	b.pushHistory(historyEntry{
		label: "set_layer_visibility",
		undo:  func(*scene.Table) { apply(layer, current) },
		redo:  func(*scene.Table) { apply(layer, visible) },
	})
	b.emit(Intent{Type: "set_layer_visibility", TableID: b.Table.TableID, Fields: map[string]any{
		"layer": layer.String(), "visible": visible,
	}}, toServer)
	return okResult("layer visibility set", nil)
}

// UpdateFog replaces the table's fog rectangle lists wholesale (append-only
// semantics are enforced by fogtool before this is called; actions simply
// records the replacement for undo).
func (b *Bus) UpdateFog(hide, reveal []geom.Rect, toServer bool) ActionResult {
	old := b.Table.Fog
	next := scene.FogRectangles{Hide: hide, Reveal: reveal}
	b.Table.Fog = next
	b.pushHistory(historyEntry{
		label: "update_fog",
		undo:  func(t *scene.Table) { t.Fog = old },
		redo:  func(t *scene.Table) { t.Fog = next },
	})
	b.emit(Intent{Type: "update_fog", TableID: b.Table.TableID, Fields: map[string]any{
		"hide_count": len(hide), "reveal_count": len(reveal),
	}}, toServer)
	return okResult("fog updated", nil)
}

// MoveTable pans the viewport by (dx, dy) screen pixels. Per spec §9's
// resolution of the move_table open question, the default displacement
// when unspecified is (0, 0) — a no-op pan, left to the caller to supply.
func (b *Bus) MoveTable(dx, dy float64, toServer bool) ActionResult {
	b.Table.Pan(dx, dy)
	b.emit(Intent{Type: "move_table", TableID: b.Table.TableID, Fields: map[string]any{"dx": dx, "dy": dy}}, toServer)
	return okResult("table panned", nil)
}

// ScaleTable zooms the viewport by factor about center (nil keeps the
// current viewport origin fixed). The factor is always supplied by the
// caller: 1.0 is a no-op zoom, and a factor <= 0 is rejected with
// KindInvalidArgument.
func (b *Bus) ScaleTable(factor float64, center *geom.Vec2, toServer bool) ActionResult {
	if factor <= 0 {
		return errResult(KindInvalidArgument, "scale factor must be positive, got %f", factor)
	}
	b.Table.Zoom(factor, center)
	b.emit(Intent{Type: "scale_table", TableID: b.Table.TableID, Fields: map[string]any{"factor": factor}}, toServer)
	return okResult("table scaled", nil)
}

// BatchActions runs a slice of thunks as one undo-indivisible group: all
// succeed and are recorded as a single history entry, or the group is
// rolled back and KindInvalidArgument is returned on the first failure.
func (b *Bus) BatchActions(ops []func() ActionResult) ActionResult {
	mark := len(b.history)
	var applied []ActionResult
	for _, op := range ops {
		r := op()
		applied = append(applied, r)
		if !r.Success {
			for len(b.history) > mark {
				b.Undo()
			}
			return errResult(KindInvalidArgument, "batch failed: %s", r.Message)
		}
	}
	// Collapse the individual entries this batch pushed into one group so
	// a single Undo reverts the whole batch.
	group := b.history[mark:]
	b.history = b.history[:mark]
	b.pushHistory(historyEntry{
		label: "batch_actions",
		undo: func(t *scene.Table) {
			for i := len(group) - 1; i >= 0; i-- {
				group[i].undo(t)
			}
		},
		redo: func(t *scene.Table) {
			for _, e := range group {
				e.redo(t)
			}
		},
	})
	return okResult("batch applied", applied)
}
