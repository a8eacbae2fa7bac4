// Package bridge is the thin GUI-facing facade spec §4.8 calls for: GUI
// panels call through Bridge instead of touching actions.Bus or scene.Table
// directly, so the facade can enforce session-level preconditions (no
// current table selected yet) uniformly across every panel. It also owns
// the append-only chat log, a feature the distilled spec dropped but
// original_source/ and spec §9's Open Question resolution both call for.
package bridge

import (
	"time"

	"github.com/prtfnx-vtt/vttcore/actions"
	"github.com/prtfnx-vtt/vttcore/geom"
	"github.com/prtfnx-vtt/vttcore/scene"
)

// ChatMessage is one entry in a table's append-only chat history.
type ChatMessage struct {
	UserID    string
	Username  string
	Text      string
	Timestamp time.Time
}

// Bridge wraps an actions.Bus with the has_current_table preflight check
// and the chat log. now is injectable for deterministic tests.
type Bridge struct {
	bus  *actions.Bus
	chat []ChatMessage
	now  func() time.Time
}

// New constructs a bridge over bus. bus may be nil, representing "no
// current table" (HasCurrentTable reports false and every delegated call
// fails with KindInvalidArgument).
func New(bus *actions.Bus) *Bridge {
	return &Bridge{bus: bus, now: time.Now}
}

// HasCurrentTable reports whether a table is active. Every method that
// delegates to the action bus rejects with an invalid-argument result when
// this is false (SetTable and the chat methods do not), per spec
// §4.8's preflight rule.
func (b *Bridge) HasCurrentTable() bool {
	return b.bus != nil
}

func (b *Bridge) preflight() (*actions.Bus, actions.ActionResult) {
	if b.bus == nil {
		return nil, actions.ActionResult{Success: false, Message: "no current table selected",
			Err: &actions.ActionError{Kind: actions.KindInvalidArgument, Message: "no current table"}}
	}
	return b.bus, actions.ActionResult{}
}

// SetTable switches the facade's active bus, e.g. when the GUI layer
// changes which table is displayed.
func (b *Bridge) SetTable(bus *actions.Bus) {
	b.bus = bus
}

// CreateSprite delegates to the bus, guarded by HasCurrentTable.
func (b *Bridge) CreateSprite(s *scene.Sprite, toServer bool) actions.ActionResult {
	bus, fail := b.preflight()
	if bus == nil {
		return fail
	}
	return bus.CreateSprite(s, toServer)
}

// MoveSprite delegates to the bus, guarded by HasCurrentTable.
func (b *Bridge) MoveSprite(id string, pos geom.Vec2, toServer bool) actions.ActionResult {
	bus, fail := b.preflight()
	if bus == nil {
		return fail
	}
	return bus.MoveSprite(id, pos, nil, toServer)
}

// DeleteSprite delegates to the bus, guarded by HasCurrentTable.
func (b *Bridge) DeleteSprite(id string, toServer bool) actions.ActionResult {
	bus, fail := b.preflight()
	if bus == nil {
		return fail
	}
	return bus.DeleteSprite(id, toServer)
}

// Undo delegates to the bus, guarded by HasCurrentTable.
func (b *Bridge) Undo() actions.ActionResult {
	bus, fail := b.preflight()
	if bus == nil {
		return fail
	}
	return bus.Undo()
}

// Redo delegates to the bus, guarded by HasCurrentTable.
func (b *Bridge) Redo() actions.ActionResult {
	bus, fail := b.preflight()
	if bus == nil {
		return fail
	}
	return bus.Redo()
}

// SendChatMessage appends a message to the chat log. Per spec §9's
// resolution of the add_chat_message Open Question (the later definition
// in original_source/ is authoritative), chat is independent of
// HasCurrentTable: messages can be sent even with no table active (e.g. a
// lobby channel).
func (b *Bridge) SendChatMessage(userID, username, text string) ChatMessage {
	msg := ChatMessage{UserID: userID, Username: username, Text: text, Timestamp: b.now()}
	b.chat = append(b.chat, msg)
	return msg
}

// ChatHistory returns every chat message sent so far, oldest first.
func (b *Bridge) ChatHistory() []ChatMessage {
	out := make([]ChatMessage, len(b.chat))
	copy(out, b.chat)
	return out
}
