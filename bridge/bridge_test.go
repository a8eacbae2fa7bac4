package bridge

import (
	"testing"

	"github.com/prtfnx-vtt/vttcore/actions"
	"github.com/prtfnx-vtt/vttcore/geom"
	"github.com/prtfnx-vtt/vttcore/scene"
)

func TestHasCurrentTableFalseWithoutBus(t *testing.T) {
	b := New(nil)
	if b.HasCurrentTable() {
		t.Fatal("a bridge with no bus should report no current table")
	}
	r := b.CreateSprite(scene.NewSprite("s1", scene.LayerTokens), false)
	if r.Success || r.Err.Kind != actions.KindInvalidArgument {
		t.Fatalf("expected KindInvalidArgument, got %+v", r)
	}
}

func TestBridgeDelegatesWhenTablePresent(t *testing.T) {
	tbl, _ := scene.NewTable("t1", "Room", 1000, 1000)
	bus := actions.NewBus(tbl, nil)
	b := New(bus)

	if !b.HasCurrentTable() {
		t.Fatal("expected HasCurrentTable true")
	}
	r := b.CreateSprite(scene.NewSprite("s1", scene.LayerTokens), false)
	if !r.Success {
		t.Fatalf("CreateSprite failed: %+v", r)
	}
	r2 := b.MoveSprite("s1", geom.Vec2{X: 5, Y: 5}, false)
	if !r2.Success {
		t.Fatalf("MoveSprite failed: %+v", r2)
	}
}

func TestChatHistoryIndependentOfCurrentTable(t *testing.T) {
	b := New(nil)
	b.SendChatMessage("u1", "Alice", "hello")
	b.SendChatMessage("u2", "Bob", "hi there")

	hist := b.ChatHistory()
	if len(hist) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(hist))
	}
	if hist[0].Text != "hello" || hist[1].Text != "hi there" {
		t.Fatalf("unexpected chat order: %+v", hist)
	}
}

func TestChatHistoryReturnsCopy(t *testing.T) {
	b := New(nil)
	b.SendChatMessage("u1", "Alice", "hello")
	hist := b.ChatHistory()
	hist[0].Text = "mutated"
	if b.ChatHistory()[0].Text != "hello" {
		t.Fatal("ChatHistory should return an independent copy")
	}
}
