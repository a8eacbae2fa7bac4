package fogtool

import (
	"testing"

	"github.com/prtfnx-vtt/vttcore/actions"
	"github.com/prtfnx-vtt/vttcore/geom"
	"github.com/prtfnx-vtt/vttcore/scene"
)

func newToolBus(t *testing.T) *actions.Bus {
	t.Helper()
	tbl, err := scene.NewTable("t1", "Test", 1000, 1000)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return actions.NewBus(tbl, nil)
}

func TestFogToolDragAddsHideRect(t *testing.T) {
	bus := newToolBus(t)
	tool := NewTool(bus)
	tool.Mode = ModeHide

	tool.MouseDown(geom.Vec2{X: 10, Y: 10})
	tool.MouseMove(geom.Vec2{X: 100, Y: 50})
	r := tool.MouseUp()
	if !r.Success {
		t.Fatalf("MouseUp failed: %+v", r)
	}
	if len(bus.Table.Fog.Hide) != 1 {
		t.Fatalf("expected 1 hide rect, got %d", len(bus.Table.Fog.Hide))
	}
	if tool.State() != StateIdle {
		t.Fatal("tool should return to idle after MouseUp")
	}
}

func TestFogToolDeactivateDiscardsDrag(t *testing.T) {
	bus := newToolBus(t)
	tool := NewTool(bus)
	tool.MouseDown(geom.Vec2{X: 0, Y: 0})
	tool.Deactivate()
	if tool.State() != StateIdle {
		t.Fatal("deactivate should return to idle")
	}
	r := tool.MouseUp()
	if r.Success {
		t.Fatal("MouseUp after deactivate should be a no-op")
	}
}

func TestFogToolDegenerateRectDiscarded(t *testing.T) {
	bus := newToolBus(t)
	tool := NewTool(bus)
	tool.MouseDown(geom.Vec2{X: 5, Y: 5})
	tool.MouseUp() // no movement: zero-area rect
	if len(bus.Table.Fog.Hide) != 0 {
		t.Fatal("degenerate rectangle should not be committed")
	}
}

func TestFogToolHideAllAndRevealAll(t *testing.T) {
	bus := newToolBus(t)
	tool := NewTool(bus)
	tool.HideAll()
	if len(bus.Table.Fog.Hide) != 1 {
		t.Fatalf("HideAll should add one full-table rect, got %d", len(bus.Table.Fog.Hide))
	}
	tool.RevealAll()
	if len(bus.Table.Fog.Hide) != 0 || len(bus.Table.Fog.Reveal) != 0 {
		t.Fatal("RevealAll should clear both fog lists")
	}
}

func TestMeasurementDistanceAndCells(t *testing.T) {
	var m Measurement
	m.Begin(geom.Vec2{X: 0, Y: 0})
	m.Update(geom.Vec2{X: 300, Y: 400})
	m.Finish()
	if got := m.Distance(); got != 500 {
		t.Fatalf("Distance = %v, want 500", got)
	}
	if got := m.Cells(50); got != 10 {
		t.Fatalf("Cells = %v, want 10", got)
	}
}

func TestDrawToolCommitsAnnotationSprite(t *testing.T) {
	bus := newToolBus(t)
	counter := 0
	dt := NewDrawTool(bus, func() string {
		counter++
		return "anno-1"
	})
	dt.Shape = ShapeRect
	dt.Begin(geom.Vec2{X: 10, Y: 10})
	dt.Extend(geom.Vec2{X: 50, Y: 40})
	r := dt.Commit()
	if !r.Success {
		t.Fatalf("Commit failed: %+v", r)
	}
	s, ok := bus.Table.Sprite("anno-1")
	if !ok {
		t.Fatal("expected annotation sprite to be created")
	}
	if s.Layer != scene.LayerDungeonMaster {
		t.Fatalf("annotation sprite layer = %v, want LayerDungeonMaster", s.Layer)
	}
}

func TestDrawToolCancelDiscardsStroke(t *testing.T) {
	bus := newToolBus(t)
	dt := NewDrawTool(bus, func() string { return "x" })
	dt.Begin(geom.Vec2{X: 0, Y: 0})
	dt.Cancel()
	r := dt.Commit()
	if r.Success {
		t.Fatal("Commit after Cancel should be a no-op")
	}
}
