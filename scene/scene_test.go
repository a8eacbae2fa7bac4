package scene

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/prtfnx-vtt/vttcore/geom"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable("t1", "Test", 1000, 1000)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	tbl.SetScreenArea(ScreenRect{SX: 0, SY: 0, SW: 800, SH: 600})
	return tbl
}

func TestAddSpriteDuplicateRejected(t *testing.T) {
	tbl := newTestTable(t)
	s1 := NewSprite("s1", LayerTokens)
	if err := tbl.AddSprite(s1); err != nil {
		t.Fatalf("AddSprite: %v", err)
	}
	s2 := NewSprite("s1", LayerTokens)
	if err := tbl.AddSprite(s2); err == nil {
		t.Fatal("expected duplicate sprite error")
	}
}

func TestAddSpriteInvalidLayerRejected(t *testing.T) {
	tbl := newTestTable(t)
	s := NewSprite("s1", Layer(99))
	if err := tbl.AddSprite(s); err == nil {
		t.Fatal("expected invalid layer error")
	}
}

func TestCreateThenDeleteLeavesTableUnchanged(t *testing.T) {
	tbl := newTestTable(t)
	before := len(tbl.AllSprites())
	s := NewSprite("s1", LayerTokens)
	if err := tbl.AddSprite(s); err != nil {
		t.Fatalf("AddSprite: %v", err)
	}
	if _, err := tbl.RemoveSprite("s1"); err != nil {
		t.Fatalf("RemoveSprite: %v", err)
	}
	after := len(tbl.AllSprites())
	if before != after {
		t.Errorf("sprite count changed: %d -> %d", before, after)
	}
}

func TestMoveSpriteToLayerPreservesIdentity(t *testing.T) {
	tbl := newTestTable(t)
	s := NewSprite("s1", LayerTokens)
	_ = tbl.AddSprite(s)
	if err := tbl.MoveSpriteToLayer("s1", LayerDungeonMaster); err != nil {
		t.Fatalf("MoveSpriteToLayer: %v", err)
	}
	got, ok := tbl.Sprite("s1")
	if !ok || got != s {
		t.Fatal("sprite identity lost across layer move")
	}
	if got.Layer != LayerDungeonMaster {
		t.Errorf("Layer = %v, want dungeon_master", got.Layer)
	}
	if len(tbl.Sprites(LayerTokens)) != 0 {
		t.Error("sprite still present in source layer")
	}
}

func TestCoordinateRoundtrip(t *testing.T) {
	tbl := newTestTable(t)
	tbl.ViewportX, tbl.ViewportY = 123, 45
	tbl.TableScale = 2.5

	rapid.Check(t, func(rt *rapid.T) {
		px := rapid.Float64Range(0, 800).Draw(rt, "px")
		py := rapid.Float64Range(0, 600).Draw(rt, "py")
		tx, ty := tbl.ScreenToTable(px, py)
		sx, sy := tbl.TableToScreen(tx, ty)
		if math.Abs(sx-px) > 1e-9 || math.Abs(sy-py) > 1e-9 {
			rt.Fatalf("roundtrip mismatch: (%f,%f) -> (%f,%f)", px, py, sx, sy)
		}
	})
}

func TestZoomClampedToRange(t *testing.T) {
	tbl := newTestTable(t)
	tbl.Zoom(100, nil)
	if tbl.TableScale != MaxScale {
		t.Errorf("TableScale = %f, want %f", tbl.TableScale, MaxScale)
	}
	tbl.Zoom(0.0001, nil)
	if tbl.TableScale != MinScale {
		t.Errorf("TableScale = %f, want %f", tbl.TableScale, MinScale)
	}
}

func TestZoomAroundCenterKeepsPointStationary(t *testing.T) {
	tbl := newTestTable(t)
	tbl.TableScale = 1.0
	tbl.ViewportX, tbl.ViewportY = 0, 0

	center := geom.Vec2{X: 400, Y: 300}
	sxBefore, syBefore := tbl.TableToScreen(center.X, center.Y)

	tbl.Zoom(2.0, &center)

	sxAfter, syAfter := tbl.TableToScreen(center.X, center.Y)
	if math.Abs(sxAfter-sxBefore) > 1e-6 || math.Abs(syAfter-syBefore) > 1e-6 {
		t.Errorf("zoom center moved: before (%f,%f) after (%f,%f)", sxBefore, syBefore, sxAfter, syAfter)
	}
}

func TestZoomRoundtripRestoresViewport(t *testing.T) {
	tbl := newTestTable(t)
	tbl.ViewportX, tbl.ViewportY = 50, 60
	tbl.TableScale = 1.0
	center := geom.Vec2{X: 200, Y: 150}

	beforeX, beforeY := tbl.ViewportX, tbl.ViewportY
	tbl.Zoom(2.0, &center)
	tbl.Zoom(0.5, &center)

	if math.Abs(tbl.ViewportX-beforeX) > 1e-6 || math.Abs(tbl.ViewportY-beforeY) > 1e-6 {
		t.Errorf("zoom(f) then zoom(1/f) = (%f,%f), want (%f,%f)", tbl.ViewportX, tbl.ViewportY, beforeX, beforeY)
	}
}

func TestConstrainToBoundsIsNoOpWhenInBounds(t *testing.T) {
	tbl := newTestTable(t)
	s := NewSprite("s1", LayerTokens)
	s.OriginalW, s.OriginalH = 50, 50
	s.Position = geom.Vec2{X: 100, Y: 100}
	_ = tbl.AddSprite(s)

	before := s.Position
	tbl.ConstrainToBounds(s)
	if s.Position != before {
		t.Errorf("ConstrainToBounds moved an in-bounds sprite: %v -> %v", before, s.Position)
	}
}

func TestConstrainToBoundsClampsOutOfBoundsSprite(t *testing.T) {
	tbl := newTestTable(t)
	s := NewSprite("s1", LayerTokens)
	s.OriginalW, s.OriginalH = 50, 50
	s.Position = geom.Vec2{X: -10, Y: tbl.Height + 500}
	_ = tbl.AddSprite(s)

	tbl.ConstrainToBounds(s)
	if tbl.OutOfBounds(s) {
		t.Error("sprite still out of bounds after constraining")
	}
}

func TestSerializationRoundtrip(t *testing.T) {
	tbl := newTestTable(t)
	tbl.ShowGrid = true
	tbl.CellSide = 40
	tbl.Fog.Hide = []geom.Rect{geom.NewRect(0, 0, 10, 10)}
	tbl.Fog.Reveal = []geom.Rect{geom.NewRect(2, 2, 4, 4)}

	s := NewSprite("s1", LayerTokens)
	s.OriginalW, s.OriginalH = 32, 32
	s.Position = geom.Vec2{X: 5, Y: 5}
	_ = tbl.AddSprite(s)
	tbl.SelectedSpriteID = "s1"

	d := tbl.Serialize()
	restored, err := DeserializeTable(d)
	if err != nil {
		t.Fatalf("DeserializeTable: %v", err)
	}

	if restored.TableID != tbl.TableID || restored.Width != tbl.Width || restored.Height != tbl.Height {
		t.Errorf("identity/dimensions not preserved")
	}
	if restored.TableScale != tbl.TableScale || restored.ViewportX != tbl.ViewportX {
		t.Errorf("view state not preserved")
	}
	if restored.SelectedSpriteID != tbl.SelectedSpriteID {
		t.Errorf("selection not preserved")
	}
	if len(restored.Fog.Hide) != 1 || len(restored.Fog.Reveal) != 1 {
		t.Errorf("fog rectangles not preserved")
	}
	got, ok := restored.Sprite("s1")
	if !ok {
		t.Fatal("sprite not preserved")
	}
	if got.Position != s.Position || got.Layer != s.Layer {
		t.Errorf("sprite fields not preserved: %+v vs %+v", got, s)
	}
}

func TestLayerOrderFixed(t *testing.T) {
	want := []Layer{LayerMap, LayerTokens, LayerDungeonMaster, LayerLight, LayerHeight, LayerObstacles, LayerFogOfWar}
	for i, l := range want {
		if Layers[i] != l {
			t.Fatalf("Layers[%d] = %v, want %v", i, Layers[i], l)
		}
	}
}
