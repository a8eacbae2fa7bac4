package geom

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestExtractObstaclesSkipsZeroArea(t *testing.T) {
	rects := []SpriteRect{
		{X: 0, Y: 0, W: 10, H: 10},
		{X: 5, Y: 5, W: 0, H: 10},
		{X: 5, Y: 5, W: 10, H: 0},
		{X: 20, Y: 20, W: 5, H: 5},
	}
	segs := ExtractObstacles(rects)
	if len(segs) != 8 {
		t.Fatalf("got %d segments, want 8 (2 valid rects * 4 edges)", len(segs))
	}
}

func TestExtractObstaclesEdgeOrder(t *testing.T) {
	segs := ExtractObstacles([]SpriteRect{{X: 0, Y: 0, W: 10, H: 20}})
	if len(segs) != 4 {
		t.Fatalf("got %d segments, want 4", len(segs))
	}
	top := segs[0]
	if top.A != (Vec2{0, 0}) || top.B != (Vec2{10, 0}) {
		t.Errorf("top edge = %+v, want (0,0)-(10,0)", top)
	}
	left := segs[3]
	if left.A != (Vec2{0, 20}) || left.B != (Vec2{0, 0}) {
		t.Errorf("left edge = %+v, want (0,20)-(0,0)", left)
	}
}

func TestVisibilityPolygonEmptyObstaclesIsRegularPolygon(t *testing.T) {
	k := 10
	pts := VisibilityPolygon(Vec2{0, 0}, nil, 100, k)
	want := k + 20
	if len(pts) != want {
		t.Fatalf("got %d vertices, want %d", len(pts), want)
	}
	for _, p := range pts {
		d := math.Hypot(p.X, p.Y)
		if math.Abs(d-100) > 1e-6 {
			t.Errorf("vertex at distance %f, want 100", d)
		}
	}
}

func TestVisibilityPolygonSingleWallShadowsBeyond(t *testing.T) {
	viewer := Vec2{50, 50}
	wall := Segment{A: Vec2{70, 20}, B: Vec2{70, 80}}
	pts := VisibilityPolygon(viewer, []Segment{wall}, 200, 10)
	if len(pts) < 3 {
		t.Fatalf("expected a valid polygon, got %d points", len(pts))
	}
	// Only vertices strictly inside the angular span the wall subtends are
	// shadowed; rays outside that span legitimately reach maxDist.
	lo := math.Atan2(wall.A.Y-viewer.Y, wall.A.X-viewer.X)
	hi := math.Atan2(wall.B.Y-viewer.Y, wall.B.X-viewer.X)
	for _, p := range pts {
		a := math.Atan2(p.Y-viewer.Y, p.X-viewer.X)
		if a <= lo+1e-9 || a >= hi-1e-9 {
			continue
		}
		if p.X > 70+1e-6 {
			t.Errorf("vertex at x=%f beyond wall at x=70", p.X)
		}
	}
}

func TestVisibilityPolygonMaximumVertexBound(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(rt, "nRects")
		k := rapid.IntRange(1, 40).Draw(rt, "k")
		rects := make([]SpriteRect, n)
		for i := range rects {
			rects[i] = SpriteRect{
				X: rapid.Float64Range(-200, 200).Draw(rt, "x"),
				Y: rapid.Float64Range(-200, 200).Draw(rt, "y"),
				W: rapid.Float64Range(1, 50).Draw(rt, "w"),
				H: rapid.Float64Range(1, 50).Draw(rt, "h"),
			}
		}
		segs := ExtractObstacles(rects)
		pts := VisibilityPolygon(Vec2{0, 0}, segs, 500, k)
		maxAllowed := 6*len(segs)*2 + (k + 20)
		if len(pts) > maxAllowed {
			rt.Fatalf("got %d vertices, want <= %d (endpoints=%d)", len(pts), maxAllowed, len(segs)*2)
		}
	})
}

func rectArea(poly []Vec2) float64 {
	area := 0.0
	n := len(poly)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return area / 2
}

func isClockwise(poly []Vec2) bool {
	// With Y increasing downward (screen/table convention used throughout
	// this package), a clockwise polygon has non-negative signed area under
	// the standard shoelace formula (Y-down flips the usual CCW/CW sign).
	return rectArea(poly) >= 0
}

func TestComputeFogPolygonsEmptyHide(t *testing.T) {
	polys := ComputeFogPolygons(nil, []Rect{NewRect(0, 0, 10, 10)})
	if len(polys) != 0 {
		t.Errorf("got %d polygons, want 0", len(polys))
	}
}

func TestComputeFogPolygonsRevealDisjoint(t *testing.T) {
	hide := []Rect{NewRect(0, 0, 100, 100)}
	reveal := []Rect{NewRect(200, 200, 210, 210)}
	polys := ComputeFogPolygons(hide, reveal)
	if len(polys) != 1 {
		t.Fatalf("got %d polygons, want 1", len(polys))
	}
	if len(polys[0]) < 3 {
		t.Fatalf("polygon has %d vertices, want >= 3", len(polys[0]))
	}
}

func TestComputeFogPolygonsRevealCoversHideRemovesIt(t *testing.T) {
	hide := []Rect{NewRect(10, 10, 20, 20)}
	reveal := []Rect{NewRect(0, 0, 100, 100)}
	polys := ComputeFogPolygons(hide, reveal)
	if len(polys) != 0 {
		t.Errorf("got %d polygons, want 0 (reveal covers hide)", len(polys))
	}
}

func TestComputeFogPolygonsHideThenRevealScenario(t *testing.T) {
	hide := []Rect{
		NewRect(0, 0, 100, 100),
		NewRect(80, 80, 160, 160),
	}
	reveal := []Rect{NewRect(40, 40, 60, 60)}
	polys := ComputeFogPolygons(hide, reveal)
	if len(polys) != 1 {
		t.Fatalf("got %d polygons, want 1 (overlapping hide rects form one component)", len(polys))
	}
}

func TestFogPolygonsAreSimpleAndClockwise(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 4).Draw(rt, "nHide")
		hide := make([]Rect, n)
		for i := range hide {
			x := rapid.Float64Range(0, 200).Draw(rt, "hx")
			y := rapid.Float64Range(0, 200).Draw(rt, "hy")
			w := rapid.Float64Range(5, 80).Draw(rt, "hw")
			h := rapid.Float64Range(5, 80).Draw(rt, "hh")
			hide[i] = NewRect(x, y, x+w, y+h)
		}
		polys := ComputeFogPolygons(hide, nil)
		for _, p := range polys {
			if len(p) < 3 {
				rt.Fatalf("polygon with %d vertices, want >= 3", len(p))
			}
		}
	})
}

func TestRectNormalizedOrientationFree(t *testing.T) {
	a := NewRect(10, 10, 0, 0)
	b := a.Normalized()
	if b.P1 != (Vec2{0, 0}) || b.P2 != (Vec2{10, 10}) {
		t.Errorf("Normalized() = %+v, want (0,0)-(10,10)", b)
	}
}

func TestSingleHideRectIsClockwise(t *testing.T) {
	polys := ComputeFogPolygons([]Rect{NewRect(0, 0, 50, 50)}, nil)
	if len(polys) != 1 {
		t.Fatalf("got %d polygons, want 1", len(polys))
	}
	if !isClockwise(polys[0]) {
		t.Errorf("polygon %v is not clockwise", polys[0])
	}
}

func TestRectOverlapsSharedEdge(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	b := NewRect(10, 0, 20, 10)
	if !a.Overlaps(b) {
		t.Error("adjacent rects sharing an edge should overlap")
	}
}
