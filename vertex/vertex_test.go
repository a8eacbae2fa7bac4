package vertex

import (
	"testing"

	"github.com/prtfnx-vtt/vttcore/geom"
)

var white = Color{1, 1, 1, 1}

func TestPolygonToTriangleFanVertexCount(t *testing.T) {
	poly := []geom.Vec2{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {5, 15}}
	verts := PolygonToTriangleFan(poly, geom.Vec2{5, 5}, white)
	want := 3 * len(poly)
	if len(verts) != want {
		t.Fatalf("got %d vertices, want %d", len(verts), want)
	}
	// Center vertex of the first triangle carries uv (0.5, 0.5).
	if verts[0].SrcX != 0.5 || verts[0].SrcY != 0.5 {
		t.Errorf("center uv = (%f,%f), want (0.5,0.5)", verts[0].SrcX, verts[0].SrcY)
	}
}

func TestPolygonToTrianglesQuadUsesSixVerts(t *testing.T) {
	quad := []geom.Vec2{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	verts := PolygonToTriangles(quad, white)
	if len(verts) != 6 {
		t.Fatalf("got %d vertices, want 6", len(verts))
	}
}

func TestPolygonToTrianglesLargerUsesFan(t *testing.T) {
	poly := []geom.Vec2{{0, 0}, {10, 0}, {15, 5}, {10, 10}, {0, 10}}
	verts := PolygonToTriangles(poly, white)
	want := 3 * len(poly)
	if len(verts) != want {
		t.Fatalf("got %d vertices, want %d", len(verts), want)
	}
}

func TestLineStripUVSpansZeroToOne(t *testing.T) {
	points := []geom.Vec2{{0, 0}, {1, 0}, {2, 0}, {3, 0}}
	verts := LineStrip(points, white)
	if len(verts) != 4 {
		t.Fatalf("got %d vertices, want 4", len(verts))
	}
	if verts[0].SrcX != 0 {
		t.Errorf("first uv.x = %f, want 0", verts[0].SrcX)
	}
	if verts[3].SrcX != 1 {
		t.Errorf("last uv.x = %f, want 1", verts[3].SrcX)
	}
}

func TestLineSegmentsVertexCount(t *testing.T) {
	segs := []geom.Segment{
		{A: geom.Vec2{0, 0}, B: geom.Vec2{1, 1}},
		{A: geom.Vec2{2, 2}, B: geom.Vec2{3, 3}},
	}
	verts := LineSegments(segs, white)
	if len(verts) != 4 {
		t.Fatalf("got %d vertices, want 4", len(verts))
	}
}

func TestRaysVertexCount(t *testing.T) {
	angles := []float64{0, 1, 2, 3, 4}
	verts := Rays(geom.Vec2{0, 0}, angles, 100, white)
	if len(verts) != 10 {
		t.Fatalf("got %d vertices, want 10", len(verts))
	}
	if verts[0].DstX != 0 || verts[0].DstY != 0 {
		t.Errorf("ray origin vertex = (%f,%f), want (0,0)", verts[0].DstX, verts[0].DstY)
	}
}

func TestOutlineClosesTheLoop(t *testing.T) {
	points := []geom.Vec2{{0, 0}, {10, 0}, {10, 10}}
	verts := Outline(points, white)
	if len(verts) != 6 {
		t.Fatalf("got %d vertices, want 6", len(verts))
	}
	// Last segment must close back to the first point.
	last := verts[len(verts)-1]
	if last.DstX != 0 || last.DstY != 0 {
		t.Errorf("closing vertex = (%f,%f), want (0,0)", last.DstX, last.DstY)
	}
}
