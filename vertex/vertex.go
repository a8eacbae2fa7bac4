// Package vertex converts geometric results (polygons, segments, rays)
// from the geom package into interleaved ebiten.Vertex arrays ready for a
// single DrawTriangles call, following the same allocate-once,
// fill-in-one-pass discipline willow's mesh helpers use for rope and
// distortion-grid meshes.
package vertex

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/prtfnx-vtt/vttcore/geom"
)

// Color is a non-premultiplied RGBA color in [0,1], matching willow's Color.
type Color struct {
	R, G, B, A float32
}

func colorVertex(v *ebiten.Vertex, c Color) {
	v.ColorR, v.ColorG, v.ColorB, v.ColorA = c.R, c.G, c.B, c.A
}

// PolygonToTriangleFan builds a triangle fan from a closed polygon and a
// shared center vertex: one triangle per polygon edge, 3 vertices each.
// The center always carries uv (0.5, 0.5); each edge contributes a
// (0,0)->(1,0) uv pair along its own triangle.
func PolygonToTriangleFan(polygon []geom.Vec2, center geom.Vec2, c Color) []ebiten.Vertex {
	n := len(polygon)
	if n < 2 {
		return nil
	}
	verts := make([]ebiten.Vertex, 3*n)
	for i := 0; i < n; i++ {
		a := polygon[i]
		b := polygon[(i+1)%n]
		base := i * 3
		verts[base] = ebiten.Vertex{DstX: float32(center.X), DstY: float32(center.Y), SrcX: 0.5, SrcY: 0.5}
		verts[base+1] = ebiten.Vertex{DstX: float32(a.X), DstY: float32(a.Y), SrcX: 0, SrcY: 0}
		verts[base+2] = ebiten.Vertex{DstX: float32(b.X), DstY: float32(b.Y), SrcX: 1, SrcY: 0}
		colorVertex(&verts[base], c)
		colorVertex(&verts[base+1], c)
		colorVertex(&verts[base+2], c)
	}
	return verts
}

// PolygonToTriangles tessellates a polygon for a filled draw. Exactly-4
// vertex polygons use direct two-triangle tessellation (no centroid
// vertex, matching a plain rectangle/quad); larger polygons fall back to
// centroid-fan triangulation, which is exact for convex polygons and
// adequate for concave ones as long as the centroid lies inside.
func PolygonToTriangles(polygon []geom.Vec2, c Color) []ebiten.Vertex {
	n := len(polygon)
	if n < 3 {
		return nil
	}
	if n == 4 {
		verts := make([]ebiten.Vertex, 6)
		order := [6]int{0, 1, 2, 0, 2, 3}
		for i, idx := range order {
			p := polygon[idx]
			verts[i] = ebiten.Vertex{DstX: float32(p.X), DstY: float32(p.Y)}
			colorVertex(&verts[i], c)
		}
		return verts
	}

	var cx, cy float64
	for _, p := range polygon {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(n)
	cy /= float64(n)
	return PolygonToTriangleFan(polygon, geom.Vec2{X: cx, Y: cy}, c)
}

// LineStrip builds N vertices along a polyline with uv.X = i/(N-1), for a
// draw mode that samples a 1D gradient or dashed texture along the path.
func LineStrip(points []geom.Vec2, c Color) []ebiten.Vertex {
	n := len(points)
	if n == 0 {
		return nil
	}
	verts := make([]ebiten.Vertex, n)
	denom := float64(n - 1)
	if denom <= 0 {
		denom = 1
	}
	for i, p := range points {
		verts[i] = ebiten.Vertex{
			DstX: float32(p.X), DstY: float32(p.Y),
			SrcX: float32(float64(i) / denom), SrcY: 0,
		}
		colorVertex(&verts[i], c)
	}
	return verts
}

// LineSegments builds 2 vertices per segment, uv in {(0,0),(1,0)}.
func LineSegments(segments []geom.Segment, c Color) []ebiten.Vertex {
	verts := make([]ebiten.Vertex, 2*len(segments))
	for i, s := range segments {
		base := i * 2
		verts[base] = ebiten.Vertex{DstX: float32(s.A.X), DstY: float32(s.A.Y), SrcX: 0, SrcY: 0}
		verts[base+1] = ebiten.Vertex{DstX: float32(s.B.X), DstY: float32(s.B.Y), SrcX: 1, SrcY: 0}
		colorVertex(&verts[base], c)
		colorVertex(&verts[base+1], c)
	}
	return verts
}

// Rays builds 2 vertices per ray (origin, origin + distance*direction),
// one per angle in angles.
func Rays(origin geom.Vec2, angles []float64, distance float64, c Color) []ebiten.Vertex {
	verts := make([]ebiten.Vertex, 2*len(angles))
	for i, a := range angles {
		base := i * 2
		sin, cos := math.Sincos(a)
		dx := distance * cos
		dy := distance * sin
		verts[base] = ebiten.Vertex{DstX: float32(origin.X), DstY: float32(origin.Y), SrcX: 0, SrcY: 0}
		verts[base+1] = ebiten.Vertex{DstX: float32(origin.X + dx), DstY: float32(origin.Y + dy), SrcX: 1, SrcY: 0}
		colorVertex(&verts[base], c)
		colorVertex(&verts[base+1], c)
	}
	return verts
}

// Outline builds 2N vertices forming a closed line loop through the given
// already-sorted points (e.g. a visibility polygon boundary).
func Outline(sortedPoints []geom.Vec2, c Color) []ebiten.Vertex {
	n := len(sortedPoints)
	if n < 2 {
		return nil
	}
	verts := make([]ebiten.Vertex, 2*n)
	for i := 0; i < n; i++ {
		a := sortedPoints[i]
		b := sortedPoints[(i+1)%n]
		base := i * 2
		verts[base] = ebiten.Vertex{DstX: float32(a.X), DstY: float32(a.Y), SrcX: 0, SrcY: 0}
		verts[base+1] = ebiten.Vertex{DstX: float32(b.X), DstY: float32(b.Y), SrcX: 1, SrcY: 0}
		colorVertex(&verts[base], c)
		colorVertex(&verts[base+1], c)
	}
	return verts
}
