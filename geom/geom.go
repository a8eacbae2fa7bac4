// Package geom provides pure, stateless numeric routines over f64 geometry:
// ray casting for visibility polygons, rectangle/polygon boolean
// composition for fog-of-war, and obstacle extraction from rectangles.
//
// Every function here is a pure function of its arguments. None of them
// perform I/O, hold state, or raise on degenerate input — degenerate input
// produces an empty or fallback result, and callers are responsible for
// sanitizing NaN/Inf before calling in.
package geom

import (
	"math"
	"sort"
)

// Vec2 is a 2D point or vector in table/world coordinates.
type Vec2 struct {
	X, Y float64
}

// Segment is a directed line segment from A to B.
type Segment struct {
	A, B Vec2
}

// Rect is an axis-aligned rectangle described by two opposite corners.
// The corners are orientation-free: P1 need not be the top-left corner.
// Use Normalized to obtain a canonical min/max form.
type Rect struct {
	P1, P2 Vec2
}

// NewRect builds a Rect from two arbitrary corners.
func NewRect(x1, y1, x2, y2 float64) Rect {
	return Rect{P1: Vec2{x1, y1}, P2: Vec2{x2, y2}}
}

// Normalized returns r with P1 as the min corner and P2 as the max corner.
func (r Rect) Normalized() Rect {
	minX, maxX := r.P1.X, r.P2.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := r.P1.Y, r.P2.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return Rect{P1: Vec2{minX, minY}, P2: Vec2{maxX, maxY}}
}

// Width and Height report the normalized extents of the rectangle.
func (r Rect) Width() float64  { return math.Abs(r.P2.X - r.P1.X) }
func (r Rect) Height() float64 { return math.Abs(r.P2.Y - r.P1.Y) }

// Contains reports whether p lies within the normalized rectangle, edges included.
func (r Rect) Contains(p Vec2) bool {
	n := r.Normalized()
	return p.X >= n.P1.X && p.X <= n.P2.X && p.Y >= n.P1.Y && p.Y <= n.P2.Y
}

// Overlaps reports whether the normalized AABBs of r and other intersect,
// counting shared edges as overlap.
func (r Rect) Overlaps(other Rect) bool {
	a := r.Normalized()
	b := other.Normalized()
	return a.P1.X <= b.P2.X && a.P2.X >= b.P1.X && a.P1.Y <= b.P2.Y && a.P2.Y >= b.P1.Y
}

// Corners returns the four corners of the normalized rectangle in
// clockwise order starting at the top-left.
func (r Rect) Corners() [4]Vec2 {
	n := r.Normalized()
	return [4]Vec2{
		{n.P1.X, n.P1.Y},
		{n.P2.X, n.P1.Y},
		{n.P2.X, n.P2.Y},
		{n.P1.X, n.P2.Y},
	}
}

// Edges returns the four edges of the normalized rectangle in the order
// top, right, bottom, left — the order obstacle extraction emits.
func (r Rect) Edges() [4]Segment {
	c := r.Corners()
	return [4]Segment{
		{c[0], c[1]}, // top
		{c[1], c[2]}, // right
		{c[2], c[3]}, // bottom
		{c[3], c[0]}, // left
	}
}

const (
	epsParallel = 1e-10
	epsDedup    = 1e-10
	shadowEps   = 1e-3
)

// SpriteRect is the minimal rectangle shape obstacle extraction needs:
// a position and positive width/height in the same coordinate space as
// the viewer.
type SpriteRect struct {
	X, Y, W, H float64
}

// ExtractObstacles converts a set of axis-aligned sprite rectangles into
// line segments (4 per valid rectangle: top, right, bottom, left).
// Rectangles with non-positive width or height are skipped before any
// allocation, so the returned slice length is exactly 4 * validCount.
func ExtractObstacles(rects []SpriteRect) []Segment {
	valid := 0
	for _, r := range rects {
		if r.W > 0 && r.H > 0 {
			valid++
		}
	}
	segments := make([]Segment, 0, valid*4)
	for _, r := range rects {
		if r.W <= 0 || r.H <= 0 {
			continue
		}
		rect := NewRect(r.X, r.Y, r.X+r.W, r.Y+r.H)
		edges := rect.Edges()
		segments = append(segments, edges[:]...)
	}
	return segments
}

func normalizeAngle(a float64) float64 {
	const twoPi = 2 * math.Pi
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}

// rayIntersect finds the intersection between the ray from origin in
// direction (cos,sin) and the segment seg, using the parametric
// line-line formula. It returns the hit point and the ray parameter u
// (the distance along the unit direction), and ok=false if there is no
// valid intersection with segment parameter t in [0,1] and u >= 0
// (u is unbounded above for the ray; capped by maxDist by the caller).
func rayIntersect(origin Vec2, dirX, dirY float64, seg Segment) (Vec2, float64, bool) {
	x1, y1 := seg.A.X, seg.A.Y
	x2, y2 := seg.B.X, seg.B.Y
	x3, y3 := origin.X, origin.Y
	x4, y4 := origin.X+dirX, origin.Y+dirY

	denom := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if denom > -epsParallel && denom < epsParallel {
		return Vec2{}, 0, false
	}

	tNum := (x1-x3)*(y3-y4) - (y1-y3)*(x3-x4)
	uNum := (x1-x3)*(y1-y2) - (y1-y3)*(x1-x2)

	t := tNum / denom
	u := uNum / denom

	if t < 0 || t > 1 {
		return Vec2{}, 0, false
	}
	if u < 0 {
		return Vec2{}, 0, false
	}

	hit := Vec2{X: x1 + t*(x2-x1), Y: y1 + t*(y2-y1)}
	return hit, u, true
}

// castRay fires a ray from origin at the given angle against segments,
// returning the closest intersection within maxDist, or the point at
// maxDist if nothing is hit.
func castRay(origin Vec2, angle, maxDist float64, segments []Segment) Vec2 {
	dirX, dirY := math.Cos(angle), math.Sin(angle)
	best := Vec2{X: origin.X + dirX*maxDist, Y: origin.Y + dirY*maxDist}
	bestDistSq := maxDist * maxDist

	for _, seg := range segments {
		hit, u, ok := rayIntersect(origin, dirX, dirY, seg)
		if !ok || u > maxDist {
			continue
		}
		dx, dy := hit.X-origin.X, hit.Y-origin.Y
		distSq := dx*dx + dy*dy
		if distSq > bestDistSq {
			continue
		}
		// Only accept hits forward of the origin (t>=0 already enforced in
		// rayIntersect); tie-break on smallest distance.
		if distSq < bestDistSq {
			bestDistSq = distSq
			best = hit
		}
	}
	return best
}

// VisibilityPolygon computes a light/line-of-sight polygon from viewer
// against the obstacle segments, per spec §4.1. Endpoints are sampled
// with a 3-ray fan (θ-ε, θ, θ+ε) to capture both sides of shadow edges; a
// coverage mask over the remaining angular space is filled with one ray
// per uncovered bin of width 2π/⌊628/gapResolution⌋... (bin count is
// floor(628/gapResolution), matching the spec's fixed-width circle split).
//
// If segments is empty, only the gapResolution+20 evenly spaced rays are
// cast (a full circle of view).
func VisibilityPolygon(viewer Vec2, segments []Segment, maxDist float64, gapResolution int) []Vec2 {
	if gapResolution <= 0 {
		gapResolution = 1
	}
	binCount := 628 / gapResolution
	if binCount < 1 {
		binCount = 1
	}

	if len(segments) == 0 {
		n := gapResolution + 20
		pts := make([]Vec2, 0, n)
		for i := 0; i < n; i++ {
			angle := 2 * math.Pi * float64(i) / float64(n)
			pts = append(pts, castRay(viewer, angle, maxDist, segments))
		}
		return pts
	}

	type endpointAngle struct {
		angle float64
	}

	seen := make(map[Vec2]bool)
	endpoints := make([]endpointAngle, 0, len(segments)*2)
	covered := make([]bool, binCount)

	markCovered := func(a1, a2 float64) {
		a1 = normalizeAngle(a1)
		a2 = normalizeAngle(a2)
		i1 := int(a1 / (2 * math.Pi) * float64(binCount))
		i2 := int(a2 / (2 * math.Pi) * float64(binCount))
		if i1 > i2 {
			i1, i2 = i2, i1
		}
		// Shorter arc: if the span is more than half the circle, mark the
		// complementary (wrap-around) span instead.
		if i2-i1 > binCount/2 {
			for i := 0; i < binCount; i++ {
				if i < i1 || i > i2 {
					covered[i] = true
				}
			}
			return
		}
		for i := i1; i <= i2 && i < binCount; i++ {
			covered[i] = true
		}
	}

	points := make([]Vec2, 0, len(segments)*6+gapResolution+20)

	addPoint := func(p Vec2) {
		key := Vec2{math.Round(p.X/epsDedup) * epsDedup, math.Round(p.Y/epsDedup) * epsDedup}
		if seen[key] {
			return
		}
		seen[key] = true
		points = append(points, p)
	}

	for _, seg := range segments {
		for _, ep := range []Vec2{seg.A, seg.B} {
			dx, dy := ep.X-viewer.X, ep.Y-viewer.Y
			angle := math.Atan2(dy, dx)
			endpoints = append(endpoints, endpointAngle{angle: normalizeAngle(angle)})
		}
	}

	minAngle, maxAngle := math.Inf(1), math.Inf(-1)
	for _, e := range endpoints {
		if e.angle < minAngle {
			minAngle = e.angle
		}
		if e.angle > maxAngle {
			maxAngle = e.angle
		}
	}

	for _, e := range endpoints {
		for _, delta := range []float64{-shadowEps, 0, shadowEps} {
			angle := e.angle + delta
			p := castRay(viewer, angle, maxDist, segments)
			addPoint(p)
		}
		markCovered(e.angle-shadowEps, e.angle+shadowEps)
	}
	_ = minAngle
	_ = maxAngle

	for i := 0; i < binCount; i++ {
		if covered[i] {
			continue
		}
		center := (float64(i) + 0.5) / float64(binCount) * 2 * math.Pi
		addPoint(castRay(viewer, center, maxDist, segments))
	}

	sortByAngleAround(points, viewer)
	return points
}

// sortByAngleAround sorts points in place by their angle around center.
func sortByAngleAround(points []Vec2, center Vec2) {
	sort.Slice(points, func(i, j int) bool {
		ai := math.Atan2(points[i].Y-center.Y, points[i].X-center.X)
		aj := math.Atan2(points[j].Y-center.Y, points[j].X-center.X)
		return normalizeAngle(ai) < normalizeAngle(aj)
	})
}

func centroid(points []Vec2) Vec2 {
	var cx, cy float64
	for _, p := range points {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(points))
	if n == 0 {
		return Vec2{}
	}
	return Vec2{cx / n, cy / n}
}

func dedupRound(points []Vec2) []Vec2 {
	seen := make(map[Vec2]bool, len(points))
	out := make([]Vec2, 0, len(points))
	for _, p := range points {
		key := Vec2{math.Round(p.X/epsDedup) * epsDedup, math.Round(p.Y/epsDedup) * epsDedup}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func sortClockwise(points []Vec2) []Vec2 {
	c := centroid(points)
	sort.Slice(points, func(i, j int) bool {
		ai := normalizeAngle(math.Atan2(points[i].Y-c.Y, points[i].X-c.X))
		aj := normalizeAngle(math.Atan2(points[j].Y-c.Y, points[j].X-c.X))
		return ai < aj
	})
	return points
}

// segmentIntersection returns the intersection point of two finite
// segments, if one exists within both parametric ranges.
func segmentIntersection(a, b Segment) (Vec2, bool) {
	x1, y1, x2, y2 := a.A.X, a.A.Y, a.B.X, a.B.Y
	x3, y3, x4, y4 := b.A.X, b.A.Y, b.B.X, b.B.Y

	denom := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if denom > -epsParallel && denom < epsParallel {
		return Vec2{}, false
	}
	tNum := (x1-x3)*(y3-y4) - (y1-y3)*(x3-x4)
	uNum := (x1-x3)*(y1-y2) - (y1-y3)*(x1-x2)
	t := tNum / denom
	u := uNum / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Vec2{}, false
	}
	return Vec2{X: x1 + t*(x2-x1), Y: y1 + t*(y2-y1)}, true
}

func polygonEdges(poly []Vec2) []Segment {
	if len(poly) < 2 {
		return nil
	}
	edges := make([]Segment, len(poly))
	for i := range poly {
		edges[i] = Segment{A: poly[i], B: poly[(i+1)%len(poly)]}
	}
	return edges
}

// pointInPolygon is a standard even-odd ray cast test.
func pointInPolygon(p Vec2, poly []Vec2) bool {
	if len(poly) < 3 {
		return false
	}
	inside := false
	j := len(poly) - 1
	for i := 0; i < len(poly); i++ {
		pi, pj := poly[i], poly[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) {
			xIntersect := (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if p.X < xIntersect {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

func boundingBoxOf(points []Vec2) []Vec2 {
	if len(points) == 0 {
		return nil
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return []Vec2{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}}
}

// UnionRect computes the union of a polygon with a rectangle: polygon
// vertices outside the rect, plus rect vertices outside the polygon, plus
// their edge intersections, deduped and sorted clockwise around the
// combined centroid. Falls back to the AABB of both inputs on degeneracy
// (fewer than 3 distinct resulting vertices).
func UnionRect(polygon []Vec2, rect Rect) []Vec2 {
	rectPts := rect.Corners()
	rectSlice := rectPts[:]

	var result []Vec2
	for _, p := range polygon {
		if !pointInPolygon(p, rectSlice) {
			result = append(result, p)
		}
	}
	for _, p := range rectSlice {
		if !pointInPolygon(p, polygon) {
			result = append(result, p)
		}
	}
	for _, pe := range polygonEdges(polygon) {
		for _, re := range polygonEdges(rectSlice) {
			if ip, ok := segmentIntersection(pe, re); ok {
				result = append(result, ip)
			}
		}
	}

	result = dedupRound(result)
	if len(result) < 3 {
		all := append(append([]Vec2{}, polygon...), rectSlice...)
		return sortClockwise(dedupRound(boundingBoxOf(all)))
	}
	return sortClockwise(result)
}

// DifferenceRect computes polygon minus rect: polygon vertices outside the
// rect, plus rect vertices inside the polygon, plus edge intersections,
// deduped and sorted clockwise. Returns an empty slice if the rect fully
// covers the polygon.
func DifferenceRect(polygon []Vec2, rect Rect) []Vec2 {
	rectPts := rect.Corners()
	rectSlice := rectPts[:]

	var result []Vec2
	for _, p := range polygon {
		if !pointInPolygon(p, rectSlice) {
			result = append(result, p)
		}
	}
	for _, p := range rectSlice {
		if pointInPolygon(p, polygon) {
			result = append(result, p)
		}
	}
	for _, pe := range polygonEdges(polygon) {
		for _, re := range polygonEdges(rectSlice) {
			if ip, ok := segmentIntersection(pe, re); ok {
				result = append(result, ip)
			}
		}
	}

	result = dedupRound(result)
	if len(result) < 3 {
		return nil
	}
	return sortClockwise(result)
}

// aabbOverlapGroups partitions rects into connected components under AABB
// overlap, using transitive closure (union-find).
func aabbOverlapGroups(rects []Rect) [][]int {
	n := len(rects)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rects[i].Overlaps(rects[j]) {
				union(i, j)
			}
		}
	}
	groups := make(map[int][]int)
	for i := 0; i < n; i++ {
		r := find(i)
		groups[r] = append(groups[r], i)
	}
	out := make([][]int, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	return out
}

// ComputeFogPolygons folds the hide rectangles into connected components
// by AABB overlap, unions each component into one polygon, then subtracts
// every reveal rectangle whose AABB overlaps the component's enclosing
// AABB (the bounding box of its hide rectangles). Polygons that
// end up empty are dropped. Order of the returned slice is not specified
// beyond "one entry per surviving component".
func ComputeFogPolygons(hide, reveal []Rect) [][]Vec2 {
	if len(hide) == 0 {
		return nil
	}
	groups := aabbOverlapGroups(hide)
	results := make([][]Vec2, 0, len(groups))

	for _, group := range groups {
		first := hide[group[0]].Corners()
		poly := append([]Vec2{}, first[:]...)
		for _, idx := range group[1:] {
			poly = UnionRect(poly, hide[idx])
		}

		groupAABB := hide[group[0]]
		for _, idx := range group[1:] {
			groupAABB = enclosingAABB(groupAABB, hide[idx])
		}

		for _, rv := range reveal {
			if !groupAABB.Overlaps(rv) {
				continue
			}
			poly = DifferenceRect(poly, rv)
			if len(poly) == 0 {
				break
			}
		}

		if len(poly) > 0 {
			results = append(results, poly)
		}
	}
	return results
}

func enclosingAABB(a, b Rect) Rect {
	an, bn := a.Normalized(), b.Normalized()
	minX := math.Min(an.P1.X, bn.P1.X)
	minY := math.Min(an.P1.Y, bn.P1.Y)
	maxX := math.Max(an.P2.X, bn.P2.X)
	maxY := math.Max(an.P2.Y, bn.P2.Y)
	return NewRect(minX, minY, maxX, maxY)
}
