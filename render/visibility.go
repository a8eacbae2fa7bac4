package render

import (
	"fmt"
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"github.com/prtfnx-vtt/vttcore/geom"
)

// visibilityCacheSize is the fixed entry count from spec §6 Configuration.
const visibilityCacheSize = 128

// VisibilityCache memoizes visibility polygons keyed by the viewer
// rectangle and the obstacle set, so an unmoving viewer in a static scene
// doesn't re-run ray casting every frame. It holds at most
// visibilityCacheSize entries and evicts least-recently-used, per
// spec §4.4 step 2.
type VisibilityCache struct {
	cache *lru.Cache
}

// NewVisibilityCache creates an empty 128-entry LRU cache.
func NewVisibilityCache() *VisibilityCache {
	c, err := lru.New(visibilityCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which never
		// happens with the constant above.
		panic(fmt.Sprintf("render: visibility cache init: %v", err))
	}
	return &VisibilityCache{cache: c}
}

func visibilityKey(viewerRect geom.Rect, obstacles []geom.Segment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%.4f,%.4f,%.4f,%.4f|", viewerRect.P1.X, viewerRect.P1.Y, viewerRect.P2.X, viewerRect.P2.Y)
	for _, s := range obstacles {
		fmt.Fprintf(&b, "%.4f,%.4f,%.4f,%.4f;", s.A.X, s.A.Y, s.B.X, s.B.Y)
	}
	return b.String()
}

// Get returns a cached polygon for (viewerRect, obstacles), if present.
func (v *VisibilityCache) Get(viewerRect geom.Rect, obstacles []geom.Segment) ([]geom.Vec2, bool) {
	val, ok := v.cache.Get(visibilityKey(viewerRect, obstacles))
	if !ok {
		return nil, false
	}
	return val.([]geom.Vec2), true
}

// Put stores a computed polygon under its (viewerRect, obstacles) key.
func (v *VisibilityCache) Put(viewerRect geom.Rect, obstacles []geom.Segment, polygon []geom.Vec2) {
	v.cache.Add(visibilityKey(viewerRect, obstacles), polygon)
}

// Invalidate clears every cached entry. Called when point_of_view_changed
// or obstacles_changed, per spec §4.4 step 2.
func (v *VisibilityCache) Invalidate() {
	v.cache.Purge()
}

// radialAlpha returns the light intensity contribution at distance d from
// a light source of the given radius: 1 at the center, fading to 0 at the
// edge (a simple smoothstep falloff, not a texture sample, since the
// engine has no GPU shader stage of its own for this).
func radialAlpha(d, radius float64) float64 {
	if radius <= 0 {
		return 0
	}
	t := d / radius
	if t >= 1 {
		return 0
	}
	if t <= 0 {
		return 1
	}
	return 1 - t*t*(3-2*t)
}

func dist(a, b geom.Vec2) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Hypot(dx, dy)
}
