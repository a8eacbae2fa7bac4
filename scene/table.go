// Package scene models the layered tabletop scene graph: tables, sprites,
// layers, and the table/screen coordinate transforms, generalizing
// willow's Scene/Camera/Node trio (flat per-layer lists instead of a node
// tree — a VTT table has no parent/child sprite hierarchy) to the fixed
// seven-layer VTT layout.
package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/prtfnx-vtt/vttcore/geom"
)

const (
	MinScale = 0.1
	MaxScale = 5.0
)

var (
	// ErrDuplicateSprite is returned when AddSprite is called with a
	// sprite_id already present on the table.
	ErrDuplicateSprite = errors.New("scene: duplicate sprite id")
	// ErrSpriteNotFound is returned by sprite lookups that miss.
	ErrSpriteNotFound = errors.New("scene: sprite not found")
	// ErrInvalidLayer is returned when a layer value outside Layers is used.
	ErrInvalidLayer = errors.New("scene: invalid layer")
	// ErrInvalidDimensions is returned for non-positive table dimensions.
	ErrInvalidDimensions = errors.New("scene: width and height must be positive")
)

// FogRectangles holds the unordered, orientation-free hide/reveal
// rectangle lists for a table's fog of war. Rectangles are appended, never
// mutated; the lists are only ever replaced wholesale.
type FogRectangles struct {
	Hide   []geom.Rect
	Reveal []geom.Rect
}

// Table is a single shared 2D scene: dimensions, layered sprite contents,
// view state (pan/zoom/screen area), selection, fog, and grid settings.
// Tables exclusively own their sprites.
type Table struct {
	TableID string
	Name    string

	Width  float64
	Height float64

	layers [numLayers][]*Sprite

	ViewportX  float64
	ViewportY  float64
	TableScale float64
	ScreenArea ScreenRect
	hasScreen  bool

	SelectedSpriteID string
	SelectedLayer    Layer

	Fog FogRectangles

	ShowGrid bool
	CellSide int
}

// NewTable creates a table with default view state (scale 1, no pan,
// tokens selected as the default layer).
func NewTable(id, name string, width, height float64) (*Table, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	return &Table{
		TableID:       id,
		Name:          name,
		Width:         width,
		Height:        height,
		TableScale:    1.0,
		SelectedLayer: LayerTokens,
		CellSide:      50,
	}, nil
}

// AddSprite inserts s into its layer's ordered list. Returns
// ErrDuplicateSprite if sprite_id already exists on the table, and
// ErrInvalidLayer if s.Layer is not one of the fixed enum values.
func (t *Table) AddSprite(s *Sprite) error {
	if !s.Layer.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLayer, s.Layer)
	}
	if s.ScaleX <= 0 || s.ScaleY <= 0 {
		return fmt.Errorf("scene: scale must be positive, got (%f,%f)", s.ScaleX, s.ScaleY)
	}
	if _, _, ok := t.findSprite(s.SpriteID); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSprite, s.SpriteID)
	}
	t.layers[s.Layer] = append(t.layers[s.Layer], s)
	return nil
}

// findSprite scans every layer for sprite_id, returning its layer, index,
// and whether it was found.
func (t *Table) findSprite(id string) (Layer, int, bool) {
	for _, l := range Layers {
		for i, s := range t.layers[l] {
			if s.SpriteID == id {
				return l, i, true
			}
		}
	}
	return 0, 0, false
}

// Sprite looks up a sprite by id.
func (t *Table) Sprite(id string) (*Sprite, bool) {
	l, i, ok := t.findSprite(id)
	if !ok {
		return nil, false
	}
	return t.layers[l][i], true
}

// Sprites returns the ordered sprite list for layer. The returned slice
// must not be mutated by the caller.
func (t *Table) Sprites(layer Layer) []*Sprite {
	if !layer.Valid() {
		return nil
	}
	return t.layers[layer]
}

// AllSprites returns every sprite on the table across all layers, in
// z-order.
func (t *Table) AllSprites() []*Sprite {
	var out []*Sprite
	for _, l := range Layers {
		out = append(out, t.layers[l]...)
	}
	return out
}

// RemoveSprite deletes a sprite by id. Releasing its texture handle is the
// caller's responsibility (the asset cache, not this package, owns
// texture lifetime).
func (t *Table) RemoveSprite(id string) (*Sprite, error) {
	l, i, ok := t.findSprite(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSpriteNotFound, id)
	}
	s := t.layers[l][i]
	t.layers[l] = append(t.layers[l][:i], t.layers[l][i+1:]...)
	if t.SelectedSpriteID == id {
		t.SelectedSpriteID = ""
	}
	return s, nil
}

// MoveSpriteToLayer removes a sprite from its current layer and appends it
// to dest, preserving sprite_id identity across the move (cross-layer
// moves are a remove-and-reinsert, never a pointer-identity operation).
func (t *Table) MoveSpriteToLayer(id string, dest Layer) error {
	if !dest.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLayer, dest)
	}
	l, i, ok := t.findSprite(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSpriteNotFound, id)
	}
	s := t.layers[l][i]
	t.layers[l] = append(t.layers[l][:i], t.layers[l][i+1:]...)
	s.Layer = dest
	t.layers[dest] = append(t.layers[dest], s)
	return nil
}

// SetScreenArea records the screen-space rectangle the layout manager has
// assigned to this table.
func (t *Table) SetScreenArea(area ScreenRect) {
	t.ScreenArea = area
	t.hasScreen = true
	t.clampViewport()
}

// HasScreenArea reports whether SetScreenArea has been called.
func (t *Table) HasScreenArea() bool { return t.hasScreen }

// TableToScreen converts a table-space point to screen space using the
// current viewport, scale, and screen area.
func (t *Table) TableToScreen(tx, ty float64) (sx, sy float64) {
	sx = t.ScreenArea.SX + (tx-t.ViewportX)*t.TableScale
	sy = t.ScreenArea.SY + (ty-t.ViewportY)*t.TableScale
	return
}

// ScreenToTable converts a screen-space point back to table space. It is
// the exact inverse of TableToScreen for any point within ScreenArea.
func (t *Table) ScreenToTable(px, py float64) (tx, ty float64) {
	tx = (px-t.ScreenArea.SX)/t.TableScale + t.ViewportX
	ty = (py-t.ScreenArea.SY)/t.TableScale + t.ViewportY
	return
}

// Pan shifts the viewport by (dx, dy) screen pixels, converted to table
// units via the current scale, then clamps so the visible window stays
// within [0,Width]x[0,Height].
func (t *Table) Pan(dx, dy float64) {
	t.ViewportX += dx / t.TableScale
	t.ViewportY += dy / t.TableScale
	t.clampViewport()
}

// Zoom multiplies TableScale by factor, clamped to [MinScale, MaxScale].
// If center is non-nil (a table-space point), the viewport is adjusted so
// that point remains stationary under the new scale.
func (t *Table) Zoom(factor float64, center *geom.Vec2) {
	oldScale := t.TableScale
	newScale := clamp(oldScale*factor, MinScale, MaxScale)
	if newScale == oldScale {
		return
	}

	if center != nil {
		// Keep (cx,cy) fixed: screen position of center before == after.
		sx, sy := t.TableToScreen(center.X, center.Y)
		t.TableScale = newScale
		nx := (sx-t.ScreenArea.SX)/newScale - (center.X - t.ViewportX)
		ny := (sy-t.ScreenArea.SY)/newScale - (center.Y - t.ViewportY)
		t.ViewportX -= nx
		t.ViewportY -= ny
	} else {
		t.TableScale = newScale
	}
	t.clampViewport()
}

// clampViewport keeps the visible screen-area window inside [0,Width]x[0,Height]
// once a screen area has been assigned; a no-op otherwise (matching
// willow's clampToBounds, generalized from a fixed Bounds rect to the
// table's own [0,Width]x[0,Height] extent).
func (t *Table) clampViewport() {
	if !t.hasScreen || t.TableScale <= 0 {
		return
	}
	visW := t.ScreenArea.SW / t.TableScale
	visH := t.ScreenArea.SH / t.TableScale

	minX, maxX := 0.0, t.Width-visW
	minY, maxY := 0.0, t.Height-visH
	if minX > maxX {
		t.ViewportX = (t.Width - visW) / 2
	} else {
		t.ViewportX = math.Max(minX, math.Min(t.ViewportX, maxX))
	}
	if minY > maxY {
		t.ViewportY = (t.Height - visH) / 2
	} else {
		t.ViewportY = math.Max(minY, math.Min(t.ViewportY, maxY))
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// OutOfBounds reports whether any side of the sprite's extent lies outside
// [0,Width]x[0,Height].
func (t *Table) OutOfBounds(s *Sprite) bool {
	b := s.Bounds().Normalized()
	return b.P1.X < 0 || b.P1.Y < 0 || b.P2.X > t.Width || b.P2.Y > t.Height
}

// ConstrainToBounds clamps s.Position so its full extent fits within
// [0,Width]x[0,Height]. A no-op if the sprite is already in bounds.
func (t *Table) ConstrainToBounds(s *Sprite) {
	w := s.OriginalW * s.ScaleX
	h := s.OriginalH * s.ScaleY
	maxX := t.Width - w
	maxY := t.Height - h
	if maxX < 0 {
		maxX = 0
	}
	if maxY < 0 {
		maxY = 0
	}
	s.Position.X = clamp(s.Position.X, 0, maxX)
	s.Position.Y = clamp(s.Position.Y, 0, maxY)
}
