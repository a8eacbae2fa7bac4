package render

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/prtfnx-vtt/vttcore/geom"
	"github.com/prtfnx-vtt/vttcore/scene"
)

// whitePixel is a 1x1 white image used to fill rectangles via a scaled
// DrawImage, the same trick willow.go uses for solid-color sprites.
var whitePixel *ebiten.Image

func init() {
	whitePixel = ebiten.NewImage(1, 1)
	whitePixel.Fill(Color{1, 1, 1, 1}.toRGBA())
}

// gmFogColor and playerFogColor are the two fog tints spec §4.4 names:
// semi-transparent gray for the GM, opaque black for players.
var (
	gmFogColor     = Color{R: 128.0 / 255, G: 128.0 / 255, B: 128.0 / 255, A: 77.0 / 255}
	playerFogColor = Color{R: 0, G: 0, B: 0, A: 1}
)

// FogTexture owns the cached offscreen render target the fog layer draws
// into. It is rebuilt only when the hide/reveal rectangle lists, the
// viewport/scale, or the screen-area dimensions change — never shared
// with another table.
type FogTexture struct {
	target *ebiten.Image
	w, h   int

	lastHide     []geom.Rect
	lastReveal   []geom.Rect
	lastVX       float64
	lastVY       float64
	lastScale    float64
	lastScreenW  float64
	lastScreenH  float64
	valid        bool
}

// NewFogTexture returns an empty, not-yet-built fog texture cache.
func NewFogTexture() *FogTexture {
	return &FogTexture{}
}

func rectsEqual(a, b []geom.Rect) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Dirty reports whether the cached texture no longer matches the table's
// current fog/view/screen-area state.
func (f *FogTexture) Dirty(table *scene.Table) bool {
	if !f.valid {
		return true
	}
	if f.lastScreenW != table.ScreenArea.SW || f.lastScreenH != table.ScreenArea.SH {
		return true
	}
	if f.lastVX != table.ViewportX || f.lastVY != table.ViewportY || f.lastScale != table.TableScale {
		return true
	}
	if !rectsEqual(f.lastHide, table.Fog.Hide) || !rectsEqual(f.lastReveal, table.Fog.Reveal) {
		return true
	}
	return false
}

// EnsureCurrent rebuilds the texture if Dirty and returns the current
// image. isGM selects the fog tint.
func (f *FogTexture) EnsureCurrent(table *scene.Table, isGM bool) *ebiten.Image {
	if f.Dirty(table) {
		f.rebuild(table, isGM)
	}
	return f.target
}

func (f *FogTexture) rebuild(table *scene.Table, isGM bool) {
	sw := int(table.ScreenArea.SW)
	sh := int(table.ScreenArea.SH)
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	if f.target == nil || f.w != sw || f.h != sh {
		f.target = ebiten.NewImage(sw, sh)
		f.w, f.h = sw, sh
	} else {
		f.target.Clear()
	}

	fogColor := playerFogColor
	if isGM {
		fogColor = gmFogColor
	}

	for _, r := range table.Fog.Hide {
		fillScreenRect(f.target, table, r, fogColor, BlendAlpha)
	}
	for _, r := range table.Fog.Reveal {
		fillScreenRect(f.target, table, r, Color{0, 0, 0, 0}, BlendNone)
	}

	f.lastHide = append(f.lastHide[:0], table.Fog.Hide...)
	f.lastReveal = append(f.lastReveal[:0], table.Fog.Reveal...)
	f.lastVX, f.lastVY, f.lastScale = table.ViewportX, table.ViewportY, table.TableScale
	f.lastScreenW, f.lastScreenH = table.ScreenArea.SW, table.ScreenArea.SH
	f.valid = true
}

// fillScreenRect transforms a table-coord rect to screen-area-relative
// pixels via the table's own transform and fills it on dst with blend.
func fillScreenRect(dst *ebiten.Image, table *scene.Table, r geom.Rect, c Color, blend BlendMode) {
	n := r.Normalized()
	sx1, sy1 := table.TableToScreen(n.P1.X, n.P1.Y)
	sx2, sy2 := table.TableToScreen(n.P2.X, n.P2.Y)
	sx1 -= table.ScreenArea.SX
	sy1 -= table.ScreenArea.SY
	sx2 -= table.ScreenArea.SX
	sy2 -= table.ScreenArea.SY

	w := sx2 - sx1
	h := sy2 - sy1
	if w < 0 {
		sx1, w = sx1+w, -w
	}
	if h < 0 {
		sy1, h = sy1+h, -h
	}
	if w <= 0 || h <= 0 {
		return
	}

	var op ebiten.DrawImageOptions
	op.GeoM.Scale(w, h)
	op.GeoM.Translate(sx1, sy1)
	op.ColorScale.Scale(float32(c.R), float32(c.G), float32(c.B), float32(c.A))
	op.Blend = blend.EbitenBlend()
	dst.DrawImage(whitePixel, &op)
}
