package render

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/prtfnx-vtt/vttcore/geom"
	"github.com/prtfnx-vtt/vttcore/scene"
	"github.com/prtfnx-vtt/vttcore/vertex"
)

const (
	gridSpacing     = 50.0
	gridLineColor32 = 0.35
	handleMargin    = 0.025 // 2.5% of the selected sprite's rect
	rotateHandleLen = 24.0
	nonSelectedAlpha = 0.5
	lightMaxDistance = 2000.0
	lightGapResolution = 4
)

var (
	windowClearColor = Color{0.08, 0.08, 0.09, 1}
	areaFillColor    = Color{0.16, 0.16, 0.18, 1}
	gridColor        = Color{gridLineColor32, gridLineColor32, gridLineColor32, 1}
	handleColor      = Color{1, 0.85, 0.2, 1}
	rotateHandleColorC = Color{0.2, 0.85, 1, 1}
)

// AssetSource resolves a sprite's texture for drawing. The render manager
// never loads images itself — a sprite for which Image returns nil is
// skipped.
type AssetSource interface {
	Image(s *scene.Sprite) *ebiten.Image
}

// LightSource is one entry on the light layer contributing to the
// visibility-lighting pass: a sprite position (table space) and a radius.
type LightSource struct {
	Position geom.Vec2
	Radius   float64
}

// FrameOptions configures one DrawFrame call.
type FrameOptions struct {
	IsGM bool

	// ShowLighting enables the visibility-polygon compositing pass
	// (spec §4.4 steps 1-6). ViewerPosition is the ray-casting origin in
	// table space; Lights adds one additive glow per source, drawn as a
	// uniformly tinted square of side 2*Radius with no radial falloff.
	ShowLighting   bool
	ViewerPosition geom.Vec2
	Lights         []LightSource

	// OverlayFn, if non-nil, is invoked last, after every layer and the
	// selection overlay, to let a transient tool (measurement, drawing,
	// fog brush preview) draw its own vertices into screen space.
	OverlayFn func(dst *ebiten.Image, t *scene.Table)
}

// Manager owns the per-frame caches (fog texture, visibility polygon
// cache) a table's rendering needs across frames.
type Manager struct {
	fog        *FogTexture
	visibility *VisibilityCache
	lastObst   []geom.Segment
}

// NewManager returns a render manager with empty per-table caches.
func NewManager() *Manager {
	return &Manager{
		fog:        NewFogTexture(),
		visibility: NewVisibilityCache(),
	}
}

// InvalidateVisibility drops every cached visibility polygon, for use when
// point_of_view_changed or obstacles_changed per spec §4.4 step 2.
func (m *Manager) InvalidateVisibility() {
	m.visibility.Invalidate()
}

// DrawFrame renders one frame of table t onto dst, following spec §4.4's
// ordered pipeline: clear, fill screen area, grid, layers (skipping
// invisible ones, applying per-layer blend/color/opacity and
// selection-layer alpha attenuation), fog-of-war, visibility lighting,
// selection handles, then the transient tool overlay.
func (m *Manager) DrawFrame(dst *ebiten.Image, t *scene.Table, settings map[scene.Layer]LayerSettings, assets AssetSource, opts FrameOptions) {
	dst.Fill(windowClearColor.toRGBA())

	if !t.HasScreenArea() {
		return
	}

	fillScreenAreaBG(dst, t)

	if t.ShowGrid {
		drawGrid(dst, t)
	}

	for _, layer := range orderedByZ(settings) {
		ls, ok := settings[layer]
		if !ok || !ls.IsVisible {
			continue
		}
		if layer == scene.LayerFogOfWar {
			m.drawFog(dst, t, opts.IsGM)
			continue
		}
		drawLayer(dst, t, layer, ls, assets)
	}

	if opts.ShowLighting {
		m.drawLighting(dst, t, opts)
	}

	if t.SelectedSpriteID != "" {
		if s, ok := t.Sprite(t.SelectedSpriteID); ok {
			drawSelectionHandles(dst, t, s)
		}
	}

	if opts.OverlayFn != nil {
		opts.OverlayFn(dst, t)
	}
}

// orderedByZ returns the fixed layer list sorted by each entry's ZOrder.
func orderedByZ(settings map[scene.Layer]LayerSettings) []scene.Layer {
	out := append([]scene.Layer{}, scene.Layers[:]...)
	for i := 1; i < len(out); i++ {
		key := out[i]
		j := i - 1
		for j >= 0 && settings[out[j]].ZOrder > settings[key].ZOrder {
			out[j+1] = out[j]
			j--
		}
		out[j+1] = key
	}
	return out
}

func fillScreenAreaBG(dst *ebiten.Image, t *scene.Table) {
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(t.ScreenArea.SW, t.ScreenArea.SH)
	op.GeoM.Translate(t.ScreenArea.SX, t.ScreenArea.SY)
	op.ColorScale.ScaleWithColor(areaFillColor.toRGBA())
	dst.DrawImage(whitePixel, &op)
}

// drawGrid draws vertical/horizontal lines at gridSpacing table-unit
// intervals, clipped to the table's screen area.
func drawGrid(dst *ebiten.Image, t *scene.Table) {
	area := t.ScreenArea
	var segs []geom.Segment

	startX := math.Floor(t.ViewportX/gridSpacing) * gridSpacing
	for tx := startX; tx < t.ViewportX+area.SW/t.TableScale+gridSpacing; tx += gridSpacing {
		sx, _ := t.TableToScreen(tx, 0)
		if sx < area.SX || sx > area.SX+area.SW {
			continue
		}
		segs = append(segs, geom.Segment{
			A: geom.Vec2{X: sx, Y: area.SY},
			B: geom.Vec2{X: sx, Y: area.SY + area.SH},
		})
	}
	startY := math.Floor(t.ViewportY/gridSpacing) * gridSpacing
	for ty := startY; ty < t.ViewportY+area.SH/t.TableScale+gridSpacing; ty += gridSpacing {
		_, sy := t.TableToScreen(0, ty)
		if sy < area.SY || sy > area.SY+area.SH {
			continue
		}
		segs = append(segs, geom.Segment{
			A: geom.Vec2{X: area.SX, Y: sy},
			B: geom.Vec2{X: area.SX + area.SW, Y: sy},
		})
	}
	if len(segs) == 0 {
		return
	}
	verts := vertex.LineSegments(segs, vertex.Color{R: gridColor.R32(), G: gridColor.G32(), B: gridColor.B32(), A: gridColor.A32()})
	drawLineVerts(dst, verts)
}

// drawLayer draws every visible sprite on layer, tinted/blended per ls,
// attenuating alpha to nonSelectedAlpha when layer isn't the table's
// currently selected layer (spec §4.4 step 5).
func drawLayer(dst *ebiten.Image, t *scene.Table, layer scene.Layer, ls LayerSettings, assets AssetSource) {
	alphaMul := 1.0
	if layer != t.SelectedLayer {
		alphaMul = nonSelectedAlpha
	}
	for _, s := range t.Sprites(layer) {
		if !s.Visible || assets == nil {
			continue
		}
		img := assets.Image(s)
		if img == nil {
			continue
		}
		drawSprite(dst, t, s, img, ls, alphaMul)
	}
}

func drawSprite(dst *ebiten.Image, t *scene.Table, s *scene.Sprite, img *ebiten.Image, ls LayerSettings, alphaMul float64) {
	w := s.OriginalW * s.ScaleX
	h := s.OriginalH * s.ScaleY
	if w <= 0 || h <= 0 {
		return
	}
	sx1, sy1 := t.TableToScreen(s.Position.X, s.Position.Y)
	sw := w * t.TableScale
	sh := h * t.TableScale

	bounds := img.Bounds()
	iw, ih := bounds.Dx(), bounds.Dy()
	if iw == 0 || ih == 0 {
		return
	}

	var op ebiten.DrawImageOptions
	op.GeoM.Scale(sw/float64(iw), sh/float64(ih))
	if s.Rotation != 0 {
		op.GeoM.Translate(-sw/2, -sh/2)
		op.GeoM.Rotate(s.Rotation * math.Pi / 180)
		op.GeoM.Translate(sx1+sw/2, sy1+sh/2)
	} else {
		op.GeoM.Translate(sx1, sy1)
	}
	op.ColorScale.Scale(float32(ls.Color.R), float32(ls.Color.G), float32(ls.Color.B), float32(ls.Color.A*ls.Opacity*alphaMul))
	op.Blend = ls.BlendMode.EbitenBlend()

	s.FRect = scene.ScreenRect{SX: sx1, SY: sy1, SW: sw, SH: sh}
	dst.DrawImage(img, &op)
}

func (m *Manager) drawFog(dst *ebiten.Image, t *scene.Table, isGM bool) {
	img := m.fog.EnsureCurrent(t, isGM)
	if img == nil {
		return
	}
	var op ebiten.DrawImageOptions
	op.GeoM.Translate(t.ScreenArea.SX, t.ScreenArea.SY)
	dst.DrawImage(img, &op)
}

// drawLighting computes the viewer's visibility polygon against the light
// layer's sprites (as obstacles), caches it, and composites a darkening
// modulate pass outside the polygon plus additive glow from each light
// source, per spec §4.4's visibility-lighting steps.
func (m *Manager) drawLighting(dst *ebiten.Image, t *scene.Table, opts FrameOptions) {
	var rects []geom.SpriteRect
	for _, s := range t.Sprites(scene.LayerLight) {
		if !s.Visible {
			continue
		}
		b := s.Bounds().Normalized()
		rects = append(rects, geom.SpriteRect{X: b.P1.X, Y: b.P1.Y, W: b.Width(), H: b.Height()})
	}
	obstacles := geom.ExtractObstacles(rects)

	viewerRect := geom.NewRect(opts.ViewerPosition.X-0.5, opts.ViewerPosition.Y-0.5, opts.ViewerPosition.X+0.5, opts.ViewerPosition.Y+0.5)
	poly, ok := m.visibility.Get(viewerRect, obstacles)
	if !ok {
		poly = geom.VisibilityPolygon(opts.ViewerPosition, obstacles, lightMaxDistance, lightGapResolution)
		m.visibility.Put(viewerRect, obstacles, poly)
	}
	if len(poly) < 3 {
		return
	}

	screenPoly := make([]geom.Vec2, len(poly))
	for i, p := range poly {
		sx, sy := t.TableToScreen(p.X, p.Y)
		screenPoly[i] = geom.Vec2{X: sx, Y: sy}
	}

	w := int(t.ScreenArea.SW)
	h := int(t.ScreenArea.SH)
	if w < 1 || h < 1 {
		return
	}
	darken := ebiten.NewImage(w, h)
	darken.Fill(Color{0, 0, 0, 0.75}.toRGBA())

	sx, sy := t.ScreenArea.SX, t.ScreenArea.SY
	local := make([]geom.Vec2, len(screenPoly))
	for i, p := range screenPoly {
		local[i] = geom.Vec2{X: p.X - sx, Y: p.Y - sy}
	}
	viewerSX, viewerSY := t.TableToScreen(opts.ViewerPosition.X, opts.ViewerPosition.Y)
	viewerLocal := geom.Vec2{X: viewerSX - sx, Y: viewerSY - sy}

	verts := vertex.PolygonToTriangleFan(local, viewerLocal, vertex.Color{R: 1, G: 1, B: 1, A: 1})
	var punchOp ebiten.DrawTrianglesOptions
	punchOp.Blend = eraseBlend()
	darken.DrawTriangles(verts, identityIndices(len(verts)), whitePixel, &punchOp)

	var op ebiten.DrawImageOptions
	op.GeoM.Translate(sx, sy)
	dst.DrawImage(darken, &op)

	for _, lt := range opts.Lights {
		drawGlow(dst, t, lt)
	}
}

// eraseBlend builds a blend that zeroes both source and destination,
// erasing the darken overlay wherever the visibility polygon is drawn —
// it punches a fully transparent hole rather than compositing the white
// fan color.
func eraseBlend() ebiten.Blend {
	return ebiten.Blend{
		BlendFactorSourceRGB:        ebiten.BlendFactorZero,
		BlendFactorSourceAlpha:      ebiten.BlendFactorZero,
		BlendFactorDestinationRGB:   ebiten.BlendFactorZero,
		BlendFactorDestinationAlpha: ebiten.BlendFactorZero,
		BlendOperationRGB:           ebiten.BlendOperationAdd,
		BlendOperationAlpha:         ebiten.BlendOperationAdd,
	}
}

// identityIndices returns 0..n-1, for vertex buffers that are already
// flat triangle lists (3 consecutive vertices per triangle) rather than
// indexed into a shared vertex pool.
func identityIndices(n int) []uint16 {
	idx := make([]uint16, n)
	for i := range idx {
		idx[i] = uint16(i)
	}
	return idx
}

func drawGlow(dst *ebiten.Image, t *scene.Table, lt LightSource) {
	sx, sy := t.TableToScreen(lt.Position.X, lt.Position.Y)
	r := lt.Radius * t.TableScale
	if r <= 0 {
		return
	}
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(r*2, r*2)
	op.GeoM.Translate(sx-r, sy-r)
	op.ColorScale.Scale(1, 0.95, 0.8, 0.35)
	op.Blend = BlendAdditive.EbitenBlend()
	dst.DrawImage(whitePixel, &op)
}

// drawSelectionHandles draws four corner resize handles inset by
// handleMargin of the sprite's screen rect, plus a rotate handle on a
// stalk above the top edge, per spec §4.4 step 7.
func drawSelectionHandles(dst *ebiten.Image, t *scene.Table, s *scene.Sprite) {
	r := s.FRect
	if r.SW <= 0 || r.SH <= 0 {
		return
	}
	mx := r.SW * handleMargin
	my := r.SH * handleMargin

	corners := []geom.Vec2{
		{X: r.SX + mx, Y: r.SY + my},
		{X: r.SX + r.SW - mx, Y: r.SY + my},
		{X: r.SX + r.SW - mx, Y: r.SY + r.SH - my},
		{X: r.SX + mx, Y: r.SY + r.SH - my},
	}
	for _, c := range corners {
		drawHandleDot(dst, c, handleColor)
	}

	topMid := geom.Vec2{X: r.SX + r.SW/2, Y: r.SY + my}
	stalkTop := geom.Vec2{X: topMid.X, Y: topMid.Y - rotateHandleLen}
	lineVerts := vertex.LineSegments([]geom.Segment{{A: topMid, B: stalkTop}}, vertex.Color{R: rotateHandleColorC.R32(), G: rotateHandleColorC.G32(), B: rotateHandleColorC.B32(), A: rotateHandleColorC.A32()})
	drawLineVerts(dst, lineVerts)
	drawHandleDot(dst, stalkTop, rotateHandleColorC)
}

const handleDotSize = 8.0

func drawHandleDot(dst *ebiten.Image, center geom.Vec2, c Color) {
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(handleDotSize, handleDotSize)
	op.GeoM.Translate(center.X-handleDotSize/2, center.Y-handleDotSize/2)
	op.ColorScale.ScaleWithColor(c.toRGBA())
	dst.DrawImage(whitePixel, &op)
}

// drawLineVerts submits a LineSegments/LineStrip vertex buffer as
// triangles via DrawTriangles, the same line-as-quad trick willow's mesh
// helpers use for rope rendering — adapted here to 2-vertex-per-segment
// input by drawing each segment as a 1.5px-wide quad (two triangles).
func drawLineVerts(dst *ebiten.Image, verts []ebiten.Vertex) {
	const lineWidth = float32(1.5)
	quads := make([]ebiten.Vertex, 0, len(verts)*2)
	indices := make([]uint16, 0, len(verts)*3)
	for i := 0; i+1 < len(verts); i += 2 {
		a, b := verts[i], verts[i+1]
		dx, dy := b.DstX-a.DstX, b.DstY-a.DstY
		length := float32(math.Hypot(float64(dx), float64(dy)))
		if length < 1e-6 {
			continue
		}
		nx, ny := -dy/length*lineWidth/2, dx/length*lineWidth/2
		base := uint16(len(quads))
		quads = append(quads,
			ebiten.Vertex{DstX: a.DstX + nx, DstY: a.DstY + ny, ColorR: a.ColorR, ColorG: a.ColorG, ColorB: a.ColorB, ColorA: a.ColorA},
			ebiten.Vertex{DstX: a.DstX - nx, DstY: a.DstY - ny, ColorR: a.ColorR, ColorG: a.ColorG, ColorB: a.ColorB, ColorA: a.ColorA},
			ebiten.Vertex{DstX: b.DstX - nx, DstY: b.DstY - ny, ColorR: b.ColorR, ColorG: b.ColorG, ColorB: b.ColorB, ColorA: b.ColorA},
			ebiten.Vertex{DstX: b.DstX + nx, DstY: b.DstY + ny, ColorR: b.ColorR, ColorG: b.ColorG, ColorB: b.ColorB, ColorA: b.ColorA},
		)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	if len(quads) == 0 {
		return
	}
	var op ebiten.DrawTrianglesOptions
	op.Blend = BlendAlpha.EbitenBlend()
	dst.DrawTriangles(quads, indices, whitePixel, &op)
}

func (c Color) R32() float32 { return float32(c.R) }
func (c Color) G32() float32 { return float32(c.G) }
func (c Color) B32() float32 { return float32(c.B) }
func (c Color) A32() float32 { return float32(c.A) }
