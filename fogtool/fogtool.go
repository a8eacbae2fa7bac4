// Package fogtool holds the GM's input-driven tool state machines: the
// fog hide/reveal rectangle draw tool, the measurement ruler, and the
// freehand/line/rect annotation drawing tool. Each is a small idle/active
// state machine driven by mouse events from the GUI layer, following
// willow's input.go pattern of translating raw pointer events into
// semantic drag gestures — generalized here from camera drag-pan to
// fog-rectangle and annotation dragging.
package fogtool

import (
	"math"

	"github.com/prtfnx-vtt/vttcore/actions"
	"github.com/prtfnx-vtt/vttcore/geom"
	"github.com/prtfnx-vtt/vttcore/scene"
)

// State is the fog tool's draw state machine, per spec §4.4's exact
// transition table.
type State int

const (
	StateIdle State = iota
	StateDrawing
)

// Mode selects whether a completed drag adds a hide or reveal rectangle.
type Mode int

const (
	ModeHide Mode = iota
	ModeReveal
)

// Tool drives the fog hide/reveal rectangle gesture against one table's
// fog lists via the supplied actions.Bus.
type Tool struct {
	Bus   *actions.Bus
	Mode  Mode
	state State
	start geom.Vec2
	cur   geom.Vec2
}

// NewTool binds a fog tool to bus, idle by default.
func NewTool(bus *actions.Bus) *Tool {
	return &Tool{Bus: bus}
}

// State reports the tool's current machine state.
func (t *Tool) State() State { return t.state }

// MouseDown starts a drag at p (table-space), but only from idle. The
// "inside screen_area" guard of spec §4.4's idle->drawing transition is
// not checked here: it is the GUI layer's responsibility (it converts
// screen coordinates to table space before calling in); Tool only enforces
// the idle precondition.
func (t *Tool) MouseDown(p geom.Vec2) {
	if t.state != StateIdle {
		return
	}
	t.state = StateDrawing
	t.start = p
	t.cur = p
}

// MouseMove updates the in-progress drag's current corner. A no-op outside
// StateDrawing.
func (t *Tool) MouseMove(p geom.Vec2) {
	if t.state != StateDrawing {
		return
	}
	t.cur = p
}

// MouseUp closes the drag: normalizes the two corners into a rect, appends
// it to the appropriate fog list, and pushes the update through the action
// bus (marking the render layer dirty is the caller's job via the bus's
// existing UpdateFog history hook). Returns to idle regardless of outcome.
func (t *Tool) MouseUp() actions.ActionResult {
	if t.state != StateDrawing {
		return actions.ActionResult{Success: false, Message: "not drawing"}
	}
	t.state = StateIdle
	rect := geom.NewRect(t.start.X, t.start.Y, t.cur.X, t.cur.Y).Normalized()
	if rect.Width() <= 0 || rect.Height() <= 0 {
		return actions.ActionResult{Success: false, Message: "degenerate rectangle discarded"}
	}

	hide := append([]geom.Rect{}, t.Bus.Table.Fog.Hide...)
	reveal := append([]geom.Rect{}, t.Bus.Table.Fog.Reveal...)
	if t.Mode == ModeHide {
		hide = append(hide, rect)
	} else {
		reveal = append(reveal, rect)
	}
	return t.Bus.UpdateFog(hide, reveal, true)
}

// Deactivate discards any in-progress drag without committing it, the
// "* -> idle" transition on tool deactivation.
func (t *Tool) Deactivate() {
	t.state = StateIdle
}

// HideAll replaces the hide list with a single rectangle covering the
// whole table and clears reveal, the GM's "blackout" command.
func (t *Tool) HideAll() actions.ActionResult {
	full := geom.NewRect(0, 0, t.Bus.Table.Width, t.Bus.Table.Height)
	return t.Bus.UpdateFog([]geom.Rect{full}, nil, true)
}

// RevealAll clears both fog lists, the GM's "reveal everything" command.
func (t *Tool) RevealAll() actions.ActionResult {
	return t.Bus.UpdateFog(nil, nil, true)
}

// Measurement is the ruler overlay: a two-point drag whose Distance is
// reported in table units and Cells in grid cells of the table's CellSide.
type Measurement struct {
	Active bool
	Start  geom.Vec2
	End    geom.Vec2
}

// Begin starts a measurement at p.
func (m *Measurement) Begin(p geom.Vec2) {
	m.Active = true
	m.Start = p
	m.End = p
}

// Update moves the measurement's live endpoint.
func (m *Measurement) Update(p geom.Vec2) {
	if m.Active {
		m.End = p
	}
}

// Finish ends the measurement, leaving Start/End at their final values
// and Active false.
func (m *Measurement) Finish() {
	m.Active = false
}

// Distance returns the table-unit length of the measured segment.
func (m *Measurement) Distance() float64 {
	return dist(m.Start, m.End)
}

// Cells returns the measured distance in grid cells of the given side
// length (table.CellSide). Returns 0 if cellSide is non-positive.
func (m *Measurement) Cells(cellSide int) float64 {
	if cellSide <= 0 {
		return 0
	}
	return m.Distance() / float64(cellSide)
}

func dist(a, b geom.Vec2) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// DrawShape selects a freehand/line/rect annotation primitive.
type DrawShape int

const (
	ShapeFreehand DrawShape = iota
	ShapeLine
	ShapeRect
)

// DrawTool is the GM annotation tool: completed gestures become sprites on
// the dungeon_master layer via the supplied bus, so annotations share the
// same undo history and replication path as every other mutation.
type DrawTool struct {
	Bus    *actions.Bus
	Shape  DrawShape
	active bool
	points []geom.Vec2
	nextID func() string
}

// NewDrawTool binds a draw tool to bus. nextID supplies fresh sprite ids
// for committed annotations (the caller owns id generation, e.g. a
// counter or uuid source, since fogtool has no identity-allocation
// authority of its own).
func NewDrawTool(bus *actions.Bus, nextID func() string) *DrawTool {
	return &DrawTool{Bus: bus, nextID: nextID}
}

// Begin starts a new annotation stroke at p.
func (d *DrawTool) Begin(p geom.Vec2) {
	d.active = true
	d.points = []geom.Vec2{p}
}

// Extend appends a point to a freehand stroke in progress, or updates the
// second point of a line/rect gesture, whichever the tool's Shape is.
func (d *DrawTool) Extend(p geom.Vec2) {
	if !d.active {
		return
	}
	switch d.Shape {
	case ShapeFreehand:
		d.points = append(d.points, p)
	default:
		if len(d.points) < 2 {
			d.points = append(d.points, p)
		} else {
			d.points[1] = p
		}
	}
}

// Commit finalizes the stroke into a sprite on LayerDungeonMaster via
// CreateSprite, then resets for the next gesture.
func (d *DrawTool) Commit() actions.ActionResult {
	if !d.active || len(d.points) == 0 {
		return actions.ActionResult{Success: false, Message: "no annotation in progress"}
	}
	d.active = false
	pts := d.points
	d.points = nil

	origin := pts[0]
	s := scene.NewSprite(d.nextID(), scene.LayerDungeonMaster)
	s.Position = origin
	s.OriginalW, s.OriginalH = boundsOf(pts)
	return d.Bus.CreateSprite(s, true)
}

// Cancel discards the in-progress stroke.
func (d *DrawTool) Cancel() {
	d.active = false
	d.points = nil
}

func boundsOf(pts []geom.Vec2) (w, h float64) {
	if len(pts) == 0 {
		return 0, 0
	}
	minX, minY, maxX, maxY := pts[0].X, pts[0].Y, pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return maxX - minX, maxY - minY
}
