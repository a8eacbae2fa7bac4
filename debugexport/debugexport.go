// Package debugexport renders a table's fog rectangles and sprite layout to
// an SVG file for offline inspection, grounded in dungo's pkg/export/svg.go
// (buffer + svg.New + Start/shape calls/End, one file written via
// os.WriteFile) and retargeted from dungeon-graph nodes/edges to VTT
// sprites/fog rectangles.
package debugexport

import (
	"bytes"
	"fmt"
	"os"

	svg "github.com/ajstarks/svgo"

	"github.com/prtfnx-vtt/vttcore/geom"
	"github.com/prtfnx-vtt/vttcore/scene"
)

// Options configures the export canvas.
type Options struct {
	Width, Height int
	ShowLabels    bool
}

// DefaultOptions mirrors the table's own pixel dimensions when non-zero.
func DefaultOptions(t *scene.Table) Options {
	return Options{Width: int(t.Width), Height: int(t.Height), ShowLabels: true}
}

var layerColors = map[scene.Layer]string{
	scene.LayerMap:            "#2d3748",
	scene.LayerTokens:         "#48bb78",
	scene.LayerDungeonMaster:  "#ecc94b",
	scene.LayerLight:          "#f6e05e",
	scene.LayerHeight:         "#a0aec0",
	scene.LayerObstacles:      "#f56565",
}

// Export renders the table's sprites and fog rectangles to SVG bytes.
func Export(t *scene.Table, opts Options) ([]byte, error) {
	if opts.Width <= 0 {
		opts.Width = 1200
	}
	if opts.Height <= 0 {
		opts.Height = 900
	}

	buf := new(bytes.Buffer)
	canvas := svg.New(buf)
	canvas.Start(opts.Width, opts.Height)
	canvas.Rect(0, 0, opts.Width, opts.Height, "fill:#0f1117")

	for _, l := range scene.Layers {
		if l == scene.LayerFogOfWar {
			continue
		}
		color := layerColors[l]
		if color == "" {
			color = "#718096"
		}
		for _, s := range t.Sprites(l) {
			drawSprite(canvas, s, color, opts.ShowLabels)
		}
	}

	drawFogRects(canvas, t.Fog.Hide, "fill:#000000;opacity:0.55")
	drawFogRects(canvas, t.Fog.Reveal, "fill:none;stroke:#38b2ac;stroke-width:2;stroke-dasharray:4,4")

	canvas.End()
	return buf.Bytes(), nil
}

func drawSprite(canvas *svg.SVG, s *scene.Sprite, color string, labels bool) {
	w := int(s.OriginalW * s.ScaleX)
	h := int(s.OriginalH * s.ScaleY)
	x, y := int(s.Position.X), int(s.Position.Y)
	style := fmt.Sprintf("fill:%s;stroke:#fff;stroke-width:1;opacity:0.85", color)
	canvas.Rect(x, y, w, h, style)
	if labels {
		canvas.Text(x+w/2, y+h+12, s.SpriteID, "text-anchor:middle;font-size:10px;font-family:monospace;fill:#e2e8f0")
	}
}

func drawFogRects(canvas *svg.SVG, rects []geom.Rect, style string) {
	for _, r := range rects {
		n := r.Normalized()
		x, y := int(n.P1.X), int(n.P1.Y)
		w, h := int(n.Width()), int(n.Height())
		canvas.Rect(x, y, w, h, style)
	}
}

// SaveToFile renders and writes the SVG to path with 0644 permissions.
func SaveToFile(t *scene.Table, path string, opts Options) error {
	data, err := Export(t, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
