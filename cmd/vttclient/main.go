// Command vttclient is a minimal ebiten.Game harness wiring the scene,
// render, actions, and fogtool packages together: it owns one table, an
// action bus bound to it, a fog draw tool, and the render manager, and
// drives them each frame via ebiten.RunGame — following the same
// Game-interface shape willow's own demos/examples used (Update/Draw/
// Layout), minus the windowing/GUI-widget surface spec.md §1 explicitly
// places out of scope.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/prtfnx-vtt/vttcore/actions"
	"github.com/prtfnx-vtt/vttcore/fogtool"
	"github.com/prtfnx-vtt/vttcore/geom"
	"github.com/prtfnx-vtt/vttcore/render"
	"github.com/prtfnx-vtt/vttcore/scene"
)

const (
	screenW, screenH = 1024, 768
)

// noAssets is a placeholder render.AssetSource until an asset pipeline is
// wired in; it returns nil, which render.drawLayer skips.
type noAssets struct{}

func (noAssets) Image(*scene.Sprite) *ebiten.Image { return nil }

type game struct {
	table    *scene.Table
	bus      *actions.Bus
	fog      *fogtool.Tool
	manager  *render.Manager
	settings map[scene.Layer]render.LayerSettings
	isGM     bool
}

func newGame() (*game, error) {
	tbl, err := scene.NewTable("default", "Session", 2000, 2000)
	if err != nil {
		return nil, fmt.Errorf("vttclient: new table: %w", err)
	}
	tbl.SetScreenArea(scene.ScreenRect{SX: 0, SY: 0, SW: screenW, SH: screenH})

	bus := actions.NewBus(tbl, nil)
	g := &game{
		table:    tbl,
		bus:      bus,
		fog:      fogtool.NewTool(bus),
		manager:  render.NewManager(),
		settings: render.DefaultLayerSettings(),
		isGM:     true,
	}
	return g, nil
}

func (g *game) Update() error {
	mx, my := ebiten.CursorPosition()
	tx, ty := g.table.ScreenToTable(float64(mx), float64(my))
	p := geom.Vec2{X: tx, Y: ty}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.fog.MouseDown(p)
	} else if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.fog.MouseMove(p)
	} else if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		g.fog.MouseUp()
	}

	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		g.table.Pan(-8, 0)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		g.table.Pan(8, 0)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		g.table.Pan(0, -8)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		g.table.Pan(0, 8)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyZ) {
		g.bus.Undo()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyY) {
		g.bus.Redo()
	}
	return nil
}

func (g *game) Draw(dst *ebiten.Image) {
	g.manager.DrawFrame(dst, g.table, g.settings, noAssets{}, render.FrameOptions{
		IsGM: g.isGM,
	})
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenW, screenH
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	g, err := newGame()
	if err != nil {
		logger.Error("init failed", "err", err)
		os.Exit(1)
	}

	ebiten.SetWindowSize(screenW, screenH)
	ebiten.SetWindowTitle("vttclient")
	if err := ebiten.RunGame(g); err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
}
