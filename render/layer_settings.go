package render

import "github.com/prtfnx-vtt/vttcore/scene"

// LayerSettings controls how one scene.Layer is drawn: tint color,
// opacity, blend mode, visibility, and z-order. Keys mirror spec §4.4
// step 4 exactly (`color`, `opacity`, `blend_mode`, `is_visible`,
// `z_order`).
type LayerSettings struct {
	Color     Color
	Opacity   float64 // [0,1]
	BlendMode BlendMode
	IsVisible bool
	ZOrder    int
}

// DefaultLayerSettings returns one LayerSettings entry per fixed layer,
// fully opaque, alpha-blended, visible, z-order matching the layer's
// position in scene.Layers.
func DefaultLayerSettings() map[scene.Layer]LayerSettings {
	out := make(map[scene.Layer]LayerSettings, len(scene.Layers))
	for i, l := range scene.Layers {
		out[l] = LayerSettings{
			Color:     Color{1, 1, 1, 1},
			Opacity:   1,
			BlendMode: BlendAlpha,
			IsVisible: true,
			ZOrder:    i,
		}
	}
	return out
}
