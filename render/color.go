// Package render implements the per-frame rendering pipeline: layer
// ordering and blending, the grid, selection handles, fog-of-war texture
// caching, and visibility-polygon lighting compositing, following
// willow's render.go / rendertexture.go / rendertarget.go / lightlayer.go
// conventions (render-target pooling, blend-mode enum mapped to
// ebiten.Blend, offscreen-texture caching keyed by a dirty flag).
package render

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// Color is a non-premultiplied RGBA color with components in [0,1].
type Color struct {
	R, G, B, A float64
}

func (c Color) toRGBA() color.RGBA {
	return color.RGBA{
		R: uint8(c.R * 255),
		G: uint8(c.G * 255),
		B: uint8(c.B * 255),
		A: uint8(c.A * 255),
	}
}

// BlendMode selects a compositing operation for a layer or fog pass.
type BlendMode uint8

const (
	BlendAlpha BlendMode = iota
	BlendAdditive
	BlendModulate
	BlendMultiply
	BlendNone // opaque overwrite; used when punching fog reveal holes
)

// EbitenBlend maps a BlendMode to the ebiten.Blend value that implements it.
func (b BlendMode) EbitenBlend() ebiten.Blend {
	switch b {
	case BlendAlpha:
		return ebiten.BlendSourceOver
	case BlendAdditive:
		return ebiten.BlendLighter
	case BlendModulate:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorZero,
			BlendFactorSourceAlpha:      ebiten.BlendFactorZero,
			BlendFactorDestinationRGB:   ebiten.BlendFactorSourceAlpha,
			BlendFactorDestinationAlpha: ebiten.BlendFactorSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendMultiply:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorDestinationColor,
			BlendFactorSourceAlpha:      ebiten.BlendFactorDestinationAlpha,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceAlpha,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendNone:
		return ebiten.BlendCopy
	default:
		return ebiten.BlendSourceOver
	}
}

// ParseBlendMode resolves a wire blend-mode name (per LayerSettings'
// `blend_mode` key) to a BlendMode.
func ParseBlendMode(name string) (BlendMode, bool) {
	switch name {
	case "alpha":
		return BlendAlpha, true
	case "additive":
		return BlendAdditive, true
	case "modulate":
		return BlendModulate, true
	case "multiply":
		return BlendMultiply, true
	default:
		return BlendAlpha, false
	}
}
