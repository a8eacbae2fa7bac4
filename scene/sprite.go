package scene

import "github.com/prtfnx-vtt/vttcore/geom"

// TextureHandle is a non-owning reference to a GPU texture managed by an
// asset cache living outside this package. The cache owns the lifetime;
// Sprite only holds the handle weakly (see CharacterRef for the other
// optional reference a sprite can carry).
type TextureHandle interface {
	// ID identifies the underlying texture for cache bookkeeping.
	ID() string
}

// CharacterRef attaches a character-sheet record to a sprite. It is an
// explicit, optional tagged field — not a duck-typed attribute lookup, per
// the statically-typed restatement of the source's introspection-based
// optional fields.
type CharacterRef struct {
	CharacterID string
}

// ScreenRect is the layout manager's assignment of table's render target:
// the pixel rectangle on screen the table's viewport maps onto.
type ScreenRect struct {
	SX, SY, SW, SH float64
}

// Sprite is a single placed entity on one layer of a table.
type Sprite struct {
	SpriteID    string
	AssetID     string
	AssetXXHash string

	Position geom.Vec2
	ScaleX   float64
	ScaleY   float64
	Rotation float64 // degrees
	Layer    Layer
	Visible  bool
	Collidable bool

	TexturePath string
	Texture     TextureHandle // weak reference; nil if not yet loaded
	OriginalW   float64
	OriginalH   float64

	// FRect is the derived destination rectangle in screen space. It is
	// a pure function of Position, scale, viewport and screen area and is
	// recomputed by the render manager each frame — never set directly.
	FRect ScreenRect

	Character *CharacterRef
}

// NewSprite returns a sprite with the documented defaults applied:
// rotation 0, visible true, collidable false, scale 1.
func NewSprite(id string, layer Layer) *Sprite {
	return &Sprite{
		SpriteID: id,
		ScaleX:   1,
		ScaleY:   1,
		Layer:    layer,
		Visible:  true,
	}
}

// Bounds returns the sprite's table-space extents: Position to
// Position + (OriginalW*ScaleX, OriginalH*ScaleY).
func (s *Sprite) Bounds() geom.Rect {
	return geom.NewRect(
		s.Position.X, s.Position.Y,
		s.Position.X+s.OriginalW*s.ScaleX, s.Position.Y+s.OriginalH*s.ScaleY,
	)
}
