package scene

import "github.com/prtfnx-vtt/vttcore/geom"

// SpriteDict is the serializable form of a Sprite.
type SpriteDict struct {
	SpriteID    string  `yaml:"sprite_id" json:"sprite_id"`
	AssetID     string  `yaml:"asset_id,omitempty" json:"asset_id,omitempty"`
	AssetXXHash string  `yaml:"asset_xxhash,omitempty" json:"asset_xxhash,omitempty"`
	X           float64 `yaml:"x" json:"x"`
	Y           float64 `yaml:"y" json:"y"`
	ScaleX      float64 `yaml:"scale_x" json:"scale_x"`
	ScaleY      float64 `yaml:"scale_y" json:"scale_y"`
	Rotation    float64 `yaml:"rotation" json:"rotation"`
	Layer       string  `yaml:"layer" json:"layer"`
	Visible     bool    `yaml:"visible" json:"visible"`
	Collidable  bool    `yaml:"collidable" json:"collidable"`
	TexturePath string  `yaml:"texture_path,omitempty" json:"texture_path,omitempty"`
	OriginalW   float64 `yaml:"original_w" json:"original_w"`
	OriginalH   float64 `yaml:"original_h" json:"original_h"`
	CharacterID string  `yaml:"character_id,omitempty" json:"character_id,omitempty"`
}

// LayerDict pairs a layer name with its ordered sprite list.
type LayerDict struct {
	LayerName string       `yaml:"layer_name" json:"layer_name"`
	Sprites   []SpriteDict `yaml:"sprites" json:"sprites"`
}

// RectDict is the wire form of geom.Rect: two corner points.
type RectDict struct {
	X1 float64 `yaml:"x1" json:"x1"`
	Y1 float64 `yaml:"y1" json:"y1"`
	X2 float64 `yaml:"x2" json:"x2"`
	Y2 float64 `yaml:"y2" json:"y2"`
}

// FogDict is the wire form of FogRectangles.
type FogDict struct {
	Hide   []RectDict `yaml:"hide" json:"hide"`
	Reveal []RectDict `yaml:"reveal" json:"reveal"`
}

// TableDict is the full serializable form of a Table, matching the
// persisted-state shape of spec §6 (column layout is implementation
// defined; this dictionary form is authoritative for semantics).
type TableDict struct {
	TableID string `yaml:"table_id" json:"table_id"`
	Name    string `yaml:"name" json:"name"`
	Width   float64 `yaml:"width" json:"width"`
	Height  float64 `yaml:"height" json:"height"`

	ViewportX  float64 `yaml:"viewport_x" json:"viewport_x"`
	ViewportY  float64 `yaml:"viewport_y" json:"viewport_y"`
	TableScale float64 `yaml:"table_scale" json:"table_scale"`

	SelectedSpriteID string `yaml:"selected_sprite,omitempty" json:"selected_sprite,omitempty"`
	SelectedLayer    string `yaml:"selected_layer" json:"selected_layer"`

	ShowGrid bool `yaml:"show_grid" json:"show_grid"`
	CellSide int  `yaml:"cell_side" json:"cell_side"`

	Fog    FogDict     `yaml:"fog_rectangles" json:"fog_rectangles"`
	Layers []LayerDict `yaml:"layers" json:"layers"`
}

func rectToDict(r geom.Rect) RectDict {
	return RectDict{X1: r.P1.X, Y1: r.P1.Y, X2: r.P2.X, Y2: r.P2.Y}
}

func dictToRect(d RectDict) geom.Rect {
	return geom.NewRect(d.X1, d.Y1, d.X2, d.Y2)
}

func spriteToDict(s *Sprite) SpriteDict {
	d := SpriteDict{
		SpriteID:    s.SpriteID,
		AssetID:     s.AssetID,
		AssetXXHash: s.AssetXXHash,
		X:           s.Position.X,
		Y:           s.Position.Y,
		ScaleX:      s.ScaleX,
		ScaleY:      s.ScaleY,
		Rotation:    s.Rotation,
		Layer:       s.Layer.String(),
		Visible:     s.Visible,
		Collidable:  s.Collidable,
		TexturePath: s.TexturePath,
		OriginalW:   s.OriginalW,
		OriginalH:   s.OriginalH,
	}
	if s.Character != nil {
		d.CharacterID = s.Character.CharacterID
	}
	return d
}

func dictToSprite(d SpriteDict) (*Sprite, error) {
	layer, ok := ParseLayer(d.Layer)
	if !ok {
		return nil, ErrInvalidLayer
	}
	s := &Sprite{
		SpriteID:    d.SpriteID,
		AssetID:     d.AssetID,
		AssetXXHash: d.AssetXXHash,
		Position:    geom.Vec2{X: d.X, Y: d.Y},
		ScaleX:      d.ScaleX,
		ScaleY:      d.ScaleY,
		Rotation:    d.Rotation,
		Layer:       layer,
		Visible:     d.Visible,
		Collidable:  d.Collidable,
		TexturePath: d.TexturePath,
		OriginalW:   d.OriginalW,
		OriginalH:   d.OriginalH,
	}
	if d.CharacterID != "" {
		s.Character = &CharacterRef{CharacterID: d.CharacterID}
	}
	return s, nil
}

// Serialize converts the table into its dictionary form.
func (t *Table) Serialize() TableDict {
	d := TableDict{
		TableID:          t.TableID,
		Name:             t.Name,
		Width:            t.Width,
		Height:           t.Height,
		ViewportX:        t.ViewportX,
		ViewportY:        t.ViewportY,
		TableScale:       t.TableScale,
		SelectedSpriteID: t.SelectedSpriteID,
		SelectedLayer:    t.SelectedLayer.String(),
		ShowGrid:         t.ShowGrid,
		CellSide:         t.CellSide,
	}
	for _, r := range t.Fog.Hide {
		d.Fog.Hide = append(d.Fog.Hide, rectToDict(r))
	}
	for _, r := range t.Fog.Reveal {
		d.Fog.Reveal = append(d.Fog.Reveal, rectToDict(r))
	}
	for _, l := range Layers {
		ld := LayerDict{LayerName: l.String()}
		for _, s := range t.layers[l] {
			ld.Sprites = append(ld.Sprites, spriteToDict(s))
		}
		d.Layers = append(d.Layers, ld)
	}
	return d
}

// DeserializeTable rebuilds a Table from its dictionary form. View state
// (viewport/scale/grid/selection) is restored verbatim; screen area is not
// part of the persisted form and must be set again via SetScreenArea by
// the caller (it is assigned per-session by the layout manager, per spec
// §3).
func DeserializeTable(d TableDict) (*Table, error) {
	t, err := NewTable(d.TableID, d.Name, d.Width, d.Height)
	if err != nil {
		return nil, err
	}
	t.ViewportX = d.ViewportX
	t.ViewportY = d.ViewportY
	t.TableScale = clamp(d.TableScale, MinScale, MaxScale)
	t.ShowGrid = d.ShowGrid
	t.CellSide = d.CellSide

	if layer, ok := ParseLayer(d.SelectedLayer); ok {
		t.SelectedLayer = layer
	} else {
		t.SelectedLayer = LayerTokens
	}

	for _, r := range d.Fog.Hide {
		t.Fog.Hide = append(t.Fog.Hide, dictToRect(r))
	}
	for _, r := range d.Fog.Reveal {
		t.Fog.Reveal = append(t.Fog.Reveal, dictToRect(r))
	}

	for _, ld := range d.Layers {
		for _, sd := range ld.Sprites {
			s, err := dictToSprite(sd)
			if err != nil {
				return nil, err
			}
			if err := t.AddSprite(s); err != nil {
				return nil, err
			}
		}
	}

	if d.SelectedSpriteID != "" {
		if _, ok := t.Sprite(d.SelectedSpriteID); ok {
			t.SelectedSpriteID = d.SelectedSpriteID
		}
	}

	return t, nil
}
