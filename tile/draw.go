package tile

import (
	"strconv"

	"github.com/rotblauer/skytile/paint"
)

// Draw paints the tiles selected for vp, coarse to fine.
func (t *Tile) Draw(vp *Viewport) {
	t.Render(vp)
}

// Render is Draw, returning the tiles that painted anything, in paint order.
func (t *Tile) Render(vp *Viewport) []*Tile {
	var drawn []*Tile
	for _, e := range t.Select(vp).Sorted() {
		if e.Tile.drawTile(vp) {
			drawn = append(drawn, e.Tile)
		}
	}
	return drawn
}

// drawTile paints every region of t at its current fade opacity.
// The fade starts the first time the tile is painted.
func (t *Tile) drawTile(vp *Viewport) bool {
	if t.noTexture || !t.tex.Valid() || vp.Painter == nil {
		return false
	}
	t.fade.Begin(vp.Now)
	opacity := t.fade.Opacity(vp.Now, t.env.FadeDuration, t.env.FadeCurve)
	painted := false
	for i, r := range t.regions {
		err := vp.Painter.Paint(paint.Call{
			Region:    r,
			TexCoords: t.texCoords[i],
			Texture:   t.tex,
			Opacity:   opacity,
			Blend:     t.alphaBlend,
		})
		if err != nil {
			t.env.logger.Warn("Paint failed", "uri", t.imageURI, "region", i, "error", err)
			continue
		}
		painted = true
		if vp.Debug != nil {
			vp.Debug.Label(r, strconv.FormatFloat(t.minResolution, 'g', 3, 64))
		}
	}
	return painted
}

// Opacity returns the fade opacity t would be painted with at vp.Now.
func (t *Tile) Opacity(vp *Viewport) float32 {
	return t.fade.Opacity(vp.Now, t.env.FadeDuration, t.env.FadeCurve)
}
