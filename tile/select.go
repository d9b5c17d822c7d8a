package tile

import (
	"sort"
	"time"

	"github.com/rotblauer/skytile/loader"
	"github.com/rotblauer/skytile/paint"
	"github.com/rotblauer/skytile/sphere"
)

// Viewport is what one frame looks at.
type Viewport struct {
	// Footprint is the region of the sky in view.
	Footprint sphere.ConvexPolygon
	// Resolution is the required resolution, in degrees per pixel.
	Resolution float64
	// LuminanceLimit culls tiles fainter than it. Zero culls nothing.
	LuminanceLimit float64
	// Now is the frame time fades are sampled at.
	Now time.Time

	Painter paint.Painter
	// Debug, if set, labels every painted region with its tile's resolution.
	Debug paint.Labeler
}

// Entry is one selected tile and the resolution it was selected at.
type Entry struct {
	Resolution float64
	Tile       *Tile
}

// Selection holds tiles in traversal order.
// Several tiles may share a resolution.
type Selection []Entry

// Sorted returns the entries coarse to fine.
// Entries of equal resolution keep their traversal order.
func (s Selection) Sorted() Selection {
	out := append(Selection(nil), s...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Resolution > out[j].Resolution
	})
	return out
}

func (s Selection) Tiles() []*Tile {
	out := make([]*Tile, len(s))
	for i, e := range s {
		out[i] = e.Tile
	}
	return out
}

// outcome is what a subtree contributed to the selection.
type outcome int

const (
	// culled subtrees are out of view or too faint; they need no coverage.
	culled outcome = iota
	// covered subtrees put something drawable into the selection.
	covered
	// missing subtrees are in view but have nothing to draw yet.
	missing
)

type selector struct {
	vp  *Viewport
	sel Selection
	// probe selects without side effects: no loads are requested,
	// no subtiles are built, nothing is marked as seen.
	probe bool
}

// Select returns the tiles to draw for vp.
// Tiles that are selected but lack a texture have it requested.
func (t *Tile) Select(vp *Viewport) Selection {
	s := &selector{vp: vp}
	s.collect(t, true)
	return s.sel
}

// probe is Select without side effects.
func (t *Tile) probe(vp *Viewport) Selection {
	s := &selector{vp: vp, probe: true}
	s.collect(t, true)
	return s.sel
}

// collect walks t's subtree.
// recheck is false when t is known to lie entirely inside the footprint.
func (s *selector) collect(t *Tile, recheck bool) outcome {
	if t.status != loader.Loaded {
		return missing
	}
	if t.luminance > 0 && t.luminance < s.vp.LuminanceLimit {
		return culled
	}
	childRecheck := recheck
	if recheck {
		visible, inside := t.visibility(s.vp.Footprint)
		if !visible {
			return culled
		}
		childRecheck = !inside
	}
	if !s.probe {
		t.lastSeen = s.vp.Now
	}

	adequate := !t.noTexture && t.minResolution <= s.vp.Resolution
	if adequate || len(t.subTiles) == 0 {
		return s.include(t)
	}
	if !s.probe {
		t.materialize()
	}
	if len(t.children) == 0 {
		return s.include(t)
	}

	anyCovered, anyMissing := false, false
	for _, c := range t.children {
		switch s.collect(c, childRecheck) {
		case covered:
			anyCovered = true
		case missing:
			anyMissing = true
		}
	}
	if anyCovered && !anyMissing {
		return covered
	}
	// Fill the gaps left by children with nothing to draw yet.
	return s.include(t)
}

// include adds t to the selection if it has something to draw.
// Grouping tiles are added, but never count as coverage.
func (s *selector) include(t *Tile) outcome {
	if t.noTexture {
		s.sel = append(s.sel, Entry{Resolution: t.minResolution, Tile: t})
		return missing
	}
	if t.texStatus == loader.Loaded && !t.tex.Valid() {
		// Pixels released behind our back.
		if s.probe {
			return missing
		}
		t.ReleaseTexture()
	}
	switch t.texStatus {
	case loader.Loaded:
		s.sel = append(s.sel, Entry{Resolution: t.minResolution, Tile: t})
		return covered
	case loader.NotLoaded:
		if !s.probe {
			t.requestTexture()
		}
	}
	return missing
}

// visibility reports whether any region of t meets the footprint,
// and whether every region lies inside it.
// A tile without regions covers the whole sky.
func (t *Tile) visibility(footprint sphere.ConvexPolygon) (visible, inside bool) {
	if len(t.regions) == 0 {
		return true, false
	}
	inside = true
	for _, r := range t.regions {
		if footprint.Contains(r) {
			visible = true
			continue
		}
		inside = false
		if footprint.Intersects(r) {
			visible = true
		}
	}
	return visible, visible && inside
}
