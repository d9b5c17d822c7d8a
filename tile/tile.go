// Package tile is a lazily loaded tree of sky image tiles,
// and the level of detail selection and fade-in drawing over it.
package tile

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/rotblauer/skytile/credits"
	"github.com/rotblauer/skytile/fade"
	"github.com/rotblauer/skytile/fetch"
	"github.com/rotblauer/skytile/loader"
	"github.com/rotblauer/skytile/sphere"
	"github.com/rotblauer/skytile/texture"
)

// NotDimmable is the luminance of tiles that are never culled for being too faint.
const NotDimmable = -1.0

// Tile is one region of the sky at one resolution.
// A tile exclusively owns its children.
type Tile struct {
	env    *Env
	parent *Tile
	token  loader.Token
	status loader.Status

	// url is set for tiles built from a reference.
	url     string
	fromURL bool
	// base is the URI relative references in the description resolve against.
	base string

	minResolution float64
	server        credits.Credits
	dataSet       credits.Credits
	imageURI      string
	luminance     float64
	alphaBlend    bool
	noTexture     bool
	regions       []sphere.ConvexPolygon
	texCoords     [][]orb.Point

	tex       *texture.Texture
	texStatus loader.Status
	texGen    uint64
	fade      fade.Timer

	// subTiles holds the raw subTiles entries. children are built from them
	// the first time the selector needs to descend.
	subTiles     []any
	children     []*Tile
	built        []*Tile // parallel to subTiles, nil where an entry failed
	materialized bool

	lastSeen time.Time
	dead     bool
}

func newTile(env *Env, parent *Tile) *Tile {
	t := &Tile{
		env:        env,
		parent:     parent,
		luminance:  NotDimmable,
		alphaBlend: true,
	}
	if parent != nil {
		t.luminance = parent.luminance
		t.alphaBlend = parent.alphaBlend
		t.server = parent.server
		t.dataSet = parent.dataSet
	}
	return t
}

// NewFromURL returns a tile whose description is fetched from url.
// The tile is Loading until the description arrives through Env.Apply.
func NewFromURL(env *Env, url string, parent *Tile) *Tile {
	t := newTile(env, parent)
	t.url = url
	t.fromURL = true
	t.base = url
	t.status = loader.Loading
	env.register(t)
	env.requester.RequestDescription(t.token, url)
	return t
}

// NewFromDescription builds a tile from an already decoded document.
// Relative URIs resolve against base.
// Missing fields take defaults, or inherit from the parent.
func NewFromDescription(env *Env, d Description, base string, parent *Tile) (*Tile, error) {
	t := newTile(env, parent)
	t.base = base
	if err := t.load(d); err != nil {
		return nil, err
	}
	t.status = loader.Loaded
	env.register(t)
	return t, nil
}

func (t *Tile) applyDescription(c loader.Completion) {
	if t.status != loader.Loading {
		return
	}
	if c.Err != nil {
		t.status = loader.Failed
		return
	}
	if err := t.load(c.Description); err != nil {
		t.env.logger.Warn("Bad tile description", "uri", t.url, "error", err)
		t.status = loader.Failed
		return
	}
	t.status = loader.Loaded
}

func (t *Tile) applyTexture(c loader.Completion) {
	if c.Gen != t.texGen || t.texStatus != loader.Loading {
		if c.Texture != nil {
			c.Texture.Release()
		}
		return
	}
	if c.Err != nil {
		t.texStatus = loader.Failed
		return
	}
	t.tex = c.Texture
	t.texStatus = loader.Loaded
}

func (t *Tile) requestTexture() {
	if t.texStatus != loader.NotLoaded || t.noTexture {
		return
	}
	if t.imageURI == "" {
		t.env.logger.Warn("Textured tile has no imageURI", "uri", t.url)
		t.texStatus = loader.Failed
		return
	}
	t.texStatus = loader.Loading
	t.env.requester.RequestTexture(t.token, t.texGen, t.imageURI)
}

// materialize builds children from the raw subTiles entries, once.
// Entries that fail to build are left out.
func (t *Tile) materialize() {
	if t.materialized || len(t.subTiles) == 0 {
		return
	}
	t.materialized = true
	t.children = make([]*Tile, 0, len(t.subTiles))
	t.built = make([]*Tile, len(t.subTiles))
	for i, raw := range t.subTiles {
		switch v := raw.(type) {
		case string:
			t.built[i] = NewFromURL(t.env, fetch.Resolve(t.base, v), t)
		case map[string]any:
			c, err := NewFromDescription(t.env, v, t.base, t)
			if err != nil {
				t.env.logger.Warn("Skipping subtile", "parent", t.base, "index", i, "error", err)
				continue
			}
			t.built[i] = c
		default:
			t.env.logger.Warn("Skipping subtile", "parent", t.base, "index", i, "type", v)
			continue
		}
		t.children = append(t.children, t.built[i])
	}
}

// dropChildren destroys materialized children. They are rebuilt from
// the raw entries when next needed.
func (t *Tile) dropChildren() {
	for _, c := range t.children {
		c.Destroy()
	}
	t.children = nil
	t.built = nil
	t.materialized = false
}

// IsReadyToDisplay reports whether the tile has something to show:
// its texture, or for a grouping tile, a ready descendant.
func (t *Tile) IsReadyToDisplay() bool {
	if t.noTexture {
		for _, c := range t.children {
			if c.IsReadyToDisplay() {
				return true
			}
		}
		return false
	}
	return t.texStatus == loader.Loaded && t.tex.Valid()
}

// Credits returns the tile's own credits.
func (t *Tile) Credits() (server, dataSet credits.Credits) {
	return t.server, t.dataSet
}

// ReleaseTexture drops the texture. It is fetched again the next time the tile is selected.
// A failed texture is forgotten, allowing a fresh attempt.
func (t *Tile) ReleaseTexture() {
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
	if t.texStatus == loader.NotLoaded {
		return
	}
	if t.texStatus == loader.Failed {
		t.env.requester.Forget(t.imageURI)
	}
	// In flight results for the old generation are discarded.
	t.texGen++
	t.texStatus = loader.NotLoaded
	t.fade.Reset()
}

// Destroy releases the tile and its subtree.
// Loads still in flight for any of them are discarded on arrival.
func (t *Tile) Destroy() {
	if t.dead {
		return
	}
	t.dead = true
	t.dropChildren()
	t.ReleaseTexture()
	t.env.unregister(t)
}

// Walk calls fn for t and each materialized descendant, depth first.
// Returning false from fn skips that tile's children.
func (t *Tile) Walk(fn func(*Tile) bool) {
	if !fn(t) {
		return
	}
	for _, c := range t.children {
		c.Walk(fn)
	}
}

// ReleaseIdle releases the textures and materialized children of tiles
// not selected since cutoff. It returns the number of tiles released.
func (t *Tile) ReleaseIdle(cutoff time.Time) int {
	if t.lastSeen.Before(cutoff) {
		n := 0
		if t.tex != nil || t.texStatus != loader.NotLoaded {
			t.ReleaseTexture()
			n++
		}
		for _, c := range t.children {
			c.Walk(func(d *Tile) bool {
				n++
				return true
			})
		}
		t.dropChildren()
		return n
	}
	n := 0
	for _, c := range t.children {
		n += c.ReleaseIdle(cutoff)
	}
	return n
}

func (t *Tile) Status() loader.Status        { return t.status }
func (t *Tile) TextureStatus() loader.Status { return t.texStatus }
func (t *Tile) Texture() *texture.Texture    { return t.tex }
func (t *Tile) URL() string                  { return t.url }
func (t *Tile) Parent() *Tile                { return t.parent }
func (t *Tile) MinResolution() float64       { return t.minResolution }
func (t *Tile) ImageURI() string             { return t.imageURI }
func (t *Tile) Luminance() float64           { return t.luminance }
func (t *Tile) AlphaBlend() bool             { return t.alphaBlend }
func (t *Tile) NoTexture() bool              { return t.noTexture }
func (t *Tile) LastSeen() time.Time          { return t.lastSeen }
func (t *Tile) Regions() []sphere.ConvexPolygon {
	return append([]sphere.ConvexPolygon(nil), t.regions...)
}

func (t *Tile) TextureCoords() [][]orb.Point {
	out := make([][]orb.Point, len(t.texCoords))
	for i, pts := range t.texCoords {
		out[i] = append([]orb.Point(nil), pts...)
	}
	return out
}

// Children returns the materialized children.
func (t *Tile) Children() []*Tile {
	return append([]*Tile(nil), t.children...)
}
