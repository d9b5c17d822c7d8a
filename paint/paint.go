// Package paint composites textured sky regions.
package paint

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/rotblauer/skytile/sphere"
	"github.com/rotblauer/skytile/texture"
)

var ErrMismatchedCoords = errors.New("texture coordinates do not match region vertices")

// Call is one textured polygon to composite.
type Call struct {
	Region sphere.ConvexPolygon
	// TexCoords pairs a [u, v] with each region vertex, in the region's vertex order.
	TexCoords []orb.Point
	Texture   *texture.Texture
	Opacity   float32
	// Blend composites with the texture's own alpha. Otherwise the texture is treated as opaque.
	Blend bool
}

func (c Call) validate() error {
	if len(c.TexCoords) != c.Region.NumVertices() {
		return ErrMismatchedCoords
	}
	return nil
}

type Painter interface {
	Paint(c Call) error
}

// Labeler receives a label per painted region. It is a debugging aid.
type Labeler interface {
	Label(region sphere.ConvexPolygon, text string)
}

// Label is a recorded Labeler call.
type Label struct {
	Region sphere.ConvexPolygon
	Text   string
}

// Recorder keeps every call it is given.
type Recorder struct {
	Calls  []Call
	Labels []Label
}

func (r *Recorder) Paint(c Call) error {
	if err := c.validate(); err != nil {
		return err
	}
	r.Calls = append(r.Calls, c)
	return nil
}

func (r *Recorder) Label(region sphere.ConvexPolygon, text string) {
	r.Labels = append(r.Labels, Label{Region: region, Text: text})
}

func (r *Recorder) Reset() {
	r.Calls = r.Calls[:0]
	r.Labels = r.Labels[:0]
}

// Textures returns the textures painted, in call order.
func (r *Recorder) Textures() []*texture.Texture {
	out := make([]*texture.Texture, 0, len(r.Calls))
	for _, c := range r.Calls {
		out = append(out, c.Texture)
	}
	return out
}

// Discard accepts every valid call and paints nothing.
var Discard Painter = discard{}

type discard struct{}

func (discard) Paint(c Call) error {
	return c.validate()
}
