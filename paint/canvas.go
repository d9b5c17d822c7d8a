package paint

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/rotblauer/skytile/sphere"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Canvas rasterizes calls onto an RGBA image through a projection.
//
// Polygons are split into a triangle fan and textured with affine
// interpolation and nearest-neighbour sampling. Texture v runs bottom to top.
// Regions with any vertex behind the view are skipped.
type Canvas struct {
	proj   *sphere.Projection
	img    *image.RGBA
	logger *slog.Logger

	LabelColor color.Color
}

func NewCanvas(proj *sphere.Projection) *Canvas {
	return &Canvas{
		proj:       proj,
		img:        image.NewRGBA(image.Rect(0, 0, proj.Width, proj.Height)),
		logger:     slog.With("d", "canvas"),
		LabelColor: color.RGBA{R: 255, G: 255, A: 255},
	}
}

func (c *Canvas) Image() *image.RGBA {
	return c.img
}

func (c *Canvas) Projection() *sphere.Projection {
	return c.proj
}

// Clear fills the canvas with col.
func (c *Canvas) Clear(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

type vertex struct {
	x, y float64
	uv   orb.Point
}

func (c *Canvas) Paint(call Call) error {
	if err := call.validate(); err != nil {
		return err
	}
	src := call.Texture.Image()
	if src == nil || call.Opacity <= 0 {
		return nil
	}
	pts := call.Region.Vertices()
	verts := make([]vertex, len(pts))
	for i, p := range pts {
		x, y, ok := c.proj.Project(p)
		if !ok {
			c.logger.Debug("Region behind view, skipping", "uri", call.Texture.URI())
			return nil
		}
		verts[i] = vertex{x: x, y: y, uv: call.TexCoords[i]}
	}
	for i := 1; i+1 < len(verts); i++ {
		c.triangle(verts[0], verts[i], verts[i+1], src, call.Opacity, call.Blend)
	}
	return nil
}

func (c *Canvas) triangle(a, b, d vertex, src *image.RGBA, opacity float32, blend bool) {
	area := (b.x-a.x)*(d.y-a.y) - (d.x-a.x)*(b.y-a.y)
	if math.Abs(area) < 1e-12 {
		return
	}
	bounds := c.img.Bounds()
	minX := max(int(math.Floor(min(a.x, b.x, d.x))), bounds.Min.X)
	maxX := min(int(math.Ceil(max(a.x, b.x, d.x))), bounds.Max.X-1)
	minY := max(int(math.Floor(min(a.y, b.y, d.y))), bounds.Min.Y)
	maxY := min(int(math.Ceil(max(a.y, b.y, d.y))), bounds.Max.Y-1)

	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	const eps = -1e-9
	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := ((b.x-px)*(d.y-py) - (d.x-px)*(b.y-py)) / area
			w1 := ((d.x-px)*(a.y-py) - (a.x-px)*(d.y-py)) / area
			w2 := 1 - w0 - w1
			if w0 < eps || w1 < eps || w2 < eps {
				continue
			}
			u := w0*a.uv[0] + w1*b.uv[0] + w2*d.uv[0]
			v := w0*a.uv[1] + w1*b.uv[1] + w2*d.uv[1]
			tx := clampInt(int(u*float64(sw)), 0, sw-1)
			ty := clampInt(int((1-v)*float64(sh)), 0, sh-1)
			c.blend(x, y, src.RGBAAt(tx, ty), opacity, blend)
		}
	}
}

// blend composites s over the pixel at x, y.
// image.RGBA stores premultiplied alpha.
func (c *Canvas) blend(x, y int, s color.RGBA, opacity float32, useAlpha bool) {
	dst := c.img.RGBAAt(x, y)
	var r, g, b, a float32
	if useAlpha {
		r, g, b, a = float32(s.R), float32(s.G), float32(s.B), float32(s.A)
	} else {
		if s.A == 0 {
			return
		}
		k := 255 / float32(s.A)
		r, g, b, a = float32(s.R)*k, float32(s.G)*k, float32(s.B)*k, 255
	}
	r, g, b, a = r*opacity, g*opacity, b*opacity, a*opacity
	inv := 1 - a/255
	c.img.SetRGBA(x, y, color.RGBA{
		R: clamp8(r + float32(dst.R)*inv),
		G: clamp8(g + float32(dst.G)*inv),
		B: clamp8(b + float32(dst.B)*inv),
		A: clamp8(a + float32(dst.A)*inv),
	})
}

// Label writes text at the projected centroid of region.
func (c *Canvas) Label(region sphere.ConvexPolygon, text string) {
	x, y, ok := c.proj.Project(region.Centroid())
	if !ok {
		return
	}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(c.LabelColor),
		Face: basicfont.Face7x13,
	}
	w := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: fixed.I(int(x)) - w/2,
		Y: fixed.I(int(y)),
	}
	d.DrawString(text)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
