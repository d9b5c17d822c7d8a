package sphere

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
)

// MaxFOV is the widest horizontal field of view, in degrees, a Projection accepts.
// The gnomonic projection diverges at 180 and viewport corners
// must stay within one hemisphere.
const MaxFOV = 120.0

var ErrBadProjection = errors.New("bad projection")

// Projection is a gnomonic (tangent plane) projection of the sky
// as seen from inside the sphere: north up, east to the left.
type Projection struct {
	Center        s2.Point
	FOV           float64
	Width, Height int

	east, north r3.Vector

	// scale is pixels per radian at the center.
	scale float64
}

// NewProjection centers a width x height view on ra, dec (degrees)
// with a horizontal field of view fov (degrees).
func NewProjection(ra, dec, fov float64, width, height int) (*Projection, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrBadProjection, width, height)
	}
	if fov <= 0 || fov > MaxFOV {
		return nil, fmt.Errorf("%w: fov %v not in (0, %v]", ErrBadProjection, fov, MaxFOV)
	}
	c := PointFromRaDec(ra, dec)
	east := r3.Vector{Z: 1}.Cross(c.Vector)
	if east.Norm() < 1e-9 {
		// Looking at a celestial pole.
		east = r3.Vector{Y: 1}
	}
	east = east.Normalize()
	north := c.Vector.Cross(east).Normalize()

	halfWidth := float64(width) / 2
	halfFOV := fov / 2 * math.Pi / 180
	return &Projection{
		Center: c,
		FOV:    fov,
		Width:  width,
		Height: height,
		east:   east,
		north:  north,
		scale:  halfWidth / math.Tan(halfFOV),
	}, nil
}

// Project maps a point on the sphere to pixel coordinates.
// ok is false for points on or behind the tangent plane's horizon.
func (p *Projection) Project(pt s2.Point) (x, y float64, ok bool) {
	d := pt.Vector.Dot(p.Center.Vector)
	if d <= 1e-9 {
		return 0, 0, false
	}
	u := pt.Vector.Dot(p.east) / d
	v := pt.Vector.Dot(p.north) / d
	x = float64(p.Width)/2 - u*p.scale
	y = float64(p.Height)/2 - v*p.scale
	return x, y, true
}

// Unproject maps pixel coordinates back to the sphere.
func (p *Projection) Unproject(x, y float64) s2.Point {
	u := (float64(p.Width)/2 - x) / p.scale
	v := (float64(p.Height)/2 - y) / p.scale
	dir := p.Center.Vector.Add(p.east.Mul(u)).Add(p.north.Mul(v))
	return s2.Point{Vector: dir.Normalize()}
}

// Resolution returns the size of a pixel at the center of the view, in degrees.
func (p *Projection) Resolution() float64 {
	return 180 / (math.Pi * p.scale)
}

// Footprint returns the region of the sky covered by the view.
func (p *Projection) Footprint() ConvexPolygon {
	w, h := float64(p.Width), float64(p.Height)
	corners := [][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}}
	raDec := make([][2]float64, len(corners))
	for i, c := range corners {
		ra, dec := RaDecFromPoint(p.Unproject(c[0], c[1]))
		raDec[i] = [2]float64{ra, dec}
	}
	// Corners of a valid projection are distinct and within a hemisphere.
	return MustConvexPolygon(raDec)
}
