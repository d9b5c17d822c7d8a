/*
Package sphere provides the spherical geometry used by sky tiles:
convex polygons on the celestial sphere and the gnomonic projection
that maps them to screen pixels.

Coordinates are equatorial: right ascension and declination in degrees.
Polygons are backed by S2 loops.
*/
package sphere

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/s2"
)

var (
	ErrTooFewVertices = errors.New("polygon needs at least 3 vertices")
	ErrInvalidPolygon = errors.New("invalid polygon")
)

// PointFromRaDec returns the unit vector for the given right ascension and declination, in degrees.
func PointFromRaDec(ra, dec float64) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(dec, ra))
}

// RaDecFromPoint is the inverse of PointFromRaDec. Right ascension is returned in [0, 360).
func RaDecFromPoint(p s2.Point) (ra, dec float64) {
	ll := s2.LatLngFromPoint(p)
	ra = ll.Lng.Degrees()
	if ra < 0 {
		ra += 360
	}
	return ra, ll.Lat.Degrees()
}

// ConvexPolygon is a convex region on the celestial sphere.
// It keeps the vertices exactly as given, in the given order,
// so that callers can pair them with per-vertex data (eg. texture coordinates).
// The zero value is an empty polygon which intersects nothing.
type ConvexPolygon struct {
	raDec [][2]float64
	loop  *s2.Loop
}

// NewConvexPolygon builds a polygon from [ra, dec] vertex pairs in degrees.
// Either winding order is accepted; the polygon always denotes
// the smaller of the two regions bounded by its edges.
func NewConvexPolygon(raDec [][2]float64) (ConvexPolygon, error) {
	if len(raDec) < 3 {
		return ConvexPolygon{}, fmt.Errorf("%w: got %d", ErrTooFewVertices, len(raDec))
	}
	pts := make([]s2.Point, len(raDec))
	for i, c := range raDec {
		if math.IsNaN(c[0]) || math.IsNaN(c[1]) || c[1] < -90 || c[1] > 90 {
			return ConvexPolygon{}, fmt.Errorf("%w: bad vertex %d %v", ErrInvalidPolygon, i, c)
		}
		pts[i] = PointFromRaDec(c[0], c[1])
	}
	loop := s2.LoopFromPoints(pts)
	if err := loop.Validate(); err != nil {
		return ConvexPolygon{}, fmt.Errorf("%w: %v", ErrInvalidPolygon, err)
	}
	loop.Normalize()
	return ConvexPolygon{
		raDec: append([][2]float64(nil), raDec...),
		loop:  loop,
	}, nil
}

// MustConvexPolygon is like NewConvexPolygon but panics on error.
func MustConvexPolygon(raDec [][2]float64) ConvexPolygon {
	p, err := NewConvexPolygon(raDec)
	if err != nil {
		panic(err)
	}
	return p
}

// IsZero returns true for the empty polygon.
func (p ConvexPolygon) IsZero() bool {
	return p.loop == nil
}

// NumVertices returns the number of vertices.
func (p ConvexPolygon) NumVertices() int {
	return len(p.raDec)
}

// RaDec returns a copy of the vertices as given to the constructor.
func (p ConvexPolygon) RaDec() [][2]float64 {
	return append([][2]float64(nil), p.raDec...)
}

// Vertices returns the vertices as unit vectors, in constructor order.
func (p ConvexPolygon) Vertices() []s2.Point {
	out := make([]s2.Point, len(p.raDec))
	for i, c := range p.raDec {
		out[i] = PointFromRaDec(c[0], c[1])
	}
	return out
}

// Intersects returns true if the polygons share any point.
func (p ConvexPolygon) Intersects(o ConvexPolygon) bool {
	if p.loop == nil || o.loop == nil {
		return false
	}
	return p.loop.Intersects(o.loop)
}

// Contains returns true if o lies entirely inside p.
func (p ConvexPolygon) Contains(o ConvexPolygon) bool {
	if p.loop == nil || o.loop == nil {
		return false
	}
	return p.loop.Contains(o.loop)
}

// ContainsPoint returns true if the point lies inside p.
func (p ConvexPolygon) ContainsPoint(pt s2.Point) bool {
	if p.loop == nil {
		return false
	}
	return p.loop.ContainsPoint(pt)
}

// Centroid returns the normalized centroid of the polygon.
func (p ConvexPolygon) Centroid() s2.Point {
	if p.loop == nil {
		return s2.Point{}
	}
	return s2.Point{Vector: p.loop.Centroid().Normalize()}
}

// Equal returns true if both polygons have identical vertex lists.
func (p ConvexPolygon) Equal(o ConvexPolygon) bool {
	if len(p.raDec) != len(o.raDec) {
		return false
	}
	for i := range p.raDec {
		if p.raDec[i] != o.raDec[i] {
			return false
		}
	}
	return true
}
