package sphere

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func square(ra, dec, half float64) [][2]float64 {
	return [][2]float64{
		{ra - half, dec - half},
		{ra + half, dec - half},
		{ra + half, dec + half},
		{ra - half, dec + half},
	}
}

func TestConvexPolygon_Intersects(t *testing.T) {
	cases := []struct {
		name string
		a, b [][2]float64
		want bool
	}{
		{"overlap", square(10, 10, 2), square(11, 11, 2), true},
		{"disjoint", square(10, 10, 2), square(40, -30, 2), false},
		{"nested", square(10, 10, 5), square(10, 10, 1), true},
		{"across ra zero", square(0, 0, 2), square(359, 0, 2), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := MustConvexPolygon(c.a)
			b := MustConvexPolygon(c.b)
			if got := a.Intersects(b); got != c.want {
				t.Errorf("a.Intersects(b) = %v, want %v", got, c.want)
			}
			if got := b.Intersects(a); got != c.want {
				t.Errorf("b.Intersects(a) = %v, want %v", got, c.want)
			}
		})
	}
}

func TestConvexPolygon_Contains(t *testing.T) {
	outer := MustConvexPolygon(square(10, 10, 5))
	inner := MustConvexPolygon(square(10, 10, 1))
	if !outer.Contains(inner) {
		t.Error("outer should contain inner")
	}
	if inner.Contains(outer) {
		t.Error("inner should not contain outer")
	}
	if !outer.ContainsPoint(PointFromRaDec(10, 10)) {
		t.Error("outer should contain its center")
	}
}

func TestConvexPolygon_WindingOrderKeptAndSmallRegion(t *testing.T) {
	cw := square(10, 10, 2)
	// Reverse winding.
	for i, j := 0, len(cw)-1; i < j; i, j = i+1, j-1 {
		cw[i], cw[j] = cw[j], cw[i]
	}
	p := MustConvexPolygon(cw)
	if !reflect.DeepEqual(p.RaDec(), cw) {
		t.Errorf("vertex order not preserved: %v", p.RaDec())
	}
	if p.ContainsPoint(PointFromRaDec(180, -10)) {
		t.Error("polygon should denote the small region, not its complement")
	}
	if !p.ContainsPoint(PointFromRaDec(10, 10)) {
		t.Error("polygon should contain its center")
	}
}

func TestConvexPolygon_Errors(t *testing.T) {
	if _, err := NewConvexPolygon([][2]float64{{0, 0}, {1, 1}}); !errors.Is(err, ErrTooFewVertices) {
		t.Errorf("expected ErrTooFewVertices, got %v", err)
	}
	if _, err := NewConvexPolygon([][2]float64{{0, 0}, {0, 0}, {1, 1}}); !errors.Is(err, ErrInvalidPolygon) {
		t.Errorf("expected ErrInvalidPolygon for duplicate vertices, got %v", err)
	}
	if _, err := NewConvexPolygon([][2]float64{{0, 0}, {1, 95}, {1, 1}}); !errors.Is(err, ErrInvalidPolygon) {
		t.Errorf("expected ErrInvalidPolygon for bad declination, got %v", err)
	}
}

func TestConvexPolygon_Zero(t *testing.T) {
	var z ConvexPolygon
	p := MustConvexPolygon(square(0, 0, 1))
	if !z.IsZero() || p.IsZero() {
		t.Fatal("IsZero")
	}
	if z.Intersects(p) || p.Intersects(z) || z.Contains(p) {
		t.Error("zero polygon must not intersect or contain anything")
	}
}

func TestRaDecRoundTrip(t *testing.T) {
	for _, c := range [][2]float64{{0, 0}, {123.25, -45.5}, {359.5, 89}} {
		ra, dec := RaDecFromPoint(PointFromRaDec(c[0], c[1]))
		if math.Abs(ra-c[0]) > 1e-9 || math.Abs(dec-c[1]) > 1e-9 {
			t.Errorf("got %v %v, want %v", ra, dec, c)
		}
	}
}
