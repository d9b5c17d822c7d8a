package sphere

import (
	"errors"
	"math"
	"testing"
)

func TestProjection_CenterAndRoundTrip(t *testing.T) {
	p, err := NewProjection(83.8, -5.4, 10, 800, 600)
	if err != nil {
		t.Fatal(err)
	}
	x, y, ok := p.Project(p.Center)
	if !ok || math.Abs(x-400) > 1e-6 || math.Abs(y-300) > 1e-6 {
		t.Fatalf("center projects to %v,%v ok=%v", x, y, ok)
	}
	pt := PointFromRaDec(84.5, -4.9)
	x, y, ok = p.Project(pt)
	if !ok {
		t.Fatal("point should be in front of the tangent plane")
	}
	back := p.Unproject(x, y)
	if back.Distance(pt).Degrees() > 1e-9 {
		t.Errorf("round trip off by %v degrees", back.Distance(pt).Degrees())
	}
	// East is to the left.
	if x >= 400 {
		t.Errorf("point east of center should project left of center, got x=%v", x)
	}
	if y >= 300 {
		t.Errorf("point north of center should project above center, got y=%v", y)
	}
}

func TestProjection_BehindIsRejected(t *testing.T) {
	p, _ := NewProjection(0, 0, 60, 100, 100)
	if _, _, ok := p.Project(PointFromRaDec(180, 0)); ok {
		t.Error("antipode should not project")
	}
}

func TestProjection_Resolution(t *testing.T) {
	p, _ := NewProjection(0, 0, 1, 1000, 1000)
	// For small fields the pixel size is close to fov/width.
	if got := p.Resolution(); math.Abs(got-0.001) > 1e-6 {
		t.Errorf("resolution %v, want ~0.001", got)
	}
}

func TestProjection_Footprint(t *testing.T) {
	p, _ := NewProjection(10, 20, 30, 400, 200)
	fp := p.Footprint()
	if !fp.ContainsPoint(p.Center) {
		t.Error("footprint should contain the view center")
	}
	if fp.ContainsPoint(PointFromRaDec(10, 60)) {
		t.Error("footprint should not contain a point 40 degrees away")
	}
}

func TestProjection_Errors(t *testing.T) {
	if _, err := NewProjection(0, 0, 170, 10, 10); !errors.Is(err, ErrBadProjection) {
		t.Errorf("expected ErrBadProjection, got %v", err)
	}
	if _, err := NewProjection(0, 0, 10, 0, 10); !errors.Is(err, ErrBadProjection) {
		t.Errorf("expected ErrBadProjection, got %v", err)
	}
}

func TestProjection_Pole(t *testing.T) {
	p, err := NewProjection(0, 90, 20, 100, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Footprint().ContainsPoint(PointFromRaDec(0, 90)) {
		t.Error("footprint at the pole should contain the pole")
	}
}
