package fade

import (
	"testing"
	"time"
)

func TestOpacity_MonotonicAndConverges(t *testing.T) {
	start := time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)
	for _, name := range CurveNames() {
		curve, err := CurveByName(name)
		if err != nil {
			t.Fatal(err)
		}
		t.Run(name, func(t *testing.T) {
			last := float32(-1)
			for ms := 0; ms <= 1500; ms += 25 {
				v := Opacity(start, start.Add(time.Duration(ms)*time.Millisecond), time.Second, curve)
				if v < last {
					t.Fatalf("opacity decreased at %dms: %v < %v", ms, v, last)
				}
				if v < 0 || v > 1 {
					t.Fatalf("opacity out of range at %dms: %v", ms, v)
				}
				last = v
			}
			if last != 1 {
				t.Errorf("opacity should converge to 1, got %v", last)
			}
		})
	}
}

func TestOpacity_Edges(t *testing.T) {
	now := time.Now()
	if v := Opacity(time.Time{}, now, time.Second, nil); v != 0 {
		t.Errorf("unstarted fade should be 0, got %v", v)
	}
	if v := Opacity(now, now, time.Second, nil); v != 0 {
		t.Errorf("fade at activation should be 0, got %v", v)
	}
	if v := Opacity(now, now.Add(-time.Second), time.Second, nil); v != 0 {
		t.Errorf("clock going backwards should be 0, got %v", v)
	}
	if v := Opacity(now, now.Add(time.Millisecond), 0, nil); v != 1 {
		t.Errorf("zero duration should be instant, got %v", v)
	}
	if v := Opacity(now, now.Add(500*time.Millisecond), time.Second, nil); v < 0.49 || v > 0.51 {
		t.Errorf("linear halfway should be ~0.5, got %v", v)
	}
}

func TestTimer(t *testing.T) {
	var tm Timer
	now := time.Now()
	if tm.Started() {
		t.Fatal("zero timer should not be started")
	}
	tm.Begin(now)
	tm.Begin(now.Add(time.Hour))
	if !tm.Start.Equal(now) {
		t.Errorf("Begin should not restart a running fade")
	}
	if v := tm.Opacity(now.Add(2*time.Second), time.Second, nil); v != 1 {
		t.Errorf("expected 1, got %v", v)
	}
	tm.Reset()
	if tm.Started() || tm.Opacity(now.Add(2*time.Second), time.Second, nil) != 0 {
		t.Error("reset timer should be at zero")
	}
}

func TestCurveByName(t *testing.T) {
	if _, err := CurveByName("outBounce"); err == nil {
		t.Error("expected error for an unlisted curve")
	}
	if c, err := CurveByName(""); err != nil || c == nil {
		t.Error("empty name should be linear")
	}
}
