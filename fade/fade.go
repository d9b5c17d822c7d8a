// Package fade computes fade-in opacity as a pure function of time.
// There is no ticking timeline: the start timestamp is stored as plain data
// and the opacity is recomputed from the frame clock every frame.
package fade

import (
	"fmt"
	"sort"
	"time"

	"github.com/tanema/gween/ease"
)

// DefaultDuration is how long a tile takes to fade in.
const DefaultDuration = time.Second

// Curve maps elapsed time to a value, with gween's (t, begin, change, duration) signature.
type Curve = ease.TweenFunc

// curves are the named easing curves. Only curves which never decrease
// on [0, d] are listed, so opacity is monotonic whichever is chosen.
var curves = map[string]Curve{
	"linear":    ease.Linear,
	"inQuad":    ease.InQuad,
	"outQuad":   ease.OutQuad,
	"inOutQuad": ease.InOutQuad,
	"outCubic":  ease.OutCubic,
	"inOutSine": ease.InOutSine,
	"outSine":   ease.OutSine,
}

// CurveByName looks up a named easing curve. The empty name is "linear".
func CurveByName(name string) (Curve, error) {
	if name == "" {
		return ease.Linear, nil
	}
	c, ok := curves[name]
	if !ok {
		return nil, fmt.Errorf("unknown fade curve %q (have %v)", name, CurveNames())
	}
	return c, nil
}

// CurveNames lists the known curve names, sorted.
func CurveNames() []string {
	names := make([]string, 0, len(curves))
	for k := range curves {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Opacity returns the opacity, in [0, 1], at now of a fade started at start.
// A zero start means the fade has not begun.
// A nil curve is linear. A non-positive duration is an instant fade.
func Opacity(start, now time.Time, d time.Duration, curve Curve) float32 {
	if start.IsZero() {
		return 0
	}
	elapsed := now.Sub(start)
	if elapsed < 0 {
		return 0
	}
	if d <= 0 || elapsed >= d {
		return 1
	}
	if curve == nil {
		curve = ease.Linear
	}
	v := curve(float32(elapsed.Seconds()), 0, 1, float32(d.Seconds()))
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Timer is the fade state of one tile: just its start time.
// The zero value is a fade that has not started.
type Timer struct {
	Start time.Time
}

// Started returns true once Begin has been called (and not Reset since).
func (t *Timer) Started() bool {
	return !t.Start.IsZero()
}

// Begin starts the fade at now, unless it is already running.
func (t *Timer) Begin(now time.Time) {
	if t.Start.IsZero() {
		t.Start = now
	}
}

// Reset stops the fade; opacity goes back to zero.
func (t *Timer) Reset() {
	t.Start = time.Time{}
}

// Opacity is Opacity(t.Start, now, d, curve).
func (t *Timer) Opacity(now time.Time, d time.Duration, curve Curve) float32 {
	return Opacity(t.Start, now, d, curve)
}
