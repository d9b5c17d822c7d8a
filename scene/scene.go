// Package scene drives the tile trees frame by frame.
//
// A Scene owns the loader and the tile environment. Frame is the render
// thread: it applies finished loads, draws every root, publishes credits
// and releases tiles that have gone unseen.
package scene

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/skytile/common"
	"github.com/rotblauer/skytile/credits"
	"github.com/rotblauer/skytile/fetch"
	"github.com/rotblauer/skytile/loader"
	"github.com/rotblauer/skytile/params"
	"github.com/rotblauer/skytile/store"
	"github.com/rotblauer/skytile/tile"
)

// frameHistory is the number of frame durations kept for Stats.
const frameHistory = 240

var ErrClosed = errors.New("scene closed")

type Scene struct {
	config *params.Config
	loader *loader.Loader
	env    *tile.Env
	roots  []*tile.Tile
	logger *slog.Logger

	creditsFeed event.FeedOf[credits.Snapshot]
	credits     credits.Snapshot

	frames *common.RingBuffer[time.Duration]
	closed bool
}

// Report describes one frame.
type Report struct {
	// Applied is the number of load completions handled.
	Applied int
	// Drawn is the number of tiles that painted.
	Drawn    int
	Released int

	Credits        credits.Snapshot
	CreditsChanged bool

	Ready    bool
	InFlight int64
	Duration time.Duration
}

// New starts a loader over fetcher and st. The store may be nil.
func New(ctx context.Context, config *params.Config, fetcher fetch.Fetcher, st *store.Store) (*Scene, error) {
	if config == nil {
		config = params.DefaultConfig()
	}
	l, err := loader.New(ctx, &config.Loader, fetcher, st)
	if err != nil {
		return nil, err
	}
	env, err := tile.NewEnv(l, &config.Tile)
	if err != nil {
		l.Close()
		return nil, err
	}
	return &Scene{
		config: config,
		loader: l,
		env:    env,
		logger: slog.With("d", "scene"),
		frames: common.NewRingBuffer[time.Duration](frameHistory),
	}, nil
}

// AddRoot adds a tree whose root description is fetched from url.
func (s *Scene) AddRoot(url string) *tile.Tile {
	t := tile.NewFromURL(s.env, url, nil)
	s.roots = append(s.roots, t)
	s.logger.Info("Added root", "url", url)
	return t
}

// AddRootDescription adds a tree from a decoded description.
// Relative URIs resolve against base.
func (s *Scene) AddRootDescription(d tile.Description, base string) (*tile.Tile, error) {
	t, err := tile.NewFromDescription(s.env, d, base, nil)
	if err != nil {
		return nil, err
	}
	s.roots = append(s.roots, t)
	return t, nil
}

// RemoveRoot destroys a root and its tree.
func (s *Scene) RemoveRoot(t *tile.Tile) bool {
	for i, r := range s.roots {
		if r == t {
			r.Destroy()
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Scene) Roots() []*tile.Tile {
	return append([]*tile.Tile(nil), s.roots...)
}

// Frame draws one frame. It must only be called from one goroutine at a time.
func (s *Scene) Frame(vp *tile.Viewport) Report {
	start := time.Now()
	if vp.Now.IsZero() {
		vp.Now = start
	}
	var r Report
	if s.closed {
		return r
	}
	r.Applied = s.loader.Drain(s.env.Apply)

	var drawn []*tile.Tile
	for _, root := range s.roots {
		drawn = append(drawn, root.Render(vp)...)
	}
	r.Drawn = len(drawn)

	snap := tile.CollectCredits(drawn)
	if !snap.Equal(s.credits) {
		s.credits = snap
		r.CreditsChanged = true
		s.creditsFeed.Send(snap)
		s.logger.Debug("Credits changed", "credits", snap.Short())
	}
	r.Credits = s.credits

	if idle := s.config.Tile.IdleRelease; idle > 0 {
		cutoff := vp.Now.Add(-idle)
		for _, root := range s.roots {
			r.Released += root.ReleaseIdle(cutoff)
		}
		if r.Released > 0 {
			s.logger.Debug("Released idle tiles", "n", r.Released)
		}
	}

	r.Ready = s.Ready()
	r.InFlight = s.loader.InFlight()
	r.Duration = time.Since(start)
	s.frames.Add(r.Duration)
	return r
}

// Settle draws frames until no loads are outstanding, the context is done,
// or timeout passes. The viewport's Now is advanced to wall clock each frame.
// It returns the last frame's report.
func (s *Scene) Settle(ctx context.Context, vp *tile.Viewport, timeout, interval time.Duration) (Report, error) {
	if s.closed {
		return Report{}, ErrClosed
	}
	deadline := time.Now().Add(timeout)
	for {
		vp.Now = time.Now()
		r := s.Frame(vp)
		if r.InFlight == 0 {
			return r, nil
		}
		if time.Now().After(deadline) {
			return r, context.DeadlineExceeded
		}
		select {
		case <-ctx.Done():
			return r, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Still draws one frame as if every fade in progress had finished.
func (s *Scene) Still(vp *tile.Viewport) Report {
	vp.Now = vp.Now.Add(s.config.Tile.FadeDuration)
	return s.Frame(vp)
}

// Ready reports whether every root has something to show.
func (s *Scene) Ready() bool {
	if len(s.roots) == 0 {
		return false
	}
	for _, r := range s.roots {
		var img tile.Imagery = r
		if !img.IsReadyToDisplay() {
			return false
		}
	}
	return true
}

// Credits returns the credits of the last frame.
func (s *Scene) Credits() credits.Snapshot {
	return s.credits
}

// SelectCredits aggregates the credits vp would show once loaded,
// without loading or drawing anything.
func (s *Scene) SelectCredits(vp *tile.Viewport) credits.Snapshot {
	var a credits.Aggregator
	for _, root := range s.roots {
		a.Merge(tile.SelectCredits(root, vp))
	}
	return a.Snapshot()
}

// Footprints collects the footprints of every materialized tile.
func (s *Scene) Footprints() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, root := range s.roots {
		fc.Features = append(fc.Features, root.Footprints().Features...)
	}
	return fc
}

// Descriptions serializes each root, with its materialized subtiles.
func (s *Scene) Descriptions() []tile.Description {
	out := make([]tile.Description, 0, len(s.roots))
	for _, root := range s.roots {
		out = append(out, root.ToDescription())
	}
	return out
}

// SubscribeCredits delivers a Snapshot each time a frame's credits change.
func (s *Scene) SubscribeCredits(ch chan<- credits.Snapshot) event.Subscription {
	return s.creditsFeed.Subscribe(ch)
}

func (s *Scene) LoaderStats() loader.Stats {
	return s.loader.Stats()
}

// LiveTiles is the number of tiles currently able to receive loads.
func (s *Scene) LiveTiles() int {
	return s.env.Live()
}

func (s *Scene) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	for _, r := range s.roots {
		r.Destroy()
	}
	s.roots = nil
	return s.loader.Close()
}
