package webd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotblauer/skytile/credits"
	"github.com/rotblauer/skytile/loader"
	"github.com/rotblauer/skytile/paint"
	"github.com/rotblauer/skytile/params"
	"github.com/rotblauer/skytile/scene"
	"github.com/rotblauer/skytile/sphere"
	"github.com/rotblauer/skytile/tile"
)

// creditsHeader carries the one-line credits of a rendered frame.
const creditsHeader = "X-Sky-Credits"

var errBadQuery = errors.New("bad query")

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

type webDaemonStatus struct {
	StartedAt time.Time               `json:"started_at"`
	Uptime    string                  `json:"uptime"`
	Config    *params.WebDaemonConfig `json:"config"`
	WSOpen    bool                    `json:"ws_open"`
	WSConns   int                     `json:"ws_conns"`

	Roots     int              `json:"roots"`
	Ready     bool             `json:"ready"`
	LiveTiles int              `json:"live_tiles"`
	Frames    scene.FrameStats `json:"frames"`
	Loader    loader.Stats     `json:"loader"`
	Credits   credits.Snapshot `json:"credits"`
}

func (s *WebDaemon) statusReport(w http.ResponseWriter, r *http.Request) {
	st := webDaemonStatus{
		StartedAt: s.started,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		WSOpen:    !s.melodyInstance.IsClosed(),
		WSConns:   s.melodyInstance.Len(),
		Config:    s.Config,
	}
	s.mu.Lock()
	st.Roots = len(s.scene.Roots())
	st.Ready = s.scene.Ready()
	st.LiveTiles = s.scene.LiveTiles()
	st.Frames = s.scene.Stats()
	st.Loader = s.scene.LoaderStats()
	st.Credits = s.scene.Credits()
	s.mu.Unlock()
	s.writeJSON(w, st)
}

// view is a camera parsed from request query parameters.
type view struct {
	proj           *sphere.Projection
	resolution     float64
	luminanceLimit float64
	debug          bool
}

func (v view) viewport() *tile.Viewport {
	return &tile.Viewport{
		Footprint:      v.proj.Footprint(),
		Resolution:     v.resolution,
		LuminanceLimit: v.luminanceLimit,
		Painter:        paint.Discard,
	}
}

// hasView reports whether the query names a camera at all.
func hasView(q url.Values) bool {
	return q.Has("ra") || q.Has("dec") || q.Has("fov")
}

// parseView reads ra, dec, fov (degrees), w, h (pixels), res (degrees
// per pixel, defaulting to the projection's), lum and debug.
func parseView(q url.Values, config *params.WebDaemonConfig) (view, error) {
	var v view
	var err error
	num := func(key string, def float64) float64 {
		if err != nil || !q.Has(key) {
			return def
		}
		var f float64
		f, err = strconv.ParseFloat(q.Get(key), 64)
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", errBadQuery, key, err)
		}
		return f
	}
	whole := func(key string, def int) int {
		if err != nil || !q.Has(key) {
			return def
		}
		var n int
		n, err = strconv.Atoi(q.Get(key))
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", errBadQuery, key, err)
		}
		return n
	}
	ra := num("ra", 0)
	dec := num("dec", 0)
	fov := num("fov", 60)
	width := whole("w", config.RenderWidth)
	height := whole("h", config.RenderHeight)
	res := num("res", 0)
	v.luminanceLimit = num("lum", 0)
	if err != nil {
		return v, err
	}
	if width > 4096 || height > 4096 {
		return v, fmt.Errorf("%w: frame too large", errBadQuery)
	}
	v.debug, _ = strconv.ParseBool(q.Get("debug"))
	v.proj, err = sphere.NewProjection(ra, dec, fov, width, height)
	if err != nil {
		return v, fmt.Errorf("%w: %v", errBadQuery, err)
	}
	v.resolution = v.proj.Resolution()
	if res > 0 {
		v.resolution = res
	}
	return v, nil
}

// render settles the scene on v, then paints one still frame onto a canvas.
// A settle timeout still renders whatever has loaded.
func (s *WebDaemon) render(ctx context.Context, v view) (*paint.Canvas, scene.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vp := v.viewport()
	r, err := s.scene.Settle(ctx, vp, s.Config.SettleTimeout, s.Config.FrameInterval)
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("Render did not settle", "inflight", r.InFlight, "timeout", s.Config.SettleTimeout)
	} else if err != nil {
		return nil, r, err
	}
	canvas := paint.NewCanvas(v.proj)
	canvas.Clear(color.Black)
	vp.Painter = canvas
	if v.debug {
		vp.Debug = canvas
	}
	return canvas, s.scene.Still(vp), nil
}

func (s *WebDaemon) handleRender(w http.ResponseWriter, r *http.Request) {
	v, err := parseView(r.URL.Query(), s.Config)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	canvas, report, err := s.render(r.Context(), v)
	if errors.Is(err, scene.ErrClosed) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	} else if err != nil {
		// Client went away.
		s.logger.Debug("Render aborted", "error", err)
		return
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, canvas.Image()); err != nil {
		s.logger.Error("Failed to encode frame", "error", err)
		http.Error(w, "Failed to encode frame", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set(creditsHeader, report.Credits.Short())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

// handleCredits returns the credits of the last frame drawn, or,
// given a camera, what that camera would credit without drawing it.
func (s *WebDaemon) handleCredits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var snap credits.Snapshot
	if hasView(q) {
		v, err := parseView(q, s.Config)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		snap = s.scene.SelectCredits(v.viewport())
		s.mu.Unlock()
	} else {
		s.mu.Lock()
		snap = s.scene.Credits()
		s.mu.Unlock()
	}
	s.writeJSON(w, creditsMessage{Action: websocketActionCredits, Short: snap.Short(), Credits: snap})
}

func (s *WebDaemon) handleTiles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ds := s.scene.Descriptions()
	s.mu.Unlock()
	s.writeJSON(w, ds)
}

func (s *WebDaemon) handleFootprints(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fc := s.scene.Footprints()
	s.mu.Unlock()
	b, err := fc.MarshalJSON()
	if err != nil {
		s.logger.Error("Failed to marshal footprints", "error", err)
		http.Error(w, "Failed to marshal footprints", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(b); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func (s *WebDaemon) writeJSON(w http.ResponseWriter, v any) {
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(j); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}
