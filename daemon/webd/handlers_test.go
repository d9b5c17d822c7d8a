package webd

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/skytile/common"
	"github.com/rotblauer/skytile/fetch"
	"github.com/rotblauer/skytile/params"
	"github.com/rotblauer/skytile/scene"
	"github.com/rotblauer/skytile/testing/testdata"
	"github.com/rotblauer/skytile/tile"
)

const fixtureCredits = "Example Survey - Example Sky Server"

// newTestWebDaemon serves a scene with the fixture sky as its only root.
func newTestWebDaemon(t *testing.T) (*WebDaemon, *mux.Router) {
	t.Helper()
	c := params.DefaultConfig()
	c.Loader.StorePath = ""
	c.Loader.Workers = 2
	sc, err := scene.New(context.Background(), c, fetch.NewMulti(nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sc.Close() })
	sc.AddRoot(testdata.Path(testdata.SkyRoot))

	d := NewWebDaemon(params.DefaultTestWebDaemonConfig(), sc)
	router := d.NewRouter()
	t.Cleanup(d.Close)
	return d, router
}

func get(t *testing.T, h http.Handler, target string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", "http://sky.example.org"+target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Result()
}

func TestWebDaemon_ping(t *testing.T) {
	req := httptest.NewRequest("GET", "http://sky.example.org/ping", nil)
	w := httptest.NewRecorder()
	pingPong(w, req)
	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		t.Fatalf("status code not 200")
	}
	if string(body) != "pong" {
		t.Errorf("body is not pong: %s", string(body))
	}
}

func TestWebDaemon_routerCors(t *testing.T) {
	_, router := newTestWebDaemon(t)
	resp := get(t, router, "/ping")
	if resp.StatusCode != 200 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("missing CORS header, got %q", got)
	}
	if resp := get(t, router, "/nope"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestWebDaemon_statusReport(t *testing.T) {
	_, router := newTestWebDaemon(t)
	resp := get(t, router, "/status")
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type %q", ct)
	}
	status := webDaemonStatus{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Uptime == "" {
		t.Error("uptime is empty")
	}
	if status.Roots != 1 || status.Ready {
		t.Errorf("unexpected status %+v", status)
	}
	if !status.WSOpen {
		t.Error("websocket should be open")
	}
}

func TestWebDaemon_render(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelWarn + 1)()
	_, router := newTestWebDaemon(t)

	resp := get(t, router, "/render.png?ra=0&dec=0&fov=40")
	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type %q", ct)
	}
	if got := resp.Header.Get(creditsHeader); got != fixtureCredits {
		t.Errorf("credits header %q", got)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 64, 64) {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}

	// Both subtiles are fine enough, so the red root is fully covered.
	var red, green, blue int
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			switch {
			case r > 0x8000 && g < 0x4000 && b < 0x4000:
				red++
			case g > 0x8000 && r < 0x4000 && b < 0x4000:
				green++
			case b > 0x8000 && r < 0x4000 && g < 0x4000:
				blue++
			}
		}
	}
	if green == 0 || blue == 0 {
		t.Errorf("expected both subtiles painted, green %d blue %d", green, blue)
	}
	if red != 0 {
		t.Errorf("root painted under its subtiles: %d red pixels", red)
	}

	// The last frame's credits.
	var msg creditsMessage
	if err := json.NewDecoder(get(t, router, "/credits").Body).Decode(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Short != fixtureCredits || len(msg.Credits.Servers) != 1 {
		t.Errorf("unexpected credits %+v", msg)
	}

	// A camera elsewhere would credit nothing.
	msg = creditsMessage{}
	if err := json.NewDecoder(get(t, router, "/credits?ra=180&dec=0&fov=40").Body).Decode(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Short != "" {
		t.Errorf("expected no credits looking away, got %q", msg.Short)
	}
}

func TestWebDaemon_badQuery(t *testing.T) {
	_, router := newTestWebDaemon(t)
	for _, q := range []string{
		"/render.png?fov=abc",
		"/render.png?fov=500",
		"/render.png?w=0",
		"/render.png?w=100000",
		"/credits?ra=east",
	} {
		if resp := get(t, router, q); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestWebDaemon_tilesAndFootprints(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelWarn + 1)()
	_, router := newTestWebDaemon(t)
	if resp := get(t, router, "/render.png?ra=0&dec=0&fov=40"); resp.StatusCode != 200 {
		t.Fatalf("render status %d", resp.StatusCode)
	}

	var ds []tile.Description
	if err := json.NewDecoder(get(t, router, "/tiles").Body).Decode(&ds); err != nil {
		t.Fatal(err)
	}
	if len(ds) != 1 {
		t.Fatalf("expected 1 root, got %d", len(ds))
	}
	if got := ds[0]["minResolution"]; got != 1.0 {
		t.Errorf("unexpected root minResolution %v", got)
	}
	if _, err := tile.ParseDescription(mustJSON(t, ds[0])); err != nil {
		t.Errorf("served description does not parse: %v", err)
	}

	resp := get(t, router, "/footprints.geojson")
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("content type %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 3 {
		t.Errorf("expected root and 2 subtile footprints, got %d", len(fc.Features))
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestWebDaemon_socketCredits(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelWarn + 1)()
	_, router := newTestWebDaemon(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	read := func() creditsMessage {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg creditsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatal(err)
		}
		return msg
	}

	// Sent on connect, before anything is drawn.
	if msg := read(); msg.Action != websocketActionCredits || msg.Short != "" {
		t.Fatalf("unexpected connect message %+v", msg)
	}

	resp, err := http.Get(srv.URL + "/render.png?ra=0&dec=0&fov=40")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	for {
		if msg := read(); msg.Short == fixtureCredits {
			break
		}
	}
}

func TestWebDaemon_View(t *testing.T) {
	d, _ := newTestWebDaemon(t)
	var roots int
	d.View(func(sc *scene.Scene) { roots = len(sc.Roots()) })
	if roots != 1 {
		t.Errorf("expected 1 root, got %d", roots)
	}
}
