package tile

import (
	"log/slog"
	"time"

	"github.com/rotblauer/skytile/fade"
	"github.com/rotblauer/skytile/loader"
	"github.com/rotblauer/skytile/params"
)

// Requester starts asynchronous loads. Results come back through Env.Apply.
// loader.Loader implements it.
type Requester interface {
	RequestDescription(tok loader.Token, uri string)
	RequestTexture(tok loader.Token, gen uint64, uri string)
	// Forget drops any remembered failure for uri.
	Forget(uri string)
}

// Env is shared by every tile of a tree, or of several trees.
// It is not safe for concurrent use; it belongs to the render thread.
type Env struct {
	requester Requester

	FadeDuration time.Duration
	FadeCurve    fade.Curve

	live   map[loader.Token]*Tile
	next   loader.Token
	logger *slog.Logger
}

func NewEnv(requester Requester, config *params.TileConfig) (*Env, error) {
	if config == nil {
		config = params.DefaultTileConfig()
	}
	curve, err := fade.CurveByName(config.FadeCurve)
	if err != nil {
		return nil, err
	}
	return &Env{
		requester:    requester,
		FadeDuration: config.FadeDuration,
		FadeCurve:    curve,
		live:         make(map[loader.Token]*Tile),
		logger:       slog.With("d", "tile"),
	}, nil
}

func (e *Env) register(t *Tile) {
	e.next++
	t.token = e.next
	e.live[t.token] = t
}

func (e *Env) unregister(t *Tile) {
	delete(e.live, t.token)
}

// Live returns the number of tiles that can still receive completions.
func (e *Env) Live() int {
	return len(e.live)
}

// Apply hands a load result to the tile that asked for it.
// Results for destroyed tiles and for superseded texture requests are dropped.
// Call it only from the render thread, eg. as the loader's Drain callback.
func (e *Env) Apply(c loader.Completion) {
	t, ok := e.live[c.Token]
	if !ok {
		e.logger.Debug("Dropping completion for dead tile", "kind", c.Kind, "uri", c.URI)
		if c.Texture != nil {
			c.Texture.Release()
		}
		return
	}
	switch c.Kind {
	case loader.KindDescription:
		t.applyDescription(c)
	case loader.KindTexture:
		t.applyTexture(c)
	}
}
