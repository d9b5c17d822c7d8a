package tile

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"github.com/rotblauer/skytile/loader"
	"github.com/rotblauer/skytile/paint"
	"github.com/rotblauer/skytile/params"
	"github.com/rotblauer/skytile/sphere"
	"github.com/rotblauer/skytile/texture"
)

type request struct {
	tok loader.Token
	gen uint64
	uri string
}

// fakeRequester records requests instead of loading anything.
type fakeRequester struct {
	descriptions []request
	textures     []request
	forgotten    []string
}

func (f *fakeRequester) RequestDescription(tok loader.Token, uri string) {
	f.descriptions = append(f.descriptions, request{tok: tok, uri: uri})
}

func (f *fakeRequester) RequestTexture(tok loader.Token, gen uint64, uri string) {
	f.textures = append(f.textures, request{tok: tok, gen: gen, uri: uri})
}

func (f *fakeRequester) Forget(uri string) {
	f.forgotten = append(f.forgotten, uri)
}

// deliverTextures completes every pending texture request with a solid image.
func (f *fakeRequester) deliverTextures(env *Env) int {
	n := len(f.textures)
	for _, r := range f.textures {
		env.Apply(loader.Completion{Token: r.tok, Gen: r.gen, Kind: loader.KindTexture, URI: r.uri, Texture: solid(r.uri)})
	}
	f.textures = nil
	return n
}

// failTextures fails every pending texture request.
func (f *fakeRequester) failTextures(env *Env) {
	for _, r := range f.textures {
		env.Apply(loader.Completion{Token: r.tok, Gen: r.gen, Kind: loader.KindTexture, URI: r.uri, Err: errBoom})
	}
	f.textures = nil
}

type boom struct{}

func (boom) Error() string { return "boom" }

var errBoom = boom{}

func solid(uri string) *texture.Texture {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 255, A: 255}), image.Point{}, draw.Src)
	return texture.New(uri, img)
}

func newTestEnv(t *testing.T) (*Env, *fakeRequester) {
	t.Helper()
	f := &fakeRequester{}
	config := params.DefaultTileConfig()
	env, err := NewEnv(f, config)
	if err != nil {
		t.Fatal(err)
	}
	return env, f
}

func region(ra0, ra1, dec0, dec1 float64) []any {
	return []any{
		[]any{ra0, dec0}, []any{ra1, dec0}, []any{ra1, dec1}, []any{ra0, dec1},
	}
}

func unitTex() []any {
	return []any{
		[]any{0.0, 0.0}, []any{1.0, 0.0}, []any{1.0, 1.0}, []any{0.0, 1.0},
	}
}

// doc builds a textured description with one unit-textured polygon per region.
func doc(minRes float64, image string, regions ...[]any) Description {
	d := Description{
		"minResolution": minRes,
		"imageURI":      image,
	}
	if len(regions) > 0 {
		world := make([]any, len(regions))
		tex := make([]any, len(regions))
		for i, r := range regions {
			world[i] = r
			tex[i] = unitTex()
		}
		d["worldCoords"] = world
		d["textureCoords"] = tex
	}
	return d
}

func mustTile(t *testing.T, env *Env, d Description) *Tile {
	t.Helper()
	tl, err := NewFromDescription(env, d, "http://sky.example.org/root.json", nil)
	if err != nil {
		t.Fatal(err)
	}
	return tl
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// viewport looks at ra 0, dec 0 with a 40 degree field.
func viewport(t *testing.T, resolution float64) *Viewport {
	t.Helper()
	proj, err := sphere.NewProjection(0, 0, 40, 64, 64)
	if err != nil {
		t.Fatal(err)
	}
	return &Viewport{
		Footprint:  proj.Footprint(),
		Resolution: resolution,
		Now:        t0,
		Painter:    &paint.Recorder{},
	}
}

func recorder(vp *Viewport) *paint.Recorder {
	return vp.Painter.(*paint.Recorder)
}

// settle selects and delivers textures until nothing more is requested.
func settle(t *testing.T, root *Tile, vp *Viewport, f *fakeRequester) {
	t.Helper()
	for i := 0; i < 10; i++ {
		root.Select(vp)
		if f.deliverTextures(root.env) == 0 {
			return
		}
	}
	t.Fatal("selection did not settle")
}

func contains(tiles []*Tile, want *Tile) bool {
	for _, t := range tiles {
		if t == want {
			return true
		}
	}
	return false
}
