package paint

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/paulmach/orb"
	"github.com/rotblauer/skytile/sphere"
	"github.com/rotblauer/skytile/texture"
)

var unitSquare = []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

func square(ra0, ra1, dec0, dec1 float64) sphere.ConvexPolygon {
	return sphere.MustConvexPolygon([][2]float64{{ra0, dec0}, {ra1, dec0}, {ra1, dec1}, {ra0, dec1}})
}

func solid(c color.RGBA) *texture.Texture {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return texture.New("mem://solid", img)
}

func testCanvas(t *testing.T) *Canvas {
	t.Helper()
	proj, err := sphere.NewProjection(0, 0, 40, 64, 64)
	if err != nil {
		t.Fatal(err)
	}
	return NewCanvas(proj)
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -1 && d <= 1
}

func TestCanvas_PaintOpaque(t *testing.T) {
	c := testCanvas(t)
	err := c.Paint(Call{
		Region:    square(350, 10, -10, 10),
		TexCoords: unitSquare,
		Texture:   solid(color.RGBA{R: 255, A: 255}),
		Opacity:   1,
		Blend:     true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Image().RGBAAt(32, 32); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("center pixel = %v", got)
	}
	if got := c.Image().RGBAAt(0, 0); got != (color.RGBA{}) {
		t.Errorf("corner pixel should be untouched, got %v", got)
	}
}

func TestCanvas_PaintOpacity(t *testing.T) {
	c := testCanvas(t)
	c.Paint(Call{
		Region:    square(350, 10, -10, 10),
		TexCoords: unitSquare,
		Texture:   solid(color.RGBA{R: 255, A: 255}),
		Opacity:   0.5,
		Blend:     true,
	})
	got := c.Image().RGBAAt(32, 32)
	if !near(got.R, 128) || !near(got.A, 128) {
		t.Errorf("center pixel = %v, want about half red", got)
	}

	// A second coat over the first.
	c.Paint(Call{
		Region:    square(350, 10, -10, 10),
		TexCoords: unitSquare,
		Texture:   solid(color.RGBA{G: 255, A: 255}),
		Opacity:   1,
		Blend:     true,
	})
	if got := c.Image().RGBAAt(32, 32); got != (color.RGBA{G: 255, A: 255}) {
		t.Errorf("opaque coat should cover, got %v", got)
	}
}

func TestCanvas_NoBlendIgnoresTextureAlpha(t *testing.T) {
	c := testCanvas(t)
	c.Paint(Call{
		Region:    square(350, 10, -10, 10),
		TexCoords: unitSquare,
		// Premultiplied half transparent.
		Texture: solid(color.RGBA{R: 100, A: 128}),
		Opacity: 1,
		Blend:   false,
	})
	got := c.Image().RGBAAt(32, 32)
	if got.A != 255 || !near(got.R, 199) {
		t.Errorf("center pixel = %v, want opaque red", got)
	}
}

func TestCanvas_SkipsBehindView(t *testing.T) {
	c := testCanvas(t)
	err := c.Paint(Call{
		Region:    square(170, 190, -10, 10),
		TexCoords: unitSquare,
		Texture:   solid(color.RGBA{R: 255, A: 255}),
		Opacity:   1,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, px := range c.Image().Pix {
		if px != 0 {
			t.Fatal("expected an empty canvas")
		}
	}
}

func TestCanvas_MismatchedCoords(t *testing.T) {
	c := testCanvas(t)
	err := c.Paint(Call{
		Region:    square(350, 10, -10, 10),
		TexCoords: unitSquare[:3],
		Texture:   solid(color.RGBA{R: 255, A: 255}),
		Opacity:   1,
	})
	if !errors.Is(err, ErrMismatchedCoords) {
		t.Errorf("expected ErrMismatchedCoords, got %v", err)
	}
}

func TestCanvas_ReleasedTextureIsNoop(t *testing.T) {
	c := testCanvas(t)
	tex := solid(color.RGBA{R: 255, A: 255})
	tex.Release()
	if err := c.Paint(Call{Region: square(350, 10, -10, 10), TexCoords: unitSquare, Texture: tex, Opacity: 1}); err != nil {
		t.Fatal(err)
	}
	if got := c.Image().RGBAAt(32, 32); got != (color.RGBA{}) {
		t.Errorf("expected untouched pixel, got %v", got)
	}
}

func TestCanvas_Label(t *testing.T) {
	c := testCanvas(t)
	c.Label(square(350, 10, -10, 10), "0.1")
	n := 0
	for i := 3; i < len(c.Image().Pix); i += 4 {
		if c.Image().Pix[i] != 0 {
			n++
		}
	}
	if n == 0 {
		t.Error("expected label pixels")
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	tex := solid(color.RGBA{A: 255})
	if err := r.Paint(Call{Region: square(0, 10, 0, 10), TexCoords: unitSquare, Texture: tex, Opacity: 1}); err != nil {
		t.Fatal(err)
	}
	if err := r.Paint(Call{Region: square(0, 10, 0, 10), TexCoords: nil, Texture: tex}); err == nil {
		t.Error("expected error for missing texture coordinates")
	}
	r.Label(square(0, 10, 0, 10), "x")
	if len(r.Calls) != 1 || len(r.Labels) != 1 {
		t.Fatalf("calls=%d labels=%d", len(r.Calls), len(r.Labels))
	}
	if got := r.Textures(); len(got) != 1 || got[0] != tex {
		t.Errorf("unexpected textures %v", got)
	}
	r.Reset()
	if len(r.Calls) != 0 || len(r.Labels) != 0 {
		t.Error("expected empty recorder after reset")
	}
}
