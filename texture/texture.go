// Package texture holds decoded tile images behind a releasable handle.
package texture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Texture is a handle to decoded image data ready to be sampled by a painter.
// A released texture keeps its URI but no pixels.
type Texture struct {
	uri string
	img *image.RGBA
}

// New wraps img. Non-RGBA images are converted once, here,
// so painters can sample pixels directly.
func New(uri string, img image.Image) *Texture {
	return &Texture{uri: uri, img: toRGBA(img)}
}

// URI returns the location the texture was resolved from.
func (t *Texture) URI() string {
	return t.uri
}

// Image returns the pixels, or nil once released.
func (t *Texture) Image() *image.RGBA {
	if t == nil {
		return nil
	}
	return t.img
}

// Valid returns true if the texture holds pixels that can be drawn.
func (t *Texture) Valid() bool {
	return t != nil && t.img != nil
}

// Bytes is the size of the pixel buffer.
func (t *Texture) Bytes() int {
	if !t.Valid() {
		return 0
	}
	return len(t.img.Pix)
}

// Release drops the pixels. It is safe to call more than once.
func (t *Texture) Release() {
	if t == nil {
		return
	}
	t.img = nil
}

// Decode decodes png, jpeg, gif or webp data.
func Decode(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, fmt.Errorf("decode image: empty %s", format)
	}
	return img, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if img == nil {
		return nil
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
