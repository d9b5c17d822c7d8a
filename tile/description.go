package tile

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/rotblauer/skytile/credits"
	"github.com/rotblauer/skytile/fetch"
	"github.com/rotblauer/skytile/sphere"
)

// Description is a tile document as decoded from JSON.
//
// Recognized keys:
//
//	minResolution   number, degrees per pixel
//	serverCredits   {shortCredits, fullCredits, infoURL}
//	dataSetCredits  {shortCredits, fullCredits, infoURL}
//	imageURI        string, relative to the document
//	luminance       number
//	alphaBlend      bool, default true
//	noTexture       bool, default false
//	worldCoords     [[[ra, dec], ...], ...] in degrees
//	textureCoords   [[[u, v], ...], ...], parallel to worldCoords
//	subTiles        [document or reference string, ...]
type Description = map[string]any

const (
	keyMinResolution  = "minResolution"
	keyServerCredits  = "serverCredits"
	keyDataSetCredits = "dataSetCredits"
	keyImageURI       = "imageURI"
	keyLuminance      = "luminance"
	keyAlphaBlend     = "alphaBlend"
	keyNoTexture      = "noTexture"
	keyWorldCoords    = "worldCoords"
	keyTextureCoords  = "textureCoords"
	keySubTiles       = "subTiles"

	keyShortCredits = "shortCredits"
	keyFullCredits  = "fullCredits"
	keyInfoURL      = "infoURL"
)

var (
	// ErrRegionMismatch means worldCoords and textureCoords do not pair up.
	ErrRegionMismatch = errors.New("world and texture coordinates do not match")
	// ErrInvalidRegion means a region could not be read as a convex polygon.
	ErrInvalidRegion = errors.New("invalid region")
	ErrInvalidField  = errors.New("invalid field")
)

// ParseDescription decodes a JSON tile document.
func ParseDescription(b []byte) (Description, error) {
	var d Description
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: null document", ErrInvalidField)
	}
	return d, nil
}

// load sets the tile's persisted fields from d.
// Fields absent from d, or of the wrong type, keep the values inherited
// from the parent. Nothing is written to t unless d is valid.
func (t *Tile) load(d Description) error {
	noTexture := t.noTexture
	if v, ok := d[keyNoTexture]; ok {
		if b, ok := v.(bool); ok {
			noTexture = b
		} else {
			t.env.logger.Warn("Ignoring malformed field", "uri", t.base, "key", keyNoTexture, "value", v)
		}
	}
	regions, err := readRegions(d[keyWorldCoords])
	if err != nil {
		return err
	}
	texCoords, err := readTexCoords(d[keyTextureCoords])
	if err != nil {
		return err
	}
	if texCoords != nil || !noTexture {
		if len(regions) != len(texCoords) {
			return fmt.Errorf("%w: %d regions, %d texture polygons", ErrRegionMismatch, len(regions), len(texCoords))
		}
		for i := range regions {
			if regions[i].NumVertices() != len(texCoords[i]) {
				return fmt.Errorf("%w: region %d has %d vertices, %d texture points",
					ErrRegionMismatch, i, regions[i].NumVertices(), len(texCoords[i]))
			}
		}
	}

	t.noTexture = noTexture
	t.regions = regions
	t.texCoords = texCoords
	if f, ok := t.number(d, keyMinResolution); ok {
		t.minResolution = f
	}
	if f, ok := t.number(d, keyLuminance); ok {
		t.luminance = f
	}
	if v, ok := d[keyServerCredits]; ok {
		t.server = readCredits(v)
	}
	if v, ok := d[keyDataSetCredits]; ok {
		t.dataSet = readCredits(v)
	}
	if v, ok := d[keyImageURI].(string); ok && v != "" {
		t.imageURI = fetch.Resolve(t.base, v)
	}
	if v, ok := d[keyAlphaBlend].(bool); ok {
		t.alphaBlend = v
	}
	if v, ok := d[keySubTiles]; ok {
		if list, ok := v.([]any); ok {
			t.subTiles = append([]any(nil), list...)
		} else {
			t.env.logger.Warn("Ignoring malformed field", "uri", t.base, "key", keySubTiles, "type", fmt.Sprintf("%T", v))
		}
	}
	return nil
}

// number reads an optional numeric field. A present but non-numeric
// value is logged and reported as absent.
func (t *Tile) number(d Description, key string) (float64, bool) {
	v, ok := d[key]
	if !ok {
		return 0, false
	}
	f, ok := toFloat(v)
	if !ok {
		t.env.logger.Warn("Ignoring malformed field", "uri", t.base, "key", key, "value", v)
	}
	return f, ok
}

// ToDescription returns the tile's persisted fields as a document.
// Runtime state (texture, fade, load status) is not included.
func (t *Tile) ToDescription() Description {
	d := Description{
		keyMinResolution:  t.minResolution,
		keyServerCredits:  writeCredits(t.server),
		keyDataSetCredits: writeCredits(t.dataSet),
		keyLuminance:      t.luminance,
		keyAlphaBlend:     t.alphaBlend,
		keyNoTexture:      t.noTexture,
	}
	if t.imageURI != "" {
		d[keyImageURI] = t.imageURI
	}
	if t.regions != nil {
		world := make([]any, len(t.regions))
		for i, r := range t.regions {
			poly := make([]any, 0, r.NumVertices())
			for _, c := range r.RaDec() {
				poly = append(poly, []any{c[0], c[1]})
			}
			world[i] = poly
		}
		d[keyWorldCoords] = world
	}
	if t.texCoords != nil {
		tex := make([]any, len(t.texCoords))
		for i, pts := range t.texCoords {
			poly := make([]any, 0, len(pts))
			for _, p := range pts {
				poly = append(poly, []any{p[0], p[1]})
			}
			tex[i] = poly
		}
		d[keyTextureCoords] = tex
	}
	if t.subTiles != nil {
		if t.materialized {
			// Entries that never built a child are written back as read.
			subs := make([]any, len(t.subTiles))
			for i, raw := range t.subTiles {
				switch c := t.built[i]; {
				case c == nil:
					subs[i] = raw
				case c.fromURL:
					subs[i] = c.url
				default:
					subs[i] = c.ToDescription()
				}
			}
			d[keySubTiles] = subs
		} else {
			d[keySubTiles] = append([]any(nil), t.subTiles...)
		}
	}
	return d
}

func readCredits(v any) credits.Credits {
	m, _ := v.(map[string]any)
	c := credits.Credits{}
	c.Short, _ = m[keyShortCredits].(string)
	c.Full, _ = m[keyFullCredits].(string)
	c.InfoURL, _ = m[keyInfoURL].(string)
	return c
}

func writeCredits(c credits.Credits) map[string]any {
	return map[string]any{
		keyShortCredits: c.Short,
		keyFullCredits:  c.Full,
		keyInfoURL:      c.InfoURL,
	}
}

func readRegions(v any) ([]sphere.ConvexPolygon, error) {
	if v == nil {
		return nil, nil
	}
	polys, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrInvalidRegion, keyWorldCoords, v)
	}
	out := make([]sphere.ConvexPolygon, 0, len(polys))
	for i, p := range polys {
		pairs, err := readPairs(p)
		if err != nil {
			return nil, fmt.Errorf("%w: region %d: %v", ErrInvalidRegion, i, err)
		}
		raDec := make([][2]float64, len(pairs))
		for j, pt := range pairs {
			raDec[j] = [2]float64(pt)
		}
		poly, err := sphere.NewConvexPolygon(raDec)
		if err != nil {
			return nil, fmt.Errorf("%w: region %d: %v", ErrInvalidRegion, i, err)
		}
		out = append(out, poly)
	}
	return out, nil
}

func readTexCoords(v any) ([][]orb.Point, error) {
	if v == nil {
		return nil, nil
	}
	polys, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrRegionMismatch, keyTextureCoords, v)
	}
	out := make([][]orb.Point, 0, len(polys))
	for i, p := range polys {
		pts, err := readPairs(p)
		if err != nil {
			return nil, fmt.Errorf("%w: texture polygon %d: %v", ErrRegionMismatch, i, err)
		}
		out = append(out, pts)
	}
	return out, nil
}

// readPairs reads a list of two element number lists.
func readPairs(v any) ([]orb.Point, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("not a list: %T", v)
	}
	out := make([]orb.Point, len(list))
	for i, e := range list {
		pair, ok := e.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("point %d: not a pair: %v", i, e)
		}
		x, okx := toFloat(pair[0])
		y, oky := toFloat(pair[1])
		if !okx || !oky {
			return nil, fmt.Errorf("point %d: not numbers: %v", i, e)
		}
		out[i] = orb.Point{x, y}
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
