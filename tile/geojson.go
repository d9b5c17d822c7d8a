package tile

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Footprints returns one feature for t and each materialized descendant
// that has regions. Each feature is a MultiPolygon with a polygon per region,
// ra mapped to longitude in [-180, 180) and dec to latitude.
func (t *Tile) Footprints() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	t.Walk(func(d *Tile) bool {
		if f := d.footprint(); f != nil {
			fc.Append(f)
		}
		return true
	})
	return fc
}

func (t *Tile) footprint() *geojson.Feature {
	if len(t.regions) == 0 {
		return nil
	}
	mp := make(orb.MultiPolygon, 0, len(t.regions))
	for _, r := range t.regions {
		mp = append(mp, orb.Polygon{ring(r.RaDec())})
	}
	f := geojson.NewFeature(mp)
	f.Properties["depth"] = t.depth()
	f.Properties["minResolution"] = t.minResolution
	f.Properties["status"] = t.status.String()
	f.Properties["textureStatus"] = t.texStatus.String()
	f.Properties["noTexture"] = t.noTexture
	if t.url != "" {
		f.Properties["url"] = t.url
	}
	if t.imageURI != "" {
		f.Properties["imageURI"] = t.imageURI
	}
	return f
}

func (t *Tile) depth() int {
	n := 0
	for p := t.parent; p != nil; p = p.parent {
		n++
	}
	return n
}

// ring closes the vertices into a GeoJSON ring. Longitudes stay continuous
// from the first vertex so rings crossing ra 180 are not torn apart.
func ring(raDec [][2]float64) orb.Ring {
	out := make(orb.Ring, 0, len(raDec)+1)
	var prev float64
	for i, v := range raDec {
		lon := wrapLongitude(v[0])
		if i > 0 {
			lon = prev + wrapLongitude(lon-prev)
		}
		out = append(out, orb.Point{lon, v[1]})
		prev = lon
	}
	if len(out) > 0 {
		out = append(out, out[0])
	}
	return out
}

// wrapLongitude maps degrees into [-180, 180).
func wrapLongitude(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}
