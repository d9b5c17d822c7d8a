package tile

import (
	"github.com/rotblauer/skytile/credits"
)

// Imagery is anything that can be drawn as part of the sky.
type Imagery interface {
	IsReadyToDisplay() bool
	Draw(vp *Viewport)
	Credits() (server, dataSet credits.Credits)
}

var _ Imagery = (*Tile)(nil)

// CollectCredits aggregates the credits of drawn tiles, in draw order.
func CollectCredits(tiles []*Tile) credits.Snapshot {
	return credits.Aggregate(tiles)
}

// SelectCredits aggregates the credits of the tiles root would draw for vp,
// coarse to fine, without requesting anything.
func SelectCredits(root *Tile, vp *Viewport) credits.Snapshot {
	sel := root.probe(vp).Sorted()
	var a credits.Aggregator
	for _, e := range sel {
		if e.Tile.noTexture {
			continue
		}
		a.AddProvider(e.Tile)
	}
	return a.Snapshot()
}
