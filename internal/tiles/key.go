package tiles

import (
	"fmt"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"fieldmap/internal/field"
	"fieldmap/internal/mesh"
)

// Key identifies one mesh of a layer: an XYZ tile, or the whole field.
type Key struct {
	Tile maptile.Tile
	Full bool
}

// FullKey is the key of the whole-field mesh.
var FullKey = Key{Full: true}

// TileKey returns the key of tile t.
func TileKey(t maptile.Tile) Key {
	return Key{Tile: t}
}

func (k Key) String() string {
	if k.Full {
		return "full"
	}
	return fmt.Sprintf("%d/%d/%d", k.Tile.Z, k.Tile.X, k.Tile.Y)
}

// Rect returns the geographic footprint of a tile key.
func (k Key) Rect() field.Rect {
	return field.RectFromBound(k.Tile.Bound())
}

// maxTileLat is the latitude of the top edge of the tile pyramid.
const maxTileLat = 85.0511287798

// Cover returns the tiles at zoom z that intersect rect, row by row from the
// north-west corner.
func Cover(rect field.Rect, z maptile.Zoom) []maptile.Tile {
	minLat := max(rect.MinLat, -maxTileLat)
	maxLat := min(rect.MaxLat, maxTileLat)
	minLon := max(rect.MinLon, -180)
	maxLon := min(rect.MaxLon, math.Nextafter(180, 0))
	if minLat > maxLat || minLon > maxLon {
		return nil
	}

	nw := maptile.At(orb.Point{minLon, maxLat}, z)
	se := maptile.At(orb.Point{maxLon, minLat}, z)
	last := uint32(1)<<z - 1
	se.X, se.Y = min(se.X, last), min(se.Y, last)

	tiles := make([]maptile.Tile, 0, int(se.X-nw.X+1)*int(se.Y-nw.Y+1))
	for y := nw.Y; y <= se.Y; y++ {
		for x := nw.X; x <= se.X; x++ {
			tiles = append(tiles, maptile.New(x, y, z))
		}
	}
	return tiles
}

// MinTileZoom returns the coarsest zoom at which any tile, padding included,
// fits in one mesh for the given grid.
func MinTileZoom(cfg mesh.Config) maptile.Zoom {
	for z := maptile.Zoom(0); z < 22; z++ {
		span := 360 / float64(uint64(1)<<z)
		rows := math.Ceil(span/cfg.CellLat) + 2*float64(cfg.Padding) + 1
		cols := math.Ceil(span/cfg.CellLon) + 2*float64(cfg.Padding) + 1
		if (rows+1)*(cols+1) <= float64(cfg.MaxVertices) {
			return z
		}
	}
	return 22
}

func sortKeys(keys []Key) {
	slices.SortFunc(keys, func(a, b Key) int {
		switch {
		case a.Full != b.Full:
			if a.Full {
				return -1
			}
			return 1
		case a.Tile.Z != b.Tile.Z:
			return int(a.Tile.Z) - int(b.Tile.Z)
		case a.Tile.Y != b.Tile.Y:
			return int(a.Tile.Y) - int(b.Tile.Y)
		default:
			return int(a.Tile.X) - int(b.Tile.X)
		}
	})
}
