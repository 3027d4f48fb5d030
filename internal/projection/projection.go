// Package projection is the render-stage side of a mesh: the spherical web
// mercator that turns reconstructed (lat, lon) into pixels at a zoom level,
// the uniforms a GPU program reads, the WGSL program itself and a CPU
// rendition of its two stages.
//
// Only the layer uniforms change while the map pans or zooms. Meshes and
// their per-mesh uniforms stay untouched.
package projection

import "math"

const (
	// MaxLatitude is the latitude at which web mercator becomes a square (EPSG:3857).
	MaxLatitude = 85.0511287798

	// EarthRadius is the spherical mercator radius in meters.
	EarthRadius = 6378137.0

	// TileSize is the width in pixels of the world at zoom 0.
	TileSize = 256.0

	deg = math.Pi / 180
)

// transform is the affine normalisation (a, b, c, d) applied to projected
// meters: x' = a*x + b, y' = c*y + d, mapping the world to [0, 1].
var transform = [4]float64{0.5 / (math.Pi * EarthRadius), 0.5, -0.5 / (math.Pi * EarthRadius), 0.5}

// Scale returns the world size in pixels at zoom.
func Scale(zoom float64) float64 {
	return TileSize * math.Pow(2, zoom)
}

// Project returns the world pixel position of (lat, lon) at zoom. Latitude is
// clamped to ±MaxLatitude; y grows southwards.
func Project(lat, lon, zoom float64) (x, y float64) {
	lat = max(min(lat, MaxLatitude), -MaxLatitude)
	s := math.Sin(lat * deg)
	mx := EarthRadius * lon * deg
	my := EarthRadius * math.Log((1+s)/(1-s)) / 2

	scale := Scale(zoom)
	return scale * (transform[0]*mx + transform[1]), scale * (transform[2]*my + transform[3])
}

// Unproject is the inverse of Project.
func Unproject(x, y, zoom float64) (lat, lon float64) {
	scale := Scale(zoom)
	mx := (x/scale - transform[1]) / transform[0]
	my := (y/scale - transform[3]) / transform[2]

	lon = mx / EarthRadius / deg
	lat = (2*math.Atan(math.Exp(my/EarthRadius)) - math.Pi/2) / deg
	return lat, lon
}

// Reconstruct applies a mesh's offset/scale uniform to a grid-parametric
// position: (lat, lon) = offset + (u, v) * scale. It computes in float32 like
// the vertex stage.
func Reconstruct(u, v float32, offsetScale [4]float32) (lat, lon float32) {
	return offsetScale[0] + u*offsetScale[2], offsetScale[1] + v*offsetScale[3]
}
