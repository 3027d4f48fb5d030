// Package field holds the raw scalar samples of a dataset, their bounds and
// the immutable snapshots mesh builders read from.
package field

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Sample is one geo-tagged measurement. Any field may be NaN or infinite, in
// which case the sample does not take part in the bounds or meshing along that
// axis.
type Sample struct {
	Lat   float64
	Lon   float64
	Value float64
}

// HasPosition reports whether both coordinates are finite.
func (s Sample) HasPosition() bool {
	return isFinite(s.Lat) && isFinite(s.Lon)
}

// HasValue reports whether the scalar value is finite.
func (s Sample) HasValue() bool {
	return isFinite(s.Value)
}

// Bounds is the spatial and value extent of a dataset.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
	MinVal, MaxVal float64
}

// EmptyBounds returns the undefined bounds of a dataset without samples.
func EmptyBounds() Bounds {
	nan := math.NaN()
	return Bounds{nan, nan, nan, nan, nan, nan}
}

// Defined reports whether the spatial extent can anchor a grid.
func (b Bounds) Defined() bool {
	return isFinite(b.MinLat) && isFinite(b.MaxLat) && isFinite(b.MinLon) && isFinite(b.MaxLon) &&
		b.MinLat <= b.MaxLat && b.MinLon <= b.MaxLon
}

// HasValues reports whether at least one sample carried a value.
func (b Bounds) HasValues() bool {
	return isFinite(b.MinVal) && isFinite(b.MaxVal)
}

// Rect returns the spatial part of the bounds.
func (b Bounds) Rect() Rect {
	return Rect{MinLat: b.MinLat, MinLon: b.MinLon, MaxLat: b.MaxLat, MaxLon: b.MaxLon}
}

func (b Bounds) String() string {
	return fmt.Sprintf("lat [%.5f, %.5f] lon [%.5f, %.5f] value [%g, %g]",
		b.MinLat, b.MaxLat, b.MinLon, b.MaxLon, b.MinVal, b.MaxVal)
}

// Compute folds the samples once into their bounds. Rows with a NaN or
// infinite field are skipped only along that axis: a sample without a value still widens the
// spatial extent, and a sample without a position still widens the value
// range.
//
// The result is undefined (ok == false) when there are no samples, or when no
// sample has a usable latitude and longitude.
func Compute(samples []Sample) (Bounds, bool) {
	b := Bounds{
		MinLat: math.Inf(1), MaxLat: math.Inf(-1),
		MinLon: math.Inf(1), MaxLon: math.Inf(-1),
		MinVal: math.Inf(1), MaxVal: math.Inf(-1),
	}
	if len(samples) == 0 {
		return EmptyBounds(), false
	}
	for _, s := range samples {
		if isFinite(s.Lat) {
			b.MinLat = min(b.MinLat, s.Lat)
			b.MaxLat = max(b.MaxLat, s.Lat)
		}
		if isFinite(s.Lon) {
			b.MinLon = min(b.MinLon, s.Lon)
			b.MaxLon = max(b.MaxLon, s.Lon)
		}
		if isFinite(s.Value) {
			b.MinVal = min(b.MinVal, s.Value)
			b.MaxVal = max(b.MaxVal, s.Value)
		}
	}
	if !b.HasValues() {
		b.MinVal, b.MaxVal = math.NaN(), math.NaN()
	}
	if !b.Defined() {
		return EmptyBounds(), false
	}
	return b, true
}

// Rect is a geographic query rectangle, e.g. a viewport or a tile footprint.
type Rect struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

// RectFromBound converts an orb bound, whose points are (lon, lat).
func RectFromBound(b orb.Bound) Rect {
	return Rect{MinLat: b.Min.Lat(), MinLon: b.Min.Lon(), MaxLat: b.Max.Lat(), MaxLon: b.Max.Lon()}
}

// Bound returns the rectangle as an orb bound.
func (r Rect) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{r.MinLon, r.MinLat}, Max: orb.Point{r.MaxLon, r.MaxLat}}
}

// Contains reports whether the position lies inside the rectangle, edges included.
func (r Rect) Contains(lat, lon float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lon >= r.MinLon && lon <= r.MaxLon
}

// Intersects reports whether two rectangles overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.Bound().Intersects(o.Bound())
}

// Float32 packs the rectangle as (minLat, minLon, maxLat, maxLon), the layout of
// the clip bounds uniform.
func (r Rect) Float32() [4]float32 {
	return [4]float32{float32(r.MinLat), float32(r.MinLon), float32(r.MaxLat), float32(r.MaxLon)}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
