package source

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"fieldmap/internal/field"
)

// DecodeGeoJSON reads the point features of a FeatureCollection, or of a
// single Feature. Each point of a MultiPoint becomes a sample carrying the
// feature's value. Features of other geometry types are ignored.
func DecodeGeoJSON(data []byte, opts ...Option) ([]field.Sample, error) {
	o := newOptions(opts)

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("geojson: %w", err)
	}

	var features []*geojson.Feature
	switch probe.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		features = fc.Features
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		features = []*geojson.Feature{f}
	default:
		return nil, fmt.Errorf("geojson: unsupported type %q", probe.Type)
	}

	var samples []field.Sample
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		v := propertyValue(f.Properties, o.valueKey)
		switch g := f.Geometry.(type) {
		case orb.Point:
			samples = append(samples, sampleAt(g, v))
		case orb.MultiPoint:
			for _, p := range g {
				samples = append(samples, sampleAt(p, v))
			}
		}
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	return samples, nil
}

func sampleAt(p orb.Point, value float64) field.Sample {
	return field.Sample{Lat: p.Lat(), Lon: p.Lon(), Value: value}
}

// propertyValue returns the number stored under key, or under the first
// numeric property in key order when key is missing.
func propertyValue(props geojson.Properties, key string) float64 {
	if v, ok := props[key]; ok {
		return toFloat(v)
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if n, ok := props[k].(float64); ok {
			return n
		}
	}
	return math.NaN()
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return math.NaN()
}
