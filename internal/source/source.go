// Package source decodes geo-tagged scalar samples from files: CSV rows,
// GeoJSON point features and FlatGeobuf point layers.
//
// Decoders never drop rows. A field that cannot be read becomes NaN and the
// mesher skips the sample later, so counts in the viewer match the file.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fieldmap/internal/field"
)

var (
	ErrUnknownFormat = errors.New("source: unknown file format")
	ErrNoSamples     = errors.New("source: no samples")
	ErrNoValue       = errors.New("source: no numeric value column")
)

// Format is a supported input encoding.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatGeoJSON
	FormatFlatGeobuf
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatGeoJSON:
		return "geojson"
	case FormatFlatGeobuf:
		return "flatgeobuf"
	default:
		return "unknown"
	}
}

// Extensions lists the file extensions Load understands.
var Extensions = []string{".csv", ".geojson", ".json", ".fgb"}

// FormatOf guesses the format of path from its extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV
	case ".geojson", ".json":
		return FormatGeoJSON
	case ".fgb":
		return FormatFlatGeobuf
	default:
		return FormatUnknown
	}
}

// DefaultValueKey is the property or column read as the sample value.
const DefaultValueKey = "value"

type options struct {
	valueKey string
}

// Option configures a decoder.
type Option func(*options)

// WithValueKey selects the property (GeoJSON), column (FlatGeobuf) or header
// (CSV) holding the value. When the key is absent the first numeric one is
// used.
func WithValueKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.valueKey = key
		}
	}
}

func newOptions(opts []Option) options {
	o := options{valueKey: DefaultValueKey}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Load reads the samples of path, picking the decoder from its extension.
func Load(path string, opts ...Option) ([]field.Sample, error) {
	format := FormatOf(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	samples, err := Decode(format, data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return samples, nil
}

// Decode reads samples encoded as format.
func Decode(format Format, data []byte, opts ...Option) ([]field.Sample, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(bytes.NewReader(data), opts...)
	case FormatGeoJSON:
		return DecodeGeoJSON(data, opts...)
	case FormatFlatGeobuf:
		return DecodeFlatGeobuf(data, opts...)
	default:
		return nil, ErrUnknownFormat
	}
}
