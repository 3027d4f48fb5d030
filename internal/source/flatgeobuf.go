package source

import (
	"encoding/binary"
	"fmt"
	"math"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"

	"fieldmap/internal/field"
)

// DecodeFlatGeobuf reads the point features of a FlatGeobuf layer. Features
// are reached through the packed R-tree, so the file must carry a spatial
// index; layers written without one are reported as empty.
func DecodeFlatGeobuf(data []byte, opts ...Option) ([]field.Sample, error) {
	o := newOptions(opts)
	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("flatgeobuf: %w", err)
	}
	h := fgb.Header()
	if h == nil || h.FeaturesCount() == 0 || h.IndexNodeSize() == 0 {
		return nil, ErrNoSamples
	}

	column, ok := valueColumn(h, o.valueKey)
	if !ok {
		return nil, ErrNoValue
	}

	minX, minY, maxX, maxY := -math.MaxFloat64, -math.MaxFloat64, math.MaxFloat64, math.MaxFloat64
	if h.EnvelopeLength() >= 4 {
		minX, minY, maxX, maxY = h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3)
	}
	features, err := fgb.Search(minX, minY, maxX, maxY)
	if err != nil {
		return nil, fmt.Errorf("flatgeobuf: %w", err)
	}

	samples := make([]field.Sample, 0, len(features))
	for _, f := range features {
		if f == nil {
			continue
		}
		var g flattypes.Geometry
		geom := f.Geometry(&g)
		if geom == nil {
			continue
		}
		switch geom.Type() {
		case flattypes.GeometryTypePoint, flattypes.GeometryTypeMultiPoint:
		default:
			continue
		}
		v := featureValue(f, h, column)
		for i := 0; i+1 < geom.XyLength(); i += 2 {
			samples = append(samples, field.Sample{Lat: geom.Xy(i + 1), Lon: geom.Xy(i), Value: v})
		}
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	return samples, nil
}

// valueColumn finds the column named key, or the first numeric column.
func valueColumn(h *flattypes.Header, key string) (int, bool) {
	first := -1
	for i := 0; i < h.ColumnsLength(); i++ {
		var col flattypes.Column
		if !h.Columns(&col, i) || propertySize(col.Type()) < 0 {
			continue
		}
		if string(col.Name()) == key {
			return i, true
		}
		if first < 0 {
			first = i
		}
	}
	return first, first >= 0
}

// featureValue walks the encoded properties of f: a little endian uint16
// column index followed by the value.
func featureValue(f *flattypes.Feature, h *flattypes.Header, column int) float64 {
	n := f.PropertiesLength()
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(f.Properties(i))
	}

	for off := 0; off+2 <= len(buf); {
		idx := int(binary.LittleEndian.Uint16(buf[off:]))
		off += 2
		var col flattypes.Column
		if idx >= h.ColumnsLength() || !h.Columns(&col, idx) {
			break
		}
		rest := buf[off:]
		if idx == column {
			return numericProperty(col.Type(), rest)
		}
		size := propertySize(col.Type())
		if size < 0 {
			size = variableSize(rest)
		}
		if size < 0 || size > len(rest) {
			break
		}
		off += size
	}
	return math.NaN()
}

// propertySize is the encoded size of a fixed width numeric column, or -1.
func propertySize(t flattypes.ColumnType) int {
	switch t {
	case flattypes.ColumnTypeBool, flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte:
		return 1
	case flattypes.ColumnTypeShort, flattypes.ColumnTypeUShort:
		return 2
	case flattypes.ColumnTypeInt, flattypes.ColumnTypeUInt, flattypes.ColumnTypeFloat:
		return 4
	case flattypes.ColumnTypeLong, flattypes.ColumnTypeULong, flattypes.ColumnTypeDouble:
		return 8
	default:
		return -1
	}
}

// variableSize is the size of a string, json, datetime or binary value:
// a little endian uint32 length and the bytes.
func variableSize(b []byte) int {
	if len(b) < 4 {
		return -1
	}
	return 4 + int(binary.LittleEndian.Uint32(b))
}

func numericProperty(t flattypes.ColumnType, b []byte) float64 {
	if size := propertySize(t); size < 0 || size > len(b) {
		return math.NaN()
	}
	switch t {
	case flattypes.ColumnTypeBool, flattypes.ColumnTypeUByte:
		return float64(b[0])
	case flattypes.ColumnTypeByte:
		return float64(int8(b[0]))
	case flattypes.ColumnTypeShort:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case flattypes.ColumnTypeUShort:
		return float64(binary.LittleEndian.Uint16(b))
	case flattypes.ColumnTypeInt:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case flattypes.ColumnTypeUInt:
		return float64(binary.LittleEndian.Uint32(b))
	case flattypes.ColumnTypeLong:
		return float64(int64(binary.LittleEndian.Uint64(b)))
	case flattypes.ColumnTypeULong:
		return float64(binary.LittleEndian.Uint64(b))
	case flattypes.ColumnTypeFloat:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	default:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
}
