package source

import (
	"encoding/csv"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"fieldmap/internal/field"
)

type columns struct {
	lat, lon, value int
}

var (
	latNames = []string{"lat", "latitude", "y"}
	lonNames = []string{"lon", "lng", "long", "longitude", "x"}
)

// ReadCSV reads samples from comma separated rows.
//
// A header naming latitude and longitude columns selects them; the value
// column is the one named by WithValueKey, otherwise the first other column.
// Without such a header the columns are positional: lat,lon,value for three
// column rows and id,lat,lon,value for wider ones. A header that names
// neither is skipped.
func ReadCSV(r io.Reader, opts ...Option) ([]field.Sample, error) {
	o := newOptions(opts)
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	rows = dropBlank(rows)
	if len(rows) == 0 {
		return nil, ErrNoSamples
	}

	cols, ok := headerColumns(rows[0], o.valueKey)
	switch {
	case ok:
		rows = rows[1:]
	case !numericRow(rows[0]):
		rows = rows[1:]
		fallthrough
	default:
		if len(rows) == 0 {
			return nil, ErrNoSamples
		}
		cols = positional(len(rows[0]))
	}
	if cols.value < 0 {
		return nil, ErrNoValue
	}

	samples := make([]field.Sample, 0, len(rows))
	for _, row := range rows {
		samples = append(samples, field.Sample{
			Lat:   parseField(row, cols.lat),
			Lon:   parseField(row, cols.lon),
			Value: parseField(row, cols.value),
		})
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	return samples, nil
}

func headerColumns(header []string, valueKey string) (columns, bool) {
	c := columns{lat: -1, lon: -1, value: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch {
		case c.lat < 0 && slices.Contains(latNames, name):
			c.lat = i
		case c.lon < 0 && slices.Contains(lonNames, name):
			c.lon = i
		case c.value < 0 && name == strings.ToLower(valueKey):
			c.value = i
		}
	}
	if c.lat < 0 || c.lon < 0 {
		return c, false
	}
	if c.value < 0 {
		for i := range header {
			if i != c.lat && i != c.lon {
				c.value = i
				break
			}
		}
	}
	return c, true
}

func positional(width int) columns {
	switch {
	case width >= 4:
		return columns{lat: 1, lon: 2, value: 3}
	case width == 3:
		return columns{lat: 0, lon: 1, value: 2}
	default:
		return columns{lat: 0, lon: 1, value: -1}
	}
}

func numericRow(row []string) bool {
	n := 0
	for _, f := range row {
		if _, err := strconv.ParseFloat(strings.TrimSpace(f), 64); err == nil {
			n++
		}
	}
	return n >= 2
}

func parseField(row []string, i int) float64 {
	if i < 0 || i >= len(row) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func dropBlank(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		out = append(out, row)
	}
	return out
}
