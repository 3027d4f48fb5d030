package tui

import (
	"fmt"
	"strconv"

	table "github.com/charmbracelet/bubbles/table"

	"fieldmap/internal/colormap"
)

// maxAttrRows bounds the rows handed to the table.
const maxAttrRows = 5000

// refreshAttrs fills the table with the samples of the current dataset.
func (m *Model) refreshAttrs() {
	d := m.store.Current()
	if d.Len() == 0 {
		m.showAttrs = false
		m.status = "no samples for current dataset"
		return
	}
	b, _ := d.Bounds()
	scale, err := colormap.New(m.scale, b.MinVal, b.MaxVal)
	if err != nil {
		m.status = err.Error()
		return
	}

	cols := []table.Column{
		{Title: "#", Width: 6},
		{Title: "lat", Width: 11},
		{Title: "lon", Width: 11},
		{Title: "value", Width: 12},
		{Title: "color", Width: 9},
	}
	samples := d.Samples()
	rows := make([]table.Row, 0, min(len(samples), maxAttrRows))
	for i, s := range samples {
		if i == maxAttrRows {
			break
		}
		hex := ""
		if s.HasValue() {
			hex = scale.Hex(s.Value)
		}
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			formatCoord(s.Lat),
			formatCoord(s.Lon),
			strconv.FormatFloat(s.Value, 'g', 6, 64),
			hex,
		})
	}
	// Avoid transient mismatch: clear rows, set columns, then set rows
	m.tbl.SetRows(nil)
	m.tbl.SetColumns(cols)
	m.tbl.SetRows(rows)
	if len(samples) > maxAttrRows {
		m.status = fmt.Sprintf("showing first %d of %d samples", maxAttrRows, len(samples))
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}
