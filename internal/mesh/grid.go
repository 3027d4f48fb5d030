package mesh

import (
	"context"
	"image/color"
	"log/slog"
	"math"

	"fieldmap/internal/field"
	"fieldmap/internal/halffloat"
)

// snap absorbs the rounding noise of (max-min)/cell so that an extent which
// is a whole number of cells is not bumped to the next one.
const snap = 1e-9

// maxCells caps the cells along one axis. An axis longer than the index space
// can never fit in one mesh, so saturating there keeps every index and vertex
// product inside int while still failing the capacity check.
const maxCells = MaxVertices

// cellCount converts an extent measured in cells to a whole number of cells in
// [0, maxCells]. NaN counts as no cell.
func cellCount(x float64) int {
	n := math.Ceil(x - snap)
	switch {
	case !(n > 0):
		return 0
	case n >= maxCells:
		return maxCells
	default:
		return int(n)
	}
}

// Mesher builds grid meshes. It is stateless apart from its configuration and
// safe for concurrent use; every call returns a mesh the caller owns.
type Mesher struct {
	cfg Config
}

// NewMesher returns a Mesher using DefaultConfig adjusted by opts.
func NewMesher(opts ...Option) *Mesher {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Mesher{cfg: cfg}
}

// Config returns the mesher's configuration.
func (m *Mesher) Config() Config {
	return m.cfg
}

// GridSize returns the number of cells of the full-field grid along latitude
// and longitude. Each count saturates at MaxVertices.
func (m *Mesher) GridSize(b field.Bounds) (rows, cols int) {
	rows = cellCount((b.MaxLat - b.MinLat) / m.cfg.CellLat)
	cols = cellCount((b.MaxLon - b.MinLon) / m.cfg.CellLon)
	return rows, cols
}

// FullRange returns the range covering the whole field grid.
func (m *Mesher) FullRange(b field.Bounds) Range {
	rows, cols := m.GridSize(b)
	return Range{ToLat: rows, ToLon: cols}
}

// SubRange converts rect to full-grid indices, widens it by the configured
// padding and clamps it to the grid. ok is false when the result has no cell.
func (m *Mesher) SubRange(b field.Bounds, rect field.Rect) (r Range, ok bool) {
	if math.IsNaN(rect.MinLat) || math.IsNaN(rect.MinLon) || math.IsNaN(rect.MaxLat) || math.IsNaN(rect.MaxLon) {
		return Range{}, false
	}
	rows, cols := m.GridSize(b)
	pad := float64(m.cfg.Padding)

	r.FromLat = clampIndex(math.Floor((rect.MinLat-b.MinLat)/m.cfg.CellLat+snap-pad), rows)
	r.ToLat = clampIndex(math.Ceil((rect.MaxLat-b.MinLat)/m.cfg.CellLat-snap+pad), rows)
	r.FromLon = clampIndex(math.Floor((rect.MinLon-b.MinLon)/m.cfg.CellLon+snap-pad), cols)
	r.ToLon = clampIndex(math.Ceil((rect.MaxLon-b.MinLon)/m.cfg.CellLon-snap+pad), cols)

	return r, !r.Empty()
}

// clampIndex clamps a float grid index to [0, n] before converting it, so a
// rectangle far outside the field cannot overflow int.
func clampIndex(x float64, n int) int {
	switch {
	case x <= 0:
		return 0
	case x >= float64(n):
		return n
	default:
		return int(x)
	}
}

// OffsetScale returns the (minLat, minLon, latSpan, lonSpan) uniform of the
// grid area covered by r.
func (m *Mesher) OffsetScale(b field.Bounds, r Range) [4]float32 {
	return [4]float32{
		float32(b.MinLat + float64(r.FromLat)*m.cfg.CellLat),
		float32(b.MinLon + float64(r.FromLon)*m.cfg.CellLon),
		float32(float64(r.Rows()) * m.cfg.CellLat),
		float32(float64(r.Cols()) * m.cfg.CellLon),
	}
}

// BuildFull meshes the whole field as one mesh. The clip bounds are the grid
// extent, so nothing is clipped.
//
// It returns ErrEmptyInput when the bounds are undefined, ErrDegenerateRegion
// when the field has no extent along one axis and a *CapacityError when the
// grid needs more vertices than one mesh can index.
func (m *Mesher) BuildFull(samples []field.Sample, b field.Bounds, colorAt ColorFunc) (*Mesh, error) {
	if !b.Defined() {
		return nil, ErrEmptyInput
	}
	r := m.FullRange(b)
	if r.Empty() {
		return nil, ErrDegenerateRegion
	}
	off := m.OffsetScale(b, r)
	clip := [4]float32{off[0], off[1], off[0] + off[2], off[1] + off[3]}
	return m.build(samples, b, r, clip, colorAt)
}

// BuildBounded meshes the part of the field under rect, for a viewport or a
// tile footprint. The sub-range keeps full-field indexing, so neighbouring
// tiles share vertex positions along their common edge, and the padding is
// hidden again by clipping to the unpadded rect.
//
// Besides the errors of BuildFull it returns ErrDegenerateRegion when rect
// misses the field.
func (m *Mesher) BuildBounded(samples []field.Sample, b field.Bounds, rect field.Rect, colorAt ColorFunc) (*Mesh, error) {
	if !b.Defined() {
		return nil, ErrEmptyInput
	}
	r, ok := m.SubRange(b, rect)
	if !ok {
		return nil, ErrDegenerateRegion
	}
	return m.build(samples, b, r, rect.Float32(), colorAt)
}

func (m *Mesher) build(samples []field.Sample, b field.Bounds, r Range, clip [4]float32, colorAt ColorFunc) (*Mesh, error) {
	if colorAt == nil {
		return nil, ErrNilColorFunc
	}
	rows, cols := r.Rows(), r.Cols()
	n := r.Vertices()
	if n > m.cfg.MaxVertices {
		err := &CapacityError{Rows: rows, Cols: cols, Vertices: n, Limit: m.cfg.MaxVertices}
		Logger().Warn("mesh rejected", "rows", rows, "cols", cols, "vertices", n, "limit", m.cfg.MaxVertices)
		return nil, err
	}

	mesh := &Mesh{
		Vertices:    make([]Vertex, n),
		Indices:     make([]uint16, 0, 6*rows*cols),
		OffsetScale: m.OffsetScale(b, r),
		ClipBounds:  clip,
		Range:       r,
	}

	stride := rows + 1
	for lo := 0; lo <= cols; lo++ {
		v16 := halffloat.FromFloat32(float32(lo) / float32(cols))
		for la := 0; la <= rows; la++ {
			v := lo*stride + la
			mesh.Vertices[v].U = halffloat.FromFloat32(float32(la) / float32(rows))
			mesh.Vertices[v].V = v16
			if la == 0 || lo == 0 {
				continue
			}
			// counter-clockwise with lon on x and lat on y
			mesh.Indices = append(mesh.Indices,
				uint16(v), uint16(v-stride), uint16(v-1),
				uint16(v-stride), uint16(v-stride-1), uint16(v-1),
			)
		}
	}

	m.assign(mesh, samples, b, colorAt)

	if l := Logger(); l.Enabled(context.Background(), slog.LevelDebug) {
		s := mesh.Stats()
		l.Debug("mesh built",
			"from_lat", r.FromLat, "from_lon", r.FromLon,
			"rows", rows, "cols", cols,
			"vertices", s.Vertices, "indices", s.Indices, "valid", s.ValidCount,
			"bytes_f16", s.TotalFloat16, "bytes_f32", s.TotalFloat32)
	}
	return mesh, nil
}

// assign colors every vertex that a sample rounds to. Samples missing a
// coordinate or a value are skipped, as are samples outside the mesh range.
func (m *Mesher) assign(mesh *Mesh, samples []field.Sample, b field.Bounds, colorAt ColorFunc) {
	r := mesh.Range
	stride := r.Rows() + 1
	for _, s := range samples {
		if !s.HasPosition() || !s.HasValue() {
			continue
		}
		gla := math.Round((s.Lat - b.MinLat) / m.cfg.CellLat)
		glo := math.Round((s.Lon - b.MinLon) / m.cfg.CellLon)
		if gla < float64(r.FromLat) || gla > float64(r.ToLat) || glo < float64(r.FromLon) || glo > float64(r.ToLon) {
			continue
		}
		v := &mesh.Vertices[(int(glo)-r.FromLon)*stride+int(gla)-r.FromLat]
		if m.cfg.Policy == FirstWins && v.Valid() {
			continue
		}
		c := colorAt(s.Value)
		v.Color = color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	}
}
