// Package mesh turns scalar samples into triangle meshes on a regular
// latitude/longitude grid, ready for upload to a GPU.
//
// Vertex positions are not geographic: each vertex stores its grid-parametric
// (u, v) in [0, 1] relative to the mesh, packed as two half floats. The
// geographic placement travels in the OffsetScale uniform and is reapplied by
// the render stage, so a mesh stays valid across pan and zoom.
package mesh

import (
	"encoding/binary"
	"image/color"
	"math"
)

// ColorFunc maps a scalar value to a color. The alpha it returns is ignored:
// a sampled vertex is always fully opaque.
type ColorFunc func(value float64) color.RGBA

// Vertex is one grid vertex: half-float (u, v) plus a straight RGBA8 color.
// Alpha is 255 when a sample landed on the vertex and 0 otherwise.
type Vertex struct {
	U, V  uint16
	Color color.RGBA
}

// Valid reports whether a sample was assigned to the vertex.
func (v Vertex) Valid() bool {
	return v.Color.A == 255
}

// Range is a span of full-grid vertex indices, [FromLat, ToLat] x [FromLon, ToLon].
type Range struct {
	FromLat, ToLat int
	FromLon, ToLon int
}

// Rows returns the number of cells along latitude.
func (r Range) Rows() int { return r.ToLat - r.FromLat }

// Cols returns the number of cells along longitude.
func (r Range) Cols() int { return r.ToLon - r.FromLon }

// Vertices returns the number of vertices spanned by the range, saturating at
// math.MaxInt32.
func (r Range) Vertices() int {
	n := float64(r.Rows()+1) * float64(r.Cols()+1)
	if n >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// Empty reports whether the range has no cell.
func (r Range) Empty() bool { return r.Rows() <= 0 || r.Cols() <= 0 }

// Mesh is a triangulated grid over a Range of the full field grid. It is owned
// by the caller; the Mesher keeps no reference to it.
//
// Vertices are stored column by column (longitude outer, latitude inner), so
// the vertex at local row la and column lo is Vertices[lo*(Rows+1)+la].
type Mesh struct {
	Vertices []Vertex
	Indices  []uint16

	// OffsetScale is (minLat, minLon, latSpan, lonSpan) of the grid covered:
	// (lat, lon) = offset + (u, v) * scale.
	OffsetScale [4]float32

	// ClipBounds is (minLat, minLon, maxLat, maxLon); fragments outside are
	// discarded by the render stage.
	ClipBounds [4]float32

	// Range locates the mesh in the full field grid.
	Range Range
}

// Rows returns the number of cells along latitude.
func (m *Mesh) Rows() int { return m.Range.Rows() }

// Cols returns the number of cells along longitude.
func (m *Mesh) Cols() int { return m.Range.Cols() }

// VertexAt returns the vertex at local row la and column lo.
func (m *Mesh) VertexAt(la, lo int) Vertex {
	return m.Vertices[lo*(m.Rows()+1)+la]
}

// ValidCount returns the number of vertices that received a sample.
func (m *Mesh) ValidCount() int {
	n := 0
	for _, v := range m.Vertices {
		if v.Valid() {
			n++
		}
	}
	return n
}

// PositionBytes returns the position buffer: little-endian Float16x2 per vertex.
func (m *Mesh) PositionBytes() []byte {
	buf := make([]byte, 0, len(m.Vertices)*PositionStride)
	for _, v := range m.Vertices {
		buf = binary.LittleEndian.AppendUint16(buf, v.U)
		buf = binary.LittleEndian.AppendUint16(buf, v.V)
	}
	return buf
}

// ColorBytes returns the color buffer: straight (not premultiplied) RGBA8 per vertex.
func (m *Mesh) ColorBytes() []byte {
	buf := make([]byte, 0, len(m.Vertices)*ColorStride)
	for _, v := range m.Vertices {
		buf = append(buf, v.Color.R, v.Color.G, v.Color.B, v.Color.A)
	}
	return buf
}

// IndexBytes returns the index buffer: little-endian uint16 per index.
func (m *Mesh) IndexBytes() []byte {
	buf := make([]byte, 0, len(m.Indices)*2)
	for _, i := range m.Indices {
		buf = binary.LittleEndian.AppendUint16(buf, i)
	}
	return buf
}

// Stats summarises the memory footprint of a mesh.
type Stats struct {
	Vertices     int `json:"vertices"`
	Indices      int `json:"indices"`
	ValidCount   int `json:"valid"`
	Position32   int `json:"positionBytesFloat32"`
	Position16   int `json:"positionBytesFloat16"`
	ColorBytes   int `json:"colorBytes"`
	IndexBytes   int `json:"indexBytes"`
	TotalFloat32 int `json:"totalBytesFloat32"`
	TotalFloat16 int `json:"totalBytesFloat16"`
}

// Stats returns buffer sizes, comparing float32 positions with the half
// floats actually used.
func (m *Mesh) Stats() Stats {
	s := Stats{
		Vertices:   len(m.Vertices),
		Indices:    len(m.Indices),
		ValidCount: m.ValidCount(),
		Position32: 4 * 2 * len(m.Vertices),
		Position16: 2 * 2 * len(m.Vertices),
		ColorBytes: ColorStride * len(m.Vertices),
		IndexBytes: 2 * len(m.Indices),
	}
	s.TotalFloat32 = s.Position32 + s.ColorBytes + s.IndexBytes
	s.TotalFloat16 = s.Position16 + s.ColorBytes + s.IndexBytes
	return s
}
