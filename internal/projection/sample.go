package projection

import (
	"image/color"
	"math"

	"fieldmap/internal/halffloat"
	"fieldmap/internal/mesh"
)

// Sample runs the mesh program on the CPU for one position: it finds the
// triangle under (lat, lon), interpolates its vertex colors in screen space
// at the layer zoom and applies the fragment rules. ok is false where the GPU
// would discard: outside the clip bounds, outside the mesh, or on a triangle
// touching a vertex without data.
//
// The returned color is alpha-premultiplied, rgb*alpha with alpha the layer
// opacity, as the fragment stage writes it.
func Sample(m *mesh.Mesh, layer LayerUniforms, lat, lon float64) (c color.RGBA, ok bool) {
	cb := m.ClipBounds
	if lat < float64(cb[0]) || lon < float64(cb[1]) || lat > float64(cb[2]) || lon > float64(cb[3]) {
		return color.RGBA{}, false
	}

	rows, cols := m.Rows(), m.Cols()
	off := m.OffsetScale
	u := (lat - float64(off[0])) / float64(off[2])
	v := (lon - float64(off[1])) / float64(off[3])
	if !(u >= 0 && u <= 1 && v >= 0 && v <= 1) {
		return color.RGBA{}, false
	}

	zoom := float64(layer.ZoomLevel)
	px, py := Project(lat, lon, zoom)
	corner := func(la, lo int) vertex {
		mv := m.VertexAt(la, lo)
		vlat, vlon := Reconstruct(halffloat.ToFloat32(mv.U), halffloat.ToFloat32(mv.V), off)
		x, y := Project(float64(vlat), float64(vlon), zoom)
		return vertex{x: x, y: y, c: mv.Color}
	}

	// Both projection axes are monotonic, so the cell found in lat/lon is the
	// cell on screen. Neighbours are tried too because vertex positions carry
	// half-float error.
	la0 := min(int(u*float64(rows)), rows-1) + 1
	lo0 := min(int(v*float64(cols)), cols-1) + 1
	for _, d := range cellSearch {
		la, lo := la0+d[0], lo0+d[1]
		if la < 1 || la > rows || lo < 1 || lo > cols {
			continue
		}
		a, b, cc, e := corner(la, lo), corner(la, lo-1), corner(la-1, lo), corner(la-1, lo-1)
		// same triangles as the index buffer
		for _, tri := range [2][3]vertex{{a, b, cc}, {b, e, cc}} {
			if w, hit := barycentric(px, py, tri); hit {
				return shade(tri, w, layer.Alpha)
			}
		}
	}
	return color.RGBA{}, false
}

var cellSearch = [...][2]int{{0, 0}, {-1, 0}, {1, 0}, {0, -1}, {0, 1}, {-1, -1}, {-1, 1}, {1, -1}, {1, 1}}

// SampleAny returns the first mesh that draws at (lat, lon). Tiles clip to
// their own footprint so at most one normally does.
func SampleAny(meshes []*mesh.Mesh, layer LayerUniforms, lat, lon float64) (color.RGBA, bool) {
	for _, m := range meshes {
		if c, ok := Sample(m, layer, lat, lon); ok {
			return c, true
		}
	}
	return color.RGBA{}, false
}

type vertex struct {
	x, y float64
	c    color.RGBA
}

// shade is the fragment stage. The interpolated alpha is exactly one only
// when every vertex that contributes carries data.
func shade(tri [3]vertex, w [3]float64, alpha float32) (color.RGBA, bool) {
	var r, g, b float64
	for i, t := range tri {
		if w[i] == 0 {
			continue
		}
		if t.c.A != 255 {
			return color.RGBA{}, false
		}
		r += w[i] * float64(t.c.R) / 255
		g += w[i] * float64(t.c.G) / 255
		b += w[i] * float64(t.c.B) / 255
	}
	a := float64(alpha)
	return color.RGBA{R: unorm(r * a), G: unorm(g * a), B: unorm(b * a), A: unorm(a)}, true
}

// barycentric returns the weights of p in the triangle, tolerating points on
// an edge. Weights within rounding noise of zero are snapped to zero.
func barycentric(px, py float64, t [3]vertex) (w [3]float64, ok bool) {
	a, b, c := t[0], t[1], t[2]
	det := (b.y-c.y)*(a.x-c.x) + (c.x-b.x)*(a.y-c.y)
	if det == 0 {
		return w, false
	}
	w[0] = ((b.y-c.y)*(px-c.x) + (c.x-b.x)*(py-c.y)) / det
	w[1] = ((c.y-a.y)*(px-c.x) + (a.x-c.x)*(py-c.y)) / det
	w[2] = 1 - w[0] - w[1]

	const eps = 1e-9
	for i := range w {
		if w[i] < -eps {
			return w, false
		}
		if math.Abs(w[i]) <= eps {
			w[i] = 0
		}
	}
	return w, true
}

func unorm(f float64) uint8 {
	return uint8(math.Round(min(max(f, 0), 1) * 255))
}
