package projection

import (
	"encoding/binary"
	"math"

	"fieldmap/internal/mesh"
)

// DefaultAlpha is the layer opacity used when none is configured.
const DefaultAlpha = 0.6

// MeshUniforms is bound at group 1. It is fixed for the lifetime of a mesh.
type MeshUniforms struct {
	OffsetScale [4]float32 // minLat, minLon, latSpan, lonSpan
	ClipBounds  [4]float32 // minLat, minLon, maxLat, maxLon
}

// MeshUniformsOf returns the uniforms that travel with m.
func MeshUniformsOf(m *mesh.Mesh) MeshUniforms {
	return MeshUniforms{OffsetScale: m.OffsetScale, ClipBounds: m.ClipBounds}
}

// MeshUniformsSize is the byte size of MeshUniforms in a uniform buffer.
const MeshUniformsSize = 32

// Bytes encodes the uniforms in WGSL uniform layout.
func (u MeshUniforms) Bytes() []byte {
	buf := make([]byte, MeshUniformsSize)
	for i, f := range u.OffsetScale {
		writeFloat32(buf, 4*i, f)
	}
	for i, f := range u.ClipBounds {
		writeFloat32(buf, 16+4*i, f)
	}
	return buf
}

// LayerUniforms is bound at group 0 and shared by every mesh of a layer. It
// is the only state that changes per frame.
type LayerUniforms struct {
	// Origin is the world pixel at the top-left corner of the viewport.
	Origin [2]float32
	// Viewport is the viewport size in pixels.
	Viewport [2]float32
	// ZoomLevel may be fractional while zooming.
	ZoomLevel float32
	// Alpha is the global opacity in [0, 1].
	Alpha float32
}

// LayerUniformsSize is the byte size of LayerUniforms, padded to 16 bytes.
const LayerUniformsSize = 32

// Bytes encodes the uniforms in WGSL uniform layout.
func (u LayerUniforms) Bytes() []byte {
	buf := make([]byte, LayerUniformsSize)
	writeFloat32(buf, 0, u.Origin[0])
	writeFloat32(buf, 4, u.Origin[1])
	writeFloat32(buf, 8, u.Viewport[0])
	writeFloat32(buf, 12, u.Viewport[1])
	writeFloat32(buf, 16, u.ZoomLevel)
	writeFloat32(buf, 20, u.Alpha)
	return buf
}

// Center positions the viewport so that (lat, lon) is in its middle.
func (u *LayerUniforms) Center(lat, lon float64) {
	x, y := Project(lat, lon, float64(u.ZoomLevel))
	u.Origin = [2]float32{float32(x) - u.Viewport[0]/2, float32(y) - u.Viewport[1]/2}
}

// Pixel returns the viewport pixel of (lat, lon).
func (u LayerUniforms) Pixel(lat, lon float64) (px, py float64) {
	x, y := Project(lat, lon, float64(u.ZoomLevel))
	return x - float64(u.Origin[0]), y - float64(u.Origin[1])
}

// LatLon returns the position under viewport pixel (px, py).
func (u LayerUniforms) LatLon(px, py float64) (lat, lon float64) {
	return Unproject(px+float64(u.Origin[0]), py+float64(u.Origin[1]), float64(u.ZoomLevel))
}

func writeFloat32(buf []byte, off int, f float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
}
