package projection

import (
	"encoding/binary"
	"image/color"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/paulmach/orb/maptile"

	"fieldmap/internal/field"
	"fieldmap/internal/mesh"
)

func TestProjectMatchesTileCorners(t *testing.T) {
	tiles := []maptile.Tile{
		maptile.New(0, 0, 0),
		maptile.New(1, 1, 1),
		maptile.New(3, 2, 3),
		maptile.New(511, 340, 10),
		maptile.New(130980, 87164, 18),
	}
	for _, tile := range tiles {
		b := tile.Bound()
		z := float64(tile.Z)
		x, y := Project(b.Max.Lat(), b.Min.Lon(), z)
		if math.Abs(x-TileSize*float64(tile.X)) > 1e-4 || math.Abs(y-TileSize*float64(tile.Y)) > 1e-4 {
			t.Errorf("tile %v: top-left projects to (%f, %f), want (%d, %d)",
				tile, x, y, 256*tile.X, 256*tile.Y)
		}
	}
}

func TestProjectKnownPoints(t *testing.T) {
	if x, y := Project(0, 0, 0); x != 128 || math.Abs(y-128) > 1e-9 {
		t.Errorf("Project(0, 0, 0) = (%g, %g), want (128, 128)", x, y)
	}
	if x, y := Project(0, 180, 1); math.Abs(x-512) > 1e-9 || math.Abs(y-256) > 1e-9 {
		t.Errorf("Project(0, 180, 1) = (%g, %g), want (512, 256)", x, y)
	}
	// latitude beyond the mercator square is clamped
	_, yPole := Project(90, 0, 2)
	_, yMax := Project(MaxLatitude, 0, 2)
	if yPole != yMax || math.Abs(yMax) > 1e-6 {
		t.Errorf("north pole y = %g, max latitude y = %g, want both 0", yPole, yMax)
	}
}

func TestUnprojectRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 8))
	for i := 0; i < 1000; i++ {
		lat := -85 + 170*r.Float64()
		lon := -180 + 360*r.Float64()
		zoom := 18 * r.Float64()
		x, y := Project(lat, lon, zoom)
		gotLat, gotLon := Unproject(x, y, zoom)
		if math.Abs(gotLat-lat) > 1e-8 || math.Abs(gotLon-lon) > 1e-8 {
			t.Fatalf("round trip of (%g, %g) at zoom %g = (%g, %g)", lat, lon, zoom, gotLat, gotLon)
		}
	}
}

func TestReconstruct(t *testing.T) {
	off := [4]float32{51, -0.2, 0.1, 0.2}
	lat, lon := Reconstruct(1, 0.5, off)
	if math.Abs(float64(lat)-51.1) > 1e-5 || math.Abs(float64(lon)+0.1) > 1e-6 {
		t.Errorf("Reconstruct() = (%g, %g), want (51.1, -0.1)", lat, lon)
	}
}

func TestUniformBytes(t *testing.T) {
	layer := LayerUniforms{Origin: [2]float32{1, 2}, Viewport: [2]float32{3, 4}, ZoomLevel: 7.5, Alpha: 0.6}
	buf := layer.Bytes()
	if len(buf) != LayerUniformsSize {
		t.Fatalf("layer uniforms = %d bytes", len(buf))
	}
	want := []float32{1, 2, 3, 4, 7.5, 0.6}
	for i, w := range want {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:])); got != w {
			t.Errorf("layer word %d = %g, want %g", i, got, w)
		}
	}

	mu := MeshUniforms{OffsetScale: [4]float32{1, 2, 3, 4}, ClipBounds: [4]float32{5, 6, 7, 8}}
	buf = mu.Bytes()
	if len(buf) != MeshUniformsSize {
		t.Fatalf("mesh uniforms = %d bytes", len(buf))
	}
	for i := 0; i < 8; i++ {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:])); got != float32(i+1) {
			t.Errorf("mesh word %d = %g, want %d", i, got, i+1)
		}
	}
}

func TestViewportConversion(t *testing.T) {
	layer := LayerUniforms{Viewport: [2]float32{100, 50}, ZoomLevel: 9, Alpha: 1}
	layer.Center(51.5, -0.12)
	px, py := layer.Pixel(51.5, -0.12)
	if math.Abs(px-50) > 0.05 || math.Abs(py-25) > 0.05 {
		t.Errorf("center pixel = (%g, %g), want (50, 25)", px, py)
	}
	lat, lon := layer.LatLon(50, 25)
	if math.Abs(lat-51.5) > 1e-3 || math.Abs(lon+0.12) > 1e-3 {
		t.Errorf("LatLon(center) = (%g, %g)", lat, lon)
	}
}

var london = field.Bounds{MinLat: 51.0, MaxLat: 51.1, MinLon: -0.2, MaxLon: 0.0}

func red(v float64) color.RGBA {
	return color.RGBA{R: uint8(v), A: 255}
}

// everyVertex places one sample on each grid vertex, valued 100 per column.
func everyVertex() []field.Sample {
	var samples []field.Sample
	for lo := 0; lo <= 2; lo++ {
		for la := 0; la <= 2; la++ {
			samples = append(samples, field.Sample{
				Lat:   51.0 + 0.05*float64(la),
				Lon:   -0.2 + 0.1*float64(lo),
				Value: 100 * float64(lo),
			})
		}
	}
	return samples
}

func TestSampleInterpolates(t *testing.T) {
	m, err := mesh.NewMesher().BuildFull(everyVertex(), london, red)
	if err != nil {
		t.Fatal(err)
	}
	layer := LayerUniforms{ZoomLevel: 12, Alpha: 1}
	tests := []struct {
		lat, lon float64
		wantR    uint8
	}{
		{51.05, -0.15, 50},
		{51.02, -0.05, 150},
		{51.08, -0.19, 10},
	}
	for _, tt := range tests {
		c, ok := Sample(m, layer, tt.lat, tt.lon)
		if !ok {
			t.Errorf("Sample(%g, %g) discarded", tt.lat, tt.lon)
			continue
		}
		if d := int(c.R) - int(tt.wantR); d < -2 || d > 2 {
			t.Errorf("Sample(%g, %g).R = %d, want %d", tt.lat, tt.lon, c.R, tt.wantR)
		}
		if c.A != 255 {
			t.Errorf("Sample(%g, %g).A = %d, want 255", tt.lat, tt.lon, c.A)
		}
	}
}

func TestSamplePremultipliesLayerAlpha(t *testing.T) {
	m, err := mesh.NewMesher().BuildFull(everyVertex(), london, func(float64) color.RGBA {
		return color.RGBA{R: 255, G: 100, B: 0}
	})
	if err != nil {
		t.Fatal(err)
	}
	c, ok := Sample(m, LayerUniforms{ZoomLevel: 10, Alpha: DefaultAlpha}, 51.03, -0.07)
	if !ok {
		t.Fatal("Sample() discarded")
	}
	want := color.RGBA{R: 153, G: 60, B: 0, A: 153}
	if c != want {
		t.Errorf("Sample() = %v, want %v", c, want)
	}
}

func TestSampleDiscardsMissingData(t *testing.T) {
	m, err := mesh.NewMesher().BuildFull([]field.Sample{{Lat: 51.05, Lon: -0.1, Value: 42}}, london, red)
	if err != nil {
		t.Fatal(err)
	}
	layer := LayerUniforms{ZoomLevel: 10, Alpha: 1}
	for _, p := range [][2]float64{{51.06, -0.12}, {51.02, -0.02}, {51.09, -0.18}} {
		if c, ok := Sample(m, layer, p[0], p[1]); ok {
			t.Errorf("Sample(%v) = %v, want discard next to missing vertices", p, c)
		}
	}
}

func TestSampleDiscardsOutsideClip(t *testing.T) {
	b := field.Bounds{MinLat: 0, MaxLat: 1, MinLon: 0, MaxLon: 1}
	var samples []field.Sample
	for la := 0; la <= 20; la++ {
		for lo := 0; lo <= 10; lo++ {
			samples = append(samples, field.Sample{Lat: 0.05 * float64(la), Lon: 0.1 * float64(lo), Value: 1})
		}
	}
	rect := field.Rect{MinLat: 0.3, MinLon: 0.3, MaxLat: 0.5, MaxLon: 0.5}
	m, err := mesh.NewMesher().BuildBounded(samples, b, rect, red)
	if err != nil {
		t.Fatal(err)
	}
	layer := LayerUniforms{ZoomLevel: 8, Alpha: 1}
	if _, ok := Sample(m, layer, 0.4, 0.4); !ok {
		t.Error("point inside the rect discarded")
	}
	// inside the padded mesh, outside the rect
	if _, ok := Sample(m, layer, 0.27, 0.4); ok {
		t.Error("padding bled outside the clip bounds")
	}
	if _, ok := Sample(m, layer, 5, 5); ok {
		t.Error("point far outside drawn")
	}
	if _, ok := SampleAny([]*mesh.Mesh{m}, layer, 0.4, 0.4); !ok {
		t.Error("SampleAny() missed the mesh")
	}
}

func TestNewProgram(t *testing.T) {
	src := ShaderSource()
	for _, entry := range []string{VertexEntryPoint, FragmentEntryPoint, "discard", "offset_scale", "clip_bounds"} {
		if !strings.Contains(src, entry) {
			t.Errorf("shader source lacks %q", entry)
		}
	}

	p, err := NewProgram("fieldmap")
	if err != nil {
		if strings.Contains(err.Error(), "not yet implemented") || strings.Contains(err.Error(), "not supported") {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
		t.Fatalf("NewProgram() error = %v", err)
	}
	if len(p.SPIRV) == 0 || p.SPIRV[0] != 0x07230203 {
		t.Fatalf("SPIR-V does not start with the magic number")
	}
	if got := p.SPIRVBytes(); len(got) != 4*len(p.SPIRV) || binary.LittleEndian.Uint32(got) != 0x07230203 {
		t.Error("SPIRVBytes() does not round trip the words")
	}
	if len(p.Layouts) != 2 || p.Primitive.CullMode != mesh.PrimitiveState().CullMode {
		t.Errorf("program pipeline state = %+v / %+v", p.Layouts, p.Primitive)
	}
}
