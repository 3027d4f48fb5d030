package tui

import (
	"context"
	"fmt"
	"image/color"
	"math"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/paulmach/orb/maptile"

	"fieldmap/internal/colormap"
	"fieldmap/internal/field"
	"fieldmap/internal/mesh"
	"fieldmap/internal/projection"
	"fieldmap/internal/tiles"
)

// meshesBuiltMsg reports the end of a mesh request.
type meshesBuiltMsg struct {
	version uint64
	err     error
}

// colorFactory stretches the named scale over each dataset's value range.
func colorFactory(scale string) tiles.ColorFactory {
	return func(d *field.Dataset) mesh.ColorFunc {
		b, _ := d.Bounds()
		s, err := colormap.New(scale, b.MinVal, b.MaxVal)
		if err != nil {
			s, _ = colormap.New(colormap.DefaultScale, b.MinVal, b.MaxVal)
		}
		return s.At
	}
}

// setScale swaps the color scale. Meshes bake their colors, so the layer is
// replaced and everything rebuilt.
func (m *Model) setScale(name string) tea.Cmd {
	if _, err := colormap.New(name, 0, 1); err != nil {
		m.status = err.Error()
		return nil
	}
	m.scale = name
	m.layer = tiles.NewLayer(m.store, m.cfg.Mesher, colorFactory(name))
	m.status = "scale: " + name
	return m.requestMeshes()
}

// publish replaces the dataset and schedules a fit and rebuild.
func (m *Model) publish(samples []field.Sample) tea.Cmd {
	d := m.layer.Publish(samples)
	m.needFit = true
	m.inspectPopup = ""
	if m.showAttrs {
		m.refreshAttrs()
	}
	if _, ok := d.Bounds(); !ok {
		m.status = "no sample has a position"
		return nil
	}
	if m.mapW == 0 {
		return nil
	}
	m.fitView()
	return m.requestMeshes()
}

// viewportPx returns the viewport size in map pixels. A pixel is one column
// wide and half a row tall, which keeps pixels roughly square.
func viewportPx(w, h int) [2]float32 {
	return [2]float32{float32(w), float32(2 * h)}
}

// fitView zooms and centers the viewport on the dataset bounds.
func (m *Model) fitView() {
	b, ok := m.store.Current().Bounds()
	if !ok || m.mapW == 0 {
		return
	}
	m.needFit = false
	m.view.Viewport = viewportPx(m.mapW, m.mapH)
	x0, y0 := projection.Project(b.MaxLat, b.MinLon, 0)
	x1, y1 := projection.Project(b.MinLat, b.MaxLon, 0)
	zoom := 18.0
	if dx, dy := x1-x0, y1-y0; dx > 0 || dy > 0 {
		fx := float64(m.view.Viewport[0]) / math.Max(dx, 1e-9)
		fy := float64(m.view.Viewport[1]) / math.Max(dy, 1e-9)
		zoom = math.Log2(0.9 * math.Min(fx, fy))
	}
	m.view.ZoomLevel = float32(clampf(zoom, 0, 18))
	m.view.Center((b.MinLat+b.MaxLat)/2, (b.MinLon+b.MaxLon)/2)
}

// zoomBy changes the zoom level around the viewport center.
func (m *Model) zoomBy(dz float64) {
	cx, cy := float64(m.view.Viewport[0])/2, float64(m.view.Viewport[1])/2
	lat, lon := m.view.LatLon(cx, cy)
	m.view.ZoomLevel = float32(clampf(float64(m.view.ZoomLevel)+dz, 0, 20))
	m.view.Center(lat, lon)
}

// pan moves the viewport by a fraction of its size.
func (m *Model) pan(fx, fy float64) {
	m.view.Origin[0] += float32(fx * float64(m.view.Viewport[0]))
	m.view.Origin[1] += float32(fy * float64(m.view.Viewport[1]))
}

// visibleRect is the geographic rectangle under the viewport.
func (m Model) visibleRect() field.Rect {
	north, west := m.view.LatLon(0, 0)
	south, east := m.view.LatLon(float64(m.view.Viewport[0]), float64(m.view.Viewport[1]))
	return field.Rect{MinLat: south, MinLon: west, MaxLat: north, MaxLon: east}
}

// maxTiles bounds the tiles requested for one viewport.
const maxTiles = 64

// visibleKeys returns the meshes the viewport needs: the whole field, or the
// tiles covering the visible part of it.
func (m Model) visibleKeys() []tiles.Key {
	if !m.tiled {
		return []tiles.Key{tiles.FullKey}
	}
	b, ok := m.store.Current().Bounds()
	if !ok {
		return nil
	}
	rect, data := m.visibleRect(), b.Rect()
	if !rect.Intersects(data) {
		return nil
	}
	rect = field.Rect{
		MinLat: max(rect.MinLat, data.MinLat), MinLon: max(rect.MinLon, data.MinLon),
		MaxLat: min(rect.MaxLat, data.MaxLat), MaxLon: min(rect.MaxLon, data.MaxLon),
	}
	z := max(tiles.MinTileZoom(m.cfg.Mesher.Config()), tileZoom(m.view.ZoomLevel))
	cover := tiles.Cover(rect, z)
	for len(cover) > maxTiles && z > 0 {
		z--
		cover = tiles.Cover(rect, z)
	}
	keys := make([]tiles.Key, len(cover))
	for i, t := range cover {
		keys[i] = tiles.TileKey(t)
	}
	return keys
}

// tileZoom is the tile zoom whose tiles are about one viewport wide.
func tileZoom(zoom float32) maptile.Zoom {
	return maptile.Zoom(max(0, math.Floor(float64(zoom))))
}

// requestMeshes evicts meshes that left the viewport and builds the missing
// ones in the background.
func (m *Model) requestMeshes() tea.Cmd {
	d := m.store.Current()
	if _, ok := d.Bounds(); !ok {
		return nil
	}
	m.keys = m.visibleKeys()
	m.layer.Retain(m.keys...)
	if len(m.keys) == 0 {
		return nil
	}
	m.pending++
	layer, keys, version := m.layer, m.keys, d.Version()
	return func() tea.Msg {
		err := layer.Request(context.Background(), keys...)
		return meshesBuiltMsg{version: version, err: err}
	}
}

// meshes returns the drawable meshes of the viewport.
func (m Model) meshes() []*mesh.Mesh {
	return m.layer.Meshes(m.keys...)
}

// sampleAt returns the color of the field at viewport pixel (px, py).
func (m Model) sampleAt(meshes []*mesh.Mesh, px, py float64) (color.RGBA, bool) {
	lat, lon := m.view.LatLon(px, py)
	return projection.SampleAny(meshes, m.view, lat, lon)
}

// meshStats sums the statistics of the drawable meshes.
func (m Model) meshStats() (mesh.Stats, int) {
	var total mesh.Stats
	meshes := m.meshes()
	for _, me := range meshes {
		s := me.Stats()
		total.Vertices += s.Vertices
		total.Indices += s.Indices
		total.ValidCount += s.ValidCount
		total.TotalFloat16 += s.TotalFloat16
		total.TotalFloat32 += s.TotalFloat32
	}
	return total, len(meshes)
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
