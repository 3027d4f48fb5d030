package tui

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fieldmap/internal/field"
	"fieldmap/internal/mesh"
)

// renderField draws the field into a w×h cell canvas. Each cell shows two
// map pixels with an upper half block: the foreground is the top pixel and
// the background the bottom one. Sample and tile overlays are drawn as
// braille on top.
func (m Model) renderField(w, h int) string {
	meshes := m.meshes()
	dots := m.overlay(w, h)

	var sb strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			top := m.pixel(meshes, float64(x)+0.5, float64(2*y)+0.5)
			bottom := m.pixel(meshes, float64(x)+0.5, float64(2*y)+1.5)
			style := lipgloss.NewStyle().Background(hexColor(bottom))
			if glyph, ok := dots.glyph(x, y); ok {
				if m.hovering && x == m.hoverCellX && y == m.hoverCellY {
					style = style.Foreground(hoverFg)
				} else {
					style = style.Foreground(overlayFg)
				}
				sb.WriteString(style.Render(glyph))
				continue
			}
			glyph := "▀"
			if m.hovering && x == m.hoverCellX && y == m.hoverCellY {
				glyph = "◯"
				style = style.Foreground(hoverFg)
			} else {
				style = style.Foreground(hexColor(top))
			}
			sb.WriteString(style.Render(glyph))
		}
		if y < h-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// pixel returns the field color at a viewport pixel composited over the
// map background.
func (m Model) pixel(meshes []*mesh.Mesh, px, py float64) color.RGBA {
	c, ok := m.sampleAt(meshes, px, py)
	if !ok {
		return background
	}
	return over(c, background)
}

// overlay rasterises the enabled overlays on the braille micro grid, 2×4
// dots per cell, which is one dot column and two dot rows per map pixel.
func (m Model) overlay(w, h int) *brailleBuf {
	br := newBrailleBuf(w, h)
	if m.showSamples {
		for _, s := range m.store.Current().Samples() {
			if !s.HasPosition() {
				continue
			}
			px, py := m.view.Pixel(s.Lat, s.Lon)
			br.setPixel(int(px*2), int(py*2))
		}
	}
	if m.showTiles {
		for _, k := range m.keys {
			if k.Full {
				if b, ok := m.store.Current().Bounds(); ok {
					m.outline(br, b.Rect())
				}
				continue
			}
			m.outline(br, k.Rect())
		}
	}
	return br
}

// outline draws the edges of rect. Mercator keeps them axis aligned, so
// clamping the corners to just outside the canvas keeps the visible part.
func (m Model) outline(br *brailleBuf, r field.Rect) {
	corners := [4][2]float64{{r.MaxLat, r.MinLon}, {r.MaxLat, r.MaxLon}, {r.MinLat, r.MaxLon}, {r.MinLat, r.MinLon}}
	var mic [4][2]int
	for i, c := range corners {
		px, py := m.view.Pixel(c[0], c[1])
		mic[i] = [2]int{
			int(clampf(px*2, -1, float64(2*br.w))),
			int(clampf(py*2, -1, float64(4*br.h))),
		}
	}
	for i := range mic {
		a, b := mic[i], mic[(i+1)%4]
		br.drawLineMicro(a[0], a[1], b[0], b[1])
	}
}
