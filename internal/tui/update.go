package tui

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"fieldmap/internal/colormap"
	"fieldmap/internal/mesh"
	"fieldmap/internal/source"
	"fieldmap/internal/tiles"
)

const sidebarWidth = 28

// layout is the placement of the map canvas inside the window.
type layout struct {
	contentW, contentH int
	mapX, mapY         int
	mapW, mapH         int
}

func (m Model) layout() layout {
	sidebar := 0
	if m.showSidebar {
		sidebar = sidebarWidth
	}
	headerHeight := 1
	footerHeight := 2
	l := layout{
		contentW: max(10, m.width),
		contentH: max(4, m.height-headerHeight-footerHeight),
		mapY:     headerHeight,
	}
	l.mapW = max(10, l.contentW-sidebar-1)
	l.mapH = l.contentH
	if m.showSidebar {
		l.mapX = sidebar + 1
	}
	return l
}

// resize tracks the canvas size and keeps the viewport centered on the same
// point.
func (m *Model) resize() tea.Cmd {
	lay := m.layout()
	if m.showSidebar {
		m.l.SetSize(sidebarWidth-2, lay.contentH-2)
	}
	if lay.mapW == m.mapW && lay.mapH == m.mapH {
		return nil
	}
	hadView := m.mapW > 0
	var lat, lon float64
	if hadView {
		lat, lon = m.view.LatLon(float64(m.view.Viewport[0])/2, float64(m.view.Viewport[1])/2)
	}
	m.mapW, m.mapH = lay.mapW, lay.mapH
	m.view.Viewport = viewportPx(m.mapW, m.mapH)
	if m.needFit || !hadView {
		m.fitView()
	} else {
		m.view.Center(lat, lon)
	}
	return m.requestMeshes()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, m.resize()
	case meshesBuiltMsg:
		m.pending = max(0, m.pending-1)
		if msg.err != nil {
			m.status = "mesh error: " + msg.err.Error()
			if !m.tiled && errors.Is(msg.err, mesh.ErrCapacityExceeded) {
				m.status += "  (press t for tiles)"
			}
		} else if msg.version == m.store.Current().Version() && m.pending == 0 {
			c := m.layer.Counts()
			m.status = fmt.Sprintf("meshes ready=%d stale=%d", c[tiles.Ready], c[tiles.Stale])
		}
		if m.store.Current().Version() != msg.version || m.layer.Counts()[tiles.Stale] > 0 {
			return m, m.requestMeshes()
		}
		return m, nil
	case tea.KeyMsg:
		// If list is visible and filtering, send keys to list and ignore global commands
		if m.showSidebar && m.l.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		}
		if m.pasteMode {
			switch msg.String() {
			case "esc":
				m.pasteMode = false
				m.ta.Blur()
				return m, nil
			case "ctrl+s":
				text := strings.TrimSpace(m.ta.Value())
				if text == "" {
					m.status = "paste: empty"
					return m, nil
				}
				samples, err := source.ReadCSV(strings.NewReader(text))
				if err != nil {
					m.status = "paste error: " + err.Error()
					return m, nil
				}
				m.selPath = ""
				m.pasteMode = false
				m.ta.Blur()
				cmd := m.publish(samples)
				m.status = fmt.Sprintf("rendered pasted samples=%d", len(samples))
				return m, cmd
			}
			var cmd tea.Cmd
			m.ta, cmd = m.ta.Update(msg)
			return m, cmd
		}
		if m.showAttrs {
			switch msg.String() {
			case "a", "esc":
				m.showAttrs = false
				return m, nil
			case "ctrl+c", "q":
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.tbl, cmd = m.tbl.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "+", "=":
			m.zoomBy(0.5)
			m.status = fmt.Sprintf("zoom: %.1f", m.view.ZoomLevel)
			return m, m.requestMeshes()
		case "-", "_":
			m.zoomBy(-0.5)
			m.status = fmt.Sprintf("zoom: %.1f", m.view.ZoomLevel)
			return m, m.requestMeshes()
		case "up":
			m.pan(0, -0.1)
			return m, m.requestMeshes()
		case "down":
			m.pan(0, 0.1)
			return m, m.requestMeshes()
		case "left":
			m.pan(-0.1, 0)
			return m, m.requestMeshes()
		case "right":
			m.pan(0.1, 0)
			return m, m.requestMeshes()
		case "f":
			m.fitView()
			return m, m.requestMeshes()
		case "o":
			m.view.Alpha = float32(clampf(math.Round(float64(m.view.Alpha)*10-1)/10, 0.1, 1))
			m.status = fmt.Sprintf("opacity: %.1f", m.view.Alpha)
		case "O":
			m.view.Alpha = float32(clampf(math.Round(float64(m.view.Alpha)*10+1)/10, 0.1, 1))
			m.status = fmt.Sprintf("opacity: %.1f", m.view.Alpha)
		case "c":
			return m, m.setScale(nextScale(m.scale))
		case "t":
			m.tiled = !m.tiled
			m.status = fmt.Sprintf("tiled: %v", m.tiled)
			return m, m.requestMeshes()
		case "s":
			m.showSamples = !m.showSamples
			m.status = fmt.Sprintf("samples: %v", m.showSamples)
		case "g":
			m.showTiles = !m.showTiles
			m.status = fmt.Sprintf("tile outlines: %v", m.showTiles)
		case "tab":
			m.showSidebar = !m.showSidebar
			if m.showSidebar {
				m.refreshDir()
			}
			return m, m.resize()
		case "p":
			m.pasteMode = true
			m.ta.SetValue("")
			m.status = "paste mode"
			m.ta.Focus()
		case "h":
			m.helpVisible = !m.helpVisible
		case "a":
			m.showAttrs = true
			m.refreshAttrs()
		case "i":
			if m.inspectPopup != "" {
				m.inspectPopup = ""
			} else {
				m.inspectPopup = m.stats()
				m.status = "stats popup"
			}
		case "enter":
			if m.showSidebar {
				if it, ok := m.l.SelectedItem().(fileItem); ok {
					return m, m.loadPath(it.path)
				}
			}
		}
	case tea.MouseMsg:
		lay := m.layout()
		cx, cy := msg.X, msg.Y
		if cx >= lay.mapX && cx < lay.mapX+lay.mapW && cy >= lay.mapY && cy < lay.mapY+lay.mapH {
			m.hovering = true
			m.hoverCellX = cx - lay.mapX
			m.hoverCellY = cy - lay.mapY
			m.hover()
		} else {
			m.hovering = false
			m.hoverHasGeo = false
		}
	}
	// Pass messages to list when visible
	if m.showSidebar {
		var cmd tea.Cmd
		m.l, cmd = m.l.Update(msg)
		return m, cmd
	}
	return m, nil
}

// hover reads the position and the nearest sample under the hovered cell.
func (m *Model) hover() {
	px, py := float64(m.hoverCellX)+0.5, float64(2*m.hoverCellY)+1
	m.hoverLat, m.hoverLon = m.view.LatLon(px, py)
	m.hoverHasGeo = true
	m.hoverValue = ""

	best := math.Inf(1)
	for _, s := range m.store.Current().Samples() {
		if !s.HasPosition() || !s.HasValue() {
			continue
		}
		sx, sy := m.view.Pixel(s.Lat, s.Lon)
		d := (sx-px)*(sx-px) + (sy-py)*(sy-py)
		if d < best && d <= 4*4 {
			best = d
			m.hoverValue = fmt.Sprintf("value=%g", s.Value)
		}
	}
}

// stats describes the dataset and its meshes for the popup.
func (m Model) stats() string {
	d := m.store.Current()
	name := filepath.Base(m.selPath)
	if m.selPath == "" {
		name = "<pasted>"
	}
	lines := []string{
		fmt.Sprintf("name: %s", name),
		fmt.Sprintf("samples: %d  version: %d", d.Len(), d.Version()),
	}
	if b, ok := d.Bounds(); ok {
		rows, cols := m.cfg.Mesher.GridSize(b)
		cfg := m.cfg.Mesher.Config()
		lines = append(lines,
			fmt.Sprintf("lat: [%.5f, %.5f]", b.MinLat, b.MaxLat),
			fmt.Sprintf("lon: [%.5f, %.5f]", b.MinLon, b.MaxLon),
			fmt.Sprintf("value: [%g, %g]", b.MinVal, b.MaxVal),
			fmt.Sprintf("grid: %d×%d cells of %g°×%g°", rows, cols, cfg.CellLat, cfg.CellLon),
		)
	}
	s, n := m.meshStats()
	c := m.layer.Counts()
	lines = append(lines,
		fmt.Sprintf("scale: %s  opacity: %.1f  zoom: %.1f", m.scale, m.view.Alpha, m.view.ZoomLevel),
		fmt.Sprintf("meshes: %d  ready=%d stale=%d building=%d", n, c[tiles.Ready], c[tiles.Stale], c[tiles.Building]),
		fmt.Sprintf("vertices: %d (%d sampled)  indices: %d", s.Vertices, s.ValidCount, s.Indices),
		fmt.Sprintf("buffers: %s half / %s float32", formatBytes(s.TotalFloat16), formatBytes(s.TotalFloat32)),
	)
	return strings.Join(lines, "\n")
}

func nextScale(name string) string {
	names := colormap.Names()
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}
