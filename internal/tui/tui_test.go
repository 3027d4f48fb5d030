package tui

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"fieldmap/internal/colormap"
	"fieldmap/internal/tiles"
)

func writeGrid(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("lat,lon,value\n")
	for la := 0; la <= 10; la++ {
		for lo := 0; lo <= 10; lo++ {
			fmt.Fprintf(&sb, "%g,%g,%d\n", 51+0.05*float64(la), -0.5+0.1*float64(lo), la+lo)
		}
	}
	path := filepath.Join(t.TempDir(), "grid.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// loaded returns a sized model with path loaded and its meshes built.
func loaded(t *testing.T, cfg Config) Model {
	t.Helper()
	m := New(cfg)
	if cmd := m.loadPath(writeGrid(t)); cmd != nil {
		t.Fatal("meshes requested before the window size is known")
	}
	next, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("no mesh request after resize")
	}
	next, _ = m.Update(cmd())
	return next.(Model)
}

func TestLoadBuildsViewportMesh(t *testing.T) {
	m := loaded(t, Config{})
	if got := len(m.meshes()); got != 1 {
		t.Fatalf("%d meshes, want the full mesh", got)
	}
	if m.layer.State(tiles.FullKey) != tiles.Ready {
		t.Errorf("full mesh is %v", m.layer.State(tiles.FullKey))
	}
	center := m.pixel(m.meshes(), float64(m.view.Viewport[0])/2, float64(m.view.Viewport[1])/2)
	if center == background {
		t.Error("field not drawn at the viewport center")
	}
	corner := m.pixel(m.meshes(), 0.5, 0.5)
	if corner != background {
		t.Errorf("corner outside the data = %v, want background", corner)
	}
	if v := m.View(); !strings.Contains(v, "fieldmap") {
		t.Error("View() lacks the header")
	}
}

func TestFitViewShowsWholeField(t *testing.T) {
	m := loaded(t, Config{})
	b, _ := m.store.Current().Bounds()
	for _, p := range [][2]float64{{b.MinLat, b.MinLon}, {b.MaxLat, b.MaxLon}} {
		px, py := m.view.Pixel(p[0], p[1])
		if px < 0 || py < 0 || px > float64(m.view.Viewport[0]) || py > float64(m.view.Viewport[1]) {
			t.Errorf("corner %v at pixel (%g, %g) is off screen", p, px, py)
		}
	}
}

func TestTiledViewport(t *testing.T) {
	m := loaded(t, Config{Tiled: true})
	if len(m.keys) == 0 || len(m.keys) > maxTiles {
		t.Fatalf("%d tile keys", len(m.keys))
	}
	minZoom := tiles.MinTileZoom(m.cfg.Mesher.Config())
	for _, k := range m.keys {
		if k.Full || k.Tile.Z < minZoom {
			t.Errorf("key %s below the minimum tile zoom %d", k, minZoom)
		}
	}
	if len(m.meshes()) == 0 {
		t.Error("no tile mesh built")
	}
}

func TestOpacityOnlyChangesUniforms(t *testing.T) {
	m := loaded(t, Config{Alpha: 1})
	before := m.meshes()[0]
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'o'}})
	m = next.(Model)
	if cmd != nil {
		t.Error("opacity change requested meshes")
	}
	if m.view.Alpha != 0.9 {
		t.Errorf("alpha = %g, want 0.9", m.view.Alpha)
	}
	if m.meshes()[0] != before {
		t.Error("opacity change rebuilt the mesh")
	}
}

func TestScaleChangeRebuilds(t *testing.T) {
	m := loaded(t, Config{})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	m = next.(Model)
	if m.scale == colormap.DefaultScale {
		t.Fatal("scale unchanged")
	}
	if cmd == nil {
		t.Fatal("scale change did not request meshes")
	}
	next, _ = m.Update(cmd())
	m = next.(Model)
	if len(m.meshes()) != 1 {
		t.Error("mesh not rebuilt for the new scale")
	}
}

func TestPasteMode(t *testing.T) {
	m := loaded(t, Config{})
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	m = next.(Model)
	if !m.pasteMode {
		t.Fatal("paste mode not entered")
	}
	m.ta.SetValue("10,20,1\n10.5,20.5,2\n11,21,3")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = next.(Model)
	if m.pasteMode {
		t.Error("still in paste mode")
	}
	if got := m.store.Current().Len(); got != 3 {
		t.Fatalf("pasted dataset has %d samples", got)
	}
	if cmd == nil {
		t.Fatal("paste did not request meshes")
	}
	next, _ = m.Update(cmd())
	m = next.(Model)
	if len(m.meshes()) != 1 {
		t.Error("pasted field not meshed")
	}
}

func TestStatsPopup(t *testing.T) {
	m := loaded(t, Config{})
	s := m.stats()
	for _, want := range []string{"samples: 121", "grid: 10×10", "vertices: 121 (121 sampled)"} {
		if !strings.Contains(s, want) {
			t.Errorf("stats lack %q:\n%s", want, s)
		}
	}
}

func TestOver(t *testing.T) {
	bg := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	if got := over(color.RGBA{}, bg); got != bg {
		t.Errorf("transparent over bg = %v", got)
	}
	opaque := color.RGBA{R: 200, G: 100, B: 0, A: 255}
	if got := over(opaque, bg); got != opaque {
		t.Errorf("opaque over bg = %v", got)
	}
	half := color.RGBA{R: 100, G: 50, B: 0, A: 128}
	if got := over(half, bg); got.R != 105 || got.G != 60 || got.B != 15 || got.A != 255 {
		t.Errorf("half over bg = %v", got)
	}
}

func TestBraille(t *testing.T) {
	b := newBrailleBuf(2, 1)
	b.setPixel(0, 0)
	b.setPixel(1, 3)
	b.setPixel(10, 10)
	if g, ok := b.glyph(0, 0); !ok || g != "\u2881" {
		t.Errorf("glyph(0, 0) = %q", g)
	}
	if _, ok := b.glyph(1, 0); ok {
		t.Error("empty cell has a glyph")
	}
	b.drawLineMicro(0, 0, 3, 0)
	if g, _ := b.glyph(1, 0); g != "\u2809" {
		t.Errorf("line glyph = %q", g)
	}
}

func TestNextScale(t *testing.T) {
	names := colormap.Names()
	seen := map[string]bool{}
	s := names[0]
	for range names {
		seen[s] = true
		s = nextScale(s)
	}
	if len(seen) != len(names) || s != names[0] {
		t.Errorf("cycle visited %v", seen)
	}
}
