package tui

import (
	"os"

	list "github.com/charmbracelet/bubbles/list"
	table "github.com/charmbracelet/bubbles/table"
	textarea "github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"fieldmap/internal/colormap"
	"fieldmap/internal/field"
	"fieldmap/internal/mesh"
	"fieldmap/internal/projection"
	"fieldmap/internal/tiles"
)

// Config holds the viewer settings chosen on the command line.
type Config struct {
	Scale    string
	Alpha    float64
	Tiled    bool
	ValueKey string
	Mesher   *mesh.Mesher
}

func (c Config) withDefaults() Config {
	if c.Scale == "" {
		c.Scale = colormap.DefaultScale
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		c.Alpha = projection.DefaultAlpha
	}
	if c.Mesher == nil {
		c.Mesher = mesh.NewMesher()
	}
	return c
}

type Model struct {
	width  int
	height int

	showSidebar bool
	helpVisible bool

	status string

	// File explorer
	cwd     string
	l       list.Model
	items   []list.Item
	selPath string

	// Field layer
	cfg     Config
	store   *field.Store
	layer   *tiles.Layer
	scale   string
	tiled   bool
	keys    []tiles.Key
	view    projection.LayerUniforms
	needFit bool
	pending int

	// last rendered map size in cells
	mapW int
	mapH int

	// overlays
	showSamples bool
	showTiles   bool

	// paste mode
	pasteMode bool
	ta        textarea.Model

	// stats popup
	inspectPopup string

	// hover state
	hovering    bool
	hoverCellX  int
	hoverCellY  int
	hoverHasGeo bool
	hoverLat    float64
	hoverLon    float64
	hoverValue  string

	// samples table
	showAttrs bool
	tbl       table.Model
}

func New(cfg Config) Model {
	cfg = cfg.withDefaults()
	m := Model{
		showSidebar: false,
		helpVisible: true,
		status:      "fieldmap ready",
		cfg:         cfg,
		store:       field.NewStore(),
		scale:       cfg.Scale,
		tiled:       cfg.Tiled,
		showSamples: false,
	}
	m.view.Alpha = float32(cfg.Alpha)
	m.layer = tiles.NewLayer(m.store, cfg.Mesher, colorFactory(m.scale))
	m.cwd, _ = os.Getwd()
	// list setup
	d := list.NewDefaultDelegate()
	d.ShowDescription = false
	m.l = list.New(nil, d, 0, 0)
	m.l.Title = "Files"
	m.l.SetShowHelp(false)
	m.l.SetShowStatusBar(false)
	m.l.SetFilteringEnabled(true)
	// textarea setup
	m.ta = textarea.New()
	m.ta.Placeholder = "Paste lat,lon,value rows here. Ctrl+S to render; Esc to cancel."
	m.ta.CharLimit = 0
	m.ta.SetWidth(50)
	m.ta.SetHeight(6)
	m.tbl = table.New(table.WithFocused(true))
	m.tbl.SetHeight(12)
	m.refreshDir()
	return m
}

// NewWithPath preloads a file's samples at launch.
func NewWithPath(cfg Config, path string) Model {
	m := New(cfg)
	m.loadPath(path)
	return m
}

// Init does nothing: meshes are requested once the window size is known.
func (m Model) Init() tea.Cmd { return nil }
