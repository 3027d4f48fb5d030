package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"fieldmap/internal/source"
)

type fileItem struct {
	title, desc string
	path        string
}

func (f fileItem) Title() string       { return f.title }
func (f fileItem) Description() string { return f.desc }
func (f fileItem) FilterValue() string { return f.title }

func (m *Model) refreshDir() {
	entries, err := os.ReadDir(m.cwd)
	if err != nil {
		m.status = "read dir error: " + err.Error()
		return
	}
	var items []list.Item
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if slices.Contains(source.Extensions, ext) {
			items = append(items, fileItem{title: name, desc: ext, path: filepath.Join(m.cwd, name)})
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].(fileItem).Title() < items[j].(fileItem).Title() })
	m.items = items
	m.l.SetItems(items)
	if len(items) == 0 {
		m.status = "no supported files in current directory"
	}
}

// loadPath decodes p and publishes its samples.
func (m *Model) loadPath(p string) tea.Cmd {
	samples, err := source.Load(p, source.WithValueKey(m.cfg.ValueKey))
	if err != nil {
		m.status = "load error: " + err.Error()
		return nil
	}
	m.selPath = p
	cmd := m.publish(samples)
	if !strings.HasPrefix(m.status, "no sample") {
		m.status = fmt.Sprintf("loaded: %s  samples=%d", filepath.Base(p), len(samples))
	}
	return cmd
}
