// Command fieldmap draws a geographic scalar field in the terminal, or
// exports its meshes for a GPU host.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"fieldmap/internal/colormap"
	"fieldmap/internal/export"
	"fieldmap/internal/field"
	"fieldmap/internal/mesh"
	"fieldmap/internal/projection"
	"fieldmap/internal/source"
	"fieldmap/internal/tiles"
	"fieldmap/internal/tui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

// run parses args and runs the viewer or the export. Files it opens are
// closed before it returns.
func run(args []string) error {
	fs := flag.NewFlagSet("fieldmap", flag.ContinueOnError)
	var (
		scale   = fs.String("scale", colormap.DefaultScale, "color scale: OrRd, Viridis or Greys")
		opacity = fs.Float64("opacity", projection.DefaultAlpha, "layer opacity in (0, 1]")
		cellLat = fs.Float64("cell-lat", mesh.DefaultCellLat, "grid cell height in degrees")
		cellLon = fs.Float64("cell-lon", mesh.DefaultCellLon, "grid cell width in degrees")
		pad     = fs.Int("pad", mesh.DefaultPadding, "cells of padding around tile meshes")
		first   = fs.Bool("first-wins", false, "keep the first sample per vertex instead of the last")
		tiled   = fs.Bool("tiled", false, "build one mesh per map tile instead of one for the field")
		value   = fs.String("value", source.DefaultValueKey, "property or column holding the value")
		out     = fs.String("export", "", "write mesh buffers to this directory and exit")
		logPath = fs.String("log", "", "write debug logs to this file")
	)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: fieldmap [flags] [file.csv|file.geojson|file.fgb]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		mesh.SetLogger(logger)
		tiles.SetLogger(logger)
		defer func() {
			mesh.SetLogger(nil)
			tiles.SetLogger(nil)
		}()
	}

	opts := []mesh.Option{mesh.WithCellSize(*cellLat, *cellLon), mesh.WithPadding(*pad)}
	if *first {
		opts = append(opts, mesh.WithAssignPolicy(mesh.FirstWins))
	}
	mesher := mesh.NewMesher(opts...)

	if *out != "" {
		if fs.NArg() != 1 {
			return errors.New("fieldmap: -export needs one input file")
		}
		n, err := exportMeshes(*out, fs.Arg(0), mesher, *scale, float32(*opacity), *tiled, *value)
		if err != nil {
			mesh.Logger().Error("export failed", "path", fs.Arg(0), "err", err)
			return err
		}
		log.Printf("wrote %d meshes to %s", n, *out)
		return nil
	}

	cfg := tui.Config{Scale: *scale, Alpha: *opacity, Tiled: *tiled, ValueKey: *value, Mesher: mesher}
	var m tea.Model
	if fs.NArg() > 0 {
		m = tui.NewWithPath(cfg, fs.Arg(0))
	} else {
		m = tui.New(cfg)
	}
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run()
	return err
}

// exportMeshes builds the meshes of path and writes them under dir. Tiled
// exports cover the field with tiles at the coarsest zoom that fits.
func exportMeshes(dir, path string, mesher *mesh.Mesher, scale string, alpha float32, tiled bool, valueKey string) (int, error) {
	samples, err := source.Load(path, source.WithValueKey(valueKey))
	if err != nil {
		return 0, err
	}
	if _, err := colormap.New(scale, 0, 1); err != nil {
		return 0, err
	}
	layer := tiles.NewLayer(field.NewStore(), mesher, func(d *field.Dataset) mesh.ColorFunc {
		b, _ := d.Bounds()
		s, _ := colormap.New(scale, b.MinVal, b.MaxVal)
		return s.At
	})
	d := layer.Publish(samples)
	b, ok := d.Bounds()
	if !ok {
		return 0, fmt.Errorf("fieldmap: %s: %w", path, mesh.ErrEmptyInput)
	}

	keys := []tiles.Key{tiles.FullKey}
	if tiled {
		keys = keys[:0]
		for _, t := range tiles.Cover(b.Rect(), tiles.MinTileZoom(mesher.Config())) {
			keys = append(keys, tiles.TileKey(t))
		}
	}
	if err := layer.Request(context.Background(), keys...); err != nil {
		return 0, err
	}

	prog, err := projection.NewProgram("fieldmap")
	if err != nil {
		slog.Warn("exporting without a compiled program", "err", err)
		prog = nil
	}
	return export.WriteLayer(dir, layer, keys, alpha, prog)
}
