// Package export writes meshes in the form a GPU upload step consumes: raw
// little endian buffers, the compiled program and a JSON manifest describing
// how to bind them.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fieldmap/internal/mesh"
	"fieldmap/internal/projection"
	"fieldmap/internal/tiles"
)

// File names inside a mesh directory.
const (
	PositionsFile = "positions.bin"
	ColorsFile    = "colors.bin"
	IndicesFile   = "indices.bin"
	ProgramFile   = "program.spv"
	ManifestFile  = "mesh.json"
)

var ErrNoMesh = errors.New("export: no mesh")

// Attribute describes one vertex buffer.
type Attribute struct {
	File     string `json:"file"`
	Format   string `json:"format"`
	Stride   int    `json:"stride"`
	Location int    `json:"location"`
}

// Manifest is written next to the buffers of one mesh.
type Manifest struct {
	Key         string      `json:"key"`
	Rows        int         `json:"rows"`
	Cols        int         `json:"cols"`
	FromLat     int         `json:"fromLat"`
	FromLon     int         `json:"fromLon"`
	OffsetScale [4]float32  `json:"offsetScale"`
	ClipBounds  [4]float32  `json:"clipBounds"`
	Alpha       float32     `json:"alpha"`
	Attributes  []Attribute `json:"attributes"`
	Indices     string      `json:"indices"`
	IndexFormat string      `json:"indexFormat"`
	Topology    string      `json:"topology"`
	FrontFace   string      `json:"frontFace"`
	CullMode    string      `json:"cullMode"`
	Program     string      `json:"program,omitempty"`
	VertexEntry string      `json:"vertexEntryPoint"`
	FragEntry   string      `json:"fragmentEntryPoint"`
	Stats       mesh.Stats  `json:"stats"`
}

// NewManifest describes m under key.
func NewManifest(key string, m *mesh.Mesh, alpha float32, withProgram bool) Manifest {
	man := Manifest{
		Key:         key,
		Rows:        m.Rows(),
		Cols:        m.Cols(),
		FromLat:     m.Range.FromLat,
		FromLon:     m.Range.FromLon,
		OffsetScale: m.OffsetScale,
		ClipBounds:  m.ClipBounds,
		Alpha:       alpha,
		Attributes: []Attribute{
			{File: PositionsFile, Format: "float16x2", Stride: mesh.PositionStride, Location: mesh.PositionLocation},
			{File: ColorsFile, Format: "unorm8x4", Stride: mesh.ColorStride, Location: mesh.ColorLocation},
		},
		Indices:     IndicesFile,
		IndexFormat: "uint16",
		Topology:    "triangle-list",
		FrontFace:   "ccw",
		CullMode:    "back",
		VertexEntry: projection.VertexEntryPoint,
		FragEntry:   projection.FragmentEntryPoint,
		Stats:       m.Stats(),
	}
	if withProgram {
		man.Program = ProgramFile
	}
	return man
}

// WriteMesh writes the buffers and manifest of m into dir, creating it.
// prog may be nil when no shader compiler is available.
func WriteMesh(dir, key string, m *mesh.Mesh, alpha float32, prog *projection.Program) error {
	if m == nil {
		return ErrNoMesh
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	files := map[string][]byte{
		PositionsFile: m.PositionBytes(),
		ColorsFile:    m.ColorBytes(),
		IndicesFile:   m.IndexBytes(),
	}
	if prog != nil {
		files[ProgramFile] = prog.SPIRVBytes()
	}
	man, err := json.MarshalIndent(NewManifest(key, m, alpha, prog != nil), "", "  ")
	if err != nil {
		return err
	}
	files[ManifestFile] = append(man, '\n')

	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	return nil
}

// WriteLayer writes every drawable mesh of keys under root: the full mesh in
// root itself and tile z/x/y in root/z/x/y. It returns how many meshes were
// written.
func WriteLayer(root string, layer *tiles.Layer, keys []tiles.Key, alpha float32, prog *projection.Program) (int, error) {
	n := 0
	for _, k := range keys {
		m, ok := layer.Mesh(k)
		if !ok {
			continue
		}
		dir := root
		if !k.Full {
			dir = filepath.Join(root, fmt.Sprint(k.Tile.Z), fmt.Sprint(k.Tile.X), fmt.Sprint(k.Tile.Y))
		}
		if err := WriteMesh(dir, k.String(), m, alpha, prog); err != nil {
			return n, err
		}
		n++
	}
	if n == 0 {
		return 0, ErrNoMesh
	}
	return n, nil
}
