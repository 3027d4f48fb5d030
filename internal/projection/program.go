package projection

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"

	"fieldmap/internal/mesh"
)

// meshShaderWGSL draws scalar field meshes.
//
//go:embed shaders/mesh.wgsl
var meshShaderWGSL string

// Entry points of the mesh shader.
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
)

// Bind groups of the mesh shader.
const (
	LayerGroup = 0 // LayerUniforms
	MeshGroup  = 1 // MeshUniforms
)

// ShaderSource returns the WGSL source of the mesh program.
func ShaderSource() string {
	return meshShaderWGSL
}

// Program is everything a GPU host needs to build the mesh pipeline. It is
// created by its owning layer and released with it; nothing here is global.
type Program struct {
	Label       string
	Source      string
	SPIRV       []uint32
	Layouts     []gputypes.VertexBufferLayout
	Primitive   gputypes.PrimitiveState
	IndexFormat gputypes.IndexFormat
}

// NewProgram compiles the mesh shader to SPIR-V.
func NewProgram(label string) (*Program, error) {
	spirvBytes, err := naga.Compile(meshShaderWGSL)
	if err != nil {
		return nil, fmt.Errorf("projection: failed to compile %s shader: %w", label, err)
	}

	// SPIR-V is little-endian 32-bit words
	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}

	return &Program{
		Label:       label,
		Source:      meshShaderWGSL,
		SPIRV:       spirv,
		Layouts:     mesh.VertexLayouts(),
		Primitive:   mesh.PrimitiveState(),
		IndexFormat: mesh.IndexFormat(),
	}, nil
}

// SPIRVBytes returns the compiled module as bytes, the form it is stored in
// on disk.
func (p *Program) SPIRVBytes() []byte {
	buf := make([]byte, 0, 4*len(p.SPIRV))
	for _, w := range p.SPIRV {
		buf = binary.LittleEndian.AppendUint32(buf, w)
	}
	return buf
}
