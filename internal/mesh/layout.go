package mesh

import "github.com/gogpu/gputypes"

// Buffer strides in bytes.
const (
	PositionStride = 4 // Float16x2
	ColorStride    = 4 // Unorm8x4
)

// Shader locations of the vertex attributes.
const (
	PositionLocation = 0
	ColorLocation    = 1
)

// VertexLayouts describes the two vertex buffers of a mesh: positions in
// slot 0 (PositionBytes) and colors in slot 1 (ColorBytes).
func VertexLayouts() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: PositionStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat16x2, Offset: 0, ShaderLocation: PositionLocation},
			},
		},
		{
			ArrayStride: ColorStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatUnorm8x4, Offset: 0, ShaderLocation: ColorLocation},
			},
		},
	}
}

// PrimitiveState is the rasterizer setup matching the winding of the index
// buffer: every grid triangle is counter-clockwise on screen, so back faces
// can be culled.
func PrimitiveState() gputypes.PrimitiveState {
	return gputypes.PrimitiveState{
		Topology:  gputypes.PrimitiveTopologyTriangleList,
		FrontFace: gputypes.FrontFaceCCW,
		CullMode:  gputypes.CullModeBack,
	}
}

// IndexFormat is the format of IndexBytes.
func IndexFormat() gputypes.IndexFormat {
	return gputypes.IndexFormatUint16
}
