package batch

import "github.com/gogpu/imdraw/vecmath"

// ColorVertex is the vertex of the color pipeline.
// Layout per vertex:
//
//	position (vec3<f32>)     = 12 bytes (location 0)
//	color    (vec4<u8norm>)  = 4 bytes  (location 1)
//
// Total = 16 bytes per vertex.
type ColorVertex struct {
	Pos   vecmath.Vec3
	Color uint32
}

// TexVertex is the vertex of the textured and text pipelines.
// Layout per vertex:
//
//	position (vec3<f32>)     = 12 bytes (location 0)
//	uv       (vec2<f32>)     = 8 bytes  (location 1)
//	color    (vec4<u8norm>)  = 4 bytes  (location 2)
//
// Total = 24 bytes per vertex.
type TexVertex struct {
	Pos   vecmath.Vec3
	UV    vecmath.Vec2
	Color uint32
}

// Vertex strides in bytes.
const (
	ColorVertexStride = 16
	TexVertexStride   = 24
)
