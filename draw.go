package imdraw

import (
	"github.com/gogpu/imdraw/internal/batch"
	"github.com/gogpu/imdraw/vecmath"
)

// === Color batch ===

// Begin opens a color batch. Width is the line width or point size in
// pixels and is ignored for triangles.
func (c *Context) Begin(mode Mode, width float32) {
	c.color.Begin(mode, width)
}

// Vertex appends a colored vertex and returns its index in the batch.
func (c *Context) Vertex(pos vecmath.Vec3, col Color) uint32 {
	return c.color.Vertex(batch.ColorVertex{Pos: pos, Color: uint32(col)})
}

// Index appends an index to the open color batch. A batch without
// indices draws its vertices in order.
func (c *Context) Index(i uint32) {
	c.color.Index(i)
}

// End flushes the color batch as one draw call.
func (c *Context) End() {
	c.color.End()
}

// === Textured batch ===

// BeginTriangles opens a textured triangle batch. A nil texture samples
// the 1x1 white fallback, leaving the vertex color alone.
func (c *Context) BeginTriangles(tex *Texture) {
	c.tex.Begin(Triangles, 0)
	c.tex.SetTexture(tex.ID())
}

// TexVertex appends a textured vertex and returns its index in the batch.
func (c *Context) TexVertex(pos vecmath.Vec3, uv vecmath.Vec2, col Color) uint32 {
	return c.tex.Vertex(batch.TexVertex{Pos: pos, UV: uv, Color: uint32(col)})
}

// TexIndex appends an index to the open textured batch.
func (c *Context) TexIndex(i uint32) {
	c.tex.Index(i)
}

// EndTriangles flushes the textured batch as one draw call.
func (c *Context) EndTriangles() {
	c.tex.End()
}
