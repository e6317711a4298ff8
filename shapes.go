package imdraw

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/imdraw/vecmath"
)

// Debug shapes. Each call is one batch and so one draw call.

// Line draws a segment.
func (c *Context) Line(a, b vecmath.Vec3, col Color, width float32) {
	c.Begin(Lines, width)
	c.Vertex(a, col)
	c.Vertex(b, col)
	c.End()
}

// Polyline draws a connected strip through pts.
func (c *Context) Polyline(pts []vecmath.Vec3, col Color, width float32) {
	if len(pts) < 2 {
		return
	}
	c.Begin(LineStrip, width)
	for _, p := range pts {
		c.Vertex(p, col)
	}
	c.End()
}

// Point draws a point of size pixels.
func (c *Context) Point(p vecmath.Vec3, col Color, size float32) {
	c.Begin(Points, size)
	c.Vertex(p, col)
	c.End()
}

// boxEdges lists the 12 edges of a box over its corner indices, where
// bit 0, 1 and 2 of a corner select max X, Y and Z.
var boxEdges = [24]uint32{
	0, 1, 2, 3, 4, 5, 6, 7,
	0, 2, 1, 3, 4, 6, 5, 7,
	0, 4, 1, 5, 2, 6, 3, 7,
}

// Box draws the wire frame of the axis aligned box [lo, hi].
func (c *Context) Box(lo, hi vecmath.Vec3, col Color, width float32) {
	c.Begin(Lines, width)
	for i := range 8 {
		p := lo
		if i&1 != 0 {
			p.X = hi.X
		}
		if i&2 != 0 {
			p.Y = hi.Y
		}
		if i&4 != 0 {
			p.Z = hi.Z
		}
		c.Vertex(p, col)
	}
	for _, i := range boxEdges {
		c.Index(i)
	}
	c.End()
}

// Circle draws a circle of radius r around center in the plane spanned by
// the unit vectors u and v, using segments line segments.
func (c *Context) Circle(center, u, v vecmath.Vec3, r float32, segments int, col Color, width float32) {
	segments = max(segments, 3)
	c.Begin(Lines, width)
	for i := range segments {
		s, k := math32.Sincos(2 * math32.Pi * float32(i) / float32(segments))
		c.Vertex(center.Add(u.Mul(k*r)).Add(v.Mul(s*r)), col)
	}
	for i := range segments {
		c.Index(uint32(i))                  //nolint:gosec // segment counts are small
		c.Index(uint32((i + 1) % segments)) //nolint:gosec // segment counts are small
	}
	c.End()
}

// Grid draws a square grid of 2*n cells per side and the given spacing in
// the XZ plane, or the XY plane for Z-up scenes.
func (c *Context) Grid(n int, spacing float32, zUp bool, col Color, width float32) {
	n = max(n, 1)
	ext := float32(n) * spacing
	at := func(a, b float32) vecmath.Vec3 {
		if zUp {
			return vecmath.V3(a, b, 0)
		}
		return vecmath.V3(a, 0, b)
	}
	c.Begin(Lines, width)
	for i := -n; i <= n; i++ {
		o := float32(i) * spacing
		c.Vertex(at(o, -ext), col)
		c.Vertex(at(o, ext), col)
		c.Vertex(at(-ext, o), col)
		c.Vertex(at(ext, o), col)
	}
	c.End()
}

// Axes draws the X, Y and Z axes of the current object space in red,
// green and blue.
func (c *Context) Axes(length, width float32) {
	o := vecmath.Vec3{}
	c.Begin(Lines, width)
	c.Vertex(o, Red)
	c.Vertex(vecmath.UnitX.Mul(length), Red)
	c.Vertex(o, Green)
	c.Vertex(vecmath.UnitY.Mul(length), Green)
	c.Vertex(o, Blue)
	c.Vertex(vecmath.UnitZ.Mul(length), Blue)
	c.End()
}

// Quad draws a filled quad with corners in winding order.
func (c *Context) Quad(a, b, d, e vecmath.Vec3, col Color) {
	c.Begin(Triangles, 0)
	c.Vertex(a, col)
	c.Vertex(b, col)
	c.Vertex(d, col)
	c.Vertex(e, col)
	for _, i := range quadIndices {
		c.Index(i)
	}
	c.End()
}

// TexturedQuad draws tex over a quad with corners in winding order,
// starting at the top-left texel.
func (c *Context) TexturedQuad(tex *Texture, a, b, d, e vecmath.Vec3, tint Color) {
	c.BeginTriangles(tex)
	c.TexVertex(a, vecmath.V2(0, 0), tint)
	c.TexVertex(b, vecmath.V2(1, 0), tint)
	c.TexVertex(d, vecmath.V2(1, 1), tint)
	c.TexVertex(e, vecmath.V2(0, 1), tint)
	for _, i := range quadIndices {
		c.TexIndex(i)
	}
	c.EndTriangles()
}
