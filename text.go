package imdraw

import (
	"github.com/gogpu/imdraw/camera"
	"github.com/gogpu/imdraw/internal/batch"
	"github.com/gogpu/imdraw/vecmath"
)

// Text draws s with its top-left corner at the screen position of pos.
// The glyphs face the viewer regardless of the camera, at scale times the
// 7x13 pixel font size. Lines break at '\n'. Text anchored behind the
// camera is not drawn.
func (c *Context) Text(pos vecmath.Vec3, s string, col Color, scale float32) {
	if s == "" {
		return
	}
	if scale <= 0 {
		scale = 1
	}
	m := c.stack.Matrices()
	clip := m.Combined.MulVec4(pos.Point())
	if clip.W <= 0 {
		return
	}
	ndc := clip.PerspectiveDivide()
	x := (ndc.X + 1) / 2 * m.Width
	y := (1 - ndc.Y) / 2 * m.Height

	quads := c.atlas.Layout(s)
	if len(quads) == 0 {
		return
	}
	if err := c.atlas.Sync(c.dev); err != nil {
		Logger().Warn("imdraw: text dropped", "text", s, "err", err)
		return
	}

	object := c.stack.ObjectTransform()
	c.stack.Push(camera.Canvas2D{})
	c.stack.SetObjectIdentity()
	defer func() {
		c.stack.SetObjectTransform(object)
		c.stack.Pop()
	}()

	c.text.Begin(Triangles, 0)
	c.text.SetTexture(c.atlas.Texture())
	for _, q := range quads {
		x0, y0 := x+q.X0*scale, y+q.Y0*scale
		x1, y1 := x+q.X1*scale, y+q.Y1*scale
		i := c.text.Vertex(batch.TexVertex{Pos: vecmath.V3(x0, y0, 0), UV: vecmath.V2(q.U0, q.V0), Color: uint32(col)})
		c.text.Vertex(batch.TexVertex{Pos: vecmath.V3(x1, y0, 0), UV: vecmath.V2(q.U1, q.V0), Color: uint32(col)})
		c.text.Vertex(batch.TexVertex{Pos: vecmath.V3(x1, y1, 0), UV: vecmath.V2(q.U1, q.V1), Color: uint32(col)})
		c.text.Vertex(batch.TexVertex{Pos: vecmath.V3(x0, y1, 0), UV: vecmath.V2(q.U0, q.V1), Color: uint32(col)})
		for _, k := range quadIndices {
			c.text.Index(i + k)
		}
	}
	c.text.End()
}

// MeasureText returns the unscaled pixel size of s.
func (c *Context) MeasureText(s string) (width, height int) {
	return c.atlas.Measure(s)
}

// quadIndices triangulates a quad given in winding order.
var quadIndices = [6]uint32{0, 1, 2, 0, 2, 3}
