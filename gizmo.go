package imdraw

import (
	"github.com/gogpu/imdraw/gizmo"
	"github.com/gogpu/imdraw/vecmath"
)

// GizmoID identifies a manipulated point across frames.
type GizmoID = gizmo.ID

// NewGizmoID returns a fresh identity for a point passed to
// ManipulatePosition.
func (c *Context) NewGizmoID() GizmoID { return gizmo.NewID() }

// ManipulatePosition draws translation handles at *v and moves *v while
// one of them is dragged. It reports whether *v changed this frame.
//
// The innermost camera must be a 3D camera; otherwise nothing happens.
// Handles are drawn in world space, ignoring the object transform. Call
// it once per frame for every point that should stay interactive.
func (c *Context) ManipulatePosition(id GizmoID, v *vecmath.Vec3, size float32) bool {
	cam, ok := c.stack.Camera()
	if !ok {
		return false
	}
	object := c.stack.ObjectTransform()
	c.stack.SetObjectIdentity()
	defer c.stack.SetObjectTransform(object)

	f := c.gizmos.Frame(c.stack.Matrices(), cam)
	return c.gizmos.ManipulatePosition(gizmoDrawer{c}, f, id, v, size)
}

// GizmoGrabbed reports which point, if any, is being dragged.
func (c *Context) GizmoGrabbed() (GizmoID, bool) {
	id, _, ok := c.gizmos.Grabbed()
	return id, ok
}

// gizmoDrawer routes handle geometry into the color batch.
type gizmoDrawer struct{ c *Context }

func (d gizmoDrawer) DrawLine(a, b vecmath.Vec3, col gizmo.Color, width float32) {
	d.c.Line(a, b, Color(col), width)
}

func (d gizmoDrawer) DrawPolyline(pts []vecmath.Vec3, col gizmo.Color, width float32) {
	d.c.Polyline(pts, Color(col), width)
}

func (d gizmoDrawer) DrawQuad(a, b, e, f vecmath.Vec3, col gizmo.Color) {
	d.c.Quad(a, b, e, f, Color(col))
}
