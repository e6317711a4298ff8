// Package gizmo implements pointer-driven manipulation handles for moving a
// point in 3D.
//
// A [Session] tracks the pointer across frames and owns the single grab
// record. Each frame the caller feeds the pointer to [Session.Update], builds
// a [Frame] from the active camera and calls [Session.ManipulatePosition]
// once per point that should stay interactive:
//
//	s.Update(gizmo.Pointer{X: x, Y: y, Down: pressed})
//	f := s.Frame(stack.Matrices(), cam)
//	moved := s.ManipulatePosition(drawer, f, id, &p, 1)
//
// Every point offers seven handles: three axis lines (X, Y, Z), three
// plane squares (YZ, XZ, XY) and one camera-facing free handle. Dragging an
// axis handle moves the point along that axis only. Plane handles move it
// within the plane, and the free handle moves it in the plane facing the
// camera at the moment of the grab.
package gizmo
