package camera

import "github.com/gogpu/imdraw/vecmath"

// PointerRay returns the world space ray under the pixel (x, y), with the
// origin at the top-left of the viewport. The object transform does not
// participate.
func (m Matrices) PointerRay(x, y float32) vecmath.Ray {
	inv, ok := m.ViewProjection.Inverse()
	if !ok {
		return vecmath.Ray{Dir: vecmath.V3(0, 0, -1)}
	}
	w := max(m.Width, minViewport)
	h := max(m.Height, minViewport)
	ndcX := 2*x/w - 1
	ndcY := 1 - 2*y/h
	return vecmath.Unproject(inv, ndcX, ndcY)
}
