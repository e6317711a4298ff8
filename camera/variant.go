package camera

import "github.com/gogpu/imdraw/vecmath"

// Variant is one entry of the camera stack. The set of variants is
// closed: [None], [Canvas2D] and [View3D].
type Variant interface {
	// View returns the world-to-view transform.
	View() vecmath.Mat4
	// Projection returns the view-to-clip transform for a viewport in pixels.
	Projection(width, height float32) vecmath.Mat4

	variant()
}

// None passes positions through untouched: vertices are already in clip space.
type None struct{}

// Canvas2D maps pixel coordinates to clip space with the origin at the
// top-left corner and Y pointing down.
type Canvas2D struct{}

// View3D renders through a [Camera].
type View3D struct {
	Camera Camera
}

func (None) variant()     {}
func (Canvas2D) variant() {}
func (View3D) variant()   {}

// View implements [Variant].
func (None) View() vecmath.Mat4 { return vecmath.Identity() }

// Projection implements [Variant].
func (None) Projection(_, _ float32) vecmath.Mat4 { return vecmath.Identity() }

// View implements [Variant].
func (Canvas2D) View() vecmath.Mat4 { return vecmath.Identity() }

// Projection implements [Variant].
func (Canvas2D) Projection(width, height float32) vecmath.Mat4 {
	if width < minViewport {
		width = minViewport
	}
	if height < minViewport {
		height = minViewport
	}
	return vecmath.Ortho(0, width, height, 0, -1, 1)
}

// View implements [Variant].
func (v View3D) View() vecmath.Mat4 { return v.Camera.ViewMatrix() }

// Projection implements [Variant].
func (v View3D) Projection(width, height float32) vecmath.Mat4 {
	return v.Camera.ProjectionMatrix(width, height)
}

// Name returns a short label for logging.
func Name(v Variant) string {
	switch v.(type) {
	case None:
		return "none"
	case Canvas2D:
		return "canvas2d"
	case View3D:
		return "3d"
	default:
		return "unknown"
	}
}
