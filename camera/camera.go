// Package camera computes view and projection matrices for the immediate
// mode renderer and keeps the stack of active camera variants.
//
// The projection model blends continuously between parallel and
// perspective projection through [Camera.Perspective]. At 0 the frustum
// collapses to an orthographic box whose radius matches the perspective
// frustum at the look-at distance; at 1 the standard symmetric
// perspective matrix is used.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/imdraw/vecmath"
)

// Clamping limits for degenerate camera parameters.
const (
	minDepth    = 1e-4
	minFovY     = 1e-4
	maxFovY     = math32.Pi - 1e-4
	minDistance = 1e-4
	minViewport = 1
)

// Camera describes a look-at camera. It is a plain value; copies are
// independent.
//
// When ZUp is set the stored vectors are still interpreted Y-up, and the
// view matrix rotates world +Z onto the camera's up axis.
type Camera struct {
	Origin vecmath.Vec3
	LookAt vecmath.Vec3
	Up     vecmath.Vec3

	// FovY is the vertical field of view in radians.
	FovY float32

	ZNear float32
	ZFar  float32
	ZUp   bool

	// Perspective blends parallel (0) and perspective (1) projection.
	Perspective float32
}

// Default returns a perspective camera five units in front of the origin.
func Default() Camera {
	return Camera{
		Origin:      vecmath.V3(0, 0, 5),
		LookAt:      vecmath.Vec3{},
		Up:          vecmath.UnitY,
		FovY:        math32.Pi / 4,
		ZNear:       0.1,
		ZFar:        1000,
		Perspective: 1,
	}
}

// zUpFix maps world +Z onto +Y.
func zUpFix() vecmath.Mat4 {
	return vecmath.RotateX(-math32.Pi / 2)
}

// ViewMatrix returns the world-to-view transform.
func (c Camera) ViewMatrix() vecmath.Mat4 {
	v := vecmath.LookAt(c.Origin, c.LookAt, c.Up)
	if c.ZUp {
		v = v.Mul(zUpFix())
	}
	return v
}

// toWorld converts a vector from the camera's stored frame to world space.
func (c Camera) toWorld(p vecmath.Vec3) vecmath.Vec3 {
	if !c.ZUp {
		return p
	}
	return vecmath.RotateX(math32.Pi / 2).TransformPoint(p)
}

// Eye returns the camera position in world space.
func (c Camera) Eye() vecmath.Vec3 {
	return c.toWorld(c.Origin)
}

// Forward returns the unit viewing direction in world space.
func (c Camera) Forward() vecmath.Vec3 {
	return c.toWorld(c.LookAt.Sub(c.Origin)).Normalize()
}

// Basis returns the world space right and up vectors of the view.
// They span the screen plane and are used for billboards.
func (c Camera) Basis() (right, up vecmath.Vec3) {
	f := c.LookAt.Sub(c.Origin).Normalize()
	r := f.Cross(c.Up).Normalize()
	u := r.Cross(f)
	return c.toWorld(r), c.toWorld(u)
}

// Distance returns the clamped distance between origin and look-at point.
func (c Camera) Distance() float32 {
	return math32.Max(c.Origin.Distance(c.LookAt), minDistance)
}

// ProjectionMatrix returns the view-to-clip transform for a viewport of
// the given size in pixels.
func (c Camera) ProjectionMatrix(width, height float32) vecmath.Mat4 {
	zn, zf := c.depthRange()
	fovy := vecmath.Clamp(c.FovY, minFovY, maxFovY)
	aspect := math32.Max(width, minViewport) / math32.Max(height, minViewport)
	p := vecmath.Clamp(c.Perspective, 0, 1)
	if p == 1 {
		return vecmath.Perspective(fovy, aspect, zn, zf)
	}
	return blended(fovy, aspect, zn, zf, c.Distance(), p)
}

func (c Camera) depthRange() (zn, zf float32) {
	zn = math32.Max(c.ZNear, minDepth)
	zf = math32.Max(c.ZFar, minDepth)
	if zf <= zn {
		zf = zn + math32.Max(minDepth, zn*1e-3)
	}
	return zn, zf
}

// blended builds the perspective/orthographic frustum. Its first two
// rows are not normalized: the matrix equals
// tan(fovy/2)*(zf-zn) times the standard perspective matrix at p=1 and
// R*(zf-zn) times the orthographic box of radius R at p=0, which is the
// same clip-space transform up to the homogeneous scale.
func blended(fovy, aspect, zn, zf, dist, p float32) vecmath.Mat4 {
	t := math32.Tan(fovy / 2)
	rOrtho := dist * t
	rn := vecmath.Lerp(rOrtho, zn*t, p)
	rf := vecmath.Lerp(rOrtho, zf*t, p)
	d := zf - zn
	return vecmath.FromRows(
		[4]float32{d / aspect, 0, 0, 0},
		[4]float32{0, d, 0, 0},
		[4]float32{0, 0, -rn - rf, -rn*zf - rf*zn},
		[4]float32{0, 0, rn - rf, rn*zf - rf*zn},
	)
}

// Orbit rotates the origin around the look-at point by yaw about the up
// axis and pitch about the right axis (radians). Pitch stops short of the
// poles.
func (c Camera) Orbit(yaw, pitch float32) Camera {
	offset := c.Origin.Sub(c.LookAt)
	up := c.Up.Normalize()
	offset = rotateAround(offset, up, yaw)

	right := offset.Neg().Cross(up).Normalize()
	next := rotateAround(offset, right, pitch)
	if cos := next.Normalize().Dot(up); math32.Abs(cos) < 0.999 {
		offset = next
	}
	c.Origin = c.LookAt.Add(offset)
	return c
}

// Dolly scales the distance between origin and look-at point.
func (c Camera) Dolly(factor float32) Camera {
	if factor <= 0 {
		return c
	}
	c.Origin = c.LookAt.Add(c.Origin.Sub(c.LookAt).Mul(factor))
	return c
}

// rotateAround applies Rodrigues' rotation of v about the unit axis k.
func rotateAround(v, k vecmath.Vec3, angle float32) vecmath.Vec3 {
	s, co := math32.Sincos(angle)
	return v.Mul(co).Add(k.Cross(v).Mul(s)).Add(k.Mul(k.Dot(v) * (1 - co)))
}
