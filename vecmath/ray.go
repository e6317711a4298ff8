package vecmath

import "github.com/chewxy/math32"

// Ray is a half-line origin + t*Dir. Dir is expected to be unit length.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Unproject builds a ray through the normalized device coordinate (x, y)
// using the inverse view-projection matrix. The ray starts on the near
// plane (NDC z=-1) and points at the matching far plane point (NDC z=+1).
func Unproject(invViewProj Mat4, ndcX, ndcY float32) Ray {
	near := invViewProj.TransformPoint(Vec3{X: ndcX, Y: ndcY, Z: -1})
	far := invViewProj.TransformPoint(Vec3{X: ndcX, Y: ndcY, Z: 1})
	return Ray{Origin: near, Dir: far.Sub(near).Normalize()}
}

// LineApproach is the closest approach between a ray and an infinite line.
type LineApproach struct {
	// T is the ray parameter of the closest point on the ray.
	T float32
	// S is the line parameter of the closest point on the line.
	S float32
	// Distance is the distance between the two closest points.
	Distance float32
}

// ClosestApproach computes the closest approach between r and the infinite
// line base + s*axis. The second result is false when the ray and the line
// are parallel.
func ClosestApproach(r Ray, base, axis Vec3) (LineApproach, bool) {
	w0 := r.Origin.Sub(base)
	a := r.Dir.Dot(r.Dir)
	b := r.Dir.Dot(axis)
	c := axis.Dot(axis)
	d := r.Dir.Dot(w0)
	e := axis.Dot(w0)
	denom := a*c - b*b
	if math32.Abs(denom) < Epsilon {
		return LineApproach{}, false
	}
	t := (b*e - c*d) / denom
	s := (a*e - b*d) / denom
	pr := r.At(t)
	pl := base.Add(axis.Mul(s))
	return LineApproach{T: t, S: s, Distance: pr.Distance(pl)}, true
}

// CylinderHit is the result of a ray against a capped cylinder test.
type CylinderHit struct {
	// T is the ray parameter of the closest approach to the cylinder axis.
	T float32
	// Inside reports whether the closest approach lies within the
	// cylinder's radius and between its caps.
	Inside bool
}

// RayCylinder tests r against the cylinder of the given radius whose axis
// runs from base to base + axis*length. The axis is treated as infinite
// when locating the closest approach; Inside is only set when that
// approach lies on the finite body.
func RayCylinder(r Ray, base, axis Vec3, radius, length float32) (CylinderHit, bool) {
	la, ok := ClosestApproach(r, base, axis)
	if !ok {
		return CylinderHit{}, false
	}
	inside := la.Distance <= radius && la.S >= 0 && la.S <= length
	return CylinderHit{T: la.T, Inside: inside}, true
}

// RayPlane intersects r with the plane through point with the given normal.
// The second result is false when the ray is parallel to the plane.
func RayPlane(r Ray, point, normal Vec3) (float32, bool) {
	denom := normal.Dot(r.Dir)
	if math32.Abs(denom) < Epsilon {
		return 0, false
	}
	return normal.Dot(point.Sub(r.Origin)) / denom, true
}

// RaySphere intersects r with a sphere and returns the nearest
// non-negative ray parameter. The second result is false on a miss.
func RaySphere(r Ray, center Vec3, radius float32) (float32, bool) {
	oc := r.Origin.Sub(center)
	b := oc.Dot(r.Dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math32.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}

// InSlab reports whether p, expressed in the plane basis (origin, u, v),
// has both local coordinates inside [lo, hi].
func InSlab(p, origin, u, v Vec3, lo, hi float32) bool {
	d := p.Sub(origin)
	a := d.Dot(u)
	b := d.Dot(v)
	return a >= lo && a <= hi && b >= lo && b <= hi
}
