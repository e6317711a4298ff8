package gizmo

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/imdraw/vecmath"
)

// Kind is the movement constraint of a handle.
type Kind uint8

const (
	// KindAxis constrains movement to a line.
	KindAxis Kind = iota
	// KindPlane constrains movement to an axis-aligned plane.
	KindPlane
	// KindFree constrains movement to the plane facing the camera.
	KindFree
)

// String returns the constraint name.
func (k Kind) String() string {
	switch k {
	case KindAxis:
		return "axis"
	case KindPlane:
		return "plane"
	case KindFree:
		return "free"
	default:
		return "unknown"
	}
}

// Constraint describes how pointer motion maps to movement. Dir is the
// line direction for KindAxis and the plane normal otherwise.
type Constraint struct {
	Kind Kind
	Dir  vecmath.Vec3
}

// Handle geometry relative to the handle size.
const (
	axisRadius  = 0.06
	planeLo     = 0.25
	planeHi     = 0.55
	freeRadius  = 0.12
	circleSteps = 24

	baseWidth = 1

	// highlightAlpha replaces the plane alpha of highlighted plane handles.
	highlightAlpha = 240
)

// Handle indices.
const (
	handleX = iota
	handleY
	handleZ
	handleYZ
	handleXZ
	handleXY
	handleFree
	numHandles
)

var axes = [3]vecmath.Vec3{vecmath.UnitX, vecmath.UnitY, vecmath.UnitZ}

var handleColors = [numHandles]Color{
	handleX:    RGBA(255, 0, 0, 255),
	handleY:    RGBA(0, 255, 0, 255),
	handleZ:    RGBA(0, 0, 255, 255),
	handleYZ:   RGBA(0, 255, 255, 160),
	handleXZ:   RGBA(96, 255, 255, 160),
	handleXY:   RGBA(160, 255, 255, 160),
	handleFree: RGBA(255, 255, 255, 255),
}

// Color is a packed RGBA8 color with red in the low byte.
type Color uint32

// RGBA packs a color.
func RGBA(r, g, b, a uint8) Color {
	return Color(uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24)
}

// Dim halves the color channels and keeps alpha.
func (c Color) Dim() Color {
	rgb := uint32(c) & 0x00FFFFFF
	return Color((rgb>>1)&0x007F7F7F | uint32(c)&0xFF000000)
}

// WithAlpha returns c with its alpha replaced.
func (c Color) WithAlpha(a uint8) Color {
	return Color(uint32(c)&0x00FFFFFF | uint32(a)<<24)
}

// Drawer receives handle geometry in world space.
type Drawer interface {
	DrawLine(a, b vecmath.Vec3, c Color, width float32)
	DrawPolyline(pts []vecmath.Vec3, c Color, width float32)
	DrawQuad(a, b, c, d vecmath.Vec3, col Color)
}

// planeBasis returns the plane's normal and its two in-plane axes.
func planeBasis(h int) (n, u, v vecmath.Vec3) {
	switch h {
	case handleYZ:
		return vecmath.UnitX, vecmath.UnitY, vecmath.UnitZ
	case handleXZ:
		return vecmath.UnitY, vecmath.UnitX, vecmath.UnitZ
	default:
		return vecmath.UnitZ, vecmath.UnitX, vecmath.UnitY
	}
}

// constraint returns the live constraint of handle h.
func constraint(h int, forward vecmath.Vec3) Constraint {
	switch {
	case h <= handleZ:
		return Constraint{Kind: KindAxis, Dir: axes[h]}
	case h == handleFree:
		return Constraint{Kind: KindFree, Dir: forward}
	default:
		n, _, _ := planeBasis(h)
		return Constraint{Kind: KindPlane, Dir: n}
	}
}

// hit tests r against handle h of a gizmo at p and returns the ray
// parameter of the hit.
func hit(h int, r vecmath.Ray, p vecmath.Vec3, size float32) (float32, bool) {
	switch {
	case h <= handleZ:
		ch, ok := vecmath.RayCylinder(r, p, axes[h], size*axisRadius, size)
		if !ok || !ch.Inside || ch.T <= 0 {
			return 0, false
		}
		return ch.T, true
	case h == handleFree:
		return vecmath.RaySphere(r, p, size*freeRadius)
	default:
		n, u, v := planeBasis(h)
		t, ok := vecmath.RayPlane(r, p, n)
		if !ok || t <= 0 {
			return 0, false
		}
		if !vecmath.InSlab(r.At(t), p, u, v, size*planeLo, size*planeHi) {
			return 0, false
		}
		return t, true
	}
}

// project maps the move of the pointer ray from prev to cur onto c
// anchored at p. The second result is false if either ray projects
// behind its origin or runs parallel to the constraint.
func project(c Constraint, p vecmath.Vec3, prev, cur vecmath.Ray) (vecmath.Vec3, bool) {
	if c.Kind == KindAxis {
		a0, ok0 := vecmath.ClosestApproach(prev, p, c.Dir)
		a1, ok1 := vecmath.ClosestApproach(cur, p, c.Dir)
		if !ok0 || !ok1 || a0.T <= 0 || a1.T <= 0 {
			return vecmath.Vec3{}, false
		}
		return c.Dir.Mul(a1.S - a0.S), true
	}

	t0, ok0 := vecmath.RayPlane(prev, p, c.Dir)
	t1, ok1 := vecmath.RayPlane(cur, p, c.Dir)
	if !ok0 || !ok1 || t0 <= 0 || t1 <= 0 {
		return vecmath.Vec3{}, false
	}
	d := cur.At(t1).Sub(prev.At(t0))
	// Drop the out-of-plane residue.
	return d.Sub(c.Dir.Mul(d.Dot(c.Dir))), true
}

// draw emits handle h. Highlighted handles use full color and a double
// stroke, and highlighted planes are nearly opaque.
func draw(d Drawer, h int, f Frame, p vecmath.Vec3, size float32, highlight bool) {
	col, width := handleColors[h].Dim(), float32(baseWidth)
	if highlight {
		col, width = handleColors[h], 2*baseWidth
		if h >= handleYZ && h <= handleXY {
			col = col.WithAlpha(highlightAlpha)
		}
	}

	switch {
	case h <= handleZ:
		d.DrawLine(p, p.Add(axes[h].Mul(size)), col, width)
	case h == handleFree:
		r := size * freeRadius
		pts := make([]vecmath.Vec3, circleSteps+1)
		for i := range pts {
			s, c := math32.Sincos(2 * math32.Pi * float32(i) / circleSteps)
			pts[i] = p.Add(f.Right.Mul(c * r)).Add(f.Up.Mul(s * r))
		}
		d.DrawPolyline(pts, col, width)
	default:
		_, u, v := planeBasis(h)
		lo, hi := size*planeLo, size*planeHi
		a := p.Add(u.Mul(lo)).Add(v.Mul(lo))
		b := p.Add(u.Mul(hi)).Add(v.Mul(lo))
		c := p.Add(u.Mul(hi)).Add(v.Mul(hi))
		e := p.Add(u.Mul(lo)).Add(v.Mul(hi))
		d.DrawQuad(a, b, c, e, col)
	}
}
