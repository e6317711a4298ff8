package vecmath

import "github.com/chewxy/math32"

// Mat4 is a 4x4 matrix stored in column-major order:
// element (row r, column c) lives at index c*4+r.
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// FromRows builds a matrix from four rows in reading order.
func FromRows(r0, r1, r2, r3 [4]float32) Mat4 {
	var m Mat4
	for c := 0; c < 4; c++ {
		m[c*4+0] = r0[c]
		m[c*4+1] = r1[c]
		m[c*4+2] = r2[c]
		m[c*4+3] = r3[c]
	}
	return m
}

// At returns the element at row r, column c.
func (m Mat4) At(r, c int) float32 {
	return m[c*4+r]
}

// Row returns row r.
func (m Mat4) Row(r int) [4]float32 {
	return [4]float32{m[r], m[4+r], m[8+r], m[12+r]}
}

// Translate creates a translation matrix.
func Translate(t Vec3) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	return m
}

// Scale creates a scaling matrix.
func Scale(s Vec3) Mat4 {
	return Mat4{
		s.X, 0, 0, 0,
		0, s.Y, 0, 0,
		0, 0, s.Z, 0,
		0, 0, 0, 1,
	}
}

// RotateX creates a right-handed rotation about the X axis (angle in radians).
func RotateX(angle float32) Mat4 {
	s, c := math32.Sincos(angle)
	return FromRows(
		[4]float32{1, 0, 0, 0},
		[4]float32{0, c, -s, 0},
		[4]float32{0, s, c, 0},
		[4]float32{0, 0, 0, 1},
	)
}

// RotateY creates a right-handed rotation about the Y axis (angle in radians).
func RotateY(angle float32) Mat4 {
	s, c := math32.Sincos(angle)
	return FromRows(
		[4]float32{c, 0, s, 0},
		[4]float32{0, 1, 0, 0},
		[4]float32{-s, 0, c, 0},
		[4]float32{0, 0, 0, 1},
	)
}

// RotateZ creates a right-handed rotation about the Z axis (angle in radians).
func RotateZ(angle float32) Mat4 {
	s, c := math32.Sincos(angle)
	return FromRows(
		[4]float32{c, -s, 0, 0},
		[4]float32{s, c, 0, 0},
		[4]float32{0, 0, 1, 0},
		[4]float32{0, 0, 0, 1},
	)
}

// LookAt creates a right-handed view matrix looking from eye towards
// center. The camera looks down its local -Z axis.
func LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)
	return FromRows(
		[4]float32{s.X, s.Y, s.Z, -s.Dot(eye)},
		[4]float32{u.X, u.Y, u.Z, -u.Dot(eye)},
		[4]float32{-f.X, -f.Y, -f.Z, f.Dot(eye)},
		[4]float32{0, 0, 0, 1},
	)
}

// Perspective creates a symmetric perspective projection with OpenGL
// clip conventions (NDC z in [-1, 1]).
func Perspective(fovy, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(fovy/2)
	return FromRows(
		[4]float32{f / aspect, 0, 0, 0},
		[4]float32{0, f, 0, 0},
		[4]float32{0, 0, (far + near) / (near - far), 2 * far * near / (near - far)},
		[4]float32{0, 0, -1, 0},
	)
}

// Ortho creates an orthographic projection with OpenGL clip conventions.
func Ortho(left, right, bottom, top, near, far float32) Mat4 {
	return FromRows(
		[4]float32{2 / (right - left), 0, 0, -(right + left) / (right - left)},
		[4]float32{0, 2 / (top - bottom), 0, -(top + bottom) / (top - bottom)},
		[4]float32{0, 0, -2 / (far - near), -(far + near) / (far - near)},
		[4]float32{0, 0, 0, 1},
	)
}

// Mul returns m * o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for c := 0; c < 4; c++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * o[c*4+k]
			}
			r[c*4+row] = sum
		}
	}
	return r
}

// MulVec4 returns m * v.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		X: m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]*v.W,
		Y: m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]*v.W,
		Z: m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]*v.W,
		W: m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]*v.W,
	}
}

// TransformPoint applies m to the point p including the perspective divide.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return m.MulVec4(p.Point()).PerspectiveDivide()
}

// TransformDir applies the upper 3x3 of m to the direction d.
func (m Mat4) TransformDir(d Vec3) Vec3 {
	return m.MulVec4(Vec4{X: d.X, Y: d.Y, Z: d.Z}).Vec3()
}

// Scaled returns m with every element multiplied by s.
func (m Mat4) Scaled(s float32) Mat4 {
	for i := range m {
		m[i] *= s
	}
	return m
}

// Transpose returns the transpose of m.
func (m Mat4) Transpose() Mat4 {
	var t Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			t[r*4+c] = m[c*4+r]
		}
	}
	return t
}

// Inverse returns the inverse of m. The second result is false when m is
// singular, in which case the identity is returned.
func (m Mat4) Inverse() (Mat4, bool) {
	var inv Mat4
	inv[0] = m[5]*m[10]*m[15] - m[5]*m[11]*m[14] - m[9]*m[6]*m[15] + m[9]*m[7]*m[14] + m[13]*m[6]*m[11] - m[13]*m[7]*m[10]
	inv[4] = -m[4]*m[10]*m[15] + m[4]*m[11]*m[14] + m[8]*m[6]*m[15] - m[8]*m[7]*m[14] - m[12]*m[6]*m[11] + m[12]*m[7]*m[10]
	inv[8] = m[4]*m[9]*m[15] - m[4]*m[11]*m[13] - m[8]*m[5]*m[15] + m[8]*m[7]*m[13] + m[12]*m[5]*m[11] - m[12]*m[7]*m[9]
	inv[12] = -m[4]*m[9]*m[14] + m[4]*m[10]*m[13] + m[8]*m[5]*m[14] - m[8]*m[6]*m[13] - m[12]*m[5]*m[10] + m[12]*m[6]*m[9]
	inv[1] = -m[1]*m[10]*m[15] + m[1]*m[11]*m[14] + m[9]*m[2]*m[15] - m[9]*m[3]*m[14] - m[13]*m[2]*m[11] + m[13]*m[3]*m[10]
	inv[5] = m[0]*m[10]*m[15] - m[0]*m[11]*m[14] - m[8]*m[2]*m[15] + m[8]*m[3]*m[14] + m[12]*m[2]*m[11] - m[12]*m[3]*m[10]
	inv[9] = -m[0]*m[9]*m[15] + m[0]*m[11]*m[13] + m[8]*m[1]*m[15] - m[8]*m[3]*m[13] - m[12]*m[1]*m[11] + m[12]*m[3]*m[9]
	inv[13] = m[0]*m[9]*m[14] - m[0]*m[10]*m[13] - m[8]*m[1]*m[14] + m[8]*m[2]*m[13] + m[12]*m[1]*m[10] - m[12]*m[2]*m[9]
	inv[2] = m[1]*m[6]*m[15] - m[1]*m[7]*m[14] - m[5]*m[2]*m[15] + m[5]*m[3]*m[14] + m[13]*m[2]*m[7] - m[13]*m[3]*m[6]
	inv[6] = -m[0]*m[6]*m[15] + m[0]*m[7]*m[14] + m[4]*m[2]*m[15] - m[4]*m[3]*m[14] - m[12]*m[2]*m[7] + m[12]*m[3]*m[6]
	inv[10] = m[0]*m[5]*m[15] - m[0]*m[7]*m[13] - m[4]*m[1]*m[15] + m[4]*m[3]*m[13] + m[12]*m[1]*m[7] - m[12]*m[3]*m[5]
	inv[14] = -m[0]*m[5]*m[14] + m[0]*m[6]*m[13] + m[4]*m[1]*m[14] - m[4]*m[2]*m[13] - m[12]*m[1]*m[6] + m[12]*m[2]*m[5]
	inv[3] = -m[1]*m[6]*m[11] + m[1]*m[7]*m[10] + m[5]*m[2]*m[11] - m[5]*m[3]*m[10] - m[9]*m[2]*m[7] + m[9]*m[3]*m[6]
	inv[7] = m[0]*m[6]*m[11] - m[0]*m[7]*m[10] - m[4]*m[2]*m[11] + m[4]*m[3]*m[10] + m[8]*m[2]*m[7] - m[8]*m[3]*m[6]
	inv[11] = -m[0]*m[5]*m[11] + m[0]*m[7]*m[9] + m[4]*m[1]*m[11] - m[4]*m[3]*m[9] - m[8]*m[1]*m[7] + m[8]*m[3]*m[5]
	inv[15] = m[0]*m[5]*m[10] - m[0]*m[6]*m[9] - m[4]*m[1]*m[10] + m[4]*m[2]*m[9] + m[8]*m[1]*m[6] - m[8]*m[2]*m[5]

	det := m[0]*inv[0] + m[1]*inv[4] + m[2]*inv[8] + m[3]*inv[12]
	if det == 0 || math32.IsNaN(det) || math32.IsInf(det, 0) {
		return Identity(), false
	}
	invDet := 1 / det
	for i := range inv {
		inv[i] *= invDet
	}
	return inv, true
}

// ApproxEqual reports whether every element of m and o differ by at most tol.
func (m Mat4) ApproxEqual(o Mat4, tol float32) bool {
	for i := range m {
		if math32.Abs(m[i]-o[i]) > tol {
			return false
		}
	}
	return true
}

// IsFinite reports whether every element of m is neither NaN nor infinite.
func (m Mat4) IsFinite() bool {
	for _, v := range m {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}
