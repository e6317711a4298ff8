// Package vecmath provides the float32 vector, matrix and ray primitives
// shared by the camera, gizmo and batching packages.
//
// Matrices are 4x4, column-major, and act on column vectors (M * v), which
// is the layout expected by WGSL uniform buffers. A point is transformed by
// the product P * V * O in that order.
//
// Intersection helpers follow the usual parametric ray form
// origin + t*dir. Helpers report the ray parameter so callers can reject
// hits behind the ray origin (t <= 0).
package vecmath
