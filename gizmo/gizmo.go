package gizmo

import (
	"sync/atomic"

	"github.com/gogpu/imdraw/camera"
	"github.com/gogpu/imdraw/vecmath"
)

// ID identifies a manipulated point across frames.
type ID uint64

var lastID atomic.Uint64

// NewID returns a fresh point identity. It is safe for concurrent use.
func NewID() ID {
	return ID(lastID.Add(1))
}

// Pointer is the pointer state for one frame, in viewport pixels with the
// origin at the top-left.
type Pointer struct {
	X, Y float32
	Down bool
}

// Frame holds the per-frame inputs shared by every handle: the pointer
// rays for this and the previous frame, and the camera basis in world
// space.
type Frame struct {
	Ray     vecmath.Ray
	PrevRay vecmath.Ray

	Forward vecmath.Vec3
	Right   vecmath.Vec3
	Up      vecmath.Vec3
}

// grab is the active grab record.
type grab struct {
	id         ID
	handle     int
	constraint Constraint
	frame      uint64
}

// Session owns the pointer history and the grab record. At most one
// handle is grabbed at a time across all points of a session.
//
// Session is not safe for concurrent use.
type Session struct {
	cur, prev Pointer
	pressed   bool
	frame     uint64
	grab      *grab
}

// NewSession creates an idle session.
func NewSession() *Session {
	return &Session{}
}

// Update records the pointer for a new frame. A release always ends the
// grab. A pointer already down on the first frame counts as a press.
func (s *Session) Update(p Pointer) {
	if s.frame == 0 {
		s.prev = Pointer{X: p.X, Y: p.Y}
	} else {
		s.prev = s.cur
	}
	s.cur = p
	s.frame++
	s.pressed = p.Down && !s.prev.Down
	if !p.Down && s.grab != nil {
		slogger().Debug("gizmo released", "id", s.grab.id, "constraint", s.grab.constraint.Kind)
		s.grab = nil
	}
}

// Pointer returns the pointer of the current frame.
func (s *Session) Pointer() Pointer { return s.cur }

// Grabbed returns the grabbed point and its constraint.
func (s *Session) Grabbed() (ID, Constraint, bool) {
	if s.grab == nil {
		return 0, Constraint{}, false
	}
	return s.grab.id, s.grab.constraint, true
}

// Release clears the grab record.
func (s *Session) Release() { s.grab = nil }

// Frame builds the frame inputs from the current matrices and the camera
// that produced them. Both rays unproject through the current matrices.
func (s *Session) Frame(m camera.Matrices, c camera.Camera) Frame {
	right, up := c.Basis()
	return Frame{
		Ray:     m.PointerRay(s.cur.X, s.cur.Y),
		PrevRay: m.PointerRay(s.prev.X, s.prev.Y),
		Forward: c.Forward(),
		Right:   right,
		Up:      up,
	}
}

// ManipulatePosition draws the handles of the gizmo at *v through d and
// applies any drag to *v. It reports whether *v moved.
//
// It must be called once per frame for every point that should remain
// interactive, after [Session.Update].
func (s *Session) ManipulatePosition(d Drawer, f Frame, id ID, v *vecmath.Vec3, size float32) bool {
	if size <= 0 {
		size = 1
	}
	p := *v

	var hovered [numHandles]bool
	best, bestT := -1, float32(0)
	for h := range numHandles {
		t, ok := hit(h, f.Ray, p, size)
		if !ok {
			continue
		}
		hovered[h] = true
		if best < 0 || t < bestT {
			best, bestT = h, t
		}
	}

	if s.pressed && s.grab == nil && best >= 0 {
		s.grab = &grab{
			id:         id,
			handle:     best,
			constraint: constraint(best, f.Forward),
			frame:      s.frame,
		}
		slogger().Debug("gizmo grabbed", "id", id, "constraint", s.grab.constraint.Kind, "handle", best)
	}

	active := -1
	if s.grab != nil && s.grab.id == id {
		active = s.grab.handle
	}

	moved := false
	if active >= 0 && s.cur.Down && s.frame > s.grab.frame {
		if delta, ok := project(s.grab.constraint, p, f.PrevRay, f.Ray); ok && delta != (vecmath.Vec3{}) {
			*v = p.Add(delta)
			moved = true
		}
	}

	for h := range numHandles {
		highlight := h == active || hovered[h]
		draw(d, h, f, *v, size, highlight)
	}
	return moved
}
