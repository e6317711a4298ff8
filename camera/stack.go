package camera

import (
	"errors"
	"fmt"

	"github.com/gogpu/imdraw/vecmath"
)

// DefaultMaxDepth is the default hard cap on camera nesting.
const DefaultMaxDepth = 32

// Stack errors. Both are raised as panics: they indicate unbalanced
// Begin/End camera calls.
var (
	ErrStackOverflow  = errors.New("camera: stack depth exceeded")
	ErrStackUnderflow = errors.New("camera: pop on empty stack")
)

// Matrices is the transform state broadcast to listeners.
type Matrices struct {
	View       vecmath.Mat4
	Projection vecmath.Mat4
	Object     vecmath.Mat4

	// ViewProjection is Projection * View. Pointer rays unproject through it.
	ViewProjection vecmath.Mat4

	// Combined is Projection * View * Object, the matrix vertices use.
	Combined vecmath.Mat4

	Width, Height float32
}

// Listener receives the current matrices whenever they change.
type Listener interface {
	SetMatrices(Matrices)
}

// Stack holds the active camera variants and the object transform.
// The zero value is not usable; create stacks with [NewStack].
//
// Stack is not safe for concurrent use.
type Stack struct {
	variants  []Variant
	maxDepth  int
	object    vecmath.Mat4
	width     float32
	height    float32
	current   Matrices
	listeners []Listener
}

// NewStack creates an empty stack. maxDepth <= 0 selects [DefaultMaxDepth].
func NewStack(maxDepth int) *Stack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	s := &Stack{
		variants: make([]Variant, 0, 4),
		maxDepth: maxDepth,
		object:   vecmath.Identity(),
		width:    minViewport,
		height:   minViewport,
	}
	s.recompute()
	return s
}

// Subscribe registers l and immediately sends it the current matrices.
func (s *Stack) Subscribe(l Listener) {
	s.listeners = append(s.listeners, l)
	l.SetMatrices(s.current)
}

// Push makes v the active camera.
func (s *Stack) Push(v Variant) {
	if len(s.variants) >= s.maxDepth {
		panic(fmt.Errorf("camera: push %s at depth %d: %w", Name(v), len(s.variants), ErrStackOverflow))
	}
	s.variants = append(s.variants, v)
	s.broadcast()
}

// Pop restores the previous camera.
func (s *Stack) Pop() {
	if len(s.variants) == 0 {
		panic(ErrStackUnderflow)
	}
	s.variants[len(s.variants)-1] = nil
	s.variants = s.variants[:len(s.variants)-1]
	s.broadcast()
}

// Top returns the active variant, or [None] when the stack is empty.
func (s *Stack) Top() Variant {
	if len(s.variants) == 0 {
		return None{}
	}
	return s.variants[len(s.variants)-1]
}

// Depth returns the number of pushed variants.
func (s *Stack) Depth() int { return len(s.variants) }

// MaxDepth returns the nesting cap.
func (s *Stack) MaxDepth() int { return s.maxDepth }

// Camera returns the active 3D camera, if the top of the stack is one.
func (s *Stack) Camera() (Camera, bool) {
	if v, ok := s.Top().(View3D); ok {
		return v.Camera, true
	}
	return Camera{}, false
}

// SetViewport sets the viewport size in pixels.
func (s *Stack) SetViewport(width, height float32) {
	s.width = width
	s.height = height
	s.broadcast()
}

// SetObjectTransform sets the model matrix applied to subsequent vertices.
func (s *Stack) SetObjectTransform(m vecmath.Mat4) {
	s.object = m
	s.broadcast()
}

// SetObjectIdentity resets the model matrix.
func (s *Stack) SetObjectIdentity() {
	s.SetObjectTransform(vecmath.Identity())
}

// ObjectTransform returns the current model matrix.
func (s *Stack) ObjectTransform() vecmath.Mat4 { return s.object }

// Matrices returns the current transform state.
func (s *Stack) Matrices() Matrices { return s.current }

func (s *Stack) recompute() {
	top := s.Top()
	view := top.View()
	proj := top.Projection(s.width, s.height)
	vp := proj.Mul(view)
	s.current = Matrices{
		View:           view,
		Projection:     proj,
		Object:         s.object,
		ViewProjection: vp,
		Combined:       vp.Mul(s.object),
		Width:          s.width,
		Height:         s.height,
	}
}

func (s *Stack) broadcast() {
	s.recompute()
	for _, l := range s.listeners {
		l.SetMatrices(s.current)
	}
}
