package imdraw

import (
	"errors"
	"fmt"

	"github.com/gogpu/imdraw/camera"
	"github.com/gogpu/imdraw/gizmo"
	"github.com/gogpu/imdraw/gpucore"
	"github.com/gogpu/imdraw/internal/batch"
	"github.com/gogpu/imdraw/internal/glyph"
	"github.com/gogpu/imdraw/internal/stream"
	"github.com/gogpu/imdraw/vecmath"
)

// Contract violations. They are raised as panics and wrap one of these
// sentinels, so a recovered value can be matched with errors.Is.
var (
	// ErrNestedBegin reports a Begin while a batch of the same kind is open.
	ErrNestedBegin = batch.ErrNestedBegin

	// ErrNotBegun reports Vertex, Index or End without an open batch.
	ErrNotBegun = batch.ErrNotBegun

	// ErrCameraStackOverflow reports camera nesting beyond the depth cap.
	ErrCameraStackOverflow = camera.ErrStackOverflow

	// ErrCameraStackUnderflow reports EndCamera without a matching Begin.
	ErrCameraStackUnderflow = camera.ErrStackUnderflow

	// ErrUnbalancedFrame reports a frame that was not begun, was begun
	// twice, or ended with open batches or cameras.
	ErrUnbalancedFrame = errors.New("imdraw: unbalanced frame")

	// ErrClosed reports use of a Context after Close.
	ErrClosed = errors.New("imdraw: context is closed")
)

// Pointer is the pointer state for one frame, in viewport pixels with the
// origin at the top-left.
type Pointer = gizmo.Pointer

// Mode is the primitive topology of a batch.
type Mode = gpucore.PrimitiveMode

// Primitive modes.
const (
	Points        = gpucore.PrimitivePoints
	Lines         = gpucore.PrimitiveLines
	LineStrip     = gpucore.PrimitiveLineStrip
	Triangles     = gpucore.PrimitiveTriangles
	TriangleStrip = gpucore.PrimitiveTriangleStrip
)

// resizer is implemented by devices that own their render target, such as
// backend/wgpu.Backend. BeginFrame passes the frame size to it.
type resizer interface {
	Resize(width, height int)
}

// Context is an immediate mode drawing context. It owns the per-kind
// batch pipelines and their streaming arenas, the camera stack, the glyph
// atlas and the gizmo session.
//
// A frame is bracketed by BeginFrame and EndFrame. Every draw inside the
// frame uses the matrices of the innermost camera combined with the
// current object transform.
//
// Context is not safe for concurrent use.
type Context struct {
	dev  gpucore.Device
	sink gpucore.CommandSink
	caps gpucore.Capabilities
	opts options

	stack  *camera.Stack
	arenas [3]*stream.Arena

	color *batch.Pipeline[batch.ColorVertex]
	tex   *batch.Pipeline[batch.TexVertex]
	text  *batch.Pipeline[batch.TexVertex]

	white    *Texture
	textures map[*Texture]struct{}
	atlas    *glyph.Atlas
	gizmos   *gizmo.Session

	width, height int
	inFrame       bool
	frames        uint64
	closed        bool
}

// NewContext creates a context drawing through dev and sink. The two are
// usually the same backend value, such as a backend/wgpu.Backend or, in
// tests, a fake device.
//
// A device that fails to allocate the initial arena regions panics with
// stream.ErrAllocation.
func NewContext(dev gpucore.Device, sink gpucore.CommandSink, opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		SetLogger(o.logger)
	}
	propagateLogger(dev, Logger())

	c := &Context{
		dev:      dev,
		sink:     sink,
		caps:     dev.Capabilities(),
		opts:     o,
		stack:    camera.NewStack(o.maxCameraDepth),
		textures: make(map[*Texture]struct{}),
		atlas:    glyph.NewAtlas(),
		gizmos:   gizmo.NewSession(),
	}

	for i, kind := range []gpucore.PipelineKind{gpucore.PipelineColor, gpucore.PipelineTextured, gpucore.PipelineText} {
		c.arenas[i] = stream.New(dev, stream.Config{
			Label:           kind.String(),
			InitialCapacity: o.initialCapacity,
			SizeHint:        o.sizeHint,
			Regions:         o.regions,
			FenceTimeout:    o.fenceTimeout,
		})
	}
	c.color = batch.NewPipeline[batch.ColorVertex](gpucore.PipelineColor, c.arenas[0], sink, c.caps)
	c.tex = batch.NewPipeline[batch.TexVertex](gpucore.PipelineTextured, c.arenas[1], sink, c.caps)
	c.text = batch.NewPipeline[batch.TexVertex](gpucore.PipelineText, c.arenas[2], sink, c.caps)
	c.stack.Subscribe(c.color)
	c.stack.Subscribe(c.tex)
	c.stack.Subscribe(c.text)

	white, err := c.NewTexture([]byte{0xFF, 0xFF, 0xFF, 0xFF}, 1, 1, TextureFormatRGBA8Unorm)
	if err != nil {
		c.releaseArenas()
		return nil, fmt.Errorf("imdraw: create fallback texture: %w", err)
	}
	c.white = white
	c.tex.SetFallbackTexture(white.id)

	Logger().Info("imdraw: context created",
		"regions", o.regions, "initialCapacity", o.initialCapacity, "sizeHint", o.sizeHint)
	return c, nil
}

// BeginFrame starts a frame for a viewport of width x height pixels. The
// pointer state feeds the gizmos of this frame. The object transform is
// reset to identity.
func (c *Context) BeginFrame(width, height int, p Pointer) {
	c.checkOpen()
	if c.inFrame {
		panic(fmt.Errorf("BeginFrame in frame %d: %w", c.frames, ErrUnbalancedFrame))
	}
	c.inFrame = true
	c.width, c.height = max(width, 1), max(height, 1)
	c.stack.SetViewport(float32(c.width), float32(c.height))
	if r, ok := c.dev.(resizer); ok {
		r.Resize(c.width, c.height)
	}
	c.stack.SetObjectIdentity()
	c.color.ResetStats()
	c.tex.ResetStats()
	c.text.ResetStats()
	c.gizmos.Update(p)
}

// EndFrame submits the frame and rotates every arena to its next region.
// Open batches or cameras panic with ErrUnbalancedFrame. A submission
// failure is returned; the arenas rotate regardless.
func (c *Context) EndFrame() error {
	c.checkOpen()
	if !c.inFrame {
		panic(fmt.Errorf("EndFrame without BeginFrame: %w", ErrUnbalancedFrame))
	}
	if c.color.IsOpen() || c.tex.IsOpen() || c.text.IsOpen() {
		panic(fmt.Errorf("EndFrame with an open batch: %w", ErrUnbalancedFrame))
	}
	if d := c.stack.Depth(); d != 0 {
		panic(fmt.Errorf("EndFrame with %d cameras open: %w", d, ErrUnbalancedFrame))
	}
	c.inFrame = false

	err := c.sink.Submit()
	for _, a := range c.arenas {
		a.FinishFrame()
	}
	c.frames++
	if err != nil {
		return fmt.Errorf("imdraw: submit frame %d: %w", c.frames-1, err)
	}
	return nil
}

// Size returns the viewport of the current frame.
func (c *Context) Size() (width, height int) { return c.width, c.height }

// Frame returns the number of completed frames.
func (c *Context) Frame() uint64 { return c.frames }

// === Camera ===

// BeginCamera pushes a 3D camera.
func (c *Context) BeginCamera(cam camera.Camera) {
	c.stack.Push(camera.View3D{Camera: cam})
}

// BeginCamera2DCanvas pushes a pixel space camera with the origin at the
// top-left of the viewport.
func (c *Context) BeginCamera2DCanvas() {
	c.stack.Push(camera.Canvas2D{})
}

// BeginCameraNone pushes an identity camera: positions are clip space.
func (c *Context) BeginCameraNone() {
	c.stack.Push(camera.None{})
}

// EndCamera pops the innermost camera.
func (c *Context) EndCamera() {
	c.stack.Pop()
}

// Matrices returns the current camera and object matrices.
func (c *Context) Matrices() camera.Matrices { return c.stack.Matrices() }

// SetObjectTransform sets the model matrix applied to subsequent
// primitives.
func (c *Context) SetObjectTransform(m vecmath.Mat4) {
	c.stack.SetObjectTransform(m)
}

// SetObjectIdentity resets the model matrix.
func (c *Context) SetObjectIdentity() {
	c.stack.SetObjectIdentity()
}

// ObjectTransform returns the current model matrix.
func (c *Context) ObjectTransform() vecmath.Mat4 { return c.stack.ObjectTransform() }

// === Lifecycle ===

// Close releases every texture and arena. Close is idempotent.
func (c *Context) Close() {
	if c.closed {
		return
	}
	for t := range c.textures {
		t.release()
	}
	c.white = nil
	c.atlas.Release(c.dev)
	c.releaseArenas()
	c.closed = true
	Logger().Info("imdraw: context closed", "frames", c.frames)
}

func (c *Context) releaseArenas() {
	for _, a := range c.arenas {
		if a != nil {
			a.Close()
		}
	}
}

func (c *Context) checkOpen() {
	if c.closed {
		panic(ErrClosed)
	}
}
