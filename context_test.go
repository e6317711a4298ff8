package imdraw

import (
	"errors"
	"testing"

	"github.com/gogpu/imdraw/camera"
	"github.com/gogpu/imdraw/gpucore"
	"github.com/gogpu/imdraw/internal/fake"
	"github.com/gogpu/imdraw/vecmath"
)

const (
	testW = 800
	testH = 600
)

func newTestContext(t *testing.T, opts ...Option) (*Context, *fake.Device) {
	t.Helper()
	dev := fake.New()
	ctx, err := NewContext(dev, dev, opts...)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	t.Cleanup(ctx.Close)
	return ctx, dev
}

func expectPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic wrapping %v", target)
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("panic = %v, want %v", r, target)
		}
	}()
	fn()
}

func TestFrameSubmitsDraws(t *testing.T) {
	ctx, dev := newTestContext(t)

	ctx.BeginFrame(testW, testH, Pointer{})
	ctx.BeginCamera(camera.Default())
	ctx.Line(vecmath.Vec3{}, vecmath.UnitX, Red, 2)
	ctx.Point(vecmath.UnitY, Green, 4)
	ctx.EndCamera()
	if err := ctx.EndFrame(); err != nil {
		t.Fatal(err)
	}

	frames := dev.Frames()
	if len(frames) != 1 || len(frames[0]) != 2 {
		t.Fatalf("frames = %v, want one frame of two draws", frames)
	}
	line := frames[0][0]
	if line.Pipeline != gpucore.PipelineColor || line.Mode != Lines || line.Width != 2 {
		t.Errorf("line draw = %+v", line)
	}
	if line.Texture != gpucore.InvalidID || line.Indexed() {
		t.Errorf("line draw binds texture %d, indexed %v", line.Texture, line.Indexed())
	}
	if frames[0][1].Mode != Points || frames[0][1].VertexCount != 1 {
		t.Errorf("point draw = %+v", frames[0][1])
	}
	if ctx.Frame() != 1 {
		t.Errorf("Frame() = %d, want 1", ctx.Frame())
	}
}

func TestLineBatchUsesUint8Indices(t *testing.T) {
	ctx, dev := newTestContext(t)
	ctx.BeginFrame(testW, testH, Pointer{})

	ctx.Begin(Lines, 1)
	for i := range 4 {
		ctx.Vertex(vecmath.V3(float32(i), 0, 0), White)
	}
	for _, i := range []uint32{0, 1, 1, 2, 2, 3} {
		ctx.Index(i)
	}
	ctx.End()

	pending := dev.Pending()
	if len(pending) != 1 {
		t.Fatalf("End() issued %d draws, want 1", len(pending))
	}
	if d := pending[0]; d.IndexFormat != gpucore.IndexFormatUint8 || d.IndexCount != 6 {
		t.Errorf("draw = %v x%d, want Uint8 x6", d.IndexFormat, d.IndexCount)
	}
	if s := ctx.Stats(); s.IndexFormats[gpucore.IndexFormatUint8] != 1 || s.Indices != 6 || s.Vertices != 4 {
		t.Errorf("Stats() = %+v", s)
	}
	_ = ctx.EndFrame()
}

func TestTrianglesUseFallbackTexture(t *testing.T) {
	ctx, dev := newTestContext(t)
	ctx.BeginFrame(testW, testH, Pointer{})
	ctx.BeginTriangles(nil)
	ctx.TexVertex(vecmath.V3(0, 0, 0), vecmath.V2(0, 0), White)
	ctx.TexVertex(vecmath.V3(1, 0, 0), vecmath.V2(1, 0), White)
	ctx.TexVertex(vecmath.V3(0, 1, 0), vecmath.V2(0, 1), White)
	ctx.EndTriangles()

	d := dev.Pending()[0]
	if d.Pipeline != gpucore.PipelineTextured || d.Texture != ctx.white.ID() {
		t.Errorf("draw texture = %d, want fallback %d", d.Texture, ctx.white.ID())
	}
	tex, _ := dev.Texture(ctx.white.ID())
	if tex.Desc.Width != 1 || tex.Desc.Height != 1 || string(tex.Pixels) != "\xff\xff\xff\xff" {
		t.Errorf("fallback texture = %+v %x", tex.Desc, tex.Pixels)
	}
	_ = ctx.EndFrame()
}

func TestObjectTransform(t *testing.T) {
	ctx, dev := newTestContext(t)
	move := vecmath.Translate(vecmath.V3(1, 2, 3))

	ctx.BeginFrame(testW, testH, Pointer{})
	ctx.BeginCameraNone()
	ctx.SetObjectTransform(move)
	ctx.Point(vecmath.Vec3{}, White, 1)
	ctx.SetObjectIdentity()
	ctx.Point(vecmath.Vec3{}, White, 1)

	cam := camera.Default()
	ctx.BeginCamera(cam)
	ctx.SetObjectTransform(move)
	ctx.Point(vecmath.Vec3{}, White, 1)
	ctx.EndCamera()
	ctx.EndCamera()

	pending := dev.Pending()
	if got := vecmath.Mat4(pending[0].Transform); got != move {
		t.Errorf("object transform not applied: %v", got)
	}
	if got := vecmath.Mat4(pending[1].Transform); got != vecmath.Identity() {
		t.Errorf("identity reset not applied: %v", got)
	}
	want := cam.ProjectionMatrix(testW, testH).Mul(cam.ViewMatrix()).Mul(move)
	if got := vecmath.Mat4(pending[2].Transform); !got.ApproxEqual(want, 1e-5) {
		t.Errorf("3D transform = %v, want %v", got, want)
	}
	_ = ctx.EndFrame()

	ctx.BeginFrame(testW, testH, Pointer{})
	if ctx.ObjectTransform() != vecmath.Identity() {
		t.Error("BeginFrame did not reset the object transform")
	}
	_ = ctx.EndFrame()
}

func TestUnbalancedFrames(t *testing.T) {
	tests := []struct {
		name   string
		target error
		fn     func(*Context)
	}{
		{"end without begin", ErrUnbalancedFrame, func(c *Context) { _ = c.EndFrame() }},
		{"begin twice", ErrUnbalancedFrame, func(c *Context) {
			c.BeginFrame(testW, testH, Pointer{})
			c.BeginFrame(testW, testH, Pointer{})
		}},
		{"open camera", ErrUnbalancedFrame, func(c *Context) {
			c.BeginFrame(testW, testH, Pointer{})
			c.BeginCamera2DCanvas()
			_ = c.EndFrame()
		}},
		{"open batch", ErrUnbalancedFrame, func(c *Context) {
			c.BeginFrame(testW, testH, Pointer{})
			c.Begin(Lines, 1)
			_ = c.EndFrame()
		}},
		{"nested begin", ErrNestedBegin, func(c *Context) {
			c.Begin(Lines, 1)
			c.Begin(Points, 1)
		}},
		{"vertex without begin", ErrNotBegun, func(c *Context) { c.Vertex(vecmath.Vec3{}, White) }},
		{"camera underflow", ErrCameraStackUnderflow, func(c *Context) { c.EndCamera() }},
		{"camera overflow", ErrCameraStackOverflow, func(c *Context) {
			for range 3 {
				c.BeginCameraNone()
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := newTestContext(t, WithMaxCameraDepth(2))
			expectPanic(t, tt.target, func() { tt.fn(ctx) })
		})
	}
}

func TestEndFrameRotatesArenas(t *testing.T) {
	ctx, dev := newTestContext(t)
	for range 3 {
		ctx.BeginFrame(testW, testH, Pointer{})
		ctx.Point(vecmath.Vec3{}, White, 1)
		if err := ctx.EndFrame(); err != nil {
			t.Fatal(err)
		}
	}
	// With two regions the first wait happens when region 0 comes back.
	if got := len(dev.Waits()); got != 2*len(ctx.arenas) {
		t.Errorf("fence waits = %d, want %d", got, 2*len(ctx.arenas))
	}
	if s := ctx.Stats(); s.Color.FenceWaits != 2 || s.Color.Head != 0 {
		t.Errorf("color arena stats = %+v", s.Color)
	}
}

func TestSubmitFailureStillRotates(t *testing.T) {
	ctx, dev := newTestContext(t)
	dev.FailSubmit = true

	ctx.BeginFrame(testW, testH, Pointer{})
	ctx.Point(vecmath.Vec3{}, White, 1)
	err := ctx.EndFrame()
	if !errors.Is(err, fake.ErrInjected) {
		t.Fatalf("EndFrame() error = %v, want ErrInjected", err)
	}
	if ctx.Frame() != 1 || ctx.arenas[0].Frame() != 1 {
		t.Errorf("frame = %d, arena frame = %d; want 1, 1", ctx.Frame(), ctx.arenas[0].Frame())
	}

	dev.FailSubmit = false
	ctx.BeginFrame(testW, testH, Pointer{})
	if err := ctx.EndFrame(); err != nil {
		t.Errorf("EndFrame() after recovery = %v", err)
	}
}

func TestStatsResetPerFrame(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.BeginFrame(testW, testH, Pointer{})
	ctx.Box(vecmath.V3(-1, -1, -1), vecmath.V3(1, 1, 1), White, 1)
	ctx.Line(vecmath.Vec3{}, vecmath.UnitX, White, 1)
	if s := ctx.Stats(); s.DrawCalls != 2 {
		t.Errorf("DrawCalls = %d, want 2", s.DrawCalls)
	}
	_ = ctx.EndFrame()

	ctx.BeginFrame(testW, testH, Pointer{})
	if s := ctx.Stats(); s.DrawCalls != 0 || s.Frame != 1 {
		t.Errorf("Stats() after BeginFrame = %+v", s)
	}
	_ = ctx.EndFrame()
}

func TestCloseReleasesResources(t *testing.T) {
	dev := fake.New()
	ctx, err := NewContext(dev, dev)
	if err != nil {
		t.Fatal(err)
	}
	tex, err := ctx.NewTexture(make([]byte, 16), 2, 2, TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	ctx.BeginFrame(testW, testH, Pointer{})
	ctx.BeginCamera2DCanvas()
	ctx.Text(vecmath.V3(5, 5, 0), "hello", White, 1)
	ctx.EndCamera()
	_ = ctx.EndFrame()

	ctx.Close()
	ctx.Close()
	if n := dev.LiveBuffers(); n != 0 {
		t.Errorf("LiveBuffers() = %d after Close", n)
	}
	if n := dev.LiveTextures(); n != 0 {
		t.Errorf("LiveTextures() = %d after Close", n)
	}
	if tex.ID() != gpucore.InvalidID {
		t.Error("texture still valid after Close")
	}
	expectPanic(t, ErrClosed, func() { ctx.BeginFrame(testW, testH, Pointer{}) })
}
