//go:build !nogpu

package wgpu

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/imdraw"
	"github.com/gogpu/imdraw/camera"
	"github.com/gogpu/imdraw/gpucore"
	"github.com/gogpu/imdraw/vecmath"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop HAL device for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func newTestBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	b, err := New(device, queue, opts...)
	if err != nil {
		cleanup()
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		b.Close()
		cleanup()
	})
	return b
}

func identity() [16]float32 {
	return [16]float32(vecmath.Identity())
}

func TestNewNilDevice(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Fatal("expected error for nil device")
	}
}

func TestCapabilities(t *testing.T) {
	b := newTestBackend(t)
	caps := b.Capabilities()
	if caps.IndexUint8 {
		t.Error("IndexUint8 should be false")
	}
	if caps.WideLines {
		t.Error("WideLines should be false")
	}
	if caps.MaxBufferSize == 0 {
		t.Error("MaxBufferSize should be non-zero")
	}
}

func TestBufferLifecycle(t *testing.T) {
	b := newTestBackend(t)

	id, err := b.CreateBuffer(gpucore.BufferDesc{Label: "vb", Size: 10, Usage: gpucore.BufferUsageVertex})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	if id == gpucore.InvalidID {
		t.Fatal("got InvalidID")
	}
	if got := b.buffers[id].size; got != 12 {
		t.Errorf("size = %d, want 12 (rounded to 4)", got)
	}

	// Writes at and past the end must not panic.
	b.WriteBuffer(id, 0, []byte{1, 2, 3})
	b.WriteBuffer(id, 8, make([]byte, 16))
	b.WriteBuffer(id, 64, []byte{1})

	b.DestroyBuffer(id)
	if _, ok := b.buffers[id]; ok {
		t.Error("buffer still registered after DestroyBuffer")
	}
	b.DestroyBuffer(id)
}

func TestCreateBufferInvalidSize(t *testing.T) {
	b := newTestBackend(t)
	for _, size := range []uint64{0, maxBufferSize + 1} {
		if _, err := b.CreateBuffer(gpucore.BufferDesc{Size: size}); err == nil {
			t.Errorf("CreateBuffer(size=%d) expected error", size)
		}
	}
}

func TestTextureLifecycle(t *testing.T) {
	b := newTestBackend(t)

	tests := []struct {
		name   string
		format gpucore.TextureFormat
		bpp    int
	}{
		{"rgba", gpucore.TextureFormatRGBA8Unorm, 4},
		{"srgb", gpucore.TextureFormatRGBA8UnormSRGB, 4},
		{"r8", gpucore.TextureFormatR8Unorm, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := b.CreateTexture(gpucore.TextureDesc{Label: tt.name, Width: 4, Height: 2, Format: tt.format})
			if err != nil {
				t.Fatalf("CreateTexture failed: %v", err)
			}
			if err := b.WriteTexture(id, make([]byte, 4*2*tt.bpp)); err != nil {
				t.Errorf("WriteTexture failed: %v", err)
			}
			if err := b.WriteTexture(id, make([]byte, 3)); !errors.Is(err, ErrTextureData) {
				t.Errorf("short WriteTexture err = %v, want ErrTextureData", err)
			}
			b.DestroyTexture(id)
			if err := b.WriteTexture(id, nil); !errors.Is(err, ErrUnknownTexture) {
				t.Errorf("WriteTexture after destroy err = %v, want ErrUnknownTexture", err)
			}
		})
	}
}

func TestCreateTextureInvalid(t *testing.T) {
	b := newTestBackend(t)
	tests := []struct {
		name string
		desc gpucore.TextureDesc
	}{
		{"zero width", gpucore.TextureDesc{Width: 0, Height: 1, Format: gpucore.TextureFormatR8Unorm}},
		{"negative height", gpucore.TextureDesc{Width: 1, Height: -1, Format: gpucore.TextureFormatR8Unorm}},
		{"unknown format", gpucore.TextureDesc{Width: 1, Height: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.CreateTexture(tt.desc); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFenceBeforeSubmit(t *testing.T) {
	b := newTestBackend(t)
	f, err := b.InsertFence()
	if err != nil {
		t.Fatalf("InsertFence failed: %v", err)
	}
	if got := b.WaitFence(f, time.Second); got != gpucore.WaitAlreadySignaled {
		t.Errorf("WaitFence = %v, want AlreadySignaled", got)
	}
	b.DestroyFence(f)
	if got := b.WaitFence(f, time.Second); got != gpucore.WaitFailed {
		t.Errorf("WaitFence after destroy = %v, want Failed", got)
	}
}

func TestFenceSharedSubmission(t *testing.T) {
	b := newTestBackend(t)
	if err := b.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	f1, _ := b.InsertFence()
	f2, _ := b.InsertFence()
	if b.fences[f1] != b.fences[f2] {
		t.Fatal("fences inserted after one submit should share a submission")
	}
	if refs := b.last.refs; refs != 3 {
		t.Errorf("refs = %d, want 3", refs)
	}

	if got := b.WaitFence(f1, time.Second); !got.Signaled() {
		t.Errorf("WaitFence = %v, want signaled", got)
	}
	if got := b.WaitFence(f2, time.Second); got != gpucore.WaitAlreadySignaled {
		t.Errorf("second WaitFence = %v, want AlreadySignaled", got)
	}
	b.DestroyFence(f1)
	b.DestroyFence(f2)
	if refs := b.last.refs; refs != 1 {
		t.Errorf("refs after destroy = %d, want 1", refs)
	}
}

func TestSubmitDraws(t *testing.T) {
	b := newTestBackend(t, WithTargetSize(64, 32))

	vb, err := b.CreateBuffer(gpucore.BufferDesc{Label: "vb", Size: 256, Usage: gpucore.BufferUsageVertex})
	if err != nil {
		t.Fatal(err)
	}
	ib, err := b.CreateBuffer(gpucore.BufferDesc{Label: "ib", Size: 64, Usage: gpucore.BufferUsageIndex})
	if err != nil {
		t.Fatal(err)
	}
	tex, err := b.CreateTexture(gpucore.TextureDesc{Label: "t", Width: 1, Height: 1, Format: gpucore.TextureFormatRGBA8Unorm})
	if err != nil {
		t.Fatal(err)
	}

	b.Draw(&gpucore.DrawCall{
		Pipeline: gpucore.PipelineColor, Mode: gpucore.PrimitiveLines,
		Transform: identity(), VertexBuffer: vb, VertexCount: 2,
	})
	b.Draw(&gpucore.DrawCall{
		Pipeline: gpucore.PipelineTextured, Mode: gpucore.PrimitiveTriangles, Texture: tex,
		Transform: identity(), VertexBuffer: vb, VertexCount: 4,
		IndexBuffer: ib, IndexFormat: gpucore.IndexFormatUint16, IndexCount: 6,
	})
	// Unknown texture: skipped, the frame still submits.
	b.Draw(&gpucore.DrawCall{
		Pipeline: gpucore.PipelineText, Mode: gpucore.PrimitiveTriangles, Texture: 999,
		Transform: identity(), VertexBuffer: vb, VertexCount: 3,
	})

	if err := b.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if b.Frames() != 1 {
		t.Errorf("Frames = %d, want 1", b.Frames())
	}
	if len(b.draws) != 0 {
		t.Errorf("draws not cleared: %d", len(b.draws))
	}
	if _, ok := b.pipes.pipelines[pipelineKey{gpucore.PipelineColor, gpucore.PrimitiveLines}]; !ok {
		t.Error("color/lines pipeline not cached")
	}
	if _, ok := b.pipes.pipelines[pipelineKey{gpucore.PipelineTextured, gpucore.PrimitiveTriangles}]; !ok {
		t.Error("textured/triangles pipeline not cached")
	}
	if b.textures[tex].bindGroup == nil {
		t.Error("texture bind group not created")
	}
	if b.transformsCap < 3 {
		t.Errorf("transformsCap = %d, want >= 3", b.transformsCap)
	}
}

func TestTransformBufferGrows(t *testing.T) {
	b := newTestBackend(t)
	vb, _ := b.CreateBuffer(gpucore.BufferDesc{Size: 64, Usage: gpucore.BufferUsageVertex})
	for range 100 {
		b.Draw(&gpucore.DrawCall{Transform: identity(), VertexBuffer: vb, VertexCount: 1})
	}
	if err := b.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if b.transformsCap != 128 {
		t.Errorf("transformsCap = %d, want 128", b.transformsCap)
	}
}

func TestClipTransformDepthRange(t *testing.T) {
	for _, p := range []float32{0, 0.5, 1} {
		c := camera.Default()
		c.ZFar = 100
		c.Perspective = p
		proj := c.ProjectionMatrix(640, 480)
		m := clipTransform([16]float32(proj))

		depth := func(z float32) float32 {
			v := m.MulVec4(vecmath.V3(0, 0, z).Point())
			return v.Z / v.W
		}
		if got := depth(-c.ZNear); !vecmath.ApproxEqual(got, 0, 1e-3) {
			t.Errorf("perspective=%v: near plane depth = %v, want 0", p, got)
		}
		if got := depth(-c.ZFar); !vecmath.ApproxEqual(got, 1, 1e-3) {
			t.Errorf("perspective=%v: far plane depth = %v, want 1", p, got)
		}

		// The look-at point must survive WebGPU's 0 <= z/w <= 1 clipping.
		vp := clipTransform([16]float32(proj.Mul(c.ViewMatrix())))
		v := vp.MulVec4(c.LookAt.Point())
		if d := v.Z / v.W; d < 0 || d > 1 {
			t.Errorf("perspective=%v: look-at depth = %v, want within [0, 1]", p, d)
		}
	}
}

func TestReadPixels(t *testing.T) {
	b := newTestBackend(t, WithTargetSize(70, 5))
	if _, err := b.ReadPixels(); !errors.Is(err, ErrNoOffscreen) {
		t.Errorf("ReadPixels before submit err = %v, want ErrNoOffscreen", err)
	}
	if err := b.Submit(); err != nil {
		t.Fatal(err)
	}
	img, err := b.ReadPixels()
	if err != nil {
		t.Fatalf("ReadPixels failed: %v", err)
	}
	if got := img.Bounds().Size(); got.X != 70 || got.Y != 5 {
		t.Errorf("image size = %v, want 70x5", got)
	}
}

func TestResizeRecreatesOffscreen(t *testing.T) {
	b := newTestBackend(t, WithTargetSize(8, 8))
	if err := b.Submit(); err != nil {
		t.Fatal(err)
	}
	if b.offscreen == nil {
		t.Fatal("offscreen target not created")
	}
	b.Resize(8, 8)
	if b.offscreen == nil {
		t.Error("same-size Resize dropped the target")
	}
	b.Resize(16, 4)
	if b.offscreen != nil {
		t.Error("Resize did not drop the old target")
	}
	if w, h := b.Size(); w != 16 || h != 4 {
		t.Errorf("Size = %dx%d, want 16x4", w, h)
	}
}

func TestClosed(t *testing.T) {
	b := newTestBackend(t)
	b.Close()
	b.Close()
	if err := b.Submit(); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit err = %v, want ErrClosed", err)
	}
	if _, err := b.CreateBuffer(gpucore.BufferDesc{Size: 4}); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateBuffer err = %v, want ErrClosed", err)
	}
	if _, err := b.InsertFence(); !errors.Is(err, ErrClosed) {
		t.Errorf("InsertFence err = %v, want ErrClosed", err)
	}
}

// mockProvider implements gpucontext.DeviceProvider with optional HAL
// accessors.
type mockProvider struct {
	device hal.Device
	queue  hal.Queue
}

func (m *mockProvider) Device() gpucontext.Device             { return nil }
func (m *mockProvider) Queue() gpucontext.Queue               { return nil }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return nil }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }

type mockHalProvider struct {
	mockProvider
}

func (m *mockHalProvider) HalDevice() any { return m.device }
func (m *mockHalProvider) HalQueue() any  { return m.queue }

func TestNewFromProvider(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	if _, err := NewFromProvider(nil); err == nil {
		t.Error("expected error for nil provider")
	}
	if _, err := NewFromProvider(&mockProvider{}); err == nil {
		t.Error("expected error for provider without HAL accessors")
	}
	if _, err := NewFromProvider(&mockHalProvider{}); err == nil {
		t.Error("expected error for provider with nil HAL device")
	}

	b, err := NewFromProvider(&mockHalProvider{mockProvider{device: device, queue: queue}})
	if err != nil {
		t.Fatalf("NewFromProvider failed: %v", err)
	}
	defer b.Close()
	if b.cfg.format != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("format = %v, want provider surface format", b.cfg.format)
	}
}

func TestContextFrames(t *testing.T) {
	b := newTestBackend(t)
	ctx, err := imdraw.NewContext(b, b, imdraw.WithInitialCapacity(256))
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	defer ctx.Close()

	for range 4 {
		ctx.BeginFrame(120, 80, imdraw.Pointer{})
		ctx.BeginCamera(camera.Default())
		ctx.Grid(4, 1, false, imdraw.Gray, 1)
		ctx.Axes(1, 2)
		ctx.Box(vecmath.Vec3{X: -1, Y: -1, Z: -1}, vecmath.Vec3{X: 1, Y: 1, Z: 1}, imdraw.Yellow, 1)
		ctx.Text(vecmath.Vec3{}, "origin", imdraw.White, 1)
		ctx.EndCamera()
		if err := ctx.EndFrame(); err != nil {
			t.Fatalf("EndFrame failed: %v", err)
		}
	}
	if b.Frames() != 4 {
		t.Errorf("Frames = %d, want 4", b.Frames())
	}
	if w, h := b.Size(); w != 120 || h != 80 {
		t.Errorf("target size = %dx%d, want 120x80", w, h)
	}
}
