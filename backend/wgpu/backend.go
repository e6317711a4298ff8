//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/imdraw/gpucore"
	"github.com/gogpu/wgpu/hal"
)

// Sentinel errors.
var (
	// ErrClosed is returned by operations on a closed Backend.
	ErrClosed = errors.New("wgpu: backend closed")

	// ErrUnknownBuffer is returned for a buffer ID the backend never issued
	// or already destroyed.
	ErrUnknownBuffer = errors.New("wgpu: unknown buffer")

	// ErrUnknownTexture is returned for an unknown or destroyed texture ID.
	ErrUnknownTexture = errors.New("wgpu: unknown texture")

	// ErrTextureData is returned when uploaded pixels do not match the
	// texture size.
	ErrTextureData = errors.New("wgpu: texture data size mismatch")

	// ErrNoOffscreen is returned by ReadPixels while a surface target is set.
	ErrNoOffscreen = errors.New("wgpu: no offscreen target")
)

const (
	// maxBufferSize is the largest buffer the backend reports it can create.
	maxBufferSize = 256 << 20

	// waitTimeout bounds internal waits on submissions nobody else waits on.
	waitTimeout = 5 * time.Second
)

// Option configures a Backend.
type Option func(*config)

type config struct {
	width, height int
	format        gputypes.TextureFormat
	clear         gputypes.Color
}

func defaultConfig() config {
	return config{
		width:  640,
		height: 480,
		format: gputypes.TextureFormatRGBA8Unorm,
	}
}

// WithTargetSize sets the initial offscreen target size in pixels.
func WithTargetSize(width, height int) Option {
	return func(c *config) {
		c.width, c.height = max(width, 1), max(height, 1)
	}
}

// WithTargetFormat sets the color format of every render target. Surface
// views passed to SetSurfaceTarget must use the same format.
func WithTargetFormat(f gputypes.TextureFormat) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithClearColor sets the color the target is cleared to each frame.
func WithClearColor(col gputypes.Color) Option {
	return func(c *config) {
		c.clear = col
	}
}

type buffer struct {
	buf  hal.Buffer
	size uint64
}

type texture struct {
	desc      gpucore.TextureDesc
	tex       hal.Texture
	view      hal.TextureView
	bindGroup hal.BindGroup
}

// submission is one queue submission and the fence it signals. It is
// shared by every gpucore fence inserted after it.
type submission struct {
	fence    hal.Fence
	cmd      hal.CommandBuffer
	refs     int
	signaled bool
}

// Backend is a gpucore.Device and gpucore.CommandSink over a hal device.
// All methods are safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue
	cfg    config

	nextID   uint64
	buffers  map[gpucore.BufferID]*buffer
	textures map[gpucore.TextureID]*texture
	fences   map[gpucore.FenceID]*submission
	last     *submission

	pipes   *pipelineCache
	sampler hal.Sampler

	transforms      hal.Buffer
	transformsCap   int
	transformsGroup hal.BindGroup
	scratch         []byte

	draws []gpucore.DrawCall

	offscreen     hal.Texture
	offscreenView hal.TextureView
	surfaceView   hal.TextureView
	width, height int

	frames uint64
	closed bool
}

// Compile-time interface checks.
var (
	_ gpucore.Device      = (*Backend)(nil)
	_ gpucore.CommandSink = (*Backend)(nil)
)

// New creates a Backend on an open hal device and queue. The device stays
// owned by the caller and must outlive the Backend.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Backend, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: nil device or queue")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	pipes, err := newPipelineCache(device, cfg.format)
	if err != nil {
		return nil, fmt.Errorf("wgpu: %w", err)
	}
	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "imdraw_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		pipes.destroy()
		return nil, fmt.Errorf("wgpu: create sampler: %w", err)
	}

	b := &Backend{
		device:   device,
		queue:    queue,
		cfg:      cfg,
		buffers:  make(map[gpucore.BufferID]*buffer),
		textures: make(map[gpucore.TextureID]*texture),
		fences:   make(map[gpucore.FenceID]*submission),
		pipes:    pipes,
		sampler:  sampler,
		width:    cfg.width,
		height:   cfg.height,
	}
	slogger().Info("wgpu: backend created",
		"width", cfg.width, "height", cfg.height, "format", cfg.format)
	return b, nil
}

// NewFromProvider creates a Backend that shares the device of a gpucontext
// provider. The provider must also expose HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue. Unless overridden by opts, targets use
// the provider's surface format.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if provider == nil {
		return nil, fmt.Errorf("wgpu: nil provider")
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}
	opts = append([]Option{WithTargetFormat(provider.SurfaceFormat())}, opts...)
	return New(device, queue, opts...)
}

// SetLogger receives the logger from imdraw.WithLogger.
func (b *Backend) SetLogger(l *slog.Logger) {
	SetLogger(l)
}

// Capabilities reports what the hal device supports.
func (b *Backend) Capabilities() gpucore.Capabilities {
	return gpucore.Capabilities{
		IndexUint8:    false,
		WideLines:     false,
		MaxBufferSize: maxBufferSize,
	}
}

// Frames returns the number of submitted frames.
func (b *Backend) Frames() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

func (b *Backend) newID() uint64 {
	b.nextID++
	return b.nextID
}

// === Buffers ===

// CreateBuffer creates a GPU buffer. The size is rounded up to 4 bytes.
func (b *Backend) CreateBuffer(desc gpucore.BufferDesc) (gpucore.BufferID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return gpucore.InvalidID, ErrClosed
	}
	if desc.Size == 0 || desc.Size > maxBufferSize {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create buffer %q: invalid size %d", desc.Label, desc.Size)
	}
	size := alignUp(desc.Size, 4)
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: bufferUsageOf(desc.Usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create buffer %q: %w", desc.Label, err)
	}
	id := gpucore.BufferID(b.newID())
	b.buffers[id] = &buffer{buf: buf, size: size}
	slogger().Debug("wgpu: buffer created", "id", id, "label", desc.Label, "size", size)
	return id, nil
}

// WriteBuffer copies data into a buffer at offset. Writes past the end of
// the buffer are truncated and logged.
func (b *Backend) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[id]
	if !ok || b.closed || len(data) == 0 {
		return
	}
	if offset >= buf.size {
		slogger().Warn("wgpu: buffer write out of range", "id", id, "offset", offset, "size", buf.size)
		return
	}
	if n := buf.size - offset; uint64(len(data)) > n {
		slogger().Warn("wgpu: buffer write truncated", "id", id, "len", len(data), "room", n)
		data = data[:n]
	}
	if len(data)%4 != 0 {
		padded := make([]byte, alignUp(uint64(len(data)), 4))
		copy(padded, data)
		data = padded
	}
	b.queue.WriteBuffer(buf.buf, offset, data)
}

// DestroyBuffer releases a buffer. Unknown IDs are ignored.
func (b *Backend) DestroyBuffer(id gpucore.BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if buf, ok := b.buffers[id]; ok {
		b.device.DestroyBuffer(buf.buf)
		delete(b.buffers, id)
	}
}

func bufferUsageOf(u gpucore.BufferUsage) gputypes.BufferUsage {
	out := gputypes.BufferUsageCopyDst
	if u&gpucore.BufferUsageIndex != 0 {
		out |= gputypes.BufferUsageIndex
	}
	if u&gpucore.BufferUsageVertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	if u&gpucore.BufferUsageUniform != 0 {
		out |= gputypes.BufferUsageUniform
	}
	return out
}

// === Textures ===

// CreateTexture creates a sampled 2D texture.
func (b *Backend) CreateTexture(desc gpucore.TextureDesc) (gpucore.TextureID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return gpucore.InvalidID, ErrClosed
	}
	format, err := textureFormatOf(desc.Format)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create texture %q: %w", desc.Label, err)
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: uint32(desc.Width), Height: uint32(desc.Height), DepthOrArrayLayers: 1}, //nolint:gosec // validated positive
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create texture %q: %w", desc.Label, err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         desc.Label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return gpucore.InvalidID, fmt.Errorf("wgpu: create texture view %q: %w", desc.Label, err)
	}
	id := gpucore.TextureID(b.newID())
	b.textures[id] = &texture{desc: desc, tex: tex, view: view}
	slogger().Debug("wgpu: texture created", "id", id, "label", desc.Label,
		"width", desc.Width, "height", desc.Height, "format", desc.Format)
	return id, nil
}

// WriteTexture replaces the full contents of a texture. pixels must hold
// exactly Width*Height*BytesPerPixel bytes.
func (b *Backend) WriteTexture(id gpucore.TextureID, pixels []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	t, ok := b.textures[id]
	if !ok {
		return fmt.Errorf("texture %d: %w", id, ErrUnknownTexture)
	}
	bpp := t.desc.Format.BytesPerPixel()
	if want := t.desc.Width * t.desc.Height * bpp; len(pixels) != want {
		return fmt.Errorf("texture %d: got %d bytes, want %d: %w", id, len(pixels), want, ErrTextureData)
	}
	w, h := uint32(t.desc.Width), uint32(t.desc.Height) //nolint:gosec // validated at creation
	b.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
		},
		pixels,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * uint32(bpp), //nolint:gosec // 1 or 4
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return nil
}

// DestroyTexture releases a texture and its view. Unknown IDs are ignored.
func (b *Backend) DestroyTexture(id gpucore.TextureID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.textures[id]; ok {
		b.destroyTexture(t)
		delete(b.textures, id)
	}
}

func (b *Backend) destroyTexture(t *texture) {
	if t.bindGroup != nil {
		b.device.DestroyBindGroup(t.bindGroup)
	}
	b.device.DestroyTextureView(t.view)
	b.device.DestroyTexture(t.tex)
}

// textureBindGroup returns the group 1 bind group of a texture, creating
// it on first use.
func (b *Backend) textureBindGroup(t *texture) (hal.BindGroup, error) {
	if t.bindGroup != nil {
		return t.bindGroup, nil
	}
	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  t.desc.Label + "_bind",
		Layout: b.pipes.textureLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: b.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create texture bind group: %w", err)
	}
	t.bindGroup = bg
	return bg, nil
}

func textureFormatOf(f gpucore.TextureFormat) (gputypes.TextureFormat, error) {
	switch f {
	case gpucore.TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, nil
	case gpucore.TextureFormatRGBA8UnormSRGB:
		return gputypes.TextureFormatRGBA8UnormSrgb, nil
	case gpucore.TextureFormatR8Unorm:
		return gputypes.TextureFormatR8Unorm, nil
	default:
		return 0, fmt.Errorf("unsupported texture format %s", f)
	}
}

// === Fences ===

// InsertFence returns a fence that signals when everything submitted so far
// has completed. Before the first submission the fence is already signaled.
func (b *Backend) InsertFence() (gpucore.FenceID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return gpucore.InvalidID, ErrClosed
	}
	id := gpucore.FenceID(b.newID())
	if b.last != nil {
		b.last.refs++
	}
	b.fences[id] = b.last
	return id, nil
}

// WaitFence blocks until the fence signals or timeout elapses.
func (b *Backend) WaitFence(id gpucore.FenceID, timeout time.Duration) gpucore.WaitStatus {
	b.mu.Lock()
	s, ok := b.fences[id]
	b.mu.Unlock()
	if !ok {
		return gpucore.WaitFailed
	}
	if s == nil {
		return gpucore.WaitAlreadySignaled
	}
	b.mu.Lock()
	signaled := s.signaled
	b.mu.Unlock()
	if signaled {
		return gpucore.WaitAlreadySignaled
	}

	done, err := b.device.Wait(s.fence, 1, timeout)
	switch {
	case err != nil:
		slogger().Warn("wgpu: fence wait failed", "fence", id, "err", err)
		return gpucore.WaitFailed
	case !done:
		return gpucore.WaitTimeout
	}
	b.mu.Lock()
	s.signaled = true
	b.mu.Unlock()
	return gpucore.WaitConditionSatisfied
}

// DestroyFence releases a fence. Unknown IDs are ignored.
func (b *Backend) DestroyFence(id gpucore.FenceID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.fences[id]
	if !ok {
		return
	}
	delete(b.fences, id)
	b.release(s)
}

// release drops one reference to s and frees its resources at zero.
func (b *Backend) release(s *submission) {
	if s == nil {
		return
	}
	s.refs--
	if s.refs > 0 {
		return
	}
	if !s.signaled {
		if ok, err := b.device.Wait(s.fence, 1, waitTimeout); err != nil || !ok {
			slogger().Warn("wgpu: submission not complete at release", "ok", ok, "err", err)
		}
	}
	b.device.FreeCommandBuffer(s.cmd)
	b.device.DestroyFence(s.fence)
}

// === Lifecycle ===

// Close waits for outstanding work and releases every resource the
// backend created. The hal device is not destroyed. Close is idempotent.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true

	for id, s := range b.fences {
		b.release(s)
		delete(b.fences, id)
	}
	b.release(b.last)
	b.last = nil

	for id, t := range b.textures {
		b.destroyTexture(t)
		delete(b.textures, id)
	}
	for id, buf := range b.buffers {
		b.device.DestroyBuffer(buf.buf)
		delete(b.buffers, id)
	}
	b.destroyTransforms()
	b.destroyOffscreen()
	if b.sampler != nil {
		b.device.DestroySampler(b.sampler)
		b.sampler = nil
	}
	b.pipes.destroy()
	b.draws = nil
	slogger().Info("wgpu: backend closed", "frames", b.frames)
}

func alignUp(n, a uint64) uint64 {
	return (n + a - 1) &^ (a - 1)
}
