// Package fake provides an in-memory gpucore.Device and CommandSink that
// record every call. Tests use it to inspect uploads, draws and fence
// traffic without a GPU.
package fake

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/imdraw/gpucore"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("fake: injected failure")

// Buffer is the recorded state of one buffer.
type Buffer struct {
	Desc      gpucore.BufferDesc
	Data      []byte
	Destroyed bool
}

// Texture is the recorded state of one texture.
type Texture struct {
	Desc      gpucore.TextureDesc
	Pixels    []byte
	Destroyed bool
}

// Fence is the recorded state of one fence.
type Fence struct {
	// Frame is the number of Submit calls seen before the fence was inserted.
	Frame     int
	Waited    bool
	Destroyed bool
}

// Device is a recording gpucore.Device and gpucore.CommandSink.
//
// Device is safe for concurrent use.
type Device struct {
	mu sync.Mutex

	Caps gpucore.Capabilities

	// WaitStatus is returned by WaitFence. The zero value reports
	// WaitAlreadySignaled.
	WaitStatus gpucore.WaitStatus

	// FailCreateBuffer makes CreateBuffer return ErrInjected.
	FailCreateBuffer bool

	// FailSubmit makes Submit return ErrInjected.
	FailSubmit bool

	nextID   uint64
	buffers  map[gpucore.BufferID]*Buffer
	textures map[gpucore.TextureID]*Texture
	fences   map[gpucore.FenceID]*Fence

	pending []gpucore.DrawCall
	frames  [][]gpucore.DrawCall
	waits   []gpucore.FenceID
}

// New creates a device with 8-bit index support.
func New() *Device {
	return &Device{
		Caps:     gpucore.Capabilities{IndexUint8: true, WideLines: true, MaxBufferSize: 1 << 30},
		buffers:  make(map[gpucore.BufferID]*Buffer),
		textures: make(map[gpucore.TextureID]*Texture),
		fences:   make(map[gpucore.FenceID]*Fence),
	}
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// Capabilities implements gpucore.Device.
func (d *Device) Capabilities() gpucore.Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Caps
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(desc gpucore.BufferDesc) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailCreateBuffer {
		return gpucore.InvalidID, ErrInjected
	}
	id := gpucore.BufferID(d.id())
	d.buffers[id] = &Buffer{Desc: desc, Data: make([]byte, desc.Size)}
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[id]; ok {
		b.Destroyed = true
	}
}

// WriteBuffer implements gpucore.Device. Writes to unknown or destroyed
// buffers, unaligned writes and out of range writes panic.
func (d *Device) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok || b.Destroyed {
		panic(fmt.Sprintf("fake: write to dead buffer %d", id))
	}
	if len(data)%4 != 0 {
		panic(fmt.Sprintf("fake: write of %d bytes is not 4-byte aligned", len(data)))
	}
	if offset+uint64(len(data)) > uint64(len(b.Data)) {
		panic(fmt.Sprintf("fake: write [%d,%d) exceeds buffer size %d", offset, offset+uint64(len(data)), len(b.Data)))
	}
	copy(b.Data[offset:], data)
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc gpucore.TextureDesc) (gpucore.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.TextureID(d.id())
	d.textures[id] = &Texture{Desc: desc}
	return id, nil
}

// WriteTexture implements gpucore.Device.
func (d *Device) WriteTexture(id gpucore.TextureID, pixels []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok || t.Destroyed {
		return fmt.Errorf("fake: texture %d: %w", id, ErrInjected)
	}
	t.Pixels = append(t.Pixels[:0], pixels...)
	return nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.textures[id]; ok {
		t.Destroyed = true
	}
}

// InsertFence implements gpucore.Device.
func (d *Device) InsertFence() (gpucore.FenceID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.FenceID(d.id())
	d.fences[id] = &Fence{Frame: len(d.frames)}
	return id, nil
}

// WaitFence implements gpucore.Device.
func (d *Device) WaitFence(id gpucore.FenceID, _ time.Duration) gpucore.WaitStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.fences[id]; ok {
		f.Waited = true
	}
	d.waits = append(d.waits, id)
	return d.WaitStatus
}

// DestroyFence implements gpucore.Device.
func (d *Device) DestroyFence(id gpucore.FenceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.fences[id]; ok {
		f.Destroyed = true
	}
}

// Draw implements gpucore.CommandSink.
func (d *Device) Draw(call *gpucore.DrawCall) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, *call)
}

// Submit implements gpucore.CommandSink.
func (d *Device) Submit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailSubmit {
		d.pending = nil
		return ErrInjected
	}
	d.frames = append(d.frames, d.pending)
	d.pending = nil
	return nil
}

// === Inspection ===

// Buffer returns the recorded buffer state.
func (d *Device) Buffer(id gpucore.BufferID) (Buffer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return Buffer{}, false
	}
	return *b, true
}

// Texture returns the recorded texture state.
func (d *Device) Texture(id gpucore.TextureID) (Texture, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok {
		return Texture{}, false
	}
	return *t, true
}

// Fence returns the recorded fence state.
func (d *Device) Fence(id gpucore.FenceID) (Fence, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.fences[id]
	if !ok {
		return Fence{}, false
	}
	return *f, true
}

// Bytes returns n bytes of a buffer starting at offset.
func (d *Device) Bytes(id gpucore.BufferID, offset uint64, n int) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.buffers[id]
	out := make([]byte, n)
	copy(out, b.Data[offset:])
	return out
}

// Pending returns the draws recorded since the last Submit.
func (d *Device) Pending() []gpucore.DrawCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]gpucore.DrawCall(nil), d.pending...)
}

// Frames returns the draws of every submitted frame.
func (d *Device) Frames() [][]gpucore.DrawCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]gpucore.DrawCall(nil), d.frames...)
}

// Waits returns the fences passed to WaitFence, in call order.
func (d *Device) Waits() []gpucore.FenceID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]gpucore.FenceID(nil), d.waits...)
}

// LiveBuffers counts buffers not yet destroyed.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, b := range d.buffers {
		if !b.Destroyed {
			n++
		}
	}
	return n
}

// LiveTextures counts textures not yet destroyed.
func (d *Device) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, t := range d.textures {
		if !t.Destroyed {
			n++
		}
	}
	return n
}

var (
	_ gpucore.Device      = (*Device)(nil)
	_ gpucore.CommandSink = (*Device)(nil)
)
