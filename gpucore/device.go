package gpucore

import "time"

// Device abstracts the resource side of a GPU backend.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a resource while the GPU still reads it is undefined
//     behavior; callers guard reuse with fences
type Device interface {
	// === Capabilities ===

	// Capabilities reports optional device features.
	Capabilities() Capabilities

	// === Buffer Management ===

	// CreateBuffer creates a GPU buffer.
	CreateBuffer(desc BufferDesc) (BufferID, error)

	// DestroyBuffer releases a GPU buffer.
	DestroyBuffer(id BufferID)

	// WriteBuffer copies data into a buffer at offset. The write is
	// ordered before any draw submitted after it. len(data) must be a
	// multiple of 4.
	WriteBuffer(id BufferID, offset uint64, data []byte)

	// === Texture Management ===

	// CreateTexture creates a sampled 2D texture.
	CreateTexture(desc TextureDesc) (TextureID, error)

	// WriteTexture replaces the full contents of a texture. pixels holds
	// tightly packed rows.
	WriteTexture(id TextureID, pixels []byte) error

	// DestroyTexture releases a texture.
	DestroyTexture(id TextureID)

	// === Synchronization ===

	// InsertFence returns a fence that signals once all work submitted
	// so far has completed.
	InsertFence() (FenceID, error)

	// WaitFence blocks until the fence signals or timeout elapses.
	WaitFence(id FenceID, timeout time.Duration) WaitStatus

	// DestroyFence releases a fence.
	DestroyFence(id FenceID)
}

// CommandSink receives the draw calls of a frame in submission order.
type CommandSink interface {
	// Draw records one draw call. The call references arena buffers by ID;
	// the offsets stay valid until the next frame's uploads reach them.
	Draw(call *DrawCall)

	// Submit executes every draw recorded since the previous Submit.
	Submit() error
}
