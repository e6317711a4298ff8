// Package stream implements the per-frame streaming buffer arena.
//
// An Arena owns K GPU buffers of equal capacity (regions). Each frame one
// region is active: uploads are copied into its CPU staging mirror and
// written to its GPU buffer at a bump-allocated offset. FinishFrame fences
// the active region and rotates to the next one, waiting for that region's
// fence from K frames ago before it is written again.
package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/imdraw/gpucore"
)

// Default arena settings.
const (
	// DefaultInitialCapacity is the starting size of every region (32 KiB).
	DefaultInitialCapacity = 32 << 10

	// DefaultSizeHint is the per-frame byte budget above which small
	// writes wrap around instead of growing the arena (4 MiB).
	DefaultSizeHint = 4 << 20

	// DefaultRegions is the number of regions in flight.
	DefaultRegions = 2

	// DefaultFenceTimeout bounds the wait for a region to become free.
	DefaultFenceTimeout = 5 * time.Second

	// MinAlign is the minimum upload alignment. GPU buffer writes must be
	// multiples of four bytes.
	MinAlign = 4
)

// Arena errors. ErrFenceWait and ErrAllocation are raised as panics:
// both mean the device failed underneath the renderer.
var (
	// ErrFenceWait reports a fence wait that neither found the fence
	// signaled nor saw it signal before the timeout.
	ErrFenceWait = errors.New("stream: fence wait failed")

	// ErrAllocation reports a failed region allocation.
	ErrAllocation = errors.New("stream: region allocation failed")

	// ErrClosed reports use of an arena after Close.
	ErrClosed = errors.New("stream: arena is closed")
)

// Config configures an Arena. Zero fields take the Default* values.
type Config struct {
	// Label prefixes the debug labels of the region buffers.
	Label string

	// Usage of the region buffers. CopyDst is always added.
	Usage gpucore.BufferUsage

	// InitialCapacity is the starting size of each region in bytes.
	InitialCapacity uint64

	// SizeHint is the soft per-frame budget in bytes.
	SizeHint uint64

	// Regions is the number of regions, at least 2.
	Regions int

	// FenceTimeout bounds each region wait.
	FenceTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Label == "" {
		c.Label = "stream"
	}
	if c.Usage == 0 {
		c.Usage = gpucore.BufferUsageVertex | gpucore.BufferUsageIndex
	}
	c.Usage |= gpucore.BufferUsageCopyDst
	if c.InitialCapacity == 0 {
		c.InitialCapacity = DefaultInitialCapacity
	}
	c.InitialCapacity = alignUp(c.InitialCapacity, MinAlign)
	if c.SizeHint == 0 {
		c.SizeHint = DefaultSizeHint
	}
	if c.Regions < DefaultRegions {
		c.Regions = DefaultRegions
	}
	if c.FenceTimeout <= 0 {
		c.FenceTimeout = DefaultFenceTimeout
	}
	return c
}

// Allocation locates an upload inside a region buffer.
type Allocation struct {
	Buffer gpucore.BufferID
	Offset uint64
	Size   uint64
}

// Stats counts arena events since creation.
type Stats struct {
	Capacity      uint64
	Frames        uint64
	Grows         int
	SoftOverflows int
	FenceWaits    int
	BytesUploaded uint64
}

type region struct {
	buffer  gpucore.BufferID
	staging []byte
	fence   gpucore.FenceID
	frame   uint64
}

// retiredBuffer is a buffer replaced by growth. It is destroyed once the
// frame that last referenced it is known complete.
type retiredBuffer struct {
	buffer gpucore.BufferID
	frame  uint64
}

// Arena is a K-region streaming allocator. See the package documentation.
//
// Arena is not safe for concurrent use.
type Arena struct {
	dev gpucore.Device
	cfg Config

	capacity uint64
	head     uint64
	active   int
	frame    uint64

	// doneBefore is the first frame not yet known complete on the GPU.
	doneBefore uint64

	regions []region
	retired []retiredBuffer
	stats   Stats
	closed  bool
}

// New creates an arena and allocates its regions. A failing device
// allocation panics with ErrAllocation.
func New(dev gpucore.Device, cfg Config) *Arena {
	cfg = cfg.withDefaults()
	a := &Arena{
		dev:      dev,
		cfg:      cfg,
		capacity: cfg.InitialCapacity,
		regions:  make([]region, cfg.Regions),
	}
	for i := range a.regions {
		a.regions[i] = region{
			buffer:  a.allocate(i, a.capacity),
			staging: make([]byte, a.capacity),
		}
	}
	slogger().Debug("stream: arena created",
		"label", cfg.Label, "regions", cfg.Regions, "capacity", a.capacity, "sizeHint", cfg.SizeHint)
	return a
}

func (a *Arena) allocate(i int, size uint64) gpucore.BufferID {
	id, err := a.dev.CreateBuffer(gpucore.BufferDesc{
		Label: fmt.Sprintf("%s_region_%d", a.cfg.Label, i),
		Size:  size,
		Usage: a.cfg.Usage,
	})
	if err != nil {
		panic(fmt.Errorf("%w: %s region %d (%d bytes): %w", ErrAllocation, a.cfg.Label, i, size, err))
	}
	return id
}

// Reserve makes room for n more bytes in the active region so that the
// next uploads totalling at most n bytes (each padded to MinAlign) land in
// the same buffer without further growth.
func (a *Arena) Reserve(n uint64) {
	a.checkOpen()
	a.head = a.place(alignUp(n, MinAlign), MinAlign)
}

// Upload copies data into the active region and returns where it landed.
// The offset is aligned to align (at least MinAlign). The copy is
// synchronous; data may be reused as soon as Upload returns.
func (a *Arena) Upload(data []byte, align uint64) Allocation {
	a.checkOpen()
	if align < MinAlign {
		align = MinAlign
	}
	size := alignUp(uint64(len(data)), MinAlign)
	off := a.place(size, align)

	r := &a.regions[a.active]
	dst := r.staging[off : off+size]
	n := copy(dst, data)
	clear(dst[n:])
	if size > 0 {
		a.dev.WriteBuffer(r.buffer, off, dst)
	}

	a.head = off + size
	a.stats.BytesUploaded += size
	return Allocation{Buffer: r.buffer, Offset: off, Size: uint64(len(data))}
}

// place returns the offset for a write of size bytes, applying the growth
// policy when the write does not fit behind head.
func (a *Arena) place(size, align uint64) uint64 {
	off := alignUp(a.head, align)
	end := off + size
	if end <= a.capacity {
		return off
	}
	if end > a.cfg.SizeHint && size <= a.capacity {
		a.stats.SoftOverflows++
		slogger().Warn("stream: size hint exceeded, wrapping region",
			"label", a.cfg.Label, "frame", a.frame, "head", a.head, "size", size, "sizeHint", a.cfg.SizeHint)
		return 0
	}
	a.grow(end)
	return off
}

// grow reallocates every region with at least need bytes. Old buffers are
// retired so that draws already recorded against them stay valid.
func (a *Arena) grow(need uint64) {
	newCap := a.capacity
	for newCap < need {
		newCap *= 2
	}
	if limit := a.dev.Capabilities().MaxBufferSize; limit > 0 && newCap > limit {
		panic(fmt.Errorf("%w: %s needs %d bytes, device limit is %d", ErrAllocation, a.cfg.Label, newCap, limit))
	}
	for i := range a.regions {
		r := &a.regions[i]
		a.retired = append(a.retired, retiredBuffer{buffer: r.buffer, frame: a.frame})
		r.buffer = a.allocate(i, newCap)
		staging := make([]byte, newCap)
		if i == a.active {
			copy(staging, r.staging[:a.head])
		}
		r.staging = staging
	}
	slogger().Debug("stream: arena grown",
		"label", a.cfg.Label, "frame", a.frame, "from", a.capacity, "to", newCap)
	a.capacity = newCap
	a.stats.Grows++
}

// FinishFrame fences the active region, rotates to the next one and
// blocks until that region's previous fence has signaled. A wait that
// reports neither AlreadySignaled nor ConditionSatisfied panics with
// ErrFenceWait.
func (a *Arena) FinishFrame() {
	a.checkOpen()
	cur := &a.regions[a.active]
	fence, err := a.dev.InsertFence()
	if err != nil {
		panic(fmt.Errorf("%w: insert fence for %s region %d: %w", ErrFenceWait, a.cfg.Label, a.active, err))
	}
	cur.fence = fence
	cur.frame = a.frame

	a.active = (a.active + 1) % len(a.regions)
	a.frame++
	a.head = 0
	a.stats.Frames++

	next := &a.regions[a.active]
	if next.fence != gpucore.InvalidID {
		a.waitRegion(a.active)
	}
	a.reclaim()
}

// waitRegion blocks on the fence of region i and releases it.
func (a *Arena) waitRegion(i int) {
	r := &a.regions[i]
	status := a.dev.WaitFence(r.fence, a.cfg.FenceTimeout)
	a.stats.FenceWaits++
	if !status.Signaled() {
		panic(fmt.Errorf("%w: %s region %d frame %d: %s", ErrFenceWait, a.cfg.Label, i, r.frame, status))
	}
	a.dev.DestroyFence(r.fence)
	r.fence = gpucore.InvalidID
	if r.frame+1 > a.doneBefore {
		a.doneBefore = r.frame + 1
	}
}

// reclaim destroys retired buffers whose last frame has completed.
func (a *Arena) reclaim() {
	kept := a.retired[:0]
	for _, rb := range a.retired {
		if rb.frame < a.doneBefore {
			a.dev.DestroyBuffer(rb.buffer)
			continue
		}
		kept = append(kept, rb)
	}
	clear(a.retired[len(kept):])
	a.retired = kept
}

// Close waits for every outstanding fence and releases all buffers.
// Close is idempotent.
func (a *Arena) Close() {
	if a.closed {
		return
	}
	for i := range a.regions {
		r := &a.regions[i]
		if r.fence != gpucore.InvalidID {
			if status := a.dev.WaitFence(r.fence, a.cfg.FenceTimeout); !status.Signaled() {
				slogger().Warn("stream: fence wait failed during close",
					"label", a.cfg.Label, "region", i, "status", status.String())
			}
			a.dev.DestroyFence(r.fence)
			r.fence = gpucore.InvalidID
		}
		a.dev.DestroyBuffer(r.buffer)
		r.buffer = gpucore.InvalidID
		r.staging = nil
	}
	for _, rb := range a.retired {
		a.dev.DestroyBuffer(rb.buffer)
	}
	a.retired = nil
	a.closed = true
}

func (a *Arena) checkOpen() {
	if a.closed {
		panic(ErrClosed)
	}
}

// Capacity returns the current size of each region in bytes.
func (a *Arena) Capacity() uint64 { return a.capacity }

// Head returns the write offset in the active region.
func (a *Arena) Head() uint64 { return a.head }

// Active returns the index of the region being written.
func (a *Arena) Active() int { return a.active }

// Frame returns the number of finished frames.
func (a *Arena) Frame() uint64 { return a.frame }

// Regions returns the number of regions.
func (a *Arena) Regions() int { return len(a.regions) }

// Buffer returns the GPU buffer of region i.
func (a *Arena) Buffer(i int) gpucore.BufferID { return a.regions[i].buffer }

// Staging returns the CPU mirror of region i. The slice is owned by the
// arena and is replaced on growth.
func (a *Arena) Staging(i int) []byte { return a.regions[i].staging }

// Retired returns the number of buffers waiting for their frame to complete.
func (a *Arena) Retired() int { return len(a.retired) }

// Stats returns the arena counters.
func (a *Arena) Stats() Stats {
	s := a.stats
	s.Capacity = a.capacity
	return s
}

func alignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}
