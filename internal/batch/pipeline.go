// Package batch accumulates immediate mode primitives and flushes each
// Begin/End group as a single draw call.
//
// A Pipeline owns one accumulator per primitive kind. End uploads the
// vertices and the re-encoded indices into a streaming arena, then hands
// one gpucore.DrawCall to the command sink.
package batch

import (
	"errors"
	"fmt"
	"unsafe"

	"honnef.co/go/safeish"

	"github.com/gogpu/imdraw/camera"
	"github.com/gogpu/imdraw/gpucore"
	"github.com/gogpu/imdraw/internal/stream"
	"github.com/gogpu/imdraw/vecmath"
)

// Protocol errors. All are raised as panics.
var (
	// ErrNestedBegin reports Begin while a batch of the same kind is open.
	ErrNestedBegin = errors.New("batch: Begin while a batch is open")

	// ErrNotBegun reports Vertex, Index or End without an open batch.
	ErrNotBegun = errors.New("batch: no open batch")

	// ErrIndexOutOfRange reports an index that names no vertex of the batch.
	ErrIndexOutOfRange = errors.New("batch: index out of range")
)

// Stats counts the work flushed by a pipeline.
type Stats struct {
	DrawCalls int
	Vertices  int
	Indices   int

	// Formats counts indexed draws per index width.
	Formats [4]int
}

// Vertex is the set of vertex types a pipeline can carry.
type Vertex interface {
	ColorVertex | TexVertex
}

// Pipeline is the accumulator and flush logic of one primitive kind.
//
// Pipeline is not safe for concurrent use.
type Pipeline[V Vertex] struct {
	kind   gpucore.PipelineKind
	stride uint64
	arena  *stream.Arena
	sink   gpucore.CommandSink
	caps   gpucore.Capabilities

	vertices []V
	indices  []uint32
	maxIndex uint32
	open     bool
	mode     gpucore.PrimitiveMode
	width    float32

	texture   gpucore.TextureID
	fallback  gpucore.TextureID
	transform vecmath.Mat4

	stats Stats
}

// NewPipeline creates a pipeline that streams through arena and draws
// into sink.
func NewPipeline[V Vertex](kind gpucore.PipelineKind, arena *stream.Arena, sink gpucore.CommandSink, caps gpucore.Capabilities) *Pipeline[V] {
	var zero V
	return &Pipeline[V]{
		kind:      kind,
		stride:    uint64(unsafe.Sizeof(zero)),
		arena:     arena,
		sink:      sink,
		caps:      caps,
		vertices:  make([]V, 0, 256),
		indices:   make([]uint32, 0, 512),
		transform: vecmath.Identity(),
	}
}

// Kind returns the pipeline kind.
func (p *Pipeline[V]) Kind() gpucore.PipelineKind { return p.kind }

// Stride returns the vertex size in bytes.
func (p *Pipeline[V]) Stride() uint64 { return p.stride }

// SetMatrices implements camera.Listener.
func (p *Pipeline[V]) SetMatrices(m camera.Matrices) {
	p.transform = m.Combined
}

// Transform returns the matrix the next draw will use.
func (p *Pipeline[V]) Transform() vecmath.Mat4 { return p.transform }

// SetFallbackTexture sets the texture drawn when none is bound.
func (p *Pipeline[V]) SetFallbackTexture(id gpucore.TextureID) { p.fallback = id }

// SetTexture binds the texture for subsequent draws. InvalidID selects
// the fallback texture.
func (p *Pipeline[V]) SetTexture(id gpucore.TextureID) { p.texture = id }

// IsOpen reports whether a batch is being accumulated.
func (p *Pipeline[V]) IsOpen() bool { return p.open }

// Begin opens a batch.
func (p *Pipeline[V]) Begin(mode gpucore.PrimitiveMode, width float32) {
	if p.open {
		panic(fmt.Errorf("%s %s: %w", p.kind, mode, ErrNestedBegin))
	}
	p.open = true
	p.mode = mode
	p.width = width
}

// Vertex appends a vertex and returns its index within the batch.
func (p *Pipeline[V]) Vertex(v V) uint32 {
	if !p.open {
		panic(fmt.Errorf("%s Vertex: %w", p.kind, ErrNotBegun))
	}
	p.vertices = append(p.vertices, v)
	return uint32(len(p.vertices) - 1) //nolint:gosec // batch sizes stay far below 2^32
}

// Index appends an index.
func (p *Pipeline[V]) Index(i uint32) {
	if !p.open {
		panic(fmt.Errorf("%s Index: %w", p.kind, ErrNotBegun))
	}
	p.indices = append(p.indices, i)
	if i > p.maxIndex {
		p.maxIndex = i
	}
}

// VertexCount returns the number of vertices in the open batch.
func (p *Pipeline[V]) VertexCount() int { return len(p.vertices) }

// End closes the batch and flushes it as one draw call. An empty batch
// only closes.
func (p *Pipeline[V]) End() {
	if !p.open {
		panic(fmt.Errorf("%s End: %w", p.kind, ErrNotBegun))
	}
	defer p.reset()
	if len(p.vertices) == 0 {
		return
	}

	format := gpucore.IndexFormatNone
	var indexData []byte
	if len(p.indices) > 0 {
		if int(p.maxIndex) >= len(p.vertices) {
			panic(fmt.Errorf("%s End: index %d with %d vertices: %w", p.kind, p.maxIndex, len(p.vertices), ErrIndexOutOfRange))
		}
		format = SelectIndexFormat(p.maxIndex, p.caps.IndexUint8)
		indexData = EncodeIndices(p.indices, format)
	}

	vertexData := safeish.SliceCast[[]byte](p.vertices)
	p.arena.Reserve(uint64(len(vertexData)) + p.stride + uint64(len(indexData)) + stream.MinAlign)

	va := p.arena.Upload(vertexData, p.stride)
	call := gpucore.DrawCall{
		Pipeline:     p.kind,
		Mode:         p.mode,
		Width:        p.width,
		Texture:      p.boundTexture(),
		Transform:    p.transform,
		VertexBuffer: va.Buffer,
		VertexOffset: va.Offset,
		BaseVertex:   uint32(va.Offset / p.stride), //nolint:gosec // arena offsets fit in uint32 strides
		VertexCount:  uint32(len(p.vertices)),      //nolint:gosec // batch sizes stay far below 2^32
	}
	if format != gpucore.IndexFormatNone {
		ia := p.arena.Upload(indexData, uint64(format.Size()))
		call.IndexBuffer = ia.Buffer
		call.IndexFormat = format
		call.IndexOffset = ia.Offset
		call.IndexCount = uint32(len(p.indices)) //nolint:gosec // batch sizes stay far below 2^32
		p.stats.Formats[format]++
	}
	p.sink.Draw(&call)

	p.stats.DrawCalls++
	p.stats.Vertices += len(p.vertices)
	p.stats.Indices += len(p.indices)
}

func (p *Pipeline[V]) boundTexture() gpucore.TextureID {
	if p.kind == gpucore.PipelineColor {
		return gpucore.InvalidID
	}
	if p.texture != gpucore.InvalidID {
		return p.texture
	}
	return p.fallback
}

func (p *Pipeline[V]) reset() {
	p.vertices = p.vertices[:0]
	p.indices = p.indices[:0]
	p.maxIndex = 0
	p.open = false
}

// Stats returns the flush counters.
func (p *Pipeline[V]) Stats() Stats { return p.stats }

// ResetStats clears the flush counters.
func (p *Pipeline[V]) ResetStats() { p.stats = Stats{} }
