package gpucore

// Resource IDs
//
// These opaque IDs represent GPU resources. Each backend maintains a
// mapping between IDs and actual backend resources.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a sampled 2D texture.
type TextureID uint64

// FenceID is an opaque handle to a GPU fence.
type FenceID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageCopyDst indicates the buffer can be written from the CPU.
	BufferUsageCopyDst BufferUsage = 1 << 0

	// BufferUsageIndex indicates the buffer can be used as an index buffer.
	BufferUsageIndex BufferUsage = 1 << 1

	// BufferUsageVertex indicates the buffer can be used as a vertex buffer.
	BufferUsageVertex BufferUsage = 1 << 2

	// BufferUsageUniform indicates the buffer can be used as a uniform buffer.
	BufferUsageUniform BufferUsage = 1 << 3
)

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm TextureFormat = iota + 1

	// TextureFormatRGBA8UnormSRGB is 8-bit RGBA in sRGB color space.
	TextureFormatRGBA8UnormSRGB

	// TextureFormatR8Unorm is 8-bit red channel only. Used for glyph coverage.
	TextureFormatR8Unorm
)

// BytesPerPixel returns the texel size of f.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatR8Unorm:
		return 1
	case TextureFormatRGBA8Unorm, TextureFormatRGBA8UnormSRGB:
		return 4
	default:
		return 0
	}
}

// String returns the format name.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "RGBA8Unorm"
	case TextureFormatRGBA8UnormSRGB:
		return "RGBA8UnormSRGB"
	case TextureFormatR8Unorm:
		return "R8Unorm"
	default:
		return "Unknown"
	}
}

// IndexFormat is the element width of an index buffer.
type IndexFormat uint32

// Index formats, narrowest first.
const (
	// IndexFormatNone marks a non-indexed draw.
	IndexFormatNone IndexFormat = iota

	// IndexFormatUint8 stores one byte per index.
	IndexFormatUint8

	// IndexFormatUint16 stores two bytes per index.
	IndexFormatUint16

	// IndexFormatUint32 stores four bytes per index.
	IndexFormatUint32
)

// Size returns the byte width of one index.
func (f IndexFormat) Size() int {
	switch f {
	case IndexFormatUint8:
		return 1
	case IndexFormatUint16:
		return 2
	case IndexFormatUint32:
		return 4
	default:
		return 0
	}
}

// String returns the format name.
func (f IndexFormat) String() string {
	switch f {
	case IndexFormatNone:
		return "None"
	case IndexFormatUint8:
		return "Uint8"
	case IndexFormatUint16:
		return "Uint16"
	case IndexFormatUint32:
		return "Uint32"
	default:
		return "Unknown"
	}
}

// PrimitiveMode is the primitive topology of a batch.
type PrimitiveMode uint32

// Primitive modes.
const (
	PrimitivePoints PrimitiveMode = iota
	PrimitiveLines
	PrimitiveLineStrip
	PrimitiveTriangles
	PrimitiveTriangleStrip
)

// String returns the mode name.
func (m PrimitiveMode) String() string {
	switch m {
	case PrimitivePoints:
		return "Points"
	case PrimitiveLines:
		return "Lines"
	case PrimitiveLineStrip:
		return "LineStrip"
	case PrimitiveTriangles:
		return "Triangles"
	case PrimitiveTriangleStrip:
		return "TriangleStrip"
	default:
		return "Unknown"
	}
}

// PipelineKind selects the shader and vertex layout of a draw.
type PipelineKind uint32

// Pipeline kinds.
const (
	// PipelineColor draws position+color vertices.
	PipelineColor PipelineKind = iota

	// PipelineTextured draws position+uv+color vertices sampling an RGBA texture.
	PipelineTextured

	// PipelineText draws position+uv+color vertices sampling glyph coverage.
	PipelineText
)

// String returns the pipeline name.
func (k PipelineKind) String() string {
	switch k {
	case PipelineColor:
		return "color"
	case PipelineTextured:
		return "textured"
	case PipelineText:
		return "text"
	default:
		return "unknown"
	}
}

// WaitStatus is the outcome of a bounded fence wait.
type WaitStatus uint32

// Wait outcomes.
const (
	// WaitAlreadySignaled means the fence had signaled before the call.
	WaitAlreadySignaled WaitStatus = iota

	// WaitConditionSatisfied means the fence signaled during the wait.
	WaitConditionSatisfied

	// WaitTimeout means the timeout elapsed first.
	WaitTimeout

	// WaitFailed means the device reported an error.
	WaitFailed
)

// Signaled reports whether the fenced work has completed.
func (s WaitStatus) Signaled() bool {
	return s == WaitAlreadySignaled || s == WaitConditionSatisfied
}

// String returns the status name.
func (s WaitStatus) String() string {
	switch s {
	case WaitAlreadySignaled:
		return "AlreadySignaled"
	case WaitConditionSatisfied:
		return "ConditionSatisfied"
	case WaitTimeout:
		return "Timeout"
	case WaitFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Capabilities describes optional device features.
type Capabilities struct {
	// IndexUint8 reports native support for 8-bit index buffers.
	// WebGPU-class devices only accept 16- and 32-bit indices.
	IndexUint8 bool

	// WideLines reports support for line widths other than 1.
	WideLines bool

	// MaxBufferSize is the largest buffer the device can allocate.
	MaxBufferSize uint64
}

// BufferDesc describes a buffer.
type BufferDesc struct {
	// Label is an optional debug label.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage flags.
	Usage BufferUsage
}

// TextureDesc describes a sampled 2D texture.
type TextureDesc struct {
	// Label is an optional debug label.
	Label string

	Width  int
	Height int
	Format TextureFormat
}

// DrawCall is one flushed batch.
type DrawCall struct {
	Pipeline PipelineKind
	Mode     PrimitiveMode

	// Width is the point size or line width in pixels.
	Width float32

	// Texture is sampled by textured and text pipelines.
	Texture TextureID

	// Transform is the column-major clip-from-object matrix.
	Transform [16]float32

	VertexBuffer BufferID
	// VertexOffset is the byte offset of the first vertex.
	VertexOffset uint64
	// BaseVertex is VertexOffset divided by the vertex stride.
	BaseVertex  uint32
	VertexCount uint32

	IndexBuffer BufferID
	IndexFormat IndexFormat
	// IndexOffset is the byte offset of the first index.
	IndexOffset uint64
	IndexCount  uint32
}

// Indexed reports whether the draw uses an index buffer.
func (d *DrawCall) Indexed() bool {
	return d.IndexFormat != IndexFormatNone && d.IndexCount > 0
}
