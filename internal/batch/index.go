package batch

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
	"honnef.co/go/safeish"

	"github.com/gogpu/imdraw/gpucore"
)

// SelectIndexFormat returns the narrowest index format that represents
// maxIndex. The comparisons are strict, so the all-ones value of each
// width (the primitive restart sentinel) is never emitted as an index.
// Devices without 8-bit index support get 16-bit indices instead.
func SelectIndexFormat(maxIndex uint32, uint8Supported bool) gpucore.IndexFormat {
	switch {
	case maxIndex < math.MaxUint8 && uint8Supported:
		return gpucore.IndexFormatUint8
	case maxIndex < math.MaxUint16:
		return gpucore.IndexFormatUint16
	default:
		return gpucore.IndexFormatUint32
	}
}

// EncodeIndices re-encodes indices at the given width. Values must fit the
// width; SelectIndexFormat guarantees that for the batch maximum.
func EncodeIndices(indices []uint32, f gpucore.IndexFormat) []byte {
	switch f {
	case gpucore.IndexFormatUint8:
		return safeish.SliceCast[[]byte](narrow[uint8](nil, indices))
	case gpucore.IndexFormatUint16:
		return safeish.SliceCast[[]byte](narrow[uint16](nil, indices))
	case gpucore.IndexFormatUint32:
		out := make([]uint32, len(indices))
		copy(out, indices)
		return safeish.SliceCast[[]byte](out)
	default:
		panic(fmt.Sprintf("batch: cannot encode indices as %s", f))
	}
}

// DecodeIndices reads n indices of the given width from data.
func DecodeIndices(data []byte, f gpucore.IndexFormat, n int) []uint32 {
	switch f {
	case gpucore.IndexFormatUint8:
		return widen(decodeAs[uint8](data, n))
	case gpucore.IndexFormatUint16:
		return widen(decodeAs[uint16](data, n))
	case gpucore.IndexFormatUint32:
		return decodeAs[uint32](data, n)
	default:
		panic(fmt.Sprintf("batch: cannot decode indices as %s", f))
	}
}

func narrow[T constraints.Unsigned](dst []T, src []uint32) []T {
	dst = dst[:0]
	for _, v := range src {
		dst = append(dst, T(v))
	}
	return dst
}

func widen[T constraints.Unsigned](src []T) []uint32 {
	out := make([]uint32, len(src))
	for i, v := range src {
		out[i] = uint32(v)
	}
	return out
}

func decodeAs[T constraints.Unsigned](data []byte, n int) []T {
	out := make([]T, n)
	copy(safeish.SliceCast[[]byte](out), data)
	return out
}
