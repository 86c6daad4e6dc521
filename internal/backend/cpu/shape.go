package cpu

import (
	"fmt"

	"github.com/born-ml/graphgrad/internal/parallel"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Reshape returns a tensor with the same data but different shape.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result, err := x.WithShape(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return result
}

// BroadcastTo replicates x along its size-1 (or missing leading) dimensions up to shape.
//
// Example:
//
//	x: [3]    -> BroadcastTo(x, [4 3]) -> every row equals x
//	x: [2 1]  -> BroadcastTo(x, [2 5]) -> every column equals x
func (cpu *CPUBackend) BroadcastTo(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if !tensor.CanBroadcastTo(x.Shape(), shape) {
		panic(fmt.Sprintf("broadcast_to: cannot broadcast %v to %v", x.Shape(), shape))
	}
	if x.Shape().Equal(shape) {
		return x.Clone()
	}

	result := newResult("broadcast_to", shape, x.DType())
	outStrides := shape.ComputeStrides()
	inStrides := broadcastStrides(x.Shape(), shape)

	switch x.DType() {
	case tensor.Float32:
		replicate(result.AsFloat32(), x.AsFloat32(), outStrides, inStrides, cpu.parallel)
	case tensor.Float64:
		replicate(result.AsFloat64(), x.AsFloat64(), outStrides, inStrides, cpu.parallel)
	default:
		panic(fmt.Sprintf("broadcast_to: unsupported dtype %s", x.DType()))
	}
	return result
}

func replicate[T tensor.Float](dst, src []T, outStrides, inStrides []int, cfg parallel.Config) {
	parallel.ForChunks(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = src[sourceIndex(i, outStrides, inStrides)]
		}
	}, cfg)
}

// Squeeze removes the given size-1 axes. Axes may be negative.
func (cpu *CPUBackend) Squeeze(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := x.Shape()
	normalized, err := tensor.NormalizeAxes(axes, len(shape))
	if err != nil {
		panic(fmt.Sprintf("squeeze: %v", err))
	}
	for _, axis := range normalized {
		if shape[axis] != 1 {
			panic(fmt.Sprintf("squeeze: axis %d of shape %v has size %d, not 1", axis, shape, shape[axis]))
		}
	}
	return cpu.Reshape(x, shape.RemoveAxes(normalized...))
}

// broadcastStrides returns the strides of inShape laid against outShape, with 0 for
// every axis inShape lacks or holds at size 1. Walking an output index with these
// strides revisits the same input element along broadcast axes.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	lead := len(outShape) - len(inShape)
	own := inShape.ComputeStrides()
	strides := make([]int, len(outShape))
	for i := lead; i < len(outShape); i++ {
		if inShape[i-lead] != 1 {
			strides[i] = own[i-lead]
		}
	}
	return strides
}

// sourceIndex maps flat index i of a tensor with strides outStrides onto the flat index
// of the tensor described by inStrides.
func sourceIndex(i int, outStrides, inStrides []int) int {
	idx := 0
	for axis, stride := range outStrides {
		idx += (i / stride) * inStrides[axis]
		i %= stride
	}
	return idx
}
