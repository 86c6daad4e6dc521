package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/graphgrad/internal/tensor"
)

// Sum adds every element into a scalar.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.SumAxes(x, nil, false)
}

// SumAxes sums tensor elements along the given axes.
//
// Parameters:
//   - axes: dimensions to reduce (supports negative indexing: -1 = last dim); empty means all
//   - keepDims: if true, keep each reduced dimension with size 1; if false, remove it
//
// Example:
//
//	x: [2 3 4]
//	SumAxes(x, []int{-1}, true)     // shape: [2 3 1]
//	SumAxes(x, []int{0, 2}, false)  // shape: [3]
func (cpu *CPUBackend) SumAxes(x *tensor.RawTensor, axes []int, keepDims bool) *tensor.RawTensor {
	return reduce("sum", x, axes, keepDims, 0, func(acc, v float64) float64 { return acc + v })
}

// MaxAxes takes the maximum along the given axes, with the same axes semantics as SumAxes.
func (cpu *CPUBackend) MaxAxes(x *tensor.RawTensor, axes []int, keepDims bool) *tensor.RawTensor {
	return reduce("max", x, axes, keepDims, math.Inf(-1), math.Max)
}

// reduce folds x along axes starting from init.
func reduce(name string, x *tensor.RawTensor, axes []int, keepDims bool, init float64,
	fn func(acc, v float64) float64) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	normalized, err := tensor.NormalizeAxes(axes, ndim)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	if len(normalized) == 0 {
		normalized = make([]int, ndim)
		for i := range normalized {
			normalized[i] = i
		}
	}

	// Reduced dimensions collapse to 1 in keepShape
	keepShape := shape.Clone()
	for _, axis := range normalized {
		keepShape[axis] = 1
	}

	result := newResult(name, keepShape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		reduceInto(result.AsFloat32(), x.AsFloat32(), shape, keepShape, float32(init),
			func(acc, v float32) float32 { return float32(fn(float64(acc), float64(v))) })
	case tensor.Float64:
		reduceInto(result.AsFloat64(), x.AsFloat64(), shape, keepShape, init, fn)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32/float64 supported)", name, x.DType()))
	}

	if keepDims {
		return result
	}
	reshaped, err := result.WithShape(shape.RemoveAxes(normalized...))
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	return reshaped
}

// reduceInto accumulates every element of src into dst, where dst has keepShape
// (src's shape with reduced dimensions set to 1).
func reduceInto[T tensor.Float](dst, src []T, shape, keepShape tensor.Shape, init T, fn func(acc, v T) T) {
	for i := range dst {
		dst[i] = init
	}

	// Reduced dimensions get stride 0 so every coordinate along them lands in the same slot
	inStrides := shape.ComputeStrides()
	outStrides := broadcastStrides(keepShape, shape)
	for i, v := range src {
		idx := sourceIndex(i, inStrides, outStrides)
		dst[idx] = fn(dst[idx], v)
	}
}
