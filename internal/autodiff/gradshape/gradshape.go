// Package gradshape reshapes and reduces upstream gradients so they match the shape of
// the operand they flow back to.
//
// Broadcasting in the forward pass replicates data; the backward pass undoes it by
// summation (SumTo). Axis reductions without keepdims drop dimensions; the backward pass
// restores them as size-1 placeholders before broadcasting (ReshapeSumBackward).
//
// Example:
//
//	Forward:  a[3] + b[4 3] -> c[4 3]        (a was broadcast along a new leading axis)
//	Backward: SumTo(grad_c[4 3], [3]) -> grad_a[3]
//
//	Forward:  y = sum(x[2 3], axis=0)          -> y[3]
//	Backward: ReshapeSumBackward(gy[3], [2 3], {0}, false) -> [1 3], then BroadcastTo [2 3]
//
// All functions are pure: they never modify their inputs and hold no state, so they may
// be called concurrently as long as the input tensors are not being written.
package gradshape

import (
	"github.com/pkg/errors"

	"github.com/born-ml/graphgrad/internal/tensor"
)

// SumToAxes computes which axes of src SumTo must reduce to reach dst.
//
// lead is the number of leading axes of src that exist only because of broadcasting
// against a lower-rank operand; they are always part of axes. The remaining axes are
// positions where dst has size 1 but src is stretched.
func SumToAxes(src, dst tensor.Shape) (axes []int, lead int, err error) {
	lead = len(src) - len(dst)
	if lead < 0 {
		return nil, 0, errors.Wrapf(tensor.ErrShapeMismatch,
			"cannot sum %v down to higher-rank shape %v", src, dst)
	}

	for i := 0; i < lead; i++ {
		axes = append(axes, i)
	}
	for i, dim := range dst {
		srcDim := src[i+lead]
		switch {
		case dim == srcDim:
		case dim == 1:
			axes = append(axes, i+lead)
		default:
			return nil, 0, errors.Wrapf(tensor.ErrShapeMismatch,
				"shape %v is not a broadcast of %v (axis %d: %d vs %d)", src, dst, i+lead, srcDim, dim)
		}
	}
	return axes, lead, nil
}

// SumTo reduces x to shape, summing every axis that broadcasting introduced or stretched.
// x's shape must be a broadcast of shape; otherwise ErrShapeMismatch is returned.
// When no reduction is needed a copy of x is returned.
func SumTo(b tensor.Backend, x *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error) {
	axes, lead, err := SumToAxes(x.Shape(), shape)
	if err != nil {
		return nil, err
	}
	if len(axes) == 0 {
		return x.Clone(), nil
	}

	y := b.SumAxes(x, axes, true)
	if lead > 0 {
		y = b.Squeeze(y, axes[:lead]...)
	}
	if !y.Shape().Equal(shape) {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "sum_to produced %v, want %v", y.Shape(), shape)
	}
	return y, nil
}

// ReshapeSumBackwardShape computes the shape the upstream gradient of a sum reduction
// must take before it is broadcast back to xShape.
//
// Empty axes mean the forward pass reduced every axis. When xShape is a scalar, axes is
// empty, or keepDims was set, gyShape already has the right rank and is returned as is.
// Otherwise the dropped axes are re-inserted as size-1 dimensions in ascending order.
func ReshapeSumBackwardShape(gyShape, xShape tensor.Shape, axes []int, keepDims bool) (tensor.Shape, error) {
	ndim := len(xShape)
	if ndim == 0 || len(axes) == 0 || keepDims {
		if !tensor.CanBroadcastTo(gyShape, xShape) || (keepDims && len(gyShape) != ndim) {
			return nil, errors.Wrapf(tensor.ErrShapeMismatch,
				"gradient shape %v does not match a reduction of %v (axes=%v, keepDims=%t)",
				gyShape, xShape, axes, keepDims)
		}
		return gyShape.Clone(), nil
	}

	normalized, err := tensor.NormalizeAxes(axes, ndim)
	if err != nil {
		return nil, err
	}
	if len(gyShape)+len(normalized) != ndim {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch,
			"gradient of rank %d cannot be restored to rank %d with axes %v", len(gyShape), ndim, axes)
	}

	shape := gyShape.Clone()
	for _, axis := range normalized {
		shape = shape.InsertAxis(axis)
	}
	for i, dim := range shape {
		if dim != 1 && dim != xShape[i] {
			return nil, errors.Wrapf(tensor.ErrShapeMismatch,
				"restored gradient shape %v does not line up with %v", shape, xShape)
		}
	}
	return shape, nil
}

// ReshapeSumBackward reshapes gy, the upstream gradient of y = sum(x, axes, keepDims),
// so that it has x's rank with size-1 dimensions in place of the reduced axes.
// The caller broadcasts the result up to xShape.
func ReshapeSumBackward(b tensor.Backend, gy *tensor.RawTensor, xShape tensor.Shape, axes []int,
	keepDims bool) (*tensor.RawTensor, error) {
	shape, err := ReshapeSumBackwardShape(gy.Shape(), xShape, axes, keepDims)
	if err != nil {
		return nil, err
	}
	if shape.Equal(gy.Shape()) {
		return gy.Clone(), nil
	}
	return b.Reshape(gy, shape), nil
}

// MaxBackwardShape returns xShape with the reduced axes set to 1: the shape the output
// (and upstream gradient) of a max/min reduction takes before it is compared against x.
// Empty axes mean every axis was reduced.
func MaxBackwardShape(xShape tensor.Shape, axes []int) (tensor.Shape, error) {
	normalized, err := tensor.NormalizeAxes(axes, len(xShape))
	if err != nil {
		return nil, err
	}
	shape := xShape.Clone()
	if len(normalized) == 0 {
		for i := range shape {
			shape[i] = 1
		}
		return shape, nil
	}
	for _, axis := range normalized {
		shape[axis] = 1
	}
	return shape, nil
}

// LogSumExp computes log(sum(exp(x))) over axes with keepdims semantics, subtracting
// the maximum first so large inputs do not overflow.
func LogSumExp(b tensor.Backend, x *tensor.RawTensor, axes []int) (*tensor.RawTensor, error) {
	if _, err := tensor.NormalizeAxes(axes, x.Rank()); err != nil {
		return nil, err
	}
	m := b.MaxAxes(x, axes, true)
	s := b.SumAxes(b.Exp(b.Sub(x, m)), axes, true)
	return b.Add(b.Log(s), m), nil
}

// MustSumTo is SumTo for backward passes, where a failure is a bug in the metadata
// captured during the forward pass. It panics with the (wrapped) error value, which
// exceptions.TryCatch[error] recovers.
func MustSumTo(b tensor.Backend, x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	y, err := SumTo(b, x, shape)
	if err != nil {
		panic(errors.WithMessage(err, "sum_to"))
	}
	return y
}

// MustReshapeSumBackward is ReshapeSumBackward that panics on failure.
func MustReshapeSumBackward(b tensor.Backend, gy *tensor.RawTensor, xShape tensor.Shape, axes []int,
	keepDims bool) *tensor.RawTensor {
	y, err := ReshapeSumBackward(b, gy, xShape, axes, keepDims)
	if err != nil {
		panic(errors.WithMessage(err, "reshape_sum_backward"))
	}
	return y
}
