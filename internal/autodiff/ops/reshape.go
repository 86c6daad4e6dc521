package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/graphgrad/internal/autodiff/gradshape"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Reshape records a reshape: y = reshape(x, Shape).
//
// Backward reshapes the output gradient back to the input shape.
type Reshape struct {
	Shape tensor.Shape
}

// Kind returns "Reshape".
func (Reshape) Kind() string { return "Reshape" }

// Forward reshapes x; the element count must be preserved.
func (r Reshape) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Reshape", "inputs", xs, 1); err != nil {
		return nil, err
	}
	if err := r.Shape.Validate(); err != nil {
		return nil, err
	}
	if xs[0].NumElements() != r.Shape.NumElements() {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "Reshape: cannot reshape %v into %v",
			xs[0].Shape(), r.Shape)
	}
	return single(b.Reshape(xs[0], r.Shape)), nil
}

// Backward reshapes grad_y to x's shape.
func (Reshape) Backward(b tensor.Backend, xs, _, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Reshape", "gradients", gys, 1); err != nil {
		return nil, err
	}
	return single(b.Reshape(gys[0], xs[0].Shape())), nil
}

// BroadcastTo replicates x up to Shape.
//
// Backward sums the replicated copies back: grad_x = sum_to(grad_y, x.shape).
type BroadcastTo struct {
	Shape tensor.Shape
}

// Kind returns "BroadcastTo".
func (BroadcastTo) Kind() string { return "BroadcastTo" }

// Forward broadcasts x to Shape.
func (bt BroadcastTo) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("BroadcastTo", "inputs", xs, 1); err != nil {
		return nil, err
	}
	if !tensor.CanBroadcastTo(xs[0].Shape(), bt.Shape) {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "BroadcastTo: cannot broadcast %v to %v",
			xs[0].Shape(), bt.Shape)
	}
	return single(b.BroadcastTo(xs[0], bt.Shape)), nil
}

// Backward reduces grad_y to x's shape.
func (BroadcastTo) Backward(b tensor.Backend, xs, _, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("BroadcastTo", "gradients", gys, 1); err != nil {
		return nil, err
	}
	gx, err := gradshape.SumTo(b, gys[0], xs[0].Shape())
	if err != nil {
		return nil, err
	}
	return single(gx), nil
}

// SumTo reduces x down to Shape by summing broadcast axes.
//
// Backward broadcasts the gradient back: grad_x = broadcast_to(grad_y, x.shape).
type SumTo struct {
	Shape tensor.Shape
}

// Kind returns "SumTo".
func (SumTo) Kind() string { return "SumTo" }

// Forward sums x down to Shape.
func (st SumTo) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("SumTo", "inputs", xs, 1); err != nil {
		return nil, err
	}
	y, err := gradshape.SumTo(b, xs[0], st.Shape)
	if err != nil {
		return nil, err
	}
	return single(y), nil
}

// Backward broadcasts grad_y to x's shape.
func (SumTo) Backward(b tensor.Backend, xs, _, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("SumTo", "gradients", gys, 1); err != nil {
		return nil, err
	}
	return single(b.BroadcastTo(gys[0], xs[0].Shape())), nil
}
