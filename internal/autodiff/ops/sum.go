package ops

import (
	"github.com/born-ml/graphgrad/internal/autodiff/gradshape"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Sum represents a reduction sum: y = sum(x, Axes, KeepDims).
// Empty Axes reduce every axis.
//
// Forward:
//
//	y = sum(x, axes, keepDims)
//
// Backward:
//
//	grad_x = broadcast_to(reshape_sum_backward(grad_y, x.shape, axes, keepDims), x.shape)
//
// Without keepDims the reduced axes are gone from grad_y, so they are re-inserted as
// size-1 dimensions before broadcasting.
type Sum struct {
	Axes     []int
	KeepDims bool
}

// Kind returns "Sum".
func (Sum) Kind() string { return "Sum" }

// Forward reduces x.
func (s Sum) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Sum", "inputs", xs, 1); err != nil {
		return nil, err
	}
	if _, err := tensor.NormalizeAxes(s.Axes, xs[0].Rank()); err != nil {
		return nil, err
	}
	return single(b.SumAxes(xs[0], s.Axes, s.KeepDims)), nil
}

// Backward broadcasts grad_y back over the reduced axes.
func (s Sum) Backward(b tensor.Backend, xs, _, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Sum", "gradients", gys, 1); err != nil {
		return nil, err
	}
	xShape := xs[0].Shape()
	gy, err := gradshape.ReshapeSumBackward(b, gys[0], xShape, s.Axes, s.KeepDims)
	if err != nil {
		return nil, err
	}
	return single(b.BroadcastTo(gy, xShape)), nil
}

// Max represents a reduction max: y = max(x, Axes, KeepDims).
//
// Backward routes grad_y to the positions that held the maximum (ties all receive it).
type Max struct {
	Axes     []int
	KeepDims bool
}

// Kind returns "Max".
func (Max) Kind() string { return "Max" }

// Forward reduces x.
func (m Max) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Max", "inputs", xs, 1); err != nil {
		return nil, err
	}
	if _, err := tensor.NormalizeAxes(m.Axes, xs[0].Rank()); err != nil {
		return nil, err
	}
	return single(b.MaxAxes(xs[0], m.Axes, m.KeepDims)), nil
}

// Backward masks the broadcast gradient with x == max(x).
func (m Max) Backward(b tensor.Backend, xs, ys, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Max", "gradients", gys, 1); err != nil {
		return nil, err
	}
	x := xs[0]
	shape, err := gradshape.MaxBackwardShape(x.Shape(), m.Axes)
	if err != nil {
		return nil, err
	}
	gy := b.Reshape(gys[0], shape)
	y := b.Reshape(ys[0], shape)
	mask := b.EqualMask(x, y)
	return single(b.Mul(b.BroadcastTo(gy, x.Shape()), mask)), nil
}
