package ops

import (
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Add represents element-wise addition: y = a + b.
//
// Backward:
//
//	grad_a = sum_to(grad_y, a.shape)
//	grad_b = sum_to(grad_y, b.shape)
type Add struct{}

// Kind returns "Add".
func (Add) Kind() string { return "Add" }

// Forward computes a + b with broadcasting.
func (Add) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Add", "inputs", xs, 2); err != nil {
		return nil, err
	}
	return single(b.Add(xs[0], xs[1])), nil
}

// Backward passes the gradient through unchanged to both inputs.
func (Add) Backward(b tensor.Backend, xs, _, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Add", "gradients", gys, 1); err != nil {
		return nil, err
	}
	return reduceBoth(b, xs, gys[0], gys[0])
}

// Sub represents element-wise subtraction: y = a - b.
type Sub struct{}

// Kind returns "Sub".
func (Sub) Kind() string { return "Sub" }

// Forward computes a - b with broadcasting.
func (Sub) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Sub", "inputs", xs, 2); err != nil {
		return nil, err
	}
	return single(b.Sub(xs[0], xs[1])), nil
}

// Backward returns grad_y for a and -grad_y for b.
func (Sub) Backward(b tensor.Backend, xs, _, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Sub", "gradients", gys, 1); err != nil {
		return nil, err
	}
	return reduceBoth(b, xs, gys[0], b.Neg(gys[0]))
}

// Neg represents negation: y = -x.
type Neg struct{}

// Kind returns "Neg".
func (Neg) Kind() string { return "Neg" }

// Forward computes -x.
func (Neg) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Neg", "inputs", xs, 1); err != nil {
		return nil, err
	}
	return single(b.Neg(xs[0])), nil
}

// Backward returns -grad_y.
func (Neg) Backward(b tensor.Backend, _, _, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Neg", "gradients", gys, 1); err != nil {
		return nil, err
	}
	return single(b.Neg(gys[0])), nil
}
