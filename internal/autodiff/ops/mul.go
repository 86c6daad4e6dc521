package ops

import (
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Mul represents element-wise multiplication: y = a * b.
//
// Backward:
//
//	grad_a = sum_to(grad_y * b, a.shape)
//	grad_b = sum_to(grad_y * a, b.shape)
type Mul struct{}

// Kind returns "Mul".
func (Mul) Kind() string { return "Mul" }

// Forward computes a * b with broadcasting.
func (Mul) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Mul", "inputs", xs, 2); err != nil {
		return nil, err
	}
	return single(b.Mul(xs[0], xs[1])), nil
}

// Backward computes the product rule.
func (Mul) Backward(b tensor.Backend, xs, _, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Mul", "gradients", gys, 1); err != nil {
		return nil, err
	}
	gy := gys[0]
	return reduceBoth(b, xs, b.Mul(gy, xs[1]), b.Mul(gy, xs[0]))
}

// Div represents element-wise division: y = a / b.
//
// Backward:
//
//	grad_a = sum_to(grad_y / b, a.shape)
//	grad_b = sum_to(grad_y * (-a / b²), b.shape)
type Div struct{}

// Kind returns "Div".
func (Div) Kind() string { return "Div" }

// Forward computes a / b with broadcasting.
func (Div) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Div", "inputs", xs, 2); err != nil {
		return nil, err
	}
	return single(b.Div(xs[0], xs[1])), nil
}

// Backward computes the quotient rule.
func (Div) Backward(b tensor.Backend, xs, _, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Div", "gradients", gys, 1); err != nil {
		return nil, err
	}
	gy, x0, x1 := gys[0], xs[0], xs[1]
	gx0 := b.Div(gy, x1)
	gx1 := b.Mul(gy, b.Div(b.Neg(x0), b.PowScalar(x1, 2)))
	return reduceBoth(b, xs, gx0, gx1)
}
