package ops

import (
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Square represents y = x².
type Square struct{}

// Kind returns "Square".
func (Square) Kind() string { return "Square" }

// Forward computes x².
func (Square) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Square", "inputs", xs, 1); err != nil {
		return nil, err
	}
	return single(b.Mul(xs[0], xs[0])), nil
}

// Backward returns 2 * x * grad_y.
func (Square) Backward(b tensor.Backend, xs, _, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Square", "gradients", gys, 1); err != nil {
		return nil, err
	}
	return single(b.Mul(b.MulScalar(xs[0], 2), gys[0])), nil
}

// Pow represents y = x^C for a constant exponent.
type Pow struct {
	C float64
}

// Kind returns "Pow".
func (Pow) Kind() string { return "Pow" }

// Forward computes x^C.
func (p Pow) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Pow", "inputs", xs, 1); err != nil {
		return nil, err
	}
	return single(b.PowScalar(xs[0], p.C)), nil
}

// Backward returns C * x^(C-1) * grad_y.
func (p Pow) Backward(b tensor.Backend, xs, _, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Pow", "gradients", gys, 1); err != nil {
		return nil, err
	}
	return single(b.Mul(b.MulScalar(b.PowScalar(xs[0], p.C-1), p.C), gys[0])), nil
}

// Exp represents y = exp(x).
type Exp struct{}

// Kind returns "Exp".
func (Exp) Kind() string { return "Exp" }

// Forward computes exp(x).
func (Exp) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Exp", "inputs", xs, 1); err != nil {
		return nil, err
	}
	return single(b.Exp(xs[0])), nil
}

// Backward returns exp(x) * grad_y, reusing the forward output.
func (Exp) Backward(b tensor.Backend, _, ys, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Exp", "gradients", gys, 1); err != nil {
		return nil, err
	}
	return single(b.Mul(ys[0], gys[0])), nil
}

// Sin represents y = sin(x).
type Sin struct{}

// Kind returns "Sin".
func (Sin) Kind() string { return "Sin" }

// Forward computes sin(x).
func (Sin) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Sin", "inputs", xs, 1); err != nil {
		return nil, err
	}
	return single(b.Sin(xs[0])), nil
}

// Backward returns cos(x) * grad_y.
func (Sin) Backward(b tensor.Backend, xs, _, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Sin", "gradients", gys, 1); err != nil {
		return nil, err
	}
	return single(b.Mul(b.Cos(xs[0]), gys[0])), nil
}

// Cos represents y = cos(x).
type Cos struct{}

// Kind returns "Cos".
func (Cos) Kind() string { return "Cos" }

// Forward computes cos(x).
func (Cos) Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Cos", "inputs", xs, 1); err != nil {
		return nil, err
	}
	return single(b.Cos(xs[0])), nil
}

// Backward returns -sin(x) * grad_y.
func (Cos) Backward(b tensor.Backend, xs, _, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expect("Cos", "gradients", gys, 1); err != nil {
		return nil, err
	}
	return single(b.Mul(b.Neg(b.Sin(xs[0])), gys[0])), nil
}
