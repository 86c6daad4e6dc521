// Package ops defines the differentiable functions recorded in a computation graph.
//
// Each function implements the Function interface, which provides:
//   - Forward pass: computed by the backend from the input arrays
//   - Backward pass: computes gradients for inputs given the output gradients
//
// Supported functions:
//   - Add, Sub, Mul, Div: element-wise with broadcasting (gradients reduced with SumTo)
//   - Neg, Square, Pow, Exp, Sin, Cos: element-wise unary
//   - Reshape, BroadcastTo, SumTo: shape manipulation
//   - Sum, Max: axis reductions with optional keepdims
package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/graphgrad/internal/autodiff/gradshape"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// ErrArity is returned when a function receives the wrong number of inputs or gradients.
var ErrArity = errors.New("wrong number of arguments")

// Function is a differentiable computation step. Instances carry the parameters
// captured at construction (target shapes, axes, exponents) and are immutable, so one
// instance may be applied more than once.
type Function interface {
	// Kind is the display label of the function ("Add", "Sum", ...).
	Kind() string

	// Forward computes the outputs from the input arrays.
	Forward(b tensor.Backend, xs []*tensor.RawTensor) ([]*tensor.RawTensor, error)

	// Backward computes one gradient per input given the forward inputs xs, the
	// forward outputs ys and one upstream gradient per output.
	//
	// Example for Add:
	//   xs: [a, b]
	//   gys: [dL/d(a+b)]
	//   returns: [dL/d(a+b), dL/d(a+b)], each reduced to its input's shape
	Backward(b tensor.Backend, xs, ys, gys []*tensor.RawTensor) ([]*tensor.RawTensor, error)
}

// expect checks the number of arguments a function received.
func expect(kind, what string, got []*tensor.RawTensor, want int) error {
	if len(got) != want {
		return errors.Wrapf(ErrArity, "%s: expected %d %s, got %d", kind, want, what, len(got))
	}
	return nil
}

// single wraps one output array.
func single(y *tensor.RawTensor) []*tensor.RawTensor {
	return []*tensor.RawTensor{y}
}

// reduceTo sums gx down to shape when broadcasting stretched it in the forward pass.
func reduceTo(b tensor.Backend, gx *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error) {
	if gx.Shape().Equal(shape) {
		return gx, nil
	}
	return gradshape.SumTo(b, gx, shape)
}

// reduceBoth reduces a pair of gradients to the shapes of the pair of inputs.
func reduceBoth(b tensor.Backend, xs []*tensor.RawTensor, gx0, gx1 *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	gx0, err := reduceTo(b, gx0, xs[0].Shape())
	if err != nil {
		return nil, err
	}
	gx1, err = reduceTo(b, gx1, xs[1].Shape())
	if err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{gx0, gx1}, nil
}
