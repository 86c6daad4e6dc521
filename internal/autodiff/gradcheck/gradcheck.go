// Package gradcheck verifies analytic gradients against central finite differences.
//
// Usage:
//
//	err := gradcheck.Check(cpu.New(), func(g *autodiff.Graph, xs []autodiff.NodeID) (autodiff.NodeID, error) {
//	    return g.Apply1(ops.Sum{}, must.M1(g.Apply1(ops.Square{}, xs[0])))
//	}, []*tensor.RawTensor{x}, gradcheck.DefaultTolerance())
//
// Use Float64 inputs: float32 rounding swamps the finite differences.
package gradcheck

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"k8s.io/klog/v2"

	"github.com/born-ml/graphgrad/internal/autodiff"
	"github.com/born-ml/graphgrad/internal/autodiff/ops"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// ErrGradientMismatch is returned by Check when analytic and numerical gradients differ.
var ErrGradientMismatch = errors.New("gradient mismatch")

// Tolerance controls the finite-difference step and the comparison.
type Tolerance struct {
	Eps  float64 // Finite-difference step
	RTol float64 // Relative tolerance
	ATol float64 // Absolute tolerance
}

// DefaultTolerance returns eps=1e-4, rtol=1e-4, atol=1e-5.
func DefaultTolerance() Tolerance {
	return Tolerance{Eps: 1e-4, RTol: 1e-4, ATol: 1e-5}
}

// Func evaluates a function of one array, returning an array whose elements are summed.
type Func func(x *tensor.RawTensor) (*tensor.RawTensor, error)

// BuildFunc builds a computation on g from the given input nodes and returns its output.
type BuildFunc func(g *autodiff.Graph, xs []autodiff.NodeID) (autodiff.NodeID, error)

// NumericalGrad approximates d sum(f(x)) / dx with central differences:
//
//	grad[i] = (sum(f(x + eps·e_i)) - sum(f(x - eps·e_i))) / 2eps
//
// x is not modified.
func NumericalGrad(f Func, x *tensor.RawTensor, eps float64) (*tensor.RawTensor, error) {
	if eps <= 0 {
		return nil, errors.Errorf("numerical gradient: eps must be positive, got %g", eps)
	}
	values := x.Float64s()
	grad := make([]float64, len(values))
	probe := x.Clone()

	evaluate := func(values []float64) (float64, error) {
		probe.SetFloat64s(values)
		y, err := f(probe)
		if err != nil {
			return 0, err
		}
		return sum(y.Float64s()), nil
	}

	for i, v := range values {
		values[i] = v + eps
		plus, err := evaluate(values)
		if err != nil {
			return nil, errors.WithMessagef(err, "numerical gradient: element %d", i)
		}
		values[i] = v - eps
		minus, err := evaluate(values)
		if err != nil {
			return nil, errors.WithMessagef(err, "numerical gradient: element %d", i)
		}
		values[i] = v
		grad[i] = (plus - minus) / (2 * eps)
	}
	return tensor.FromFloat64s(grad, x.Shape(), x.DType())
}

// AllClose reports whether a and b have the same length and every pair satisfies
// |a-b| <= atol + rtol*|b|. NaN never compares close.
func AllClose[T constraints.Float](a, b []T, rtol, atol T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		if math.IsNaN(x) || math.IsNaN(y) {
			return false
		}
		if math.Abs(x-y) > float64(atol)+float64(rtol)*math.Abs(y) {
			return false
		}
	}
	return true
}

// Check runs build on a fresh graph, back-propagates from its output (summed when it
// is not a scalar), and compares each input's gradient with NumericalGrad.
func Check(b tensor.Backend, build BuildFunc, inputs []*tensor.RawTensor, tol Tolerance) error {
	g := autodiff.NewGraph(b)
	ids := make([]autodiff.NodeID, len(inputs))
	for i, x := range inputs {
		ids[i] = g.Variable("", x.Clone())
	}
	out, err := buildScalar(g, build, ids)
	if err != nil {
		return err
	}
	if err := g.Backward(out); err != nil {
		return errors.WithMessage(err, "gradient check: backward")
	}

	for i, x := range inputs {
		grad := g.MustNode(ids[i]).Grad
		if grad == nil {
			return errors.Wrapf(ErrGradientMismatch, "input %d received no gradient", i)
		}
		numeric, err := NumericalGrad(func(probe *tensor.RawTensor) (*tensor.RawTensor, error) {
			return evaluate(b, build, inputs, i, probe)
		}, x, tol.Eps)
		if err != nil {
			return err
		}
		analytic, expected := grad.Float64s(), numeric.Float64s()
		if !AllClose(analytic, expected, tol.RTol, tol.ATol) {
			return errors.Wrapf(ErrGradientMismatch, "input %d: backward %v, numerical %v", i, analytic, expected)
		}
		klog.V(3).Infof("gradcheck: input %d ok (%d elements)", i, len(analytic))
	}
	return nil
}

// evaluate rebuilds the computation with input i replaced by probe, without recording.
func evaluate(b tensor.Backend, build BuildFunc, inputs []*tensor.RawTensor, i int, probe *tensor.RawTensor) (*tensor.RawTensor, error) {
	g := autodiff.NewGraph(b)
	g.EnableBackprop(false)
	ids := make([]autodiff.NodeID, len(inputs))
	for j, x := range inputs {
		if j == i {
			x = probe
		}
		ids[j] = g.Variable("", x)
	}
	out, err := build(g, ids)
	if err != nil {
		return nil, err
	}
	return g.MustNode(out).Data, nil
}

func buildScalar(g *autodiff.Graph, build BuildFunc, ids []autodiff.NodeID) (autodiff.NodeID, error) {
	out, err := build(g, ids)
	if err != nil {
		return 0, errors.WithMessage(err, "gradient check: build")
	}
	n, err := g.Node(out)
	if err != nil {
		return 0, err
	}
	if n.Data != nil && n.Data.Rank() > 0 {
		return g.Apply1(ops.Sum{}, out)
	}
	return out, nil
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
