// Package demos builds the sample computation graphs shipped with the graphgrad CLI
// and examples.
package demos

import (
	"math"
	"sort"

	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"

	"github.com/born-ml/graphgrad/internal/autodiff"
	"github.com/born-ml/graphgrad/internal/autodiff/ops"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// ErrUnknownDemo is returned by Lookup for names that are not registered.
var ErrUnknownDemo = errors.New("unknown demo")

// Demo is a named computation over a fixed set of inputs.
type Demo struct {
	Name        string
	Description string
	Inputs      []Input

	// Fn builds the computation from the input nodes, in Inputs order.
	Fn func(g *autodiff.Graph, xs []autodiff.NodeID) (autodiff.NodeID, error)
}

// Input is the initial value of one leaf variable of a demo.
type Input struct {
	Name   string
	Values []float64
	Shape  tensor.Shape
}

// Tensors returns fresh copies of the demo's input values.
func (d Demo) Tensors() ([]*tensor.RawTensor, error) {
	xs := make([]*tensor.RawTensor, len(d.Inputs))
	for i, in := range d.Inputs {
		x, err := tensor.FromFloat64s(in.Values, in.Shape, tensor.Float64)
		if err != nil {
			return nil, errors.WithMessagef(err, "demo %s input %s", d.Name, in.Name)
		}
		xs[i] = x
	}
	return xs, nil
}

// Build adds the demo's named inputs to g and builds its computation.
func (d Demo) Build(g *autodiff.Graph) (autodiff.NodeID, error) {
	xs, err := d.Tensors()
	if err != nil {
		return 0, err
	}
	ids := make([]autodiff.NodeID, len(xs))
	for i, x := range xs {
		ids[i] = g.Variable(d.Inputs[i].Name, x)
	}
	return d.Fn(g, ids)
}

var registry = map[string]Demo{}

func register(d Demo) {
	registry[d.Name] = d
}

func scalar(name string, v float64) Input {
	return Input{Name: name, Values: []float64{v}, Shape: tensor.Shape{}}
}

func init() {
	register(Demo{
		Name:        "square-sum",
		Description: "y = (x0 + x1)² on scalars",
		Inputs:      []Input{scalar("x0", 1), scalar("x1", 1)},
		Fn:          squareSum,
	})
	register(Demo{
		Name:        "rosenbrock",
		Description: "y = 100(x1 - x0²)² + (1 - x0)² at (0, 2)",
		Inputs:      []Input{scalar("x0", 0), scalar("x1", 2)},
		Fn: func(g *autodiff.Graph, xs []autodiff.NodeID) (autodiff.NodeID, error) {
			return Rosenbrock(g, xs[0], xs[1])
		},
	})
	register(Demo{
		Name:        "broadcast",
		Description: "y = sum(x[2 3] * w[3] + b[]), gradients reduced back with sum_to",
		Inputs: []Input{
			{Name: "x", Values: []float64{1, 2, 3, 4, 5, 6}, Shape: tensor.Shape{2, 3}},
			{Name: "w", Values: []float64{0.5, -1, 2}, Shape: tensor.Shape{3}},
			scalar("b", 0.1),
		},
		Fn: broadcast,
	})
	register(Demo{
		Name:        "sum-axis",
		Description: "y = sum(exp(sum(x[2 3], axis=0))), gradient restored with reshape_sum_backward",
		Inputs: []Input{
			{Name: "x", Values: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}, Shape: tensor.Shape{2, 3}},
		},
		Fn: sumAxis,
	})
	register(Demo{
		Name:        "taylor-sin",
		Description: "sin(π/4) from its Taylor series, one graph node per term",
		Inputs:      []Input{scalar("x", math.Pi/4)},
		Fn: func(g *autodiff.Graph, xs []autodiff.NodeID) (autodiff.NodeID, error) {
			return TaylorSin(g, xs[0], 1e-4)
		},
	})
}

// Names lists the registered demos in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the demo registered under name.
func Lookup(name string) (Demo, error) {
	d, ok := registry[name]
	if !ok {
		return Demo{}, errors.Wrapf(ErrUnknownDemo, "%q (available: %v)", name, Names())
	}
	return d, nil
}

func squareSum(g *autodiff.Graph, xs []autodiff.NodeID) (autodiff.NodeID, error) {
	s, err := g.Apply1(ops.Add{}, xs[0], xs[1])
	if err != nil {
		return 0, err
	}
	y, err := g.Apply1(ops.Square{}, s)
	if err != nil {
		return 0, err
	}
	return y, g.SetName(y, "y")
}

// Rosenbrock builds y = 100(x1 - x0²)² + (1 - x0)².
func Rosenbrock(g *autodiff.Graph, x0, x1 autodiff.NodeID) (y autodiff.NodeID, err error) {
	dtype := g.MustNode(x0).Data.DType()
	err = apply(func() {
		a := must.M1(g.Apply1(ops.Sub{}, x1, must.M1(g.Apply1(ops.Square{}, x0))))
		a = must.M1(g.Apply1(ops.Mul{}, g.Constant(100, dtype), must.M1(g.Apply1(ops.Square{}, a))))
		b := must.M1(g.Apply1(ops.Square{}, must.M1(g.Apply1(ops.Sub{}, g.Constant(1, dtype), x0))))
		y = must.M1(g.Apply1(ops.Add{}, a, b))
		must.M(g.SetName(y, "y"))
	})
	return y, err
}

func broadcast(g *autodiff.Graph, xs []autodiff.NodeID) (y autodiff.NodeID, err error) {
	err = apply(func() {
		h := must.M1(g.Apply1(ops.Add{}, must.M1(g.Apply1(ops.Mul{}, xs[0], xs[1])), xs[2]))
		y = must.M1(g.Apply1(ops.Sum{}, h))
		must.M(g.SetName(y, "y"))
	})
	return y, err
}

func sumAxis(g *autodiff.Graph, xs []autodiff.NodeID) (y autodiff.NodeID, err error) {
	err = apply(func() {
		s := must.M1(g.Apply1(ops.Sum{Axes: []int{0}}, xs[0]))
		y = must.M1(g.Apply1(ops.Sum{}, must.M1(g.Apply1(ops.Exp{}, s))))
		must.M(g.SetName(y, "y"))
	})
	return y, err
}

// TaylorSin approximates sin(x) with Σ (-1)^i x^(2i+1) / (2i+1)!, stopping once a
// term drops below threshold.
func TaylorSin(g *autodiff.Graph, x autodiff.NodeID, threshold float64) (y autodiff.NodeID, err error) {
	dtype := g.MustNode(x).Data.DType()
	err = apply(func() {
		y = g.Constant(0, dtype)
		factorial := 1.0
		for i := range 100 {
			if i > 0 {
				factorial *= float64(2*i) * float64(2*i+1)
			}
			c := math.Pow(-1, float64(i)) / factorial
			term := must.M1(g.Apply1(ops.Mul{}, g.Constant(c, dtype), must.M1(g.Apply1(ops.Pow{C: float64(2*i + 1)}, x))))
			y = must.M1(g.Apply1(ops.Add{}, y, term))
			if math.Abs(g.MustNode(term).Data.Item()) < threshold {
				break
			}
		}
		must.M(g.SetName(y, "y"))
	})
	return y, err
}

// apply runs a builder written with must.M1 and returns its first failure as an error.
func apply(build func()) error {
	return exceptions.TryCatch[error](build)
}
