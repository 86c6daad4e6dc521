// Package optim implements gradient-descent optimizers for graph parameters.
//
// This package provides:
//   - Parameter: a persistent tensor bound into a fresh graph on every iteration
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// Example usage (minimizing the Rosenbrock function):
//
//	x0 := optim.NewParameter("x0", tensor.Scalar(0, tensor.Float64))
//	x1 := optim.NewParameter("x1", tensor.Scalar(2, tensor.Float64))
//	sgd := optim.NewSGD([]*optim.Parameter{x0, x1}, optim.SGDConfig{LR: 0.001})
//
//	for range iters {
//	    g := autodiff.NewGraph(backend)
//	    ids := []autodiff.NodeID{x0.Bind(g), x1.Bind(g)}
//	    y := rosenbrock(g, ids)
//	    _ = g.Backward(y)
//	    _ = optim.CollectGrads(g, sgd.Parameters(), ids)
//	    _ = sgd.Step()
//	    sgd.ZeroGrad()
//	}
package optim

import (
	"github.com/pkg/errors"

	"github.com/born-ml/graphgrad/internal/autodiff"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies the collected gradients to every parameter in place.
	// Parameters without a gradient are skipped.
	Step() error

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float64
}

// Parameter is a trainable tensor that outlives the graphs it is used in.
type Parameter struct {
	Name string
	Data *tensor.RawTensor
	Grad *tensor.RawTensor
}

// NewParameter wraps data as a named parameter.
func NewParameter(name string, data *tensor.RawTensor) *Parameter {
	return &Parameter{Name: name, Data: data}
}

// Bind adds the parameter to g as a leaf variable sharing the parameter's data.
func (p *Parameter) Bind(g *autodiff.Graph) autodiff.NodeID {
	return g.Variable(p.Name, p.Data)
}

// ZeroGrad clears the parameter's gradient.
func (p *Parameter) ZeroGrad() {
	p.Grad = nil
}

// CollectGrads copies gradients computed on g into params; ids[i] must be the node
// params[i] was bound to. Gradients accumulate into any gradient already collected.
func CollectGrads(g *autodiff.Graph, params []*Parameter, ids []autodiff.NodeID) error {
	if len(params) != len(ids) {
		return errors.Errorf("collect gradients: %d parameters but %d nodes", len(params), len(ids))
	}
	for i, p := range params {
		n, err := g.Node(ids[i])
		if err != nil {
			return errors.WithMessagef(err, "collect gradients for %q", p.Name)
		}
		switch {
		case n.Grad == nil:
		case p.Grad == nil:
			p.Grad = n.Grad.Clone()
		default:
			p.Grad = g.Backend().Add(p.Grad, n.Grad)
		}
	}
	return nil
}

// checkGrad validates that a gradient can be applied to the parameter.
func checkGrad(p *Parameter) error {
	if !p.Grad.Shape().Equal(p.Data.Shape()) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "parameter %q has shape %v, gradient %v",
			p.Name, p.Data.Shape(), p.Grad.Shape())
	}
	return nil
}
