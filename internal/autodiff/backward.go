package autodiff

import (
	"slices"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/graphgrad/internal/tensor"
)

// BackwardOption configures a Backward pass.
type BackwardOption func(*backwardConfig)

type backwardConfig struct {
	retainGrad bool
}

// RetainGrad keeps the gradients of intermediate nodes after Backward. By default only
// leaves keep their gradients; outputs of operations are cleared once consumed.
func RetainGrad() BackwardOption {
	return func(c *backwardConfig) {
		c.retainGrad = true
	}
}

// Backward computes gradients of out with respect to every node it depends on.
//
// Algorithm:
//  1. Seed out's gradient with ones (unless it already holds one)
//  2. Visit creators in decreasing generation order, so an operation runs only after
//     every consumer of its outputs has contributed its gradient
//  3. For each operation, call its Backward with the output gradients
//     (missing ones are zeros) and accumulate the results into the inputs
//
// Gradients accumulate across calls; use ClearGrads between independent passes.
func (g *Graph) Backward(out NodeID, opts ...BackwardOption) error {
	cfg := backwardConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	root, err := g.Node(out)
	if err != nil {
		return err
	}
	if root.Data == nil {
		return errors.Wrapf(ErrMalformedGraph, "backward from %s: node has no data", out.Key())
	}
	if root.Grad == nil {
		root.Grad, err = tensor.Full(root.Data.Shape(), 1, root.Data.DType())
		if err != nil {
			return errors.WithMessage(err, "backward: seeding output gradient")
		}
	}
	if !root.HasCreator() {
		return nil
	}

	var pending []OpID
	seen := make(map[OpID]bool)
	enqueue := func(id OpID) error {
		if seen[id] {
			return nil
		}
		if _, err := g.Op(id); err != nil {
			return errors.Wrapf(ErrMalformedGraph, "creator %s: %v", id.Key(), err)
		}
		seen[id] = true
		pending = append(pending, id)
		// Highest generation last.
		slices.SortStableFunc(pending, func(a, b OpID) int {
			return g.ops[a].Generation - g.ops[b].Generation
		})
		return nil
	}
	if err := enqueue(root.Creator); err != nil {
		return err
	}

	for len(pending) > 0 {
		id := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		op := g.ops[id]

		klog.V(4).Infof("backward: %s %s (generation %d)", id.Key(), op.Kind(), op.Generation)
		gxs, err := g.backwardOp(id, op)
		if err != nil {
			return err
		}

		for i, inputID := range op.Inputs {
			input, err := g.Node(inputID)
			if err != nil {
				return errors.Wrapf(ErrMalformedGraph, "%s input %d: %v", id.Key(), i, err)
			}
			if input.Grad == nil {
				input.Grad = gxs[i]
			} else {
				input.Grad = g.backend.Add(input.Grad, gxs[i])
			}
			if input.HasCreator() {
				if err := enqueue(input.Creator); err != nil {
					return err
				}
			}
		}

		if !cfg.retainGrad {
			for _, outputID := range op.Outputs {
				g.nodes[outputID].Grad = nil
			}
		}
	}
	return nil
}

// backwardOp runs one operation's Backward and checks that it produced one gradient
// per input, each shaped like that input.
func (g *Graph) backwardOp(id OpID, op *Operation) ([]*tensor.RawTensor, error) {
	xs, _, err := g.inputData(op.Kind(), op.Inputs)
	if err != nil {
		return nil, err
	}
	ys := make([]*tensor.RawTensor, len(op.Outputs))
	gys := make([]*tensor.RawTensor, len(op.Outputs))
	for i, outputID := range op.Outputs {
		output, err := g.Node(outputID)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedGraph, "%s output %d: %v", id.Key(), i, err)
		}
		if output.Creator != id {
			return nil, errors.Wrapf(ErrMalformedGraph, "%s output %s has creator %s",
				id.Key(), outputID.Key(), output.Creator.Key())
		}
		if output.Data == nil {
			return nil, errors.Wrapf(ErrMalformedGraph, "%s output %s has no data", id.Key(), outputID.Key())
		}
		ys[i] = output.Data
		gys[i] = output.Grad
		if gys[i] == nil {
			gys[i], err = tensor.Full(output.Data.Shape(), 0, output.Data.DType())
			if err != nil {
				return nil, err
			}
		}
	}

	var gxs []*tensor.RawTensor
	err = catch(func() error {
		var berr error
		gxs, berr = op.Fn.Backward(g.backend, xs, ys, gys)
		return berr
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "%s backward", op.Kind())
	}
	if len(gxs) != len(xs) {
		return nil, errors.Wrapf(ErrMalformedGraph, "%s backward returned %d gradients for %d inputs",
			op.Kind(), len(gxs), len(xs))
	}
	for i, gx := range gxs {
		if gx == nil || !gx.Shape().Equal(xs[i].Shape()) {
			return nil, errors.Wrapf(tensor.ErrShapeMismatch, "%s backward: gradient %d does not match input shape %v",
				op.Kind(), i, xs[i].Shape())
		}
	}
	return gxs, nil
}
