package autodiff

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/born-ml/graphgrad/internal/autodiff/ops"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Apply runs fn on the given input nodes and adds its outputs to the graph.
//
// When recording is enabled, the operation is stored in the arena, every output gets it
// as creator, and generations are updated so Backward can order the pass.
func (g *Graph) Apply(fn ops.Function, inputs ...NodeID) ([]NodeID, error) {
	xs, generation, err := g.inputData(fn.Kind(), inputs)
	if err != nil {
		return nil, err
	}

	var ys []*tensor.RawTensor
	err = catch(func() error {
		var ferr error
		ys, ferr = fn.Forward(g.backend, xs)
		return ferr
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "%s forward", fn.Kind())
	}
	if len(ys) == 0 {
		return nil, errors.Wrapf(ErrMalformedGraph, "%s forward produced no outputs", fn.Kind())
	}

	outputs := make([]NodeID, len(ys))
	if !g.enableBackprop {
		for i, y := range ys {
			outputs[i] = g.addNode(&Node{Data: y, Creator: NoOp})
		}
		return outputs, nil
	}

	opID := OpID(len(g.ops))
	op := &Operation{
		Fn:         fn,
		Inputs:     append([]NodeID(nil), inputs...),
		Generation: generation,
	}
	g.ops = append(g.ops, op)
	for i, y := range ys {
		outputs[i] = g.addNode(&Node{Data: y, Creator: opID, Generation: generation + 1})
	}
	op.Outputs = outputs
	return outputs, nil
}

// Apply1 is Apply for single-output functions.
func (g *Graph) Apply1(fn ops.Function, inputs ...NodeID) (NodeID, error) {
	outputs, err := g.Apply(fn, inputs...)
	if err != nil {
		return 0, err
	}
	if len(outputs) != 1 {
		return 0, errors.Wrapf(ops.ErrArity, "%s produced %d outputs, expected 1", fn.Kind(), len(outputs))
	}
	return outputs[0], nil
}

// inputData collects the realized arrays of inputs and their largest generation.
func (g *Graph) inputData(kind string, inputs []NodeID) ([]*tensor.RawTensor, int, error) {
	xs := make([]*tensor.RawTensor, len(inputs))
	generation := 0
	for i, id := range inputs {
		n, err := g.Node(id)
		if err != nil {
			return nil, 0, errors.WithMessagef(err, "%s input %d", kind, i)
		}
		if n.Data == nil {
			return nil, 0, errors.Wrapf(ErrMalformedGraph, "%s input %d (%s) has no data", kind, i, id.Key())
		}
		xs[i] = n.Data
		generation = max(generation, n.Generation)
	}
	return xs, generation, nil
}

// catch runs fn and converts a kernel panic into an error.
func catch(fn func() error) (err error) {
	exception := exceptions.Try(func() {
		err = fn()
	})
	if exception == nil {
		return err
	}
	if e, ok := exception.(error); ok {
		return e
	}
	return errors.Errorf("%v", exception)
}
