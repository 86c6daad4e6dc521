// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides define-by-run automatic differentiation.
//
// Functions applied to graph nodes are recorded in an arena graph. Backward walks
// the recorded operations in reverse generation order and leaves a gradient on every
// leaf, reduced to that leaf's shape.
//
// Example:
//
//	import (
//	    "github.com/born-ml/graphgrad/autodiff"
//	    "github.com/born-ml/graphgrad/backend/cpu"
//	    "github.com/born-ml/graphgrad/tensor"
//	)
//
//	func main() {
//	    g := autodiff.NewGraph(cpu.New())
//	    x := g.Variable("x", tensor.Scalar(3, tensor.Float64))
//	    y, _ := g.Apply1(autodiff.Square{}, x)
//	    _ = g.Backward(y)
//	    fmt.Println(g.MustNode(x).Grad.Item()) // 6
//	}
package autodiff

import (
	"github.com/born-ml/graphgrad/internal/autodiff"
	"github.com/born-ml/graphgrad/internal/autodiff/gradshape"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Graph is the arena owning the nodes and operations of a computation.
type Graph = autodiff.Graph

// NodeID is the stable handle of a node within its graph.
type NodeID = autodiff.NodeID

// OpID is the stable handle of an operation within its graph.
type OpID = autodiff.OpID

// Node is a tensor-valued value in the graph.
type Node = autodiff.Node

// Operation is one recorded computation step.
type Operation = autodiff.Operation

// BackwardOption configures a Backward pass.
type BackwardOption = autodiff.BackwardOption

// NoOp marks a node without a creator.
const NoOp = autodiff.NoOp

// Errors reported for inconsistent graph state or invalid handles.
var (
	ErrMalformedGraph = autodiff.ErrMalformedGraph
	ErrUnknownNode    = autodiff.ErrUnknownNode
	ErrUnknownOp      = autodiff.ErrUnknownOp
)

// NewGraph creates an empty graph whose functions run on backend.
func NewGraph(backend tensor.Backend) *Graph {
	return autodiff.NewGraph(backend)
}

// RetainGrad keeps intermediate gradients after Backward.
func RetainGrad() BackwardOption {
	return autodiff.RetainGrad()
}

// SumTo reduces x to shape by summing every broadcast axis.
func SumTo(b tensor.Backend, x *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error) {
	return gradshape.SumTo(b, x, shape)
}

// ReshapeSumBackward reshapes the upstream gradient of a sum over axes so that it
// broadcasts back to xShape.
func ReshapeSumBackward(b tensor.Backend, gy *tensor.RawTensor, xShape tensor.Shape, axes []int,
	keepDims bool) (*tensor.RawTensor, error) {
	return gradshape.ReshapeSumBackward(b, gy, xShape, axes, keepDims)
}

// MaxBackwardShape returns xShape with every reduced axis set to 1.
func MaxBackwardShape(xShape tensor.Shape, axes []int) (tensor.Shape, error) {
	return gradshape.MaxBackwardShape(xShape, axes)
}

// LogSumExp computes log(sum(exp(x), axes)) with keepdims, stabilized by the maximum.
func LogSumExp(b tensor.Backend, x *tensor.RawTensor, axes []int) (*tensor.RawTensor, error) {
	return gradshape.LogSumExp(b, x, axes)
}
