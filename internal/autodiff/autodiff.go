// Package autodiff implements define-by-run automatic differentiation over an arena graph.
//
// Architecture:
//   - Graph: arena owning every Node and Operation built during the forward pass
//   - NodeID / OpID: stable handles into the arena; nodes refer to their creator by OpID,
//     so the node -> creator link never owns the operation
//   - ops.Function: the computation of one Operation (forward and backward)
//   - Backward: reverse-mode pass ordered by generation, gradients reduced to each input's
//     shape by the functions themselves (see package gradshape)
//
// Usage:
//
//	g := autodiff.NewGraph(cpu.New())
//	x0 := g.Variable("x0", tensor.Scalar(1, tensor.Float64))
//	x1 := g.Variable("x1", tensor.Scalar(1, tensor.Float64))
//	s, _ := g.Apply1(ops.Add{}, x0, x1)
//	y, _ := g.Apply1(ops.Square{}, s)
//	_ = g.Backward(y)
//	fmt.Println(g.MustNode(x0).Grad) // dy/dx0 = 2(x0+x1) = 4
//
// A Graph is not safe for concurrent mutation. Once built, it may be read (rendered,
// inspected) from several goroutines as long as nobody applies functions or runs
// Backward at the same time.
package autodiff

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/graphgrad/internal/autodiff/ops"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Errors reported for inconsistent graph state or invalid handles.
var (
	ErrMalformedGraph = errors.New("malformed graph")
	ErrUnknownNode    = errors.New("unknown node")
	ErrUnknownOp      = errors.New("unknown operation")
)

// NodeID is the stable handle of a Node within its Graph.
type NodeID int

// OpID is the stable handle of an Operation within its Graph.
type OpID int

// NoOp marks a node without a creator (a leaf/input).
const NoOp OpID = -1

// Key returns the node's rendering key ("n3"). Keys of nodes never collide with keys
// of operations.
func (id NodeID) Key() string { return fmt.Sprintf("n%d", int(id)) }

// Key returns the operation's rendering key ("f2").
func (id OpID) Key() string { return fmt.Sprintf("f%d", int(id)) }

// Node is a tensor-valued value in the graph.
type Node struct {
	Name       string            // Optional human-readable name
	Data       *tensor.RawTensor // Realized value; nil until computed
	Grad       *tensor.RawTensor // Accumulated gradient; nil until Backward reaches it
	Creator    OpID              // Operation that produced this node, NoOp for leaves
	Generation int               // Creator's generation + 1; 0 for leaves
}

// HasCreator reports whether the node was produced by a recorded operation.
func (n *Node) HasCreator() bool {
	return n.Creator != NoOp
}

// Operation is one recorded computation step.
type Operation struct {
	Fn         ops.Function
	Inputs     []NodeID // Consumed nodes, in argument order
	Outputs    []NodeID // Produced nodes, each with Creator set to this operation
	Generation int      // Largest generation among the inputs
}

// Kind is the operation's display label.
func (o *Operation) Kind() string {
	return o.Fn.Kind()
}

// Graph is the arena owning the nodes and operations of one forward computation.
type Graph struct {
	backend        tensor.Backend
	nodes          []*Node
	ops            []*Operation
	enableBackprop bool
}

// NewGraph creates an empty graph whose functions run on backend.
func NewGraph(backend tensor.Backend) *Graph {
	return &Graph{
		backend:        backend,
		nodes:          make([]*Node, 0, 64),
		ops:            make([]*Operation, 0, 64),
		enableBackprop: true,
	}
}

// Backend returns the backend functions are dispatched to.
func (g *Graph) Backend() tensor.Backend {
	return g.backend
}

// NumNodes returns the number of nodes in the arena.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumOps returns the number of recorded operations.
func (g *Graph) NumOps() int {
	return len(g.ops)
}

// Variable adds a leaf node holding data (which may be nil for a not-yet-realized value).
func (g *Graph) Variable(name string, data *tensor.RawTensor) NodeID {
	return g.addNode(&Node{Name: name, Data: data, Creator: NoOp})
}

// Constant adds an unnamed leaf node holding a scalar.
func (g *Graph) Constant(v float64, dtype tensor.DataType) NodeID {
	return g.Variable("", tensor.Scalar(v, dtype))
}

func (g *Graph) addNode(n *Node) NodeID {
	g.nodes = append(g.nodes, n)
	return NodeID(len(g.nodes) - 1)
}

// Node returns the node for id.
func (g *Graph) Node(id NodeID) (*Node, error) {
	if int(id) < 0 || int(id) >= len(g.nodes) {
		return nil, errors.Wrapf(ErrUnknownNode, "node %d (graph has %d nodes)", int(id), len(g.nodes))
	}
	return g.nodes[id], nil
}

// MustNode returns the node for id, panicking if it does not exist.
func (g *Graph) MustNode(id NodeID) *Node {
	n, err := g.Node(id)
	if err != nil {
		panic(err)
	}
	return n
}

// Op returns the operation for id.
func (g *Graph) Op(id OpID) (*Operation, error) {
	if int(id) < 0 || int(id) >= len(g.ops) {
		return nil, errors.Wrapf(ErrUnknownOp, "operation %d (graph has %d operations)", int(id), len(g.ops))
	}
	return g.ops[id], nil
}

// SetName names a node; names label the node when the graph is rendered.
func (g *Graph) SetName(id NodeID, name string) error {
	n, err := g.Node(id)
	if err != nil {
		return err
	}
	n.Name = name
	return nil
}

// EnableBackprop turns operation recording on or off and returns the previous setting.
// With recording off, Apply still computes outputs but leaves them without a creator.
func (g *Graph) EnableBackprop(enable bool) (previous bool) {
	previous = g.enableBackprop
	g.enableBackprop = enable
	return previous
}

// NoGrad runs fn with operation recording disabled.
func (g *Graph) NoGrad(fn func()) {
	previous := g.EnableBackprop(false)
	defer g.EnableBackprop(previous)
	fn()
}

// ClearGrad drops the accumulated gradient of a node.
func (g *Graph) ClearGrad(id NodeID) error {
	n, err := g.Node(id)
	if err != nil {
		return err
	}
	n.Grad = nil
	return nil
}

// ClearGrads drops every accumulated gradient in the graph.
func (g *Graph) ClearGrads() {
	for _, n := range g.nodes {
		n.Grad = nil
	}
}
