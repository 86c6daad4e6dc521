// Package dotgraph renders a computation graph as Graphviz DOT text.
//
// The walker starts from one output node and follows creator links backwards
// (node -> creating operation -> input nodes -> ...). Every reachable node and
// operation is declared exactly once, so graphs that share sub-structure render
// without duplicated elements or edges.
//
// Example output for y = (x0 + x1)²:
//
//	digraph g {
//	    rankdir=TB;
//	    n3 [label="y", color=orange, style=filled]
//	    f1 [label="Square", color=lightblue, style=filled, shape=box]
//	    n2 [label="", color=orange, style=filled]
//	    n2 -> f1
//	    f1 -> n3
//	    ...
//	}
//
// Rendering only reads the graph. It is safe to render the same graph from several
// goroutines as long as nothing mutates it meanwhile.
package dotgraph

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/graphgrad/internal/autodiff"
)

// GraphView is the read-only access the walker needs. *autodiff.Graph implements it.
type GraphView interface {
	Node(id autodiff.NodeID) (*autodiff.Node, error)
	Op(id autodiff.OpID) (*autodiff.Operation, error)
}

// Options configures rendering.
type Options struct {
	// Verbose appends the shape and element type of realized data to node labels.
	Verbose bool

	// RankDir is the Graphviz layout direction ("TB", "LR", ...). Empty omits it.
	RankDir string
}

// DefaultOptions returns top-to-bottom, non-verbose rendering.
func DefaultOptions() Options {
	return Options{RankDir: "TB"}
}

// Stats describes one traversal.
type Stats struct {
	Ops   []autodiff.OpID   // Operations in visitation order
	Nodes []autodiff.NodeID // Nodes in declaration order; Nodes[0] is the output
	Edges int               // Number of rendered edges
}

// Render returns the DOT description of everything reachable backwards from out.
func Render(g GraphView, out autodiff.NodeID, opts Options) (string, error) {
	text, _, err := Walk(g, out, opts)
	return text, err
}

// MustRender is Render that panics on malformed graphs.
func MustRender(g GraphView, out autodiff.NodeID, opts Options) string {
	text, err := Render(g, out, opts)
	if err != nil {
		panic(errors.WithMessage(err, "render"))
	}
	return text
}

// Walk renders the graph reachable from out and reports what it visited.
//
// Algorithm:
//  1. Declare out; if it has a creator, push the creator on the frontier
//  2. Pop an operation (LIFO), declare it, then for each input: declare the input
//     node, emit input -> operation and push the input's creator unless it was
//     pushed before
//  3. Emit operation -> output for each output, declaring outputs not seen yet
//
// Operations are marked as seen when pushed, so each is rendered once however many
// paths reach it. Dangling handles, operations without outputs, and outputs whose
// creator is not the operation listing them return autodiff.ErrMalformedGraph.
func Walk(g GraphView, out autodiff.NodeID, opts Options) (string, Stats, error) {
	w := &walker{
		g:        g,
		opts:     opts,
		declared: make(map[autodiff.NodeID]bool),
		seen:     make(map[autodiff.OpID]bool),
	}
	if err := w.walk(out); err != nil {
		return "", Stats{}, err
	}
	klog.V(2).Infof("dotgraph: rendered %d operations, %d nodes, %d edges from %s",
		len(w.stats.Ops), len(w.stats.Nodes), w.stats.Edges, out.Key())
	return w.sb.String(), w.stats, nil
}

type walker struct {
	g        GraphView
	opts     Options
	sb       strings.Builder
	stats    Stats
	declared map[autodiff.NodeID]bool
	seen     map[autodiff.OpID]bool
	frontier []autodiff.OpID
}

func (w *walker) walk(out autodiff.NodeID) error {
	root, err := w.g.Node(out)
	if err != nil {
		return errors.WithMessage(err, "render output")
	}

	w.sb.WriteString("digraph g {\n")
	if w.opts.RankDir != "" {
		fmt.Fprintf(&w.sb, "    rankdir=%s;\n", w.opts.RankDir)
	}
	w.declareNode(out, root)
	w.push(root)

	for len(w.frontier) > 0 {
		id := w.frontier[len(w.frontier)-1]
		w.frontier = w.frontier[:len(w.frontier)-1]
		if err := w.visit(id); err != nil {
			return err
		}
	}
	w.sb.WriteString("}\n")
	return nil
}

func (w *walker) visit(id autodiff.OpID) error {
	op, err := w.g.Op(id)
	if err != nil {
		return errors.Wrapf(autodiff.ErrMalformedGraph, "creator %s: %v", id.Key(), err)
	}
	if len(op.Outputs) == 0 {
		return errors.Wrapf(autodiff.ErrMalformedGraph, "operation %s (%s) has no attached outputs", id.Key(), op.Kind())
	}
	w.stats.Ops = append(w.stats.Ops, id)
	fmt.Fprintf(&w.sb, "    %s [label=%q, color=lightblue, style=filled, shape=box]\n", id.Key(), escapeLabel(op.Kind()))

	for i, inputID := range op.Inputs {
		input, err := w.g.Node(inputID)
		if err != nil {
			return errors.Wrapf(autodiff.ErrMalformedGraph, "operation %s input %d: %v", id.Key(), i, err)
		}
		w.declareNode(inputID, input)
		w.edge(inputID.Key(), id.Key())
		w.push(input)
	}

	for i, outputID := range op.Outputs {
		output, err := w.g.Node(outputID)
		if err != nil {
			return errors.Wrapf(autodiff.ErrMalformedGraph, "operation %s output %d: %v", id.Key(), i, err)
		}
		if output.Creator != id {
			return errors.Wrapf(autodiff.ErrMalformedGraph, "operation %s lists output %s whose creator is %s",
				id.Key(), outputID.Key(), output.Creator.Key())
		}
		w.declareNode(outputID, output)
		w.edge(id.Key(), outputID.Key())
	}
	return nil
}

func (w *walker) push(n *autodiff.Node) {
	if !n.HasCreator() || w.seen[n.Creator] {
		return
	}
	w.seen[n.Creator] = true
	w.frontier = append(w.frontier, n.Creator)
}

func (w *walker) declareNode(id autodiff.NodeID, n *autodiff.Node) {
	if w.declared[id] {
		return
	}
	w.declared[id] = true
	w.stats.Nodes = append(w.stats.Nodes, id)
	fmt.Fprintf(&w.sb, "    %s [label=%q, color=orange, style=filled]\n", id.Key(), escapeLabel(NodeLabel(n, w.opts.Verbose)))
}

func (w *walker) edge(from, to string) {
	w.stats.Edges++
	fmt.Fprintf(&w.sb, "    %s -> %s\n", from, to)
}

// NodeLabel is the text shown for a node: its name, followed in verbose mode by the
// shape and element type of its data ("y: [2 3] float64").
func NodeLabel(n *autodiff.Node, verbose bool) string {
	label := n.Name
	if verbose && n.Data != nil {
		if label != "" {
			label += ": "
		}
		label += fmt.Sprintf("%v %s", n.Data.Shape(), n.Data.DType())
	}
	return label
}

func escapeLabel(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
