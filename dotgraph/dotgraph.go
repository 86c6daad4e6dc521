// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dotgraph renders autodiff graphs as Graphviz DOT and plots them.
//
// Example:
//
//	text, err := dotgraph.Render(g, y, dotgraph.Options{Verbose: true})
//
//	p := &dotgraph.Plotter{}
//	res, err := p.Plot(ctx, g, y, "graph.png")
package dotgraph

import (
	"github.com/born-ml/graphgrad/internal/autodiff"
	"github.com/born-ml/graphgrad/internal/dotgraph"
)

// GraphView is the read-only graph access the walker needs.
type GraphView = dotgraph.GraphView

// Options configures rendering.
type Options = dotgraph.Options

// Stats describes one traversal.
type Stats = dotgraph.Stats

// Plotter turns rendered graphs into images with Graphviz.
type Plotter = dotgraph.Plotter

// PlotResult describes a produced image.
type PlotResult = dotgraph.PlotResult

// ErrDotNotFound is returned when the Graphviz binary cannot be located.
var ErrDotNotFound = dotgraph.ErrDotNotFound

// DefaultOptions returns top-to-bottom, non-verbose rendering.
func DefaultOptions() Options {
	return dotgraph.DefaultOptions()
}

// Render returns the DOT description of everything reachable backwards from out.
func Render(g GraphView, out autodiff.NodeID, opts Options) (string, error) {
	return dotgraph.Render(g, out, opts)
}

// MustRender is Render that panics on malformed graphs.
func MustRender(g GraphView, out autodiff.NodeID, opts Options) string {
	return dotgraph.MustRender(g, out, opts)
}

// Walk renders the graph and reports the visited operations, nodes and edge count.
func Walk(g GraphView, out autodiff.NodeID, opts Options) (string, Stats, error) {
	return dotgraph.Walk(g, out, opts)
}
