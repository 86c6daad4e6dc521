// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/graphgrad/internal/backend/cpu"
	"github.com/born-ml/graphgrad/internal/parallel"
	"github.com/born-ml/graphgrad/tensor"
)

// Backend is the reference kernel set graphs dispatch to.
type Backend = internalcpu.CPUBackend

// ParallelConfig controls how element-wise kernels split work across goroutines.
type ParallelConfig = parallel.Config

var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend that uses every available CPU for large arrays.
//
// Example:
//
//	g := autodiff.NewGraph(cpu.New())
//	x := g.Variable("x", tensor.Scalar(3, tensor.Float64))
func New() *Backend {
	return internalcpu.New()
}

// NewSequential creates a CPU backend that runs every kernel on the calling goroutine.
func NewSequential() *Backend {
	return internalcpu.NewWithConfig(parallel.Sequential())
}

// NewWithConfig creates a CPU backend with explicit parallelism settings.
func NewWithConfig(cfg ParallelConfig) *Backend {
	return internalcpu.NewWithConfig(cfg)
}
