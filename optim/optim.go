// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides gradient-descent optimizers for graph parameters.
package optim

import (
	"github.com/born-ml/graphgrad/internal/autodiff"
	"github.com/born-ml/graphgrad/internal/optim"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Parameter is a trainable tensor bound into a fresh graph on every iteration.
type Parameter = optim.Parameter

// SGD represents the SGD optimizer with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewParameter wraps data as a named parameter.
func NewParameter(name string, data *tensor.RawTensor) *Parameter {
	return optim.NewParameter(name, data)
}

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	sgd := optim.NewSGD(params, optim.SGDConfig{LR: 0.001})
func NewSGD(params []*Parameter, config SGDConfig) *SGD {
	return optim.NewSGD(params, config)
}

// NewAdam creates a new Adam optimizer.
func NewAdam(params []*Parameter, config AdamConfig) *Adam {
	return optim.NewAdam(params, config)
}

// CollectGrads copies gradients computed on g into params.
func CollectGrads(g *autodiff.Graph, params []*Parameter, ids []autodiff.NodeID) error {
	return optim.CollectGrads(g, params, ids)
}

// ErrMissingParameter is returned by LoadParameters when the file lacks a parameter.
var ErrMissingParameter = optim.ErrMissingParameter

// SaveParameters writes the parameter values to a SafeTensors file.
func SaveParameters(path string, params []*Parameter, metadata map[string]string) error {
	return optim.SaveParameters(path, params, metadata)
}

// LoadParameters overwrites the parameter values in place from a SafeTensors file.
func LoadParameters(path string, params []*Parameter) (map[string]string, error) {
	return optim.LoadParameters(path, params)
}
