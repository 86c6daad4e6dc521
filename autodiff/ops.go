// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package autodiff

import (
	"github.com/born-ml/graphgrad/internal/autodiff/ops"
)

// Function is a differentiable computation step applied with Graph.Apply.
type Function = ops.Function

// Element-wise functions with broadcasting.
type (
	Add = ops.Add
	Sub = ops.Sub
	Mul = ops.Mul
	Div = ops.Div
)

// Element-wise unary functions.
type (
	Neg    = ops.Neg
	Square = ops.Square
	Pow    = ops.Pow
	Exp    = ops.Exp
	Sin    = ops.Sin
	Cos    = ops.Cos
)

// Shape functions.
type (
	Reshape       = ops.Reshape
	BroadcastTo   = ops.BroadcastTo
	SumToFunction = ops.SumTo
	Sum           = ops.Sum
	Max           = ops.Max
)

// ErrArity is returned when a function receives the wrong number of arguments.
var ErrArity = ops.ErrArity
