// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu exposes the pure Go kernels behind graph evaluation and gradient
// reduction: float32/float64 element-wise math with NumPy broadcasting, reshapes,
// and sum/max reductions with keepdims.
package cpu
