// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the shapes, element types and arrays the graph is built on.
//
// # Overview
//
//   - Shape: dimension sizes, NumPy-style broadcasting rules, axis normalization
//   - DataType: Float32 and Float64
//   - RawTensor: a dense row-major array with its shape and element type
//   - Backend: the kernel set autodiff functions dispatch to
//
// # Basic Usage
//
//	import "github.com/born-ml/graphgrad/tensor"
//
//	func main() {
//	    x, err := tensor.FromFloat64s([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, tensor.Float64)
//	    if err != nil {
//	        panic(err)
//	    }
//	    fmt.Println(x.Shape(), x.DType()) // [2 3] float64
//	}
package tensor
