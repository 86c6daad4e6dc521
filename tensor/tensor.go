// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// DataType identifies the element type of a tensor.
type DataType = tensor.DataType

// Supported element types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
)

// RawTensor is a dense row-major array.
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32)
//	data := raw.AsFloat32() // Type-safe access
//	clone := raw.Clone()    // Deep copy
type RawTensor = tensor.RawTensor

// Backend is the kernel set autodiff functions dispatch to.
type Backend = tensor.Backend

// Errors reported for invalid shapes and axes.
var (
	ErrShapeMismatch    = tensor.ErrShapeMismatch
	ErrAxisOutOfRange   = tensor.ErrAxisOutOfRange
	ErrUnsupportedDType = tensor.ErrUnsupportedDType
)

// NewRaw allocates a zero-filled tensor.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// FromFloat64s creates a tensor from row-major values.
func FromFloat64s(values []float64, shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.FromFloat64s(values, shape, dtype)
}

// FromFloat32s creates a Float32 tensor from row-major values.
func FromFloat32s(values []float32, shape Shape) (*RawTensor, error) {
	return tensor.FromFloat32s(values, shape)
}

// Scalar creates a rank-0 tensor.
func Scalar(v float64, dtype DataType) *RawTensor {
	return tensor.Scalar(v, dtype)
}

// Full creates a tensor with every element set to v.
func Full(shape Shape, v float64, dtype DataType) (*RawTensor, error) {
	return tensor.Full(shape, v, dtype)
}

// BroadcastShapes returns the NumPy-style broadcast of two shapes.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
