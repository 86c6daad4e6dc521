package tensor

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
)

// RawTensor is the low-level, dtype-erased array representation.
// Data is stored row-major in a byte buffer and viewed through AsFloat32/AsFloat64.
type RawTensor struct {
	data  []byte   // Row-major element storage
	shape Shape    // Tensor dimensions
	dtype DataType // Runtime type information
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is allocated and zeroed.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid shape")
	}
	if dtype != Float32 && dtype != Float64 {
		return nil, errors.Wrapf(ErrUnsupportedDType, "dtype %d", int(dtype))
	}

	return &RawTensor{
		data:  make([]byte, shape.NumElements()*dtype.Size()),
		shape: shape.Clone(),
		dtype: dtype,
	}, nil
}

// FromFloat64s creates a tensor of the given dtype from float64 values.
func FromFloat64s(values []float64, shape Shape, dtype DataType) (*RawTensor, error) {
	if len(values) != shape.NumElements() {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d values for shape %v (%d elements)",
			len(values), shape, shape.NumElements())
	}
	t, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, err
	}
	t.SetFloat64s(values)
	return t, nil
}

// FromFloat32s creates a Float32 tensor from values.
func FromFloat32s(values []float32, shape Shape) (*RawTensor, error) {
	if len(values) != shape.NumElements() {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d values for shape %v (%d elements)",
			len(values), shape, shape.NumElements())
	}
	t, err := NewRaw(shape, Float32)
	if err != nil {
		return nil, err
	}
	copy(t.AsFloat32(), values)
	return t, nil
}

// Scalar creates a rank-0 tensor holding v.
func Scalar(v float64, dtype DataType) *RawTensor {
	t, err := FromFloat64s([]float64{v}, Shape{}, dtype)
	if err != nil {
		panic(fmt.Sprintf("scalar: %v", err))
	}
	return t
}

// Full creates a tensor of the given shape with every element set to v.
func Full(shape Shape, v float64, dtype DataType) (*RawTensor, error) {
	t, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case Float32:
		data := t.AsFloat32()
		for i := range data {
			data[i] = float32(v)
		}
	case Float64:
		data := t.AsFloat64()
		for i := range data {
			data[i] = v
		}
	}
	return t, nil
}

// FromBytes creates a tensor from little-endian row-major element bytes.
// The bytes are copied.
func FromBytes(data []byte, shape Shape, dtype DataType) (*RawTensor, error) {
	t, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, err
	}
	if len(data) != len(t.data) {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d bytes for shape %v %s (%d bytes)",
			len(data), shape, dtype, len(t.data))
	}
	copy(t.data, data)
	return t, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Rank returns the number of dimensions.
func (r *RawTensor) Rank() int {
	return len(r.shape)
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return len(r.data)
}

// Bytes returns the underlying element storage. The slice aliases the tensor.
func (r *RawTensor) Bytes() []byte {
	return r.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy views, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy views, bounds checked by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// Float64s returns a copy of the elements converted to float64.
func (r *RawTensor) Float64s() []float64 {
	out := make([]float64, r.NumElements())
	switch r.dtype {
	case Float32:
		for i, v := range r.AsFloat32() {
			out[i] = float64(v)
		}
	case Float64:
		copy(out, r.AsFloat64())
	}
	return out
}

// SetFloat64s overwrites the elements, converting from float64.
// len(values) must equal NumElements.
func (r *RawTensor) SetFloat64s(values []float64) {
	switch r.dtype {
	case Float32:
		data := r.AsFloat32()
		for i, v := range values {
			data[i] = float32(v)
		}
	case Float64:
		copy(r.AsFloat64(), values)
	}
}

// Item returns the single element of a one-element tensor.
func (r *RawTensor) Item() float64 {
	if r.NumElements() != 1 {
		panic(fmt.Sprintf("item: tensor of shape %v has %d elements", r.shape, r.NumElements()))
	}
	return r.Float64s()[0]
}

// Clone returns a deep copy of the tensor.
func (r *RawTensor) Clone() *RawTensor {
	return &RawTensor{
		data:  append([]byte(nil), r.data...),
		shape: r.shape.Clone(),
		dtype: r.dtype,
	}
}

// WithShape returns a copy of the tensor with a new shape and the same row-major data.
func (r *RawTensor) WithShape(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != r.NumElements() {
		return nil, errors.Wrapf(ErrShapeMismatch, "cannot reshape %v into %v (different number of elements)",
			r.shape, shape)
	}
	out := r.Clone()
	out.shape = shape.Clone()
	return out, nil
}

// String returns a short description: "RawTensor([2 3] float64)".
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor(%v %s)", r.shape, r.dtype)
}
