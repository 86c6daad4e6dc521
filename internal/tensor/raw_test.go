package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRaw(t *testing.T) {
	x, err := NewRaw(Shape{2, 3}, Float64)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 3}, x.Shape())
	assert.Equal(t, 2, x.Rank())
	assert.Equal(t, 6, x.NumElements())
	assert.Equal(t, 48, x.ByteSize())
	assert.Equal(t, make([]float64, 6), x.Float64s())

	_, err = NewRaw(Shape{2, 0}, Float32)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = NewRaw(Shape{2}, DataType(7))
	assert.ErrorIs(t, err, ErrUnsupportedDType)
}

func TestNewRawCopiesShape(t *testing.T) {
	shape := Shape{2, 2}
	x, err := NewRaw(shape, Float32)
	require.NoError(t, err)
	shape[0] = 5
	assert.Equal(t, Shape{2, 2}, x.Shape())
}

func TestFromFloat64s(t *testing.T) {
	x, err := FromFloat64s([]float64{1.5, -2}, Shape{2}, Float32)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2}, x.AsFloat32())
	assert.Equal(t, []float64{1.5, -2}, x.Float64s())

	_, err = FromFloat64s([]float64{1, 2, 3}, Shape{2}, Float64)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = FromFloat32s([]float32{1}, Shape{2})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestScalarAndFull(t *testing.T) {
	s := Scalar(3, Float64)
	assert.Equal(t, 0, s.Rank())
	assert.Equal(t, 3.0, s.Item())

	f, err := Full(Shape{2, 2}, 0.25, Float32)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25}, f.AsFloat32())

	assert.Panics(t, func() { f.Item() })
}

func TestDTypeViews(t *testing.T) {
	x := Scalar(1, Float32)
	assert.Panics(t, func() { x.AsFloat64() })
	y := Scalar(1, Float64)
	assert.Panics(t, func() { y.AsFloat32() })
}

func TestCloneAndWithShape(t *testing.T) {
	x, err := FromFloat64s([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3}, Float64)
	require.NoError(t, err)

	c := x.Clone()
	c.AsFloat64()[0] = 100
	assert.Equal(t, 1.0, x.AsFloat64()[0])

	r, err := x.WithShape(Shape{3, 2})
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 2}, r.Shape())
	assert.Equal(t, x.Float64s(), r.Float64s())

	_, err = x.WithShape(Shape{4})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBytes(t *testing.T) {
	x, err := FromFloat32s([]float32{1, 2}, Shape{2})
	require.NoError(t, err)
	assert.Len(t, x.Bytes(), 8)

	y, err := FromBytes(x.Bytes(), Shape{2}, Float32)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, y.AsFloat32())

	x.AsFloat32()[0] = 9
	assert.Equal(t, float32(1), y.AsFloat32()[0], "FromBytes copies")

	_, err = FromBytes(x.Bytes(), Shape{2}, Float64)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestStrings(t *testing.T) {
	x, err := NewRaw(Shape{2, 3}, Float64)
	require.NoError(t, err)
	assert.Equal(t, "RawTensor([2 3] float64)", x.String())
	assert.Equal(t, "[]", Shape{}.String())
	assert.Equal(t, "float32", Float32.String())
	assert.Equal(t, "unknown", DataType(9).String())
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 8, Float64.Size())
}
