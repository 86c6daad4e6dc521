package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/graphgrad/internal/tensor"
)

func TestSumAxes(t *testing.T) {
	backend := New()
	// [[1 2 3] [4 5 6]]
	x := f64(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3)

	tests := []struct {
		name     string
		axes     []int
		keepDims bool
		shape    tensor.Shape
		want     []float64
	}{
		{"all", nil, false, tensor.Shape{}, []float64{21}},
		{"all keepdims", nil, true, tensor.Shape{1, 1}, []float64{21}},
		{"rows", []int{0}, false, tensor.Shape{3}, []float64{5, 7, 9}},
		{"rows keepdims", []int{0}, true, tensor.Shape{1, 3}, []float64{5, 7, 9}},
		{"columns", []int{1}, false, tensor.Shape{2}, []float64{6, 15}},
		{"negative axis", []int{-1}, true, tensor.Shape{2, 1}, []float64{6, 15}},
		{"both", []int{1, 0}, false, tensor.Shape{}, []float64{21}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := backend.SumAxes(x, tt.axes, tt.keepDims)
			assert.Equal(t, tt.shape, got.Shape())
			assert.Equal(t, tt.want, got.Float64s())
		})
	}
}

func TestSum3D(t *testing.T) {
	backend := New()
	values := make([]float64, 24)
	for i := range values {
		values[i] = float64(i)
	}
	x := f64(t, values, 2, 3, 4)

	got := backend.SumAxes(x, []int{0, 2}, false)
	assert.Equal(t, tensor.Shape{3}, got.Shape())
	// Each middle index j collects i*12 + j*4 + k for i in {0,1}, k in {0..3}
	assert.Equal(t, []float64{60, 92, 124}, got.Float64s())

	assert.InDelta(t, 276.0, backend.Sum(x).Item(), 1e-12)
	assert.Equal(t, tensor.Shape{}, backend.Sum(x).Shape())
}

func TestMaxAxes(t *testing.T) {
	backend := New()
	x := f64(t, []float64{1, 7, 3, -4, 5, -6}, 2, 3)

	got := backend.MaxAxes(x, []int{1}, true)
	assert.Equal(t, tensor.Shape{2, 1}, got.Shape())
	assert.Equal(t, []float64{7, 5}, got.Float64s())

	got = backend.MaxAxes(x, nil, false)
	assert.Equal(t, 7.0, got.Item())

	allNegative := f32(t, []float32{-3, -1, -2}, 3)
	assert.InDelta(t, -1, backend.MaxAxes(allNegative, nil, false).Item(), epsilon)
}

func TestReducePanics(t *testing.T) {
	backend := New()
	x := f64(t, []float64{1, 2}, 2)
	assert.Panics(t, func() { backend.SumAxes(x, []int{1}, false) })
	assert.Panics(t, func() { backend.SumAxes(x, []int{0, -1}, false) })
}
