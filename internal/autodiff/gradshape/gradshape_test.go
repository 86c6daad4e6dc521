package gradshape_test

import (
	"math"
	"sync"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphgrad/internal/autodiff/gradshape"
	"github.com/born-ml/graphgrad/internal/backend/cpu"
	"github.com/born-ml/graphgrad/internal/tensor"
)

func arange(t *testing.T, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	values := make([]float64, shape.NumElements())
	for i := range values {
		values[i] = float64(i + 1)
	}
	x, err := tensor.FromFloat64s(values, shape, tensor.Float64)
	require.NoError(t, err)
	return x
}

func TestSumTo_Shapes(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		name   string
		src    tensor.Shape
		target tensor.Shape
		want   []float64
	}{
		{"leading axis", tensor.Shape{2, 3}, tensor.Shape{3}, []float64{5, 7, 9}},
		{"stretched rows", tensor.Shape{2, 3}, tensor.Shape{1, 3}, []float64{5, 7, 9}},
		{"stretched columns", tensor.Shape{2, 3}, tensor.Shape{2, 1}, []float64{6, 15}},
		{"to scalar", tensor.Shape{2, 3}, tensor.Shape{}, []float64{21}},
		{"lead and stretched", tensor.Shape{2, 2, 3}, tensor.Shape{2, 1}, []float64{1 + 2 + 3 + 7 + 8 + 9, 4 + 5 + 6 + 10 + 11 + 12}},
		{"all ones target", tensor.Shape{2, 3}, tensor.Shape{1, 1}, []float64{21}},
		{"already matching", tensor.Shape{2, 3}, tensor.Shape{2, 3}, []float64{1, 2, 3, 4, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := arange(t, tt.src)
			y, err := gradshape.SumTo(backend, x, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.target, y.Shape())
			assert.InDeltaSlice(t, tt.want, y.Float64s(), 1e-12)
		})
	}
}

func TestSumTo_MatchingShapeReturnsCopy(t *testing.T) {
	x := arange(t, tensor.Shape{2, 3})
	y, err := gradshape.SumTo(cpu.New(), x, tensor.Shape{2, 3})
	require.NoError(t, err)
	assert.NotSame(t, x, y)

	y.AsFloat64()[0] = 100
	assert.Equal(t, 1.0, x.AsFloat64()[0], "input must not alias the result")
}

func TestSumTo_BroadcastRoundTrip(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		name      string
		shape     tensor.Shape
		broadcast tensor.Shape
		factor    float64
	}{
		{"vector to matrix", tensor.Shape{3}, tensor.Shape{4, 3}, 4},
		{"column to matrix", tensor.Shape{2, 1}, tensor.Shape{2, 5}, 5},
		{"scalar to cube", tensor.Shape{}, tensor.Shape{2, 3, 4}, 24},
		{"middle axis", tensor.Shape{2, 1, 3}, tensor.Shape{6, 2, 7, 3}, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := arange(t, tt.shape)
			replicated := backend.BroadcastTo(a, tt.broadcast)

			back, err := gradshape.SumTo(backend, replicated, tt.shape)
			require.NoError(t, err)
			require.Equal(t, tt.shape, back.Shape())

			want := a.Float64s()
			for i := range want {
				want[i] *= tt.factor
			}
			assert.InDeltaSlice(t, want, back.Float64s(), 1e-9)
		})
	}
}

func TestSumTo_Float32(t *testing.T) {
	x, err := tensor.FromFloat32s([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)

	y, err := gradshape.SumTo(cpu.New(), x, tensor.Shape{3})
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, y.DType())
	assert.Equal(t, []float32{5, 7, 9}, y.AsFloat32())
}

func TestSumTo_Mismatch(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		name   string
		src    tensor.Shape
		target tensor.Shape
	}{
		{"incompatible trailing dim", tensor.Shape{2, 3}, tensor.Shape{4}},
		{"target has higher rank", tensor.Shape{3}, tensor.Shape{2, 3}},
		{"target dim larger than source", tensor.Shape{2, 1}, tensor.Shape{2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gradshape.SumTo(backend, arange(t, tt.src), tt.target)
			require.Error(t, err)
			assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
		})
	}
}

func TestSumToAxes(t *testing.T) {
	axes, lead, err := gradshape.SumToAxes(tensor.Shape{5, 2, 3}, tensor.Shape{2, 1})
	require.NoError(t, err)
	assert.Equal(t, 1, lead)
	assert.Equal(t, []int{0, 2}, axes)

	// Size-1 source dimensions aligned with size-1 targets are not reduced.
	axes, lead, err = gradshape.SumToAxes(tensor.Shape{1, 3}, tensor.Shape{1, 3})
	require.NoError(t, err)
	assert.Zero(t, lead)
	assert.Empty(t, axes)
}

func TestReshapeSumBackward_KeepDimsIsIdentity(t *testing.T) {
	backend := cpu.New()
	xShape := tensor.Shape{2, 3}

	tests := []struct {
		name string
		gy   tensor.Shape
		axes []int
	}{
		{"axis 0", tensor.Shape{1, 3}, []int{0}},
		{"negative axis", tensor.Shape{1, 3}, []int{-2}},
		{"last axis", tensor.Shape{2, 1}, []int{1}},
		{"all axes", tensor.Shape{1, 1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gy := arange(t, tt.gy)
			out, err := gradshape.ReshapeSumBackward(backend, gy, xShape, tt.axes, true)
			require.NoError(t, err)
			assert.Equal(t, tt.gy, out.Shape())
			assert.Equal(t, gy.Float64s(), out.Float64s())
		})
	}
}

func TestReshapeSumBackward_RestoresDroppedAxes(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		name   string
		gy     tensor.Shape
		xShape tensor.Shape
		axes   []int
		want   tensor.Shape
	}{
		{"axis 0 of matrix", tensor.Shape{3}, tensor.Shape{2, 3}, []int{0}, tensor.Shape{1, 3}},
		{"axis 1 of matrix", tensor.Shape{2}, tensor.Shape{2, 3}, []int{1}, tensor.Shape{2, 1}},
		{"negative last axis", tensor.Shape{2, 3}, tensor.Shape{2, 3, 4}, []int{-1}, tensor.Shape{2, 3, 1}},
		{"two axes", tensor.Shape{3}, tensor.Shape{2, 3, 4}, []int{0, 2}, tensor.Shape{1, 3, 1}},
		{"unsorted axes", tensor.Shape{3}, tensor.Shape{2, 3, 4}, []int{2, 0}, tensor.Shape{1, 3, 1}},
		{"mixed signs", tensor.Shape{4}, tensor.Shape{2, 3, 4}, []int{-3, 1}, tensor.Shape{1, 1, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gy := arange(t, tt.gy)
			out, err := gradshape.ReshapeSumBackward(backend, gy, tt.xShape, tt.axes, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Shape())
			assert.Equal(t, gy.Float64s(), out.Float64s(), "reshape must not change data")
		})
	}
}

func TestReshapeSumBackward_AllAxesAndScalar(t *testing.T) {
	backend := cpu.New()
	gy := tensor.Scalar(2, tensor.Float64)

	out, err := gradshape.ReshapeSumBackward(backend, gy, tensor.Shape{2, 3}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{}, out.Shape())

	out, err = gradshape.ReshapeSumBackward(backend, gy, tensor.Shape{}, []int{0}, false)
	require.NoError(t, err, "axes are ignored for scalar operands")
	assert.Equal(t, tensor.Shape{}, out.Shape())
}

func TestReshapeSumBackward_PreconditionViolations(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		name     string
		gy       tensor.Shape
		xShape   tensor.Shape
		axes     []int
		keepDims bool
		wantErr  error
	}{
		{"axis out of range", tensor.Shape{3}, tensor.Shape{2, 3}, []int{2}, false, tensor.ErrAxisOutOfRange},
		{"negative axis out of range", tensor.Shape{3}, tensor.Shape{2, 3}, []int{-3}, false, tensor.ErrAxisOutOfRange},
		{"duplicate axis", tensor.Shape{3}, tensor.Shape{2, 3}, []int{0, -2}, false, tensor.ErrAxisOutOfRange},
		{"rank mismatch", tensor.Shape{2, 3}, tensor.Shape{2, 3}, []int{0}, false, tensor.ErrShapeMismatch},
		{"dimension mismatch", tensor.Shape{4}, tensor.Shape{2, 3}, []int{0}, false, tensor.ErrShapeMismatch},
		{"keepdims rank mismatch", tensor.Shape{3}, tensor.Shape{2, 3}, []int{0}, true, tensor.ErrShapeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gradshape.ReshapeSumBackward(backend, arange(t, tt.gy), tt.xShape, tt.axes, tt.keepDims)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// TestSumAxisRoundTrip covers the full backward path of y = sum(x, axis=0):
// the [3] gradient is restored to [1 3] and broadcast back to [2 3].
func TestSumAxisRoundTrip(t *testing.T) {
	backend := cpu.New()
	x := arange(t, tensor.Shape{2, 3})

	y := backend.SumAxes(x, []int{0}, false)
	require.Equal(t, tensor.Shape{3}, y.Shape())

	gy, err := tensor.FromFloat64s([]float64{0.5, -1, 2}, tensor.Shape{3}, tensor.Float64)
	require.NoError(t, err)

	restored, err := gradshape.ReshapeSumBackward(backend, gy, x.Shape(), []int{0}, false)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{1, 3}, restored.Shape())

	gx := backend.BroadcastTo(restored, x.Shape())
	assert.Equal(t, []float64{0.5, -1, 2, 0.5, -1, 2}, gx.Float64s())
}

func TestMaxBackwardShape(t *testing.T) {
	shape, err := gradshape.MaxBackwardShape(tensor.Shape{2, 3, 4}, []int{1})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 1, 4}, shape)

	shape, err = gradshape.MaxBackwardShape(tensor.Shape{2, 3, 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1, 1}, shape)

	_, err = gradshape.MaxBackwardShape(tensor.Shape{2, 3}, []int{5})
	assert.ErrorIs(t, err, tensor.ErrAxisOutOfRange)
}

func TestLogSumExp(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromFloat64s([]float64{1000, 1000, 0, math.Log(3)}, tensor.Shape{2, 2}, tensor.Float64)
	require.NoError(t, err)

	y, err := gradshape.LogSumExp(backend, x, []int{1})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 1}, y.Shape())
	assert.InDeltaSlice(t, []float64{1000 + math.Log(2), math.Log(4)}, y.Float64s(), 1e-9)

	_, err = gradshape.LogSumExp(backend, x, []int{3})
	assert.ErrorIs(t, err, tensor.ErrAxisOutOfRange)
}

func TestMustVariantsPanicWithError(t *testing.T) {
	backend := cpu.New()
	x := arange(t, tensor.Shape{2, 3})

	err := exceptions.TryCatch[error](func() {
		gradshape.MustSumTo(backend, x, tensor.Shape{4})
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))

	err = exceptions.TryCatch[error](func() {
		gradshape.MustReshapeSumBackward(backend, arange(t, tensor.Shape{3}), x.Shape(), []int{7}, false)
	})
	assert.ErrorIs(t, err, tensor.ErrAxisOutOfRange)

	assert.NotPanics(t, func() {
		y := gradshape.MustSumTo(backend, x, tensor.Shape{3})
		assert.Equal(t, tensor.Shape{3}, y.Shape())
	})
}

func TestSumTo_ConcurrentCallers(t *testing.T) {
	backend := cpu.New()
	x := arange(t, tensor.Shape{4, 3})

	var wg sync.WaitGroup
	results := make([][]float64, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			y, err := gradshape.SumTo(backend, x, tensor.Shape{3})
			if err == nil {
				results[i] = y.Float64s()
			}
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, []float64{22, 26, 30}, r)
	}
}
