// Package cpu implements the pure Go reference backend used by the autodiff functions.
package cpu

import (
	"fmt"

	"github.com/born-ml/graphgrad/internal/parallel"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// CPUBackend implements tensor kernels on the CPU.
// Element-wise kernels split large arrays across goroutines.
type CPUBackend struct {
	parallel parallel.Config
}

// New creates a new CPU backend using every available CPU.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with an explicit parallelism configuration.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{parallel: cfg}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with NumPy-style broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with NumPy-style broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with NumPy-style broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("div", a, b, func(x, y float64) float64 { return x / y })
}

// EqualMask returns 1 where a == b and 0 elsewhere.
func (cpu *CPUBackend) EqualMask(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("equal", a, b, func(x, y float64) float64 {
		if x == y {
			return 1
		}
		return 0
	})
}

// newResult allocates a kernel output, panicking with the kernel name on failure.
func newResult(name string, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}
	return result
}

// binary runs fn element-wise over the broadcast of a and b.
func (cpu *CPUBackend) binary(name string, a, b *tensor.RawTensor, fn func(x, y float64) float64) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", name, a.DType(), b.DType()))
	}
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result := newResult(name, outShape, a.DType())
	switch a.DType() {
	case tensor.Float32:
		broadcastBinary(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), outShape, a.Shape(), b.Shape(),
			func(x, y float32) float32 { return float32(fn(float64(x), float64(y))) }, cpu.parallel)
	case tensor.Float64:
		broadcastBinary(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), outShape, a.Shape(), b.Shape(), fn, cpu.parallel)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32/float64 supported)", name, a.DType()))
	}
	return result
}

// broadcastBinary applies fn to aligned elements of a and b, writing into dst.
func broadcastBinary[T tensor.Float](dst, a, b []T, outShape, aShape, bShape tensor.Shape, fn func(x, y T) T,
	cfg parallel.Config) {
	// Fast path: identical shapes need no index mapping
	if aShape.Equal(bShape) {
		parallel.ForChunks(len(dst), func(start, end int) {
			for i := start; i < end; i++ {
				dst[i] = fn(a[i], b[i])
			}
		}, cfg)
		return
	}

	outStrides := outShape.ComputeStrides()
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)
	parallel.ForChunks(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = fn(a[sourceIndex(i, outStrides, aStrides)], b[sourceIndex(i, outStrides, bStrides)])
		}
	}, cfg)
}
