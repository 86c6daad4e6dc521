package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/graphgrad/internal/parallel"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Neg computes element-wise negation: -x.
func (cpu *CPUBackend) Neg(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("neg", x, func(v float64) float64 { return -v })
}

// Exp computes element-wise exponential: exp(x).
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("exp", x, math.Exp)
}

// Log computes element-wise natural logarithm: ln(x).
// Non-positive inputs panic.
func (cpu *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("log", x, func(v float64) float64 {
		if v <= 0 {
			panic(fmt.Sprintf("log: non-positive value %f", v))
		}
		return math.Log(v)
	})
}

// Sin computes element-wise sine.
func (cpu *CPUBackend) Sin(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("sin", x, math.Sin)
}

// Cos computes element-wise cosine.
func (cpu *CPUBackend) Cos(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("cos", x, math.Cos)
}

// PowScalar raises every element to the power c.
func (cpu *CPUBackend) PowScalar(x *tensor.RawTensor, c float64) *tensor.RawTensor {
	return cpu.unary("pow", x, func(v float64) float64 { return math.Pow(v, c) })
}

// MulScalar multiplies every element by c.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, c float64) *tensor.RawTensor {
	return cpu.unary("mulscalar", x, func(v float64) float64 { return v * c })
}

// AddScalar adds c to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, c float64) *tensor.RawTensor {
	return cpu.unary("addscalar", x, func(v float64) float64 { return v + c })
}

// unary applies fn element-wise, keeping shape and dtype.
func (cpu *CPUBackend) unary(name string, x *tensor.RawTensor, fn func(float64) float64) *tensor.RawTensor {
	result := newResult(name, x.Shape(), x.DType())

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		parallel.ForChunks(len(dst), func(start, end int) {
			for i := start; i < end; i++ {
				dst[i] = float32(fn(float64(src[i])))
			}
		}, cpu.parallel)
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		parallel.ForChunks(len(dst), func(start, end int) {
			for i := start; i < end; i++ {
				dst[i] = fn(src[i])
			}
		}, cpu.parallel)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32/float64 supported)", name, x.DType()))
	}

	return result
}
