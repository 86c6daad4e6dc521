package tensor

// Backend defines the kernels the autodiff functions and gradient reducers dispatch to.
// Kernels panic on precondition violations (naming the kernel); callers that need an
// error instead validate shapes before dispatching.
//
// Implementations:
//   - CPU: pure Go reference kernels (internal/backend/cpu)
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// EqualMask returns 1 where a == b and 0 elsewhere (with broadcasting), in a's dtype.
	EqualMask(a, b *RawTensor) *RawTensor

	// Element-wise unary operations.
	Neg(x *RawTensor) *RawTensor
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor
	Sin(x *RawTensor) *RawTensor
	Cos(x *RawTensor) *RawTensor

	// Scalar operations (element-wise with scalar).
	PowScalar(x *RawTensor, c float64) *RawTensor
	MulScalar(x *RawTensor, c float64) *RawTensor
	AddScalar(x *RawTensor, c float64) *RawTensor

	// Shape operations.
	Reshape(x *RawTensor, shape Shape) *RawTensor
	BroadcastTo(x *RawTensor, shape Shape) *RawTensor
	Squeeze(x *RawTensor, axes ...int) *RawTensor

	// Reductions. Axes may be negative; an empty axes list reduces every axis.
	Sum(x *RawTensor) *RawTensor
	SumAxes(x *RawTensor, axes []int, keepDims bool) *RawTensor
	MaxAxes(x *RawTensor, axes []int, keepDims bool) *RawTensor

	// Metadata.
	Name() string
}
