package tensor

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
)

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return errors.Wrapf(ErrShapeMismatch, "invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// String renders the shape as "[2 3]"; scalars render as "[]".
func (s Shape) String() string {
	return fmt.Sprint([]int(s))
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// InsertAxis returns a copy of the shape with a size-1 dimension inserted at axis.
// The axis must already be normalized to [0, len(s)].
func (s Shape) InsertAxis(axis int) Shape {
	out := make(Shape, 0, len(s)+1)
	out = append(out, s[:axis]...)
	out = append(out, 1)
	return append(out, s[axis:]...)
}

// RemoveAxes returns a copy of the shape without the given (normalized) axes.
func (s Shape) RemoveAxes(axes ...int) Shape {
	out := make(Shape, 0, len(s))
	for i, dim := range s {
		if !slices.Contains(axes, i) {
			out = append(out, dim)
		}
	}
	return out
}

// NormalizeAxis maps a possibly negative axis onto [0, rank).
// Negative axes count from the end: -1 is the last dimension.
func NormalizeAxis(axis, rank int) (int, error) {
	adjusted := axis
	if adjusted < 0 {
		adjusted += rank
	}
	if adjusted < 0 || adjusted >= rank {
		return 0, errors.Wrapf(ErrAxisOutOfRange, "axis %d for rank %d", axis, rank)
	}
	return adjusted, nil
}

// NormalizeAxes normalizes every axis against rank and returns them sorted ascending.
// Duplicated axes (after normalization) are rejected.
func NormalizeAxes(axes []int, rank int) ([]int, error) {
	out := make([]int, 0, len(axes))
	for _, axis := range axes {
		adjusted, err := NormalizeAxis(axis, rank)
		if err != nil {
			return nil, err
		}
		if slices.Contains(out, adjusted) {
			return nil, errors.Wrapf(ErrAxisOutOfRange, "axis %d given more than once in %v", axis, axes)
		}
		out = append(out, adjusted)
	}
	slices.Sort(out)
	return out, nil
}

// BroadcastShapes implements NumPy-style broadcasting rules.
//
// Rules:
// 1. Compare shapes element-wise from right to left
// 2. Dimensions are compatible if:
//   - They are equal, OR
//   - One of them is 1
//
// 3. Missing dimensions are treated as 1
//
// Returns the broadcasted shape, a flag indicating if broadcasting is needed, and an error if incompatible.
//
// Examples:
//
//	(3, 1) + (3, 5) → (3, 5), true, nil
//	(1, 5) + (3, 5) → (3, 5), true, nil
//	(3, 5) + (3, 5) → (3, 5), false, nil
//	(3, 4) + (3, 5) → nil, false, Error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	maxLen := max(len(a), len(b))
	result := make(Shape, maxLen)
	needsBroadcast := len(a) != len(b)

	for i := 0; i < maxLen; i++ {
		aIdx := len(a) - 1 - i
		bIdx := len(b) - 1 - i

		aDim := 1
		if aIdx >= 0 {
			aDim = a[aIdx]
		}

		bDim := 1
		if bIdx >= 0 {
			bDim = b[bIdx]
		}

		switch {
		case aDim == bDim:
			result[maxLen-1-i] = aDim
		case aDim == 1:
			result[maxLen-1-i] = bDim
			needsBroadcast = true
		case bDim == 1:
			result[maxLen-1-i] = aDim
			needsBroadcast = true
		default:
			return nil, false, errors.Wrapf(ErrShapeMismatch,
				"shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, maxLen-1-i, aDim, bDim)
		}
	}

	return result, needsBroadcast, nil
}

// CanBroadcastTo reports whether src can be broadcast (replicated) up to dst.
func CanBroadcastTo(src, dst Shape) bool {
	if len(src) > len(dst) {
		return false
	}
	lead := len(dst) - len(src)
	for i, dim := range src {
		if dim != 1 && dim != dst[lead+i] {
			return false
		}
	}
	return true
}
