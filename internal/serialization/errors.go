package serialization

import (
	"fmt"

	"github.com/pkg/errors"
)

// Common errors.
var (
	ErrHeaderTooLarge    = errors.New("header exceeds maximum size")
	ErrUnsupportedDType  = errors.New("unsupported safetensors dtype")
	ErrInvalidTensorName = errors.New("invalid tensor name")
	ErrTooManyTensors    = errors.New("too many tensors in file")
	ErrMalformedFile     = errors.New("malformed safetensors file")
	ErrChecksumMismatch  = errors.New("checksum mismatch: file may be corrupted")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // Type of error (e.g., "offset_overlap", "out_of_bounds")
	Tensor  string // Primary tensor name involved
	Tensor2 string // Secondary tensor name (for overlap errors)
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Tensor2 != "" {
		return fmt.Sprintf("%s: tensors %q and %q: %s", e.Type, e.Tensor, e.Tensor2, e.Details)
	}
	if e.Tensor != "" {
		return fmt.Sprintf("%s: tensor %q: %s", e.Type, e.Tensor, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Is makes every ValidationError match ErrMalformedFile.
func (e *ValidationError) Is(target error) bool {
	return target == ErrMalformedFile
}
