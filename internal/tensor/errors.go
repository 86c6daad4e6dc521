package tensor

import "github.com/pkg/errors"

// Sentinel errors for shape and index precondition violations.
// Call sites wrap them with context; match with errors.Is.
var (
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrAxisOutOfRange   = errors.New("axis out of range")
	ErrUnsupportedDType = errors.New("unsupported dtype")
)
