// Package errors provides standardized error types for frame and pipeline
// operations. It defines FrameError for consistent error handling across the
// frame engine, plus the pipeline failure taxonomy (stage ordering, dispatch,
// data integrity, merge cardinality), with operation context and error
// wrapping support.
package errors

import (
	"fmt"
)

// FrameError represents standardized errors across all frame operations
type FrameError struct {
	Op      string // Operation name (e.g., "Join", "GroupBy", "Concat")
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *FrameError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s operation failed on column '%s': %s", e.Op, e.Column, e.Message)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *FrameError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is()
func (e *FrameError) Is(target error) bool {
	if fe, ok := target.(*FrameError); ok {
		return e.Op == fe.Op && e.Column == fe.Column && e.Message == fe.Message
	}
	return false
}

// Common error constructors for consistent error creation

// NewColumnNotFoundError creates an error for operations on non-existent columns
func NewColumnNotFoundError(op, column string) *FrameError {
	return &FrameError{
		Op:      op,
		Column:  column,
		Message: "column does not exist",
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *FrameError {
	return &FrameError{
		Op:      op,
		Message: message,
	}
}

// NewUnsupportedTypeError creates an error for unsupported data types
func NewUnsupportedTypeError(op, typeName string) *FrameError {
	return &FrameError{
		Op:      op,
		Message: fmt.Sprintf("unsupported type: %s", typeName),
	}
}

// NewTypeMismatchError creates an error for operations across incompatible column types
func NewTypeMismatchError(op, column, expected, actual string) *FrameError {
	return &FrameError{
		Op:      op,
		Column:  column,
		Message: fmt.Sprintf("expected type %s, got %s", expected, actual),
	}
}

// NewValidationError creates an error for input validation failures
func NewValidationError(op, column, message string) *FrameError {
	return &FrameError{
		Op:      op,
		Column:  column,
		Message: message,
	}
}

// NewInternalError creates an error for internal operation failures
func NewInternalError(op string, cause error) *FrameError {
	return &FrameError{
		Op:      op,
		Message: "internal error occurred",
		Cause:   cause,
	}
}

// Predefined error variables for common cases
var (
	// ErrEmptyFrame indicates operations on empty frames
	ErrEmptyFrame = &FrameError{
		Op:      "validation",
		Message: "operation not supported on empty frame",
	}

	// ErrMismatchedLength indicates length mismatches in operations
	ErrMismatchedLength = &FrameError{
		Op:      "validation",
		Message: "columns must have the same length",
	}

	// ErrInvalidIndex indicates out-of-bounds index access
	ErrInvalidIndex = &FrameError{
		Op:      "indexing",
		Message: "index out of bounds",
	}
)
