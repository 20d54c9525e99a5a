package classifier

import (
	"errors"
	"fmt"
)

// ClassifierError describes a failed classifier operation.
type ClassifierError struct {
	Op      string // Operation that failed (e.g., "New", "Predict")
	Message string // Human-readable error message
	Err     error  // Wrapped error, matches one of the sentinels below
}

// Error implements the error interface.
func (e *ClassifierError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classifier %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("classifier %s: %s", e.Op, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As.
func (e *ClassifierError) Unwrap() error {
	return e.Err
}

// Sentinel errors for classifier operations.
var (
	// ErrLoad indicates a missing or malformed data config, network config,
	// weights or label file, or an inconsistency between them.
	ErrLoad = errors.New("failed to load classifier")

	// ErrImageLoad indicates the image could not be read or decoded.
	ErrImageLoad = errors.New("failed to load image")

	// ErrInference indicates the forward pass failed or produced an
	// activation vector of the wrong size.
	ErrInference = errors.New("forward pass failed")

	// ErrOutOfRange indicates a class id outside [0, classes).
	ErrOutOfRange = errors.New("class id out of range")

	// ErrClosed indicates use of a classifier after Close.
	ErrClosed = errors.New("classifier is closed")
)

func loadError(message string, err error) error {
	return &ClassifierError{Op: "New", Message: message, Err: fmt.Errorf("%w: %w", ErrLoad, err)}
}
