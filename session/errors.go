package session

import "errors"

// Session errors
var (
	// ErrNotInitialized is returned by any operation made before Init or
	// after Dispose.
	ErrNotInitialized = errors.New("session: classifier not initialized")

	// ErrBufferTooSmall is returned by ClassNameInto when the name does
	// not fit the caller's buffer.
	ErrBufferTooSmall = errors.New("session: buffer too small for class name")

	// ErrNilBuffer is returned when the caller passes no result buffer.
	ErrNilBuffer = errors.New("session: nil result buffer")
)
