package engine

import "errors"

// Sentinel errors for network loading and execution.
var (
	// Descriptor errors
	ErrDescriptorNotFound = errors.New("engine: network config not found")
	ErrDescriptorInvalid  = errors.New("engine: invalid network config")

	// Weights errors
	ErrWeightsNotFound = errors.New("engine: weights file not found")
	ErrWeightsInvalid  = errors.New("engine: weights do not match network topology")

	// Hierarchy errors
	ErrTreeInvalid = errors.New("engine: invalid label hierarchy")

	// Runtime errors
	ErrBackendUnavailable = errors.New("engine: backend not available in this build")
	ErrInputMismatch      = errors.New("engine: input tensor size mismatch")
	ErrHandleReleased     = errors.New("engine: network handle already released")
)
