package core

import (
	"errors"
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
	Err     error  // Underlying cause, if any
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Error codes for configuration errors
const (
	ErrCodeEnvFileMissing = "ENV_FILE_MISSING"
	ErrCodeMissingConfig  = "MISSING_CONFIG"
	ErrCodeFileNotFound   = "FILE_NOT_FOUND"
	ErrCodeInvalidValue   = "INVALID_VALUE"
	ErrCodeModelInvalid   = "MODEL_INVALID"
)

// ErrEnvFileMissing returns an error for a missing .env file.
func ErrEnvFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEnvFileMissing,
		Message: fmt.Sprintf("Configuration file not found: %s", path),
		Action:  "Copy example.env to .env or pass the model paths as flags",
	}
}

// ErrMissingConfig returns an error for a missing required setting.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// ErrFileNotFound returns an error for a configured path that does not exist.
func ErrFileNotFound(varName, path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeFileNotFound,
		Message: fmt.Sprintf("%s points to a missing file: %s", varName, path),
		Action:  fmt.Sprintf("Check the path in %s", varName),
	}
}

// ErrInvalidValue returns an error for a setting outside its allowed range.
func ErrInvalidValue(varName, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s '%s': %s", varName, value, reason),
		Action:  fmt.Sprintf("Fix %s in your .env file", varName),
	}
}

// ErrModelInvalid wraps a model load failure.
func ErrModelInvalid(err error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeModelInvalid,
		Message: "Model could not be loaded",
		Action:  "Run 'classifier check' to find the failing artifact",
		Err:     err,
	}
}

// IsConfigError checks if an error is, or wraps, a ConfigError and returns it if so.
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
