package core

import "errors"

// Exit codes for the classifier binary.
// Signal-based exits follow the Unix 128 + signal number convention.
const (
	// ExitCodeSuccess indicates clean shutdown.
	ExitCodeSuccess = 0

	// ExitCodeError indicates a runtime failure such as an unreadable image.
	ExitCodeError = 1

	// ExitCodeUsage indicates bad command-line arguments.
	ExitCodeUsage = 2

	// ExitCodeConfig indicates invalid configuration or model artifacts
	// (EX_CONFIG from sysexits.h).
	ExitCodeConfig = 78

	// ExitCodeSIGINT indicates termination due to SIGINT (128 + 2).
	ExitCodeSIGINT = 130

	// ExitCodeSIGTERM indicates termination due to SIGTERM (128 + 15).
	ExitCodeSIGTERM = 143
)

// ExitCodeName returns a human-readable name for an exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeUsage:
		return "usage"
	case ExitCodeConfig:
		return "configuration error"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	case ExitCodeSIGTERM:
		return "terminated (SIGTERM)"
	default:
		return "unknown"
	}
}

// IsSignalExit reports whether code indicates a signal-based termination.
func IsSignalExit(code int) bool {
	return code == ExitCodeSIGINT || code == ExitCodeSIGTERM
}

// ExitCodeFor maps an error to the exit code the process should return.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return ExitCodeConfig
	}
	return ExitCodeError
}
