// Package errors provides structured error handling for amansearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Resource errors (disposed handles, directories, locks)
//   - 4XX: Validation errors
//   - 5XX: Engine and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryResource indicates a handle or directory that cannot be used.
	CategoryResource Category = "RESOURCE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryEngine indicates a failure raised by the index engine.
	CategoryEngine Category = "ENGINE"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Resource errors (200-299)
	ErrCodeDisposed             = "ERR_201_DISPOSED"
	ErrCodeDirectoryUnavailable = "ERR_202_DIRECTORY_UNAVAILABLE"
	ErrCodeIndexLocked          = "ERR_203_INDEX_LOCKED"

	// Validation errors (400-499)
	ErrCodeInvalidName  = "ERR_401_INVALID_NAME"
	ErrCodeTypeMismatch = "ERR_402_TYPE_MISMATCH"
	ErrCodeReservedName = "ERR_403_RESERVED_NAME"
	ErrCodeOutOfRange   = "ERR_404_OUT_OF_RANGE"
	ErrCodeInvalidQuery = "ERR_405_INVALID_QUERY"

	// Engine errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeEngineFailure = "ERR_502_ENGINE_FAILURE"
	ErrCodeOutOfMemory   = "ERR_503_OUT_OF_MEMORY"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryEngine
	}

	// "201" from "ERR_201_DISPOSED"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryResource
	case '4':
		return CategoryValidation
	default:
		return CategoryEngine
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeOutOfMemory:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeIndexLocked:
		return true
	default:
		return false
	}
}
