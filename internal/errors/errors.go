package errors

import (
	"errors"
	"fmt"
)

// AmanError is the structured error type for amansearch.
// It provides rich context for error handling, logging, and user presentation.
type AmanError struct {
	// Code is the unique error code (e.g., "ERR_402_TYPE_MISMATCH").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Resource, Validation, Engine).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *AmanError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *AmanError) Unwrap() error {
	return e.Cause
}

// Is matches by code so that errors.Is works against sentinel-like values
// such as New(ErrCodeDisposed, "", nil).
func (e *AmanError) Is(target error) bool {
	if t, ok := target.(*AmanError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *AmanError) WithDetail(key, value string) *AmanError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *AmanError) WithSuggestion(suggestion string) *AmanError {
	e.Suggestion = suggestion
	return e
}

// New creates a new AmanError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *AmanError {
	return &AmanError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an AmanError from an existing error.
// The error's message becomes the AmanError message.
func Wrap(code string, err error) *AmanError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *AmanError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a generic validation error. Prefer the specific
// constructors below when the failure has a dedicated code.
func ValidationError(message string, cause error) *AmanError {
	return New(ErrCodeInvalidQuery, message, cause)
}

// InvalidName reports a blank or malformed field or index name.
func InvalidName(kind, name string) *AmanError {
	return New(ErrCodeInvalidName, fmt.Sprintf("invalid %s name %q", kind, name), nil).
		WithDetail(kind, name)
}

// TypeMismatch reports a value whose runtime type does not match the
// declared field type.
func TypeMismatch(field, declared string, value any) *AmanError {
	return New(ErrCodeTypeMismatch,
		fmt.Sprintf("field %q declared as %s cannot hold a value of type %T", field, declared, value), nil).
		WithDetail("field", field).
		WithDetail("declared", declared)
}

// ReservedName reports an attempt to define a field with a reserved name.
func ReservedName(name string) *AmanError {
	return New(ErrCodeReservedName, fmt.Sprintf("field name %q is reserved", name), nil).
		WithDetail("field", name)
}

// OutOfRange reports an argument outside its permitted range.
func OutOfRange(arg string, value any, constraint string) *AmanError {
	return New(ErrCodeOutOfRange, fmt.Sprintf("%s=%v out of range: %s", arg, value, constraint), nil).
		WithDetail("argument", arg)
}

// Disposed reports use of a handle after it was closed.
func Disposed(resource string) *AmanError {
	return New(ErrCodeDisposed, fmt.Sprintf("%s has been disposed", resource), nil).
		WithDetail("resource", resource)
}

// DirectoryUnavailable reports an index directory that cannot be opened.
func DirectoryUnavailable(path string, cause error) *AmanError {
	return New(ErrCodeDirectoryUnavailable, fmt.Sprintf("index directory %q unavailable", path), cause).
		WithDetail("path", path)
}

// EngineFailure wraps an error raised by the index engine.
func EngineFailure(op string, cause error) *AmanError {
	return New(ErrCodeEngineFailure, fmt.Sprintf("%s failed: %v", op, cause), cause).
		WithDetail("operation", op)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *AmanError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable reports whether any AmanError in the chain is retryable.
func IsRetryable(err error) bool {
	var ae *AmanError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var ae *AmanError
	if errors.As(err, &ae) {
		return ae.Severity == SeverityFatal
	}
	return false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code string) bool {
	return errors.Is(err, &AmanError{Code: code})
}

// GetCode extracts the error code from the first AmanError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var ae *AmanError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// GetCategory extracts the category from the first AmanError in the chain.
func GetCategory(err error) Category {
	var ae *AmanError
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ""
}
