package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is the structured error type for rspecgen.
// Every component returns one so the boundary that catches it can decide
// whether to skip a method, skip a file, or reject the command.
type Error struct {
	// Code is the unique error code (e.g., "ERR_501_METHOD_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Resolution, IO, Transport, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable hint for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a new Error with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ResolutionError reports a source path that cannot be mapped to a spec.
func ResolutionError(code, message string) *Error {
	return New(code, message, nil)
}

// IOError reports a spec or dataset file that could not be read or written.
func IOError(code, message string, cause error) *Error {
	return New(code, message, cause)
}

// TransportError reports a failed call to the inference endpoint.
func TransportError(code, message string, cause error) *Error {
	return New(code, message, cause)
}

// ValidationError reports input rejected before execution.
func ValidationError(code, message string) *Error {
	return New(code, message, nil)
}

// ExtractionError reports a method missing from its source text.
func ExtractionError(method string) *Error {
	return New(ErrCodeMethodNotFound, fmt.Sprintf("method %q not found", method), nil).
		WithDetail("method", method)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := As(err); ok {
		return e.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if e, ok := As(err); ok {
		return e.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code, or "" for foreign errors.
func GetCode(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

// GetCategory extracts the category, or "" for foreign errors.
func GetCategory(err error) Category {
	if e, ok := As(err); ok {
		return e.Category
	}
	return ""
}
