// Package errors provides structured error handling for rspecgen.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Resolution errors (path mapping, role classification)
//   - 2XX: IO errors (spec files, dataset output, locks)
//   - 3XX: Transport errors (inference endpoint)
//   - 4XX: Validation errors (rejected before any side effect)
//   - 5XX: Extraction errors (method not found)
//   - 6XX: Configuration errors
//   - 9XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryResolution indicates a source path could not be mapped or classified.
	CategoryResolution Category = "RESOLUTION"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryTransport indicates inference endpoint failures.
	CategoryTransport Category = "TRANSPORT"
	// CategoryValidation indicates input rejected before execution.
	CategoryValidation Category = "VALIDATION"
	// CategoryExtraction indicates a method could not be located in source text.
	CategoryExtraction Category = "EXTRACTION"
	// CategoryConfig indicates configuration errors.
	CategoryConfig Category = "CONFIG"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal aborts the whole command.
	SeverityFatal Severity = "FATAL"
	// SeverityError aborts the current file or method; the run continues.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Resolution errors (100-199)
	ErrCodeNotUnderApp      = "ERR_101_NOT_UNDER_APP"
	ErrCodeUnclassifiedRole = "ERR_102_UNCLASSIFIED_ROLE"
	ErrCodeNotUnderSpec     = "ERR_103_NOT_UNDER_SPEC"

	// IO errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeWriteFailed    = "ERR_203_WRITE_FAILED"
	ErrCodeLockFailed     = "ERR_204_LOCK_FAILED"
	ErrCodeReadFailed     = "ERR_205_READ_FAILED"

	// Transport errors (300-399)
	ErrCodeTransportUnavailable = "ERR_301_TRANSPORT_UNAVAILABLE"
	ErrCodeTransportTimeout     = "ERR_302_TRANSPORT_TIMEOUT"
	ErrCodeBadStatus            = "ERR_303_BAD_STATUS"
	ErrCodeMalformedReply       = "ERR_304_MALFORMED_REPLY"
	ErrCodeCircuitOpen          = "ERR_305_CIRCUIT_OPEN"

	// Validation errors (400-499)
	ErrCodeInvalidInput   = "ERR_401_INVALID_INPUT"
	ErrCodeEmptySelection = "ERR_402_EMPTY_SELECTION"
	ErrCodeInvalidLimit   = "ERR_403_INVALID_LIMIT"
	ErrCodeNoClosingEnd   = "ERR_404_NO_CLOSING_END"

	// Extraction errors (500-599)
	ErrCodeMethodNotFound = "ERR_501_METHOD_NOT_FOUND"

	// Config errors (600-699)
	ErrCodeConfigInvalid  = "ERR_601_CONFIG_INVALID"
	ErrCodeConfigNotFound = "ERR_602_CONFIG_NOT_FOUND"

	// Internal errors (900-999)
	ErrCodeInternal = "ERR_901_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryResolution
	case '2':
		return CategoryIO
	case '3':
		return CategoryTransport
	case '4':
		return CategoryValidation
	case '5':
		return CategoryExtraction
	case '6':
		return CategoryConfig
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryValidation, CategoryConfig:
		return SeverityFatal
	case CategoryTransport:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeTransportUnavailable, ErrCodeTransportTimeout:
		return true
	default:
		return false
	}
}
