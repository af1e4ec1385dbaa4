package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesCause(t *testing.T) {
	// Given: an underlying os-level error
	cause := errors.New("permission denied")

	// When: wrapping it as an IO error
	err := IOError(ErrCodeWriteFailed, "write spec/services/billing_spec.rb", cause)

	// Then: the cause is reachable through the chain
	require.NotNil(t, err)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "resolution",
			err:      ResolutionError(ErrCodeNotUnderApp, "lib/tasks/seed.rb is not under app/"),
			expected: "[ERR_101_NOT_UNDER_APP] lib/tasks/seed.rb is not under app/",
		},
		{
			name:     "extraction",
			err:      ExtractionError("charge"),
			expected: `[ERR_501_METHOD_NOT_FOUND] method "charge" not found`,
		},
		{
			name:     "validation",
			err:      ValidationError(ErrCodeInvalidLimit, "limit must be a number"),
			expected: "[ERR_403_INVALID_LIMIT] limit must be a number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_Is_MatchesByCode(t *testing.T) {
	err1 := ExtractionError("charge")
	err2 := ExtractionError("refund")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, ValidationError(ErrCodeEmptySelection, "empty")))
}

func TestError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeNotUnderApp, CategoryResolution},
		{ErrCodeUnclassifiedRole, CategoryResolution},
		{ErrCodeFileNotFound, CategoryIO},
		{ErrCodeLockFailed, CategoryIO},
		{ErrCodeTransportTimeout, CategoryTransport},
		{ErrCodeMalformedReply, CategoryTransport},
		{ErrCodeEmptySelection, CategoryValidation},
		{ErrCodeMethodNotFound, CategoryExtraction},
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeInternal, CategoryInternal},
		{"BAD", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.wantCategory, categoryFromCode(tt.code))
		})
	}
}

func TestError_RetryableOnlyForTransientTransport(t *testing.T) {
	assert.True(t, New(ErrCodeTransportUnavailable, "refused", nil).Retryable)
	assert.True(t, New(ErrCodeTransportTimeout, "timeout", nil).Retryable)
	assert.False(t, New(ErrCodeBadStatus, "500", nil).Retryable)
	assert.False(t, New(ErrCodeMalformedReply, "bad json", nil).Retryable)
	assert.False(t, New(ErrCodeWriteFailed, "disk", nil).Retryable)
}

func TestError_Severity(t *testing.T) {
	assert.Equal(t, SeverityFatal, New(ErrCodeInvalidLimit, "x", nil).Severity)
	assert.Equal(t, SeverityWarning, New(ErrCodeBadStatus, "x", nil).Severity)
	assert.Equal(t, SeverityError, New(ErrCodeMethodNotFound, "x", nil).Severity)
}

func TestHelpers_SeeThroughWrapping(t *testing.T) {
	// Given: a structured error wrapped with fmt.Errorf
	inner := New(ErrCodeTransportUnavailable, "connection refused", nil)
	wrapped := fmt.Errorf("synthesize charge: %w", inner)

	// Then: helpers still find it
	assert.True(t, IsRetryable(wrapped))
	assert.Equal(t, ErrCodeTransportUnavailable, GetCode(wrapped))
	assert.Equal(t, CategoryTransport, GetCategory(wrapped))
	assert.False(t, IsFatal(wrapped))
}

func TestHelpers_ForeignError(t *testing.T) {
	err := errors.New("plain")

	assert.False(t, IsRetryable(err))
	assert.Empty(t, GetCode(err))
	assert.Empty(t, GetCategory(err))
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestError_WithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeFileNotFound, "spec file missing", nil).
		WithDetail("path", "spec/models/user_spec.rb").
		WithSuggestion("run scaffold first")

	assert.Equal(t, "spec/models/user_spec.rb", err.Details["path"])
	assert.Equal(t, "run scaffold first", err.Suggestion)
}
