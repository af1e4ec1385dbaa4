// Package mcp implements the Model Context Protocol (MCP) server for rspecgen.
package mcp

import (
	"context"
	"errors"
	"fmt"

	rgerrors "github.com/A-iswarya/RspecGeneratorPublic/internal/errors"
)

// Custom MCP error codes for rspecgen.
const (
	// ErrCodeResolution indicates a path has no mirrored spec or role.
	ErrCodeResolution = -32001

	// ErrCodeSynthesisUnavailable indicates the inference endpoint is down
	// or its circuit breaker is open.
	ErrCodeSynthesisUnavailable = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeFileNotFound indicates a file does not exist on disk.
	ErrCodeFileNotFound = -32004

	// ErrCodeFileTooLarge indicates a file is too large to serve.
	ErrCodeFileTooLarge = -32005

	// ErrCodeMethodMissing indicates the selected method is not in the source.
	ErrCodeMethodMissing = -32006

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrResourceNotFound indicates the requested resource does not exist.
	ErrResourceNotFound = errors.New("resource not found")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	if re, ok := rgerrors.As(err); ok {
		return mapError(re)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{Code: ErrCodeInvalidParams, Message: "Invalid parameters."}
	case errors.Is(err, ErrResourceNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Resource not found."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// NewResourceNotFoundError creates an error for unknown resources.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Resource '%s' not found.", uri),
	}
}

// mapError converts a structured rspecgen error by category.
func mapError(re *rgerrors.Error) *MCPError {
	message := re.Message
	if re.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", re.Message, re.Suggestion)
	}

	code := ErrCodeInternalError
	switch re.Category {
	case rgerrors.CategoryResolution:
		code = ErrCodeResolution
	case rgerrors.CategoryValidation:
		code = ErrCodeInvalidParams
	case rgerrors.CategoryExtraction:
		code = ErrCodeMethodMissing
	case rgerrors.CategoryTransport:
		if re.Code == rgerrors.ErrCodeTransportTimeout {
			code = ErrCodeTimeout
		} else {
			code = ErrCodeSynthesisUnavailable
		}
	case rgerrors.CategoryIO:
		if re.Code == rgerrors.ErrCodeFileNotFound {
			code = ErrCodeFileNotFound
		}
	}
	return &MCPError{Code: code, Message: message}
}
