// Package mcp exposes the gujimcp library as a Model Context Protocol server.
package mcp

import (
	"context"
	"errors"
	"fmt"

	gerrors "github.com/Aman-CERP/gujimcp/internal/errors"
)

// MCP error codes.
const (
	// ErrCodeTimeout indicates the request was cancelled or timed out.
	ErrCodeTimeout = -32003

	// ErrCodeNotFound indicates a book or chapter id that does not resolve.
	ErrCodeNotFound = -32004

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// ErrResourceNotFound indicates the requested resource does not exist.
var ErrResourceNotFound = errors.New("resource not found")

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts library errors to MCP errors. Invalid arguments and
// unknown ids keep their message; anything else is reported as internal.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrResourceNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Resource not found."}
	}

	var ge *gerrors.GujiError
	if !errors.As(err, &ge) {
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}

	message := ge.Message
	if ge.Suggestion != "" {
		message = fmt.Sprintf("%s %s", ge.Message, ge.Suggestion)
	}
	switch ge.Category {
	case gerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case gerrors.CategoryNotFound:
		return &MCPError{Code: ErrCodeNotFound, Message: message}
	default:
		// Internal details stay in the server log.
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error (" + ge.Code + ")."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}
