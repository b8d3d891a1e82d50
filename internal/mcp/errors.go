// Package mcp implements the Model Context Protocol server for qmdsync.
// It lets AI clients search the vault index, read documents and drive
// the sync coordinator over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aman-CERP/qmdsync/internal/autosync"
	qerrors "github.com/Aman-CERP/qmdsync/internal/errors"
	"github.com/Aman-CERP/qmdsync/internal/lookup"
)

// Custom MCP error codes for qmdsync.
const (
	// ErrCodeToolUnavailable indicates the qmd executable could not be started.
	ErrCodeToolUnavailable = -32001

	// ErrCodeCommandFailed indicates qmd exited with a diagnostic.
	ErrCodeCommandFailed = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeDocumentNotFound indicates a requested document is not indexed.
	ErrCodeDocumentNotFound = -32004

	// ErrCodeSyncInProgress indicates a manual sync was refused.
	ErrCodeSyncInProgress = -32005

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
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
// Structured errors are mapped by kind; the rest by sentinel.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	if e, ok := qerrors.As(err); ok {
		return mapStructuredError(e)
	}

	switch {
	case errors.Is(err, autosync.ErrSyncInProgress):
		return &MCPError{
			Code:    ErrCodeSyncInProgress,
			Message: "A sync is already running. Check sync_status and try again later.",
		}
	case errors.Is(err, lookup.ErrRelatedDisabled):
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: "Related-document lookup is disabled in the configuration.",
		}
	case errors.Is(err, autosync.ErrStopped):
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "The sync coordinator has stopped.",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// mapStructuredError maps an index client failure onto an MCP error.
func mapStructuredError(e *qerrors.Error) *MCPError {
	message := e.Message
	if e.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", e.Message, e.Suggestion)
	}

	switch e.Kind {
	case qerrors.KindNotFound:
		return &MCPError{Code: ErrCodeToolUnavailable, Message: message}
	case qerrors.KindTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case qerrors.KindCommandError:
		return &MCPError{Code: ErrCodeCommandFailed, Message: message}
	}

	if e.Category == qerrors.CategoryValidation && e.Code != qerrors.ErrCodeParseFailed {
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	}
	return &MCPError{Code: ErrCodeInternalError, Message: message}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// NewDocumentNotFoundError creates an error for an unknown document.
func NewDocumentNotFoundError(ref string) *MCPError {
	return &MCPError{
		Code:    ErrCodeDocumentNotFound,
		Message: fmt.Sprintf("Document '%s' not found.", ref),
	}
}
