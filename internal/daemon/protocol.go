package daemon

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Aman-CERP/qmdsync/internal/autosync"
	qerrors "github.com/Aman-CERP/qmdsync/internal/errors"
	"github.com/Aman-CERP/qmdsync/internal/qmd"
)

// JSON-RPC 2.0 method names.
const (
	MethodPing    = "ping"
	MethodStatus  = "status"
	MethodSync    = "sync"
	MethodSearch  = "search"
	MethodRelated = "related"
)

// Standard JSON-RPC 2.0 error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Custom error codes for daemon-specific errors.
const (
	ErrCodeSyncFailed     = -32001
	ErrCodeSearchFailed   = -32002
	ErrCodeSyncInProgress = -32003
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      string `json:"id"`
}

// Error represents a JSON-RPC 2.0 error.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData carries the structured error across the socket so the
// client can rebuild it with its kind intact.
type ErrorData struct {
	ErrorCode string `json:"error_code,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

// NewSuccessResponse creates a successful response.
func NewSuccessResponse(id string, result any) Response {
	return Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id string, code int, message string) Response {
	return Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
		},
		ID: id,
	}
}

// newHandlerErrorResponse wraps a handler failure, keeping its code and kind.
func newHandlerErrorResponse(id string, code int, err error) Response {
	if errors.Is(err, autosync.ErrSyncInProgress) {
		return NewErrorResponse(id, ErrCodeSyncInProgress, err.Error())
	}
	resp := NewErrorResponse(id, code, err.Error())
	if e, ok := qerrors.As(err); ok {
		resp.Error.Message = e.Message
		resp.Error.Data = &ErrorData{ErrorCode: e.Code, Kind: string(e.Kind)}
	}
	return resp
}

// asError converts a response error back into a Go error.
func (e *Error) asError(method string) error {
	if e.Code == ErrCodeSyncInProgress {
		return autosync.ErrSyncInProgress
	}
	if e.Data != nil && e.Data.ErrorCode != "" {
		return qerrors.New(e.Data.ErrorCode, e.Message, nil)
	}
	return fmt.Errorf("%s failed: %s (code: %d)", method, e.Message, e.Code)
}

// SearchParams are the parameters for the search method.
type SearchParams struct {
	// Mode is one of search, vsearch, query (default: search).
	Mode string `json:"mode,omitempty"`

	// Query is the search text (required).
	Query string `json:"query"`

	Collection string  `json:"collection,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	MinScore   float64 `json:"min_score,omitempty"`
	Full       bool    `json:"full,omitempty"`
}

// Validate checks required fields and normalizes the mode.
func (p *SearchParams) Validate() error {
	if strings.TrimSpace(p.Query) == "" {
		return fmt.Errorf("query is required")
	}
	if p.Mode == "" {
		p.Mode = string(qmd.ModeSearch)
	}
	if _, ok := qmd.ParseMode(p.Mode); !ok {
		return fmt.Errorf("unknown search mode %q", p.Mode)
	}
	if p.Limit < 0 {
		p.Limit = 0
	}
	return nil
}

// Options converts the params into index client options.
func (p SearchParams) Options() qmd.SearchOptions {
	return qmd.SearchOptions{
		Collection: p.Collection,
		Limit:      p.Limit,
		MinScore:   p.MinScore,
		Full:       p.Full,
	}
}

// RelatedParams are the parameters for the related method.
type RelatedParams struct {
	// Path identifies the source document and keys the related cache.
	Path string `json:"path"`

	// Content is the current text of the document.
	Content string `json:"content"`
}

// Validate checks that required fields are present.
func (p *RelatedParams) Validate() error {
	if p.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// StatusResult contains daemon status information.
type StatusResult struct {
	Running   bool   `json:"running"`
	PID       int    `json:"pid"`
	Uptime    string `json:"uptime"`
	VaultPath string `json:"vault_path"`
	ToolPath  string `json:"tool_path"`

	Sync  autosync.Status  `json:"sync"`
	Index *qmd.IndexStatus `json:"index,omitempty"`

	// IndexError is set when the index snapshot could not be read.
	IndexError string `json:"index_error,omitempty"`
}

// SyncResult is the response to a sync request.
type SyncResult struct {
	Sync autosync.Status `json:"sync"`
}

// PingResult is the response to a ping request.
type PingResult struct {
	Pong bool `json:"pong"`
}
