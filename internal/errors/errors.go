package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is the structured error type for qmdsync.
// It carries a stable code, the failure kind reported by the index client,
// and enough context for logging and user presentation.
type Error struct {
	// Code is the unique error code (e.g., "ERR_201_TOOL_NOT_FOUND").
	Code string

	// Kind classifies failures of the external indexing tool.
	Kind Kind

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Tool, Timeout, etc.).
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
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with Error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a new Error with the given code and message.
// Kind, category, severity and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Kind:      kindFromCode(code),
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ToolNotFound reports that the external tool could not be started.
func ToolNotFound(path string, cause error) *Error {
	return New(ErrCodeToolNotFound, fmt.Sprintf("qmd not found at: %s", path), cause).
		WithDetail("tool_path", path).
		WithSuggestion("Set tool.path in .qmdsync.yaml or QMDSYNC_TOOL_PATH to the qmd executable")
}

// Timeout reports that the external tool was killed after exceeding its bound.
func Timeout(operation string, cause error) *Error {
	return New(ErrCodeToolTimeout, fmt.Sprintf("%s timed out", operation), cause).
		WithDetail("operation", operation)
}

// ParseError reports tool output that could not be decoded.
func ParseError(message string, cause error) *Error {
	return New(ErrCodeParseFailed, fmt.Sprintf("failed to parse qmd response: %s", message), cause)
}

// CommandError reports a non-zero exit; message is the tool's diagnostic text.
func CommandError(message string, cause error) *Error {
	return New(ErrCodeCommandFailed, message, cause)
}

// Unknown reports a failure that fits no other kind.
func Unknown(message string, cause error) *Error {
	if message == "" {
		message = "unknown error occurred"
	}
	return New(ErrCodeUnknown, message, cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// As finds the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the failure kind of err, looking through wrapped errors.
// Errors that carry no kind report KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err has the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := As(err); ok {
		return e.Retryable
	}
	return false
}

// GetCode extracts the error code from an Error.
// Returns empty string if not an Error.
func GetCode(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

// GetCategory extracts the category from an Error.
// Returns empty string if not an Error.
func GetCategory(err error) Category {
	if e, ok := As(err); ok {
		return e.Category
	}
	return ""
}

// Message returns the human message of err: the Message of a structured
// error, or err.Error() otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Message
	}
	return err.Error()
}
