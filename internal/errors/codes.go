// Package errors provides structured error handling for qmdsync.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: External tool errors (missing executable, failed command)
//   - 3XX: Timeouts
//   - 4XX: Parse and validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryTool indicates the external indexing tool failed or is missing.
	CategoryTool Category = "TOOL"
	// CategoryTimeout indicates an operation exceeded its time bound.
	CategoryTimeout Category = "TIMEOUT"
	// CategoryValidation indicates malformed input or output.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
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
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Kind is the failure taxonomy of the index client.
type Kind string

const (
	// KindNone is reported for a nil error.
	KindNone Kind = ""
	// KindNotFound means the tool path is invalid.
	KindNotFound Kind = "not_found"
	// KindTimeout means the process was killed after its time bound.
	KindTimeout Kind = "timeout"
	// KindParseError means machine-readable output did not parse.
	KindParseError Kind = "parse_error"
	// KindCommandError means the tool exited non-zero with diagnostic text.
	KindCommandError Kind = "command_error"
	// KindUnknown covers everything else.
	KindUnknown Kind = "unknown"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Tool errors (200-299)
	ErrCodeToolNotFound  = "ERR_201_TOOL_NOT_FOUND"
	ErrCodeCommandFailed = "ERR_202_COMMAND_FAILED"

	// Timeouts (300-399)
	ErrCodeToolTimeout = "ERR_301_TOOL_TIMEOUT"

	// Parse and validation errors (400-499)
	ErrCodeParseFailed  = "ERR_401_PARSE_FAILED"
	ErrCodeInvalidInput = "ERR_402_INVALID_INPUT"
	ErrCodeQueryEmpty   = "ERR_403_QUERY_EMPTY"

	// Internal errors (500-599)
	ErrCodeInternal   = "ERR_501_INTERNAL"
	ErrCodeUnknown    = "ERR_502_UNKNOWN"
	ErrCodeSyncFailed = "ERR_503_SYNC_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryTool
	case '3':
		return CategoryTimeout
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// kindFromCode maps a code onto the index client taxonomy.
func kindFromCode(code string) Kind {
	switch code {
	case ErrCodeToolNotFound:
		return KindNotFound
	case ErrCodeToolTimeout:
		return KindTimeout
	case ErrCodeParseFailed:
		return KindParseError
	case ErrCodeCommandFailed:
		return KindCommandError
	default:
		return KindUnknown
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeToolNotFound, ErrCodeConfigInvalid:
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
	case ErrCodeToolTimeout, ErrCodeSyncFailed:
		return true
	default:
		return false
	}
}
