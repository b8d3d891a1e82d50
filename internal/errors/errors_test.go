package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("exit status 1")

	// When: wrapping with Error
	err := New(ErrCodeCommandFailed, "collection not found", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, err)
	assert.Equal(t, originalErr, errors.Unwrap(err))
	assert.True(t, errors.Is(err, originalErr))
}

func TestError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "tool error",
			code:     ErrCodeToolNotFound,
			message:  "qmd not found at: /bin/qmd",
			expected: "[ERR_201_TOOL_NOT_FOUND] qmd not found at: /bin/qmd",
		},
		{
			name:     "timeout",
			code:     ErrCodeToolTimeout,
			message:  "update timed out",
			expected: "[ERR_301_TOOL_TIMEOUT] update timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeToolTimeout, "search timed out", nil)
	err2 := New(ErrCodeToolTimeout, "update timed out", nil)

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, New(ErrCodeParseFailed, "bad json", nil)))
}

func TestError_WithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeToolNotFound, "qmd not found", nil).
		WithDetail("tool_path", "/opt/qmd").
		WithSuggestion("install qmd")

	assert.Equal(t, "/opt/qmd", err.Details["tool_path"])
	assert.Equal(t, "install qmd", err.Suggestion)
}

func TestError_DerivedFields(t *testing.T) {
	tests := []struct {
		code         string
		wantKind     Kind
		wantCategory Category
		wantRetry    bool
	}{
		{ErrCodeConfigInvalid, KindUnknown, CategoryConfig, false},
		{ErrCodeToolNotFound, KindNotFound, CategoryTool, false},
		{ErrCodeCommandFailed, KindCommandError, CategoryTool, false},
		{ErrCodeToolTimeout, KindTimeout, CategoryTimeout, true},
		{ErrCodeParseFailed, KindParseError, CategoryValidation, false},
		{ErrCodeUnknown, KindUnknown, CategoryInternal, false},
		{ErrCodeSyncFailed, KindUnknown, CategoryInternal, true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.wantKind, err.Kind)
			assert.Equal(t, tt.wantCategory, err.Category)
			assert.Equal(t, tt.wantRetry, err.Retryable)
		})
	}
}

func TestKindOf_LooksThroughWrapping(t *testing.T) {
	// Given: a tool error wrapped by fmt.Errorf
	inner := Timeout("search", nil)
	wrapped := fmt.Errorf("related lookup: %w", inner)

	// Then: the kind survives wrapping
	assert.Equal(t, KindTimeout, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindTimeout))
	assert.Equal(t, ErrCodeToolTimeout, GetCode(wrapped))
	assert.Equal(t, CategoryTimeout, GetCategory(wrapped))
}

func TestKindOf_PlainAndNilErrors(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindNone))
	assert.Equal(t, "", GetCode(errors.New("boom")))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, KindNotFound, ToolNotFound("/x/qmd", nil).Kind)
	assert.Equal(t, "/x/qmd", ToolNotFound("/x/qmd", nil).Details["tool_path"])
	assert.Equal(t, KindParseError, ParseError("unexpected token", nil).Kind)
	assert.Equal(t, "Collection missing", CommandError("Collection missing", nil).Message)
	assert.Equal(t, "unknown error occurred", Unknown("", nil).Message)
	assert.Equal(t, CategoryConfig, ConfigError("bad", nil).Category)
	assert.Equal(t, CategoryValidation, ValidationError("bad", nil).Category)
	assert.Equal(t, CategoryInternal, InternalError("bad", nil).Category)
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestMessage_PrefersStructuredMessage(t *testing.T) {
	wrapped := fmt.Errorf("sync: %w", Timeout("update", nil))

	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "plain failure", Message(errors.New("plain failure")))
	assert.Equal(t, "update timed out", Message(wrapped))
}
