package errors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForUser_BasicError(t *testing.T) {
	// Given: a structured error
	err := New(ErrCodeCommandFailed, "Collection 'notes' not found", nil)

	// When: formatting for user (no debug)
	result := FormatForUser(err, false)

	// Then: contains message and code
	assert.Contains(t, result, "Collection 'notes' not found")
	assert.Contains(t, result, "[ERR_202_COMMAND_FAILED]")
}

func TestFormatForUser_WithSuggestionAndCause(t *testing.T) {
	err := ToolNotFound("/usr/local/bin/qmd", errors.New("exec: no such file"))

	result := FormatForUser(err, true)

	assert.Contains(t, result, "Suggestion:")
	assert.Contains(t, result, "Cause: exec: no such file")
}

func TestFormatForUser_PlainError(t *testing.T) {
	assert.Equal(t, "plain", FormatForUser(errors.New("plain"), false))
	assert.Equal(t, "", FormatForUser(nil, false))
}

func TestFormatForCLI(t *testing.T) {
	result := FormatForCLI(Timeout("embed", nil))
	assert.Contains(t, result, "Error: embed timed out")
	assert.Contains(t, result, "Code: ERR_301_TOOL_TIMEOUT")

	plain := FormatForCLI(errors.New("boom"))
	assert.Contains(t, plain, "Code: ERR_501_INTERNAL")
}

func TestFormatJSON(t *testing.T) {
	data, err := FormatJSON(ParseError("unexpected end of JSON input", errors.New("eof")))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ErrCodeParseFailed, decoded["code"])
	assert.Equal(t, string(KindParseError), decoded["kind"])
	assert.Equal(t, "eof", decoded["cause"])
}

func TestFormatForLog(t *testing.T) {
	fields := FormatForLog(ToolNotFound("/bin/qmd", nil))
	assert.Equal(t, ErrCodeToolNotFound, fields["error_code"])
	assert.Equal(t, "/bin/qmd", fields["detail_tool_path"])

	assert.Equal(t, map[string]any{"error": "x"}, FormatForLog(errors.New("x")))
	assert.Nil(t, FormatForLog(nil))
}
