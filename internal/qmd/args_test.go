package qmd

import (
	"context"
	"fmt"
	"testing"

	"github.com/mattn/go-shellwords"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var awkwardStrings = []string{
	"plain",
	"two words",
	`say "hello"`,
	"it's",
	"$HOME and ${PATH}",
	"`whoami`",
	`back\slash`,
	`trailing\`,
	"semi; rm -rf /tmp/x",
	"pipe | and & amp",
	"$(echo injected)",
	"unicode ü 日本",
}

func TestQuoteArg_RoundTripsThroughShellwords(t *testing.T) {
	for _, s := range awkwardStrings {
		t.Run(s, func(t *testing.T) {
			// When: quoting and then splitting with shell rules
			words, err := shellwords.Parse(QuoteArg(s))

			// Then: a single word equal to the input comes back
			require.NoError(t, err)
			require.Len(t, words, 1)
			assert.Equal(t, s, words[0])
		})
	}
}

func TestQuoteArg_RoundTripsThroughSh(t *testing.T) {
	r := &ShellRunner{}
	for _, s := range awkwardStrings {
		t.Run(s, func(t *testing.T) {
			// Given: a printf invocation with the quoted argument
			line := fmt.Sprintf("printf '%%s' %s", QuoteArg(s))

			// When: sh evaluates it
			out, err := r.Run(context.Background(), line)

			// Then: the argument arrives literally
			require.NoError(t, err)
			assert.Equal(t, s, string(out.Stdout))
		})
	}
}

func TestQuoteArg_KeepsInvalidUTF8Bytes(t *testing.T) {
	// Given: text that is not valid UTF-8
	s := "caf\xe9 \xff$x"

	// When: quoting it
	got := QuoteArg(s)

	// Then: the raw bytes survive and only ASCII specials are escaped
	assert.Equal(t, "\"caf\xe9 \xff\\$x\"", got)

	// And: sh hands the same bytes to the callee
	out, err := (&ShellRunner{}).Run(context.Background(), "printf '%s' "+got)
	require.NoError(t, err)
	assert.Equal(t, []byte(s), out.Stdout)
}

func TestBuildSearchArgs(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		opts SearchOptions
		want []string
	}{
		{
			name: "no options adds no flags",
			mode: ModeSearch,
			want: []string{"search", `"q"`, "--json"},
		},
		{
			name: "all options",
			mode: ModeVSearch,
			opts: SearchOptions{Collection: "notes", Limit: 5, MinScore: 0.3, Full: true},
			want: []string{"vsearch", `"q"`, "--json", "-c", `"notes"`, "-n", "5", "--min-score", "0.3", "--full"},
		},
		{
			name: "limit only",
			mode: ModeQuery,
			opts: SearchOptions{Limit: 10},
			want: []string{"query", `"q"`, "--json", "-n", "10"},
		},
		{
			name: "zero min score omitted",
			mode: ModeSearch,
			opts: SearchOptions{Collection: "work", MinScore: 0},
			want: []string{"search", `"q"`, "--json", "-c", `"work"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildSearchArgs(tt.mode, "q", tt.opts))
		})
	}
}

func TestSplitToolPath(t *testing.T) {
	t.Run("wrapper command is split into words", func(t *testing.T) {
		assert.Equal(t, []string{"bunx", "qmd"}, SplitToolPath("bunx qmd"))
	})

	t.Run("quoted path with spaces stays one word", func(t *testing.T) {
		assert.Equal(t, []string{"/opt/my tools/qmd"}, SplitToolPath(`"/opt/my tools/qmd"`))
	})

	t.Run("existing file with spaces is not split", func(t *testing.T) {
		path := writeScript(t, "my qmd", "exit 0")
		assert.Equal(t, []string{path}, SplitToolPath(path))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, SplitToolPath("  "))
	})
}

func TestCommandLine(t *testing.T) {
	line := CommandLine("/usr/local/bin/qmd", BuildSearchArgs(ModeSearch, "hello world", SearchOptions{Limit: 3})...)
	assert.Equal(t, `"/usr/local/bin/qmd" search "hello world" --json -n 3`, line)
}
