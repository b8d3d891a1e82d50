package qmd

import (
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"
)

// QuoteArg wraps s in double quotes for sh. Characters that keep their
// special meaning inside double quotes are backslash-escaped, so the callee
// receives s literally, byte for byte.
func QuoteArg(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\', '$', '`':
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// BuildSearchArgs builds the argument list for search, vsearch or query.
// The query is quoted; flags appear only when the option is set.
func BuildSearchArgs(mode Mode, query string, opts SearchOptions) []string {
	args := []string{string(mode), QuoteArg(query), "--json"}

	if opts.Collection != "" {
		args = append(args, "-c", QuoteArg(opts.Collection))
	}
	if opts.Limit > 0 {
		args = append(args, "-n", strconv.Itoa(opts.Limit))
	}
	if opts.MinScore > 0 {
		args = append(args, "--min-score", strconv.FormatFloat(opts.MinScore, 'f', -1, 64))
	}
	if opts.Full {
		args = append(args, "--full")
	}

	return args
}

// SplitToolPath splits a configured tool path into words. An existing file
// is one word even if it contains spaces; otherwise the value is parsed with
// shell word rules so wrappers like "bunx qmd" work.
func SplitToolPath(toolPath string) []string {
	toolPath = strings.TrimSpace(toolPath)
	if toolPath == "" {
		return nil
	}
	if _, err := os.Stat(toolPath); err == nil {
		return []string{toolPath}
	}

	words, err := shellwords.Parse(toolPath)
	if err != nil || len(words) == 0 {
		return []string{toolPath}
	}
	return words
}

// CommandLine joins the quoted tool words and pre-built args into one sh command line.
func CommandLine(toolPath string, args ...string) string {
	words := SplitToolPath(toolPath)
	parts := make([]string, 0, len(words)+len(args))
	for _, w := range words {
		parts = append(parts, QuoteArg(w))
	}
	parts = append(parts, args...)
	return strings.Join(parts, " ")
}
