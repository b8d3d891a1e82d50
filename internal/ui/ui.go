// Package ui renders command output for terminals and pipes.
//
// Renderers style output with lipgloss when writing to a color-capable
// terminal and fall back to plain text otherwise. Every renderer also has
// a JSON form for scripting.
package ui

import (
	"encoding/json"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Options controls how a renderer writes.
type Options struct {
	NoColor bool
	JSON    bool
}

// DetectOptions derives Options for out: color only on a terminal
// outside CI with NO_COLOR unset.
func DetectOptions(out io.Writer, jsonOutput bool) Options {
	return Options{
		NoColor: jsonOutput || !IsTTY(out) || DetectNoColor() || DetectCI(),
		JSON:    jsonOutput,
	}
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

// WriteJSON writes v as indented JSON.
func WriteJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
