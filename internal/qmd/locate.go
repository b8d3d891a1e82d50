package qmd

import (
	"os"
	"os/exec"
	"path/filepath"
)

// ToolName is the executable looked up on PATH.
const ToolName = "qmd"

// DefaultCandidates lists the usual install locations, in lookup order.
func DefaultCandidates() []string {
	candidates := []string{
		"/usr/local/bin/qmd",
		"/opt/homebrew/bin/qmd",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".bun", "bin", "qmd"),
			filepath.Join(home, ".local", "bin", "qmd"),
			filepath.Join(home, ".npm-global", "bin", "qmd"),
		)
	}
	return candidates
}

// Locate returns the first executable candidate, falling back to PATH.
// ok is false when nothing was found.
func Locate(candidates []string) (string, bool) {
	for _, c := range candidates {
		if isExecutable(c) {
			return c, true
		}
	}
	if p, err := exec.LookPath(ToolName); err == nil {
		return p, true
	}
	return "", false
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
