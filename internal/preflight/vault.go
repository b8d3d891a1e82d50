package preflight

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CheckVault checks that path is a directory with markdown files in it.
// Hidden directories are skipped, as the watcher does.
func (c *Checker) CheckVault(path string) CheckResult {
	result := CheckResult{
		Name:     "vault",
		Required: true,
	}

	info, err := os.Stat(path)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot open %s: %v", path, err)
		return result
	}
	if !info.IsDir() {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not a directory", path)
		return result
	}

	count := 0
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			count++
		}
		return nil
	})

	if count == 0 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("no markdown files in %s", path)
		result.Details = "Run qmdsync from your notes directory or pass --vault"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d markdown files", count)
	return result
}

// CheckIndex runs qmd status and reports whether qmd works and whether
// documents still lack embeddings.
func (c *Checker) CheckIndex(ctx context.Context) []CheckResult {
	tool := CheckResult{
		Name:     "qmd",
		Required: true,
	}

	conn := c.index.TestConnection(ctx)
	if !conn.OK {
		tool.Status = StatusFail
		tool.Message = firstLine(strings.TrimPrefix(conn.Message, "Error: "))
		tool.Details = "Install qmd or set tool.path in .qmdsync.yaml"
		return []CheckResult{tool}
	}
	tool.Status = StatusPass
	tool.Message = conn.Message

	embeddings := CheckResult{
		Name:     "embeddings",
		Required: false,
		Status:   StatusPass,
		Message:  "up to date",
	}
	if st := conn.Status; st != nil && st.NeedsEmbedding {
		embeddings.Status = StatusWarn
		embeddings.Message = fmt.Sprintf("%d of %d documents embedded", st.TotalEmbeddings, st.TotalDocuments)
		embeddings.Details = "vsearch and query need vectors; run 'qmdsync sync' to start embedding"
	}
	return []CheckResult{tool, embeddings}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
