package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/Aman-CERP/qmdsync/internal/daemon"
)

// StatusRenderer displays host and index status.
type StatusRenderer struct {
	out    io.Writer
	opts   Options
	styles Styles
	now    func() time.Time
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, opts Options) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		opts:   opts,
		styles: GetStyles(opts.NoColor),
		now:    time.Now,
	}
}

// Render writes info as text or JSON depending on the options.
func (r *StatusRenderer) Render(info daemon.StatusResult) error {
	if r.opts.JSON {
		return WriteJSON(r.out, info)
	}

	p := func(format string, args ...any) { _, _ = fmt.Fprintf(r.out, format, args...) }
	label := r.styles.Label.Render

	p("%s\n\n", r.styles.Header.Render("qmdsync status"))
	p("  %s %s\n", label("Vault:      "), info.VaultPath)
	p("  %s %s\n", label("qmd:        "), orDash(info.ToolPath))
	if info.Running {
		p("  %s %s (pid %d, up %s)\n", label("Daemon:     "), r.styles.Success.Render("running"), info.PID, info.Uptime)
	} else {
		p("  %s %s\n", label("Daemon:     "), r.styles.Warning.Render("stopped"))
	}
	p("\n")

	st := info.Sync
	p("  %s\n", r.styles.Title.Render("Sync"))
	p("    %s %s\n", label("Mode:       "), st.Mode)
	switch {
	case st.IsRunning:
		p("    %s %s\n", label("State:      "), r.styles.Success.Render("syncing"))
	case st.LastError != "":
		p("    %s %s\n", label("State:      "), r.styles.Error.Render("error"))
	default:
		p("    %s %s\n", label("State:      "), "idle")
	}
	if st.HasSynced() {
		p("    %s %s\n", label("Last sync:  "), formatTime(st.LastSyncTime, r.now()))
	} else if info.Running {
		p("    %s %s\n", label("Last sync:  "), "never")
	}
	if st.PendingCount > 0 {
		p("    %s %d\n", label("Pending:    "), st.PendingCount)
	}
	if st.LastError != "" {
		p("    %s %s\n", label("Last error: "), r.styles.Error.Render(st.LastError))
	}
	p("\n")

	p("  %s\n", r.styles.Title.Render("Index"))
	if info.Index == nil {
		msg := "unavailable"
		if info.IndexError != "" {
			msg = info.IndexError
		}
		p("    %s\n", r.styles.Error.Render(msg))
		return nil
	}
	idx := info.Index
	if idx.IndexPath != "" {
		p("    %s %s\n", label("Path:       "), idx.IndexPath)
	}
	p("    %s %d\n", label("Documents:  "), idx.TotalDocuments)
	p("    %s %d\n", label("Embeddings: "), idx.TotalEmbeddings)
	if idx.NeedsEmbedding {
		p("    %s\n", r.styles.Warning.Render("Some documents still need embedding"))
	}
	for _, c := range idx.Collections {
		p("    %s %s", r.styles.Dim.Render("-"), c.Name)
		if c.Locator != "" {
			p(" %s", label("("+c.Locator+")"))
		}
		p(", %d files", c.FileCount)
		if c.LastUpdatedText != "" {
			p(", updated %s", c.LastUpdatedText)
		}
		p("\n")
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatTime formats t relative to now.
func formatTime(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day") + " ago"
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
