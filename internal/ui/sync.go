package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	qerrors "github.com/Aman-CERP/qmdsync/internal/errors"
)

// SyncReporter prints the start and outcome of a manual sync.
type SyncReporter struct {
	out    io.Writer
	opts   Options
	styles Styles
}

// SyncOutcome is the JSON form of a finished sync.
type SyncOutcome struct {
	OK         bool   `json:"ok"`
	ElapsedMs  int64  `json:"elapsed_ms"`
	Via        string `json:"via"`
	Error      string `json:"error,omitempty"`
	Code       string `json:"code,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// NewSyncReporter creates a sync reporter.
func NewSyncReporter(out io.Writer, opts Options) *SyncReporter {
	return &SyncReporter{out: out, opts: opts, styles: GetStyles(opts.NoColor)}
}

// Started announces a sync of vault. via names where it runs
// ("daemon" or "local").
func (r *SyncReporter) Started(vault, via string) {
	if r.opts.JSON {
		return
	}
	_, _ = fmt.Fprintf(r.out, "%s %s %s\n",
		r.styles.Header.Render("Syncing"), vault, r.styles.Dim.Render("("+via+")"))
}

// Finished reports the outcome. It returns err unchanged so callers can
// propagate the exit status.
func (r *SyncReporter) Finished(elapsed time.Duration, via string, err error) error {
	if r.opts.JSON {
		out := SyncOutcome{OK: err == nil, ElapsedMs: elapsed.Milliseconds(), Via: via}
		if err != nil {
			out.Error = err.Error()
			if e, ok := qerrors.As(err); ok {
				out.Error = e.Message
				out.Code = e.Code
				out.Suggestion = e.Suggestion
			}
		}
		if werr := WriteJSON(r.out, out); werr != nil {
			return werr
		}
		return err
	}

	if err != nil {
		_, _ = fmt.Fprint(r.out, r.styles.Error.Render(strings.TrimRight(qerrors.FormatForCLI(err), "\n")), "\n")
		return err
	}
	_, _ = fmt.Fprintf(r.out, "%s %s\n",
		r.styles.Success.Render("Sync complete"), r.styles.Dim.Render(elapsed.Round(100*time.Millisecond).String()))
	return nil
}
