package qmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"

	qerrors "github.com/Aman-CERP/qmdsync/internal/errors"
)

// classify maps a failed invocation onto the error taxonomy.
// op names the operation for timeout messages.
func classify(ctx context.Context, op, toolPath string, out Output, err error) *qerrors.Error {
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return qerrors.Timeout(op, err)
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return qerrors.ToolNotFound(toolPath, err)
	}

	if out.ExitCode == exitCommandNotFound || out.ExitCode == exitCommandNotRunnable {
		return qerrors.ToolNotFound(toolPath, err)
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return qerrors.Unknown(fmt.Sprintf("%s cancelled", op), err)
	}

	msg := strings.TrimSpace(string(out.Stderr))
	if out.ExitCode != 0 && msg != "" {
		return qerrors.CommandError(msg, err).WithDetail("operation", op)
	}

	return qerrors.Unknown(err.Error(), err)
}
