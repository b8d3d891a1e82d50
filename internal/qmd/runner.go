package qmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// exitCommandNotFound is what sh returns when the command word cannot be
// resolved; 126 means it was found but could not be executed.
const (
	exitCommandNotFound    = 127
	exitCommandNotRunnable = 126
)

// Output is what a finished subprocess left behind.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int

	// Truncated is set when stdout exceeded the capture limit.
	Truncated bool
}

// Runner executes one command line. Implementations must honour ctx
// cancellation by killing the process.
type Runner interface {
	Run(ctx context.Context, commandLine string) (Output, error)
}

// ShellRunner runs command lines through sh -c.
type ShellRunner struct {
	// Shell defaults to "sh".
	Shell string

	// MaxOutput caps captured stdout in bytes; zero means DefaultMaxOutput.
	MaxOutput int

	// Env is appended to the current environment when non-empty.
	Env []string
}

// DefaultMaxOutput bounds the captured stdout of a single invocation.
const DefaultMaxOutput = 10 * 1024 * 1024

// Run implements Runner.
func (r *ShellRunner) Run(ctx context.Context, commandLine string) (Output, error) {
	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}
	limit := r.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}

	cmd := exec.CommandContext(ctx, shell, "-c", commandLine)
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	// sh does not always exec its last command, so qmd can be a grandchild.
	// Cancellation kills the whole process group.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
	// Children that left the group may keep the pipes open after the kill.
	cmd.WaitDelay = 2 * time.Second

	stdout := &limitedBuffer{limit: limit}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: stdout.truncated,
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
	}
	return out, err
}

// limitedBuffer keeps the first limit bytes and discards the rest.
// Writes never fail so the child is not killed by a broken pipe.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
