package mof

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultExecutable is the engine's console binary name inside its
// install directory.
const DefaultExecutable = "UnWrapConsole3.exe"

// ToolNotFound reports a missing or unusable engine executable. It is
// a configuration problem, not a per-mesh one: a batch hitting it will
// hit it identically for every item.
type ToolNotFound struct {
	Path string
}

func (e *ToolNotFound) Error() string {
	return fmt.Sprintf("unwrap engine not found at %q", e.Path)
}

// ToolFailure reports an engine run that started but did not produce
// usable output: a non-zero exit, a timeout, or an empty output file.
type ToolFailure struct {
	ExitCode int
	Stderr   string
	Reason   string
}

func (e *ToolFailure) Error() string {
	msg := e.Reason
	if msg == "" {
		msg = fmt.Sprintf("engine exited with code %d", e.ExitCode)
	}
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	return msg
}

// Runner invokes the engine synchronously. The executable path is
// passed in explicitly so a caller (or a test) controls it; the
// runner never reads ambient configuration.
type Runner struct {
	// Exe is the full path to the engine executable.
	Exe string

	// Timeout bounds a single invocation. Zero means no limit. A
	// timeout is classified as a ToolFailure.
	Timeout time.Duration
}

// Run encodes nothing and decodes nothing: it hands the already
// encoded exchange file to the engine and verifies the engine left a
// non-empty output file behind. Success requires exit code 0 and
// usable output; anything else comes back as ToolNotFound or
// ToolFailure. No retries.
func (r *Runner) Run(ctx context.Context, inPath, outPath string, p Params) error {
	info, err := os.Stat(r.Exe)
	if err != nil || info.IsDir() {
		return &ToolNotFound{Path: r.Exe}
	}
	if err := p.Validate(); err != nil {
		return &ToolFailure{Reason: fmt.Sprintf("invalid parameters: %v", err)}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Exe, p.Args(inPath, outPath)...)
	cmd.Stderr = &stderr
	// Orphaned engine children must not pin the stderr pipe open
	// past cancellation.
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return &ToolFailure{
				Reason: fmt.Sprintf("engine timed out after %s", r.Timeout),
				Stderr: strings.TrimSpace(stderr.String()),
			}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ToolFailure{
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return &ToolFailure{Reason: err.Error()}
	}

	out, err := os.Stat(outPath)
	if err != nil || out.Size() == 0 {
		return &ToolFailure{
			Reason: "engine produced no output",
			Stderr: strings.TrimSpace(stderr.String()),
		}
	}
	return nil
}
