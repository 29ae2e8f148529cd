package builtin

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/quillagent/quill/pkg/tool"
)

const (
	defaultShellTimeout = 60 * time.Second
	maxShellTimeout     = 10 * time.Minute
	maxShellOutput      = 128 * 1024
)

// limitedBuffer keeps the first max bytes written and flags anything beyond.
type limitedBuffer struct {
	max       int
	buf       []byte
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if remaining := b.max - len(b.buf); remaining > 0 {
		if len(p) <= remaining {
			b.buf = append(b.buf, p...)
		} else {
			b.buf = append(b.buf, p[:remaining]...)
			b.truncated = true
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string { return string(b.buf) }

// RunShellTool executes a foreground shell command with a timeout. Long-lived
// commands belong in bg_start instead.
type RunShellTool struct {
	Workdir string
}

func (t *RunShellTool) Name() string { return "run_shell" }

func (t *RunShellTool) Description() string {
	return "Run a shell command in the workspace and wait for it. Arguments: command, timeout_seconds (optional)."
}

func (t *RunShellTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	command, err := parseString(args, "command", true)
	if err != nil {
		return nil, err
	}
	timeoutSecs, err := parseInt(args, "timeout_seconds", 0)
	if err != nil {
		return nil, err
	}
	timeout := defaultShellTimeout
	if timeoutSecs > 0 {
		timeout = time.Duration(timeoutSecs) * time.Second
		if timeout > maxShellTimeout {
			timeout = maxShellTimeout
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout := &limitedBuffer{max: maxShellOutput}
	stderr := &limitedBuffer{max: maxShellOutput}
	cmd := exec.CommandContext(runCtx, "bash", "-lc", command)
	cmd.Dir = t.Workdir
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("command timed out after %s; raise timeout_seconds or move it to bg_start: %w",
				timeout, context.DeadlineExceeded)
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("run %q: %w", command, runErr)
		}
	}

	return tool.Success(map[string]any{
		"exit_code":        exitCode,
		"stdout":           stdout.String(),
		"stderr":           stderr.String(),
		"stdout_truncated": stdout.truncated,
		"stderr_truncated": stderr.truncated,
	}), nil
}
