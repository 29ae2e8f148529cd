package builtin

import (
	"context"
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/quillagent/quill/pkg/background"
	"github.com/quillagent/quill/pkg/tool"
)

// BgStartTool launches a tracked background process.
type BgStartTool struct {
	Manager *background.Manager
}

func (t *BgStartTool) Name() string { return "bg_start" }

func (t *BgStartTool) Description() string {
	return "Start a shell command in the background. Arguments: command, label (optional), timeout_seconds (optional)."
}

func (t *BgStartTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	command, err := parseString(args, "command", true)
	if err != nil {
		return nil, err
	}
	label, err := parseString(args, "label", false)
	if err != nil {
		return nil, err
	}
	timeoutSecs, err := parseInt(args, "timeout_seconds", 0)
	if err != nil {
		return nil, err
	}

	st, err := t.Manager.Start(ctx, background.StartOptions{
		Command: command,
		Label:   label,
		Timeout: time.Duration(timeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return tool.Success(map[string]any{
		"id":    st.ID,
		"pid":   st.PID,
		"state": string(st.State),
	}), nil
}

// BgStatusTool reports one process or, without an id, all of them.
type BgStatusTool struct {
	Manager *background.Manager
}

func (t *BgStatusTool) Name() string { return "bg_status" }

func (t *BgStatusTool) Description() string {
	return "Show background process status. Arguments: id (optional; omit to list all)."
}

func (t *BgStatusTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	id, err := parseString(args, "id", false)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return tool.Success(map[string]any{"processes": t.Manager.List()}), nil
	}
	st, err := t.Manager.Status(id)
	if err != nil {
		return nil, err
	}
	return tool.Success(map[string]any{"process": st}), nil
}

// BgOutputTool reads captured output from a background process.
type BgOutputTool struct {
	Manager *background.Manager
}

func (t *BgOutputTool) Name() string { return "bg_output" }

func (t *BgOutputTool) Description() string {
	return "Read output of a background process. Arguments: id, since_last_read (default true; incremental), lines (tail limit when since_last_read is false), stream (stdout|stderr)."
}

func (t *BgOutputTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	id, err := parseString(args, "id", true)
	if err != nil {
		return nil, err
	}
	lines, err := parseInt(args, "lines", 0)
	if err != nil {
		return nil, err
	}
	stream, err := parseString(args, "stream", false)
	if err != nil {
		return nil, err
	}
	// Incremental reads are the default so repeated polling never re-delivers
	// bytes a previous call already returned.
	sinceLastRead, err := parseBool(args, "since_last_read", true)
	if err != nil {
		return nil, err
	}

	out, err := t.Manager.Output(id, background.OutputOptions{
		Lines:         lines,
		Stream:        stream,
		SinceLastRead: sinceLastRead,
	})
	if err != nil {
		return nil, err
	}
	return tool.Success(map[string]any{
		"state":            string(out.State),
		"stdout":           out.Stdout,
		"stderr":           out.Stderr,
		"stdout_truncated": out.StdoutTruncated,
		"stderr_truncated": out.StderrTruncated,
	}), nil
}

// BgKillTool requests termination of a background process.
type BgKillTool struct {
	Manager *background.Manager
}

func (t *BgKillTool) Name() string { return "bg_kill" }

func (t *BgKillTool) Description() string {
	return "Terminate a background process, escalating to SIGKILL after a grace period. Arguments: id, signal (default SIGTERM)."
}

var killSignals = map[string]syscall.Signal{
	"SIGTERM": syscall.SIGTERM,
	"SIGKILL": syscall.SIGKILL,
	"SIGINT":  syscall.SIGINT,
	"SIGHUP":  syscall.SIGHUP,
}

func (t *BgKillTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	id, err := parseString(args, "id", true)
	if err != nil {
		return nil, err
	}
	sigName, err := parseString(args, "signal", false)
	if err != nil {
		return nil, err
	}
	sig := syscall.SIGTERM
	if sigName != "" {
		s, ok := killSignals[strings.ToUpper(sigName)]
		if !ok {
			return nil, fmt.Errorf("unknown signal %q; use SIGTERM, SIGKILL, SIGINT, or SIGHUP", sigName)
		}
		sig = s
	}
	requested, err := t.Manager.Kill(id, sig)
	if err != nil {
		return nil, err
	}
	return tool.Success(map[string]any{
		"id":     id,
		"killed": requested,
	}), nil
}
