package builtin

import (
	"context"

	"github.com/quillagent/quill/pkg/browser"
	"github.com/quillagent/quill/pkg/tool"
)

// Browser tools assume the dispatcher has already applied the
// runtime-disabled check and the policy engine; they only talk to the daemon.
// The nil-daemon guard covers direct callers and the window where a config
// reload flips browser.enabled on without a runtime having been started.

func requireDaemon(d *browser.Daemon) error {
	if d == nil {
		return &browser.Error{
			Code:    browser.CodeRuntimeDisabled,
			Message: "browser support is disabled by config; set browser.enabled to true and restart",
		}
	}
	return nil
}

// BrowserOpenTool opens a browser session.
type BrowserOpenTool struct {
	Daemon *browser.Daemon
}

func (t *BrowserOpenTool) Name() string { return "browser_open" }

func (t *BrowserOpenTool) Description() string {
	return "Open a browser session. Arguments: mode (isolated|attach), ws_endpoint (attach only), headless (optional)."
}

func (t *BrowserOpenTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	if err := requireDaemon(t.Daemon); err != nil {
		return nil, err
	}
	mode, err := parseString(args, "mode", false)
	if err != nil {
		return nil, err
	}
	endpoint, err := parseString(args, "ws_endpoint", false)
	if err != nil {
		return nil, err
	}
	headless, err := parseBool(args, "headless", true)
	if err != nil {
		return nil, err
	}

	data, err := t.Daemon.OpenSession(ctx, browser.OpenOptions{
		Mode:       browser.SessionMode(mode),
		WSEndpoint: endpoint,
		Headless:   headless,
	})
	if err != nil {
		return nil, err
	}
	return tool.Success(map[string]any{
		"session_id": data.ID,
		"mode":       string(data.Mode),
		"status":     string(data.Status),
	}), nil
}

// BrowserNavigateTool drives a session to a URL.
type BrowserNavigateTool struct {
	Daemon *browser.Daemon
}

func (t *BrowserNavigateTool) Name() string { return "browser_navigate" }

func (t *BrowserNavigateTool) Description() string {
	return "Navigate a browser session. Arguments: session_id, url."
}

func (t *BrowserNavigateTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	if err := requireDaemon(t.Daemon); err != nil {
		return nil, err
	}
	id, err := parseString(args, "session_id", true)
	if err != nil {
		return nil, err
	}
	url, err := parseString(args, "url", true)
	if err != nil {
		return nil, err
	}
	info, err := t.Daemon.Navigate(ctx, id, url)
	if err != nil {
		return nil, err
	}
	return tool.Success(map[string]any{"url": info.URL, "title": info.Title}), nil
}

// BrowserClickTool clicks an element.
type BrowserClickTool struct {
	Daemon *browser.Daemon
}

func (t *BrowserClickTool) Name() string { return "browser_click" }

func (t *BrowserClickTool) Description() string {
	return "Click the element matching a selector. Arguments: session_id, selector."
}

func (t *BrowserClickTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	if err := requireDaemon(t.Daemon); err != nil {
		return nil, err
	}
	id, err := parseString(args, "session_id", true)
	if err != nil {
		return nil, err
	}
	selector, err := parseString(args, "selector", true)
	if err != nil {
		return nil, err
	}
	if err := t.Daemon.Click(ctx, id, selector); err != nil {
		return nil, err
	}
	return tool.Success(map[string]any{"clicked": selector}), nil
}

// BrowserTypeTool fills an element with text.
type BrowserTypeTool struct {
	Daemon *browser.Daemon
}

func (t *BrowserTypeTool) Name() string { return "browser_type" }

func (t *BrowserTypeTool) Description() string {
	return "Type text into the element matching a selector. Arguments: session_id, selector, text."
}

func (t *BrowserTypeTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	if err := requireDaemon(t.Daemon); err != nil {
		return nil, err
	}
	id, err := parseString(args, "session_id", true)
	if err != nil {
		return nil, err
	}
	selector, err := parseString(args, "selector", true)
	if err != nil {
		return nil, err
	}
	text, err := parseString(args, "text", false)
	if err != nil {
		return nil, err
	}
	if err := t.Daemon.Type(ctx, id, selector, text); err != nil {
		return nil, err
	}
	return tool.Success(map[string]any{"typed_into": selector}), nil
}

// BrowserSnapshotTool captures the DOM to an artifact file.
type BrowserSnapshotTool struct {
	Daemon *browser.Daemon
}

func (t *BrowserSnapshotTool) Name() string { return "browser_snapshot" }

func (t *BrowserSnapshotTool) Description() string {
	return "Save the session's DOM as an HTML artifact and return its location. Arguments: session_id."
}

func (t *BrowserSnapshotTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	if err := requireDaemon(t.Daemon); err != nil {
		return nil, err
	}
	id, err := parseString(args, "session_id", true)
	if err != nil {
		return nil, err
	}
	artifact, err := t.Daemon.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return artifactResult(artifact), nil
}

// BrowserScreenshotTool captures the viewport to an artifact file.
type BrowserScreenshotTool struct {
	Daemon *browser.Daemon
}

func (t *BrowserScreenshotTool) Name() string { return "browser_screenshot" }

func (t *BrowserScreenshotTool) Description() string {
	return "Save a PNG screenshot of the session and return its location. Arguments: session_id."
}

func (t *BrowserScreenshotTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	if err := requireDaemon(t.Daemon); err != nil {
		return nil, err
	}
	id, err := parseString(args, "session_id", true)
	if err != nil {
		return nil, err
	}
	artifact, err := t.Daemon.Screenshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return artifactResult(artifact), nil
}

func artifactResult(a browser.Artifact) *tool.Result {
	return tool.Success(map[string]any{
		"path":      a.Path,
		"bytes":     a.Bytes,
		"mime_type": a.MimeType,
	})
}

// BrowserCloseTool closes a session.
type BrowserCloseTool struct {
	Daemon *browser.Daemon
}

func (t *BrowserCloseTool) Name() string { return "browser_close" }

func (t *BrowserCloseTool) Description() string {
	return "Close a browser session. Arguments: session_id."
}

func (t *BrowserCloseTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	if err := requireDaemon(t.Daemon); err != nil {
		return nil, err
	}
	id, err := parseString(args, "session_id", true)
	if err != nil {
		return nil, err
	}
	if err := t.Daemon.CloseSession(id); err != nil {
		return nil, err
	}
	return tool.Success(map[string]any{"session_id": id, "closed": true}), nil
}

// BrowserStatusTool reports daemon health without touching any session.
type BrowserStatusTool struct {
	Daemon *browser.Daemon
}

func (t *BrowserStatusTool) Name() string { return "browser_status" }

func (t *BrowserStatusTool) Description() string {
	return "Report browser daemon health: sessions, capacity, last retention sweeps."
}

func (t *BrowserStatusTool) Execute(_ context.Context, _ map[string]any) (*tool.Result, error) {
	if err := requireDaemon(t.Daemon); err != nil {
		return nil, err
	}
	h := t.Daemon.Health()
	data := map[string]any{
		"enabled":         h.Enabled,
		"active_sessions": h.ActiveSessions,
		"max_sessions":    h.MaxSessions,
		"session_ids":     h.SessionIDs,
	}
	if h.LastProfilePrune != nil {
		data["last_profile_prune"] = h.LastProfilePrune
	}
	if h.LastArtifactPrune != nil {
		data["last_artifact_prune"] = h.LastArtifactPrune
	}
	return tool.Success(data), nil
}
