package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/quillagent/quill/pkg/sandbox"
	"github.com/quillagent/quill/pkg/tool"
)

const maxReadBytes = 512 * 1024

// ReadFileTool reads a file inside the workspace.
type ReadFileTool struct {
	Guard *sandbox.Guard
}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read a file from the workspace. Arguments: path."
}

func (t *ReadFileTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	path, err := parseString(args, "path", true)
	if err != nil {
		return nil, err
	}
	full, err := t.Guard.Resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxReadBytes {
		return nil, fmt.Errorf("%s is %d bytes, larger than the %d byte read limit; read it in parts with run_shell",
			path, info.Size(), maxReadBytes)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	return tool.Text(string(data)), nil
}

// WriteFileTool creates or overwrites a file inside the workspace.
type WriteFileTool struct {
	Guard *sandbox.Guard
}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Write content to a workspace file, creating parent directories. Arguments: path, content."
}

func (t *WriteFileTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	path, err := parseString(args, "path", true)
	if err != nil {
		return nil, err
	}
	content, err := parseString(args, "content", false)
	if err != nil {
		return nil, err
	}
	full, err := t.Guard.Resolve(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return nil, err
	}
	return tool.Success(map[string]any{"path": path, "bytes": len(content)}), nil
}

// DeleteFileTool removes a file inside the workspace.
type DeleteFileTool struct {
	Guard *sandbox.Guard
}

func (t *DeleteFileTool) Name() string { return "delete_file" }

func (t *DeleteFileTool) Description() string {
	return "Delete a workspace file. Arguments: path."
}

func (t *DeleteFileTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	path, err := parseString(args, "path", true)
	if err != nil {
		return nil, err
	}
	full, err := t.Guard.Resolve(path)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(full); err != nil {
		return nil, err
	}
	return tool.Success(map[string]any{"path": path, "deleted": true}), nil
}

// ListDirTool lists a directory inside the workspace.
type ListDirTool struct {
	Guard *sandbox.Guard
}

func (t *ListDirTool) Name() string { return "list_dir" }

func (t *ListDirTool) Description() string {
	return "List entries of a workspace directory. Arguments: path (default \".\")."
}

func (t *ListDirTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	path, err := parseString(args, "path", false)
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = "."
	}
	full, err := t.Guard.Resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return tool.Success(map[string]any{"path": path, "entries": names}), nil
}
