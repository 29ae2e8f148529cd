package builtin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/quillagent/quill/pkg/sandbox"
	"github.com/quillagent/quill/pkg/tool"
)

// EditFileTool replaces an exact string in a workspace file and reports a
// unified diff of the change.
type EditFileTool struct {
	Guard *sandbox.Guard
}

func (t *EditFileTool) Name() string { return "edit_file" }

func (t *EditFileTool) Description() string {
	return "Replace old_string with new_string in a workspace file. old_string must match exactly once unless replace_all is set."
}

func (t *EditFileTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	path, err := parseString(args, "path", true)
	if err != nil {
		return nil, err
	}
	oldString, err := parseString(args, "old_string", true)
	if err != nil {
		return nil, err
	}
	newString, err := parseString(args, "new_string", false)
	if err != nil {
		return nil, err
	}
	replaceAll, err := parseBool(args, "replace_all", false)
	if err != nil {
		return nil, err
	}
	if oldString == newString {
		return nil, fmt.Errorf("old_string and new_string are identical; nothing to change")
	}

	full, err := t.Guard.Resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	before := string(data)

	count := strings.Count(before, oldString)
	switch {
	case count == 0:
		return nil, fmt.Errorf("old_string not found in %s; re-read the file and match the content exactly", path)
	case count > 1 && !replaceAll:
		return nil, fmt.Errorf("old_string appears %d times in %s; add surrounding context or set replace_all", count, path)
	}

	var after string
	replaced := count
	if replaceAll {
		after = strings.ReplaceAll(before, oldString, newString)
	} else {
		after = strings.Replace(before, oldString, newString, 1)
		replaced = 1
	}

	if err := os.WriteFile(full, []byte(after), 0o644); err != nil {
		return nil, err
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	})
	if err != nil {
		diff = ""
	}
	return tool.Success(map[string]any{
		"path":     path,
		"replaced": replaced,
		"diff":     diff,
	}), nil
}
