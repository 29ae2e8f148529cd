package builtin

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/quillagent/quill/pkg/sandbox"
	"github.com/quillagent/quill/pkg/tool"
)

const maxSearchMatches = 200

var skipDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
}

// SearchTextTool finds lines containing a substring across workspace files.
type SearchTextTool struct {
	Guard *sandbox.Guard
}

func (t *SearchTextTool) Name() string { return "search_text" }

func (t *SearchTextTool) Description() string {
	return "Search workspace files for a substring. Arguments: query, path (optional subtree)."
}

func (t *SearchTextTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	query, err := parseString(args, "query", true)
	if err != nil {
		return nil, err
	}
	sub, err := parseString(args, "path", false)
	if err != nil {
		return nil, err
	}
	if sub == "" {
		sub = "."
	}
	root, err := t.Guard.Resolve(sub)
	if err != nil {
		return nil, err
	}

	var matches []map[string]any
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
			return nil
		}
		if len(matches) >= maxSearchMatches {
			return filepath.SkipAll
		}
		rel, relErr := filepath.Rel(t.Guard.Root(), path)
		if relErr != nil {
			return nil
		}
		found, scanErr := scanFile(path, query, rel, &matches)
		if scanErr != nil || !found {
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tool.Success(map[string]any{
		"query":   query,
		"matches": matches,
		"count":   len(matches),
	}), nil
}

func scanFile(path, query, rel string, matches *[]map[string]any) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	found := false
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 512*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.Contains(text, query) {
			found = true
			*matches = append(*matches, map[string]any{
				"file": rel,
				"line": line,
				"text": strings.TrimSpace(text),
			})
			if len(*matches) >= maxSearchMatches {
				break
			}
		}
	}
	return found, scanner.Err()
}

// FindFilesTool matches workspace paths against a glob pattern.
type FindFilesTool struct {
	Guard *sandbox.Guard
}

func (t *FindFilesTool) Name() string { return "find_files" }

func (t *FindFilesTool) Description() string {
	return "Find workspace files whose relative path matches a glob, e.g. \"**/*.go\". Arguments: pattern."
}

func (t *FindFilesTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	pattern, err := parseString(args, "pattern", true)
	if err != nil {
		return nil, err
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}

	var files []string
	err = filepath.WalkDir(t.Guard.Root(), func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(t.Guard.Root(), path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if g.Match(rel) {
			files = append(files, rel)
			if len(files) >= maxSearchMatches {
				return filepath.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tool.Success(map[string]any{
		"pattern": pattern,
		"files":   files,
		"count":   len(files),
	}), nil
}
