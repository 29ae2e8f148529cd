package builtin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func seedTree(t *testing.T, g interface{ Root() string }) {
	t.Helper()
	files := map[string]string{
		"main.go":          "package main\n// needle here\n",
		"pkg/util/util.go": "package util\n",
		"docs/readme.md":   "a needle in the docs\n",
		".git/config":      "needle that must be skipped\n",
	}
	for path, content := range files {
		full := filepath.Join(g.Root(), path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSearchText(t *testing.T) {
	g := newGuard(t)
	seedTree(t, g)

	search := &SearchTextTool{Guard: g}
	res, err := search.Execute(context.Background(), map[string]any{"query": "needle"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Data["count"] != 2 {
		t.Errorf("count = %v, want 2 (.git must be skipped)", res.Data["count"])
	}
}

func TestSearchTextSubtree(t *testing.T) {
	g := newGuard(t)
	seedTree(t, g)

	search := &SearchTextTool{Guard: g}
	res, err := search.Execute(context.Background(), map[string]any{
		"query": "needle",
		"path":  "docs",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Data["count"] != 1 {
		t.Errorf("count = %v, want 1", res.Data["count"])
	}
}

func TestFindFiles(t *testing.T) {
	g := newGuard(t)
	seedTree(t, g)

	find := &FindFilesTool{Guard: g}
	res, err := find.Execute(context.Background(), map[string]any{"pattern": "**.go"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	files := res.Data["files"].([]string)
	if len(files) != 2 {
		t.Errorf("files = %v, want main.go and pkg/util/util.go", files)
	}
}

func TestFindFilesBadPattern(t *testing.T) {
	find := &FindFilesTool{Guard: newGuard(t)}
	_, err := find.Execute(context.Background(), map[string]any{"pattern": "[oops"})
	if err == nil {
		t.Error("invalid glob should fail")
	}
}
