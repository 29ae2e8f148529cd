package sandbox

import (
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	root := t.TempDir()
	g, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"relative inside", "src/main.go", filepath.Join(root, "src/main.go"), false},
		{"dot", ".", root, false},
		{"absolute inside", filepath.Join(root, "a.txt"), filepath.Join(root, "a.txt"), false},
		{"dotdot escape", "../outside.txt", "", true},
		{"nested dotdot escape", "src/../../outside.txt", "", true},
		{"absolute outside", "/etc/passwd", "", true},
		{"empty", "", "", true},
		{"dotdot that stays inside", "src/../a.txt", filepath.Join(root, "a.txt"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Resolve(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Resolve(%q) = %q, want error", tt.path, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestPrefixSiblingDoesNotLeak(t *testing.T) {
	root := t.TempDir()
	g, err := New(filepath.Join(root, "work"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := g.Resolve(filepath.Join(root, "workspace-evil", "x")); err == nil {
		t.Error("sibling directory sharing the root prefix must be rejected")
	}
}
