// Package sandbox confines file tool access to the workspace root.
package sandbox

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Guard resolves user-supplied paths and rejects anything that escapes the
// workspace, including via .. segments and absolute paths elsewhere.
type Guard struct {
	root string
}

// New creates a guard rooted at root. The root is cleaned and absolutized.
func New(root string) (*Guard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	return &Guard{root: filepath.Clean(abs)}, nil
}

// Root returns the workspace root.
func (g *Guard) Root() string { return g.root }

// Resolve turns path into an absolute path inside the workspace. Relative
// paths are resolved against the root.
func (g *Guard) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(g.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	if candidate != g.root && !strings.HasPrefix(candidate, g.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the workspace %q; use a path under the workspace", path, g.root)
	}
	return candidate, nil
}
