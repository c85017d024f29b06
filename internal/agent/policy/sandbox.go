package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathMode identifies how a handler intends to touch a path, used for
// future policy extension (e.g., distinct read/write allowlists); currently
// both modes share the same sandbox check.
type PathMode string

const (
	PathRead  PathMode = "read"
	PathWrite PathMode = "write"
)

// Sandbox enforces that every path a tool handler touches resolves inside a
// fixed workspace root, rejecting traversal and symlink escapes.
type Sandbox struct {
	root string
}

// NewSandbox constructs a Sandbox rooted at workspaceRoot. workspaceRoot is
// resolved to an absolute, symlink-evaluated path at construction time so
// every subsequent check compares against a canonical root.
func NewSandbox(workspaceRoot string) (*Sandbox, error) {
	abs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("policy: resolve workspace root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// The root itself may not exist yet in tests; fall back to the
		// absolute form rather than failing sandbox construction.
		resolved = abs
	}
	return &Sandbox{root: resolved}, nil
}

// Root returns the canonical workspace root.
func (s *Sandbox) Root() string { return s.root }

// CheckPath resolves path to an absolute form and rejects it unless it is a
// descendant of the workspace root, rejecting "../" escapes and symlink
// escapes discovered post-resolution.
func (s *Sandbox) CheckPath(path string, _ PathMode) (string, error) {
	if path == "" {
		return "", fmt.Errorf("policy: empty path")
	}
	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(s.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	if !s.isDescendant(candidate) {
		return "", fmt.Errorf("policy: path %q escapes workspace root", path)
	}

	// Resolve symlinks on whichever prefix of the path exists; the final
	// path component may not exist yet (e.g., a file about to be written).
	resolved, err := resolveExistingPrefix(candidate)
	if err != nil {
		return "", fmt.Errorf("policy: resolve path %q: %w", path, err)
	}
	if !s.isDescendant(resolved) {
		return "", fmt.Errorf("policy: path %q escapes workspace root via symlink", path)
	}
	return candidate, nil
}

func (s *Sandbox) isDescendant(candidate string) bool {
	rel, err := filepath.Rel(s.root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}

// resolveExistingPrefix walks up from path until it finds an existing
// ancestor, evaluates symlinks on that ancestor, then re-appends the
// remaining (not-yet-existing) suffix unresolved.
func resolveExistingPrefix(path string) (string, error) {
	cur := path
	var suffix []string
	for {
		if _, err := os.Lstat(cur); err == nil {
			resolved, err := filepath.EvalSymlinks(cur)
			if err != nil {
				return "", err
			}
			for i := len(suffix) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, suffix[i])
			}
			return resolved, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return path, nil
		}
		suffix = append(suffix, filepath.Base(cur))
		cur = parent
	}
}
