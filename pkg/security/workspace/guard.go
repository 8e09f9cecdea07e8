// Package workspace confines project paths named by callers to the project
// directories this process serves.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideWorkspace is returned for paths outside every root.
var ErrOutsideWorkspace = errors.New("path is outside the served projects")

// Guard accepts paths under one or more root directories.
type Guard struct {
	roots []string // absolute, symlinks evaluated
}

// NewGuard creates a guard for root and any extra roots. Every root must exist.
func NewGuard(root string, extra ...string) (*Guard, error) {
	g := &Guard{}
	for _, dir := range append([]string{root}, extra...) {
		if dir == "" {
			return nil, fmt.Errorf("project directory cannot be empty")
		}
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve project directory: %w", err)
		}
		evalPath, err := filepath.EvalSymlinks(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate project directory %s: %w", dir, err)
		}
		g.roots = append(g.roots, evalPath)
	}
	return g, nil
}

// Resolve returns the absolute, symlink-free form of path. Relative paths are
// taken from the first root and ~ expands to the home directory.
func (g *Guard) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	expanded := path
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand ~: %w", err)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}

	absPath := filepath.Clean(expanded)
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(g.roots[0], absPath)
	}

	resolved := resolveSymlinks(absPath)
	if !g.Contains(resolved) {
		return "", fmt.Errorf("%w: %s", ErrOutsideWorkspace, path)
	}
	return resolved, nil
}

// Contains reports whether absPath is a root or lies under one.
func (g *Guard) Contains(absPath string) bool {
	evalPath := resolveSymlinks(absPath)
	for _, root := range g.roots {
		if evalPath == root || strings.HasPrefix(evalPath+string(filepath.Separator), root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Roots returns a copy of the guarded directories.
func (g *Guard) Roots() []string {
	return append([]string(nil), g.roots...)
}

// resolveSymlinks evaluates the longest existing prefix of path and re-joins
// the rest, so paths that do not exist yet still compare correctly.
func resolveSymlinks(path string) string {
	var rest []string
	current := path
	for {
		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			for i := len(rest) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, rest[i])
			}
			return resolved
		}
		dir := filepath.Dir(current)
		if dir == current {
			return filepath.Clean(path)
		}
		rest = append(rest, filepath.Base(current))
		current = dir
	}
}
