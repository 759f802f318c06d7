// Package pathguard decides whether candidate file paths resolve inside the
// host's allowed directories, resistant to .. traversal and symlink escapes.
package pathguard

import (
	"path/filepath"
	"strings"
)

// Guard checks candidate paths for containment under a set of allowed root
// directories. Roots are recomputed on every check, so the guard tolerates
// directories appearing or disappearing between calls.
type Guard struct {
	// Roots supplies the allowed root directories for each check.
	Roots func() []string
}

// New returns a guard rooted at the host's well-known user directories.
func New() *Guard {
	return &Guard{Roots: WellKnownDirs}
}

// RootDirs returns the current allowed roots.
func (g *Guard) RootDirs() []string {
	if g.Roots == nil {
		return WellKnownDirs()
	}
	return g.Roots()
}

// IsAllowed reports whether path canonicalizes to a location inside one of
// the allowed roots. Both sides are canonicalized before comparison so
// neither ../ sequences nor symlinks can escape containment.
func (g *Guard) IsAllowed(path string) bool {
	if path == "" {
		return false
	}

	resolved, ok := canonicalize(path)
	if !ok {
		return false
	}

	for _, root := range g.RootDirs() {
		canonicalRoot, err := resolveExisting(root)
		if err != nil {
			continue
		}
		if contains(canonicalRoot, resolved) {
			return true
		}
	}
	return false
}

// canonicalize resolves path to its absolute, symlink-free form. When the
// target does not exist yet (a file about to be created) the parent
// directory is resolved instead; the parent must still sit inside an
// allowed root, so the fallback does not weaken containment.
func canonicalize(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, true
	}

	parent := filepath.Dir(abs)
	if parent == abs {
		// Already at the filesystem root: nothing left to resolve.
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(parent)
	if err != nil {
		return "", false
	}
	return resolved, true
}

func resolveExisting(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// contains reports whether candidate sits at or below root, comparing whole
// path segments: /home/u/Downloads2 never matches root /home/u/Downloads.
func contains(root, candidate string) bool {
	if candidate == root {
		return true
	}
	return strings.HasPrefix(candidate, root+string(filepath.Separator))
}
