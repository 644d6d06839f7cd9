package watch

import (
	"path/filepath"
	"strings"
)

// Extensions is a case-insensitive set of file suffixes, stored with a
// leading dot.
type Extensions map[string]struct{}

// NewExtensions builds a set from entries such as "html", ".CSS" or "*.js".
func NewExtensions(exts ...string) Extensions {
	set := make(Extensions, len(exts))

	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		e = strings.TrimPrefix(e, "*")

		if e == "" || e == "." {
			continue
		}

		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}

		set[e] = struct{}{}
	}

	return set
}

// Match reports whether path carries one of the extensions.
func (x Extensions) Match(path string) bool {
	_, ok := x[strings.ToLower(filepath.Ext(path))]
	return ok
}

// isIgnoredName filters editor temporary files and hidden files.
func isIgnoredName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") || strings.HasPrefix(name, "#")
}

// isIgnoredDir reports whether a directory below root is skipped entirely.
func isIgnoredDir(path, root, name string) bool {
	if path == root {
		return false
	}

	return strings.HasPrefix(name, ".") || name == "node_modules"
}
