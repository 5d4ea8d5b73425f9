// Package pymod maps workspace file paths to Python module paths.
package pymod

import (
	"path/filepath"
	"strings"
)

// ModulePath converts a workspace-relative Python file path to its dotted
// module path: "pkg/mod.py" becomes "pkg.mod" and "pkg/__init__.py" becomes
// "pkg". A top-level "__init__.py" maps to the empty module.
func ModulePath(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, ".py")
	if rel == "__init__" {
		return ""
	}
	rel = strings.TrimSuffix(rel, "/__init__")
	return strings.ReplaceAll(rel, "/", ".")
}

// Identity returns the registry identity for a class declared in module.
func Identity(module, class string) string {
	if module == "" {
		return class
	}
	return module + "." + class
}

// ResolveRelative resolves a relative import observed in module to an
// absolute module path. level is the number of leading dots (1 means the
// current package) and target is the imported module path, which may be
// empty for imports like "from . import x".
func ResolveRelative(module string, level int, target string) string {
	parts := strings.Split(module, ".")
	if module == "" {
		parts = nil
	}
	// Level 1 is the package containing the module, so dropping level
	// segments (the module's own name included) lands on the right package.
	drop := level
	if drop > len(parts) {
		drop = len(parts)
	}
	base := parts[:len(parts)-drop]
	if target != "" {
		base = append(append([]string(nil), base...), strings.Split(target, ".")...)
	}
	return strings.Join(base, ".")
}
