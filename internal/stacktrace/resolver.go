package stacktrace

import (
	"os"
	"path/filepath"
	"strings"
)

// PrefixRule rewrites an absolute path prefix used by a build, container or
// CI environment into a path relative to the workspace root.
type PrefixRule struct {
	Prefix  string
	Replace string
}

// DefaultPrefixRules returns the built-in rewrite table, in match order.
func DefaultPrefixRules() []PrefixRule {
	return []PrefixRule{
		{Prefix: "/app/"},
		{Prefix: "/src/"},
		{Prefix: "/home/runner/work/"},
		{Prefix: "/home/user/"},
		{Prefix: "/var/task/"},
		{Prefix: "/opt/app/"},
		{Prefix: "/workspace/"},
		{Prefix: "/build/"},
	}
}

// Resolver maps raw trace paths onto files inside a workspace root. It only
// performs read-only existence checks and never searches the filesystem.
type Resolver struct {
	Rules []PrefixRule
	// Exists reports whether a path exists. Defaults to an os.Stat check.
	Exists func(path string) bool
}

// DefaultResolver returns a resolver using the built-in prefix rules.
func DefaultResolver() *Resolver {
	return &Resolver{Rules: DefaultPrefixRules()}
}

// Resolve returns rawPath as a slash-separated path relative to root, or
// false when no candidate exists. An empty or missing root never resolves.
func (r *Resolver) Resolve(rawPath, root string) (string, bool) {
	if root == "" {
		return "", false
	}

	path := strings.TrimPrefix(rawPath, "file://")
	if path == "" {
		return "", false
	}

	// Already relative to the workspace
	if isLocal(path) && r.exists(root, path) {
		return path, true
	}

	// Absolute path that mirrors the workspace layout, e.g. /src/app.ts
	if trimmed := strings.TrimLeft(path, "/"); trimmed != path && isLocal(trimmed) && r.exists(root, trimmed) {
		return trimmed, true
	}

	// Absolute path captured on this machine
	if rel, ok := relativeTo(root, path); ok && r.exists(root, rel) {
		return rel, true
	}

	for _, rule := range r.Rules {
		if rule.Prefix == "" || !strings.HasPrefix(path, rule.Prefix) {
			continue
		}
		candidate := rule.Replace + strings.TrimPrefix(path, rule.Prefix)
		if !isLocal(candidate) {
			continue
		}
		if r.exists(root, candidate) {
			return candidate, true
		}
	}

	return "", false
}

func (r *Resolver) exists(root, rel string) bool {
	full := filepath.Join(root, filepath.FromSlash(rel))
	if r.Exists != nil {
		return r.Exists(full)
	}
	_, err := os.Stat(full)
	return err == nil
}

// isLocal reports whether a slash path stays inside the directory it is
// joined to.
func isLocal(path string) bool {
	return filepath.IsLocal(filepath.FromSlash(path))
}

// relativeTo returns path relative to root when path is absolute and lies
// beneath root.
func relativeTo(root, path string) (string, bool) {
	native := filepath.FromSlash(path)
	if !filepath.IsAbs(native) {
		return "", false
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}

	rel, err := filepath.Rel(absRoot, filepath.Clean(native))
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
