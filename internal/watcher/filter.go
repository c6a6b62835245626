package watcher

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Filter decides which paths under a root are source files of interest.
type Filter struct {
	root     string
	patterns []string
	exts     map[string]bool
}

// NewFilter builds a filter from the ignore patterns and extensions in config.
func NewFilter(root string, config Config) *Filter {
	exts := make(map[string]bool, len(config.Extensions))
	for _, e := range config.Extensions {
		exts[strings.ToLower(e)] = true
	}
	return &Filter{
		root:     root,
		patterns: append([]string(nil), config.IgnorePatterns...),
		exts:     exts,
	}
}

// Watches reports whether path has one of the watched extensions.
func (f *Filter) Watches(path string) bool {
	if len(f.exts) == 0 {
		return true
	}
	return f.exts[strings.ToLower(filepath.Ext(path))]
}

// IsIgnored checks if any component of path, relative to the root, matches an
// ignore pattern. Patterns are matched against single components with
// filepath.Match; a pattern ending in "/**" also ignores everything below the
// named directory.
func (f *Filter) IsIgnored(path string) bool {
	rel := path
	if r, err := filepath.Rel(f.root, path); err == nil && !strings.HasPrefix(r, "..") {
		rel = r
	}
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")

	for _, pattern := range f.patterns {
		if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
			if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
				return true
			}
			pattern = prefix
		}
		for _, part := range parts {
			if matched, _ := filepath.Match(pattern, part); matched {
				return true
			}
		}
	}
	return false
}

// Walk calls fn for every watched, non-ignored file under the root in lexical
// order. Unreadable directories are skipped.
func (f *Filter) Walk(fn func(path string) error) error {
	return filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != f.root && f.IsIgnored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !f.Watches(path) {
			return nil
		}
		return fn(path)
	})
}
