// Package paths maps filesystem paths to the file ids and language ids used by the index.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// CanonicalizePath converts an absolute path to a root-relative file id.
// Symlinks are resolved where they exist and separators become forward slashes.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := evalIfExists(absolutePath)
	if err != nil {
		return "", err
	}
	rootResolved, err := evalIfExists(root)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func evalIfExists(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		if os.IsNotExist(err) {
			// Resolve the parent so a not-yet-created file still lines up with its root.
			if dir, derr := filepath.EvalSymlinks(filepath.Dir(p)); derr == nil {
				return filepath.Join(dir, filepath.Base(p)), nil
			}
			return p, nil
		}
		return "", err
	}
	return resolved, nil
}

// IsWithinRoot reports whether path canonicalizes to a location inside root.
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes and cleans the result.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.ToSlash(filepath.Clean(strings.ReplaceAll(path, "\\", "/")))
}

// JoinRoot joins a root with a forward-slash file id.
func JoinRoot(root string, fileID string) string {
	parts := strings.Split(strings.ReplaceAll(fileID, "\\", "/"), "/")
	return filepath.Join(append([]string{root}, parts...)...)
}

var extLanguages = map[string]string{
	".ts":  "typescript",
	".mts": "typescript",
	".cts": "typescript",
	".tsx": "typescriptreact",
	".js":  "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
	".jsx": "javascriptreact",
}

// LanguageFromPath returns the editor-style language id for path's extension,
// or "" when the extension is not a TS/JS dialect.
func LanguageFromPath(path string) string {
	return extLanguages[strings.ToLower(filepath.Ext(path))]
}
