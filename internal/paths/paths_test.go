package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src", "lib"), 0755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(root, "src", "lib", "a.ts")
	if err := os.WriteFile(file, []byte("function a() {}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"existing file", file, "src/lib/a.ts"},
		{"missing file", filepath.Join(root, "src", "new.ts"), "src/new.ts"},
		{"root itself", root, "."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizePath(tt.path, root)
			if err != nil {
				t.Fatalf("CanonicalizePath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CanonicalizePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalizePath_Symlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	target := filepath.Join(root, "real.ts")
	if err := os.WriteFile(target, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "alias.ts")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(link, root)
	if err != nil {
		t.Fatalf("CanonicalizePath() error = %v", err)
	}
	if got != "real.ts" {
		t.Errorf("CanonicalizePath() = %q, want %q", got, "real.ts")
	}
}

func TestIsWithinRoot(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "a.ts")
	outside := filepath.Join(filepath.Dir(root), "elsewhere.ts")

	if !IsWithinRoot(inside, root) {
		t.Errorf("IsWithinRoot(%q) = false, want true", inside)
	}
	if IsWithinRoot(outside, root) {
		t.Errorf("IsWithinRoot(%q) = true, want false", outside)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`src\lib\a.ts`, "src/lib/a.ts"},
		{"src/./lib/../a.ts", "src/a.ts"},
		{"a.ts", "a.ts"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinRoot(t *testing.T) {
	got := JoinRoot("/repo", "src/lib/a.ts")
	want := filepath.Join("/repo", "src", "lib", "a.ts")
	if got != want {
		t.Errorf("JoinRoot() = %q, want %q", got, want)
	}
}

func TestLanguageFromPath(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"a.ts", "typescript"},
		{"a.mts", "typescript"},
		{"A.TSX", "typescriptreact"},
		{"a.js", "javascript"},
		{"a.cjs", "javascript"},
		{"a.jsx", "javascriptreact"},
		{"a.go", ""},
		{"Makefile", ""},
	}
	for _, tt := range tests {
		if got := LanguageFromPath(tt.path); got != tt.want {
			t.Errorf("LanguageFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
