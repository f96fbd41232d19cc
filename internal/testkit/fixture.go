package testkit

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTree creates files (slash-separated relative path -> content) under
// a fresh temporary directory and returns its resolved absolute path.
func WriteTree(tb testing.TB, files map[string]string) string {
	tb.Helper()
	root, err := filepath.EvalSymlinks(tb.TempDir())
	if err != nil {
		tb.Fatalf("resolve temp dir: %v", err)
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			tb.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			tb.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

// Path joins slash-separated rel onto root.
func Path(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}
