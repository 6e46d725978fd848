package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MakeTree creates a parent directory holding the named children. Names
// ending in "/" become directories; everything else becomes a small file.
// Nested names create intermediate directories.
func MakeTree(t testing.TB, names ...string) string {
	t.Helper()

	parent := t.TempDir()
	for _, name := range names {
		target := filepath.Join(parent, filepath.FromSlash(strings.TrimSuffix(name, "/")))
		if strings.HasSuffix(name, "/") {
			if err := os.MkdirAll(target, 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", target, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", target, err)
		}
		if err := os.WriteFile(target, []byte{0x42}, 0o644); err != nil {
			t.Fatalf("write %s: %v", target, err)
		}
	}
	return parent
}
