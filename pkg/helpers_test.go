package dupfind

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// writeTestFile creates root/rel with content, making parent directories
func writeTestFile(t *testing.T, root, rel string, content []byte) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
	return path
}

// patterned returns n deterministic bytes
func patterned(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31) ^ seed
	}
	return b
}

// withTail returns prefix followed by tail, without aliasing prefix
func withTail(prefix []byte, tail string) []byte {
	return append(bytes.Clone(prefix), tail...)
}

// newTestScanner builds a scanner or fails the test
func newTestScanner(t *testing.T, opts Options) *Scanner {
	t.Helper()
	s, err := NewScanner(opts)
	if err != nil {
		t.Fatalf("NewScanner failed: %v", err)
	}
	return s
}

// paths returns the Path of each record
func paths(records []FileRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Path)
	}
	return out
}
