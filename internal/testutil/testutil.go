package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates a file (and parents) under dir with the given content
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create parent dirs: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

// WriteTree materializes a relative-path -> content map under dir
func WriteTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		WriteFile(t, dir, name, content)
	}
}

// ReadTree returns a relative-path -> content map of all regular files
// under dir
func ReadTree(t *testing.T, dir string) map[string]string {
	t.Helper()

	tree := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("failed to read tree: %v", err)
	}
	return tree
}

// AssertTree fails the test unless dir contains exactly the given files
func AssertTree(t *testing.T, dir string, want map[string]string) {
	t.Helper()

	got := ReadTree(t, dir)
	if len(got) != len(want) {
		t.Errorf("tree has %d files, want %d: got=%v", len(got), len(want), keys(got))
	}
	for name, content := range want {
		gotContent, ok := got[name]
		if !ok {
			t.Errorf("missing file %s", name)
			continue
		}
		if gotContent != content {
			t.Errorf("file %s content = %q, want %q", name, gotContent, content)
		}
	}
}

func keys(m map[string]string) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	return ks
}
