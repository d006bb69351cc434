package filesystem

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.json")

	if err := WriteFileAtomic(path, []byte("first"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic returned error: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic returned error: %v", err)
	}

	content, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(content) != "second" {
		t.Fatalf("expected content 'second', got %q", content)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestWriteFileAtomicMissingDirLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing", "profiles.json")

	if err := WriteFileAtomic(path, []byte("x"), 0o600); err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
	if FileExists(path) {
		t.Fatalf("file should not exist")
	}
}

func TestHashAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("hello world"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	hash, size, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile error: %v", err)
	}
	if size != int64(len("hello world")) {
		t.Fatalf("unexpected size %d", size)
	}

	ok, err := VerifyFile(path, hash)
	if err != nil {
		t.Fatalf("VerifyFile error: %v", err)
	}
	if !ok {
		t.Fatalf("VerifyFile expected true")
	}

	ok, err = VerifyFile(filepath.Join(t.TempDir(), "nope"), hash)
	if err != nil || ok {
		t.Fatalf("VerifyFile on missing file = %v, %v", ok, err)
	}
}

func TestCopyTreeAndMovePath(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	files := map[string]string{
		"jira_cache.json":     "raw",
		"cache/fragment.json": "frag",
	}
	for rel, body := range files {
		p := filepath.Join(src, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	dst := filepath.Join(t.TempDir(), "dst")
	if err := CopyTree(src, dst); err != nil {
		t.Fatalf("CopyTree error: %v", err)
	}

	var seen []string
	err := WalkFiles(dst, func(path string, _ fs.DirEntry) error {
		rel, _ := filepath.Rel(dst, path)
		seen = append(seen, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("WalkFiles error: %v", err)
	}
	if len(seen) != len(files) {
		t.Fatalf("expected %d files, got %v", len(files), seen)
	}

	moved := filepath.Join(t.TempDir(), "moved", "jira_cache.json")
	if err := MovePath(filepath.Join(src, "jira_cache.json"), moved); err != nil {
		t.Fatalf("MovePath error: %v", err)
	}
	if FileExists(filepath.Join(src, "jira_cache.json")) {
		t.Fatalf("source should be gone after move")
	}
	if content, _ := ReadFile(moved); string(content) != "raw" {
		t.Fatalf("unexpected moved content %q", content)
	}

	if err := RemoveTree(dst); err != nil {
		t.Fatalf("RemoveTree error: %v", err)
	}
	if FileExists(dst) {
		t.Fatalf("expected tree to be removed")
	}
	if err := RemoveTree(dst); err != nil {
		t.Fatalf("RemoveTree on missing dir should be a no-op, got %v", err)
	}
}
