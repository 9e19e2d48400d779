package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkPatterns(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.md"), "a")
	mustWrite(t, filepath.Join(dir, "docs", "b.md"), "b")
	mustWrite(t, filepath.Join(dir, "docs", "c.txt"), "c")

	files, err := NewWalker().Walk(dir, []string{"**/*.md"})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(files), files)
	}
	if filepath.Base(files[0]) != "a.md" || filepath.Base(files[1]) != "b.md" {
		t.Errorf("unexpected files: %v", files)
	}
}

func TestWalkNoPatterns(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.md"), "a")
	mustWrite(t, filepath.Join(dir, "docs", "b.txt"), "b")

	files, err := NewWalker().Walk(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("expected every file, got %v", files)
	}
}

func TestWalkExcludes(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "keep.md"), "x")
	mustWrite(t, filepath.Join(dir, ".git", "HEAD"), "ref")
	mustWrite(t, filepath.Join(dir, "notes.txt"), "n")

	files, err := NewWalker(".git/**", "**/*.txt").Walk(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "keep.md" {
		t.Errorf("expected only keep.md, got %v", files)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	mustWrite(t, path, "hello")

	content, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if content != "hello" {
		t.Errorf("expected %q, got %q", "hello", content)
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.md")); err == nil {
		t.Error("expected error for missing file")
	}
}
