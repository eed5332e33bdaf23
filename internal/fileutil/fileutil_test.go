package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "report.pdf")

	err := WriteAtomic(dst, 0o644, func(w io.Writer) error {
		_, err := w.Write([]byte("%PDF-1.3"))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "%PDF-1.3" {
		t.Fatalf("content mismatch: %q", got)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("mode mismatch: %v", info.Mode().Perm())
	}
}

func TestWriteAtomicLeavesNothingOnError(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.json")
	boom := errors.New("boom")

	err := WriteAtomic(dst, 0o644, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, found %d entries", len(entries))
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Jane_2024-01-10.pdf")
	if got := UniquePath(path); got != path {
		t.Fatalf("expected original path, got %q", got)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := UniquePath(path); got != filepath.Join(dir, "Jane_2024-01-10_2.pdf") {
		t.Fatalf("unexpected unique path %q", got)
	}
}
