// Package testutil lays out repository fixtures for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/txtar"
)

// WriteTree writes every file of the txtar archive under dir and returns dir.
// File names are slash-separated and relative to dir.
func WriteTree(t testing.TB, dir, archive string) string {
	t.Helper()

	for _, f := range txtar.Parse([]byte(archive)).Files {
		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
	return dir
}

// Repo writes archive into a fresh temporary directory and returns its path
// with symlinks evaluated, so it compares equal to resolved paths.
func Repo(t testing.TB, archive string) string {
	t.Helper()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("evaluating temp dir: %v", err)
	}
	return WriteTree(t, dir, archive)
}
