// Package testutil provides utilities for testing.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempFile creates a temporary file with the given content.
// Returns the file path. File is automatically cleaned up when the test ends.
func TempFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to create temp file %s: %v", name, err)
	}

	return path
}

// TempFileString creates a temporary file with string content.
func TempFileString(t *testing.T, name, content string) string {
	return TempFile(t, name, []byte(content))
}
