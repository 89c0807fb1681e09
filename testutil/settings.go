package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// TempHome points HOME at a fresh temp directory for the test and returns it.
// Use for code paths that derive ~/.config locations.
func TempHome(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	return dir
}

// WriteSettingsJSON marshals values and writes them to path, creating parent
// directories. Fails the test on any error.
func WriteSettingsJSON(t *testing.T, path string, values map[string]any) {
	t.Helper()

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal settings for %s: %v", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create settings directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		t.Fatalf("failed to write settings %s: %v", path, err)
	}
}

// GlobalSettingsFile writes a global settings document into a temp directory
// and returns its path, for use with settings.WithGlobalPath.
func GlobalSettingsFile(t *testing.T, values map[string]any) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "settings.json")
	WriteSettingsJSON(t, path, values)
	return path
}

// ProjectDir creates a temp project directory containing
// .nerv/settings.json with the given values and returns the project path.
func ProjectDir(t *testing.T, values map[string]any) string {
	t.Helper()

	dir := t.TempDir()
	WriteSettingsJSON(t, filepath.Join(dir, ".nerv", "settings.json"), values)
	return dir
}
