package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
)

// RepoSettings is a per-repository settings document. It lives outside the
// priority chain: repository commands are addressed by repo path, not
// resolved through the layered sources.
type RepoSettings struct {
	BuildCommand  string `json:"build_command,omitempty"`
	TestCommand   string `json:"test_command,omitempty"`
	LintCommand   string `json:"lint_command,omitempty"`
	SetupComplete bool   `json:"setup_complete,omitempty"`
}

// repoSettingsCache lazily loads repo settings documents and caches them,
// including nil misses so a repo without settings costs one disk hit. A set
// replaces the cached entry, so a cached miss cannot go stale after a write.
// Callers serialize access; the cache itself holds no lock.
type repoSettingsCache struct {
	entries map[string]*RepoSettings
}

func newRepoSettingsCache() *repoSettingsCache {
	return &repoSettingsCache{entries: make(map[string]*RepoSettings)}
}

func (c *repoSettingsCache) clear() {
	c.entries = make(map[string]*RepoSettings)
}

// get returns the settings for repoPath, loading and caching on first use.
// Returns nil when the repo has no settings document.
func (c *repoSettingsCache) get(projectPath, repoPath string) *RepoSettings {
	if rs, ok := c.entries[repoPath]; ok {
		return rs
	}
	rs := loadRepoSettings(repoSettingsPath(projectPath, repoPath))
	c.entries[repoPath] = rs
	return rs
}

// set persists the settings and updates the cache.
func (c *repoSettingsCache) set(projectPath, repoPath string, rs *RepoSettings) error {
	path := repoSettingsPath(projectPath, repoPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create repo settings dir: %w", err)
	}
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	c.entries[repoPath] = rs
	return nil
}

// loadRepoSettings reads one repo settings file, nil on any read or parse
// failure.
func loadRepoSettings(path string) *RepoSettings {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var rs RepoSettings
	if err := json.Unmarshal(jsonc.ToJSON(data), &rs); err != nil {
		return nil
	}
	return &rs
}

// repoSettingsPath derives the settings file location for a repository from
// the active project path and a sanitized form of the repo path.
func repoSettingsPath(projectPath, repoPath string) string {
	return filepath.Join(projectPath, projectConfigDir, "repos",
		sanitizeRepoPath(repoPath)+".json")
}

var repoPathSeparators = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// sanitizeRepoPath flattens a repository path into a filename component.
func sanitizeRepoPath(repoPath string) string {
	safe := repoPathSeparators.ReplaceAllString(repoPath, "-")
	return strings.Trim(safe, "-")
}
