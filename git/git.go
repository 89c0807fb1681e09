package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// CommandRunner executes a command in a directory and returns its stdout.
type CommandRunner interface {
	Run(dir, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner returns the default runner.
func NewExecRunner() ExecRunner {
	return ExecRunner{}
}

// Run implements CommandRunner.
func (ExecRunner) Run(dir, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if output != "" {
			return output, fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), output)
		}
		return output, err
	}
	return output, nil
}

// Context manages git operations for a repository.
type Context struct {
	repoPath    string        // Path to the main repository
	worktreeDir string        // Directory where worktrees are created
	runner      CommandRunner // Command runner (defaults to ExecRunner)
}

// Option configures Context.
type Option func(*Context)

// WithWorktreeDir sets the directory where worktrees are created.
// Default is ".worktrees" relative to the repository root; the settings key
// worktree_dir feeds this.
func WithWorktreeDir(dir string) Option {
	return func(g *Context) {
		g.worktreeDir = dir
	}
}

// WithRunner sets a custom command runner for git operations.
// This is primarily used for testing to inject mock command execution.
func WithRunner(runner CommandRunner) Option {
	return func(g *Context) {
		g.runner = runner
	}
}

// NewContext creates a new git context for the repository.
// It validates that the path is a git repository and applies any options.
func NewContext(repoPath string, opts ...Option) (*Context, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	g := &Context{
		repoPath:    absPath,
		worktreeDir: ".worktrees",
		runner:      NewExecRunner(),
	}
	for _, opt := range opts {
		opt(g)
	}

	if _, err := g.runGit("rev-parse", "--git-dir"); err != nil {
		return nil, ErrNotGitRepo
	}

	return g, nil
}

// RepoPath returns the path to the main repository.
func (g *Context) RepoPath() string {
	return g.repoPath
}

// runGit executes a git command in the repository.
func (g *Context) runGit(args ...string) (string, error) {
	return g.runner.Run(g.repoPath, "git", args...)
}

// FindRoot walks upward from startDir looking for a .git entry. A regular
// .git file counts too: linked worktrees have one pointing at the main
// repository. Returns "" when startDir is not inside a repository.
func FindRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

var branchNameScrub = regexp.MustCompile(`[^a-z0-9-]`)
var hyphenRuns = regexp.MustCompile(`-+`)

// SanitizeBranchName converts a branch name to a safe directory name.
func SanitizeBranchName(branch string) string {
	safe := strings.ToLower(strings.ReplaceAll(branch, "/", "-"))
	safe = branchNameScrub.ReplaceAllString(safe, "-")
	safe = hyphenRuns.ReplaceAllString(safe, "-")
	return strings.Trim(safe, "-")
}
