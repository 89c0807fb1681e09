package git

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WorktreeInfo represents an active git worktree.
type WorktreeInfo struct {
	Path   string // Filesystem path to the worktree
	Branch string // Branch checked out in the worktree
	Commit string // HEAD commit SHA
}

// WorktreePath returns where the worktree for a branch lives, whether or not
// it exists yet.
func (g *Context) WorktreePath(branch string) string {
	return filepath.Join(g.repoPath, g.worktreeDir, SanitizeBranchName(branch))
}

// CreateWorktree creates an isolated worktree for the branch.
// If the branch doesn't exist, it will be created.
// Returns the path to the worktree directory.
func (g *Context) CreateWorktree(branch string) (string, error) {
	safeName := SanitizeBranchName(branch)
	worktreePath := filepath.Join(g.repoPath, g.worktreeDir, safeName)

	if _, err := os.Stat(worktreePath); err == nil {
		return "", ErrWorktreeExists
	}

	worktreesDir := filepath.Join(g.repoPath, g.worktreeDir)
	if err := os.MkdirAll(worktreesDir, 0o755); err != nil {
		return "", fmt.Errorf("create worktrees dir: %w", err)
	}

	// Try with a new branch first; fall back to an existing branch.
	if _, err := g.runGit("worktree", "add", "-b", branch, worktreePath, "HEAD"); err != nil {
		if _, err := g.runGit("worktree", "add", worktreePath, branch); err != nil {
			return "", &Error{Op: "create worktree", Err: err}
		}
	}

	return worktreePath, nil
}

// RemoveWorktree removes a worktree and its registration, forcing removal
// when uncommitted changes block the normal path.
func (g *Context) RemoveWorktree(worktreePath string) error {
	if _, err := g.runGit("worktree", "remove", worktreePath); err != nil {
		if _, err := g.runGit("worktree", "remove", "--force", worktreePath); err != nil {
			return &Error{Op: "remove worktree", Err: err}
		}
	}
	return nil
}

// ListWorktrees returns all active worktrees.
func (g *Context) ListWorktrees() ([]WorktreeInfo, error) {
	output, err := g.runGit("worktree", "list", "--porcelain")
	if err != nil {
		return nil, &Error{Op: "list worktrees", Err: err}
	}

	var worktrees []WorktreeInfo
	var current WorktreeInfo
	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			current = WorktreeInfo{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "HEAD "):
			current.Commit = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case line == "":
			if current.Path != "" {
				worktrees = append(worktrees, current)
				current = WorktreeInfo{}
			}
		}
	}
	if current.Path != "" {
		worktrees = append(worktrees, current)
	}

	return worktrees, nil
}
