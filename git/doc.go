// Package git shells out to git for the repository operations nerv needs:
// locating the repository root and managing per-task worktrees.
//
// Core types:
//   - Context: Git operations bound to one repository
//   - CommandRunner: Interface for executing git commands (with mock for testing)
//
// Example usage:
//
//	ctx, err := git.NewContext("/path/to/repo")
//	if err != nil {
//	    return err
//	}
//	path, err := ctx.CreateWorktree("task/tsk-123")
package git
