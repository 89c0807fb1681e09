package errors

import "errors"

// Common CLI errors with actionable guidance.
var (
	// ErrNotInGitRepo indicates the command requires a git repository.
	ErrNotInGitRepo = errors.New("not in a git repository")

	// ErrNoProjectLinked indicates no project is configured.
	ErrNoProjectLinked = errors.New("no project linked")
)
