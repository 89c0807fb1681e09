package errors

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/gabino75/nerv-sub005/settings"
)

// IsNoProjectError checks if an error means "no active project", whichever
// layer produced it.
func IsNoProjectError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, settings.ErrNoProject) || errors.Is(err, ErrNoProjectLinked)
}

// IsWriteError checks if an error is a filesystem write failure from the
// settings engine (permissions, disk full, bad path).
func IsWriteError(err error) bool {
	if err == nil || IsNoProjectError(err) {
		return false
	}

	if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrExist) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "read-only file system") ||
		strings.Contains(errStr, "not a directory") ||
		strings.Contains(errStr, "write ")
}

// IsNotGitRepoError checks if an error means the command needs a git repo.
func IsNotGitRepoError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotInGitRepo) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not a git repository")
}
