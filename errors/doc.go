// Package errors provides CLI error patterns for nerv with user-friendly
// messaging.
//
// Core types:
//   - CLIError: Wraps errors with message, suggestion, and details
//
// Sentinel errors for common scenarios:
//   - ErrNotInGitRepo: Command requires a git repository
//   - ErrNoProjectLinked: No project is configured
//
// Predicates classify errors coming out of the settings engine so command
// handlers can pick the right message:
//
//	if errors.IsNoProjectError(err) {
//	    // "No active project" with a pointer to `nerv project use`
//	}
//	if errors.IsWriteError(err) {
//	    // surface the underlying filesystem failure
//	}
package errors
