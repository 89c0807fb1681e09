package errors

import (
	"fmt"
	"strings"
)

// CLIError wraps an error with user-friendly context and suggestions.
type CLIError struct {
	// Err is the underlying error
	Err error

	// Message is a user-friendly description of what went wrong
	Message string

	// Suggestion is an actionable hint for the user
	Suggestion string

	// Details provides additional context (optional)
	Details string
}

func (e *CLIError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Details)
	}

	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// WrapNoProjectError converts a missing-project error into an actionable
// CLI message.
func WrapNoProjectError(err error) error {
	if err == nil {
		return nil
	}
	return &CLIError{
		Err:        err,
		Message:    "No active project.",
		Suggestion: "Run this command inside a project, or register one with 'nerv project use <path>'.",
	}
}

// WrapWriteError converts a settings write failure into an actionable CLI
// message naming the file that could not be written.
func WrapWriteError(err error, path string) error {
	if err == nil {
		return nil
	}
	return &CLIError{
		Err:        err,
		Message:    fmt.Sprintf("Could not write settings to %s", path),
		Details:    err.Error(),
		Suggestion: "Check the file and directory permissions, and free disk space.",
	}
}

// WrapSettingsError routes a settings-engine error to the right wrapper.
func WrapSettingsError(err error, path string) error {
	if err == nil {
		return nil
	}
	if IsNoProjectError(err) {
		return WrapNoProjectError(err)
	}
	return WrapWriteError(err, path)
}
