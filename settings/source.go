package settings

// Source identifies the priority level that supplied a resolved value.
type Source string

// Resolution sources, highest priority first.
const (
	// SourceTask indicates the value came from the in-memory task overlay.
	SourceTask Source = "task"

	// SourceEnvironment indicates the value came from an environment variable.
	SourceEnvironment Source = "environment"

	// SourceProject indicates the value came from the project document.
	SourceProject Source = "project"

	// SourceOrganization indicates the value came from the mapped
	// organization document.
	SourceOrganization Source = "organization"

	// SourceGlobal indicates the value came from the global document.
	SourceGlobal Source = "global"

	// SourceDefault indicates the value is the schema's built-in default.
	SourceDefault Source = "default"
)

// ResolvedValue is the (value, source) pair returned by every lookup.
type ResolvedValue struct {
	Value  any
	Source Source
}
