// Package nerv drives an external coding agent over locally managed projects
// and tasks.
//
// The package is organized into subpackages by domain:
//
//   - settings: layered settings resolution (the configuration engine)
//   - store: project/task/cycle/decision records in SQLite
//   - git: repository root detection and per-task worktrees
//   - task: task-kind to model selection
//   - errors: CLI error patterns and predicates
//   - testutil: test utilities and fixtures
//
// The root package wraps the claude CLI binary, with its binary path, model,
// and cost budget drawn from the settings resolver.
//
// # Quick Start
//
//	resolver := settings.NewResolver()
//	resolver.SetProjectPath(git.FindRoot("."))
//
//	agent, err := nerv.NewClaudeCLI(resolver)
//	if err != nil {
//	    return err
//	}
//	result, err := agent.Run(ctx, "add dark mode to the settings panel")
//
// See individual package documentation for detailed usage.
package nerv
