// Package settings provides layered settings resolution for nerv.
//
// Every recognized setting key belongs to a closed, statically typed schema
// with a built-in default, so resolution is total: a lookup always produces a
// value together with the source that supplied it.
//
// Sources are consulted in fixed priority order, highest first:
//  1. Task overlay (in-memory, allow-listed keys only)
//  2. Environment variables
//  3. Project document (.nerv/settings.json, or .nerv.json in the project root)
//  4. Organization document (mapped from its own schema)
//  5. Global document (~/.config/nerv/settings.json)
//  6. Built-in default
//
// Note that the organization level sits between project and global. Earlier
// user-facing docs omitted it; the order above is what resolution does.
//
// # Basic Usage
//
// Construct one resolver at process start and pass it to consumers:
//
//	resolver := settings.NewResolver()
//	resolver.SetProjectPath("/path/to/project")
//
//	model := resolver.GetString(settings.KeyDefaultModel)
//	rv := resolver.GetWithSource(settings.KeyLogLevel)
//	fmt.Println(rv.Value, rv.Source) // "info" "default"
//
// # Writes
//
// Writes target exactly one level and persist immediately:
//
//	resolver.SetGlobal(settings.KeyDefaultModel, "opus")
//	resolver.SetProject(settings.KeyMonthlyBudgetUSD, 100.0)
//	resolver.UnsetProject(settings.KeyMonthlyBudgetUSD)
//
// Project-scoped writes fail with ErrNoProject when no project path is
// active. Writes at one level never touch any other level.
//
// # Failure Semantics
//
// Reads never fail: a missing, unreadable, or malformed document, an unset or
// unparseable environment variable, and an org field that fails normalization
// all mean "this source defines nothing", and resolution falls through.
// Write failures (disk full, permissions) propagate to the caller.
//
// # Concurrency
//
// A resolver instance serializes all operations behind one exclusive lock.
// Cross-process writes to the same document are last-writer-wins: a set is a
// whole-document rewrite, not a patch.
package settings
