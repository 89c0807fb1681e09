// Package task maps task kinds to LLM models.
//
// Each kind carries a model tier: reasoning-heavy kinds (plan, architecture)
// run on the thinking tier, mechanical kinds (search, summarize) on the fast
// tier, and everything else on the default tier. The default tier follows the
// default_model setting, so a project or task overlay changes which model
// implement/review/fix runs land on without touching the fast and thinking
// tiers.
//
// Example usage:
//
//	resolver := settings.NewResolver()
//	m := task.ModelFor(task.Implement, resolver)
//	result, err := agent.Run(ctx, prompt, nerv.WithModel(string(m)))
package task
