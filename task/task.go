package task

import (
	"github.com/randalmurphal/llmkit/model"

	"github.com/gabino75/nerv-sub005/settings"
)

// Kind represents the type of task an agent is performing.
// This determines which model tier is appropriate.
type Kind string

const (
	// Planning and architecture - need reasoning
	Plan         Kind = "plan"
	Architecture Kind = "architecture"

	// Standard dev tasks - default tier
	Implement Kind = "implement"
	Review    Kind = "review"
	Fix       Kind = "fix"

	// Fast tasks - can use smaller models
	Search    Kind = "search"
	Summarize Kind = "summarize"
)

// Kinds lists every task kind in display order.
func Kinds() []Kind {
	return []Kind{Plan, Architecture, Implement, Review, Fix, Search, Summarize}
}

// Valid reports whether k is a known task kind.
func Valid(k Kind) bool {
	switch k {
	case Plan, Architecture, Implement, Review, Fix, Search, Summarize:
		return true
	}
	return false
}

// TierFor returns the appropriate model tier for a task kind.
func TierFor(k Kind) model.Tier {
	switch k {
	case Plan, Architecture:
		return model.TierThinking
	case Search, Summarize:
		return model.TierFast
	default:
		return model.TierDefault
	}
}

// ModelFor selects the model for a task kind. Thinking-tier kinds always run
// on opus and fast-tier kinds on haiku; default-tier kinds follow the
// resolved default_model setting, falling back to sonnet when the setting
// holds an unknown name.
func ModelFor(k Kind, res *settings.Resolver) model.ModelName {
	switch TierFor(k) {
	case model.TierThinking:
		return model.ModelOpus
	case model.TierFast:
		return model.ModelHaiku
	}

	if m, ok := settings.ModelName(res.GetString(settings.KeyDefaultModel)); ok {
		return m
	}
	return model.ModelSonnet
}

// NewSelector creates a model selector configured for task kinds.
// It uses the standard kind-to-tier mapping.
func NewSelector(opts ...model.SelectorOption) *model.Selector {
	allOpts := append([]model.SelectorOption{
		model.WithTierFunc(func(task any) model.Tier {
			if k, ok := task.(Kind); ok {
				return TierFor(k)
			}
			return model.TierDefault
		}),
	}, opts...)

	return model.NewSelector(allOpts...)
}
