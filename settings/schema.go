package settings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/randalmurphal/llmkit/model"
)

// Key names a recognized setting.
type Key string

// Recognized setting keys.
const (
	KeyDefaultModel     Key = "default_model"
	KeyLogLevel         Key = "log_level"
	KeyAutoCommit       Key = "auto_commit"
	KeyMaxParallelTasks Key = "max_parallel_tasks"
	KeyMonthlyBudgetUSD Key = "monthly_budget_usd"
	KeyPerTaskBudgetUSD Key = "per_task_budget_usd"
	KeyClaudeBinary     Key = "claude_binary"
	KeyTelemetry        Key = "telemetry"
	KeyWorktreeDir      Key = "worktree_dir"
	KeyEditor           Key = "editor"
)

// Kind is the declared type of a setting value.
type Kind int

// Value kinds. Numbers are float64, matching JSON. A nullable string is
// either a string or nil.
const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindNullableString
)

// String returns the kind name used in CLI messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindNullableString:
		return "string or null"
	}
	return "unknown"
}

// KeySpec declares the type and default value of a schema key.
type KeySpec struct {
	Kind    Kind
	Default any
}

// Schema is the closed set of recognized keys. Every key has a default, so
// resolution can never come up empty.
var Schema = map[Key]KeySpec{
	KeyDefaultModel:     {KindString, "sonnet"},
	KeyLogLevel:         {KindString, "info"},
	KeyAutoCommit:       {KindBool, true},
	KeyMaxParallelTasks: {KindNumber, 2.0},
	KeyMonthlyBudgetUSD: {KindNumber, 0.0},
	KeyPerTaskBudgetUSD: {KindNumber, 5.0},
	KeyClaudeBinary:     {KindString, "claude"},
	KeyTelemetry:        {KindBool, false},
	KeyWorktreeDir:      {KindNullableString, nil},
	KeyEditor:           {KindNullableString, nil},
}

// schemaOrder fixes the enumeration order for GetAll and CLI listings.
var schemaOrder = []Key{
	KeyDefaultModel,
	KeyLogLevel,
	KeyAutoCommit,
	KeyMaxParallelTasks,
	KeyMonthlyBudgetUSD,
	KeyPerTaskBudgetUSD,
	KeyClaudeBinary,
	KeyTelemetry,
	KeyWorktreeDir,
	KeyEditor,
}

// Keys returns every schema key in a stable order.
func Keys() []Key {
	out := make([]Key, len(schemaOrder))
	copy(out, schemaOrder)
	return out
}

// ParseKey validates a raw key name against the schema. Callers (the CLI)
// reject unknown keys here; the resolver itself only ever sees schema keys.
func ParseKey(raw string) (Key, error) {
	key := Key(raw)
	if _, ok := Schema[key]; !ok {
		names := make([]string, len(schemaOrder))
		for i, k := range schemaOrder {
			names[i] = string(k)
		}
		return "", fmt.Errorf("unknown setting key: %s\n\nValid keys: %s",
			raw, strings.Join(names, ", "))
	}
	return key, nil
}

// ParseValue converts a raw CLI string into the key's declared type.
func ParseValue(key Key, raw string) (any, error) {
	spec := Schema[key]
	switch spec.Kind {
	case KindString:
		return raw, nil
	case KindNullableString:
		if raw == "null" {
			return nil, nil
		}
		return raw, nil
	case KindNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s expects a number, got %q", key, raw)
		}
		return f, nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects true or false, got %q", key, raw)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%s has an unsupported kind", key)
}

// coerce normalizes a decoded or caller-supplied value to the spec's kind.
// ok is false when the value cannot represent the kind; resolution then
// treats the key as undefined at that source.
func coerce(spec KeySpec, v any) (any, bool) {
	switch spec.Kind {
	case KindString:
		s, ok := v.(string)
		return s, ok
	case KindNullableString:
		if v == nil {
			return nil, true
		}
		s, ok := v.(string)
		return s, ok
	case KindNumber:
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
		return nil, false
	case KindBool:
		b, ok := v.(bool)
		return b, ok
	}
	return nil, false
}

// modelAliases maps the short model names used in settings values to the
// model catalog. The org mapper normalizes against this set.
var modelAliases = map[string]model.ModelName{
	"opus":   model.ModelOpus,
	"sonnet": model.ModelSonnet,
	"haiku":  model.ModelHaiku,
}

// NormalizeModel validates a model name against the allowed set and returns
// its canonical short form.
func NormalizeModel(name string) (string, bool) {
	alias := strings.ToLower(strings.TrimSpace(name))
	if _, ok := modelAliases[alias]; ok {
		return alias, true
	}
	return "", false
}

// ModelName returns the catalog model name for a settings model alias.
func ModelName(alias string) (model.ModelName, bool) {
	m, ok := modelAliases[strings.ToLower(alias)]
	return m, ok
}

// logLevels is the allowed set for log_level normalization.
var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// NormalizeLogLevel validates a log level name.
func NormalizeLogLevel(name string) (string, bool) {
	lvl := strings.ToLower(strings.TrimSpace(name))
	if logLevels[lvl] {
		return lvl, true
	}
	return "", false
}
