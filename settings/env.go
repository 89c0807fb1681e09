package settings

import (
	"strconv"
	"strings"
)

// envBinding ties a schema key to its environment variable. Keys without a
// binding have no environment override.
type envBinding struct {
	key Key
	env string
}

// envTable is the fixed environment override mapping. Read-only: nothing in
// this package ever writes environment variables.
var envTable = []envBinding{
	{KeyDefaultModel, "NERV_DEFAULT_MODEL"},
	{KeyLogLevel, "NERV_LOG_LEVEL"},
	{KeyAutoCommit, "NERV_AUTO_COMMIT"},
	{KeyMaxParallelTasks, "NERV_MAX_PARALLEL_TASKS"},
	{KeyMonthlyBudgetUSD, "NERV_MONTHLY_BUDGET_USD"},
	{KeyClaudeBinary, "NERV_CLAUDE_BINARY"},
	{KeyTelemetry, "NERV_TELEMETRY"},
}

// LookupEnv mirrors os.LookupEnv. Tests inject their own via WithEnvLookup.
type LookupEnv func(name string) (string, bool)

// envReader reads typed overrides from the fixed table.
type envReader struct {
	lookup LookupEnv
}

// read returns the typed override for key. Unmapped key, unset variable, or
// a value that fails the type parse all report ok=false.
func (r envReader) read(key Key) (any, bool) {
	for _, b := range envTable {
		if b.key != key {
			continue
		}
		raw, ok := r.lookup(b.env)
		if !ok {
			return nil, false
		}
		return parseEnvValue(Schema[key].Kind, raw)
	}
	return nil, false
}

// parseEnvValue parses an environment string per the key's declared kind.
// Parse failures are absent, not errors, so resolution falls through.
func parseEnvValue(kind Kind, raw string) (any, bool) {
	switch kind {
	case KindString, KindNullableString:
		return raw, true
	case KindNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	case KindBool:
		switch {
		case raw == "1" || strings.EqualFold(raw, "true"):
			return true, true
		case raw == "0" || raw == "false":
			return false, true
		}
		return nil, false
	}
	return nil, false
}

// EnvOverride describes one mapped environment variable that is currently
// set to a successfully parsed value.
type EnvOverride struct {
	Key   Key
	Var   string
	Value any
}

// active lists every binding currently in effect, in table order. Used for
// diagnostics (`nerv config path`), not by resolution.
func (r envReader) active() []EnvOverride {
	var out []EnvOverride
	for _, b := range envTable {
		raw, ok := r.lookup(b.env)
		if !ok {
			continue
		}
		v, ok := parseEnvValue(Schema[b.key].Kind, raw)
		if !ok {
			continue
		}
		out = append(out, EnvOverride{Key: b.key, Var: b.env, Value: v})
	}
	return out
}
