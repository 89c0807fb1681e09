package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gabino75/nerv-sub005/testutil"
)

// envFromMap builds a LookupEnv over a fixed map.
func envFromMap(vars map[string]string) LookupEnv {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

// stubOrg is an OrganizationProvider with a canned document.
type stubOrg struct {
	doc *OrganizationDocument
}

func (s stubOrg) Load() (*OrganizationDocument, bool) {
	if s.doc == nil {
		return nil, false
	}
	return s.doc, true
}

// newTestResolver builds an isolated resolver: temp global path, no env, no
// org document.
func newTestResolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()
	base := []Option{
		WithGlobalPath(filepath.Join(t.TempDir(), "settings.json")),
		WithEnvLookup(envFromMap(nil)),
		WithOrganizationProvider(stubOrg{}),
	}
	return NewResolver(append(base, opts...)...)
}

func TestResolver_Totality(t *testing.T) {
	r := newTestResolver(t)

	for _, key := range Keys() {
		rv := r.GetWithSource(key)
		if rv.Source != SourceDefault {
			t.Errorf("%s: source = %q, want %q", key, rv.Source, SourceDefault)
		}
		spec := Schema[key]
		if spec.Kind != KindNullableString && rv.Value == nil {
			t.Errorf("%s: resolved to nil, want default %v", key, spec.Default)
		}
	}
}

func TestResolver_DefaultModel(t *testing.T) {
	// No files, no env vars: default_model resolves to "sonnet" from the
	// schema.
	r := newTestResolver(t)

	rv := r.GetWithSource(KeyDefaultModel)
	if rv.Value != "sonnet" {
		t.Errorf("value = %v, want sonnet", rv.Value)
	}
	if rv.Source != SourceDefault {
		t.Errorf("source = %q, want %q", rv.Source, SourceDefault)
	}
}

func TestResolver_GlobalOverride(t *testing.T) {
	r := newTestResolver(t)

	if err := r.SetGlobal(KeyDefaultModel, "opus"); err != nil {
		t.Fatalf("SetGlobal() error = %v", err)
	}

	rv := r.GetWithSource(KeyDefaultModel)
	if rv.Value != "opus" {
		t.Errorf("value = %v, want opus", rv.Value)
	}
	if rv.Source != SourceGlobal {
		t.Errorf("source = %q, want %q", rv.Source, SourceGlobal)
	}
}

func TestResolver_ProjectBeatsGlobal(t *testing.T) {
	r := newTestResolver(t)
	r.SetProjectPath(t.TempDir())

	if err := r.SetGlobal(KeyMonthlyBudgetUSD, 50.0); err != nil {
		t.Fatalf("SetGlobal() error = %v", err)
	}
	if err := r.SetProject(KeyMonthlyBudgetUSD, 100.0); err != nil {
		t.Fatalf("SetProject() error = %v", err)
	}

	rv := r.GetWithSource(KeyMonthlyBudgetUSD)
	if rv.Value != 100.0 {
		t.Errorf("value = %v, want 100", rv.Value)
	}
	if rv.Source != SourceProject {
		t.Errorf("source = %q, want %q", rv.Source, SourceProject)
	}
}

func TestResolver_EnvBeatsProjectAndGlobal(t *testing.T) {
	r := newTestResolver(t, WithEnvLookup(envFromMap(map[string]string{
		"NERV_LOG_LEVEL": "debug",
	})))
	r.SetProjectPath(t.TempDir())

	if err := r.SetGlobal(KeyLogLevel, "info"); err != nil {
		t.Fatalf("SetGlobal() error = %v", err)
	}
	if err := r.SetProject(KeyLogLevel, "info"); err != nil {
		t.Fatalf("SetProject() error = %v", err)
	}

	rv := r.GetWithSource(KeyLogLevel)
	if rv.Value != "debug" {
		t.Errorf("value = %v, want debug", rv.Value)
	}
	if rv.Source != SourceEnvironment {
		t.Errorf("source = %q, want %q", rv.Source, SourceEnvironment)
	}
}

func TestResolver_MalformedEnvFallsThrough(t *testing.T) {
	r := newTestResolver(t, WithEnvLookup(envFromMap(map[string]string{
		"NERV_MAX_PARALLEL_TASKS": "lots",
	})))

	if err := r.SetGlobal(KeyMaxParallelTasks, 4.0); err != nil {
		t.Fatalf("SetGlobal() error = %v", err)
	}

	rv := r.GetWithSource(KeyMaxParallelTasks)
	if rv.Value != 4.0 {
		t.Errorf("value = %v, want 4", rv.Value)
	}
	if rv.Source != SourceGlobal {
		t.Errorf("source = %q, want %q", rv.Source, SourceGlobal)
	}
}

func TestResolver_OrganizationBetweenProjectAndGlobal(t *testing.T) {
	monthly := 500.0
	doc := &OrganizationDocument{}
	doc.Defaults.Model = "opus"
	doc.CostLimits.MonthlyUSD = &monthly

	r := newTestResolver(t, WithOrganizationProvider(stubOrg{doc: doc}))
	r.SetProjectPath(t.TempDir())

	t.Run("org beats global", func(t *testing.T) {
		if err := r.SetGlobal(KeyDefaultModel, "haiku"); err != nil {
			t.Fatalf("SetGlobal() error = %v", err)
		}
		r.Reload()
		rv := r.GetWithSource(KeyDefaultModel)
		if rv.Value != "opus" || rv.Source != SourceOrganization {
			t.Errorf("got (%v, %q), want (opus, organization)", rv.Value, rv.Source)
		}
	})

	t.Run("project beats org", func(t *testing.T) {
		if err := r.SetProject(KeyDefaultModel, "sonnet"); err != nil {
			t.Fatalf("SetProject() error = %v", err)
		}
		rv := r.GetWithSource(KeyDefaultModel)
		if rv.Value != "sonnet" || rv.Source != SourceProject {
			t.Errorf("got (%v, %q), want (sonnet, project)", rv.Value, rv.Source)
		}
	})

	t.Run("org mapping applies", func(t *testing.T) {
		rv := r.GetWithSource(KeyMonthlyBudgetUSD)
		if rv.Value != 500.0 || rv.Source != SourceOrganization {
			t.Errorf("got (%v, %q), want (500, organization)", rv.Value, rv.Source)
		}
	})
}

func TestResolver_LevelIsolation(t *testing.T) {
	r := newTestResolver(t)
	r.SetProjectPath(t.TempDir())

	if err := r.SetProject(KeyDefaultModel, "opus"); err != nil {
		t.Fatalf("SetProject() error = %v", err)
	}
	if err := r.SetGlobal(KeyDefaultModel, "haiku"); err != nil {
		t.Fatalf("SetGlobal() error = %v", err)
	}
	if err := r.UnsetGlobal(KeyDefaultModel); err != nil {
		t.Fatalf("UnsetGlobal() error = %v", err)
	}

	rv := r.GetWithSource(KeyDefaultModel)
	if rv.Value != "opus" || rv.Source != SourceProject {
		t.Errorf("got (%v, %q), want (opus, project)", rv.Value, rv.Source)
	}
}

func TestResolver_UnsetReverts(t *testing.T) {
	r := newTestResolver(t)

	before := r.GetWithSource(KeyAutoCommit)

	if err := r.SetGlobal(KeyAutoCommit, false); err != nil {
		t.Fatalf("SetGlobal() error = %v", err)
	}
	if err := r.UnsetGlobal(KeyAutoCommit); err != nil {
		t.Fatalf("UnsetGlobal() error = %v", err)
	}

	after := r.GetWithSource(KeyAutoCommit)
	if after != before {
		t.Errorf("after unset = %+v, want %+v", after, before)
	}

	// Unsetting an absent key is a no-op, not an error.
	if err := r.UnsetGlobal(KeyAutoCommit); err != nil {
		t.Errorf("UnsetGlobal() of absent key error = %v", err)
	}
}

func TestResolver_ReloadReflectsDisk(t *testing.T) {
	projectDir := t.TempDir()
	r := newTestResolver(t)
	r.SetProjectPath(projectDir)

	if err := r.SetProject(KeyPerTaskBudgetUSD, 9.0); err != nil {
		t.Fatalf("SetProject() error = %v", err)
	}
	r.Reload()

	rv := r.GetWithSource(KeyPerTaskBudgetUSD)
	if rv.Value != 9.0 || rv.Source != SourceProject {
		t.Errorf("got (%v, %q), want (9, project)", rv.Value, rv.Source)
	}

	// A second resolver over the same paths sees the same state.
	other := NewResolver(
		WithGlobalPath(r.GlobalConfigPath()),
		WithEnvLookup(envFromMap(nil)),
		WithOrganizationProvider(stubOrg{}),
	)
	other.SetProjectPath(projectDir)
	if got := other.GetNumber(KeyPerTaskBudgetUSD); got != 9.0 {
		t.Errorf("fresh resolver value = %v, want 9", got)
	}
}

func TestResolver_SetProjectWithoutProject(t *testing.T) {
	r := newTestResolver(t)

	if err := r.SetProject(KeyDefaultModel, "opus"); !errors.Is(err, ErrNoProject) {
		t.Errorf("SetProject() error = %v, want ErrNoProject", err)
	}
	if err := r.UnsetProject(KeyDefaultModel); !errors.Is(err, ErrNoProject) {
		t.Errorf("UnsetProject() error = %v, want ErrNoProject", err)
	}
}

func TestResolver_ProjectConfigPathCandidates(t *testing.T) {
	r := newTestResolver(t)

	t.Run("no project", func(t *testing.T) {
		if got := r.ProjectConfigPath(); got != "" {
			t.Errorf("ProjectConfigPath() = %q, want empty", got)
		}
	})

	t.Run("neither candidate exists", func(t *testing.T) {
		dir := t.TempDir()
		r.SetProjectPath(dir)
		want := filepath.Join(dir, ".nerv", "settings.json")
		if got := r.ProjectConfigPath(); got != want {
			t.Errorf("ProjectConfigPath() = %q, want %q", got, want)
		}
	})

	t.Run("root file wins when primary absent", func(t *testing.T) {
		dir := t.TempDir()
		alt := filepath.Join(dir, ".nerv.json")
		os.WriteFile(alt, []byte(`{"config_version": 1, "log_level": "warn"}`), 0o644)

		r.SetProjectPath(dir)
		if got := r.ProjectConfigPath(); got != alt {
			t.Errorf("ProjectConfigPath() = %q, want %q", got, alt)
		}
		if got := r.GetString(KeyLogLevel); got != "warn" {
			t.Errorf("log_level = %q, want warn", got)
		}
	})

	t.Run("primary wins when both exist", func(t *testing.T) {
		dir := testutil.ProjectDir(t, map[string]any{
			"config_version": 1,
			"log_level":      "error",
		})
		os.WriteFile(filepath.Join(dir, ".nerv.json"),
			[]byte(`{"config_version": 1, "log_level": "warn"}`), 0o644)
		primary := filepath.Join(dir, ".nerv", "settings.json")

		r.SetProjectPath(dir)
		if got := r.ProjectConfigPath(); got != primary {
			t.Errorf("ProjectConfigPath() = %q, want %q", got, primary)
		}
		if got := r.GetString(KeyLogLevel); got != "error" {
			t.Errorf("log_level = %q, want error", got)
		}
	})
}

func TestResolver_TaskOverlay(t *testing.T) {
	r := newTestResolver(t)

	t.Run("allow-listed key wins over everything", func(t *testing.T) {
		if err := r.SetGlobal(KeyDefaultModel, "haiku"); err != nil {
			t.Fatalf("SetGlobal() error = %v", err)
		}
		r.SetTaskOverlay(map[Key]any{KeyDefaultModel: "opus"})

		rv := r.GetWithSource(KeyDefaultModel)
		if rv.Value != "opus" || rv.Source != SourceTask {
			t.Errorf("got (%v, %q), want (opus, task)", rv.Value, rv.Source)
		}
	})

	t.Run("non-allow-listed key ignored", func(t *testing.T) {
		r.SetTaskOverlay(map[Key]any{KeyLogLevel: "debug"})
		rv := r.GetWithSource(KeyLogLevel)
		if rv.Source == SourceTask {
			t.Errorf("log_level resolved from task overlay, want lower source")
		}
	})

	t.Run("survives reload", func(t *testing.T) {
		r.SetTaskOverlay(map[Key]any{KeyDefaultModel: "opus"})
		r.Reload()
		if rv := r.GetWithSource(KeyDefaultModel); rv.Source != SourceTask {
			t.Errorf("source after reload = %q, want %q", rv.Source, SourceTask)
		}
	})

	t.Run("clear", func(t *testing.T) {
		r.SetTaskOverlay(nil)
		if got := r.TaskOverlay(); got != nil {
			t.Errorf("TaskOverlay() = %v, want nil", got)
		}
		if rv := r.GetWithSource(KeyDefaultModel); rv.Source == SourceTask {
			t.Errorf("task overlay still in effect after clear")
		}
	})
}

func TestResolver_GetAllWithSources(t *testing.T) {
	r := newTestResolver(t)
	if err := r.SetGlobal(KeyDefaultModel, "opus"); err != nil {
		t.Fatalf("SetGlobal() error = %v", err)
	}

	all := r.GetAllWithSources()
	if len(all) != len(Keys()) {
		t.Fatalf("len = %d, want %d", len(all), len(Keys()))
	}
	if all[KeyDefaultModel].Source != SourceGlobal {
		t.Errorf("default_model source = %q, want global", all[KeyDefaultModel].Source)
	}
	if all[KeyLogLevel].Source != SourceDefault {
		t.Errorf("log_level source = %q, want default", all[KeyLogLevel].Source)
	}
}

func TestNewResolver_DefaultGlobalPath(t *testing.T) {
	home := testutil.TempHome(t)

	r := NewResolver(
		WithEnvLookup(envFromMap(nil)),
		WithOrganizationProvider(stubOrg{}),
	)

	want := filepath.Join(home, ".config", "nerv", "settings.json")
	if got := r.GlobalConfigPath(); got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}
}

func TestResolver_GlobalFileFromDisk(t *testing.T) {
	// A global document written by another process resolves without any
	// write through this resolver.
	path := testutil.GlobalSettingsFile(t, map[string]any{
		"config_version": 1,
		"telemetry":      true,
		"default_model":  "haiku",
	})

	r := NewResolver(
		WithGlobalPath(path),
		WithEnvLookup(envFromMap(nil)),
		WithOrganizationProvider(stubOrg{}),
	)

	if rv := r.GetWithSource(KeyTelemetry); rv.Value != true || rv.Source != SourceGlobal {
		t.Errorf("telemetry = (%v, %q), want (true, global)", rv.Value, rv.Source)
	}
	if got := r.GetString(KeyDefaultModel); got != "haiku" {
		t.Errorf("default_model = %q, want haiku", got)
	}
}

func TestResolver_MalformedGlobalDefinesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	r := NewResolver(
		WithGlobalPath(path),
		WithEnvLookup(envFromMap(nil)),
		WithOrganizationProvider(stubOrg{}),
	)

	rv := r.GetWithSource(KeyDefaultModel)
	if rv.Value != "sonnet" || rv.Source != SourceDefault {
		t.Errorf("got (%v, %q), want (sonnet, default)", rv.Value, rv.Source)
	}
}

// A set is a whole-document rewrite. Two writers that loaded the same state
// race: the second write erases the first writer's keys. Documented behavior,
// not a bug this package defends against.
func TestResolver_LastWriterWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	newR := func() *Resolver {
		return NewResolver(
			WithGlobalPath(path),
			WithEnvLookup(envFromMap(nil)),
			WithOrganizationProvider(stubOrg{}),
		)
	}

	a := newR()
	b := newR() // loaded before a's write

	if err := a.SetGlobal(KeyDefaultModel, "opus"); err != nil {
		t.Fatalf("SetGlobal() error = %v", err)
	}
	if err := b.SetGlobal(KeyLogLevel, "debug"); err != nil {
		t.Fatalf("SetGlobal() error = %v", err)
	}

	fresh := newR()
	if rv := fresh.GetWithSource(KeyLogLevel); rv.Value != "debug" {
		t.Errorf("log_level = %v, want debug (last write)", rv.Value)
	}
	if rv := fresh.GetWithSource(KeyDefaultModel); rv.Source != SourceDefault {
		t.Errorf("default_model source = %q, want default: first write lost", rv.Source)
	}
}
