package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Settings file locations.
const (
	globalConfigDir   = "nerv"
	globalConfigFile  = "settings.json"
	projectConfigDir  = ".nerv"
	projectConfigFile = "settings.json"
	projectConfigAlt  = ".nerv.json"
)

// ErrNoProject indicates a project-scoped operation was attempted with no
// active project path.
var ErrNoProject = errors.New("no active project")

// taskOverlayKeys is the allow list of keys the task overlay may override.
// Overlay entries for other keys are ignored.
var taskOverlayKeys = map[Key]bool{
	KeyDefaultModel:     true,
	KeyPerTaskBudgetUSD: true,
}

// Resolver resolves typed settings across the layered sources and writes
// overrides at the global and project levels. Construct one per process and
// pass it to consumers; all operations are serialized behind one lock.
type Resolver struct {
	mu sync.Mutex

	globalPath  string
	projectPath string // active project root, empty when none

	global  *Document
	project *Document
	org     map[Key]any
	overlay map[Key]any

	env       envReader
	orgSource OrganizationProvider
	repos     *repoSettingsCache
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithGlobalPath overrides the global document location. Primarily for tests.
func WithGlobalPath(path string) Option {
	return func(r *Resolver) {
		r.globalPath = path
	}
}

// WithOrganizationProvider sets the source of the organization document.
// Defaults to a file provider at DefaultOrganizationPath.
func WithOrganizationProvider(p OrganizationProvider) Option {
	return func(r *Resolver) {
		r.orgSource = p
	}
}

// WithEnvLookup overrides environment variable lookup. Primarily for tests.
func WithEnvLookup(fn LookupEnv) Option {
	return func(r *Resolver) {
		r.env = envReader{lookup: fn}
	}
}

// NewResolver creates a resolver and performs the initial load of the global
// and organization documents. No project is active until SetProjectPath.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		env:   envReader{lookup: os.LookupEnv},
		repos: newRepoSettingsCache(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.globalPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			r.globalPath = filepath.Join(home, ".config", globalConfigDir, globalConfigFile)
		}
	}
	if r.orgSource == nil {
		r.orgSource = FileOrganizationProvider{Path: DefaultOrganizationPath()}
	}
	r.reloadLocked()
	return r
}

// reloadLocked re-reads every document-backed source. The task overlay is
// untouched. Callers hold r.mu (or are the constructor).
func (r *Resolver) reloadLocked() {
	r.global, _ = loadDocument(r.globalPath)
	if r.projectPath != "" {
		r.project, _ = loadDocument(r.projectConfigPathLocked())
	} else {
		r.project = nil
	}
	if doc, ok := r.orgSource.Load(); ok {
		r.org = mapOrganization(doc)
	} else {
		r.org = nil
	}
}

// Reload re-reads the global and project documents from disk and re-maps the
// organization document. Idempotent: resolution afterwards reflects exactly
// what is persisted.
func (r *Resolver) Reload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloadLocked()
}

// SetProjectPath switches the active project context. An empty path clears
// it. The repo settings cache is dropped and all documents reload.
func (r *Resolver) SetProjectPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projectPath = path
	r.repos.clear()
	r.reloadLocked()
}

// ProjectPath returns the active project root, empty when none.
func (r *Resolver) ProjectPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.projectPath
}

// Get returns the resolved value for key.
func (r *Resolver) Get(key Key) any {
	return r.GetWithSource(key).Value
}

// GetWithSource returns the first value defined for key in priority order,
// tagged with the source that supplied it. Totality: the schema default
// always answers when nothing else does.
func (r *Resolver) GetWithSource(key Key) ResolvedValue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(key)
}

func (r *Resolver) getLocked(key Key) ResolvedValue {
	if taskOverlayKeys[key] {
		if v, ok := r.overlay[key]; ok {
			return ResolvedValue{Value: v, Source: SourceTask}
		}
	}
	if v, ok := r.env.read(key); ok {
		return ResolvedValue{Value: v, Source: SourceEnvironment}
	}
	if r.projectPath != "" {
		if v, ok := r.project.lookup(key); ok {
			return ResolvedValue{Value: v, Source: SourceProject}
		}
	}
	if v, ok := r.org[key]; ok {
		return ResolvedValue{Value: v, Source: SourceOrganization}
	}
	if v, ok := r.global.lookup(key); ok {
		return ResolvedValue{Value: v, Source: SourceGlobal}
	}
	return ResolvedValue{Value: Schema[key].Default, Source: SourceDefault}
}

// GetString returns the resolved value for a string-kinded key. A nullable
// string resolves to "" when null.
func (r *Resolver) GetString(key Key) string {
	s, _ := r.Get(key).(string)
	return s
}

// GetNumber returns the resolved value for a number-kinded key.
func (r *Resolver) GetNumber(key Key) float64 {
	f, _ := r.Get(key).(float64)
	return f
}

// GetBool returns the resolved value for a bool-kinded key.
func (r *Resolver) GetBool(key Key) bool {
	b, _ := r.Get(key).(bool)
	return b
}

// GetAll resolves every schema key.
func (r *Resolver) GetAll() map[Key]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Key]any, len(schemaOrder))
	for _, key := range schemaOrder {
		out[key] = r.getLocked(key).Value
	}
	return out
}

// GetAllWithSources resolves every schema key with its source.
func (r *Resolver) GetAllWithSources() map[Key]ResolvedValue {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Key]ResolvedValue, len(schemaOrder))
	for _, key := range schemaOrder {
		out[key] = r.getLocked(key)
	}
	return out
}

// SetGlobal writes an override at the global level and persists it. Other
// levels are untouched.
func (r *Resolver) SetGlobal(key Key, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := coerce(Schema[key], value)
	if !ok {
		return fmt.Errorf("%s expects a %s value, got %T", key, Schema[key].Kind, value)
	}
	if r.global == nil {
		r.global = newDocument()
	}
	r.global.set(key, v)
	return saveDocument(r.globalPath, r.global)
}

// UnsetGlobal removes the global override for key. A no-op when the key is
// not set at the global level.
func (r *Resolver) UnsetGlobal(key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.global.unset(key) {
		return nil
	}
	return saveDocument(r.globalPath, r.global)
}

// SetProject writes an override at the project level and persists it.
// Returns ErrNoProject when no project path is active.
func (r *Resolver) SetProject(key Key, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.projectPath == "" {
		return ErrNoProject
	}
	v, ok := coerce(Schema[key], value)
	if !ok {
		return fmt.Errorf("%s expects a %s value, got %T", key, Schema[key].Kind, value)
	}
	if r.project == nil {
		r.project = newDocument()
	}
	r.project.set(key, v)
	return saveDocument(r.projectConfigPathLocked(), r.project)
}

// UnsetProject removes the project override for key. A no-op when the key is
// not set at the project level; ErrNoProject when no project is active.
func (r *Resolver) UnsetProject(key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.projectPath == "" {
		return ErrNoProject
	}
	if !r.project.unset(key) {
		return nil
	}
	return saveDocument(r.projectConfigPathLocked(), r.project)
}

// SetTaskOverlay replaces the in-memory task overlay. Only allow-listed keys
// take effect; values are coerced to their declared kinds and entries that
// fail coercion are dropped. Pass nil to clear. The overlay is never
// persisted and survives Reload.
func (r *Resolver) SetTaskOverlay(values map[Key]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if values == nil {
		r.overlay = nil
		return
	}
	overlay := make(map[Key]any, len(values))
	for key, value := range values {
		if !taskOverlayKeys[key] {
			continue
		}
		if v, ok := coerce(Schema[key], value); ok {
			overlay[key] = v
		}
	}
	r.overlay = overlay
}

// TaskOverlay returns a copy of the active task overlay, nil when unset.
func (r *Resolver) TaskOverlay() map[Key]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overlay == nil {
		return nil
	}
	out := make(map[Key]any, len(r.overlay))
	for k, v := range r.overlay {
		out[k] = v
	}
	return out
}

// GlobalConfigPath returns the global document location.
func (r *Resolver) GlobalConfigPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.globalPath
}

// ProjectConfigPath returns the project document location: the first
// existing candidate (.nerv/settings.json, then .nerv.json), or the first
// candidate for future writes when neither exists. Empty when no project is
// active.
func (r *Resolver) ProjectConfigPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.projectPath == "" {
		return ""
	}
	return r.projectConfigPathLocked()
}

func (r *Resolver) projectConfigPathLocked() string {
	primary := filepath.Join(r.projectPath, projectConfigDir, projectConfigFile)
	if fileExists(primary) {
		return primary
	}
	alt := filepath.Join(r.projectPath, projectConfigAlt)
	if fileExists(alt) {
		return alt
	}
	return primary
}

// ActiveEnvOverrides lists the mapped environment variables currently in
// effect, for diagnostics.
func (r *Resolver) ActiveEnvOverrides() []EnvOverride {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.env.active()
}

// RepoSettings returns the per-repository settings for repoPath, nil when the
// repository has none or no project is active. Results are cached until the
// project path changes or a write replaces them.
func (r *Resolver) RepoSettings(repoPath string) *RepoSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.projectPath == "" {
		return nil
	}
	return r.repos.get(r.projectPath, repoPath)
}

// SetRepoSettings persists per-repository settings and updates the cache.
// Returns ErrNoProject when no project path is active.
func (r *Resolver) SetRepoSettings(repoPath string, rs *RepoSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.projectPath == "" {
		return ErrNoProject
	}
	return r.repos.set(r.projectPath, repoPath, rs)
}
