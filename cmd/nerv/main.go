// Command nerv manages projects, tasks, and layered settings for
// agent-driven development.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	nerv "github.com/gabino75/nerv-sub005"
	nerverrors "github.com/gabino75/nerv-sub005/errors"
	"github.com/gabino75/nerv-sub005/git"
	"github.com/gabino75/nerv-sub005/settings"
	"github.com/gabino75/nerv-sub005/store"
	"github.com/gabino75/nerv-sub005/task"
)

func main() {
	app := kingpin.New("nerv", "Project and task manager for agent-driven development")

	configCmd := app.Command("config", "Inspect and change settings")
	configList := configCmd.Command("list", "Show every setting with its source")
	configListFormat := configList.Flag("format", "Output format (table or yaml)").Default("table").Enum("table", "yaml")
	configGet := configCmd.Command("get", "Print one resolved setting")
	configGetKey := configGet.Arg("key", "Setting key").Required().String()
	configSet := configCmd.Command("set", "Set a setting")
	configSetKey := configSet.Arg("key", "Setting key").Required().String()
	configSetValue := configSet.Arg("value", "Setting value").Required().String()
	configSetProject := configSet.Flag("project", "Write to the project level instead of global").Bool()
	configUnset := configCmd.Command("unset", "Remove a setting so lower levels apply again")
	configUnsetKey := configUnset.Arg("key", "Setting key").Required().String()
	configUnsetProject := configUnset.Flag("project", "Remove from the project level instead of global").Bool()
	configPath := configCmd.Command("path", "Show the settings files and active env overrides")

	projectCmd := app.Command("project", "Manage registered projects")
	projectUse := projectCmd.Command("use", "Register a project directory")
	projectUsePath := projectUse.Arg("path", "Project directory").Required().String()
	projectList := projectCmd.Command("list", "List registered projects")

	taskCmd := app.Command("task", "Manage tasks for the current project")
	taskAdd := taskCmd.Command("add", "Add a task")
	taskAddTitle := taskAdd.Arg("title", "Task title").Required().String()
	taskAddKind := taskAdd.Flag("kind", "Task kind (plan, architecture, implement, review, fix, search, summarize)").Default("implement").String()
	taskList := taskCmd.Command("list", "List tasks")
	taskRun := taskCmd.Command("run", "Hand a task to the coding agent")
	taskRunID := taskRun.Arg("id", "Task ID").Required().String()
	taskRunPrompt := taskRun.Flag("prompt", "Extra instructions appended to the task title").String()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	resolver := settings.NewResolver()
	if root := git.FindRoot("."); root != "" {
		resolver.SetProjectPath(root)
	}
	setupLogging(resolver)

	var err error
	switch command {
	case configList.FullCommand():
		err = runConfigList(resolver, *configListFormat)
	case configGet.FullCommand():
		err = runConfigGet(resolver, *configGetKey)
	case configSet.FullCommand():
		err = runConfigSet(resolver, *configSetKey, *configSetValue, *configSetProject)
	case configUnset.FullCommand():
		err = runConfigUnset(resolver, *configUnsetKey, *configUnsetProject)
	case configPath.FullCommand():
		err = runConfigPath(resolver)
	case projectUse.FullCommand():
		err = runProjectUse(resolver, *projectUsePath)
	case projectList.FullCommand():
		err = runProjectList()
	case taskAdd.FullCommand():
		err = runTaskAdd(resolver, *taskAddTitle, *taskAddKind)
	case taskList.FullCommand():
		err = runTaskList(resolver)
	case taskRun.FullCommand():
		err = runTaskRun(resolver, *taskRunID, *taskRunPrompt)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging configures slog from the log_level setting.
func setupLogging(res *settings.Resolver) {
	level := slog.LevelInfo
	switch res.GetString(settings.KeyLogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func runConfigList(res *settings.Resolver, format string) error {
	resolved := res.GetAllWithSources()

	if format == "yaml" {
		out := make(map[string]map[string]any, len(resolved))
		for key, rv := range resolved {
			out[string(key)] = map[string]any{
				"value":  rv.Value,
				"source": string(rv.Source),
			}
		}
		data, err := yaml.Marshal(out)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	}

	keys := settings.Keys()
	width := 0
	for _, key := range keys {
		if len(key) > width {
			width = len(key)
		}
	}
	for _, key := range keys {
		rv := resolved[key]
		fmt.Printf("%-*s  %-14v %s\n", width, key, formatValue(rv.Value), rv.Source)
	}
	return nil
}

func runConfigGet(res *settings.Resolver, rawKey string) error {
	key, err := settings.ParseKey(rawKey)
	if err != nil {
		return err
	}
	rv := res.GetWithSource(key)
	fmt.Printf("%v\t(%s)\n", formatValue(rv.Value), rv.Source)
	return nil
}

func runConfigSet(res *settings.Resolver, rawKey, rawValue string, project bool) error {
	key, err := settings.ParseKey(rawKey)
	if err != nil {
		return err
	}
	value, err := settings.ParseValue(key, rawValue)
	if err != nil {
		return err
	}

	if project {
		if err := res.SetProject(key, value); err != nil {
			return nerverrors.WrapSettingsError(err, res.ProjectConfigPath())
		}
		slog.Debug("setting written", "key", key, "level", "project")
		return nil
	}
	if err := res.SetGlobal(key, value); err != nil {
		return nerverrors.WrapSettingsError(err, res.GlobalConfigPath())
	}
	slog.Debug("setting written", "key", key, "level", "global")
	return nil
}

func runConfigUnset(res *settings.Resolver, rawKey string, project bool) error {
	key, err := settings.ParseKey(rawKey)
	if err != nil {
		return err
	}
	if project {
		if err := res.UnsetProject(key); err != nil {
			return nerverrors.WrapSettingsError(err, res.ProjectConfigPath())
		}
		return nil
	}
	if err := res.UnsetGlobal(key); err != nil {
		return nerverrors.WrapSettingsError(err, res.GlobalConfigPath())
	}
	return nil
}

func runConfigPath(res *settings.Resolver) error {
	title := cases.Title(language.English)

	fmt.Printf("%s: %s\n", title.String("global"), res.GlobalConfigPath())
	if path := res.ProjectConfigPath(); path != "" {
		fmt.Printf("%s: %s\n", title.String("project"), path)
	} else {
		fmt.Printf("%s: (no project)\n", title.String("project"))
	}

	overrides := res.ActiveEnvOverrides()
	if len(overrides) == 0 {
		return nil
	}
	fmt.Println("\nEnvironment overrides:")
	for _, o := range overrides {
		fmt.Printf("  %s=%v (%s)\n", o.Var, formatValue(o.Value), o.Key)
	}
	return nil
}

func runProjectUse(res *settings.Resolver, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if root := git.FindRoot(abs); root != "" {
		abs = root
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if existing, err := st.ProjectByPath(abs); err == nil {
		fmt.Printf("already registered: %s (%s)\n", existing.Name, existing.ID)
		return nil
	}

	project, err := st.CreateProject(filepath.Base(abs), abs)
	if err != nil {
		return err
	}
	res.SetProjectPath(abs)
	fmt.Printf("registered %s (%s)\n", project.Name, project.ID)
	return nil
}

func runProjectList() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	projects, err := st.ListProjects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("no projects registered")
		return nil
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	for _, p := range projects {
		fmt.Printf("%-12s %-20s %s\n", p.ID, p.Name, p.Path)
	}
	return nil
}

func runTaskAdd(res *settings.Resolver, title, rawKind string) error {
	kind := task.Kind(strings.ToLower(rawKind))
	if !task.Valid(kind) {
		return fmt.Errorf("unknown task kind %q", rawKind)
	}

	project, st, err := currentProject(res)
	if err != nil {
		return err
	}
	defer st.Close()

	model := task.ModelFor(kind, res)
	created, err := st.CreateTask(project.ID, title, string(model))
	if err != nil {
		return err
	}
	fmt.Printf("created %s (%s, model %s)\n", created.ID, kind, model)
	return nil
}

func runTaskList(res *settings.Resolver) error {
	project, st, err := currentProject(res)
	if err != nil {
		return err
	}
	defer st.Close()

	tasks, err := st.ListTasks(project.ID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	for _, tk := range tasks {
		fmt.Printf("%-12s %-8s %-30s %s\n", tk.ID, tk.Status, tk.Title, tk.Model)
	}
	return nil
}

func runTaskRun(res *settings.Resolver, id, extraPrompt string) error {
	project, st, err := currentProject(res)
	if err != nil {
		return err
	}
	defer st.Close()

	tk, err := st.GetTask(id)
	if err != nil {
		return err
	}
	if tk.ProjectID != project.ID {
		return fmt.Errorf("task %s belongs to another project", id)
	}

	agent, err := nerv.NewClaudeCLI(res)
	if err != nil {
		return err
	}

	prompt := tk.Title
	if extraPrompt != "" {
		prompt += "\n\n" + extraPrompt
	}

	workDir := taskWorkDir(res, project.Path, tk.ID)

	if err := st.SetTaskStatus(tk.ID, store.TaskStatusRunning); err != nil {
		return err
	}
	slog.Info("task started", "task", tk.ID, "model", tk.Model)

	result, runErr := agent.Run(context.Background(), prompt,
		nerv.WithModel(tk.Model),
		nerv.WithWorkDir(workDir),
	)
	if runErr != nil {
		if statusErr := st.SetTaskStatus(tk.ID, store.TaskStatusFailed); statusErr != nil {
			slog.Warn("could not mark task failed", "task", tk.ID, "error", statusErr)
		}
		if result != nil {
			// Budget overruns still carry the agent's output.
			fmt.Println(result.Output)
		}
		return runErr
	}

	if err := st.SetTaskStatus(tk.ID, store.TaskStatusDone); err != nil {
		return err
	}
	slog.Info("task finished", "task", tk.ID, "cost_usd", result.Cost, "duration", result.Duration)
	fmt.Println(result.Output)
	return nil
}

// taskWorkDir isolates a task run in its own worktree when the project is a
// git repository. Falls back to the project directory otherwise.
func taskWorkDir(res *settings.Resolver, projectPath, taskID string) string {
	var opts []git.Option
	if rv := res.Get(settings.KeyWorktreeDir); rv != nil {
		if dir, ok := rv.(string); ok && dir != "" {
			opts = append(opts, git.WithWorktreeDir(dir))
		}
	}

	gctx, err := git.NewContext(projectPath, opts...)
	if err != nil {
		return projectPath
	}
	branch := "task/" + taskID
	path, err := gctx.CreateWorktree(branch)
	if err != nil {
		if errors.Is(err, git.ErrWorktreeExists) {
			return gctx.WorktreePath(branch)
		}
		slog.Warn("worktree unavailable, running in project dir", "task", taskID, "error", err)
		return projectPath
	}
	return path
}

// currentProject resolves the registered project for the working directory.
// The caller owns the returned store.
func currentProject(res *settings.Resolver) (*store.Project, *store.Store, error) {
	path := res.ProjectPath()
	if path == "" {
		return nil, nil, nerverrors.WrapNoProjectError(nerverrors.ErrNoProjectLinked)
	}

	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	project, err := st.ProjectByPath(path)
	if err != nil {
		st.Close()
		return nil, nil, nerverrors.WrapNoProjectError(nerverrors.ErrNoProjectLinked)
	}
	return project, st, nil
}

func openStore() (*store.Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return store.Open(filepath.Join(home, ".local", "share", "nerv", "nerv.db"))
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}
