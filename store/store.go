package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	path       TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	cycle_id   TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL,
	status     TEXT NOT NULL,
	model      TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS cycles (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at   TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS decisions (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	title      TEXT NOT NULL,
	rationale  TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// Store is the record store backing the CLI. One instance per process.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func newID(prefix string) (string, error) {
	id, err := nanoid.New()
	if err != nil {
		return "", err
	}
	return prefix + "_" + id, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// CreateProject registers a project rooted at path.
func (s *Store) CreateProject(name, path string) (*Project, error) {
	id, err := newID("prj")
	if err != nil {
		return nil, err
	}
	created := now()
	_, err = s.db.Exec(
		"INSERT INTO projects (id, name, path, created_at) VALUES (?, ?, ?, ?)",
		id, name, path, created,
	)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &Project{ID: id, Name: name, Path: path, CreatedAt: parseTime(created)}, nil
}

// GetProject fetches a project by id.
func (s *Store) GetProject(id string) (*Project, error) {
	return s.scanProject(s.db.QueryRow(
		"SELECT id, name, path, created_at FROM projects WHERE id = ?", id))
}

// ProjectByPath fetches the project registered at path.
func (s *Store) ProjectByPath(path string) (*Project, error) {
	return s.scanProject(s.db.QueryRow(
		"SELECT id, name, path, created_at FROM projects WHERE path = ?", path))
}

func (s *Store) scanProject(row *sql.Row) (*Project, error) {
	var p Project
	var created string
	if err := row.Scan(&p.ID, &p.Name, &p.Path, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = parseTime(created)
	return &p, nil
}

// ListProjects returns all projects, oldest first.
func (s *Store) ListProjects() ([]Project, error) {
	rows, err := s.db.Query(
		"SELECT id, name, path, created_at FROM projects ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		var created string
		if err := rows.Scan(&p.ID, &p.Name, &p.Path, &created); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject removes a project and, via cascade, its tasks, cycles, and
// decisions.
func (s *Store) DeleteProject(id string) error {
	res, err := s.db.Exec("DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateTask adds a pending task to a project. model is the settings model
// alias the task was created with.
func (s *Store) CreateTask(projectID, title, model string) (*Task, error) {
	id, err := newID("tsk")
	if err != nil {
		return nil, err
	}
	created := now()
	_, err = s.db.Exec(
		"INSERT INTO tasks (id, project_id, title, status, model, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, projectID, title, TaskStatusPending, model, created,
	)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &Task{
		ID: id, ProjectID: projectID, Title: title,
		Status: TaskStatusPending, Model: model, CreatedAt: parseTime(created),
	}, nil
}

// GetTask fetches a task by id.
func (s *Store) GetTask(id string) (*Task, error) {
	row := s.db.QueryRow(
		"SELECT id, project_id, cycle_id, title, status, model, created_at FROM tasks WHERE id = ?", id)
	var t Task
	var created string
	if err := row.Scan(&t.ID, &t.ProjectID, &t.CycleID, &t.Title, &t.Status, &t.Model, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.CreatedAt = parseTime(created)
	return &t, nil
}

// ListTasks returns a project's tasks, oldest first.
func (s *Store) ListTasks(projectID string) ([]Task, error) {
	rows, err := s.db.Query(
		"SELECT id, project_id, cycle_id, title, status, model, created_at FROM tasks WHERE project_id = ? ORDER BY created_at",
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		var created string
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.CycleID, &t.Title, &t.Status, &t.Model, &created); err != nil {
			return nil, err
		}
		t.CreatedAt = parseTime(created)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetTaskStatus transitions a task's lifecycle state.
func (s *Store) SetTaskStatus(id string, status TaskStatus) error {
	res, err := s.db.Exec("UPDATE tasks SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignTaskCycle places a task into a cycle.
func (s *Store) AssignTaskCycle(taskID, cycleID string) error {
	res, err := s.db.Exec("UPDATE tasks SET cycle_id = ? WHERE id = ?", cycleID, taskID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateCycle opens a new cycle for a project.
func (s *Store) CreateCycle(projectID, name string) (*Cycle, error) {
	id, err := newID("cyc")
	if err != nil {
		return nil, err
	}
	started := now()
	_, err = s.db.Exec(
		"INSERT INTO cycles (id, project_id, name, started_at) VALUES (?, ?, ?, ?)",
		id, projectID, name, started,
	)
	if err != nil {
		return nil, fmt.Errorf("create cycle: %w", err)
	}
	return &Cycle{ID: id, ProjectID: projectID, Name: name, StartedAt: parseTime(started)}, nil
}

// CloseCycle marks a cycle as ended.
func (s *Store) CloseCycle(id string) error {
	res, err := s.db.Exec("UPDATE cycles SET ended_at = ? WHERE id = ? AND ended_at = ''", now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCycles returns a project's cycles, oldest first.
func (s *Store) ListCycles(projectID string) ([]Cycle, error) {
	rows, err := s.db.Query(
		"SELECT id, project_id, name, started_at, ended_at FROM cycles WHERE project_id = ? ORDER BY started_at",
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Cycle
	for rows.Next() {
		var c Cycle
		var started, ended string
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Name, &started, &ended); err != nil {
			return nil, err
		}
		c.StartedAt = parseTime(started)
		c.EndedAt = parseTime(ended)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateDecision records a decision against a project.
func (s *Store) CreateDecision(projectID, title, rationale string) (*Decision, error) {
	id, err := newID("dec")
	if err != nil {
		return nil, err
	}
	created := now()
	_, err = s.db.Exec(
		"INSERT INTO decisions (id, project_id, title, rationale, created_at) VALUES (?, ?, ?, ?, ?)",
		id, projectID, title, rationale, created,
	)
	if err != nil {
		return nil, fmt.Errorf("create decision: %w", err)
	}
	return &Decision{
		ID: id, ProjectID: projectID, Title: title,
		Rationale: rationale, CreatedAt: parseTime(created),
	}, nil
}

// ListDecisions returns a project's decisions, oldest first.
func (s *Store) ListDecisions(projectID string) ([]Decision, error) {
	rows, err := s.db.Query(
		"SELECT id, project_id, title, rationale, created_at FROM decisions WHERE project_id = ? ORDER BY created_at",
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var created string
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Title, &d.Rationale, &created); err != nil {
			return nil, err
		}
		d.CreatedAt = parseTime(created)
		out = append(out, d)
	}
	return out, rows.Err()
}
