package store

import "time"

// Project is a directory tree nerv manages tasks for.
type Project struct {
	ID        string
	Name      string
	Path      string
	CreatedAt time.Time
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

// Task lifecycle states.
const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
)

// Task is one unit of work handed to the coding agent.
type Task struct {
	ID        string
	ProjectID string
	CycleID   string // empty when not grouped into a cycle
	Title     string
	Status    TaskStatus
	Model     string // settings model alias chosen at creation
	CreatedAt time.Time
}

// Cycle groups tasks into one iteration of work.
type Cycle struct {
	ID        string
	ProjectID string
	Name      string
	StartedAt time.Time
	EndedAt   time.Time // zero while the cycle is open
}

// Decision records a choice made during a project with its rationale.
type Decision struct {
	ID        string
	ProjectID string
	Title     string
	Rationale string
	CreatedAt time.Time
}
