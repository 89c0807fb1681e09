// Package store persists nerv's working records: projects, tasks, cycles,
// and decisions.
//
// It is deliberately thin CRUD over a local SQLite database; the interesting
// configuration logic lives in the settings package, which this package never
// imports. Entities reference each other by nanoid identifiers:
//
//	st, _ := store.Open(filepath.Join(dir, "nerv.db"))
//	defer st.Close()
//
//	prj, _ := st.CreateProject("widget", "/home/dev/src/widget")
//	tsk, _ := st.CreateTask(prj.ID, "add dark mode", "sonnet")
//	_ = st.SetTaskStatus(tsk.ID, store.TaskStatusRunning)
package store
