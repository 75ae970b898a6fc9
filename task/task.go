// Package task implements Conker's task instance: the per-activity state the
// scheduler spawns one goroutine for (spec §3 "Task instance", §4.D).
package task

import (
	"sync"

	"conker/ast"
	"conker/channel"
)

// State is the lifecycle state of a task instance.
type State int

const (
	StateRunning State = iota
	StateSuspended
	StateCompleted
	StateFailed
	StateKilled
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Task is one running activity: a single-instance task or one index of a
// multi-task. It holds an immutable reference to its AST body, a local
// binding environment, and a termination flag (spec §3 "Task instance").
type Task struct {
	Instance channel.Instance // name + index within a multi-task (index 0 for single-instance)
	Index    int              // $index; meaningful only when part of a multi-task
	Multi    bool             // true if this instance belongs to a task declared with [n]
	Body     *ast.Block
	Env      *Environment

	mu    sync.RWMutex
	state State
	err   error // set when State == StateFailed
}

// New creates a task instance ready to run.
func New(name string, index int, multi bool, body *ast.Block) *Task {
	return &Task{
		Instance: channel.Instance{Task: name, Index: index},
		Index:    index,
		Multi:    multi,
		Body:     body,
		Env:      NewEnvironment(),
		state:    StateRunning,
	}
}

// Name returns the task's declared name (shared by every index of a multi-task).
func (t *Task) Name() string { return t.Instance.Task }

// GetState returns the current lifecycle state.
func (t *Task) GetState() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// SetState transitions the task to a new lifecycle state.
func (t *Task) SetState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

// Fail records a runtime error and marks the task failed.
func (t *Task) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateFailed
	t.err = err
}

// Err returns the error that failed this task, if any.
func (t *Task) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Done reports whether the task has left StateRunning/StateSuspended.
func (t *Task) Done() bool {
	switch t.GetState() {
	case StateCompleted, StateFailed, StateKilled:
		return true
	default:
		return false
	}
}
