// Package tasks tracks long-running background work: backgrounded shell
// commands, async subagents, and remote sessions. The model drains fresh
// output through the TaskOutput tool; the unified-tasks reminder surfaces
// the current set each turn.
package tasks

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskType classifies a background task.
type TaskType string

const (
	TypeShell         TaskType = "shell"
	TypeAsyncAgent    TaskType = "agent"
	TypeRemoteSession TaskType = "remote"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Task is one tracked background task.
type Task struct {
	ID        string    `json:"task_id"`
	Type      TaskType  `json:"task_type"`
	Command   string    `json:"command"`
	Status    Status    `json:"status"`
	ExitCode  *int      `json:"exit_code,omitempty"`
	StartedAt time.Time `json:"started_at"`

	// HasNewOutput is set when output arrived since the last drain.
	HasNewOutput bool `json:"has_new_output"`
}

// Registry tracks background tasks. Safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	tasks  map[string]*Task
	output map[string]*strings.Builder
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks:  make(map[string]*Task),
		output: make(map[string]*strings.Builder),
	}
}

// Register adds a running task and returns its id.
func (r *Registry) Register(taskType TaskType, command string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := fmt.Sprintf("task-%s", uuid.NewString()[:8])
	r.tasks[id] = &Task{
		ID:        id,
		Type:      taskType,
		Command:   command,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	r.output[id] = &strings.Builder{}
	r.order = append(r.order, id)
	return id
}

// AppendOutput records output for a running task.
func (r *Registry) AppendOutput(id, chunk string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return
	}
	r.output[id].WriteString(chunk)
	task.HasNewOutput = true
}

// Complete marks a task finished with an exit code; non-zero means failed.
func (r *Registry) Complete(id string, exitCode int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return
	}
	task.ExitCode = &exitCode
	if exitCode == 0 {
		task.Status = StatusCompleted
	} else {
		task.Status = StatusFailed
	}
}

// Fail marks a task failed without an exit code.
func (r *Registry) Fail(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task, ok := r.tasks[id]; ok {
		task.Status = StatusFailed
	}
}

// Get returns a copy of the task.
func (r *Registry) Get(id string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// DrainOutput returns the accumulated output and clears the new-output
// flag.
func (r *Registry) DrainOutput(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return "", false
	}
	task.HasNewOutput = false
	out := r.output[id].String()
	r.output[id].Reset()
	return out, true
}

// List returns copies of all tasks in registration order.
func (r *Registry) List() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Task, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.tasks[id])
	}
	return out
}

// Remove drops a finished task from tracking.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
	delete(r.output, id)
	for i, tid := range r.order {
		if tid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
