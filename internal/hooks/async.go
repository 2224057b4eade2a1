package hooks

import (
	"log/slog"
	"sync"
	"time"
)

// AsyncTracker tracks hooks that deferred their decision to a background
// task. Completions are collected and later surfaced via the system
// reminder pipeline.
type AsyncTracker struct {
	mu        sync.Mutex
	pending   map[string]pendingAsyncHook
	completed []CompletedAsyncHook
}

type pendingAsyncHook struct {
	taskID    string
	hookName  string
	startedAt time.Time
}

// CompletedAsyncHook is a finished async hook ready for delivery.
type CompletedAsyncHook struct {
	TaskID            string  `json:"task_id"`
	HookName          string  `json:"hook_name"`
	DurationMS        int64   `json:"duration_ms"`
	Outcome           Outcome `json:"outcome"`
	AdditionalContext string  `json:"additional_context,omitempty"`
	// WasBlocking is set when the terminal decision was a reject.
	WasBlocking    bool   `json:"was_blocking"`
	BlockingReason string `json:"blocking_reason,omitempty"`
}

// NewAsyncTracker creates an empty tracker.
func NewAsyncTracker() *AsyncTracker {
	return &AsyncTracker{pending: make(map[string]pendingAsyncHook)}
}

// Register adds a pending async hook task.
func (t *AsyncTracker) Register(taskID, hookName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[taskID] = pendingAsyncHook{taskID: taskID, hookName: hookName, startedAt: time.Now()}
}

// Complete records the terminal outcome of an async hook.
func (t *AsyncTracker) Complete(taskID string, outcome Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pending, ok := t.pending[taskID]
	if !ok {
		slog.Warn("completed unknown async hook task", "task_id", taskID)
		return
	}
	delete(t.pending, taskID)

	completed := CompletedAsyncHook{
		TaskID:     pending.taskID,
		HookName:   pending.hookName,
		DurationMS: time.Since(pending.startedAt).Milliseconds(),
		Outcome:    outcome,
	}
	switch outcome.Kind {
	case OutcomeReject:
		completed.WasBlocking = true
		completed.BlockingReason = outcome.Reason
	case OutcomeContinueWithContext:
		completed.AdditionalContext = outcome.AdditionalContext
	}
	t.completed = append(t.completed, completed)
}

// TakeCompleted drains the completed list.
func (t *AsyncTracker) TakeCompleted() []CompletedAsyncHook {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.completed
	t.completed = nil
	return out
}

// PendingCount returns the number of unfinished async hooks.
func (t *AsyncTracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// CompletedCount returns the number of undelivered completions.
func (t *AsyncTracker) CompletedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.completed)
}
