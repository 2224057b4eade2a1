// Package iterative runs a task repeatedly — a fixed count, until a check
// string appears in the output, or for a wall-clock duration — carrying
// per-iteration git and summary context into each subsequent prompt.
package iterative

import "time"

// IterationRecord is one completed iteration.
type IterationRecord struct {
	// Iteration is 0-based.
	Iteration int `json:"iteration"`
	// Result is the text the iteration produced.
	Result string `json:"result"`
	// DurationMS is the iteration's wall-clock time.
	DurationMS int64 `json:"duration_ms"`
	// CommitID is set when the iteration committed changes.
	CommitID string `json:"commit_id,omitempty"`
	// ChangedFiles lists files the iteration touched.
	ChangedFiles []string `json:"changed_files,omitempty"`
	// Summary is a short description of what the iteration did.
	Summary string `json:"summary,omitempty"`
	// Success marks whether the iteration completed cleanly.
	Success bool `json:"success"`
	// Timestamp is the completion time.
	Timestamp time.Time `json:"timestamp"`
}

// NewRecord creates a successful record with the basics.
func NewRecord(iteration int, result string, durationMS int64) IterationRecord {
	return IterationRecord{
		Iteration:  iteration,
		Result:     result,
		DurationMS: durationMS,
		Success:    true,
		Timestamp:  time.Now().UTC(),
	}
}

// IterationContext is the cross-iteration state: base commit, original
// prompt, plan content, and the records so far.
type IterationContext struct {
	// Iteration is the current 0-based iteration number.
	Iteration int `json:"iteration"`
	// TotalIterations is the planned count; -1 when unknown (until /
	// duration conditions).
	TotalIterations int `json:"total_iterations"`
	// BaseCommitID is the commit at task start; empty disables context
	// passing.
	BaseCommitID string `json:"base_commit_id,omitempty"`
	// InitialPrompt is the user's original task prompt.
	InitialPrompt string `json:"initial_prompt"`
	// PlanContent is the plan file content, when one exists.
	PlanContent string `json:"plan_content,omitempty"`
	// Iterations are the completed records.
	Iterations []IterationRecord `json:"iterations"`
}

// NewContext creates a context with basic info.
func NewContext(iteration, total int) *IterationContext {
	return &IterationContext{Iteration: iteration, TotalIterations: total}
}

// NewContextWithPassing creates a context with full context passing.
func NewContextWithPassing(baseCommitID, initialPrompt, planContent string, total int) *IterationContext {
	return &IterationContext{
		TotalIterations: total,
		BaseCommitID:    baseCommitID,
		InitialPrompt:   initialPrompt,
		PlanContent:     planContent,
	}
}

// AddIteration appends a record.
func (c *IterationContext) AddIteration(record IterationRecord) {
	c.Iterations = append(c.Iterations, record)
}

// CurrentIteration is the next iteration to execute.
func (c *IterationContext) CurrentIteration() int { return len(c.Iterations) }

// SuccessfulIterations counts records marked successful.
func (c *IterationContext) SuccessfulIterations() int {
	n := 0
	for _, r := range c.Iterations {
		if r.Success {
			n++
		}
	}
	return n
}

// FailedIterations counts records marked failed.
func (c *IterationContext) FailedIterations() int {
	return len(c.Iterations) - c.SuccessfulIterations()
}

// PreviousResults returns prior iteration results in order.
func (c *IterationContext) PreviousResults() []string {
	out := make([]string, len(c.Iterations))
	for i, r := range c.Iterations {
		out[i] = r.Result
	}
	return out
}

// ContextPassingEnabled reports whether git context passing is on.
func (c *IterationContext) ContextPassingEnabled() bool { return c.BaseCommitID != "" }
