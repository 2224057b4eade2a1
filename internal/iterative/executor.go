package iterative

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Caps on iteration counts per condition kind.
const (
	// MaxUntilIterations caps until-condition runs.
	MaxUntilIterations = 50
	// MaxDurationIterations caps duration-condition runs.
	MaxDurationIterations = 100
)

// ConditionKind discriminates stop conditions.
type ConditionKind string

const (
	ConditionCount    ConditionKind = "count"
	ConditionUntil    ConditionKind = "until"
	ConditionDuration ConditionKind = "duration"
)

// Condition decides when the loop stops.
type Condition struct {
	Kind ConditionKind
	// Count for ConditionCount.
	Count int
	// Check substring for ConditionUntil.
	Check string
	// MaxDuration for ConditionDuration.
	MaxDuration time.Duration
}

// CountCondition runs exactly n iterations.
func CountCondition(n int) Condition {
	return Condition{Kind: ConditionCount, Count: n}
}

// UntilCondition runs until the result contains check, capped at
// MaxUntilIterations.
func UntilCondition(check string) Condition {
	return Condition{Kind: ConditionUntil, Check: check}
}

// DurationCondition runs until the wall clock expires, capped at
// MaxDurationIterations.
func DurationCondition(d time.Duration) Condition {
	return Condition{Kind: ConditionDuration, MaxDuration: d}
}

// maxIterations returns the hard cap for the condition. Count runs are
// bounded by the requested count alone; the MaxUntilIterations ceiling
// applies only to until-condition runs.
func (c Condition) maxIterations() int {
	switch c.Kind {
	case ConditionCount:
		if c.Count < 0 {
			return 0
		}
		return c.Count
	case ConditionUntil:
		return MaxUntilIterations
	case ConditionDuration:
		return MaxDurationIterations
	default:
		return 1
	}
}

// IterationInput is what the execute function receives each iteration.
type IterationInput struct {
	// Prompt is the enhanced prompt for this iteration.
	Prompt string
	// Iteration is 0-based.
	Iteration int
	// Context is the accumulated cross-iteration state.
	Context *IterationContext
}

// IterationOutput is what the execute function returns.
type IterationOutput struct {
	Result string
	// Success marks the iteration clean; failures still record.
	Success bool
	// CommitID and ChangedFiles carry git context when available.
	CommitID     string
	ChangedFiles []string
}

// ExecuteFunc runs one iteration. Supplied by the caller; typically it
// drives a full agent turn.
type ExecuteFunc func(ctx context.Context, input IterationInput) (IterationOutput, error)

// Options configure an iterative run.
type Options struct {
	Condition Condition
	// BaseCommitID enables git context passing.
	BaseCommitID string
	// PlanContent is injected into enhanced prompts when present.
	PlanContent string
	// AutoCommit permits the model to run git commit.
	AutoCommit bool
}

// RunResult is the completed loop state.
type RunResult struct {
	Context    *IterationContext
	Stopped    string
	Iterations int
}

// Executor runs the iterative loop.
type Executor struct {
	execute ExecuteFunc
}

// NewExecutor creates an executor over an execute function.
func NewExecutor(execute ExecuteFunc) *Executor {
	return &Executor{execute: execute}
}

// Run executes the loop until the condition stops it.
func (e *Executor) Run(ctx context.Context, prompt string, opts Options) (*RunResult, error) {
	total := -1
	if opts.Condition.Kind == ConditionCount {
		total = opts.Condition.Count
	}
	itctx := NewContextWithPassing(opts.BaseCommitID, prompt, opts.PlanContent, total)

	deadline := time.Time{}
	if opts.Condition.Kind == ConditionDuration {
		deadline = time.Now().Add(opts.Condition.MaxDuration)
	}
	maxIter := opts.Condition.maxIterations()

	for i := 0; i < maxIter; i++ {
		if err := ctx.Err(); err != nil {
			return &RunResult{Context: itctx, Stopped: "canceled", Iterations: i}, err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return &RunResult{Context: itctx, Stopped: "duration", Iterations: i}, nil
		}

		itctx.Iteration = i
		enhanced := BuildPrompt(prompt, itctx, opts.AutoCommit)

		start := time.Now()
		output, err := e.execute(ctx, IterationInput{Prompt: enhanced, Iteration: i, Context: itctx})
		duration := time.Since(start).Milliseconds()
		if err != nil {
			record := NewRecord(i, fmt.Sprintf("error: %v", err), duration)
			record.Success = false
			itctx.AddIteration(record)
			continue
		}

		record := NewRecord(i, output.Result, duration)
		record.Success = output.Success
		record.CommitID = output.CommitID
		record.ChangedFiles = output.ChangedFiles
		record.Summary = Summarize(output.Result)
		itctx.AddIteration(record)

		if opts.Condition.Kind == ConditionUntil && strings.Contains(output.Result, opts.Condition.Check) {
			return &RunResult{Context: itctx, Stopped: "until", Iterations: i + 1}, nil
		}
	}

	// For a count run, exhausting maxIter is the natural stop. For until
	// and duration runs it means the hard cap fired before the condition
	// did, which callers must be able to distinguish.
	stopped := "count"
	if opts.Condition.Kind != ConditionCount {
		stopped = "max_iterations"
	}
	return &RunResult{Context: itctx, Stopped: stopped, Iterations: len(itctx.Iterations)}, nil
}

// Summarize derives a one-line summary from an iteration result: the first
// non-empty line, capped at 200 characters.
func Summarize(result string) string {
	for _, line := range strings.Split(result, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 200 {
			return line[:200]
		}
		return line
	}
	return ""
}
