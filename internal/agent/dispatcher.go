package agent

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cocodehq/cocode/internal/hooks"
	"github.com/cocodehq/cocode/internal/observability"
	"github.com/cocodehq/cocode/internal/tools"
	"github.com/cocodehq/cocode/pkg/models"
)

// DefaultMaxToolConcurrency bounds parallel tool execution per batch.
const DefaultMaxToolConcurrency = 10

// DispatcherConfig configures tool dispatch.
type DispatcherConfig struct {
	// MaxConcurrency is the semaphore size; unsafe tools take the whole
	// semaphore.
	MaxConcurrency int
	// McpToolTimeout applies to MCP-sourced tools (qualified names).
	McpToolTimeout time.Duration
	// Persistence controls large-result persistence.
	Persistence tools.PersistenceConfig
}

// DefaultDispatcherConfig returns dispatch defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxConcurrency: DefaultMaxToolConcurrency,
		Persistence:    tools.DefaultPersistenceConfig(),
	}
}

// Dispatcher executes one streamed turn's tool calls: concurrency-safe
// tools run in parallel under a bounded semaphore, unsafe tools serialize,
// and results return in tool-call order regardless of completion order.
type Dispatcher struct {
	registry *tools.Registry
	hooks    *hooks.Registry
	config   DispatcherConfig
	metrics  *observability.Metrics
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(registry *tools.Registry, hookRegistry *hooks.Registry, config DispatcherConfig, metrics *observability.Metrics) *Dispatcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultMaxToolConcurrency
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &Dispatcher{
		registry: registry,
		hooks:    hookRegistry,
		config:   config,
		metrics:  metrics,
	}
}

// ExecuteBatch runs the calls and returns outputs indexed to match the
// input order.
func (d *Dispatcher) ExecuteBatch(ctx context.Context, calls []models.ToolCall, tctx *tools.Context) []models.ToolOutput {
	outputs := make([]models.ToolOutput, len(calls))
	sem := semaphore.NewWeighted(int64(d.config.MaxConcurrency))

	done := make(chan int, len(calls))
	for i, call := range calls {
		i, call := i, call

		weight := int64(1)
		if tool, ok := d.registry.Get(call.Name); ok && tool.ConcurrencySafety() == models.ConcurrencyUnsafe {
			// Unsafe tools exclude everything else in the batch.
			weight = int64(d.config.MaxConcurrency)
		}

		go func() {
			defer func() { done <- i }()
			if err := sem.Acquire(ctx, weight); err != nil {
				outputs[i] = models.ErrorOutput("tool execution canceled: " + err.Error())
				return
			}
			defer sem.Release(weight)
			outputs[i] = d.executeOne(ctx, call, tctx)
		}()
	}
	for range calls {
		<-done
	}
	return outputs
}

// executeOne runs the full per-call pipeline: pre hooks, validation,
// execution with timeout and panic recovery, persistence, post hooks.
func (d *Dispatcher) executeOne(ctx context.Context, call models.ToolCall, tctx *tools.Context) models.ToolOutput {
	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "tool."+call.Name)
	defer span.End()

	callCtx := *tctx
	callCtx.CallID = call.ID

	input := call.Input
	if d.hooks != nil {
		outcome := d.hooks.Dispatch(ctx, &hooks.Event{
			Type:      hooks.EventPreToolUse,
			SessionID: tctx.SessionID,
			ToolName:  call.Name,
			ToolInput: input,
		})
		if outcome.Kind == hooks.OutcomeReject {
			d.metrics.ToolExecutions.WithLabelValues(call.Name, "rejected").Inc()
			return models.ErrorOutput("tool call rejected by hook: " + outcome.Reason)
		}
		if outcome.RewrittenInput != nil {
			input = outcome.RewrittenInput
		}
	}

	tool, ok := d.registry.Get(call.Name)
	if !ok {
		d.metrics.ToolExecutions.WithLabelValues(call.Name, "unknown").Inc()
		return models.ErrorOutput(fmt.Sprintf("unknown tool %q", call.Name))
	}

	if err := tools.ValidateInput(tool.InputSchema(), input); err != nil {
		d.metrics.ToolExecutions.WithLabelValues(call.Name, "invalid_input").Inc()
		return models.ErrorOutput(err.Error())
	}

	execCtx := ctx
	if d.config.McpToolTimeout > 0 && isMcpTool(call.Name) {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, d.config.McpToolTimeout)
		defer cancel()
	}

	output := d.executeSafely(execCtx, tool, input, &callCtx)
	output = tools.PersistIfNeeded(output, call.ID, tctx.SessionDir, d.persistenceFor(tool))

	if d.hooks != nil {
		outcome := d.hooks.Dispatch(ctx, &hooks.Event{
			Type:      hooks.EventPostToolUse,
			SessionID: tctx.SessionID,
			ToolName:  call.Name,
			ToolInput: input,
		})
		if outcome.Kind == hooks.OutcomeContinueWithContext && outcome.AdditionalContext != "" {
			output.Modifiers = append(output.Modifiers, models.ContextModifier{
				Kind:    models.ModifierPermissionGranted,
				Tool:    call.Name,
				Pattern: outcome.AdditionalContext,
			})
		}
	}

	result := "ok"
	if output.IsError {
		result = "error"
	}
	d.metrics.ToolExecutions.WithLabelValues(call.Name, result).Inc()
	d.metrics.ToolDurations.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
	return output
}

// executeSafely converts handler panics into error outputs so one bad tool
// cannot end the turn.
func (d *Dispatcher) executeSafely(ctx context.Context, tool tools.Tool, input []byte, tctx *tools.Context) (output models.ToolOutput) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool handler panicked",
				"tool", tool.Name(), "panic", r, "stack", string(debug.Stack()))
			output = models.ErrorOutput(fmt.Sprintf("tool %s panicked: %v", tool.Name(), r))
		}
	}()

	out, err := tool.Execute(ctx, input, tctx)
	if err != nil {
		return models.ErrorOutput(fmt.Sprintf("tool %s failed: %v", tool.Name(), err))
	}
	return out
}

// persistenceFor applies a per-tool result size override when the tool
// declares one.
func (d *Dispatcher) persistenceFor(tool tools.Tool) tools.PersistenceConfig {
	config := d.config.Persistence
	if sizer, ok := tool.(tools.ResultSizer); ok {
		if n := sizer.MaxResultSizeChars(); n > 0 {
			config.MaxResultSize = n
		}
	}
	return config
}

// isMcpTool recognizes server__tool qualified names.
func isMcpTool(name string) bool {
	for i := 0; i+1 < len(name); i++ {
		if name[i] == '_' && name[i+1] == '_' {
			return true
		}
	}
	return false
}
