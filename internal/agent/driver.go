package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cocodehq/cocode/internal/compaction"
	contextpkg "github.com/cocodehq/cocode/internal/context"
	"github.com/cocodehq/cocode/internal/hooks"
	"github.com/cocodehq/cocode/internal/observability"
	"github.com/cocodehq/cocode/internal/providers"
	"github.com/cocodehq/cocode/internal/reminder"
	"github.com/cocodehq/cocode/internal/retry"
	"github.com/cocodehq/cocode/internal/sandbox"
	"github.com/cocodehq/cocode/internal/speculation"
	"github.com/cocodehq/cocode/internal/status"
	"github.com/cocodehq/cocode/internal/tasks"
	"github.com/cocodehq/cocode/internal/tools"
	"github.com/cocodehq/cocode/pkg/models"
)

// DriverConfig configures a session driver.
type DriverConfig struct {
	SystemPrompt string
	SessionDir   string

	Retry      retry.Config
	Dispatcher DispatcherConfig
	Compaction compaction.Config
	Reminders  reminder.Config

	// Sandbox is handed to tool contexts; nil means no enforcement.
	Sandbox *sandbox.Checker
}

// DefaultDriverConfig returns driver defaults.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		Retry:      retry.DefaultConfig(),
		Dispatcher: DefaultDispatcherConfig(),
		Compaction: compaction.DefaultConfig(),
		Reminders:  reminder.DefaultConfig(),
	}
}

// UserInput is one user submission: text plus resolved attachment blocks.
type UserInput struct {
	Text        string
	Attachments []models.ContentBlock
}

// TurnOptions adjust a single submission.
type TurnOptions struct {
	// IsMainAgent gates main-agent-only reminders. The zero value is false;
	// the CLI sets it true and the subagent executor leaves it false.
	IsMainAgent bool
}

// ProviderResolver resolves model specs to adapters. Satisfied by
// providers.Registry; tests substitute stubs.
type ProviderResolver interface {
	For(spec models.ModelSpec) (providers.Provider, error)
	ModelInfoFor(spec models.ModelSpec) providers.ModelInfo
}

// Driver is the top-level session coordinator: it owns the history and
// selections, drives turns, applies reminders, and commits tool effects.
type Driver struct {
	mu      sync.RWMutex
	session *models.Session

	providers    ProviderResolver
	toolRegistry *tools.Registry
	dispatcher   *Dispatcher
	hooks        *hooks.Registry
	reminders    *reminder.Pipeline
	files        *reminder.FileTracker
	compactor    *compaction.Engine
	tasks        *tasks.Registry
	speculation  *speculation.Tracker
	history      *contextpkg.History
	metrics      *observability.Metrics

	config     DriverConfig
	turnNumber int
}

// NewDriver assembles a driver for a session.
func NewDriver(
	session *models.Session,
	providerRegistry ProviderResolver,
	toolRegistry *tools.Registry,
	hookRegistry *hooks.Registry,
	config DriverConfig,
) *Driver {
	mainSel, _ := session.Selections.Main()
	info := providerRegistry.ModelInfoFor(mainSel.Spec)
	budget := contextpkg.NewBudget(info.ContextWindow, info.MaxOutputTokens)
	// Rough allocations; the conversation gets what the fixed categories
	// leave behind.
	budget.SetAllocation(contextpkg.CategorySystemPrompt, info.ContextWindow/20)
	budget.SetAllocation(contextpkg.CategoryToolDefinitions, info.ContextWindow/10)
	budget.SetAllocation(contextpkg.CategoryReserved, info.ContextWindow/20)
	history := contextpkg.NewHistory(budget, contextpkg.NewEstimator())

	metrics := observability.NopMetrics()
	d := &Driver{
		session:      session,
		providers:    providerRegistry,
		toolRegistry: toolRegistry,
		hooks:        hookRegistry,
		reminders:    reminder.NewPipeline(),
		files:        reminder.NewFileTracker(),
		tasks:        tasks.NewRegistry(),
		speculation:  speculation.NewTracker(),
		history:      history,
		metrics:      metrics,
		config:       config,
	}
	d.dispatcher = NewDispatcher(toolRegistry, hookRegistry, config.Dispatcher, metrics)
	d.compactor = compaction.NewEngine(config.Compaction, &roleSummarizer{driver: d})
	return d
}

// Session returns the owned session. Reads of selections go through the
// driver's lock.
func (d *Driver) Session() *models.Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.session
}

// History exposes the context manager for inspection; mutation stays
// inside the driver.
func (d *Driver) History() *contextpkg.History { return d.history }

// Tasks returns the background task registry shared with tool handlers.
func (d *Driver) Tasks() *tasks.Registry { return d.tasks }

// Files returns the file tracker shared with tool handlers.
func (d *Driver) Files() *reminder.FileTracker { return d.files }

// SubmitUserTurn appends the input and runs turns until the model stops
// requesting tools or the turn budget is exhausted. Events stream on the
// returned channel, which closes after a terminal TurnCompleted or
// TurnError event.
func (d *Driver) SubmitUserTurn(ctx context.Context, input UserInput, opts TurnOptions) <-chan TurnEvent {
	events := make(chan TurnEvent, 16)
	go func() {
		defer close(events)
		d.runTurns(ctx, input, opts, events)
	}()
	return events
}

func (d *Driver) runTurns(ctx context.Context, input UserInput, opts TurnOptions, events chan<- TurnEvent) {
	ctx, span := observability.Tracer().Start(ctx, "agent.user_turn")
	defer span.End()

	d.mu.Lock()
	d.session.Touch()
	maxTurns := d.session.MaxTurns
	d.mu.Unlock()

	prompt := input.Text
	if d.hooks != nil {
		outcome := d.hooks.Dispatch(ctx, &hooks.Event{
			Type:      hooks.EventUserPromptSubmit,
			SessionID: d.session.ID,
			Prompt:    prompt,
		})
		switch outcome.Kind {
		case hooks.OutcomeReject:
			events <- TurnEvent{Type: TurnError, Err: status.Errorf(status.PermissionDenied,
				"prompt rejected by hook: %s", outcome.Reason)}
			return
		case hooks.OutcomeContinueWithContext:
			prompt = prompt + "\n\n" + outcome.AdditionalContext
		}
		if outcome.RewrittenInput != nil {
			prompt = string(outcome.RewrittenInput)
		}
	}

	content := make([]models.ContentBlock, 0, 1+len(input.Attachments))
	if prompt != "" {
		content = append(content, models.TextBlock(prompt))
	}
	content = append(content, input.Attachments...)
	d.history.Record(models.UserMessage(content...))

	totalUsage := models.TokenUsage{}
	userPrompt := prompt

	for turn := 0; ; turn++ {
		if turn >= maxTurns {
			events <- TurnEvent{Type: TurnCompleted, Usage: totalUsage, FinishReason: models.FinishMaxTurns}
			return
		}
		d.turnNumber++

		d.injectReminders(ctx, userPrompt, opts)
		// Reminders fire on fresh user input only for the first loop
		// iteration.
		userPrompt = ""

		resp, err := d.streamOnce(ctx, events)
		if err != nil {
			d.speculation.RollbackAll("stream error")
			events <- TurnEvent{Type: TurnError, Err: err}
			return
		}

		if usage := resp.Usage; usage != nil {
			totalUsage.Add(*usage)
			d.history.AddUsage(*usage)
		}

		calls := resp.ToolCalls()
		if len(calls) == 0 || resp.FinishReason != models.FinishToolCalls {
			// Commit the final assistant message and finish.
			if len(resp.Content) > 0 {
				d.history.Record(resp.IntoMessage(d.providerName(), d.modelName()))
			}
			d.metrics.TurnsTotal.Inc()
			d.maybeCompact(ctx)
			events <- TurnEvent{Type: TurnCompleted, Usage: totalUsage, FinishReason: resp.FinishReason}
			return
		}

		// The calls were proposed by a stream that has now closed; open a
		// speculation group over them, finalize the assistant message,
		// and commit the group. Effects run only after the commit, so
		// handlers checking IsSpeculative see a terminal group. A
		// mid-stream executor would run them while the group is still
		// pending and roll back on stream failure.
		callIDs := make([]string, len(calls))
		for i, call := range calls {
			callIDs[i] = call.ID
		}
		specID := d.speculation.StartSpeculation(callIDs)
		d.history.Record(resp.IntoMessage(d.providerName(), d.modelName()))
		d.speculation.Commit(specID)

		tctx := d.toolContext()
		outputs := d.dispatcher.ExecuteBatch(ctx, calls, tctx)

		// Results append in tool-call order, not completion order.
		resultBlocks := make([]models.ContentBlock, len(calls))
		for i, call := range calls {
			output := outputs[i]
			d.applyModifiers(output.Modifiers)
			resultBlocks[i] = models.ToolResultContentBlock(call.ID, output.Content, output.IsError)
			events <- TurnEvent{Type: TurnToolCallCompleted, ToolCall: &calls[i], ToolOutput: &outputs[i]}
		}
		d.history.Record(models.UserMessage(resultBlocks...))
		d.speculation.CleanupCompleted()
		d.metrics.TurnsTotal.Inc()
		d.maybeCompact(ctx)
	}
}

// streamOnce issues one provider request with retry and incremental
// resume, forwarding deltas as events and returning the collected
// response. PreviousResponseNotFound silently clears tracking and retries
// once with full history without consuming retry budget.
func (d *Driver) streamOnce(ctx context.Context, events chan<- TurnEvent) (*CollectedResponse, error) {
	retriedNotFound := false
	rc := retry.NewContext(d.config.Retry)

	for {
		resp, partial, err := d.attemptStream(ctx, events)
		if err == nil {
			return resp, nil
		}

		if status.CodeOf(err) == status.PreviousResponseNotFound && !retriedNotFound {
			slog.Debug("previous response not found; resending full history")
			d.history.ClearResponseTracking()
			retriedNotFound = true
			continue
		}

		decision := rc.Decide(err)
		if !decision.Retry {
			// Terminal failure: keep the partial assistant message only
			// when it carries at least one complete tool use.
			d.commitPartial(partial)
			return nil, err
		}
		d.metrics.ProviderRetries.Inc()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(decision.Delay):
		}
	}
}

func (d *Driver) attemptStream(ctx context.Context, events chan<- TurnEvent) (*CollectedResponse, []models.ContentBlock, error) {
	selection, ok := d.currentSelection()
	if !ok {
		return nil, nil, status.Errorf(status.MissingConfig, "session has no main model selection")
	}
	provider, err := d.providers.For(selection.Spec)
	if err != nil {
		return nil, nil, err
	}

	turnInput := BuildTurnInput(d.history.Messages(), d.history.LastResponseID(), provider.SupportsPreviousResponseID())
	if d.history.LastResponseID() != "" && !provider.SupportsPreviousResponseID() {
		slog.Debug("provider returned a response id but adapter does not support incremental resume; sending full history")
	}

	defs := selectToolDefinitions(d.toolRegistry, contextpkg.NewEstimator(),
		d.history.Budget().RemainingFor(contextpkg.CategoryToolDefinitions))

	inferenceCtx := InferenceContext{
		Selection: selection,
		ModelInfo: d.providers.ModelInfoFor(selection.Spec),
	}
	req := NewRequestBuilder(inferenceCtx).
		System(d.config.SystemPrompt).
		Messages(turnInput.Messages).
		Tools(defs).
		PreviousResponseID(turnInput.PreviousResponseID).
		Build()

	eventsCh, err := provider.Stream(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	stream := NewUnifiedStream(eventsCh)
	for {
		update := stream.Next()
		if update == nil {
			break
		}
		switch update.Type {
		case UpdateTextDelta:
			events <- TurnEvent{Type: TurnTextDelta, Delta: update.Delta}
		case UpdateThinkingDelta:
			events <- TurnEvent{Type: TurnThinkingDelta, Delta: update.Delta}
		case UpdateToolCallStart:
			events <- TurnEvent{Type: TurnToolCallStarted, ToolCall: &models.ToolCall{
				ID: update.ToolID, Name: update.ToolName,
			}}
		case UpdateError:
			return nil, stream.content, update.Err
		}
		if update.Type == UpdateResponseDone {
			break
		}
	}
	resp, err := stream.Collect()
	if err != nil {
		return nil, stream.content, err
	}
	return resp, nil, nil
}

// commitPartial persists a partial assistant message from a failed stream
// only when it carries at least one complete tool use; bare text fragments
// are discarded.
func (d *Driver) commitPartial(content []models.ContentBlock) {
	hasToolUse := false
	for _, block := range content {
		if block.Type == models.BlockToolUse {
			hasToolUse = true
			break
		}
	}
	if !hasToolUse {
		return
	}
	msg := models.Message{
		Role:           models.RoleAssistant,
		Content:        content,
		SourceProvider: d.providerName(),
		SourceModel:    d.modelName(),
	}
	d.history.Record(msg)
}

// injectReminders runs the pipeline and appends the rendered meta messages.
func (d *Driver) injectReminders(ctx context.Context, userPrompt string, opts TurnOptions) {
	budget := d.history.Budget()
	usage := d.history.Usage()
	info := &reminder.TokenUsageInfo{
		ContextUsagePercent: budget.Utilization() * 100,
		TotalSessionTokens:  usage.Total(),
		ContextCapacity:     int64(budget.TotalTokens),
		InputTokens:         usage.InputTokens,
		OutputTokens:        usage.OutputTokens,
		CacheReadTokens:     usage.CacheReadTokens,
		CacheWriteTokens:    usage.CacheCreationTokens,
	}

	var completedHooks []hooks.CompletedAsyncHook
	if d.hooks != nil {
		completedHooks = d.hooks.Async().TakeCompleted()
	}

	gctx := &reminder.GeneratorContext{
		Config:      &d.config.Reminders,
		TurnNumber:  d.turnNumber,
		IsMainAgent: opts.IsMainAgent,
		UserPrompt:  userPrompt,
		Cwd:         d.session.WorkingDir,
		TokenUsage:  info,
		Tasks:       d.tasks.List(),
		Files:       d.files,
		AsyncHooks:  completedHooks,
	}
	for _, r := range d.reminders.Run(ctx, gctx) {
		for _, msg := range r.Render() {
			d.history.Record(msg)
		}
	}
}

// maybeCompact runs compaction when the budget crosses the threshold.
func (d *Driver) maybeCompact(ctx context.Context) {
	if !d.compactor.ShouldRun(d.history) {
		return
	}
	result, err := d.compactor.Compact(ctx, d.history, d.config.SessionDir)
	if err != nil {
		slog.Warn("compaction failed", "error", err)
		return
	}
	if result != nil {
		d.metrics.Compactions.WithLabelValues(string(result.Tier)).Inc()
		slog.Debug("compacted history",
			"tier", result.Tier, "before", result.MessagesBefore, "after", result.MessagesAfter)
	}
}

// applyModifiers folds tool side effects back into session state.
func (d *Driver) applyModifiers(modifiers []models.ContextModifier) {
	for _, mod := range modifiers {
		switch mod.Kind {
		case models.ModifierFileRead:
			d.files.Track(mod.Path, mod.Content, mod.Content != "")
		case models.ModifierCwdChanged:
			d.mu.Lock()
			d.session.WorkingDir = mod.NewCwd
			d.mu.Unlock()
		}
	}
}

func (d *Driver) toolContext() *tools.Context {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return &tools.Context{
		SessionID:     d.session.ID,
		Cwd:           d.session.WorkingDir,
		SessionDir:    d.config.SessionDir,
		Sandbox:       d.config.Sandbox,
		Tasks:         d.tasks,
		IsSpeculative: d.speculation.IsSpeculative,
	}
}

func (d *Driver) currentSelection() (models.RoleSelection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.session.Selections.Main()
}

func (d *Driver) providerName() string {
	sel, _ := d.currentSelection()
	return sel.Spec.Provider
}

func (d *Driver) modelName() string {
	sel, _ := d.currentSelection()
	return sel.Spec.Model
}

// Cancel rolls back all speculative state. It does not stop an in-flight
// stream or tool batch; those stop only when the context passed to
// SubmitUserTurn is canceled.
func (d *Driver) Cancel() {
	d.speculation.RollbackAll("canceled")
}

// roleSummarizer summarizes via the Compact-role model, keeping the most
// recent tool results verbatim and asking the model to condense the rest.
type roleSummarizer struct {
	driver *Driver
}

func (s *roleSummarizer) Summarize(ctx context.Context, messages []models.Message) (string, error) {
	d := s.driver
	d.mu.RLock()
	selection, ok := d.session.Selections.GetOrMain(models.RoleModelCompact)
	d.mu.RUnlock()
	if !ok {
		return "", errors.New("no compact-role model configured")
	}
	provider, err := d.providers.For(selection.Spec)
	if err != nil {
		return "", err
	}

	prompt := "Summarize the conversation so far for continued work. Preserve: open tasks, " +
		"decisions made, file paths touched, and any constraints stated by the user. " +
		"Keep the most recent tool results verbatim where they are still load-bearing; " +
		"condense everything older. Respond with the summary only."

	input := append(append([]models.Message{}, messages...), models.UserText(prompt))
	inferenceCtx := InferenceContext{
		Selection: selection,
		ModelInfo: d.providers.ModelInfoFor(selection.Spec),
	}
	req := NewRequestBuilder(inferenceCtx).Messages(input).Build()

	eventsCh, err := provider.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	resp, err := NewUnifiedStream(eventsCh).Collect()
	if err != nil {
		return "", err
	}
	summary := resp.Text()
	if summary == "" {
		return "", fmt.Errorf("compact model returned empty summary")
	}
	return summary, nil
}
