package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AgentRunner executes a deferred agent-handler verification and returns
// its terminal outcome. The session driver injects one backed by the
// subagent executor; without a runner, agent handlers pass through.
type AgentRunner func(ctx context.Context, def Definition, event *Event) Outcome

// Registry holds the active hook set and dispatches events. One-shot hooks
// are removed from the active set after a successful invocation.
type Registry struct {
	mu    sync.Mutex
	hooks []activeHook

	async       *AsyncTracker
	agentRunner AgentRunner
	httpClient  *http.Client
}

type activeHook struct {
	def Definition
	id  string
}

// NewRegistry creates a registry over an aggregated hook set.
func NewRegistry(defs []Definition) *Registry {
	r := &Registry{
		async:      NewAsyncTracker(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, def := range defs {
		r.hooks = append(r.hooks, activeHook{def: def, id: uuid.NewString()})
	}
	return r
}

// Async returns the tracker for async hook completions.
func (r *Registry) Async() *AsyncTracker { return r.async }

// SetAgentRunner installs the runner that executes deferred agent-handler
// verifications.
func (r *Registry) SetAgentRunner(runner AgentRunner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agentRunner = runner
}

func (r *Registry) currentAgentRunner() AgentRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agentRunner
}

// ActiveCount returns the number of hooks still in the active set.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}

// Dispatch fires every enabled, matching hook for the event in priority
// order and folds the outcomes:
//   - the first Reject wins and stops dispatch
//   - additional contexts concatenate
//   - the last rewritten input wins
//   - async outcomes register with the tracker and continue
func (r *Registry) Dispatch(ctx context.Context, event *Event) Outcome {
	r.mu.Lock()
	matching := make([]activeHook, 0, len(r.hooks))
	for _, h := range r.hooks {
		if !h.def.Enabled || h.def.EventType != event.Type {
			continue
		}
		if !h.def.Matcher.Matches(event.Subject()) {
			continue
		}
		matching = append(matching, h)
	}
	r.mu.Unlock()

	var contexts []string
	var rewritten []byte
	for _, h := range matching {
		outcome, ok := r.invoke(ctx, h.def, event)
		if ok && h.def.Once {
			r.remove(h.id)
		}
		switch outcome.Kind {
		case OutcomeReject:
			return outcome
		case OutcomeContinueWithContext:
			if outcome.AdditionalContext != "" {
				contexts = append(contexts, outcome.AdditionalContext)
			}
		case OutcomeAsync:
			// The producing handler registered the task and owns its
			// completion; dispatch just passes through.
		}
		if outcome.RewrittenInput != nil {
			rewritten = outcome.RewrittenInput
		}
	}

	result := Continue()
	if len(contexts) > 0 {
		result = ContinueWithContext(strings.Join(contexts, "\n"))
	}
	result.RewrittenInput = rewritten
	return result
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, h := range r.hooks {
		if h.id == id {
			r.hooks = append(r.hooks[:i], r.hooks[i+1:]...)
			return
		}
	}
}

// invoke runs one hook handler with its timeout. The bool result reports
// success (used for once-removal): timeouts and failures do not count.
func (r *Registry) invoke(ctx context.Context, def Definition, event *Event) (Outcome, bool) {
	timeout := time.Duration(def.EffectiveTimeoutSecs()) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch def.Handler.Kind {
	case HandlerInline:
		if def.Handler.Fn == nil {
			return Continue(), false
		}
		return def.Handler.Fn(event), true

	case HandlerCommand:
		return r.invokeCommand(ctx, def, event)

	case HandlerPrompt:
		// Template expansion only; a configured model is accepted but
		// no nested LLM call is made.
		contextJSON, _ := json.Marshal(event)
		expanded := strings.ReplaceAll(def.Handler.Template, "$ARGUMENTS", string(contextJSON))
		if expanded == "" {
			return Continue(), true
		}
		return ContinueWithContext(expanded), true

	case HandlerAgent:
		// Agent verification is deferred: the runner executes off the
		// dispatch path and its terminal outcome is surfaced later
		// through the reminder pipeline.
		runner := r.currentAgentRunner()
		if runner == nil {
			return Continue(), true
		}
		taskID := "hook-" + uuid.NewString()[:8]
		r.async.Register(taskID, def.Name)
		go func() {
			actx, acancel := context.WithTimeout(context.Background(), timeout)
			defer acancel()
			outcome := runner(actx, def, event)
			if outcome.Kind == OutcomeAsync {
				outcome = Continue()
			}
			r.async.Complete(taskID, outcome)
		}()
		return Async(taskID), true

	case HandlerWebhook:
		return r.invokeWebhook(ctx, def, event)

	default:
		return Continue(), false
	}
}

// commandOutcome is the JSON a command hook may print on stdout.
type commandOutcome struct {
	Decision          string `json:"decision,omitempty"`
	Reason            string `json:"reason,omitempty"`
	AdditionalContext string `json:"additional_context,omitempty"`
	Async             bool   `json:"async,omitempty"`
	TaskID            string `json:"task_id,omitempty"`
	RewrittenInput    any    `json:"rewritten_input,omitempty"`
}

func (r *Registry) invokeCommand(ctx context.Context, def Definition, event *Event) (Outcome, bool) {
	eventJSON, _ := json.Marshal(event)
	outcome, ok := r.runCommandPhase(ctx, def, eventJSON)
	if !ok || outcome.Kind != OutcomeAsync {
		return outcome, ok
	}

	// The command asked for deferred execution: re-run it off the
	// dispatch path with the async-result phase marked, and record its
	// terminal outcome for the reminder pipeline.
	r.async.Register(outcome.TaskID, def.Name)
	go r.runAsyncFollowUp(def, event, outcome.TaskID)
	return outcome, true
}

// runCommandPhase executes the hook command once with the given payload on
// stdin and parses its stdout into an outcome.
func (r *Registry) runCommandPhase(ctx context.Context, def Definition, payload []byte) (Outcome, bool) {
	cmd := exec.CommandContext(ctx, def.Handler.Command, def.Handler.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			slog.Warn("hook timed out", "hook", def.Name)
			return Continue(), false
		}
		// Non-zero exit blocks the operation, mirroring command hook
		// conventions.
		return Reject("hook " + def.Name + " exited non-zero"), true
	}

	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return Continue(), true
	}
	var parsed commandOutcome
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		// Plain text output becomes additional context.
		return ContinueWithContext(string(trimmed)), true
	}
	switch {
	case parsed.Decision == "block" || parsed.Decision == "reject":
		return Reject(parsed.Reason), true
	case parsed.Async:
		taskID := parsed.TaskID
		if taskID == "" {
			taskID = "hook-" + uuid.NewString()[:8]
		}
		return Async(taskID), true
	}
	outcome := Continue()
	if parsed.AdditionalContext != "" {
		outcome = ContinueWithContext(parsed.AdditionalContext)
	}
	if parsed.RewrittenInput != nil {
		if raw, err := json.Marshal(parsed.RewrittenInput); err == nil {
			outcome.RewrittenInput = raw
		}
	}
	return outcome, true
}

// runAsyncFollowUp re-invokes the command with "async_phase": "result" in
// the event extras and completes the tracked task with the parsed terminal
// outcome. A follow-up may not defer again; a second async request
// terminates as Continue.
func (r *Registry) runAsyncFollowUp(def Definition, event *Event, taskID string) {
	timeout := time.Duration(def.EffectiveTimeoutSecs()) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	followUp := *event
	extra := make(map[string]any, len(event.Extra)+1)
	for k, v := range event.Extra {
		extra[k] = v
	}
	extra["async_phase"] = "result"
	followUp.Extra = extra

	payload, _ := json.Marshal(&followUp)
	outcome, _ := r.runCommandPhase(ctx, def, payload)
	if outcome.Kind == OutcomeAsync {
		outcome = Continue()
	}
	r.async.Complete(taskID, outcome)
}

func (r *Registry) invokeWebhook(ctx context.Context, def Definition, event *Event) (Outcome, bool) {
	eventJSON, _ := json.Marshal(event)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, def.Handler.URL, bytes.NewReader(eventJSON))
	if err != nil {
		return Continue(), false
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.httpClient.Do(req)
	if err != nil {
		slog.Warn("webhook hook failed", "hook", def.Name, "error", err)
		return Continue(), false
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusForbidden {
		return Reject("webhook " + def.Name + " rejected the operation"), true
	}
	return Continue(), true
}
