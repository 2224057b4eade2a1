package agent

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cocodehq/cocode/internal/hooks"
	"github.com/cocodehq/cocode/internal/tools"
	"github.com/cocodehq/cocode/pkg/models"
)

// fakeTool is a configurable test tool.
type fakeTool struct {
	name    string
	safety  models.ConcurrencySafety
	delay   time.Duration
	execute func(input json.RawMessage) models.ToolOutput

	running    atomic.Int32
	maxRunning atomic.Int32
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "test tool" }
func (f *fakeTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object"}`)
}
func (f *fakeTool) ConcurrencySafety() models.ConcurrencySafety { return f.safety }
func (f *fakeTool) IsReadOnly() bool                            { return true }

func (f *fakeTool) Execute(_ context.Context, input json.RawMessage, _ *tools.Context) (models.ToolOutput, error) {
	n := f.running.Add(1)
	for {
		max := f.maxRunning.Load()
		if n <= max || f.maxRunning.CompareAndSwap(max, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.running.Add(-1)
	if f.execute != nil {
		return f.execute(input), nil
	}
	return models.TextOutput("ok from " + f.name), nil
}

func testDispatcher(t *testing.T, toolList ...tools.Tool) (*Dispatcher, *tools.Registry) {
	t.Helper()
	registry := tools.NewRegistry()
	for _, tool := range toolList {
		registry.Register(tool)
	}
	config := DefaultDispatcherConfig()
	config.Persistence.Enabled = false
	return NewDispatcher(registry, nil, config, nil), registry
}

func TestDispatcher_ResultsInCallOrder(t *testing.T) {
	slow := &fakeTool{name: "slow", safety: models.ConcurrencySafe, delay: 50 * time.Millisecond,
		execute: func(json.RawMessage) models.ToolOutput { return models.TextOutput("slow result") }}
	fast := &fakeTool{name: "fast", safety: models.ConcurrencySafe,
		execute: func(json.RawMessage) models.ToolOutput { return models.TextOutput("fast result") }}
	d, _ := testDispatcher(t, slow, fast)

	calls := []models.ToolCall{
		{ID: "c1", Name: "slow", Input: json.RawMessage(`{}`)},
		{ID: "c2", Name: "fast", Input: json.RawMessage(`{}`)},
	}
	outputs := d.ExecuteBatch(context.Background(), calls, &tools.Context{SessionDir: t.TempDir()})

	// The slow call finished last but its output comes first.
	if outputs[0].Content.ToText() != "slow result" {
		t.Errorf("outputs[0] = %q", outputs[0].Content.ToText())
	}
	if outputs[1].Content.ToText() != "fast result" {
		t.Errorf("outputs[1] = %q", outputs[1].Content.ToText())
	}
}

func TestDispatcher_SafeToolsRunConcurrently(t *testing.T) {
	tool := &fakeTool{name: "par", safety: models.ConcurrencySafe, delay: 30 * time.Millisecond}
	d, _ := testDispatcher(t, tool)

	calls := make([]models.ToolCall, 4)
	for i := range calls {
		calls[i] = models.ToolCall{ID: string(rune('a' + i)), Name: "par", Input: json.RawMessage(`{}`)}
	}
	d.ExecuteBatch(context.Background(), calls, &tools.Context{SessionDir: t.TempDir()})

	if tool.maxRunning.Load() < 2 {
		t.Errorf("max concurrent = %d, want >= 2", tool.maxRunning.Load())
	}
}

func TestDispatcher_UnsafeToolSerializes(t *testing.T) {
	unsafe := &fakeTool{name: "mut", safety: models.ConcurrencyUnsafe, delay: 20 * time.Millisecond}
	d, _ := testDispatcher(t, unsafe)

	calls := make([]models.ToolCall, 3)
	for i := range calls {
		calls[i] = models.ToolCall{ID: string(rune('a' + i)), Name: "mut", Input: json.RawMessage(`{}`)}
	}
	d.ExecuteBatch(context.Background(), calls, &tools.Context{SessionDir: t.TempDir()})

	if unsafe.maxRunning.Load() != 1 {
		t.Errorf("max concurrent = %d, want 1 for unsafe tool", unsafe.maxRunning.Load())
	}
}

func TestDispatcher_UnknownTool(t *testing.T) {
	d, _ := testDispatcher(t)
	outputs := d.ExecuteBatch(context.Background(),
		[]models.ToolCall{{ID: "c1", Name: "nope", Input: json.RawMessage(`{}`)}},
		&tools.Context{SessionDir: t.TempDir()})

	if !outputs[0].IsError {
		t.Error("unknown tool should yield error output")
	}
	if !strings.Contains(outputs[0].Content.ToText(), "unknown tool") {
		t.Errorf("output = %q", outputs[0].Content.ToText())
	}
}

func TestDispatcher_SchemaValidation(t *testing.T) {
	strict := &fakeTool{name: "strict", safety: models.ConcurrencySafe}
	registry := tools.NewRegistry()
	registry.Register(&schemaTool{inner: strict})
	config := DefaultDispatcherConfig()
	config.Persistence.Enabled = false
	d := NewDispatcher(registry, nil, config, nil)

	outputs := d.ExecuteBatch(context.Background(),
		[]models.ToolCall{{ID: "c1", Name: "strict", Input: json.RawMessage(`{"wrong": 1}`)}},
		&tools.Context{SessionDir: t.TempDir()})
	if !outputs[0].IsError {
		t.Error("input failing schema validation should error")
	}
}

// schemaTool wraps a fakeTool with a required-field schema.
type schemaTool struct {
	inner *fakeTool
}

func (s *schemaTool) Name() string        { return s.inner.name }
func (s *schemaTool) Description() string { return "strict" }
func (s *schemaTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`)
}
func (s *schemaTool) ConcurrencySafety() models.ConcurrencySafety { return models.ConcurrencySafe }
func (s *schemaTool) IsReadOnly() bool                            { return true }
func (s *schemaTool) Execute(ctx context.Context, input json.RawMessage, tctx *tools.Context) (models.ToolOutput, error) {
	return s.inner.Execute(ctx, input, tctx)
}

func TestDispatcher_PreHookReject(t *testing.T) {
	tool := &fakeTool{name: "guarded", safety: models.ConcurrencySafe}
	registry := tools.NewRegistry()
	registry.Register(tool)

	hookRegistry := hooks.NewRegistry([]hooks.Definition{{
		Name:      "deny-guarded",
		EventType: hooks.EventPreToolUse,
		Matcher:   &hooks.Matcher{Kind: hooks.MatchExact, Pattern: "guarded"},
		Handler: hooks.Handler{Kind: hooks.HandlerInline, Fn: func(*hooks.Event) hooks.Outcome {
			return hooks.Reject("policy says no")
		}},
		Enabled: true,
	}})

	config := DefaultDispatcherConfig()
	config.Persistence.Enabled = false
	d := NewDispatcher(registry, hookRegistry, config, nil)

	outputs := d.ExecuteBatch(context.Background(),
		[]models.ToolCall{{ID: "c1", Name: "guarded", Input: json.RawMessage(`{}`)}},
		&tools.Context{SessionDir: t.TempDir()})

	if !outputs[0].IsError {
		t.Fatal("rejected call should error")
	}
	if !strings.Contains(outputs[0].Content.ToText(), "policy says no") {
		t.Errorf("output should carry the hook reason, got %q", outputs[0].Content.ToText())
	}
}

func TestDispatcher_PanicBecomesErrorOutput(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&panicTool{})
	config := DefaultDispatcherConfig()
	config.Persistence.Enabled = false
	d := NewDispatcher(registry, nil, config, nil)

	outputs := d.ExecuteBatch(context.Background(),
		[]models.ToolCall{{ID: "c1", Name: "boom", Input: json.RawMessage(`{}`)}},
		&tools.Context{SessionDir: t.TempDir()})
	if !outputs[0].IsError {
		t.Error("panicking tool should yield error output, not crash")
	}
}

type panicTool struct{}

func (p *panicTool) Name() string                  { return "boom" }
func (p *panicTool) Description() string           { return "panics" }
func (p *panicTool) InputSchema() json.RawMessage  { return json.RawMessage(`{"type":"object"}`) }
func (p *panicTool) ConcurrencySafety() models.ConcurrencySafety { return models.ConcurrencySafe }
func (p *panicTool) IsReadOnly() bool              { return true }
func (p *panicTool) Execute(context.Context, json.RawMessage, *tools.Context) (models.ToolOutput, error) {
	panic("kaboom")
}
