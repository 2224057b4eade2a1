// Package tools defines the tool contract, the name-keyed registry with its
// MCP catalogue, schema validation for tool inputs, and large-result
// persistence.
package tools

import (
	"context"
	"encoding/json"

	"github.com/cocodehq/cocode/internal/sandbox"
	"github.com/cocodehq/cocode/internal/tasks"
	"github.com/cocodehq/cocode/pkg/models"
)

// Tool is one invocable capability exposed to the model.
type Tool interface {
	// Name is the identifier the model calls.
	Name() string

	// Description tells the model what the tool does.
	Description() string

	// InputSchema is the JSON Schema the input is validated against.
	InputSchema() json.RawMessage

	// ConcurrencySafety declares whether the tool may run in parallel
	// with other safe tools in the same batch.
	ConcurrencySafety() models.ConcurrencySafety

	// IsReadOnly reports whether the tool mutates nothing.
	IsReadOnly() bool

	// Execute runs the tool. Handler failures are reported through the
	// output's IsError, not the error return, so the turn can continue;
	// the error return is for infrastructure failures only.
	Execute(ctx context.Context, input json.RawMessage, tctx *Context) (models.ToolOutput, error)
}

// ResultSizer is implemented by tools that override the global persistence
// threshold.
type ResultSizer interface {
	MaxResultSizeChars() int
}

// Context is the per-call handle a tool executes against, valid only for
// the duration of one Execute call.
type Context struct {
	CallID    string
	SessionID string
	Cwd       string
	// SessionDir holds per-session artifacts (tool-results, memory).
	SessionDir string

	Sandbox *sandbox.Checker
	Tasks   *tasks.Registry

	// IsSpeculative reports whether the call belongs to an uncommitted
	// speculation group; tools defer irreversible effects when true.
	IsSpeculative func(callID string) bool
}

// Speculative reports whether this call is speculative.
func (c *Context) Speculative() bool {
	return c.IsSpeculative != nil && c.IsSpeculative(c.CallID)
}

// Definition converts a tool to its provider-facing definition.
func Definition(t Tool) models.ToolDefinition {
	return models.ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
	}
}
