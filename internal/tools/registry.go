package tools

import (
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

// McpToolInfo is one entry in the shared MCP tool catalogue. The catalogue
// is consulted by the MCPSearch tool when the full MCP tool list would
// exceed the definition budget.
type McpToolInfo struct {
	// Server is the MCP server the tool came from.
	Server string
	// Tool is the MCP tool metadata (name, description, input schema).
	Tool mcp.Tool
}

// QualifiedName returns "server__name", the form the model calls.
func (i McpToolInfo) QualifiedName() string {
	return i.Server + "__" + i.Tool.Name
}

// Registry maps tool names to handlers. Read-mostly after session start;
// registration takes the write lock.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string

	mcpCatalogue []McpToolInfo
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any tool with the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; !exists {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		return
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Tools returns all tools in registration order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Filtered returns a new registry containing the intersection of allowed
// (empty means all) minus disallowed. Used when building subagent
// toolsets.
func (r *Registry) Filtered(allowed, disallowed []string) *Registry {
	allowSet := make(map[string]bool, len(allowed))
	for _, n := range allowed {
		allowSet[n] = true
	}
	denySet := make(map[string]bool, len(disallowed))
	for _, n := range disallowed {
		denySet[n] = true
	}

	out := NewRegistry()
	for _, tool := range r.Tools() {
		name := tool.Name()
		if len(allowed) > 0 && !allowSet[name] {
			continue
		}
		if denySet[name] {
			continue
		}
		out.Register(tool)
	}
	return out
}

// SetMcpCatalogue replaces the shared MCP catalogue.
func (r *Registry) SetMcpCatalogue(infos []McpToolInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mcpCatalogue = infos
}

// McpCatalogue returns a copy of the catalogue.
func (r *Registry) McpCatalogue() []McpToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]McpToolInfo, len(r.mcpCatalogue))
	copy(out, r.mcpCatalogue)
	return out
}
