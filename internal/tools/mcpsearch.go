package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cocodehq/cocode/pkg/models"
)

// McpSearchToolName is the name the synthetic search tool registers under.
const McpSearchToolName = "MCPSearch"

// McpSearchTool searches the shared MCP tool catalogue by keyword. It is
// registered in place of the full MCP tool list whenever the tool
// definitions would exceed the context budget, letting the model discover
// schemas on demand.
type McpSearchTool struct {
	registry *Registry
}

// NewMcpSearchTool creates the search tool over a registry's catalogue.
func NewMcpSearchTool(registry *Registry) *McpSearchTool {
	return &McpSearchTool{registry: registry}
}

func (t *McpSearchTool) Name() string { return McpSearchToolName }

func (t *McpSearchTool) Description() string {
	return "Search for MCP tools by keyword when the full tool list exceeds context budget. " +
		"Returns matching tool names, descriptions, and input schemas."
}

func (t *McpSearchTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "Search query to match against tool names and descriptions"
			},
			"server": {
				"type": "string",
				"description": "Optional server name to filter results"
			}
		},
		"required": ["query"]
	}`)
}

func (t *McpSearchTool) ConcurrencySafety() models.ConcurrencySafety {
	return models.ConcurrencySafe
}

func (t *McpSearchTool) IsReadOnly() bool { return true }

func (t *McpSearchTool) Execute(_ context.Context, input json.RawMessage, _ *Context) (models.ToolOutput, error) {
	var params struct {
		Query  string `json:"query"`
		Server string `json:"server"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return models.ErrorOutput("invalid input: " + err.Error()), nil
	}
	query := strings.ToLower(params.Query)

	catalogue := t.registry.McpCatalogue()
	var matches []McpToolInfo
	for _, info := range catalogue {
		if params.Server != "" && info.Server != params.Server {
			continue
		}
		nameMatch := strings.Contains(strings.ToLower(info.Tool.Name), query) ||
			strings.Contains(strings.ToLower(info.QualifiedName()), query)
		descMatch := strings.Contains(strings.ToLower(info.Tool.Description), query)
		if nameMatch || descMatch {
			matches = append(matches, info)
		}
	}

	// Name matches rank above description-only matches.
	sort.SliceStable(matches, func(i, j int) bool {
		iName := strings.Contains(strings.ToLower(matches[i].Tool.Name), query)
		jName := strings.Contains(strings.ToLower(matches[j].Tool.Name), query)
		return iName && !jName
	})

	if len(matches) == 0 {
		return models.TextOutput(fmt.Sprintf(
			"No MCP tools found matching query: %q. Try a different search term.", query)), nil
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Found %d MCP tool(s) matching %q:\n\n", len(matches), query)
	for _, info := range matches {
		fmt.Fprintf(&out, "## %s\n", info.QualifiedName())
		fmt.Fprintf(&out, "Server: %s\n", info.Server)
		if info.Tool.Description != "" {
			fmt.Fprintf(&out, "Description: %s\n", info.Tool.Description)
		}
		schema, err := json.MarshalIndent(info.Tool.InputSchema, "", "  ")
		if err != nil {
			schema = []byte("{}")
		}
		fmt.Fprintf(&out, "Schema: %s\n\n", schema)
	}
	return models.TextOutput(out.String()), nil
}
