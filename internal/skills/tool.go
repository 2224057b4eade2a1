package skills

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cocodehq/cocode/internal/tools"
	"github.com/cocodehq/cocode/pkg/models"
)

// SkillToolName is the name the skill-invocation tool registers under.
const SkillToolName = "Skill"

// SkillTool exposes skill invocation to the model. Its output is the
// expanded skill prompt, which reaches the model as an ordinary tool result.
type SkillTool struct {
	manager *Manager
}

// NewSkillTool creates the tool over a manager.
func NewSkillTool(manager *Manager) *SkillTool {
	return &SkillTool{manager: manager}
}

func (t *SkillTool) Name() string { return SkillToolName }

func (t *SkillTool) Description() string {
	return "Invoke a skill by name. Skills are packaged instructions for specific workflows. " +
		"Pass optional args to parameterize the skill."
}

func (t *SkillTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"skill": {
				"type": "string",
				"description": "Name of the skill to invoke"
			},
			"args": {
				"type": "string",
				"description": "Optional arguments passed to the skill"
			}
		},
		"required": ["skill"]
	}`)
}

func (t *SkillTool) ConcurrencySafety() models.ConcurrencySafety {
	return models.ConcurrencySafe
}

func (t *SkillTool) IsReadOnly() bool { return true }

func (t *SkillTool) Execute(_ context.Context, input json.RawMessage, _ *tools.Context) (models.ToolOutput, error) {
	var params struct {
		Skill string `json:"skill"`
		Args  string `json:"args"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return models.ErrorOutput("invalid input: " + err.Error()), nil
	}

	skill, ok := t.manager.Get(params.Skill)
	if !ok {
		return models.ErrorOutput(fmt.Sprintf("unknown skill %q", params.Skill)), nil
	}
	if skill.DisableModelInvocation {
		return models.ErrorOutput(fmt.Sprintf(
			"skill %q cannot be invoked by the model", params.Skill)), nil
	}

	return models.TextOutput(skill.ExpandPrompt(params.Args)), nil
}
