package reminder

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var agentMentionPattern = regexp.MustCompile(`@agent-([\w-]+)`)

// ParseAgentMentions extracts @agent-<type> mentions from a prompt.
func ParseAgentMentions(prompt string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range agentMentionPattern.FindAllStringSubmatch(prompt, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// AgentMentionsGenerator turns @agent-* mentions into invocation
// instructions.
type AgentMentionsGenerator struct{}

func (g *AgentMentionsGenerator) Name() string                 { return "AgentMentionsGenerator" }
func (g *AgentMentionsGenerator) AttachmentType() AttachmentType { return AttachmentAgentMentions }
func (g *AgentMentionsGenerator) Tier() Tier                   { return TierUserPrompt }
func (g *AgentMentionsGenerator) Throttle() ThrottleConfig     { return NoThrottle() }

func (g *AgentMentionsGenerator) IsEnabled(config *Config) bool {
	return config.Attachments.AgentMentions
}

func (g *AgentMentionsGenerator) Generate(_ context.Context, gctx *GeneratorContext) (*Reminder, error) {
	mentions := ParseAgentMentions(gctx.UserPrompt)
	if len(mentions) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for _, agentType := range mentions {
		fmt.Fprintf(&sb,
			"The user has expressed a desire to invoke the agent %q. "+
				"Please invoke the agent appropriately, passing in the required context to it.\n\n",
			agentType)
	}
	return NewTextReminder(AttachmentAgentMentions, strings.TrimSpace(sb.String())), nil
}
