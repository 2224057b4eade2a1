package reminder

import (
	"context"
	"fmt"
	"strings"
)

// AsyncHooksGenerator surfaces completed async hook results, including
// whether a late decision would have blocked the operation.
type AsyncHooksGenerator struct{}

func (g *AsyncHooksGenerator) Name() string                 { return "AsyncHooksGenerator" }
func (g *AsyncHooksGenerator) AttachmentType() AttachmentType { return AttachmentAsyncHooks }
func (g *AsyncHooksGenerator) Tier() Tier                   { return TierMainAgentOnly }
func (g *AsyncHooksGenerator) Throttle() ThrottleConfig     { return NoThrottle() }

func (g *AsyncHooksGenerator) IsEnabled(config *Config) bool {
	return config.Attachments.AsyncHooks
}

func (g *AsyncHooksGenerator) Generate(_ context.Context, gctx *GeneratorContext) (*Reminder, error) {
	if len(gctx.AsyncHooks) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("## Completed Background Hooks\n\n")
	for _, hook := range gctx.AsyncHooks {
		fmt.Fprintf(&sb, "- %s (%dms)", hook.HookName, hook.DurationMS)
		if hook.WasBlocking {
			fmt.Fprintf(&sb, " — would have blocked: %s", hook.BlockingReason)
		}
		if hook.AdditionalContext != "" {
			fmt.Fprintf(&sb, "\n  %s", hook.AdditionalContext)
		}
		sb.WriteString("\n")
	}
	return NewTextReminder(AttachmentAsyncHooks, strings.TrimRight(sb.String(), "\n")), nil
}
