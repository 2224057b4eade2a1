package reminder

import (
	"context"
	"fmt"
	"strings"
)

// Usage thresholds for warnings.
const (
	highContextThreshold     = 80.0
	criticalContextThreshold = 95.0
)

// TokenUsageGenerator reports session token consumption so the model can
// budget its remaining context. Fires every 10 turns, but high usage
// overrides the throttle.
type TokenUsageGenerator struct{}

func (g *TokenUsageGenerator) Name() string                 { return "TokenUsageGenerator" }
func (g *TokenUsageGenerator) AttachmentType() AttachmentType { return AttachmentTokenUsage }
func (g *TokenUsageGenerator) Tier() Tier                   { return TierCore }

// Throttle is self-managed in Generate: the periodic report obeys a
// 10-turn cadence, but high usage always reports.
func (g *TokenUsageGenerator) Throttle() ThrottleConfig { return NoThrottle() }

func (g *TokenUsageGenerator) IsEnabled(config *Config) bool {
	return config.Attachments.TokenUsage
}

func (g *TokenUsageGenerator) Generate(_ context.Context, gctx *GeneratorContext) (*Reminder, error) {
	usage := gctx.TokenUsage
	if usage == nil {
		return nil, nil
	}
	highUsage := usage.ContextUsagePercent >= highContextThreshold
	if !highUsage && gctx.TurnNumber%10 != 0 {
		return nil, nil
	}

	lines := []string{"## Token Usage"}
	switch {
	case usage.ContextUsagePercent >= criticalContextThreshold:
		lines = append(lines, fmt.Sprintf(
			"\n**CRITICAL: Context usage at %.1f%%** - Consider summarizing the conversation",
			usage.ContextUsagePercent))
	case usage.ContextUsagePercent >= highContextThreshold:
		lines = append(lines, fmt.Sprintf(
			"\n**Warning: Context usage at %.1f%%** - Be mindful of context limits",
			usage.ContextUsagePercent))
	default:
		lines = append(lines, fmt.Sprintf("\nContext usage: %.1f%%", usage.ContextUsagePercent))
	}

	lines = append(lines, fmt.Sprintf("- Session tokens: %s / %s",
		formatTokens(usage.TotalSessionTokens), formatTokens(usage.ContextCapacity)))
	if usage.InputTokens > 0 || usage.OutputTokens > 0 {
		lines = append(lines, fmt.Sprintf("- This turn: %s input, %s output",
			formatTokens(usage.InputTokens), formatTokens(usage.OutputTokens)))
	}
	if usage.CacheReadTokens > 0 {
		lines = append(lines, fmt.Sprintf("- Cache: %s read, %s write",
			formatTokens(usage.CacheReadTokens), formatTokens(usage.CacheWriteTokens)))
	}

	return NewTextReminder(AttachmentTokenUsage, strings.Join(lines, "\n")), nil
}

// formatTokens renders counts as 1.2K / 3.4M for readability.
func formatTokens(tokens int64) string {
	switch {
	case tokens >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(tokens)/1_000_000)
	case tokens >= 1_000:
		return fmt.Sprintf("%.1fK", float64(tokens)/1_000)
	default:
		return fmt.Sprintf("%d", tokens)
	}
}
