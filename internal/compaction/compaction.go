// Package compaction keeps the conversation history inside the context
// budget. Three tiers run from cheapest to most expensive: micro-compaction
// replaces large already-answered tool results with archive placeholders,
// session memory maintains a rolling summary file, and full compaction
// summarizes everything but the most recent messages via the Compact-role
// model.
package compaction

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	contextpkg "github.com/cocodehq/cocode/internal/context"
	"github.com/cocodehq/cocode/pkg/models"
)

// Tier names a compaction tier.
type Tier string

const (
	TierMicro         Tier = "micro"
	TierSessionMemory Tier = "session_memory"
	TierFull          Tier = "full"
)

// microCompactThresholdChars is the minimum tool result size eligible for
// micro-compaction.
const microCompactThresholdChars = 2000

// Config controls compaction behavior.
type Config struct {
	// Disabled turns all tiers off.
	Disabled bool
	// AutoCompactPct triggers compaction at this utilization.
	AutoCompactPct float64
	// MinMessagesToKeep survive full compaction verbatim.
	MinMessagesToKeep int
	// MicroCompactMinSavings is the minimum character savings for a
	// micro-compaction pass to end compaction on its own. The pass always
	// runs; below this the next tier runs as well.
	MicroCompactMinSavings int
	// RecentToolResultsToKeep is carried for configuration; no tier reads
	// it. Full compaction keeps the last MinMessagesToKeep messages
	// verbatim and does not single out tool results.
	RecentToolResultsToKeep int
	// MaxSummaryRetries bounds summarizer attempts.
	MaxSummaryRetries int
	// SessionMemory configures the rolling-summary tier.
	SessionMemory SessionMemoryConfig
}

// SessionMemoryConfig controls the session-memory tier.
type SessionMemoryConfig struct {
	Enabled bool
	// SummaryPath overrides the default summary file location.
	SummaryPath string
	// MinSavingsTokens gates the tier: below this the tier is skipped.
	MinSavingsTokens int
}

// DefaultConfig returns the compaction defaults.
func DefaultConfig() Config {
	return Config{
		AutoCompactPct:          0.8,
		MinMessagesToKeep:       4,
		MicroCompactMinSavings:  2000,
		RecentToolResultsToKeep: 3,
		MaxSummaryRetries:       2,
		SessionMemory: SessionMemoryConfig{
			MinSavingsTokens: 10_000,
		},
	}
}

// ShouldCompact reports whether usage against a window crosses the
// threshold. Degenerate windows never compact.
func ShouldCompact(used, max int, threshold float64) bool {
	if max <= 0 {
		return false
	}
	return float64(used) >= float64(max)*threshold
}

// Summarizer produces a summary of a message span, typically by calling
// the Compact-role model.
type Summarizer interface {
	Summarize(ctx context.Context, messages []models.Message) (string, error)
}

// Result describes what a compaction pass did.
type Result struct {
	Tier         Tier
	MessagesBefore int
	MessagesAfter  int
	// SavedChars approximates reclaimed history size.
	SavedChars int
}

// Engine runs tiered compaction against a history.
type Engine struct {
	config     Config
	summarizer Summarizer
}

// NewEngine creates an engine. A nil summarizer disables the full tier.
func NewEngine(config Config, summarizer Summarizer) *Engine {
	return &Engine{config: config, summarizer: summarizer}
}

// ShouldRun reports whether the history's budget utilization calls for
// compaction.
func (e *Engine) ShouldRun(history *contextpkg.History) bool {
	if e.config.Disabled {
		return false
	}
	budget := history.Budget()
	return ShouldCompact(budget.TotalUsed(), budget.InputBudget(), e.config.AutoCompactPct)
}

// Compact runs the cheapest sufficient tier. Micro-compaction runs first;
// if pressure persists and session memory is enabled that tier runs; full
// summarization is the last resort. The history swap and response-tracking
// clear are one atomic operation on the history.
func (e *Engine) Compact(ctx context.Context, history *contextpkg.History, sessionDir string) (*Result, error) {
	if e.config.Disabled {
		return nil, nil
	}

	before := history.Len()

	if saved := e.microCompact(history, sessionDir); saved >= e.config.MicroCompactMinSavings {
		if !e.ShouldRun(history) {
			return &Result{Tier: TierMicro, MessagesBefore: before, MessagesAfter: history.Len(), SavedChars: saved}, nil
		}
	}

	if e.config.SessionMemory.Enabled {
		result, err := e.sessionMemoryCompact(ctx, history, sessionDir)
		if err != nil {
			slog.Warn("session-memory compaction failed, falling through to full", "error", err)
		} else if result != nil {
			result.MessagesBefore = before
			return result, nil
		}
	}

	return e.fullCompact(ctx, history, before)
}

// MicroCompactCandidates returns indexes of messages whose tool results
// exceed the size threshold and already have an assistant reply after them.
func MicroCompactCandidates(messages []models.Message) []int {
	var candidates []int
	for i, msg := range messages {
		results := msg.ToolResults()
		if len(results) == 0 {
			continue
		}
		size := 0
		for _, tr := range results {
			size += tr.Content.Len()
		}
		if size <= microCompactThresholdChars {
			continue
		}
		// Only compact results the model has already replied to.
		answered := false
		for _, later := range messages[i+1:] {
			if later.Role == models.RoleAssistant && !later.IsMeta {
				answered = true
				break
			}
		}
		if answered {
			candidates = append(candidates, i)
		}
	}
	return candidates
}

// microCompact archives candidate tool results to disk and substitutes
// placeholders. Returns the characters saved.
func (e *Engine) microCompact(history *contextpkg.History, sessionDir string) int {
	messages := history.Messages()
	saved := 0
	for _, idx := range MicroCompactCandidates(messages) {
		msg := messages[idx]
		replaced := msg
		replaced.Content = make([]models.ContentBlock, len(msg.Content))
		copy(replaced.Content, msg.Content)

		changed := false
		for bi, block := range replaced.Content {
			if block.Type != models.BlockToolResult {
				continue
			}
			tr := block.ToolResult
			content := tr.Content.ToText()
			if len(content) <= microCompactThresholdChars {
				continue
			}
			archivePath := filepath.Join(sessionDir, "tool-results", tr.ToolUseID+".txt")
			if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
				continue
			}
			if err := os.WriteFile(archivePath, []byte(content), 0o644); err != nil {
				slog.Warn("failed to archive tool result for micro-compaction",
					"tool_use_id", tr.ToolUseID, "error", err)
				continue
			}
			placeholder := fmt.Sprintf(
				"[Tool result compacted: %d characters archived to %s]",
				len(content), archivePath)
			replaced.Content[bi] = models.ToolResultContentBlock(
				tr.ToolUseID, models.TextResult(placeholder), tr.IsError)
			saved += len(content) - len(placeholder)
			changed = true
		}
		if changed {
			if err := history.ReplaceMessage(idx, replaced); err != nil {
				slog.Warn("micro-compaction replace failed", "index", idx, "error", err)
			}
		}
	}
	return saved
}

// sessionMemoryCompact extracts a rolling summary to the memory file and
// replaces the summarized prefix. Returns nil when savings are too small.
func (e *Engine) sessionMemoryCompact(ctx context.Context, history *contextpkg.History, sessionDir string) (*Result, error) {
	if e.summarizer == nil {
		return nil, nil
	}
	messages := history.Messages()
	keep := e.config.MinMessagesToKeep
	if len(messages) <= keep+1 {
		return nil, nil
	}
	prefix := messages[:len(messages)-keep]

	savings := 0
	for _, msg := range prefix {
		savings += messageChars(msg)
	}
	// Rough char-to-token conversion for gating.
	if savings/4 < e.config.SessionMemory.MinSavingsTokens {
		return nil, nil
	}

	summary, err := e.summarizeWithRetries(ctx, prefix)
	if err != nil {
		return nil, err
	}

	lastID := fmt.Sprintf("msg-%d", len(prefix)-1)
	path := e.config.SessionMemory.SummaryPath
	if path == "" {
		path = filepath.Join(sessionDir, "session-memory.md")
	}
	content := FormatSessionMemory(SessionMemory{Summary: summary, LastSummarizedID: lastID})
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write session memory: %w", err)
	}

	rebuilt := make([]models.Message, 0, keep+1)
	memoryMsg := models.AssistantText("<session-memory>\n" + summary + "\n</session-memory>")
	memoryMsg.IsMeta = true
	rebuilt = append(rebuilt, memoryMsg)
	rebuilt = append(rebuilt, messages[len(messages)-keep:]...)
	history.ReplaceAndClearTracking(rebuilt)

	return &Result{Tier: TierSessionMemory, MessagesAfter: history.Len(), SavedChars: savings}, nil
}

// fullCompact summarizes everything but the trailing MinMessagesToKeep
// messages into one synthetic assistant message.
func (e *Engine) fullCompact(ctx context.Context, history *contextpkg.History, before int) (*Result, error) {
	if e.summarizer == nil {
		return nil, fmt.Errorf("full compaction requires a summarizer")
	}
	messages := history.Messages()
	keep := e.config.MinMessagesToKeep
	if len(messages) <= keep+1 {
		return nil, nil
	}
	prefix := messages[:len(messages)-keep]

	summary, err := e.summarizeWithRetries(ctx, prefix)
	if err != nil {
		return nil, err
	}

	saved := 0
	for _, msg := range prefix {
		saved += messageChars(msg)
	}

	rebuilt := make([]models.Message, 0, keep+1)
	rebuilt = append(rebuilt, models.AssistantText(
		"The earlier conversation was summarized to stay within the context window:\n\n"+summary))
	rebuilt = append(rebuilt, messages[len(messages)-keep:]...)
	history.ReplaceAndClearTracking(rebuilt)

	return &Result{
		Tier:           TierFull,
		MessagesBefore: before,
		MessagesAfter:  history.Len(),
		SavedChars:     saved,
	}, nil
}

func (e *Engine) summarizeWithRetries(ctx context.Context, messages []models.Message) (string, error) {
	retries := e.config.MaxSummaryRetries
	if retries < 1 {
		retries = 1
	}
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		summary, err := e.summarizer.Summarize(ctx, messages)
		if err == nil && strings.TrimSpace(summary) != "" {
			return summary, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("summarizer returned empty summary")
		}
	}
	return "", lastErr
}

func messageChars(msg models.Message) int {
	total := 0
	for _, block := range msg.Content {
		switch block.Type {
		case models.BlockText:
			total += len(block.Text)
		case models.BlockThinking:
			if block.Thinking != nil {
				total += len(block.Thinking.Content)
			}
		case models.BlockToolUse:
			total += len(block.ToolUse.Input)
		case models.BlockToolResult:
			total += block.ToolResult.Content.Len()
		}
	}
	return total
}
