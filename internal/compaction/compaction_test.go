package compaction

import (
	"context"
	"strings"
	"testing"

	contextpkg "github.com/cocodehq/cocode/internal/context"
	"github.com/cocodehq/cocode/pkg/models"
)

type stubSummarizer struct {
	summary string
	calls   int
	fail    int
}

func (s *stubSummarizer) Summarize(_ context.Context, _ []models.Message) (string, error) {
	s.calls++
	if s.calls <= s.fail {
		return "", context.DeadlineExceeded
	}
	return s.summary, nil
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.AutoCompactPct != 0.8 {
		t.Errorf("threshold = %v, want 0.8", config.AutoCompactPct)
	}
	if config.MinMessagesToKeep != 4 {
		t.Errorf("min messages = %d, want 4", config.MinMessagesToKeep)
	}
	if config.SessionMemory.Enabled {
		t.Error("session memory should default off")
	}
	if config.SessionMemory.MinSavingsTokens != 10_000 {
		t.Errorf("min savings = %d, want 10000", config.SessionMemory.MinSavingsTokens)
	}
}

func TestShouldCompact(t *testing.T) {
	tests := []struct {
		used, max int
		threshold float64
		want      bool
	}{
		{7000, 10000, 0.8, false},
		{8000, 10000, 0.8, true},
		{9500, 10000, 0.8, true},
		{100, 0, 0.8, false},
		{100, -1, 0.8, false},
	}
	for _, tt := range tests {
		if got := ShouldCompact(tt.used, tt.max, tt.threshold); got != tt.want {
			t.Errorf("ShouldCompact(%d, %d, %v) = %v, want %v", tt.used, tt.max, tt.threshold, got, tt.want)
		}
	}
}

func TestMicroCompactCandidates(t *testing.T) {
	if got := MicroCompactCandidates(nil); len(got) != 0 {
		t.Errorf("empty = %v", got)
	}

	noResults := []models.Message{
		models.UserText("hello"),
		models.AssistantText("hi"),
	}
	if got := MicroCompactCandidates(noResults); len(got) != 0 {
		t.Errorf("no tool results = %v", got)
	}

	small := []models.Message{
		models.UserMessage(models.ToolResultContentBlock("c1", models.TextResult("ok"), false)),
		models.AssistantText("done"),
	}
	if got := MicroCompactCandidates(small); len(got) != 0 {
		t.Errorf("small result = %v", got)
	}

	large := []models.Message{
		models.UserText("do something"),
		models.UserMessage(models.ToolResultContentBlock("c1", models.TextResult(strings.Repeat("x", 3000)), false)),
		models.AssistantText("done"),
	}
	if got := MicroCompactCandidates(large); len(got) != 1 || got[0] != 1 {
		t.Errorf("large answered result = %v, want [1]", got)
	}

	// No assistant reply after the result: not a candidate yet.
	unanswered := []models.Message{
		models.AssistantText("running tool"),
		models.UserMessage(models.ToolResultContentBlock("c1", models.TextResult(strings.Repeat("y", 2500)), false)),
	}
	if got := MicroCompactCandidates(unanswered); len(got) != 0 {
		t.Errorf("unanswered result = %v, want none", got)
	}
}

func TestParseSessionMemory(t *testing.T) {
	memory := ParseSessionMemory("This is a summary of the conversation.")
	if memory == nil {
		t.Fatal("plain summary should parse")
	}
	if memory.Summary != "This is a summary of the conversation." {
		t.Errorf("summary = %q", memory.Summary)
	}
	if memory.LastSummarizedID != "" {
		t.Errorf("id = %q, want empty", memory.LastSummarizedID)
	}

	memory = ParseSessionMemory("---\nlast_summarized_id: turn-42\n---\nSummary content here.")
	if memory.Summary != "Summary content here." {
		t.Errorf("summary = %q", memory.Summary)
	}
	if memory.LastSummarizedID != "turn-42" {
		t.Errorf("id = %q, want turn-42", memory.LastSummarizedID)
	}

	if ParseSessionMemory("") != nil {
		t.Error("empty content should return nil")
	}
}

func TestFormatSessionMemory_RoundTrip(t *testing.T) {
	memory := SessionMemory{Summary: "The work so far.", LastSummarizedID: "msg-7"}
	parsed := ParseSessionMemory(FormatSessionMemory(memory))
	if parsed.Summary != memory.Summary || parsed.LastSummarizedID != memory.LastSummarizedID {
		t.Errorf("round trip = %+v", parsed)
	}
}

func historyWithMessages(n int, filler string) *contextpkg.History {
	h := contextpkg.NewHistory(contextpkg.NewBudget(100000, 10000), contextpkg.HeuristicEstimator{})
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			h.Record(models.UserText(filler))
		} else {
			msg := models.AssistantText(filler)
			msg.ResponseID = "resp-x"
			h.Record(msg)
		}
	}
	return h
}

func TestFullCompact(t *testing.T) {
	config := DefaultConfig()
	engine := NewEngine(config, &stubSummarizer{summary: "everything before was setup"})

	h := historyWithMessages(10, strings.Repeat("z", 200))
	before := h.Len()
	result, err := engine.Compact(context.Background(), h, t.TempDir())
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if result == nil || result.Tier != TierFull {
		t.Fatalf("result = %+v, want full tier", result)
	}

	// After compaction the history shrank and tracking cleared.
	if h.Len() >= before {
		t.Errorf("len = %d, want < %d", h.Len(), before)
	}
	if h.LastResponseID() != "" {
		t.Error("compaction must clear last response id")
	}
	// One summary message plus the kept tail.
	if h.Len() != config.MinMessagesToKeep+1 {
		t.Errorf("len = %d, want %d", h.Len(), config.MinMessagesToKeep+1)
	}
	if !strings.Contains(h.Messages()[0].Text(), "everything before was setup") {
		t.Error("first message should carry the summary")
	}
}

func TestFullCompact_SummarizerRetries(t *testing.T) {
	config := DefaultConfig()
	config.MaxSummaryRetries = 3
	summarizer := &stubSummarizer{summary: "recovered", fail: 2}
	engine := NewEngine(config, summarizer)

	h := historyWithMessages(10, strings.Repeat("z", 100))
	result, err := engine.Compact(context.Background(), h, t.TempDir())
	if err != nil {
		t.Fatalf("compact should succeed after retries: %v", err)
	}
	if result == nil || summarizer.calls != 3 {
		t.Errorf("calls = %d, want 3", summarizer.calls)
	}
}

func TestCompact_DisabledDoesNothing(t *testing.T) {
	config := DefaultConfig()
	config.Disabled = true
	engine := NewEngine(config, &stubSummarizer{summary: "s"})

	h := historyWithMessages(10, "text")
	result, err := engine.Compact(context.Background(), h, t.TempDir())
	if err != nil || result != nil {
		t.Errorf("disabled engine: result=%+v err=%v", result, err)
	}
	if h.Len() != 10 {
		t.Error("history must be untouched")
	}
}

func TestEngine_ShouldRun(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)
	h := contextpkg.NewHistory(contextpkg.NewBudget(1000, 0), contextpkg.HeuristicEstimator{})
	if engine.ShouldRun(h) {
		t.Error("empty history should not trigger")
	}
	h.Record(models.UserText(strings.Repeat("x", 3600))) // 900 tokens >= 80%
	if !engine.ShouldRun(h) {
		t.Error("history above threshold should trigger")
	}
}
