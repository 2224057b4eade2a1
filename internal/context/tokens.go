package context

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/cocodehq/cocode/pkg/models"
)

// charsPerToken is the heuristic ratio used when no tokenizer is available.
const charsPerToken = 4

// Estimator counts tokens for budget accounting. Counts are estimates; the
// provider's reported usage is authoritative after each turn.
type Estimator interface {
	Count(text string) int
}

// TiktokenEstimator counts with the cl100k_base BPE. Falls back to the
// character heuristic if the encoding cannot be loaded (offline first run).
type TiktokenEstimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewEstimator returns the default estimator.
func NewEstimator() *TiktokenEstimator {
	return &TiktokenEstimator{}
}

func (e *TiktokenEstimator) Count(text string) int {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			e.enc = enc
		}
	})
	if e.enc == nil {
		return heuristicCount(text)
	}
	return len(e.enc.Encode(text, nil, nil))
}

// HeuristicEstimator counts ~4 characters per token. Used in tests and as
// the tokenizer fallback.
type HeuristicEstimator struct{}

func (HeuristicEstimator) Count(text string) int { return heuristicCount(text) }

func heuristicCount(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// CountMessage estimates the tokens one message contributes to the window.
func CountMessage(est Estimator, msg models.Message) int {
	total := 0
	for _, block := range msg.Content {
		switch block.Type {
		case models.BlockText:
			total += est.Count(block.Text)
		case models.BlockThinking:
			if block.Thinking != nil {
				total += est.Count(block.Thinking.Content)
			}
		case models.BlockToolUse:
			total += est.Count(block.ToolUse.Name) + est.Count(string(block.ToolUse.Input))
		case models.BlockToolResult:
			total += est.Count(block.ToolResult.Content.ToText())
		case models.BlockImage:
			// Flat charge per image; providers bill dimension-dependent
			// amounts we cannot know here.
			total += 1600
		}
	}
	return total
}
