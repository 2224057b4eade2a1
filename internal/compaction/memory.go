package compaction

import "strings"

// SessionMemory is the parsed rolling-summary file: an optional front
// matter carrying the last summarized message id, then the summary body.
type SessionMemory struct {
	Summary          string
	LastSummarizedID string
}

// ParseSessionMemory parses a session-memory file. Empty content returns
// nil; content without front matter is all summary.
func ParseSessionMemory(content string) *SessionMemory {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if !strings.HasPrefix(content, "---\n") {
		return &SessionMemory{Summary: strings.TrimSpace(content)}
	}

	rest := content[4:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return &SessionMemory{Summary: strings.TrimSpace(content)}
	}

	memory := &SessionMemory{}
	for _, line := range strings.Split(rest[:end], "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) == "last_summarized_id" {
			memory.LastSummarizedID = strings.TrimSpace(value)
		}
	}
	memory.Summary = strings.TrimSpace(strings.TrimPrefix(rest[end+4:], "\n"))
	return memory
}

// FormatSessionMemory renders the file form, with front matter only when a
// last-summarized id is present.
func FormatSessionMemory(memory SessionMemory) string {
	if memory.LastSummarizedID == "" {
		return memory.Summary
	}
	return "---\nlast_summarized_id: " + memory.LastSummarizedID + "\n---\n" + memory.Summary
}
