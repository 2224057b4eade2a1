// Package paste replaces large pasted text and images in user input with
// short inline pills, caching the original content for resolution when the
// input is submitted.
package paste

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cocodehq/cocode/pkg/models"
)

// LargePasteThreshold is the size above which pasted text becomes a pill.
const LargePasteThreshold = 2000

// Kind discriminates paste entry kinds.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Entry is one captured paste.
type Entry struct {
	Number int
	Kind   Kind
	// Content is the pasted text, or base64 data for images.
	Content   string
	MediaType string
	Lines     int
}

var pillPattern = regexp.MustCompile(
	`\[(?:Pasted text #\d+(?: \+\d+ lines)?|Image #\d+|\.\.\.Truncated text #\d+)\]`)

// CountLines counts lines terminated by \n, \r\n, or bare \r. Empty input
// has zero lines.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	count := 1
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '\n':
			if i+1 < len(content) {
				count++
			}
		case '\r':
			if i+1 < len(content) && content[i+1] == '\n' {
				continue
			}
			if i+1 < len(content) {
				count++
			}
		}
	}
	return count
}

// GeneratePill renders the inline placeholder for a paste.
func GeneratePill(number int, kind Kind, lines int) string {
	switch kind {
	case KindImage:
		return fmt.Sprintf("[Image #%d]", number)
	default:
		if lines > 1 {
			return fmt.Sprintf("[Pasted text #%d +%d lines]", number, lines-1)
		}
		return fmt.Sprintf("[Pasted text #%d]", number)
	}
}

// IsPastePill reports whether a string is exactly one pill.
func IsPastePill(s string) bool {
	match := pillPattern.FindString(s)
	return match == s && match != ""
}

// ContentHash returns a 16-hex-char FNV-64a hash used as the cache key.
func ContentHash(data []byte) string {
	h := fnv.New64a()
	h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Manager captures pastes and resolves pills back to content. Not safe for
// concurrent use; owned by the input layer.
type Manager struct {
	cacheDir string
	entries  []Entry
	next     int
}

// NewManager creates a manager caching under the given directory.
func NewManager(cacheDir string) *Manager {
	return &Manager{cacheDir: cacheDir, next: 1}
}

// Entries returns the captured pastes.
func (m *Manager) Entries() []Entry { return m.entries }

// ProcessText replaces large pasted text with a pill; small text passes
// through unchanged.
func (m *Manager) ProcessText(content string) string {
	if len(content) <= LargePasteThreshold {
		return content
	}
	entry := Entry{
		Number:  m.next,
		Kind:    KindText,
		Content: content,
		Lines:   CountLines(content),
	}
	m.next++
	m.entries = append(m.entries, entry)
	m.writeCache(entry)
	return GeneratePill(entry.Number, KindText, entry.Lines)
}

// ProcessImage captures an image paste and returns its pill.
func (m *Manager) ProcessImage(mediaType, data string) string {
	entry := Entry{
		Number:    m.next,
		Kind:      KindImage,
		Content:   data,
		MediaType: mediaType,
	}
	m.next++
	m.entries = append(m.entries, entry)
	return GeneratePill(entry.Number, KindImage, 0)
}

// writeCache persists the paste under a content-hash key, best effort.
func (m *Manager) writeCache(entry Entry) {
	if m.cacheDir == "" {
		return
	}
	if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
		return
	}
	path := filepath.Join(m.cacheDir, ContentHash([]byte(entry.Content))+".txt")
	_ = os.WriteFile(path, []byte(entry.Content), 0o600)
}

// HasPills reports whether the text contains any pill.
func (m *Manager) HasPills(text string) bool {
	return pillPattern.MatchString(text)
}

// ResolvePills substitutes cached content back for every text pill. Image
// pills stay inline; ResolveToBlocks expands them.
func (m *Manager) ResolvePills(text string) string {
	return pillPattern.ReplaceAllStringFunc(text, func(pill string) string {
		entry, ok := m.lookup(pill)
		if !ok || entry.Kind != KindText {
			return pill
		}
		return entry.Content
	})
}

// ResolveToBlocks expands the text into content blocks: text segments with
// pills resolved, and image pills as image blocks.
func (m *Manager) ResolveToBlocks(text string) []models.ContentBlock {
	var blocks []models.ContentBlock
	remaining := text
	for {
		loc := pillPattern.FindStringIndex(remaining)
		if loc == nil {
			break
		}
		prefix := remaining[:loc[0]]
		pill := remaining[loc[0]:loc[1]]
		remaining = remaining[loc[1]:]

		entry, ok := m.lookup(pill)
		switch {
		case ok && entry.Kind == KindImage:
			if prefix != "" {
				blocks = append(blocks, models.TextBlock(prefix))
			}
			blocks = append(blocks, models.ImageContentBlock(entry.MediaType, entry.Content))
		case ok:
			blocks = append(blocks, models.TextBlock(prefix+entry.Content))
		default:
			blocks = append(blocks, models.TextBlock(prefix+pill))
		}
	}
	if remaining != "" || len(blocks) == 0 {
		blocks = append(blocks, models.TextBlock(remaining))
	}
	return mergeAdjacentText(blocks)
}

func mergeAdjacentText(blocks []models.ContentBlock) []models.ContentBlock {
	var out []models.ContentBlock
	for _, b := range blocks {
		if b.Type == models.BlockText && len(out) > 0 && out[len(out)-1].Type == models.BlockText {
			out[len(out)-1].Text += b.Text
			continue
		}
		out = append(out, b)
	}
	return out
}

// lookup finds the entry a pill refers to by its number.
func (m *Manager) lookup(pill string) (Entry, bool) {
	var number int
	var kind Kind
	switch {
	case strings.HasPrefix(pill, "[Pasted text #"), strings.HasPrefix(pill, "[...Truncated text #"):
		kind = KindText
	case strings.HasPrefix(pill, "[Image #"):
		kind = KindImage
	default:
		return Entry{}, false
	}
	start := strings.Index(pill, "#") + 1
	end := start
	for end < len(pill) && pill[end] >= '0' && pill[end] <= '9' {
		end++
	}
	if _, err := fmt.Sscanf(pill[start:end], "%d", &number); err != nil {
		return Entry{}, false
	}
	for _, entry := range m.entries {
		if entry.Number == number && entry.Kind == kind {
			return entry, true
		}
	}
	return Entry{}, false
}
