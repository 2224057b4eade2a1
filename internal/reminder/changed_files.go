package reminder

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// maxDiffLines bounds the diff snippet size per changed file.
const maxDiffLines = 40

// ChangedFilesGenerator notices tracked files whose on-disk state changed
// since they were read and shows the model what changed.
type ChangedFilesGenerator struct{}

func (g *ChangedFilesGenerator) Name() string                 { return "ChangedFilesGenerator" }
func (g *ChangedFilesGenerator) AttachmentType() AttachmentType { return AttachmentChangedFiles }
func (g *ChangedFilesGenerator) Tier() Tier                   { return TierCore }
func (g *ChangedFilesGenerator) Throttle() ThrottleConfig     { return NoThrottle() }

func (g *ChangedFilesGenerator) IsEnabled(config *Config) bool {
	return config.Attachments.ChangedFiles
}

func (g *ChangedFilesGenerator) Generate(_ context.Context, gctx *GeneratorContext) (*Reminder, error) {
	if gctx.Files == nil {
		return nil, nil
	}
	changed := gctx.Files.Changed()
	if len(changed) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for _, f := range changed {
		current, err := os.ReadFile(f.Path)
		if err != nil || f.Content == "" {
			fmt.Fprintf(&sb, "The file %s has changed since it was last read.\n", f.Path)
			continue
		}
		diff := diffSnippet(f.Content, string(current))
		if diff == "" {
			fmt.Fprintf(&sb, "The file %s has changed since it was last read (timestamp only).\n", f.Path)
			continue
		}
		fmt.Fprintf(&sb, "The file %s has changed since it was last read:\n%s\n", f.Path, diff)
	}
	return NewTextReminder(AttachmentChangedFiles, strings.TrimRight(sb.String(), "\n")), nil
}

// diffSnippet renders a compact unified-style hunk: the common prefix and
// suffix are trimmed and the differing middle shown as removals then
// additions, truncated at maxDiffLines.
func diffSnippet(oldContent, newContent string) string {
	if oldContent == newContent {
		return ""
	}
	oldLines := strings.Split(oldContent, "\n")
	newLines := strings.Split(newContent, "\n")

	prefix := 0
	for prefix < len(oldLines) && prefix < len(newLines) && oldLines[prefix] == newLines[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(oldLines)-prefix && suffix < len(newLines)-prefix &&
		oldLines[len(oldLines)-1-suffix] == newLines[len(newLines)-1-suffix] {
		suffix++
	}

	removed := oldLines[prefix : len(oldLines)-suffix]
	added := newLines[prefix : len(newLines)-suffix]

	var sb strings.Builder
	fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", prefix+1, len(removed), prefix+1, len(added))
	lines := 0
	for _, line := range removed {
		if lines >= maxDiffLines {
			sb.WriteString("...\n")
			return sb.String()
		}
		sb.WriteString("-" + line + "\n")
		lines++
	}
	for _, line := range added {
		if lines >= maxDiffLines {
			sb.WriteString("...\n")
			return sb.String()
		}
		sb.WriteString("+" + line + "\n")
		lines++
	}
	return strings.TrimRight(sb.String(), "\n")
}
