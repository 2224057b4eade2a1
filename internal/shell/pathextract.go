package shell

import (
	"context"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// MaxExtractionOutputChars bounds how much stdout is handed to the path
// extractor.
const MaxExtractionOutputChars = 2000

// PathExtraction is the result of extracting file paths from command
// output. Only paths that exist as files are included.
type PathExtraction struct {
	Paths        []string
	ExtractionMS int64
}

// PathExtractor extracts file paths that a command read or modified from
// its output, enabling pre-reading of touched files. Implementations may
// call a fast model; the default does nothing.
type PathExtractor interface {
	ExtractPaths(ctx context.Context, command, output, cwd string) (PathExtraction, error)
	IsEnabled() bool
}

// NoOpExtractor is the default extractor: disabled, returns nothing.
type NoOpExtractor struct{}

func (NoOpExtractor) ExtractPaths(context.Context, string, string, string) (PathExtraction, error) {
	return PathExtraction{}, nil
}

func (NoOpExtractor) IsEnabled() bool { return false }

// TruncateForExtraction caps output at MaxExtractionOutputChars on a UTF-8
// boundary.
func TruncateForExtraction(output string) string {
	if len(output) <= MaxExtractionOutputChars {
		return output
	}
	end := MaxExtractionOutputChars
	for end > 0 && !utf8.RuneStart(output[end]) {
		end--
	}
	return output[:end]
}

// FilterExistingFiles resolves relative paths against cwd and keeps only
// those that exist as regular files.
func FilterExistingFiles(paths []string, cwd string) []string {
	var out []string
	for _, p := range paths {
		abs := p
		if !filepath.IsAbs(p) {
			abs = filepath.Join(cwd, p)
		}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, abs)
	}
	return out
}
