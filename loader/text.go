package loader

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/poiesic/corpus/core"
)

// charsPerPage approximates a printed page for formats without pagination.
const charsPerPage = 3000

var _ Loader = (*TextLoader)(nil)

// TextLoader reads plain-text formats verbatim.
type TextLoader struct{}

// NewTextLoader creates a loader for plain-text files.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads the file as UTF-8 text.
func (l *TextLoader) Load(ctx context.Context, path string) (RawContent, error) {
	if err := ctx.Err(); err != nil {
		return RawContent{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RawContent{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return RawContent{}, fmt.Errorf("%w: %s is not valid UTF-8 text", core.ErrCorruptInput, path)
	}

	text := string(data)
	return RawContent{Text: text, Pages: estimatePages(text)}, nil
}

// Extensions returns the plain-text extensions.
func (l *TextLoader) Extensions() []string {
	return []string{"txt", "md", "log"}
}

func estimatePages(text string) int {
	pages := (len(text) + charsPerPage - 1) / charsPerPage
	if pages < 1 {
		pages = 1
	}
	return pages
}
