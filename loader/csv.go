package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/poiesic/corpus/core"
)

var _ Loader = (*CSVLoader)(nil)

// CSVLoader flattens tabular data into text, one row per line with fields
// joined by commas. The header row is kept so column names stay searchable.
type CSVLoader struct{}

// NewCSVLoader creates a loader for comma-separated files.
func NewCSVLoader() *CSVLoader {
	return &CSVLoader{}
}

// Load parses the file as CSV and renders each record on its own line.
func (l *CSVLoader) Load(ctx context.Context, path string) (RawContent, error) {
	if err := ctx.Err(); err != nil {
		return RawContent{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return RawContent{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return RawContent{}, fmt.Errorf("%w: malformed CSV in %s: %v", core.ErrCorruptInput, path, err)
	}

	var sb strings.Builder
	for _, record := range records {
		sb.WriteString(strings.Join(record, ", "))
		sb.WriteByte('\n')
	}

	text := sb.String()
	return RawContent{Text: text, Pages: estimatePages(text)}, nil
}

// Extensions returns the tabular extensions.
func (l *CSVLoader) Extensions() []string {
	return []string{"csv"}
}
