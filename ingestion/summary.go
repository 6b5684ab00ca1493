package ingestion

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/jobs"
	"github.com/poiesic/corpus/storage"
)

// maxSummarySource caps how much chunk text is fed to the summarizer.
const maxSummarySource = 6000

// NewSummaryHandler returns the job handler that generates a document summary
// after ingest. The handler is idempotent: a document that already carries a
// summary is left untouched, so re-delivery is harmless.
func NewSummaryHandler(repository storage.DocumentRepository, summarizer ai.Summarizer, logger *slog.Logger) jobs.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, documentID core.ID) error {
		doc, err := repository.Get(ctx, documentID)
		if err != nil {
			return err
		}
		if doc.Metadata.Summary != "" {
			return nil
		}

		source := summarySource(doc)
		if source == "" {
			logger.Debug("no content to summarize", "document", documentID)
			return nil
		}

		summary, err := summarizer.Summarize(ctx, source)
		if err != nil {
			return err
		}

		_, err = repository.Mutate(ctx, documentID, func(d *core.Document) error {
			d.Metadata.Summary = summary
			return nil
		})
		return err
	}
}

func summarySource(doc *core.Document) string {
	var sb strings.Builder
	for _, chunk := range doc.Chunks {
		if sb.Len() >= maxSummarySource {
			break
		}
		sb.WriteString(chunk.Content)
		sb.WriteByte('\n')
	}

	source := core.TruncateUTF8(sb.String(), maxSummarySource)
	return strings.TrimSpace(source)
}
