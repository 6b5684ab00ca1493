package parsing

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// Report summarizes a reconciliation pass.
type Report struct {
	DocumentsChecked     int
	DocumentsRepaired    int
	OrphanVectorsRemoved int
}

// ReconcileDocument recomputes a document's enabled flag from actual index
// membership. Partial membership is a consistency violation: the leftover
// vectors are removed and the document is disabled. Returns true when the
// document or the index was changed.
func (s *Service) ReconcileDocument(ctx context.Context, id core.ID) (bool, error) {
	doc, err := s.repository.Get(ctx, id)
	if err != nil {
		return false, err
	}

	var present []core.ID
	for _, chunkID := range doc.ChunkIDs() {
		if s.idx.Contains(chunkID) {
			present = append(present, chunkID)
		}
	}

	allPresent := len(doc.Chunks) > 0 && len(present) == len(doc.Chunks)
	partial := len(present) > 0 && !allPresent
	changed := false

	if partial {
		// Never silently swallowed: this is the operational alerting signal.
		s.logger.Error("consistency violation",
			"document", id,
			"indexed", len(present),
			"chunks", len(doc.Chunks),
			"err", fmt.Errorf("%w: document %s is partially indexed", core.ErrConsistency, id))

		s.idx.Delete(ctx, present...)
		if err := s.idx.Persist(); err != nil {
			return false, err
		}
		changed = true
	} else if doc.Metadata.Enabled != allPresent {
		s.logger.Error("consistency violation",
			"document", id,
			"enabled", doc.Metadata.Enabled,
			"indexed", allPresent,
			"err", fmt.Errorf("%w: enabled flag disagrees with index membership for %s", core.ErrConsistency, id))
	}

	shouldEnable := allPresent && !partial
	if doc.Metadata.Enabled != shouldEnable {
		if _, err := s.repository.Mutate(ctx, id, func(d *core.Document) error {
			d.Metadata.Enabled = shouldEnable
			return nil
		}); err != nil {
			return changed, err
		}
		changed = true
	}

	return changed, nil
}

// Reconcile runs ReconcileDocument over every stored document and then sweeps
// the index for vectors whose owning document no longer exists.
func (s *Service) Reconcile(ctx context.Context) (Report, error) {
	var report Report

	docs, err := s.repository.ListAll(ctx)
	if err != nil {
		return report, err
	}

	for _, doc := range docs {
		report.DocumentsChecked++
		changed, err := s.ReconcileDocument(ctx, doc.Id)
		if err != nil {
			return report, err
		}
		if changed {
			report.DocumentsRepaired++
		}
	}

	var orphans []core.ID
	for _, chunkID := range s.idx.IDs() {
		_, err := s.repository.GetByChunk(ctx, chunkID)
		if errors.Is(err, storage.ErrNotFound) {
			orphans = append(orphans, chunkID)
			continue
		}
		if err != nil {
			return report, err
		}
	}

	if len(orphans) > 0 {
		s.logger.Error("consistency violation",
			"orphans", len(orphans),
			"err", fmt.Errorf("%w: index holds vectors for deleted documents", core.ErrConsistency))

		s.idx.Delete(ctx, orphans...)
		if err := s.idx.Persist(); err != nil {
			return report, err
		}
		report.OrphanVectorsRemoved = len(orphans)
	}

	s.logger.Info("reconciliation finished",
		"checked", report.DocumentsChecked,
		"repaired", report.DocumentsRepaired,
		"orphans_removed", report.OrphanVectorsRemoved)
	return report, nil
}
