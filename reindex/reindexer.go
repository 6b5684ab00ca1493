// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package reindex rebuilds the vector index for every enabled document, for
// use after switching embedding models or recovering a lost snapshot.
package reindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/index"
	"github.com/poiesic/corpus/storage"
)

// Config holds configuration for the reindexing operation.
type Config struct {
	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reindexer re-embeds every enabled document and swaps its vectors into the
// index. Documents whose embedding fails after retries are skipped and keep
// their previous vectors.
type Reindexer struct {
	repo     storage.DocumentRepository
	idx      *index.Index
	embedder ai.Embedder
	config   *Config
	progress io.Writer
}

// NewReindexer creates a new reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(repo storage.DocumentRepository, idx *index.Index, embedder ai.Embedder, config *Config, progress io.Writer) *Reindexer {
	if config == nil {
		config = DefaultConfig()
	}

	return &Reindexer{
		repo:     repo,
		idx:      idx,
		embedder: embedder,
		config:   config,
		progress: progress,
	}
}

// Run executes the reindexing operation over all enabled documents.
// Progress is reported to the configured writer.
func (r *Reindexer) Run(ctx context.Context) error {
	docs, err := r.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var enabled []*core.Document
	totalChunks := 0
	for _, doc := range docs {
		if doc.Metadata.Enabled {
			enabled = append(enabled, doc)
			totalChunks += len(doc.Chunks)
		}
	}

	if len(enabled) == 0 {
		fmt.Fprintf(r.progress, "No enabled documents found (0 chunks)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d documents (%d chunks)\n",
		len(enabled), totalChunks)

	tracker := NewProgressTracker(r.progress, totalChunks, r.config.ReportInterval)
	tracker.Start()

	failed := 0
	for _, doc := range enabled {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.reindexDocument(ctx, doc); err != nil {
			failed++
			fmt.Fprintf(r.progress, "\ndocument %s failed: %v\n", doc.Id, err)
			continue
		}
		tracker.Increment(len(doc.Chunks))
	}

	if err := r.idx.Persist(); err != nil {
		return fmt.Errorf("failed to persist index snapshot: %w", err)
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindex complete. Processed %d documents (%d failed) in %v (%.1f chunks/sec)\n",
		len(enabled), failed, elapsed.Round(time.Second), float64(totalChunks)/elapsed.Seconds())

	return nil
}

// reindexDocument re-embeds one document and replaces its index entries.
// The old vectors are only removed once the new embedding succeeded, so a
// failure leaves the document searchable with its previous vectors.
func (r *Reindexer) reindexDocument(ctx context.Context, doc *core.Document) error {
	texts := make([]string, len(doc.Chunks))
	for i, c := range doc.Chunks {
		texts[i] = c.Content
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", r.config.MaxRetries, err)
	}

	if len(vectors) != len(doc.Chunks) {
		return fmt.Errorf("%w: expected %d vectors, got %d", core.ErrEmbeddingProvider, len(doc.Chunks), len(vectors))
	}

	entries := make([]index.Entry, len(doc.Chunks))
	for i, c := range doc.Chunks {
		entries[i] = index.Entry{
			Id:       c.Id,
			Document: doc.Id,
			Content:  c.Content,
			Vector:   NormalizeVector(vectors[i]),
		}
	}

	r.idx.Delete(ctx, doc.ChunkIDs()...)
	return r.idx.Add(ctx, entries...)
}
