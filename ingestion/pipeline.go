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


// Package ingestion orchestrates the upload half of the document pipeline:
// validate, persist the raw file, extract content, split into chunks, and
// record the document as UNPARSED/disabled. Embedding and re-parsing happen
// later through background jobs.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/index"
	"github.com/poiesic/corpus/jobs"
	"github.com/poiesic/corpus/loader"
	"github.com/poiesic/corpus/splitter"
	"github.com/poiesic/corpus/storage"
)

// SummaryJobType is the queue job type for post-ingest summary generation.
const SummaryJobType = "summary"

// Pipeline coordinates blob storage, content loading, chunk splitting, and
// document record creation. Each file's ingest is independent; multiple files
// may be ingested concurrently.
type Pipeline struct {
	repository storage.DocumentRepository
	blobs      storage.BlobStore
	registry   *loader.Registry
	split      *splitter.Splitter
	idx        *index.Index
	queue      jobs.Queue
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithQueue attaches a job queue for fire-and-forget post-ingest jobs.
// Without a queue, no summary job is scheduled.
func WithQueue(queue jobs.Queue) Option {
	return func(p *Pipeline) error {
		p.queue = queue
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	repository storage.DocumentRepository,
	blobs storage.BlobStore,
	registry *loader.Registry,
	split *splitter.Splitter,
	idx *index.Index,
	opts ...Option,
) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if blobs == nil {
		return nil, ErrBlobStoreRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if split == nil {
		return nil, ErrSplitterRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}

	p := &Pipeline{
		repository: repository,
		blobs:      blobs,
		registry:   registry,
		split:      split,
		idx:        idx,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Ingest stores the uploaded file and creates its document record with
// parsing status UNPARSED and indexing disabled. When a queue is attached, a
// summary job is scheduled; its failure never fails the ingest.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, filename string) (*core.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file %q has no content", core.ErrEmptyInput, filename)
	}

	l, err := p.registry.ForFile(filename)
	if err != nil {
		return nil, err
	}

	docID := core.NewID()

	location, err := p.blobs.Save(ctx, fmt.Sprintf("%s/%s", docID, filename), data)
	if err != nil {
		return nil, fmt.Errorf("failed to save uploaded file: %w", err)
	}

	content, err := p.extract(ctx, l, data, filename)
	if err != nil {
		if delErr := p.blobs.Delete(ctx, location); delErr != nil {
			p.logger.Warn("failed to remove blob after load failure", "location", location, "err", delErr)
		}
		return nil, err
	}

	chunks := p.split.Split(content.Text, docID)

	doc := &core.Document{
		Id:     docID,
		Chunks: chunks,
		Metadata: core.Metadata{
			Filename:      filename,
			Type:          loader.NormalizeExtension(filename),
			Size:          int64(len(data)),
			Checksum:      core.ChecksumOf(data),
			UploadedAt:    time.Now().UTC(),
			ChunkCount:    len(chunks),
			PageCount:     content.Pages,
			ParsingStatus: core.StatusUnparsed,
			Enabled:       false,
			FilePath:      location,
		},
	}

	stored, err := p.repository.Insert(ctx, doc)
	if err != nil {
		return nil, err
	}

	p.logger.Info("document ingested",
		"document", stored.Id,
		"filename", filename,
		"chunks", len(chunks),
		"pages", content.Pages)

	if p.queue != nil {
		if _, err := p.queue.Enqueue(ctx, SummaryJobType, stored.Id); err != nil {
			p.logger.Warn("failed to schedule summary job", "document", stored.Id, "err", err)
		}
	}

	return stored, nil
}

// Delete removes a document: its chunks leave the vector index first, then
// the record and the stored blob are removed. A blob removal failure is
// logged but does not fail the delete.
func (p *Pipeline) Delete(ctx context.Context, id core.ID) error {
	doc, err := p.repository.Get(ctx, id)
	if err != nil {
		return err
	}

	// Disable before touching the index so a failure below never leaves an
	// enabled document with missing vectors.
	if doc.Metadata.Enabled {
		doc, err = p.repository.Mutate(ctx, id, func(d *core.Document) error {
			d.Metadata.Enabled = false
			return nil
		})
		if err != nil {
			return err
		}
	}

	p.idx.Delete(ctx, doc.ChunkIDs()...)
	if err := p.idx.Persist(); err != nil {
		return err
	}

	if err := p.repository.Delete(ctx, id); err != nil {
		return err
	}

	if doc.Metadata.FilePath != "" {
		if err := p.blobs.Delete(ctx, doc.Metadata.FilePath); err != nil {
			p.logger.Warn("failed to remove blob", "document", id, "location", doc.Metadata.FilePath, "err", err)
		}
	}

	p.logger.Info("document deleted", "document", id, "chunks", len(doc.Chunks))
	return nil
}

// extract runs the loader against a scratch copy of the upload. The loader
// reads from the filesystem, so the bytes are staged in a temp file carrying
// the original extension.
func (p *Pipeline) extract(ctx context.Context, l loader.Loader, data []byte, filename string) (loader.RawContent, error) {
	tmp, err := os.CreateTemp("", "corpus-upload-*."+loader.NormalizeExtension(filename))
	if err != nil {
		return loader.RawContent{}, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return loader.RawContent{}, err
	}
	if err := tmp.Close(); err != nil {
		return loader.RawContent{}, err
	}

	return l.Load(ctx, tmpPath)
}
