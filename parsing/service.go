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


// Package parsing runs the background half of the document pipeline:
// re-parsing a document with a selected parser, (re-)embedding its chunks
// into the vector index, and reconciling store/index disagreements.
//
// Jobs for different documents run concurrently; jobs for the same document
// serialize through a per-document in-flight lock held for the whole job, so
// at most one parse or embed runs per document at a time. Parse additionally
// claims the document through a transactional status transition, which keeps
// a second claim out even across a restart that left a record in PARSING.
package parsing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/index"
	"github.com/poiesic/corpus/storage"
)

// DefaultTimeout bounds a single parse or embed job.
const DefaultTimeout = 2 * time.Minute

// Service executes parse, embed, and reconcile operations against one
// document store and one vector index.
type Service struct {
	repository storage.DocumentRepository
	idx        *index.Index
	embedder   ai.Embedder
	parsers    *Registry
	timeout    time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	inFlight map[core.ID]struct{}
}

// acquire takes the per-document job lock. It reports false when another
// parse or embed already holds it.
func (s *Service) acquire(id core.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Service) release(id core.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithTimeout bounds each parse/embed job.
// Default is DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: job timeout must be positive, got %s", core.ErrInvalidConfig, timeout)
		}
		s.timeout = timeout
		return nil
	}
}

// NewService creates a parsing/embedding job service.
func NewService(
	repository storage.DocumentRepository,
	idx *index.Index,
	embedder ai.Embedder,
	parsers *Registry,
	opts ...Option,
) (*Service, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if parsers == nil {
		return nil, errors.New("parser registry is required")
	}

	s := &Service{
		repository: repository,
		idx:        idx,
		embedder:   embedder,
		parsers:    parsers,
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
		inFlight:   make(map[core.ID]struct{}),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Parse re-extracts and re-chunks the document with the named parser, or the
// extension default when parserName is empty.
//
// A parse or embed already running for the same document rejects the call
// with ErrDocumentBusy. The claim is additionally a transactional status
// transition to PARSING; a record already in PARSING rejects the claim with
// core.ErrInvalidTransition. On success the old chunk ids are removed from
// the index before the new ones are added, and a previously enabled document
// comes back enabled. On failure the prior chunks and enabled flag survive
// and the status becomes FAILED.
func (s *Service) Parse(ctx context.Context, id core.ID, parserName string) (*core.Document, error) {
	if !s.acquire(id) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentBusy, id)
	}
	defer s.release(id)

	doc, err := s.repository.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	parser, err := s.parsers.ForDocument(parserName, doc)
	if err != nil {
		return nil, err
	}

	// Claim the document. The transactional mutate is the per-document job
	// lock: a concurrent claim sees PARSING and fails the transition check.
	var wasEnabled bool
	var priorParser string
	var oldChunkIDs []core.ID
	claimed, err := s.repository.Mutate(ctx, id, func(d *core.Document) error {
		if !d.Metadata.ParsingStatus.CanTransition(core.StatusParsing) {
			return fmt.Errorf("%w: %s -> PARSING", core.ErrInvalidTransition, d.Metadata.ParsingStatus)
		}
		wasEnabled = d.Metadata.Enabled
		priorParser = d.Metadata.Parser
		oldChunkIDs = d.ChunkIDs()
		d.Metadata.ParsingStatus = core.StatusParsing
		d.Metadata.Parser = parser.Name()
		return nil
	})
	if err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	chunks, pages, err := parser.Parse(jobCtx, claimed.Metadata.FilePath, id)
	if err != nil {
		s.logger.Error("parse failed", "document", id, "parser", parser.Name(), "err", err)
		return s.markFailed(ctx, id, priorParser, wasEnabled, err)
	}

	// A previously enabled document gets its fresh chunks embedded and
	// swapped into the index; a disabled one keeps its fresh chunks out of
	// the index until an explicit embed.
	if wasEnabled {
		entries, err := s.embedChunks(jobCtx, id, chunks)
		if err != nil {
			s.logger.Error("embedding after parse failed", "document", id, "err", err)
			return s.markFailed(ctx, id, priorParser, wasEnabled, err)
		}

		if err := s.swapIndexed(ctx, id, oldChunkIDs, entries); err != nil {
			// Old vectors are gone and the new ones did not land; the only
			// consistent outcome is a disabled FAILED document.
			s.logger.Error("index swap failed", "document", id, "err", err)
			return s.markFailed(ctx, id, priorParser, false, err)
		}
	}

	updated, err := s.repository.Mutate(ctx, id, func(d *core.Document) error {
		d.Chunks = chunks
		d.Metadata.ChunkCount = len(chunks)
		d.Metadata.PageCount = pages
		d.Metadata.ParsingStatus = core.StatusSuccess
		d.Metadata.Parser = parser.Name()
		d.Metadata.Enabled = wasEnabled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document parsed",
		"document", id,
		"parser", parser.Name(),
		"chunks", len(chunks),
		"enabled", wasEnabled)
	return updated, nil
}

// Embed (re-)indexes the document's current chunks and enables it. The
// parsing status is left untouched: embedding says nothing about parsing.
// Existing ids are deleted before the add, so re-embedding is idempotent.
// A parse or embed already running for the same document rejects the call
// with ErrDocumentBusy, so the chunk set embedded here is the chunk set
// enabled at the end.
func (s *Service) Embed(ctx context.Context, id core.ID) (*core.Document, error) {
	if !s.acquire(id) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentBusy, id)
	}
	defer s.release(id)

	doc, err := s.repository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(doc.Chunks) == 0 {
		return nil, fmt.Errorf("%w: document %s has no chunks to embed", core.ErrEmptyInput, id)
	}

	jobCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entries, err := s.embedChunks(jobCtx, id, doc.Chunks)
	if err != nil {
		return nil, err
	}

	if err := s.swapIndexed(ctx, id, doc.ChunkIDs(), entries); err != nil {
		// The delete went through, so the document must not stay enabled.
		if _, disableErr := s.repository.Mutate(ctx, id, func(d *core.Document) error {
			d.Metadata.Enabled = false
			return nil
		}); disableErr != nil {
			s.logger.Error("failed to disable after index swap failure", "document", id, "err", disableErr)
		}
		return nil, err
	}

	updated, err := s.repository.Mutate(ctx, id, func(d *core.Document) error {
		d.Metadata.Enabled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document embedded", "document", id, "chunks", len(doc.Chunks))
	return updated, nil
}

// embedChunks turns chunks into index entries through the embedder.
func (s *Service) embedChunks(ctx context.Context, id core.ID, chunks []core.Chunk) ([]index.Entry, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", core.ErrEmbeddingProvider, len(vectors), len(chunks))
	}

	entries := make([]index.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = index.Entry{
			Id:       c.Id,
			Document: id,
			Content:  c.Content,
			Vector:   vectors[i],
		}
	}
	return entries, nil
}

// swapIndexed replaces the document's index entries: delete the old ids,
// add the new entries, persist the snapshot (write-through).
func (s *Service) swapIndexed(ctx context.Context, id core.ID, oldIDs []core.ID, entries []index.Entry) error {
	s.idx.Delete(ctx, oldIDs...)
	if err := s.idx.Add(ctx, entries...); err != nil {
		return err
	}
	return s.idx.Persist()
}

// markFailed records a failed parse attempt. Prior chunks stay intact, the
// parser field reverts to whichever parser produced them, and enabled is
// forced down when the index no longer holds the document's chunks.
func (s *Service) markFailed(ctx context.Context, id core.ID, priorParser string, enabled bool, cause error) (*core.Document, error) {
	doc, err := s.repository.Mutate(ctx, id, func(d *core.Document) error {
		d.Metadata.ParsingStatus = core.StatusFailed
		d.Metadata.Parser = priorParser
		d.Metadata.Enabled = enabled
		return nil
	})
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	return doc, cause
}
