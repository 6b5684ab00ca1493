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


// Package search answers similarity queries: embed the query text, rank
// indexed chunks by cosine similarity, and hydrate each hit with its owning
// document record.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/index"
	"github.com/poiesic/corpus/storage"
)

// DefaultLimit is the result count when the caller passes k <= 0.
const DefaultLimit = 5

var (
	// ErrRepositoryRequired indicates a nil document repository was provided.
	ErrRepositoryRequired = errors.New("document repository is required")

	// ErrIndexRequired indicates a nil vector index was provided.
	ErrIndexRequired = errors.New("vector index is required")

	// ErrEmbedderRequired indicates a nil embedder was provided.
	ErrEmbedderRequired = errors.New("embedder is required")
)

// Result is one ranked hit with its owning document.
type Result struct {
	Chunk    core.Chunk
	Score    float32
	Document *core.Document
}

// Searcher runs similarity queries against the vector index.
type Searcher struct {
	repository storage.DocumentRepository
	idx        *index.Index
	embedder   ai.Embedder
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a similarity searcher.
func NewSearcher(
	repository storage.DocumentRepository,
	idx *index.Index,
	embedder ai.Embedder,
	opts ...Option,
) (*Searcher, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		repository: repository,
		idx:        idx,
		embedder:   embedder,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search returns up to k chunks ranked by descending similarity to query.
// A hit whose owning document has vanished from the store is dropped and
// logged as a consistency condition rather than failing the query.
func (s *Searcher) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", core.ErrEmptyInput)
	}
	if k <= 0 {
		k = DefaultLimit
	}

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := s.idx.Search(ctx, vector, k)
	if err != nil {
		return nil, err
	}

	docs := make(map[core.ID]*core.Document, len(matches))
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		doc, ok := docs[m.Document]
		if !ok {
			doc, err = s.repository.Get(ctx, m.Document)
			if errors.Is(err, storage.ErrNotFound) {
				s.logger.Error("search hit without a stored document",
					"chunk", m.Id,
					"document", m.Document,
					"err", fmt.Errorf("%w: index entry %s references missing document", core.ErrConsistency, m.Id))
				continue
			}
			if err != nil {
				return nil, err
			}
			docs[m.Document] = doc
		}

		results = append(results, Result{
			Chunk:    core.Chunk{Id: m.Id, Content: m.Content, DocumentId: m.Document},
			Score:    m.Score,
			Document: doc,
		})
	}

	return results, nil
}
