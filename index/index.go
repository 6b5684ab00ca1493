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


package index

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/poiesic/corpus/core"
)

// Entry is a single indexed chunk: id, stored content and embedding vector.
type Entry struct {
	Id       core.ID
	Document core.ID
	Content  string
	Vector   []float32
}

// Match is a search hit ordered by descending similarity.
type Match struct {
	Id       core.ID
	Document core.ID
	Content  string
	Score    float32
}

// Index is an append/delete-capable nearest-neighbor index keyed by chunk id,
// with an on-disk snapshot it exclusively owns. All methods are safe for
// concurrent use.
type Index struct {
	mu      sync.RWMutex
	dim     int
	path    string
	entries map[core.ID]Entry
	logger  *slog.Logger
}

// Option configures an Index.
type Option func(*Index) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// New creates an index for vectors of the given dimensionality.
// snapshotPath is where Persist writes the on-disk snapshot; it may be empty
// for a purely in-memory index (Persist and Load become no-ops).
func New(dimension int, snapshotPath string, opts ...Option) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", core.ErrInvalidConfig, dimension)
	}

	ix := &Index{
		dim:     dimension,
		path:    snapshotPath,
		entries: make(map[core.ID]Entry),
		logger:  slog.Default().With("component", "vector-index"),
	}

	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

// Dimension returns the configured vector dimensionality.
func (ix *Index) Dimension() int {
	return ix.dim
}

// SnapshotPath returns the on-disk snapshot location.
func (ix *Index) SnapshotPath() string {
	return ix.path
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Contains reports whether a chunk id is present in the index.
func (ix *Index) Contains(id core.ID) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.entries[id]
	return ok
}

// IDs returns all indexed chunk ids. Order is unspecified.
func (ix *Index) IDs() []core.ID {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ids := make([]core.ID, 0, len(ix.entries))
	for id := range ix.entries {
		ids = append(ids, id)
	}
	return ids
}

// Add inserts a batch of entries as a single atomic unit. The whole batch is
// validated before anything is applied, so a failed Add leaves the index in
// its pre-call state. An id already present (or repeated within the batch)
// fails with ErrDuplicateID; callers must delete-then-add when re-indexing.
func (ix *Index) Add(ctx context.Context, entries ...Entry) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	seen := make(map[core.ID]bool, len(entries))
	for _, entry := range entries {
		if entry.Id == "" {
			return fmt.Errorf("%w: entry id is empty", core.ErrInvalidConfig)
		}
		if _, exists := ix.entries[entry.Id]; exists || seen[entry.Id] {
			return fmt.Errorf("%w: %s", core.ErrDuplicateID, entry.Id)
		}
		if len(entry.Vector) != ix.dim {
			return fmt.Errorf("%w: entry %s has %d dimensions, index has %d",
				core.ErrDimensionMismatch, entry.Id, len(entry.Vector), ix.dim)
		}
		seen[entry.Id] = true
	}

	for _, entry := range entries {
		ix.entries[entry.Id] = entry
	}
	ix.logger.Debug("indexed entries", "count", len(entries), "total", len(ix.entries))
	return nil
}

// Delete removes the given chunk ids. Deleting a non-existent id is a no-op.
func (ix *Index) Delete(ctx context.Context, ids ...core.ID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, id := range ids {
		delete(ix.entries, id)
	}
}

// Search returns up to k matches for the query vector, ordered by descending
// cosine similarity. Vectors are assumed normalized, so the dot product is
// the similarity.
func (ix *Index) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			core.ErrDimensionMismatch, len(vector), ix.dim)
	}

	ix.mu.RLock()
	matches := make([]Match, 0, len(ix.entries))
	for _, entry := range ix.entries {
		matches = append(matches, Match{
			Id:       entry.Id,
			Document: entry.Document,
			Content:  entry.Content,
			Score:    dotProduct(vector, entry.Vector),
		})
	}
	ix.mu.RUnlock()

	slices.SortFunc(matches, func(a, b Match) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if k >= 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
