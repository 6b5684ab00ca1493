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


// Package splitter cuts loaded document content into bounded-size chunks.
//
// Chunk boundaries are a pure function of the content and the configured
// (size, overlap) pair, so re-splitting the same content yields identical
// chunk contents. Chunk ids are freshly generated on every invocation; the
// caller is responsible for removing the previous ids from the vector index
// before indexing the new ones.
package splitter

import (
	"fmt"

	"github.com/poiesic/corpus/core"
)

// Default window parameters, in runes.
const (
	DefaultChunkSize    = 5000
	DefaultChunkOverlap = 300
)

// Splitter produces ordered fixed-window chunks from text.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// New creates a splitter with the given window parameters.
// Returns an error wrapping core.ErrInvalidConfig unless
// 0 <= chunkOverlap < chunkSize.
func New(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", core.ErrInvalidConfig, chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", core.ErrInvalidConfig, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", core.ErrInvalidConfig, chunkOverlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split cuts content into overlapping rune windows attributed to documentID.
// Every chunk gets a freshly generated id; ids never repeat across
// invocations. Empty content yields no chunks.
func (s *Splitter) Split(content string, documentID core.ID) []core.Chunk {
	runes := []rune(content)
	if len(runes) == 0 {
		return []core.Chunk{}
	}

	step := s.chunkSize - s.chunkOverlap
	chunks := make([]core.Chunk, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, core.Chunk{
			Id:         core.NewID(),
			Content:    string(runes[start:end]),
			DocumentId: documentID,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// ChunkSize returns the configured window size in runes.
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// ChunkOverlap returns the configured window overlap in runes.
func (s *Splitter) ChunkOverlap() int {
	return s.chunkOverlap
}
