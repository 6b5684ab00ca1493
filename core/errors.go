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


package core

import "errors"

// Domain errors. Components wrap these with context via fmt.Errorf("%w", ...)
// so callers can match with errors.Is across package boundaries.
var (
	// ErrEmptyInput indicates an uploaded file contained no bytes.
	ErrEmptyInput = errors.New("input file is empty")

	// ErrUnsupportedFormat indicates no loader claims the file extension.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrCorruptInput indicates a loader claimed the extension but could not
	// parse the bytes.
	ErrCorruptInput = errors.New("corrupt input")

	// ErrInvalidConfig indicates an invalid chunking configuration,
	// e.g. chunk overlap not smaller than chunk size.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingProvider indicates an upstream embedding failure.
	// The caller decides retry policy.
	ErrEmbeddingProvider = errors.New("embedding provider failure")

	// ErrDimensionMismatch indicates the embedder dimensionality does not
	// match the vector index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrDuplicateID indicates an attempt to add a chunk id already present
	// in the vector index without an intervening delete.
	ErrDuplicateID = errors.New("duplicate chunk id")

	// ErrConsistency indicates the document store and the vector index
	// disagree on a document's indexed state.
	ErrConsistency = errors.New("document store and vector index disagree")

	// ErrInvalidTransition indicates an illegal parsing status transition.
	ErrInvalidTransition = errors.New("invalid parsing status transition")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")
)
