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

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Id must not be empty
//   - Filename must not be empty
//   - ParsingStatus must be a known status
//   - every chunk must pass ValidateChunk and reference this document
//
// Enabled is deliberately not cross-checked against ParsingStatus: a
// previously enabled document keeps its old chunks indexed while a re-parse
// is in flight or after one fails.
//
// NOT validated (populated later):
//   - Summary (filled by the post-ingest summary job)
//   - Parser (empty until the first parse)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Id == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidDocument)
	}

	if doc.Metadata.Filename == "" {
		return fmt.Errorf("%w: filename is empty", ErrInvalidDocument)
	}

	if err := ValidateParsingStatus(doc.Metadata.ParsingStatus); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	for i := range doc.Chunks {
		if err := ValidateChunk(&doc.Chunks[i]); err != nil {
			return fmt.Errorf("%w: chunk %d: %w", ErrInvalidDocument, i, err)
		}
		if doc.Chunks[i].DocumentId != doc.Id {
			return fmt.Errorf("%w: chunk %d references document %s",
				ErrInvalidDocument, i, doc.Chunks[i].DocumentId)
		}
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Id == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: content is empty", ErrInvalidChunk)
	}

	return nil
}

// ValidateParsingStatus validates that a ParsingStatus has a known value.
func ValidateParsingStatus(status ParsingStatus) error {
	switch status {
	case StatusUnparsed, StatusParsing, StatusSuccess, StatusFailed:
		return nil
	}
	return fmt.Errorf("%w: value %d", ErrInvalidTransition, status)
}
