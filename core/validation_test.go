package core

import (
	"errors"
	"testing"
	"time"
)

func validDocument() *Document {
	id := NewID()
	return &Document{
		Id: id,
		Chunks: []Chunk{
			{Id: NewID(), Content: "chunk one", DocumentId: id},
			{Id: NewID(), Content: "chunk two", DocumentId: id},
		},
		Metadata: Metadata{
			Filename:      "report.txt",
			Type:          ".txt",
			Size:          1024,
			UploadedAt:    time.Now().UTC(),
			ChunkCount:    2,
			ParsingStatus: StatusUnparsed,
		},
	}
}

func TestValidateDocument(t *testing.T) {
	if err := ValidateDocument(validDocument()); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
}

func TestValidateDocument_Nil(t *testing.T) {
	if err := ValidateDocument(nil); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestValidateDocument_EmptyID(t *testing.T) {
	doc := validDocument()
	doc.Id = ""
	if err := ValidateDocument(doc); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestValidateDocument_EmptyFilename(t *testing.T) {
	doc := validDocument()
	doc.Metadata.Filename = ""
	if err := ValidateDocument(doc); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestValidateDocument_EnabledDuringReparse(t *testing.T) {
	// A previously enabled document stays enabled while a re-parse runs
	// and after a failed attempt; its old chunks are still indexed.
	for _, status := range []ParsingStatus{StatusParsing, StatusFailed} {
		doc := validDocument()
		doc.Metadata.ParsingStatus = status
		doc.Metadata.Enabled = true
		if err := ValidateDocument(doc); err != nil {
			t.Errorf("status %s: unexpected error: %v", status, err)
		}
	}
}

func TestValidateDocument_ForeignChunk(t *testing.T) {
	doc := validDocument()
	doc.Chunks[1].DocumentId = NewID()
	if err := ValidateDocument(doc); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestValidateChunk(t *testing.T) {
	chunk := &Chunk{Id: NewID(), Content: "payload", DocumentId: NewID()}
	if err := ValidateChunk(chunk); err != nil {
		t.Fatalf("valid chunk rejected: %v", err)
	}

	if err := ValidateChunk(&Chunk{Id: "", Content: "x"}); !errors.Is(err, ErrInvalidChunk) {
		t.Errorf("expected ErrInvalidChunk for empty id, got %v", err)
	}
	if err := ValidateChunk(&Chunk{Id: NewID(), Content: ""}); !errors.Is(err, ErrInvalidChunk) {
		t.Errorf("expected ErrInvalidChunk for empty content, got %v", err)
	}
}
