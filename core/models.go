package core

import (
	"encoding/binary"
	"time"
	"unicode/utf8"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is an opaque unique identifier for documents and chunks.
// IDs are immutable once assigned and are never reused across
// documents or re-splits.
type ID string

// NewID generates a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// ChecksumOf computes a 64-bit BLAKE2b checksum of raw file bytes.
// Identical uploads produce identical checksums, which supports
// loader idempotence checks.
func ChecksumOf(data []byte) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write(data)
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// TruncateUTF8 shortens s to at most max bytes without splitting a
// multi-byte rune, so the result stays valid UTF-8.
func TruncateUTF8(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// ParsingStatus tracks the lifecycle of a document's chunk set.
type ParsingStatus int

const (
	// StatusUnparsed means no parse has been attempted since ingestion.
	StatusUnparsed ParsingStatus = iota + 1
	// StatusParsing means a parse job currently holds the document.
	StatusParsing
	// StatusSuccess means the current chunk set came from a completed parse.
	StatusSuccess
	// StatusFailed means the last parse attempt failed; prior chunks are intact.
	StatusFailed
)

// String returns the status name used in logs and CLI output.
func (s ParsingStatus) String() string {
	switch s {
	case StatusUnparsed:
		return "UNPARSED"
	case StatusParsing:
		return "PARSING"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// CanTransition reports whether moving from s to next is a legal
// lifecycle transition. The only legal edges are UNPARSED→PARSING,
// PARSING→{SUCCESS,FAILED}, FAILED→PARSING (retry) and
// SUCCESS→PARSING (explicit re-parse).
func (s ParsingStatus) CanTransition(next ParsingStatus) bool {
	switch s {
	case StatusUnparsed, StatusSuccess, StatusFailed:
		return next == StatusParsing
	case StatusParsing:
		return next == StatusSuccess || next == StatusFailed
	}
	return false
}

// Chunk is the atomic embeddable unit stored in the vector index.
type Chunk struct {
	Id         ID
	Content    string
	DocumentId ID // back-reference to the owning document, lookup only
}

// Metadata carries per-document ingestion state.
// Filename, Type, Size, Checksum and UploadedAt are immutable provenance;
// the rest is mutated by parse/embed jobs and index-sync operations.
type Metadata struct {
	Filename      string
	Type          string // lowercase file extension, without the leading dot
	Size          int64  // raw upload size in bytes
	Checksum      uint64
	UploadedAt    time.Time
	ChunkCount    int
	PageCount     int
	ParsingStatus ParsingStatus
	Parser        string // parser that produced the current chunk set, empty if none
	Enabled       bool   // true only while the current chunks are present in the vector index
	FilePath      string // location reference owned by the blob store
	Summary       string // populated asynchronously after ingestion
}

// Document is the unit of ingestion. Chunks are kept in splitting order.
type Document struct {
	Id         ID
	Chunks     []Chunk
	Metadata   Metadata
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// ChunkIDs returns the ids of the document's current chunks in splitting order.
func (d *Document) ChunkIDs() []ID {
	ids := make([]ID, len(d.Chunks))
	for i, chunk := range d.Chunks {
		ids[i] = chunk.Id
	}
	return ids
}
