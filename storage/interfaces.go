package storage

import (
	"context"

	"github.com/poiesic/corpus/core"
)

// DocumentRepository is the single source of truth for document records and
// their lifecycle state. Implementations must be thread-safe and apply every
// write atomically per document id.
type DocumentRepository interface {
	// Insert adds a new document to storage.
	// Sets InsertedAt/UpdatedAt timestamps and returns the stored document.
	// Returns ErrAlreadyExists if a document with the same id is present.
	Insert(ctx context.Context, doc *core.Document) (*core.Document, error)

	// Get retrieves a document by id.
	// Returns ErrNotFound if the document doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.Document, error)

	// Update replaces an existing document record.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the document doesn't exist.
	Update(ctx context.Context, doc *core.Document) (*core.Document, error)

	// Mutate applies fn to the current stored snapshot of the document inside
	// a single transaction and persists the result. Concurrent Mutate calls
	// for the same id serialize; an error from fn aborts without writing.
	// This is the compare-and-set primitive used for parsing status
	// transitions.
	Mutate(ctx context.Context, id core.ID, fn func(doc *core.Document) error) (*core.Document, error)

	// Delete removes a document and its secondary index entries.
	// Returns ErrNotFound if the document doesn't exist.
	Delete(ctx context.Context, id core.ID) error

	// ListAll returns every stored document ordered by upload time.
	ListAll(ctx context.Context) ([]*core.Document, error)

	// GetByChunk resolves the document owning the given chunk id.
	// Returns ErrNotFound if no document claims the chunk.
	GetByChunk(ctx context.Context, chunkID core.ID) (*core.Document, error)

	// WithTransaction executes fn within a storage transaction.
	// If fn returns an error, the transaction is rolled back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// BlobStore persists raw uploaded bytes. It is a collaborator owned outside
// the ingestion core; the core only holds the location reference it returns.
// Save is assumed at-least-once durable once it returns.
type BlobStore interface {
	// Save writes data under path and returns the location reference to
	// record in document metadata.
	Save(ctx context.Context, path string, data []byte) (string, error)

	// Delete removes the blob at path. Deleting a missing blob is a no-op.
	Delete(ctx context.Context, path string) error

	// PublicURL returns an externally resolvable URL for the blob at path.
	PublicURL(path string) string
}
