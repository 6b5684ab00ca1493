package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// Close releases repository resources.
func (r *DocumentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// Insert adds a new document to storage.
func (r *DocumentRepository) Insert(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.Id)
		if _, err := tx.Get(key); err == nil {
			return storage.ErrAlreadyExists
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		doc.InsertedAt = time.Now().UTC()
		doc.UpdatedAt = doc.InsertedAt

		if err := r.writeDocument(tx, doc, nil); err != nil {
			return err
		}

		// Upload-time index
		dateKey := makeDocumentDateKey(doc.Metadata.UploadedAt, doc.Id)
		if err := tx.Set(dateKey, storage.MarshalID(doc.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return doc, err
}

// Get retrieves a document by id.
func (r *DocumentRepository) Get(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = r.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Update replaces an existing document record.
func (r *DocumentRepository) Update(ctx context.Context, doc *core.Document) (*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := r.readDocument(tx, makeDocumentKey(doc.Id))
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		doc.UpdatedAt = time.Now().UTC()
		if err := r.writeDocument(tx, doc, old); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return doc, err
}

// Mutate applies fn to the stored snapshot of the document inside a single
// transaction. The snapshot read and the write commit together, so a later
// write never overtakes an earlier one for the same document id.
func (r *DocumentRepository) Mutate(ctx context.Context, id core.ID, fn func(doc *core.Document) error) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := r.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		// fn mutates a copy; nothing is written if fn fails
		next := *old
		next.Chunks = append([]core.Chunk(nil), old.Chunks...)
		if err := fn(&next); err != nil {
			return err
		}

		next.UpdatedAt = time.Now().UTC()
		if err := r.writeDocument(tx, &next, old); err != nil {
			return err
		}
		doc = &next
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes a document and its secondary index entries.
func (r *DocumentRepository) Delete(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentDateKey(doc.Metadata.UploadedAt, doc.Id)); err != nil {
			return err
		}
		for _, chunk := range doc.Chunks {
			if err := tx.Delete(makeChunkOwnerKey(chunk.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ListAll returns every stored document ordered by upload time.
func (r *DocumentRepository) ListAll(ctx context.Context) ([]*core.Document, error) {
	var docs []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentDatePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}

			doc, err := r.readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if doc != nil {
				docs = append(docs, doc)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// GetByChunk resolves the document owning the given chunk id.
func (r *DocumentRepository) GetByChunk(ctx context.Context, chunkID core.ID) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeChunkOwnerKey(chunkID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var docID core.ID
		if err := item.Value(func(val []byte) error {
			var err error
			docID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}

		doc, err = r.readDocument(tx, makeDocumentKey(docID))
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// readDocument reads and unmarshals a document record.
// Returns nil, nil if the key doesn't exist.
func (r *DocumentRepository) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// writeDocument stores the record and maintains the chunk ownership index.
// old carries the previously stored snapshot so stale chunk entries are
// removed; pass nil on first insert.
func (r *DocumentRepository) writeDocument(tx *badger.Txn, doc *core.Document, old *core.Document) error {
	if err := tx.Set(makeDocumentKey(doc.Id), storage.MarshalDocument(doc)); err != nil {
		return err
	}

	current := make(map[core.ID]bool, len(doc.Chunks))
	for _, chunk := range doc.Chunks {
		current[chunk.Id] = true
		if err := tx.Set(makeChunkOwnerKey(chunk.Id), storage.MarshalID(doc.Id)); err != nil {
			return err
		}
	}

	if old != nil {
		for _, chunk := range old.Chunks {
			if !current[chunk.Id] {
				if err := tx.Delete(makeChunkOwnerKey(chunk.Id)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
