// Package index provides the vector index: a nearest-neighbor search
// structure over chunk embeddings with at-most-once add semantics,
// idempotent deletes and a durable on-disk snapshot.
//
// Adds are atomic per batch: the whole batch is validated before anything
// is applied. Re-indexing is always delete-then-add; a blind overwrite of
// an existing chunk id is rejected with core.ErrDuplicateID.
package index
