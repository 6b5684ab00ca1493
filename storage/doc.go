// Package storage defines the persistence interfaces for the ingestion core:
// the DocumentRepository (source of truth for document records and lifecycle
// state) and the BlobStore collaborator that owns raw uploaded bytes.
// Serialization helpers convert domain records to and from their binary form.
package storage
