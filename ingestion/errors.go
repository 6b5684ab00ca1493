package ingestion

import "errors"

var (
	// ErrRepositoryRequired indicates a nil document repository was provided.
	ErrRepositoryRequired = errors.New("document repository is required")

	// ErrBlobStoreRequired indicates a nil blob store was provided.
	ErrBlobStoreRequired = errors.New("blob store is required")

	// ErrRegistryRequired indicates a nil loader registry was provided.
	ErrRegistryRequired = errors.New("loader registry is required")

	// ErrSplitterRequired indicates a nil splitter was provided.
	ErrSplitterRequired = errors.New("splitter is required")

	// ErrIndexRequired indicates a nil vector index was provided.
	ErrIndexRequired = errors.New("vector index is required")
)
