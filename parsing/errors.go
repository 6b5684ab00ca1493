package parsing

import "errors"

var (
	// ErrRepositoryRequired indicates a nil document repository was provided.
	ErrRepositoryRequired = errors.New("document repository is required")

	// ErrIndexRequired indicates a nil vector index was provided.
	ErrIndexRequired = errors.New("vector index is required")

	// ErrEmbedderRequired indicates a nil embedder was provided.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrUnknownParser indicates no parser is registered under the name.
	ErrUnknownParser = errors.New("unknown parser")

	// ErrDocumentBusy indicates another parse or embed job is already in
	// flight for the document.
	ErrDocumentBusy = errors.New("a job is already in flight for this document")
)
