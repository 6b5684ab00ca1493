package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpus/ai/mock"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/index"
	"github.com/poiesic/corpus/storage"
	"github.com/poiesic/corpus/storage/badger"
)

type searchFixture struct {
	searcher   *Searcher
	repository storage.DocumentRepository
	idx        *index.Index
	embedder   *mock.Embedder
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()

	repository, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	idx, err := index.New(8, filepath.Join(t.TempDir(), "index.snapshot"))
	require.NoError(t, err)

	embedder := mock.NewEmbedder(8)
	searcher, err := NewSearcher(repository, idx, embedder)
	require.NoError(t, err)

	return &searchFixture{searcher: searcher, repository: repository, idx: idx, embedder: embedder}
}

// indexDocument stores and indexes a document with one chunk per text.
func (f *searchFixture) indexDocument(t *testing.T, filename string, texts ...string) *core.Document {
	t.Helper()
	ctx := context.Background()

	docID := core.NewID()
	chunks := make([]core.Chunk, len(texts))
	entries := make([]index.Entry, len(texts))
	for i, text := range texts {
		chunks[i] = core.Chunk{Id: core.NewID(), Content: text, DocumentId: docID}
		entries[i] = index.Entry{
			Id:       chunks[i].Id,
			Document: docID,
			Content:  text,
			Vector:   mock.DeterministicVector(text, 8),
		}
	}

	doc := &core.Document{
		Id:     docID,
		Chunks: chunks,
		Metadata: core.Metadata{
			Filename:      filename,
			Type:          "txt",
			UploadedAt:    time.Now().UTC(),
			ChunkCount:    len(chunks),
			ParsingStatus: core.StatusUnparsed,
			Enabled:       true,
		},
	}
	stored, err := f.repository.Insert(ctx, doc)
	require.NoError(t, err)
	require.NoError(t, f.idx.Add(ctx, entries...))
	return stored
}

func TestSearchReturnsExactTextFirst(t *testing.T) {
	f := newSearchFixture(t)

	f.indexDocument(t, "animals.txt",
		"cats sleep most of the day",
		"dogs chase the mail carrier",
		"parrots repeat what they hear")

	results, err := f.searcher.Search(context.Background(), "dogs chase the mail carrier", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "dogs chase the mail carrier", results[0].Chunk.Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}

func TestSearchHydratesDocuments(t *testing.T) {
	f := newSearchFixture(t)

	doc := f.indexDocument(t, "report.txt", "quarterly revenue grew by ten percent")
	results, err := f.searcher.Search(context.Background(), "quarterly revenue grew by ten percent", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.NotNil(t, results[0].Document)
	assert.Equal(t, doc.Id, results[0].Document.Id)
	assert.Equal(t, "report.txt", results[0].Document.Metadata.Filename)
	assert.Equal(t, doc.Id, results[0].Chunk.DocumentId)
}

func TestSearchEmptyQuery(t *testing.T) {
	f := newSearchFixture(t)

	_, err := f.searcher.Search(context.Background(), "", 3)
	assert.ErrorIs(t, err, core.ErrEmptyInput)
}

func TestSearchEmptyIndex(t *testing.T) {
	f := newSearchFixture(t)

	results, err := f.searcher.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchDefaultLimit(t *testing.T) {
	f := newSearchFixture(t)

	texts := make([]string, DefaultLimit+3)
	for i := range texts {
		texts[i] = "filler chunk number " + string(rune('a'+i))
	}
	f.indexDocument(t, "filler.txt", texts...)

	results, err := f.searcher.Search(context.Background(), "filler chunk", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultLimit)
}

func TestSearchKBoundedByIndexSize(t *testing.T) {
	f := newSearchFixture(t)

	f.indexDocument(t, "small.txt", "only one chunk here")
	results, err := f.searcher.Search(context.Background(), "one chunk", 50)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchDropsHitsWithMissingDocument(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	kept := f.indexDocument(t, "kept.txt", "the kept document content")
	gone := f.indexDocument(t, "gone.txt", "the deleted document content")

	// Record deleted but its vectors left behind.
	require.NoError(t, f.repository.Delete(ctx, gone.Id))

	results, err := f.searcher.Search(ctx, "document content", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, kept.Id, results[0].Document.Id)
}
