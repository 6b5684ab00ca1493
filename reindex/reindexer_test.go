package reindex

import (
	"bytes"
	"context"
	"errors"
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

func testConfig() *Config {
	return &Config{
		ReportInterval: 1,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
	}
}

func seedDocument(t *testing.T, repo storage.DocumentRepository, idx *index.Index, enabled bool, texts ...string) *core.Document {
	t.Helper()
	ctx := context.Background()

	docID := core.NewID()
	chunks := make([]core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.Chunk{Id: core.NewID(), Content: text, DocumentId: docID}
	}

	doc := &core.Document{
		Id:     docID,
		Chunks: chunks,
		Metadata: core.Metadata{
			Filename:      "doc.txt",
			Type:          "txt",
			UploadedAt:    time.Now().UTC(),
			ChunkCount:    len(chunks),
			ParsingStatus: core.StatusUnparsed,
			Enabled:       enabled,
		},
	}
	stored, err := repo.Insert(ctx, doc)
	require.NoError(t, err)

	if enabled {
		entries := make([]index.Entry, len(chunks))
		for i, c := range chunks {
			entries[i] = index.Entry{
				Id:       c.Id,
				Document: docID,
				Content:  c.Content,
				Vector:   mock.DeterministicVector("stale "+c.Content, 8),
			}
		}
		require.NoError(t, idx.Add(ctx, entries...))
	}
	return stored
}

func newReindexFixture(t *testing.T) (storage.DocumentRepository, *index.Index, *mock.Embedder) {
	t.Helper()

	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	idx, err := index.New(8, filepath.Join(t.TempDir(), "index.snapshot"))
	require.NoError(t, err)

	return repo, idx, mock.NewEmbedder(8)
}

func TestRun_ReplacesVectorsForEnabledDocuments(t *testing.T) {
	repo, idx, embedder := newReindexFixture(t)
	ctx := context.Background()

	doc := seedDocument(t, repo, idx, true, "first chunk", "second chunk")
	var out bytes.Buffer

	r := NewReindexer(repo, idx, embedder, testConfig(), &out)
	require.NoError(t, r.Run(ctx))

	// Same ids, fresh vectors.
	assert.Equal(t, len(doc.Chunks), idx.Len())
	matches, err := idx.Search(ctx, mock.DeterministicVector("first chunk", 8), 1)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, doc.Chunks[0].Id, matches[0].Id)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	assert.Contains(t, out.String(), "Reindex complete")
}

func TestRun_SkipsDisabledDocuments(t *testing.T) {
	repo, idx, embedder := newReindexFixture(t)

	seedDocument(t, repo, idx, false, "disabled content")
	var out bytes.Buffer

	r := NewReindexer(repo, idx, embedder, testConfig(), &out)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, 0, idx.Len())
	assert.Contains(t, out.String(), "No enabled documents")
}

func TestRun_FailedDocumentKeepsOldVectors(t *testing.T) {
	repo, idx, embedder := newReindexFixture(t)
	ctx := context.Background()

	doc := seedDocument(t, repo, idx, true, "resilient chunk")
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("provider down")
	}

	var out bytes.Buffer
	r := NewReindexer(repo, idx, embedder, testConfig(), &out)
	require.NoError(t, r.Run(ctx))

	// The stale vector survives a failed re-embed.
	assert.True(t, idx.Contains(doc.Chunks[0].Id))
	assert.Contains(t, out.String(), "failed")
}

func TestRun_PersistsSnapshot(t *testing.T) {
	repo, idx, embedder := newReindexFixture(t)
	ctx := context.Background()

	doc := seedDocument(t, repo, idx, true, "persisted chunk")
	var out bytes.Buffer
	r := NewReindexer(repo, idx, embedder, testConfig(), &out)
	require.NoError(t, r.Run(ctx))

	reloaded, err := index.New(8, idx.SnapshotPath())
	require.NoError(t, err)
	require.NoError(t, reloaded.Load())
	assert.True(t, reloaded.Contains(doc.Chunks[0].Id))
}

func TestProgressTracker_Reports(t *testing.T) {
	var out bytes.Buffer
	tracker := NewProgressTracker(&out, 10, 5)
	tracker.Start()
	tracker.Increment(5)
	tracker.Finish()

	assert.Contains(t, out.String(), "10/10")
	assert.Contains(t, out.String(), "100.0%")
}
