package parsing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpus/ai/mock"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/index"
	"github.com/poiesic/corpus/splitter"
	"github.com/poiesic/corpus/storage"
	"github.com/poiesic/corpus/storage/badger"
)

type serviceFixture struct {
	svc        *Service
	repository storage.DocumentRepository
	idx        *index.Index
	embedder   *mock.Embedder
	split      *splitter.Splitter
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	repository, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	idx, err := index.New(8, filepath.Join(t.TempDir(), "index.snapshot"))
	require.NoError(t, err)

	split, err := splitter.New(60, 10)
	require.NoError(t, err)

	embedder := mock.NewEmbedder(8)
	svc, err := NewService(repository, idx, embedder, NewRegistry(split))
	require.NoError(t, err)

	return &serviceFixture{
		svc:        svc,
		repository: repository,
		idx:        idx,
		embedder:   embedder,
		split:      split,
	}
}

// seedDocument stores a document whose chunks come from content and whose
// FilePath points at a real file holding the same content.
func (f *serviceFixture) seedDocument(t *testing.T, content string) *core.Document {
	t.Helper()

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	docID := core.NewID()
	chunks := f.split.Split(content, docID)
	doc := &core.Document{
		Id:     docID,
		Chunks: chunks,
		Metadata: core.Metadata{
			Filename:      "doc.txt",
			Type:          "txt",
			Size:          int64(len(content)),
			UploadedAt:    time.Now().UTC(),
			ChunkCount:    len(chunks),
			PageCount:     1,
			ParsingStatus: core.StatusUnparsed,
			FilePath:      path,
		},
	}

	stored, err := f.repository.Insert(context.Background(), doc)
	require.NoError(t, err)
	return stored
}

func testContent() string {
	return strings.Repeat("the archive holds every report ever filed. ", 8)
}

func TestParseDisabledDocumentStaysOutOfIndex(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())
	oldIDs := doc.ChunkIDs()

	parsed, err := f.svc.Parse(ctx, doc.Id, ParserText)
	require.NoError(t, err)

	assert.Equal(t, core.StatusSuccess, parsed.Metadata.ParsingStatus)
	assert.Equal(t, ParserText, parsed.Metadata.Parser)
	assert.False(t, parsed.Metadata.Enabled)
	assert.Equal(t, len(parsed.Chunks), parsed.Metadata.ChunkCount)
	assert.Equal(t, 0, f.idx.Len(), "disabled document must not reach the index")

	// Fresh ids, never reused.
	for _, oldID := range oldIDs {
		for _, c := range parsed.Chunks {
			assert.NotEqual(t, oldID, c.Id)
		}
	}
}

func TestParseDefaultParserByExtension(t *testing.T) {
	f := newServiceFixture(t)

	doc := f.seedDocument(t, testContent())
	parsed, err := f.svc.Parse(context.Background(), doc.Id, "")
	require.NoError(t, err)
	assert.Equal(t, ParserText, parsed.Metadata.Parser)
}

func TestParseEnabledDocumentSwapsIndexEntries(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())
	embedded, err := f.svc.Embed(ctx, doc.Id)
	require.NoError(t, err)
	require.True(t, embedded.Metadata.Enabled)
	oldIDs := embedded.ChunkIDs()

	// Source changed on disk; a re-parse picks it up.
	newContent := strings.Repeat("fresh revision of the report after edits. ", 8)
	require.NoError(t, os.WriteFile(embedded.Metadata.FilePath, []byte(newContent), 0o644))

	parsed, err := f.svc.Parse(ctx, doc.Id, ParserText)
	require.NoError(t, err)

	assert.True(t, parsed.Metadata.Enabled)
	assert.Equal(t, core.StatusSuccess, parsed.Metadata.ParsingStatus)

	// Exactly the new chunk ids are indexed; none of the old survive.
	assert.Equal(t, len(parsed.Chunks), f.idx.Len())
	for _, c := range parsed.Chunks {
		assert.True(t, f.idx.Contains(c.Id))
	}
	for _, oldID := range oldIDs {
		assert.False(t, f.idx.Contains(oldID), "stale chunk %s left in index", oldID)
	}
}

func TestParseFailureKeepsPriorState(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())
	require.NoError(t, os.Remove(doc.Metadata.FilePath))

	_, err := f.svc.Parse(ctx, doc.Id, ParserText)
	require.Error(t, err)

	stored, getErr := f.repository.Get(ctx, doc.Id)
	require.NoError(t, getErr)
	assert.Equal(t, core.StatusFailed, stored.Metadata.ParsingStatus)
	assert.Equal(t, doc.ChunkIDs(), stored.ChunkIDs(), "prior chunks must survive a failed parse")
	assert.False(t, stored.Metadata.Enabled)
	assert.Empty(t, stored.Metadata.Parser, "parser field must revert when no new chunk set was produced")
}

func TestParseFailureKeepsEnabledDocumentIndexed(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())
	embedded, err := f.svc.Embed(ctx, doc.Id)
	require.NoError(t, err)

	require.NoError(t, os.Remove(embedded.Metadata.FilePath))

	_, err = f.svc.Parse(ctx, doc.Id, ParserText)
	require.Error(t, err)

	stored, getErr := f.repository.Get(ctx, doc.Id)
	require.NoError(t, getErr)
	assert.Equal(t, core.StatusFailed, stored.Metadata.ParsingStatus)
	assert.True(t, stored.Metadata.Enabled, "enabled remains whatever it was before the attempt")
	for _, id := range stored.ChunkIDs() {
		assert.True(t, f.idx.Contains(id))
	}
}

func TestParseRetryAfterFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())
	path := doc.Metadata.FilePath
	require.NoError(t, os.Remove(path))

	_, err := f.svc.Parse(ctx, doc.Id, ParserText)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(testContent()), 0o644))

	parsed, err := f.svc.Parse(ctx, doc.Id, ParserText)
	require.NoError(t, err)
	assert.Equal(t, core.StatusSuccess, parsed.Metadata.ParsingStatus)
}

func TestParseRejectsConcurrentClaim(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())
	_, err := f.repository.Mutate(ctx, doc.Id, func(d *core.Document) error {
		d.Metadata.ParsingStatus = core.StatusParsing
		return nil
	})
	require.NoError(t, err)

	_, err = f.svc.Parse(ctx, doc.Id, ParserText)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestParseUnknownParser(t *testing.T) {
	f := newServiceFixture(t)

	doc := f.seedDocument(t, testContent())
	_, err := f.svc.Parse(context.Background(), doc.Id, "nonexistent")
	assert.ErrorIs(t, err, ErrUnknownParser)
}

func TestParseUnknownDocument(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Parse(context.Background(), core.NewID(), ParserText)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEmbedEnablesWithoutTouchingStatus(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())
	embedded, err := f.svc.Embed(ctx, doc.Id)
	require.NoError(t, err)

	assert.True(t, embedded.Metadata.Enabled)
	assert.Equal(t, core.StatusUnparsed, embedded.Metadata.ParsingStatus,
		"embedding says nothing about parsing")
	assert.Equal(t, len(doc.Chunks), f.idx.Len())
	for _, id := range embedded.ChunkIDs() {
		assert.True(t, f.idx.Contains(id))
	}
}

func TestEmbedIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())
	_, err := f.svc.Embed(ctx, doc.Id)
	require.NoError(t, err)
	_, err = f.svc.Embed(ctx, doc.Id)
	require.NoError(t, err)

	assert.Equal(t, len(doc.Chunks), f.idx.Len())
}

func TestEmbedNoChunks(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())
	_, err := f.repository.Mutate(ctx, doc.Id, func(d *core.Document) error {
		d.Chunks = nil
		d.Metadata.ChunkCount = 0
		return nil
	})
	require.NoError(t, err)

	_, err = f.svc.Embed(ctx, doc.Id)
	assert.ErrorIs(t, err, core.ErrEmptyInput)
}

func TestEmbedProviderFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, core.ErrEmbeddingProvider
	}

	_, err := f.svc.Embed(ctx, doc.Id)
	require.ErrorIs(t, err, core.ErrEmbeddingProvider)

	stored, getErr := f.repository.Get(ctx, doc.Id)
	require.NoError(t, getErr)
	assert.False(t, stored.Metadata.Enabled)
	assert.Equal(t, 0, f.idx.Len())
}

func TestParseRejectedWhileEmbedInFlight(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())

	embedding := make(chan struct{})
	proceed := make(chan struct{})
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		close(embedding)
		<-proceed
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 8)
		}
		return vectors, nil
	}

	embedDone := make(chan error, 1)
	go func() {
		_, err := f.svc.Embed(ctx, doc.Id)
		embedDone <- err
	}()

	<-embedding
	_, err := f.svc.Parse(ctx, doc.Id, ParserText)
	assert.ErrorIs(t, err, ErrDocumentBusy)

	close(proceed)
	require.NoError(t, <-embedDone)

	stored, err := f.repository.Get(ctx, doc.Id)
	require.NoError(t, err)
	assert.True(t, stored.Metadata.Enabled)
	for _, id := range stored.ChunkIDs() {
		assert.True(t, f.idx.Contains(id), "enabled document's chunks must all be indexed")
	}
	assert.Equal(t, len(stored.Chunks), f.idx.Len())
}

func TestEmbedRejectedWhileParseInFlight(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())
	_, err := f.svc.Embed(ctx, doc.Id)
	require.NoError(t, err)
	oldIDs := doc.ChunkIDs()

	// An enabled document makes Parse re-embed its fresh chunks, which is
	// where it blocks while the concurrent Embed is attempted.
	parsing := make(chan struct{})
	proceed := make(chan struct{})
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		close(parsing)
		<-proceed
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 8)
		}
		return vectors, nil
	}

	parseDone := make(chan error, 1)
	go func() {
		_, err := f.svc.Parse(ctx, doc.Id, ParserText)
		parseDone <- err
	}()

	<-parsing
	_, err = f.svc.Embed(ctx, doc.Id)
	assert.ErrorIs(t, err, ErrDocumentBusy)

	close(proceed)
	require.NoError(t, <-parseDone)

	stored, err := f.repository.Get(ctx, doc.Id)
	require.NoError(t, err)
	assert.True(t, stored.Metadata.Enabled)
	assert.Equal(t, core.StatusSuccess, stored.Metadata.ParsingStatus)
	for _, id := range stored.ChunkIDs() {
		assert.True(t, f.idx.Contains(id), "enabled document's chunks must all be indexed")
	}
	for _, id := range oldIDs {
		assert.False(t, f.idx.Contains(id), "replaced chunk ids must leave the index")
	}
	assert.Equal(t, len(stored.Chunks), f.idx.Len())
}

func TestReconcilePartialMembership(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())
	embedded, err := f.svc.Embed(ctx, doc.Id)
	require.NoError(t, err)
	require.Greater(t, len(embedded.Chunks), 1)

	// Simulate a crash that left the index partially updated.
	f.idx.Delete(ctx, embedded.Chunks[0].Id)

	changed, err := f.svc.ReconcileDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.True(t, changed)

	stored, err := f.repository.Get(ctx, doc.Id)
	require.NoError(t, err)
	assert.False(t, stored.Metadata.Enabled)
	assert.Equal(t, 0, f.idx.Len(), "partial leftovers must be removed")
}

func TestReconcileRecoversEnabledFlag(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())
	_, err := f.svc.Embed(ctx, doc.Id)
	require.NoError(t, err)

	// Flag lost, vectors intact.
	_, err = f.repository.Mutate(ctx, doc.Id, func(d *core.Document) error {
		d.Metadata.Enabled = false
		return nil
	})
	require.NoError(t, err)

	changed, err := f.svc.ReconcileDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.True(t, changed)

	stored, err := f.repository.Get(ctx, doc.Id)
	require.NoError(t, err)
	assert.True(t, stored.Metadata.Enabled)
}

func TestReconcileSweepsOrphanVectors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doc := f.seedDocument(t, testContent())
	_, err := f.svc.Embed(ctx, doc.Id)
	require.NoError(t, err)

	orphan := index.Entry{
		Id:       core.NewID(),
		Document: core.NewID(),
		Content:  "vector with no owning document",
		Vector:   mock.DeterministicVector("orphan", 8),
	}
	require.NoError(t, f.idx.Add(ctx, orphan))

	report, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.DocumentsChecked)
	assert.Equal(t, 1, report.OrphanVectorsRemoved)
	assert.False(t, f.idx.Contains(orphan.Id))

	stored, err := f.repository.Get(ctx, doc.Id)
	require.NoError(t, err)
	assert.True(t, stored.Metadata.Enabled, "healthy document must not be disturbed")
}

func TestReconcileCleanStateIsNoop(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Embed(ctx, f.seedDocument(t, testContent()).Id)
	require.NoError(t, err)

	report, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.DocumentsRepaired)
	assert.Equal(t, 0, report.OrphanVectorsRemoved)
}

func TestWithTimeoutValidation(t *testing.T) {
	f := newServiceFixture(t)

	_, err := NewService(f.repository, f.idx, f.embedder, NewRegistry(f.split), WithTimeout(-time.Second))
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
}
