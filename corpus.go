// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package corpus wires the document pipeline together: blob storage, the
// badger-backed document store, the vector index, AI providers, and the
// ingestion, parsing, search and job services on top of them.
package corpus

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/ai/openai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/index"
	"github.com/poiesic/corpus/ingestion"
	"github.com/poiesic/corpus/jobs"
	"github.com/poiesic/corpus/loader"
	"github.com/poiesic/corpus/parsing"
	"github.com/poiesic/corpus/reindex"
	"github.com/poiesic/corpus/search"
	"github.com/poiesic/corpus/splitter"
	"github.com/poiesic/corpus/storage"
	"github.com/poiesic/corpus/storage/badger"
	"github.com/poiesic/corpus/storage/blob"
)

// Background job types accepted by ScheduleJob.
const (
	JobParse   = "parse"
	JobEmbed   = "embed"
	JobSummary = ingestion.SummaryJobType
)

// Corpus is the top-level handle over one data directory.
type Corpus struct {
	backend    *badger.Backend
	repository storage.DocumentRepository
	blobs      storage.BlobStore
	idx        *index.Index
	cache      *ai.Cache
	provider   ai.Provider
	pipeline   *ingestion.Pipeline
	parser     *parsing.Service
	searcher   *search.Searcher
	runner     *jobs.Runner
	logger     *slog.Logger
}

// Option configures a Corpus.
type Option func(*corpusOptions)

type corpusOptions struct {
	aiConfig     *ai.Config
	aiFactory    ai.Factory
	blobs        storage.BlobStore
	chunkSize    int
	chunkOverlap int
	inMemory     bool
	poolSize     int
	logger       *slog.Logger
}

// WithAIConfig selects the embedding/summary provider configuration.
func WithAIConfig(config *ai.Config) Option {
	return func(o *corpusOptions) {
		o.aiConfig = config
	}
}

// WithAIFactory overrides how providers are constructed, for tests.
func WithAIFactory(factory ai.Factory) Option {
	return func(o *corpusOptions) {
		o.aiFactory = factory
	}
}

// WithBlobStore replaces the default local-disk blob store.
func WithBlobStore(blobs storage.BlobStore) Option {
	return func(o *corpusOptions) {
		o.blobs = blobs
	}
}

// WithChunking sets the splitter window parameters in runes.
func WithChunking(size, overlap int) Option {
	return func(o *corpusOptions) {
		o.chunkSize = size
		o.chunkOverlap = overlap
	}
}

// WithInMemory keeps the document store off disk, for tests.
func WithInMemory() Option {
	return func(o *corpusOptions) {
		o.inMemory = true
	}
}

// WithPoolSize sets the background job worker pool size.
func WithPoolSize(size int) Option {
	return func(o *corpusOptions) {
		o.poolSize = size
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *corpusOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open initializes a corpus rooted at dataDir. The document store lives under
// dataDir/db, uploaded blobs under dataDir/blobs, and the index snapshot at
// dataDir/index.snapshot. The persisted snapshot is loaded eagerly so a
// dimension mismatch with the configured embedding model fails here, not at
// query time.
func Open(dataDir string, opts ...Option) (*Corpus, error) {
	options := &corpusOptions{
		aiConfig:     ai.DefaultConfig(),
		chunkSize:    splitter.DefaultChunkSize,
		chunkOverlap: splitter.DefaultChunkOverlap,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	factory := options.aiFactory
	if factory == nil {
		factory = func(config *ai.Config) (ai.Provider, error) {
			return openai.NewProvider(config)
		}
	}

	cache := ai.NewCache(factory)
	provider, err := cache.Provider(options.aiConfig)
	if err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(filepath.Join(dataDir, "db"), options.inMemory)
	if err != nil {
		return nil, err
	}
	repository := badger.NewDocumentRepository(backend)

	cleanup := func() {
		_ = backend.Close()
		_ = cache.Invalidate()
	}

	blobs := options.blobs
	if blobs == nil {
		blobs, err = blob.NewLocalStore(filepath.Join(dataDir, "blobs"))
		if err != nil {
			cleanup()
			return nil, err
		}
	}

	idx, err := index.New(provider.Embedder().Dimension(), filepath.Join(dataDir, "index.snapshot"),
		index.WithLogger(options.logger))
	if err != nil {
		cleanup()
		return nil, err
	}
	if err := idx.Load(); err != nil {
		cleanup()
		return nil, err
	}

	split, err := splitter.New(options.chunkSize, options.chunkOverlap)
	if err != nil {
		cleanup()
		return nil, err
	}

	runnerOpts := []jobs.Option{jobs.WithLogger(options.logger)}
	if options.poolSize > 0 {
		runnerOpts = append(runnerOpts, jobs.WithPoolSize(options.poolSize))
	}
	runner, err := jobs.NewRunner(runnerOpts...)
	if err != nil {
		cleanup()
		return nil, err
	}

	pipeline, err := ingestion.NewPipeline(repository, blobs, loader.DefaultRegistry(), split, idx,
		ingestion.WithQueue(runner),
		ingestion.WithLogger(options.logger))
	if err != nil {
		cleanup()
		return nil, err
	}

	parser, err := parsing.NewService(repository, idx, provider.Embedder(), parsing.NewRegistry(split),
		parsing.WithLogger(options.logger))
	if err != nil {
		cleanup()
		return nil, err
	}

	searcher, err := search.NewSearcher(repository, idx, provider.Embedder(),
		search.WithLogger(options.logger))
	if err != nil {
		cleanup()
		return nil, err
	}

	c := &Corpus{
		backend:    backend,
		repository: repository,
		blobs:      blobs,
		idx:        idx,
		cache:      cache,
		provider:   provider,
		pipeline:   pipeline,
		parser:     parser,
		searcher:   searcher,
		runner:     runner,
		logger:     options.logger,
	}

	if err := c.registerJobs(); err != nil {
		_ = runner.Close()
		cleanup()
		return nil, err
	}

	return c, nil
}

func (c *Corpus) registerJobs() error {
	if err := c.runner.Register(JobSummary,
		ingestion.NewSummaryHandler(c.repository, c.provider.Summarizer(), c.logger)); err != nil {
		return err
	}
	if err := c.runner.Register(JobParse, func(ctx context.Context, documentID core.ID) error {
		_, err := c.parser.Parse(ctx, documentID, "")
		return err
	}); err != nil {
		return err
	}
	return c.runner.Register(JobEmbed, func(ctx context.Context, documentID core.ID) error {
		_, err := c.parser.Embed(ctx, documentID)
		return err
	})
}

// Ingest stores an uploaded file and creates its document record.
func (c *Corpus) Ingest(ctx context.Context, data []byte, filename string) (*core.Document, error) {
	return c.pipeline.Ingest(ctx, data, filename)
}

// Delete removes a document, its index entries, and its stored blob.
func (c *Corpus) Delete(ctx context.Context, id core.ID) error {
	return c.pipeline.Delete(ctx, id)
}

// Reparse re-extracts a document with the named parser, or the extension
// default when parserName is empty.
func (c *Corpus) Reparse(ctx context.Context, id core.ID, parserName string) (*core.Document, error) {
	return c.parser.Parse(ctx, id, parserName)
}

// Embed indexes a document's current chunks and enables it for search.
func (c *Corpus) Embed(ctx context.Context, id core.ID) (*core.Document, error) {
	return c.parser.Embed(ctx, id)
}

// Search returns up to k chunks ranked by similarity to query.
func (c *Corpus) Search(ctx context.Context, query string, k int) ([]search.Result, error) {
	return c.searcher.Search(ctx, query, k)
}

// Get retrieves a document by id.
func (c *Corpus) Get(ctx context.Context, id core.ID) (*core.Document, error) {
	return c.repository.Get(ctx, id)
}

// List returns every document ordered by upload time.
func (c *Corpus) List(ctx context.Context) ([]*core.Document, error) {
	return c.repository.ListAll(ctx)
}

// Reconcile repairs store/index disagreements and sweeps orphan vectors.
func (c *Corpus) Reconcile(ctx context.Context) (parsing.Report, error) {
	return c.parser.Reconcile(ctx)
}

// Reindex re-embeds every enabled document, writing progress to w.
func (c *Corpus) Reindex(ctx context.Context, w io.Writer) error {
	return reindex.NewReindexer(c.repository, c.idx, c.provider.Embedder(), nil, w).Run(ctx)
}

// ScheduleJob enqueues a background job for the document and returns the job
// id for polling through JobStatus.
func (c *Corpus) ScheduleJob(ctx context.Context, jobType string, id core.ID) (core.ID, error) {
	return c.runner.Enqueue(ctx, jobType, id)
}

// JobStatus returns a snapshot of a previously scheduled job.
func (c *Corpus) JobStatus(jobID core.ID) (jobs.Job, error) {
	return c.runner.Status(jobID)
}

// Provider exposes the active AI provider.
func (c *Corpus) Provider() ai.Provider {
	return c.provider
}

// Index exposes the vector index, mainly for diagnostics.
func (c *Corpus) Index() *index.Index {
	return c.idx
}

// Close flushes the index snapshot and releases every resource. The job
// runner drains first so no worker touches a closed backend.
func (c *Corpus) Close() error {
	if err := c.runner.Close(); err != nil {
		c.logger.Error("error closing job runner", "err", err)
	}

	if err := c.idx.Persist(); err != nil {
		c.logger.Error("error persisting index snapshot", "err", err)
	}

	if err := c.cache.Invalidate(); err != nil {
		c.logger.Error("error closing AI providers", "err", err)
	}

	if err := c.backend.Close(); err != nil {
		c.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
