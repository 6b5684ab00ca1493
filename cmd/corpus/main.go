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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	corpus "github.com/poiesic/corpus"
	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/splitter"
)

func main() {
	app := &cli.App{
		Name:  "corpus",
		Usage: "Document ingestion and semantic search over a local vector index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Data directory holding the document store, blobs and index snapshot",
				Value:   "./corpus-data",
				EnvVars: []string{"CORPUS_DATA"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				Value:   "http://localhost:11434/v1",
				EnvVars: []string{"CORPUS_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "embeddinggemma",
				EnvVars: []string{"CORPUS_EMBEDDING_MODEL"},
			},
			&cli.IntFlag{
				Name:    "embedding-dimension",
				Usage:   "Embedding vector dimensionality",
				Value:   384,
				EnvVars: []string{"CORPUS_EMBEDDING_DIMENSION"},
			},
			&cli.StringFlag{
				Name:    "summary-model",
				Usage:   "Model used for post-ingest summaries",
				Value:   "qwen2.5:3b",
				EnvVars: []string{"CORPUS_SUMMARY_MODEL"},
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Chunk window size in runes",
				Value: splitter.DefaultChunkSize,
			},
			&cli.IntFlag{
				Name:  "chunk-overlap",
				Usage: "Chunk window overlap in runes",
				Value: splitter.DefaultChunkOverlap,
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest one or more files; each file becomes a document",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "embed",
						Usage: "Embed each document into the index right after ingesting",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search indexed chunks by semantic similarity",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
				},
			},
			{
				Name:      "reparse",
				Usage:     "Re-parse a document with a selected parser",
				ArgsUsage: "DOCUMENT_ID",
				Action:    reparseCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "parser",
						Usage: "Parser name (text, csv, docconv); extension default when omitted",
					},
				},
			},
			{
				Name:      "embed",
				Usage:     "Embed a document's chunks and enable it for search",
				ArgsUsage: "DOCUMENT_ID",
				Action:    embedCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete a document, its vectors and its stored file",
				ArgsUsage: "DOCUMENT_ID",
				Action:    deleteCommand,
			},
			{
				Name:   "list",
				Usage:  "List all documents in upload order",
				Action: listCommand,
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed every enabled document (after an embedding model change)",
				Action: reindexCommand,
			},
			{
				Name:   "reconcile",
				Usage:  "Repair disagreements between the document store and the index",
				Action: reconcileCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup(c *cli.Context) error {
	// Optional .env next to the working directory
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return setupLogger(c)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func openCorpus(c *cli.Context) (*corpus.Corpus, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithSummaryHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithSummaryModel(c.String("summary-model")),
		ai.WithEmbeddingDimension(c.Int("embedding-dimension")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return corpus.Open(c.String("data"),
		corpus.WithAIConfig(aiConfig),
		corpus.WithChunking(c.Int("chunk-size"), c.Int("chunk-overlap")),
	)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	cp, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer cp.Close()

	ctx := context.Background()
	embed := c.Bool("embed")

	// Each file's pipeline is independent; ingest them in parallel.
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range c.Args().Slice() {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			doc, err := cp.Ingest(gctx, data, filepath.Base(path))
			if err != nil {
				return fmt.Errorf("failed to ingest %s: %w", path, err)
			}

			if embed {
				if _, err := cp.Embed(gctx, doc.Id); err != nil {
					return fmt.Errorf("failed to embed %s: %w", path, err)
				}
			}

			fmt.Printf("%s  %s  (%d chunks)\n", doc.Id, doc.Metadata.Filename, len(doc.Chunks))
			return nil
		})
	}
	return g.Wait()
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}

	cp, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer cp.Close()

	results, err := cp.Search(context.Background(), query, c.Int("limit"))
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}

	for i, r := range results {
		snippet := r.Chunk.Content
		if len(snippet) > 160 {
			snippet = snippet[:160] + "…"
		}
		fmt.Printf("%2d. [%.4f] %s (%s)\n    %s\n",
			i+1, r.Score, r.Document.Metadata.Filename, r.Document.Id, snippet)
	}
	return nil
}

func reparseCommand(c *cli.Context) error {
	id, err := documentIDArg(c)
	if err != nil {
		return err
	}

	cp, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer cp.Close()

	doc, err := cp.Reparse(context.Background(), id, c.String("parser"))
	if err != nil {
		return err
	}

	fmt.Printf("%s parsed with %s: %d chunks, status %s\n",
		doc.Id, doc.Metadata.Parser, len(doc.Chunks), doc.Metadata.ParsingStatus)
	return nil
}

func embedCommand(c *cli.Context) error {
	id, err := documentIDArg(c)
	if err != nil {
		return err
	}

	cp, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer cp.Close()

	doc, err := cp.Embed(context.Background(), id)
	if err != nil {
		return err
	}

	fmt.Printf("%s embedded: %d chunks indexed\n", doc.Id, len(doc.Chunks))
	return nil
}

func deleteCommand(c *cli.Context) error {
	id, err := documentIDArg(c)
	if err != nil {
		return err
	}

	cp, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer cp.Close()

	if err := cp.Delete(context.Background(), id); err != nil {
		return err
	}

	fmt.Printf("%s deleted\n", id)
	return nil
}

func listCommand(c *cli.Context) error {
	cp, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer cp.Close()

	docs, err := cp.List(context.Background())
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		fmt.Println("no documents")
		return nil
	}

	for _, doc := range docs {
		enabled := " "
		if doc.Metadata.Enabled {
			enabled = "*"
		}
		fmt.Printf("%s %s  %-8s  %4d chunks  %s\n",
			enabled, doc.Id, doc.Metadata.ParsingStatus, len(doc.Chunks), doc.Metadata.Filename)
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	cp, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer cp.Close()

	return cp.Reindex(context.Background(), os.Stderr)
}

func reconcileCommand(c *cli.Context) error {
	cp, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer cp.Close()

	report, err := cp.Reconcile(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("checked %d documents, repaired %d, removed %d orphan vectors\n",
		report.DocumentsChecked, report.DocumentsRepaired, report.OrphanVectorsRemoved)
	return nil
}

func documentIDArg(c *cli.Context) (core.ID, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("exactly one document id is required")
	}
	return core.ID(c.Args().First()), nil
}
