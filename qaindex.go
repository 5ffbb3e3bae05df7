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

// Package qaindex builds semantic question/answer indexes from versioned
// dataset files and answers free-text queries against them.
//
// An Engine ties the pipeline together:
//
//	engine, err := qaindex.NewEngine(qaindex.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	report, err := engine.IndexVersion(ctx, 1) // data/dataset_v1.json -> index_files/
//	results, err := engine.Query(ctx, "capital of France", 3)
//
// Building and querying are separate lifecycles. Query loads the persisted
// index lazily and never reads the dataset, so a process that only answers
// questions needs nothing but the index directory and the same embedding
// model that built it.
package qaindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/qaindex/ai"
	"github.com/poiesic/qaindex/ai/openai"
	"github.com/poiesic/qaindex/core"
	"github.com/poiesic/qaindex/dataset"
	"github.com/poiesic/qaindex/index"
	"github.com/poiesic/qaindex/search"
	"github.com/poiesic/qaindex/storage"
	"github.com/poiesic/qaindex/storage/badger"
)

const (
	// DefaultDatasetDir holds dataset_v{N}.json files.
	DefaultDatasetDir = "./data"
	// DefaultIndexPath is where the index is persisted.
	DefaultIndexPath = "./index_files"
)

// Config holds the locations and settings an Engine works with.
type Config struct {
	// DatasetDir is the directory holding dataset_v{N}.json files.
	DatasetDir string

	// IndexPath is the directory the index is persisted to and loaded from.
	IndexPath string

	// AI configures the embedding model when none is passed with WithModel.
	AI *ai.Config

	// Build holds options applied to every index build and load.
	Build []index.Option

	// Search holds options applied to every searcher the engine creates.
	Search []search.Option
}

// DefaultConfig returns a Config using ./data, ./index_files and the
// default embedding model.
func DefaultConfig() *Config {
	return &Config{
		DatasetDir: DefaultDatasetDir,
		IndexPath:  DefaultIndexPath,
		AI:         ai.DefaultConfig(),
	}
}

// BuildReport describes one IndexVersion run. Records and Indexed differ
// whenever the build did not store a vector for every record.
type BuildReport struct {
	Version int
	Dataset string
	Records int
	Indexed int
}

// Consistent reports whether every record was indexed.
func (r *BuildReport) Consistent() bool {
	return r.Records == r.Indexed
}

// Engine builds, persists, loads and queries one index location.
type Engine struct {
	cfg        *Config
	provider   ai.AIProvider
	model      ai.Model
	store      storage.IndexStore
	normalizer *dataset.Normalizer
	logger     *slog.Logger

	mu       sync.Mutex
	searcher *search.Searcher
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	model    ai.Model
	provider ai.AIProvider
	store    storage.IndexStore
	logger   *slog.Logger
}

// WithModel sets the embedding model, bypassing Config.AI.
func WithModel(model ai.Model) EngineOption {
	return func(o *engineOptions) {
		o.model = model
	}
}

// WithProvider sets the AI provider whose model the engine uses.
// The engine closes the provider on Close.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithStore sets the index store.
// Default is a BadgerDB store.
func WithStore(store storage.IndexStore) EngineOption {
	return func(o *engineOptions) {
		o.store = store
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine creates an Engine. Without WithModel or WithProvider it
// connects to the OpenAI-compatible service described by cfg.AI.
func NewEngine(cfg *Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	resolved := *cfg
	if resolved.DatasetDir == "" {
		resolved.DatasetDir = DefaultDatasetDir
	}
	if resolved.IndexPath == "" {
		resolved.IndexPath = DefaultIndexPath
	}
	if resolved.AI == nil {
		resolved.AI = ai.DefaultConfig()
	}

	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	provider := options.provider
	model := options.model
	if model == nil {
		if provider == nil {
			var err error
			provider, err = openai.NewProvider(resolved.AI)
			if err != nil {
				return nil, err
			}
		}
		model = provider.Embedder()
	}

	store := options.store
	if store == nil {
		store = badger.NewStore(badger.WithLogger(logger))
	}

	resolved.Build = append([]index.Option{index.WithLogger(logger)}, resolved.Build...)
	resolved.Search = append([]search.Option{search.WithLogger(logger)}, resolved.Search...)

	return &Engine{
		cfg:        &resolved,
		provider:   provider,
		model:      model,
		store:      store,
		normalizer: dataset.NewNormalizer(dataset.WithLogger(logger)),
		logger:     logger.With("component", "engine"),
	}, nil
}

// Close releases the AI provider, if the engine holds one.
func (e *Engine) Close() error {
	if e.provider == nil {
		return nil
	}
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
		return err
	}
	return nil
}

// Model returns the embedding model the engine builds and queries with.
func (e *Engine) Model() ai.Model {
	return e.model
}

// IndexPath returns the directory the index lives in.
func (e *Engine) IndexPath() string {
	return e.cfg.IndexPath
}

// IndexVersion normalizes dataset version v, builds an index from it and
// persists the index. The returned report is never nil.
//
// An empty dataset yields a valid empty index. A build that stores fewer
// vectors than there are records is reported with
// core.ErrIndexBuildInconsistency and is not persisted.
func (e *Engine) IndexVersion(ctx context.Context, v int) (*BuildReport, error) {
	path := dataset.Path(e.cfg.DatasetDir, v)
	report := &BuildReport{Version: v, Dataset: path}

	records, err := e.normalizer.NormalizeFile(ctx, path)
	if err != nil {
		return report, fmt.Errorf("normalize: %w", err)
	}
	report.Records = len(records)

	idx, err := index.Build(ctx, e.model, records, e.cfg.Build...)
	if idx != nil {
		report.Indexed = idx.Len()
	}
	if err != nil {
		if errors.Is(err, core.ErrIndexBuildInconsistency) {
			e.logger.Error("index is inconsistent, not persisting",
				"records", report.Records, "indexed", report.Indexed)
		}
		return report, fmt.Errorf("build: %w", err)
	}

	if err := idx.Persist(ctx, e.store, e.cfg.IndexPath); err != nil {
		return report, fmt.Errorf("persist: %w", err)
	}

	searcher, err := search.NewSearcher(idx, e.model, e.cfg.Search...)
	if err != nil {
		return report, fmt.Errorf("query: %w", err)
	}
	e.mu.Lock()
	e.searcher = searcher
	e.mu.Unlock()

	e.logger.Info("indexed dataset",
		"version", v,
		"records", report.Records,
		"indexed", report.Indexed,
		"path", e.cfg.IndexPath)
	return report, nil
}

// Open loads the persisted index and returns a searcher over it. The
// searcher is cached until the next IndexVersion.
func (e *Engine) Open(ctx context.Context) (*search.Searcher, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.searcher != nil {
		return e.searcher, nil
	}

	idx, err := index.Load(ctx, e.store, e.cfg.IndexPath, e.model, e.cfg.Build...)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	searcher, err := search.NewSearcher(idx, e.model, e.cfg.Search...)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	e.searcher = searcher
	return searcher, nil
}

// EnsureIndex makes sure a usable index exists, building dataset version v
// only when no index is persisted or the persisted one was built by a
// different model. It returns nil and no error when the existing index was
// reused.
func (e *Engine) EnsureIndex(ctx context.Context, v int) (*BuildReport, error) {
	_, err := e.Open(ctx)
	if err == nil {
		e.logger.Debug("reusing persisted index", "path", e.cfg.IndexPath)
		return nil, nil
	}
	if !errors.Is(err, core.ErrIndexNotFound) && !errors.Is(err, core.ErrModelMismatch) {
		return nil, err
	}

	e.logger.Info("rebuilding index", "version", v, "reason", err)
	return e.IndexVersion(ctx, v)
}

// Query returns up to limit indexed questions most similar to text.
func (e *Engine) Query(ctx context.Context, text string, limit int) ([]*core.SearchResult, error) {
	searcher, err := e.Open(ctx)
	if err != nil {
		return nil, err
	}

	results, err := searcher.FindSimilar(ctx, text, limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return results, nil
}
