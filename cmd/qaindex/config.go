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
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/poiesic/qaindex"
	"github.com/poiesic/qaindex/ai"
	"github.com/poiesic/qaindex/index"
	"github.com/poiesic/qaindex/search"
	"github.com/urfave/cli/v2"
)

// fileConfig is the layout of the optional TOML configuration file.
//
//	data_dir = "./data"
//	index_path = "./index_files"
//
//	[embedding]
//	host = "http://localhost:8080/v1"
//	model = "sentence-transformers/nli-mpnet-base-v2"
//	dimension = 768
//
//	[build]
//	batch_size = 32
//	max_retries = 3
//	retry_delay = "200ms"
//
//	[search]
//	min_score = 0.2
type fileConfig struct {
	DataDir   string          `toml:"data_dir"`
	IndexPath string          `toml:"index_path"`
	Embedding embeddingConfig `toml:"embedding"`
	Build     buildConfig     `toml:"build"`
	Search    searchConfig    `toml:"search"`
}

type embeddingConfig struct {
	Host      string `toml:"host"`
	Model     string `toml:"model"`
	APIKey    string `toml:"api_key"`
	Dimension int    `toml:"dimension"`
}

type buildConfig struct {
	BatchSize  int           `toml:"batch_size"`
	PoolSize   int           `toml:"pool_size"`
	MaxRetries int           `toml:"max_retries"`
	RetryDelay time.Duration `toml:"retry_delay"`
}

type searchConfig struct {
	MinScore     *float64 `toml:"min_score"`
	KeywordBoost float64  `toml:"keyword_boost"`
}

func defaultFileConfig() *fileConfig {
	return &fileConfig{
		DataDir:   qaindex.DefaultDatasetDir,
		IndexPath: qaindex.DefaultIndexPath,
		Embedding: embeddingConfig{
			Host:      ai.DefaultEmbeddingHost,
			Model:     ai.DefaultEmbeddingModel,
			Dimension: ai.DefaultDimension,
		},
		Build: buildConfig{
			BatchSize:  index.DefaultBatchSize,
			MaxRetries: index.DefaultMaxAttempts,
			RetryDelay: index.DefaultRetryDelay,
		},
	}
}

// loadFileConfig returns the defaults overlaid with the file at path.
// An empty path yields the defaults.
func loadFileConfig(path string) (*fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return cfg, nil
}

// applyFlags overrides file values with flags and environment variables
// that were explicitly set.
func (f *fileConfig) applyFlags(c *cli.Context) {
	if c.IsSet("data") {
		f.DataDir = c.String("data")
	}
	if c.IsSet("index") {
		f.IndexPath = c.String("index")
	}
	if c.IsSet("embedding-host") {
		f.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		f.Embedding.Model = c.String("embedding-model")
	}
	if c.IsSet("api-key") {
		f.Embedding.APIKey = c.String("api-key")
	}
	if c.IsSet("dimension") {
		f.Embedding.Dimension = c.Int("dimension")
	}
}

// engineConfig converts the resolved settings into an engine configuration.
func (f *fileConfig) engineConfig() (*qaindex.Config, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(f.Embedding.Host),
		ai.WithEmbeddingModel(f.Embedding.Model),
		ai.WithAPIKey(f.Embedding.APIKey),
		ai.WithDimension(f.Embedding.Dimension),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	if f.Build.MaxRetries <= 0 {
		return nil, fmt.Errorf("max-retries must be greater than 0")
	}
	if f.Build.BatchSize <= 0 {
		return nil, fmt.Errorf("batch-size must be greater than 0")
	}

	cfg := &qaindex.Config{
		DatasetDir: f.DataDir,
		IndexPath:  f.IndexPath,
		AI:         aiConfig,
		Build: []index.Option{
			index.WithBatchSize(f.Build.BatchSize),
			index.WithRetry(f.Build.MaxRetries, f.Build.RetryDelay),
		},
	}
	if f.Build.PoolSize > 0 {
		cfg.Build = append(cfg.Build, index.WithPoolSize(f.Build.PoolSize))
	}
	if f.Search.MinScore != nil {
		cfg.Search = append(cfg.Search, search.WithMinScore(float32(*f.Search.MinScore)))
	}
	if f.Search.KeywordBoost > 0 {
		cfg.Search = append(cfg.Search, search.WithKeywordBoost(float32(f.Search.KeywordBoost)))
	}
	return cfg, nil
}
