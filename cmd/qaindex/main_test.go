package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/poiesic/qaindex"
	"github.com/poiesic/qaindex/ai/mock"
	"github.com/poiesic/qaindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const testDataset = `{
  "geography": [
    {"id": "c1", "text": "Paris is the capital of France.", "metadata": {"source": "atlas"},
     "questions": ["What is the capital of France?"]},
    {"id": "c2", "text": "Berlin is the capital of Germany.", "metadata": {},
     "questions": ["What is the capital of Germany?"]}
  ]
}`

// useMockEngine makes the commands build engines around the mock embedder.
func useMockEngine(t *testing.T) {
	t.Helper()
	original := newEngine
	newEngine = func(cfg *qaindex.Config) (*qaindex.Engine, error) {
		return qaindex.NewEngine(cfg,
			qaindex.WithModel(mock.NewMockEmbedder()),
			qaindex.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	}
	t.Cleanup(func() { newEngine = original })
}

func setupWorkspace(t *testing.T) (dataDir, indexDir string) {
	t.Helper()
	root := t.TempDir()
	dataDir = filepath.Join(root, "data")
	indexDir = filepath.Join(root, "index_files")
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "dataset_v1.json"), []byte(testDataset), 0644))
	return dataDir, indexDir
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"qaindex"}, args...))
	return out.String(), err
}

func TestCommands(t *testing.T) {
	useMockEngine(t)

	t.Run("index then query", func(t *testing.T) {
		dataDir, indexDir := setupWorkspace(t)

		_, err := runApp(t, "--data", dataDir, "--index", indexDir, "index", "--version", "1")
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(indexDir, "CURRENT"))

		out, err := runApp(t, "--index", indexDir, "query", "--limit", "1", "capital", "of", "France")
		require.NoError(t, err)
		assert.Contains(t, out, "What is the capital of France?")
		assert.Contains(t, out, resultSeparator)
		assert.NotContains(t, out, "Germany")
	})

	t.Run("ask builds a missing index", func(t *testing.T) {
		dataDir, indexDir := setupWorkspace(t)

		out, err := runApp(t, "--data", dataDir, "--index", indexDir,
			"ask", "--version", "1", "capital of Germany")
		require.NoError(t, err)
		assert.Contains(t, out, "What is the capital of Germany?")
		assert.FileExists(t, filepath.Join(indexDir, "CURRENT"))
	})

	t.Run("index requires version", func(t *testing.T) {
		_, err := runApp(t, "index")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "version")
	})

	t.Run("index reports missing dataset", func(t *testing.T) {
		dataDir, indexDir := setupWorkspace(t)
		_, err := runApp(t, "--data", dataDir, "--index", indexDir, "index", "--version", "7")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrDatasetNotFound)
	})

	t.Run("query without index", func(t *testing.T) {
		_, indexDir := setupWorkspace(t)
		_, err := runApp(t, "--index", indexDir, "query", "anything")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrIndexNotFound)
	})

	t.Run("query requires text", func(t *testing.T) {
		_, err := runApp(t, "query")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query text is required")
	})

	t.Run("invalid limit", func(t *testing.T) {
		dataDir, indexDir := setupWorkspace(t)
		_, err := runApp(t, "--data", dataDir, "--index", indexDir, "index", "--version", "1")
		require.NoError(t, err)

		_, err = runApp(t, "--index", indexDir, "query", "--limit", "0", "capital")
		assert.ErrorIs(t, err, core.ErrInvalidLimit)
	})

	t.Run("min score filters everything", func(t *testing.T) {
		dataDir, indexDir := setupWorkspace(t)
		_, err := runApp(t, "--data", dataDir, "--index", indexDir, "index", "--version", "1")
		require.NoError(t, err)

		out, err := runApp(t, "--index", indexDir, "query", "--min-score", "1", "zebra")
		require.NoError(t, err)
		assert.Equal(t, "No similar questions found in the index.\n", out)
	})

	t.Run("invalid max retries", func(t *testing.T) {
		dataDir, indexDir := setupWorkspace(t)
		_, err := runApp(t, "--data", dataDir, "--index", indexDir,
			"index", "--version", "1", "--max-retries", "0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max-retries")
	})
}

func TestDiagnosticsCommand(t *testing.T) {
	out, err := runApp(t, "diagnostics")
	require.NoError(t, err)
	assert.Contains(t, out, runtime.Version())
	assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
	assert.Contains(t, out, "accelerator available: false")
}

func TestPrintResults(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		printResults(&buf, nil)
		assert.Equal(t, "No similar questions found in the index.\n", buf.String())
	})

	t.Run("each result followed by separator", func(t *testing.T) {
		var buf bytes.Buffer
		results := []*core.SearchResult{
			{QueryText: "q1", AnswerText: "a1", Score: 0.9},
			{QueryText: "q2", AnswerText: "a2", Score: 0.5},
		}
		printResults(&buf, results)

		expected := results[0].String() + "\n" + resultSeparator + "\n" +
			results[1].String() + "\n" + resultSeparator + "\n"
		assert.Equal(t, expected, buf.String())
	})
}

func TestLoadFileConfig(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := loadFileConfig("")
		require.NoError(t, err)
		assert.Equal(t, defaultFileConfig(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "qaindex.toml")
		content := `
data_dir = "/srv/data"

[embedding]
model = "nomic-embed-text"
dimension = 0

[build]
batch_size = 8
retry_delay = "1s"

[search]
min_score = 0.25
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := loadFileConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/srv/data", cfg.DataDir)
		assert.Equal(t, qaindex.DefaultIndexPath, cfg.IndexPath)
		assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
		assert.Equal(t, 0, cfg.Embedding.Dimension)
		assert.Equal(t, 8, cfg.Build.BatchSize)
		assert.Equal(t, time.Second, cfg.Build.RetryDelay)
		require.NotNil(t, cfg.Search.MinScore)
		assert.InDelta(t, 0.25, *cfg.Search.MinScore, 1e-9)

		engineCfg, err := cfg.engineConfig()
		require.NoError(t, err)
		assert.Equal(t, "/srv/data", engineCfg.DatasetDir)
		assert.Equal(t, "nomic-embed-text", engineCfg.AI.EmbeddingModel)
		assert.Len(t, engineCfg.Search, 1)
	})

	t.Run("keyword boost is off unless configured", func(t *testing.T) {
		engineCfg, err := defaultFileConfig().engineConfig()
		require.NoError(t, err)
		assert.Empty(t, engineCfg.Search)

		path := filepath.Join(t.TempDir(), "boost.toml")
		require.NoError(t, os.WriteFile(path, []byte("[search]\nkeyword_boost = 0.1\n"), 0644))
		cfg, err := loadFileConfig(path)
		require.NoError(t, err)
		assert.InDelta(t, 0.1, cfg.Search.KeywordBoost, 1e-9)

		engineCfg, err = cfg.engineConfig()
		require.NoError(t, err)
		assert.Len(t, engineCfg.Search, 1)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadFileConfig(filepath.Join(t.TempDir(), "nope.toml"))
		require.Error(t, err)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("data_dir = "), 0644))
		_, err := loadFileConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode config file")
	})
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qaindex.toml")
	require.NoError(t, os.WriteFile(path, []byte("index_path = \"/from/file\"\n[embedding]\nmodel = \"file-model\"\n"), 0644))

	var resolved *qaindex.Config
	app := newApp()
	app.ErrWriter = io.Discard
	app.Commands = []*cli.Command{{
		Name: "probe",
		Action: func(c *cli.Context) error {
			var err error
			resolved, err = resolveConfig(c)
			return err
		},
	}}

	err := app.Run([]string{"qaindex", "--config", path, "--embedding-model", "flag-model", "probe"})
	require.NoError(t, err)
	assert.Equal(t, "/from/file", resolved.IndexPath)
	assert.Equal(t, "flag-model", resolved.AI.EmbeddingModel)
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "log-level", Value: "info"},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error { return nil },
				}
				require.NoError(t, app.Run([]string{"test", "--log-level", level}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		_, err := runApp(t, "--log-level", "loud", "diagnostics")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		_, err := runApp(t, "-l", "debug", "diagnostics")
		require.NoError(t, err)
	})
}
