package index

import (
	"io"
	"log/slog"
	"runtime"
	"time"
)

const (
	// DefaultBatchSize is the number of texts sent to the model per call.
	DefaultBatchSize = 32
	// DefaultMaxAttempts is the number of times a batch is tried.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the delay before the first retry of a batch.
	DefaultRetryDelay = 200 * time.Millisecond
	// DefaultReportInterval is how often progress is reported, in records.
	DefaultReportInterval = 100
)

type buildConfig struct {
	batchSize      int
	poolSize       int
	maxAttempts    int
	retryDelay     time.Duration
	progress       io.Writer
	reportInterval int
	logger         *slog.Logger
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		batchSize:      DefaultBatchSize,
		poolSize:       max(runtime.NumCPU()/2, 1),
		maxAttempts:    DefaultMaxAttempts,
		retryDelay:     DefaultRetryDelay,
		reportInterval: DefaultReportInterval,
		logger:         slog.Default(),
	}
}

// Option configures Build and Load.
type Option func(*buildConfig)

// WithBatchSize sets the number of texts encoded per model call.
// Default is 32; values below 1 are raised to 1.
func WithBatchSize(size int) Option {
	return func(c *buildConfig) {
		c.batchSize = max(size, 1)
	}
}

// WithPoolSize sets the number of batches encoded concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(c *buildConfig) {
		c.poolSize = max(size, 1)
	}
}

// WithRetry sets how many times a failing batch is attempted and the delay
// before the first retry. The delay doubles for each further retry.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *buildConfig) {
		c.maxAttempts = maxAttempts
		c.retryDelay = baseDelay
	}
}

// WithProgress writes a progress line to w every interval records.
func WithProgress(w io.Writer, interval int) Option {
	return func(c *buildConfig) {
		c.progress = w
		c.reportInterval = interval
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *buildConfig) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}
