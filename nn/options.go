package nn

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/neurago/core/parallel"
	"github.com/YuminosukeSato/neurago/nn/trainer"
	"github.com/YuminosukeSato/neurago/pkg/log"
)

type config struct {
	name          string
	seed          uint64
	workers       int
	recordHistory bool
	logger        log.Logger
}

func defaultConfig() *config {
	return &config{
		name:    "Sequential",
		seed:    rand.Uint64(),
		workers: parallel.DefaultWorkers(),
	}
}

// Option configures a Sequential model at construction.
type Option func(*config)

// WithSeed fixes the random source used for initialization, shuffling and
// dropout. Two models built with the same seed and layers start from the
// same parameters and visit samples in the same order.
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.seed = seed
	}
}

// WithWorkers sizes the worker pool shared by the layers. Zero disables the
// pool and runs every kernel on the calling goroutine. Defaults to the
// number of CPUs.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithHistory records the mean loss of every epoch.
func WithHistory(enabled bool) Option {
	return func(c *config) {
		c.recordHistory = enabled
	}
}

// WithName sets the model name used in logs and summaries.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLogger sets the logger. Defaults to log.GetLogger().
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// TrainOption configures a single Train call.
type TrainOption = trainer.Option

// WithBatchSize switches Train to mini-batch mode.
func WithBatchSize(size int) TrainOption { return trainer.WithBatchSize(size) }

// WithLogEvery sets the progress log interval in epochs.
func WithLogEvery(epochs int) TrainOption { return trainer.WithLogEvery(epochs) }

// WithLogs enables per-epoch progress logging.
func WithLogs(enabled bool) TrainOption { return trainer.WithLogs(enabled) }

// WithShuffle controls the per-epoch shuffle. Enabled by default.
func WithShuffle(enabled bool) TrainOption { return trainer.WithShuffle(enabled) }
