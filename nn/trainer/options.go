package trainer

type options struct {
	batchSize int
	batchSet  bool
	logEvery  int
	logs      bool
	shuffle   bool
}

func defaultOptions() *options {
	return &options{logEvery: DefaultLogEvery, shuffle: true}
}

// Option configures a single Train call.
type Option func(*options)

// WithBatchSize switches to mini-batch mode: gradients are accumulated over
// size samples, averaged and applied once. Without it every sample is
// applied immediately.
func WithBatchSize(size int) Option {
	return func(o *options) {
		o.batchSize = size
		o.batchSet = true
	}
}

// WithLogEvery sets the progress log interval in epochs.
func WithLogEvery(epochs int) Option {
	return func(o *options) {
		o.logEvery = epochs
	}
}

// WithLogs enables progress logging at info level.
func WithLogs(enabled bool) Option {
	return func(o *options) {
		o.logs = enabled
	}
}

// WithShuffle controls the per-epoch shuffle. Enabled by default.
func WithShuffle(enabled bool) Option {
	return func(o *options) {
		o.shuffle = enabled
	}
}
