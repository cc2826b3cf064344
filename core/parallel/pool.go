// Package parallel provides the worker pool shared by every tensor kernel of a model.
package parallel

import (
	"runtime"
	"sync"

	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// Pool is a fixed set of long-lived goroutines that execute contiguous index
// ranges of a single operation. A nil *Pool is valid and runs everything on
// the calling goroutine.
//
// Run must not be called from inside a function that is itself executing on
// the pool: the outer call holds the workers the inner call would wait for.
type Pool struct {
	workers   int
	threshold int

	mu     sync.RWMutex // guards closed and sends on tasks
	closed bool
	tasks  chan task
	wg     sync.WaitGroup
}

type task struct {
	start, end int
	fn         func(start, end int)
	done       *sync.WaitGroup
	errs       *firstError
}

// firstError keeps the first failure reported by any worker.
type firstError struct {
	mu  sync.Mutex
	err error
}

func (f *firstError) set(err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	if f.err == nil {
		f.err = err
	}
	f.mu.Unlock()
}

func (f *firstError) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Option configures a Pool.
type Option func(*Pool)

// WithThreshold sets the item count at or below which Run executes inline.
func WithThreshold(items int) Option {
	return func(p *Pool) {
		if items >= 0 {
			p.threshold = items
		}
	}
}

// NewPool starts workers goroutines. Asking for more workers than CPUs is
// allowed but emits a WorkerCountWarning.
func NewPool(workers int, opts ...Option) (*Pool, error) {
	if workers < 1 {
		return nil, errors.NewArgumentError("workers", "must be at least 1", workers)
	}
	if cpus := runtime.NumCPU(); workers > cpus {
		errors.Warn(errors.NewWorkerCountWarning(workers, cpus))
	}

	p := &Pool{
		workers:   workers,
		threshold: 1,
		tasks:     make(chan task, workers),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p, nil
}

// DefaultWorkers is the pool size used when none is configured.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.errs.set(errors.SafeExecute("parallel.Pool.Run", func() error {
			t.fn(t.start, t.end)
			return nil
		}))
		t.done.Done()
	}
}

// Workers returns the number of goroutines, 0 for a nil pool.
func (p *Pool) Workers() int {
	if p == nil {
		return 0
	}
	return p.workers
}

// Run partitions [0, items) into contiguous ranges, one per worker, and
// blocks until every range has been processed. A panic in fn is recovered
// into a *errors.PanicError and returned once all ranges have finished.
func (p *Pool) Run(items int, fn func(start, end int)) error {
	if items <= 0 {
		return nil
	}
	if p == nil || p.workers == 1 || items <= p.threshold {
		if p != nil && p.isClosed() {
			return errors.WithStack(errors.ErrPoolClosed)
		}
		return errors.SafeExecute("parallel.Pool.Run", func() error {
			fn(0, items)
			return nil
		})
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return errors.WithStack(errors.ErrPoolClosed)
	}

	numWorkers := p.workers
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	var done sync.WaitGroup
	errs := &firstError{}
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		done.Add(1)
		p.tasks <- task{start: start, end: end, fn: fn, done: &done, errs: errs}
	}
	p.mu.RUnlock()

	done.Wait()
	return errs.get()
}

func (p *Pool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Close stops the workers after in-flight work completes. It is safe to call
// more than once and on a nil pool.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
