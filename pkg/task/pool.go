// Package task provides a small local task pool with future-style result
// handles. It mirrors the submit / await-all pattern of remote-execution
// frameworks: tasks are independent, stateless units of work that are
// submitted without blocking and fetched through their handles.
//
// The pool is a deliberately simple stand-in for a distributed runtime.
// It schedules nothing beyond bounded admission and implements no retries,
// no lineage and no cross-process execution.
package task

import (
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned by handles of tasks submitted after Close.
var ErrPoolClosed = errors.New("pool is closed")

// Pool runs submitted tasks on their own goroutines, gated by a weighted
// semaphore so that at most Parallelism CPU weights run at once.
type Pool struct {
	parallelism int64
	defaultCPUs int64
	sem         *semaphore.Weighted

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Pool.
type Option func(*Pool)

// WithParallelism sets the number of CPU weights the pool admits
// concurrently. Values below one are treated as one.
func WithParallelism(n int) Option {
	return func(p *Pool) {
		if n <= 0 {
			n = 1
		}
		p.parallelism = int64(n)
	}
}

// WithDefaultCPUs sets the weight acquired by tasks submitted without an
// explicit WithCPUs option.
func WithDefaultCPUs(n int) Option {
	return func(p *Pool) {
		if n <= 0 {
			n = 1
		}
		p.defaultCPUs = int64(n)
	}
}

// NewPool creates a pool. Without options it admits one task per logical
// CPU and tasks weigh one CPU each.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		parallelism: int64(runtime.NumCPU()),
		defaultCPUs: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.sem = semaphore.NewWeighted(p.parallelism)
	return p
}

// Parallelism returns the pool's concurrent CPU weight capacity.
func (p *Pool) Parallelism() int {
	return int(p.parallelism)
}

// Close drains the pool: it blocks until every previously submitted task
// has finished. Tasks submitted after Close resolve with ErrPoolClosed.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

// admit registers a task with the pool. It reports false when the pool is
// closed; otherwise the caller must arrange for done to be called exactly
// once when the task goroutine finishes.
func (p *Pool) admit() (done func(), ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, false
	}
	p.wg.Add(1)
	return p.wg.Done, true
}

// clampWeight bounds a task weight to [1, parallelism] so that no task can
// request more capacity than the pool owns and deadlock.
func (p *Pool) clampWeight(cpus int) int64 {
	w := int64(cpus)
	if w < 1 {
		w = 1
	}
	if w > p.parallelism {
		w = p.parallelism
	}
	return w
}
