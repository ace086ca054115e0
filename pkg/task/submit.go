package task

import (
	"context"
	"fmt"
)

type submitConfig struct {
	cpus int
	name string
}

// SubmitOption configures a single task submission.
type SubmitOption func(*submitConfig)

// WithCPUs sets the CPU weight the task acquires before running. Weights
// larger than the pool parallelism are capped, so a maximal weight gives
// the task the pool to itself.
func WithCPUs(n int) SubmitOption {
	return func(c *submitConfig) { c.cpus = n }
}

// WithName labels the task in error messages.
func WithName(name string) SubmitOption {
	return func(c *submitConfig) { c.name = name }
}

// Submit schedules fn on the pool and returns a handle to its future
// result. Submit never blocks: the task starts once it acquires pool
// capacity. A panic inside fn is recovered and surfaces as an error on
// the handle.
func Submit[T any](p *Pool, fn func(context.Context) (T, error), opts ...SubmitOption) *ObjectRef[T] {
	cfg := submitConfig{cpus: int(p.defaultCPUs)}
	for _, opt := range opts {
		opt(&cfg)
	}
	ref := newRef[T](cfg.name)
	weight := p.clampWeight(cfg.cpus)

	done, ok := p.admit()
	if !ok {
		var zero T
		ref.resolve(zero, ErrPoolClosed)
		return ref
	}

	go func() {
		defer done()
		if err := p.sem.Acquire(context.Background(), weight); err != nil {
			var zero T
			ref.resolve(zero, err)
			return
		}
		defer p.sem.Release(weight)
		defer func() {
			if e := recover(); e != nil {
				var zero T
				ref.resolve(zero, fmt.Errorf("task %s panicked: %v", ref.label(), e))
			}
		}()
		value, err := fn(context.Background())
		ref.resolve(value, err)
	}()
	return ref
}
