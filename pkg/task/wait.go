package task

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// GetAll waits for every ref and returns the results in submission order,
// regardless of completion order. Unlike a first-error wait, GetAll keeps
// waiting when a task fails so that all failures are reported together;
// the returned error aggregates one entry per failed task. A cancelled
// context aborts the wait with ctx.Err().
func GetAll[T any](ctx context.Context, refs []*ObjectRef[T]) ([]T, error) {
	results := make([]T, len(refs))
	var merr *multierror.Error
	for i, ref := range refs {
		value, err := ref.Get(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			merr = multierror.Append(merr, fmt.Errorf("task %s: %w", ref.label(), err))
			continue
		}
		results[i] = value
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return results, nil
}

type waitConfig struct {
	numReady int
	timeout  time.Duration
}

// WaitOption configures Wait.
type WaitOption func(*waitConfig)

// WithNumReady sets how many refs must resolve before Wait returns.
// Values above len(refs) wait for all of them. The default is one.
func WithNumReady(n int) WaitOption {
	return func(c *waitConfig) { c.numReady = n }
}

// WithTimeout bounds how long Wait blocks. On timeout Wait returns the
// refs resolved so far with a nil error; a timeout is a normal outcome.
func WithTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) { c.timeout = d }
}

// Wait blocks until enough refs have resolved and splits the input into
// resolved and still-pending handles, both in input order. It is the
// partial-progress counterpart to GetAll: callers can consume early
// results while the rest keep running. Cancelling ctx returns ctx.Err();
// an elapsed timeout does not.
func Wait[T any](ctx context.Context, refs []*ObjectRef[T], opts ...WaitOption) (ready, pending []*ObjectRef[T], err error) {
	cfg := waitConfig{numReady: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.numReady > len(refs) {
		cfg.numReady = len(refs)
	}

	var timeoutC <-chan time.Time
	if cfg.timeout > 0 {
		timer := time.NewTimer(cfg.timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	isReady := make([]bool, len(refs))
	count := 0
	for i, ref := range refs {
		select {
		case <-ref.done:
			isReady[i] = true
			count++
		default:
		}
	}

	if count < cfg.numReady {
		notify := make(chan int)
		stop := make(chan struct{})
		defer close(stop)
		for i, ref := range refs {
			if isReady[i] {
				continue
			}
			go func(i int, done <-chan struct{}) {
				select {
				case <-done:
					select {
					case notify <- i:
					case <-stop:
					}
				case <-stop:
				}
			}(i, ref.done)
		}

	wait:
		for count < cfg.numReady {
			select {
			case i := <-notify:
				isReady[i] = true
				count++
			case <-timeoutC:
				break wait
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}
	}

	ready = make([]*ObjectRef[T], 0, count)
	pending = make([]*ObjectRef[T], 0, len(refs)-count)
	for i, ref := range refs {
		if isReady[i] {
			ready = append(ready, ref)
		} else {
			pending = append(pending, ref)
		}
	}
	return ready, pending, nil
}
