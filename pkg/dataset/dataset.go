// Package dataset provides blocked in-memory datasets with lazy, UDF-driven
// transformations. A dataset is an ordered list of blocks (row chunks) bound
// to a task pool; transformations record themselves on the handle, and
// actions execute the recorded chain, processing independent blocks as
// parallel pool tasks. Execution is per-action: calling two actions on the
// same handle runs the chain twice. Materialize returns a handle pinned to
// already-computed blocks.
package dataset

import (
	"context"
	"fmt"

	"github.com/ray-project/ray-demos/pkg/task"
)

const (
	// DefaultBlockSize is the number of rows per block when none is configured.
	DefaultBlockSize = 128

	// DefaultReadParallelism bounds how many files are read or written
	// concurrently by the file-backed constructors and WriteJSONL.
	DefaultReadParallelism = 4
)

type options struct {
	blockSize       int
	readParallelism int
}

// Option configures a dataset constructor.
type Option func(*options)

// WithBlockSize sets the rows-per-block chunking for constructors.
func WithBlockSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.blockSize = n
		}
	}
}

// WithReadParallelism bounds concurrent file reads and writes.
func WithReadParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readParallelism = n
		}
	}
}

func newOptions(opts ...Option) options {
	o := options{
		blockSize:       DefaultBlockSize,
		readParallelism: DefaultReadParallelism,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Dataset is an ordered sequence of row blocks produced on demand.
// Handles are cheap: transformations return new handles that share the
// pool and re-run their upstream chain on every action.
type Dataset[T any] struct {
	pool *task.Pool
	opts options
	gen  func(ctx context.Context) ([][]T, error)
}

// Pool returns the task pool the dataset executes on.
func (ds *Dataset[T]) Pool() *task.Pool {
	return ds.pool
}

// FromItems builds a dataset by chunking items into blocks.
func FromItems[T any](pool *task.Pool, items []T, opts ...Option) *Dataset[T] {
	o := newOptions(opts...)
	return &Dataset[T]{
		pool: pool,
		opts: o,
		gen: func(ctx context.Context) ([][]T, error) {
			return chunk(items, o.blockSize), nil
		},
	}
}

// Range builds a dataset of the integers [0, n).
func Range(pool *task.Pool, n int64, opts ...Option) *Dataset[int64] {
	o := newOptions(opts...)
	return &Dataset[int64]{
		pool: pool,
		opts: o,
		gen: func(ctx context.Context) ([][]int64, error) {
			if n <= 0 {
				return nil, nil
			}
			size := int64(o.blockSize)
			blocks := make([][]int64, 0, (n+size-1)/size)
			for start := int64(0); start < n; start += size {
				end := min(start+size, n)
				block := make([]int64, 0, end-start)
				for v := start; v < end; v++ {
					block = append(block, v)
				}
				blocks = append(blocks, block)
			}
			return blocks, nil
		},
	}
}

// Limit returns a dataset truncated to the first n rows. The upstream
// chain still executes in full; only the block list is cut.
func (ds *Dataset[T]) Limit(n int64) *Dataset[T] {
	return &Dataset[T]{
		pool: ds.pool,
		opts: ds.opts,
		gen: func(ctx context.Context) ([][]T, error) {
			blocks, err := ds.gen(ctx)
			if err != nil {
				return nil, err
			}
			return truncateBlocks(blocks, n), nil
		},
	}
}

// Repartition re-chunks the rows into n blocks of near-equal size,
// preserving row order. When n exceeds the row count every block holds
// one row. There is no keyed shuffle; splitting is purely positional.
func (ds *Dataset[T]) Repartition(n int) *Dataset[T] {
	return &Dataset[T]{
		pool: ds.pool,
		opts: ds.opts,
		gen: func(ctx context.Context) ([][]T, error) {
			blocks, err := ds.gen(ctx)
			if err != nil {
				return nil, err
			}
			rows := flatten(blocks)
			if len(rows) == 0 {
				return nil, nil
			}
			parts := n
			if parts <= 0 {
				parts = 1
			}
			if parts > len(rows) {
				parts = len(rows)
			}
			out := make([][]T, 0, parts)
			base := len(rows) / parts
			extra := len(rows) % parts
			start := 0
			for i := 0; i < parts; i++ {
				size := base
				if i < extra {
					size++
				}
				out = append(out, rows[start:start+size])
				start += size
			}
			return out, nil
		},
	}
}

// Collect executes the chain and returns all rows in order.
func (ds *Dataset[T]) Collect(ctx context.Context) ([]T, error) {
	blocks, err := ds.gen(ctx)
	if err != nil {
		return nil, err
	}
	return flatten(blocks), nil
}

// Take executes the chain and returns the first n rows. Fewer rows than
// n is not an error.
func (ds *Dataset[T]) Take(ctx context.Context, n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	blocks, err := ds.gen(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for _, block := range blocks {
		for _, row := range block {
			out = append(out, row)
			if len(out) == n {
				return out, nil
			}
		}
	}
	return out, nil
}

// Count executes the chain and returns the number of rows.
func (ds *Dataset[T]) Count(ctx context.Context) (int64, error) {
	blocks, err := ds.gen(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, block := range blocks {
		n += int64(len(block))
	}
	return n, nil
}

// Each executes the chain and visits every row in order. The first error
// from fn stops the visit.
func (ds *Dataset[T]) Each(ctx context.Context, fn func(T) error) error {
	blocks, err := ds.gen(ctx)
	if err != nil {
		return err
	}
	for _, block := range blocks {
		for _, row := range block {
			if err := fn(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stats describes the blocking of an executed dataset.
type Stats struct {
	NumBlocks int
	NumRows   int64
}

// Stats executes the chain and reports how the rows are blocked.
func (ds *Dataset[T]) Stats(ctx context.Context) (Stats, error) {
	blocks, err := ds.gen(ctx)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{NumBlocks: len(blocks)}
	for _, block := range blocks {
		s.NumRows += int64(len(block))
	}
	return s, nil
}

func (s Stats) String() string {
	return fmt.Sprintf("%d rows in %d blocks", s.NumRows, s.NumBlocks)
}

// Materialize executes the chain once and returns a dataset pinned to the
// computed blocks, so later actions skip re-execution.
func (ds *Dataset[T]) Materialize(ctx context.Context) (*Dataset[T], error) {
	blocks, err := ds.gen(ctx)
	if err != nil {
		return nil, err
	}
	return &Dataset[T]{
		pool: ds.pool,
		opts: ds.opts,
		gen: func(ctx context.Context) ([][]T, error) {
			return blocks, nil
		},
	}, nil
}

func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultBlockSize
	}
	blocks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		blocks = append(blocks, items[start:end])
	}
	return blocks
}

func flatten[T any](blocks [][]T) []T {
	var n int
	for _, block := range blocks {
		n += len(block)
	}
	out := make([]T, 0, n)
	for _, block := range blocks {
		out = append(out, block...)
	}
	return out
}

func truncateBlocks[T any](blocks [][]T, n int64) [][]T {
	if n <= 0 {
		return nil
	}
	var out [][]T
	remaining := n
	for _, block := range blocks {
		if int64(len(block)) >= remaining {
			out = append(out, block[:remaining])
			return out
		}
		out = append(out, block)
		remaining -= int64(len(block))
	}
	return out
}
