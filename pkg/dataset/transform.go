package dataset

import (
	"context"
	"fmt"

	"github.com/ray-project/ray-demos/pkg/task"
)

// applyBlocks runs fn over every block as a parallel pool task and
// reassembles the outputs in block order. Failed blocks are reported
// together, each tagged with its block index.
func applyBlocks[T, U any](ctx context.Context, pool *task.Pool, blocks [][]T, fn func([]T) ([]U, error)) ([][]U, error) {
	refs := make([]*task.ObjectRef[[]U], len(blocks))
	for i, block := range blocks {
		refs[i] = task.Submit(pool, func(context.Context) ([]U, error) {
			return fn(block)
		}, task.WithName(fmt.Sprintf("block-%d", i)))
	}
	return task.GetAll(ctx, refs)
}

// derive chains a block-level transformation onto ds.
func derive[T, U any](ds *Dataset[T], fn func([]T) ([]U, error)) *Dataset[U] {
	return &Dataset[U]{
		pool: ds.pool,
		opts: ds.opts,
		gen: func(ctx context.Context) ([][]U, error) {
			blocks, err := ds.gen(ctx)
			if err != nil {
				return nil, err
			}
			return applyBlocks(ctx, ds.pool, blocks, fn)
		},
	}
}

// Map records a row-wise transformation. Methods cannot introduce type
// parameters, so transformations that change the row type are package
// functions taking the dataset first.
func Map[T, U any](ds *Dataset[T], fn func(T) (U, error)) *Dataset[U] {
	return derive(ds, func(rows []T) ([]U, error) {
		out := make([]U, 0, len(rows))
		for _, row := range rows {
			mapped, err := fn(row)
			if err != nil {
				return nil, err
			}
			out = append(out, mapped)
		}
		return out, nil
	})
}

// MapBatches records a block-at-a-time transformation: fn sees a whole
// block and returns its replacement, which may have a different length.
// The input slice is shared with the dataset; fn should build a new slice
// rather than mutate it.
func MapBatches[T, U any](ds *Dataset[T], fn func([]T) ([]U, error)) *Dataset[U] {
	return derive(ds, fn)
}

// FlatMap records a transformation producing zero or more output rows per
// input row.
func FlatMap[T, U any](ds *Dataset[T], fn func(T) ([]U, error)) *Dataset[U] {
	return derive(ds, func(rows []T) ([]U, error) {
		var out []U
		for _, row := range rows {
			expanded, err := fn(row)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
		}
		return out, nil
	})
}

// Filter records a predicate that keeps rows fn reports true for. The row
// type is unchanged, so Filter can be a method.
func (ds *Dataset[T]) Filter(fn func(T) (bool, error)) *Dataset[T] {
	return derive(ds, func(rows []T) ([]T, error) {
		out := make([]T, 0, len(rows))
		for _, row := range rows {
			keep, err := fn(row)
			if err != nil {
				return nil, err
			}
			if keep {
				out = append(out, row)
			}
		}
		return out, nil
	})
}
