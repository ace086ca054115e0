package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/ray-project/ray-demos/pkg/task"
)

// ErrEmptyDataset is returned by Min and Max when there are no rows to
// compare.
var ErrEmptyDataset = errors.New("dataset is empty")

// Number covers the types Sum, Min and Max accept.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Aggregator folds rows of type T into an accumulator of type A. Each
// block is folded independently as a pool task, then the partial
// accumulators are merged in block order, so Merge must be associative.
type Aggregator[T, A any] struct {
	Zero  func() A
	Fold  func(acc A, row T) (A, error)
	Merge func(a, b A) (A, error)
}

// Aggregate executes the chain and reduces all rows with agg: per-block
// folds run in parallel, followed by an ordered merge of the partials.
// An empty dataset yields agg.Zero().
func Aggregate[T, A any](ctx context.Context, ds *Dataset[T], agg Aggregator[T, A]) (A, error) {
	var zero A
	blocks, err := ds.gen(ctx)
	if err != nil {
		return zero, err
	}

	refs := make([]*task.ObjectRef[A], len(blocks))
	for i, block := range blocks {
		refs[i] = task.Submit(ds.pool, func(context.Context) (A, error) {
			acc := agg.Zero()
			for _, row := range block {
				next, err := agg.Fold(acc, row)
				if err != nil {
					return zero, err
				}
				acc = next
			}
			return acc, nil
		}, task.WithName(fmt.Sprintf("block-%d", i)))
	}

	partials, err := task.GetAll(ctx, refs)
	if err != nil {
		return zero, err
	}

	acc := agg.Zero()
	for _, partial := range partials {
		merged, err := agg.Merge(acc, partial)
		if err != nil {
			return zero, err
		}
		acc = merged
	}
	return acc, nil
}

// CountAgg counts rows. It mostly serves as the reference Aggregator
// shape; the Count action is the cheaper way to get the same number.
func CountAgg[T any]() Aggregator[T, int64] {
	return Aggregator[T, int64]{
		Zero:  func() int64 { return 0 },
		Fold:  func(acc int64, _ T) (int64, error) { return acc + 1, nil },
		Merge: func(a, b int64) (int64, error) { return a + b, nil },
	}
}

// Sum executes the chain and adds all rows.
func Sum[T Number](ctx context.Context, ds *Dataset[T]) (T, error) {
	return Aggregate(ctx, ds, Aggregator[T, T]{
		Zero:  func() T { var zero T; return zero },
		Fold:  func(acc T, row T) (T, error) { return acc + row, nil },
		Merge: func(a, b T) (T, error) { return a + b, nil },
	})
}

// Min executes the chain and returns the smallest row, or ErrEmptyDataset.
func Min[T Number](ctx context.Context, ds *Dataset[T]) (T, error) {
	return extremumOf(ctx, ds, func(candidate, current T) bool { return candidate < current })
}

// Max executes the chain and returns the largest row, or ErrEmptyDataset.
func Max[T Number](ctx context.Context, ds *Dataset[T]) (T, error) {
	return extremumOf(ctx, ds, func(candidate, current T) bool { return candidate > current })
}

// extremum tracks whether any row has been seen, so the zero value of T
// never masquerades as a result.
type extremum[T Number] struct {
	seen bool
	val  T
}

func extremumOf[T Number](ctx context.Context, ds *Dataset[T], better func(candidate, current T) bool) (T, error) {
	acc, err := Aggregate(ctx, ds, Aggregator[T, extremum[T]]{
		Zero: func() extremum[T] { return extremum[T]{} },
		Fold: func(acc extremum[T], row T) (extremum[T], error) {
			if !acc.seen || better(row, acc.val) {
				return extremum[T]{seen: true, val: row}, nil
			}
			return acc, nil
		},
		Merge: func(a, b extremum[T]) (extremum[T], error) {
			switch {
			case !a.seen:
				return b, nil
			case !b.seen:
				return a, nil
			case better(b.val, a.val):
				return b, nil
			default:
				return a, nil
			}
		},
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if !acc.seen {
		var zero T
		return zero, ErrEmptyDataset
	}
	return acc.val, nil
}
