package dataset

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ray-project/ray-demos/pkg/task"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T) *task.Pool {
	t.Helper()
	p := task.NewPool(task.WithParallelism(4))
	t.Cleanup(p.Close)
	return p
}

func TestFromItems_CollectPreservesOrder(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	ds := FromItems(newTestPool(t), items, WithBlockSize(7))
	rows, err := ds.Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, items, rows)
}

func TestRange_BlocksAndBounds(t *testing.T) {
	ds := Range(newTestPool(t), 300)

	stats, err := ds.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{NumBlocks: 3, NumRows: 300}, stats)

	rows, err := ds.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 300)
	require.Equal(t, int64(0), rows[0])
	require.Equal(t, int64(299), rows[299])
}

func TestMap_MatchesSerialResult(t *testing.T) {
	ds := Map(Range(newTestPool(t), 50, WithBlockSize(8)), func(v int64) (int64, error) {
		return v * 2, nil
	})

	rows, err := ds.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 50)
	for i, row := range rows {
		require.Equal(t, int64(i*2), row)
	}
}

func TestFilter_KeepsMatchingRows(t *testing.T) {
	ds := Range(newTestPool(t), 20, WithBlockSize(6)).Filter(func(v int64) (bool, error) {
		return v%2 == 0, nil
	})

	rows, err := ds.Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{0, 2, 4, 6, 8, 10, 12, 14, 16, 18}, rows)
}

func TestFlatMap_ExpandsRowsInOrder(t *testing.T) {
	ds := FlatMap(FromItems(newTestPool(t), []string{"ab", "c"}), func(s string) ([]string, error) {
		out := make([]string, 0, len(s))
		for _, r := range s {
			out = append(out, string(r))
		}
		return out, nil
	})

	rows, err := ds.Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, rows)
}

func TestMapBatches_CanChangeBlockLength(t *testing.T) {
	ds := MapBatches(Range(newTestPool(t), 30, WithBlockSize(10)), func(rows []int64) ([]int64, error) {
		var sum int64
		for _, v := range rows {
			sum += v
		}
		return []int64{sum}, nil
	})

	rows, err := ds.Collect(context.Background())
	require.NoError(t, err)
	// one sum per block, block order preserved
	require.Equal(t, []int64{45, 145, 245}, rows)
}

func TestTransform_ErrorCarriesBlockIndex(t *testing.T) {
	ds := Map(FromItems(newTestPool(t), []int{0, 1, 2, 3, 4, 5}, WithBlockSize(2)), func(v int) (int, error) {
		if v == 4 {
			return 0, errors.New("boom")
		}
		return v, nil
	})

	_, err := ds.Collect(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "block-2")
	require.Contains(t, err.Error(), "boom")
}

func TestTransform_AggregatesFailuresAcrossBlocks(t *testing.T) {
	ds := Map(FromItems(newTestPool(t), []int{0, 1, 2, 3, 4, 5}, WithBlockSize(2)), func(v int) (int, error) {
		switch v {
		case 0:
			return 0, errors.New("zero is out")
		case 4:
			return 0, errors.New("four is out")
		default:
			return v, nil
		}
	})

	_, err := ds.Collect(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "block-0")
	require.Contains(t, err.Error(), "zero is out")
	require.Contains(t, err.Error(), "block-2")
	require.Contains(t, err.Error(), "four is out")
}

func TestLimit(t *testing.T) {
	ds := FromItems(newTestPool(t), []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, WithBlockSize(3))

	rows, err := ds.Limit(5).Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3, 4}, rows)

	stats, err := ds.Limit(5).Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{NumBlocks: 2, NumRows: 5}, stats)

	rows, err = ds.Limit(0).Collect(context.Background())
	require.NoError(t, err)
	require.Empty(t, rows)

	rows, err = ds.Limit(100).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 10)
}

func TestTake(t *testing.T) {
	ds := Range(newTestPool(t), 100, WithBlockSize(16))

	rows, err := ds.Take(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, []int64{0, 1, 2, 3, 4}, rows)

	rows, err = ds.Take(context.Background(), 1000)
	require.NoError(t, err)
	require.Len(t, rows, 100)

	rows, err = ds.Take(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestCount(t *testing.T) {
	count, err := Range(newTestPool(t), 321, WithBlockSize(50)).Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(321), count)
}

func TestEach_VisitsInOrderAndStopsOnError(t *testing.T) {
	ds := Range(newTestPool(t), 10, WithBlockSize(3))

	var seen []int64
	err := ds.Each(context.Background(), func(v int64) error {
		seen = append(seen, v)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seen)

	errStop := errors.New("stop")
	visits := 0
	err = ds.Each(context.Background(), func(int64) error {
		visits++
		if visits == 3 {
			return errStop
		}
		return nil
	})
	require.ErrorIs(t, err, errStop)
	require.Equal(t, 3, visits)
}

func TestRepartition_BalancesBlocks(t *testing.T) {
	ds := Range(newTestPool(t), 10, WithBlockSize(4)).Repartition(3)

	stats, err := ds.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{NumBlocks: 3, NumRows: 10}, stats)

	sizes, err := MapBatches(ds, func(rows []int64) ([]int, error) {
		return []int{len(rows)}, nil
	}).Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{4, 3, 3}, sizes)

	rows, err := ds.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 10)
	require.Equal(t, int64(0), rows[0])
	require.Equal(t, int64(9), rows[9])
}

func TestRepartition_MoreBlocksThanRows(t *testing.T) {
	ds := Range(newTestPool(t), 4).Repartition(10)

	stats, err := ds.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{NumBlocks: 4, NumRows: 4}, stats)
}

func TestMaterialize_PinsComputedBlocks(t *testing.T) {
	var runs atomic.Int32
	ds := Map(Range(newTestPool(t), 10), func(v int64) (int64, error) {
		runs.Add(1)
		return v, nil
	})

	// lazy handles re-run the chain on every action
	_, err := ds.Collect(context.Background())
	require.NoError(t, err)
	_, err = ds.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(20), runs.Load())

	runs.Store(0)
	pinned, err := ds.Materialize(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(10), runs.Load())

	_, err = pinned.Collect(context.Background())
	require.NoError(t, err)
	_, err = pinned.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(10), runs.Load())
}

func TestEmptyDataset_ActionsSucceed(t *testing.T) {
	ds := FromItems(newTestPool(t), []string{})

	rows, err := ds.Collect(context.Background())
	require.NoError(t, err)
	require.Empty(t, rows)

	count, err := ds.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)

	stats, err := ds.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{}, stats)

	err = ds.Each(context.Background(), func(string) error {
		t.Fatal("fn called on empty dataset")
		return nil
	})
	require.NoError(t, err)
}
