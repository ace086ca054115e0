package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmit_Roundtrip(t *testing.T) {
	p := NewPool(WithParallelism(2))

	ref := Submit(p, func(ctx context.Context) (int, error) {
		return 42, nil
	})

	value, err := ref.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, value)
	p.Close()
}

func TestSubmit_ErrorPropagation(t *testing.T) {
	p := NewPool(WithParallelism(1))

	errBoom := errors.New("boom")
	ref := Submit(p, func(ctx context.Context) (string, error) {
		return "", errBoom
	})

	_, err := ref.Get(context.Background())
	require.ErrorIs(t, err, errBoom)
	require.ErrorIs(t, ref.Err(), errBoom)
	p.Close()
}

func TestSubmit_PanicBecomesError(t *testing.T) {
	p := NewPool(WithParallelism(1))

	ref := Submit(p, func(ctx context.Context) (int, error) {
		panic("kaboom")
	}, WithName("exploder"))

	_, err := ref.Get(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "exploder")
	require.Contains(t, err.Error(), "kaboom")
	p.Close()
}

func TestSubmit_AfterCloseResolvesWithError(t *testing.T) {
	p := NewPool(WithParallelism(1))
	p.Close()

	ref := Submit(p, func(ctx context.Context) (int, error) {
		return 1, nil
	})

	_, err := ref.Get(context.Background())
	require.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_ZeroParallelismFallsBackToOne(t *testing.T) {
	p := NewPool(WithParallelism(0))
	require.Equal(t, 1, p.Parallelism())

	ref := Submit(p, func(ctx context.Context) (int, error) {
		return 3, nil
	})
	value, err := ref.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, value)
	p.Close()

	p = NewPool(WithParallelism(-4))
	require.Equal(t, 1, p.Parallelism())
	p.Close()
}

func TestPool_CloseWaitsForRunningTasks(t *testing.T) {
	p := NewPool(WithParallelism(1))

	var done atomic.Int32
	Submit(p, func(ctx context.Context) (struct{}, error) {
		time.Sleep(50 * time.Millisecond)
		done.Store(1)
		return struct{}{}, nil
	})

	// Close should wait for the running task to finish
	p.Close()
	require.Equal(t, int32(1), done.Load())
}

func TestPool_BoundsConcurrency(t *testing.T) {
	p := NewPool(WithParallelism(2))

	var running, peak atomic.Int32
	refs := make([]*ObjectRef[int], 8)
	for i := range refs {
		refs[i] = Submit(p, func(ctx context.Context) (int, error) {
			cur := running.Add(1)
			for {
				m := peak.Load()
				if cur <= m || peak.CompareAndSwap(m, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return 0, nil
		})
	}

	_, err := GetAll(context.Background(), refs)
	require.NoError(t, err)
	require.LessOrEqual(t, peak.Load(), int32(2))
	p.Close()
}

func TestSubmit_WithCPUsRunsExclusively(t *testing.T) {
	p := NewPool(WithParallelism(4))

	// A task asking for the whole pool must never overlap with another.
	var running, peak atomic.Int32
	track := func(d time.Duration) {
		cur := running.Add(1)
		for {
			m := peak.Load()
			if cur <= m || peak.CompareAndSwap(m, cur) {
				break
			}
		}
		time.Sleep(d)
		running.Add(-1)
	}

	refs := make([]*ObjectRef[int], 6)
	for i := range refs {
		refs[i] = Submit(p, func(ctx context.Context) (int, error) {
			track(15 * time.Millisecond)
			return 0, nil
		}, WithCPUs(4))
	}

	_, err := GetAll(context.Background(), refs)
	require.NoError(t, err)
	require.Equal(t, int32(1), peak.Load())
	p.Close()
}

func TestGet_ContextCancellation(t *testing.T) {
	p := NewPool(WithParallelism(1))

	release := make(chan struct{})
	ref := Submit(p, func(ctx context.Context) (int, error) {
		<-release
		return 7, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := ref.Get(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Cancellation aborts the wait, not the task itself.
	close(release)
	value, err := ref.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, value)
	p.Close()
}

func TestGetAll_PreservesSubmissionOrder(t *testing.T) {
	p := NewPool(WithParallelism(4))

	// Later submissions finish first; results must still come back in order.
	refs := make([]*ObjectRef[int], 4)
	for i := range refs {
		refs[i] = Submit(p, func(ctx context.Context) (int, error) {
			time.Sleep(time.Duration(4-i) * 10 * time.Millisecond)
			return i, nil
		})
	}

	results, err := GetAll(context.Background(), refs)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3}, results)
	p.Close()
}

func TestGetAll_AggregatesAllFailures(t *testing.T) {
	p := NewPool(WithParallelism(2))

	refs := []*ObjectRef[int]{
		Submit(p, func(ctx context.Context) (int, error) { return 1, nil }),
		Submit(p, func(ctx context.Context) (int, error) { return 0, errors.New("boom") }, WithName("alpha")),
		Submit(p, func(ctx context.Context) (int, error) { return 0, errors.New("bang") }, WithName("beta")),
	}

	_, err := GetAll(context.Background(), refs)
	require.Error(t, err)
	require.Contains(t, err.Error(), "alpha")
	require.Contains(t, err.Error(), "boom")
	require.Contains(t, err.Error(), "beta")
	require.Contains(t, err.Error(), "bang")
	p.Close()
}

func TestGetAll_EmptyRefs(t *testing.T) {
	results, err := GetAll[int](context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, results)

	results, err = GetAll(context.Background(), []*ObjectRef[int]{})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestGetAll_ContextCancellation(t *testing.T) {
	p := NewPool(WithParallelism(1))

	release := make(chan struct{})
	refs := []*ObjectRef[int]{
		Submit(p, func(ctx context.Context) (int, error) {
			<-release
			return 1, nil
		}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := GetAll(ctx, refs)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	p.Close()
}
