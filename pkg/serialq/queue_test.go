package serialq_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goods_market/pkg/serialq"
)

func TestQueueFIFO(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	q := serialq.New("fifo")
	q.Start(ctx)

	var (
		mu      sync.Mutex
		order   []int
		running atomic.Int32
		overlap atomic.Bool
	)

	futures := make([]*serialq.Future[int], 0, 50)

	for i := range 50 {
		f, err := serialq.Submit(ctx, q, "append", func(context.Context) (int, error) {
			if running.Add(1) > 1 {
				overlap.Store(true)
			}
			defer running.Add(-1)

			time.Sleep(100 * time.Microsecond)

			mu.Lock()
			order = append(order, i)
			mu.Unlock()

			return i, nil
		})
		rq.NoError(err)

		futures = append(futures, f)
	}

	for i, f := range futures {
		v, err := f.Wait(ctx)
		rq.NoError(err)
		rq.Equal(i, v)
	}

	rq.False(overlap.Load())

	for i := range order {
		rq.Equal(i, order[i])
	}

	rq.NoError(q.Shutdown(ctx))
}

func TestQueueConcurrentSubmittersNeverOverlap(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	q := serialq.New("overlap")
	q.Start(ctx)

	var (
		running atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := serialq.Do(ctx, q, "op", func(context.Context) (struct{}, error) {
				if running.Add(1) > 1 {
					overlap.Store(true)
				}

				time.Sleep(time.Millisecond)
				running.Add(-1)

				return struct{}{}, nil
			})
			rq.NoError(err)
		}()
	}

	wg.Wait()

	rq.False(overlap.Load())
	rq.NoError(q.Shutdown(ctx))
}

func TestSubmitCallbackUsesExecutor(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	var dispatched atomic.Int32

	executor := serialq.ExecutorFunc(func(fn func()) {
		dispatched.Add(1)
		go fn()
	})

	q := serialq.New("callbacks", serialq.WithExecutor(executor))
	q.Start(ctx)

	results := make(chan string, 2)

	err := serialq.SubmitCallback(ctx, q, "ok",
		func(context.Context) (string, error) { return "done", nil },
		func(v string) { results <- v },
		func(err error) { results <- err.Error() },
	)
	rq.NoError(err)

	err = serialq.SubmitCallback(ctx, q, "fail",
		func(context.Context) (string, error) { return "", errors.New("store down") },
		func(v string) { results <- v },
		func(err error) { results <- err.Error() },
	)
	rq.NoError(err)

	rq.Equal("done", <-results)
	rq.Equal("store down", <-results)
	rq.EqualValues(2, dispatched.Load())

	rq.NoError(q.Shutdown(ctx))
}

func TestCallbackDoesNotBlockWorker(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	loop := serialq.NewLoopExecutor(4)
	defer loop.Close()

	q := serialq.New("blocking-callback", serialq.WithExecutor(loop))
	q.Start(ctx)

	release := make(chan struct{})

	rq.NoError(serialq.SubmitCallback(ctx, q, "first",
		func(context.Context) (int, error) { return 1, nil },
		func(int) { <-release },
		nil,
	))

	v, err := serialq.Do(ctx, q, "second", func(context.Context) (int, error) { return 2, nil })
	rq.NoError(err)
	rq.Equal(2, v)

	close(release)
	rq.NoError(q.Shutdown(ctx))
}

func TestSubmitBackpressure(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	q := serialq.New("backpressure",
		serialq.WithCapacity(1),
		serialq.WithSubmitTimeout(20*time.Millisecond),
	)
	q.Start(ctx)

	started := make(chan struct{})
	release := make(chan struct{})

	_, err := serialq.Submit(ctx, q, "blocker", func(context.Context) (int, error) {
		close(started)
		<-release

		return 0, nil
	})
	rq.NoError(err)

	<-started

	_, err = serialq.Submit(ctx, q, "queued", func(context.Context) (int, error) { return 1, nil })
	rq.NoError(err)

	begin := time.Now()

	_, err = serialq.Submit(ctx, q, "overflow", func(context.Context) (int, error) { return 2, nil })
	rq.ErrorIs(err, serialq.ErrQueueFull)
	rq.GreaterOrEqual(time.Since(begin), 20*time.Millisecond)

	close(release)
	rq.NoError(q.Shutdown(ctx))
}

func TestSlowOperationIsNotAborted(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	q := serialq.New("slow", serialq.WithSlowThreshold(time.Millisecond))
	q.Start(ctx)

	v, err := serialq.Do(ctx, q, "slow", func(ctx context.Context) (string, error) {
		time.Sleep(20 * time.Millisecond)

		return "finished", ctx.Err()
	})
	rq.NoError(err)
	rq.Equal("finished", v)

	rq.NoError(q.Shutdown(ctx))
}

func TestCallerCancellationDoesNotAbortOperation(t *testing.T) {
	rq := require.New(t)

	q := serialq.New("cancel")
	q.Start(context.Background())

	ctx, cancel := context.WithCancel(context.Background())

	finished := make(chan error, 1)

	f, err := serialq.Submit(ctx, q, "op", func(opCtx context.Context) (int, error) {
		cancel()
		time.Sleep(5 * time.Millisecond)
		finished <- opCtx.Err()

		return 1, nil
	})
	rq.NoError(err)

	_, err = f.Wait(ctx)
	rq.ErrorIs(err, context.Canceled)
	rq.NoError(<-finished)

	rq.NoError(q.Shutdown(context.Background()))
}

func TestPanicBecomesError(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	q := serialq.New("panic")
	q.Start(ctx)

	_, err := serialq.Do(ctx, q, "explode", func(context.Context) (int, error) {
		panic("boom")
	})
	rq.ErrorContains(err, "operation explode panicked: boom")

	v, err := serialq.Do(ctx, q, "after", func(context.Context) (int, error) { return 7, nil })
	rq.NoError(err)
	rq.Equal(7, v)

	rq.NoError(q.Shutdown(ctx))
}

func TestShutdownDrainsQueuedWork(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	q := serialq.New("drain")
	q.Start(ctx)

	var executed atomic.Int32

	futures := make([]*serialq.Future[int], 0, 10)

	for range 10 {
		f, err := serialq.Submit(ctx, q, "work", func(context.Context) (int, error) {
			time.Sleep(time.Millisecond)

			return int(executed.Add(1)), nil
		})
		rq.NoError(err)

		futures = append(futures, f)
	}

	rq.NoError(q.Shutdown(ctx))
	rq.EqualValues(10, executed.Load())

	for _, f := range futures {
		_, err := f.Wait(ctx)
		rq.NoError(err)
	}

	_, err := serialq.Submit(ctx, q, "late", func(context.Context) (int, error) { return 0, nil })
	rq.ErrorIs(err, serialq.ErrQueueClosed)
}

func TestShutdownForceStopsAfterGracePeriod(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	q := serialq.New("force")
	q.Start(ctx)

	release := make(chan struct{})
	started := make(chan struct{})

	blocker, err := serialq.Submit(ctx, q, "blocker", func(context.Context) (int, error) {
		close(started)
		<-release

		return 1, nil
	})
	rq.NoError(err)

	<-started

	pending, err := serialq.Submit(ctx, q, "pending", func(context.Context) (int, error) { return 2, nil })
	rq.NoError(err)

	graceCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	rq.ErrorIs(q.Shutdown(graceCtx), context.DeadlineExceeded)

	close(release)

	v, err := blocker.Wait(ctx)
	rq.NoError(err)
	rq.Equal(1, v)

	_, err = pending.Wait(ctx)
	rq.ErrorIs(err, serialq.ErrForceStopped)
}
