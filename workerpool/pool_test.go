package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPool_RunsJobs(t *testing.T) {
	p := New(Config{Name: "test", Workers: 3})
	defer p.Close()

	var count atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		require.NoError(t, p.Execute(func(context.Context) {
			defer wg.Done()
			count.Add(1)
		}))
	}
	wg.Wait()

	assert.Equal(t, int32(10), count.Load())
	assert.Equal(t, 3, p.Workers())
	assert.Eventually(t, func() bool { return p.Active() == 0 }, time.Second, time.Millisecond)
}

func TestPool_DefaultsToOneWorker(t *testing.T) {
	p := New(Config{})
	defer p.Close()
	assert.Equal(t, 1, p.Workers())
}

func TestPool_BoundsConcurrency(t *testing.T) {
	p := New(Config{Name: "bounded", Workers: 2})
	defer p.Close()

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		require.NoError(t, p.Execute(func(context.Context) {
			defer wg.Done()
			n := current.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}))
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPool_ActiveCountsQueuedAndRunning(t *testing.T) {
	p := New(Config{Workers: 1})
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Execute(func(context.Context) {
		close(started)
		<-release
	}))
	require.NoError(t, p.Execute(func(context.Context) {}))

	<-started
	assert.Equal(t, 2, p.Active())
	assert.Equal(t, 1, p.Running())

	close(release)
	assert.Eventually(t, func() bool { return p.Active() == 0 }, time.Second, time.Millisecond)
}

func TestPool_ExecuteAfterClose(t *testing.T) {
	p := New(Config{Workers: 1})
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	err := p.Execute(func(context.Context) {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_CloseCancelsJobContext(t *testing.T) {
	p := New(Config{Workers: 1})

	started := make(chan struct{})
	var sawCancel atomic.Bool
	require.NoError(t, p.Execute(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
	}))

	<-started
	require.NoError(t, p.Close())
	assert.True(t, sawCancel.Load())
	assert.Equal(t, 0, p.Active())
}

func TestPool_CloseRunsQueuedJobsWithCancelledContext(t *testing.T) {
	p := New(Config{Workers: 1})

	release := make(chan struct{})
	require.NoError(t, p.Execute(func(ctx context.Context) { <-release }))

	var queuedErr atomic.Value
	require.NoError(t, p.Execute(func(ctx context.Context) {
		queuedErr.Store(ctx.Err())
	}))

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	require.NoError(t, p.Close())

	assert.Equal(t, context.Canceled, queuedErr.Load())
}

func TestPool_ShutdownDrainsQueue(t *testing.T) {
	p := New(Config{Workers: 1})

	var ran atomic.Int32
	for range 5 {
		require.NoError(t, p.Execute(func(ctx context.Context) {
			if ctx.Err() == nil {
				ran.Add(1)
			}
		}))
	}

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(5), ran.Load())
	assert.ErrorIs(t, p.Execute(func(context.Context) {}), ErrPoolClosed)
}

func TestPool_ShutdownDeadline(t *testing.T) {
	p := New(Config{Workers: 1})
	require.NoError(t, p.Execute(func(ctx context.Context) { <-ctx.Done() }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := p.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, p.Active())
}

func TestPool_Hooks(t *testing.T) {
	var submitted, started, finished, panicked atomic.Int32
	p := New(Config{
		Name:     "hooks",
		Workers:  2,
		OnSubmit: func(name string) { submitted.Add(1) },
		OnStart:  func(name string) { started.Add(1) },
		OnFinish: func(name string) { finished.Add(1) },
		OnPanic: func(name string, r *panics.Recovered) {
			assert.Equal(t, "hooks", name)
			assert.Equal(t, "raw job", r.Value)
			panicked.Add(1)
		},
	})

	require.NoError(t, p.Execute(func(context.Context) {}))
	require.NoError(t, p.Execute(func(context.Context) { panic("raw job") }))
	require.NoError(t, p.Close())

	assert.Equal(t, int32(2), submitted.Load())
	assert.Equal(t, int32(2), started.Load())
	assert.Equal(t, int32(2), finished.Load())
	assert.Equal(t, int32(1), panicked.Load())
}

func TestPool_RecoveredPanicKeepsWorkerAlive(t *testing.T) {
	p := New(Config{Workers: 1})
	defer p.Close()

	require.NoError(t, p.Execute(func(context.Context) { panic(errors.New("boom")) }))

	done := make(chan struct{})
	require.NoError(t, p.Execute(func(context.Context) { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive the panic")
	}
}

func TestAfterJob_RunsOnceJobIsUncounted(t *testing.T) {
	p := New(Config{Workers: 1})
	defer p.Close()

	seen := make(chan [2]int, 1)
	require.NoError(t, p.Execute(func(ctx context.Context) {
		ok := AfterJob(ctx, func() { seen <- [2]int{p.Active(), p.Running()} })
		assert.True(t, ok)
	}))

	select {
	case got := <-seen:
		assert.Equal(t, [2]int{0, 0}, got)
	case <-time.After(time.Second):
		t.Fatal("after-job func did not run")
	}
}

func TestAfterJob_OutsidePool(t *testing.T) {
	ran := false
	assert.False(t, AfterJob(context.Background(), func() { ran = true }))
	assert.False(t, ran)
}

func TestFuture_FinishedAfterPoolAccounting(t *testing.T) {
	p := New(Config{Workers: 2})
	defer p.Close()

	for range 50 {
		f, err := Submit(context.Background(), p, func(context.Context) (int, error) { return 1, nil })
		require.NoError(t, err)
		<-f.Finished()
		assert.Zero(t, p.Active())
	}
}
