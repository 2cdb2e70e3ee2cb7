package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func startTestPool(t *testing.T, workers, queue int) (*WorkingPool, context.CancelFunc, *sync.WaitGroup) {
	t.Helper()

	pool := NewWorkingPool(workers, queue)
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go pool.Start(ctx, &wg)

	return pool, cancel, &wg
}

func TestWorkingPool_ExecutesJobs(t *testing.T) {
	pool, cancel, wg := startTestPool(t, 2, 4)

	var executed atomic.Int32
	done := make(chan struct{})
	pool.SubmitJob(func(ctx context.Context) error {
		executed.Add(1)
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed")
	}

	cancel()
	wg.Wait()
	assert.Equal(t, int32(1), executed.Load())
}

func TestWorkingPool_SurvivesPanicAndError(t *testing.T) {
	pool, cancel, wg := startTestPool(t, 1, 4)

	pool.SubmitJob(func(ctx context.Context) error {
		panic("boom")
	})
	pool.SubmitJob(func(ctx context.Context) error {
		return errors.New("job failed")
	})

	done := make(chan struct{})
	pool.SubmitJob(func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive panicking job")
	}

	cancel()
	wg.Wait()
}

func TestWorkingPool_SubmitAfterShutdownIsDropped(t *testing.T) {
	pool, cancel, wg := startTestPool(t, 1, 1)

	cancel()
	wg.Wait()

	// The scheduler can fire one last tick while the pool shuts down;
	// a late submission must return without panicking or blocking.
	returned := make(chan struct{})
	go func() {
		pool.SubmitJob(func(ctx context.Context) error { return nil })
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("SubmitJob blocked after pool shutdown")
	}
}

func TestGridMaintenanceJob_PropagatesError(t *testing.T) {
	wantErr := errors.New("rebuild failed")
	job := NewGridMaintenanceJob(rebuilderFunc(func(ctx context.Context, batchSize int) error {
		assert.Equal(t, 10, batchSize)
		return wantErr
	}), 10)

	err := job(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

type rebuilderFunc func(ctx context.Context, batchSize int) error

func (f rebuilderFunc) RebuildStaleGrids(ctx context.Context, batchSize int) error {
	return f(ctx, batchSize)
}
