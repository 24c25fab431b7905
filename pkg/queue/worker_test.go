package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_ProcessesTasks(t *testing.T) {
	pool := NewWorkerPool(Options{NumWorkers: 3, BufferSize: 10})
	pool.Start()

	var ran int64
	for i := 0; i < 8; i++ {
		task := NewCollectionTask("inf-1", func(context.Context) error {
			atomic.AddInt64(&ran, 1)
			return nil
		})
		require.NoError(t, pool.Enqueue(task))
	}
	pool.Stop()

	processed, errCount := pool.Stats()
	assert.Equal(t, int64(8), processed)
	assert.Zero(t, errCount)
	assert.Equal(t, int64(8), atomic.LoadInt64(&ran))
}

func TestWorkerPool_RecordsFailures(t *testing.T) {
	pool := NewWorkerPool(Options{NumWorkers: 1, BufferSize: 4})
	pool.Start()

	require.NoError(t, pool.Enqueue(NewCollectionTask("inf-1", func(context.Context) error {
		return errors.New("upstream exploded")
	})))
	require.NoError(t, pool.Enqueue(NewCollectionTask("inf-1", func(context.Context) error {
		return nil
	})))
	pool.Stop()

	processed, errCount := pool.Stats()
	assert.Equal(t, int64(2), processed)
	assert.Equal(t, int64(1), errCount)
	require.Len(t, pool.Errors(), 1)
	assert.Contains(t, pool.Errors()[0].Error(), "upstream exploded")
}

// A panicking task must be contained by the pool's error boundary: it is
// recorded as a failure and the worker keeps serving.
func TestWorkerPool_PanicContainment(t *testing.T) {
	pool := NewWorkerPool(Options{NumWorkers: 1, BufferSize: 4})
	pool.Start()

	require.NoError(t, pool.Enqueue(NewCollectionTask("inf-1", func(context.Context) error {
		panic("collection went sideways")
	})))

	var ranAfter int64
	require.NoError(t, pool.Enqueue(NewCollectionTask("inf-1", func(context.Context) error {
		atomic.AddInt64(&ranAfter, 1)
		return nil
	})))
	pool.Stop()

	processed, errCount := pool.Stats()
	assert.Equal(t, int64(2), processed)
	assert.Equal(t, int64(1), errCount)
	assert.Equal(t, int64(1), atomic.LoadInt64(&ranAfter), "worker must survive the panic")
}

func TestWorkerPool_EnqueueFullQueue(t *testing.T) {
	pool := NewWorkerPool(Options{NumWorkers: 1, BufferSize: 1})
	// Not started: the single buffer slot fills and the next enqueue must
	// fail fast instead of blocking the caller.
	require.NoError(t, pool.Enqueue(NewCollectionTask("inf-1", func(context.Context) error { return nil })))

	err := pool.Enqueue(NewCollectionTask("inf-2", func(context.Context) error { return nil }))
	assert.Error(t, err)
}

func TestCollectionTask_IDCarriesInfluencerAndJob(t *testing.T) {
	task := NewCollectionTask("inf-42", func(context.Context) error { return nil })

	assert.Contains(t, task.ID(), "collect_followers:inf-42:")
	assert.Contains(t, task.ID(), task.JobID.String())
}

func TestCollectionTask_NilRun(t *testing.T) {
	task := &CollectionTask{}
	assert.Error(t, task.Process(context.Background()))
}

func TestWorkerPool_StopDrainsQueue(t *testing.T) {
	pool := NewWorkerPool(Options{NumWorkers: 2, BufferSize: 10})
	pool.Start()

	var ran int64
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Enqueue(NewCollectionTask("inf-1", func(context.Context) error {
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&ran, 1)
			return nil
		})))
	}
	pool.Stop()

	assert.Equal(t, int64(5), atomic.LoadInt64(&ran), "stop waits for queued work")
}
