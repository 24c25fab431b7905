// Package queue runs fire-and-forget background work, primarily follower
// collection jobs, on a bounded worker pool with its own error boundary.
package queue

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Task is a unit of background work.
type Task interface {
	ID() string
	Process(ctx context.Context) error
}

// WorkerPool manages a pool of workers processing tasks.
type WorkerPool struct {
	numWorkers     int
	taskChan       chan Task
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
	processedCount int64
	errorCount     int64
	mu             sync.RWMutex
	errors         []error
	maxErrors      int
}

// Options configures the worker pool.
type Options struct {
	NumWorkers int
	BufferSize int
	MaxErrors  int
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(opts Options) *WorkerPool {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = runtime.NumCPU()
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = opts.NumWorkers * 2
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		numWorkers: opts.NumWorkers,
		taskChan:   make(chan Task, opts.BufferSize),
		ctx:        ctx,
		cancel:     cancel,
		errors:     make([]error, 0),
		maxErrors:  opts.MaxErrors,
	}
}

// Start starts the worker pool.
func (wp *WorkerPool) Start() {
	log.Info().Int("workers", wp.numWorkers).Msg("starting worker pool")

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Enqueue adds a task to the queue without blocking the caller: a full
// queue is reported as an error rather than stalling the triggering
// request.
func (wp *WorkerPool) Enqueue(task Task) error {
	select {
	case wp.taskChan <- task:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// Stop gracefully stops the worker pool.
func (wp *WorkerPool) Stop() {
	close(wp.taskChan)
	wp.wg.Wait()
	wp.cancel()

	log.Info().
		Int64("processed", atomic.LoadInt64(&wp.processedCount)).
		Int64("errors", atomic.LoadInt64(&wp.errorCount)).
		Msg("worker pool stopped")
}

// Stats returns processing statistics.
func (wp *WorkerPool) Stats() (processed int64, errors int64) {
	return atomic.LoadInt64(&wp.processedCount), atomic.LoadInt64(&wp.errorCount)
}

// Errors returns all errors recorded so far.
func (wp *WorkerPool) Errors() []error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	errs := make([]error, len(wp.errors))
	copy(errs, wp.errors)
	return errs
}

func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	log.Debug().Int("worker_id", workerID).Msg("worker started")

	for {
		select {
		case task, ok := <-wp.taskChan:
			if !ok {
				log.Debug().Int("worker_id", workerID).Msg("worker stopped - channel closed")
				return
			}
			wp.processTask(workerID, task)

		case <-wp.ctx.Done():
			log.Debug().Int("worker_id", workerID).Msg("worker stopped - context cancelled")
			return
		}
	}
}

// processTask runs one task inside the pool's error boundary: a panicking
// task is recorded as a failure, never allowed to take the worker down.
func (wp *WorkerPool) processTask(workerID int, task Task) {
	start := time.Now()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		return task.Process(wp.ctx)
	}()
	duration := time.Since(start)

	if err != nil {
		atomic.AddInt64(&wp.errorCount, 1)
		wp.recordError(fmt.Errorf("task %s failed: %w", task.ID(), err))

		log.Error().
			Err(err).
			Int("worker_id", workerID).
			Str("task_id", task.ID()).
			Dur("duration", duration).
			Msg("task failed")
	} else {
		log.Debug().
			Int("worker_id", workerID).
			Str("task_id", task.ID()).
			Dur("duration", duration).
			Msg("task completed")
	}

	atomic.AddInt64(&wp.processedCount, 1)
}

func (wp *WorkerPool) recordError(err error) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if len(wp.errors) < wp.maxErrors {
		wp.errors = append(wp.errors, err)
	}
}

// CollectionTask is one background follower-collection job for a single
// influencer.
type CollectionTask struct {
	JobID        uuid.UUID
	InfluencerID string
	Run          func(ctx context.Context) error
}

// NewCollectionTask assigns the job a fresh ID for tracing.
func NewCollectionTask(influencerID string, run func(ctx context.Context) error) *CollectionTask {
	return &CollectionTask{
		JobID:        uuid.New(),
		InfluencerID: influencerID,
		Run:          run,
	}
}

// ID returns the task ID.
func (t *CollectionTask) ID() string {
	return fmt.Sprintf("collect_followers:%s:%s", t.InfluencerID, t.JobID)
}

// Process runs the collection job.
func (t *CollectionTask) Process(ctx context.Context) error {
	if t.Run == nil {
		return fmt.Errorf("no collection function provided")
	}
	return t.Run(ctx)
}
