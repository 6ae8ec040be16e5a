package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/okian/matchtag/internal/adapters/mq/queue"
	"github.com/okian/matchtag/internal/adapters/repository"
	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/pkg/logger"
	"github.com/okian/matchtag/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultRetryInitial    = 50 * time.Millisecond
	defaultRetryMaxElapsed = 10 * time.Second
	poolShutdownTimeout    = 30 * time.Second
)

// Saver writes a match's event list at a revision.
type Saver interface {
	Save(ctx context.Context, matchID string, revision int64, events []model.Event) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.SaveJob
}

// Worker consumes save jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker saves jobs with exponential backoff on transient errors.
type InMemoryWorker struct {
	queue Queue
	saver Saver
	name  string

	retryInitial    time.Duration
	retryMaxElapsed time.Duration

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, saver Saver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:           q,
		saver:           saver,
		name:            "worker",
		retryInitial:    defaultRetryInitial,
		retryMaxElapsed: defaultRetryMaxElapsed,
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
		logger:          logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error saving match",
					logger.String("match_id", job.MatchID),
					logger.Int64("revision", job.Revision),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker after the job in flight.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// processJob saves one job. Stale revisions are expected when saves for a
// match overtake each other and are not errors.
func (w *InMemoryWorker) processJob(ctx context.Context, job queue.SaveJob) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	attempt := 0
	op := func() error {
		attempt++
		saveStart := time.Now()
		err := w.saver.Save(ctx, job.MatchID, job.Revision, job.Events)
		metrics.RecordPersistenceLatency(float64(time.Since(saveStart).Milliseconds()))
		if errors.Is(err, repository.ErrStaleRevision) || errors.Is(err, repository.ErrInvalidMatch) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.retryInitial
	b.MaxElapsedTime = w.retryMaxElapsed

	notify := func(err error, next time.Duration) {
		w.logger.Warn(ctx, "save failed, retrying",
			logger.String("match_id", job.MatchID),
			logger.Int("attempt", attempt),
			logger.Duration("next", next),
			logger.Error(err),
		)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	switch {
	case err == nil:
		w.logger.Debug(ctx, "match saved",
			logger.String("match_id", job.MatchID),
			logger.Int64("revision", job.Revision),
			logger.Int("events", len(job.Events)),
		)
		return nil
	case errors.Is(err, repository.ErrStaleRevision):
		metrics.RecordPersistenceStale()
		return nil
	default:
		metrics.RecordPersistenceError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "save_error")
		return fmt.Errorf("save match %s revision %d: %w", job.MatchID, job.Revision, err)
	}
}

// Pool manages multiple workers on one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. Options apply to every
// worker; each still gets its own name.
func NewPool(workerCount int, q Queue, saver Saver, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, saver, wopts...)
	}
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
}

// Shutdown closes the queue and waits for the workers to drain it. Workers
// still busy when ctx or the pool timeout expires are stopped after their
// current job.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-drainCtx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			timedOut = true
			w.stop()
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("worker pool drain: %w", drainCtx.Err())
	}
	return nil
}
