// Package inmemory is a channel-backed export queue and job store for a
// single API process.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/fx-backoffice/internal/jobs"
	"github.com/dvloznov/fx-backoffice/internal/logger"
	"github.com/google/uuid"
)

// DefaultWorkers is used when NewQueue is given a non-positive worker count.
const DefaultWorkers = 5

// ErrClosed is returned once Stop or Close has been called.
var ErrClosed = errors.New("queue is closed")

// Backoff returns the wait before the given attempt (2, 3, ...).
type Backoff func(attempt int) time.Duration

// LinearBackoff waits one more second per attempt.
func LinearBackoff(attempt int) time.Duration {
	return time.Duration(attempt-1) * time.Second
}

// Queue runs exports on a fixed pool of workers. Failed attempts are retried
// by the same worker, so a job never re-enters the channel.
type Queue struct {
	pending chan *jobs.Export
	closing chan struct{}
	wg      sync.WaitGroup
	mu      sync.RWMutex
	store   jobs.Store
	workers int
	backoff Backoff
	closed  bool
	now     func() time.Time
}

// NewQueue creates a queue holding up to bufferSize unstarted exports.
// store may be nil.
func NewQueue(bufferSize, workers int, store jobs.Store) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Queue{
		pending: make(chan *jobs.Export, bufferSize),
		closing: make(chan struct{}),
		store:   store,
		workers: workers,
		backoff: LinearBackoff,
		now:     time.Now,
	}
}

// WithBackoff replaces the retry delay.
func (q *Queue) WithBackoff(b Backoff) *Queue {
	q.backoff = b
	return q
}

// Enqueue assigns an id and defaults, records the export and queues it.
func (q *Queue) Enqueue(ctx context.Context, job *jobs.Export) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = q.now()
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = jobs.DefaultMaxAttempts
	}
	job.Status = jobs.StatusPending

	if err := q.save(ctx, job); err != nil {
		return fmt.Errorf("Enqueue: %w", err)
	}

	select {
	case q.pending <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closing:
		return ErrClosed
	}
}

// Start launches the workers.
func (q *Queue) Start(ctx context.Context, handler jobs.Handler) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, handler)
	}
	return nil
}

func (q *Queue) work(ctx context.Context, handler jobs.Handler) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closing:
			return
		case job := <-q.pending:
			q.run(ctx, job, handler)
		}
	}
}

// run attempts job until it succeeds, exhausts MaxAttempts, or the queue stops.
func (q *Queue) run(ctx context.Context, job *jobs.Export, handler jobs.Handler) {
	log := logger.ForJob(logger.FromContext(ctx), job.JobID, job.CustomerID)

	started := q.now()
	job.StartedAt = &started

	for {
		job.Attempts++
		job.Status = jobs.StatusRunning
		_ = q.save(ctx, job)

		err := handler(ctx, job)
		if err == nil {
			q.finish(ctx, job, nil)
			log.Info().Int("attempts", job.Attempts).Msg("Export completed")
			return
		}

		if job.Attempts >= job.MaxAttempts {
			q.finish(ctx, job, err)
			log.Error().Err(err).Int("attempts", job.Attempts).Msg("Export failed")
			return
		}

		job.Status = jobs.StatusRetrying
		job.Error = err.Error()
		_ = q.save(ctx, job)
		log.Warn().Err(err).Int("attempt", job.Attempts).Msg("Export failed, retrying")

		timer := time.NewTimer(q.backoff(job.Attempts + 1))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			q.finish(ctx, job, fmt.Errorf("retry abandoned: %w", ctx.Err()))
			return
		case <-q.closing:
			timer.Stop()
			q.finish(ctx, job, fmt.Errorf("retry abandoned: %w", ErrClosed))
			return
		}
	}
}

func (q *Queue) finish(ctx context.Context, job *jobs.Export, err error) {
	done := q.now()
	job.CompletedAt = &done
	if err != nil {
		job.Status = jobs.StatusFailed
		job.Error = err.Error()
	} else {
		job.Status = jobs.StatusCompleted
		job.Error = ""
	}
	// ctx may already be cancelled; the final status must still be stored.
	_ = q.save(context.WithoutCancel(ctx), job)
}

func (q *Queue) save(ctx context.Context, job *jobs.Export) error {
	if q.store == nil {
		return nil
	}
	return q.store.Save(ctx, job)
}

// Stop refuses new exports and waits for running ones. Exports still waiting
// in the buffer stay pending in the store.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closing)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue without a deadline.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ jobs.Publisher = (*Queue)(nil)
	_ jobs.Consumer  = (*Queue)(nil)
)
