package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/seetuai/seetu/internal/infra"
	"github.com/seetuai/seetu/internal/metrics"
)

// InProcDispatcher runs tasks on goroutines inside the API process. It serves
// single-binary deployments and tests where no Redis is available. Tasks
// survive only as long as the process does.
type InProcDispatcher struct {
	handler Handler
	failer  JobFailer
	policy  RetryPolicy
	logger  *infra.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
	cancel context.CancelFunc
	ctx    context.Context
}

// NewInProcDispatcher builds an in-process dispatcher around the handler.
// failer records jobs that exhaust their attempts as terminally failed.
func NewInProcDispatcher(handler Handler, failer JobFailer, policy RetryPolicy, logger *infra.Logger) *InProcDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &InProcDispatcher{
		handler: handler,
		failer:  failer,
		policy:  policy,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Enqueue starts the task on its own goroutine. The task runs on the
// dispatcher's lifetime context, not the request context, so it outlives the
// HTTP request that accepted the batch.
func (d *InProcDispatcher) Enqueue(_ context.Context, task Task) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return context.Canceled
	}
	d.wg.Add(1)
	d.mu.Unlock()

	metrics.DispatchQueueDepth.Inc()
	go func() {
		defer d.wg.Done()
		defer metrics.DispatchQueueDepth.Dec()
		d.run(task)
	}()
	return nil
}

func (d *InProcDispatcher) run(task Task) {
	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		if delay := d.policy.Backoff(attempt); delay > 0 {
			select {
			case <-d.ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		err := d.handler(d.ctx, task)
		if err == nil {
			return
		}
		if d.ctx.Err() != nil {
			return
		}

		metrics.DispatchRetries.Inc()
		d.logger.Warn().
			Err(err).
			Str("batch_job_id", task.BatchJobID).
			Int("attempt", attempt).
			Msg("dispatch: task attempt failed")
	}

	d.logger.Error().
		Str("batch_job_id", task.BatchJobID).
		Int("attempts", d.policy.MaxAttempts).
		Msg("dispatch: task exhausted retries")
	surfaceFailedToStart(d.ctx, d.failer, task.BatchJobID, d.logger)
}

// Close stops accepting tasks, cancels running ones, and waits for them to
// return.
func (d *InProcDispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
	d.wg.Wait()
	return nil
}
