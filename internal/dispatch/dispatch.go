package dispatch

import (
	"context"
	"time"
)

// Task is the unit handed from the API to the worker: one accepted batch job
// ready to run. The payload stays small on purpose; the worker reloads the
// job and its items from the database, which is the source of truth.
type Task struct {
	BatchJobID string `json:"batchJobId"`
	UserID     string `json:"userId"`
	PresetID   string `json:"presetId,omitempty"`
	EnqueuedAt int64  `json:"enqueuedAt"`
}

// Handler processes one dispatched task. A non-nil error triggers redelivery
// under the consumer's retry policy.
type Handler func(ctx context.Context, task Task) error

// Dispatcher decouples batch acceptance from batch execution. Enqueue must
// not block on the execution itself; a failed enqueue surfaces to the caller
// so the API can report the job as accepted-but-not-started.
type Dispatcher interface {
	Enqueue(ctx context.Context, task Task) error
	Close() error
}

// JobFailer marks a job whose dispatch attempts ran out as terminally failed
// so it never lingers as pending. Satisfied by the batch repository.
type JobFailer interface {
	MarkJobFailedToStart(ctx context.Context, jobID, reason string) (applied bool, err error)
}

// RetryPolicy controls redelivery of failed tasks: exponential backoff from
// BaseDelay, capped at MaxDelay, for at most MaxAttempts total attempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy mirrors the production queue settings.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second, MaxDelay: 60 * time.Second}
}

// Backoff returns the delay to wait before the given attempt (1-based). The
// first attempt runs immediately.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	delay := p.BaseDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
