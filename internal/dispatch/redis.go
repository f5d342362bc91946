package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seetuai/seetu/internal/domain"
	"github.com/seetuai/seetu/internal/infra"
	"github.com/seetuai/seetu/internal/metrics"
)

// QueueKey is the Redis list the API pushes accepted batch jobs onto and the
// worker pops from.
const QueueKey = "seetu:batch-generation"

// RedisDispatcher pushes tasks onto a Redis list. It is the production
// dispatcher: the API and the worker are separate processes sharing only
// Redis and PostgreSQL.
type RedisDispatcher struct {
	client *redis.Client
	logger *infra.Logger
}

// NewRedisDispatcher connects to Redis at the given URL and verifies the
// connection with a ping.
func NewRedisDispatcher(ctx context.Context, redisURL string, logger *infra.Logger) (*RedisDispatcher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisDispatcher{client: client, logger: logger}, nil
}

// Enqueue pushes the task onto the queue.
func (d *RedisDispatcher) Enqueue(ctx context.Context, task Task) error {
	task.EnqueuedAt = time.Now().Unix()
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	if err := d.client.LPush(ctx, QueueKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	if depth, err := d.client.LLen(ctx, QueueKey).Result(); err == nil {
		metrics.DispatchQueueDepth.Set(float64(depth))
	}
	d.logger.Debug().Str("batch_job_id", task.BatchJobID).Msg("dispatch: task enqueued")
	return nil
}

// Close releases the Redis connection.
func (d *RedisDispatcher) Close() error {
	return d.client.Close()
}

// Consumer pops tasks from the queue and runs them through a handler with
// retries. Run blocks until the context is cancelled.
type Consumer struct {
	client  *redis.Client
	handler Handler
	failer  JobFailer
	policy  RetryPolicy
	logger  *infra.Logger
}

// NewConsumer builds a queue consumer sharing the dispatcher's connection.
// failer records jobs that exhaust their attempts as terminally failed.
func NewConsumer(d *RedisDispatcher, handler Handler, failer JobFailer, policy RetryPolicy, logger *infra.Logger) *Consumer {
	return &Consumer{client: d.client, handler: handler, failer: failer, policy: policy, logger: logger}
}

// Run consumes tasks until ctx is cancelled. Each task is attempted up to
// MaxAttempts times with exponential backoff; a task that exhausts its
// attempts is dropped after logging, the job itself remains queryable in its
// last persisted state.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := c.client.BRPop(ctx, 5*time.Second, QueueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error().Err(err).Msg("dispatch: queue pop failed")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if len(result) != 2 {
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
			c.logger.Error().Err(err).Msg("dispatch: dropping malformed task")
			continue
		}
		if depth, err := c.client.LLen(ctx, QueueKey).Result(); err == nil {
			metrics.DispatchQueueDepth.Set(float64(depth))
		}

		c.process(ctx, task)
	}
}

func (c *Consumer) process(ctx context.Context, task Task) {
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if delay := c.policy.Backoff(attempt); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}

		err := c.handler(ctx, task)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		metrics.DispatchRetries.Inc()
		c.logger.Warn().
			Err(err).
			Str("batch_job_id", task.BatchJobID).
			Int("attempt", attempt).
			Int("max_attempts", c.policy.MaxAttempts).
			Msg("dispatch: task attempt failed")
	}

	c.logger.Error().
		Str("batch_job_id", task.BatchJobID).
		Int("attempts", c.policy.MaxAttempts).
		Msg("dispatch: task exhausted retries")
	surfaceFailedToStart(ctx, c.failer, task.BatchJobID, c.logger)
}

// surfaceFailedToStart makes retry exhaustion visible instead of stranding
// the job as pending forever.
func surfaceFailedToStart(ctx context.Context, failer JobFailer, jobID string, logger *infra.Logger) {
	if failer == nil {
		return
	}
	applied, err := failer.MarkJobFailedToStart(ctx, jobID, domain.FailedToStartMessage)
	if err != nil {
		logger.Error().Err(err).Str("batch_job_id", jobID).Msg("dispatch: marking job failed to start failed")
		return
	}
	if applied {
		metrics.DispatchFailedToStart.Inc()
	}
}
