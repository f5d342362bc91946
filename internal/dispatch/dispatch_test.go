package dispatch

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/seetuai/seetu/internal/domain"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// recordingFailer captures MarkJobFailedToStart calls.
type recordingFailer struct {
	mu      sync.Mutex
	jobIDs  []string
	reasons []string
}

func (f *recordingFailer) MarkJobFailedToStart(_ context.Context, jobID, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobIDs = append(f.jobIDs, jobID)
	f.reasons = append(f.reasons, reason)
	return true, nil
}

func (f *recordingFailer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobIDs)
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 4, BaseDelay: 5 * time.Second, MaxDelay: 60 * time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 0},
		{2, 5 * time.Second},
		{3, 10 * time.Second},
		{4, 20 * time.Second},
	}
	for _, tc := range cases {
		if got := p.Backoff(tc.attempt); got != tc.want {
			t.Errorf("Backoff(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestRetryPolicyBackoffCaps(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 10, BaseDelay: 5 * time.Second, MaxDelay: 12 * time.Second}
	if got := p.Backoff(5); got != 12*time.Second {
		t.Fatalf("Backoff(5) = %s, want capped 12s", got)
	}
}

func TestInProcDispatcherRunsTask(t *testing.T) {
	done := make(chan Task, 1)
	d := NewInProcDispatcher(func(_ context.Context, task Task) error {
		done <- task
		return nil
	}, nil, RetryPolicy{MaxAttempts: 1}, nopLogger())
	defer d.Close()

	if err := d.Enqueue(context.Background(), Task{BatchJobID: "job-1", UserID: "user-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case task := <-done:
		if task.BatchJobID != "job-1" {
			t.Fatalf("task = %+v", task)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestInProcDispatcherRetriesUntilSuccess(t *testing.T) {
	var attempts atomic.Int32
	done := make(chan struct{})
	d := NewInProcDispatcher(func(_ context.Context, _ Task) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, nil, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, nopLogger())
	defer d.Close()

	if err := d.Enqueue(context.Background(), Task{BatchJobID: "job-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never succeeded")
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}

func TestInProcDispatcherGivesUpAfterMaxAttempts(t *testing.T) {
	var attempts atomic.Int32
	failer := &recordingFailer{}
	d := NewInProcDispatcher(func(_ context.Context, _ Task) error {
		attempts.Add(1)
		return errors.New("permanent")
	}, failer, RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, nopLogger())

	if err := d.Enqueue(context.Background(), Task{BatchJobID: "job-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	d.Close()

	if got := attempts.Load(); got != 2 {
		t.Fatalf("attempts = %d, want 2", got)
	}
	// The job must not linger as pending once retries run out.
	if failer.calls() != 1 {
		t.Fatalf("failed-to-start calls = %d, want 1", failer.calls())
	}
	if failer.jobIDs[0] != "job-1" || failer.reasons[0] != domain.FailedToStartMessage {
		t.Fatalf("failed-to-start call = %q %q", failer.jobIDs[0], failer.reasons[0])
	}
}

func TestInProcDispatcherDoesNotFailJobThatSucceeded(t *testing.T) {
	var attempts atomic.Int32
	failer := &recordingFailer{}
	d := NewInProcDispatcher(func(_ context.Context, _ Task) error {
		if attempts.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	}, failer, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, nopLogger())

	if err := d.Enqueue(context.Background(), Task{BatchJobID: "job-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	d.Close()

	if failer.calls() != 0 {
		t.Fatalf("failed-to-start calls = %d, want 0", failer.calls())
	}
}

func TestInProcDispatcherRejectsAfterClose(t *testing.T) {
	d := NewInProcDispatcher(func(_ context.Context, _ Task) error { return nil }, nil, RetryPolicy{MaxAttempts: 1}, nopLogger())
	d.Close()

	if err := d.Enqueue(context.Background(), Task{BatchJobID: "job-1"}); err == nil {
		t.Fatal("expected error after close")
	}
}
