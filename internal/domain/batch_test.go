package domain

import "testing"

func TestBatchItemTransitions(t *testing.T) {
	testCases := []struct {
		name string
		from BatchItemStatus
		to   BatchItemStatus
		want bool
	}{
		{"queued to processing", BatchItemStatusQueued, BatchItemStatusProcessing, true},
		{"queued to failed", BatchItemStatusQueued, BatchItemStatusFailed, true},
		{"queued to completed", BatchItemStatusQueued, BatchItemStatusCompleted, false},
		{"processing to completed", BatchItemStatusProcessing, BatchItemStatusCompleted, true},
		{"processing to failed", BatchItemStatusProcessing, BatchItemStatusFailed, true},
		{"processing to queued", BatchItemStatusProcessing, BatchItemStatusQueued, false},
		{"completed is frozen", BatchItemStatusCompleted, BatchItemStatusFailed, false},
		{"failed is frozen", BatchItemStatusFailed, BatchItemStatusProcessing, false},
		{"failed stays failed", BatchItemStatusFailed, BatchItemStatusFailed, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			item := &BatchItem{Status: tc.from}
			if got := item.CanTransition(tc.to); got != tc.want {
				t.Fatalf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestEvaluateCompletion(t *testing.T) {
	testCases := []struct {
		name       string
		total      int
		processed  int
		success    int
		failed     int
		wantStatus BatchJobStatus
		wantDone   bool
	}{
		{"nothing processed", 3, 0, 0, 0, BatchJobStatusProcessing, false},
		{"partway", 3, 2, 2, 0, BatchJobStatusProcessing, false},
		{"all succeeded", 3, 3, 3, 0, BatchJobStatusCompleted, true},
		{"all failed", 3, 3, 0, 3, BatchJobStatusFailed, true},
		{"mixed outcome", 3, 3, 2, 1, BatchJobStatusPartial, true},
		{"single item success", 1, 1, 1, 0, BatchJobStatusCompleted, true},
		{"single item failure", 1, 1, 0, 1, BatchJobStatusFailed, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, done := EvaluateCompletion(tc.total, tc.processed, tc.success, tc.failed)
			if done != tc.wantDone {
				t.Fatalf("done = %v, want %v", done, tc.wantDone)
			}
			if done && status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", status, tc.wantStatus)
			}
		})
	}
}

func TestEvaluateCompletionIdempotent(t *testing.T) {
	first, done := EvaluateCompletion(3, 3, 2, 1)
	if !done || first != BatchJobStatusPartial {
		t.Fatalf("first evaluation = %s/%v", first, done)
	}
	// Re-evaluating fully processed counters must yield the same answer.
	for i := 0; i < 5; i++ {
		status, done := EvaluateCompletion(3, 3, 2, 1)
		if !done || status != first {
			t.Fatalf("re-evaluation %d = %s/%v, want %s/true", i, status, done, first)
		}
	}
}

func TestJobStatusTerminal(t *testing.T) {
	terminal := []BatchJobStatus{BatchJobStatusCompleted, BatchJobStatusFailed, BatchJobStatusPartial}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []BatchJobStatus{BatchJobStatusPending, BatchJobStatusProcessing} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}
