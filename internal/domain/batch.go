package domain

import "time"

// BatchJobStatus enumerates batch job lifecycle states.
type BatchJobStatus string

const (
	BatchJobStatusPending    BatchJobStatus = "pending"
	BatchJobStatusProcessing BatchJobStatus = "processing"
	BatchJobStatusCompleted  BatchJobStatus = "completed"
	BatchJobStatusFailed     BatchJobStatus = "failed"
	BatchJobStatusPartial    BatchJobStatus = "partial"
)

// Terminal reports whether the job can no longer change status.
func (s BatchJobStatus) Terminal() bool {
	switch s {
	case BatchJobStatusCompleted, BatchJobStatusFailed, BatchJobStatusPartial:
		return true
	}
	return false
}

// BatchItemStatus enumerates per-item lifecycle states.
type BatchItemStatus string

const (
	BatchItemStatusQueued     BatchItemStatus = "queued"
	BatchItemStatusProcessing BatchItemStatus = "processing"
	BatchItemStatusCompleted  BatchItemStatus = "completed"
	BatchItemStatusFailed     BatchItemStatus = "failed"
)

// Terminal reports whether the item can no longer change status.
func (s BatchItemStatus) Terminal() bool {
	return s == BatchItemStatusCompleted || s == BatchItemStatusFailed
}

// BatchJob is one user-initiated bulk generation request spanning multiple
// products under a single resolved style.
type BatchJob struct {
	ID               string
	UserID           string
	ProductIDs       []string
	Style            StyleConfiguration
	Status           BatchJobStatus
	TotalProducts    int
	ProcessedCount   int
	SuccessCount     int
	FailedCount      int
	EstimatedCredits int
	UsedCredits      int
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

// BatchItem is one product's unit of work inside a batch job. Items are
// created in bulk with the job and are exclusively owned by it.
type BatchItem struct {
	ID           string
	BatchJobID   string
	ProductID    string
	Status       BatchItemStatus
	OutputURL    string
	Caption      string
	ErrorMessage string
	CreditsCost  int
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// CanTransition reports whether an item may move from its current status to
// next. queued -> processing -> {completed, failed}; terminal states are
// frozen, which makes duplicate dispatches harmless.
func (i *BatchItem) CanTransition(next BatchItemStatus) bool {
	switch i.Status {
	case BatchItemStatusQueued:
		return next == BatchItemStatusProcessing || next == BatchItemStatusFailed
	case BatchItemStatusProcessing:
		return next == BatchItemStatusCompleted || next == BatchItemStatusFailed
	default:
		return false
	}
}

// EvaluateCompletion derives the terminal status of a job from its counters.
// It returns ok=false while items remain unprocessed. Pure function; callers
// persist the result behind a status='processing' guard so concurrent
// invocations cannot double-finalize.
func EvaluateCompletion(total, processed, success, failed int) (BatchJobStatus, bool) {
	if processed < total {
		return BatchJobStatusProcessing, false
	}
	switch {
	case success == 0:
		return BatchJobStatusFailed, true
	case failed == 0:
		return BatchJobStatusCompleted, true
	default:
		return BatchJobStatusPartial, true
	}
}

// CancelledByUserMessage is recorded on items force-failed by a cancel call.
const CancelledByUserMessage = "Cancelled by user"

// FailedToStartMessage is recorded on items of a job whose dispatch attempts
// were exhausted before any worker picked it up.
const FailedToStartMessage = "Failed to start: dispatch attempts exhausted"
